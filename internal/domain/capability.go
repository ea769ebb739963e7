package domain

// Capability reports whether an optional operation could run against the
// columns a source actually carries.
type Capability int

const (
	// CapabilityNotRequested means the caller did not ask for the operation.
	CapabilityNotRequested Capability = iota
	// CapabilityApplied means the operation was supported and applied.
	CapabilityApplied
	// CapabilitySkipped means the operation was requested but the source lacks
	// the column it needs, so it ran as if untested.
	CapabilitySkipped
)

func (c Capability) String() string {
	switch c {
	case CapabilityApplied:
		return "applied"
	case CapabilitySkipped:
		return "skipped"
	default:
		return "not-requested"
	}
}
