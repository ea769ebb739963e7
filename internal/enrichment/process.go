package enrichment

import "github.com/vanshika/sectarget/internal/domain"

// Process finalises a raw result table in place. Each term gets the full
// member list of its gene set, the pathway ID is split out of the decorated
// label unless the table already has an ID column, and qval is derived with
// Benjamini–Hochberg when the table has pval but no qval.
func Process(t *ResultTable, sets *GeneSets) {
	for i := range t.Rows {
		r := &t.Rows[i]
		if sets != nil {
			if genes, ok := sets.Genes(r.Term); ok {
				r.PropagatedEdge = append([]string(nil), genes...)
			}
		}
		if !t.HasID {
			r.Term, r.ID = ExtractID(r.Term)
		}
	}
	t.HasID = true

	if !t.HasQValue && t.HasPValue {
		p := make([]float64, len(t.Rows))
		for i, r := range t.Rows {
			p[i] = r.PValue
		}
		for i, q := range BenjaminiHochberg(p) {
			t.Rows[i].QValue = q
		}
		t.HasQValue = true
		t.QValueDerived = true
	}
}

// FilterOptions selects significant terms. Nil thresholds are not applied.
type FilterOptions struct {
	PValue      *float64
	FDR         *float64
	NESPositive bool
}

// FilterReport carries the selected pathway IDs and how each requested
// filter was handled.
type FilterReport struct {
	IDs    []string
	PValue domain.Capability
	FDR    domain.Capability
	NES    domain.Capability
}

// Filter returns the IDs of the rows that pass every applicable filter, in row
// order. A filter whose column is absent is skipped rather than failing, and
// comparisons against NaN never pass.
func Filter(t *ResultTable, opts FilterOptions) FilterReport {
	report := FilterReport{
		PValue: probe(opts.PValue != nil, t.HasPValue),
		FDR:    probe(opts.FDR != nil, t.HasQValue),
		NES:    probe(opts.NESPositive, t.HasNES),
	}

	report.IDs = make([]string, 0)
	for _, r := range t.Rows {
		if report.PValue == domain.CapabilityApplied && !(r.PValue <= *opts.PValue) {
			continue
		}
		if report.FDR == domain.CapabilityApplied && !(r.QValue <= *opts.FDR) {
			continue
		}
		if report.NES == domain.CapabilityApplied && !(r.NES > 0) {
			continue
		}
		id := r.ID
		if !t.HasID {
			_, id = ExtractID(r.Term)
		}
		report.IDs = append(report.IDs, id)
	}
	return report
}

func probe(requested, supported bool) domain.Capability {
	switch {
	case !requested:
		return domain.CapabilityNotRequested
	case supported:
		return domain.CapabilityApplied
	default:
		return domain.CapabilitySkipped
	}
}
