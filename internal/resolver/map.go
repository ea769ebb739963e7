// Package resolver builds the bidirectional name/identifier tables used to
// move between gene symbols and target IDs, and between disease names and
// ontology IDs.
package resolver

import "sort"

// Map is an immutable bidirectional table between human-readable names and
// stable identifiers. When a name repeats, its first occurrence wins and the
// later rows are dropped, never merged.
type Map struct {
	kind    string
	forward map[string]string
	inverse map[string]string
	dropped int
}

func newMap(kind string) *Map {
	return &Map{
		kind:    kind,
		forward: make(map[string]string),
		inverse: make(map[string]string),
	}
}

// add records name→id unless name was already seen.
func (m *Map) add(name, id string) {
	if _, ok := m.forward[name]; ok {
		m.dropped++
		return
	}
	m.forward[name] = id
	if _, ok := m.inverse[id]; !ok {
		m.inverse[id] = name
	}
}

// addInverse records id→name as the authoritative direction; the forward
// entry is only set for the first id carrying name.
func (m *Map) addInverse(id, name string) {
	m.inverse[id] = name
	if _, ok := m.forward[name]; ok {
		m.dropped++
		return
	}
	m.forward[name] = id
}

// Kind names what the map resolves, e.g. "gene" or "disease".
func (m *Map) Kind() string { return m.kind }

// ID returns the identifier for name.
func (m *Map) ID(name string) (string, bool) {
	id, ok := m.forward[name]
	return id, ok
}

// Name returns the name for id.
func (m *Map) Name(id string) (string, bool) {
	name, ok := m.inverse[id]
	return name, ok
}

// Len returns the number of distinct names.
func (m *Map) Len() int { return len(m.forward) }

// IDCount returns the number of distinct identifiers.
func (m *Map) IDCount() int { return len(m.inverse) }

// Dropped returns how many duplicate names were discarded while building.
func (m *Map) Dropped() int { return m.dropped }

// Names returns every name in ascending order.
func (m *Map) Names() []string {
	return sortedKeys(m.forward)
}

// IDs returns every identifier in ascending order.
func (m *Map) IDs() []string {
	return sortedKeys(m.inverse)
}

func sortedKeys(src map[string]string) []string {
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
