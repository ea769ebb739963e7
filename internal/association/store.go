// Package association loads disease–target association records and reduces
// them to one best score per target.
package association

import (
	"math"
	"sort"

	"github.com/vanshika/sectarget/internal/domain"
)

// Store holds association records in source order. It is immutable once loaded.
type Store struct {
	records     []domain.Association
	hasDatatype bool
	sources     []string
}

// NewStore wraps records already in memory. hasDatatype declares whether the
// records carry a meaningful DatatypeID.
func NewStore(records []domain.Association, hasDatatype bool) *Store {
	return &Store{records: records, hasDatatype: hasDatatype}
}

// Len returns the number of records.
func (s *Store) Len() int { return len(s.records) }

// HasDatatype reports whether the datatype column was available in every source.
func (s *Store) HasDatatype() bool { return s.hasDatatype }

// Sources lists the files the store was loaded from, in read order.
func (s *Store) Sources() []string { return append([]string(nil), s.sources...) }

// Scores maps target ID to its best association score.
type Scores map[string]float64

// TargetIDs returns the targets in ascending order.
func (s Scores) TargetIDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Aggregation is the outcome of Store.Aggregate.
type Aggregation struct {
	DiseaseID string
	Datatype  string
	Scores    Scores
	// DatatypeFilter reports whether the datatype filter could be applied.
	DatatypeFilter domain.Capability
	Matched        int
}

// Aggregate selects the records of diseaseID, optionally restricted to
// datatype, and keeps the maximum score per target. When the store has no
// datatype column the datatype filter is skipped and reported as such. A
// disease without records yields empty Scores.
func (s *Store) Aggregate(diseaseID, datatype string) Aggregation {
	agg := Aggregation{
		DiseaseID: diseaseID,
		Datatype:  datatype,
		Scores:    make(Scores),
	}

	filterDatatype := false
	switch {
	case datatype == "":
		agg.DatatypeFilter = domain.CapabilityNotRequested
	case s.hasDatatype:
		agg.DatatypeFilter = domain.CapabilityApplied
		filterDatatype = true
	default:
		agg.DatatypeFilter = domain.CapabilitySkipped
	}

	for _, rec := range s.records {
		if rec.DiseaseID != diseaseID {
			continue
		}
		if filterDatatype && rec.DatatypeID != datatype {
			continue
		}
		if math.IsNaN(rec.Score) {
			continue
		}
		agg.Matched++
		if best, ok := agg.Scores[rec.TargetID]; !ok || rec.Score > best {
			agg.Scores[rec.TargetID] = rec.Score
		}
	}
	return agg
}

// ForDisease returns the raw records of diseaseID ordered by descending score.
func (s *Store) ForDisease(diseaseID string) []domain.Association {
	out := make([]domain.Association, 0)
	for _, rec := range s.records {
		if rec.DiseaseID == diseaseID {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
