package enrichment

import (
	"math"
	"sort"
)

// BenjaminiHochberg returns step-up adjusted q-values for p, in the order of
// p. Values are ranked ascending (NaN last), raw q = p·n/rank, then a
// running minimum is taken from the largest rank down and clipped to 1.
// NaN inputs yield 1.
func BenjaminiHochberg(p []float64) []float64 {
	n := len(p)
	q := make([]float64, n)
	if n == 0 {
		return q
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		pa, pb := p[order[a]], p[order[b]]
		if math.IsNaN(pa) {
			return false
		}
		if math.IsNaN(pb) {
			return true
		}
		return pa < pb
	})

	running := math.Inf(1)
	for rank := n; rank >= 1; rank-- {
		idx := order[rank-1]
		pv := p[idx]
		if math.IsNaN(pv) {
			q[idx] = 1
			continue
		}
		raw := pv * float64(n) / float64(rank)
		if raw < running {
			running = raw
		}
		q[idx] = math.Min(running, 1)
	}
	return q
}
