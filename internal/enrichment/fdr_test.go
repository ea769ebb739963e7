package enrichment

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// textbookBH computes q_(i) = min over j >= i of min(1, p_(j)·n/j) directly.
func textbookBH(p []float64) []float64 {
	n := len(p)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return p[idx[a]] < p[idx[b]] })

	q := make([]float64, n)
	for i := 0; i < n; i++ {
		best := math.Inf(1)
		for j := i; j < n; j++ {
			v := p[idx[j]] * float64(n) / float64(j+1)
			if v < best {
				best = v
			}
		}
		q[idx[i]] = math.Min(best, 1)
	}
	return q
}

func TestBenjaminiHochbergMatchesTextbook(t *testing.T) {
	p := []float64{0.01, 0.02, 0.03, 0.5}
	got := BenjaminiHochberg(p)
	want := textbookBH(p)
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "q[%d]", i)
	}
	assert.InDeltaSlice(t, []float64{0.04, 0.04, 0.04, 0.5}, got, 1e-9)
}

func TestBenjaminiHochbergPreservesInputOrder(t *testing.T) {
	p := []float64{0.5, 0.001, 0.04, 0.04, 0.2, 0.9}
	got := BenjaminiHochberg(p)
	want := textbookBH(p)
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "q[%d]", i)
	}
	assert.Equal(t, got[2], got[3], "tied p-values share a q-value")
}

func TestBenjaminiHochbergClipsAndHandlesNaN(t *testing.T) {
	got := BenjaminiHochberg([]float64{0.9, math.NaN(), 0.8})
	assert.InDelta(t, 1.0, got[0], 1e-9)
	assert.Equal(t, 1.0, got[1])
	// 0.8·3/1 = 2.4 clipped; 0.9·3/2 = 1.35 clipped
	assert.InDelta(t, 1.0, got[2], 1e-9)

	got = BenjaminiHochberg([]float64{0.01, math.NaN()})
	assert.InDelta(t, 0.02, got[0], 1e-9, "n counts NaN rows")
}

func TestBenjaminiHochbergEmpty(t *testing.T) {
	assert.Empty(t, BenjaminiHochberg(nil))
}
