package search

import (
	"math"
	"testing"

	"github.com/poiesic/oppmatch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRank(t *testing.T) {
	ids := []string{"A", "B", "C"}
	matrix := []core.Vector{{1, 0}, {0, 1}, {0.9, 0.1}}

	hits := Rank(ids, matrix, core.Vector{1, 0}, 0.8, 0)
	require.Len(t, hits, 2)
	assert.Equal(t, "A", hits[0].DocumentID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.Equal(t, 1, hits[0].Rank)
	assert.Equal(t, "C", hits[1].DocumentID)
	assert.InDelta(t, 0.9/math.Sqrt(0.82), hits[1].Score, 1e-6)
	assert.Equal(t, 2, hits[1].Rank)
}

func TestRank_ThresholdIsInclusive(t *testing.T) {
	hits := Rank([]string{"A"}, []core.Vector{{1, 0}}, core.Vector{1, 0}, 1.0, 0)
	assert.Len(t, hits, 1)
}

func TestRank_TiesKeepMatrixOrder(t *testing.T) {
	ids := []string{"X", "Y", "Z"}
	matrix := []core.Vector{{0, 1}, {1, 0}, {2, 0}}

	hits := Rank(ids, matrix, core.Vector{1, 0}, -1, 0)
	require.Len(t, hits, 3)
	assert.Equal(t, []string{"Y", "Z", "X"}, hitIDs(hits))
}

func TestRank_Monotonic(t *testing.T) {
	ids := []string{"A", "B", "C", "D"}
	matrix := []core.Vector{{1, 0}, {0.7, 0.7}, {0, 1}, {-1, 0}}
	query := core.Vector{1, 0.1}

	prev := math.MaxInt
	for _, threshold := range []float64{-1, -0.5, 0, 0.5, 0.9, 1} {
		n := len(Rank(ids, matrix, query, threshold, 0))
		assert.LessOrEqual(t, n, prev, "threshold %v", threshold)
		prev = n
	}

	all := Rank(ids, matrix, query, -1, 0)
	top2 := Rank(ids, matrix, query, -1, 2)
	assert.Equal(t, hitIDs(all)[:2], hitIDs(top2), "truncation does not reorder")
}

func TestRank_Deterministic(t *testing.T) {
	ids := []string{"A", "B", "C", "D"}
	matrix := []core.Vector{{0.5, 0.5}, {0.5, 0.5}, {0.1, 0.9}, {0.5, 0.5}}
	first := Rank(ids, matrix, core.Vector{1, 1}, 0, 0)
	for range 10 {
		assert.Equal(t, first, Rank(ids, matrix, core.Vector{1, 1}, 0, 0))
	}
}

func TestRank_EdgeCases(t *testing.T) {
	assert.Empty(t, Rank(nil, nil, core.Vector{1, 0}, 0, 0))

	hits := Rank([]string{"zero"}, []core.Vector{{0, 0}}, core.Vector{1, 0}, 0, 0)
	require.Len(t, hits, 1, "zero vectors score 0")
	assert.Equal(t, 0.0, hits[0].Score)

	hits = Rank([]string{"short"}, []core.Vector{{1}}, core.Vector{1, 0}, -1, 0)
	require.Len(t, hits, 1, "mismatched rows score 0")
	assert.Equal(t, 0.0, hits[0].Score)
}

func hitIDs(hits []core.ScoredDocument) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.DocumentID
	}
	return ids
}
