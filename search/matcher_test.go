package search

import (
	"context"
	"testing"

	"github.com/poiesic/oppmatch/ai/mock"
	"github.com/poiesic/oppmatch/core"
	"github.com/poiesic/oppmatch/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	provider := fixedProvider(t, map[string][]float32{
		"radar":     {1, 0},
		"satellite": {0, 1},
	})
	matcher, err := NewMatcher(provider)
	require.NoError(t, err)

	results, err := matcher.Match(context.Background(), []core.Capability{
		{Text: "satellite"},
		{Text: "radar"},
	}, exampleCache(t), 0)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "satellite", results[0].Query)
	assert.Equal(t, []string{"B"}, results[0].DocumentIDs())
	assert.Equal(t, "radar", results[1].Query)
	assert.Equal(t, []string{"A"}, results[1].DocumentIDs())
	assert.Equal(t, 1, results[1].Ranked[0].Rank)
}

func TestMatch_TopK(t *testing.T) {
	matcher, err := NewMatcher(fixedProvider(t, map[string][]float32{"radar": {1, 0}}))
	require.NoError(t, err)

	results, err := matcher.Match(context.Background(), []core.Capability{{Text: "radar"}}, exampleCache(t), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, results[0].DocumentIDs())
}

func TestMatch_TieGoesToEarlierDocument(t *testing.T) {
	cache, err := storage.NewCacheFromEntries([]storage.Entry{
		{ID: "first", Vector: core.Vector{1, 0}},
		{ID: "second", Vector: core.Vector{0, 1}},
	})
	require.NoError(t, err)

	matcher, err := NewMatcher(fixedProvider(t, map[string][]float32{"both": {1, 1}}))
	require.NoError(t, err)

	results, err := matcher.Match(context.Background(), []core.Capability{{Text: "both"}}, cache, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, results[0].DocumentIDs())
}

func TestMatch_SingleProviderCall(t *testing.T) {
	embedder := mock.NewMockEmbedder().WithDimensions(2)
	matcher, err := NewMatcher(mock.NewMockProviderWithEmbedder(embedder))
	require.NoError(t, err)

	_, err = matcher.Match(context.Background(), []core.Capability{{Text: "a"}, {Text: "b"}, {Text: "c"}}, exampleCache(t), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.CallCount())
	assert.Equal(t, [][]string{{"a", "b", "c"}}, embedder.Batches())
}

func TestMatch_EdgeCases(t *testing.T) {
	embedder := mock.NewMockEmbedder().WithDimensions(2)
	matcher, err := NewMatcher(mock.NewMockProviderWithEmbedder(embedder))
	require.NoError(t, err)
	ctx := context.Background()

	results, err := matcher.Match(ctx, nil, exampleCache(t), 1)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, embedder.CallCount())

	_, err = matcher.Match(ctx, []core.Capability{{Text: "a"}}, exampleCache(t), -1)
	assert.ErrorIs(t, err, ErrInvalidQuery)

	results, err = matcher.Match(ctx, []core.Capability{{Text: "a"}}, storage.NewCache(), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Ranked)

	_, err = NewMatcher(nil)
	assert.ErrorIs(t, err, ErrProviderRequired)
}

func TestCapabilityMapAndPseudoPoints(t *testing.T) {
	cache := exampleCache(t)
	results := []core.MatchResult{
		{Query: "radar", Ranked: []core.ScoredDocument{{DocumentID: "A", Rank: 1}, {DocumentID: "C", Rank: 2}}},
		{Query: "satellite", Ranked: []core.ScoredDocument{{DocumentID: "A", Rank: 1}}},
	}

	assert.Equal(t, map[string][]string{
		"CAP:radar":     {"A", "C"},
		"CAP:satellite": {"A"},
	}, CapabilityMap(results))

	points := PseudoPoints(results, cache)
	require.Len(t, points, 2)
	assert.Equal(t, "CAP:A", points[0].ID)
	assert.Equal(t, core.Vector{1, 0}, points[0].Vector, "cached vector is reused")
	assert.Equal(t, "CAP:C", points[1].ID)
	assert.False(t, cache.Contains("CAP:A"), "cache is not modified")
}
