package oppmatch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/oppmatch/ai"
	"github.com/poiesic/oppmatch/ai/mock"
	"github.com/poiesic/oppmatch/core"
	"github.com/poiesic/oppmatch/ingestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDocs = []core.Document{
	{ID: "N1", Title: "Radar sustainment", Description: "Depot level repair of airborne radar"},
	{ID: "N2", Title: "Satellite ground station", Description: "Operations and maintenance support"},
	{ID: "N3", Title: "Tiny"},
}

func openTestWorkspace(t *testing.T, path string, opts ...WorkspaceOption) *Workspace {
	t.Helper()
	provider := mock.NewMockProviderWithEmbedder(mock.NewMockEmbedder().WithDimensions(16))
	opts = append([]WorkspaceOption{WithProvider(provider)}, opts...)
	ws, err := OpenWorkspace(context.Background(), path, opts...)
	require.NoError(t, err)
	return ws
}

func embedDocs(t *testing.T, ws *Workspace, docs []core.Document) {
	t.Helper()
	pipeline, err := ws.NewPipeline(ingestion.NewNormalizer(nil))
	require.NoError(t, err)
	defer pipeline.Release()

	_, err = pipeline.EmbedMissing(context.Background(), docs, ws.Cache())
	require.NoError(t, err)
}

func TestOpenWorkspace_RoundTrip(t *testing.T) {
	for name, path := range map[string]string{
		"json":   filepath.Join(t.TempDir(), "cache.json"),
		"badger": filepath.Join(t.TempDir(), "cache.badger"),
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			ws := openTestWorkspace(t, path)
			assert.Equal(t, 0, ws.Cache().Len())
			embedDocs(t, ws, testDocs)
			require.NoError(t, ws.Save(ctx))
			ids, rows := ws.Cache().Matrix()
			require.NoError(t, ws.Close())

			reopened := openTestWorkspace(t, path)
			defer reopened.Close()
			gotIDs, gotRows := reopened.Cache().Matrix()
			assert.Equal(t, []string{"N1", "N2"}, gotIDs)
			assert.Equal(t, ids, gotIDs)
			for i := range rows {
				assert.InDeltaSlice(t, rows[i], gotRows[i], 1e-6)
			}
		})
	}
}

func TestOpenWorkspace_UnknownFormat(t *testing.T) {
	_, err := OpenWorkspace(context.Background(), filepath.Join(t.TempDir(), "cache"),
		WithProvider(mock.NewMockProvider()),
		WithStoreFormat("parquet"),
	)
	assert.ErrorIs(t, err, ErrUnknownStoreFormat)
}

func TestOpenWorkspace_InvalidAIConfig(t *testing.T) {
	_, err := OpenWorkspace(context.Background(), filepath.Join(t.TempDir(), "cache.json"),
		WithAIConfig(ai.NewConfig(ai.WithEmbeddingModel(""))),
	)
	assert.Error(t, err)
}

func TestWorkspace_FactoryMethods(t *testing.T) {
	ws := openTestWorkspace(t, filepath.Join(t.TempDir(), "cache.json"))
	defer ws.Close()

	t.Run("can create pipeline", func(t *testing.T) {
		pipeline, err := ws.NewPipeline(ingestion.NewNormalizer(nil))
		require.NoError(t, err)
		pipeline.Release()
	})

	t.Run("can create searcher", func(t *testing.T) {
		searcher, err := ws.NewSearcher()
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("can create matcher", func(t *testing.T) {
		matcher, err := ws.NewMatcher()
		require.NoError(t, err)
		assert.NotNil(t, matcher)
	})
}

func TestWorkspace_WriteFilteredEmbeddings(t *testing.T) {
	ctx := context.Background()
	ws := openTestWorkspace(t, filepath.Join(t.TempDir(), "cache.json"))
	defer ws.Close()

	embedDocs(t, ws, testDocs)
	// A document from an earlier run stays in the cache but not in the output.
	embedDocs(t, ws, []core.Document{{ID: "OLD", Title: "Earlier run", Description: "unrelated opportunity text"}})
	require.Equal(t, 3, ws.Cache().Len())

	run := ws.RunCache(testDocs)
	assert.Equal(t, 2, run.Len())

	matcher, err := ws.NewMatcher()
	require.NoError(t, err)
	matches, err := matcher.Match(ctx, []core.Capability{{Text: "radar repair"}}, run, 1)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "filtered.json")
	require.NoError(t, ws.WriteFilteredEmbeddings(ctx, out, testDocs, matches))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var decoded map[string][]float32
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Len(t, decoded, 3)
	assert.Contains(t, decoded, "N1")
	assert.Contains(t, decoded, "N2")
	assert.NotContains(t, decoded, "OLD")
	matched := matches[0].Ranked[0].DocumentID
	assert.Equal(t, decoded[matched], decoded[core.CapabilityKey(matched)])
	assert.False(t, ws.Cache().Contains(core.CapabilityKey(matched)))
}
