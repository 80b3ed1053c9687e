package jsonstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoeflow/ragcore/internal/ragerr"
	"github.com/zoeflow/ragcore/internal/vectorstore"
)

func TestStore_UpsertAndList(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "demo.json"))

	inserted, updated, err := s.Upsert(ctx, []vectorstore.Item{
		{ID: "1", Text: "hello", Embedding: []float32{0.1, 0.2, 0.3}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 0, updated)

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "hello", items[0].Text)
	assert.NotZero(t, items[0].EmbeddingNorm)
}

func TestStore_UpsertUpdatesExistingID(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "demo.json"))

	_, _, err := s.Upsert(ctx, []vectorstore.Item{{ID: "1", Text: "v1", Embedding: []float32{0.1, 0.2}}})
	require.NoError(t, err)

	inserted, updated, err := s.Upsert(ctx, []vectorstore.Item{{ID: "1", Text: "v2", Embedding: []float32{0.3, 0.4}}})
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.Equal(t, 1, updated)

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "v2", items[0].Text)
}

func TestStore_DimensionLock(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "demo.json"))

	inserted, _, err := s.Upsert(ctx, []vectorstore.Item{{ID: "a", Text: "a", Embedding: []float32{0.1, 0.2, 0.3}}})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	_, _, err = s.Upsert(ctx, []vectorstore.Item{{ID: "b", Text: "b", Embedding: []float32{0.1, 0.2}}})
	require.Error(t, err)
	assert.True(t, ragerr.Is(err, ragerr.Conflict))

	items, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1, "failed upsert must not change store state")
}

func TestStore_EmptyTextAndEmbeddingRejected(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "demo.json"))

	_, _, err := s.Upsert(ctx, []vectorstore.Item{{ID: "a", Text: "", Embedding: []float32{0.1}}})
	require.Error(t, err)

	_, _, err = s.Upsert(ctx, []vectorstore.Item{{ID: "a", Text: "x", Embedding: nil}})
	require.Error(t, err)
}

func TestStore_QueryOrdersByScoreDescending(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "demo.json"))

	_, _, err := s.Upsert(ctx, []vectorstore.Item{
		{ID: "a", Text: "a", Embedding: []float32{1, 0}},
		{ID: "b", Text: "b", Embedding: []float32{0, 1}},
		{ID: "c", Text: "c", Embedding: []float32{0.9, 0.1}},
	})
	require.NoError(t, err)

	results, err := s.Query(ctx, []float32{1, 0}, 10, "")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "c", results[1].ID)
	assert.Equal(t, "b", results[2].ID)
}

func TestStore_QueryRespectsTopK(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "demo.json"))

	_, _, err := s.Upsert(ctx, []vectorstore.Item{
		{ID: "a", Text: "a", Embedding: []float32{1, 0}},
		{ID: "b", Text: "b", Embedding: []float32{0, 1}},
	})
	require.NoError(t, err)

	results, err := s.Query(ctx, []float32{1, 0}, 1, "")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestStore_QueryWithFilter(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "demo.json"))

	_, _, err := s.Upsert(ctx, []vectorstore.Item{
		{ID: "a", Text: "a", Embedding: []float32{1, 0}, Metadata: map[string]any{"doc_id": "d1"}},
		{ID: "b", Text: "b", Embedding: []float32{1, 0}, Metadata: map[string]any{"doc_id": "d2"}},
	})
	require.NoError(t, err)

	results, err := s.Query(ctx, []float32{1, 0}, 10, `doc_id = "d2"`)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestStore_QueryMany(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "demo.json"))

	_, _, err := s.Upsert(ctx, []vectorstore.Item{
		{ID: "a", Text: "a", Embedding: []float32{1, 0}},
		{ID: "b", Text: "b", Embedding: []float32{0, 1}},
	})
	require.NoError(t, err)

	results, err := s.QueryMany(ctx, [][]float32{{1, 0}, {0, 1}}, 1, "")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0][0].ID)
	assert.Equal(t, "b", results[1][0].ID)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "demo.json"))

	_, _, err := s.Upsert(ctx, []vectorstore.Item{
		{ID: "a", Text: "a", Embedding: []float32{1, 0}},
		{ID: "b", Text: "b", Embedding: []float32{0, 1}},
	})
	require.NoError(t, err)

	deleted, err := s.Delete(ctx, []string{"a", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].ID)
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "demo.json")

	s1 := New(path)
	_, _, err := s1.Upsert(ctx, []vectorstore.Item{{ID: "a", Text: "a", Embedding: []float32{1, 0}}})
	require.NoError(t, err)

	s2 := New(path)
	items, err := s2.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].ID)
}

func TestStore_CorruptFileFailsLoudly(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "demo.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"v0"}`), 0o644))

	s := New(path)
	_, err := s.Load(ctx)
	require.Error(t, err)
	assert.True(t, ragerr.Is(err, ragerr.Corrupt))
}

func TestStore_NoLeftoverTmpFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "demo.json")
	s := New(path)

	_, _, err := s.Upsert(ctx, []vectorstore.Item{{ID: "a", Text: "a", Embedding: []float32{1}}})
	require.NoError(t, err)
	_, _, err = s.Upsert(ctx, []vectorstore.Item{{ID: "b", Text: "b", Embedding: []float32{2}}})
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
