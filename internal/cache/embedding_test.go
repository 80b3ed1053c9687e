package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := NewEmbeddingCache(filepath.Join(t.TempDir(), "vectorStoreCache.json"))

	emb := []float32{0.1, 0.2, 0.3}
	require.NoError(t, c.Set(ctx, "hello world", emb, "text-embedding-3"))

	got, ok, err := c.Get(ctx, "hello world", "text-embedding-3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, emb, got)
}

func TestEmbeddingCache_KeyIsModelScoped(t *testing.T) {
	ctx := context.Background()
	c := NewEmbeddingCache(filepath.Join(t.TempDir(), "vectorStoreCache.json"))

	require.NoError(t, c.Set(ctx, "hello", []float32{1}, "model-a"))

	_, ok, err := c.Get(ctx, "hello", "model-b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEmbeddingCache_TextIsTrimmedForKey(t *testing.T) {
	ctx := context.Background()
	c := NewEmbeddingCache(filepath.Join(t.TempDir(), "vectorStoreCache.json"))

	require.NoError(t, c.Set(ctx, "  hello  ", []float32{1}, "m"))

	got, ok, err := c.Get(ctx, "hello", "m")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float32{1}, got)
}

func TestEmbeddingCache_GetMany(t *testing.T) {
	ctx := context.Background()
	c := NewEmbeddingCache(filepath.Join(t.TempDir(), "vectorStoreCache.json"))

	require.NoError(t, c.SetMany(ctx, []EmbeddingSetManyItem{
		{Text: "a", Embedding: []float32{1}},
		{Text: "b", Embedding: []float32{2}},
	}, "m"))

	got, err := c.GetMany(ctx, []string{"a", "b", "c"}, "m")
	require.NoError(t, err)
	assert.Equal(t, map[string][]float32{"a": {1}, "b": {2}}, got)
}

func TestEmbeddingCache_DeleteByFilter(t *testing.T) {
	ctx := context.Background()
	c := NewEmbeddingCache(filepath.Join(t.TempDir(), "vectorStoreCache.json"))

	require.NoError(t, c.Set(ctx, "a", []float32{1}, "m1"))
	require.NoError(t, c.Set(ctx, "b", []float32{2}, "m2"))

	removed, err := c.DeleteByFilter(ctx, func(e EmbeddingCacheEntry) bool { return e.Model == "m1" })
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, ok, err := c.Get(ctx, "a", "m1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.Get(ctx, "b", "m2")
	require.NoError(t, err)
	assert.True(t, ok)
}
