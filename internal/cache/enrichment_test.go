package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrichmentCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := NewEnrichmentCache(filepath.Join(t.TempDir(), "chunkEnrichmentCache.json"))

	key := EnrichmentKeyInput{
		Model:         "gpt-4o-mini",
		PromptVersion: "v1",
		DocID:         "abc123",
		Version:       "1700000000000",
		HeadingPath:   "Intro",
		ContentType:   "markdown",
		RawChunk:      "some chunk text",
	}

	require.NoError(t, c.Set(ctx, key, "rendered embedding text"))

	entry, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "rendered embedding text", entry.EmbeddedText)
	assert.Equal(t, "abc123", entry.DocID)
}

func TestEnrichmentCache_KeyChangesWithAnyField(t *testing.T) {
	base := EnrichmentKeyInput{
		Model:         "m",
		PromptVersion: "v1",
		DocID:         "d",
		HeadingPath:   "H",
		RawChunk:      "text",
	}

	changedHeading := base
	changedHeading.HeadingPath = "Other"

	assert.NotEqual(t, Key(base), Key(changedHeading))
}

func TestEnrichmentCache_SameInputsSameKey(t *testing.T) {
	in := EnrichmentKeyInput{Model: "m", PromptVersion: "v1", RawChunk: "text"}
	assert.Equal(t, Key(in), Key(in))
}

func TestEnrichmentCache_DeleteByFilterScopesByDocID(t *testing.T) {
	ctx := context.Background()
	c := NewEnrichmentCache(filepath.Join(t.TempDir(), "chunkEnrichmentCache.json"))

	keyA := EnrichmentKeyInput{Model: "m", PromptVersion: "v1", DocID: "docA", RawChunk: "a"}
	keyB := EnrichmentKeyInput{Model: "m", PromptVersion: "v1", DocID: "docB", RawChunk: "b"}

	require.NoError(t, c.Set(ctx, keyA, "rendered a"))
	require.NoError(t, c.Set(ctx, keyB, "rendered b"))

	removed, err := c.DeleteByFilter(ctx, func(e EnrichmentCacheEntry) bool { return e.DocID == "docA" })
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, ok, err := c.Get(ctx, keyA)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.Get(ctx, keyB)
	require.NoError(t, err)
	assert.True(t, ok)
}
