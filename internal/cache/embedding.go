package cache

import (
	"context"
	"strings"
	"time"
)

// EmbeddingCacheEntry is the on-disk shape of a cached embedding, keyed by
// model + ":" + trim(text).
type EmbeddingCacheEntry struct {
	Text      string    `json:"text"`
	Model     string    `json:"model"`
	Embedding []float32 `json:"embedding"`
	CreatedAt int64     `json:"createdAt"`
}

// EmbeddingCache is the content-addressed (model,text) -> vector cache
// backed by a single vectorStoreCache.json file.
type EmbeddingCache struct {
	file *FileCache[EmbeddingCacheEntry]
}

// NewEmbeddingCache returns an embedding cache backed by the JSON file at
// path.
func NewEmbeddingCache(path string) *EmbeddingCache {
	return &EmbeddingCache{file: NewFileCache[EmbeddingCacheEntry](path)}
}

func embeddingKey(model, text string) string {
	return model + ":" + strings.TrimSpace(text)
}

// Get returns the cached embedding for (text, model), if present.
func (c *EmbeddingCache) Get(ctx context.Context, text, model string) ([]float32, bool, error) {
	entry, ok, err := c.file.Get(ctx, embeddingKey(model, text))
	if err != nil || !ok {
		return nil, ok, err
	}
	return entry.Embedding, true, nil
}

// GetMany returns the embeddings present in the cache for the given texts,
// keyed by the original text (not the derived cache key).
func (c *EmbeddingCache) GetMany(ctx context.Context, texts []string, model string) (map[string][]float32, error) {
	keys := make([]string, len(texts))
	keyToText := make(map[string]string, len(texts))
	for i, t := range texts {
		k := embeddingKey(model, t)
		keys[i] = k
		keyToText[k] = t
	}

	entries, err := c.file.GetMany(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]float32, len(entries))
	for k, entry := range entries {
		out[keyToText[k]] = entry.Embedding
	}
	return out, nil
}

// Set caches the embedding for (text, model).
func (c *EmbeddingCache) Set(ctx context.Context, text string, embedding []float32, model string) error {
	return c.file.Set(ctx, embeddingKey(model, text), EmbeddingCacheEntry{
		Text:      text,
		Model:     model,
		Embedding: embedding,
		CreatedAt: time.Now().UnixMilli(),
	})
}

// EmbeddingSetManyItem is one entry for SetMany.
type EmbeddingSetManyItem struct {
	Text      string
	Embedding []float32
}

// SetMany caches embeddings for every (text, embedding) pair under model in
// a single write.
func (c *EmbeddingCache) SetMany(ctx context.Context, items []EmbeddingSetManyItem, model string) error {
	now := time.Now().UnixMilli()
	entries := make(map[string]EmbeddingCacheEntry, len(items))
	for _, item := range items {
		entries[embeddingKey(model, item.Text)] = EmbeddingCacheEntry{
			Text:      item.Text,
			Model:     model,
			Embedding: item.Embedding,
			CreatedAt: now,
		}
	}
	return c.file.SetMany(ctx, entries)
}

// DeleteByFilter removes every entry for which pred returns true.
func (c *EmbeddingCache) DeleteByFilter(ctx context.Context, pred func(entry EmbeddingCacheEntry) bool) (int, error) {
	return c.file.DeleteByFilter(ctx, func(_ string, entry EmbeddingCacheEntry) bool {
		return pred(entry)
	})
}
