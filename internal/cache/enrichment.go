package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// EnrichmentCacheEntry is the on-disk shape of a cached enrichment render.
type EnrichmentCacheEntry struct {
	EmbeddedText  string `json:"embeddedText"`
	Model         string `json:"model"`
	PromptVersion string `json:"promptVersion"`
	DocID         string `json:"docId,omitempty"`
	Version       string `json:"version,omitempty"`
	CreatedAt     int64  `json:"createdAt"`
}

// EnrichmentKeyInput is the set of fields that determine an enrichment
// cache key. Two chunks that differ in any of these fields are treated as
// distinct enrichment targets, even if their raw text is identical -
// changing the heading path or content type changes what the enrichment
// prompt says about the chunk.
type EnrichmentKeyInput struct {
	Model          string
	PromptVersion  string
	DocID          string
	Version        string
	HeadingPath    string
	ContentType    string
	Language       string
	RawChunk       string
	OutwardContext string
}

// EnrichmentCache is the content-addressed (model,promptVersion,chunk) ->
// text cache backed by a single chunkEnrichmentCache.json file.
type EnrichmentCache struct {
	file *FileCache[EnrichmentCacheEntry]
}

// NewEnrichmentCache returns an enrichment cache backed by the JSON file at
// path.
func NewEnrichmentCache(path string) *EnrichmentCache {
	return &EnrichmentCache{file: NewFileCache[EnrichmentCacheEntry](path)}
}

// Key derives the enrichment cache key for in.
func Key(in EnrichmentKeyInput) string {
	h := sha256.New()
	h.Write([]byte(in.Model))
	h.Write([]byte(in.PromptVersion))
	h.Write([]byte(in.DocID))
	h.Write([]byte(in.Version))
	h.Write([]byte(in.HeadingPath))
	h.Write([]byte(in.ContentType))
	h.Write([]byte(in.Language))
	h.Write([]byte(in.RawChunk))
	h.Write([]byte(in.OutwardContext))
	digest := hex.EncodeToString(h.Sum(nil))

	return in.Model + ":" + in.PromptVersion + ":" + digest
}

// Get returns the cached enrichment render for in, if present.
func (c *EnrichmentCache) Get(ctx context.Context, in EnrichmentKeyInput) (EnrichmentCacheEntry, bool, error) {
	return c.file.Get(ctx, Key(in))
}

// Set caches the enrichment render embeddedText for in.
func (c *EnrichmentCache) Set(ctx context.Context, in EnrichmentKeyInput, embeddedText string) error {
	return c.file.Set(ctx, Key(in), EnrichmentCacheEntry{
		EmbeddedText:  embeddedText,
		Model:         in.Model,
		PromptVersion: in.PromptVersion,
		DocID:         in.DocID,
		Version:       in.Version,
		CreatedAt:     time.Now().UnixMilli(),
	})
}

// DeleteByFilter removes every entry for which pred returns true. This is
// the operation used for document-scoped purges: callers pass a predicate
// that matches entries whose DocID equals the document being deleted or
// reprocessed.
func (c *EnrichmentCache) DeleteByFilter(ctx context.Context, pred func(entry EnrichmentCacheEntry) bool) (int, error) {
	return c.file.DeleteByFilter(ctx, func(_ string, entry EnrichmentCacheEntry) bool {
		return pred(entry)
	})
}
