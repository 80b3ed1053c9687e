// Package vectorstore implements the vector store engine (4.D): upsert,
// delete, list, query, and multi-query search with filter-aware scoring,
// over two interchangeable backends selected at construction time.
package vectorstore

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// storeIDPattern is the required shape of a storeId: alphanumeric,
// underscore, or hyphen, 1-64 characters.
var storeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidStoreID reports whether id matches the required storeId pattern.
func ValidStoreID(id string) bool {
	return storeIDPattern.MatchString(id)
}

// Item is one embedded chunk held by a store.
type Item struct {
	ID            string         `json:"id"`
	Text          string         `json:"text"`
	Embedding     []float32      `json:"embedding"`
	EmbeddingNorm float32        `json:"embeddingNorm"`
	Metadata      map[string]any `json:"metadata"`
	CreatedAt     int64          `json:"createdAt"`
	UpdatedAt     int64          `json:"updatedAt"`
}

// itemJSON mirrors Item's on-disk shape but carries Metadata as an
// order-preserving map, so re-serializing a store's JSON file after an
// unrelated mutation produces a stable, diffable key order instead of Go's
// randomized map iteration order.
type itemJSON struct {
	ID            string                               `json:"id"`
	Text          string                               `json:"text"`
	Embedding     []float32                            `json:"embedding"`
	EmbeddingNorm float32                               `json:"embeddingNorm"`
	Metadata      *orderedmap.OrderedMap[string, any]   `json:"metadata"`
	CreatedAt     int64                                 `json:"createdAt"`
	UpdatedAt     int64                                 `json:"updatedAt"`
}

// MarshalJSON orders Metadata's keys before encoding.
func (it Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(itemJSON{
		ID:            it.ID,
		Text:          it.Text,
		Embedding:     it.Embedding,
		EmbeddingNorm: it.EmbeddingNorm,
		Metadata:      sortedMetadata(it.Metadata),
		CreatedAt:     it.CreatedAt,
		UpdatedAt:     it.UpdatedAt,
	})
}

// UnmarshalJSON reads Metadata back into a plain map; key order only
// matters for the on-disk byte stream, not for in-memory lookups.
func (it *Item) UnmarshalJSON(data []byte) error {
	var raw itemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	it.ID = raw.ID
	it.Text = raw.Text
	it.Embedding = raw.Embedding
	it.EmbeddingNorm = raw.EmbeddingNorm
	it.CreatedAt = raw.CreatedAt
	it.UpdatedAt = raw.UpdatedAt
	it.Metadata = map[string]any{}
	if raw.Metadata != nil {
		for pair := raw.Metadata.Oldest(); pair != nil; pair = pair.Next() {
			it.Metadata[pair.Key] = pair.Value
		}
	}
	return nil
}

// sortedMetadata builds an order-preserving map with m's keys in sorted
// order, so two items with identical metadata always serialize identically.
func sortedMetadata(m map[string]any) *orderedmap.OrderedMap[string, any] {
	om := orderedmap.New[string, any]()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		om.Set(k, m[k])
	}
	return om
}

// Result is one scored hit from a query, carrying a citation derived from
// the item's own metadata so callers don't need to re-derive it.
type Result struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
	Score    float32        `json:"score"`
	Citation Citation       `json:"citation"`
}

// Citation is the source-attribution view of a result, derived from chunk
// metadata (doc_id, source_uri, heading_path, chunk_index).
type Citation struct {
	DocID       string `json:"docId"`
	SourceURI   string `json:"sourceUri"`
	HeadingPath string `json:"headingPath"`
	ChunkIndex  int    `json:"chunkIndex"`
}

// CitationOf derives a Citation from an item's metadata.
func CitationOf(metadata map[string]any) Citation {
	return Citation{
		DocID:       stringField(metadata, "doc_id"),
		SourceURI:   stringField(metadata, "source_uri"),
		HeadingPath: stringField(metadata, "heading_path"),
		ChunkIndex:  intField(metadata, "chunk_index"),
	}
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	default:
		return 0
	}
}

// LoadInfo is the summary returned by Store.Load.
type LoadInfo struct {
	Dimension int
}

// Store is the engine interface implemented by both the self-contained
// JSON backend and the external local-index backend.
type Store interface {
	// Load reads (or creates, if absent) the backing store and returns its
	// current dimension; 0 means no items have been inserted yet.
	Load(ctx context.Context) (LoadInfo, error)

	// Upsert inserts or replaces items by id. The first item ever inserted
	// into a store fixes its dimension; later items with a different
	// embedding length fail with ragerr.ErrDimensionMismatch and no state
	// change.
	Upsert(ctx context.Context, items []Item) (inserted, updated int, err error)

	// Query returns the topK nearest items to vec, scored and ordered
	// descending. The JSON backend breaks ties by insertion order; the
	// local-index backend leaves equal scores in chromem-go's result order.
	// A non-empty filterExpr additionally restricts results to items whose
	// metadata satisfies it.
	Query(ctx context.Context, vec []float32, topK int, filterExpr string) ([]Result, error)

	// QueryMany runs Query once per vector, returning one result list per
	// query in input order.
	QueryMany(ctx context.Context, vecs [][]float32, topK int, filterExpr string) ([][]Result, error)

	// Delete removes items by id, returning how many were actually
	// present. Deleting an absent id is silently skipped.
	Delete(ctx context.Context, ids []string) (int, error)

	// List returns every item currently in the store.
	List(ctx context.Context) ([]Item, error)
}

// NowMillis returns the current time as epoch milliseconds, the timestamp
// unit used throughout Item/Result/DocumentMetadata.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
