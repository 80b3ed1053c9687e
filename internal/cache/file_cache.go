// Package cache implements the content-addressed, crash-safe on-disk
// caches shared across ingestion jobs: the embedding cache (4.B) and the
// chunk enrichment cache (4.C). Both are thin wrappers over FileCache, a
// generic single-file JSON map keyed by string, written with write-temp +
// rename so a crash mid-write never corrupts the file readers see.
package cache

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/zoeflow/ragcore/internal/fileio"
	"github.com/zoeflow/ragcore/internal/ragerr"
)

// fileDocument is the on-disk shape: { "entries": { key: entry } }.
type fileDocument[V any] struct {
	Entries map[string]V `json:"entries"`
}

// FileCache is a single-writer, lazily-loaded, content-addressed cache
// backed by one JSON file. The in-memory copy is loaded on first access and
// invalidated (dropped and re-read) after every write, so readers always
// observe their own writes and writes from other FileCache instances
// pointed at the same path are eventually picked up.
//
// A per-instance mutex serializes writes so concurrent Set/SetMany/
// DeleteByFilter calls never lose an entry to a racing read-modify-write.
// A singleflight.Group collapses concurrent lazy-loads of the same file
// into a single disk read.
type FileCache[V any] struct {
	path string

	mu      sync.Mutex
	entries map[string]V
	loaded  bool

	group singleflight.Group
}

// NewFileCache returns a cache backed by the JSON file at path. The file is
// not read until the first Get/GetMany/Set/SetMany/DeleteByFilter call.
func NewFileCache[V any](path string) *FileCache[V] {
	return &FileCache[V]{path: path}
}

// ensureLoaded loads the on-disk file into c.entries if it has not been
// loaded yet. A missing file is treated as an empty cache. A corrupt file
// is treated as empty on load, per the Corrupt error policy for caches.
func (c *FileCache[V]) ensureLoaded(_ context.Context) error {
	if c.loaded {
		return nil
	}

	_, err, _ := c.group.Do(c.path, func() (any, error) {
		data, readErr := os.ReadFile(c.path)
		if readErr != nil {
			if os.IsNotExist(readErr) {
				c.entries = make(map[string]V)
				c.loaded = true
				return nil, nil
			}
			return nil, ragerr.Wrap(ragerr.Corrupt, "read cache file", readErr)
		}

		var doc fileDocument[V]
		if unmarshalErr := json.Unmarshal(data, &doc); unmarshalErr != nil {
			// Corrupt file: treat as empty rather than failing the load.
			c.entries = make(map[string]V)
			c.loaded = true
			return nil, nil
		}

		if doc.Entries == nil {
			doc.Entries = make(map[string]V)
		}
		c.entries = doc.Entries
		c.loaded = true
		return nil, nil
	})
	return err
}

// persist writes the current in-memory entries atomically and invalidates
// the cache so a subsequent access re-reads from disk. Callers must hold
// c.mu.
func (c *FileCache[V]) persist() error {
	doc := fileDocument[V]{Entries: c.entries}
	data, err := json.Marshal(doc)
	if err != nil {
		return ragerr.Wrap(ragerr.Internal, "marshal cache file", err)
	}

	if err := fileio.WriteFileAtomic(c.path, data, 0o644); err != nil {
		return ragerr.Wrap(ragerr.Internal, "write cache file", err)
	}

	c.entries = nil
	c.loaded = false
	return nil
}

// Get returns the entry for key, if present.
func (c *FileCache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return zero, false, err
	}

	v, ok := c.entries[key]
	return v, ok, nil
}

// GetMany returns the subset of keys present in the cache, keyed by the
// requested key.
func (c *FileCache[V]) GetMany(ctx context.Context, keys []string) (map[string]V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	out := make(map[string]V, len(keys))
	for _, k := range keys {
		if v, ok := c.entries[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// Set stores value under key and persists the cache to disk.
func (c *FileCache[V]) Set(ctx context.Context, key string, value V) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return err
	}

	c.entries[key] = value
	return c.persist()
}

// SetMany stores every key/value pair and persists once.
func (c *FileCache[V]) SetMany(ctx context.Context, entries map[string]V) error {
	if len(entries) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return err
	}

	for k, v := range entries {
		c.entries[k] = v
	}
	return c.persist()
}

// DeleteByFilter removes every entry for which pred returns true, and
// persists if anything was removed. It returns the number of entries
// removed.
func (c *FileCache[V]) DeleteByFilter(ctx context.Context, pred func(key string, value V) bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return 0, err
	}

	var removed int
	for k, v := range c.entries {
		if pred(k, v) {
			delete(c.entries, k)
			removed++
		}
	}

	if removed == 0 {
		return 0, nil
	}

	if err := c.persist(); err != nil {
		return 0, err
	}
	return removed, nil
}
