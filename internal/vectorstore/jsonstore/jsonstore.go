// Package jsonstore is the self-contained vector store backend: one JSON
// file per store, `{version:"v1", dimension, items[]}`, queried by linear
// cosine-similarity scan. It is crash-safe via write-temp+rename and
// enforces a single embedding dimension per store.
package jsonstore

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/zoeflow/ragcore/internal/fileio"
	"github.com/zoeflow/ragcore/internal/ragerr"
	"github.com/zoeflow/ragcore/internal/vecmath"
	"github.com/zoeflow/ragcore/internal/vectorstore"
	"github.com/zoeflow/ragcore/internal/vectorstore/filter"
)

const fileVersion = "v1"

type fileDocument struct {
	Version   string             `json:"version"`
	Dimension int                `json:"dimension"`
	Items     []vectorstore.Item `json:"items"`
}

// Store is the JSON-file-backed vectorstore.Store implementation.
type Store struct {
	path string

	mu        sync.Mutex
	loaded    bool
	dimension int
	items     []vectorstore.Item
	index     map[string]int // id -> index into items, kept in sync on every mutation
}

// New returns a store backed by the JSON file at path. Nothing is read
// until Load or any other method is first called.
func New(path string) *Store {
	return &Store{path: path, index: make(map[string]int)}
}

var _ vectorstore.Store = (*Store)(nil)

func (s *Store) ensureLoaded(_ context.Context) error {
	if s.loaded {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.loaded = true
			return nil
		}
		return ragerr.Wrap(ragerr.Corrupt, "read vector store file", err)
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil || doc.Version != fileVersion {
		return ragerr.ErrStoreCorrupt
	}

	s.dimension = doc.Dimension
	s.items = doc.Items
	s.index = make(map[string]int, len(doc.Items))
	for i, it := range doc.Items {
		s.index[it.ID] = i
	}
	s.loaded = true
	return nil
}

func (s *Store) persist() error {
	doc := fileDocument{Version: fileVersion, Dimension: s.dimension, Items: s.items}
	data, err := json.Marshal(doc)
	if err != nil {
		return ragerr.Wrap(ragerr.Internal, "marshal vector store file", err)
	}
	if err := fileio.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return ragerr.Wrap(ragerr.Internal, "write vector store file", err)
	}
	return nil
}

// Load implements vectorstore.Store.
func (s *Store) Load(ctx context.Context) (vectorstore.LoadInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return vectorstore.LoadInfo{}, err
	}
	return vectorstore.LoadInfo{Dimension: s.dimension}, nil
}

// Upsert implements vectorstore.Store.
func (s *Store) Upsert(ctx context.Context, items []vectorstore.Item) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return 0, 0, err
	}

	for _, it := range items {
		if it.Text == "" {
			return 0, 0, ragerr.ErrEmptyText
		}
		if len(it.Embedding) == 0 {
			return 0, 0, ragerr.ErrEmptyEmbedding
		}
	}

	if s.dimension == 0 && len(s.items) == 0 && len(items) > 0 {
		s.dimension = len(items[0].Embedding)
	}
	for _, it := range items {
		if len(it.Embedding) != s.dimension {
			return 0, 0, ragerr.ErrDimensionMismatch
		}
	}

	now := nowMillis()
	var inserted, updated int
	for _, it := range items {
		it.EmbeddingNorm = vecmath.L2Norm(it.Embedding)
		it.UpdatedAt = now
		if idx, ok := s.index[it.ID]; ok {
			it.CreatedAt = s.items[idx].CreatedAt
			s.items[idx] = it
			updated++
			continue
		}
		it.CreatedAt = now
		s.index[it.ID] = len(s.items)
		s.items = append(s.items, it)
		inserted++
	}

	if err := s.persist(); err != nil {
		return 0, 0, err
	}
	return inserted, updated, nil
}

// Query implements vectorstore.Store.
func (s *Store) Query(ctx context.Context, vec []float32, topK int, filterExpr string) ([]vectorstore.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	var pred func(map[string]any) bool
	if filterExpr != "" {
		expr, err := filter.Parse(filterExpr)
		if err != nil {
			return nil, err
		}
		pred = func(md map[string]any) bool { return filter.Eval(expr, md) }
	}

	type scored struct {
		item  vectorstore.Item
		score float32
		order int
	}

	candidates := make([]scored, 0, len(s.items))
	for i, it := range s.items {
		if pred != nil && !pred(it.Metadata) {
			continue
		}
		candidates = append(candidates, scored{
			item:  it,
			score: vecmath.CosineSimilarity(vec, it.Embedding),
			order: i,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].order < candidates[j].order
	})

	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}

	results := make([]vectorstore.Result, len(candidates))
	for i, c := range candidates {
		results[i] = vectorstore.Result{
			ID:       c.item.ID,
			Text:     c.item.Text,
			Metadata: c.item.Metadata,
			Score:    c.score,
			Citation: vectorstore.CitationOf(c.item.Metadata),
		}
	}
	return results, nil
}

// QueryMany implements vectorstore.Store.
func (s *Store) QueryMany(ctx context.Context, vecs [][]float32, topK int, filterExpr string) ([][]vectorstore.Result, error) {
	out := make([][]vectorstore.Result, len(vecs))
	for i, vec := range vecs {
		res, err := s.Query(ctx, vec, topK, filterExpr)
		if err != nil {
			return nil, err
		}
		out[i] = res
	}
	return out, nil
}

// Delete implements vectorstore.Store.
func (s *Store) Delete(ctx context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return 0, err
	}

	toDelete := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.index[id]; ok {
			toDelete[id] = true
		}
	}
	if len(toDelete) == 0 {
		return 0, nil
	}

	remaining := s.items[:0:0]
	for _, it := range s.items {
		if toDelete[it.ID] {
			continue
		}
		remaining = append(remaining, it)
	}
	s.items = remaining
	s.index = make(map[string]int, len(s.items))
	for i, it := range s.items {
		s.index[it.ID] = i
	}

	if err := s.persist(); err != nil {
		return 0, err
	}
	return len(toDelete), nil
}

// List implements vectorstore.Store.
func (s *Store) List(ctx context.Context) ([]vectorstore.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	out := make([]vectorstore.Item, len(s.items))
	copy(out, s.items)
	return out, nil
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
