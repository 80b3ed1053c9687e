// Package localindex is the external local-index vector store backend:
// an embedded pure-Go approximate vector index (github.com/philippgille/
// chromem-go) with its own on-disk collection files, selected via
// USE_VECTRA. chromem-go's metadata only accepts string values, so a
// declared subset of chunk metadata keys is promoted to first-class string
// fields and everything else is round-tripped through a single JSON-string
// field; a sidecar manifest file tracks full item metadata/text for List
// and carries the store's {version, dimension}, since the embedded index
// itself exposes no "list every document" operation to drive List from.
package localindex

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/zoeflow/ragcore/internal/fileio"
	"github.com/zoeflow/ragcore/internal/ragerr"
	"github.com/zoeflow/ragcore/internal/vecmath"
	"github.com/zoeflow/ragcore/internal/vectorstore"
	"github.com/zoeflow/ragcore/internal/vectorstore/filter"
)

const manifestVersion = "v1"

type manifestItem struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt int64          `json:"createdAt"`
	UpdatedAt int64          `json:"updatedAt"`
}

type manifestFile struct {
	Version   string         `json:"version"`
	Dimension int            `json:"dimension"`
	Items     []manifestItem `json:"items"`
}

// Store is the chromem-go-backed vectorstore.Store implementation.
type Store struct {
	dir          string // <storeId>.vectra directory
	manifestPath string

	mu         sync.Mutex
	loaded     bool
	dimension  int
	manifest   map[string]manifestItem
	order      []string // insertion order of ids, the order the manifest is written in
	db         *chromem.DB
	collection *chromem.Collection
}

// New returns a store backed by the chromem-go collection and manifest
// sidecar under dir (conventionally "<storeId>.vectra").
func New(dir, storeID string) (*Store, error) {
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, ragerr.Wrap(ragerr.Internal, "open local index directory", err)
	}

	return &Store{
		dir:          dir,
		manifestPath: filepath.Join(dir, "zoeflow.meta.json"),
		db:           db,
		manifest:     make(map[string]manifestItem),
	}, nil
}

var _ vectorstore.Store = (*Store)(nil)

func (s *Store) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	data, err := os.ReadFile(s.manifestPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return ragerr.Wrap(ragerr.Corrupt, "read local index manifest", err)
		}
	} else {
		var mf manifestFile
		if unmarshalErr := json.Unmarshal(data, &mf); unmarshalErr != nil || mf.Version != manifestVersion {
			return ragerr.ErrStoreCorrupt
		}
		s.dimension = mf.Dimension
		for _, item := range mf.Items {
			s.manifest[item.ID] = item
			s.order = append(s.order, item.ID)
		}
	}

	col, err := s.db.GetOrCreateCollection("default", nil, nil)
	if err != nil {
		return ragerr.Wrap(ragerr.Internal, "open local index collection", err)
	}
	s.collection = col
	s.loaded = true
	return nil
}

func (s *Store) persistManifest() error {
	items := make([]manifestItem, 0, len(s.manifest))
	for _, id := range s.order {
		if item, ok := s.manifest[id]; ok {
			items = append(items, item)
		}
	}

	mf := manifestFile{Version: manifestVersion, Dimension: s.dimension, Items: items}
	data, err := json.Marshal(mf)
	if err != nil {
		return ragerr.Wrap(ragerr.Internal, "marshal local index manifest", err)
	}
	if err := fileio.WriteFileAtomic(s.manifestPath, data, 0o644); err != nil {
		return ragerr.Wrap(ragerr.Internal, "write local index manifest", err)
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

// promote converts a chunk's full metadata into the subset chromem persists
// as first-class string fields, plus a metadataJson catch-all for
// everything else.
func promote(item vectorstore.Item) (map[string]string, error) {
	rest := make(map[string]any, len(item.Metadata))
	for k, v := range item.Metadata {
		rest[k] = v
	}

	out := map[string]string{
		"text":      item.Text,
		"createdAt": strconv.FormatInt(item.CreatedAt, 10),
		"updatedAt": strconv.FormatInt(item.UpdatedAt, 10),
	}
	for _, key := range []string{"docId", "doc_id"} {
		if v, ok := rest[key]; ok {
			out["docId"] = fmt.Sprint(v)
			break
		}
	}
	for _, key := range []string{"chunkIndex", "chunk_index"} {
		if v, ok := rest[key]; ok {
			out["chunkIndex"] = fmt.Sprint(v)
			break
		}
	}
	for _, key := range []string{"sourceUri", "source_uri"} {
		if v, ok := rest[key]; ok {
			out["sourceUri"] = fmt.Sprint(v)
			break
		}
	}
	if v, ok := rest["version"]; ok {
		out["version"] = fmt.Sprint(v)
	}

	blob, err := json.Marshal(rest)
	if err != nil {
		return nil, ragerr.Wrap(ragerr.Internal, "marshal metadata json", err)
	}
	out["metadataJson"] = string(blob)

	return out, nil
}

// deriveLegacyFields parses ids of the form chunk_<docId>_<chunkIndex>_...
// to fill in doc_id/chunk_index for items stored before metadataJson
// existed.
func deriveLegacyFields(id string, metadata map[string]any) {
	if _, ok := metadata["doc_id"]; ok {
		return
	}
	if !strings.HasPrefix(id, "chunk_") {
		return
	}
	parts := strings.SplitN(strings.TrimPrefix(id, "chunk_"), "_", 3)
	if len(parts) < 2 {
		return
	}
	metadata["doc_id"] = parts[0]
	if idx, err := strconv.Atoi(parts[1]); err == nil {
		metadata["chunk_index"] = idx
	}
}

// reconstruct rebuilds full item metadata from a chromem result's promoted
// string fields: parse metadataJson, then overlay the promoted primitive
// fields (they take precedence since they're the authoritative indexed
// copies), then fill in legacy doc_id/chunk_index from the id if still
// absent.
func reconstruct(id string, promoted map[string]string) map[string]any {
	metadata := make(map[string]any)
	if blob, ok := promoted["metadataJson"]; ok && blob != "" {
		_ = json.Unmarshal([]byte(blob), &metadata)
	}

	if v, ok := promoted["docId"]; ok && v != "" {
		metadata["doc_id"] = v
	}
	if v, ok := promoted["chunkIndex"]; ok && v != "" {
		if idx, err := strconv.Atoi(v); err == nil {
			metadata["chunk_index"] = idx
		}
	}
	if v, ok := promoted["sourceUri"]; ok && v != "" {
		metadata["source_uri"] = v
	}
	if v, ok := promoted["version"]; ok && v != "" {
		metadata["version"] = v
	}

	deriveLegacyFields(id, metadata)

	return metadata
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

	if s.dimension == 0 && len(s.manifest) == 0 && len(items) > 0 {
		s.dimension = len(items[0].Embedding)
	}
	for _, it := range items {
		if len(it.Embedding) != s.dimension {
			return 0, 0, ragerr.ErrDimensionMismatch
		}
	}

	now := vectorstore.NowMillis()
	docs := make([]chromem.Document, 0, len(items))
	var inserted, updated int

	for _, it := range items {
		if _, ok := s.manifest[it.ID]; ok {
			updated++
		} else {
			inserted++
			s.order = append(s.order, it.ID)
		}

		it.UpdatedAt = now
		if existing, ok := s.manifest[it.ID]; ok {
			it.CreatedAt = existing.CreatedAt
		} else {
			it.CreatedAt = now
		}

		s.manifest[it.ID] = manifestItem{
			ID:        it.ID,
			Text:      it.Text,
			Metadata:  it.Metadata,
			CreatedAt: it.CreatedAt,
			UpdatedAt: it.UpdatedAt,
		}

		promoted, err := promote(it)
		if err != nil {
			return 0, 0, err
		}
		docs = append(docs, chromem.Document{
			ID:        it.ID,
			Content:   it.Text,
			Metadata:  promoted,
			Embedding: it.Embedding,
		})
	}

	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		return 0, 0, ragerr.Wrap(ragerr.Internal, "add documents to local index", err)
	}

	if err := s.persistManifest(); err != nil {
		return 0, 0, err
	}
	return inserted, updated, nil
}

// Query implements vectorstore.Store. Equal scores keep chromem-go's
// result order; insertion order does not break ties.
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

	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}

	n := count
	if topK > 0 && topK < count {
		n = topK
		if pred != nil {
			n = count // filter may drop results; over-fetch then trim below
		}
	}

	raw, err := s.collection.QueryEmbedding(ctx, vec, n, nil, nil)
	if err != nil {
		return nil, ragerr.Wrap(ragerr.Internal, "query local index", err)
	}

	results := make([]vectorstore.Result, 0, len(raw))
	for _, r := range raw {
		metadata := reconstruct(r.ID, r.Metadata)
		if pred != nil && !pred(metadata) {
			continue
		}
		results = append(results, vectorstore.Result{
			ID:       r.ID,
			Text:     r.Content,
			Metadata: metadata,
			Score:    r.Similarity,
			Citation: vectorstore.CitationOf(metadata),
		})
		if topK > 0 && len(results) == topK {
			break
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

	present := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.manifest[id]; ok {
			present = append(present, id)
		}
	}
	if len(present) == 0 {
		return 0, nil
	}

	if err := s.collection.Delete(ctx, nil, nil, present...); err != nil {
		return 0, ragerr.Wrap(ragerr.Internal, "delete from local index", err)
	}

	toDelete := make(map[string]bool, len(present))
	for _, id := range present {
		delete(s.manifest, id)
		toDelete[id] = true
	}
	remaining := s.order[:0:0]
	for _, id := range s.order {
		if !toDelete[id] {
			remaining = append(remaining, id)
		}
	}
	s.order = remaining

	if err := s.persistManifest(); err != nil {
		return 0, err
	}
	return len(present), nil
}

// List implements vectorstore.Store. Text/metadata/timestamps are served
// from the manifest (the embedded index has no exhaustive enumeration
// operation to drive those from), but the embedding vector itself is
// read back from the chromem-go collection via GetByID, since that's the
// only copy of it this backend keeps — the manifest intentionally doesn't
// duplicate every vector on disk. This keeps List's items honoring the
// same "len(embedding) == store.dimension" invariant Query's results do.
func (s *Store) List(ctx context.Context) ([]vectorstore.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	items := make([]vectorstore.Item, 0, len(s.order))
	for _, id := range s.order {
		mi, ok := s.manifest[id]
		if !ok {
			continue
		}
		doc, err := s.collection.GetByID(ctx, id)
		if err != nil {
			return nil, ragerr.Wrap(ragerr.Corrupt, "read embedding for local index item "+id, err)
		}
		items = append(items, vectorstore.Item{
			ID:            mi.ID,
			Text:          mi.Text,
			Embedding:     doc.Embedding,
			EmbeddingNorm: vecmath.L2Norm(doc.Embedding),
			Metadata:      mi.Metadata,
			CreatedAt:     mi.CreatedAt,
			UpdatedAt:     mi.UpdatedAt,
		})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt < items[j].CreatedAt })
	return items, nil
}
