package ragservice

import (
	"context"
	"strconv"

	"github.com/zoeflow/ragcore/internal/cache"
	"github.com/zoeflow/ragcore/internal/ragerr"
	"github.com/zoeflow/ragcore/internal/vecmath"
	"github.com/zoeflow/ragcore/internal/vectorstore"
)

const defaultTopK = 10

// UpsertInput is the upsert request body. Items missing an ID are assigned
// one; an empty storeId is replaced by a generated one, whose store is
// created on first use and returned in UpsertResult.StoreID.
type UpsertInput struct {
	StoreID string
	Items   []UpsertItem
	Model   string
}

// UpsertItem is one caller-supplied item to embed and store.
type UpsertItem struct {
	ID       string
	Text     string
	Metadata map[string]any
}

// UpsertResult is the upsert response body.
type UpsertResult struct {
	StoreID  string
	Inserted int
	Updated  int
	Count    int
}

// Upsert embeds items.Text (consulting the shared embedding cache) and
// writes them into storeId.
func (s *Service) Upsert(ctx context.Context, in UpsertInput) (UpsertResult, error) {
	if len(in.Items) == 0 {
		return UpsertResult{}, ragerr.New(ragerr.Validation, "items must not be empty")
	}

	if in.StoreID == "" {
		in.StoreID = "store_" + strconv.FormatInt(vectorstore.NowMillis(), 10)
	}

	store, err := s.storeFor(ctx, in.StoreID)
	if err != nil {
		return UpsertResult{}, err
	}

	texts := make([]string, len(in.Items))
	for i, it := range in.Items {
		if it.Text == "" {
			return UpsertResult{}, ragerr.ErrEmptyText
		}
		texts[i] = it.Text
	}

	embeddings, err := s.embedWithCache(ctx, s.embeddingCache, in.Model, texts)
	if err != nil {
		return UpsertResult{}, err
	}

	now := vectorstore.NowMillis()
	items := make([]vectorstore.Item, len(in.Items))
	for i, it := range in.Items {
		id := it.ID
		if id == "" {
			id = "item_" + strconv.FormatInt(now, 10) + "_" + strconv.Itoa(i)
		}
		items[i] = vectorstore.Item{
			ID:            id,
			Text:          it.Text,
			Embedding:     embeddings[i],
			EmbeddingNorm: vecmath.L2Norm(embeddings[i]),
			Metadata:      it.Metadata,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}

	inserted, updated, err := store.Upsert(ctx, items)
	if err != nil {
		return UpsertResult{}, err
	}

	return UpsertResult{StoreID: in.StoreID, Inserted: inserted, Updated: updated, Count: len(items)}, nil
}

// embedWithCache consults cache for each text, requesting only misses from
// the provider and writing them back, mirroring the ingestion pipeline's
// own embeddingsFor.
func (s *Service) embedWithCache(ctx context.Context, c *cache.EmbeddingCache, model string, texts []string) ([][]float32, error) {
	if model == "" {
		model = s.cfg.OpenRouterEmbeddingModel
	}

	cached, err := c.GetMany(ctx, texts, model)
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	var missTexts []string
	var missIndex []int
	for i, t := range texts {
		if v, ok := cached[t]; ok {
			out[i] = v
			continue
		}
		missTexts = append(missTexts, t)
		missIndex = append(missIndex, i)
	}

	if len(missTexts) > 0 {
		fresh, err := s.provider.Embed(ctx, model, missTexts)
		if err != nil {
			return nil, err
		}
		setItems := make([]cache.EmbeddingSetManyItem, len(missTexts))
		for i, idx := range missIndex {
			out[idx] = fresh[i]
			setItems[i] = cache.EmbeddingSetManyItem{Text: missTexts[i], Embedding: fresh[i]}
		}
		if err := c.SetMany(ctx, setItems, model); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// QueryManyInput is the queryMany request body.
type QueryManyInput struct {
	StoreID string
	Queries []string
	Model   string
	TopK    int
}

// QueryManyResult is the queryMany response body: the echoed queries and a
// single reciprocal-rank-fused result list across all of them.
type QueryManyResult struct {
	Queries []string
	Results []vectorstore.Result
}

// QueryMany embeds each query (consulting the dedicated query cache, kept
// separate from the upsert-side embedding cache per spec.md's on-disk
// layout) and fuses the per-query result lists with reciprocal rank fusion.
func (s *Service) QueryMany(ctx context.Context, in QueryManyInput) (QueryManyResult, error) {
	if len(in.Queries) == 0 {
		return QueryManyResult{}, ragerr.New(ragerr.Validation, "queries must not be empty")
	}
	topK := in.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	store, err := s.storeFor(ctx, in.StoreID)
	if err != nil {
		return QueryManyResult{}, err
	}

	vecs, err := s.embedWithCache(ctx, s.queryCache, in.Model, in.Queries)
	if err != nil {
		return QueryManyResult{}, err
	}

	resultLists, err := store.QueryMany(ctx, vecs, topK, "")
	if err != nil {
		return QueryManyResult{}, err
	}

	fused := vectorstore.FuseRRF(resultLists, vectorstore.DefaultRRFK)
	return QueryManyResult{Queries: in.Queries, Results: fused}, nil
}

// Delete removes ids from storeId, returning how many were actually
// present.
func (s *Service) Delete(ctx context.Context, storeID string, ids []string) (int, error) {
	store, err := s.storeFor(ctx, storeID)
	if err != nil {
		return 0, err
	}
	return store.Delete(ctx, ids)
}

// List returns every item currently in storeId.
func (s *Service) List(ctx context.Context, storeID string) ([]vectorstore.Item, error) {
	store, err := s.storeFor(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return store.List(ctx)
}

// ChunkView is the chunksOfDocument response shape for one chunk.
type ChunkView struct {
	ID       string
	Text     string
	Metadata map[string]any
}

// ChunksOfDocument returns every chunk belonging to docId's latest
// processed version in storeId.
func (s *Service) ChunksOfDocument(ctx context.Context, docID, storeID string) ([]ChunkView, error) {
	store, err := s.storeFor(ctx, storeID)
	if err != nil {
		return nil, err
	}

	items, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	var out []ChunkView
	for _, item := range items {
		if docIDField(item.Metadata) != docID {
			continue
		}
		out = append(out, ChunkView{ID: item.ID, Text: item.Text, Metadata: item.Metadata})
	}
	return out, nil
}
