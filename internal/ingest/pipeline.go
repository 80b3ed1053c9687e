// Package ingest implements the document ingestion pipeline: normalize,
// parse sections, chunk, optionally enrich, delete stale chunks, embed and
// store. Finalizing the document's metadata from the returned Result is left
// to the caller.
package ingest

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/zoeflow/ragcore/internal/cache"
	"github.com/zoeflow/ragcore/internal/ingest/chunk"
	"github.com/zoeflow/ragcore/internal/metadata"
	"github.com/zoeflow/ragcore/internal/ragerr"
	"github.com/zoeflow/ragcore/internal/usage"
	"github.com/zoeflow/ragcore/internal/vectorstore"
)

// usageTracker accumulates the tokens a single Run spends across its
// enrichment and embedding provider calls, safe for concurrent use by the
// enrich phase's per-batch errgroup fan-out.
type usageTracker struct {
	tokens atomic.Int64
}

func (t *usageTracker) add(n int64) {
	if t == nil {
		return
	}
	t.tokens.Add(n)
}

// pipelineChunk is a chunk.Chunk carrying its globally monotonic index.
type pipelineChunk struct {
	chunk.Chunk
	Index int
}

// documentContext is the subset of a document's metadata the enrichment and
// embedding stages need.
type documentContext struct {
	DocID             string
	StoreID           string
	SourceURI         string
	Version           string
	Author            string
	Description       string
	Tags              []string
	NormalizedContent string
}

// Input is a single ingestion request.
type Input struct {
	DocID       string
	StoreID     string
	Content     string
	Version     string
	SourceURI   string
	Author      string
	Description string
	Tags        []string
}

// Result summarizes a completed run for metadata finalization.
type Result struct {
	ChunkCount  int
	TotalTokens int64
	TotalCost   float64
}

// Pipeline wires together the stages of ingestion with the stores and
// providers they need.
type Pipeline struct {
	splitter           *chunk.Splitter
	store              vectorstore.Store
	metadataStore      *metadata.Store
	embeddingCache     *cache.EmbeddingCache
	enrichmentCache    *cache.EnrichmentCache
	embeddingProvider  EmbeddingProvider
	enrichmentProvider EnrichmentProvider
	cfg                Config
}

// NewPipeline constructs a Pipeline. enrichmentProvider may be nil when
// cfg.EnrichmentEnabled is false.
func NewPipeline(
	splitter *chunk.Splitter,
	store vectorstore.Store,
	metadataStore *metadata.Store,
	embeddingCache *cache.EmbeddingCache,
	enrichmentCache *cache.EnrichmentCache,
	embeddingProvider EmbeddingProvider,
	enrichmentProvider EnrichmentProvider,
	cfg Config,
) *Pipeline {
	return &Pipeline{
		splitter:           splitter,
		store:              store,
		metadataStore:      metadataStore,
		embeddingCache:     embeddingCache,
		enrichmentCache:    enrichmentCache,
		embeddingProvider:  embeddingProvider,
		enrichmentProvider: enrichmentProvider,
		cfg:                cfg,
	}
}

// Run executes phases 1-6 against in (phase 7, finalizing metadata, is the
// caller's), setting metadata's processingStep and clearing progress as it
// advances, and polling ctx for cancellation at every
// phase boundary and inner-loop boundary named in spec.md.
func (p *Pipeline) Run(ctx context.Context, in Input) (Result, error) {
	doc := documentContext{
		DocID:       in.DocID,
		StoreID:     in.StoreID,
		SourceURI:   in.SourceURI,
		Version:     in.Version,
		Author:      in.Author,
		Description: in.Description,
		Tags:        in.Tags,
	}

	if err := p.setStep(ctx, in.DocID, metadata.StepNormalizing, nil); err != nil {
		return Result{}, err
	}
	normalized := chunk.Normalize(in.Content)
	doc.NormalizedContent = normalized

	if err := ctx.Err(); err != nil {
		return Result{}, ragerr.ErrCancelled
	}

	if err := p.setStep(ctx, in.DocID, metadata.StepParsing, nil); err != nil {
		return Result{}, err
	}
	sections := chunk.ParseSections(normalized)

	if err := ctx.Err(); err != nil {
		return Result{}, ragerr.ErrCancelled
	}

	if err := p.setStep(ctx, in.DocID, metadata.StepChunking, nil); err != nil {
		return Result{}, err
	}
	rawChunks, err := p.splitter.Split(ctx, sections)
	if err != nil {
		return Result{}, translateCancellation(err)
	}
	if len(rawChunks) == 0 {
		return Result{}, ragerr.New(ragerr.Validation, "No chunks generated from document")
	}

	chunks := make([]pipelineChunk, len(rawChunks))
	for i, c := range rawChunks {
		chunks[i] = pipelineChunk{Chunk: c, Index: i}
	}

	tracker := &usageTracker{}

	if err := p.setStep(ctx, in.DocID, metadata.StepEnriching, nil); err != nil {
		return Result{}, err
	}
	enriched, err := p.enrich(ctx, doc, chunks, tracker)
	if err != nil {
		return Result{}, translateCancellation(err)
	}

	if err := p.deleteStale(ctx, in.StoreID, in.DocID, in.Version); err != nil {
		return Result{}, translateCancellation(err)
	}

	if err := p.setStep(ctx, in.DocID, metadata.StepEmbedding, nil); err != nil {
		return Result{}, err
	}
	if err := p.setStep(ctx, in.DocID, metadata.StepStoring, nil); err != nil {
		return Result{}, err
	}
	if err := p.embedAndStore(ctx, doc, enriched, tracker); err != nil {
		return Result{}, translateCancellation(err)
	}

	totalTokens := tracker.tokens.Load()
	if p.cfg.Usage != nil && totalTokens > 0 {
		_ = p.cfg.Usage.Append(ctx, usage.Entry{
			DocID:       in.DocID,
			Model:       p.cfg.EmbeddingModel,
			TotalTokens: totalTokens,
			Variant:     usage.VariantStandard,
			CreatedAt:   time.Now().Unix(),
		})
	}

	return Result{ChunkCount: len(chunks), TotalTokens: totalTokens}, nil
}

func (p *Pipeline) setStep(ctx context.Context, docID string, step metadata.ProcessingStep, progress *metadata.Progress) error {
	_, err := p.metadataStore.UpdateStatus(ctx, docID, metadata.StatusProcessing, func(d *metadata.Document) {
		d.ProcessingStep = step
		d.Progress = progress
	})
	return err
}

func translateCancellation(err error) error {
	if err == context.Canceled || ragerr.Is(err, ragerr.Cancelled) {
		return ragerr.ErrCancelled
	}
	return err
}

func sleepOrCancel(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
