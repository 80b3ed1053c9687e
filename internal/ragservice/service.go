// Package ragservice is the composition root: it wires the storage,
// caching, provider, and flow-engine collaborators built throughout
// internal/ into the operation surface named in spec.md §6, so a transport
// layer (HTTP/SSE, a CLI, a test) has a single entry point to call
// against.
package ragservice

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/zoeflow/ragcore/internal/cache"
	"github.com/zoeflow/ragcore/internal/config"
	"github.com/zoeflow/ragcore/internal/docstore"
	"github.com/zoeflow/ragcore/internal/flowengine"
	"github.com/zoeflow/ragcore/internal/flowengine/nodes"
	"github.com/zoeflow/ragcore/internal/ingest"
	"github.com/zoeflow/ragcore/internal/ingest/chunk"
	"github.com/zoeflow/ragcore/internal/metadata"
	"github.com/zoeflow/ragcore/internal/provider"
	"github.com/zoeflow/ragcore/internal/ragerr"
	"github.com/zoeflow/ragcore/internal/registry"
	"github.com/zoeflow/ragcore/internal/statusstream"
	"github.com/zoeflow/ragcore/internal/tokenizer"
	"github.com/zoeflow/ragcore/internal/usage"
	"github.com/zoeflow/ragcore/internal/vectorstore"
)

// maxConcurrentIngestionJobs bounds how many documents can run phase 4-6
// provider calls at once across the whole process, independent of however
// many startProcessing callers are in flight — protects the upstream
// provider from an unbounded burst of simultaneous ingestion jobs.
const maxConcurrentIngestionJobs = 4

// Service is the process-wide collaborator bundle. Construct with New.
type Service struct {
	cfg      config.Config
	provider *provider.Client
	docs     *docstore.Store
	meta     *metadata.Store
	registry *registry.Registry
	stream   *statusstream.Hub

	embeddingCache  *cache.EmbeddingCache
	queryCache      *cache.EmbeddingCache
	enrichmentCache *cache.EnrichmentCache
	estimator       tokenizer.Estimator
	splitter        *chunk.Splitter

	engine *flowengine.Engine

	ingestSem *semaphore.Weighted

	mu        sync.Mutex
	stores    map[string]vectorstore.Store
	ledgers   map[string]*usage.Ledger
	pipelines map[string]*ingest.Pipeline

	log *slog.Logger
}

// New constructs a Service rooted at cfg.RootDir, running the crash-recovery
// pass (SPEC_FULL.md §4.G expansion) once before returning.
func New(ctx context.Context, cfg config.Config) (*Service, error) {
	log := slog.Default().With("component", "ragservice")

	root := cfg.RootDir
	meta := metadata.New(filepath.Join(root, "content", "vectorstores", "_metadata"))
	docs := docstore.New(filepath.Join(root, "content", "documents"))
	reg := registry.New()

	estimator := tokenizer.NewTiktokenWithCL100KBase()

	s := &Service{
		cfg:             cfg,
		provider:        provider.New(provider.Config{APIKey: cfg.OpenRouterAPIKey, BaseURL: cfg.OpenRouterBaseURL}),
		docs:            docs,
		meta:            meta,
		registry:        reg,
		stream:          statusstream.New(meta),
		embeddingCache:  cache.NewEmbeddingCache(filepath.Join(root, "content", "vectorstores", "cache", "vectorStoreCache.json")),
		queryCache:      cache.NewEmbeddingCache(filepath.Join(root, "content", "vectorstores", "cache", "queryCache.json")),
		enrichmentCache: cache.NewEnrichmentCache(filepath.Join(root, "content", "vectorstores", "cache", "chunkEnrichmentCache.json")),
		estimator:       estimator,
		splitter:        chunk.NewSplitter(estimator, chunk.DefaultOptions()),
		ingestSem:       semaphore.NewWeighted(maxConcurrentIngestionJobs),
		stores:          map[string]vectorstore.Store{},
		ledgers:         map[string]*usage.Ledger{},
		pipelines:       map[string]*ingest.Pipeline{},
		log:             log,
	}

	execReg := flowengine.NewRegistry()
	nodes.Register(execReg)
	s.engine = flowengine.New(execReg)

	if err := registry.Recover(ctx, reg, meta); err != nil {
		log.Error("crash recovery pass failed", "error", err)
	}

	return s, nil
}

// storeFor returns the lazily-opened, process-lifetime vectorstore.Store
// for storeID, loading it on first access.
func (s *Service) storeFor(ctx context.Context, storeID string) (vectorstore.Store, error) {
	if !vectorstore.ValidStoreID(storeID) {
		return nil, ragerr.Newf(ragerr.Validation, "invalid storeId %q", storeID)
	}

	s.mu.Lock()
	store, ok := s.stores[storeID]
	s.mu.Unlock()
	if ok {
		return store, nil
	}

	store, err := vectorstore.Open(filepath.Join(s.cfg.RootDir, "content", "vectorstores"), storeID, s.cfg.VectorBackend)
	if err != nil {
		return nil, err
	}
	if _, err := store.Load(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing, ok := s.stores[storeID]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.stores[storeID] = store
	s.mu.Unlock()

	return store, nil
}

// ledgerFor returns the lazily-constructed usage ledger for storeID.
func (s *Service) ledgerFor(storeID string) *usage.Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.ledgers[storeID]; ok {
		return l
	}
	l := usage.New(filepath.Join(s.cfg.RootDir, "content", "vectorstores", "_usage", storeID+".jsonl"))
	s.ledgers[storeID] = l
	return l
}

// pipelineFor returns the lazily-constructed ingestion pipeline for
// storeID, sharing the service's caches/estimator/provider but backed by
// that store's own vector store and usage ledger.
func (s *Service) pipelineFor(ctx context.Context, storeID string) (*ingest.Pipeline, error) {
	s.mu.Lock()
	if p, ok := s.pipelines[storeID]; ok {
		s.mu.Unlock()
		return p, nil
	}
	s.mu.Unlock()

	store, err := s.storeFor(ctx, storeID)
	if err != nil {
		return nil, err
	}

	var enrichmentProvider ingest.EnrichmentProvider
	if s.cfg.LLMAugmentedChunking {
		enrichmentProvider = s.provider
	}

	ingestCfg := ingest.DefaultConfig()
	ingestCfg.EmbeddingModel = s.cfg.OpenRouterEmbeddingModel
	ingestCfg.EnrichmentModel = s.cfg.OpenRouterEnrichmentModel
	ingestCfg.EnrichmentEnabled = s.cfg.LLMAugmentedChunking
	ingestCfg.EnrichmentPromptVersion = s.cfg.ChunkEnrichmentPromptVersion
	ingestCfg.TokenEstimator = s.estimator
	ingestCfg.Usage = s.ledgerFor(storeID)

	p := ingest.NewPipeline(s.splitter, store, s.meta, s.embeddingCache, s.enrichmentCache, s.provider, enrichmentProvider, ingestCfg)

	s.mu.Lock()
	if existing, ok := s.pipelines[storeID]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.pipelines[storeID] = p
	s.mu.Unlock()

	return p, nil
}
