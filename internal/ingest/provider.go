package ingest

import "context"

// EmbeddingProvider computes embedding vectors for a batch of texts under a
// named model. internal/provider supplies the OpenRouter-backed
// implementation; tests supply fakes.
type EmbeddingProvider interface {
	Embed(ctx context.Context, model string, texts []string) ([][]float32, error)
}

// EnrichmentResult is the parsed JSON object an enrichment call returns.
type EnrichmentResult struct {
	Summary         string   `json:"summary,omitempty"`
	KeyPoints       []string `json:"key_points,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	Entities        []string `json:"entities,omitempty"`
	PossibleQueries []string `json:"possible_queries,omitempty"`
}

// EnrichmentProvider runs the chunk-enrichment LLM call.
type EnrichmentProvider interface {
	Enrich(ctx context.Context, model string, systemPrompt string, userPrompt string) (EnrichmentResult, error)
}
