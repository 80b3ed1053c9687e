package ingest

import (
	"github.com/zoeflow/ragcore/internal/tokenizer"
	"github.com/zoeflow/ragcore/internal/usage"
)

// Config holds the tunables named throughout spec.md §4.H.
type Config struct {
	EmbeddingModel          string
	EnrichmentModel         string
	EnrichmentEnabled       bool
	EnrichmentPromptVersion string
	// MaxOutputChars clamps the rendered embeddedText. Defaults to 8000.
	MaxOutputChars int
	// EmbeddedTextFields is the configured subset of
	// {source, heading_path, author, description, tags, content_type,
	// summary, key_points, keywords, entities, possible_queries} rendered
	// into an enriched chunk's embeddedText.
	EmbeddedTextFields []string
	// TokenEstimator, when set, lets Run account for the tokens spent on
	// embedding and enrichment provider calls in Result.TotalTokens. Nil
	// skips accounting entirely rather than estimating with a fallback.
	TokenEstimator tokenizer.Estimator
	// Usage, when set, receives one ledger entry per Run summarizing the
	// tokens the run spent (see TokenEstimator). Nil is a no-op, matching
	// every other optional-ledger collaborator in the codebase.
	Usage *usage.Ledger
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxOutputChars: 8000,
		EmbeddedTextFields: []string{
			"source", "heading_path", "content_type", "summary", "key_points", "keywords",
		},
	}
}

const (
	enrichBatchSize  = 5
	enrichBatchPause = 200 // milliseconds
	deleteBatchSize  = 1000
	embedBatchSize   = 10
	embedBatchPause  = 500 // milliseconds
)
