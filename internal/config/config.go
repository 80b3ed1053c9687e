// Package config is the process-wide configuration surface: everything
// spec.md §6 names as "CLI/env (minimum)", loaded once at startup into a
// single typed struct.
package config

import (
	"os"

	"github.com/spf13/cast"

	"github.com/zoeflow/ragcore/internal/vectorstore"
)

// Config is the fully resolved, process-wide configuration.
type Config struct {
	// RootDir is the on-disk root under which content/... is laid out.
	RootDir string

	OpenRouterAPIKey          string
	OpenRouterBaseURL         string
	OpenRouterEmbeddingModel  string
	OpenRouterEnrichmentModel string
	ChatModel                 string

	LLMAugmentedChunking         bool
	ChunkEnrichmentPromptVersion string

	UseVectra     bool
	VectorBackend vectorstore.Backend
}

// Load reads the environment variables spec.md §6 names into a Config,
// applying the documented defaults for everything optional. rootDir is the
// base directory content/ is rooted under (the caller's working directory
// or an explicit --data-dir flag, outside this package's scope).
func Load(rootDir string) Config {
	cfg := Config{
		RootDir:                      rootDir,
		OpenRouterAPIKey:             os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL:            envOr("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenRouterEmbeddingModel:     envOr("OPENROUTER_EMBEDDING_MODEL", "text-embedding-3-small"),
		OpenRouterEnrichmentModel:    envOr("OPENROUTER_CHUNK_ENRICHMENT_MODEL", "openai/gpt-4o-mini"),
		ChatModel:                    envOr("OPENROUTER_CHAT_MODEL", "openai/gpt-4o-mini"),
		LLMAugmentedChunking:         cast.ToBool(envOr("ZOEFLOW_LLM_AUGMENTED_CHUNKING", "0")),
		ChunkEnrichmentPromptVersion: envOr("ZOEFLOW_CHUNK_ENRICHMENT_PROMPT_VERSION", "v1"),
		UseVectra:                    cast.ToBool(envOr("USE_VECTRA", "false")),
	}

	cfg.VectorBackend = vectorstore.BackendJSON
	if cfg.UseVectra {
		cfg.VectorBackend = vectorstore.BackendLocalIndex
	}

	return cfg
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
