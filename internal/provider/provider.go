// Package provider is the OpenRouter-compatible LLM/embedding client: a
// thin wrapper over github.com/openai/openai-go/v3 pointed at a
// caller-supplied base URL, giving the ingestion pipeline and the flow
// engine a single chat+embedding surface to call against.
package provider

import (
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Config is the provider's connection configuration.
type Config struct {
	APIKey  string
	BaseURL string
}

// Client is the shared OpenRouter-compatible chat+embedding client.
type Client struct {
	api openai.Client
}

// New constructs a Client from cfg. An empty BaseURL leaves openai-go's
// default endpoint in place; OpenRouter and any OpenAI-compatible gateway
// both expose the same Chat Completions and Embeddings surface this client
// calls. openai-go's automatic retries are turned off, so each request
// reaches the upstream once.
func New(cfg Config) *Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{api: openai.NewClient(opts...)}
}
