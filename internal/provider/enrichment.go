package provider

import (
	"context"
	"encoding/json"

	"github.com/zoeflow/ragcore/internal/ingest"
	"github.com/zoeflow/ragcore/internal/jsonutil"
)

// Enrich implements internal/ingest.EnrichmentProvider: one chat completion
// call asking the model to describe a chunk as a JSON object, with the
// first JSON object in the response parsed into an EnrichmentResult. Models
// that wrap the object in prose or a code fence are tolerated by
// jsonutil.ExtractFirstObject.
func (c *Client) Enrich(ctx context.Context, model string, systemPrompt string, userPrompt string) (ingest.EnrichmentResult, error) {
	result, err := c.Complete(ctx, ChatRequest{
		Model: model,
		Messages: []Message{
			{Role: RoleSystem, Content: systemPrompt},
			{Role: RoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return ingest.EnrichmentResult{}, err
	}

	obj, err := jsonutil.ExtractFirstObject(result.Content)
	if err != nil {
		return ingest.EnrichmentResult{}, err
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		return ingest.EnrichmentResult{}, err
	}

	var out ingest.EnrichmentResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return ingest.EnrichmentResult{}, err
	}
	return out, nil
}
