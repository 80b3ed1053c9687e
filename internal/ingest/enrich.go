package ingest

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zoeflow/ragcore/internal/cache"
)

// accountTokens estimates text's token count via cfg's configured
// estimator and adds it to tracker, silently doing nothing when either is
// unset.
func (p *Pipeline) accountTokens(ctx context.Context, tracker *usageTracker, text string) {
	if tracker == nil || p.cfg.TokenEstimator == nil || text == "" {
		return
	}
	n, err := p.cfg.TokenEstimator.EstimateText(ctx, text)
	if err != nil {
		return
	}
	tracker.add(int64(n))
}

// enrichedChunk pairs a chunk with the text that should actually be
// embedded, and the variant (raw or enriched) that produced it.
type enrichedChunk struct {
	pipelineChunk
	EmbeddedText            string
	Variant                 string
	EnrichmentPromptVersion string
}

// enrich runs phase 4. When the pipeline's enrichment config is disabled,
// every chunk passes through with its default embeddedText and the "raw"
// variant. Chunks are processed in batches of enrichBatchSize with a pause
// between batches to bound provider pressure, and the cancel signal is
// polled at every batch boundary.
func (p *Pipeline) enrich(ctx context.Context, doc documentContext, chunks []pipelineChunk, tracker *usageTracker) ([]enrichedChunk, error) {
	out := make([]enrichedChunk, len(chunks))

	if !p.cfg.EnrichmentEnabled || p.enrichmentProvider == nil {
		for i, c := range chunks {
			out[i] = enrichedChunk{
				pipelineChunk: c,
				EmbeddedText:  renderDefaultEmbeddedText(chunkInputOf(doc, c), p.maxOutputChars()),
				Variant:       "raw",
			}
		}
		return out, nil
	}

	for start := 0; start < len(chunks); start += enrichBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + enrichBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i, c := i, chunks[i]
			g.Go(func() error {
				enriched, err := p.enrichOne(gctx, doc, c, tracker)
				if err != nil {
					return err
				}
				out[i] = enriched
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		if end < len(chunks) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(enrichBatchPause * time.Millisecond):
			}
		}
	}

	return out, nil
}

func (p *Pipeline) enrichOne(ctx context.Context, doc documentContext, c pipelineChunk, tracker *usageTracker) (enrichedChunk, error) {
	key := cache.EnrichmentKeyInput{
		Model:           p.cfg.EnrichmentModel,
		PromptVersion:   p.cfg.EnrichmentPromptVersion,
		DocID:           doc.DocID,
		Version:         doc.Version,
		HeadingPath:     joinHeadingPath(c.HeadingPath),
		ContentType:     c.ContentType,
		Language:        c.Language,
		RawChunk:        c.Text,
		OutwardContext:  outwardContext(doc.NormalizedContent, c.StartChar, c.EndChar, 2000),
	}

	cached, ok, err := p.enrichmentCache.Get(ctx, key)
	if err != nil {
		return enrichedChunk{}, err
	}
	if ok {
		return enrichedChunk{
			pipelineChunk:           c,
			EmbeddedText:            cached.EmbeddedText,
			Variant:                 "enriched",
			EnrichmentPromptVersion: p.cfg.EnrichmentPromptVersion,
		}, nil
	}

	systemPrompt := enrichmentSystemPrompt(p.cfg.EnrichmentPromptVersion)
	prompt := enrichmentUserPrompt(doc, c, key.OutwardContext)
	result, err := p.enrichmentProvider.Enrich(ctx, p.cfg.EnrichmentModel, systemPrompt, prompt)
	if err != nil {
		return enrichedChunk{}, err
	}
	p.accountTokens(ctx, tracker, systemPrompt)
	p.accountTokens(ctx, tracker, prompt)

	embeddedText := renderEnrichedEmbeddedText(chunkInputOf(doc, c), result, p.cfg.EmbeddedTextFields, p.maxOutputChars())

	if err := p.enrichmentCache.Set(ctx, key, embeddedText); err != nil {
		return enrichedChunk{}, err
	}

	return enrichedChunk{
		pipelineChunk:           c,
		EmbeddedText:            embeddedText,
		Variant:                 "enriched",
		EnrichmentPromptVersion: p.cfg.EnrichmentPromptVersion,
	}, nil
}

func (p *Pipeline) maxOutputChars() int {
	if p.cfg.MaxOutputChars > 0 {
		return p.cfg.MaxOutputChars
	}
	return 8000
}

func chunkInputOf(doc documentContext, c pipelineChunk) chunkMetadataInput {
	return chunkMetadataInput{
		SourceURI:   doc.SourceURI,
		DocID:       doc.DocID,
		Version:     doc.Version,
		HeadingPath: c.HeadingPath,
		ContentType: c.ContentType,
		Author:      doc.Author,
		Description: doc.Description,
		Tags:        doc.Tags,
		RawText:     c.Text,
	}
}

func joinHeadingPath(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += " > "
		}
		out += p
	}
	return out
}

func enrichmentSystemPrompt(promptVersion string) string {
	return "You are a retrieval indexing assistant (prompt version " + promptVersion + "). " +
		"Given a document chunk, respond with a single JSON object: " +
		`{"summary": string, "key_points": [string], "keywords": [string], "entities": [string], "possible_queries": [string]}.`
}

func enrichmentUserPrompt(doc documentContext, c pipelineChunk, outward string) string {
	return "sourceUri: " + doc.SourceURI +
		"\ndocId: " + doc.DocID +
		"\nversion: " + doc.Version +
		"\nheadingPath: " + joinHeadingPath(c.HeadingPath) +
		"\ncontentType: " + c.ContentType +
		"\nlanguage: " + c.Language +
		"\ndocAuthor: " + doc.Author +
		"\ndocDescription: " + doc.Description +
		"\n\nchunk:\n" + c.Text +
		"\n\ncontext:\n" + outward
}
