package ingest

import (
	"context"
	"strconv"
	"time"

	"github.com/zoeflow/ragcore/internal/cache"
	"github.com/zoeflow/ragcore/internal/vecmath"
	"github.com/zoeflow/ragcore/internal/vectorstore"
)

// embedAndStore implements phase 6: build embeddedText per chunk, consult
// the embedding cache, request only misses from the provider, and upsert
// batches of embedBatchSize into the vector store with a pause between
// batches.
func (p *Pipeline) embedAndStore(ctx context.Context, doc documentContext, chunks []enrichedChunk, tracker *usageTracker) error {
	now := time.Now().UnixMilli()

	for start := 0; start < len(chunks); start += embedBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		embeddings, err := p.embeddingsFor(ctx, batch, tracker)
		if err != nil {
			return err
		}

		items := make([]vectorstore.Item, len(batch))
		for i, c := range batch {
			items[i] = vectorstore.Item{
				ID:            chunkItemID(doc.DocID, c.Index),
				Text:          c.Text,
				Embedding:     embeddings[i],
				EmbeddingNorm: vecmath.L2Norm(embeddings[i]),
				Metadata:      chunkMetadata(doc, c, now),
				CreatedAt:     now,
				UpdatedAt:     now,
			}
		}

		if _, _, err := p.store.Upsert(ctx, items); err != nil {
			return err
		}

		if end < len(chunks) {
			if err := sleepOrCancel(ctx, embedBatchPause*time.Millisecond); err != nil {
				return err
			}
		}
	}

	return nil
}

// embeddingsFor merges cache hits and freshly-requested misses, in order,
// for one batch of chunks.
func (p *Pipeline) embeddingsFor(ctx context.Context, batch []enrichedChunk, tracker *usageTracker) ([][]float32, error) {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.EmbeddedText
	}

	cached, err := p.embeddingCache.GetMany(ctx, texts, p.cfg.EmbeddingModel)
	if err != nil {
		return nil, err
	}

	var missTexts []string
	var missIndex []int
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := cached[t]; ok {
			out[i] = v
			continue
		}
		missTexts = append(missTexts, t)
		missIndex = append(missIndex, i)
	}

	if len(missTexts) > 0 {
		fresh, err := p.embeddingProvider.Embed(ctx, p.cfg.EmbeddingModel, missTexts)
		if err != nil {
			return nil, err
		}
		for _, t := range missTexts {
			p.accountTokens(ctx, tracker, t)
		}

		setItems := make([]cache.EmbeddingSetManyItem, len(missTexts))
		for i, idx := range missIndex {
			out[idx] = fresh[i]
			setItems[i] = cache.EmbeddingSetManyItem{Text: missTexts[i], Embedding: fresh[i]}
		}

		if err := p.embeddingCache.SetMany(ctx, setItems, p.cfg.EmbeddingModel); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func chunkItemID(docID string, chunkIndex int) string {
	return "chunk_" + docID + "_" + strconv.Itoa(chunkIndex)
}

func chunkMetadata(doc documentContext, c enrichedChunk, now int64) map[string]any {
	md := map[string]any{
		"doc_id":        doc.DocID,
		"source_uri":    doc.SourceURI,
		"version":       doc.Version,
		"heading_path":  joinHeadingPath(c.HeadingPath),
		"chunk_index":   c.Index,
		"start_char":    c.StartChar,
		"end_char":      c.EndChar,
		"start_line":    c.StartLine,
		"end_line":      c.EndLine,
		"content_type":  c.ContentType,
		"parent_id":     doc.DocID,
		"chunk_variant": c.Variant,
		"created_at":    now,
		"indexed_at":    now,
	}
	if doc.Description != "" {
		md["doc_description"] = doc.Description
	}
	if doc.Author != "" {
		md["doc_author"] = doc.Author
	}
	if len(doc.Tags) > 0 {
		md["doc_tags"] = doc.Tags
	}
	if c.Language != "" {
		md["language"] = c.Language
	}
	if c.Variant == "enriched" {
		md["vectorized_text"] = c.EmbeddedText
		md["enrichment_prompt_version"] = c.EnrichmentPromptVersion
	}
	return md
}
