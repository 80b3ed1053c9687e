package ingest

import (
	"strings"
)

// chunkMetadataInput is the subset of a chunk's context used to render
// embeddedText, both for the enriched and default (non-enriched) renderers.
type chunkMetadataInput struct {
	SourceURI   string
	DocID       string
	Version     string
	HeadingPath []string
	ContentType string
	Author      string
	Description string
	Tags        []string
	RawText     string
}

// renderDefaultEmbeddedText builds the structured default embeddedText used
// when enrichment is disabled or produced nothing usable: source/doc_id/
// version/section header followed by the raw chunk text.
func renderDefaultEmbeddedText(in chunkMetadataInput, maxChars int) string {
	var b strings.Builder
	b.WriteString("Source: ")
	b.WriteString(in.SourceURI)
	b.WriteString("\nDocument: ")
	b.WriteString(in.DocID)
	b.WriteString("\nVersion: ")
	b.WriteString(in.Version)
	if len(in.HeadingPath) > 0 {
		b.WriteString("\nSection: ")
		b.WriteString(strings.Join(in.HeadingPath, " > "))
	}
	b.WriteString("\n\n")
	b.WriteString(in.RawText)
	return clamp(b.String(), maxChars)
}

// renderEnrichedEmbeddedText renders the configured subset of fields,
// falling back to the raw chunk text when the enrichment result carries
// neither a summary nor key points.
func renderEnrichedEmbeddedText(in chunkMetadataInput, result EnrichmentResult, fields []string, maxChars int) string {
	if result.Summary == "" && len(result.KeyPoints) == 0 {
		return renderDefaultEmbeddedText(in, maxChars)
	}

	var b strings.Builder
	for _, field := range fields {
		switch field {
		case "source":
			writeField(&b, "Source", in.SourceURI)
		case "heading_path":
			if len(in.HeadingPath) > 0 {
				writeField(&b, "Section", strings.Join(in.HeadingPath, " > "))
			}
		case "author":
			writeField(&b, "Author", in.Author)
		case "description":
			writeField(&b, "Description", in.Description)
		case "tags":
			if len(in.Tags) > 0 {
				writeField(&b, "Tags", strings.Join(in.Tags, ", "))
			}
		case "content_type":
			writeField(&b, "Type", in.ContentType)
		case "summary":
			writeField(&b, "Summary", result.Summary)
		case "key_points":
			if len(result.KeyPoints) > 0 {
				writeField(&b, "Key points", strings.Join(result.KeyPoints, "; "))
			}
		case "keywords":
			if len(result.Keywords) > 0 {
				writeField(&b, "Keywords", strings.Join(result.Keywords, ", "))
			}
		case "entities":
			if len(result.Entities) > 0 {
				writeField(&b, "Entities", strings.Join(result.Entities, ", "))
			}
		case "possible_queries":
			if len(result.PossibleQueries) > 0 {
				writeField(&b, "Possible queries", strings.Join(result.PossibleQueries, "; "))
			}
		}
	}
	b.WriteString("\n\n")
	b.WriteString(in.RawText)

	return clamp(b.String(), maxChars)
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}

func clamp(s string, maxChars int) string {
	if maxChars <= 0 || len(s) <= maxChars {
		return s
	}
	return s[:maxChars]
}

// outwardContext returns up to ±2 lines of surrounding context around
// [startChar, endChar) in the full section/document text, clipped to
// maxChars.
func outwardContext(fullText string, startChar, endChar int, maxChars int) string {
	lines := strings.Split(fullText, "\n")
	offsets := make([]int, len(lines)+1)
	off := 0
	for i, l := range lines {
		offsets[i] = off
		off += len(l) + 1
	}
	offsets[len(lines)] = off

	startLine, endLine := 0, len(lines)-1
	for i := 0; i < len(lines); i++ {
		if offsets[i] <= startChar {
			startLine = i
		}
		if offsets[i] <= endChar {
			endLine = i
		}
	}

	from := startLine - 2
	if from < 0 {
		from = 0
	}
	to := endLine + 2
	if to >= len(lines) {
		to = len(lines) - 1
	}

	context := strings.Join(lines[from:to+1], "\n")
	return clamp(context, maxChars)
}
