// Package chunk implements the normalize/parse-sections/split stages of the
// ingestion pipeline: converting raw uploaded text into token-bounded
// chunks ready for enrichment and embedding.
package chunk

import "strings"

// Normalize converts all CR/CRLF line endings to LF and right-trims each
// line, leaving line numbers and relative character offsets stable for the
// later parse and chunk stages.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}
