package chunk

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordEstimator is a deterministic stand-in for tokenizer.Estimator: one
// token per whitespace-separated word, so tests don't depend on a real BPE
// table.
type wordEstimator struct{}

func (wordEstimator) EstimateText(_ context.Context, text string) (int, error) {
	return len(strings.Fields(text)), nil
}

func TestSplitter_EmptySectionProducesNoChunks(t *testing.T) {
	s := NewSplitter(wordEstimator{}, DefaultOptions())
	chunks, err := s.Split(context.Background(), []Section{{Heading: "Empty", Content: "# Empty\n"}})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitter_SingleSmallSectionProducesOneChunk(t *testing.T) {
	s := NewSplitter(wordEstimator{}, DefaultOptions())
	content := "Hello world, this is a short document."
	chunks, err := s.Split(context.Background(), []Section{{Content: content, EndChar: len(content)}})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, content, chunks[0].Text)
}

func TestSplitter_ChunkIndexOffsetsWithinDocument(t *testing.T) {
	s := NewSplitter(wordEstimator{}, DefaultOptions())
	secA := "first section text"
	secB := "second section text"
	doc := secA + secB

	sections := []Section{
		{Content: secA, StartChar: 0, EndChar: len(secA)},
		{Content: secB, StartChar: len(secA), EndChar: len(doc)},
	}
	chunks, err := s.Split(context.Background(), sections)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].StartChar)
	assert.Equal(t, len(secA), chunks[1].StartChar)
}

func TestSplitter_NeverBreaksInsideFencedCodeBlock(t *testing.T) {
	code := "```go\n" + strings.Repeat("line of code here\n", 40) + "```"
	content := "intro text\n\n" + code + "\n\nmore text after"

	s := NewSplitter(wordEstimator{}, Options{TargetTokens: 10, OverlapTokens: 2})
	chunks, err := s.Split(context.Background(), []Section{{Content: content, EndChar: len(content)}})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	fenceStart := strings.Index(content, "```go")
	fenceEnd := strings.LastIndex(content, "```") + len("```")

	for _, c := range chunks {
		if c.StartChar < fenceEnd && c.EndChar > fenceStart {
			assert.LessOrEqualf(t, c.StartChar, fenceStart, "chunk must not start inside the fenced block: %+v", c)
			assert.GreaterOrEqualf(t, c.EndChar, fenceEnd, "chunk must not end inside the fenced block: %+v", c)
		}
	}
}

func TestSplitter_LargeSectionProducesMultipleChunks(t *testing.T) {
	words := make([]string, 0, 2000)
	for i := 0; i < 2000; i++ {
		words = append(words, "word")
	}
	content := strings.Join(words, " ")

	s := NewSplitter(wordEstimator{}, DefaultOptions())
	chunks, err := s.Split(context.Background(), []Section{{Content: content, EndChar: len(content)}})
	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1)
}

func TestSplitter_ChunksCoverWholeSectionInOrder(t *testing.T) {
	content := "alpha beta gamma delta epsilon zeta eta theta iota kappa " +
		strings.Repeat("word ", 300)

	s := NewSplitter(wordEstimator{}, Options{TargetTokens: 50, OverlapTokens: 5})
	chunks, err := s.Split(context.Background(), []Section{{Content: content, EndChar: len(content)}})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	assert.Equal(t, 0, chunks[0].StartChar)
	assert.Equal(t, len(content), chunks[len(chunks)-1].EndChar)
	for i := 1; i < len(chunks); i++ {
		assert.LessOrEqual(t, chunks[i-1].StartChar, chunks[i].StartChar)
	}
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "code", detectContentType("```go\nfmt.Println(1)\n```"))
	assert.Equal(t, "table", detectContentType("| a | b |\n|---|---|"))
	assert.Equal(t, "markdown", detectContentType("just prose"))
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "go", detectLanguage("```go\nfmt.Println(1)\n```"))
	assert.Equal(t, "", detectLanguage("no fence here"))
}
