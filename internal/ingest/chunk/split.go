package chunk

import (
	"context"
	"regexp"
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"

	"github.com/zoeflow/ragcore/internal/tokenizer"
)

// Chunk is a single emitted span of section content, with absolute
// document-relative character and line offsets.
type Chunk struct {
	Text        string
	HeadingPath []string
	StartChar   int
	EndChar     int
	StartLine   int
	EndLine     int
	ContentType string
	Language    string
}

// Options configures the splitter's token target and overlap.
type Options struct {
	TargetTokens  int
	OverlapTokens int
}

// DefaultOptions targets ~500 tokens per chunk with ~50 tokens of overlap,
// per spec.
func DefaultOptions() Options {
	return Options{TargetTokens: 500, OverlapTokens: 50}
}

// Splitter splits section content into token-bounded chunks.
type Splitter struct {
	estimator tokenizer.Estimator
	opts      Options
	sentTok   *sentences.DefaultSentenceTokenizer
}

// NewSplitter returns a Splitter using estimator to measure token counts.
// Its sentence-boundary tier is backed by neurosnap/sentences' Punkt-based
// English tokenizer; if that fails to load its training data, the
// break-point ladder simply skips the sentence tier and falls through to
// the line tier.
func NewSplitter(estimator tokenizer.Estimator, opts Options) *Splitter {
	if opts.TargetTokens <= 0 {
		opts = DefaultOptions()
	}
	sentTok, _ := english.NewSentenceTokenizer(nil)
	return &Splitter{estimator: estimator, opts: opts, sentTok: sentTok}
}

// sentenceBoundaries returns the byte offsets at which content's sentences
// end, for the break-point ladder's sentence tier.
func (s *Splitter) sentenceBoundaries(content string) []int {
	if s.sentTok == nil {
		return nil
	}
	tokens := s.sentTok.Tokenize(content)
	ends := make([]int, 0, len(tokens))
	for _, t := range tokens {
		if t.End > 0 && t.End <= len(content) {
			ends = append(ends, t.End)
		}
	}
	return ends
}

// Split splits every non-empty section's content into chunks, returned in
// document order. It assigns no chunk index; the caller numbers the chunks.
func (s *Splitter) Split(ctx context.Context, sections []Section) ([]Chunk, error) {
	var chunks []Chunk
	for _, sec := range sections {
		if strings.TrimSpace(stripHeadingLine(sec)) == "" {
			continue
		}
		secChunks, err := s.splitSection(ctx, sec)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, secChunks...)
	}
	return chunks, nil
}

// stripHeadingLine returns the section's content with its own heading line
// removed, so a heading-only section is correctly treated as empty.
func stripHeadingLine(sec Section) string {
	content := sec.Content
	if sec.Heading == "" {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) == 0 {
		return content
	}
	if atxHeadingPattern.MatchString(lines[0]) {
		return strings.Join(lines[1:], "\n")
	}
	return content
}

func (s *Splitter) splitSection(ctx context.Context, sec Section) ([]Chunk, error) {
	content := stripHeadingLine(sec)
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	bodyOffset := len(sec.Content) - len(content)
	if bodyOffset < 0 {
		bodyOffset = 0
	}
	bodyLine := sec.StartLine + strings.Count(sec.Content[:bodyOffset], "\n")

	blocks := protectedBlocks(content)
	sentenceEnds := s.sentenceBoundaries(content)

	var chunks []Chunk
	pos := 0
	minSize := int(float64(s.opts.TargetTokens) * 0.3)
	if minSize < 1 {
		minSize = 1
	}

	for pos < len(content) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end, err := s.findChunkEnd(ctx, content, pos, blocks, sentenceEnds)
		if err != nil {
			return nil, err
		}
		if end <= pos {
			end = len(content)
		}
		if end < len(content) {
			tailTokens, err := s.estimator.EstimateText(ctx, content[end:])
			if err != nil {
				return nil, err
			}
			if tailTokens < minSize {
				// Remaining tail is smaller than the minimum chunk size: fold
				// it into this chunk instead of emitting a sliver.
				end = len(content)
			}
		}

		text := content[pos:end]
		startLine, endLine := lineRangeWithin(content, pos, end, bodyLine)

		chunks = append(chunks, Chunk{
			Text:        text,
			HeadingPath: sec.HeadingPath,
			StartChar:   sec.StartChar + bodyOffset + pos,
			EndChar:     sec.StartChar + bodyOffset + end,
			StartLine:   startLine,
			EndLine:     endLine,
			ContentType: detectContentType(text),
			Language:    detectLanguage(text),
		})

		if end >= len(content) {
			break
		}

		overlapChars := s.overlapChars(text)
		next := end - overlapChars
		if next <= pos {
			next = end
		}
		pos = next
	}

	return chunks, nil
}

// findChunkEnd binary-searches a character offset in content[from:] that
// brings the chunk within ±20 tokens of the target, never breaking inside a
// protected block, and falling back through the break-point ladder:
// paragraph, sentence, line, word, hard cut.
func (s *Splitter) findChunkEnd(ctx context.Context, content string, from int, blocks []span, sentenceEnds []int) (int, error) {
	if blockEnd, ok := enclosingBlockEnd(blocks, from); ok && blockEnd > from {
		// from sits inside a protected block: the whole block must stay
		// together even if it overshoots the target.
		if blockEnd-from > 0 {
			return blockEnd, nil
		}
	}

	lo, hi := from, len(content)
	best := hi
	for i := 0; i < 5 && lo < hi; i++ {
		mid := lo + (hi-lo)/2
		mid = adjustOutOfBlock(blocks, mid, from)

		tokens, err := s.estimator.EstimateText(ctx, content[from:mid])
		if err != nil {
			return 0, err
		}

		if abs(tokens-s.opts.TargetTokens) <= 20 {
			best = mid
			break
		}
		if tokens > s.opts.TargetTokens {
			hi = mid
		} else {
			lo = mid + 1
		}
		best = mid
	}

	return findBreakPoint(content, from, best, blocks, sentenceEnds), nil
}

func (s *Splitter) overlapChars(chunkText string) int {
	maxOverlap := int(float64(len(chunkText)) * 0.3)
	// Roughly translate the configured overlap token budget into
	// characters assuming ~4 chars/token, then cap at 30% of chunk length.
	approx := s.opts.OverlapTokens * 4
	if approx > maxOverlap {
		approx = maxOverlap
	}
	if approx < 0 {
		approx = 0
	}
	return approx
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func lineRangeWithin(content string, from, to int, baseLine int) (int, int) {
	startLine := baseLine + strings.Count(content[:from], "\n")
	endLine := baseLine + strings.Count(content[:to], "\n")
	return startLine, endLine
}

var (
	fencedCodePattern = regexp.MustCompile("(?s)```.*?```")
	tableRowPattern   = regexp.MustCompile(`(?m)^\|.*\|[ \t]*$`)
	listItemPattern   = regexp.MustCompile(`(?m)^\s*([-*+]|\d+[.)])\s+`)
)

type span struct{ start, end int }

// protectedBlocks finds fenced code blocks, Markdown tables, and
// consecutive list-item runs, which the splitter must never break inside.
func protectedBlocks(content string) []span {
	var blocks []span

	for _, m := range fencedCodePattern.FindAllStringIndex(content, -1) {
		blocks = append(blocks, span{m[0], m[1]})
	}

	for _, run := range consecutiveMatches(content, tableRowPattern) {
		blocks = append(blocks, run)
	}
	for _, run := range consecutiveMatches(content, listItemPattern) {
		blocks = append(blocks, run)
	}

	return blocks
}

// consecutiveMatches merges runs of lines matching pattern with no
// intervening non-matching, non-blank line into single spans.
func consecutiveMatches(content string, pattern *regexp.Regexp) []span {
	lines := strings.Split(content, "\n")
	offsets := make([]int, len(lines)+1)
	off := 0
	for i, l := range lines {
		offsets[i] = off
		off += len(l) + 1
	}
	offsets[len(lines)] = off

	var spans []span
	inRun := false
	runStart := 0
	for i, line := range lines {
		matches := pattern.MatchString(line)
		if matches && !inRun {
			inRun = true
			runStart = i
		}
		if !matches && inRun {
			spans = append(spans, span{offsets[runStart], offsets[i] - 1})
			inRun = false
		}
	}
	if inRun {
		spans = append(spans, span{offsets[runStart], offsets[len(lines)]})
	}
	return spans
}

func enclosingBlockEnd(blocks []span, pos int) (int, bool) {
	for _, b := range blocks {
		if pos >= b.start && pos < b.end {
			return b.end, true
		}
	}
	return 0, false
}

// adjustOutOfBlock nudges a candidate offset past any protected block it
// would otherwise land inside.
func adjustOutOfBlock(blocks []span, pos, from int) int {
	for _, b := range blocks {
		if pos > b.start && pos < b.end && b.start >= from {
			return b.end
		}
	}
	return pos
}

// findBreakPoint searches backward from target (within [from, len(content)])
// for the best allowed break point, preferring paragraph > sentence > line >
// word > hard cut, never landing inside a protected block.
func findBreakPoint(content string, from, target int, blocks []span, sentenceEnds []int) int {
	if target >= len(content) {
		return len(content)
	}

	window := content[from:target]

	if idx := strings.LastIndex(window, "\n\n"); idx >= 200 {
		return clampOutOfBlock(blocks, from+idx+2, from, target)
	}
	if end, ok := lastSentenceEndBefore(sentenceEnds, from, target); ok {
		return clampOutOfBlock(blocks, end, from, target)
	}
	if idx := strings.LastIndex(window, "\n"); idx >= 0 {
		return clampOutOfBlock(blocks, from+idx+1, from, target)
	}
	if idx := strings.LastIndexAny(window, " \t"); idx >= 0 {
		return clampOutOfBlock(blocks, from+idx+1, from, target)
	}
	return clampOutOfBlock(blocks, target, from, target)
}

// lastSentenceEndBefore returns the last sentence-end offset that falls
// within (from, target], for the break-point ladder's sentence tier.
// sentenceEnds is sorted ascending since it is produced by a single
// left-to-right tokenizer pass.
func lastSentenceEndBefore(sentenceEnds []int, from, target int) (int, bool) {
	best := -1
	for _, end := range sentenceEnds {
		if end <= from {
			continue
		}
		if end > target {
			break
		}
		best = end
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

func clampOutOfBlock(blocks []span, pos, from, fallback int) int {
	if end, ok := enclosingBlockEnd(blocks, pos); ok {
		if end <= fallback+1 {
			return end
		}
		return fallback
	}
	if pos <= from {
		return fallback
	}
	return pos
}

func detectContentType(text string) string {
	if fencedCodePattern.MatchString(text) {
		return "code"
	}
	if tableRowPattern.MatchString(text) {
		return "table"
	}
	return "markdown"
}

var codeFenceLangPattern = regexp.MustCompile("```([a-zA-Z0-9_+-]+)")

func detectLanguage(text string) string {
	m := codeFenceLangPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}
