package chunk

import (
	"regexp"
	"strings"
)

// Section is a contiguous span of the normalized document under one ATX
// heading (or the entire document, when it has none).
type Section struct {
	Heading     string
	Level       int
	HeadingPath []string
	Content     string
	StartChar   int
	EndChar     int
	StartLine   int
	EndLine     int
}

var atxHeadingPattern = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// ParseSections scans normalized text line by line. Each ATX heading
// (`^#{1,6} title`) opens a new section whose HeadingPath is the previous
// path truncated to level-1 entries with the new title appended. If no
// heading is found, the whole document is returned as a single section.
func ParseSections(text string) []Section {
	lines := strings.Split(text, "\n")

	// lineStart[i] is the character offset of the start of lines[i].
	lineStart := make([]int, len(lines))
	offset := 0
	for i, line := range lines {
		lineStart[i] = offset
		offset += len(line) + 1 // +1 for the newline joining this line to the next
	}

	type open struct {
		heading     string
		level       int
		headingPath []string
		startLine   int
	}

	var path []string
	var sections []Section
	var cur *open

	closeSection := func(endLine int) {
		if cur == nil {
			return
		}
		start := lineStart[cur.startLine]
		var end int
		if endLine < len(lines) {
			end = lineStart[endLine]
		} else {
			end = len(strings.Join(lines, "\n"))
		}
		sections = append(sections, Section{
			Heading:     cur.heading,
			Level:       cur.level,
			HeadingPath: cur.headingPath,
			Content:     sliceLines(lines, cur.startLine, endLine-1),
			StartChar:   start,
			EndChar:     end,
			StartLine:   cur.startLine,
			EndLine:     endLine - 1,
		})
	}

	for i, line := range lines {
		m := atxHeadingPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		closeSection(i)

		level := len(m[1])
		title := strings.TrimSpace(m[2])
		if level-1 < len(path) {
			path = path[:level-1]
		}
		path = append(path, title)

		cur = &open{
			heading:     title,
			level:       level,
			headingPath: append([]string(nil), path...),
			startLine:   i,
		}
	}
	closeSection(len(lines))

	if cur == nil {
		full := strings.Join(lines, "\n")
		return []Section{{
			Content:   full,
			StartChar: 0,
			EndChar:   len(full),
			StartLine: 0,
			EndLine:   len(lines) - 1,
		}}
	}

	return sections
}

func sliceLines(lines []string, from, to int) string {
	if from > to || from < 0 || to >= len(lines) {
		if from > to {
			return ""
		}
	}
	if to >= len(lines) {
		to = len(lines) - 1
	}
	return strings.Join(lines[from:to+1], "\n")
}
