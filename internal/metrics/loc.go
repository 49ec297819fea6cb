package metrics

import (
	"strings"
)

// LineKind classifies a physical source line.
type LineKind uint8

const (
	LineBlank LineKind = iota
	LineComment
	LineCode
)

// Lines holds line counts for a span.
type Lines struct {
	Source   int
	Physical int
	Comment  int
	Blank    int
}

// SplitLines splits content into lines, dropping the empty line produced by
// a final newline.
func SplitLines(content []byte) []string {
	lines := strings.Split(string(content), "\n")
	// Trim trailing empty line from final newline.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// ClassifyLines labels every line of C-family source as blank, comment or
// code. A line holding both code and a comment counts as code.
func ClassifyLines(content []byte) []LineKind {
	lines := SplitLines(content)
	kinds := make([]LineKind, len(lines))
	inBlock := false // tracks multi-line comment state

	for i, line := range lines {
		trimmed := strings.TrimSpace(strings.TrimSuffix(line, "\r"))

		if trimmed == "" {
			if inBlock {
				kinds[i] = LineComment
			} else {
				kinds[i] = LineBlank
			}
			continue
		}

		if inBlock {
			end := strings.Index(trimmed, "*/")
			if end < 0 {
				kinds[i] = LineComment
				continue
			}
			inBlock = false
			rest := strings.TrimSpace(trimmed[end+2:])
			if rest == "" || strings.HasPrefix(rest, "//") {
				kinds[i] = LineComment
				continue
			}
			kinds[i] = LineCode
			inBlock = opensBlock(rest)
			continue
		}

		if strings.HasPrefix(trimmed, "//") {
			kinds[i] = LineComment
			continue
		}

		if strings.HasPrefix(trimmed, "/*") {
			end := strings.Index(trimmed[2:], "*/")
			if end < 0 {
				kinds[i] = LineComment
				inBlock = true
				continue
			}
			rest := strings.TrimSpace(trimmed[end+4:])
			if rest == "" || strings.HasPrefix(rest, "//") {
				kinds[i] = LineComment
				continue
			}
			kinds[i] = LineCode
			inBlock = opensBlock(rest)
			continue
		}

		kinds[i] = LineCode
		inBlock = opensBlock(trimmed)
	}
	return kinds
}

// opensBlock reports whether a code line leaves a block comment open.
func opensBlock(s string) bool {
	if i := strings.Index(s, "//"); i >= 0 && (strings.Index(s, "/*") < 0 || i < strings.Index(s, "/*")) {
		return false
	}
	return strings.LastIndex(s, "/*") > strings.LastIndex(s, "*/")
}

// CountLines totals the classified lines in the 1-based inclusive span
// [start, end]. Lines past the end of kinds count as blank.
func CountLines(kinds []LineKind, start, end int) Lines {
	var l Lines
	if start < 1 {
		start = 1
	}
	for n := start; n <= end; n++ {
		l.Source++
		if n > len(kinds) {
			l.Blank++
			continue
		}
		switch kinds[n-1] {
		case LineBlank:
			l.Blank++
		case LineComment:
			l.Comment++
		default:
			l.Physical++
		}
	}
	return l
}
