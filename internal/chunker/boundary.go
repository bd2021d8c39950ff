package chunker

import (
	"fmt"
	"regexp"
)

// Boundary describes where natural units of a transcript begin or end.
// With SplitAfter unset a new unit starts at each match; otherwise the
// current unit ends right after the match.
type Boundary struct {
	Pattern    *regexp.Regexp
	SplitAfter bool
}

var (
	timestampRe = regexp.MustCompile(`(?m)(?:^|\s)\[?\d{1,2}:\d{2}(?::\d{2})?\]?`)
	lineRe      = regexp.MustCompile(`\n+`)
	blankLineRe = regexp.MustCompile(`\n[ \t]*\n\s*`)
	sentenceRe  = regexp.MustCompile(`[.!?]+["')\]]*\s+`)
)

// TimestampBoundary starts a unit at markers such as "0:02" or "[00:01:23]".
func TimestampBoundary() Boundary { return Boundary{Pattern: timestampRe} }

// LineBoundary ends a unit at every line break.
func LineBoundary() Boundary { return Boundary{Pattern: lineRe, SplitAfter: true} }

// BlankLineBoundary ends a unit at every blank line.
func BlankLineBoundary() Boundary { return Boundary{Pattern: blankLineRe, SplitAfter: true} }

// SentenceBoundary ends a unit after terminal punctuation.
func SentenceBoundary() Boundary { return Boundary{Pattern: sentenceRe, SplitAfter: true} }

// BoundaryFor resolves a configured boundary type. The "pattern" type
// compiles the user supplied expression.
func BoundaryFor(kind, pattern string, splitAfter bool) (Boundary, error) {
	switch kind {
	case "timestamp", "":
		return TimestampBoundary(), nil
	case "blank_line":
		return BlankLineBoundary(), nil
	case "sentence":
		return SentenceBoundary(), nil
	case "pattern":
		if pattern == "" {
			return Boundary{}, fmt.Errorf("chunker pattern is empty")
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return Boundary{}, fmt.Errorf("invalid chunker pattern: %w", err)
		}
		return Boundary{Pattern: re, SplitAfter: splitAfter}, nil
	default:
		return Boundary{}, fmt.Errorf("unknown chunker: %s", kind)
	}
}

// units cuts text at every boundary match. The pieces cover text exactly.
func (b Boundary) units(text string) []string {
	var out []string
	start := 0
	for _, m := range b.Pattern.FindAllStringIndex(text, -1) {
		cut := m[0]
		if b.SplitAfter {
			cut = m[1]
		}
		if cut <= start || cut >= len(text) {
			continue
		}
		out = append(out, text[start:cut])
		start = cut
	}
	return append(out, text[start:])
}
