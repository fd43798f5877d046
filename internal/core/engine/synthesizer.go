package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
)

const (
	// genericCapture matches any single-line value. Used when no context
	// around the target value can be derived.
	genericCapture = `(?i)([^\n]+)`

	maxPatternLength       = 2000
	defaultMaxAlternations = 12
)

// Synthesize derives a reusable extraction pattern from one example: it
// locates value inside exampleText, takes the literal text on either side up
// to the nearest line boundary, and anchors a capture group between the two
// escaped context fragments. Explicit before/after context overrides the
// derived one. Patterns are always case-insensitive.
func Synthesize(exampleText, value, contextBefore, contextAfter string) string {
	if strings.TrimSpace(value) == "" {
		return genericCapture
	}

	before, after := contextBefore, contextAfter
	if before == "" && after == "" {
		before, after = surroundingContext(exampleText, value)
	}

	before = strings.TrimSpace(before)
	after = strings.TrimSpace(after)

	switch {
	case before != "" && after != "":
		return fmt.Sprintf(`(?i)%s\s*([^\n]+?)\s*%s`, regexp.QuoteMeta(before), regexp.QuoteMeta(after))
	case before != "":
		return fmt.Sprintf(`(?i)%s\s*([^\n]+)`, regexp.QuoteMeta(before))
	case after != "":
		return fmt.Sprintf(`(?i)([^\n]+?)\s*%s`, regexp.QuoteMeta(after))
	default:
		return genericCapture
	}
}

// CombinePatterns unions a newly learned pattern with an existing one so
// that anything the old pattern matched still matches. Growth is bounded:
// once the alternation count or total length exceeds the limit the result is
// ErrPatternTooComplex and the caller keeps the old pattern.
func CombinePatterns(existing, learned string, maxAlternations int) (string, error) {
	if existing == "" {
		return learned, nil
	}
	if learned == "" || existing == learned {
		return existing, nil
	}
	if maxAlternations <= 0 {
		maxAlternations = defaultMaxAlternations
	}

	combined := fmt.Sprintf("(?:%s)|(?:%s)", existing, learned)
	if alternationCount(combined) > maxAlternations || len(combined) > maxPatternLength {
		return "", domain.WrapError(domain.ErrPatternTooComplex, "combine patterns",
			fmt.Errorf("%d alternations, %d bytes", alternationCount(combined), len(combined)))
	}
	if _, err := regexp.Compile(combined); err != nil {
		return "", fmt.Errorf("compile combined pattern: %w", err)
	}
	return combined, nil
}

func alternationCount(pattern string) int {
	return strings.Count(pattern, ")|(?:") + 1
}

// surroundingContext returns the text immediately before and after the first
// occurrence of value, clipped to the value's line. The match is tried
// case-sensitively first, then case-insensitively.
func surroundingContext(text, value string) (before, after string) {
	idx := strings.Index(text, value)
	length := len(value)
	if idx < 0 {
		lower := strings.ToLower(text)
		idx = strings.Index(lower, strings.ToLower(value))
	}
	if idx < 0 {
		return "", ""
	}

	lineStart := strings.LastIndexByte(text[:idx], '\n') + 1
	lineEnd := idx + length
	if rel := strings.IndexByte(text[idx+length:], '\n'); rel >= 0 {
		lineEnd = idx + length + rel
	} else {
		lineEnd = len(text)
	}

	return text[lineStart:idx], text[idx+length : lineEnd]
}
