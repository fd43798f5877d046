package engine

import (
	"regexp"
	"strings"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
)

// Two generic label-line shapes for discovery: a colon-delimited label and a
// dash-delimited one. Both require a capitalized label of limited length so
// running prose is not mistaken for a field.
var labelLineRes = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^\s*([A-Z][A-Za-z][A-Za-z \-]{1,30}?)\s*:\s*(\S[^\n]*)$`),
	regexp.MustCompile(`(?m)^\s*([A-Z][A-Za-z][A-Za-z ]{1,30}?)\s+-\s+(\S[^\n]*)$`),
}

// Labels that look like fields but never are.
var stopFields = map[string]struct{}{
	"note":      {},
	"notes":     {},
	"page":      {},
	"section":   {},
	"warning":   {},
	"caution":   {},
	"attention": {},
	"see":       {},
	"the":       {},
	"and":       {},
	"for":       {},
	"contents":  {},
}

// NormalizeFieldName converts a captured label into field-name form:
// lowercase with spaces and hyphens collapsed to single underscores.
func NormalizeFieldName(label string) string {
	name := strings.ToLower(strings.TrimSpace(label))
	name = strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return '_'
		}
		return r
	}, name)
	for strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_")
	}
	return strings.Trim(name, "_")
}

// Discover scans text for plausible field/value pairs: the generic label-line
// patterns first, then a sweep of the static library for anything missed, and
// finally the results table when a header row is present. The first value
// found for a field wins; fields in alreadyTrained are skipped.
func Discover(text string, docType domain.DocumentType, alreadyTrained map[string]struct{}) map[string]any {
	discovered := make(map[string]any)
	if strings.TrimSpace(text) == "" {
		return discovered
	}

	skip := func(field string) bool {
		if _, stopped := stopFields[field]; stopped {
			return true
		}
		if _, trained := alreadyTrained[field]; trained {
			return true
		}
		_, dup := discovered[field]
		return dup
	}

	for _, re := range labelLineRes {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			field := NormalizeFieldName(m[1])
			if field == "" || skip(field) {
				continue
			}
			if value := trimValue(m[2]); value != "" {
				discovered[field] = value
			}
		}
	}

	for _, field := range LibraryFields() {
		if skip(field) {
			continue
		}
		if v, ok := LibraryMatch(field, text); ok {
			discovered[field] = v
		}
	}

	if !skip("test_results") && HasResultsTableHeader(text) {
		if table := ParseResultsTable(text); len(table) > 0 {
			discovered["test_results"] = table
		}
	}

	return discovered
}
