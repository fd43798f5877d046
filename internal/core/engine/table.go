package engine

import (
	"regexp"
	"strings"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
)

var (
	columnGapRe     = regexp.MustCompile(`[ \t]{3,}`)
	tableHeaderRe   = regexp.MustCompile(`(?i)^(?:test|parameter|property)s?\t(?:specification|limit)s?\t(?:result|value|found)s?\b`)
	tableStopRe     = regexp.MustCompile(`(?i)^(?:Recommended\s+Retest\s+(?:Period|Date)|Quality\s+Control|Certificate\s+of\s+Origin|_{3,}|-{5,})`)
	numericResultRe = regexp.MustCompile(`[\d<>≤≥]`)
	verdictResultRe = regexp.MustCompile(`(?i)^(?:pass(?:es|ed)?|fail(?:s|ed)?|conforms?|complies)\b`)
)

// normalizeColumns collapses runs of three or more spaces into single tabs so
// that ragged fixed-width layouts become splittable rows. Tabs already in the
// input are preserved.
func normalizeColumns(text string) string {
	var sb strings.Builder
	for _, line := range strings.Split(text, "\n") {
		sb.WriteString(columnGapRe.ReplaceAllString(strings.TrimRight(line, " \t"), "\t"))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ParseResultsTable extracts a certificate results table from raw text. The
// columnar strategy runs first: find a Test/Specification/Result header row
// and consume tab-split rows until a terminator. When no header is present,
// a line-oriented fallback pairs labeled lines that look like measurements.
// Both strategies share the same output shape keyed by test name.
func ParseResultsTable(text string) map[string]domain.TestResult {
	normalized := normalizeColumns(text)

	if results := parseColumnarTable(normalized); len(results) > 0 {
		return results
	}
	return parseLineTable(normalized)
}

// HasResultsTableHeader reports whether a recognized table header row occurs
// anywhere in the text.
func HasResultsTableHeader(text string) bool {
	for _, line := range strings.Split(normalizeColumns(text), "\n") {
		if tableHeaderRe.MatchString(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}

func parseColumnarTable(text string) map[string]domain.TestResult {
	lines := strings.Split(text, "\n")
	headerAt := -1
	for i, line := range lines {
		if tableHeaderRe.MatchString(strings.TrimSpace(line)) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil
	}

	results := make(map[string]domain.TestResult)
	for _, line := range lines[headerAt+1:] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if tableStopRe.MatchString(trimmed) {
			break
		}
		cols := strings.Split(trimmed, "\t")
		if len(cols) < 2 {
			// A row without a column gap ends the table body. Certificates
			// follow tables with free-running prose.
			break
		}
		name := strings.TrimSpace(cols[0])
		if name == "" {
			continue
		}
		row := domain.TestResult{}
		if len(cols) >= 3 {
			row.Specification = strings.TrimSpace(cols[1])
			row.Result = strings.TrimSpace(strings.Join(cols[2:], " "))
		} else {
			row.Result = strings.TrimSpace(cols[1])
		}
		results[name] = row
	}
	return results
}

// parseLineTable handles certificates that render each measurement as a
// labeled line instead of a real table. Only lines whose right side carries a
// number, comparison or pass/fail verdict are taken, which keeps addresses
// and remarks out.
func parseLineTable(text string) map[string]domain.TestResult {
	results := make(map[string]domain.TestResult)
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if tableStopRe.MatchString(trimmed) {
			break
		}
		cols := strings.Split(trimmed, "\t")
		switch len(cols) {
		case 3:
			// Three separated columns are strong enough evidence on their
			// own; descriptive results like "Conforms" are legitimate here.
			name := strings.TrimSpace(cols[0])
			result := strings.TrimSpace(cols[2])
			if name != "" && result != "" && !numericResultRe.MatchString(name) {
				results[name] = domain.TestResult{
					Specification: strings.TrimSpace(cols[1]),
					Result:        result,
				}
			}
		case 2:
			name := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(cols[0]), ":"))
			result := strings.TrimSpace(cols[1])
			resultOK := numericResultRe.MatchString(result) || verdictResultRe.MatchString(result)
			if name != "" && resultOK && !numericResultRe.MatchString(name) {
				results[name] = domain.TestResult{Result: result}
			}
		}
	}
	return results
}
