package engine

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
)

// Fixed, non-learned label patterns for the certificate fast path, in display
// order. The same slice drives extraction and the formatted output so the two
// cannot drift apart.
var coaLabelPatterns = []struct {
	field   string
	display string
	re      *regexp.Regexp
}{
	{"product_name", "Product Name", regexp.MustCompile(`(?i)Product\s+Name\s*[:.]\s*([^\n]+)`)},
	{"product_number", "Product Number", regexp.MustCompile(`(?i)Product\s+(?:Number|No\.?)\s*[:.]\s*([A-Za-z0-9\-]+)`)},
	{"batch_number", "Batch Number", regexp.MustCompile(`(?i)(?:Batch|Lot)\s+Number\s*[:.]\s*([A-Za-z0-9\-/]+)`)},
	{"brand", "Brand", regexp.MustCompile(`(?i)Brand\s*[:.]\s*([^\n]+)`)},
	{"mdl_number", "MDL Number", regexp.MustCompile(`(?i)MDL\s+(?:Number|No\.?)\s*[:.]\s*([A-Za-z0-9]+)`)},
	{"cas_number", "CAS Number", regexp.MustCompile(`(?i)CAS\s+(?:Number|No\.?)\s*[:.]\s*([0-9\-]+)`)},
	{"quality_release_date", "Quality Release Date", regexp.MustCompile(`(?i)Quality\s+Release\s+Date\s*[:.]\s*([^\n]+)`)},
	{"retest_date", "Retest Date", regexp.MustCompile(`(?i)(?:Recommended\s+)?Retest\s+Date\s*[:.]\s*([^\n]+)`)},
}

// Known certificate suppliers, first match wins. Detection is advisory: it
// names the vendor without switching the parsing path.
var coaSupplierPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"Sigma-Aldrich", regexp.MustCompile(`(?i)SIGMA(?:-|\s)?ALDRICH|SIGALD`)},
	{"Z.D. CHEMIPAN", regexp.MustCompile(`(?i)Z\.D\.\s*["']?CHEMIPAN["']?|Polish\s+Academy\s+of\s+Sciences`)},
}

func detectSupplier(text string) string {
	for _, p := range coaSupplierPatterns {
		if p.re.MatchString(text) {
			return p.name
		}
	}
	return ""
}

// The certificate results table sits between its labeled header and one of a
// fixed set of terminator phrases.
var coaTestSectionRe = regexp.MustCompile(`(?is)Test\s+Specification\s+Result(.*?)(?:Recommended\s+Retest\s+Period|Recommended\s+Retest\s+Date|Quality\s+Control|$)`)

// ProcessCOADocument is the certificate fast path: fixed label patterns for
// the product-information block, the labeled-header table section for test
// results, and a rendered human-readable summary. Row parsing is shared with
// the generic table parser.
func ProcessCOADocument(text string) (domain.Entities, string) {
	entities := make(domain.Entities)

	for _, p := range coaLabelPatterns {
		if m := p.re.FindStringSubmatch(text); m != nil && trimmedGroup(m) != "" {
			entities[p.field] = trimmedGroup(m)
		}
	}
	if v, ok := entities["batch_number"]; ok {
		entities["lot_number"] = v
	}
	if supplier := detectSupplier(text); supplier != "" {
		entities["supplier"] = supplier
	}

	if m := coaTestSectionRe.FindStringSubmatch(text); m != nil {
		if table := parseLineTable(normalizeColumns(m[1])); len(table) > 0 {
			entities["test_results"] = table
		}
	}

	return entities, FormatCOAOutput(entities)
}

// FormatCOAOutput renders the two-section certificate summary: the
// product-information list in fixed display order, then the test-results
// table sorted by test name. Absent fields are omitted.
func FormatCOAOutput(entities domain.Entities) string {
	var sb strings.Builder

	sb.WriteString("## Product Information\n\n")
	for _, p := range coaLabelPatterns {
		if v, ok := entities[p.field].(string); ok && v != "" {
			fmt.Fprintf(&sb, "- **%s**: %s\n", p.display, v)
		}
	}
	if v, ok := entities["supplier"].(string); ok && v != "" {
		fmt.Fprintf(&sb, "- **Supplier**: %s\n", v)
	}

	table, ok := entities.TestResults()
	if !ok || len(table) == 0 {
		return sb.String()
	}

	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	sb.WriteString("\n## Test Results\n\n")
	sb.WriteString("| Test | Specification | Result |\n")
	sb.WriteString("| --- | --- | --- |\n")
	for _, name := range names {
		row := table[name]
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", name, row.Specification, row.Result)
	}
	return sb.String()
}
