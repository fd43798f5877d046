package engine

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
)

// PatternSource hands out compiled learned patterns. The error return carries
// compile failures of stored pattern strings; the extractor treats those as a
// per-field problem, not a fatal one.
type PatternSource interface {
	CompiledPattern(docType domain.DocumentType, field string) (*regexp.Regexp, bool, error)
}

var hazardCodeRe = regexp.MustCompile(`\b(H\d{3})\b`)

// Fields applied by the fixed per-type rules of extraction step two.
var fixedRuleFields = map[domain.DocumentType][]string{
	domain.DocTypeSDS: {"hazard_codes", "emergency_contact", "density", "viscosity", "flash_point"},
	domain.DocTypeTDS: {"hazard_codes", "emergency_contact", "density", "viscosity", "flash_point"},
	domain.DocTypeCOA: {"batch_number", "cas_number", "appearance", "density", "purity"},
}

type Extractor struct {
	patterns PatternSource
	logger   *slog.Logger
}

func NewExtractor(patterns PatternSource, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{patterns: patterns, logger: logger}
}

// Extract runs the additive extraction steps in order. A field populated by
// an earlier step is never overwritten by a later one, so fixed rules always
// beat learned patterns and discovery. Failures of individual learned
// patterns are logged and skipped.
func (x *Extractor) Extract(text string, docType domain.DocumentType, schema domain.Schema) domain.Entities {
	entities := make(domain.Entities)
	if strings.TrimSpace(text) == "" {
		return entities
	}

	// Step 1: product name through its priority pattern list.
	if v, ok := LibraryMatch("product_name", text); ok {
		entities["product_name"] = v
	}

	// Step 2: fixed per-type rules.
	for _, field := range fixedRuleFields[docType] {
		if _, present := entities[field]; present {
			continue
		}
		if field == "hazard_codes" {
			if codes := hazardCodes(text); len(codes) > 0 {
				entities["hazard_codes"] = codes
			}
			continue
		}
		if v, ok := LibraryMatch(field, text); ok {
			entities[field] = v
		}
	}
	if v, ok := entities["batch_number"]; ok && docType == domain.DocTypeCOA {
		entities["lot_number"] = v
	}

	// Step 3: required schema fields not yet populated. A learned pattern
	// wins over the generic label-derived one.
	for _, field := range schema.RequiredFields {
		if _, present := entities[field]; present {
			continue
		}
		if v, ok := x.matchLearned(docType, field, text); ok {
			entities[field] = v
			continue
		}
		if v, ok := matchGenericLabel(field, text); ok {
			entities[field] = v
		}
	}

	// Step 4: results table.
	if _, present := entities["test_results"]; !present {
		if table := ParseResultsTable(text); len(table) > 0 {
			entities["test_results"] = table
		}
	}

	// Step 5: field discovery over the full text.
	for field, value := range Discover(text, docType, nil) {
		if _, present := entities[field]; !present {
			entities[field] = value
		}
	}

	return entities
}

func (x *Extractor) matchLearned(docType domain.DocumentType, field, text string) (string, bool) {
	if x.patterns == nil {
		return "", false
	}
	re, ok, err := x.patterns.CompiledPattern(docType, field)
	if err != nil {
		x.logger.Warn("skipping learned pattern",
			"doc_type", string(docType), "field", field, "error", err)
		return "", false
	}
	if !ok {
		return "", false
	}
	if m := re.FindStringSubmatch(text); m != nil && trimmedGroup(m) != "" {
		return trimmedGroup(m), true
	}
	return "", false
}

// matchGenericLabel derives a label pattern from the field name itself:
// underscores become whitespace and the value is whatever follows the
// delimiter on the same line.
func matchGenericLabel(field, text string) (string, bool) {
	label := strings.ReplaceAll(regexp.QuoteMeta(field), "_", `\s+`)
	re, err := regexp.Compile(fmt.Sprintf(`(?i)%s\s*[:.]\s*([^\n]+)`, label))
	if err != nil {
		return "", false
	}
	if m := re.FindStringSubmatch(text); m != nil && trimmedGroup(m) != "" {
		return trimmedGroup(m), true
	}
	return "", false
}

// hazardCodes collects unique GHS hazard statement codes in order of first
// appearance.
func hazardCodes(text string) []string {
	var codes []string
	seen := make(map[string]struct{})
	for _, m := range hazardCodeRe.FindAllStringSubmatch(text, -1) {
		if _, dup := seen[m[1]]; dup {
			continue
		}
		seen[m[1]] = struct{}{}
		codes = append(codes, m[1])
	}
	return codes
}

// trimValue cleans a captured value: surrounding whitespace and dangling
// sentence punctuation go, unit and percent suffixes stay.
func trimValue(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), " .,;")
}
