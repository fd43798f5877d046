package engine

import (
	"regexp"
	"sort"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
)

// Static, hand-authored extraction patterns for well-known fields. Each list
// is in priority order: the first matching pattern wins. These never change
// at runtime; learned patterns live in the training store.
var fieldLibrary = map[string][]*regexp.Regexp{
	"product_name": {
		regexp.MustCompile(`(?i)Product\s+name\s*[:.]\s*([^\n]+)`),
		regexp.MustCompile(`(?i)Product\s+identifier\s*[:.]\s*([^\n]+)`),
		regexp.MustCompile(`(?i)Trade\s+name\s*[:.]\s*([^\n]+)`),
		regexp.MustCompile(`(?i)Material\s*[:.]\s*([^\n]+)`),
		regexp.MustCompile(`(?i)Certificate\s+of\s+Analysis\s+for\s+([A-Za-z0-9\s\-]+)`),
	},
	"cas_number": {
		regexp.MustCompile(`(?i)CAS\s+Number\s*[:.]\s*([0-9\-]+)`),
		regexp.MustCompile(`(?i)CAS\s+No\.?\s*[:.]?\s*\[?([0-9\-]+)\]?`),
		regexp.MustCompile(`(?i)CAS\s*[:.]\s*([0-9\-]+)`),
	},
	"batch_number": {
		regexp.MustCompile(`(?i)Batch\s+(?:Number|No\.?|#)\s*[:.]\s*([A-Za-z0-9\-/]+)`),
		regexp.MustCompile(`(?i)Lot\s+(?:Number|No\.?|#)\s*[:.]\s*([A-Za-z0-9\-/]+)`),
	},
	"density": {
		regexp.MustCompile(`(?i)(?:Density|Specific\s+Gravity)\s*[:.]\s*([\d.,]+\s*(?:g/cm3|g/cm³|kg/m3|g/mL))`),
	},
	"viscosity": {
		regexp.MustCompile(`(?i)Viscosity\s*[:.]\s*([\d.,]+\s*(?:mPas|mPa\.s|cP|Pa\.s))`),
	},
	"flash_point": {
		regexp.MustCompile(`(?i)Flash\s+point\s*[:.]\s*([\d.,\-]+\s*°?\s*[CF])`),
	},
	"purity": {
		regexp.MustCompile(`(?i)(?:Purity|Assay)\s*[:.]\s*([\d.]+\s*%)`),
		regexp.MustCompile(`(?i)Certified\s+purity\s*[:.]?\s*([\d.]+\s*[±+\-]\s*[\d.]+\s*%)`),
		regexp.MustCompile(`(?i)Det\.\s+Purity\s*[:.]?\s*([\d.]+\s*[±+\-]\s*[\d.]+\s*%)`),
	},
	"appearance": {
		regexp.MustCompile(`(?i)Appearance\s*[:.]\s*([^\n]+)`),
	},
	"formula": {
		regexp.MustCompile(`(?i)(?:Mol(?:ecular)?\s+)?Formula\s*[:.]\s*([A-Za-z0-9]+)`),
	},
	"molecular_weight": {
		regexp.MustCompile(`(?i)Mol(?:ecular)?\.?\s+Weight\s*[:.]\s*([\d.]+)`),
	},
	"release_date": {
		regexp.MustCompile(`(?i)Quality\s+Release\s+Date\s*[:.]\s*([^\n]+)`),
		regexp.MustCompile(`(?i)(?:Release\s+Date|Date\s+of\s+Release|Date\s+of\s+Analysis)\s*[:.]\s*([^\n]+)`),
	},
	"expiry_date": {
		regexp.MustCompile(`(?i)Expiry\s+Date\s*[:.]\s*([^\n]+)`),
	},
	"storage_conditions": {
		regexp.MustCompile(`(?i)Storage(?:\s+conditions?)?\s*[:.]\s*([^\n]+)`),
	},
	"manufacturer": {
		regexp.MustCompile(`(?i)(?:Manufacturer|Supplier|Company)(?:\s+name)?\s*[:.]\s*([^\n]+)`),
	},
	"product_number": {
		regexp.MustCompile(`(?i)Product\s+(?:Number|No\.?)\s*[:.]\s*([A-Za-z0-9\-]+)`),
		regexp.MustCompile(`(?i)Cat(?:alog)?\s+Number\s*[:.]\s*([A-Za-z0-9\-]+)`),
	},
	"emergency_contact": {
		regexp.MustCompile(`(?i)Emergency\s+(?:telephone|phone|contact)(?:\s+number)?\s*[.:]?\s*([0-9()\s\-+]{7,20})`),
	},
}

// LibraryFields returns the field names the static library knows about, in
// stable order.
func LibraryFields() []string {
	fields := make([]string, 0, len(fieldLibrary))
	for f := range fieldLibrary {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// LibraryMatch tries the static pattern set for one field against text and
// returns the first capture, in priority order.
func LibraryMatch(field, text string) (string, bool) {
	for _, re := range fieldLibrary[field] {
		if m := re.FindStringSubmatch(text); m != nil && trimmedGroup(m) != "" {
			return trimmedGroup(m), true
		}
	}
	return "", false
}

// Per-type indicator patterns for heuristic classification. Match counts are
// compared across types; the confidence denominator is the list length.
var typeIndicators = map[domain.DocumentType][]*regexp.Regexp{
	domain.DocTypeSDS: {
		regexp.MustCompile(`(?i)safety\s+data\s+sheet`),
		regexp.MustCompile(`(?i)hazard(?:s)?\s+identification`),
		regexp.MustCompile(`(?i)first[\s-]aid\s+measures`),
		regexp.MustCompile(`(?i)\bGHS\b`),
		regexp.MustCompile(`(?i)precautionary\s+statement`),
		regexp.MustCompile(`\bH\d{3}\b`),
		regexp.MustCompile(`(?i)section\s+\d{1,2}`),
	},
	domain.DocTypeTDS: {
		regexp.MustCompile(`(?i)technical\s+data\s+sheet`),
		regexp.MustCompile(`(?i)technical\s+(?:properties|data|information)`),
		regexp.MustCompile(`(?i)typical\s+(?:properties|values)`),
		regexp.MustCompile(`(?i)applications?\b`),
		regexp.MustCompile(`(?i)processing\s+(?:conditions|guidelines)`),
	},
	domain.DocTypeCOA: {
		regexp.MustCompile(`(?i)certificate\s+of\s+analysis`),
		regexp.MustCompile(`(?i)test\s+results?`),
		regexp.MustCompile(`(?i)specifications?\b`),
		regexp.MustCompile(`(?i)(?:batch|lot)\s+(?:number|no)`),
		regexp.MustCompile(`(?i)(?:purity|assay)`),
		regexp.MustCompile(`(?i)CAS\s+(?:number|no)`),
	},
}

// Candidate labels handed to the optional zero-shot classifier, and their
// mapping back into the internal enumeration.
var zeroShotLabels = []string{
	"Safety Data Sheet",
	"Technical Data Sheet",
	"Certificate of Analysis",
	"Unknown Document",
}

var labelToDocType = map[string]domain.DocumentType{
	"Safety Data Sheet":       domain.DocTypeSDS,
	"Technical Data Sheet":    domain.DocTypeTDS,
	"Certificate of Analysis": domain.DocTypeCOA,
	"Unknown Document":        domain.DocTypeUnknown,
}

// trimmedGroup returns the first non-empty capture. Alternation-combined
// learned patterns carry one capture group per branch and only the matching
// branch's group is populated.
func trimmedGroup(m []string) string {
	for _, g := range m[1:] {
		if v := trimValue(g); v != "" {
			return v
		}
	}
	return ""
}
