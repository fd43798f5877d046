package engine

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
)

var sdsHeadingRe = regexp.MustCompile(`(?i)(?:section)?\s*(\d{1,2})[.:)\s]+\s*([^0-9\n]{2,50})`)

var (
	tdsPropertiesRe   = regexp.MustCompile(`(?is)(Technical\s+(?:Data|Properties|Information).*?)(?:Application|Storage|Notes|Disclaimer)`)
	tdsApplicationsRe = regexp.MustCompile(`(?is)((?:Applications?|Uses?|Recommended\s+for).*?)(?:Storage|Handling|Notes|Disclaimer)`)
)

// COA sections are located with a first-match-wins cascade: each logical
// section has alternative patterns in priority order and the first that
// matches wins; no match leaves the key unset.
var coaSectionCascade = []struct {
	key      string
	title    string
	patterns []*regexp.Regexp
}{
	{
		key:   "test_results",
		title: "Test Results",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?is)(Test\s+Results?.*?)(?:Specifications?|Product\s+Information|$)`),
			regexp.MustCompile(`(?is)(Test\s+Specification\s+Result.*?)(?:Recommended\s+Retest|Quality\s+Control|$)`),
			regexp.MustCompile(`(?is)(Analytical\s+(?:Data|Results).*?)(?:Specifications?|$)`),
		},
	},
	{
		key:   "specifications",
		title: "Specifications",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?is)(Specifications?\b.*?)(?:Test\s+Results?|Product\s+Information|$)`),
			regexp.MustCompile(`(?is)(Release\s+(?:Limits|Specifications).*?)(?:Test\s+Results?|$)`),
		},
	},
	{
		key:   "product_information",
		title: "Product Information",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?is)(Product\s+Information.*?)(?:Test\s+Results?|Specifications?|$)`),
			regexp.MustCompile(`(?is)(Product\s+(?:Details|Description).*?)(?:Test\s+Results?|$)`),
		},
	},
}

// Segment slices document-type-specific structural regions out of raw text.
// Empty input yields an empty mapping.
func Segment(text string, docType domain.DocumentType) map[string]domain.Section {
	sections := make(map[string]domain.Section)
	if strings.TrimSpace(text) == "" {
		return sections
	}

	switch docType {
	case domain.DocTypeSDS:
		segmentSDS(text, sections)
	case domain.DocTypeTDS:
		segmentTDS(text, sections)
	case domain.DocTypeCOA:
		segmentCOA(text, sections)
	}
	return sections
}

// segmentSDS locates the standardized numbered headings (1-16), sorts them
// by position and slices each section's content up to the next heading.
func segmentSDS(text string, sections map[string]domain.Section) {
	type heading struct {
		number int
		title  string
		start  int
	}

	var headings []heading
	for _, m := range sdsHeadingRe.FindAllStringSubmatchIndex(text, -1) {
		number, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil || number < 1 || number > 16 {
			continue
		}
		headings = append(headings, heading{
			number: number,
			title:  strings.TrimSpace(text[m[4]:m[5]]),
			start:  m[0],
		})
	}

	sort.SliceStable(headings, func(i, j int) bool { return headings[i].start < headings[j].start })

	for i, h := range headings {
		end := len(text)
		if i+1 < len(headings) {
			end = headings[i+1].start
		}
		sections[fmt.Sprintf("section_%d", h.number)] = domain.Section{
			Title:   h.title,
			Content: strings.TrimSpace(text[h.start:end]),
		}
	}
}

// segmentTDS applies two independent greedy regions; either, both, or
// neither may be present.
func segmentTDS(text string, sections map[string]domain.Section) {
	if m := tdsPropertiesRe.FindStringSubmatch(text); m != nil {
		sections["technical_properties"] = domain.Section{
			Title:   "Technical Properties",
			Content: strings.TrimSpace(m[1]),
		}
	}
	if m := tdsApplicationsRe.FindStringSubmatch(text); m != nil {
		sections["applications"] = domain.Section{
			Title:   "Applications",
			Content: strings.TrimSpace(m[1]),
		}
	}
}

func segmentCOA(text string, sections map[string]domain.Section) {
	for _, entry := range coaSectionCascade {
		for _, re := range entry.patterns {
			m := re.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			sections[entry.key] = domain.Section{
				Title:   entry.title,
				Content: strings.TrimSpace(m[1]),
			}
			break
		}
	}
}
