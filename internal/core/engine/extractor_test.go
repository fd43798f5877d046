package engine

import (
	"errors"
	"regexp"
	"testing"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
)

type patternSourceFake struct {
	patterns map[string]*regexp.Regexp
	errs     map[string]error
}

func (f *patternSourceFake) CompiledPattern(_ domain.DocumentType, field string) (*regexp.Regexp, bool, error) {
	if err := f.errs[field]; err != nil {
		return nil, false, err
	}
	re, ok := f.patterns[field]
	return re, ok, nil
}

func coaSchema() domain.Schema {
	return *domain.DefaultSchemas()[domain.DocTypeCOA]
}

func TestExtractCertificateFields(t *testing.T) {
	x := NewExtractor(nil, nil)
	text := "CAS Number: 67-64-1\nBatch Number: AB123\nAppearance: Colorless liquid"

	entities := x.Extract(text, domain.DocTypeCOA, coaSchema())

	want := map[string]string{
		"cas_number":   "67-64-1",
		"batch_number": "AB123",
		"lot_number":   "AB123",
		"appearance":   "Colorless liquid",
	}
	for field, value := range want {
		if got, _ := entities[field].(string); got != value {
			t.Fatalf("entities[%q] = %q, want %q", field, got, value)
		}
	}
	if _, ok := entities["test_results"]; ok {
		t.Fatalf("did not expect a results table: %v", entities)
	}
}

func TestExtractHazardCodes(t *testing.T) {
	x := NewExtractor(nil, nil)
	text := "Hazard statements: H315 Causes skin irritation. H319 Causes eye irritation. H315 repeated."

	entities := x.Extract(text, domain.DocTypeSDS, domain.Schema{})
	codes, ok := entities["hazard_codes"].([]string)
	if !ok {
		t.Fatalf("missing hazard_codes: %v", entities)
	}
	if len(codes) != 2 || codes[0] != "H315" || codes[1] != "H319" {
		t.Fatalf("unexpected codes %v", codes)
	}
}

func TestExtractFixedRuleBeatsLearned(t *testing.T) {
	src := &patternSourceFake{patterns: map[string]*regexp.Regexp{
		"appearance": regexp.MustCompile(`(?i)Look:\s*([^\n]+)`),
	}}
	x := NewExtractor(src, nil)
	text := "Appearance: Clear\nLook: Hazy"
	schema := domain.Schema{RequiredFields: []string{"appearance"}}

	entities := x.Extract(text, domain.DocTypeCOA, schema)
	if got, _ := entities["appearance"].(string); got != "Clear" {
		t.Fatalf("fixed rule should win over learned pattern, got %q", got)
	}
}

func TestExtractLearnedPatternForRequiredField(t *testing.T) {
	src := &patternSourceFake{patterns: map[string]*regexp.Regexp{
		"mdl_number": regexp.MustCompile(`(?i)MDL Number:\s*([^\n]+)`),
	}}
	x := NewExtractor(src, nil)
	schema := domain.Schema{RequiredFields: []string{"mdl_number"}}

	entities := x.Extract("MDL Number: MFCD00011324", domain.DocTypeCOA, schema)
	if got, _ := entities["mdl_number"].(string); got != "MFCD00011324" {
		t.Fatalf("entities[mdl_number] = %q, want MFCD00011324", got)
	}
}

func TestExtractBadLearnedPatternIsIsolated(t *testing.T) {
	src := &patternSourceFake{errs: map[string]error{
		"special_code": errors.New("pattern does not compile"),
	}}
	x := NewExtractor(src, nil)
	schema := domain.Schema{RequiredFields: []string{"special_code", "cas_number"}}

	entities := x.Extract("CAS Number: 67-64-1", domain.DocTypeCOA, schema)
	if _, ok := entities["special_code"]; ok {
		t.Fatalf("broken pattern must not yield a value: %v", entities)
	}
	if got, _ := entities["cas_number"].(string); got != "67-64-1" {
		t.Fatalf("other fields must still be extracted, got %q", got)
	}
}

func TestExtractGenericLabelFallback(t *testing.T) {
	x := NewExtractor(nil, nil)
	schema := domain.Schema{RequiredFields: []string{"storage_temperature"}}

	entities := x.Extract("Storage Temperature: 2-8 C", domain.DocTypeTDS, schema)
	if got, _ := entities["storage_temperature"].(string); got != "2-8 C" {
		t.Fatalf("entities[storage_temperature] = %q, want 2-8 C", got)
	}
}

func TestExtractResultsTable(t *testing.T) {
	x := NewExtractor(nil, nil)

	entities := x.Extract(columnarCertificate, domain.DocTypeCOA, coaSchema())
	table, ok := entities.TestResults()
	if !ok {
		t.Fatalf("missing test_results: %v", entities)
	}
	if table["Purity (GC)"].Result != "99.8 %" {
		t.Fatalf("unexpected table row: %+v", table["Purity (GC)"])
	}
}

func TestExtractEmptyText(t *testing.T) {
	x := NewExtractor(nil, nil)
	if entities := x.Extract("   ", domain.DocTypeCOA, coaSchema()); len(entities) != 0 {
		t.Fatalf("expected no entities, got %v", entities)
	}
}
