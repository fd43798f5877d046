package domain

import "time"

// Schema describes what the engine expects from one document type: which
// fields are required and which section names are known. Fields learned by
// discovery rather than a human appear in the type's auto-trained set.
type Schema struct {
	RequiredFields []string `json:"required_fields"`
	Sections       []string `json:"sections,omitempty"`
}

// HasField reports whether name is already in the required-fields set.
func (s *Schema) HasField(name string) bool {
	for _, f := range s.RequiredFields {
		if f == name {
			return true
		}
	}
	return false
}

type TrainingAction string

const (
	ActionAutoTrain   TrainingAction = "auto_train"
	ActionManualTrain TrainingAction = "manual_train"
	ActionAddRule     TrainingAction = "add_rule"
	ActionResetSchema TrainingAction = "reset_schema"
)

// TrainingRecord is one immutable entry of the append-only training history.
type TrainingRecord struct {
	Timestamp time.Time      `json:"timestamp"`
	DocType   DocumentType   `json:"doc_type"`
	Fields    []string       `json:"fields,omitempty"`
	Action    TrainingAction `json:"action"`
	Pattern   string         `json:"pattern,omitempty"`
	Value     string         `json:"value,omitempty"`
}

// FieldExample is one recorded training instance for a (type, field) pair,
// kept for fingerprint-based transfer to similar documents. Append-only.
type FieldExample struct {
	Value       string    `json:"value"`
	Fingerprint string    `json:"fingerprint"`
	Timestamp   time.Time `json:"timestamp"`
	Context     string    `json:"context,omitempty"`
}

// ModelState is the whole persisted learning state. It is saved as a single
// blob after every successful mutation.
type ModelState struct {
	Schemas       map[DocumentType]*Schema                   `json:"document_schemas"`
	FieldPatterns map[DocumentType]map[string]string         `json:"field_patterns"`
	Examples      map[DocumentType]map[string][]FieldExample `json:"document_examples"`
	AutoTrained   map[DocumentType][]string                  `json:"auto_trained_fields"`
	History       []TrainingRecord                           `json:"training_history"`
}

// Clone returns a deep copy that can be serialized while the original keeps
// mutating under its own lock.
func (st *ModelState) Clone() *ModelState {
	out := &ModelState{
		Schemas:       make(map[DocumentType]*Schema, len(st.Schemas)),
		FieldPatterns: make(map[DocumentType]map[string]string, len(st.FieldPatterns)),
		Examples:      make(map[DocumentType]map[string][]FieldExample, len(st.Examples)),
		AutoTrained:   make(map[DocumentType][]string, len(st.AutoTrained)),
		History:       make([]TrainingRecord, len(st.History)),
	}
	for docType, schema := range st.Schemas {
		out.Schemas[docType] = &Schema{
			RequiredFields: append([]string(nil), schema.RequiredFields...),
			Sections:       append([]string(nil), schema.Sections...),
		}
	}
	for docType, patterns := range st.FieldPatterns {
		cp := make(map[string]string, len(patterns))
		for field, p := range patterns {
			cp[field] = p
		}
		out.FieldPatterns[docType] = cp
	}
	for docType, fields := range st.Examples {
		cp := make(map[string][]FieldExample, len(fields))
		for field, examples := range fields {
			cp[field] = append([]FieldExample(nil), examples...)
		}
		out.Examples[docType] = cp
	}
	for docType, fields := range st.AutoTrained {
		out.AutoTrained[docType] = append([]string(nil), fields...)
	}
	for i, record := range st.History {
		record.Fields = append([]string(nil), record.Fields...)
		out.History[i] = record
	}
	return out
}

func NewModelState() *ModelState {
	return &ModelState{
		Schemas:       make(map[DocumentType]*Schema),
		FieldPatterns: make(map[DocumentType]map[string]string),
		Examples:      make(map[DocumentType]map[string][]FieldExample),
		AutoTrained:   make(map[DocumentType][]string),
		History:       []TrainingRecord{},
	}
}

// DefaultSchemas returns the hand-authored schemas for the built-in types.
func DefaultSchemas() map[DocumentType]*Schema {
	return map[DocumentType]*Schema{
		DocTypeSDS: {
			RequiredFields: []string{"product_name", "manufacturer", "emergency_contact"},
			Sections: []string{
				"Identification", "Hazards Identification", "Composition",
				"First-Aid Measures", "Fire-Fighting Measures", "Accidental Release",
				"Handling and Storage", "Exposure Controls", "Physical Properties",
				"Stability and Reactivity", "Toxicological Information",
				"Ecological Information", "Disposal Considerations",
			},
		},
		DocTypeTDS: {
			RequiredFields: []string{"product_name", "manufacturer", "density"},
			Sections: []string{
				"Product Description", "Features", "Applications",
				"Technical Data", "Processing", "Storage", "Packaging",
			},
		},
		DocTypeCOA: {
			RequiredFields: []string{"product_name", "batch_number", "test_results"},
			Sections:       []string{"Product Information", "Test Results", "Specifications"},
		},
	}
}

// Annotations is the bundle form of a training call: literal field values
// observed on one document, plus optional explicit extraction patterns.
type Annotations struct {
	FieldMappings      map[string]string `json:"field_mappings,omitempty"`
	ExtractionPatterns map[string]string `json:"extraction_patterns,omitempty"`
}

// Empty reports whether the bundle carries nothing trainable.
func (a Annotations) Empty() bool {
	return len(a.FieldMappings) == 0 && len(a.ExtractionPatterns) == 0
}
