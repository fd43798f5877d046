package domain

import "time"

type DocumentType string

const (
	DocTypeSDS     DocumentType = "sds"
	DocTypeTDS     DocumentType = "tds"
	DocTypeCOA     DocumentType = "coa"
	DocTypeUnknown DocumentType = "unknown"
)

// BuiltinDocumentTypes lists the types shipped with the default schemas.
// Training can add further types at runtime.
var BuiltinDocumentTypes = []DocumentType{DocTypeSDS, DocTypeTDS, DocTypeCOA}

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Document is the metadata record for an uploaded source document.
type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	DocType     DocumentType   `json:"doc_type,omitempty"`
	Confidence  float64        `json:"confidence,omitempty"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Section is one structural region sliced out of a document.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// TestResult is one row of a certificate's results table.
type TestResult struct {
	Specification string `json:"specification"`
	Result        string `json:"result"`
}

// Entities maps field names to extracted values. Values are strings for
// scalar fields, []string for code lists (hazard codes), and
// map[string]TestResult under the "test_results" key.
type Entities map[string]any

// TestResults returns the parsed results table, if any.
func (e Entities) TestResults() (map[string]TestResult, bool) {
	table, ok := e["test_results"].(map[string]TestResult)
	return table, ok
}

// SimilarDocument is an advisory transfer-learning hint: a field value seen
// on a structurally similar prior document. Never merged into Entities.
type SimilarDocument struct {
	Field      string    `json:"field"`
	Value      string    `json:"value"`
	Similarity float64   `json:"similarity"`
	SeenAt     time.Time `json:"seen_at"`
}

// ExtractionResult is the transient output of one processing call.
type ExtractionResult struct {
	DocumentType     DocumentType       `json:"document_type"`
	Confidence       float64            `json:"confidence"`
	Entities         Entities           `json:"entities"`
	Sections         map[string]Section `json:"sections"`
	FullText         string             `json:"full_text"`
	FormattedOutput  string             `json:"formatted_output,omitempty"`
	SimilarDocuments []SimilarDocument  `json:"similar_documents,omitempty"`
}

// DocumentExtraction pairs a stored document with its persisted result.
type DocumentExtraction struct {
	Document Document         `json:"document"`
	Result   ExtractionResult `json:"result"`
}

// RemoteRecord identifies a record created in an external system.
type RemoteRecord struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// OpStatus is the structured payload returned by training and model
// management operations. Input problems surface here, not as Go errors.
type OpStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

const (
	StatusOK      = "success"
	StatusWarning = "warning"
	StatusError   = "error"
)

func Success(message string) OpStatus {
	return OpStatus{Status: StatusOK, Message: message}
}

func Warning(message string) OpStatus {
	return OpStatus{Status: StatusWarning, Message: message}
}

func Failure(message string) OpStatus {
	return OpStatus{Status: StatusError, Message: message}
}
