package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
)

type ingestFake struct{}

func (f ingestFake) Upload(_ context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", io.EOF)
	}

	now := time.Now().UTC()
	return &domain.Document{
		ID:          "doc-1",
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: "doc-1_file.txt",
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

type processorFake struct{}

func (f processorFake) ProcessText(_ context.Context, text string) (*domain.ExtractionResult, error) {
	if strings.TrimSpace(text) == "" {
		return &domain.ExtractionResult{
			DocumentType: domain.DocTypeUnknown,
			Entities:     domain.Entities{},
			Sections:     map[string]domain.Section{},
		}, nil
	}
	return &domain.ExtractionResult{
		DocumentType: domain.DocTypeCOA,
		Confidence:   0.9,
		Entities:     domain.Entities{"batch_number": "AB123"},
		Sections:     map[string]domain.Section{},
		FullText:     text,
	}, nil
}

func (f processorFake) ProcessByID(context.Context, string) error { return nil }

type trainerFake struct{}

func (f trainerFake) TrainWithAnnotations(_ context.Context, docType domain.DocumentType, _ string, annotations domain.Annotations) domain.OpStatus {
	if docType == "" || annotations.Empty() {
		return domain.Failure("document type and annotations are required")
	}
	return domain.Success("trained")
}

func (f trainerFake) TrainFieldExample(_ context.Context, docType domain.DocumentType, field, text, _, _, _ string) domain.OpStatus {
	if docType == "" || field == "" || text == "" {
		return domain.Failure("document type, field and text are required")
	}
	return domain.Success("trained field")
}

func (f trainerFake) AutoTrainAllFields(context.Context, string, domain.DocumentType) domain.OpStatus {
	return domain.Success("auto-trained")
}

type adminFake struct{}

func (f adminFake) Schemas(context.Context) map[domain.DocumentType]domain.Schema {
	return map[domain.DocumentType]domain.Schema{
		domain.DocTypeCOA: {RequiredFields: []string{"product_name"}},
	}
}

func (f adminFake) History(context.Context) []domain.TrainingRecord { return nil }

func (f adminFake) AutoTrainedFields(context.Context) map[domain.DocumentType][]string { return nil }

func (f adminFake) ResetSchema(_ context.Context, docType domain.DocumentType) domain.OpStatus {
	if docType != domain.DocTypeCOA {
		return domain.Failure(fmt.Sprintf("unknown document type %q", docType))
	}
	return domain.Success("schema reset")
}

func (f adminFake) AddRule(context.Context, domain.DocumentType, string, string) domain.OpStatus {
	return domain.Success("rule added")
}

func (f adminFake) ExportConfig(context.Context) ([]byte, error) {
	return []byte(`{"document_schemas":{}}`), nil
}

func (f adminFake) ImportConfig(context.Context, []byte) domain.OpStatus {
	return domain.Success("imported")
}

type readerFake struct{}

func (f readerFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if id != "doc-1" {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %s", id))
	}
	return &domain.Document{ID: "doc-1", Status: domain.StatusReady}, nil
}

func (f readerFake) GetExtraction(_ context.Context, id string) (*domain.ExtractionResult, error) {
	if id != "doc-1" {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get extraction", fmt.Errorf("id %s", id))
	}
	return &domain.ExtractionResult{
		DocumentType: domain.DocTypeCOA,
		Entities:     domain.Entities{"product_name": "Acetone", "purity": "99.5 %"},
	}, nil
}

type recordFake struct{}

func (f recordFake) CreateRecord(context.Context, *domain.ExtractionResult) (*domain.RemoteRecord, error) {
	return &domain.RemoteRecord{ID: "51409", URL: "https://app.alchemy.cloud/tenant-a/record/51409"}, nil
}

type exporterFake struct{}

func (f exporterFake) Export(context.Context, []domain.DocumentExtraction) ([]byte, error) {
	return []byte("workbook"), nil
}

type listRepoFake struct{}

func (f listRepoFake) Create(context.Context, *domain.Document) error { return nil }

func (f listRepoFake) GetByID(context.Context, string) (*domain.Document, error) { return nil, nil }

func (f listRepoFake) UpdateStatus(context.Context, string, domain.DocumentStatus, string) error {
	return nil
}

func (f listRepoFake) SaveExtraction(context.Context, string, domain.ExtractionResult) error {
	return nil
}

func (f listRepoFake) GetExtraction(context.Context, string) (*domain.ExtractionResult, error) {
	return nil, nil
}

func (f listRepoFake) ListExtractions(context.Context, int) ([]domain.DocumentExtraction, error) {
	return []domain.DocumentExtraction{{Document: domain.Document{ID: "doc-1"}}}, nil
}

func newTestHandler(cfg Config) http.Handler {
	return NewRouter(cfg, ingestFake{}, processorFake{}, trainerFake{}, adminFake{},
		readerFake{}, recordFake{}, exporterFake{}, listRepoFake{}).Handler()
}

func TestHealthzEndpoint(t *testing.T) {
	handler := newTestHandler(Config{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestUploadDocumentSuccess(t *testing.T) {
	handler := newTestHandler(Config{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "coa.pdf")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write([]byte("%PDF")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}

	var docResp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&docResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if docResp["id"] != "doc-1" {
		t.Fatalf("unexpected response: %+v", docResp)
	}
}

func TestUploadDocumentMissingMultipartField(t *testing.T) {
	handler := newTestHandler(Config{})

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", bytes.NewBufferString("plain-text"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestExtractTextEndpoint(t *testing.T) {
	handler := newTestHandler(Config{})

	req := httptest.NewRequest(http.MethodPost, "/v1/extract", strings.NewReader(`{"text":"Certificate of Analysis"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var resp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["document_type"] != "coa" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestGetUnknownDocumentReturns404(t *testing.T) {
	handler := newTestHandler(Config{})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestGetDocumentExtraction(t *testing.T) {
	handler := newTestHandler(Config{})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/doc-1/extraction", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "Acetone") {
		t.Fatalf("unexpected body: %s", res.Body.String())
	}
}

func TestTrainFieldValidationSurfacesAs400(t *testing.T) {
	handler := newTestHandler(Config{})

	req := httptest.NewRequest(http.MethodPost, "/v1/train/field", strings.NewReader(`{"doc_type":""}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	var status domain.OpStatus
	if err := json.NewDecoder(res.Body).Decode(&status); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if status.Status != domain.StatusError || status.Message == "" {
		t.Fatalf("expected structured error payload, got %+v", status)
	}
}

func TestResetUnknownSchemaReturns400(t *testing.T) {
	handler := newTestHandler(Config{})

	req := httptest.NewRequest(http.MethodPost, "/v1/model/reset", strings.NewReader(`{"doc_type":"invoice"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestCreateRecordEndpoint(t *testing.T) {
	handler := newTestHandler(Config{})

	req := httptest.NewRequest(http.MethodPost, "/v1/records", strings.NewReader(`{"document_id":"doc-1"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	if !strings.Contains(res.Body.String(), "51409") {
		t.Fatalf("unexpected body: %s", res.Body.String())
	}
}

func TestExportXLSXSetsAttachmentHeaders(t *testing.T) {
	handler := newTestHandler(Config{})

	req := httptest.NewRequest(http.MethodGet, "/v1/export/xlsx", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if ct := res.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheet") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if res.Body.String() != "workbook" {
		t.Fatalf("unexpected body: %s", res.Body.String())
	}
}
