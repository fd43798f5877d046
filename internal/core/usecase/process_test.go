package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
	"github.com/kirillkom/chemdoc-processor/internal/core/engine"
	"github.com/kirillkom/chemdoc-processor/internal/core/model"
)

type statusCall struct {
	status domain.DocumentStatus
	errMsg string
}

type repoFake struct {
	doc         *domain.Document
	getErr      error
	saveErr     error
	statusCalls []statusCall
	savedID     string
	saved       *domain.ExtractionResult
}

func (f *repoFake) Create(context.Context, *domain.Document) error { return nil }

func (f *repoFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copyDoc := *f.doc
	return &copyDoc, nil
}

func (f *repoFake) UpdateStatus(_ context.Context, _ string, status domain.DocumentStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	return nil
}

func (f *repoFake) SaveExtraction(_ context.Context, id string, result domain.ExtractionResult) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedID = id
	f.saved = &result
	return nil
}

func (f *repoFake) GetExtraction(context.Context, string) (*domain.ExtractionResult, error) {
	return f.saved, nil
}

func (f *repoFake) ListExtractions(context.Context, int) ([]domain.DocumentExtraction, error) {
	return nil, nil
}

type textExtractorFake struct {
	text string
	err  error
}

func (f *textExtractorFake) Extract(context.Context, *domain.Document) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func newProcessUseCase(repo *repoFake, text *textExtractorFake) (*ProcessDocumentUseCase, *model.Store) {
	store := model.NewStore(nil, 0, nil)
	trainer := NewTrainModelUseCase(store, nil)
	uc := NewProcessDocumentUseCase(
		store,
		engine.NewClassifier(nil, 0, nil),
		engine.NewExtractor(store, nil),
		trainer,
		repo,
		text,
		ProcessOptions{},
		nil,
	)
	return uc, store
}

const certificateText = `Certificate of Analysis
Test Results
CAS Number: 67-64-1
Batch Number: AB123
Appearance: Colorless liquid`

func TestProcessTextEmptyInput(t *testing.T) {
	uc, _ := newProcessUseCase(&repoFake{}, &textExtractorFake{})

	result, err := uc.ProcessText(context.Background(), "")
	if err != nil {
		t.Fatalf("ProcessText() error = %v", err)
	}
	if result.DocumentType != domain.DocTypeUnknown {
		t.Fatalf("expected unknown type, got %s", result.DocumentType)
	}
	if result.Confidence != 0.0 {
		t.Fatalf("expected zero confidence, got %f", result.Confidence)
	}
	if len(result.Entities) != 0 || len(result.Sections) != 0 {
		t.Fatalf("expected empty entities and sections, got %v / %v", result.Entities, result.Sections)
	}
}

func TestProcessTextCertificateEntities(t *testing.T) {
	uc, _ := newProcessUseCase(&repoFake{}, &textExtractorFake{})

	result, err := uc.ProcessText(context.Background(), certificateText)
	if err != nil {
		t.Fatalf("ProcessText() error = %v", err)
	}
	if result.DocumentType != domain.DocTypeCOA {
		t.Fatalf("expected coa, got %s", result.DocumentType)
	}
	want := map[string]string{
		"cas_number":   "67-64-1",
		"batch_number": "AB123",
		"lot_number":   "AB123",
		"appearance":   "Colorless liquid",
	}
	for field, value := range want {
		if got, _ := result.Entities[field].(string); got != value {
			t.Fatalf("entities[%q] = %q, want %q", field, got, value)
		}
	}
}

func TestProcessTextCOASpecialization(t *testing.T) {
	uc, _ := newProcessUseCase(&repoFake{}, &textExtractorFake{})
	text := `Certificate of Analysis
Specifications and Test Results
Product Number: 320331
Batch Number: AB123
CAS Number: 67-64-1
Purity: 99.5 %`

	result, err := uc.ProcessText(context.Background(), text)
	if err != nil {
		t.Fatalf("ProcessText() error = %v", err)
	}
	if result.DocumentType != domain.DocTypeCOA || result.Confidence <= 0.7 {
		t.Fatalf("expected confident coa, got %s/%f", result.DocumentType, result.Confidence)
	}
	if got, _ := result.Entities["product_number"].(string); got != "320331" {
		t.Fatalf("entities[product_number] = %q, want 320331", got)
	}
	if !strings.Contains(result.FormattedOutput, "## Product Information") {
		t.Fatalf("expected formatted certificate summary, got %q", result.FormattedOutput)
	}
}

func TestProcessTextUsesLearnedPattern(t *testing.T) {
	uc, store := newProcessUseCase(&repoFake{}, &textExtractorFake{})
	text := certificateText + "\nMDL Number: MFCD00000000"

	trainer := NewTrainModelUseCase(store, nil)
	status := trainer.TrainFieldExample(context.Background(), domain.DocTypeCOA, "mdl_number", text, "MFCD00000000", "", "")
	if status.Status != domain.StatusOK {
		t.Fatalf("training failed: %+v", status)
	}

	result, err := uc.ProcessText(context.Background(), text)
	if err != nil {
		t.Fatalf("ProcessText() error = %v", err)
	}
	if got, _ := result.Entities["mdl_number"].(string); got != "MFCD00000000" {
		t.Fatalf("entities[mdl_number] = %q, want MFCD00000000", got)
	}

	found := false
	for _, hint := range result.SimilarDocuments {
		if hint.Field == "mdl_number" && hint.Similarity == 1.0 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a transfer hint for mdl_number, got %v", result.SimilarDocuments)
	}
}

func TestProcessByIDSuccess(t *testing.T) {
	repo := &repoFake{doc: &domain.Document{ID: "doc-1"}}
	uc, _ := newProcessUseCase(repo, &textExtractorFake{text: certificateText})

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if len(repo.statusCalls) != 2 {
		t.Fatalf("expected 2 status calls, got %d", len(repo.statusCalls))
	}
	if repo.statusCalls[0].status != domain.StatusProcessing || repo.statusCalls[1].status != domain.StatusReady {
		t.Fatalf("unexpected status sequence: %+v", repo.statusCalls)
	}
	if repo.savedID != "doc-1" || repo.saved == nil {
		t.Fatalf("expected extraction save for doc-1")
	}
	if repo.saved.DocumentType != domain.DocTypeCOA {
		t.Fatalf("expected coa extraction, got %s", repo.saved.DocumentType)
	}
}

func TestProcessByIDMarksFailedOnExtractError(t *testing.T) {
	repo := &repoFake{doc: &domain.Document{ID: "doc-1"}}
	uc, _ := newProcessUseCase(repo, &textExtractorFake{err: errors.New("extract fail")})

	if err := uc.ProcessByID(context.Background(), "doc-1"); err == nil {
		t.Fatalf("expected error")
	}
	if len(repo.statusCalls) != 2 || repo.statusCalls[1].status != domain.StatusFailed {
		t.Fatalf("expected processing + failed statuses, got %+v", repo.statusCalls)
	}
}

func TestProcessByIDRejectsEmptyText(t *testing.T) {
	repo := &repoFake{doc: &domain.Document{ID: "doc-1"}}
	uc, _ := newProcessUseCase(repo, &textExtractorFake{text: "   "})

	err := uc.ProcessByID(context.Background(), "doc-1")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if repo.statusCalls[len(repo.statusCalls)-1].status != domain.StatusFailed {
		t.Fatalf("expected failed status, got %+v", repo.statusCalls)
	}
}
