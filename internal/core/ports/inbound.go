package ports

import (
	"context"
	"io"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for extraction: synchronous over
// raw text and asynchronous over a previously uploaded document.
type DocumentProcessor interface {
	ProcessText(ctx context.Context, text string) (*domain.ExtractionResult, error)
	ProcessByID(ctx context.Context, documentID string) error
}

// ModelTrainer is the inbound contract for the training operations. Input
// problems surface in the returned status payload, not as errors.
type ModelTrainer interface {
	TrainWithAnnotations(ctx context.Context, docType domain.DocumentType, text string, annotations domain.Annotations) domain.OpStatus
	TrainFieldExample(ctx context.Context, docType domain.DocumentType, field, exampleText, value, contextBefore, contextAfter string) domain.OpStatus
	AutoTrainAllFields(ctx context.Context, text string, docType domain.DocumentType) domain.OpStatus
}

// ModelAdmin is the inbound contract for model inspection and management.
type ModelAdmin interface {
	Schemas(ctx context.Context) map[domain.DocumentType]domain.Schema
	History(ctx context.Context) []domain.TrainingRecord
	AutoTrainedFields(ctx context.Context) map[domain.DocumentType][]string
	ResetSchema(ctx context.Context, docType domain.DocumentType) domain.OpStatus
	AddRule(ctx context.Context, docType domain.DocumentType, field, pattern string) domain.OpStatus
	ExportConfig(ctx context.Context) ([]byte, error)
	ImportConfig(ctx context.Context, data []byte) domain.OpStatus
}

// DocumentReader is the inbound read model for document metadata and results.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	GetExtraction(ctx context.Context, id string) (*domain.ExtractionResult, error)
}
