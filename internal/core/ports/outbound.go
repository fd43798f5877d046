package ports

import (
	"context"
	"io"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
)

// ModelStateStore persists the learning state as a single blob.
type ModelStateStore interface {
	Load(ctx context.Context) (*domain.ModelState, error)
	Save(ctx context.Context, state *domain.ModelState) error
}

// ZeroShotClassifier is the optional external classification fallback. A nil
// implementation is a valid substitute.
type ZeroShotClassifier interface {
	Classify(ctx context.Context, text string, labels []string) (label string, score float64, err error)
}

// DocumentRepository persists document metadata and extraction results.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveExtraction(ctx context.Context, id string, result domain.ExtractionResult) error
	GetExtraction(ctx context.Context, id string) (*domain.ExtractionResult, error)
	ListExtractions(ctx context.Context, limit int) ([]domain.DocumentExtraction, error)
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes upload events.
type MessageQueue interface {
	PublishDocumentUploaded(ctx context.Context, documentID string) error
	SubscribeDocumentUploaded(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// RecordCreator pushes an extraction result into an external record system.
type RecordCreator interface {
	CreateRecord(ctx context.Context, result *domain.ExtractionResult) (*domain.RemoteRecord, error)
}

// ResultExporter renders stored extractions into a downloadable report.
type ResultExporter interface {
	Export(ctx context.Context, items []domain.DocumentExtraction) ([]byte, error)
}
