package extractor

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
	"github.com/kirillkom/chemdoc-processor/internal/core/ports"
)

// Dispatcher routes extraction to the adapter matching the document format.
type Dispatcher struct {
	pdf   ports.TextExtractor
	plain ports.TextExtractor
}

func NewDispatcher(pdf, plain ports.TextExtractor) *Dispatcher {
	return &Dispatcher{pdf: pdf, plain: plain}
}

func (d *Dispatcher) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	if isPDF(doc) {
		return d.pdf.Extract(ctx, doc)
	}
	return d.plain.Extract(ctx, doc)
}

func isPDF(doc *domain.Document) bool {
	if strings.EqualFold(doc.MimeType, "application/pdf") {
		return true
	}
	return strings.EqualFold(filepath.Ext(doc.Filename), ".pdf")
}
