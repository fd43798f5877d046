package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
	"github.com/kirillkom/chemdoc-processor/internal/core/ports"
)

type DocumentReaderUseCase struct {
	repo ports.DocumentRepository
}

func NewDocumentReaderUseCase(repo ports.DocumentRepository) *DocumentReaderUseCase {
	return &DocumentReaderUseCase{repo: repo}
}

func (uc *DocumentReaderUseCase) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return doc, nil
}

func (uc *DocumentReaderUseCase) GetExtraction(ctx context.Context, id string) (*domain.ExtractionResult, error) {
	result, err := uc.repo.GetExtraction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch extraction by id: %w", err)
	}
	return result, nil
}
