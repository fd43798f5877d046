package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
	"github.com/kirillkom/chemdoc-processor/internal/core/engine"
	"github.com/kirillkom/chemdoc-processor/internal/core/model"
	"github.com/kirillkom/chemdoc-processor/internal/core/ports"
)

// ProcessOptions are the confidence thresholds of the processing pipeline.
// Zero values fall back to the defaults.
type ProcessOptions struct {
	COASpecialization float64
	Similarity        float64
	AutoTrain         float64
}

const (
	defaultCOAThreshold        = 0.7
	defaultSimilarityThreshold = 0.7
	defaultAutoTrainThreshold  = 0.8
)

type ProcessDocumentUseCase struct {
	store      *model.Store
	classifier *engine.Classifier
	extractor  *engine.Extractor
	trainer    *TrainModelUseCase
	repo       ports.DocumentRepository
	text       ports.TextExtractor
	logger     *slog.Logger

	coaThreshold        float64
	similarityThreshold float64
	autoTrainThreshold  float64
}

func NewProcessDocumentUseCase(
	store *model.Store,
	classifier *engine.Classifier,
	extractor *engine.Extractor,
	trainer *TrainModelUseCase,
	repo ports.DocumentRepository,
	text ports.TextExtractor,
	opts ProcessOptions,
	logger *slog.Logger,
) *ProcessDocumentUseCase {
	if opts.COASpecialization <= 0 {
		opts.COASpecialization = defaultCOAThreshold
	}
	if opts.Similarity <= 0 {
		opts.Similarity = defaultSimilarityThreshold
	}
	if opts.AutoTrain <= 0 {
		opts.AutoTrain = defaultAutoTrainThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessDocumentUseCase{
		store:               store,
		classifier:          classifier,
		extractor:           extractor,
		trainer:             trainer,
		repo:                repo,
		text:                text,
		logger:              logger,
		coaThreshold:        opts.COASpecialization,
		similarityThreshold: opts.Similarity,
		autoTrainThreshold:  opts.AutoTrain,
	}
}

// ProcessText runs the full extraction pipeline over raw text: classify,
// segment, extract, the certificate fast path when it applies, opportunistic
// auto-training, and transfer hints from structurally similar documents.
// Empty input yields an unknown result with zero confidence, not an error.
func (uc *ProcessDocumentUseCase) ProcessText(ctx context.Context, text string) (*domain.ExtractionResult, error) {
	result := &domain.ExtractionResult{
		DocumentType: domain.DocTypeUnknown,
		Entities:     domain.Entities{},
		Sections:     map[string]domain.Section{},
	}
	if strings.TrimSpace(text) == "" {
		return result, nil
	}

	docType, confidence := uc.classifier.Classify(ctx, text)
	result.DocumentType = docType
	result.Confidence = confidence
	result.FullText = text
	result.Sections = engine.Segment(text, docType)

	schema, _ := uc.store.Schema(docType)
	result.Entities = uc.extractor.Extract(text, docType, schema)

	if docType == domain.DocTypeCOA && confidence > uc.coaThreshold {
		uc.applyCOASpecialization(text, result)
	}

	if docType != domain.DocTypeUnknown && confidence >= uc.autoTrainThreshold && uc.trainer != nil {
		if status := uc.trainer.AutoTrainAllFields(ctx, text, docType); status.Status == domain.StatusError {
			uc.logger.Warn("auto-training skipped", "doc_type", string(docType), "message", status.Message)
		}
	}

	fingerprint := engine.Fingerprint(text)
	result.SimilarDocuments = uc.store.SimilarDocuments(docType, fingerprint, uc.similarityThreshold)

	return result, nil
}

// applyCOASpecialization merges the certificate fast path into the generic
// result. The generic extractor's values are kept; the fast path only fills
// fields it alone found, and contributes the rendered summary.
func (uc *ProcessDocumentUseCase) applyCOASpecialization(text string, result *domain.ExtractionResult) {
	coaEntities, formatted := engine.ProcessCOADocument(text)
	for field, value := range coaEntities {
		if _, ok := result.Entities[field]; !ok {
			result.Entities[field] = value
		}
	}
	result.FormattedOutput = formatted
}

// ProcessByID processes a previously uploaded document: extract its text,
// run the pipeline and persist the outcome, tracking status transitions.
func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	result, err := uc.processPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveExtraction(ctx, documentID, *result); err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return fmt.Errorf("save extraction: %w", err)
	}

	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) (*domain.ExtractionResult, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}

	raw, err := uc.text.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}

	result, err := uc.ProcessText(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("process text: %w", err)
	}
	return result, nil
}
