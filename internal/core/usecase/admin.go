package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
	"github.com/kirillkom/chemdoc-processor/internal/core/model"
)

type ModelAdminUseCase struct {
	store  *model.Store
	logger *slog.Logger
}

func NewModelAdminUseCase(store *model.Store, logger *slog.Logger) *ModelAdminUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelAdminUseCase{store: store, logger: logger}
}

func (uc *ModelAdminUseCase) Schemas(context.Context) map[domain.DocumentType]domain.Schema {
	return uc.store.Schemas()
}

func (uc *ModelAdminUseCase) History(context.Context) []domain.TrainingRecord {
	return uc.store.History()
}

func (uc *ModelAdminUseCase) AutoTrainedFields(context.Context) map[domain.DocumentType][]string {
	return uc.store.AutoTrained()
}

// ResetSchema removes a document type's learned state entirely. History
// entries for the type stay for audit.
func (uc *ModelAdminUseCase) ResetSchema(ctx context.Context, docType domain.DocumentType) domain.OpStatus {
	if docType == "" {
		return domain.Failure("document type is required")
	}
	if !uc.store.ResetSchema(docType) {
		return domain.Failure(fmt.Sprintf("unknown document type %q", docType))
	}
	if err := uc.store.Save(ctx); err != nil {
		return domain.Failure(fmt.Sprintf("schema reset but not persisted: %v", err))
	}
	return domain.Success(fmt.Sprintf("schema for %s reset", docType))
}

// AddRule merges an explicit extraction pattern for a (type, field). The
// pattern must compile; it is alternation-combined with any existing one.
func (uc *ModelAdminUseCase) AddRule(ctx context.Context, docType domain.DocumentType, field, pattern string) domain.OpStatus {
	if docType == "" || strings.TrimSpace(field) == "" || strings.TrimSpace(pattern) == "" {
		return domain.Failure("document type, field and pattern are required")
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return domain.Failure(fmt.Sprintf("pattern does not compile: %v", err))
	}

	uc.store.AddRequiredField(docType, field)
	if _, err := uc.store.LearnPattern(docType, field, pattern); err != nil {
		return domain.Failure(fmt.Sprintf("pattern not merged: %v", err))
	}
	uc.store.AppendHistory(domain.TrainingRecord{
		Timestamp: time.Now().UTC(),
		DocType:   docType,
		Fields:    []string{field},
		Action:    domain.ActionAddRule,
		Pattern:   pattern,
	})
	if err := uc.store.Save(ctx); err != nil {
		return domain.Failure(fmt.Sprintf("rule added but not persisted: %v", err))
	}
	return domain.Success(fmt.Sprintf("rule added for %s/%s", docType, field))
}

func (uc *ModelAdminUseCase) ExportConfig(context.Context) ([]byte, error) {
	return uc.store.Export()
}

// ImportConfig replaces schemas, patterns, history and auto-trained state
// with the interchange payload and persists immediately.
func (uc *ModelAdminUseCase) ImportConfig(ctx context.Context, data []byte) domain.OpStatus {
	if len(data) == 0 {
		return domain.Failure("no configuration provided")
	}
	if err := uc.store.Import(data); err != nil {
		return domain.Failure(fmt.Sprintf("import failed: %v", err))
	}
	if err := uc.store.Save(ctx); err != nil {
		return domain.Failure(fmt.Sprintf("imported but not persisted: %v", err))
	}
	return domain.Success("model configuration imported")
}
