package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
	"github.com/kirillkom/chemdoc-processor/internal/core/engine"
	"github.com/kirillkom/chemdoc-processor/internal/core/model"
)

type TrainModelUseCase struct {
	store  *model.Store
	logger *slog.Logger
}

func NewTrainModelUseCase(store *model.Store, logger *slog.Logger) *TrainModelUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrainModelUseCase{store: store, logger: logger}
}

// trainingEvent is the shared internal form both training entry points are
// reduced to before recording.
type trainingEvent struct {
	docType     domain.DocumentType
	action      domain.TrainingAction
	exampleText string
	fields      []string
	patterns    map[string]string
	values      map[string]string
}

// TrainWithAnnotations trains from a full annotation bundle against one
// document: every mapped field gets a synthesized pattern and an example,
// explicit extraction patterns are merged as-is.
func (uc *TrainModelUseCase) TrainWithAnnotations(ctx context.Context, docType domain.DocumentType, text string, annotations domain.Annotations) domain.OpStatus {
	if docType == "" {
		return domain.Failure("document type is required")
	}
	if strings.TrimSpace(text) == "" {
		return domain.Failure("no text provided")
	}
	if annotations.Empty() {
		return domain.Warning("nothing to train: empty annotations")
	}

	ev := trainingEvent{
		docType:     docType,
		action:      domain.ActionManualTrain,
		exampleText: text,
		patterns:    make(map[string]string),
		values:      make(map[string]string),
	}
	for field, value := range annotations.FieldMappings {
		ev.fields = append(ev.fields, field)
		ev.patterns[field] = engine.Synthesize(text, value, "", "")
		ev.values[field] = value
	}
	for field, pattern := range annotations.ExtractionPatterns {
		if _, ok := ev.patterns[field]; !ok {
			ev.fields = append(ev.fields, field)
		}
		ev.patterns[field] = pattern
	}
	sort.Strings(ev.fields)

	return uc.recordTraining(ctx, ev)
}

// TrainFieldExample trains a single (type, field) pair from one example
// value, with optional explicit surrounding context.
func (uc *TrainModelUseCase) TrainFieldExample(ctx context.Context, docType domain.DocumentType, field, exampleText, value, contextBefore, contextAfter string) domain.OpStatus {
	if docType == "" || strings.TrimSpace(field) == "" {
		return domain.Failure("document type and field are required")
	}
	if strings.TrimSpace(exampleText) == "" || strings.TrimSpace(value) == "" {
		return domain.Failure("example text and value are required")
	}

	pattern := engine.Synthesize(exampleText, value, contextBefore, contextAfter)
	return uc.recordTraining(ctx, trainingEvent{
		docType:     docType,
		action:      domain.ActionManualTrain,
		exampleText: exampleText,
		fields:      []string{field},
		patterns:    map[string]string{field: pattern},
		values:      map[string]string{field: value},
	})
}

// AutoTrainAllFields discovers plausible fields in the text and trains all of
// them at once. Nothing is mutated unless at least one field is new.
func (uc *TrainModelUseCase) AutoTrainAllFields(ctx context.Context, text string, docType domain.DocumentType) domain.OpStatus {
	if docType == "" {
		return domain.Failure("document type is required")
	}
	if strings.TrimSpace(text) == "" {
		return domain.Failure("no text provided")
	}

	discovered := engine.Discover(text, docType, uc.store.AutoTrainedSet(docType))
	schema, _ := uc.store.Schema(docType)

	ev := trainingEvent{
		docType:     docType,
		action:      domain.ActionAutoTrain,
		exampleText: text,
		patterns:    make(map[string]string),
		values:      make(map[string]string),
	}
	for field, value := range discovered {
		if schema.HasField(field) {
			continue
		}
		ev.fields = append(ev.fields, field)
		// Table values have no single string to learn a pattern from; the
		// field itself is still added to the schema.
		if s, ok := value.(string); ok {
			ev.patterns[field] = engine.Synthesize(text, s, "", "")
			ev.values[field] = s
		}
	}
	if len(ev.fields) == 0 {
		return domain.Warning("no new fields discovered")
	}
	sort.Strings(ev.fields)

	return uc.recordTraining(ctx, ev)
}

// recordTraining applies one training event: schema growth, pattern merging,
// example capture, auto-trained marking, exactly one history record, then one
// persistence covering the whole mutation. A pattern rejected for complexity
// keeps the old pattern and does not fail the event.
func (uc *TrainModelUseCase) recordTraining(ctx context.Context, ev trainingEvent) domain.OpStatus {
	fingerprint := engine.Fingerprint(ev.exampleText)
	now := time.Now().UTC()

	for _, field := range ev.fields {
		uc.store.AddRequiredField(ev.docType, field)

		if pattern, ok := ev.patterns[field]; ok && pattern != "" {
			if _, err := uc.store.LearnPattern(ev.docType, field, pattern); err != nil {
				uc.logger.Warn("pattern not merged",
					"doc_type", string(ev.docType), "field", field, "error", err)
			}
		}
		if value, ok := ev.values[field]; ok {
			uc.store.AddExample(ev.docType, field, domain.FieldExample{
				Value:       value,
				Fingerprint: fingerprint,
				Timestamp:   now,
			})
		}
	}

	if ev.action == domain.ActionAutoTrain {
		uc.store.MarkAutoTrained(ev.docType, ev.fields...)
	}

	record := domain.TrainingRecord{
		Timestamp: now,
		DocType:   ev.docType,
		Fields:    append([]string(nil), ev.fields...),
		Action:    ev.action,
	}
	if len(ev.fields) == 1 {
		record.Pattern = ev.patterns[ev.fields[0]]
		record.Value = ev.values[ev.fields[0]]
	}
	uc.store.AppendHistory(record)

	if err := uc.store.Save(ctx); err != nil {
		return domain.Failure(fmt.Sprintf("training recorded but not persisted: %v", err))
	}
	return domain.Success(fmt.Sprintf("trained %d field(s) for %s", len(ev.fields), ev.docType))
}
