package model

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
	"github.com/kirillkom/chemdoc-processor/internal/core/engine"
)

// StateStore persists the whole model state as one blob.
type StateStore interface {
	Load(ctx context.Context) (*domain.ModelState, error)
	Save(ctx context.Context, state *domain.ModelState) error
}

// Store is the repository owning all learning state: schemas, learned field
// patterns, document examples, auto-trained markers and the training history.
// Mutators change in-memory state only; callers persist explicitly with Save
// after a completed mutation batch. All methods are safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	state   *domain.ModelState
	persist StateStore
	logger  *slog.Logger

	maxAlternations int
	compiled        map[domain.DocumentType]map[string]*regexp.Regexp
}

func NewStore(persist StateStore, maxAlternations int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	state := domain.NewModelState()
	state.Schemas = domain.DefaultSchemas()
	return &Store{
		state:           state,
		persist:         persist,
		logger:          logger,
		maxAlternations: maxAlternations,
		compiled:        make(map[domain.DocumentType]map[string]*regexp.Regexp),
	}
}

// Load replaces in-memory state with the persisted blob. Any load failure is
// non-fatal: the store keeps the default state and stays usable.
func (s *Store) Load(ctx context.Context) {
	if s.persist == nil {
		return
	}
	loaded, err := s.persist.Load(ctx)
	if err != nil {
		s.logger.Warn("model state not loaded, starting with defaults", "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	normalizeState(loaded)
	s.state = loaded
	s.compiled = make(map[domain.DocumentType]map[string]*regexp.Regexp)
}

// Save persists a point-in-time deep copy of the state. The copy is taken
// under the lock so concurrent mutators can never race the serialization and
// the written blob is always internally consistent. On failure in-memory
// state remains valid.
func (s *Store) Save(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	s.mu.RLock()
	snapshot := s.state.Clone()
	s.mu.RUnlock()

	if err := s.persist.Save(ctx, snapshot); err != nil {
		s.logger.Error("model state save failed", "error", err)
		return fmt.Errorf("save model state: %w", err)
	}
	return nil
}

func normalizeState(st *domain.ModelState) {
	if st.Schemas == nil {
		st.Schemas = make(map[domain.DocumentType]*domain.Schema)
	}
	if st.FieldPatterns == nil {
		st.FieldPatterns = make(map[domain.DocumentType]map[string]string)
	}
	if st.Examples == nil {
		st.Examples = make(map[domain.DocumentType]map[string][]domain.FieldExample)
	}
	if st.AutoTrained == nil {
		st.AutoTrained = make(map[domain.DocumentType][]string)
	}
}

// Schema returns a copy of the type's schema.
func (s *Store) Schema(docType domain.DocumentType) (domain.Schema, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schema, ok := s.state.Schemas[docType]
	if !ok {
		return domain.Schema{}, false
	}
	return copySchema(schema), true
}

// Schemas returns a deep copy of all schemas.
func (s *Store) Schemas() map[domain.DocumentType]domain.Schema {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.DocumentType]domain.Schema, len(s.state.Schemas))
	for docType, schema := range s.state.Schemas {
		out[docType] = copySchema(schema)
	}
	return out
}

func copySchema(schema *domain.Schema) domain.Schema {
	return domain.Schema{
		RequiredFields: append([]string(nil), schema.RequiredFields...),
		Sections:       append([]string(nil), schema.Sections...),
	}
}

// HasSchema reports whether the type is known.
func (s *Store) HasSchema(docType domain.DocumentType) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.state.Schemas[docType]
	return ok
}

// AddRequiredField appends the field to the type's schema, creating the
// schema when the type is new. Reports whether the field was added.
func (s *Store) AddRequiredField(docType domain.DocumentType, field string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	schema, ok := s.state.Schemas[docType]
	if !ok {
		schema = &domain.Schema{}
		s.state.Schemas[docType] = schema
	}
	if schema.HasField(field) {
		return false
	}
	schema.RequiredFields = append(schema.RequiredFields, field)
	return true
}

// Pattern returns the stored pattern string for a (type, field).
func (s *Store) Pattern(docType domain.DocumentType, field string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.FieldPatterns[docType][field]
	return p, ok
}

// CompiledPattern returns the compiled learned pattern, caching compilations.
// A stored pattern that fails to compile is reported as an error so the
// extractor can skip the field.
func (s *Store) CompiledPattern(docType domain.DocumentType, field string) (*regexp.Regexp, bool, error) {
	s.mu.RLock()
	if re, ok := s.compiled[docType][field]; ok {
		s.mu.RUnlock()
		return re, true, nil
	}
	pattern, ok := s.state.FieldPatterns[docType][field]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, false, fmt.Errorf("compile pattern for %s/%s: %w", docType, field, err)
	}

	s.mu.Lock()
	if s.compiled[docType] == nil {
		s.compiled[docType] = make(map[string]*regexp.Regexp)
	}
	s.compiled[docType][field] = re
	s.mu.Unlock()
	return re, true, nil
}

// LearnPattern merges a new pattern into the (type, field) slot. An existing
// pattern is never replaced, only extended by alternation, so anything it
// matched before still matches. Growth past the alternation bound returns
// ErrPatternTooComplex and keeps the old pattern.
func (s *Store) LearnPattern(docType domain.DocumentType, field, pattern string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.state.FieldPatterns[docType][field]
	combined, err := engine.CombinePatterns(existing, pattern, s.maxAlternations)
	if err != nil {
		return "", err
	}
	if s.state.FieldPatterns[docType] == nil {
		s.state.FieldPatterns[docType] = make(map[string]string)
	}
	s.state.FieldPatterns[docType][field] = combined
	delete(s.compiled[docType], field)
	return combined, nil
}

// AddExample records one training example for fingerprint-based transfer.
func (s *Store) AddExample(docType domain.DocumentType, field string, example domain.FieldExample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Examples[docType] == nil {
		s.state.Examples[docType] = make(map[string][]domain.FieldExample)
	}
	s.state.Examples[docType][field] = append(s.state.Examples[docType][field], example)
}

// AppendHistory adds one record to the append-only training history.
func (s *Store) AppendHistory(record domain.TrainingRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.History = append(s.state.History, record)
}

// History returns a copy of the training history.
func (s *Store) History() []domain.TrainingRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.TrainingRecord(nil), s.state.History...)
}

// MarkAutoTrained flags fields as discovered by auto-training.
func (s *Store) MarkAutoTrained(docType domain.DocumentType, fields ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := make(map[string]struct{}, len(s.state.AutoTrained[docType]))
	for _, f := range s.state.AutoTrained[docType] {
		existing[f] = struct{}{}
	}
	for _, f := range fields {
		if _, ok := existing[f]; ok {
			continue
		}
		existing[f] = struct{}{}
		s.state.AutoTrained[docType] = append(s.state.AutoTrained[docType], f)
	}
}

// AutoTrained returns a copy of all auto-trained field lists.
func (s *Store) AutoTrained() map[domain.DocumentType][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.DocumentType][]string, len(s.state.AutoTrained))
	for docType, fields := range s.state.AutoTrained {
		out[docType] = append([]string(nil), fields...)
	}
	return out
}

// AutoTrainedSet returns the type's auto-trained fields as a set.
func (s *Store) AutoTrainedSet(docType domain.DocumentType) map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := make(map[string]struct{}, len(s.state.AutoTrained[docType]))
	for _, f := range s.state.AutoTrained[docType] {
		set[f] = struct{}{}
	}
	return set
}

// ResetSchema removes the type from schemas, patterns, examples and
// auto-trained state and logs a reset record. Prior history entries for the
// type are kept for audit. Reports whether the type existed.
func (s *Store) ResetSchema(docType domain.DocumentType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.state.Schemas[docType]
	if !ok {
		return false
	}
	delete(s.state.Schemas, docType)
	delete(s.state.FieldPatterns, docType)
	delete(s.state.Examples, docType)
	delete(s.state.AutoTrained, docType)
	delete(s.compiled, docType)
	s.state.History = append(s.state.History, domain.TrainingRecord{
		Timestamp: time.Now().UTC(),
		DocType:   docType,
		Action:    domain.ActionResetSchema,
	})
	return true
}

// SimilarDocuments surfaces field values recorded on structurally similar
// prior documents of the same type, most similar first. Advisory only.
func (s *Store) SimilarDocuments(docType domain.DocumentType, fingerprint string, threshold float64) []domain.SimilarDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hints []domain.SimilarDocument
	for field, examples := range s.state.Examples[docType] {
		for _, ex := range examples {
			similarity := engine.Similarity(fingerprint, ex.Fingerprint)
			if ex.Fingerprint == fingerprint {
				similarity = 1.0
			}
			if similarity < threshold {
				continue
			}
			hints = append(hints, domain.SimilarDocument{
				Field:      field,
				Value:      ex.Value,
				Similarity: similarity,
				SeenAt:     ex.Timestamp,
			})
		}
	}
	sort.SliceStable(hints, func(i, j int) bool {
		if hints[i].Similarity != hints[j].Similarity {
			return hints[i].Similarity > hints[j].Similarity
		}
		return hints[i].Field < hints[j].Field
	})
	return hints
}

// interchange is the export/import wire format. Set-valued auto-trained
// fields are serialized as sequences.
type interchange struct {
	ExportedAt    time.Time                                 `json:"exported_at"`
	Schemas       map[domain.DocumentType]*domain.Schema    `json:"document_schemas"`
	History       []domain.TrainingRecord                   `json:"training_history"`
	FieldPatterns map[domain.DocumentType]map[string]string `json:"field_patterns"`
	AutoTrained   map[domain.DocumentType][]string          `json:"auto_trained_fields"`
}

// Export serializes schemas, history, patterns and auto-trained fields.
func (s *Store) Export() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payload := interchange{
		ExportedAt:    time.Now().UTC(),
		Schemas:       s.state.Schemas,
		History:       s.state.History,
		FieldPatterns: s.state.FieldPatterns,
		AutoTrained:   s.state.AutoTrained,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export model config: %w", err)
	}
	return data, nil
}

// Import fully replaces schemas, history, patterns and auto-trained state
// with the interchange payload. Examples are untouched.
func (s *Store) Import(data []byte) error {
	var payload interchange
	if err := json.Unmarshal(data, &payload); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "import model config", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if payload.Schemas != nil {
		s.state.Schemas = payload.Schemas
	}
	if payload.History != nil {
		s.state.History = payload.History
	}
	if payload.FieldPatterns != nil {
		s.state.FieldPatterns = payload.FieldPatterns
	}
	if payload.AutoTrained != nil {
		s.state.AutoTrained = payload.AutoTrained
	}
	s.compiled = make(map[domain.DocumentType]map[string]*regexp.Regexp)
	return nil
}
