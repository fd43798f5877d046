package localfs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
)

// Store persists the whole model state as one JSON file. Writes go through
// a temp file and rename so a crash mid-save never leaves a torn state.
type Store struct {
	path string
}

func New(path string) (*Store, error) {
	if path == "" {
		path = "./data/model_state.json"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create model state dir: %w", err)
	}
	return &Store{path: path}, nil
}

func (s *Store) Load(_ context.Context) (*domain.ModelState, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("model state %s: %w", s.path, domain.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("read model state: %w", err)
	}

	var state domain.ModelState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode model state: %w", err)
	}
	return &state, nil
}

func (s *Store) Save(_ context.Context, state *domain.ModelState) error {
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write model state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace model state: %w", err)
	}
	return nil
}
