// Package main provides modelctl, a maintenance CLI that operates on the
// local model state file without going through the API server.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
	"github.com/kirillkom/chemdoc-processor/internal/core/model"
	"github.com/kirillkom/chemdoc-processor/internal/core/usecase"
	modelstore "github.com/kirillkom/chemdoc-processor/internal/infrastructure/modelstore/localfs"
)

var statePath string

var rootCmd = &cobra.Command{
	Use:   "modelctl",
	Short: "Inspect and manage the chemdoc model state",
	Long:  "modelctl reads and mutates the learned model state (schemas, patterns, training history) directly on disk. Stop the worker before mutating, or changes may be overwritten on its next save.",
}

func main() {
	rootCmd.PersistentFlags().StringVar(&statePath, "state", defaultStatePath(), "path to the model state file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func defaultStatePath() string {
	if v := os.Getenv("MODEL_STATE_PATH"); v != "" {
		return v
	}
	return "./data/model_state.json"
}

// openAdmin loads the state file into a fresh store and wraps it in the
// admin use case. Mutating commands persist through the same store.
func openAdmin(cmd *cobra.Command) (*usecase.ModelAdminUseCase, error) {
	persist, err := modelstore.New(statePath)
	if err != nil {
		return nil, fmt.Errorf("open model state %s: %w", statePath, err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	store := model.NewStore(persist, maxAlternations, logger)
	store.Load(cmd.Context())
	return usecase.NewModelAdminUseCase(store, logger), nil
}

// maxAlternations matches the server default. The CLI does not read the
// full service configuration; only pattern merging depends on this bound.
const maxAlternations = 12

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// reportStatus prints the operation outcome and converts failures into a
// non-zero exit through the returned error.
func reportStatus(status domain.OpStatus) error {
	if status.Status == domain.StatusError {
		return fmt.Errorf("%s", status.Message)
	}
	fmt.Fprintln(os.Stdout, status.Message)
	return nil
}
