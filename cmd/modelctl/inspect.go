package main

import (
	"os"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show document schemas and auto-trained fields",
	RunE:  runInfo,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the training history",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(historyCmd)
}

func runInfo(cmd *cobra.Command, _ []string) error {
	admin, err := openAdmin(cmd)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, map[string]any{
		"document_schemas":    admin.Schemas(cmd.Context()),
		"auto_trained_fields": admin.AutoTrainedFields(cmd.Context()),
	})
}

func runHistory(cmd *cobra.Command, _ []string) error {
	admin, err := openAdmin(cmd)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, map[string]any{
		"training_history": admin.History(cmd.Context()),
	})
}
