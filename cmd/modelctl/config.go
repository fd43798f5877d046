package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	exportOutFile string
	importInFile  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the model configuration as JSON",
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Replace the model configuration from a JSON file",
	RunE:  runImport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutFile, "out", "o", "", "write to file instead of stdout")
	importCmd.Flags().StringVarP(&importInFile, "in", "i", "", "configuration file to import (required)")
	_ = importCmd.MarkFlagRequired("in")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	admin, err := openAdmin(cmd)
	if err != nil {
		return err
	}
	data, err := admin.ExportConfig(cmd.Context())
	if err != nil {
		return fmt.Errorf("export configuration: %w", err)
	}
	if exportOutFile == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(exportOutFile, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", exportOutFile, err)
	}
	fmt.Fprintf(os.Stdout, "configuration written to %s\n", exportOutFile)
	return nil
}

func runImport(cmd *cobra.Command, _ []string) error {
	data, err := os.ReadFile(importInFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", importInFile, err)
	}
	admin, err := openAdmin(cmd)
	if err != nil {
		return err
	}
	return reportStatus(admin.ImportConfig(cmd.Context(), data))
}
