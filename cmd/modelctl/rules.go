package main

import (
	"github.com/spf13/cobra"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
)

var (
	ruleField   string
	rulePattern string
)

var resetCmd = &cobra.Command{
	Use:   "reset <doc-type>",
	Short: "Reset a document type's learned schema",
	Args:  cobra.ExactArgs(1),
	RunE:  runReset,
}

var addRuleCmd = &cobra.Command{
	Use:   "add-rule <doc-type>",
	Short: "Add an explicit extraction pattern for a field",
	Args:  cobra.ExactArgs(1),
	RunE:  runAddRule,
}

func init() {
	addRuleCmd.Flags().StringVar(&ruleField, "field", "", "field name the pattern extracts (required)")
	addRuleCmd.Flags().StringVar(&rulePattern, "pattern", "", "regular expression with one capture group (required)")
	_ = addRuleCmd.MarkFlagRequired("field")
	_ = addRuleCmd.MarkFlagRequired("pattern")

	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(addRuleCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	admin, err := openAdmin(cmd)
	if err != nil {
		return err
	}
	return reportStatus(admin.ResetSchema(cmd.Context(), domain.DocumentType(args[0])))
}

func runAddRule(cmd *cobra.Command, args []string) error {
	admin, err := openAdmin(cmd)
	if err != nil {
		return err
	}
	return reportStatus(admin.AddRule(cmd.Context(), domain.DocumentType(args[0]), ruleField, rulePattern))
}
