package excel

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
)

// Exporter renders processed documents into an XLSX workbook: one summary
// sheet plus a sheet with every test-result row.
type Exporter struct {
	logger *slog.Logger
}

func NewExporter(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{logger: logger}
}

const (
	summarySheet = "Documents"
	resultsSheet = "Test Results"
)

func (e *Exporter) Export(_ context.Context, items []domain.DocumentExtraction) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(resultsSheet); err != nil {
		return nil, fmt.Errorf("create results sheet: %w", err)
	}

	summaryHeaders := []string{
		"Document ID",
		"Filename",
		"Type",
		"Confidence",
		"Product Name",
		"Batch Number",
		"CAS Number",
		"Processed At",
	}
	for i, h := range summaryHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(summarySheet, cell, h)
	}

	resultHeaders := []string{"Document ID", "Test", "Specification", "Result"}
	for i, h := range resultHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(resultsSheet, cell, h)
	}

	summaryRow := 2
	resultRow := 2
	for _, item := range items {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, summaryRow)
			_ = f.SetCellValue(summarySheet, cell, v)
		}

		write(1, item.Document.ID)
		write(2, item.Document.Filename)
		write(3, string(item.Result.DocumentType))
		write(4, item.Result.Confidence)
		write(5, stringEntity(item.Result.Entities, "product_name"))
		write(6, stringEntity(item.Result.Entities, "batch_number"))
		write(7, stringEntity(item.Result.Entities, "cas_number"))
		if !item.Document.UpdatedAt.IsZero() {
			write(8, item.Document.UpdatedAt.Format("2006-01-02 15:04"))
		}
		summaryRow++

		table, ok := item.Result.Entities.TestResults()
		if !ok {
			continue
		}
		names := make([]string, 0, len(table))
		for name := range table {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			writeResult := func(col int, v any) {
				cell, _ := excelize.CoordinatesToCellName(col, resultRow)
				_ = f.SetCellValue(resultsSheet, cell, v)
			}
			writeResult(1, item.Document.ID)
			writeResult(2, name)
			writeResult(3, table[name].Specification)
			writeResult(4, table[name].Result)
			resultRow++
		}
	}

	_ = f.SetColWidth(summarySheet, "A", "A", 38)
	_ = f.SetColWidth(summarySheet, "B", "B", 32)
	_ = f.SetColWidth(summarySheet, "E", "G", 24)
	_ = f.SetColWidth(resultsSheet, "A", "A", 38)
	_ = f.SetColWidth(resultsSheet, "B", "D", 28)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	e.logger.Info("export.xlsx.ok",
		"documents", len(items),
		"result_rows", resultRow-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func stringEntity(entities domain.Entities, field string) string {
	value, _ := entities[field].(string)
	return strings.TrimSpace(value)
}
