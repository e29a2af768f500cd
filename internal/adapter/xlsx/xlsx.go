// Package xlsx writes the preparation report workbook with excelize.
package xlsx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/accident-data-etl/internal/domain"
)

// Sheet names, in workbook order.
const (
	SheetMissingness = "Missingness"
	SheetMedians     = "Medians"
	SheetSummary     = "Summary"
)

// Exporter writes one workbook per run.
type Exporter struct {
	path   string
	logger *slog.Logger
}

// NewExporter creates an exporter writing to path.
func NewExporter(path string, logger *slog.Logger) *Exporter {
	return &Exporter{path: path, logger: logger}
}

// Name identifies the exporter in logs, metrics and errors.
func (e *Exporter) Name() string { return "xlsx" }

// Export builds the workbook and saves it.
func (e *Exporter) Export(ctx context.Context, ds *domain.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetMissingness); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetMedians); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return err
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := writeMissingness(f, header, ds); err != nil {
		return fmt.Errorf("sheet %s: %w", SheetMissingness, err)
	}
	if err := writeMedians(f, header, ds); err != nil {
		return fmt.Errorf("sheet %s: %w", SheetMedians, err)
	}
	if err := writeSummary(f, header, ds); err != nil {
		return fmt.Errorf("sheet %s: %w", SheetSummary, err)
	}

	if dir := filepath.Dir(e.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := f.SaveAs(e.path); err != nil {
		return fmt.Errorf("save %s: %w", e.path, err)
	}

	e.logger.Info("workbook written", "path", e.path)
	return nil
}

func writeHeader(f *excelize.File, sheet string, style int, cols ...string) error {
	row := make([]any, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(cols), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}
	lastCol, _, err := excelize.SplitCellName(last)
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", lastCol, 20)
}

func writeMissingness(f *excelize.File, style int, ds *domain.Dataset) error {
	if err := writeHeader(f, SheetMissingness, style, "Column", "Missing", "Missing %"); err != nil {
		return err
	}
	for i, m := range ds.Missingness {
		pct := 0.0
		if ds.Stats.Rows > 0 {
			pct = 100 * float64(m.Missing) / float64(ds.Stats.Rows)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetMissingness, cell, &[]any{m.Column, m.Missing, pct}); err != nil {
			return err
		}
	}
	return nil
}

func writeMedians(f *excelize.File, style int, ds *domain.Dataset) error {
	if err := writeHeader(f, SheetMedians, style, "Column", "Median", "Imputed"); err != nil {
		return err
	}
	for i, wf := range domain.WeatherFields {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{wf.Column, nil, ds.Stats.Imputed[wf.Column]}
		if m, ok := ds.Medians[wf.Column]; ok {
			row[1] = m
		}
		if err := f.SetSheetRow(SheetMedians, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(f *excelize.File, style int, ds *domain.Dataset) error {
	if err := writeHeader(f, SheetSummary, style, "Field", "Value"); err != nil {
		return err
	}
	rows := [][]any{
		{"Run ID", ds.RunID},
		{"Source", ds.Source},
		{"Prepared at", ds.PreparedAt.UTC().Format(time.RFC3339)},
		{"Rows", ds.Stats.Rows},
		{"Start_Time parse failures", ds.Stats.StartTimeFailures},
		{"End_Time parse failures", ds.Stats.EndTimeFailures},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetSummary, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
