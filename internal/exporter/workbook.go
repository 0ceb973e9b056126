// Package exporter writes render pass results as spreadsheet workbooks.
package exporter

import (
	"fmt"
	"io"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"

	"happymart-dashboard/internal/models"
	"happymart-dashboard/internal/pipeline"
)

const (
	SummarySheet = "summary"
	ContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// WriteWorkbook writes a summary sheet followed by one sheet per derived
// table of report.
func WriteWorkbook(w io.Writer, report *models.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SummarySheet); err != nil {
		return fmt.Errorf("rename first sheet: %w", err)
	}
	if err := writeSummary(f, report); err != nil {
		return err
	}

	for _, table := range pipeline.TableNames {
		df, err := pipeline.Frame(report, table)
		if err != nil {
			return err
		}
		if _, err := f.NewSheet(table); err != nil {
			return fmt.Errorf("create sheet %s: %w", table, err)
		}
		if err := writeFrame(f, table, df); err != nil {
			return fmt.Errorf("write sheet %s: %w", table, err)
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, report *models.Report) error {
	s := report.Summary
	rows := [][]any{
		{"metric", "value"},
		{"start_date", report.Range.Start.Format(models.DateLayout)},
		{"end_date", report.Range.End.Format(models.DateLayout)},
		{"filtered_rows", report.FilteredRows},
		{"total_orders", s.TotalOrders},
		{"total_payment", s.TotalPayment},
		{"avg_recency", s.AvgRecency},
		{"avg_frequency", s.AvgFrequency},
		{"avg_monetary", s.AvgMonetary},
	}
	for i, row := range rows {
		if err := setRow(f, SummarySheet, i+1, row); err != nil {
			return err
		}
	}
	return nil
}

func writeFrame(f *excelize.File, sheet string, df dataframe.DataFrame) error {
	names := df.Names()
	header := make([]any, len(names))
	for i, n := range names {
		header[i] = n
	}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}

	cols := make([]series.Series, len(names))
	for i, n := range names {
		cols[i] = df.Col(n)
	}

	for r := 0; r < df.Nrow(); r++ {
		row := make([]any, len(cols))
		for c, col := range cols {
			row[c] = cellValue(col.Elem(r), col.Type())
		}
		if err := setRow(f, sheet, r+2, row); err != nil {
			return err
		}
	}
	return nil
}

// cellValue keeps numeric columns numeric in the sheet.
func cellValue(e series.Element, t series.Type) any {
	switch t {
	case series.Int:
		if v, err := e.Int(); err == nil {
			return v
		}
	case series.Float:
		return e.Float()
	}
	return e.String()
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
