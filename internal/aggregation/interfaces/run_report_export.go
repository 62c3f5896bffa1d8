package interfaces

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"classroom-energy-aggregator/internal/aggregation/application"
)

const (
	statusOK     = "ok"
	statusEmpty  = "empty"
	statusFailed = "failed"
)

// WriteRunReport renders the run summary to path; the format follows the
// extension (.xlsx, .pdf or .csv).
func WriteRunReport(path string, run *application.RunSummary) error {
	if run == nil {
		return fmt.Errorf("run report: nil summary")
	}
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		data, err = BuildRunReportXLSX(run)
	case ".pdf":
		data, err = BuildRunReportPDF(run)
	case ".csv":
		data, err = BuildRunReportCSV(run)
	default:
		return fmt.Errorf("run report: unsupported format %q", filepath.Ext(path))
	}
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// BuildRunReportPDF renders a minimal PDF for a run.
func BuildRunReportPDF(run *application.RunSummary) ([]byte, error) {
	totals := run.Totals()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Classroom Consumption Aggregation")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Window: %s to %s (exclusive)", run.Start.Format(time.DateOnly), run.End.Format(time.DateOnly)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Started: %s", run.StartedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Duration: %s", run.Duration.Round(time.Millisecond)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Days: %d of %d processed, %d failed", totals.Days, run.Planned, totals.Failed))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Readings: %d  Rows: %d  Inserted: %d  Skipped: %d", totals.Readings, totals.Rows, totals.Inserted, totals.Skipped))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(30, 6, "Day", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.CellFormat(22, 6, "Readings", "1", 0, "C", false, 0, "")
	pdf.CellFormat(18, 6, "Rows", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Inserted", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Skipped", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 6, "Error", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, day := range run.Days {
		pdf.CellFormat(30, 6, day.Day.Format(time.DateOnly), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, dayStatus(day), "1", 0, "C", false, 0, "")
		pdf.CellFormat(22, 6, strconv.Itoa(day.Readings), "1", 0, "R", false, 0, "")
		pdf.CellFormat(18, 6, strconv.Itoa(day.Rows), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, strconv.Itoa(day.Inserted), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, strconv.Itoa(day.Skipped), "1", 0, "R", false, 0, "")
		pdf.CellFormat(60, 6, truncate(dayError(day), 40), "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildRunReportXLSX renders a summary sheet and a per-day sheet.
func BuildRunReportXLSX(run *application.RunSummary) ([]byte, error) {
	totals := run.Totals()
	f := excelize.NewFile()
	defer f.Close()
	summarySheet := "summary"
	daysSheet := "days"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(daysSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Classroom Consumption Aggregation")
	_ = f.SetCellValue(summarySheet, "A3", "Start")
	_ = f.SetCellValue(summarySheet, "B3", run.Start.Format(time.DateOnly))
	_ = f.SetCellValue(summarySheet, "A4", "End (exclusive)")
	_ = f.SetCellValue(summarySheet, "B4", run.End.Format(time.DateOnly))
	_ = f.SetCellValue(summarySheet, "A5", "Planned days")
	_ = f.SetCellValue(summarySheet, "B5", run.Planned)
	_ = f.SetCellValue(summarySheet, "A6", "Processed days")
	_ = f.SetCellValue(summarySheet, "B6", totals.Days)
	_ = f.SetCellValue(summarySheet, "A7", "Failed days")
	_ = f.SetCellValue(summarySheet, "B7", totals.Failed)
	_ = f.SetCellValue(summarySheet, "A8", "Readings")
	_ = f.SetCellValue(summarySheet, "B8", totals.Readings)
	_ = f.SetCellValue(summarySheet, "A9", "Rows")
	_ = f.SetCellValue(summarySheet, "B9", totals.Rows)
	_ = f.SetCellValue(summarySheet, "A10", "Inserted")
	_ = f.SetCellValue(summarySheet, "B10", totals.Inserted)
	_ = f.SetCellValue(summarySheet, "A11", "Skipped")
	_ = f.SetCellValue(summarySheet, "B11", totals.Skipped)
	_ = f.SetCellValue(summarySheet, "A12", "Duration (s)")
	_ = f.SetCellValue(summarySheet, "B12", run.Duration.Seconds())

	for col, header := range reportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(daysSheet, cell, header)
	}
	for i, day := range run.Days {
		row := i + 2
		_ = f.SetCellValue(daysSheet, fmt.Sprintf("A%d", row), day.Day.Format(time.DateOnly))
		_ = f.SetCellValue(daysSheet, fmt.Sprintf("B%d", row), dayStatus(day))
		_ = f.SetCellValue(daysSheet, fmt.Sprintf("C%d", row), day.Readings)
		_ = f.SetCellValue(daysSheet, fmt.Sprintf("D%d", row), day.Rows)
		_ = f.SetCellValue(daysSheet, fmt.Sprintf("E%d", row), day.Inserted)
		_ = f.SetCellValue(daysSheet, fmt.Sprintf("F%d", row), day.Skipped)
		_ = f.SetCellValue(daysSheet, fmt.Sprintf("G%d", row), day.Duration.Seconds())
		_ = f.SetCellValue(daysSheet, fmt.Sprintf("H%d", row), dayError(day))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildRunReportCSV renders one line per processed day.
func BuildRunReportCSV(run *application.RunSummary) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(reportHeader); err != nil {
		return nil, err
	}
	for _, day := range run.Days {
		record := []string{
			day.Day.Format(time.DateOnly),
			dayStatus(day),
			strconv.Itoa(day.Readings),
			strconv.Itoa(day.Rows),
			strconv.Itoa(day.Inserted),
			strconv.Itoa(day.Skipped),
			strconv.FormatFloat(day.Duration.Seconds(), 'f', 3, 64),
			dayError(day),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var reportHeader = []string{"day", "status", "readings", "rows", "inserted", "skipped", "duration_seconds", "error"}

func dayStatus(day application.DayResult) string {
	switch {
	case day.Failed():
		return statusFailed
	case day.Readings == 0:
		return statusEmpty
	default:
		return statusOK
	}
}

func dayError(day application.DayResult) string {
	if day.Err == nil {
		return ""
	}
	return day.Err.Error()
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max-3] + "..."
}
