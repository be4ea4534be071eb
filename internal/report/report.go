// Package report writes the XLSX run report of a process run.
//
// The workbook has two sheets:
//
//	Listings  one row per listing: id, variant, status, output file, sent, message
//	Summary   the run counters
package report

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/property-feed-converter/pkg/utils"
)

const (
	ListingsSheet = "Listings"
	SummarySheet  = "Summary"

	StatusGenerated = "generated"
	StatusFailed    = "failed"
)

var listingHeader = []interface{}{"External ID", "Type", "Status", "Output File", "Sent", "Message"}

// WriteXLSX writes summary as run_report_<timestamp>.xlsx into dir and
// returns the file path.
func WriteXLSX(summary utils.ProcessingSummary, dir string) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("run_report_%s.xlsx", summary.StartTime.Format("20060102_150405")))

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ListingsSheet); err != nil {
		return "", fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return "", fmt.Errorf("failed to create summary sheet: %w", err)
	}

	if err := writeListings(f, summary); err != nil {
		return "", err
	}
	if err := writeSummary(f, summary); err != nil {
		return "", err
	}

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save run report: %w", err)
	}
	return path, nil
}

func writeListings(f *excelize.File, summary utils.ProcessingSummary) error {
	rows := [][]interface{}{listingHeader}
	for _, d := range summary.Documents {
		rows = append(rows, []interface{}{d.ExternalID, d.Type, StatusGenerated, d.OutputFile, d.Sent, ""})
	}
	for _, failure := range summary.Failures {
		rows = append(rows, []interface{}{failure.ExternalID, "", StatusFailed + " (" + failure.Stage + ")", "", false, failure.ErrorMessage})
	}

	if err := setRows(f, ListingsSheet, rows); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(ListingsSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetColWidth(ListingsSheet, "A", "F", 22); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, summary utils.ProcessingSummary) error {
	rows := [][]interface{}{
		{"Input File", summary.InputFile},
		{"Start Time", summary.StartTime.Format(time.DateTime)},
		{"End Time", summary.EndTime.Format(time.DateTime)},
		{"Duration", summary.EndTime.Sub(summary.StartTime).String()},
		{"Listings", summary.Total},
		{"Mapped", summary.Mapped},
		{"Generated", summary.Generated},
		{"Sent", summary.Sent},
		{"Skipped", summary.Skipped},
		{"Failed", summary.Failed},
		{"Upload Failures", summary.UploadFailed},
		{"Warnings", summary.Warnings},
	}
	if err := setRows(f, SummarySheet, rows); err != nil {
		return err
	}
	if err := f.SetColWidth(SummarySheet, "A", "B", 24); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	return nil
}

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
