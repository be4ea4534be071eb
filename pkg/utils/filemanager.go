// =============================================================================
// Property Feed Converter - File Manager Utility
// =============================================================================
//
// This module provides file utilities shared by the pipeline and the image
// mirror:
//   - Directory management
//   - Output file naming
//   - Atomic file writes
//   - Error log and run summary generation
//
// LOG FILES:
//   - error_log_<timestamp>.txt lists every failed or skipped listing
//   - processing_summary_<timestamp>.txt records the run's counters
//   Both are written to the report directory after a `process` run.
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	timestampLayout = "20060102_150405"
	displayLayout   = "2006-01-02 15:04:05"
	ruler           = "================================================================================\n"
	divider         = "--------------------------------------------------------------------------------\n"
)

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all given directories if they don't exist.
// Empty entries are ignored.
//
// RETURNS:
//   - An error if any directory cannot be created.
func EnsureDirectories(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates an output file name from a pattern.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}       - A random UUID
//               {timestamp}  - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}       - Current date (YYYYMMDD)
//               {time}       - Current time (HHMMSS)
//               {externalId} - Listing external id
//               {type}       - Document variant
//   - params: A map of placeholder values. Values are sanitized with
//             SanitizeFileComponent.
//
// RETURNS:
//   - The generated file name, always ending in .xml.
//
// EXAMPLE:
//   format: "transformed_{externalId}.xml"
//   params: {"externalId": "V-1"}
//   output: "transformed_V-1.xml"
func GenerateOutputFileName(format string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format(timestampLayout),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = SanitizeFileComponent(value)
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if !strings.HasSuffix(strings.ToLower(result), ".xml") {
		result += ".xml"
	}

	return result
}

// SanitizeFileComponent makes s safe to use as a single path element.
// Characters outside [A-Za-z0-9._-] become underscores; names that would
// still resolve to the current or parent directory become "unknown".
func SanitizeFileComponent(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	result := b.String()
	if strings.Trim(result, ".") == "" {
		return "unknown"
	}
	return result
}

// =============================================================================
// FILE WRITING
// =============================================================================

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place.
func WriteFileAtomic(path string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".write-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", path, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry represents a single error log entry.
type ErrorLogEntry struct {
	Timestamp    time.Time
	ExternalID   string
	Stage        string
	ErrorType    string
	ErrorMessage string
	FieldName    string
	FieldValue   string
}

// WriteErrorLog writes error entries to a log file.
//
// PARAMETERS:
//   - entries: The error entries to write.
//   - outputDir: The directory to write the log file.
//
// RETURNS:
//   - The path to the error log file, or "" when there are no entries.
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, outputDir string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	logPath := filepath.Join(outputDir, fmt.Sprintf("error_log_%s.txt", time.Now().Format(timestampLayout)))

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Property Feed Converter - Error Log\n"+
		"Generated: %s\n"+
		"Total Errors: %d\n"+
		ruler+"\n",
		time.Now().Format(displayLayout),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Error #%d\n"+
			"  Timestamp:   %s\n"+
			"  Listing:     %s\n"+
			"  Stage:       %s\n"+
			"  Error Type:  %s\n"+
			"  Message:     %s\n",
			i+1,
			entry.Timestamp.Format(displayLayout),
			entry.ExternalID,
			entry.Stage,
			entry.ErrorType,
			entry.ErrorMessage)

		if entry.FieldName != "" {
			fmt.Fprintf(writer, "  Field:       %s\n", entry.FieldName)
		}
		if entry.FieldValue != "" {
			fmt.Fprintf(writer, "  Value:       %s\n", entry.FieldValue)
		}
		writer.WriteString("\n")
	}

	writer.WriteString(ruler + "End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}

	return logPath, nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about a processing run.
type ProcessingSummary struct {
	StartTime    time.Time
	EndTime      time.Time
	InputFile    string
	Total        int
	Mapped       int
	Generated    int
	Sent         int
	Skipped      int
	Failed       int
	UploadFailed int
	Warnings     int
	Documents    []GeneratedListingInfo
	Failures     []FailedListingInfo
}

// GeneratedListingInfo describes one written document.
type GeneratedListingInfo struct {
	ExternalID string
	Type       string
	OutputFile string
	Sent       bool
}

// FailedListingInfo describes one listing that produced no document.
type FailedListingInfo struct {
	ExternalID   string
	Stage        string
	ErrorMessage string
}

// WriteSummaryLog writes a processing summary to a log file.
//
// PARAMETERS:
//   - summary: The processing summary.
//   - outputDir: The directory to write the summary file.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	summaryPath := filepath.Join(outputDir, fmt.Sprintf("processing_summary_%s.txt", time.Now().Format(timestampLayout)))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Property Feed Converter - Processing Summary\n"+
		ruler+"\n"+
		"Run Information:\n"+
		"  Input File:     %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  Listings:           %d\n"+
		"  Mapped:             %d\n"+
		"  Generated:          %d\n"+
		"  Sent:               %d\n"+
		"  Skipped:            %d\n"+
		"  Failed:             %d\n"+
		"  Upload Failures:    %d\n"+
		"  Warnings:           %d\n\n",
		summary.InputFile,
		summary.StartTime.Format(displayLayout),
		summary.EndTime.Format(displayLayout),
		summary.EndTime.Sub(summary.StartTime).String(),
		summary.Total,
		summary.Mapped,
		summary.Generated,
		summary.Sent,
		summary.Skipped,
		summary.Failed,
		summary.UploadFailed,
		summary.Warnings)

	if len(summary.Documents) > 0 {
		writer.WriteString("Generated Documents:\n" + divider)
		for _, g := range summary.Documents {
			fmt.Fprintf(writer, "  Listing: %s (%s)\n", g.ExternalID, g.Type)
			fmt.Fprintf(writer, "  Output:  %s\n", g.OutputFile)
			fmt.Fprintf(writer, "  Sent:    %t\n\n", g.Sent)
		}
	}

	if len(summary.Failures) > 0 {
		writer.WriteString("Failed Listings:\n" + divider)
		for _, f := range summary.Failures {
			fmt.Fprintf(writer, "  Listing: %s\n", f.ExternalID)
			fmt.Fprintf(writer, "  Stage:   %s\n", f.Stage)
			fmt.Fprintf(writer, "  Error:   %s\n\n", f.ErrorMessage)
		}
	}

	writer.WriteString(ruler + "End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}
