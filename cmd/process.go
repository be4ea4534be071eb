// =============================================================================
// Property Feed Converter - Process Command
// =============================================================================
//
// This file defines the 'process' command, the main conversion command.
//
// COMMAND USAGE:
//   converter process [flags]
//
// FLAGS:
//   --dry-run   : Build and check documents without writing or uploading
//   --no-upload : Write documents but skip the upload even if enabled
//   --type      : Process only listings of one variant (e.g. houseBuy)
//   --ref       : Process only the listing with this external id
//   --input     : Override the configured feed path
//
// PROCESSING PIPELINE:
//   1. Load configuration
//   2. Parse and map the feed
//   3. For each listing: build, check, write, upload
//   4. Write the XLSX run report, the summary log and the error log
//
// =============================================================================

package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/property-feed-converter/internal/config"
	"github.com/ginjaninja78/property-feed-converter/internal/converter"
	"github.com/ginjaninja78/property-feed-converter/internal/mapper"
	"github.com/ginjaninja78/property-feed-converter/internal/report"
	"github.com/ginjaninja78/property-feed-converter/internal/types"
	"github.com/ginjaninja78/property-feed-converter/internal/upload"
	"github.com/ginjaninja78/property-feed-converter/internal/validation"
	"github.com/ginjaninja78/property-feed-converter/pkg/utils"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Convert the listing feed into realestate documents",
	Long: `The process command reads the configured listing feed, maps every
listing, and writes one realestate document per supported listing into the
output directory.

Listings with an unsupported type are skipped. A listing that fails is logged
with its external id and the run continues with the next one.

When upload is enabled in the configuration, each written document is posted
to the portal with a fixed delay between uploads.

After the run:
  - An XLSX run report is written to the report directory
  - A summary log and, if anything failed, an error log are written next to it`,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().Bool("dry-run", false, "Build and check documents without writing or uploading them")
	processCmd.Flags().Bool("no-upload", false, "Skip the upload even if it is enabled in the configuration")
	processCmd.Flags().String("type", "", "Process only listings of this variant (houseBuy, apartmentBuy, livingBuySite, tradeSite)")
	processCmd.Flags().String("ref", "", "Process only the listing with this external id")
	processCmd.Flags().String("input", "", "Feed path (overrides input_path)")
}

func runProcess(cmd *cobra.Command, args []string) error {
	startTime := time.Now()

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	noUpload, _ := cmd.Flags().GetBool("no-upload")
	onlyType, _ := cmd.Flags().GetString("type")
	onlyRef, _ := cmd.Flags().GetString("ref")
	input, _ := cmd.Flags().GetString("input")

	if onlyType != "" && !types.PropertyType(onlyType).Valid() {
		return fmt.Errorf("unknown variant %q", onlyType)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if input != "" {
		cfg.InputPath = input
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	mappings, stats, err := readFeed(cfg.InputPath, logger)
	if err != nil {
		return err
	}

	var uploader upload.Uploader
	if cfg.Upload.Enabled && !noUpload && !dryRun {
		uploader, err = newUploader(cfg.Upload)
		if err != nil {
			return err
		}
	}

	pipeline := converter.New(converter.Options{
		OutputDir:   cfg.OutputDir,
		FilePattern: cfg.OutputFilePattern,
		DryRun:      dryRun,
		Uploader:    uploader,
		UploadDelay: cfg.Upload.Delay,
		OnlyType:    types.PropertyType(onlyType),
		OnlyRef:     onlyRef,
		Logger:      logger,
	})

	summary, runErr := pipeline.Run(cmd.Context(), mappings)

	if !dryRun {
		writeReports(cfg, startTime, stats, summary, logger)
	}

	fmt.Printf("Generated %d valid document(s).\n", summary.Generated)
	if uploader != nil {
		fmt.Printf("Sent %d document(s) to the portal.\n", summary.Sent)
	}

	if runErr != nil {
		return runErr
	}
	if summary.NoneGenerated() {
		return fmt.Errorf("no document was generated for any of %d listing(s)", stats.Total)
	}
	return nil
}

func newUploader(cfg config.UploadConfig) (upload.Uploader, error) {
	token, err := cfg.LoadUploadToken()
	if err != nil {
		return nil, fmt.Errorf("upload is enabled but no token is available: %w", err)
	}
	return upload.NewHTTPUploader(upload.HTTPUploaderConfig{
		Endpoint:   cfg.Endpoint,
		Token:      token,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
	})
}

// writeReports writes the XLSX run report and the text logs. Failures are
// logged and do not fail the run.
func writeReports(cfg *config.MainConfig, start time.Time, stats mapper.Stats, summary *converter.Summary, logger *slog.Logger) {
	if err := utils.EnsureDirectories(cfg.ReportDir); err != nil {
		logger.Error("Failed to create report directory", "error", err)
		return
	}

	processing, errorEntries := buildProcessingSummary(cfg.InputPath, start, stats, summary)

	if path, err := report.WriteXLSX(processing, cfg.ReportDir); err != nil {
		logger.Error("Failed to write run report", "error", err)
	} else {
		logger.Info("Run report written", "path", path)
	}
	if path, err := utils.WriteSummaryLog(processing, cfg.ReportDir); err != nil {
		logger.Error("Failed to write summary log", "error", err)
	} else {
		logger.Debug("Summary log written", "path", path)
	}
	if path, err := utils.WriteErrorLog(errorEntries, cfg.ReportDir); err != nil {
		logger.Error("Failed to write error log", "error", err)
	} else if path != "" {
		logger.Info("Error log written", "path", path, "entries", len(errorEntries))
	}
}

// buildProcessingSummary merges mapper and pipeline results into the report
// model.
func buildProcessingSummary(input string, start time.Time, stats mapper.Stats, summary *converter.Summary) (utils.ProcessingSummary, []utils.ErrorLogEntry) {
	now := time.Now()
	processing := utils.ProcessingSummary{
		StartTime:    start,
		EndTime:      now,
		InputFile:    input,
		Total:        stats.Total,
		Mapped:       stats.Mapped,
		Generated:    summary.Generated,
		Sent:         summary.Sent,
		Skipped:      stats.Skipped + summary.Skipped,
		Failed:       stats.Failed + summary.Failed,
		UploadFailed: summary.UploadFailed,
		Warnings:     summary.Warnings,
	}

	var entries []utils.ErrorLogEntry
	for _, r := range stats.Rejections {
		stage, errType := "map", "mapping_error"
		if r.Skipped {
			errType = "unsupported_type"
		}
		processing.Failures = append(processing.Failures, utils.FailedListingInfo{
			ExternalID: r.ExternalID, Stage: stage, ErrorMessage: r.Err.Error(),
		})
		entries = append(entries, utils.ErrorLogEntry{
			Timestamp: now, ExternalID: r.ExternalID, Stage: stage, ErrorType: errType, ErrorMessage: r.Err.Error(),
		})
	}

	for _, r := range summary.Results {
		for _, w := range r.Warnings {
			entries = append(entries, utils.ErrorLogEntry{
				Timestamp: now, ExternalID: r.ExternalID, Stage: converter.StageBuild, ErrorType: "fallback_value",
				ErrorMessage: w.Message, FieldName: w.Field, FieldValue: w.Value,
			})
		}

		switch r.Status {
		case converter.StatusGenerated:
			processing.Documents = append(processing.Documents, utils.GeneratedListingInfo{
				ExternalID: r.ExternalID, Type: string(r.Type), OutputFile: r.OutputFile, Sent: r.Sent,
			})
		case converter.StatusFiltered:
			continue
		default:
			processing.Failures = append(processing.Failures, utils.FailedListingInfo{
				ExternalID: r.ExternalID, Stage: r.Stage, ErrorMessage: r.Err.Error(),
			})
		}

		if r.Err != nil {
			entry := utils.ErrorLogEntry{
				Timestamp: now, ExternalID: r.ExternalID, Stage: r.Stage, ErrorType: errorType(r.Err), ErrorMessage: r.Err.Error(),
			}
			if missing, ok := r.Err.(*validation.MissingFieldError); ok {
				entry.FieldName = missing.Field
			}
			entries = append(entries, entry)
		}
	}

	return processing, entries
}

func errorType(err error) string {
	switch err.(type) {
	case *validation.MissingFieldError:
		return "missing_field"
	default:
		return "error"
	}
}
