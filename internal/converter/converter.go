// =============================================================================
// Property Feed Converter - Converter Module
// =============================================================================
//
// This module contains the conversion pipeline. It takes the normalized
// mappings produced by the mapper and turns each one into a document file,
// optionally uploading it.
//
// CONVERSION PIPELINE (per listing):
//   1. Build the document for the listing's variant
//   2. Check the serialized document is well-formed
//   3. Write the output file
//   4. Upload the document (optional)
//
// Listings are processed one at a time. A failure is logged with the
// listing's external id and counted; it never stops the run. A fixed delay
// separates consecutive uploads.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/ginjaninja78/property-feed-converter/internal/types"
	"github.com/ginjaninja78/property-feed-converter/internal/upload"
	"github.com/ginjaninja78/property-feed-converter/internal/validation"
	"github.com/ginjaninja78/property-feed-converter/internal/xmlwriter"
	"github.com/ginjaninja78/property-feed-converter/pkg/utils"
)

// DefaultFilePattern names output files when Options.FilePattern is empty.
const DefaultFilePattern = "transformed_{externalId}.xml"

// Stages at which a listing can fail.
const (
	StageBuild    = "build"
	StageValidate = "validate"
	StageWrite    = "write"
	StageUpload   = "upload"
)

// Status of one listing after a run.
type Status string

const (
	StatusGenerated Status = "generated"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
	StatusFiltered  Status = "filtered"
)

// =============================================================================
// RESULT STRUCTURES
// =============================================================================

// ListingResult represents the outcome of processing a single listing.
type ListingResult struct {
	ExternalID string
	Type       types.PropertyType
	Status     Status

	// OutputFile is the written document. Empty on dry runs and failures.
	OutputFile string

	// Sent reports whether the portal accepted the upload.
	Sent bool

	// Stage and Err describe the failure, if any. An upload failure leaves
	// Status at StatusGenerated.
	Stage string
	Err   error

	Warnings []*validation.ValidationError
}

// Summary contains statistics about a pipeline run.
type Summary struct {
	Generated    int
	Sent         int
	Skipped      int
	Failed       int
	UploadFailed int
	Filtered     int
	Warnings     int

	Results []ListingResult
}

// NoneGenerated reports whether the run produced no document at all.
func (s *Summary) NoneGenerated() bool {
	return s.Generated == 0
}

// =============================================================================
// PIPELINE
// =============================================================================

// Options configures a Pipeline.
type Options struct {
	OutputDir   string
	FilePattern string

	// DryRun builds and checks documents without writing or uploading them.
	DryRun bool

	// Uploader is optional. When nil, documents are only written.
	Uploader    upload.Uploader
	UploadDelay time.Duration

	// OnlyType and OnlyRef restrict the run to matching listings.
	OnlyType types.PropertyType
	OnlyRef  string

	Logger *slog.Logger
}

// Pipeline converts mappings into document files.
type Pipeline struct {
	opts   Options
	logger *slog.Logger

	// sleep waits between uploads. Tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a new Pipeline.
func New(opts Options) *Pipeline {
	if opts.FilePattern == "" {
		opts.FilePattern = DefaultFilePattern
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{opts: opts, logger: logger, sleep: sleepContext}
}

// Run processes mappings in order.
//
// RETURNS:
//   - The run summary. It is returned even when err is non-nil.
//   - An error if the output directory cannot be created or ctx is done.
func (p *Pipeline) Run(ctx context.Context, mappings []types.Mapping) (*Summary, error) {
	summary := &Summary{}

	if !p.opts.DryRun {
		if err := utils.EnsureDirectories(p.opts.OutputDir); err != nil {
			return summary, err
		}
	}

	uploads := 0
	for i := range mappings {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		m := &mappings[i]
		result := ListingResult{ExternalID: m.ID(), Type: m.Type}
		logger := p.logger.With("external_id", result.ExternalID)

		if !p.selected(m) {
			result.Status = StatusFiltered
			summary.Filtered++
			summary.Results = append(summary.Results, result)
			continue
		}

		doc, ok := p.generate(m, &result, logger)
		summary.Warnings += len(result.Warnings)
		switch {
		case !ok && result.Status == StatusSkipped:
			summary.Skipped++
		case !ok:
			summary.Failed++
		default:
			summary.Generated++
		}

		if ok && p.opts.Uploader != nil && !p.opts.DryRun {
			if uploads > 0 && p.opts.UploadDelay > 0 {
				if err := p.sleep(ctx, p.opts.UploadDelay); err != nil {
					summary.Results = append(summary.Results, result)
					return summary, err
				}
			}
			uploads++
			if p.upload(ctx, doc, &result, logger) {
				summary.Sent++
			} else {
				summary.UploadFailed++
			}
		}

		summary.Results = append(summary.Results, result)
	}

	if summary.NoneGenerated() {
		p.logger.Warn("No document was generated for any listing", "listings", len(mappings))
	} else {
		p.logger.Info("Run complete",
			"generated", summary.Generated,
			"sent", summary.Sent,
			"skipped", summary.Skipped,
			"failed", summary.Failed,
			"upload_failed", summary.UploadFailed)
	}

	return summary, nil
}

// generate builds, checks and writes one document. It reports whether the
// listing produced a document.
func (p *Pipeline) generate(m *types.Mapping, result *ListingResult, logger *slog.Logger) (*xmlwriter.Document, bool) {
	doc, err := xmlwriter.BuildDocument(m)
	if err != nil {
		result.Stage, result.Err = StageBuild, err
		if errors.Is(err, xmlwriter.ErrUnsupportedType) {
			result.Status = StatusSkipped
			logger.Warn("Listing skipped, no document variant for its type", "type", m.Type)
		} else {
			result.Status = StatusFailed
			logger.Error("Failed to build document", "error", err)
		}
		return nil, false
	}

	result.Warnings = doc.Warnings
	for _, w := range doc.Warnings {
		logger.Warn("Value replaced by fallback", "field", w.Field, "value", w.Value, "message", w.Message)
	}

	if err := xmlwriter.CheckWellFormed(doc.XML); err != nil {
		result.Status, result.Stage, result.Err = StatusFailed, StageValidate, err
		logger.Error("Generated document is not well-formed", "error", err)
		return nil, false
	}
	logger.Debug("Document is well-formed")

	if !p.opts.DryRun {
		path, err := p.write(doc)
		if err != nil {
			result.Status, result.Stage, result.Err = StatusFailed, StageWrite, err
			logger.Error("Failed to write document", "error", err)
			return nil, false
		}
		result.OutputFile = path
		logger.Info("XML saved", "path", path)
	}

	result.Status = StatusGenerated
	return doc, true
}

func (p *Pipeline) write(doc *xmlwriter.Document) (string, error) {
	name := utils.GenerateOutputFileName(p.opts.FilePattern, map[string]string{
		"externalId": doc.ExternalID,
		"type":       string(doc.Type),
	})
	path := filepath.Join(p.opts.OutputDir, name)
	if err := utils.WriteFileAtomic(path, doc.XML); err != nil {
		return "", fmt.Errorf("failed to write output: %w", err)
	}
	return path, nil
}

func (p *Pipeline) upload(ctx context.Context, doc *xmlwriter.Document, result *ListingResult, logger *slog.Logger) bool {
	resp, err := p.opts.Uploader.Upload(ctx, doc.ExternalID, doc.XML)
	if resp != nil {
		logger.Info("Upload response", "status", resp.StatusCode, "body", resp.Body)
	}
	if err == nil && !resp.Sent() {
		err = errors.New("upload was not accepted")
		if resp != nil {
			err = fmt.Errorf("upload rejected with status %d", resp.StatusCode)
		}
	}
	if err != nil {
		result.Stage, result.Err = StageUpload, err
		logger.Error("Failed to upload document", "error", err)
		return false
	}
	result.Sent = true
	return true
}

func (p *Pipeline) selected(m *types.Mapping) bool {
	if p.opts.OnlyType != "" && m.Type != p.opts.OnlyType {
		return false
	}
	if p.opts.OnlyRef != "" && m.ID() != p.opts.OnlyRef {
		return false
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
