// =============================================================================
// Property Feed Converter - Validate Command
// =============================================================================
//
// The 'validate' command builds every document in memory and prints the
// findings: missing required fields (errors) and enumerated values replaced
// by their fallback (warnings). Nothing is written or uploaded.
//
// COMMAND USAGE:
//   converter validate [--input feed.xml]
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/property-feed-converter/internal/validation"
	"github.com/ginjaninja78/property-feed-converter/internal/xmlwriter"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the listing feed without writing documents",
	Long: `Build every document in memory and report missing required fields and
enumerated values that would be replaced by a fallback.

The command fails when at least one listing has a missing required field.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().String("input", "", "Feed path (overrides input_path)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")

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

	var findings []*validation.ValidationError
	failed := 0
	for i := range mappings {
		doc, err := xmlwriter.BuildDocument(&mappings[i])
		var missing *validation.MissingFieldError
		switch {
		case errors.As(err, &missing):
			findings = append(findings, missing.Finding())
			failed++
		case err != nil:
			logger.Warn("Listing not checked", "external_id", mappings[i].ID(), "error", err)
		default:
			findings = append(findings, doc.Warnings...)
		}
	}

	fmt.Printf("Checked %d of %d listing(s), %d skipped and %d rejected by the mapper.\n",
		len(mappings), stats.Total, stats.Skipped, stats.Failed)
	fmt.Println(validation.FormatErrors(findings))

	if failed > 0 {
		return fmt.Errorf("%d listing(s) are missing required fields", failed)
	}
	return nil
}
