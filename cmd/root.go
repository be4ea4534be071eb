// =============================================================================
// Property Feed Converter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (converter)
//   ├── processCmd  (converter process)
//   ├── validateCmd (converter validate)
//   ├── imagesCmd   (converter images)
//   └── versionCmd  (converter version)
//
// The root command owns the global flags (--config, --verbose) and the
// shared setup: configuration loading and logger construction.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/property-feed-converter/internal/config"
	"github.com/ginjaninja78/property-feed-converter/internal/logging"
	"github.com/ginjaninja78/property-feed-converter/internal/mapper"
	"github.com/ginjaninja78/property-feed-converter/internal/source"
	"github.com/ginjaninja78/property-feed-converter/internal/types"
	"github.com/ginjaninja78/property-feed-converter/pkg/utils"
)

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose enables debug logging.
var verbose bool

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "converter",
	Short: "Property Feed Converter - Turn a listing feed into portal realestate documents",
	Long: `Property Feed Converter reads an XML listing feed and writes one portal
realestate document per supported listing. Documents can optionally be
uploaded to the portal, and listing photos can be mirrored locally.

Supported variants: houseBuy, apartmentBuy, livingBuySite, tradeSite.

Example Usage:
  converter process                      # Convert the configured feed
  converter process --dry-run            # Build and check without writing
  converter process --ref V-1 --no-upload
  converter validate                     # Report findings without writing
  converter images                       # Mirror listing photos`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// loadConfig loads the configuration file. When the default file is absent
// the built-in defaults are used; an explicitly named file must exist.
func loadConfig(cmd *cobra.Command) (*config.MainConfig, error) {
	cfg, err := config.LoadMainConfig(cfgFile)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		return config.DefaultMainConfig(), nil
	}
	return nil, fmt.Errorf("failed to load config: %w", err)
}

// newLogger builds the run logger. The returned function closes the log file.
func newLogger(cfg *config.MainConfig) (*slog.Logger, func() error, error) {
	if cfg.LogFile != "" {
		if err := utils.EnsureDirectories(filepath.Dir(cfg.LogFile)); err != nil {
			return nil, nil, err
		}
	}
	return logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Verbose: verbose,
		File:    cfg.LogFile,
	})
}

// readFeed parses the feed at path and maps every listing.
func readFeed(path string, logger *slog.Logger) ([]types.Mapping, mapper.Stats, error) {
	feed, err := source.ParseFile(path)
	if err != nil {
		return nil, mapper.Stats{}, fmt.Errorf("failed to read feed: %w", err)
	}
	logger.Info("Feed loaded", "path", path, "listings", len(feed.Properties))

	mappings, stats := mapper.New(logger).MapFeed(feed)
	return mappings, stats, nil
}
