// =============================================================================
// Property Feed Converter - Images Command
// =============================================================================
//
// The 'images' command mirrors listing photos from the feed into one folder
// per listing under the configured image directory. Folders of listings that
// are no longer in the feed are removed.
//
// COMMAND USAGE:
//   converter images [--input feed.xml] [--dir ./images]
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/property-feed-converter/internal/images"
)

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Mirror listing photos into local folders",
	Long: `Download every image referenced by the listing feed into
<images.dir>/<listing id>/image_<image id>.jpg. Existing files are kept, and
folders whose listing is no longer in the feed are deleted.`,
	RunE: runImages,
}

func init() {
	rootCmd.AddCommand(imagesCmd)
	imagesCmd.Flags().String("input", "", "Feed path (overrides input_path)")
	imagesCmd.Flags().String("dir", "", "Image directory (overrides images.dir)")
}

func runImages(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	dir, _ := cmd.Flags().GetString("dir")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if input != "" {
		cfg.InputPath = input
	}
	if dir != "" {
		cfg.Images.Dir = dir
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	syncer := images.NewSyncer(images.Config{
		BaseDir:    cfg.Images.Dir,
		UserAgent:  cfg.Images.UserAgent,
		Timeout:    cfg.Images.Timeout,
		MaxRetries: cfg.Images.MaxRetries,
	}, logger)

	result, err := syncer.SyncFile(cmd.Context(), cfg.InputPath)
	if err != nil {
		return err
	}

	fmt.Printf("Listings:        %d (%d skipped)\n", result.Listings, result.Skipped)
	fmt.Printf("Downloaded:      %d\n", result.Downloaded)
	fmt.Printf("Already present: %d\n", result.Existing)
	fmt.Printf("Folders removed: %d\n", result.FoldersRemoved)

	if result.HasFailures() {
		return fmt.Errorf("%d image(s) failed to download", result.Failed)
	}
	return nil
}
