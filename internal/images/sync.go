// Package images mirrors listing photos from the feed into one local folder
// per listing.
package images

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"

	"github.com/ginjaninja78/property-feed-converter/internal/httputil"
	"github.com/ginjaninja78/property-feed-converter/pkg/utils"
)

const (
	DefaultUserAgent = "Mozilla/5.0"
	DefaultTimeout   = 10 * time.Second

	unknownImageID = "unknown"
)

// Config configures a Syncer.
type Config struct {
	BaseDir    string
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int

	// Client overrides the HTTP client. Timeout is ignored when set.
	Client *http.Client
}

// SyncResult holds the outcome of a mirror run.
type SyncResult struct {
	Listings       int
	Skipped        int
	FoldersRemoved int
	Downloaded     int
	Existing       int
	Failed         int
}

// HasFailures reports whether any image failed to download.
func (r SyncResult) HasFailures() bool {
	return r.Failed > 0
}

// Syncer downloads listing images.
type Syncer struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// NewSyncer creates a Syncer. A nil logger discards output.
func NewSyncer(cfg Config, logger *slog.Logger) *Syncer {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Syncer{cfg: cfg, client: client, logger: logger}
}

type listing struct {
	id     string
	images []image
}

type image struct {
	id  string
	url string
}

// SyncFile mirrors the images of the feed at feedPath.
func (s *Syncer) SyncFile(ctx context.Context, feedPath string) (SyncResult, error) {
	f, err := os.Open(feedPath)
	if err != nil {
		return SyncResult{}, fmt.Errorf("failed to open feed: %w", err)
	}
	defer f.Close()

	return s.Sync(ctx, f)
}

// Sync mirrors the images of the feed read from r.
//
// Folders under the base directory whose name is not a listing id of the
// feed are removed first. Images already on disk are not downloaded again.
// Per-image failures are logged and counted; only an unreadable feed or an
// unusable base directory is returned as an error.
func (s *Syncer) Sync(ctx context.Context, r io.Reader) (SyncResult, error) {
	var result SyncResult

	listings, skipped, err := s.readFeed(r)
	if err != nil {
		return result, err
	}
	result.Skipped = skipped

	if err := utils.EnsureDirectories(s.cfg.BaseDir); err != nil {
		return result, err
	}

	keep := make(map[string]bool, len(listings))
	for _, l := range listings {
		keep[l.id] = true
	}
	removed, err := s.removeStaleFolders(keep)
	result.FoldersRemoved = removed
	if err != nil {
		return result, err
	}

	for _, l := range listings {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Listings++

		folder := filepath.Join(s.cfg.BaseDir, l.id)
		if err := utils.EnsureDirectories(folder); err != nil {
			s.logger.Error("Failed to create listing folder", "external_id", l.id, "error", err)
			result.Failed += len(l.images)
			continue
		}
		if len(l.images) == 0 {
			s.logger.Warn("Listing has no images", "external_id", l.id)
			continue
		}

		for _, img := range l.images {
			path := filepath.Join(folder, "image_"+img.id+".jpg")
			if utils.FileExists(path) {
				s.logger.Debug("Image exists, skipping download", "external_id", l.id, "path", path)
				result.Existing++
				continue
			}
			if err := s.download(ctx, img.url, path); err != nil {
				s.logger.Error("Failed to download image", "external_id", l.id, "url", img.url, "error", err)
				result.Failed++
				continue
			}
			s.logger.Info("Image saved", "external_id", l.id, "path", path)
			result.Downloaded++
		}
	}

	s.logger.Info("Image sync complete",
		"listings", result.Listings,
		"skipped", result.Skipped,
		"folders_removed", result.FoldersRemoved,
		"downloaded", result.Downloaded,
		"existing", result.Existing,
		"failed", result.Failed)

	return result, nil
}

// readFeed collects listing ids and image URLs. Listings without a usable id
// are counted as skipped.
func (s *Syncer) readFeed(r io.Reader) ([]listing, int, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse feed: %w", err)
	}

	nodes, err := xmlquery.QueryAll(doc, "//property")
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query listings: %w", err)
	}

	var listings []listing
	skipped := 0
	for i, node := range nodes {
		id := ""
		if idNode := xmlquery.FindOne(node, "id"); idNode != nil {
			id = strings.TrimSpace(idNode.InnerText())
		}
		if !safeFolderName(id) {
			s.logger.Warn("Listing without usable id, skipping", "position", i+1, "id", id)
			skipped++
			continue
		}

		l := listing{id: id}
		for _, imgNode := range xmlquery.Find(node, ".//images/image") {
			imageID := imgNode.SelectAttr("id")
			if imageID == "" {
				imageID = unknownImageID
			}
			urlNode := xmlquery.FindOne(imgNode, "url")
			url := ""
			if urlNode != nil {
				url = html.UnescapeString(strings.TrimSpace(urlNode.InnerText()))
			}
			if url == "" {
				s.logger.Warn("Image without url", "external_id", id, "image_id", imageID)
				continue
			}
			l.images = append(l.images, image{id: utils.SanitizeFileComponent(imageID), url: url})
		}
		listings = append(listings, l)
	}

	return listings, skipped, nil
}

// removeStaleFolders deletes listing folders not present in keep.
func (s *Syncer) removeStaleFolders(keep map[string]bool) (int, error) {
	entries, err := os.ReadDir(s.cfg.BaseDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read image directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || keep[entry.Name()] {
			continue
		}
		path := filepath.Join(s.cfg.BaseDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			s.logger.Error("Failed to remove stale folder", "path", path, "error", err)
			continue
		}
		s.logger.Info("Removed folder of listing no longer in feed", "path", path)
		removed++
	}
	return removed, nil
}

func (s *Syncer) download(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, s.client, req, s.cfg.MaxRetries)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}
	return utils.WriteFileAtomic(destPath, data)
}

// safeFolderName rejects ids that are empty or would escape the base
// directory.
func safeFolderName(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`) && !strings.ContainsRune(id, 0)
}
