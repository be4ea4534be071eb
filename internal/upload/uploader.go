// =============================================================================
// Property Feed Converter - Upload Module
// =============================================================================
//
// This module pushes generated documents to the listing portal. Uploading is
// optional; when it is disabled the pipeline only writes files.
//
// A document counts as sent only when the endpoint answers with a 2xx status.
// Throttling and gateway errors are retried by httputil.DoWithRetry.
//
// =============================================================================

package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/property-feed-converter/internal/httputil"
)

const (
	contentTypeXML = "application/xml"

	// maxResponseBody bounds how much of a response is kept for logging.
	maxResponseBody = 64 << 10

	defaultTimeout = 30 * time.Second
)

// ErrNoEndpoint is returned by NewHTTPUploader when no endpoint is configured.
var ErrNoEndpoint = errors.New("upload endpoint is not configured")

// Response is the portal's answer to one upload.
type Response struct {
	StatusCode int
	Body       string
	RequestID  string
}

// Sent reports whether the portal accepted the document.
func (r *Response) Sent() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Uploader sends one serialized document.
type Uploader interface {
	Upload(ctx context.Context, externalID string, body []byte) (*Response, error)
}

// HTTPUploaderConfig configures an HTTPUploader.
type HTTPUploaderConfig struct {
	Endpoint   string
	Token      string
	Timeout    time.Duration
	MaxRetries int

	// Client overrides the HTTP client. Timeout is ignored when set.
	Client *http.Client
}

// HTTPUploader posts documents to an HTTP endpoint.
type HTTPUploader struct {
	endpoint   string
	token      string
	maxRetries int
	client     *http.Client
}

// NewHTTPUploader creates an uploader for cfg.Endpoint.
func NewHTTPUploader(cfg HTTPUploaderConfig) (*HTTPUploader, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNoEndpoint
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	return &HTTPUploader{
		endpoint:   cfg.Endpoint,
		token:      cfg.Token,
		maxRetries: cfg.MaxRetries,
		client:     client,
	}, nil
}

// Upload posts body and returns the portal's response. A non-2xx response
// is returned together with an error.
func (u *HTTPUploader) Upload(ctx context.Context, externalID string, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request for %s: %w", externalID, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", contentTypeXML)
	req.Header.Set("Accept", contentTypeXML)
	req.Header.Set("X-Request-Id", requestID)
	if u.token != "" {
		req.Header.Set("Authorization", "Bearer "+u.token)
	}

	resp, err := httputil.DoWithRetry(ctx, u.client, req, u.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", externalID, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload response for %s: %w", externalID, err)
	}

	result := &Response{
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
		RequestID:  requestID,
	}
	if !result.Sent() {
		return result, fmt.Errorf("upload of %s rejected with status %d", externalID, resp.StatusCode)
	}
	return result, nil
}
