package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tsawler/layoutmd/model"
)

// HTTPOptions configures an HTTPExtractor.
type HTTPOptions struct {
	// Timeout per request (default 120s).
	Timeout time.Duration
	// Client overrides the HTTP client. Timeout is ignored when set.
	Client *http.Client
	// Header is added to every request, e.g. for authorization.
	Header http.Header
	Logger *slog.Logger
}

// HTTPExtractor sends each page raster to a layout service. The request is
// a JSON object holding the page number and the base64 image; the service
// answers with {"blocks": [{"type", "bbox", "content"}, ...]}.
type HTTPExtractor struct {
	endpoint string
	client   *http.Client
	header   http.Header
	logger   *slog.Logger
}

// NewHTTPExtractor creates an extractor posting to endpoint.
func NewHTTPExtractor(endpoint string, opts HTTPOptions) *HTTPExtractor {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPExtractor{endpoint: endpoint, client: client, header: opts.Header.Clone(), logger: logger}
}

// PageRequest is the body posted for one page.
type PageRequest struct {
	PageNumber int    `json:"page_number"`
	MimeType   string `json:"mime_type"`
	Image      string `json:"image"` // base64, standard encoding
}

// Extract posts the page raster and decodes the returned regions.
func (e *HTTPExtractor) Extract(ctx context.Context, page model.PageImage) ([]model.Region, error) {
	data, err := os.ReadFile(page.Path)
	if err != nil {
		return nil, fmt.Errorf("reading page image: %w", err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(page.Path))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	body, err := json.Marshal(PageRequest{
		PageNumber: page.PageNumber,
		MimeType:   mimeType,
		Image:      base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	for k, vs := range e.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("layout request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("layout service returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading layout response: %w", err)
	}
	regions, err := DecodeRegions(raw)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("page extracted", "page", page.PageNumber, "regions", len(regions),
		"duration", time.Since(start))
	return regions, nil
}
