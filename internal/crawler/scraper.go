// Package crawler retrieves raw source documents: CWE definition pages over HTTP
// and NVD feed documents from local zip archives.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"vulnfeed/internal/config"
	"vulnfeed/pkg/utils"
)

// Fetch errors.
var (
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrEmptyBody            = errors.New("empty response body")
	ErrBodyTooLarge         = errors.New("response body exceeds limit")
)

// PageFetcher returns the definition page of one CWE id.
type PageFetcher interface {
	FetchPage(ctx context.Context, id int) (string, error)
}

// Scraper fetches CWE definition pages. It never retries: a failed fetch is
// reported to the caller, which skips that id.
type Scraper struct {
	client       *http.Client
	headers      *utils.HTTPHelper
	baseURL      string
	maxBodyBytes int64
}

// NewScraperWithConfig creates a scraper from the CWE section of the config.
func NewScraperWithConfig(cfg *config.CWEConfig) *Scraper {
	return &Scraper{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		headers:      utils.NewHTTPHelper(cfg.UserAgent),
		baseURL:      cfg.BaseURL,
		maxBodyBytes: int64(cfg.MaxBodyKb) * 1024,
	}
}

// PageURL returns the URL fetched for id.
func (s *Scraper) PageURL(id int) string {
	return s.baseURL + strconv.Itoa(id) + ".html"
}

// FetchPage fetches the definition page for id.
func (s *Scraper) FetchPage(ctx context.Context, id int) (string, error) {
	content, _, _, err := s.ScrapeWithMetrics(ctx, s.PageURL(id))

	return content, err
}

// ScrapeWithMetrics returns (content, statusCode, duration, error) for a single attempt.
func (s *Scraper) ScrapeWithMetrics(ctx context.Context, url string) (string, int, time.Duration, error) {
	startTime := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", 0, time.Since(startTime), fmt.Errorf("failed to create request: %w", err)
	}

	req.Header = s.headers.BuildHeaders(nil)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, time.Since(startTime), fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

		return "", resp.StatusCode, time.Since(startTime), fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodyBytes+1))
	if err != nil {
		return "", resp.StatusCode, time.Since(startTime), fmt.Errorf("failed to read response body: %w", err)
	}

	// truncated pages are never parsed
	if int64(len(body)) > s.maxBodyBytes {
		return "", resp.StatusCode, time.Since(startTime), fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, s.maxBodyBytes)
	}

	if len(body) == 0 {
		return "", resp.StatusCode, time.Since(startTime), ErrEmptyBody
	}

	return string(body), resp.StatusCode, time.Since(startTime), nil
}

// DirFetcher serves pages from a local directory holding <id>.html files,
// for offline runs against a saved copy of the catalog.
type DirFetcher struct {
	dir string
}

// NewDirFetcher creates a fetcher reading from dir.
func NewDirFetcher(dir string) *DirFetcher {
	return &DirFetcher{dir: dir}
}

// FetchPage reads <dir>/<id>.html.
func (d *DirFetcher) FetchPage(ctx context.Context, id int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(d.dir, strconv.Itoa(id)+".html")

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read local file %s: %w", path, err)
	}

	if len(content) == 0 {
		return "", fmt.Errorf("%s: %w", path, ErrEmptyBody)
	}

	return string(content), nil
}
