package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vulnfeed/internal/config"
)

func newTestScraper(t *testing.T, handler http.HandlerFunc) *Scraper {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default().CWE
	cfg.BaseURL = srv.URL + "/data/definitions/"
	cfg.Timeout = 2 * time.Second

	return NewScraperWithConfig(&cfg)
}

func TestScraper_FetchPage(t *testing.T) {
	var gotPath, gotUA string

	s := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html>page</html>"))
	})

	content, err := s.FetchPage(context.Background(), 79)
	if err != nil {
		t.Fatalf("FetchPage returned unexpected error: %v", err)
	}

	if content != "<html>page</html>" {
		t.Errorf("content = %q", content)
	}

	if gotPath != "/data/definitions/79.html" {
		t.Errorf("path = %q, want /data/definitions/79.html", gotPath)
	}

	if gotUA != config.DefaultUserAgent {
		t.Errorf("User-Agent = %q, want browser agent", gotUA)
	}
}

func TestScraper_ScrapeWithMetrics_Status(t *testing.T) {
	calls := 0

	s := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		calls++

		http.NotFound(w, r)
	})

	content, status, _, err := s.ScrapeWithMetrics(context.Background(), s.PageURL(9999))
	if !errors.Is(err, ErrUnexpectedStatusCode) {
		t.Fatalf("err = %v, want ErrUnexpectedStatusCode", err)
	}

	if status != http.StatusNotFound || content != "" {
		t.Errorf("status = %d content = %q", status, content)
	}

	if calls != 1 {
		t.Errorf("server saw %d requests, want exactly 1", calls)
	}
}

func TestScraper_EmptyBody(t *testing.T) {
	s := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if _, err := s.FetchPage(context.Background(), 1); !errors.Is(err, ErrEmptyBody) {
		t.Errorf("err = %v, want ErrEmptyBody", err)
	}
}

func TestScraper_Timeout(t *testing.T) {
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := config.Default().CWE
	cfg.BaseURL = srv.URL + "/"
	cfg.Timeout = 50 * time.Millisecond

	if _, err := NewScraperWithConfig(&cfg).FetchPage(context.Background(), 1); err == nil {
		t.Error("expected timeout error")
	}
}

func TestScraper_BodyLimit(t *testing.T) {
	s := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 4096)))
	})
	s.maxBodyBytes = 1024

	content, err := s.FetchPage(context.Background(), 1)
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("FetchPage error = %v, want ErrBodyTooLarge", err)
	}

	if content != "" {
		t.Errorf("content = %d bytes, want none", len(content))
	}

	s.maxBodyBytes = 4096

	content, err = s.FetchPage(context.Background(), 1)
	if err != nil {
		t.Fatalf("body at the limit returned error: %v", err)
	}

	if len(content) != 4096 {
		t.Errorf("len(content) = %d, want 4096", len(content))
	}
}

func TestDirFetcher(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "20.html"), []byte("<div>20</div>"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "21.html"), nil, 0o600); err != nil {
		t.Fatal(err)
	}

	f := NewDirFetcher(dir)

	content, err := f.FetchPage(context.Background(), 20)
	if err != nil || content != "<div>20</div>" {
		t.Errorf("FetchPage(20) = %q, %v", content, err)
	}

	if _, err := f.FetchPage(context.Background(), 21); !errors.Is(err, ErrEmptyBody) {
		t.Errorf("FetchPage(21) err = %v, want ErrEmptyBody", err)
	}

	if _, err := f.FetchPage(context.Background(), 22); err == nil {
		t.Error("FetchPage(22) expected error for missing file")
	}
}
