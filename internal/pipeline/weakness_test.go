package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"vulnfeed/internal/crawler"
	"vulnfeed/internal/models"
)

var errNotFound = errors.New("not found")

// fakeFetcher serves canned pages and records the ids it was asked for.
type fakeFetcher struct {
	pages map[int]string
	mu    sync.Mutex
	calls []int
}

func (f *fakeFetcher) FetchPage(ctx context.Context, id int) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()

	page, ok := f.pages[id]
	if !ok {
		return "", errNotFound
	}

	return page, nil
}

func descriptionPage(text string) string {
	return fmt.Sprintf(`<html><body><div id="Description"><div class="detail">%s</div></div></body></html>`, text)
}

func TestWeaknessWalker_Walk(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[int]string{
		1: descriptionPage("Improper neutralization of input during web page generation (XSS)"),
		3: "",
		4: `<div id="Likelihood_Of_Exploit"><div class="detail">High</div></div>`,
		5: descriptionPage("Missing release of memory after effective lifetime") +
			`<div id="Likelihood_Of_Exploit"><div class="detail">Medium</div></div>`,
	}}

	report, err := NewWeaknessWalker(fetcher, nil).Walk(context.Background(), 1, 5)
	require.NoError(t, err)

	want := []models.WeaknessRecord{
		{ID: 1, Description: "Improper neutralization of input during web page generation (XSS)", Exploitability: models.NotSpecified, Category: "Web Security"},
		{ID: 5, Description: "Missing release of memory after effective lifetime", Exploitability: "Medium", Category: models.CategoryOther},
	}

	if diff := cmp.Diff(want, report.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, report.Skipped, 3)
	assert.Equal(t, models.SkipFetchFailed, report.Skipped[0].Reason)
	assert.Equal(t, "CWE-2", report.Skipped[0].Unit)
	assert.Equal(t, models.SkipEmptyDocument, report.Skipped[1].Reason)
	assert.Equal(t, models.SkipMissingDescription, report.Skipped[2].Reason)

	assert.Equal(t, []int{1, 2, 3, 4, 5}, fetcher.calls)
	assert.Equal(t, map[string]int{"Web Security": 1, models.CategoryOther: 1}, report.Categories)
	assert.NotEmpty(t, report.RunID)
}

func TestWeaknessWalker_EmptyRange(t *testing.T) {
	fetcher := &fakeFetcher{}

	report, err := NewWeaknessWalker(fetcher, nil).Walk(context.Background(), 10, 9)
	require.NoError(t, err)
	assert.Empty(t, report.Records)
	assert.Empty(t, fetcher.calls)
}

func TestWeaknessWalker_ParallelKeepsOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	descriptions := []string{"SQL Injection in login", "Race Conditions in cache", "Design flaw", "nothing here"}

	pages := make(map[int]string)
	for id := 1; id <= 40; id++ {
		if id%7 == 0 {
			continue
		}

		pages[id] = descriptionPage(descriptions[id%len(descriptions)])
	}

	sequential, err := NewWeaknessWalker(&fakeFetcher{pages: pages}, nil).Walk(context.Background(), 1, 40)
	require.NoError(t, err)

	parallel, err := NewWeaknessWalker(&fakeFetcher{pages: pages}, nil, WithWorkers(8)).Walk(context.Background(), 1, 40)
	require.NoError(t, err)

	if diff := cmp.Diff(sequential.Records, parallel.Records); diff != "" {
		t.Errorf("parallel records differ (-sequential +parallel):\n%s", diff)
	}

	assert.Equal(t, sequential.Categories, parallel.Categories)
	assert.Len(t, parallel.Skipped, 5)

	for i := 1; i < len(parallel.Records); i++ {
		assert.Less(t, parallel.Records[i-1].ID, parallel.Records[i].ID)
	}
}

func TestWeaknessWalker_Pacing(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[int]string{}}

	started := time.Now()

	_, err := NewWeaknessWalker(fetcher, nil, WithDelay(20*time.Millisecond)).Walk(context.Background(), 1, 3)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(started), 35*time.Millisecond)
	assert.Len(t, fetcher.calls, 3)
}

func TestWeaknessWalker_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &fakeFetcher{}

	report, err := NewWeaknessWalker(fetcher, nil).Walk(ctx, 1, 100)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Records)
	assert.Empty(t, fetcher.calls)
}

func TestWeaknessWalker_Progress(t *testing.T) {
	var buf bytes.Buffer

	_, err := NewWeaknessWalker(&fakeFetcher{}, nil, WithProgress(&buf)).Walk(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "scraping CWE pages")
}

func TestWeaknessWalker_DirFetcher(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "89.html"), []byte(descriptionPage("SQL Injection via crafted query")), 0o600))

	report, err := NewWeaknessWalker(crawler.NewDirFetcher(dir), nil).Walk(context.Background(), 88, 89)
	require.NoError(t, err)

	require.Len(t, report.Records, 1)
	assert.Equal(t, 89, report.Records[0].ID)
	assert.Equal(t, "Web Security", report.Records[0].Category)
	assert.Equal(t, models.SkipFetchFailed, report.Skipped[0].Reason)
}

func TestWeaknessReport_Distribution(t *testing.T) {
	report := &WeaknessReport{Categories: map[string]int{
		"Web Security":        2,
		"Other":               5,
		"Input Validation":    1,
		"Code Quality":        2,
		"Security Features":   1,
		"Unlisted":            1,
		"Resource Management": 1,
	}}

	// ties follow the category table, not the alphabet
	want := []models.CategoryCount{
		{Name: "Other", Count: 5},
		{Name: "Code Quality", Count: 2},
		{Name: "Web Security", Count: 2},
		{Name: "Security Features", Count: 1},
		{Name: "Input Validation", Count: 1},
		{Name: "Resource Management", Count: 1},
		{Name: "Unlisted", Count: 1},
	}

	assert.Equal(t, want, report.Distribution())
}

func TestWeaknessReport_SkipCounts(t *testing.T) {
	report := &WeaknessReport{Skipped: []models.Outcome[models.WeaknessRecord]{
		models.Skipped[models.WeaknessRecord]("CWE-1", models.SkipFetchFailed, errNotFound),
		models.Skipped[models.WeaknessRecord]("CWE-2", models.SkipFetchFailed, errNotFound),
		models.Skipped[models.WeaknessRecord]("CWE-3", models.SkipEmptyDocument, nil),
	}}

	assert.Equal(t, map[models.SkipReason]int{models.SkipFetchFailed: 2, models.SkipEmptyDocument: 1}, report.SkipCounts())
}
