// Package pipeline runs the fetch, extract, normalize and aggregate steps over
// a batch of work units.
package pipeline

import (
	"cmp"
	"context"
	"io"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"vulnfeed/internal/crawler"
	"vulnfeed/internal/logger"
	"vulnfeed/internal/models"
	"vulnfeed/internal/normalizer"
)

// WeaknessReport is the result of one walk over a CWE id range.
type WeaknessReport struct {
	Categories map[string]int
	RunID      string
	Records    []models.WeaknessRecord
	Skipped    []models.Outcome[models.WeaknessRecord]
}

func newWeaknessReport(runID string) *WeaknessReport {
	return &WeaknessReport{RunID: runID, Categories: make(map[string]int)}
}

func (r *WeaknessReport) add(out models.Outcome[models.WeaknessRecord]) {
	if !out.OK() {
		r.Skipped = append(r.Skipped, out)
		return
	}

	r.Records = append(r.Records, out.Record)
	r.Categories[out.Record.Category]++
}

// Distribution returns the category counts ordered by count descending. Ties
// keep the category table's match order; unknown names sort last by name.
func (r *WeaknessReport) Distribution() []models.CategoryCount {
	counts := make([]models.CategoryCount, 0, len(r.Categories))
	for name, n := range r.Categories {
		counts = append(counts, models.CategoryCount{Name: name, Count: n})
	}

	names := normalizer.CategoryNames()
	rank := func(name string) int {
		if i := slices.Index(names, name); i >= 0 {
			return i
		}

		return len(names)
	}

	slices.SortFunc(counts, func(a, b models.CategoryCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}

		if c := cmp.Compare(rank(a.Name), rank(b.Name)); c != 0 {
			return c
		}

		return cmp.Compare(a.Name, b.Name)
	})

	return counts
}

// SkipCounts returns the number of skipped units per reason.
func (r *WeaknessReport) SkipCounts() map[models.SkipReason]int {
	counts := make(map[models.SkipReason]int)
	for _, s := range r.Skipped {
		counts[s.Reason]++
	}

	return counts
}

// WeaknessWalker walks a closed range of CWE ids.
type WeaknessWalker struct {
	fetcher   crawler.PageFetcher
	processor *normalizer.Processor
	log       *logger.Logger
	progress  io.Writer
	delay     time.Duration
	workers   int
}

// WalkerOption configures a WeaknessWalker.
type WalkerOption func(*WeaknessWalker)

// WithDelay sets the minimum spacing between fetches. Zero disables pacing.
func WithDelay(d time.Duration) WalkerOption {
	return func(w *WeaknessWalker) {
		w.delay = d
	}
}

// WithWorkers sets the number of concurrent fetches.
func WithWorkers(n int) WalkerOption {
	return func(w *WeaknessWalker) {
		w.workers = max(n, 1)
	}
}

// WithProgress draws a progress bar on out.
func WithProgress(out io.Writer) WalkerOption {
	return func(w *WeaknessWalker) {
		w.progress = out
	}
}

// NewWeaknessWalker creates a sequential walker with no pacing; use options to
// change that.
func NewWeaknessWalker(fetcher crawler.PageFetcher, log *logger.Logger, opts ...WalkerOption) *WeaknessWalker {
	if log == nil {
		log = logger.Discard()
	}

	w := &WeaknessWalker{
		fetcher:   fetcher,
		processor: normalizer.NewProcessor(log),
		log:       log,
		workers:   1,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Walk visits ids start..end inclusive in ascending order. A failed unit is
// recorded as skipped and the walk continues; only cancellation of ctx stops
// it early, returning the partial report with the context error.
func (w *WeaknessWalker) Walk(ctx context.Context, start, end int) (*WeaknessReport, error) {
	runID := uuid.NewString()
	log := w.log.With("run", runID)
	report := newWeaknessReport(runID)

	if end < start {
		return report, nil
	}

	total := end - start + 1
	log.Info("starting weakness walk", "start", start, "end", end, "workers", w.workers, "delay", w.delay)

	var limiter *rate.Limiter
	if w.delay > 0 {
		limiter = rate.NewLimiter(rate.Every(w.delay), 1)
	}

	bar := w.newBar(total)

	var err error
	if w.workers > 1 {
		err = w.walkParallel(ctx, log, limiter, bar, start, total, report)
	} else {
		err = w.walkSequential(ctx, log, limiter, bar, start, total, report)
	}

	if bar != nil {
		_ = bar.Finish()
	}

	log.Info("weakness walk finished", "collected", len(report.Records), "skipped", len(report.Skipped))

	return report, err
}

func (w *WeaknessWalker) walkSequential(ctx context.Context, log *logger.Logger, limiter *rate.Limiter, bar *progressbar.ProgressBar, start, total int, report *WeaknessReport) error {
	for i := range total {
		out, err := w.unit(ctx, log, limiter, start+i)
		if err != nil {
			return err
		}

		report.add(out)
		advance(bar)
	}

	return nil
}

// walkParallel fetches with a bounded pool. Each unit owns one slot, so the
// report is assembled in id order after the pool drains.
func (w *WeaknessWalker) walkParallel(ctx context.Context, log *logger.Logger, limiter *rate.Limiter, bar *progressbar.ProgressBar, start, total int, report *WeaknessReport) error {
	slots := make([]models.Outcome[models.WeaknessRecord], total)
	done := make([]bool, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.workers)

	for i := range total {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			out, err := w.unit(gctx, log, limiter, start+i)
			if err != nil {
				return err
			}

			slots[i] = out
			done[i] = true
			advance(bar)

			return nil
		})
	}

	err := g.Wait()

	for i, out := range slots {
		if done[i] {
			report.add(out)
		}
	}

	if err == nil {
		err = ctx.Err()
	}

	return err
}

// unit processes one id. The error is non-nil only when ctx is done.
func (w *WeaknessWalker) unit(ctx context.Context, log *logger.Logger, limiter *rate.Limiter, id int) (models.Outcome[models.WeaknessRecord], error) {
	if err := ctx.Err(); err != nil {
		return models.Outcome[models.WeaknessRecord]{}, err
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return models.Outcome[models.WeaknessRecord]{}, err
		}
	}

	unit := normalizer.WeaknessUnit(id)
	log.Info("scraping", "unit", unit)

	page, err := w.fetcher.FetchPage(ctx, id)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.Outcome[models.WeaknessRecord]{}, ctxErr
		}

		log.Warn("fetch failed", "unit", unit, "error", err)

		return models.Skipped[models.WeaknessRecord](unit, models.SkipFetchFailed, err), nil
	}

	out := w.processor.ProcessWeakness(id, page)
	if !out.OK() {
		log.Debug("unit skipped", "unit", unit, "reason", out.Reason)
	}

	return out, nil
}

func (w *WeaknessWalker) newBar(total int) *progressbar.ProgressBar {
	if w.progress == nil {
		return nil
	}

	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w.progress),
		progressbar.OptionSetDescription("scraping CWE pages"),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
}

func advance(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Add(1)
	}
}
