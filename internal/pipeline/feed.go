package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"vulnfeed/internal/crawler"
	"vulnfeed/internal/crawler/parsers"
	"vulnfeed/internal/logger"
	"vulnfeed/internal/models"
	"vulnfeed/internal/normalizer"
	"vulnfeed/internal/sink"
)

// feedMemberExt is the extension of the feed document inside an archive.
const feedMemberExt = ".json"

// Feed walk errors.
var (
	ErrUnrecognizedArchiveName = errors.New("archive name has no year segment")
	// ErrSinkFailed marks a failure to write an output file. It ends the walk.
	ErrSinkFailed = errors.New("failed to write output")
)

// ArchiveResult is the outcome of processing one archive.
type ArchiveResult struct {
	Err     error
	Path    string
	Member  string
	Output  string
	Skipped []models.Outcome[models.VulnerabilityRecord]
	Records int
}

// Written reports whether an output file was produced.
func (a ArchiveResult) Written() bool {
	return a.Output != ""
}

// FeedReport is the result of one walk over a set of archives.
type FeedReport struct {
	RunID    string
	Archives []ArchiveResult
}

// Totals returns the number of records written and archives that failed.
func (r *FeedReport) Totals() (records, failed int) {
	for _, a := range r.Archives {
		records += a.Records
		if a.Err != nil {
			failed++
		}
	}

	return records, failed
}

// FeedWalker turns NVD feed archives into one CSV file each.
type FeedWalker struct {
	archives  *crawler.ArchiveReader
	processor *normalizer.Processor
	log       *logger.Logger
	outputDir string
}

// NewFeedWalker creates a walker writing into outputDir.
func NewFeedWalker(outputDir string, log *logger.Logger) *FeedWalker {
	if log == nil {
		log = logger.Discard()
	}

	return &FeedWalker{
		archives:  crawler.NewArchiveReader(),
		processor: normalizer.NewProcessor(log),
		log:       log,
		outputDir: outputDir,
	}
}

// DiscoverArchives returns the archives matching pattern in lexical order.
func DiscoverArchives(pattern string) ([]string, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid archive pattern %q: %w", pattern, err)
	}

	return paths, nil
}

// OutputPathFor returns <outputDir>/nvd_data_<year>.csv where year is the third
// dash-separated segment of the archive's base name, up to its first dot.
func OutputPathFor(outputDir, archivePath string) (string, error) {
	parts := strings.Split(filepath.Base(archivePath), "-")
	if len(parts) < 3 {
		return "", fmt.Errorf("%w: %s", ErrUnrecognizedArchiveName, archivePath)
	}

	year, _, _ := strings.Cut(parts[2], ".")

	return filepath.Join(outputDir, "nvd_data_"+year+".csv"), nil
}

// WalkItems normalizes every item of one feed document in order. Malformed
// items are returned as skipped outcomes; only an unreadable document is an error.
func (f *FeedWalker) WalkItems(doc []byte) ([]models.VulnerabilityRecord, []models.Outcome[models.VulnerabilityRecord], error) {
	items, err := parsers.ParseFeed(doc)
	if err != nil {
		return nil, nil, err
	}

	var (
		records []models.VulnerabilityRecord
		skipped []models.Outcome[models.VulnerabilityRecord]
	)

	for i, raw := range items {
		out := f.processor.ProcessFeedItem(i, raw)
		if !out.OK() {
			f.log.Warn("skipping feed item", "unit", out.Unit, "error", out.Err)
			skipped = append(skipped, out)

			continue
		}

		records = append(records, out.Record)
	}

	return records, skipped, nil
}

// WalkArchives processes each archive independently. Read and decode failures
// are recorded per archive; a sink failure or cancellation of ctx stops the walk
// and returns the partial report.
func (f *FeedWalker) WalkArchives(ctx context.Context, paths []string) (*FeedReport, error) {
	report := &FeedReport{RunID: uuid.NewString()}
	log := f.log.With("run", report.RunID)

	log.Info(fmt.Sprintf("Found %d NVD feed files to process", len(paths)))

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result, err := f.walkArchive(log, path)
		if err != nil {
			report.Archives = append(report.Archives, result)
			return report, err
		}

		if result.Err != nil {
			log.Error("archive failed", "archive", path, "error", result.Err)
		}

		report.Archives = append(report.Archives, result)
	}

	return report, nil
}

// walkArchive returns a non-nil error only for sink failures.
func (f *FeedWalker) walkArchive(log *logger.Logger, path string) (ArchiveResult, error) {
	result := ArchiveResult{Path: path}
	log = log.With("archive", path)

	output, err := OutputPathFor(f.outputDir, path)
	if err != nil {
		result.Err = err
		return result, nil
	}

	log.Info("processing archive")

	member, doc, err := f.archives.ReadMember(path, feedMemberExt)
	result.Member = member

	if err != nil {
		result.Err = err
		return result, nil
	}

	log.Info("reading feed document", "member", member)

	records, skipped, err := f.WalkItems(doc)
	result.Skipped = skipped

	if err != nil {
		result.Err = fmt.Errorf("%s: %w", member, err)
		return result, nil
	}

	table := sink.NewTable(models.VulnerabilityColumns)
	if err := sink.AppendRecords(table, records); err != nil {
		result.Err = fmt.Errorf("%w: %w", ErrSinkFailed, err)
		return result, result.Err
	}

	if err := table.WriteFile(output, sink.EmptySuppress); err != nil {
		if errors.Is(err, sink.ErrEmptyTable) {
			log.Warn("no data found in archive, no output written")
			return result, nil
		}

		result.Err = fmt.Errorf("%w: %w", ErrSinkFailed, err)

		return result, result.Err
	}

	result.Output = output
	result.Records = len(records)
	log.Info("csv file created", "output", output, "records", len(records))

	return result, nil
}
