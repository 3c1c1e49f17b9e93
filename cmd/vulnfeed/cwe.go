package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vulnfeed/internal/crawler"
	"vulnfeed/internal/formatter"
	"vulnfeed/internal/models"
	"vulnfeed/internal/pipeline"
	"vulnfeed/internal/sink"
)

type cweOptions struct {
	output   string
	pagesDir string
	start    int
	end      int
	workers  int
	delay    time.Duration
}

func newCWECmd(root *rootOptions) *cobra.Command {
	opts := &cweOptions{}

	cmd := &cobra.Command{
		Use:   "cwe",
		Short: "Scrape CWE definition pages into a CSV dataset",
		Long:  "Walks a range of CWE ids, extracts the description and likelihood of exploit from each definition page, assigns a category and writes one CSV row per weakness.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCWE(cmd, root, opts)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&opts.start, "start", 0, "First CWE id (overrides config)")
	flags.IntVar(&opts.end, "end", 0, "Last CWE id, inclusive (overrides config)")
	flags.DurationVar(&opts.delay, "delay", 0, "Minimum delay between fetches (overrides config)")
	flags.IntVar(&opts.workers, "workers", 0, "Concurrent fetches (overrides config)")
	flags.StringVarP(&opts.output, "output", "o", "", "Output CSV path (overrides config)")
	flags.StringVar(&opts.pagesDir, "pages-dir", "", "Read <id>.html pages from this directory instead of the network")

	return cmd
}

func runCWE(cmd *cobra.Command, root *rootOptions, opts *cweOptions) error {
	cfg, err := root.load(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("start") {
		cfg.CWE.StartID = opts.start
	}

	if flags.Changed("end") {
		cfg.CWE.EndID = opts.end
	}

	if flags.Changed("delay") {
		cfg.CWE.Delay = opts.delay
	}

	if flags.Changed("workers") {
		cfg.CWE.Workers = opts.workers
	}

	if flags.Changed("output") {
		cfg.CWE.Output = opts.output
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := newLogger(cmd, cfg)
	log.Debug("configuration loaded", "config", cfg.String(), "ids", cfg.CWE.RangeSize())

	var fetcher crawler.PageFetcher = crawler.NewScraperWithConfig(&cfg.CWE)
	if opts.pagesDir != "" {
		fetcher = crawler.NewDirFetcher(opts.pagesDir)
	}

	walkerOpts := []pipeline.WalkerOption{
		pipeline.WithDelay(cfg.CWE.Delay),
		pipeline.WithWorkers(cfg.CWE.Workers),
	}
	if cfg.Logging.ShowProgress {
		walkerOpts = append(walkerOpts, pipeline.WithProgress(cmd.ErrOrStderr()))
	}

	report, err := pipeline.NewWeaknessWalker(fetcher, log, walkerOpts...).Walk(cmd.Context(), cfg.CWE.StartID, cfg.CWE.EndID)
	if err != nil {
		return fmt.Errorf("weakness walk interrupted: %w", err)
	}

	table := sink.NewTable(models.WeaknessColumns)
	if err := sink.AppendRecords(table, report.Records); err != nil {
		return err
	}

	if err := table.WriteFile(cfg.CWE.Output, sink.EmptyHeaderOnly); err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nTotal CWEs collected: %d\n", len(report.Records))

	if len(report.Records) > 0 {
		fmt.Fprintf(out, "\n%s\n", formatter.CategoryTable(report.Distribution()))
	}

	if len(report.Skipped) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, formatter.SkipSummary(report.SkipCounts()))
	}

	fmt.Fprintf(out, "\nData saved to %s\n", cfg.CWE.Output)

	return nil
}
