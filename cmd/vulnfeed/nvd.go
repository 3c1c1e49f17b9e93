package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vulnfeed/internal/formatter"
	"vulnfeed/internal/pipeline"
)

type nvdOptions struct {
	outputDir string
	glob      string
}

func newNVDCmd(root *rootOptions) *cobra.Command {
	opts := &nvdOptions{}

	cmd := &cobra.Command{
		Use:   "nvd [archive...]",
		Short: "Convert NVD 1.1 JSON feed archives into CSV files",
		Long:  "Reads each zipped NVD 1.1 JSON feed and writes <output-dir>/nvd_data_<year>.csv. Without arguments the archives are discovered with the configured glob.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNVD(cmd, root, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.outputDir, "output-dir", "", "Directory for the CSV files (overrides config)")
	flags.StringVar(&opts.glob, "glob", "", "Archive discovery pattern (overrides config)")

	return cmd
}

func runNVD(cmd *cobra.Command, root *rootOptions, opts *nvdOptions, args []string) error {
	cfg, err := root.load(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("output-dir") {
		cfg.NVD.OutputDir = opts.outputDir
	}

	if flags.Changed("glob") {
		cfg.NVD.ArchiveGlob = opts.glob
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := newLogger(cmd, cfg)
	log.Debug("configuration loaded", "config", cfg.String())

	paths := args
	if len(paths) == 0 {
		paths, err = pipeline.DiscoverArchives(cfg.NVD.ArchiveGlob)
		if err != nil {
			return err
		}
	}

	report, walkErr := pipeline.NewFeedWalker(cfg.NVD.OutputDir, log).WalkArchives(cmd.Context(), paths)

	out := cmd.OutOrStdout()
	if len(report.Archives) > 0 {
		fmt.Fprintln(out, formatter.ArchiveSummary(report))
	}

	if walkErr != nil {
		return walkErr
	}

	records, failed := report.Totals()
	fmt.Fprintf(out, "\nAll processing complete: %d records from %d archives (%d failed)\n", records, len(report.Archives), failed)

	return nil
}
