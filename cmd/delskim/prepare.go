package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"delskim/arrowio"
	"delskim/config"
	"delskim/delphes"
	"delskim/metrics"
	"delskim/skim"
	"delskim/xsec"
)

type prepareOptions struct {
	output      string
	compress    bool
	maxEvents   int
	workers     int
	xsecPath    string
	metricsAddr string
}

func newPrepareCmd(cfg *config.Config) *cobra.Command {
	opts := prepareOptions{
		maxEvents:   cfg.MaxEvents,
		workers:     cfg.Workers,
		xsecPath:    cfg.XsecPath,
		metricsAddr: cfg.MetricsAddr,
	}

	cmd := &cobra.Command{
		Use:   "prepare [flags] FILE_LIST...",
		Short: "Skim detector-simulation files into one dataset",
		Long: `Prepare reads text files listing detector-simulation data files,
applies the fat-jet selection chain to each file in parallel, and merges the
per-file results into one column-aligned dataset.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrepare(cmd.Context(), args, opts)
		},
	}
	addPrepareFlags(cmd.Flags(), &opts)
	return cmd
}

func addPrepareFlags(flags *pflag.FlagSet, opts *prepareOptions) {
	flags.StringVarP(&opts.output, "output", "o", "", "output dataset path (no output written when empty)")
	flags.BoolVar(&opts.compress, "compress", false, "zstd-compress the output dataset")
	flags.IntVarP(&opts.maxEvents, "max-events", "n", opts.maxEvents, "maximum events to read per file (0 = all)")
	flags.IntVarP(&opts.workers, "workers", "p", opts.workers, "number of concurrent worker tasks")
	flags.StringVar(&opts.xsecPath, "xsec", opts.xsecPath, "cross-section reference table")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", opts.metricsAddr, "address for the Prometheus /metrics endpoint (disabled when empty)")
}

func runPrepare(ctx context.Context, lists []string, opts prepareOptions) error {
	log := slog.Default()

	files, err := readFileLists(lists)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.Info("no input files listed, exiting")
		return nil
	}
	log.Info("processing input files", "files", len(files))

	var m *metrics.Metrics
	if opts.metricsAddr != "" {
		m = metrics.NewMetrics("delskim", nil)
		srv := metrics.NewServer(opts.metricsAddr)
		srv.StartAsync()
		defer srv.Stop()
	}

	dispatcher := &skim.Dispatcher{
		Workers: opts.workers,
		Processor: &skim.Processor{
			Reader:    delphes.NewIPCReader(),
			Xsec:      xsec.NewLazy(opts.xsecPath),
			MaxEvents: opts.maxEvents,
			Metrics:   m,
			Log:       log,
		},
		Log: log,
	}

	results, err := dispatcher.Run(ctx, files)
	if err != nil {
		return err
	}

	log.Info("merging results from parallel tasks")
	merged, err := skim.Merge(results)
	if err != nil {
		return err
	}

	if skim.SkimTotal(merged) == 0 {
		log.Info("no events selected by filter, exiting")
		return nil
	}

	summary := skim.SummarizeRegions(merged)
	log.Info("signal region selection",
		"events", summary.Events, "sr4j", summary.SR4J, "sr5j", summary.SR5J, "sr", summary.SR)

	if opts.output != "" {
		events, bookkeeping := skim.SplitDataset(merged)
		log.Info("writing dataset",
			"path", opts.output, "columns", len(merged), "compress", opts.compress)
		if err := arrowio.WriteTable(opts.output, events, opts.compress); err != nil {
			return err
		}
		if err := arrowio.WriteTable(arrowio.SidecarPath(opts.output), bookkeeping, opts.compress); err != nil {
			return err
		}
	}

	log.Info("done")
	return nil
}

// readFileLists reads newline-separated data-file paths from each list, in
// order. Blank lines and '#' comments are skipped.
func readFileLists(lists []string) ([]string, error) {
	var files []string
	for _, list := range lists {
		f, err := os.Open(list)
		if err != nil {
			return nil, fmt.Errorf("failed to open file list: %w", err)
		}

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			files = append(files, line)
		}
		if err := scanner.Err(); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to read file list %s: %w", list, err)
		}
		f.Close()
	}
	return files, nil
}
