package skim

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Dispatcher fans ProcessFile out over a bounded worker pool and collects
// all results before returning. Files are independent; results are returned
// in input order. A fatal error from any worker cancels the remaining work
// and propagates.
type Dispatcher struct {
	Workers   int // degenerate single-worker mode when <= 1
	Processor *Processor
	Log       *slog.Logger
}

// Run processes all files and blocks until every task has completed.
// Per-file read failures appear as nil entries in the result slice; fatal
// errors (unknown cross-section sample) abort the whole batch.
func (d *Dispatcher) Run(ctx context.Context, files []string) ([]*FileResult, error) {
	workers := d.Workers
	if workers <= 0 {
		workers = 1
	}

	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("starting worker pool", "workers", workers, "files", len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	results := make([]*FileResult, len(files))
	for i, path := range files {
		g.Go(func() error {
			d.Processor.Metrics.WorkerStarted()
			defer d.Processor.Metrics.WorkerDone()

			res, err := d.Processor.ProcessFile(ctx, path)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
