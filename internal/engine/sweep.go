package engine

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"vantage/internal/domain"
	"vantage/internal/risk"
	"vantage/internal/util"
)

// Job is one run of a parameter sweep. Jobs may share a Strategy only if
// its Signal depends on nothing but the window.
type Job struct {
	Name           string
	Config         risk.Config
	Strategy       Strategy
	InitialCapital float64
}

// JobResult is the outcome of one Job. Err holds configuration or data errors
// of that job alone.
type JobResult struct {
	Job    Job
	Result *Result
	Err    error
}

// Sweep runs jobs over the same bars with at most workers runs in flight.
// Results are returned in job order. bars is shared read-only by all runs.
// Only context cancellation fails the sweep as a whole.
func Sweep(ctx context.Context, bars []domain.Bar, jobs []Job, workers int, cal *util.TradingCalendar, log *slog.Logger) ([]JobResult, error) {
	if workers < 1 {
		workers = 1
	}
	log = util.OrDefault(log).With("component", "sweep")

	results := make([]JobResult, len(jobs))
	sem := make(chan struct{}, workers)

	g, gctx := errgroup.WithContext(ctx)

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			if err := gctx.Err(); err != nil {
				return err
			}

			results[i].Job = job
			eng, err := NewEngine(job.Config, cal, log.With("job", job.Name))
			if err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Result, results[i].Err = eng.Run(bars, job.Strategy, job.InitialCapital)
			if results[i].Err != nil {
				log.Warn("sweep job failed", "job", job.Name, "error", results[i].Err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
