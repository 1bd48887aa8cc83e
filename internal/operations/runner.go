package operations

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"txanomaly/internal/infrastructure"
)

// DayStatus is the outcome of one date's unit of work
type DayStatus string

const (
	DayCompleted DayStatus = "completed"
	DayFailed    DayStatus = "failed"
	// DaySkipped marks units cancelled before they started (failFast)
	DaySkipped DayStatus = "skipped"
)

// DayResult captures one date's outcome; failures carry their error so no
// day's failure is swallowed silently
type DayResult struct {
	Date     time.Time
	Status   DayStatus
	Err      error
	Duration time.Duration
}

// Runner executes independent per-day units through a bounded worker pool.
// Units share no mutable state: each reads and writes only its own date's
// partitions, so the pool needs no locking beyond the group itself.
type Runner struct {
	workers  int
	failFast bool
}

// NewRunner creates a runner with the given pool size. With failFast set,
// the first failed day cancels the remaining units; otherwise failures are
// collected and siblings run to completion (best-effort).
func NewRunner(workers int, failFast bool) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{workers: workers, failFast: failFast}
}

// RunDays executes unit once per date through the pool and returns every
// date's result. The returned error is non-nil only under failFast, or when
// the context is cancelled; best-effort runs report failures through the
// results.
func (r *Runner) RunDays(ctx context.Context, dates []time.Time, unit func(ctx context.Context, date time.Time) error) ([]DayResult, error) {
	logger := infrastructure.LoggerWithContext(ctx)
	results := make([]DayResult, len(dates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, date := range dates {
		i, date := i, date
		g.Go(func() error {
			if gctx.Err() != nil {
				results[i] = DayResult{Date: date, Status: DaySkipped, Err: gctx.Err()}
				return nil
			}
			start := time.Now()
			err := unit(gctx, date)
			results[i] = DayResult{
				Date:     date,
				Status:   DayCompleted,
				Duration: time.Since(start),
			}
			if err != nil {
				results[i].Status = DayFailed
				results[i].Err = err
				logger.ErrorContext(gctx, "day unit failed",
					"date", date.Format("2006-01-02"),
					"error", err,
				)
				if r.failFast {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("day units aborted: %w", err)
	}
	return results, nil
}

// Failed filters the failed results from a run
func Failed(results []DayResult) []DayResult {
	var failed []DayResult
	for _, result := range results {
		if result.Status == DayFailed {
			failed = append(failed, result)
		}
	}
	return failed
}
