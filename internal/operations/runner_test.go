package operations

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDates(n int) []time.Time {
	dates := make([]time.Time, n)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range dates {
		dates[i] = base.AddDate(0, 0, i)
	}
	return dates
}

func TestRunDaysAllComplete(t *testing.T) {
	runner := NewRunner(4, false)
	dates := testDates(6)

	var calls int64
	results, err := runner.RunDays(context.Background(), dates, func(ctx context.Context, date time.Time) error {
		atomic.AddInt64(&calls, 1)
		return nil
	})

	require.NoError(t, err)
	require.Len(t, results, len(dates))
	assert.Equal(t, int64(len(dates)), calls)
	for i, result := range results {
		assert.Equal(t, DayCompleted, result.Status)
		assert.Equal(t, dates[i], result.Date)
		assert.NoError(t, result.Err)
	}
}

func TestRunDaysBoundedPool(t *testing.T) {
	const workers = 2
	runner := NewRunner(workers, false)

	var mu sync.Mutex
	var current, peak int

	results, err := runner.RunDays(context.Background(), testDates(8), func(ctx context.Context, date time.Time) error {
		mu.Lock()
		current++
		if current > peak {
			peak = current
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		current--
		mu.Unlock()
		return nil
	})

	require.NoError(t, err)
	assert.Empty(t, Failed(results))
	assert.LessOrEqual(t, peak, workers)
}

func TestRunDaysBestEffortCollectsFailures(t *testing.T) {
	runner := NewRunner(3, false)
	dates := testDates(5)
	badDay := dates[2]
	unitErr := errors.New("partition write failed")

	results, err := runner.RunDays(context.Background(), dates, func(ctx context.Context, date time.Time) error {
		if date.Equal(badDay) {
			return unitErr
		}
		return nil
	})

	require.NoError(t, err, "best-effort runs must not abort on a single failure")
	failed := Failed(results)
	require.Len(t, failed, 1)
	assert.Equal(t, badDay, failed[0].Date)
	assert.ErrorIs(t, failed[0].Err, unitErr)

	completed := 0
	for _, result := range results {
		if result.Status == DayCompleted {
			completed++
		}
	}
	assert.Equal(t, 4, completed, "siblings of a failed day still run to completion")
}

func TestRunDaysFailFast(t *testing.T) {
	runner := NewRunner(1, true)
	dates := testDates(5)
	unitErr := errors.New("raw file unreadable")

	results, err := runner.RunDays(context.Background(), dates, func(ctx context.Context, date time.Time) error {
		return unitErr
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, unitErr)

	var failed, skipped int
	for _, result := range results {
		switch result.Status {
		case DayFailed:
			failed++
		case DaySkipped:
			skipped++
		}
	}
	assert.Equal(t, 1, failed, "only the first unit runs before cancellation")
	assert.Equal(t, len(dates)-1, skipped, "queued units are cancelled, not executed")
}

func TestRunDaysParentCancellation(t *testing.T) {
	runner := NewRunner(2, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int64
	results, err := runner.RunDays(ctx, testDates(4), func(ctx context.Context, date time.Time) error {
		atomic.AddInt64(&calls, 1)
		return nil
	})

	require.NoError(t, err)
	assert.Zero(t, calls)
	for _, result := range results {
		assert.Equal(t, DaySkipped, result.Status)
	}
}

func TestNewRunnerClampsWorkers(t *testing.T) {
	runner := NewRunner(0, false)
	assert.Equal(t, 1, runner.workers)
}
