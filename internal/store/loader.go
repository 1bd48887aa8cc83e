package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"txanomaly/internal/features"
	"txanomaly/internal/infrastructure"
)

// ReadFeatureRange unions every feature partition whose date falls in the
// inclusive [start, end] range into one table, tagging each row with the
// date reconstructed from its partition keys. Missing days are omitted,
// never an error; malformed partition directories are skipped with a
// warning. Trainer and scorer both load history through this function.
func ReadFeatureRange(ctx context.Context, base string, start, end time.Time) ([]features.Row, error) {
	logger := infrastructure.LoggerWithContext(ctx)

	dirs, err := filepath.Glob(filepath.Join(base, "year=*", "month=*", "day=*"))
	if err != nil {
		return nil, fmt.Errorf("enumerate partitions: %w", err)
	}

	var all []features.Row
	days := 0
	for _, dir := range dirs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		date, err := parsePartitionDate(dir)
		if err != nil {
			logger.WarnContext(ctx, "skipping malformed partition directory",
				"dir", dir, "error", err)
			continue
		}
		if date.Before(start) || date.After(end) {
			continue
		}

		rows, err := ReadFeatures(base, date)
		if err != nil {
			if errors.Is(err, ErrPartitionMissing) {
				// Directory exists but holds no features artifact
				continue
			}
			return nil, fmt.Errorf("load features for %s: %w", date.Format("2006-01-02"), err)
		}

		for i := range rows {
			rows[i].Date = date
		}
		all = append(all, rows...)
		days++
	}

	// Glob order is lexical per component; make the union ordering explicit
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].Date.Equal(all[j].Date) {
			return all[i].Date.Before(all[j].Date)
		}
		return all[i].UserID < all[j].UserID
	})

	logger.InfoContext(ctx, "loaded feature history",
		"base", base,
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"),
		"days", days,
		"rows", len(all),
	)
	return all, nil
}
