package operations

import (
	"context"
	"errors"
	"time"

	"txanomaly/internal/dataprocessing"
	"txanomaly/internal/features"
	"txanomaly/internal/infrastructure"
	"txanomaly/internal/store"
)

// IngestDay cleans one calendar day out of the full raw dataset and writes
// the day's clean partition. The handoff downstream is file-based only.
func IngestDay(ctx context.Context, txns []dataprocessing.Transaction, cleanDir string, date time.Time) (dataprocessing.CleanStats, error) {
	logger := infrastructure.LoggerWithContext(ctx)

	cleaned, stats := dataprocessing.CleanDay(txns, date)
	path, err := store.WriteClean(cleanDir, date, cleaned)
	if err != nil {
		return stats, &StageError{Stage: StageIngest, Date: date, Err: err}
	}

	logger.InfoContext(ctx, "clean partition written",
		"date", date.Format("2006-01-02"),
		"path", path,
		"rows", stats.KeptRows,
		"duplicates_dropped", stats.DuplicatesDropped,
		"missing_amounts", stats.MissingAmounts,
	)
	return stats, nil
}

// FeaturizeDay reads one day's clean partition, aggregates per-user
// features, and writes the feature partition. An absent clean partition or
// a day with no debit activity is a valid no-op, reported as zero rows.
func FeaturizeDay(ctx context.Context, cleanDir, featuresDir string, date time.Time) (int, error) {
	logger := infrastructure.LoggerWithContext(ctx)
	day := date.Format("2006-01-02")

	txns, err := store.ReadClean(cleanDir, date)
	if err != nil {
		if errors.Is(err, store.ErrPartitionMissing) {
			logger.InfoContext(ctx, "no clean partition, skipping day", "date", day)
			return 0, nil
		}
		return 0, &StageError{Stage: StageFeaturize, Date: date, Err: err}
	}

	rows := features.Aggregate(txns)
	if len(rows) == 0 {
		logger.InfoContext(ctx, "no debit activity, no features emitted", "date", day)
		return 0, nil
	}

	path, err := store.WriteFeatures(featuresDir, date, rows)
	if err != nil {
		return 0, &StageError{Stage: StageFeaturize, Date: date, Err: err}
	}
	logger.InfoContext(ctx, "feature partition written",
		"date", day,
		"path", path,
		"users", len(rows),
	)
	return len(rows), nil
}
