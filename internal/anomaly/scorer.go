package anomaly

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"txanomaly/internal/features"
	"txanomaly/internal/infrastructure"
	"txanomaly/internal/store"
)

// Alert is one flagged (user, day) with its originating feature snapshot.
// The static flag comes from the model's globally-fit boundary; the dynamic
// flag is self-calibrated against that day's own score distribution. They
// are reported side by side, never merged.
type Alert struct {
	UserID          string
	Date            time.Time
	Cnt24h          int
	Sum24h          float64
	AvgAmount       float64
	UniqueMerchants int
	AnomalyScore    float64
	FlagStatic      bool
	FlagDynamic     bool
}

// Summary aggregates a scoring run for the operator report
type Summary struct {
	Days         int
	Rows         int
	StaticAlerts int
	// Top holds the ten lowest-scoring (most anomalous) alerts
	Top []Alert
}

// Scorer applies a loaded model artifact to feature partitions
type Scorer struct {
	artifact *Artifact
	minTxns  int
}

// NewScorer creates a scorer around a loaded artifact, using the same
// activity floor that training used
func NewScorer(artifact *Artifact, minTxns int) *Scorer {
	return &Scorer{artifact: artifact, minTxns: minTxns}
}

// ScoreDay scores one day's feature rows. The same activity filter as
// training applies first; when it empties the day, the day yields no
// alerts and that is not an error.
func (s *Scorer) ScoreDay(ctx context.Context, rows []features.Row, date time.Time) ([]Alert, error) {
	active := FilterActive(rows, s.minTxns)
	if len(active) == 0 {
		return nil, nil
	}

	matrix := features.Matrix(active)
	scores, err := s.artifact.Score(matrix)
	if err != nil {
		return nil, fmt.Errorf("score %s: %w", date.Format("2006-01-02"), err)
	}
	static, err := s.artifact.Predict(matrix)
	if err != nil {
		return nil, fmt.Errorf("label %s: %w", date.Format("2006-01-02"), err)
	}

	// Dynamic threshold: the contamination percentile of this day's own
	// score distribution, so the flag self-calibrates under drift.
	threshold := Percentile(scores, s.artifact.Contamination*100)

	alerts := make([]Alert, len(active))
	for i, row := range active {
		alerts[i] = Alert{
			UserID:          row.UserID,
			Date:            date,
			Cnt24h:          row.Cnt24h,
			Sum24h:          row.Sum24h,
			AvgAmount:       row.AvgAmount,
			UniqueMerchants: row.UniqueMerchants,
			AnomalyScore:    scores[i],
			FlagStatic:      static[i],
			FlagDynamic:     scores[i] < threshold,
		}
	}
	return alerts, nil
}

// ScoreRange scores every date in the inclusive range that has a feature
// partition, consolidating alerts across days. Missing days are silently
// skipped.
func (s *Scorer) ScoreRange(ctx context.Context, featuresDir string, dates []time.Time) ([]Alert, error) {
	logger := infrastructure.LoggerWithContext(ctx)

	var all []Alert
	scored := 0
	for _, date := range dates {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rows, err := store.ReadFeatures(featuresDir, date)
		if err != nil {
			if errors.Is(err, store.ErrPartitionMissing) {
				logger.DebugContext(ctx, "no feature partition, skipping day",
					"date", date.Format("2006-01-02"))
				continue
			}
			return nil, err
		}

		alerts, err := s.ScoreDay(ctx, rows, date)
		if err != nil {
			return nil, err
		}
		if alerts == nil {
			logger.InfoContext(ctx, "day empty after activity filter",
				"date", date.Format("2006-01-02"))
			continue
		}
		all = append(all, alerts...)
		scored++
	}

	logger.InfoContext(ctx, "scoring complete",
		"days_scored", scored,
		"rows", len(all),
	)
	return all, nil
}

// Summarize computes the global report over a consolidated alert table
func Summarize(alerts []Alert) Summary {
	summary := Summary{Rows: len(alerts)}

	days := make(map[time.Time]struct{})
	for _, alert := range alerts {
		days[alert.Date] = struct{}{}
		if alert.FlagStatic {
			summary.StaticAlerts++
		}
	}
	summary.Days = len(days)

	ranked := make([]Alert, len(alerts))
	copy(ranked, alerts)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].AnomalyScore < ranked[j].AnomalyScore
	})
	if len(ranked) > 10 {
		ranked = ranked[:10]
	}
	summary.Top = ranked
	return summary
}

// DateRange expands an inclusive start/end pair into its calendar days.
// End before start is a validation error at the caller's boundary.
func DateRange(start, end time.Time) ([]time.Time, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s before start date %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates, nil
}
