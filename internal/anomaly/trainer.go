package anomaly

import (
	"context"
	"fmt"
	"time"

	"txanomaly/internal/config"
	"txanomaly/internal/features"
	"txanomaly/internal/infrastructure"
)

// TrainingReport carries the calibration diagnostics computed over the
// training matrix, so operators can sanity-check scores before trusting
// alerts.
type TrainingReport struct {
	Rows             int
	FilteredRows     int
	Columns          int
	MeanScore        float64
	ScorePercentiles map[string]float64
	FlaggedCount     int
	FlaggedFraction  float64
}

// reportPercentiles are the score distribution points reported after fit
var reportPercentiles = []float64{1, 5, 25, 50, 75, 95, 99}

// Trainer fits the anomaly pipeline over a historical feature table
type Trainer struct {
	cfg config.ModelConfig
}

// NewTrainer creates a trainer with the given model parameters
func NewTrainer(cfg config.ModelConfig) *Trainer {
	return &Trainer{cfg: cfg}
}

// FilterActive drops the low-activity rows (cnt_24h at or below the
// configured floor). Trainer and scorer share this filter so a user below
// the floor never enters either matrix.
func FilterActive(rows []features.Row, minTxns int) []features.Row {
	var active []features.Row
	for _, row := range rows {
		if row.Cnt24h > minTxns {
			active = append(active, row)
		}
	}
	return active
}

// Train filters low-activity users, builds the numeric matrix, fits the
// pipeline, and reports score diagnostics. Fails explicitly when the range
// yields zero usable rows; a model cannot be fit on an empty matrix.
func (t *Trainer) Train(ctx context.Context, rows []features.Row) (*Artifact, *TrainingReport, error) {
	logger := infrastructure.LoggerWithContext(ctx)

	active := FilterActive(rows, t.cfg.MinDailyTxns)
	logger.InfoContext(ctx, "applied activity filter",
		"min_daily_txns", t.cfg.MinDailyTxns,
		"rows_before", len(rows),
		"rows_after", len(active),
	)
	if len(active) == 0 {
		return nil, nil, fmt.Errorf("no rows above activity floor %d in training range: %w",
			t.cfg.MinDailyTxns, ErrNoTrainingData)
	}

	matrix := features.Matrix(active)

	artifact := &Artifact{
		Contamination: t.cfg.Contamination,
		Scaled:        t.cfg.Scale,
		TrainedAt:     time.Now().UTC(),
		TrainingRows:  len(active),
	}

	fitMatrix := matrix
	if t.cfg.Scale {
		scaler := &StandardScaler{}
		if err := scaler.Fit(matrix); err != nil {
			return nil, nil, fmt.Errorf("fit scaler: %w", err)
		}
		scaled, err := scaler.Transform(matrix)
		if err != nil {
			return nil, nil, fmt.Errorf("scale training matrix: %w", err)
		}
		artifact.Scaler = scaler
		fitMatrix = scaled
	}

	forest := NewIsolationForest(ForestConfig{
		Trees:         t.cfg.Trees,
		Subsample:     t.cfg.Subsample,
		Contamination: t.cfg.Contamination,
		Seed:          t.cfg.Seed,
	})
	logger.InfoContext(ctx, "fitting isolation forest",
		"trees", t.cfg.Trees,
		"subsample", t.cfg.Subsample,
		"contamination", t.cfg.Contamination,
		"seed", t.cfg.Seed,
		"matrix_rows", len(fitMatrix),
		"matrix_cols", len(features.MatrixColumns),
	)
	if err := forest.Fit(ctx, fitMatrix); err != nil {
		return nil, nil, fmt.Errorf("fit isolation forest: %w", err)
	}
	artifact.Forest = forest

	report, err := t.diagnostics(artifact, matrix, len(rows))
	if err != nil {
		return nil, nil, err
	}
	logger.InfoContext(ctx, "training complete",
		"mean_score", report.MeanScore,
		"flagged", report.FlaggedCount,
		"flagged_fraction", report.FlaggedFraction,
		"score_percentiles", report.ScorePercentiles,
	)
	return artifact, report, nil
}

// diagnostics scores the training matrix through the full pipeline and
// summarizes the distribution
func (t *Trainer) diagnostics(artifact *Artifact, matrix [][]float64, totalRows int) (*TrainingReport, error) {
	scores, err := artifact.Score(matrix)
	if err != nil {
		return nil, fmt.Errorf("score training matrix: %w", err)
	}
	flags, err := artifact.Predict(matrix)
	if err != nil {
		return nil, fmt.Errorf("label training matrix: %w", err)
	}

	report := &TrainingReport{
		Rows:             totalRows,
		FilteredRows:     len(matrix),
		Columns:          len(features.MatrixColumns),
		ScorePercentiles: make(map[string]float64, len(reportPercentiles)),
	}
	var total float64
	for _, s := range scores {
		total += s
	}
	report.MeanScore = total / float64(len(scores))
	for _, p := range reportPercentiles {
		report.ScorePercentiles[fmt.Sprintf("p%02.0f", p)] = Percentile(scores, p)
	}
	for _, flagged := range flags {
		if flagged {
			report.FlaggedCount++
		}
	}
	report.FlaggedFraction = float64(report.FlaggedCount) / float64(len(flags))
	return report, nil
}
