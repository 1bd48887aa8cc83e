package operations

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"txanomaly/internal/anomaly"
	"txanomaly/internal/config"
	"txanomaly/internal/dataprocessing"
	"txanomaly/internal/infrastructure"
	"txanomaly/internal/store"
)

// Pipeline drives ingest+featurize over a date range through the bounded
// pool, then trains exactly once over the full window. Training never
// starts before every requested day's unit has finished: the runner's Wait
// is the join barrier between the parallel and sequential phases.
type Pipeline struct {
	cfg    *config.Config
	runner *Runner
}

// NewPipeline creates the range orchestrator from configuration
func NewPipeline(cfg *config.Config) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		runner: NewRunner(cfg.Pipeline.Workers, cfg.Pipeline.FailFast),
	}
}

// Run executes the full range: per-day ingest+featurize in parallel,
// join, then one training pass. Returns the persisted model path.
func (p *Pipeline) Run(ctx context.Context, start, end time.Time) (string, error) {
	logger := infrastructure.LoggerWithContext(ctx)

	// Range validation is fatal before any work starts
	dates, err := anomaly.DateRange(start, end)
	if err != nil {
		return "", err
	}

	logger.InfoContext(ctx, "starting pipeline run",
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"),
		"days", len(dates),
		"workers", p.cfg.Pipeline.Workers,
		"fail_fast", p.cfg.Pipeline.FailFast,
	)

	// The raw dataset is read once and shared read-only across units
	txns, err := dataprocessing.ReadRawFile(p.cfg.Paths.RawFile)
	if err != nil {
		return "", fmt.Errorf("read raw dataset: %w", err)
	}
	logger.InfoContext(ctx, "raw dataset loaded",
		"path", p.cfg.Paths.RawFile,
		"rows", len(txns),
	)

	results, err := p.runner.RunDays(ctx, dates, func(ctx context.Context, date time.Time) error {
		if _, err := IngestDay(ctx, txns, p.cfg.Paths.CleanDir, date); err != nil {
			return err
		}
		if _, err := FeaturizeDay(ctx, p.cfg.Paths.CleanDir, p.cfg.Paths.FeaturesDir, date); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	// Join barrier passed; failed days degrade to missing partitions for
	// the loader under the best-effort policy.
	failed := Failed(results)
	for _, f := range failed {
		logger.WarnContext(ctx, "day excluded from training window",
			"date", f.Date.Format("2006-01-02"),
			"error", f.Err,
		)
	}
	if len(failed) == len(dates) {
		return "", fmt.Errorf("all %d day units failed, nothing to train on", len(dates))
	}

	rows, err := store.ReadFeatureRange(ctx, p.cfg.Paths.FeaturesDir, start, end)
	if err != nil {
		return "", fmt.Errorf("load training window: %w", err)
	}

	trainer := anomaly.NewTrainer(p.cfg.Model)
	artifact, _, err := trainer.Train(ctx, rows)
	if err != nil {
		return "", fmt.Errorf("train over %s..%s: %w",
			start.Format("2006-01-02"), end.Format("2006-01-02"), err)
	}

	modelPath := filepath.Join(p.cfg.Paths.ModelDir, anomaly.ModelFile)
	if err := artifact.Save(modelPath); err != nil {
		return "", fmt.Errorf("persist model: %w", err)
	}
	logger.InfoContext(ctx, "pipeline run complete",
		"model_path", modelPath,
		"days_failed", len(failed),
	)
	return modelPath, nil
}
