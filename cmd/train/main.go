package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"txanomaly/internal/anomaly"
	"txanomaly/internal/config"
	"txanomaly/internal/infrastructure"
	"txanomaly/internal/store"
)

func main() {
	startDate := flag.String("start-date", "", "first day of the training window, YYYY-MM-DD (required)")
	endDate := flag.String("end-date", "", "last day of the training window, YYYY-MM-DD (required)")
	featuresDir := flag.String("features-dir", "", "base directory of feature partitions (defaults to config paths.features_dir)")
	modelDir := flag.String("model-dir", "", "directory for the model artifact (defaults to config paths.model_dir)")
	contamination := flag.Float64("contamination", 0, "expected anomaly fraction in (0,1) (defaults to config model.contamination)")
	trees := flag.Int("trees", 0, "number of isolation trees (defaults to config model.trees)")
	scale := flag.Bool("scale", false, "standardize features before fitting")
	seed := flag.Int64("seed", 0, "random seed (defaults to config model.seed)")
	flag.Parse()

	if *startDate == "" || *endDate == "" {
		slog.Error("flags -start-date and -end-date are both required")
		flag.Usage()
		os.Exit(1)
	}
	start, err := time.Parse("2006-01-02", *startDate)
	if err != nil {
		slog.Error("invalid -start-date, want YYYY-MM-DD", "value", *startDate, "error", err)
		os.Exit(1)
	}
	end, err := time.Parse("2006-01-02", *endDate)
	if err != nil {
		slog.Error("invalid -end-date, want YYYY-MM-DD", "value", *endDate, "error", err)
		os.Exit(1)
	}
	if end.Before(start) {
		slog.Error("-end-date precedes -start-date", "start", *startDate, "end", *endDate)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *featuresDir != "" {
		cfg.Paths.FeaturesDir = *featuresDir
	}
	if *modelDir != "" {
		cfg.Paths.ModelDir = *modelDir
	}
	if *contamination != 0 {
		cfg.Model.Contamination = *contamination
	}
	if *trees != 0 {
		cfg.Model.Trees = *trees
	}
	if *scale {
		cfg.Model.Scale = true
	}
	if *seed != 0 {
		cfg.Model.Seed = *seed
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid training parameters", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	ctx := infrastructure.EnsureRunID(context.Background())
	logger = infrastructure.LoggerWithContext(ctx)

	logger.InfoContext(ctx, "starting training",
		"start", *startDate,
		"end", *endDate,
		"features_dir", cfg.Paths.FeaturesDir,
		"contamination", cfg.Model.Contamination,
		"trees", cfg.Model.Trees,
		"scale", cfg.Model.Scale,
	)

	rows, err := store.ReadFeatureRange(ctx, cfg.Paths.FeaturesDir, start, end)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load training window", "error", err)
		os.Exit(1)
	}

	trainer := anomaly.NewTrainer(cfg.Model)
	artifact, report, err := trainer.Train(ctx, rows)
	if err != nil {
		logger.ErrorContext(ctx, "training failed", "error", err)
		os.Exit(1)
	}

	modelPath := filepath.Join(cfg.Paths.ModelDir, anomaly.ModelFile)
	if err := artifact.Save(modelPath); err != nil {
		logger.ErrorContext(ctx, "failed to persist model", "path", modelPath, "error", err)
		os.Exit(1)
	}

	logger.InfoContext(ctx, "training complete",
		"model_path", modelPath,
		"rows", report.Rows,
		"filtered_rows", report.FilteredRows,
		"mean_score", report.MeanScore,
		"flagged_fraction", report.FlaggedFraction,
	)
}
