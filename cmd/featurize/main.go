package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"txanomaly/internal/config"
	"txanomaly/internal/infrastructure"
	"txanomaly/internal/operations"
)

func main() {
	date := flag.String("date", "", "day to featurize, YYYY-MM-DD (required)")
	inputDir := flag.String("input-dir", "", "base directory of clean partitions (defaults to config paths.clean_dir)")
	outputDir := flag.String("output-dir", "", "base directory for feature partitions (defaults to config paths.features_dir)")
	flag.Parse()

	if *date == "" {
		slog.Error("missing required flag -date")
		flag.Usage()
		os.Exit(1)
	}
	day, err := time.Parse("2006-01-02", *date)
	if err != nil {
		slog.Error("invalid -date, want YYYY-MM-DD", "value", *date, "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *inputDir != "" {
		cfg.Paths.CleanDir = *inputDir
	}
	if *outputDir != "" {
		cfg.Paths.FeaturesDir = *outputDir
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	ctx := infrastructure.EnsureRunID(context.Background())
	logger = infrastructure.LoggerWithContext(ctx)

	logger.InfoContext(ctx, "starting featurize",
		"date", *date,
		"input_dir", cfg.Paths.CleanDir,
		"output_dir", cfg.Paths.FeaturesDir,
	)

	users, err := operations.FeaturizeDay(ctx, cfg.Paths.CleanDir, cfg.Paths.FeaturesDir, day)
	if err != nil {
		logger.ErrorContext(ctx, "featurize failed", "error", err)
		os.Exit(1)
	}

	logger.InfoContext(ctx, "featurize complete", "date", *date, "users", users)
}
