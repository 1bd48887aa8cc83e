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
	startDate := flag.String("start-date", "", "first day of the run, YYYY-MM-DD (required)")
	endDate := flag.String("end-date", "", "last day of the run, YYYY-MM-DD (required)")
	workers := flag.Int("workers", 0, "bounded pool size for day units (defaults to config pipeline.workers)")
	failFast := flag.Bool("fail-fast", false, "abort the whole run on the first failed day")
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

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *workers != 0 {
		cfg.Pipeline.Workers = *workers
	}
	if *failFast {
		cfg.Pipeline.FailFast = true
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid pipeline parameters", "error", err)
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

	modelPath, err := operations.NewPipeline(cfg).Run(ctx, start, end)
	if err != nil {
		logger.ErrorContext(ctx, "pipeline run failed", "error", err)
		os.Exit(1)
	}
	logger.InfoContext(ctx, "model ready", "path", modelPath)
}
