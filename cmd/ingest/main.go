package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"txanomaly/internal/config"
	"txanomaly/internal/dataprocessing"
	"txanomaly/internal/infrastructure"
	"txanomaly/internal/operations"
)

func main() {
	rawFile := flag.String("raw-file", "", "raw transactions file, .csv or .xlsx (defaults to config paths.raw_file)")
	runDate := flag.String("run-date", "", "day to ingest, YYYY-MM-DD (required)")
	outputDir := flag.String("output-dir", "", "base directory for clean partitions (defaults to config paths.clean_dir)")
	flag.Parse()

	if *runDate == "" {
		slog.Error("missing required flag -run-date")
		flag.Usage()
		os.Exit(1)
	}
	date, err := time.Parse("2006-01-02", *runDate)
	if err != nil {
		slog.Error("invalid -run-date, want YYYY-MM-DD", "value", *runDate, "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *rawFile != "" {
		cfg.Paths.RawFile = *rawFile
	}
	if *outputDir != "" {
		cfg.Paths.CleanDir = *outputDir
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	ctx := infrastructure.EnsureRunID(context.Background())
	logger = infrastructure.LoggerWithContext(ctx)

	logger.InfoContext(ctx, "starting ingest",
		"raw_file", cfg.Paths.RawFile,
		"run_date", *runDate,
		"output_dir", cfg.Paths.CleanDir,
	)

	txns, err := dataprocessing.ReadRawFile(cfg.Paths.RawFile)
	if err != nil {
		logger.ErrorContext(ctx, "failed to read raw dataset", "error", err)
		os.Exit(1)
	}

	stats, err := operations.IngestDay(ctx, txns, cfg.Paths.CleanDir, date)
	if err != nil {
		logger.ErrorContext(ctx, "ingest failed", "error", err)
		os.Exit(1)
	}

	logger.InfoContext(ctx, "ingest complete",
		"total_rows", stats.TotalRows,
		"day_rows", stats.DayRows,
		"duplicates_dropped", stats.DuplicatesDropped,
		"missing_amounts", stats.MissingAmounts,
		"kept_rows", stats.KeptRows,
	)
}
