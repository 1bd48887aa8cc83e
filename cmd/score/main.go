package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"txanomaly/internal/anomaly"
	"txanomaly/internal/config"
	"txanomaly/internal/infrastructure"
)

func main() {
	singleDate := flag.String("date", "", "single day to score, YYYY-MM-DD (mutually exclusive with -start-date)")
	startDate := flag.String("start-date", "", "first day of the scoring range, YYYY-MM-DD")
	endDate := flag.String("end-date", "", "last day of the scoring range, YYYY-MM-DD (required with -start-date)")
	featuresDir := flag.String("features-dir", "", "base directory of feature partitions (defaults to config paths.features_dir)")
	modelPath := flag.String("model-path", "", "model artifact to score with (defaults to <config paths.model_dir>/"+anomaly.ModelFile+")")
	alertsDir := flag.String("alerts-dir", "", "base directory for alert output (defaults to config paths.alerts_dir)")
	noSave := flag.Bool("no-save", false, "score and print the summary without writing any alert files")
	flag.Parse()

	dates, err := resolveDates(*singleDate, *startDate, *endDate)
	if err != nil {
		slog.Error("invalid date flags", "error", err)
		flag.Usage()
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
	if *alertsDir != "" {
		cfg.Paths.AlertsDir = *alertsDir
	}
	if *modelPath == "" {
		*modelPath = cfg.Paths.ModelDir + "/" + anomaly.ModelFile
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	ctx := infrastructure.EnsureRunID(context.Background())
	logger = infrastructure.LoggerWithContext(ctx)

	logger.InfoContext(ctx, "starting scoring",
		"days", len(dates),
		"features_dir", cfg.Paths.FeaturesDir,
		"model_path", *modelPath,
		"no_save", *noSave,
	)

	artifact, err := anomaly.LoadArtifact(*modelPath)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load model", "path", *modelPath, "error", err)
		os.Exit(1)
	}

	scorer := anomaly.NewScorer(artifact, cfg.Model.MinDailyTxns)
	alerts, err := scorer.ScoreRange(ctx, cfg.Paths.FeaturesDir, dates)
	if err != nil {
		logger.ErrorContext(ctx, "scoring failed", "error", err)
		os.Exit(1)
	}
	summary := anomaly.Summarize(alerts)

	if !*noSave {
		byDate := make(map[time.Time][]anomaly.Alert)
		for _, alert := range alerts {
			byDate[alert.Date] = append(byDate[alert.Date], alert)
		}
		for date, dayAlerts := range byDate {
			if _, err := anomaly.WriteAlertsPartition(cfg.Paths.AlertsDir, date, dayAlerts); err != nil {
				logger.ErrorContext(ctx, "failed to write alerts partition",
					"date", date.Format("2006-01-02"), "error", err)
				os.Exit(1)
			}
		}
		csvPath, err := anomaly.WriteConsolidatedCSV(cfg.Paths.AlertsDir, alerts)
		if err != nil {
			logger.ErrorContext(ctx, "failed to write consolidated alerts", "error", err)
			os.Exit(1)
		}
		xlsxPath, err := anomaly.WriteConsolidatedExcel(cfg.Paths.AlertsDir, alerts, summary)
		if err != nil {
			logger.ErrorContext(ctx, "failed to write alerts workbook", "error", err)
			os.Exit(1)
		}
		logger.InfoContext(ctx, "alerts written", "csv", csvPath, "xlsx", xlsxPath)
	}

	fmt.Printf("Scored %d rows across %d days\n", summary.Rows, summary.Days)
	fmt.Printf("Suspicious transactions flagged: %d\n", summary.StaticAlerts)
	if len(summary.Top) > 0 {
		fmt.Println("Lowest-scoring users:")
		for _, alert := range summary.Top {
			fmt.Printf("  %s  %s  score=%.6f  cnt_24h=%d  sum_24h=%.2f\n",
				alert.Date.Format("2006-01-02"), alert.UserID,
				alert.AnomalyScore, alert.Cnt24h, alert.Sum24h)
		}
	}

	logger.InfoContext(ctx, "scoring complete",
		"rows", summary.Rows,
		"static_alerts", summary.StaticAlerts,
	)
}

// resolveDates expands the flag combinations into the list of days to
// score. Exactly one of -date or -start-date/-end-date must be used.
func resolveDates(single, start, end string) ([]time.Time, error) {
	switch {
	case single != "" && (start != "" || end != ""):
		return nil, fmt.Errorf("-date cannot be combined with -start-date/-end-date")
	case single != "":
		day, err := time.Parse("2006-01-02", single)
		if err != nil {
			return nil, fmt.Errorf("invalid -date %q: %w", single, err)
		}
		return []time.Time{day}, nil
	case start != "" && end == "":
		return nil, fmt.Errorf("-end-date is required with -start-date")
	case start == "" && end != "":
		return nil, fmt.Errorf("-start-date is required with -end-date")
	case start == "":
		return nil, fmt.Errorf("one of -date or -start-date/-end-date is required")
	}

	startDay, err := time.Parse("2006-01-02", start)
	if err != nil {
		return nil, fmt.Errorf("invalid -start-date %q: %w", start, err)
	}
	endDay, err := time.Parse("2006-01-02", end)
	if err != nil {
		return nil, fmt.Errorf("invalid -end-date %q: %w", end, err)
	}
	return anomaly.DateRange(startDay, endDay)
}
