package anomaly

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"txanomaly/internal/store"
)

// Consolidated output names inside the alerts directory
const (
	ConsolidatedCSV  = "alerts_consolidated.csv"
	ConsolidatedXLSX = "alerts_consolidated.xlsx"
)

var alertHeader = []string{
	"user_id",
	"date",
	"cnt_24h",
	"sum_24h",
	"avg_amount",
	"unique_merchants",
	"anomaly_score",
	"flag_suspicious",
	"flag_suspicious_dynamic",
}

func alertRecord(alert Alert) []string {
	return []string{
		alert.UserID,
		alert.Date.Format("2006-01-02"),
		strconv.Itoa(alert.Cnt24h),
		strconv.FormatFloat(alert.Sum24h, 'f', -1, 64),
		strconv.FormatFloat(alert.AvgAmount, 'f', -1, 64),
		strconv.Itoa(alert.UniqueMerchants),
		strconv.FormatFloat(alert.AnomalyScore, 'f', -1, 64),
		strconv.FormatBool(alert.FlagStatic),
		strconv.FormatBool(alert.FlagDynamic),
	}
}

// WriteAlertsPartition writes one day's alert table through the shared
// partition convention
func WriteAlertsPartition(base string, date time.Time, alerts []Alert) (string, error) {
	records := make([][]string, len(alerts))
	for i, alert := range alerts {
		records[i] = alertRecord(alert)
	}
	path := filepath.Join(store.PartitionPath(base, date), store.AlertsFile)
	if err := store.WriteCSVAtomic(path, alertHeader, records); err != nil {
		return "", err
	}
	return path, nil
}

// WriteConsolidatedCSV writes the flat consolidated alert table at the
// alerts directory root
func WriteConsolidatedCSV(alertsDir string, alerts []Alert) (string, error) {
	records := make([][]string, len(alerts))
	for i, alert := range alerts {
		records[i] = alertRecord(alert)
	}
	path := filepath.Join(alertsDir, ConsolidatedCSV)
	if err := store.WriteCSVAtomic(path, alertHeader, records); err != nil {
		return "", err
	}
	return path, nil
}

// WriteConsolidatedExcel writes the consolidated alerts plus the top-10
// summary as a two-sheet workbook for analyst review
func WriteConsolidatedExcel(alertsDir string, alerts []Alert, summary Summary) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	const alertsSheet = "Alerts"
	if err := f.SetSheetName(f.GetSheetName(0), alertsSheet); err != nil {
		return "", fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeAlertSheet(f, alertsSheet, alerts); err != nil {
		return "", err
	}

	const topSheet = "Top 10"
	if _, err := f.NewSheet(topSheet); err != nil {
		return "", fmt.Errorf("create sheet %q: %w", topSheet, err)
	}
	if err := writeAlertSheet(f, topSheet, summary.Top); err != nil {
		return "", err
	}

	path := filepath.Join(alertsDir, ConsolidatedXLSX)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return path, nil
}

func writeAlertSheet(f *excelize.File, sheet string, alerts []Alert) error {
	header := make([]interface{}, len(alertHeader))
	for i, name := range alertHeader {
		header[i] = name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header on %q: %w", sheet, err)
	}

	for i, alert := range alerts {
		row := []interface{}{
			alert.UserID,
			alert.Date.Format("2006-01-02"),
			alert.Cnt24h,
			alert.Sum24h,
			alert.AvgAmount,
			alert.UniqueMerchants,
			alert.AnomalyScore,
			alert.FlagStatic,
			alert.FlagDynamic,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name for row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d on %q: %w", i+2, sheet, err)
		}
	}
	return nil
}
