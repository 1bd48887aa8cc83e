package anomaly

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"txanomaly/internal/store"
)

func sampleAlerts() []Alert {
	return []Alert{
		{
			UserID: "U1", Date: day(1), Cnt24h: 15, Sum24h: 1500.5, AvgAmount: 100.03,
			UniqueMerchants: 3, AnomalyScore: -0.12, FlagStatic: true, FlagDynamic: true,
		},
		{
			UserID: "U2", Date: day(1), Cnt24h: 12, Sum24h: 300, AvgAmount: 25,
			UniqueMerchants: 1, AnomalyScore: 0.31, FlagStatic: false, FlagDynamic: false,
		},
	}
}

func TestWriteAlertsPartition(t *testing.T) {
	base := t.TempDir()
	alerts := sampleAlerts()

	path, err := WriteAlertsPartition(base, day(1), alerts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.PartitionPath(base, day(1)), store.AlertsFile), path)

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, alertHeader, records[0])
	assert.Equal(t, []string{"U1", "2021-06-01", "15", "1500.5", "100.03", "3", "-0.12", "true", "true"}, records[1])
	assert.Equal(t, "false", records[2][7])
}

func TestWriteConsolidatedCSV(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteConsolidatedCSV(dir, sampleAlerts())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ConsolidatedCSV), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "flag_suspicious_dynamic")
	assert.Contains(t, string(data), "U2")
}

func TestWriteConsolidatedExcel(t *testing.T) {
	dir := t.TempDir()
	alerts := sampleAlerts()
	summary := Summarize(alerts)

	path, err := WriteConsolidatedExcel(dir, alerts, summary)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Alerts", "Top 10"}, f.GetSheetList())

	rows, err := f.GetRows("Alerts")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "user_id", rows[0][0])
	assert.Equal(t, "U1", rows[1][0])

	top, err := f.GetRows("Top 10")
	require.NoError(t, err)
	require.Len(t, top, 3)
	// Lowest score first
	assert.Equal(t, "U1", top[1][0])
}
