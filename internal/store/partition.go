package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Artifact file names inside a partition directory
const (
	CleanFile    = "clean.csv"
	FeaturesFile = "features.csv"
	AlertsFile   = "alerts.csv"
)

// ErrPartitionMissing is returned when a partition artifact does not exist.
// Callers decide whether absence means "skip this day" or "incomplete range".
var ErrPartitionMissing = errors.New("partition missing")

// PartitionPath maps a calendar date to its partition directory under base.
// Every stage resolves paths through this one function, which is the whole
// of the shared layout contract:
//
//	base/year=YYYY/month=MM/day=DD
func PartitionPath(base string, date time.Time) string {
	return filepath.Join(
		base,
		fmt.Sprintf("year=%04d", date.Year()),
		fmt.Sprintf("month=%02d", int(date.Month())),
		fmt.Sprintf("day=%02d", date.Day()),
	)
}

// parsePartitionDate reconstructs the calendar date from a partition
// directory path, reading the trailing year=/month=/day= segments.
func parsePartitionDate(dir string) (time.Time, error) {
	parts := strings.Split(filepath.ToSlash(dir), "/")
	if len(parts) < 3 {
		return time.Time{}, fmt.Errorf("not a partition path: %s", dir)
	}

	keys := parts[len(parts)-3:]
	values := make([]int, 3)
	for i, prefix := range []string{"year=", "month=", "day="} {
		if !strings.HasPrefix(keys[i], prefix) {
			return time.Time{}, fmt.Errorf("malformed partition key %q in %s", keys[i], dir)
		}
		v, err := strconv.Atoi(strings.TrimPrefix(keys[i], prefix))
		if err != nil {
			return time.Time{}, fmt.Errorf("malformed partition key %q in %s", keys[i], dir)
		}
		values[i] = v
	}

	date := time.Date(values[0], time.Month(values[1]), values[2], 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range components; reject them instead
	if date.Year() != values[0] || int(date.Month()) != values[1] || date.Day() != values[2] {
		return time.Time{}, fmt.Errorf("invalid partition date in %s", dir)
	}
	return date, nil
}

// WriteCSVAtomic writes header+records to path through a temp file in the
// same directory followed by a rename, so an aborted writer never leaves a
// partially-written artifact visible.
func WriteCSVAtomic(path string, header []string, records [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create partition directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	writer := csv.NewWriter(tmp)
	if err := writer.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	if err := writer.WriteAll(records); err != nil {
		tmp.Close()
		return fmt.Errorf("write records: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush records: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("publish %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readCSV reads a partition artifact, mapping absence to ErrPartitionMissing
func readCSV(path string) ([]string, [][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%s: %w", path, ErrPartitionMissing)
		}
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("empty artifact %s", path)
	}
	return rows[0], rows[1:], nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(raw string) (float64, error) {
	return strconv.ParseFloat(raw, 64)
}
