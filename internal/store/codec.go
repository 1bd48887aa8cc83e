package store

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"txanomaly/internal/dataprocessing"
	"txanomaly/internal/features"
)

var cleanHeader = []string{
	"id",
	"transaction_date",
	"transaction_amount",
	"transaction_type",
	"user_id",
	"merchant_id",
	"subsidiary",
}

// featureHeader is user_id followed by the model matrix columns, in order
var featureHeader = append([]string{"user_id"}, features.MatrixColumns...)

// WriteClean writes one day's cleaned transactions as the day's clean
// partition
func WriteClean(base string, date time.Time, txns []dataprocessing.Transaction) (string, error) {
	records := make([][]string, len(txns))
	for i, txn := range txns {
		var ts, amount string
		if txn.HasDate() {
			ts = txn.Date.UTC().Format(time.RFC3339)
		}
		if txn.HasAmount {
			amount = formatFloat(txn.Amount)
		}
		records[i] = []string{
			txn.ID, ts, amount, txn.Type, txn.UserID, txn.MerchantID, txn.Subsidiary,
		}
	}

	path := filepath.Join(PartitionPath(base, date), CleanFile)
	if err := WriteCSVAtomic(path, cleanHeader, records); err != nil {
		return "", err
	}
	return path, nil
}

// ReadClean reads one day's clean partition. Returns ErrPartitionMissing
// (wrapped) when the day was never ingested.
func ReadClean(base string, date time.Time) ([]dataprocessing.Transaction, error) {
	path := filepath.Join(PartitionPath(base, date), CleanFile)
	header, records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if err := checkHeader(header, cleanHeader, path); err != nil {
		return nil, err
	}

	txns := make([]dataprocessing.Transaction, len(records))
	for i, record := range records {
		if len(record) != len(cleanHeader) {
			return nil, fmt.Errorf("%s row %d: expected %d fields, got %d", path, i+1, len(cleanHeader), len(record))
		}
		txn := dataprocessing.Transaction{
			ID:         record[0],
			Type:       record[3],
			UserID:     record[4],
			MerchantID: record[5],
			Subsidiary: record[6],
		}
		if record[1] != "" {
			ts, err := time.Parse(time.RFC3339, record[1])
			if err != nil {
				return nil, fmt.Errorf("%s row %d: parse timestamp: %w", path, i+1, err)
			}
			txn.Date = ts
		}
		if record[2] != "" {
			amount, err := parseFloat(record[2])
			if err != nil {
				return nil, fmt.Errorf("%s row %d: parse amount: %w", path, i+1, err)
			}
			txn.Amount = amount
			txn.HasAmount = true
		}
		txns[i] = txn
	}
	return txns, nil
}

// WriteFeatures writes one day's feature rows as the day's feature partition
func WriteFeatures(base string, date time.Time, rows []features.Row) (string, error) {
	records := make([][]string, len(rows))
	for i, row := range rows {
		records[i] = []string{
			row.UserID,
			strconv.Itoa(row.Cnt24h),
			formatFloat(row.Sum24h),
			formatFloat(row.AvgAmount),
			formatFloat(row.AmountStd),
			strconv.Itoa(row.UniqueMerchants),
			strconv.Itoa(row.UniqueSubsidiaries),
			formatFloat(row.AmountCV),
			formatFloat(row.AmountRange),
			formatFloat(row.MerchantConcentration),
			formatFloat(row.SubsidiaryConcentration),
			formatFloat(row.SameAmountRatio),
			formatFloat(row.AvgIntervalMinutes),
			formatFloat(row.StdIntervalMinutes),
		}
	}

	path := filepath.Join(PartitionPath(base, date), FeaturesFile)
	if err := WriteCSVAtomic(path, featureHeader, records); err != nil {
		return "", err
	}
	return path, nil
}

// ReadFeatures reads one day's feature partition. Returns
// ErrPartitionMissing (wrapped) when the day has no features.
func ReadFeatures(base string, date time.Time) ([]features.Row, error) {
	path := filepath.Join(PartitionPath(base, date), FeaturesFile)
	header, records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if err := checkHeader(header, featureHeader, path); err != nil {
		return nil, err
	}

	rows := make([]features.Row, len(records))
	for i, record := range records {
		if len(record) != len(featureHeader) {
			return nil, fmt.Errorf("%s row %d: expected %d fields, got %d", path, i+1, len(featureHeader), len(record))
		}
		row := features.Row{UserID: record[0]}

		ints := map[int]*int{1: &row.Cnt24h, 5: &row.UniqueMerchants, 6: &row.UniqueSubsidiaries}
		floats := map[int]*float64{
			2:  &row.Sum24h,
			3:  &row.AvgAmount,
			4:  &row.AmountStd,
			7:  &row.AmountCV,
			8:  &row.AmountRange,
			9:  &row.MerchantConcentration,
			10: &row.SubsidiaryConcentration,
			11: &row.SameAmountRatio,
			12: &row.AvgIntervalMinutes,
			13: &row.StdIntervalMinutes,
		}
		for idx, dst := range ints {
			v, err := strconv.Atoi(record[idx])
			if err != nil {
				return nil, fmt.Errorf("%s row %d col %s: %w", path, i+1, featureHeader[idx], err)
			}
			*dst = v
		}
		for idx, dst := range floats {
			v, err := parseFloat(record[idx])
			if err != nil {
				return nil, fmt.Errorf("%s row %d col %s: %w", path, i+1, featureHeader[idx], err)
			}
			*dst = v
		}
		rows[i] = row
	}
	return rows, nil
}

func checkHeader(got, want []string, path string) error {
	if len(got) != len(want) {
		return fmt.Errorf("%s: unexpected header %v", path, got)
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("%s: unexpected header column %q, want %q", path, got[i], want[i])
		}
	}
	return nil
}
