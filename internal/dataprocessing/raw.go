package dataprocessing

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Timestamp layouts accepted when coercing transaction_date. Tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Raw column names expected in the header row of the historical dataset
const (
	colID         = "id"
	colDate       = "transaction_date"
	colAmount     = "transaction_amount"
	colType       = "transaction_type"
	colUserID     = "user_id"
	colMerchantID = "merchant_id"
	colSubsidiary = "subsidiary"
)

// ReadRawFile reads the full historical raw dataset, dispatching on the file
// extension: .csv via encoding/csv, .xlsx via excelize. The first row must be
// a header naming the transaction columns.
func ReadRawFile(path string) ([]Transaction, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readRawCSV(path)
	case ".xlsx":
		return readRawExcel(path)
	default:
		return nil, fmt.Errorf("unsupported raw file format: %s", filepath.Ext(path))
	}
}

func readRawCSV(path string) ([]Transaction, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open raw file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read raw header: %w", err)
	}
	columns, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var txns []Transaction
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read raw record: %w", err)
		}
		txns = append(txns, coerceRow(record, columns))
	}
	return txns, nil
}

func readRawExcel(path string) ([]Transaction, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open raw workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("raw workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("raw workbook sheet %q is empty", sheets[0])
	}

	columns, err := mapColumns(rows[0])
	if err != nil {
		return nil, err
	}

	txns := make([]Transaction, 0, len(rows)-1)
	for _, row := range rows[1:] {
		txns = append(txns, coerceRow(row, columns))
	}
	return txns, nil
}

// mapColumns resolves the position of each expected column from the header
// row, case-insensitively
func mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colID, colDate, colType, colUserID} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("raw header missing column %q", required)
		}
	}
	return columns, nil
}

// coerceRow converts one raw record into a Transaction. Unparseable amount
// or date values become missing, never an error.
func coerceRow(record []string, columns map[string]int) Transaction {
	txn := Transaction{
		ID:         cell(record, columns, colID),
		Type:       cell(record, columns, colType),
		UserID:     cell(record, columns, colUserID),
		MerchantID: cell(record, columns, colMerchantID),
		Subsidiary: cell(record, columns, colSubsidiary),
	}

	if raw := cell(record, columns, colDate); raw != "" {
		txn.Date = parseTimestamp(raw)
	}
	if raw := cell(record, columns, colAmount); raw != "" {
		if amount, err := strconv.ParseFloat(raw, 64); err == nil {
			txn.Amount = amount
			txn.HasAmount = true
		}
	}
	return txn
}

func cell(record []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// parseTimestamp tries each accepted layout; returns the zero time when none
// matches
func parseTimestamp(raw string) time.Time {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}
