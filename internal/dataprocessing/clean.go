package dataprocessing

import (
	"time"
)

// CleanDay filters the full historical dataset down to one calendar day and
// applies the cleaning rules: duplicate ids are dropped keeping the first
// occurrence, coercion failures stay as missing values on surviving rows.
func CleanDay(txns []Transaction, day time.Time) ([]Transaction, CleanStats) {
	stats := CleanStats{TotalRows: len(txns)}

	seen := make(map[string]bool)
	var cleaned []Transaction
	for _, txn := range txns {
		if !txn.OnDay(day) {
			continue
		}
		stats.DayRows++
		if seen[txn.ID] {
			stats.DuplicatesDropped++
			continue
		}
		seen[txn.ID] = true
		if !txn.HasAmount {
			stats.MissingAmounts++
		}
		cleaned = append(cleaned, txn)
	}
	stats.KeptRows = len(cleaned)
	return cleaned, stats
}
