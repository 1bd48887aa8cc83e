package dataprocessing

import (
	"time"
)

// DebitType is the only transaction type that participates in feature
// computation downstream.
const DebitType = "DEBITO"

// Transaction represents a single raw card transaction after type coercion.
// Coercion failures degrade field by field: an unparseable timestamp leaves
// Date zero, an unparseable amount leaves HasAmount false. The row itself
// always survives.
type Transaction struct {
	ID         string
	Date       time.Time
	Amount     float64
	HasAmount  bool
	Type       string
	UserID     string
	MerchantID string
	Subsidiary string
}

// HasDate reports whether the transaction timestamp parsed successfully
func (t Transaction) HasDate() bool {
	return !t.Date.IsZero()
}

// OnDay reports whether the transaction's date component equals the given
// calendar day
func (t Transaction) OnDay(day time.Time) bool {
	if !t.HasDate() {
		return false
	}
	y1, m1, d1 := t.Date.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// IsDebit reports whether the transaction participates in feature computation
func (t Transaction) IsDebit() bool {
	return t.Type == DebitType
}

// CleanStats summarizes one day's ingestion for operator logs
type CleanStats struct {
	TotalRows      int
	DayRows        int
	DuplicatesDropped int
	MissingAmounts int
	KeptRows       int
}
