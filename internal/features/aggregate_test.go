package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txanomaly/internal/dataprocessing"
)

func debit(id, user, merchant, subsidiary string, amount float64, at time.Time) dataprocessing.Transaction {
	return dataprocessing.Transaction{
		ID:         id,
		Date:       at,
		Amount:     amount,
		HasAmount:  true,
		Type:       dataprocessing.DebitType,
		UserID:     user,
		MerchantID: merchant,
		Subsidiary: subsidiary,
	}
}

func at(h, m int) time.Time {
	return time.Date(2021, 6, 1, h, m, 0, 0, time.UTC)
}

func TestAggregateNoDebits(t *testing.T) {
	txns := []dataprocessing.Transaction{
		{ID: "t1", Date: at(9, 0), Amount: 10, HasAmount: true, Type: "CREDITO", UserID: "U1"},
	}
	assert.Empty(t, Aggregate(txns))
	assert.Empty(t, Aggregate(nil))
}

// Two identical-amount transactions at the same merchant: the degenerate
// case where every dispersion measure collapses to zero and every
// concentration to one.
func TestAggregateRepeatedAmountPair(t *testing.T) {
	txns := []dataprocessing.Transaction{
		debit("t1", "U1", "M1", "S1", 100, at(9, 0)),
		debit("t2", "U1", "M1", "S1", 100, at(9, 45)),
	}

	rows := Aggregate(txns)
	require.Len(t, rows, 1)
	row := rows[0]

	assert.Equal(t, "U1", row.UserID)
	assert.Equal(t, 2, row.Cnt24h)
	assert.Equal(t, 200.0, row.Sum24h)
	assert.Equal(t, 100.0, row.AvgAmount)
	assert.Equal(t, 0.0, row.AmountStd)
	assert.Equal(t, 0.0, row.AmountCV)
	assert.Equal(t, 0.0, row.AmountRange)
	assert.Equal(t, 1, row.UniqueMerchants)
	assert.Equal(t, 1, row.UniqueSubsidiaries)
	assert.Equal(t, 1.0, row.MerchantConcentration)
	assert.Equal(t, 1.0, row.SubsidiaryConcentration)
	assert.Equal(t, 1.0, row.SameAmountRatio)
	assert.Equal(t, 45.0, row.AvgIntervalMinutes)
	assert.Equal(t, 0.0, row.StdIntervalMinutes)
}

func TestAggregateSingleTransaction(t *testing.T) {
	rows := Aggregate([]dataprocessing.Transaction{
		debit("t1", "U1", "M1", "S1", 50, at(12, 0)),
	})
	require.Len(t, rows, 1)
	row := rows[0]

	assert.Equal(t, 1, row.Cnt24h)
	assert.Equal(t, 0.0, row.AmountStd)
	assert.Equal(t, 0.0, row.AvgIntervalMinutes)
	assert.Equal(t, 0.0, row.StdIntervalMinutes)
	assert.Equal(t, 1.0, row.MerchantConcentration)
}

func TestAggregateDispersion(t *testing.T) {
	txns := []dataprocessing.Transaction{
		debit("t1", "U1", "M1", "S1", 10, at(8, 0)),
		debit("t2", "U1", "M2", "S1", 20, at(9, 0)),
		debit("t3", "U1", "M1", "S2", 30, at(11, 0)),
	}
	rows := Aggregate(txns)
	require.Len(t, rows, 1)
	row := rows[0]

	assert.Equal(t, 3, row.Cnt24h)
	assert.Equal(t, 60.0, row.Sum24h)
	assert.Equal(t, 20.0, row.AvgAmount)
	assert.InDelta(t, 10.0, row.AmountStd, 1e-9)
	assert.InDelta(t, 0.5, row.AmountCV, 1e-9)
	assert.Equal(t, 20.0, row.AmountRange)
	assert.Equal(t, 2, row.UniqueMerchants)
	assert.Equal(t, 2, row.UniqueSubsidiaries)
	// M1 appears twice out of three rows
	assert.InDelta(t, 2.0/3.0, row.MerchantConcentration, 1e-9)
	assert.InDelta(t, 2.0/3.0, row.SubsidiaryConcentration, 1e-9)
	// All amounts distinct
	assert.InDelta(t, 1.0/3.0, row.SameAmountRatio, 1e-9)
	// Gaps of 60 and 120 minutes
	assert.InDelta(t, 90.0, row.AvgIntervalMinutes, 1e-9)
	assert.InDelta(t, math.Sqrt(1800), row.StdIntervalMinutes, 1e-9)
}

func TestAggregateIntervalsUseSortedTimestamps(t *testing.T) {
	// Out-of-order input must not produce negative intervals
	txns := []dataprocessing.Transaction{
		debit("t1", "U1", "M1", "S1", 10, at(14, 0)),
		debit("t2", "U1", "M1", "S1", 20, at(8, 0)),
		debit("t3", "U1", "M1", "S1", 30, at(11, 0)),
	}
	rows := Aggregate(txns)
	require.Len(t, rows, 1)
	assert.InDelta(t, 180.0, rows[0].AvgIntervalMinutes, 1e-9)
}

func TestAggregateZeroMeanAmount(t *testing.T) {
	txns := []dataprocessing.Transaction{
		debit("t1", "U1", "M1", "S1", -10, at(9, 0)),
		debit("t2", "U1", "M1", "S1", 10, at(10, 0)),
	}
	rows := Aggregate(txns)
	require.Len(t, rows, 1)
	assert.Equal(t, 0.0, rows[0].AvgAmount)
	// Divide-by-zero maps to 0, not Inf or NaN
	assert.Equal(t, 0.0, rows[0].AmountCV)
	assert.False(t, math.IsNaN(rows[0].AmountCV))
}

func TestAggregateMissingAmounts(t *testing.T) {
	missing := dataprocessing.Transaction{
		ID: "t3", Date: at(10, 0), Type: dataprocessing.DebitType,
		UserID: "U1", MerchantID: "M2", Subsidiary: "S1",
	}
	txns := []dataprocessing.Transaction{
		debit("t1", "U1", "M1", "S1", 100, at(9, 0)),
		debit("t2", "U1", "M1", "S1", 100, at(11, 0)),
		missing,
	}
	rows := Aggregate(txns)
	require.Len(t, rows, 1)
	row := rows[0]

	// Amount moments cover only the rows carrying amounts
	assert.Equal(t, 2, row.Cnt24h)
	assert.Equal(t, 200.0, row.Sum24h)
	assert.Equal(t, 100.0, row.AvgAmount)
	// Concentration denominators cover every debit row
	assert.InDelta(t, 2.0/3.0, row.MerchantConcentration, 1e-9)
	assert.InDelta(t, 2.0/3.0, row.SameAmountRatio, 1e-9)
	// Intervals cover every debit row as well
	assert.InDelta(t, 60.0, row.AvgIntervalMinutes, 1e-9)
}

func TestAggregateMultipleUsersSorted(t *testing.T) {
	txns := []dataprocessing.Transaction{
		debit("t1", "U9", "M1", "S1", 10, at(9, 0)),
		debit("t2", "U1", "M1", "S1", 20, at(9, 30)),
		debit("t3", "U5", "M1", "S1", 30, at(10, 0)),
	}
	rows := Aggregate(txns)
	require.Len(t, rows, 3)
	assert.Equal(t, "U1", rows[0].UserID)
	assert.Equal(t, "U5", rows[1].UserID)
	assert.Equal(t, "U9", rows[2].UserID)
}

func TestConcentrationBounds(t *testing.T) {
	txns := []dataprocessing.Transaction{
		debit("t1", "U1", "M1", "S1", 10, at(9, 0)),
		debit("t2", "U1", "M2", "S2", 20, at(10, 0)),
		debit("t3", "U1", "M3", "S3", 30, at(11, 0)),
		debit("t4", "U1", "M4", "S4", 40, at(12, 0)),
	}
	rows := Aggregate(txns)
	require.Len(t, rows, 1)
	row := rows[0]

	for name, v := range map[string]float64{
		"merchant":    row.MerchantConcentration,
		"subsidiary":  row.SubsidiaryConcentration,
		"same_amount": row.SameAmountRatio,
	} {
		assert.Greater(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 1.0, name)
	}
}

func TestVectorMatchesMatrixColumns(t *testing.T) {
	row := Row{Cnt24h: 1, Sum24h: 2}
	assert.Len(t, row.Vector(), len(MatrixColumns))

	matrix := Matrix([]Row{row, {}})
	require.Len(t, matrix, 2)
	assert.Equal(t, 1.0, matrix[0][0])
	assert.Equal(t, 2.0, matrix[0][1])
}
