package features

import (
	"time"
)

// Row holds the behavioral feature vector for one user on one day.
// Date is empty inside a partition file; the historical loader fills it in
// from the partition keys.
type Row struct {
	UserID                  string
	Cnt24h                  int
	Sum24h                  float64
	AvgAmount               float64
	AmountStd               float64
	UniqueMerchants         int
	UniqueSubsidiaries      int
	AmountCV                float64
	AmountRange             float64
	MerchantConcentration   float64
	SubsidiaryConcentration float64
	SameAmountRatio         float64
	AvgIntervalMinutes      float64
	StdIntervalMinutes      float64

	Date time.Time
}

// MatrixColumns names the numeric columns that enter the model, in vector
// order. Identifier and partition columns (user_id, year, month, day, date)
// never appear here.
var MatrixColumns = []string{
	"cnt_24h",
	"sum_24h",
	"avg_amount",
	"amount_std",
	"unique_merchants",
	"unique_subsidiaries",
	"amount_cv",
	"amount_range",
	"merchant_concentration",
	"subsidiary_concentration",
	"same_amount_ratio",
	"avg_interval_minutes",
	"std_interval_minutes",
}

// Vector returns the row's numeric features in MatrixColumns order.
// Trainer and scorer both build their matrices through this method so the
// two can never diverge.
func (r Row) Vector() []float64 {
	return []float64{
		float64(r.Cnt24h),
		r.Sum24h,
		r.AvgAmount,
		r.AmountStd,
		float64(r.UniqueMerchants),
		float64(r.UniqueSubsidiaries),
		r.AmountCV,
		r.AmountRange,
		r.MerchantConcentration,
		r.SubsidiaryConcentration,
		r.SameAmountRatio,
		r.AvgIntervalMinutes,
		r.StdIntervalMinutes,
	}
}

// Matrix builds the numeric feature matrix for a set of rows
func Matrix(rows []Row) [][]float64 {
	matrix := make([][]float64, len(rows))
	for i, row := range rows {
		matrix[i] = row.Vector()
	}
	return matrix
}
