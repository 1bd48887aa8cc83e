package features

import (
	"math"
	"sort"

	"txanomaly/internal/dataprocessing"
)

// Aggregate computes the per-user behavioral feature rows for one cleaned
// day of transactions. Only debit transactions participate; when the day has
// no debits the result is empty, which callers treat as a valid no-op.
//
// All aggregations are normalized to finite values: sample statistics that
// are undefined for small groups (std with n=1, intervals with a single
// transaction) come out as 0, and the coefficient of variation is 0 whenever
// the mean amount is 0.
func Aggregate(txns []dataprocessing.Transaction) []Row {
	groups := make(map[string][]dataprocessing.Transaction)
	for _, txn := range txns {
		if !txn.IsDebit() {
			continue
		}
		groups[txn.UserID] = append(groups[txn.UserID], txn)
	}
	if len(groups) == 0 {
		return nil
	}

	users := make([]string, 0, len(groups))
	for user := range groups {
		users = append(users, user)
	}
	sort.Strings(users)

	rows := make([]Row, 0, len(users))
	for _, user := range users {
		rows = append(rows, aggregateUser(user, groups[user]))
	}
	return rows
}

// aggregateUser computes one feature row from a single user's debit
// transactions for the day
func aggregateUser(user string, txns []dataprocessing.Transaction) Row {
	row := Row{UserID: user}
	total := len(txns)

	// Amount moments are computed over rows carrying a parseable amount;
	// rows with missing amounts still count toward concentration
	// denominators and interval statistics.
	var amounts []float64
	for _, txn := range txns {
		if txn.HasAmount {
			amounts = append(amounts, txn.Amount)
		}
	}

	row.Cnt24h = len(amounts)
	row.Sum24h = sum(amounts)
	if len(amounts) > 0 {
		row.AvgAmount = row.Sum24h / float64(len(amounts))
		row.AmountStd = sampleStd(amounts, row.AvgAmount)
		row.AmountRange = maxOf(amounts) - minOf(amounts)
	}
	if row.AvgAmount != 0 {
		row.AmountCV = row.AmountStd / row.AvgAmount
	}

	merchants := make([]string, total)
	subsidiaries := make([]string, total)
	for i, txn := range txns {
		merchants[i] = txn.MerchantID
		subsidiaries[i] = txn.Subsidiary
	}
	row.UniqueMerchants = distinct(merchants)
	row.UniqueSubsidiaries = distinct(subsidiaries)
	row.MerchantConcentration = float64(modalCount(merchants)) / float64(total)
	row.SubsidiaryConcentration = float64(modalCount(subsidiaries)) / float64(total)
	if len(amounts) > 0 {
		row.SameAmountRatio = float64(modalAmountCount(amounts)) / float64(total)
	}

	row.AvgIntervalMinutes, row.StdIntervalMinutes = intervalStats(txns)
	return row
}

// intervalStats sorts the transactions by timestamp and reports the mean and
// sample standard deviation of the successive gaps, in minutes. A user with
// fewer than two transactions yields 0 for both.
func intervalStats(txns []dataprocessing.Transaction) (avg, std float64) {
	sorted := make([]dataprocessing.Transaction, len(txns))
	copy(sorted, txns)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var diffs []float64
	for i := 1; i < len(sorted); i++ {
		diffs = append(diffs, sorted[i].Date.Sub(sorted[i-1].Date).Minutes())
	}
	if len(diffs) == 0 {
		return 0, 0
	}
	avg = sum(diffs) / float64(len(diffs))
	if len(diffs) > 1 {
		std = sampleStd(diffs, avg)
	}
	return avg, std
}

// modalCount returns the frequency of the most common value. Ties on modal
// frequency resolve to the lexicographically smallest value, which keeps the
// result deterministic; the count is the same for every tied value anyway.
func modalCount(values []string) int {
	counts := make(map[string]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	best := 0
	for _, c := range counts {
		if c > best {
			best = c
		}
	}
	return best
}

// modalAmountCount is modalCount over float amounts; ties resolve to the
// numerically smallest value
func modalAmountCount(amounts []float64) int {
	counts := make(map[float64]int, len(amounts))
	for _, v := range amounts {
		counts[v]++
	}
	best := 0
	for _, c := range counts {
		if c > best {
			best = c
		}
	}
	return best
}

func distinct(values []string) int {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return len(set)
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// sampleStd computes the n-1 standard deviation; 0 when n < 2
func sampleStd(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
