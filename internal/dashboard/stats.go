package dashboard

import (
	"math"
	"math/big"
	"sort"

	"github.com/guarzo/pkmpricedash/internal/model"
)

const zeroAmount = "0.00"

// Summary is the statistics line over the priced records.
type Summary struct {
	Total   int    `json:"total"`
	Average string `json:"average"`
	Median  string `json:"median"`
	Range   string `json:"range"`
}

// ExtractPrices returns the average sell prices that are present, in record
// order. It is the single source for both the summary and the per-card column.
func ExtractPrices(records []model.PriceRecord) []float64 {
	prices := make([]float64, 0, len(records))
	for _, r := range records {
		if p, ok := r.AverageSellPrice(); ok {
			prices = append(prices, p)
		}
	}
	return prices
}

// Summarize computes count, mean, median and range over the priced records.
// Total counts priced records only. The median is the element at index n/2
// of the ascending values, so even counts take the upper-middle value
// instead of averaging the two middle ones.
func Summarize(records []model.PriceRecord) Summary {
	prices := ExtractPrices(records)
	total := len(prices)
	if total == 0 {
		return Summary{Average: zeroAmount, Median: zeroAmount, Range: zeroAmount}
	}

	sum := 0.0
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range prices {
		sum += p
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}

	sorted := make([]float64, total)
	copy(sorted, prices)
	sort.Float64s(sorted)

	return Summary{
		Total:   total,
		Average: FormatAmount(sum / float64(total)),
		Median:  FormatAmount(sorted[total/2]),
		Range:   FormatAmount(hi - lo),
	}
}

// FormatAmount renders v with exactly two decimals. Rounding works on the
// exact binary value of v, and a value exactly halfway between two cents
// rounds away from zero, so 1.125 gives "1.13" while 1.005 (stored as
// 1.00499...) gives "1.00".
func FormatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return zeroAmount
	}
	return new(big.Rat).SetFloat64(v).FloatString(2)
}

// FormatPrice renders a record's average sell price, or "N/A" when absent.
func FormatPrice(r model.PriceRecord) string {
	p, ok := r.AverageSellPrice()
	if !ok {
		return "N/A"
	}
	return FormatAmount(p)
}
