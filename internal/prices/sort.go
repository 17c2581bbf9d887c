package prices

import (
	"sort"

	"github.com/guarzo/pkmpricedash/internal/model"
)

// SortByAverageSellPrice orders records from highest to lowest average sell
// price in place. Missing prices sort as 0; ties keep their input order.
func SortByAverageSellPrice(records []model.PriceRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return sortPrice(records[i]) > sortPrice(records[j])
	})
}

func sortPrice(r model.PriceRecord) float64 {
	p, ok := r.AverageSellPrice()
	if !ok {
		return 0
	}
	return p
}
