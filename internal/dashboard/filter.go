package dashboard

import (
	"strings"

	"github.com/guarzo/pkmpricedash/internal/model"
)

// Filter returns the records whose name contains search (case-insensitive)
// and whose rarity equals rarity, unless rarity is AllRarities. An empty
// search matches every name. Source order is kept and the input is not
// modified.
func Filter(records []model.PriceRecord, search, rarity string) []model.PriceRecord {
	needle := strings.ToLower(search)
	out := make([]model.PriceRecord, 0, len(records))
	for _, r := range records {
		if needle != "" && !strings.Contains(strings.ToLower(r.Name), needle) {
			continue
		}
		if rarity != AllRarities && r.Rarity != rarity {
			continue
		}
		out = append(out, r)
	}
	return out
}
