package dashboard

import "github.com/guarzo/pkmpricedash/internal/model"

// AllRarities is the rarity selection that applies no rarity filter.
const AllRarities = "All"

// RarityOptions returns AllRarities followed by each distinct non-empty
// rarity in the order it first appears.
func RarityOptions(records []model.PriceRecord) []string {
	options := []string{AllRarities}
	seen := make(map[string]bool)
	for _, r := range records {
		if r.Rarity == "" || seen[r.Rarity] {
			continue
		}
		seen[r.Rarity] = true
		options = append(options, r.Rarity)
	}
	return options
}
