package dashboard

import "github.com/guarzo/pkmpricedash/internal/model"

// Row is a record prepared for display.
type Row struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Rarity   string `json:"rarity"`
	SetName  string `json:"set_name"`
	ImageURL string `json:"image_url,omitempty"`
}

// Rows formats records for display. Missing price and rarity show as "N/A",
// a missing set as "–".
func Rows(records []model.PriceRecord) []Row {
	rows := make([]Row, 0, len(records))
	for _, r := range records {
		row := Row{
			ID:       r.ID,
			Name:     r.Name,
			Price:    FormatPrice(r),
			Rarity:   r.Rarity,
			SetName:  r.SetName,
			ImageURL: r.ImageURL(),
		}
		if row.Rarity == "" {
			row.Rarity = "N/A"
		}
		if row.SetName == "" {
			row.SetName = "–"
		}
		rows = append(rows, row)
	}
	return rows
}
