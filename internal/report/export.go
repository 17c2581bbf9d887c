package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/guarzo/pkmpricedash/internal/dashboard"
)

var exportHeader = []string{"id", "name", "average_sell_price", "rarity", "set", "image_url"}

// WriteCSV writes the page's visible rows, in display order, as CSV.
func WriteCSV(w io.Writer, page dashboard.Page) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range page.Rows {
		row := EscapeCSVRow([]string{r.ID, r.Name, r.Price, r.Rarity, r.SetName, r.ImageURL})
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
