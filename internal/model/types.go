package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// PriceRecord is one card's market listing from the prices endpoint.
// Records are never mutated after decode; a refresh replaces the whole slice.
type PriceRecord struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Rarity     string           `json:"rarity,omitempty"`
	SetName    string           `json:"set_name,omitempty"`
	Images     *ImageBlock      `json:"images,omitempty"`     // may be nil
	Cardmarket *CardmarketBlock `json:"cardmarket,omitempty"` // may be nil
}

type ImageBlock struct {
	Small string `json:"small,omitempty"`
	Large string `json:"large,omitempty"`
}

type CardmarketBlock struct {
	URL     string           `json:"url,omitempty"`
	Updated string           `json:"updatedAt,omitempty"`
	Prices  CardmarketPrices `json:"prices"`
}

// CardmarketPrices only carries the fields we display. Add trend/avg7 etc. if needed.
type CardmarketPrices struct {
	AverageSellPrice OptionalPrice `json:"averageSellPrice"`
	TrendPrice       OptionalPrice `json:"trendPrice"`
	Avg7             OptionalPrice `json:"avg7"`
	Avg30            OptionalPrice `json:"avg30"`
}

// OptionalPrice is a price that may be absent. Anything that is not a JSON
// number (null, strings, objects) decodes as absent rather than failing.
type OptionalPrice struct {
	Value float64
	Valid bool
}

// Price returns a present OptionalPrice.
func Price(v float64) OptionalPrice {
	return OptionalPrice{Value: v, Valid: true}
}

func (p *OptionalPrice) UnmarshalJSON(data []byte) error {
	*p = OptionalPrice{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	if c := data[0]; c != '-' && (c < '0' || c > '9') {
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return nil
	}
	p.Value = v
	p.Valid = true
	return nil
}

func (p OptionalPrice) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(p.Value)
}

// AverageSellPrice returns the cardmarket average sell price and whether it is present.
func (r PriceRecord) AverageSellPrice() (float64, bool) {
	if r.Cardmarket == nil || !r.Cardmarket.Prices.AverageSellPrice.Valid {
		return 0, false
	}
	return r.Cardmarket.Prices.AverageSellPrice.Value, true
}

// ImageURL returns the small thumbnail, or "" when the record has none.
func (r PriceRecord) ImageURL() string {
	if r.Images == nil {
		return ""
	}
	return r.Images.Small
}
