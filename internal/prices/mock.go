package prices

import (
	"context"
	"fmt"
	"time"

	"github.com/guarzo/pkmpricedash/internal/model"
)

// MockProvider serves a fixed, deterministic price list for offline use.
type MockProvider struct {
	// Err, when set, is returned instead of data.
	Err     error
	DelayMS int
}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Name() string {
	return "MockPriceProvider"
}

func (m *MockProvider) FetchPrices(ctx context.Context) ([]model.PriceRecord, error) {
	if m.DelayMS > 0 {
		select {
		case <-time.After(time.Duration(m.DelayMS) * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}

	seed := []struct {
		name, rarity, set string
		price             float64
		priced            bool
	}{
		{"Charizard", "Rare Holo", "Base", 350.25, true},
		{"Blastoise", "Rare Holo", "Base", 120.10, true},
		{"Pikachu", "Common", "Jungle", 4.50, true},
		{"Charmander", "Common", "Base", 9.99, true},
		{"Charmeleon", "Uncommon", "Base", 0, false},
		{"Mewtwo", "Rare Holo", "Base", 80.00, true},
		{"Umbreon VMAX", "Secret Rare", "Evolving Skies", 410.00, true},
		{"Energy Removal", "", "Base", 0, false},
	}

	records := make([]model.PriceRecord, 0, len(seed))
	for i, s := range seed {
		r := model.PriceRecord{
			ID:      fmt.Sprintf("mock-%d", i+1),
			Name:    s.name,
			Rarity:  s.rarity,
			SetName: s.set,
			Images:  &model.ImageBlock{Small: fmt.Sprintf("https://images.example.test/mock-%d.png", i+1)},
		}
		if s.priced {
			r.Cardmarket = &model.CardmarketBlock{Prices: model.CardmarketPrices{AverageSellPrice: model.Price(s.price)}}
		}
		records = append(records, r)
	}

	SortByAverageSellPrice(records)
	return records, nil
}
