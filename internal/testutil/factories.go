package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/guarzo/pkmpricedash/internal/model"
)

// TestDataFactory generates price records for tests
type TestDataFactory struct {
	rand *rand.Rand
	next int
}

// NewTestDataFactory creates a factory with a seeded random generator.
// A zero seed uses the current time.
func NewTestDataFactory(seed int64) *TestDataFactory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &TestDataFactory{
		rand: rand.New(rand.NewSource(seed)),
	}
}

// GenerateTestToken generates a random test token
func (f *TestDataFactory) GenerateTestToken() string {
	return fmt.Sprintf("test-token-%d", f.rand.Int63())
}

// GenerateTestCardName generates a random test card name
func (f *TestDataFactory) GenerateTestCardName() string {
	names := []string{"Test Pikachu", "Test Charizard", "Test Blastoise", "Test Venusaur", "Test Mewtwo"}
	return names[f.rand.Intn(len(names))]
}

// GenerateTestRarity returns a rarity label, or "" about one time in six
func (f *TestDataFactory) GenerateTestRarity() string {
	rarities := []string{"", "Common", "Uncommon", "Rare", "Rare Holo", "Secret Rare"}
	return rarities[f.rand.Intn(len(rarities))]
}

// GenerateTestSetName generates a random test set name
func (f *TestDataFactory) GenerateTestSetName() string {
	sets := []string{"Test Base Set", "Test Jungle", "Test Fossil", "Test Rocket", "Test Gym"}
	return sets[f.rand.Intn(len(sets))]
}

// GenerateTestPrice generates a price in dollars between $0.50 and $500
func (f *TestDataFactory) GenerateTestPrice() float64 {
	cents := f.rand.Intn(50000) + 50
	return float64(cents) / 100
}

// GenerateTestRecord generates a record with a unique ID. About one in four
// records has no price.
func (f *TestDataFactory) GenerateTestRecord() model.PriceRecord {
	f.next++
	var price *float64
	if f.rand.Intn(4) != 0 {
		p := f.GenerateTestPrice()
		price = &p
	}
	return Record(fmt.Sprintf("test-%d", f.next), f.GenerateTestCardName(), f.GenerateTestRarity(), price)
}

// GenerateTestRecords generates n records
func (f *TestDataFactory) GenerateTestRecords(n int) []model.PriceRecord {
	records := make([]model.PriceRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, f.GenerateTestRecord())
	}
	return records
}

// Record builds a price record. A nil price leaves cardmarket data absent.
func Record(id, name, rarity string, price *float64) model.PriceRecord {
	r := model.PriceRecord{
		ID:      id,
		Name:    name,
		Rarity:  rarity,
		SetName: "Test Base Set",
		Images:  &model.ImageBlock{Small: "https://images.test.local/" + id + ".png"},
	}
	if price != nil {
		r.Cardmarket = &model.CardmarketBlock{
			Prices: model.CardmarketPrices{AverageSellPrice: model.Price(*price)},
		}
	}
	return r
}

// P returns a pointer to v, for Record prices.
func P(v float64) *float64 {
	return &v
}
