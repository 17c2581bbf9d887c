package prices

import (
	"context"
	"net/http"
	"time"

	"github.com/guarzo/pkmpricedash/internal/config"
	"github.com/guarzo/pkmpricedash/internal/logging"
	"github.com/guarzo/pkmpricedash/internal/model"
)

// Provider fetches the full price list in one call.
type Provider interface {
	// FetchPrices returns records sorted by average sell price, highest first.
	FetchPrices(ctx context.Context) ([]model.PriceRecord, error)

	// Name returns the provider name for logs.
	Name() string
}

// Config holds what a Tracker needs.
type Config struct {
	BaseURL     string
	Limit       int
	Timeout     time.Duration
	Credentials config.CredentialProvider

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client

	// Log receives warnings about skipped records. Nil discards them.
	Log *logging.Log
}

// NewProvider returns the mock provider when useMock is set, otherwise the
// live PokemonPriceTracker client.
func NewProvider(cfg Config, useMock bool) Provider {
	if useMock {
		return NewMockProvider()
	}
	return NewTracker(cfg)
}
