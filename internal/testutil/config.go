package testutil

import (
	"os"
)

const (
	// TestPriceAPIKey names the environment variable holding a real key for
	// opt-in live tests.
	TestPriceAPIKey = "TEST_POKE_PRICE_API_KEY"

	// Default test values when environment variables are not set
	DefaultTestKey = "test-key"
)

// GetTestToken returns a test token from environment variable or default
func GetTestToken(envVar, defaultValue string) string {
	if token := os.Getenv(envVar); token != "" {
		return token
	}
	return defaultValue
}

// GetTestPriceAPIKey returns the test API key for the prices endpoint
func GetTestPriceAPIKey() string {
	return GetTestToken(TestPriceAPIKey, DefaultTestKey)
}
