package prices

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/andybalholm/brotli"

	"github.com/guarzo/pkmpricedash/internal/config"
	"github.com/guarzo/pkmpricedash/internal/logging"
	"github.com/guarzo/pkmpricedash/internal/model"
)

const pricesPath = "/v1/prices"

// Tracker talks to the PokemonPriceTracker prices endpoint.
type Tracker struct {
	baseURL    string
	limit      int
	creds      config.CredentialProvider
	httpClient *http.Client
	log        *logging.Entry
}

// APIError is a non-2xx response. Body is kept for diagnostics.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Body)
}

func NewTracker(cfg Config) *Tracker {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultBaseURL
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = config.DefaultLimit
	}
	creds := cfg.Credentials
	if creds == nil {
		creds = config.StaticCredentials("")
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	log := cfg.Log
	if log == nil {
		log = logging.Discard()
	}

	return &Tracker{
		baseURL:    baseURL,
		limit:      limit,
		creds:      creds,
		httpClient: client,
		log:        log.WithComponent("prices"),
	}
}

func (t *Tracker) Name() string {
	return "PokemonPriceTracker"
}

// FetchPrices issues a single GET for up to limit records. The credential is
// read now and sent as is, even when empty.
func (t *Tracker) FetchPrices(ctx context.Context) ([]model.PriceRecord, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(t.limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+pricesPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.creds.Credential())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "br, gzip")
	req.Header.Set("User-Agent", "pkmpricedash/1.0")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	reader, err := decodedBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	env, err := ParseEnvelope(body)
	if err != nil {
		return nil, err
	}
	if env.Skipped > 0 {
		t.log.WithFields(logging.Fields{
			"envelope": env.Kind.String(),
			"skipped":  env.Skipped,
			"kept":     len(env.Records),
		}).WithError(env.SkipErr).Warn("skipped malformed records")
	}

	SortByAverageSellPrice(env.Records)
	return env.Records, nil
}

func decodedBody(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

// Diagnostic returns the best detail available for a failed fetch: the
// response body when the server sent one, otherwise the error text.
func Diagnostic(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Body != "" {
		return apiErr.Body
	}
	return err.Error()
}
