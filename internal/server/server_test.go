package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/guarzo/pkmpricedash/internal/config"
	"github.com/guarzo/pkmpricedash/internal/dashboard"
	"github.com/guarzo/pkmpricedash/internal/logging"
	"github.com/guarzo/pkmpricedash/internal/model"
	"github.com/guarzo/pkmpricedash/internal/prices"
	"github.com/guarzo/pkmpricedash/internal/proxy"
	"github.com/guarzo/pkmpricedash/internal/testutil"
)

type fixedProvider struct {
	records []model.PriceRecord
	gate    chan struct{}
	err     error
}

func (f *fixedProvider) Name() string { return "fixed" }

func (f *fixedProvider) FetchPrices(ctx context.Context) ([]model.PriceRecord, error) {
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.PriceRecord, len(f.records))
	copy(out, f.records)
	prices.SortByAverageSellPrice(out)
	return out, nil
}

func cards() []model.PriceRecord {
	return []model.PriceRecord{
		testutil.Record("4", "Charmander", "Common", testutil.P(9)),
		testutil.Record("1", "Charizard", "Rare Holo", testutil.P(350)),
		testutil.Record("5", "Pikachu", "Common", testutil.P(4)),
		testutil.Record("6", "Energy Removal", "", nil),
		testutil.Record("2", "Blastoise", "Rare Holo", testutil.P(120)),
	}
}

func newMountedServer(t *testing.T, p prices.Provider, opts Options) *Server {
	t.Helper()
	if opts.Provider == nil {
		opts.Provider = func(string) prices.Provider { return p }
	}
	srv, err := New(opts, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	v := srv.Mount(context.Background(), p)
	select {
	case <-v.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("view did not load")
	}
	return srv
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func parse(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		t.Fatalf("parse HTML: %v", err)
	}
	return doc
}

func TestDashboardPage(t *testing.T) {
	srv := newMountedServer(t, &fixedProvider{records: cards()}, Options{})

	rec := get(t, srv.Handler(), "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	doc := parse(t, rec)

	stats := map[string]string{"total": "4", "average": "120.75", "median": "120.00", "range": "346.00"}
	for stat, want := range stats {
		if got := doc.Find(`[data-stat="` + stat + `"]`).Text(); got != want {
			t.Errorf("%s = %q, want %q", stat, got, want)
		}
	}

	var order []string
	doc.Find("#cards li").Each(func(i int, s *goquery.Selection) {
		id, _ := s.Attr("data-id")
		order = append(order, id)
	})
	if strings.Join(order, ",") != "1,2,4,5,6" {
		t.Errorf("card order = %v, want price-descending [1 2 4 5 6]", order)
	}

	last := doc.Find(`#cards li[data-id="6"]`)
	if last.Find(".price").Text() != "N/A" || last.Find(".rarity").Text() != "N/A" {
		t.Errorf("unpriced card rendered as %q", last.Text())
	}

	var options []string
	doc.Find(`select[name="rarity"] option`).Each(func(i int, s *goquery.Selection) {
		options = append(options, s.Text())
	})
	if strings.Join(options, "|") != "All|Rare Holo|Common" {
		t.Errorf("options = %v", options)
	}
	if sel := doc.Find(`option[selected]`).Text(); sel != "All" {
		t.Errorf("selected option = %q, want All", sel)
	}
}

func TestDashboardPage_Filters(t *testing.T) {
	srv := newMountedServer(t, &fixedProvider{records: cards()}, Options{})

	doc := parse(t, get(t, srv.Handler(), "/?search=CHAR&rarity=Common"))

	if n := doc.Find("#cards li").Length(); n != 1 {
		t.Fatalf("expected 1 card, got %d", n)
	}
	if name := doc.Find("#cards li strong").Text(); name != "Charmander" {
		t.Errorf("card = %q", name)
	}
	if v, _ := doc.Find(`input[name="search"]`).Attr("value"); v != "CHAR" {
		t.Errorf("search box value = %q", v)
	}
	if sel := doc.Find(`option[selected]`).Text(); sel != "Common" {
		t.Errorf("selected option = %q", sel)
	}
	// Summary is over all records regardless of filters.
	if total := doc.Find(`[data-stat="total"]`).Text(); total != "4" {
		t.Errorf("total = %s", total)
	}
}

func TestDashboardPage_Loading(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)

	p := &fixedProvider{records: cards(), gate: gate}
	srv, err := New(Options{Provider: func(string) prices.Provider { return p }}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Before any mount.
	doc := parse(t, get(t, srv.Handler(), "/"))
	if doc.Find("#loading").Length() != 1 {
		t.Error("expected loading notice before mount")
	}

	srv.Mount(context.Background(), p)
	doc = parse(t, get(t, srv.Handler(), "/"))
	if doc.Find("#loading").Length() != 1 {
		t.Error("expected loading notice while fetching")
	}
	if doc.Find("#cards").Length() != 0 {
		t.Error("card list should not render while loading")
	}
}

func TestDashboardJSON(t *testing.T) {
	srv := newMountedServer(t, &fixedProvider{records: cards()}, Options{})

	rec := get(t, srv.Handler(), "/dashboard.json?rarity=Rare+Holo")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	var page dashboard.Page
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Loading {
		t.Error("page should not be loading")
	}
	if page.State.Rarity != "Rare Holo" {
		t.Errorf("rarity = %q", page.State.Rarity)
	}
	if len(page.Rows) != 2 || page.Rows[0].Name != "Charizard" || page.Rows[1].Name != "Blastoise" {
		t.Errorf("rows = %+v", page.Rows)
	}
	if page.Summary.Median != "120.00" {
		t.Errorf("median = %s", page.Summary.Median)
	}
}

func TestHealthz(t *testing.T) {
	srv := newMountedServer(t, &fixedProvider{records: cards()}, Options{})

	rec := get(t, srv.Handler(), "/healthz")
	var body struct {
		Status  string `json:"status"`
		Loading bool   `json:"loading"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Loading {
		t.Errorf("healthz = %+v", body)
	}
}

func TestRequestID(t *testing.T) {
	srv := newMountedServer(t, &fixedProvider{}, Options{})

	rec := get(t, srv.Handler(), "/healthz")
	if _, err := uuid.Parse(rec.Header().Get(requestIDHeader)); err != nil {
		t.Errorf("expected generated UUID request ID, got %q", rec.Header().Get(requestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Header().Get(requestIDHeader) != "abc-123" {
		t.Errorf("incoming request ID not echoed, got %q", rec.Header().Get(requestIDHeader))
	}
}

func TestProxyRoute(t *testing.T) {
	var gotPath string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`[]`))
	}))
	defer upstream.Close()

	px, err := proxy.New(proxy.Options{Upstream: upstream.URL}, nil)
	if err != nil {
		t.Fatalf("proxy.New: %v", err)
	}
	srv := newMountedServer(t, &fixedProvider{}, Options{Proxy: px})

	rec := get(t, srv.Handler(), "/api/v1/prices?limit=500")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if gotPath != "/api/v1/prices" {
		t.Errorf("upstream path = %s", gotPath)
	}
}

func TestRefreshReplacesView(t *testing.T) {
	p := &fixedProvider{records: cards()}
	srv := newMountedServer(t, p, Options{})
	first := srv.View()

	p.records = cards()[:1]
	srv.Refresh(context.Background())

	second := srv.View()
	if second == first {
		t.Fatal("refresh should mount a new view")
	}
	if second.Loading() {
		t.Error("refreshed view should be loaded before it is swapped in")
	}
	if len(second.Records()) != 1 {
		t.Errorf("refreshed view has %d records, want 1", len(second.Records()))
	}
	if len(first.Records()) != 5 {
		t.Errorf("old view records changed: %d", len(first.Records()))
	}
}

func TestRefreshFailureKeepsView(t *testing.T) {
	var buf bytes.Buffer
	log, err := logging.New(logging.Options{Format: "text", Output: &buf})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	p := &fixedProvider{records: cards()}
	srv, err := New(Options{Provider: func(string) prices.Provider { return p }}, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	first := srv.Mount(context.Background(), p)
	<-first.Done()

	p.err = &prices.APIError{StatusCode: http.StatusTooManyRequests, Body: "slow down"}
	srv.Refresh(context.Background())

	if srv.View() != first {
		t.Fatal("failed refresh should keep the current view")
	}
	if got := len(srv.View().Records()); got != 5 {
		t.Errorf("current view has %d records, want 5", got)
	}
	if rec := get(t, srv.Handler(), "/dashboard.json"); !strings.Contains(rec.Body.String(), "Charizard") {
		t.Errorf("dashboard lost its cards after a failed refresh: %s", rec.Body.String())
	}
	out := buf.String()
	if !strings.Contains(out, "level=warning") || !strings.Contains(out, "refresh failed") {
		t.Errorf("expected a warning for the failed refresh, got:\n%s", out)
	}

	p.err = nil
	srv.Refresh(context.Background())
	if srv.View() == first {
		t.Error("a successful refresh after a failure should swap the view")
	}
}

func TestMountAndRefreshConcurrently(t *testing.T) {
	p := &fixedProvider{records: cards()}
	srv := newMountedServer(t, p, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-srv.Mount(context.Background(), p).Done()
		}()
		go func() {
			defer wg.Done()
			srv.Refresh(context.Background())
		}()
	}
	wg.Wait()

	if srv.View() == nil {
		t.Fatal("no view mounted")
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Options{}, nil); err == nil {
		t.Error("expected error without provider")
	}
	_, err := New(Options{
		Provider:        func(string) prices.Provider { return &fixedProvider{} },
		RefreshSchedule: "not a schedule",
	}, nil)
	if err == nil {
		t.Error("expected error for bad schedule")
	}
	_, err = New(Options{
		Provider:        func(string) prices.Provider { return &fixedProvider{} },
		RefreshSchedule: "@every 1h",
	}, nil)
	if err != nil {
		t.Errorf("valid schedule rejected: %v", err)
	}
}

func TestRun_AcquiresThroughLocalProxy(t *testing.T) {
	seen := make(chan [2]string, 1)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- [2]string{r.Header.Get("Authorization"), r.URL.Path + "?" + r.URL.RawQuery}
		_, _ = w.Write([]byte(`{"cards": [
			{"id": "a", "name": "Pikachu", "cardmarket": {"prices": {"averageSellPrice": 1}}},
			{"id": "b", "name": "Raichu", "cardmarket": {"prices": {"averageSellPrice": 5}}}
		]}`))
	}))
	defer upstream.Close()

	px, err := proxy.New(proxy.Options{Upstream: upstream.URL}, nil)
	if err != nil {
		t.Fatalf("proxy.New: %v", err)
	}

	localAPI := make(chan string, 1)
	srv, err := New(Options{
		Address: "127.0.0.1:0",
		Proxy:   px,
		Provider: func(base string) prices.Provider {
			localAPI <- base
			return prices.NewTracker(prices.Config{BaseURL: base, Credentials: config.StaticCredentials("k")})
		},
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	select {
	case base := <-localAPI:
		if !strings.HasPrefix(base, "http://127.0.0.1:") || !strings.HasSuffix(base, "/api") {
			t.Errorf("local API base = %s", base)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("provider was never built")
	}

	deadline := time.Now().Add(3 * time.Second)
	for (srv.View() == nil || srv.View().Loading()) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	v := srv.View()
	if v == nil || v.Loading() {
		t.Fatal("view did not finish loading")
	}
	records := v.Records()
	if len(records) != 2 || records[0].ID != "b" {
		t.Errorf("records = %+v", records)
	}
	got := <-seen
	if got[0] != "Bearer k" || got[1] != "/api/v1/prices?limit=500" {
		t.Errorf("upstream saw auth=%q path=%q", got[0], got[1])
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(6 * time.Second):
		t.Fatal("Run did not stop")
	}
}
