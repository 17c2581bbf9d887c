package dashboard

import (
	"context"
	"errors"
	"sync"

	"github.com/guarzo/pkmpricedash/internal/logging"
	"github.com/guarzo/pkmpricedash/internal/model"
	"github.com/guarzo/pkmpricedash/internal/prices"
)

// State is the user's current search text and rarity selection.
type State struct {
	Search string `json:"search"`
	Rarity string `json:"rarity"`
}

// DefaultState is the state a freshly mounted view starts with.
func DefaultState() State {
	return State{Rarity: AllRarities}
}

// Page is everything needed to draw the dashboard for one State.
type Page struct {
	Loading       bool     `json:"loading"`
	State         State    `json:"state"`
	Summary       Summary  `json:"summary"`
	RarityOptions []string `json:"rarity_options"`
	Rows          []Row    `json:"cards"`
}

// View holds one mounted dashboard: a record sequence acquired once and the
// loading flag. Records are only ever replaced by mounting a new View.
type View struct {
	provider prices.Provider
	log      *logging.Entry

	once sync.Once
	done chan struct{}

	mu      sync.RWMutex
	records []model.PriceRecord
	loading bool
	closed  bool
	err     error
}

func NewView(provider prices.Provider, log *logging.Log) *View {
	if log == nil {
		log = logging.Discard()
	}
	return &View{
		provider: provider,
		log:      log.WithComponent("acquisition"),
		done:     make(chan struct{}),
		records:  []model.PriceRecord{},
		loading:  true,
	}
}

// Load performs the view's single acquisition. Later calls are no-ops.
// Failures are logged and leave the record sequence empty; Load never
// returns them. Loading is false once the attempt has concluded, unless the
// view was closed first, in which case nothing is written.
func (v *View) Load(ctx context.Context) {
	v.once.Do(func() {
		defer close(v.done)

		records, err := v.provider.FetchPrices(ctx)

		v.mu.Lock()
		defer v.mu.Unlock()
		if v.closed {
			return
		}
		v.loading = false

		if err != nil {
			v.err = err
			entry := v.log.WithFields(logging.Fields{"provider": v.provider.Name()})
			var apiErr *prices.APIError
			if errors.As(err, &apiErr) {
				entry = entry.WithFields(logging.Fields{"status": apiErr.StatusCode})
			}
			entry.WithFields(logging.Fields{"detail": prices.Diagnostic(err)}).Error("fetch error")
			return
		}

		v.records = records
		v.log.WithFields(logging.Fields{"provider": v.provider.Name(), "records": len(records)}).Info("prices loaded")
	})
}

// Done is closed when the acquisition attempt has concluded.
func (v *View) Done() <-chan struct{} {
	return v.done
}

// Close marks the view as dismantled. An in-flight Load will not update it.
func (v *View) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
}

// Err reports why the acquisition failed, or nil if it succeeded or has not
// concluded.
func (v *View) Err() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.err
}

func (v *View) Loading() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loading
}

// Records returns the acquired sequence. Callers must not modify it.
func (v *View) Records() []model.PriceRecord {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.records
}

// Render derives the page for s from the current records. Nothing is cached;
// every call recomputes statistics, options and the filtered rows.
func (v *View) Render(s State) Page {
	v.mu.RLock()
	records, loading := v.records, v.loading
	v.mu.RUnlock()

	if s.Rarity == "" {
		s.Rarity = AllRarities
	}
	return BuildPage(records, loading, s)
}

// BuildPage is Render without a View.
func BuildPage(records []model.PriceRecord, loading bool, s State) Page {
	return Page{
		Loading:       loading,
		State:         s,
		Summary:       Summarize(records),
		RarityOptions: RarityOptions(records),
		Rows:          Rows(Filter(records, s.Search, s.Rarity)),
	}
}
