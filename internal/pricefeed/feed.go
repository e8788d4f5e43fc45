// Package pricefeed maintains the in-memory price book served by the API
// gateway. A refresh loop fans out to the spot providers, folds in the
// settlement snapshot and swaps the rebuilt book in atomically.
package pricefeed

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"commodity-systemv1/internal/markethours"
	"commodity-systemv1/internal/metrics"
	"commodity-systemv1/internal/model"
	"commodity-systemv1/internal/provider"
	"commodity-systemv1/internal/store/histlog"
	redisstore "commodity-systemv1/internal/store/redis"
)

const (
	defaultRefreshOpen   = 30 * time.Second
	defaultRefreshClosed = 5 * time.Minute
)

// Config controls the refresh cadence and where the settlement snapshot
// is read from.
type Config struct {
	LatestPath    string // settlement snapshot file, re-read every refresh
	SettlementKey string // instrument key in the book, e.g. "mcx_gold"

	RefreshOpen   time.Duration // cadence while the MCX session is open
	RefreshClosed time.Duration // cadence outside the session
}

// Feed owns the current price book. Readers get an immutable value through
// Current; the refresh loop replaces it wholesale.
type Feed struct {
	cfg       Config
	providers []provider.Provider
	metrics   *metrics.Metrics
	health    *metrics.HealthStatus
	redis     *redisstore.Writer

	onRefresh func(model.PriceBook)

	mu   sync.RWMutex
	book model.PriceBook
}

// New builds a feed. metrics, health and rdb may be nil.
func New(cfg Config, providers []provider.Provider, m *metrics.Metrics, health *metrics.HealthStatus, rdb *redisstore.Writer) *Feed {
	if cfg.RefreshOpen <= 0 {
		cfg.RefreshOpen = defaultRefreshOpen
	}
	if cfg.RefreshClosed <= 0 {
		cfg.RefreshClosed = defaultRefreshClosed
	}
	if cfg.SettlementKey == "" {
		cfg.SettlementKey = "mcx_gold"
	}
	return &Feed{
		cfg:       cfg,
		providers: providers,
		metrics:   m,
		health:    health,
		redis:     rdb,
		book: model.PriceBook{
			Updated:     time.Now().UTC(),
			Instruments: map[string]model.InstrumentEntry{},
		},
	}
}

// OnRefresh registers a callback invoked with every freshly built book.
// Must be called before Run.
func (f *Feed) OnRefresh(fn func(model.PriceBook)) {
	f.onRefresh = fn
}

// Current returns the most recently built price book.
func (f *Feed) Current() model.PriceBook {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.book
}

// Refresh rebuilds the book once and swaps it in.
func (f *Feed) Refresh(ctx context.Context) model.PriceBook {
	now := time.Now().UTC()
	open := markethours.IsMarketOpen(now.In(markethours.IST))

	book := model.PriceBook{
		Updated:     now,
		MarketOpen:  open,
		Instruments: make(map[string]model.InstrumentEntry),
	}

	quotes, errs := provider.FetchAll(ctx, f.providers, f.metrics)
	for _, q := range quotes {
		book.Instruments[q.Symbol] = quoteEntry(q)
	}
	for _, err := range errs {
		book.Errors = append(book.Errors, err.Error())
	}

	key, entry := f.settlementEntry()
	book.Instruments[key] = entry
	if entry.Error != "" {
		book.Errors = append(book.Errors, entry.Error)
	}

	f.mu.Lock()
	f.book = book
	f.mu.Unlock()

	if f.metrics != nil {
		f.metrics.RefreshTotal.Inc()
		if open {
			f.metrics.MarketState.Set(1)
		} else {
			f.metrics.MarketState.Set(0)
		}
		if entry.Updated != "" {
			if t, err := time.Parse(time.RFC3339, entry.Updated); err == nil {
				f.metrics.SnapshotAge.Set(now.Sub(t).Seconds())
			}
		}
	}
	if f.health != nil {
		f.health.SetRefresh(now, len(errs) == 0)
	}
	if f.redis != nil {
		if err := f.redis.WritePriceBook(ctx, book); err != nil {
			log.Printf("[pricefeed] WARNING: redis mirror failed: %v", err)
		}
	}
	if f.onRefresh != nil {
		f.onRefresh(book)
	}

	return book
}

// Run refreshes immediately and then on a cadence that slows down outside
// market hours. Returns when ctx is cancelled.
func (f *Feed) Run(ctx context.Context) {
	f.Refresh(ctx)
	for {
		interval := f.cfg.RefreshClosed
		if markethours.IsMarketOpen(time.Now().In(markethours.IST)) {
			interval = f.cfg.RefreshOpen
		}
		select {
		case <-ctx.Done():
			log.Printf("[pricefeed] refresh loop stopped")
			return
		case <-time.After(interval):
			f.Refresh(ctx)
		}
	}
}

func quoteEntry(q model.Quote) model.InstrumentEntry {
	price := q.Price
	return model.InstrumentEntry{
		Price:     &price,
		Currency:  q.Currency,
		Unit:      q.Unit,
		ChangePct: q.ChangePct,
		Updated:   q.Updated.UTC().Format(time.RFC3339),
		Source:    q.Source,
	}
}

// settlementEntry folds the latest settlement snapshot into the book. A
// missing or malformed snapshot degrades to price:null with an error
// string; the refresh itself never fails on it.
func (f *Feed) settlementEntry() (string, model.InstrumentEntry) {
	key := f.cfg.SettlementKey

	snap, err := histlog.ReadLatest(f.cfg.LatestPath)
	if err != nil {
		return key, model.InstrumentEntry{Error: fmt.Sprintf("settlement snapshot unreadable: %v", err)}
	}
	if snap == nil {
		return key, model.InstrumentEntry{Error: "settlement snapshot missing"}
	}
	if f.health != nil {
		f.health.SetSettlementDate(snap.Date)
	}

	settle := snap.OHLC.C
	entry := model.InstrumentEntry{
		Price:      &settle,
		Currency:   "INR",
		Unit:       "10g",
		Score:      &snap.Score,
		Verdict:    snap.Verdict,
		Confidence: &snap.Confidence,
		Updated:    snap.Updated,
		Source:     snap.Source,
	}
	if snap.PrevClose != nil && *snap.PrevClose > 0 {
		pct := (settle - *snap.PrevClose) / *snap.PrevClose * 100
		entry.ChangePct = &pct
	}
	return key, entry
}
