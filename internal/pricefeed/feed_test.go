package pricefeed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"commodity-systemv1/internal/model"
	"commodity-systemv1/internal/provider"
	"commodity-systemv1/internal/store/histlog"
)

type stubProvider struct {
	name   string
	quotes []model.Quote
	err    error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Fetch(ctx context.Context) ([]model.Quote, error) {
	return s.quotes, s.err
}

func spotQuote(symbol string, price float64) model.Quote {
	return model.Quote{
		Symbol:   symbol,
		Price:    price,
		Currency: "USD",
		Unit:     "oz",
		Updated:  time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
		Source:   "metals",
	}
}

func seedSnapshot(t *testing.T, path string) model.LatestSnapshot {
	t.Helper()
	bar := model.Bar{
		Date:      time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC),
		Open:      86000,
		High:      86500,
		Low:       85800,
		Close:     86210,
		PrevClose: model.Float(85950),
	}
	sig := model.SignalBundle{Score: 0.31, Verdict: model.VerdictBuy, Confidence: 54}
	snap := model.NewLatestSnapshot(bar, sig, "MCX", "GOLD", "mcx_bhavcopy", time.Date(2026, 2, 9, 18, 0, 0, 0, time.UTC))
	if err := histlog.WriteLatest(path, snap); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
	return snap
}

func TestRefresh_MergesQuotesAndSettlement(t *testing.T) {
	dir := t.TempDir()
	latest := filepath.Join(dir, "latest.json")
	seedSnapshot(t, latest)

	feed := New(Config{LatestPath: latest}, []provider.Provider{
		&stubProvider{name: "metals", quotes: []model.Quote{spotQuote("gold", 2412.5), spotQuote("silver", 28.9)}},
	}, nil, nil, nil)

	book := feed.Refresh(context.Background())
	if len(book.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", book.Errors)
	}

	gold, ok := book.Instruments["gold"]
	if !ok || gold.Price == nil || *gold.Price != 2412.5 {
		t.Errorf("spot gold entry: %+v", gold)
	}

	mcx, ok := book.Instruments["mcx_gold"]
	if !ok {
		t.Fatal("mcx_gold entry missing")
	}
	if mcx.Price == nil || *mcx.Price != 86210 {
		t.Errorf("settlement price: %+v", mcx.Price)
	}
	if mcx.Verdict != model.VerdictBuy || mcx.Score == nil || *mcx.Score != 0.31 {
		t.Errorf("settlement signals not carried: %+v", mcx)
	}
	if mcx.Confidence == nil || *mcx.Confidence != 54 {
		t.Errorf("confidence: %+v", mcx.Confidence)
	}
	if mcx.ChangePct == nil {
		t.Error("change pct not derived from prev close")
	} else if got := *mcx.ChangePct; got < 0.30 || got > 0.31 {
		// (86210-85950)/85950*100 = 0.3025%
		t.Errorf("change pct: got %v", got)
	}
}

func TestRefresh_MissingSnapshotYieldsNullPrice(t *testing.T) {
	dir := t.TempDir()
	feed := New(Config{LatestPath: filepath.Join(dir, "absent.json")}, nil, nil, nil, nil)

	book := feed.Refresh(context.Background())
	mcx, ok := book.Instruments["mcx_gold"]
	if !ok {
		t.Fatal("mcx_gold entry missing")
	}
	if mcx.Price != nil {
		t.Errorf("expected null price, got %v", *mcx.Price)
	}
	if mcx.Error == "" {
		t.Error("expected an error string on the entry")
	}
	if len(book.Errors) == 0 {
		t.Error("book errors should mention the missing snapshot")
	}
}

func TestRefresh_MalformedSnapshotYieldsNullPrice(t *testing.T) {
	dir := t.TempDir()
	latest := filepath.Join(dir, "latest.json")
	if err := os.WriteFile(latest, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	feed := New(Config{LatestPath: latest}, nil, nil, nil, nil)
	book := feed.Refresh(context.Background())

	mcx := book.Instruments["mcx_gold"]
	if mcx.Price != nil || mcx.Error == "" {
		t.Errorf("malformed snapshot should degrade to null+error: %+v", mcx)
	}
}

func TestRefresh_ProviderFailureKeepsOtherQuotes(t *testing.T) {
	dir := t.TempDir()
	latest := filepath.Join(dir, "latest.json")
	seedSnapshot(t, latest)

	feed := New(Config{LatestPath: latest}, []provider.Provider{
		&stubProvider{name: "metals", quotes: []model.Quote{spotQuote("gold", 2412.5)}},
		&stubProvider{name: "oilprice", err: errors.New("upstream 503")},
	}, nil, nil, nil)

	book := feed.Refresh(context.Background())
	if _, ok := book.Instruments["gold"]; !ok {
		t.Error("healthy provider's quote dropped")
	}
	if len(book.Errors) != 1 {
		t.Errorf("errors: %v", book.Errors)
	}
}

func TestCurrent_SwapsWholeBook(t *testing.T) {
	dir := t.TempDir()
	latest := filepath.Join(dir, "latest.json")
	seedSnapshot(t, latest)

	p := &stubProvider{name: "metals", quotes: []model.Quote{spotQuote("gold", 2400)}}
	feed := New(Config{LatestPath: latest}, []provider.Provider{p}, nil, nil, nil)

	feed.Refresh(context.Background())
	first := feed.Current()

	p.quotes = []model.Quote{spotQuote("gold", 2500)}
	feed.Refresh(context.Background())
	second := feed.Current()

	if *first.Instruments["gold"].Price != 2400 {
		t.Errorf("earlier book mutated: %v", *first.Instruments["gold"].Price)
	}
	if *second.Instruments["gold"].Price != 2500 {
		t.Errorf("refresh not visible: %v", *second.Instruments["gold"].Price)
	}
}

func TestOnRefresh_CallbackGetsEveryBook(t *testing.T) {
	dir := t.TempDir()
	latest := filepath.Join(dir, "latest.json")
	seedSnapshot(t, latest)

	feed := New(Config{LatestPath: latest}, nil, nil, nil, nil)
	var got []model.PriceBook
	feed.OnRefresh(func(b model.PriceBook) { got = append(got, b) })

	feed.Refresh(context.Background())
	feed.Refresh(context.Background())
	if len(got) != 2 {
		t.Fatalf("callback invocations: got %d, want 2", len(got))
	}
}
