package indicator

import (
	"math"
	"testing"
	"time"

	"commodity-systemv1/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

func assertFinite(t *testing.T, label string, v float64) {
	t.Helper()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		t.Errorf("%s: got non-finite value %v", label, v)
	}
}

func dayBar(day int, high, low, close float64) model.Bar {
	return model.Bar{
		Date:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day),
		Open:  close,
		High:  high,
		Low:   low,
		Close: close,
	}
}

// ────────────────────────────────────────────────────────────
// SMA
// ────────────────────────────────────────────────────────────

func TestSMA_Correctness(t *testing.T) {
	// Hand-calculated SMA(3) over 100, 102, 104, 103, 105:
	// last 3 = 104, 103, 105 → (104+103+105)/3 = 104.0
	values := []float64{100, 102, 104, 103, 105}
	got, ok := SMA(values, 3)
	if !ok {
		t.Fatal("SMA(3) over 5 values should be available")
	}
	assertClose(t, "SMA(3)", got, 104.0, 1e-9)
}

func TestSMA_InsufficientValues(t *testing.T) {
	for _, n := range []int{0, 1, 2} {
		values := make([]float64, n)
		if got, ok := SMA(values, 3); ok {
			t.Errorf("SMA(3) over %d values: got %v, want unavailable", n, got)
		}
	}
}

// ────────────────────────────────────────────────────────────
// EMA
// ────────────────────────────────────────────────────────────

func TestEMA_SeedIsEarliestWindow(t *testing.T) {
	// EMA(3): k = 2/(3+1) = 0.5
	// Seed = SMA of FIRST 3 values: (100+102+104)/3 = 102.0
	// Blend 103: 103*0.5 + 102.0*0.5 = 102.5
	// Blend 105: 105*0.5 + 102.5*0.5 = 103.75
	values := []float64{100, 102, 104, 103, 105}
	got, ok := EMA(values, 3)
	if !ok {
		t.Fatal("EMA(3) over 5 values should be available")
	}
	assertClose(t, "EMA(3)", got, 103.75, 1e-9)
}

func TestEMA_ExactLengthReturnsSeed(t *testing.T) {
	values := []float64{44.0, 44.25, 44.50, 43.75, 44.50}
	got, ok := EMA(values, 5)
	if !ok {
		t.Fatal("EMA(5) over 5 values should be available")
	}
	assertClose(t, "EMA(5) seed", got, 44.20, 1e-9)
}

func TestEMA_DependsOnFullHistory(t *testing.T) {
	// Same trailing 20 values, different prefixes → different EMA.
	// The SMA-of-earliest-window seed makes the EMA history-length
	// dependent; the scoring engine relies on that.
	tail := make([]float64, 20)
	for i := range tail {
		tail[i] = 100 + float64(i)
	}
	short := append([]float64{}, tail...)
	long := append([]float64{500, 500, 500, 500, 500}, tail...)

	a, _ := EMA(short, 5)
	b, _ := EMA(long, 5)
	if math.Abs(a-b) < 1e-9 {
		t.Errorf("EMA ignored the history prefix: short=%v long=%v", a, b)
	}
}

func TestEMA_Deterministic(t *testing.T) {
	values := []float64{2010.5, 2012.25, 2008.0, 2015.75, 2020.0, 2018.5, 2022.0}
	first, ok1 := EMA(values, 3)
	second, ok2 := EMA(values, 3)
	if !ok1 || !ok2 || first != second {
		t.Errorf("EMA not bit-identical across calls: %v vs %v", first, second)
	}
}

func TestEMA_InsufficientValues(t *testing.T) {
	if _, ok := EMA([]float64{1, 2, 3}, 4); ok {
		t.Error("EMA(4) over 3 values should be unavailable")
	}
}

// ────────────────────────────────────────────────────────────
// True range / ATR
// ────────────────────────────────────────────────────────────

func TestTrueRange(t *testing.T) {
	prev := 100.0
	cases := []struct {
		label     string
		high, low float64
		prevClose *float64
		want      float64
	}{
		{"plain range", 105, 98, &prev, 7},
		{"gap up", 112, 108, &prev, 12},
		{"gap down", 95, 90, &prev, 10},
		{"no prev close", 105, 98, nil, 7},
	}
	for _, tc := range cases {
		got := TrueRange(tc.high, tc.low, tc.prevClose)
		assertClose(t, "TrueRange "+tc.label, got, tc.want, 1e-9)
	}
}

func TestATR_SeedAndWilderRecurrence(t *testing.T) {
	// 16 bars, every bar high-low = 2 and close = prior close, so every
	// TR = 2 → seed = 2 and Wilder smoothing keeps ATR at exactly 2.
	bars := make([]model.Bar, 16)
	for i := range bars {
		bars[i] = dayBar(i, 101, 99, 100)
	}
	got, ok := ATR(bars, 14)
	if !ok {
		t.Fatal("ATR(14) over 16 bars should be available")
	}
	assertClose(t, "ATR constant-range", got, 2.0, 1e-9)
}

func TestATR_ZeroRangeSeriesConvergesToZero(t *testing.T) {
	// high == low == close for all bars → every TR is 0 → ATR is 0.
	bars := make([]model.Bar, 20)
	for i := range bars {
		bars[i] = dayBar(i, 100, 100, 100)
	}
	got, ok := ATR(bars, 14)
	if !ok {
		t.Fatal("ATR(14) over 20 bars should be available")
	}
	assertClose(t, "ATR zero-range", got, 0.0, 1e-12)
	assertFinite(t, "ATR zero-range", got)
}

func TestATR_UsesPriorStoredClose(t *testing.T) {
	// Hand-calculated ATR(2) over 3 bars:
	// bar0: H=102 L=98  C=100 → TR = 4 (no prev)
	// bar1: H=99  L=97  C=98  → TR = max(2, |99-100|, |97-100|) = 3
	// bar2: H=104 L=101 C=103 → TR = max(3, |104-98|, |101-98|) = 6
	// seed = (4+3)/2 = 3.5; atr = (3.5*1 + 6)/2 = 4.75
	bars := []model.Bar{
		dayBar(0, 102, 98, 100),
		dayBar(1, 99, 97, 98),
		dayBar(2, 104, 101, 103),
	}
	got, ok := ATR(bars, 2)
	if !ok {
		t.Fatal("ATR(2) over 3 bars should be available")
	}
	assertClose(t, "ATR(2)", got, 4.75, 1e-9)
}

func TestATR_InsufficientBars(t *testing.T) {
	bars := make([]model.Bar, 14)
	for i := range bars {
		bars[i] = dayBar(i, 101, 99, 100)
	}
	// 14 bars < period+1 → unavailable.
	if _, ok := ATR(bars, 14); ok {
		t.Error("ATR(14) over 14 bars should be unavailable")
	}
}

// ────────────────────────────────────────────────────────────
// Rolling z-score
// ────────────────────────────────────────────────────────────

func TestZScore_Correctness(t *testing.T) {
	// Window 2, 4, 4, 4, 5, 5, 7, 9: mean = 5, population stddev = 2.
	// Latest value 9 → z = (9-5)/2 = 2.
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	got, ok := ZScore(values, 8)
	if !ok {
		t.Fatal("ZScore over full window should be available")
	}
	assertClose(t, "ZScore", got, 2.0, 1e-9)
}

func TestZScore_TrailingWindowOnly(t *testing.T) {
	// Leading garbage outside the lookback window must not matter.
	values := []float64{9999, -9999, 2, 4, 4, 4, 5, 5, 7, 9}
	got, ok := ZScore(values, 8)
	if !ok {
		t.Fatal("ZScore should be available")
	}
	assertClose(t, "ZScore trailing", got, 2.0, 1e-9)
}

func TestZScore_ZeroVarianceIsZero(t *testing.T) {
	values := []float64{5, 5, 5, 5, 5}
	got, ok := ZScore(values, 5)
	if !ok {
		t.Fatal("ZScore should be available")
	}
	if got != 0 {
		t.Errorf("zero-variance window: got %v, want exactly 0", got)
	}
	assertFinite(t, "ZScore zero-variance", got)
}

func TestZScore_InsufficientValues(t *testing.T) {
	if _, ok := ZScore([]float64{1, 2, 3}, 4); ok {
		t.Error("ZScore(lookback=4) over 3 values should be unavailable")
	}
}

// ────────────────────────────────────────────────────────────
// No NaN/Inf for any short input
// ────────────────────────────────────────────────────────────

func TestIndicators_NeverNonFiniteWhenUnavailable(t *testing.T) {
	for n := 0; n < 5; n++ {
		values := make([]float64, n)
		bars := make([]model.Bar, n)
		for i := range values {
			values[i] = 100
			bars[i] = dayBar(i, 101, 99, 100)
		}
		v, _ := SMA(values, 10)
		assertFinite(t, "SMA short", v)
		v, _ = EMA(values, 10)
		assertFinite(t, "EMA short", v)
		v, _ = ATR(bars, 14)
		assertFinite(t, "ATR short", v)
		v, _ = ZScore(values, 10)
		assertFinite(t, "ZScore short", v)
	}
}
