package score

import (
	"math"
	"testing"
	"time"

	"commodity-systemv1/internal/model"
)

func barAt(day int, close float64, vol, oi *float64) model.Bar {
	return model.Bar{
		Date:         time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day),
		Open:         close,
		High:         close + 1,
		Low:          close - 1,
		Close:        close,
		Volume:       vol,
		OpenInterest: oi,
	}
}

// linearBars builds n ascending daily bars with closes rising linearly from
// start to end, flat volume and open interest.
func linearBars(n int, start, end float64) []model.Bar {
	bars := make([]model.Bar, n)
	step := (end - start) / float64(n-1)
	for i := range bars {
		bars[i] = barAt(i, start+float64(i)*step, model.Float(1000), model.Float(5000))
	}
	return bars
}

func TestEvaluate_InsufficientHistoryGuard(t *testing.T) {
	// 59 bars → degenerate bundle regardless of contents.
	bars := linearBars(59, 2000, 9000)
	sig := Evaluate(bars)

	if sig.Score != 0 {
		t.Errorf("score: got %v, want 0", sig.Score)
	}
	if sig.Verdict != model.VerdictHold {
		t.Errorf("verdict: got %v, want HOLD", sig.Verdict)
	}
	if sig.Confidence != 0 {
		t.Errorf("confidence: got %v, want 0", sig.Confidence)
	}
	if sig.Reason == "" {
		t.Error("degenerate bundle should carry a diagnostic reason")
	}
}

func TestEvaluate_SteadyRiseIsBuy(t *testing.T) {
	bars := linearBars(60, 2000, 2600)
	sig := Evaluate(bars)

	if sig.Trend <= 0 {
		t.Errorf("trend: got %v, want > 0", sig.Trend)
	}
	if sig.Momentum <= 0 {
		t.Errorf("momentum: got %v, want > 0", sig.Momentum)
	}
	if sig.Verdict != model.VerdictBuy {
		t.Errorf("verdict: got %v (score %v), want BUY", sig.Verdict, sig.Score)
	}
	if sig.Confidence <= 0 {
		t.Errorf("confidence: got %v, want > 0", sig.Confidence)
	}
	if sig.Reason != "" {
		t.Errorf("reason should be empty for a full evaluation, got %q", sig.Reason)
	}
}

func TestEvaluate_SteadyFallIsSell(t *testing.T) {
	bars := linearBars(60, 2600, 2000)
	sig := Evaluate(bars)

	if sig.Trend >= 0 {
		t.Errorf("trend: got %v, want < 0", sig.Trend)
	}
	if sig.Verdict != model.VerdictSell {
		t.Errorf("verdict: got %v (score %v), want SELL", sig.Verdict, sig.Score)
	}
}

func TestEvaluate_FlatZeroRangeSeries(t *testing.T) {
	// high == low == close for every bar → ATR 0, ATR% 0, no directional
	// signal, HOLD.
	bars := make([]model.Bar, 60)
	for i := range bars {
		b := barAt(i, 100, model.Float(1000), model.Float(5000))
		b.High, b.Low = 100, 100
		bars[i] = b
	}
	sig := Evaluate(bars)

	if sig.ATR14 != 0 {
		t.Errorf("atr14: got %v, want 0", sig.ATR14)
	}
	if sig.ATRPct != 0 {
		t.Errorf("atrPct: got %v, want 0", sig.ATRPct)
	}
	if sig.Score != 0 {
		t.Errorf("score: got %v, want 0", sig.Score)
	}
	if sig.Verdict != model.VerdictHold {
		t.Errorf("verdict: got %v, want HOLD", sig.Verdict)
	}
}

func TestEvaluate_Ret5DUsesSixElementOffset(t *testing.T) {
	// closes: 54×100, then 100, 105, 105, 105, 105, 110.
	// The "5-day" return compares against index len-6 (= 100), not len-5
	// (= 105): expected 110/100 - 1 = 0.10.
	closes := make([]float64, 60)
	for i := 0; i < 55; i++ {
		closes[i] = 100
	}
	closes[55], closes[56], closes[57], closes[58], closes[59] = 105, 105, 105, 105, 110

	bars := make([]model.Bar, 60)
	for i, c := range closes {
		bars[i] = barAt(i, c, nil, nil)
	}
	sig := Evaluate(bars)

	if math.Abs(sig.Ret5D-0.10) > 1e-9 {
		t.Errorf("ret5d: got %v, want 0.10 (len-6 offset)", sig.Ret5D)
	}
	want1d := 110.0/105.0 - 1
	if math.Abs(sig.Ret1D-want1d) > 1e-9 {
		t.Errorf("ret1d: got %v, want %v", sig.Ret1D, want1d)
	}
}

func TestEvaluate_MissingVolumeAndOIDegradesToZero(t *testing.T) {
	bars := make([]model.Bar, 60)
	for i := range bars {
		bars[i] = barAt(i, 2000+float64(i), nil, nil)
	}
	sig := Evaluate(bars)

	if sig.VolZ60 != 0 || sig.OIZ60 != 0 {
		t.Errorf("z-scores with no volume/oi: got %v/%v, want 0/0", sig.VolZ60, sig.OIZ60)
	}
	if sig.Participation != 0 {
		t.Errorf("participation: got %v, want 0", sig.Participation)
	}
}

func TestEvaluate_ConfidenceAlwaysIntegerInRange(t *testing.T) {
	cases := [][]model.Bar{
		linearBars(60, 2000, 2600),
		linearBars(60, 2600, 2000),
		linearBars(60, 100, 100.0001),
		linearBars(120, 50, 5000), // extreme rise, extreme ATR
		linearBars(59, 2000, 2100),
	}
	for i, bars := range cases {
		sig := Evaluate(bars)
		if sig.Confidence < 0 || sig.Confidence > 100 {
			t.Errorf("case %d: confidence %d out of [0,100]", i, sig.Confidence)
		}
	}
}

func TestEvaluate_RiskPenaltySuppressesConfidenceNotScore(t *testing.T) {
	calm := linearBars(60, 2000, 2600)
	wild := linearBars(60, 2000, 2600)
	for i := range wild {
		// Same closes, violently wider daily ranges.
		wild[i].High = wild[i].Close + 80
		wild[i].Low = wild[i].Close - 80
	}

	calmSig := Evaluate(calm)
	wildSig := Evaluate(wild)

	if calmSig.Score != wildSig.Score {
		t.Errorf("score must be independent of volatility: %v vs %v", calmSig.Score, wildSig.Score)
	}
	if wildSig.Confidence >= calmSig.Confidence {
		t.Errorf("high-ATR confidence %d should be below calm confidence %d",
			wildSig.Confidence, calmSig.Confidence)
	}
}

func TestVerdictFor_Boundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  model.Verdict
	}{
		{0.25, model.VerdictHold},
		{-0.25, model.VerdictHold},
		{0.2500001, model.VerdictBuy},
		{-0.2500001, model.VerdictSell},
		{0, model.VerdictHold},
		{1, model.VerdictBuy},
		{-1, model.VerdictSell},
	}
	for _, tc := range cases {
		if got := VerdictFor(tc.score); got != tc.want {
			t.Errorf("VerdictFor(%v): got %v, want %v", tc.score, got, tc.want)
		}
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	bars := linearBars(90, 1900, 2400)
	a := Evaluate(bars)
	b := Evaluate(bars)
	if a != b {
		t.Errorf("Evaluate not deterministic:\n%+v\n%+v", a, b)
	}
}
