// Package score combines indicator outputs over the full daily-bar history
// into a bounded composite score, a categorical verdict, and a confidence
// value. Evaluate is a pure function: no state survives between runs.
package score

import (
	"math"

	"commodity-systemv1/internal/indicator"
	"commodity-systemv1/internal/model"
)

const (
	// MinHistoryBars is the guard threshold below which scoring degrades
	// to a neutral HOLD bundle instead of computing indicators.
	MinHistoryBars = 60

	emaFastPeriod = 20
	emaSlowPeriod = 50
	atrPeriod     = 14
	zLookback     = 60

	// Composite weighting: trend dominates, momentum is secondary,
	// participation confirms.
	trendWeight         = 0.5
	momentumWeight      = 0.3
	participationWeight = 0.2

	// Verdict threshold (strict inequality: exactly ±0.25 stays HOLD).
	verdictThreshold = 0.25

	// dataQuality is a placeholder for future completeness checks.
	dataQuality = 1.0
)

// InsufficientHistoryReason is the diagnostic set on degenerate bundles.
const InsufficientHistoryReason = "insufficient history: need 60 daily bars"

// Evaluate scores the ascending bar sequence and returns the signal bundle.
// The risk penalty suppresses confidence in high-volatility regimes but
// never alters the directional score itself.
func Evaluate(bars []model.Bar) model.SignalBundle {
	if len(bars) < MinHistoryBars {
		return model.SignalBundle{
			Verdict: model.VerdictHold,
			Reason:  InsufficientHistoryReason,
		}
	}

	closes := make([]float64, 0, len(bars))
	volumes := make([]float64, 0, len(bars))
	ois := make([]float64, 0, len(bars))
	for _, b := range bars {
		closes = append(closes, b.Close)
		if b.Volume != nil && !math.IsNaN(*b.Volume) {
			volumes = append(volumes, *b.Volume)
		}
		if b.OpenInterest != nil && !math.IsNaN(*b.OpenInterest) {
			ois = append(ois, *b.OpenInterest)
		}
	}

	sig := model.SignalBundle{}
	last := closes[len(closes)-1]

	if len(closes) >= 2 {
		sig.Ret1D = ratio(last, closes[len(closes)-2])
	}
	// "5-day" return compares against the close 5 trading days prior,
	// i.e. index len-6, not len-5.
	if len(closes) >= 6 {
		sig.Ret5D = ratio(last, closes[len(closes)-6])
	}

	ema20, ok20 := indicator.EMA(closes, emaFastPeriod)
	ema50, ok50 := indicator.EMA(closes, emaSlowPeriod)
	if ok20 {
		sig.EMA20 = ema20
	}
	if ok50 {
		sig.EMA50 = ema50
	}
	if ok20 && ok50 && ema50 != 0 {
		sig.EMASpread = ema20/ema50 - 1
	}

	if atr, ok := indicator.ATR(bars, atrPeriod); ok {
		sig.ATR14 = atr
		if last != 0 {
			sig.ATRPct = atr / last
		}
	}

	if z, ok := indicator.ZScore(volumes, zLookback); ok {
		sig.VolZ60 = z
	}
	if z, ok := indicator.ZScore(ois, zLookback); ok {
		sig.OIZ60 = z
	}

	sig.Trend = clamp(sig.EMASpread*10, -1, 1)
	sig.Momentum = clamp(sig.Ret5D*8+sig.Ret1D*3, -1, 1)
	sig.Participation = clamp(sig.OIZ60/3+sig.VolZ60/3, -1, 1)

	riskPenalty := clamp((sig.ATRPct-0.01)*20, 0, 0.6)

	sig.Score = clamp(
		trendWeight*sig.Trend+momentumWeight*sig.Momentum+participationWeight*sig.Participation,
		-1, 1)

	sig.Verdict = VerdictFor(sig.Score)

	agreement := agreementFraction(sig.Score, sig.Trend, sig.Momentum, sig.Participation)

	raw := 0.55*math.Abs(sig.Score) + 0.25*agreement + 0.20*dataQuality
	sig.Confidence = int(math.Round(100 * clamp(raw*(1-riskPenalty), 0, 1)))

	return sig
}

// VerdictFor maps a composite score to its categorical verdict. The
// threshold is a strict inequality: a score of exactly ±0.25 stays HOLD.
func VerdictFor(score float64) model.Verdict {
	switch {
	case score > verdictThreshold:
		return model.VerdictBuy
	case score < -verdictThreshold:
		return model.VerdictSell
	default:
		return model.VerdictHold
	}
}

// ratio returns cur/prev - 1, degrading to 0 on a zero denominator.
func ratio(cur, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	return cur/prev - 1
}

// agreementFraction returns the fraction of sub-signals whose sign matches
// the sign of the composite score (0, 1/3, 2/3, or 1).
func agreementFraction(score float64, subs ...float64) float64 {
	matches := 0
	for _, s := range subs {
		if sign(s) == sign(score) {
			matches++
		}
	}
	return float64(matches) / float64(len(subs))
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
