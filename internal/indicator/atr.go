package indicator

import (
	"math"

	"commodity-systemv1/internal/model"
)

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|).
// When prevClose is nil (first bar of a series) it collapses to high-low.
func TrueRange(high, low float64, prevClose *float64) float64 {
	tr := high - low
	if prevClose == nil {
		return tr
	}
	if d := math.Abs(high - *prevClose); d > tr {
		tr = d
	}
	if d := math.Abs(low - *prevClose); d > tr {
		tr = d
	}
	return tr
}

// ATR returns the Wilder-smoothed average true range over the bar sequence.
//
// True range for bar i references the close of the prior bar in the
// sequence (never the bar's own recorded prev_close). The ATR is seeded
// with the simple mean of the first period true ranges, then smoothed:
//
//	atr = (atr*(period-1) + tr) / period
//
// ok is false when fewer than period+1 bars exist.
func ATR(bars []model.Bar, period int) (float64, bool) {
	if period <= 0 || len(bars) < period+1 {
		return 0, false
	}

	trs := make([]float64, len(bars))
	for i, b := range bars {
		var prev *float64
		if i > 0 {
			prev = &bars[i-1].Close
		}
		trs[i] = TrueRange(b.High, b.Low, prev)
	}

	seed := 0.0
	for _, tr := range trs[:period] {
		seed += tr
	}
	atr := seed / float64(period)

	p := float64(period)
	for _, tr := range trs[period:] {
		atr = (atr*(p-1) + tr) / p
	}
	return atr, true
}
