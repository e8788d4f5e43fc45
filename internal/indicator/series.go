// Package indicator provides pure, stateless technical indicators over
// ordered numeric sequences. Every function is deterministic for a given
// input and degrades to an "unavailable" (ok=false) result instead of
// returning an error, NaN, or Inf when the sequence is too short.
package indicator

// SMA returns the simple moving average of the last period values.
// ok is false when fewer than period values exist.
func SMA(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), true
}

// EMA returns the exponential moving average with smoothing k = 2/(period+1).
//
// The EMA is seeded with the SMA of the *earliest* period values (not the
// latest) and then blended forward through the remainder of the sequence:
//
//	e_i = v_i*k + e_{i-1}*(1-k)
//
// The seed choice means the result depends on the full history length, not
// just the trailing window. This matches the settlement tool's reference
// output and must not be changed.
func EMA(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}

	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	ema := seed / float64(period)

	k := 2.0 / float64(period+1)
	for _, v := range values[period:] {
		ema = v*k + ema*(1-k)
	}
	return ema, true
}
