package indicator

import "math"

// ZScore returns the z-score of the latest value against the trailing
// lookback window, using the population standard deviation. A zero-variance
// window yields exactly 0 rather than a division-by-zero NaN.
// ok is false when fewer than lookback values exist.
func ZScore(values []float64, lookback int) (float64, bool) {
	if lookback <= 0 || len(values) < lookback {
		return 0, false
	}

	window := values[len(values)-lookback:]
	mean := 0.0
	for _, v := range window {
		mean += v
	}
	mean /= float64(lookback)

	variance := 0.0
	for _, v := range window {
		d := v - mean
		variance += d * d
	}
	variance /= float64(lookback)

	std := math.Sqrt(variance)
	if std == 0 {
		return 0, true
	}
	return (window[len(window)-1] - mean) / std, true
}
