package model

// Verdict is the categorical trading stance derived from the composite score.
type Verdict string

const (
	VerdictBuy  Verdict = "BUY"
	VerdictSell Verdict = "SELL"
	VerdictHold Verdict = "HOLD"
)

// SignalBundle is the output of one scoring run over the full bar history.
// All intermediate indicator values are retained for observability; the
// bundle is immutable once produced.
type SignalBundle struct {
	Ret1D         float64 `json:"ret1d"`
	Ret5D         float64 `json:"ret5d"`
	EMA20         float64 `json:"ema20"`
	EMA50         float64 `json:"ema50"`
	EMASpread     float64 `json:"emaSpread"`
	ATR14         float64 `json:"atr14"`
	ATRPct        float64 `json:"atrPct"`
	VolZ60        float64 `json:"volZ60"`
	OIZ60         float64 `json:"oiZ60"`
	Trend         float64 `json:"trend"`
	Momentum      float64 `json:"momentum"`
	Participation float64 `json:"participation"`

	Score      float64 `json:"score"`      // bounded [-1, 1]
	Verdict    Verdict `json:"verdict"`    // BUY / SELL / HOLD
	Confidence int     `json:"confidence"` // integer 0–100

	// Reason is set only for degenerate-but-valid bundles
	// (e.g. insufficient history).
	Reason string `json:"reason,omitempty"`
}
