package model

import "time"

// Quote is one normalized spot price from an external provider.
type Quote struct {
	Symbol    string    `json:"symbol"` // e.g. "gold", "silver", "crude_oil"
	Name      string    `json:"name"`
	Unit      string    `json:"unit"` // e.g. "oz", "bbl"
	Currency  string    `json:"currency"`
	Price     float64   `json:"price"`
	ChangePct *float64  `json:"change_pct,omitempty"`
	Updated   time.Time `json:"updated"`
	Source    string    `json:"source"`
}

// InstrumentEntry is one instrument in the /prices payload. Price is a
// pointer so a missing/malformed upstream yields `price: null` plus an
// error string, never a crash.
type InstrumentEntry struct {
	Price      *float64 `json:"price"`
	Currency   string   `json:"currency,omitempty"`
	Unit       string   `json:"unit,omitempty"`
	ChangePct  *float64 `json:"change_pct,omitempty"`
	Score      *float64 `json:"score,omitempty"`
	Verdict    Verdict  `json:"verdict,omitempty"`
	Confidence *int     `json:"confidence,omitempty"`
	Updated    string   `json:"updated,omitempty"` // RFC3339
	Source     string   `json:"source,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// PriceBook is the timestamped snapshot served to the polling dashboard.
// It is an immutable value: the pricefeed builds a fresh one per refresh
// and swaps it in whole; request handlers never mutate it.
type PriceBook struct {
	Updated     time.Time                  `json:"updated"`
	MarketOpen  bool                       `json:"market_open"`
	Instruments map[string]InstrumentEntry `json:"instruments"`
	Errors      []string                   `json:"errors,omitempty"`
}
