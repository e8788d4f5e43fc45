package model

import (
	"encoding/json"
	"time"
)

// OHLC groups the four settlement prices for the wire formats.
type OHLC struct {
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
}

// HistoryRecord is one line of the append-only settlement history log.
type HistoryRecord struct {
	Date       string `json:"date"` // "YYYY-MM-DD"
	Exchange   string `json:"exchange"`
	Instrument string `json:"instrument"`
	Expiry     string `json:"expiry,omitempty"`

	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`

	PrevClose    *float64 `json:"prev_close,omitempty"`
	Volume       *float64 `json:"volume,omitempty"`
	Value        *float64 `json:"value,omitempty"`
	OpenInterest *float64 `json:"open_interest,omitempty"`

	Updated string `json:"updated"` // RFC3339
	Source  string `json:"source"`
}

// JSON returns the JSON-encoded record for appending as a single log line.
func (r *HistoryRecord) JSON() []byte {
	out, _ := json.Marshal(r)
	return out
}

// Bar converts a persisted history record back into a canonical Bar.
// Records with an unparseable date are reported via the bool return.
func (r *HistoryRecord) Bar() (Bar, bool) {
	d, err := time.Parse(DateLayout, r.Date)
	if err != nil {
		return Bar{}, false
	}
	return Bar{
		Date:         d,
		Open:         r.O,
		High:         r.H,
		Low:          r.L,
		Close:        r.C,
		PrevClose:    r.PrevClose,
		Volume:       r.Volume,
		Value:        r.Value,
		OpenInterest: r.OpenInterest,
		Expiry:       r.Expiry,
	}, true
}

// NewHistoryRecord builds the history log line for a freshly ingested bar.
func NewHistoryRecord(b Bar, exchange, instrument, source string, updated time.Time) HistoryRecord {
	return HistoryRecord{
		Date:         b.DateKey(),
		Exchange:     exchange,
		Instrument:   instrument,
		Expiry:       b.Expiry,
		O:            b.Open,
		H:            b.High,
		L:            b.Low,
		C:            b.Close,
		PrevClose:    b.PrevClose,
		Volume:       b.Volume,
		Value:        b.Value,
		OpenInterest: b.OpenInterest,
		Updated:      updated.UTC().Format(time.RFC3339),
		Source:       source,
	}
}

// LatestSnapshot is the whole-file JSON summary overwritten after every
// ingestion run and consumed read-only by the serving layer.
type LatestSnapshot struct {
	Date       string `json:"date"`
	Exchange   string `json:"exchange"`
	Instrument string `json:"instrument"`
	Expiry     string `json:"expiry,omitempty"`

	OHLC OHLC `json:"ohlc"`

	PrevClose    *float64 `json:"prev_close,omitempty"`
	Volume       *float64 `json:"volume,omitempty"`
	Value        *float64 `json:"value,omitempty"`
	OpenInterest *float64 `json:"open_interest,omitempty"`

	Signals SignalBundle `json:"signals"`

	Score      float64 `json:"score"`
	Verdict    Verdict `json:"verdict"`
	Confidence int     `json:"confidence"`

	Updated string `json:"updated"` // RFC3339
	Source  string `json:"source"`
}

// JSON returns the JSON-encoded snapshot.
func (s *LatestSnapshot) JSON() []byte {
	out, _ := json.Marshal(s)
	return out
}

// NewLatestSnapshot merges the triggering bar and its signal bundle.
func NewLatestSnapshot(b Bar, sig SignalBundle, exchange, instrument, source string, updated time.Time) LatestSnapshot {
	return LatestSnapshot{
		Date:         b.DateKey(),
		Exchange:     exchange,
		Instrument:   instrument,
		Expiry:       b.Expiry,
		OHLC:         OHLC{O: b.Open, H: b.High, L: b.Low, C: b.Close},
		PrevClose:    b.PrevClose,
		Volume:       b.Volume,
		Value:        b.Value,
		OpenInterest: b.OpenInterest,
		Signals:      sig,
		Score:        sig.Score,
		Verdict:      sig.Verdict,
		Confidence:   sig.Confidence,
		Updated:      updated.UTC().Format(time.RFC3339),
		Source:       source,
	}
}
