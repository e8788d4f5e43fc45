package model

import (
	"encoding/json"
	"time"
)

// DateLayout is the calendar-date format used for bar keys and wire records.
const DateLayout = "2006-01-02"

// Bar represents one trading day's settlement data for a single instrument.
// Close is the canonical price used by all indicators. PrevClose comes from
// the source file and is kept for audit only; true-range always references
// the prior *stored* bar's close.
type Bar struct {
	Date  time.Time `json:"date" validate:"required"`
	Open  float64   `json:"open" validate:"required,gt=0"`
	High  float64   `json:"high" validate:"required,gt=0"`
	Low   float64   `json:"low" validate:"required,gt=0"`
	Close float64   `json:"close" validate:"required,gt=0"`

	PrevClose    *float64 `json:"prev_close,omitempty"`
	Volume       *float64 `json:"volume,omitempty" validate:"omitempty,gte=0"`
	Value        *float64 `json:"value,omitempty" validate:"omitempty,gte=0"`
	OpenInterest *float64 `json:"open_interest,omitempty" validate:"omitempty,gte=0"`
	Expiry       string   `json:"expiry,omitempty"`
}

// DateKey returns the bar's calendar date as "YYYY-MM-DD".
// At most one bar per DateKey exists in a store.
func (b *Bar) DateKey() string {
	return b.Date.Format(DateLayout)
}

// JSON returns the JSON-encoded bar (ignoring errors for log-line usage).
func (b *Bar) JSON() []byte {
	out, _ := json.Marshal(b)
	return out
}

// Float returns a pointer to v. Convenience for the optional bar fields.
func Float(v float64) *float64 { return &v }
