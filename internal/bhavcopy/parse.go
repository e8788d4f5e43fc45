// Package bhavcopy parses daily exchange settlement files (bhavcopy CSVs)
// into canonical settlement rows. Exchanges have shipped several header
// generations for the same columns, so each logical field resolves through
// a prioritized alias list against the actual header once, at parse time.
// A required field with no matching alias is a hard error; the downstream
// scoring contract stays strict even though header matching is tolerant.
package bhavcopy

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"commodity-systemv1/internal/model"
)

// Row is one settlement line with numerics parsed. OHLC parse failures are
// recorded as 0 here and rejected later by bar validation; parsing never
// silently invents a price.
type Row struct {
	Date   time.Time
	Symbol string
	Expiry string

	Open  float64
	High  float64
	Low   float64
	Close float64

	PrevClose    *float64
	Volume       *float64
	Value        *float64
	OpenInterest *float64
}

// Bar converts the row into a canonical bar for the store.
func (r Row) Bar() model.Bar {
	return model.Bar{
		Date:         r.Date,
		Open:         r.Open,
		High:         r.High,
		Low:          r.Low,
		Close:        r.Close,
		PrevClose:    r.PrevClose,
		Volume:       r.Volume,
		Value:        r.Value,
		OpenInterest: r.OpenInterest,
		Expiry:       r.Expiry,
	}
}

// field aliases, highest priority first. Covers the legacy MCX header, the
// all-caps FO variant, and the UDiFF short names.
var (
	dateAliases   = []string{"Date", "TradDt", "TRADE_DATE", "BizDt"}
	symbolAliases = []string{"Symbol", "TckrSymb", "SYMBOL"}
	expiryAliases = []string{"Expiry Date", "Expiry", "XpryDt", "EXPIRY_DT"}
	openAliases   = []string{"Open", "OpnPric", "OPEN"}
	highAliases   = []string{"High", "HghPric", "HIGH"}
	lowAliases    = []string{"Low", "LwPric", "LOW"}
	closeAliases  = []string{"Close", "ClsPric", "CLOSE", "Settle Price", "SttlmPric"}
	prevAliases   = []string{"Previous Close", "PrvsClsgPric", "PREV_CLOSE"}
	volumeAliases = []string{"Volume", "Volume(Lots)", "TtlTradgVol", "VOLUME"}
	valueAliases  = []string{"Value", "Value (Lacs)", "TtlTrfVal", "VALUE"}
	oiAliases     = []string{"Open Interest", "OpnIntrst", "OPEN_INTEREST", "OI"}
)

var dateLayouts = []string{"2006-01-02", "02-Jan-2006", "02-01-2006", "02/01/2006", "20060102"}

// schema maps each logical field to its resolved column index.
type schema struct {
	date, symbol, expiry    int
	open, high, low, close  int
	prev, volume, value, oi int
}

// resolve matches alias lists against the header. Required fields with no
// match fail hard; optional fields resolve to -1.
func resolve(header []string) (schema, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[normalize(h)] = i
	}

	find := func(aliases []string) int {
		for _, a := range aliases {
			if i, ok := index[normalize(a)]; ok {
				return i
			}
		}
		return -1
	}

	s := schema{
		date:   find(dateAliases),
		symbol: find(symbolAliases),
		expiry: find(expiryAliases),
		open:   find(openAliases),
		high:   find(highAliases),
		low:    find(lowAliases),
		close:  find(closeAliases),
		prev:   find(prevAliases),
		volume: find(volumeAliases),
		value:  find(valueAliases),
		oi:     find(oiAliases),
	}

	required := map[string]int{
		"date": s.date, "symbol": s.symbol,
		"open": s.open, "high": s.high, "low": s.low, "close": s.close,
	}
	for name, idx := range required {
		if idx < 0 {
			return schema{}, fmt.Errorf("bhavcopy: no header alias matched required field %q", name)
		}
	}
	return s, nil
}

// normalize lowercases and strips everything but letters and digits, so
// "Open Interest", "OPEN_INTEREST" and "OpenInterest" all collide.
func normalize(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(h)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Parse reads the full CSV and returns one Row per data line. Lines whose
// date cannot be parsed are dropped; numeric optionals that are empty or
// non-numeric stay nil.
func Parse(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // exchanges pad trailing columns inconsistently
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("bhavcopy: read header: %w", err)
	}
	sch, err := resolve(header)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bhavcopy: read row: %w", err)
		}

		date, ok := parseDate(cell(fields, sch.date))
		if !ok {
			continue
		}
		rows = append(rows, Row{
			Date:         date,
			Symbol:       strings.TrimSpace(cell(fields, sch.symbol)),
			Expiry:       strings.TrimSpace(cell(fields, sch.expiry)),
			Open:         parsePrice(cell(fields, sch.open)),
			High:         parsePrice(cell(fields, sch.high)),
			Low:          parsePrice(cell(fields, sch.low)),
			Close:        parsePrice(cell(fields, sch.close)),
			PrevClose:    parseOptional(cell(fields, sch.prev)),
			Volume:       parseOptional(cell(fields, sch.volume)),
			Value:        parseOptional(cell(fields, sch.value)),
			OpenInterest: parseOptional(cell(fields, sch.oi)),
		})
	}
	return rows, nil
}

// SelectNearMonth returns the row for the given symbol with the earliest
// parseable expiry (the near-month contract). When no expiry parses, the
// first matching row wins. ok is false when the symbol is absent.
func SelectNearMonth(rows []Row, symbol string) (Row, bool) {
	var best Row
	var bestExpiry time.Time
	found := false
	for _, row := range rows {
		if !strings.EqualFold(row.Symbol, symbol) {
			continue
		}
		exp, expOK := parseDate(row.Expiry)
		if !found {
			best, bestExpiry, found = row, exp, true
			if !expOK {
				bestExpiry = time.Time{}
			}
			continue
		}
		if expOK && (bestExpiry.IsZero() || exp.Before(bestExpiry)) {
			best, bestExpiry = row, exp
		}
	}
	return best, found
}

func cell(fields []string, idx int) string {
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return fields[idx]
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parsePrice returns 0 for anything non-numeric; bar validation treats a
// non-positive price as fatal, so garbage never reaches the store.
func parsePrice(s string) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseOptional(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || s == "-" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
