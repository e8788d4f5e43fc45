package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"commodity-systemv1/internal/model"
)

// metalSpec maps an upstream metal code to the dashboard instrument.
type metalSpec struct {
	code string // upstream symbol, e.g. "XAU"
	key  string // instrument key, e.g. "gold"
	name string
	unit string
}

var defaultMetals = []metalSpec{
	{code: "XAU", key: "gold", name: "Gold", unit: "oz"},
	{code: "XAG", key: "silver", name: "Silver", unit: "oz"},
	{code: "XPT", key: "platinum", name: "Platinum", unit: "oz"},
	{code: "XPD", key: "palladium", name: "Palladium", unit: "oz"},
	{code: "XCU", key: "copper", name: "Copper", unit: "lb"},
}

// MetalsProvider fetches precious/base metal spot prices from a
// gold-api.com style endpoint: GET {base}/price/{CODE} → JSON body.
type MetalsProvider struct {
	baseURL string
	client  *http.Client
	metals  []metalSpec
}

// NewMetalsProvider creates a metals provider against baseURL.
func NewMetalsProvider(baseURL string) *MetalsProvider {
	return &MetalsProvider{
		baseURL: baseURL,
		client:  newHTTPClient(),
		metals:  defaultMetals,
	}
}

func (p *MetalsProvider) Name() string { return "metals" }

// metalResponse is the upstream wire format.
type metalResponse struct {
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Symbol    string  `json:"symbol"`
	UpdatedAt string  `json:"updatedAt"`
}

// Fetch retrieves every configured metal. One failing symbol does not
// abort the rest; the last error is returned alongside the partial batch.
func (p *MetalsProvider) Fetch(ctx context.Context) ([]model.Quote, error) {
	var quotes []model.Quote
	var lastErr error

	for _, m := range p.metals {
		q, err := p.fetchOne(ctx, m)
		if err != nil {
			if ctxErr(ctx) {
				return quotes, err
			}
			lastErr = err
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, lastErr
}

func (p *MetalsProvider) fetchOne(ctx context.Context, m metalSpec) (model.Quote, error) {
	url := fmt.Sprintf("%s/price/%s", p.baseURL, m.code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.Quote{}, fmt.Errorf("metals %s: create request: %w", m.code, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return model.Quote{}, fmt.Errorf("metals %s: %w", m.code, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Quote{}, fmt.Errorf("metals %s: unexpected status %d", m.code, resp.StatusCode)
	}

	var body metalResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.Quote{}, fmt.Errorf("metals %s: decode: %w", m.code, err)
	}
	if body.Price <= 0 {
		return model.Quote{}, fmt.Errorf("metals %s: non-positive price %v", m.code, body.Price)
	}

	updated := time.Now().UTC()
	if t, err := time.Parse(time.RFC3339, body.UpdatedAt); err == nil {
		updated = t.UTC()
	}

	return model.Quote{
		Symbol:   m.key,
		Name:     m.name,
		Unit:     m.unit,
		Currency: "USD",
		Price:    body.Price,
		Updated:  updated,
		Source:   p.Name(),
	}, nil
}
