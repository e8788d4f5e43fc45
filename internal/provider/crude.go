package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"commodity-systemv1/internal/model"
)

// CrudeProvider fetches the latest crude oil price from an
// oilpriceapi.com style endpoint: GET {base}/v1/prices/latest with a
// Token auth header.
type CrudeProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewCrudeProvider creates a crude oil provider. apiKey may be empty,
// in which case no Authorization header is sent.
func NewCrudeProvider(baseURL, apiKey string) *CrudeProvider {
	return &CrudeProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  newHTTPClient(),
	}
}

func (p *CrudeProvider) Name() string { return "oilprice" }

// crudeResponse is the upstream wire format.
type crudeResponse struct {
	Status string `json:"status"`
	Data   struct {
		Price     float64 `json:"price"`
		Currency  string  `json:"currency"`
		Code      string  `json:"code"`
		CreatedAt string  `json:"created_at"`
	} `json:"data"`
}

// Fetch retrieves the latest WTI quote.
func (p *CrudeProvider) Fetch(ctx context.Context) ([]model.Quote, error) {
	url := p.baseURL + "/v1/prices/latest"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("oilprice: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Token "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oilprice: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oilprice: unexpected status %d", resp.StatusCode)
	}

	var body crudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("oilprice: decode: %w", err)
	}
	if body.Data.Price <= 0 {
		return nil, fmt.Errorf("oilprice: non-positive price %v", body.Data.Price)
	}

	currency := body.Data.Currency
	if currency == "" {
		currency = "USD"
	}
	updated := time.Now().UTC()
	if t, err := time.Parse(time.RFC3339, body.Data.CreatedAt); err == nil {
		updated = t.UTC()
	}

	return []model.Quote{{
		Symbol:   "crude_oil",
		Name:     "Crude Oil (WTI)",
		Unit:     "bbl",
		Currency: currency,
		Price:    body.Data.Price,
		Updated:  updated,
		Source:   p.Name(),
	}}, nil
}
