// Package provider fetches spot commodity prices from external HTTP APIs
// and normalizes them into uniform Quote records. Providers are plain
// fetchers: retry/backoff policy belongs to the refresh loop's cadence,
// not here.
package provider

import (
	"context"
	"net/http"
	"time"

	"commodity-systemv1/internal/model"
)

// Provider fetches a batch of normalized quotes from one upstream source.
type Provider interface {
	// Name returns a stable identifier ("goldapi", "oilprice") used in
	// logs and metrics labels.
	Name() string

	// Fetch retrieves the provider's quotes. A partial batch with an
	// error is allowed: callers keep what arrived.
	Fetch(ctx context.Context) ([]model.Quote, error)
}

// newHTTPClient creates the HTTP client shared by provider implementations.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 15 * time.Second,
		Transport: &http.Transport{
			TLSHandshakeTimeout: 10 * time.Second,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 4,
		},
	}
}

// ctxErr reports whether err is just the context being done.
func ctxErr(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
