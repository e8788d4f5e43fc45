package bhavcopy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Fetcher downloads bhavcopy files over HTTP.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher with a dedicated HTTP client. Exchange file
// servers are slow around publish time, hence the generous timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				TLSHandshakeTimeout: 10 * time.Second,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

// Fetch downloads the file at url and returns its body.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("bhavcopy: create request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bhavcopy: download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bhavcopy: unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("bhavcopy: read body: %w", err)
	}
	return body, nil
}
