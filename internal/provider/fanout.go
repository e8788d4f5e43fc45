package provider

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"commodity-systemv1/internal/metrics"
	"commodity-systemv1/internal/model"
)

// FetchAll queries every provider concurrently and collects whatever
// arrived. A failing provider contributes an error but never blocks the
// quotes from the others. m may be nil.
func FetchAll(ctx context.Context, providers []Provider, m *metrics.Metrics) ([]model.Quote, []error) {
	var (
		mu     sync.Mutex
		quotes []model.Quote
		errs   []error
		wg     sync.WaitGroup
	)

	for _, p := range providers {
		wg.Add(1)
		go func(p Provider) {
			defer wg.Done()

			start := time.Now()
			batch, err := p.Fetch(ctx)
			if m != nil {
				m.FetchDur.Observe(time.Since(start).Seconds())
			}

			mu.Lock()
			defer mu.Unlock()
			if len(batch) > 0 {
				quotes = append(quotes, batch...)
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
				log.Printf("[provider] WARNING: %s fetch failed: %v", p.Name(), err)
				if m != nil {
					m.FetchesTotal.WithLabelValues(p.Name(), "error").Inc()
				}
				return
			}
			if m != nil {
				m.FetchesTotal.WithLabelValues(p.Name(), "ok").Inc()
			}
		}(p)
	}
	wg.Wait()

	return quotes, errs
}
