// Package redis mirrors the latest settlement snapshot and the refreshed
// price book into Redis for consumers outside this process (other
// dashboard instances, alerting jobs). The files on disk stay the source
// of truth; every write here is best-effort.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"commodity-systemv1/internal/model"
)

const (
	// Key/channel layout. Mirrored values expire so a dead ingester
	// cannot serve stale settlement data forever.
	latestKey      = "settlement:latest"
	latestChannel  = "pub:settlement:latest"
	priceBookKey   = "prices:book"
	priceBookTTL   = 5 * time.Minute
	latestTTL      = 48 * time.Hour
	connectTimeout = 5 * time.Second
)

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Writer mirrors snapshots to Redis.
type Writer struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Writer{client: client}, nil
}

// WriteLatest mirrors the settlement latest snapshot and publishes it on
// the settlement channel for push consumers.
func (w *Writer) WriteLatest(ctx context.Context, snap model.LatestSnapshot) error {
	data := snap.JSON()
	if err := w.client.Set(ctx, latestKey, data, latestTTL).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", latestKey, err)
	}
	if err := w.client.Publish(ctx, latestChannel, data).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", latestChannel, err)
	}
	return nil
}

// WritePriceBook mirrors the refreshed price book with a short TTL.
func (w *Writer) WritePriceBook(ctx context.Context, book model.PriceBook) error {
	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("redis marshal price book: %w", err)
	}
	if err := w.client.Set(ctx, priceBookKey, data, priceBookTTL).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", priceBookKey, err)
	}
	return nil
}

// Close closes the Redis connection.
func (w *Writer) Close() error {
	return w.client.Close()
}
