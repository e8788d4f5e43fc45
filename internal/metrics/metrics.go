// Package metrics exposes Prometheus instrumentation and the /metrics +
// /healthz endpoint for both services (gateway and settlement engine).
package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the commodity price system.
type Metrics struct {
	// Provider fetch loop
	FetchesTotal *prometheus.CounterVec // labels: provider, status
	FetchDur     prometheus.Histogram
	RefreshTotal prometheus.Counter
	SnapshotAge  prometheus.Gauge

	// Settlement ingestion
	IngestRuns    *prometheus.CounterVec // labels: status
	DuplicateBars prometheus.Counter
	HistoryBars   prometheus.Gauge
	ScoreDur      prometheus.Histogram
	LatestScore   prometheus.Gauge
	Confidence    prometheus.Gauge

	// Serving
	WSClients    prometheus.Gauge
	HTTPRequests *prometheus.CounterVec // labels: path

	// Market session state
	MarketState prometheus.Gauge // 0=closed, 1=open
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prices_fetches_total",
			Help: "Provider fetch attempts by provider and status",
		}, []string{"provider", "status"}),
		FetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "prices_fetch_duration_seconds",
			Help:    "Provider fetch latency",
			Buckets: prometheus.DefBuckets,
		}),
		RefreshTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prices_refresh_total",
			Help: "Completed price book refresh cycles",
		}),
		SnapshotAge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prices_snapshot_age_seconds",
			Help: "Age of the served price book",
		}),
		IngestRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_ingest_runs_total",
			Help: "Settlement ingestion runs by status (ok, duplicate, error)",
		}, []string{"status"}),
		DuplicateBars: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_duplicate_bars_total",
			Help: "Ingested bars skipped because the date was already stored",
		}),
		HistoryBars: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "settlement_history_bars",
			Help: "Daily bars in the history store after the last run",
		}),
		ScoreDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "settlement_score_duration_seconds",
			Help:    "Scoring engine evaluation latency",
			Buckets: prometheus.DefBuckets,
		}),
		LatestScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "settlement_latest_score",
			Help: "Composite score of the latest snapshot",
		}),
		Confidence: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "settlement_latest_confidence",
			Help: "Confidence of the latest snapshot (0-100)",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_ws_clients",
			Help: "Connected WebSocket dashboard clients",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "HTTP requests by path",
		}, []string{"path"}),
		MarketState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "market_open",
			Help: "Exchange session state (0=closed, 1=open)",
		}),
	}

	prometheus.MustRegister(
		m.FetchesTotal, m.FetchDur, m.RefreshTotal, m.SnapshotAge,
		m.IngestRuns, m.DuplicateBars, m.HistoryBars, m.ScoreDur,
		m.LatestScore, m.Confidence,
		m.WSClients, m.HTTPRequests, m.MarketState,
	)
	return m
}

// HealthStatus tracks dependency health for the /healthz endpoint.
type HealthStatus struct {
	mu sync.RWMutex

	StartedAt      time.Time
	LastRefreshAt  time.Time
	ProvidersOK    bool
	RedisConnected bool
	RedisLatencyMs float64
	SettlementDate string
	LastCheckAt    time.Time
}

// NewHealthStatus creates a health tracker.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now(), ProvidersOK: true}
}

func (h *HealthStatus) SetRefresh(t time.Time, providersOK bool) {
	h.mu.Lock()
	h.LastRefreshAt = t
	h.ProvidersOK = providersOK
	h.mu.Unlock()
}

func (h *HealthStatus) SetSettlementDate(date string) {
	h.mu.Lock()
	h.SettlementDate = date
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.ProvidersOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	refreshAge := ""
	if !h.LastRefreshAt.IsZero() {
		refreshAge = time.Since(h.LastRefreshAt).Round(time.Millisecond).String()
	}

	status := struct {
		Status         string  `json:"status"`
		Uptime         string  `json:"uptime"`
		LastRefreshAt  string  `json:"last_refresh_at"`
		RefreshAge     string  `json:"refresh_age"`
		ProvidersOK    bool    `json:"providers_ok"`
		RedisConnected bool    `json:"redis_connected"`
		RedisLatencyMs float64 `json:"redis_latency_ms"`
		SettlementDate string  `json:"settlement_date"`
	}{
		Status:         overallStatus,
		Uptime:         time.Since(h.StartedAt).Round(time.Second).String(),
		LastRefreshAt:  h.LastRefreshAt.Format(time.RFC3339),
		RefreshAge:     refreshAge,
		ProvidersOK:    h.ProvidersOK,
		RedisConnected: h.RedisConnected,
		RedisLatencyMs: h.RedisLatencyMs,
		SettlementDate: h.SettlementDate,
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
