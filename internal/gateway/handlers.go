package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"commodity-systemv1/internal/ingest"
	"commodity-systemv1/internal/markethours"
	"commodity-systemv1/internal/metrics"
	"commodity-systemv1/internal/model"
	"commodity-systemv1/internal/store/histlog"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// PriceSource provides the current price book and an on-demand rebuild.
type PriceSource interface {
	Current() model.PriceBook
	Refresh(ctx context.Context) model.PriceBook
}

// Ingester runs one settlement ingestion from a bhavcopy stream.
type Ingester interface {
	RunCSV(ctx context.Context, r io.Reader) (*ingest.Result, error)
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// RegisterRoutes registers all HTTP routes on the provided mux.
func RegisterRoutes(mux *http.ServeMux, hub *Hub, feed PriceSource, ing Ingester, latestPath, historyPath string, m *metrics.Metrics, processStart time.Time) {
	count := func(path string) {
		if m != nil {
			m.HTTPRequests.WithLabelValues(path).Inc()
		}
	}

	// WebSocket endpoint: pushes every refreshed price book.
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		count("/ws")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[api_gateway] ws upgrade error: %v", err)
			return
		}
		hub.HandleWSRequest(conn)
	})

	// REST: the poll endpoint the dashboard hits.
	mux.HandleFunc("/prices", func(w http.ResponseWriter, r *http.Request) {
		count("/prices")
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(feed.Current())
	})

	// REST: instrument keys with display metadata.
	mux.HandleFunc("/api/instruments", func(w http.ResponseWriter, r *http.Request) {
		count("/api/instruments")
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		book := feed.Current()
		type instrumentInfo struct {
			Key      string `json:"key"`
			Currency string `json:"currency,omitempty"`
			Unit     string `json:"unit,omitempty"`
			Source   string `json:"source,omitempty"`
		}
		list := make([]instrumentInfo, 0, len(book.Instruments))
		for key, entry := range book.Instruments {
			list = append(list, instrumentInfo{Key: key, Currency: entry.Currency, Unit: entry.Unit, Source: entry.Source})
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
		json.NewEncoder(w).Encode(list)
	})

	// REST: the raw latest settlement snapshot.
	mux.HandleFunc("/api/settlement/latest", func(w http.ResponseWriter, r *http.Request) {
		count("/api/settlement/latest")
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		snap, err := histlog.ReadLatest(latestPath)
		if err != nil {
			http.Error(w, `{"error":"settlement snapshot unreadable"}`, http.StatusInternalServerError)
			return
		}
		if snap == nil {
			http.Error(w, `{"error":"no settlement snapshot yet"}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(snap)
	})

	// REST: trailing settlement history, newest last.
	mux.HandleFunc("/api/settlement/history", func(w http.ResponseWriter, r *http.Request) {
		count("/api/settlement/history")
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		limit := 90
		if s := r.URL.Query().Get("limit"); s != "" {
			if l, err := strconv.Atoi(s); err == nil && l > 0 && l <= 1000 {
				limit = l
			}
		}

		hist, err := histlog.Open(historyPath)
		if err != nil {
			http.Error(w, `{"error":"history unavailable"}`, http.StatusInternalServerError)
			return
		}
		records, err := hist.Load()
		if err != nil {
			http.Error(w, `{"error":"history unreadable"}`, http.StatusInternalServerError)
			return
		}
		if len(records) > limit {
			records = records[len(records)-limit:]
		}
		json.NewEncoder(w).Encode(records)
	})

	// REST: multipart bhavcopy upload triggering an inline ingestion run.
	mux.HandleFunc("/api/bhavcopy", func(w http.ResponseWriter, r *http.Request) {
		count("/api/bhavcopy")
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, `{"error":"POST only"}`, http.StatusMethodNotAllowed)
			return
		}
		if ing == nil {
			http.Error(w, `{"error":"ingestion disabled"}`, http.StatusServiceUnavailable)
			return
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, `{"error":"multipart field 'file' required"}`, http.StatusBadRequest)
			return
		}
		defer file.Close()

		res, err := ing.RunCSV(r.Context(), file)
		if err != nil {
			log.Printf("[api_gateway] WARNING: bhavcopy upload rejected: %v", err)
			json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		// Fold the new settlement into /prices right away.
		feed.Refresh(r.Context())

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "ok",
			"run_id":    res.RunID,
			"date":      res.Date,
			"duplicate": res.Duplicate,
			"bars":      res.BarCount,
			"verdict":   res.Snapshot.Verdict,
		})
	})

	// Health endpoint.
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		count("/healthz")
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		now := time.Now()
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":        "ok",
			"market_open":   markethours.IsMarketOpen(now.In(markethours.IST)),
			"market_status": markethours.StatusString(now.In(markethours.IST)),
			"ws_clients":    hub.ClientCount(),
			"uptime_sec":    int64(time.Since(processStart).Seconds()),
			"ts":            now.UTC().Format(time.RFC3339Nano),
		})
	})
}
