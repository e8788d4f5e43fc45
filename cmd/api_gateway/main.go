package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"commodity-systemv1/config"
	"commodity-systemv1/internal/gateway"
	"commodity-systemv1/internal/ingest"
	"commodity-systemv1/internal/logger"
	"commodity-systemv1/internal/markethours"
	"commodity-systemv1/internal/metrics"
	"commodity-systemv1/internal/notification"
	"commodity-systemv1/internal/pricefeed"
	"commodity-systemv1/internal/provider"
	redisstore "commodity-systemv1/internal/store/redis"
)

var processStart = time.Now()

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	if err := godotenv.Load(); err == nil {
		log.Println("[api_gateway] loaded .env")
	}
	logger.Init("api_gateway", logger.ParseLevel(os.Getenv("LOG_LEVEL")))
	log.Println("[api_gateway] starting...")

	cfg := config.Load()
	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis mirror is optional: empty REDIS_ADDR runs file-only.
	var rdb *redisstore.Writer
	if cfg.RedisAddr != "" {
		w, err := redisstore.New(redisstore.WriterConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			log.Printf("[api_gateway] WARNING: redis mirror disabled: %v", err)
		} else {
			rdb = w
			defer rdb.Close()
			log.Printf("[api_gateway] redis connected at %s", cfg.RedisAddr)
			go watchRedis(ctx, health, rdb)
		}
	}

	notifiers := buildNotifiers(cfg)

	ingestSvc, err := ingest.New(ingest.Config{
		Exchange:    cfg.Exchange,
		Instrument:  cfg.Instrument,
		Symbol:      cfg.Symbol,
		Source:      "mcx_bhavcopy",
		HistoryPath: cfg.HistoryPath,
		LatestPath:  cfg.LatestPath,
	}, m, rdb, notifiers)
	if err != nil {
		log.Fatalf("[api_gateway] ingest setup failed: %v", err)
	}

	providers := []provider.Provider{provider.NewMetalsProvider(cfg.MetalsBaseURL)}
	if cfg.CrudeAPIKey != "" {
		providers = append(providers, provider.NewCrudeProvider(cfg.CrudeBaseURL, cfg.CrudeAPIKey))
	} else {
		log.Println("[api_gateway] CRUDE_API_KEY not set, crude oil provider disabled")
	}

	feed := pricefeed.New(pricefeed.Config{
		LatestPath:    cfg.LatestPath,
		RefreshOpen:   cfg.RefreshOpen(),
		RefreshClosed: cfg.RefreshClosed(),
	}, providers, m, health, rdb)

	hub := gateway.NewHub(m)
	feed.OnRefresh(hub.BroadcastBook)
	go feed.Run(ctx)

	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	mux := http.NewServeMux()
	gateway.RegisterRoutes(mux, hub, feed, ingestSvc, cfg.LatestPath, cfg.HistoryPath, m, processStart)
	srv := &http.Server{Addr: cfg.GatewayAddr, Handler: mux}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("[api_gateway] serving at http://localhost%s (%s)", cfg.GatewayAddr, markethours.StatusString(time.Now().In(markethours.IST)))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[api_gateway] server error: %v", err)
		}
	}()

	<-sigCh
	log.Println("[api_gateway] shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
}

func buildNotifiers(cfg *config.Config) []notification.Notifier {
	notifiers := []notification.Notifier{notification.NewLogNotifier()}
	if cfg.AlertWebhookURL != "" {
		notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.AlertWebhookURL))
		log.Println("[api_gateway] webhook alerts enabled")
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notifiers = append(notifiers, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
		log.Println("[api_gateway] telegram alerts enabled")
	}
	return notifiers
}

func watchRedis(ctx context.Context, health *metrics.HealthStatus, rdb *redisstore.Writer) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	health.CheckRedis(ctx, rdb.Client())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			health.CheckRedis(ctx, rdb.Client())
		}
	}
}
