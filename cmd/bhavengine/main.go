package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"commodity-systemv1/config"
	"commodity-systemv1/internal/ingest"
	"commodity-systemv1/internal/logger"
	"commodity-systemv1/internal/notification"
	redisstore "commodity-systemv1/internal/store/redis"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	if err := godotenv.Load(); err == nil {
		log.Println("[bhavengine] loaded .env")
	}
	logger.Init("bhavengine", logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	filePath := flag.String("file", "", "path to a local bhavcopy CSV")
	url := flag.String("url", "", "bhavcopy download URL (overrides BHAVCOPY_URL)")
	flag.Parse()

	cfg := config.Load()
	if *url == "" {
		*url = cfg.BhavcopyURL
	}
	if *filePath == "" && *url == "" {
		log.Fatal("[bhavengine] need -file, -url or BHAVCOPY_URL")
	}

	var rdb *redisstore.Writer
	if cfg.RedisAddr != "" {
		w, err := redisstore.New(redisstore.WriterConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			log.Printf("[bhavengine] WARNING: redis mirror disabled: %v", err)
		} else {
			rdb = w
			defer rdb.Close()
		}
	}

	notifiers := []notification.Notifier{notification.NewLogNotifier()}
	if cfg.AlertWebhookURL != "" {
		notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.AlertWebhookURL))
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notifiers = append(notifiers, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}

	svc, err := ingest.New(ingest.Config{
		Exchange:    cfg.Exchange,
		Instrument:  cfg.Instrument,
		Symbol:      cfg.Symbol,
		Source:      "mcx_bhavcopy",
		HistoryPath: cfg.HistoryPath,
		LatestPath:  cfg.LatestPath,
	}, nil, rdb, notifiers)
	if err != nil {
		log.Fatalf("[bhavengine] setup failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var res *ingest.Result
	if *filePath != "" {
		f, err := os.Open(*filePath)
		if err != nil {
			log.Fatalf("[bhavengine] open %s: %v", *filePath, err)
		}
		defer f.Close()
		res, err = svc.RunCSV(ctx, f)
		if err != nil {
			log.Fatalf("[bhavengine] ingestion failed: %v", err)
		}
	} else {
		res, err = svc.RunURL(ctx, *url)
		if err != nil {
			log.Fatalf("[bhavengine] ingestion failed: %v", err)
		}
	}

	log.Printf("[bhavengine] done: run=%s date=%s bars=%d duplicate=%v verdict=%s confidence=%d",
		res.RunID, res.Date, res.BarCount, res.Duplicate, res.Snapshot.Verdict, res.Snapshot.Confidence)
}
