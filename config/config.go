package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Contract identity
	Exchange   string
	Instrument string
	Symbol     string

	// Spot price providers
	MetalsBaseURL    string
	CrudeBaseURL     string
	CrudeAPIKey      string
	RefreshOpenSec   int
	RefreshClosedSec int

	// Settlement state files
	HistoryPath string
	LatestPath  string

	// Bhavcopy source for scheduled ingestion
	BhavcopyURL string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	GatewayAddr   string
	MetricsAddr   string

	// Alerting (empty disables the backend)
	AlertWebhookURL  string
	TelegramBotToken string
	TelegramChatID   string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Exchange:   getEnv("EXCHANGE", "MCX"),
		Instrument: getEnv("INSTRUMENT", "GOLD"),
		Symbol:     getEnv("CONTRACT_SYMBOL", "GOLD"),

		MetalsBaseURL:    getEnv("METALS_BASE_URL", "https://api.gold-api.com"),
		CrudeBaseURL:     getEnv("CRUDE_BASE_URL", "https://api.oilpriceapi.com"),
		CrudeAPIKey:      getEnv("CRUDE_API_KEY", ""),
		RefreshOpenSec:   getEnvInt("REFRESH_OPEN_SEC", 30),
		RefreshClosedSec: getEnvInt("REFRESH_CLOSED_SEC", 300),

		HistoryPath: getEnv("HISTORY_PATH", "data/gold_history.jsonl"),
		LatestPath:  getEnv("LATEST_PATH", "data/gold_latest.json"),

		BhavcopyURL: getEnv("BHAVCOPY_URL", ""),

		// Empty REDIS_ADDR disables the Redis mirror entirely.
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		GatewayAddr:   getEnv("GATEWAY_ADDR", ":8080"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),

		AlertWebhookURL:  getEnv("ALERT_WEBHOOK_URL", ""),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
	}
}

// RefreshOpen returns the refresh cadence while the MCX session is open.
func (c *Config) RefreshOpen() time.Duration {
	return time.Duration(c.RefreshOpenSec) * time.Second
}

// RefreshClosed returns the refresh cadence outside the session.
func (c *Config) RefreshClosed() time.Duration {
	return time.Duration(c.RefreshClosedSec) * time.Second
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[config] ignoring invalid %s=%q", key, v)
		return fallback
	}
	return n
}
