// Package notification delivers ingestion alerts (verdict changes, fetch
// failures) to external channels: log, generic webhook, or Telegram.
package notification

import (
	"context"
	"fmt"
	"log"

	"commodity-systemv1/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level      AlertLevel    `json:"level"`
	Title      string        `json:"title"`
	Message    string        `json:"message"`
	Instrument string        `json:"instrument,omitempty"`
	Verdict    model.Verdict `json:"verdict,omitempty"`
	Score      float64       `json:"score,omitempty"`
}

// VerdictChange builds the alert sent when a scoring run flips the verdict
// recorded in the previous latest snapshot.
func VerdictChange(instrument string, prev, cur model.Verdict, score float64, confidence int) Alert {
	return Alert{
		Level:      AlertInfo,
		Title:      fmt.Sprintf("%s verdict changed: %s -> %s", instrument, prev, cur),
		Message:    fmt.Sprintf("composite score %.3f, confidence %d", score, confidence),
		Instrument: instrument,
		Verdict:    cur,
		Score:      score,
	}
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the process log. Always configured as the
// fallback backend.
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[alert] %s: %s (%s)", alert.Level, alert.Title, alert.Message)
	return nil
}
