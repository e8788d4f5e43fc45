// Package ingest runs the daily settlement pipeline: parse a bhavcopy,
// validate the gold near-month bar, append it to the history log, rescore
// the full series and publish the latest snapshot.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"commodity-systemv1/internal/barstore"
	"commodity-systemv1/internal/bhavcopy"
	"commodity-systemv1/internal/metrics"
	"commodity-systemv1/internal/model"
	"commodity-systemv1/internal/notification"
	"commodity-systemv1/internal/score"
	"commodity-systemv1/internal/store/histlog"
	redisstore "commodity-systemv1/internal/store/redis"
)

var validate = validator.New()

// Config identifies the contract being ingested and where its state lives.
type Config struct {
	Exchange   string // e.g. "MCX"
	Instrument string // e.g. "GOLD"
	Symbol     string // contract symbol matched in the bhavcopy, e.g. "GOLD"
	Source     string // provenance tag written into every record

	HistoryPath string // append-only JSONL history log
	LatestPath  string // whole-file latest snapshot
}

// Service executes ingestion runs. Metrics, Redis mirroring and alert
// delivery are optional; a nil dependency disables that side effect.
type Service struct {
	cfg       Config
	hist      *histlog.Log
	metrics   *metrics.Metrics
	redis     *redisstore.Writer
	notifiers []notification.Notifier
}

// New opens the history log and wires the service's dependencies.
func New(cfg Config, m *metrics.Metrics, rdb *redisstore.Writer, notifiers []notification.Notifier) (*Service, error) {
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("ingest: symbol is required")
	}
	hist, err := histlog.Open(cfg.HistoryPath)
	if err != nil {
		return nil, fmt.Errorf("ingest: open history log: %w", err)
	}
	return &Service{
		cfg:       cfg,
		hist:      hist,
		metrics:   m,
		redis:     rdb,
		notifiers: notifiers,
	}, nil
}

// Result summarizes one ingestion run.
type Result struct {
	RunID     string
	Date      string
	Duplicate bool
	BarCount  int
	Snapshot  model.LatestSnapshot
}

// RunCSV parses a bhavcopy stream, selects the near-month contract for the
// configured symbol and ingests its bar.
func (s *Service) RunCSV(ctx context.Context, r io.Reader) (*Result, error) {
	rows, err := bhavcopy.Parse(r)
	if err != nil {
		s.countRun("parse_error")
		return nil, fmt.Errorf("ingest: parse bhavcopy: %w", err)
	}
	row, ok := bhavcopy.SelectNearMonth(rows, s.cfg.Symbol)
	if !ok {
		s.countRun("no_contract")
		return nil, fmt.Errorf("ingest: no %s contract in bhavcopy (%d rows)", s.cfg.Symbol, len(rows))
	}
	return s.RunBar(ctx, row.Bar())
}

// RunURL downloads a bhavcopy and ingests it.
func (s *Service) RunURL(ctx context.Context, url string) (*Result, error) {
	body, err := bhavcopy.NewFetcher().Fetch(ctx, url)
	if err != nil {
		s.countRun("fetch_error")
		return nil, fmt.Errorf("ingest: fetch bhavcopy: %w", err)
	}
	return s.RunCSV(ctx, bytes.NewReader(body))
}

// RunBar ingests one validated settlement bar: appends it to history unless
// the date is already present, rescores the full series and rewrites the
// latest snapshot. A duplicate date is a no-op append; the snapshot is still
// rewritten and comes out identical.
func (s *Service) RunBar(ctx context.Context, bar model.Bar) (*Result, error) {
	runID := uuid.NewString()[:8]

	if err := validate.Struct(&bar); err != nil {
		s.countRun("invalid")
		return nil, fmt.Errorf("ingest %s: invalid bar for %s: %w", runID, bar.DateKey(), err)
	}
	if bar.High < bar.Low {
		s.countRun("invalid")
		return nil, fmt.Errorf("ingest %s: invalid bar for %s: high %.2f below low %.2f", runID, bar.DateKey(), bar.High, bar.Low)
	}

	records, err := s.hist.Load()
	if err != nil {
		s.countRun("load_error")
		return nil, fmt.Errorf("ingest %s: load history: %w", runID, err)
	}
	store, skipped := barstore.FromRecords(records)
	if skipped > 0 {
		log.Printf("[ingest] %s: WARNING: skipped %d unreadable history records", runID, skipped)
	}

	now := time.Now().UTC()
	duplicate := store.Has(bar)
	if duplicate {
		log.Printf("[ingest] %s: WARNING: bar for %s already ingested, skipping append", runID, bar.DateKey())
		if s.metrics != nil {
			s.metrics.DuplicateBars.Inc()
		}
	} else {
		store.Add(bar)
		rec := model.NewHistoryRecord(bar, s.cfg.Exchange, s.cfg.Instrument, s.cfg.Source, now)
		if err := s.hist.Append(rec); err != nil {
			s.countRun("append_error")
			return nil, fmt.Errorf("ingest %s: append history: %w", runID, err)
		}
	}

	bars := store.Sorted()
	start := time.Now()
	sig := score.Evaluate(bars)
	if s.metrics != nil {
		s.metrics.ScoreDur.Observe(time.Since(start).Seconds())
		s.metrics.HistoryBars.Set(float64(len(bars)))
		s.metrics.LatestScore.Set(sig.Score)
		s.metrics.Confidence.Set(float64(sig.Confidence))
	}

	prev, err := histlog.ReadLatest(s.cfg.LatestPath)
	if err != nil {
		log.Printf("[ingest] %s: WARNING: previous snapshot unreadable: %v", runID, err)
	}

	latest := bars[len(bars)-1]
	snap := model.NewLatestSnapshot(latest, sig, s.cfg.Exchange, s.cfg.Instrument, s.cfg.Source, now)
	if err := histlog.WriteLatest(s.cfg.LatestPath, snap); err != nil {
		s.countRun("snapshot_error")
		return nil, fmt.Errorf("ingest %s: write latest snapshot: %w", runID, err)
	}

	if s.redis != nil {
		if err := s.redis.WriteLatest(ctx, snap); err != nil {
			log.Printf("[ingest] %s: WARNING: redis mirror failed: %v", runID, err)
		}
	}

	if prev != nil && prev.Verdict != snap.Verdict {
		s.notifyVerdictChange(ctx, prev.Verdict, snap)
	}

	s.countRun("ok")
	log.Printf("[ingest] %s: %s %s settled %s close=%.2f score=%.3f verdict=%s confidence=%d bars=%d duplicate=%v",
		runID, s.cfg.Exchange, s.cfg.Instrument, snap.Date, snap.OHLC.C, snap.Score, snap.Verdict, snap.Confidence, len(bars), duplicate)

	return &Result{
		RunID:     runID,
		Date:      snap.Date,
		Duplicate: duplicate,
		BarCount:  len(bars),
		Snapshot:  snap,
	}, nil
}

func (s *Service) notifyVerdictChange(ctx context.Context, prev model.Verdict, snap model.LatestSnapshot) {
	alert := notification.VerdictChange(s.cfg.Instrument, prev, snap.Verdict, snap.Score, snap.Confidence)
	for _, n := range s.notifiers {
		if err := n.Send(ctx, alert); err != nil {
			log.Printf("[ingest] WARNING: alert delivery failed: %v", err)
		}
	}
}

func (s *Service) countRun(status string) {
	if s.metrics != nil {
		s.metrics.IngestRuns.WithLabelValues(status).Inc()
	}
}
