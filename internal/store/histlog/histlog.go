// Package histlog persists settlement history as an append-only JSONL log
// (one record per line) plus a whole-file "latest" snapshot overwritten
// after every ingestion run. These two files are the only durable state
// shared between the ingestion tool and the serving layer.
package histlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"commodity-systemv1/internal/model"
)

// Log is a handle to the history log file. Appends open, write one line,
// and close; no file descriptor is held between runs.
type Log struct {
	path string
}

// Open prepares a history log at path, creating parent directories.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("histlog mkdir: %w", err)
	}
	return &Log{path: path}, nil
}

// Path returns the log file location.
func (l *Log) Path() string { return l.path }

// Load reads every record from the log in file order. A missing file is an
// empty history, not an error. Corrupt lines are skipped with a warning so
// one bad write never poisons the whole history.
func (l *Log) Load() ([]model.HistoryRecord, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("histlog open: %w", err)
	}
	defer f.Close()

	var records []model.HistoryRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec model.HistoryRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			log.Printf("[histlog] skipping corrupt line %d: %v", lineNo, err)
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("histlog scan: %w", err)
	}
	return records, nil
}

// Append writes one record as a single JSON line at the end of the log.
func (l *Log) Append(rec model.HistoryRecord) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("histlog append open: %w", err)
	}
	defer f.Close()

	line := append(rec.JSON(), '\n')
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("histlog append write: %w", err)
	}
	return nil
}

// WriteLatest overwrites the latest-snapshot file atomically (temp file +
// rename) so the serving layer never observes a half-written snapshot.
func WriteLatest(path string, snap model.LatestSnapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("latest mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".latest-*.json")
	if err != nil {
		return fmt.Errorf("latest temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&snap); err != nil {
		tmp.Close()
		return fmt.Errorf("latest encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("latest close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("latest rename: %w", err)
	}
	return nil
}

// ReadLatest loads the latest snapshot. Returns (nil, nil) when the file
// does not exist yet; a malformed file is an error the caller degrades on.
func ReadLatest(path string) (*model.LatestSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest read: %w", err)
	}
	var snap model.LatestSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("latest unmarshal: %w", err)
	}
	return &snap, nil
}
