// Package history keeps the JSON log of ingestions and answered questions.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType distinguishes history entries.
type EventType string

const (
	EventIngest EventType = "ingest"
	EventQuery  EventType = "query"
)

// Event is one history entry. Ingest events carry the document fields, query
// events the question fields.
type Event struct {
	Type EventType `json:"type"`
	Time time.Time `json:"time"`

	DocIDs []string `json:"doc_ids,omitempty"`

	// Ingest
	Source     string `json:"source,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Chunks     int    `json:"chunks,omitempty"`
	Space      string `json:"space,omitempty"`
	Downgraded bool   `json:"downgraded,omitempty"`

	// Query
	Question  string   `json:"question,omitempty"`
	Citations []string `json:"citations,omitempty"`
	Mode      string   `json:"mode,omitempty"`
}

type file struct {
	Events []Event `json:"events"`
}

// Log is a JSON file of events, newest first. Every update rewrites the file
// atomically; a missing or unreadable file reads as empty.
type Log struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

func NewLog(path string, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{path: path, logger: logger}
}

// Path returns the file location.
func (l *Log) Path() string { return l.path }

// Append records e at the head of the log. A zero Time is set to now.
func (l *Log) Append(e Event) error {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f := l.read()
	f.Events = append([]Event{e}, f.Events...)
	return l.write(f)
}

// Events returns events of type t, newest first. An empty t returns every event.
func (l *Log) Events(t EventType) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f := l.read()
	if t == "" {
		return f.Events, nil
	}
	var out []Event
	for _, e := range f.Events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out, nil
}

// Clear removes events of type t, or all events when t is empty.
func (l *Log) Clear(t EventType) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f := l.read()
	kept := f.Events[:0]
	if t != "" {
		for _, e := range f.Events {
			if e.Type != t {
				kept = append(kept, e)
			}
		}
	}
	f.Events = kept
	return l.write(f)
}

func (l *Log) read() file {
	var f file
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return f
	}
	if err != nil {
		l.logger.Warn("history unreadable, treating as empty", "path", l.path, "error", err)
		return f
	}
	if err := json.Unmarshal(data, &f); err != nil {
		l.logger.Warn("history corrupted, treating as empty", "path", l.path, "error", err)
		return file{}
	}
	return f
}

func (l *Log) write(f file) (err error) {
	if f.Events == nil {
		f.Events = []Event{}
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp history: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync history: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close history: %w", err)
	}
	if err = os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}
