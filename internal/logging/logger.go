// Package logging provides leveled logging and event tracing for causalsim.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - An EventLogger for structured JSONL replication events (redraws,
//     bootstrap discards, scenario completion)
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LevelTrace is a custom slog level below Debug. At this level every
// replication is logged, not just redraws.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether s names a supported level.
func ValidLevel(s string) bool {
	switch strings.ToLower(s) {
	case "", "info", "debug", "trace":
		return true
	}
	return false
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// EventLogger writes structured run events as JSONL. Every line carries the
// run id. It is safe for concurrent use. A nil EventLogger is safe to use;
// all methods are no-ops on nil receiver.
type EventLogger struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	runID  string
}

// NewEventLogger writes events to w under runID. An empty runID gets a fresh
// UUID.
func NewEventLogger(w io.Writer, runID string) *EventLogger {
	if runID == "" {
		runID = uuid.NewString()
	}
	return &EventLogger{w: w, runID: runID}
}

// OpenEventLogger returns the event logger for a run.
//
// When path is set the events are appended to that file. Otherwise, at
// "debug" or "trace" level they go to fallback. At "info" level without a
// path it returns nil, and every method is a no-op.
func OpenEventLogger(path, level string, fallback io.Writer) (*EventLogger, error) {
	if path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("creating trace directory: %w", err)
			}
		}
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("opening trace file: %w", err)
		}
		l := NewEventLogger(f, "")
		l.closer = f
		return l, nil
	}
	if ParseLevel(level) < slog.LevelInfo && fallback != nil {
		return NewEventLogger(fallback, ""), nil
	}
	return nil, nil
}

// RunID returns the id stamped on every event, or "" on nil receiver.
func (l *EventLogger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// Log writes one event as a single JSONL line. "time", "run_id" and "event"
// are added; the caller's map is not mutated. Safe to call on nil receiver.
func (l *EventLogger) Log(event string, fields map[string]any) {
	if l == nil || l.w == nil {
		return
	}

	entry := make(map[string]any, len(fields)+3)
	maps.Copy(entry, fields)
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["run_id"] = l.runID
	entry["event"] = event

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.w.Write(data)
}

// Close closes the underlying file, if the logger owns one. Safe to call on
// nil receiver.
func (l *EventLogger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w = nil
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	return err
}
