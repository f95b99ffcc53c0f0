package scraper

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LogEntry is one captured log record, served by the logs endpoint.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Source    string    `json:"source,omitempty"`
}

// LogBuffer is a slog.Handler that keeps the most recent records in a ring
// buffer so the admin UI can show live scraper logs. It is meant to be used
// alongside the normal JSON handler, not instead of it.
type LogBuffer struct {
	ring  *logRing
	attrs []slog.Attr
}

type logRing struct {
	max     int
	mu      sync.RWMutex
	entries []LogEntry
	next    int
	full    bool
}

func NewLogBuffer(max int) *LogBuffer {
	if max <= 0 {
		max = 200
	}
	return &LogBuffer{
		ring: &logRing{
			max:     max,
			entries: make([]LogEntry, max),
		},
	}
}

func (b *LogBuffer) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (b *LogBuffer) Handle(_ context.Context, r slog.Record) error {
	var source string
	for _, attr := range b.attrs {
		if attr.Key == "source" {
			source = attr.Value.String()
		}
	}
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key == "source" {
			source = attr.Value.String()
		}
		return true
	})

	ring := b.ring
	ring.mu.Lock()
	ring.entries[ring.next] = LogEntry{
		Timestamp: r.Time,
		Level:     r.Level.String(),
		Message:   r.Message,
		Source:    source,
	}
	ring.next = (ring.next + 1) % ring.max
	if ring.next == 0 {
		ring.full = true
	}
	ring.mu.Unlock()
	return nil
}

func (b *LogBuffer) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogBuffer{
		ring:  b.ring,
		attrs: append(append([]slog.Attr(nil), b.attrs...), attrs...),
	}
}

func (b *LogBuffer) WithGroup(string) slog.Handler { return b }

// Recent returns up to limit entries, most recent first, optionally filtered
// by level ("INFO", "WARN", "ERROR").
func (b *LogBuffer) Recent(limit int, level string) []LogEntry {
	ring := b.ring
	ring.mu.RLock()
	defer ring.mu.RUnlock()

	size := ring.next
	if ring.full {
		size = ring.max
	}

	out := make([]LogEntry, 0, size)
	for i := 1; i <= size; i++ {
		// Walk backwards from the most recently written slot.
		idx := (ring.next - i + ring.max) % ring.max
		entry := ring.entries[idx]
		if level != "" && !strings.EqualFold(entry.Level, level) {
			continue
		}
		out = append(out, entry)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Total returns the number of buffered entries.
func (b *LogBuffer) Total() int {
	ring := b.ring
	ring.mu.RLock()
	defer ring.mu.RUnlock()
	if ring.full {
		return ring.max
	}
	return ring.next
}
