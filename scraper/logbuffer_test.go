package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"
)

func record(level slog.Level, msg string, attrs ...slog.Attr) slog.Record {
	r := slog.NewRecord(time.Now(), level, msg, 0)
	r.AddAttrs(attrs...)
	return r
}

func TestLogBufferCapture(t *testing.T) {
	buf := NewLogBuffer(10)

	buf.Handle(context.Background(), record(slog.LevelInfo, "first"))
	buf.Handle(context.Background(), record(slog.LevelError, "second", slog.String("source", "dges")))

	entries := buf.Recent(0, "")
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}

	// Most recent first.
	if entries[0].Message != "second" || entries[1].Message != "first" {
		t.Errorf("Entries not in most-recent-first order: %v", entries)
	}
	if entries[0].Level != "ERROR" {
		t.Errorf("Expected ERROR level, got %s", entries[0].Level)
	}
	if entries[0].Source != "dges" {
		t.Errorf("Expected source attr captured, got %q", entries[0].Source)
	}
	if buf.Total() != 2 {
		t.Errorf("Expected Total 2, got %d", buf.Total())
	}
}

func TestLogBufferRingOverflow(t *testing.T) {
	buf := NewLogBuffer(3)

	for i := 0; i < 5; i++ {
		buf.Handle(context.Background(), record(slog.LevelInfo, fmt.Sprintf("msg-%d", i)))
	}

	entries := buf.Recent(0, "")
	if len(entries) != 3 {
		t.Fatalf("Expected ring capped at 3, got %d", len(entries))
	}
	if entries[0].Message != "msg-4" || entries[2].Message != "msg-2" {
		t.Errorf("Ring did not keep the newest entries: %v", entries)
	}
	if buf.Total() != 3 {
		t.Errorf("Expected Total 3, got %d", buf.Total())
	}
}

func TestLogBufferLevelFilterAndLimit(t *testing.T) {
	buf := NewLogBuffer(10)

	buf.Handle(context.Background(), record(slog.LevelInfo, "a"))
	buf.Handle(context.Background(), record(slog.LevelWarn, "b"))
	buf.Handle(context.Background(), record(slog.LevelWarn, "c"))

	warns := buf.Recent(0, "warn")
	if len(warns) != 2 {
		t.Fatalf("Expected 2 WARN entries, got %d", len(warns))
	}

	limited := buf.Recent(1, "")
	if len(limited) != 1 || limited[0].Message != "c" {
		t.Errorf("Expected limit to keep only the newest entry, got %v", limited)
	}
}

func TestLogBufferEnabled(t *testing.T) {
	buf := NewLogBuffer(10)

	if buf.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Debug records should not be buffered")
	}
	if !buf.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Info records should be buffered")
	}
}

func TestLogBufferWithAttrsSharesRing(t *testing.T) {
	buf := NewLogBuffer(10)
	child := buf.WithAttrs([]slog.Attr{slog.String("source", "eduportugal")})

	child.Handle(context.Background(), record(slog.LevelInfo, "scraping"))

	entries := buf.Recent(0, "")
	if len(entries) != 1 {
		t.Fatalf("Expected child handler to write into the shared ring, got %d entries", len(entries))
	}
	if entries[0].Source != "eduportugal" {
		t.Errorf("Expected source from WithAttrs, got %q", entries[0].Source)
	}
}
