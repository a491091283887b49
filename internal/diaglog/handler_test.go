package diaglog

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// newTestCallback returns a callback that appends captured entries and a
// function to read them back.
func newTestCallback() (EntryCallback, func() []Entry) {
	var mu sync.Mutex
	var entries []Entry
	cb := func(e Entry) {
		mu.Lock()
		defer mu.Unlock()
		entries = append(entries, e)
	}
	get := func() []Entry {
		mu.Lock()
		defer mu.Unlock()
		return append([]Entry(nil), entries...)
	}
	return cb, get
}

func TestTeeHandlerGatesByLevel(t *testing.T) {
	tests := []struct {
		name  string
		log   func(*slog.Logger)
		level slog.Level
		want  int
	}{
		{name: "error", log: func(l *slog.Logger) { l.Error("dial failed") }, level: slog.LevelError, want: 1},
		{name: "warn", log: func(l *slog.Logger) { l.Warn("[WARN-CONFIG] conflict") }, level: slog.LevelWarn, want: 1},
		{name: "info", log: func(l *slog.Logger) { l.Info("attached") }, want: 0},
		{name: "debug", log: func(l *slog.Logger) { l.Debug("[DEBUG-ZOOM] zoom") }, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
			cb, get := newTestCallback()
			tt.log(slog.New(NewTeeHandler(base, slog.LevelWarn, cb)))

			entries := get()
			if len(entries) != tt.want {
				t.Fatalf("captured %d entries, want %d", len(entries), tt.want)
			}
			if tt.want == 1 && entries[0].Level != tt.level {
				t.Fatalf("level = %v, want %v", entries[0].Level, tt.level)
			}
			if buf.Len() == 0 {
				t.Fatal("base handler should receive every record")
			}
		})
	}
}

func TestTeeHandlerCollectsAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	cb, get := newTestCallback()
	logger := slog.New(NewTeeHandler(slog.NewTextHandler(&buf, nil), slog.LevelWarn, cb))

	logger.With("session", "abc").WithGroup("bridge").WithGroup("ws").Warn("queue full", "size", 256)

	entries := get()
	if len(entries) != 1 {
		t.Fatalf("captured %d entries", len(entries))
	}
	e := entries[0]
	if e.Group != "bridge.ws" {
		t.Fatalf("group = %q", e.Group)
	}
	if e.Attrs["session"] != "abc" || e.Attrs["size"] != int64(256) {
		t.Fatalf("attrs = %+v", e.Attrs)
	}
}

func TestTeeHandlerTeesBelowBaseLevel(t *testing.T) {
	var buf bytes.Buffer
	cb, get := newTestCallback()
	base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError})
	slog.New(NewTeeHandler(base, slog.LevelWarn, cb)).Warn("hidden from output")

	if buf.Len() != 0 {
		t.Fatalf("base should drop warn records: %q", buf.String())
	}
	if len(get()) != 1 {
		t.Fatal("warn record should still be captured")
	}
}

func TestTeeHandlerSkipsRecursiveRecords(t *testing.T) {
	var buf bytes.Buffer
	var logger *slog.Logger
	calls := 0
	cb := func(Entry) {
		calls++
		logger.Warn("logged from sink")
	}
	logger = slog.New(NewTeeHandler(slog.NewTextHandler(&buf, nil), slog.LevelWarn, cb))

	logger.Warn("outer")
	if calls != 1 {
		t.Fatalf("callback ran %d times, want 1", calls)
	}
	if !strings.Contains(buf.String(), "logged from sink") {
		t.Fatal("recursive record should still reach the base handler")
	}
}

func TestTeeHandlerRecoversCallbackPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewTeeHandler(slog.NewTextHandler(&buf, nil), slog.LevelWarn, func(Entry) {
		panic("sink exploded")
	}))
	logger.Error("still logged")
	if !strings.Contains(buf.String(), "still logged") {
		t.Fatalf("base output = %q", buf.String())
	}
	logger.Error("next record")
	if !strings.Contains(buf.String(), "next record") {
		t.Fatal("handler unusable after a callback panic")
	}
}

func TestRingKeepsNewest(t *testing.T) {
	r := NewRing(3)
	for _, msg := range []string{"a", "b"} {
		r.Add(Entry{Message: msg})
	}
	if r.Len() != 2 || r.Entries()[0].Message != "a" {
		t.Fatalf("partial ring = %+v", r.Entries())
	}
	for _, msg := range []string{"c", "d", "e"} {
		r.Add(Entry{Message: msg})
	}
	got := r.Entries()
	if len(got) != 3 || got[0].Message != "c" || got[2].Message != "e" {
		t.Fatalf("Entries() = %+v", got)
	}
	if r.Dropped() != 2 {
		t.Fatalf("Dropped() = %d, want 2", r.Dropped())
	}
}

func TestNewWritesFileAndSinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "canvaszoom.log")
	l, err := New(Options{Level: slog.LevelInfo, File: path, TeeLevel: slog.LevelWarn, RingSize: 8})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	cb, get := newTestCallback()
	l.AddSink(cb)

	l.Info("started")
	l.Warn("[WARN-CONFIG] invalid hotkey", "key", "canvas_hotkey_zoom")
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "started") || !strings.Contains(string(data), "invalid hotkey") {
		t.Fatalf("log file = %q", data)
	}
	if l.Ring.Len() != 1 || len(get()) != 1 {
		t.Fatalf("ring %d sinks %d, want 1 each", l.Ring.Len(), len(get()))
	}
}
