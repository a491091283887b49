// Package diaglog tees slog records into an in-memory ring and to optional
// sinks such as the bridge diag frames.
package diaglog

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// Entry is one captured log record.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   slog.Level     `json:"level"`
	Message string         `json:"message"`
	Group   string         `json:"group,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// EntryCallback receives records at or above the capture threshold.
type EntryCallback func(e Entry)

// TeeHandler wraps a base [slog.Handler] and tees records at or above
// minLevel to a callback. Every record reaches the base handler; only the
// callback is gated by minLevel.
//
// Records logged from inside the callback are not teed again.
type TeeHandler struct {
	base     slog.Handler
	callback EntryCallback
	minLevel slog.Level
	group    string
	attrs    map[string]any
	busy     *atomic.Bool
}

// NewTeeHandler creates a TeeHandler. A nil callback only delegates.
func NewTeeHandler(base slog.Handler, minLevel slog.Level, callback EntryCallback) *TeeHandler {
	return &TeeHandler{
		base:     base,
		callback: callback,
		minLevel: minLevel,
		busy:     &atomic.Bool{},
	}
}

// Enabled lets the base handler decide visibility; minLevel only gates the
// callback. Records the base drops are still teed when they meet minLevel.
func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level) || (h.callback != nil && level >= h.minLevel)
}

// Handle forwards the record to the base handler, then invokes the callback.
func (h *TeeHandler) Handle(ctx context.Context, record slog.Record) error {
	var err error
	if h.base.Enabled(ctx, record.Level) {
		err = h.base.Handle(ctx, record)
	}

	if h.callback == nil || record.Level < h.minLevel {
		return err
	}
	if !h.busy.CompareAndSwap(false, true) {
		return err
	}
	defer h.busy.Store(false)

	entry := Entry{
		Time:    record.Time,
		Level:   record.Level,
		Message: record.Message,
		Group:   h.group,
	}
	if len(h.attrs) > 0 || record.NumAttrs() > 0 {
		entry.Attrs = maps.Clone(h.attrs)
		if entry.Attrs == nil {
			entry.Attrs = make(map[string]any, record.NumAttrs())
		}
		record.Attrs(func(a slog.Attr) bool {
			entry.Attrs[a.Key] = a.Value.Resolve().Any()
			return true
		})
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				// stderr, not slog: the callback is already the tee target.
				fmt.Fprintf(os.Stderr, "[diaglog] callback panicked: %v\n%s\n", r, debug.Stack())
			}
		}()
		h.callback(entry)
	}()
	return err
}

// WithAttrs returns a handler whose base and captured entries carry attrs.
func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	merged := maps.Clone(h.attrs)
	if merged == nil {
		merged = make(map[string]any, len(attrs))
	}
	for _, a := range attrs {
		merged[a.Key] = a.Value.Resolve().Any()
	}
	return &TeeHandler{
		base:     h.base.WithAttrs(attrs),
		callback: h.callback,
		minLevel: h.minLevel,
		group:    h.group,
		attrs:    merged,
		busy:     h.busy,
	}
}

// WithGroup returns a handler with name appended to the group path.
func (h *TeeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &TeeHandler{
		base:     h.base.WithGroup(name),
		callback: h.callback,
		minLevel: h.minLevel,
		group:    group,
		attrs:    h.attrs,
		busy:     h.busy,
	}
}
