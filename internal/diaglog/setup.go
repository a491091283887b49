package diaglog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Options configures the process logger.
type Options struct {
	// Level is the minimum level written to the output.
	Level slog.Level
	// File, when set, receives the log instead of Stderr.
	File string
	// Stderr is the default output; nil selects os.Stderr.
	Stderr io.Writer
	// TeeLevel is the minimum level captured in the ring and sinks.
	TeeLevel slog.Level
	// RingSize bounds the captured history.
	RingSize int
}

// Logger is the configured process logger plus its capture side.
type Logger struct {
	*slog.Logger
	Ring *Ring

	mu     sync.RWMutex
	sinks  []EntryCallback
	closer io.Closer
}

// New builds a text logger teeing records at or above opts.TeeLevel into a
// ring and every registered sink.
func New(opts Options) (*Logger, error) {
	out := opts.Stderr
	if out == nil {
		out = os.Stderr
	}
	l := &Logger{Ring: NewRing(opts.RingSize)}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o700); err != nil {
			return nil, fmt.Errorf("diaglog: create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("diaglog: open log file: %w", err)
		}
		out = f
		l.closer = f
	}

	base := slog.NewTextHandler(out, &slog.HandlerOptions{Level: opts.Level})
	l.Logger = slog.New(NewTeeHandler(base, opts.TeeLevel, l.capture))
	return l, nil
}

func (l *Logger) capture(e Entry) {
	l.Ring.Add(e)
	l.mu.RLock()
	sinks := l.sinks
	l.mu.RUnlock()
	for _, sink := range sinks {
		sink(e)
	}
}

// AddSink registers fn for every captured entry.
func (l *Logger) AddSink(fn EntryCallback) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(append([]EntryCallback(nil), l.sinks...), fn)
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	if err := l.closer.Close(); err != nil {
		return fmt.Errorf("diaglog: close log file: %w", err)
	}
	return nil
}
