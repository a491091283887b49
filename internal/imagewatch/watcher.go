// Package imagewatch reports replacements of image files on disk. The serve
// command uses it to tell connected pages that the edited image changed.
package imagewatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the write bursts editors and uploaders produce.
const DefaultDebounce = 50 * time.Millisecond

// Change is one settled replacement or removal of a watched file.
type Change struct {
	Path    string
	Info    Info
	Removed bool
}

// Watcher watches individual image files. fsnotify watches directories, so
// each file's parent is watched and events are filtered by name.
type Watcher struct {
	fs       *fsnotify.Watcher
	onChange func(Change)
	debounce time.Duration

	mu      sync.Mutex
	paths   map[string]bool
	dirs    map[string]int
	pending map[string]*time.Timer
	closed  bool

	closeCh   chan struct{}
	closeOnce sync.Once
}

// New creates a watcher calling onChange for every settled change.
// onChange runs on a timer goroutine.
func New(onChange func(Change)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("imagewatch: create watcher: %w", err)
	}
	return &Watcher{
		fs:       fw,
		onChange: onChange,
		debounce: DefaultDebounce,
		paths:    make(map[string]bool),
		dirs:     make(map[string]int),
		pending:  make(map[string]*time.Timer),
		closeCh:  make(chan struct{}),
	}, nil
}

// SetDebounce overrides the settle delay. Call before Run.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

// Add starts watching the file at path. The file need not exist yet but its
// directory must.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("imagewatch: resolve %s: %w", path, err)
	}
	dir := filepath.Dir(abs)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("imagewatch: stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("imagewatch: %s is not a directory", dir)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("imagewatch: watcher closed")
	}
	if w.paths[abs] {
		return nil
	}
	if w.dirs[dir] == 0 {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("imagewatch: watch %s: %w", dir, err)
		}
	}
	w.dirs[dir]++
	w.paths[abs] = true
	slog.Debug("[DEBUG-WATCH] watching image", "path", abs)
	return nil
}

// Paths returns the watched files.
func (w *Watcher) Paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.paths))
	for p := range w.paths {
		out = append(out, p)
	}
	return out
}

// Run processes filesystem events until ctx is done or Close is called.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.closeCh:
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			slog.Warn("[DEBUG-WATCH] filesystem watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	path := filepath.Clean(ev.Name)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || !w.paths[path] {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() { w.settle(path) })
}

func (w *Watcher) settle(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}

	change := Change{Path: path}
	info, err := Probe(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		change.Removed = true
	case err != nil:
		// Partially written files are retried by the next write event.
		slog.Debug("[DEBUG-WATCH] image not readable yet", "path", path, "error", err)
		return
	default:
		change.Info = info
	}
	slog.Debug("[DEBUG-WATCH] image changed", "path", path, "removed", change.Removed,
		"width", change.Info.Width, "height", change.Info.Height)
	if w.onChange != nil {
		w.onChange(change)
	}
}

// Close stops pending notifications and releases the fsnotify watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		for p, t := range w.pending {
			t.Stop()
			delete(w.pending, p)
		}
		w.mu.Unlock()
		close(w.closeCh)
		if cerr := w.fs.Close(); cerr != nil {
			err = fmt.Errorf("imagewatch: close: %w", cerr)
		}
	})
	return err
}
