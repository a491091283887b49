// Package loop provides the single interaction goroutine every canvas
// callback runs on, and a manually driven scheduler for tests and replays.
package loop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"canvaszoom/internal/workerutil"
)

// DefaultFrameInterval approximates one display refresh.
const DefaultFrameInterval = 16 * time.Millisecond

// ErrStopped is returned by Do after Stop.
var ErrStopped = errors.New("loop: stopped")

// Loop serializes tasks, timers and frame callbacks onto one goroutine.
// It implements host.Scheduler.
type Loop struct {
	mu sync.Mutex

	frameInterval time.Duration
	queue         []func()
	frames        map[string]func()
	frameOrder    []string

	started  bool
	stopped  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	wakeCh   chan struct{}
	stopOnce sync.Once

	tasksRun  atomic.Uint64
	framesRun atomic.Uint64
}

// New creates a stopped loop. frameInterval <= 0 selects
// DefaultFrameInterval.
func New(frameInterval time.Duration) *Loop {
	if frameInterval <= 0 {
		frameInterval = DefaultFrameInterval
	}
	return &Loop{
		frameInterval: frameInterval,
		frames:        map[string]func(){},
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
		wakeCh:        make(chan struct{}, 1),
	}
}

// Start launches the loop goroutine. Calling it twice is a no-op.
func (l *Loop) Start() {
	l.mu.Lock()
	if l.started || l.stopped {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.mu.Unlock()

	go l.run()
}

// Stop terminates the loop and waits for the running task to finish.
// Pending tasks and frames are dropped.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		started := l.started
		l.stopped = true
		dropped := len(l.queue) + len(l.frameOrder)
		l.queue = nil
		l.frames = map[string]func(){}
		l.frameOrder = nil
		l.mu.Unlock()

		close(l.stopCh)
		if started {
			<-l.doneCh
		}
		if dropped > 0 {
			slog.Debug("[DEBUG-LOOP] dropped pending work on stop", "count", dropped)
		}
	})
}

func (l *Loop) run() {
	defer close(l.doneCh)

	timer := time.NewTimer(l.frameInterval)
	timer.Stop()
	armed := false

	for {
		select {
		case <-l.stopCh:
			timer.Stop()
			return
		case <-l.wakeCh:
			l.runQueued()
			if !armed && l.hasFrames() {
				timer.Reset(l.frameInterval)
				armed = true
			}
		case <-timer.C:
			armed = false
			l.runFrames()
			// Frame callbacks may post tasks.
			l.runQueued()
			if l.hasFrames() {
				timer.Reset(l.frameInterval)
				armed = true
			}
		}
	}
}

func (l *Loop) wake() {
	select {
	case l.wakeCh <- struct{}{}:
	default:
	}
}

// Post implements host.Scheduler.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.wake()
}

// After implements host.Scheduler. The callback is posted onto the loop when
// the timer fires, so it never runs concurrently with other tasks.
func (l *Loop) After(d time.Duration, fn func()) func() {
	var cancelled atomic.Bool
	t := time.AfterFunc(d, func() {
		l.Post(func() {
			if !cancelled.Load() {
				fn()
			}
		})
	})
	return func() {
		cancelled.Store(true)
		t.Stop()
	}
}

// RequestFrame implements host.Scheduler.
func (l *Loop) RequestFrame(key string, fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	if _, ok := l.frames[key]; !ok {
		l.frameOrder = append(l.frameOrder, key)
	}
	l.frames[key] = fn
	l.mu.Unlock()
	l.wake()
}

// Do runs fn on the loop and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return ErrStopped
	}
	l.queue = append(l.queue, func() {
		defer close(done)
		fn()
	})
	l.mu.Unlock()
	l.wake()

	select {
	case <-done:
		return nil
	case <-l.stopCh:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns how many tasks and frame callbacks have run.
func (l *Loop) Stats() (tasks, frames uint64) {
	return l.tasksRun.Load(), l.framesRun.Load()
}

func (l *Loop) hasFrames() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.frameOrder) > 0
}

func (l *Loop) runQueued() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 || l.stopped {
			l.mu.Unlock()
			return
		}
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			workerutil.Guard("loop-task", fn)
			l.tasksRun.Add(1)
		}
	}
}

func (l *Loop) runFrames() {
	l.mu.Lock()
	order := l.frameOrder
	frames := l.frames
	l.frameOrder = nil
	l.frames = map[string]func(){}
	l.mu.Unlock()

	for _, key := range order {
		workerutil.Guard("loop-frame", frames[key])
		l.framesRun.Add(1)
	}
}
