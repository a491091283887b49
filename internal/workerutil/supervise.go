// Package workerutil keeps background goroutines and event callbacks alive
// across panics.
package workerutil

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

const (
	defaultInitialBackoff = 100 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
	defaultMaxRetries     = 10
)

// SuperviseOptions configures Supervise. Zero values select the defaults
// (100ms initial backoff, 5s cap, 10 attempts).
type SuperviseOptions struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// MaxRetries is the number of runs before giving up. 1 runs fn once.
	MaxRetries int

	// OnPanic is called after each recovered panic. attempt is 1-based.
	OnPanic func(worker string, attempt int)
	// OnFatal is called once the worker has panicked MaxRetries times.
	OnFatal func(worker string, maxRetries int)
}

func (opts SuperviseOptions) withDefaults() SuperviseOptions {
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		slog.Warn("[DEBUG-PANIC] max backoff below initial backoff, raising it",
			"initialBackoff", opts.InitialBackoff, "maxBackoff", opts.MaxBackoff)
		opts.MaxBackoff = opts.InitialBackoff
	}
	return opts
}

// Supervise runs fn on a goroutine tracked by wg and restarts it with
// exponential backoff when it panics. A normal return or a cancelled ctx
// ends supervision.
func Supervise(ctx context.Context, name string, wg *sync.WaitGroup, fn func(ctx context.Context), opts SuperviseOptions) {
	opts = opts.withDefaults()
	wg.Go(func() {
		superviseLoop(ctx, name, fn, opts)
	})
}

func superviseLoop(ctx context.Context, name string, fn func(ctx context.Context), opts SuperviseOptions) {
	delay := opts.InitialBackoff
	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		if !runRecovered(name, func() { fn(ctx) }) || ctx.Err() != nil {
			return
		}
		slog.Warn("[DEBUG-PANIC] restarting worker after panic",
			"worker", name, "attempt", attempt, "restartDelay", delay)
		if opts.OnPanic != nil {
			opts.OnPanic(name, attempt)
		}
		if attempt == opts.MaxRetries {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		delay = nextBackoff(delay, opts.MaxBackoff)
	}

	slog.Error("[DEBUG-PANIC] worker exceeded max retries, giving up",
		"worker", name, "maxRetries", opts.MaxRetries)
	if opts.OnFatal != nil {
		opts.OnFatal(name, opts.MaxRetries)
	}
}

// runRecovered calls fn and reports whether it panicked.
func runRecovered(name string, fn func()) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[DEBUG-PANIC] recovered from panic",
				"worker", name, "panic", r, "stack", string(debug.Stack()))
			panicked = true
		}
	}()
	fn()
	return false
}

// nextBackoff doubles current up to maxBackoff, guarding against overflow.
func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	if current <= 0 {
		return defaultInitialBackoff
	}
	next := current * 2
	if next > maxBackoff || next < current {
		return maxBackoff
	}
	return next
}
