package workerutil

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"canvaszoom/internal/testutil"
)

func fastOptions(retries int) SuperviseOptions {
	return SuperviseOptions{
		InitialBackoff: time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
		MaxRetries:     retries,
	}
}

func TestSuperviseNormalExit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var runs atomic.Int32
	opts := fastOptions(3)
	opts.OnPanic = func(string, int) { t.Error("OnPanic must not be called") }

	Supervise(ctx, "normal", &wg, func(ctx context.Context) {
		runs.Add(1)
		<-ctx.Done()
	}, opts)
	cancel()
	wg.Wait()

	if runs.Load() != 1 {
		t.Fatalf("runs = %d, want 1", runs.Load())
	}
}

func TestSuperviseRestartsAfterPanic(t *testing.T) {
	testutil.CaptureLogBuffer(t, slog.LevelDebug)
	var wg sync.WaitGroup
	var runs atomic.Int32
	var panics atomic.Int32
	opts := fastOptions(5)
	opts.OnPanic = func(string, int) { panics.Add(1) }

	Supervise(context.Background(), "flaky", &wg, func(context.Context) {
		if runs.Add(1) == 1 {
			panic("first run")
		}
	}, opts)
	wg.Wait()

	if runs.Load() != 2 || panics.Load() != 1 {
		t.Fatalf("runs=%d panics=%d, want 2 and 1", runs.Load(), panics.Load())
	}
}

func TestSuperviseGivesUp(t *testing.T) {
	logs := testutil.CaptureLogBuffer(t, slog.LevelDebug)
	var wg sync.WaitGroup
	var fatal atomic.Int32
	opts := fastOptions(3)
	opts.OnFatal = func(_ string, maxRetries int) {
		if maxRetries != 3 {
			t.Errorf("maxRetries = %d, want 3", maxRetries)
		}
		fatal.Add(1)
	}

	Supervise(context.Background(), "broken", &wg, func(context.Context) {
		panic("always")
	}, opts)
	wg.Wait()

	if fatal.Load() != 1 {
		t.Fatalf("OnFatal calls = %d, want 1", fatal.Load())
	}
	if !logs.Contains("exceeded max retries") {
		t.Fatalf("missing give-up log: %s", logs.String())
	}
}

func TestSuperviseCancelDuringBackoff(t *testing.T) {
	testutil.CaptureLogBuffer(t, slog.LevelDebug)
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	opts := SuperviseOptions{InitialBackoff: time.Hour, MaxBackoff: time.Hour, MaxRetries: 3}
	opts.OnPanic = func(string, int) { cancel() }
	opts.OnFatal = func(string, int) { t.Error("OnFatal must not be called") }

	Supervise(ctx, "cancelled", &wg, func(context.Context) {
		panic("boom")
	}, opts)
	wg.Wait()
}

func TestNextBackoff(t *testing.T) {
	tests := []struct {
		current, maxBackoff, want time.Duration
	}{
		{current: 0, maxBackoff: time.Second, want: defaultInitialBackoff},
		{current: 100 * time.Millisecond, maxBackoff: time.Second, want: 200 * time.Millisecond},
		{current: 800 * time.Millisecond, maxBackoff: time.Second, want: time.Second},
		{current: time.Second, maxBackoff: time.Second, want: time.Second},
		{current: 1 << 62, maxBackoff: 1<<63 - 1, want: 1<<63 - 1},
	}
	for _, tt := range tests {
		if got := nextBackoff(tt.current, tt.maxBackoff); got != tt.want {
			t.Fatalf("nextBackoff(%v, %v) = %v, want %v", tt.current, tt.maxBackoff, got, tt.want)
		}
	}
}

func TestWithDefaults(t *testing.T) {
	testutil.CaptureLogBuffer(t, slog.LevelDebug)
	got := SuperviseOptions{}.withDefaults()
	if got.InitialBackoff != defaultInitialBackoff || got.MaxBackoff != defaultMaxBackoff || got.MaxRetries != defaultMaxRetries {
		t.Fatalf("withDefaults() = %+v", got)
	}
	swapped := SuperviseOptions{InitialBackoff: time.Second, MaxBackoff: time.Millisecond}.withDefaults()
	if swapped.MaxBackoff != time.Second {
		t.Fatalf("MaxBackoff = %v, want raised to 1s", swapped.MaxBackoff)
	}
}
