package loop

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"canvaszoom/internal/host"
	"canvaszoom/internal/testutil"
)

var _ host.Scheduler = (*Loop)(nil)
var _ host.Scheduler = (*Manual)(nil)

func startLoop(t *testing.T) *Loop {
	t.Helper()
	l := New(2 * time.Millisecond)
	l.Start()
	t.Cleanup(l.Stop)
	return l
}

func TestLoopPostRunsInOrder(t *testing.T) {
	l := startLoop(t)
	var got []int
	for i := range 5 {
		l.Post(func() { got = append(got, i) })
	}
	if err := l.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("tasks ran out of order: %v", got)
		}
	}
	if len(got) != 5 {
		t.Fatalf("ran %d tasks, want 5", len(got))
	}
}

func TestLoopFrameCoalescing(t *testing.T) {
	l := startLoop(t)
	var calls atomic.Int32
	var last atomic.Int32

	// Queue the requests from inside the loop so no frame fires in between.
	err := l.Do(context.Background(), func() {
		for i := range 10 {
			l.RequestFrame("pan", func() {
				calls.Add(1)
				last.Store(int32(i))
			})
		}
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if !testutil.WaitForCondition(t, time.Second, func() bool { return calls.Load() > 0 }) {
		t.Fatal("frame never fired")
	}
	time.Sleep(10 * time.Millisecond)
	if calls.Load() != 1 || last.Load() != 9 {
		t.Fatalf("calls=%d last=%d, want 1 and 9", calls.Load(), last.Load())
	}
}

func TestLoopAfterAndCancel(t *testing.T) {
	l := startLoop(t)
	var fired atomic.Int32
	var cancelledFired atomic.Int32

	l.After(time.Millisecond, func() { fired.Add(1) })
	cancel := l.After(20*time.Millisecond, func() { cancelledFired.Add(1) })
	cancel()

	if !testutil.WaitForCondition(t, time.Second, func() bool { return fired.Load() == 1 }) {
		t.Fatal("timer never fired")
	}
	time.Sleep(40 * time.Millisecond)
	if cancelledFired.Load() != 0 {
		t.Fatal("cancelled timer fired")
	}
}

func TestLoopSurvivesPanickingTask(t *testing.T) {
	testutil.CaptureLogBuffer(t, slog.LevelDebug)
	l := startLoop(t)
	l.Post(func() { panic("handler bug") })

	ran := false
	if err := l.Do(context.Background(), func() { ran = true }); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if !ran {
		t.Fatal("loop stopped processing after a panic")
	}
}

func TestLoopDoAfterStop(t *testing.T) {
	l := New(0)
	l.Start()
	l.Stop()
	if err := l.Do(context.Background(), func() {}); !errors.Is(err, ErrStopped) {
		t.Fatalf("Do() error = %v, want ErrStopped", err)
	}
	l.Stop()
}

func TestLoopDoContextCancelled(t *testing.T) {
	l := New(0) // never started
	t.Cleanup(l.Stop)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Do(ctx, func() {}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() error = %v, want context.Canceled", err)
	}
}

func TestManualAdvanceFiresInOrder(t *testing.T) {
	m := NewManual()
	var got []string
	m.After(20*time.Millisecond, func() { got = append(got, "b") })
	m.After(10*time.Millisecond, func() { got = append(got, "a") })
	m.After(20*time.Millisecond, func() { got = append(got, "c") })

	m.Advance(15 * time.Millisecond)
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("after 15ms got %v, want [a]", got)
	}
	m.Advance(5 * time.Millisecond)
	if len(got) != 3 || got[1] != "b" || got[2] != "c" {
		t.Fatalf("after 20ms got %v, want [a b c]", got)
	}
	if m.Now() != 20*time.Millisecond {
		t.Fatalf("Now() = %v", m.Now())
	}
}

func TestManualTimerScheduledFromTimer(t *testing.T) {
	m := NewManual()
	fired := false
	m.After(10*time.Millisecond, func() {
		m.After(5*time.Millisecond, func() { fired = true })
	})
	m.Advance(15 * time.Millisecond)
	if !fired {
		t.Fatal("nested timer within the advance window did not fire")
	}
}

func TestManualCancel(t *testing.T) {
	m := NewManual()
	fired := false
	cancel := m.After(time.Millisecond, func() { fired = true })
	cancel()
	m.Advance(time.Second)
	if fired || m.PendingTimers() != 0 {
		t.Fatal("cancelled timer fired")
	}
}

func TestManualFrameCoalesces(t *testing.T) {
	m := NewManual()
	var got []int
	m.RequestFrame("a", func() { got = append(got, 1) })
	m.RequestFrame("b", func() { got = append(got, 2) })
	m.RequestFrame("a", func() { got = append(got, 3) })

	if n := m.Frame(); n != 2 {
		t.Fatalf("Frame() ran %d callbacks, want 2", n)
	}
	if len(got) != 2 || got[0] != 3 || got[1] != 2 {
		t.Fatalf("got %v, want [3 2]", got)
	}
	if m.PendingFrames() != 0 {
		t.Fatal("frames left after Frame()")
	}
}
