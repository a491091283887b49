package loop

import (
	"slices"
	"sync"
	"time"
)

type manualTimer struct {
	due       time.Duration
	seq       uint64
	fn        func()
	cancelled bool
}

// Manual is a host.Scheduler driven explicitly by the caller. Time only
// moves on Advance and frames only fire on Frame, which keeps debounce and
// coalescing behaviour deterministic.
type Manual struct {
	mu         sync.Mutex
	now        time.Duration
	seq        uint64
	queue      []func()
	timers     []*manualTimer
	frames     map[string]func()
	frameOrder []string
}

// NewManual returns an idle manual scheduler at time zero.
func NewManual() *Manual {
	return &Manual{frames: map[string]func(){}}
}

// Post implements host.Scheduler.
func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, fn)
}

// After implements host.Scheduler.
func (m *Manual) After(d time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{due: m.now + d, seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		t.cancelled = true
	}
}

// RequestFrame implements host.Scheduler.
func (m *Manual) RequestFrame(key string, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.frames[key]; !ok {
		m.frameOrder = append(m.frameOrder, key)
	}
	m.frames[key] = fn
}

// Now returns the simulated elapsed time.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// RunPending runs posted tasks, including ones posted while running, and
// returns how many ran.
func (m *Manual) RunPending() int {
	n := 0
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return n
		}
		fn := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		fn()
		n++
	}
}

// Advance moves time forward by d, firing due timers in order. Posted tasks
// are drained after each timer.
func (m *Manual) Advance(d time.Duration) {
	m.RunPending()
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDueLocked(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = next.due
		next.cancelled = true
		fn := next.fn
		m.mu.Unlock()

		fn()
		m.RunPending()
	}
}

func (m *Manual) nextDueLocked(limit time.Duration) *manualTimer {
	m.timers = slices.DeleteFunc(m.timers, func(t *manualTimer) bool { return t.cancelled })
	var best *manualTimer
	for _, t := range m.timers {
		if t.due > limit {
			continue
		}
		if best == nil || t.due < best.due || (t.due == best.due && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

// Frame runs every pending frame callback once and returns how many ran.
func (m *Manual) Frame() int {
	m.RunPending()
	m.mu.Lock()
	order := m.frameOrder
	frames := m.frames
	m.frameOrder = nil
	m.frames = map[string]func(){}
	m.mu.Unlock()

	for _, key := range order {
		frames[key]()
	}
	m.RunPending()
	return len(order)
}

// PendingTimers returns the number of live timers.
func (m *Manual) PendingTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// PendingFrames returns the number of queued frame callbacks.
func (m *Manual) PendingFrames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frameOrder)
}
