package transform

import (
	"log/slog"
	"sync"
)

// Handle identifies one record in a Store. The zero Handle is never valid.
type Handle struct {
	index      uint32
	generation uint32
}

// Valid reports whether h was issued by a Store.
func (h Handle) Valid() bool { return h.generation != 0 }

type slot struct {
	state      State
	generation uint32
	live       bool
}

// Store is an arena of transform states indexed by Handle.
// Freed slots are reused with a bumped generation so stale handles never
// resolve to a newer element.
//
// The interaction loop is the only writer in practice; the mutex keeps
// snapshot readers (metrics, bridge status) safe.
type Store struct {
	mu    sync.RWMutex
	slots []slot
	free  []uint32
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Create allocates an identity state and returns its handle.
func (s *Store) Create() Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	var idx uint32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		idx = uint32(len(s.slots))
		s.slots = append(s.slots, slot{})
	}
	sl := &s.slots[idx]
	sl.generation++
	if sl.generation == 0 {
		sl.generation = 1
	}
	sl.live = true
	sl.state = Identity()
	return Handle{index: idx, generation: sl.generation}
}

// Get returns the state for h.
func (s *Store) Get(h Handle) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.lookupLocked(h)
	if !ok {
		return State{}, false
	}
	return sl.state, true
}

// Update applies fn to the state for h. It returns false for stale handles.
func (s *Store) Update(h Handle, fn func(*State)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.lookupLocked(h)
	if !ok {
		slog.Debug("[DEBUG-TRANSFORM] update on stale handle ignored", "index", h.index, "generation", h.generation)
		return false
	}
	fn(&sl.state)
	sl.state.Zoom = ClampZoom(sl.state.Zoom)
	return true
}

// Delete frees the record for h.
func (s *Store) Delete(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.lookupLocked(h)
	if !ok {
		return
	}
	sl.live = false
	sl.state = State{}
	s.free = append(s.free, h.index)
}

// Len returns the number of live records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots) - len(s.free)
}

func (s *Store) lookupLocked(h Handle) (*slot, bool) {
	if !h.Valid() || int(h.index) >= len(s.slots) {
		return nil, false
	}
	sl := &s.slots[h.index]
	if !sl.live || sl.generation != h.generation {
		return nil, false
	}
	return sl, true
}
