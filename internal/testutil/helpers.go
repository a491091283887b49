package testutil

import (
	"math"
	"testing"
	"time"
)

// Ptr returns a pointer to the given value.
func Ptr[T any](v T) *T { return &v }

// ApproxEqual reports whether a and b differ by at most tol.
func ApproxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// WaitForCondition polls fn every 10ms until it returns true or the timeout
// expires. Returns true if the condition was met, false on timeout.
func WaitForCondition(t *testing.T, timeout time.Duration, fn func() bool) bool {
	t.Helper()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if fn() {
			return true
		}
		select {
		case <-ticker.C:
		case <-deadline.C:
			return fn()
		}
	}
}
