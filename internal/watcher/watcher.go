// Package watcher reacts to external page changes around a managed canvas:
// image swaps, tab switches, resizes and surface restyles.
package watcher

import (
	"log/slog"
	"time"

	"canvaszoom/internal/fit"
	"canvaszoom/internal/host"
)

// ResetDelay is how long a surface restyle settles before the reset runs.
const ResetDelay = 10 * time.Millisecond

// Target is the canvas the watcher keeps consistent.
type Target interface {
	Selector() string
	Embedded() bool
	// StyleWidth returns the element's inline width in pixels, 0 if unset.
	StyleWidth() float64
	Reset()
	FitToElement()
	ClearExpanded()
	ClearZoomed()
}

// Watcher translates host.Mutation notifications into resets.
type Watcher struct {
	target Target
	sched  host.Scheduler
	// observeStyle enables the surface restyle rule. It is tied to the
	// auto-expand option.
	observeStyle bool

	cancelPending func()
	resets        int
}

// New returns a watcher for target.
func New(target Target, sched host.Scheduler, observeStyle bool) *Watcher {
	return &Watcher{target: target, sched: sched, observeStyle: observeStyle}
}

// Handle applies the rule for m.
func (w *Watcher) Handle(m host.Mutation) {
	switch m.Kind {
	case host.MutationAttribute:
		if !w.observeStyle || m.Attribute != "style" || m.TargetTag != "canvas" {
			return
		}
		w.target.ClearExpanded()
		w.debounceReset()
	case host.MutationImageReplaced:
		w.reset()
	case host.MutationTabSwitched:
		w.reset()
		if w.target.StyleWidth() > fit.OversizeWidth {
			w.sched.Post(w.target.FitToElement)
		}
	case host.MutationResized:
		w.reset()
		if w.target.Embedded() {
			w.target.ClearExpanded()
			w.target.ClearZoomed()
		}
	default:
		slog.Debug("[DEBUG-WATCH] ignoring unknown mutation", "selector", w.target.Selector(), "kind", m.Kind)
	}
}

func (w *Watcher) debounceReset() {
	if w.cancelPending != nil {
		w.cancelPending()
	}
	w.cancelPending = w.sched.After(ResetDelay, func() {
		w.cancelPending = nil
		w.reset()
	})
}

func (w *Watcher) reset() {
	w.resets++
	w.target.Reset()
}

// Resets returns how many resets the watcher has triggered.
func (w *Watcher) Resets() int { return w.resets }

// Stop cancels a pending debounced reset.
func (w *Watcher) Stop() {
	if w.cancelPending != nil {
		w.cancelPending()
		w.cancelPending = nil
	}
}
