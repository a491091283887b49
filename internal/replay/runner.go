package replay

import (
	"fmt"
	"log/slog"
	"time"

	"canvaszoom/internal/dom"
	"canvaszoom/internal/hotkeys"
	"canvaszoom/internal/host"
	"canvaszoom/internal/loop"
	"canvaszoom/internal/zoompan"
)

// Result is the outcome of a replay.
type Result struct {
	// Canvases is the final state of every attached canvas.
	Canvases []zoompan.Status
	// Handled counts events the engine consumed.
	Handled int
	// Elapsed is the simulated time the script advanced.
	Elapsed time.Duration
}

// Runner drives one document through scripts.
type Runner struct {
	doc   *dom.Document
	cfg   hotkeys.Config
	sched *loop.Manual
	mgr   *zoompan.Manager
}

// NewRunner attaches a manager with cfg to doc on a manual clock.
func NewRunner(doc *dom.Document, cfg hotkeys.Config, opts ...zoompan.Option) *Runner {
	sched := loop.NewManual()
	return &Runner{
		doc:   doc,
		cfg:   cfg,
		sched: sched,
		mgr:   zoompan.NewManager(doc, sched, cfg, opts...),
	}
}

// Manager returns the engine under replay.
func (r *Runner) Manager() *zoompan.Manager { return r.mgr }

// Run executes every step, draining posted tasks and pending frames after
// each one.
func (r *Runner) Run(s Script) (Result, error) {
	var res Result
	for i, step := range s.Steps {
		handled, err := r.step(step)
		if err != nil {
			return res, fmt.Errorf("replay: step %d: %w", i+1, err)
		}
		if handled {
			res.Handled++
		}
		r.settle()
	}
	res.Canvases = r.mgr.Snapshot()
	res.Elapsed = r.sched.Now()
	return res, nil
}

// maxSettleFrames bounds the frames run after one step.
const maxSettleFrames = 64

func (r *Runner) settle() {
	r.sched.RunPending()
	for i := 0; i < maxSettleFrames && r.sched.PendingFrames() > 0; i++ {
		r.sched.Frame()
	}
}

func (r *Runner) step(s Step) (bool, error) {
	switch {
	case s.Attach != "":
		c := r.mgr.ApplyZoomAndPan(s.Attach, s.Embedded)
		if c != nil && r.cfg.Flags().ShowTooltip {
			if e := r.doc.Element(s.Attach); e != nil {
				dom.RenderTooltip(e, r.mgr.Tooltip())
			}
		}
	case s.Integrate != nil:
		r.mgr.ApplyZoomAndPanIntegration(s.Integrate.Trigger, s.Integrate.Targets)
	case s.Detach != "":
		r.mgr.Detach(s.Detach)
	case s.Event != nil:
		ev, err := s.Event.toHost()
		if err != nil {
			return false, err
		}
		var res host.Result
		if s.Event.Target == "" {
			res = r.mgr.HandleEvent(ev)
		} else {
			res = r.doc.Fire(s.Event.Target, ev)
		}
		return res.PreventDefault, nil
	case s.Mutation != "":
		kind, err := mutationKind(s.Mutation)
		if err != nil {
			return false, err
		}
		r.mgr.HandleEvent(host.Event{Kind: host.EventMutation, Mutation: &host.Mutation{Kind: kind}})
	case s.Restyle != nil:
		if !r.doc.Restyle(s.Restyle.Selector, s.Restyle.Property, s.Restyle.Value) {
			slog.Debug("[DEBUG-DOM] restyle target missing", "selector", s.Restyle.Selector)
		}
	case s.Insert != nil:
		if err := r.doc.Insert(s.Insert.Parent, s.Insert.HTML); err != nil {
			return false, err
		}
	case s.Remove != "":
		r.doc.Remove(s.Remove)
	case s.Preview != "":
		r.mgr.SyncPreview(s.Preview)
	case s.Advance != "":
		d, err := time.ParseDuration(s.Advance)
		if err != nil {
			return false, err
		}
		r.sched.Advance(d)
	case s.Frames > 0:
		for range s.Frames {
			r.sched.Frame()
		}
	}
	return false, nil
}
