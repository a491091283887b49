// Package zoompan attaches zoom, pan and brush-size control to canvas
// elements and routes page input to them.
package zoompan

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"canvaszoom/internal/gesture"
	"canvaszoom/internal/host"
	"canvaszoom/internal/hotkeys"
	"canvaszoom/internal/transform"
	"canvaszoom/internal/workerutil"
)

// ElementPollInterval is how often integration waits re-query the page for
// a target that does not exist yet.
const ElementPollInterval = 100 * time.Millisecond

// PreviewSelector is the aspect-ratio overlay kept in sync with the canvas
// scale.
const PreviewSelector = "#imageARPreview"

// Built-in canvases of the image-to-image tab.
const (
	SelectorSketch        = "#img2img_sketch"
	SelectorInpaint       = "#img2maskimg"
	SelectorInpaintSketch = "#inpaint_sketch"
)

// Status is a snapshot of one canvas.
type Status struct {
	Selector string          `json:"selector"`
	Embedded bool            `json:"embedded"`
	Active   bool            `json:"active"`
	State    transform.State `json:"state"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithRecorder reports activity to r.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.rec = r
		}
	}
}

// WithStore uses store for transform state.
func WithStore(store *transform.Store) Option {
	return func(m *Manager) {
		if store != nil {
			m.store = store
		}
	}
}

// Manager owns every attached canvas and the state shared between them: the
// active element, the drag flag and the Alt key-up suppression. It is not
// safe for concurrent use; hosts deliver all calls on the scheduler
// goroutine.
type Manager struct {
	doc   host.Document
	sched host.Scheduler
	cfg   hotkeys.Config
	store *transform.Store
	rec   Recorder

	canvases map[string]*Canvas
	order    []string

	active        *Canvas
	moving        bool
	altInteracted bool
	closed        bool
}

// NewManager creates a manager for doc.
func NewManager(doc host.Document, sched host.Scheduler, cfg hotkeys.Config, opts ...Option) *Manager {
	m := &Manager{
		doc:      doc,
		sched:    sched,
		cfg:      cfg,
		store:    transform.NewStore(),
		rec:      nopRecorder{},
		canvases: map[string]*Canvas{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the resolved hotkey configuration.
func (m *Manager) Config() hotkeys.Config { return m.cfg }

// Tooltip returns the hotkey tooltip rows, or nil when tooltips are off.
func (m *Manager) Tooltip() []hotkeys.TooltipLine {
	if !m.cfg.Flags().ShowTooltip {
		return nil
	}
	return m.cfg.Tooltip()
}

// ApplyZoomAndPan attaches to the element matching selector. Attaching the
// same selector twice returns the existing canvas. A missing element is
// logged and yields nil.
func (m *Manager) ApplyZoomAndPan(selector string, embedded bool) *Canvas {
	if c, ok := m.canvases[selector]; ok {
		return c
	}
	if m.closed {
		return nil
	}
	elem := m.doc.Query(selector)
	if elem == nil {
		slog.Info("[DEBUG-ZOOM] element not found", "selector", selector)
		return nil
	}
	c := newCanvas(m, selector, elem, embedded)
	m.canvases[selector] = c
	m.order = append(m.order, selector)
	m.rec.Canvases(len(m.canvases))
	slog.Debug("[DEBUG-ZOOM] attached", "selector", selector, "embedded", embedded)
	return c
}

// ApplyBuiltins attaches the three standalone image-to-image canvases.
func (m *Manager) ApplyBuiltins() {
	for _, selector := range []string{SelectorSketch, SelectorInpaint, SelectorInpaintSketch} {
		m.ApplyZoomAndPan(selector, false)
	}
}

// Detach removes the canvas for selector and frees its state. It reports
// whether anything was attached.
func (m *Manager) Detach(selector string) bool {
	c, ok := m.canvases[selector]
	if !ok {
		return false
	}
	if m.active == c {
		m.active = nil
		m.moving = false
	}
	c.destroy()
	delete(m.canvases, selector)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == selector })
	m.rec.Canvases(len(m.canvases))
	slog.Debug("[DEBUG-ZOOM] detached", "selector", selector)
	return true
}

// Close detaches every canvas and stops pending integration waits.
func (m *Manager) Close() {
	m.closed = true
	for _, selector := range slices.Clone(m.order) {
		m.Detach(selector)
	}
}

// Canvas returns the canvas attached for selector.
func (m *Manager) Canvas(selector string) (*Canvas, bool) {
	c, ok := m.canvases[selector]
	return c, ok
}

// Selectors returns the attached selectors in attach order.
func (m *Manager) Selectors() []string { return slices.Clone(m.order) }

// Active returns the selector of the element under the pointer, or "".
func (m *Manager) Active() string {
	if m.active == nil {
		return ""
	}
	return m.active.selector
}

// Moving reports whether a drag is in progress.
func (m *Manager) Moving() bool { return m.moving }

// Snapshot returns the status of every canvas in attach order.
func (m *Manager) Snapshot() []Status {
	out := make([]Status, 0, len(m.order))
	for _, selector := range m.order {
		c := m.canvases[selector]
		out = append(out, Status{
			Selector: selector,
			Embedded: c.embedded,
			Active:   c == m.active,
			State:    c.State(),
		})
	}
	return out
}

// SyncPreview mirrors the scale of the canvas for selector onto the
// aspect-ratio preview, if both exist.
func (m *Manager) SyncPreview(selector string) {
	c, ok := m.canvases[selector]
	if !ok {
		return
	}
	preview := m.doc.Query(PreviewSelector)
	if preview == nil {
		return
	}
	workerutil.Guard("sync-preview", func() { c.SyncPreview(preview) })
}

func (m *Manager) activate(c *Canvas) {
	if m.active != c {
		m.active = c
		slog.Debug("[DEBUG-ZOOM] active element", "selector", c.selector)
	}
}

func (m *Manager) leave(c *Canvas) {
	if m.active != c {
		return
	}
	// Panning sets pointer-events none, which makes the browser report a
	// leave; the drag keeps the element active until it ends.
	if m.moving {
		return
	}
	m.active = nil
}

// HandleEvent handles document and window level input: keys, pointer
// movement for panning, window blur and page-wide mutations.
func (m *Manager) HandleEvent(ev host.Event) host.Result {
	return workerutil.GuardValue("document", host.Result{}, func() host.Result {
		switch ev.Kind {
		case host.EventKeyDown:
			return m.keyDown(ev)
		case host.EventKeyUp:
			return m.keyUp(ev)
		case host.EventPointerMove:
			m.pointerMove(ev)
		case host.EventBlur:
			m.moving = false
		case host.EventMutation:
			if ev.Mutation != nil {
				m.broadcast(*ev.Mutation)
			}
		}
		return host.Result{}
	})
}

func (m *Manager) keyDown(ev host.Event) host.Result {
	if gesture.IsPassthrough(ev) || gesture.IgnoreTarget(ev, m.cfg.Flags().BlurPrompt) {
		return host.Result{}
	}
	c := m.active
	if c == nil {
		return host.Result{}
	}

	var res host.Result
	if m.cfg.Binding(hotkeys.ActionMove).Matches(ev.Code) && gesture.StartsDrag(ev) {
		m.moving = true
		res = host.Handled
	}

	if action, ok := m.cfg.ActionForCode(ev.Code); ok {
		res = host.Handled
		switch action {
		case hotkeys.ActionReset:
			c.Reset()
		case hotkeys.ActionOverlap:
			c.ToggleOverlap()
		case hotkeys.ActionFullscreen:
			c.FitToScreen()
		case hotkeys.ActionShrinkBrush:
			c.AdjustBrush(gesture.BrushKeyDelta)
		case hotkeys.ActionGrowBrush:
			c.AdjustBrush(-gesture.BrushKeyDelta)
		}
	}

	if m.cfg.Binding(hotkeys.ActionZoom).Held(ev.Mods) || m.cfg.Binding(hotkeys.ActionAdjust).Held(ev.Mods) {
		res = host.Handled
	}
	return res
}

func (m *Manager) keyUp(ev host.Event) host.Result {
	if m.cfg.Binding(hotkeys.ActionMove).Matches(ev.Code) {
		m.moving = false
	}
	if ev.Key == hotkeys.ModAlt && m.altInteracted {
		m.altInteracted = false
		return host.Handled
	}
	return host.Result{}
}

func (m *Manager) pointerMove(ev host.Event) {
	for _, selector := range m.order {
		c := m.canvases[selector]
		if m.moving && c == m.active {
			c.pan(ev.MovementX, ev.MovementY)
			c.setPointerEvents("none")
			c.overlap.SetOverflow(true)
			continue
		}
		c.setPointerEvents("auto")
	}
}

func (m *Manager) broadcast(mu host.Mutation) {
	for _, selector := range m.order {
		m.canvases[selector].watcher.Handle(mu)
	}
}

// ApplyZoomAndPanIntegration attaches embedded canvases for a third-party
// component. With trigger "none" (any case) each target is attached as soon
// as it exists, in order. Otherwise the targets are attached after the
// first click on the trigger element; a missing trigger is a no-op.
func (m *Manager) ApplyZoomAndPanIntegration(trigger string, targets []string) {
	targets = slices.Clone(targets)
	if strings.EqualFold(trigger, "none") {
		m.attachInOrder(targets)
		return
	}

	elem := m.doc.Query(trigger)
	if elem == nil {
		slog.Debug("[DEBUG-ZOOM] integration trigger not found", "trigger", trigger)
		return
	}
	var cancel func()
	fired := false
	cancel = elem.Subscribe(host.HandlerFunc(func(ev host.Event) host.Result {
		if ev.Kind != host.EventClick || fired {
			return host.Result{}
		}
		fired = true
		if cancel != nil {
			cancel()
		}
		m.attachInOrder(targets)
		return host.Result{}
	}))
}

func (m *Manager) attachInOrder(targets []string) {
	if len(targets) == 0 {
		return
	}
	m.waitForElement(targets[0], func() {
		m.ApplyZoomAndPan(targets[0], true)
		m.attachInOrder(targets[1:])
	})
}

// waitForElement runs fn once selector resolves, polling on the scheduler.
func (m *Manager) waitForElement(selector string, fn func()) {
	if m.closed {
		return
	}
	if m.doc.Query(selector) != nil {
		fn()
		return
	}
	m.sched.After(ElementPollInterval, func() { m.waitForElement(selector, fn) })
}

func formatScale(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
