package chromehost

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"canvaszoom/internal/hotkeys"
	"canvaszoom/internal/host"
)

// evalTimeout bounds one round trip to the page.
const evalTimeout = 5 * time.Second

// Document is a host.Document over a live browser tab. Reads and writes are
// synchronous evaluations in the page; events arrive through the binding
// and are posted to the scheduler.
type Document struct {
	ctx   context.Context
	sched host.Scheduler

	mu       sync.Mutex
	elements map[string]*Element
	handler  host.Handler
}

func newDocument(ctx context.Context, sched host.Scheduler) *Document {
	return &Document{ctx: ctx, sched: sched, elements: make(map[string]*Element)}
}

// SetHandler installs the receiver of document level events (keys, window
// blur and resize).
func (d *Document) SetHandler(h host.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = h
}

// Configure tells the page which gestures to suppress.
func (d *Document) Configure(cfg hotkeys.Config) error {
	var ok bool
	return d.eval(&ok, "configure", newPageConfig(cfg))
}

// Query implements host.Document.
func (d *Document) Query(selector string) host.Element {
	var found bool
	if err := d.eval(&found, "resolve", selector, selector); err != nil || !found {
		return nil
	}
	return d.element(selector, selector)
}

// Viewport implements host.Document.
func (d *Document) Viewport() host.Viewport {
	var v host.Viewport
	if err := d.eval(&v, "viewport"); err != nil {
		return host.Viewport{}
	}
	return v
}

func (d *Document) element(key, selector string) *Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.elements[key]; ok {
		return e
	}
	e := &Element{doc: d, key: key, selector: selector, handlers: make(map[int]host.Handler)}
	d.elements[key] = e
	return e
}

// eval calls a registry function and decodes its result into out. Errors are
// logged; element methods have no error path.
func (d *Document) eval(out any, fn string, args ...any) error {
	expr, err := call(fn, args...)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(d.ctx, evalTimeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.Evaluate(expr, out)); err != nil {
		slog.Debug("[DEBUG-DOM] page evaluation failed", "call", fn, "error", err)
		return err
	}
	return nil
}

// deliver runs on the chromedp event goroutine and must not block.
func (d *Document) deliver(p payload) {
	d.sched.Post(func() {
		if p.Target == "" {
			d.mu.Lock()
			h := d.handler
			d.mu.Unlock()
			if h != nil {
				h.HandleEvent(p.Event)
			}
			return
		}
		d.mu.Lock()
		e := d.elements[p.Target]
		d.mu.Unlock()
		if e == nil {
			slog.Debug("[DEBUG-DOM] event for unknown element", "target", p.Target, "kind", p.Event.Kind)
			return
		}
		e.Fire(p.Event)
	})
}

// Element is a host.Element resolved in the page registry under key.
type Element struct {
	doc      *Document
	key      string
	selector string

	handlers map[int]host.Handler
	nextID   int
}

// Selector implements host.Element.
func (e *Element) Selector() string { return e.selector }

// Style implements host.Element.
func (e *Element) Style(prop string) string {
	var v string
	_ = e.doc.eval(&v, "style", e.key, prop)
	return v
}

// SetStyle implements host.Element.
func (e *Element) SetStyle(prop, value string) {
	var ok bool
	_ = e.doc.eval(&ok, "setStyle", e.key, prop, value)
}

// Box implements host.Element.
func (e *Element) Box() host.Box {
	var b host.Box
	if err := e.doc.eval(&b, "box", e.key); err != nil {
		return host.Box{}
	}
	return b
}

// Container implements host.Element.
func (e *Element) Container(embedded bool) host.Element {
	rel := "parent"
	if embedded {
		rel = "component"
	}
	return e.relative(rel)
}

// Surface implements host.Element.
func (e *Element) Surface() host.Element { return e.relative("surface") }

// Brush implements host.Element.
func (e *Element) Brush() host.BrushControl {
	key := e.key + "|brush"
	var sel string
	if err := e.doc.eval(&sel, "relate", key, e.key, "brush"); err != nil || sel == "" {
		return nil
	}
	return &Brush{doc: e.doc, key: key}
}

func (e *Element) relative(rel string) host.Element {
	key := e.key + "|" + rel
	var sel string
	if err := e.doc.eval(&sel, "relate", key, e.key, rel); err != nil || sel == "" {
		return nil
	}
	return e.doc.element(key, sel)
}

// Subscribe implements host.Element. The first subscription installs the
// page listeners.
func (e *Element) Subscribe(h host.Handler) func() {
	e.doc.mu.Lock()
	first := len(e.handlers) == 0
	id := e.nextID
	e.nextID++
	e.handlers[id] = h
	e.doc.mu.Unlock()

	if first {
		var ok bool
		_ = e.doc.eval(&ok, "watch", e.key)
	}
	return func() {
		e.doc.mu.Lock()
		defer e.doc.mu.Unlock()
		delete(e.handlers, id)
	}
}

// Fire delivers ev to every subscriber in subscription order.
func (e *Element) Fire(ev host.Event) host.Result {
	e.doc.mu.Lock()
	ids := slices.Sorted(maps.Keys(e.handlers))
	handlers := make([]host.Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, e.handlers[id])
	}
	e.doc.mu.Unlock()

	var res host.Result
	for _, h := range handlers {
		res = res.Merge(h.HandleEvent(ev))
	}
	return res
}

// Brush is the brush radius control of a page element.
type Brush struct {
	doc *Document
	key string
}

func (b *Brush) op(name string, value float64) float64 {
	var v float64
	_ = b.doc.eval(&v, "brush", b.key, name, value)
	return v
}

// Activate implements host.BrushControl.
func (b *Brush) Activate() { b.op("activate", 0) }

// Max implements host.BrushControl.
func (b *Brush) Max() float64 { return b.op("max", 0) }

// Value implements host.BrushControl.
func (b *Brush) Value() float64 { return b.op("value", 0) }

// SetValue implements host.BrushControl.
func (b *Brush) SetValue(v float64) { b.op("set", v) }
