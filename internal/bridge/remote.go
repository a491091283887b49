package bridge

import (
	"maps"
	"slices"
	"sync"

	"canvaszoom/internal/host"
	"canvaszoom/internal/transform"
)

// Outbound receives frames produced by remote elements.
type Outbound func(msg any)

// Document is a host.Document backed by layout snapshots pushed by the page.
//
// Geometry always comes from the latest snapshot. Inline styles are owned by
// the server once an element has been resolved: the snapshot style seeds it
// and every later write is kept locally and sent to the page as a style
// frame, so a snapshot taken before the page applied a write cannot revert
// it.
type Document struct {
	mu       sync.Mutex
	view     host.Viewport
	layouts  map[string]*ElementLayout
	elements map[string]*Element
	out      Outbound
}

// NewDocument returns an empty document sending writes to out.
func NewDocument(out Outbound) *Document {
	if out == nil {
		out = func(any) {}
	}
	return &Document{
		layouts:  map[string]*ElementLayout{},
		elements: map[string]*Element{},
		out:      out,
	}
}

// Apply merges a snapshot. A zero viewport keeps the previous one and a null
// element entry forgets that element.
func (d *Document) Apply(l *Layout) {
	if l == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if l.Viewport.InnerWidth > 0 {
		d.view = l.Viewport
	}
	for sel, el := range l.Elements {
		if el == nil {
			delete(d.layouts, sel)
			continue
		}
		d.layouts[sel] = el
	}
}

// Known reports whether the latest snapshot describes selector.
func (d *Document) Known(selector string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.layouts[selector]
	return ok
}

// Query implements host.Document.
func (d *Document) Query(selector string) host.Element {
	if e := d.Element(selector); e != nil {
		return e
	}
	return nil
}

// Element returns the element for selector, or nil when the page has not
// reported it.
func (d *Document) Element(selector string) *Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.layouts[selector]; !ok {
		return nil
	}
	return d.elementLocked(selector, selector, func(l *ElementLayout) *NodeLayout { return &l.NodeLayout })
}

// elementLocked returns the stable element stored under key. Caller holds
// d.mu.
func (d *Document) elementLocked(key, owner string, pick func(*ElementLayout) *NodeLayout) *Element {
	if e, ok := d.elements[key]; ok {
		return e
	}
	e := &Element{doc: d, owner: owner, pick: pick, handlers: map[int]host.Handler{}}
	if n := e.nodeLocked(); n != nil {
		e.style = maps.Clone(n.Style)
		e.selector = n.Selector
	}
	if e.style == nil {
		e.style = map[string]string{}
	}
	if e.selector == "" {
		e.selector = key
	}
	d.elements[key] = e
	return e
}

// Viewport implements host.Document.
func (d *Document) Viewport() host.Viewport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view
}

// Element is a host.Element whose geometry lives in the page.
type Element struct {
	doc      *Document
	owner    string
	selector string
	pick     func(*ElementLayout) *NodeLayout

	style    map[string]string
	handlers map[int]host.Handler
	nextID   int
}

func (e *Element) nodeLocked() *NodeLayout {
	l, ok := e.doc.layouts[e.owner]
	if !ok {
		return nil
	}
	return e.pick(l)
}

// Selector implements host.Element.
func (e *Element) Selector() string { return e.selector }

// Style implements host.Element.
func (e *Element) Style(prop string) string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.style[prop]
}

// SetStyle implements host.Element and forwards the write to the page.
func (e *Element) SetStyle(prop, value string) {
	e.doc.mu.Lock()
	if value == "" {
		delete(e.style, prop)
	} else {
		e.style[prop] = value
	}
	out := e.doc.out
	e.doc.mu.Unlock()

	out(StyleMsg{Type: TypeStyle, Selector: e.selector, Property: prop, Value: value})
}

// Box implements host.Element. The snapshot rect is measured with the
// snapshot's transform; it is rebased to the untransformed layout and the
// current local transform is applied again.
func (e *Element) Box() host.Box {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	n := e.nodeLocked()
	if n == nil {
		return host.Box{}
	}
	return rebase(n.Box, n.Style, e.style)
}

func rebase(b host.Box, measured, current map[string]string) host.Box {
	z0 := transform.ParseScale(measured[host.StyleTransform])
	if z0 == 0 {
		z0 = 1
	}
	tx0, ty0 := transform.ParseTranslate(measured[host.StyleTransform])
	ox0, oy0 := host.ParseOrigin(measured[host.StyleTransformOrigin])
	layout := host.Rect{
		X:      b.Rect.X - tx0 - ox0*(1-z0),
		Y:      b.Rect.Y - ty0 - oy0*(1-z0),
		Width:  b.Rect.Width / z0,
		Height: b.Rect.Height / z0,
	}

	if w := host.ParsePixels(current[host.StyleWidth]); w > 0 && w != host.ParsePixels(measured[host.StyleWidth]) {
		layout.Width = w
		b.OffsetWidth = w
		b.ClientWidth = w
	}

	z := transform.ParseScale(current[host.StyleTransform])
	tx, ty := transform.ParseTranslate(current[host.StyleTransform])
	ox, oy := host.ParseOrigin(current[host.StyleTransformOrigin])
	b.Rect = host.Rect{
		X:      layout.X + tx + ox*(1-z),
		Y:      layout.Y + ty + oy*(1-z),
		Width:  layout.Width * z,
		Height: layout.Height * z,
	}
	return b
}

// Container implements host.Element.
func (e *Element) Container(embedded bool) host.Element {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	l, ok := e.doc.layouts[e.owner]
	if !ok {
		return nil
	}
	if embedded {
		if l.Component == nil {
			return nil
		}
		return e.doc.elementLocked(e.owner+"|component", e.owner, func(l *ElementLayout) *NodeLayout { return l.Component })
	}
	if l.Parent == nil {
		return nil
	}
	return e.doc.elementLocked(e.owner+"|parent", e.owner, func(l *ElementLayout) *NodeLayout { return l.Parent })
}

// Surface implements host.Element.
func (e *Element) Surface() host.Element {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	l, ok := e.doc.layouts[e.owner]
	if !ok || l.Surface == nil {
		return nil
	}
	return e.doc.elementLocked(e.owner+"|surface", e.owner, func(l *ElementLayout) *NodeLayout { return l.Surface })
}

// Brush implements host.Element.
func (e *Element) Brush() host.BrushControl {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	l, ok := e.doc.layouts[e.owner]
	if !ok || l.Brush == nil {
		return nil
	}
	return &Brush{doc: e.doc, owner: e.owner}
}

// Subscribe implements host.Element.
func (e *Element) Subscribe(h host.Handler) func() {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.handlers[id] = h
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

// Brush is a host.BrushControl over the snapshot of a brush control. The
// snapshot is authoritative; writes update it until the next one arrives.
type Brush struct {
	doc   *Document
	owner string
}

func (b *Brush) stateLocked() *BrushLayout {
	if l, ok := b.doc.layouts[b.owner]; ok && l.Brush != nil {
		return l.Brush
	}
	return &BrushLayout{}
}

// Activate implements host.BrushControl.
func (b *Brush) Activate() {
	b.doc.mu.Lock()
	value := b.stateLocked().Value
	out := b.doc.out
	b.doc.mu.Unlock()
	out(BrushMsg{Type: TypeBrush, Selector: b.owner, Activate: true, Value: value})
}

// Max implements host.BrushControl.
func (b *Brush) Max() float64 {
	b.doc.mu.Lock()
	defer b.doc.mu.Unlock()
	return b.stateLocked().Max
}

// Value implements host.BrushControl.
func (b *Brush) Value() float64 {
	b.doc.mu.Lock()
	defer b.doc.mu.Unlock()
	return b.stateLocked().Value
}

// SetValue implements host.BrushControl.
func (b *Brush) SetValue(v float64) {
	b.doc.mu.Lock()
	b.stateLocked().Value = v
	out := b.doc.out
	b.doc.mu.Unlock()
	out(BrushMsg{Type: TypeBrush, Selector: b.owner, Value: v})
}
