package testutil

import (
	"maps"
	"slices"
	"sync"

	"canvaszoom/internal/host"
	"canvaszoom/internal/transform"
)

// StyleWrite records one SetStyle call on a FakeElement.
type StyleWrite struct {
	Prop  string
	Value string
}

// FakeElement is an in-memory host.Element. Its bounding rect follows the
// inline transform the way a browser lays out a transformed box, so zoom and
// fit math can be checked against it.
type FakeElement struct {
	mu       sync.Mutex
	selector string
	styles   map[string]string
	writes   []StyleWrite
	handlers map[int]host.Handler
	nextID   int

	// Layout is the untransformed geometry. Rect.X/Y is the layout position.
	Layout host.Box
	// Parent is returned by Container for both embedded and standalone use.
	Parent *FakeElement
	// Canvas is the drawing surface, nil when absent.
	Canvas *FakeElement
	// BrushInput is the brush radius control, nil when absent.
	BrushInput *FakeBrush
}

// NewFakeElement creates an element resolved from selector with the given
// layout size at the origin.
func NewFakeElement(selector string, width, height float64) *FakeElement {
	return &FakeElement{
		selector: selector,
		styles:   map[string]string{},
		handlers: map[int]host.Handler{},
		Layout: host.Box{
			Rect:         host.Rect{Width: width, Height: height},
			OffsetWidth:  width,
			OffsetHeight: height,
			ClientWidth:  width,
			ClientHeight: height,
			ScrollWidth:  width,
		},
	}
}

// Selector implements host.Element.
func (e *FakeElement) Selector() string { return e.selector }

// Style implements host.Element.
func (e *FakeElement) Style(prop string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.styles[prop]
}

// SetStyle implements host.Element. An empty value removes the property.
func (e *FakeElement) SetStyle(prop, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.writes = append(e.writes, StyleWrite{Prop: prop, Value: value})
	if value == "" {
		delete(e.styles, prop)
		return
	}
	e.styles[prop] = value
}

// Styles returns a copy of the inline style map.
func (e *FakeElement) Styles() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.styles)
}

// Writes returns the recorded SetStyle calls for prop, or all calls when
// prop is empty.
func (e *FakeElement) Writes(prop string) []StyleWrite {
	e.mu.Lock()
	defer e.mu.Unlock()
	if prop == "" {
		return slices.Clone(e.writes)
	}
	var out []StyleWrite
	for _, w := range e.writes {
		if w.Prop == prop {
			out = append(out, w)
		}
	}
	return out
}

// ResetWrites clears the write log.
func (e *FakeElement) ResetWrites() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.writes = nil
}

// Box implements host.Element.
func (e *FakeElement) Box() host.Box {
	e.mu.Lock()
	defer e.mu.Unlock()

	b := e.Layout
	if w := host.ParsePixels(e.styles[host.StyleWidth]); w > 0 {
		b.OffsetWidth = w
		b.ClientWidth = w
		b.Rect.Width = w
	}
	css := e.styles[host.StyleTransform]
	z := transform.ParseScale(css)
	tx, ty := transform.ParseTranslate(css)
	ox, oy := host.ParseOrigin(e.styles[host.StyleTransformOrigin])
	b.Rect = host.Rect{
		X:      b.Rect.X + tx + ox*(1-z),
		Y:      b.Rect.Y + ty + oy*(1-z),
		Width:  b.Rect.Width * z,
		Height: b.Rect.Height * z,
	}
	return b
}

// Container implements host.Element.
func (e *FakeElement) Container(bool) host.Element {
	if e.Parent == nil {
		return nil
	}
	return e.Parent
}

// Surface implements host.Element.
func (e *FakeElement) Surface() host.Element {
	if e.Canvas == nil {
		return nil
	}
	return e.Canvas
}

// Brush implements host.Element.
func (e *FakeElement) Brush() host.BrushControl {
	if e.BrushInput == nil {
		return nil
	}
	return e.BrushInput
}

// Subscribe implements host.Element.
func (e *FakeElement) Subscribe(h host.Handler) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.handlers[id] = h
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.handlers, id)
	}
}

// Subscribers returns the number of live subscriptions.
func (e *FakeElement) Subscribers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers)
}

// Fire delivers ev to every subscriber in subscription order.
func (e *FakeElement) Fire(ev host.Event) host.Result {
	e.mu.Lock()
	ids := slices.Sorted(maps.Keys(e.handlers))
	handlers := make([]host.Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, e.handlers[id])
	}
	e.mu.Unlock()

	var res host.Result
	for _, h := range handlers {
		res = res.Merge(h.HandleEvent(ev))
	}
	return res
}

// FakeBrush is an in-memory host.BrushControl.
type FakeBrush struct {
	mu          sync.Mutex
	MaxValue    float64
	value       float64
	activations int
	changes     int
}

// NewFakeBrush returns a brush control with the given range and value.
func NewFakeBrush(maxValue, value float64) *FakeBrush {
	return &FakeBrush{MaxValue: maxValue, value: value}
}

// Activate implements host.BrushControl.
func (b *FakeBrush) Activate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.activations++
}

// Max implements host.BrushControl.
func (b *FakeBrush) Max() float64 { return b.MaxValue }

// Value implements host.BrushControl.
func (b *FakeBrush) Value() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

// SetValue implements host.BrushControl.
func (b *FakeBrush) SetValue(v float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.value = v
	b.changes++
}

// Activations returns how often the control was activated.
func (b *FakeBrush) Activations() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.activations
}

// Changes returns how often the value was written.
func (b *FakeBrush) Changes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.changes
}

// FakeDocument is an in-memory host.Document keyed by exact selector.
type FakeDocument struct {
	mu       sync.Mutex
	elements map[string]*FakeElement
	view     host.Viewport
}

// NewFakeDocument returns a document with a 1280x800 viewport and no
// scrollbar.
func NewFakeDocument() *FakeDocument {
	return &FakeDocument{
		elements: map[string]*FakeElement{},
		view:     host.Viewport{InnerWidth: 1280, InnerHeight: 800, ClientWidth: 1280},
	}
}

// Add registers elements under their selectors.
func (d *FakeDocument) Add(elems ...*FakeElement) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range elems {
		d.elements[e.selector] = e
	}
}

// Remove drops the element registered under selector.
func (d *FakeDocument) Remove(selector string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.elements, selector)
}

// SetViewport replaces the viewport geometry.
func (d *FakeDocument) SetViewport(v host.Viewport) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.view = v
}

// Query implements host.Document.
func (d *FakeDocument) Query(selector string) host.Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.elements[selector]
	if !ok {
		return nil
	}
	return e
}

// Viewport implements host.Document.
func (d *FakeDocument) Viewport() host.Viewport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view
}
