// Package host defines the capabilities the zoom/pan engine needs from the
// page that embeds a canvas.
//
// The engine never touches a DOM API directly. A host (in-memory DOM,
// websocket bridge, headless browser) implements Element, Document and
// Scheduler, and forwards user input and page mutations as Event values.
package host

import (
	"strconv"
	"strings"
	"time"
)

// Inline style properties written by the engine.
const (
	StyleTransform       = "transform"
	StyleTransformOrigin = "transform-origin"
	StyleOverflow        = "overflow"
	StyleZIndex          = "z-index"
	StylePointerEvents   = "pointer-events"
	StyleVisibility      = "visibility"
	StyleWidth           = "width"
)

// Rect is a bounding client rectangle in viewport coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Box is the layout geometry of one element.
type Box struct {
	Rect         Rect    `json:"rect"`
	OffsetWidth  float64 `json:"offsetWidth"`
	OffsetHeight float64 `json:"offsetHeight"`
	ClientWidth  float64 `json:"clientWidth"`
	ClientHeight float64 `json:"clientHeight"`
	ScrollWidth  float64 `json:"scrollWidth"`
}

// HasHorizontalScrollbar reports whether content overflows horizontally.
func (b Box) HasHorizontalScrollbar() bool {
	return b.ScrollWidth > b.ClientWidth
}

// Viewport describes the window the page is rendered in.
type Viewport struct {
	InnerWidth  float64 `json:"innerWidth"`
	InnerHeight float64 `json:"innerHeight"`
	// ClientWidth is the document element client width; the difference to
	// InnerWidth is the vertical scrollbar.
	ClientWidth float64 `json:"clientWidth"`
}

// ScrollbarWidth returns the width taken by the vertical scrollbar.
func (v Viewport) ScrollbarWidth() float64 {
	if v.ClientWidth <= 0 || v.ClientWidth > v.InnerWidth {
		return 0
	}
	return v.InnerWidth - v.ClientWidth
}

// BrushControl is the external brush radius input of a canvas.
type BrushControl interface {
	// Activate selects the brush tool (a click on the control).
	Activate()
	// Max returns the upper bound of the control; 0 when unknown.
	Max() float64
	Value() float64
	// SetValue writes the value and notifies the page of the change.
	SetValue(v float64)
}

// Element is one node of the page the engine can style and observe.
type Element interface {
	// Selector returns the selector the element was resolved from.
	Selector() string
	Style(prop string) string
	SetStyle(prop, value string)
	Box() Box
	// Container returns the box the element is laid out in. Embedded
	// elements use the closest component wrapper, standalone elements their
	// direct parent. Nil when there is none.
	Container(embedded bool) Element
	// Surface returns the drawing surface (the interface canvas) or nil.
	Surface() Element
	// Brush returns the brush radius control or nil.
	Brush() BrushControl
	// Subscribe registers h for events targeted at this element.
	Subscribe(h Handler) (cancel func())
}

// Document resolves selectors and reports viewport geometry.
type Document interface {
	// Query returns the first element matching selector, or nil.
	Query(selector string) Element
	Viewport() Viewport
}

// Scheduler runs deferred work on the single interaction goroutine.
type Scheduler interface {
	// Post runs fn as soon as possible.
	Post(fn func())
	// After runs fn once d has elapsed. The returned func cancels it.
	After(d time.Duration, fn func()) (cancel func())
	// RequestFrame runs fn on the next frame. Requests sharing a key
	// before the frame fires are coalesced, keeping the latest fn.
	RequestFrame(key string, fn func())
}

// Handler receives events. The returned Result tells the host whether the
// default browser action must be suppressed.
type Handler interface {
	HandleEvent(ev Event) Result
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ev Event) Result

// HandleEvent calls f(ev).
func (f HandlerFunc) HandleEvent(ev Event) Result { return f(ev) }

// ParsePixels parses a CSS length such as "512px" or "512". Non-numeric
// values yield 0, mirroring parseFloat on an empty style.
func ParsePixels(v string) float64 {
	v = strings.TrimSpace(v)
	v = strings.TrimSuffix(v, "px")
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0
	}
	return f
}

// FormatPixels renders v as a CSS pixel length.
func FormatPixels(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

// ParseOrigin parses a transform-origin value into its x and y components,
// defaulting missing or keyword parts to 0.
func ParseOrigin(v string) (x, y float64) {
	fields := strings.Fields(v)
	if len(fields) > 0 {
		x = ParsePixels(fields[0])
	}
	if len(fields) > 1 {
		y = ParsePixels(fields[1])
	}
	return x, y
}
