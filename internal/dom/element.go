package dom

import (
	"maps"
	"slices"
	"strconv"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"canvaszoom/internal/host"
	"canvaszoom/internal/transform"
)

// Layout attributes.
const (
	AttrX            = "data-x"
	AttrY            = "data-y"
	AttrWidth        = "data-width"
	AttrHeight       = "data-height"
	AttrClientWidth  = "data-client-width"
	AttrClientHeight = "data-client-height"
	AttrScrollWidth  = "data-scroll-width"
	// AttrClicks counts Activate calls on a brush control.
	AttrClicks = "data-clicks"
)

var (
	componentSel = cascadia.MustCompile(`[id^="component-"]`)
	surfaceSel   = cascadia.MustCompile(`canvas[key="interface"]`)
	brushSel     = cascadia.MustCompile(`input[aria-label='Brush radius']`)
	useBrushSel  = cascadia.MustCompile(`button[aria-label="Use brush"]`)
)

// Element is a host.Element over one node of a Document.
type Element struct {
	doc      *Document
	node     *html.Node
	selector string
	handlers map[int]host.Handler
	nextID   int
}

// Selector implements host.Element.
func (e *Element) Selector() string { return e.selector }

// Tag returns the lower-case tag name.
func (e *Element) Tag() string { return e.node.Data }

// Attr returns the attribute value, or "" when absent.
func (e *Element) Attr(key string) string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return attr(e.node, key)
}

// SetAttr sets an attribute.
func (e *Element) SetAttr(key, value string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	setAttr(e.node, key, value)
}

// Style implements host.Element.
func (e *Element) Style(prop string) string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return lookup(parseInline(attr(e.node, "style")), prop)
}

// SetStyle implements host.Element. An empty value removes the property and
// an empty style drops the attribute.
func (e *Element) SetStyle(prop, value string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	decls := assign(parseInline(attr(e.node, "style")), prop, value)
	if len(decls) == 0 {
		removeAttr(e.node, "style")
		return
	}
	setAttr(e.node, "style", renderInline(decls))
}

// Box implements host.Element. The bounding rect follows the inline
// transform and transform-origin.
func (e *Element) Box() host.Box {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	n := e.node
	decls := parseInline(attr(n, "style"))

	width := floatAttr(n, AttrWidth)
	if width == 0 {
		width = floatAttr(n, "width")
	}
	height := floatAttr(n, AttrHeight)
	if height == 0 {
		height = floatAttr(n, "height")
	}
	if w := host.ParsePixels(lookup(decls, host.StyleWidth)); w > 0 {
		width = w
	}

	b := host.Box{
		Rect:         host.Rect{X: floatAttr(n, AttrX), Y: floatAttr(n, AttrY), Width: width, Height: height},
		OffsetWidth:  width,
		OffsetHeight: height,
		ClientWidth:  orDefault(floatAttr(n, AttrClientWidth), width),
		ClientHeight: orDefault(floatAttr(n, AttrClientHeight), height),
	}
	b.ScrollWidth = orDefault(floatAttr(n, AttrScrollWidth), b.ClientWidth)

	css := lookup(decls, host.StyleTransform)
	z := transform.ParseScale(css)
	tx, ty := transform.ParseTranslate(css)
	ox, oy := host.ParseOrigin(lookup(decls, host.StyleTransformOrigin))
	b.Rect = host.Rect{
		X:      b.Rect.X + tx + ox*(1-z),
		Y:      b.Rect.Y + ty + oy*(1-z),
		Width:  b.Rect.Width * z,
		Height: b.Rect.Height * z,
	}
	return b
}

// Container implements host.Element.
func (e *Element) Container(embedded bool) host.Element {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for p := e.node.Parent; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		if !embedded || componentSel.Match(p) {
			return e.doc.wrap(p, nodeSelector(p))
		}
	}
	return nil
}

// Surface implements host.Element.
func (e *Element) Surface() host.Element {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	n := cascadia.Query(e.node, surfaceSel)
	if n == nil {
		return nil
	}
	return e.doc.wrap(n, e.selector+` canvas[key="interface"]`)
}

// Brush implements host.Element.
func (e *Element) Brush() host.BrushControl {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	n := cascadia.Query(e.node, brushSel)
	if n == nil {
		n = cascadia.Query(e.node, useBrushSel)
	}
	if n == nil {
		return nil
	}
	return &Brush{doc: e.doc, node: n}
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

// Subscribers returns the number of live subscriptions.
func (e *Element) Subscribers() int {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return len(e.handlers)
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

// Brush is a host.BrushControl over a range input or the brush button.
type Brush struct {
	doc  *Document
	node *html.Node
}

// Activate implements host.BrushControl.
func (b *Brush) Activate() {
	b.doc.mu.Lock()
	defer b.doc.mu.Unlock()
	clicks, _ := strconv.Atoi(attr(b.node, AttrClicks))
	setAttr(b.node, AttrClicks, strconv.Itoa(clicks+1))
}

// Max implements host.BrushControl.
func (b *Brush) Max() float64 {
	b.doc.mu.Lock()
	defer b.doc.mu.Unlock()
	return floatAttr(b.node, "max")
}

// Value implements host.BrushControl.
func (b *Brush) Value() float64 {
	b.doc.mu.Lock()
	defer b.doc.mu.Unlock()
	return floatAttr(b.node, "value")
}

// SetValue implements host.BrushControl.
func (b *Brush) SetValue(v float64) {
	b.doc.mu.Lock()
	defer b.doc.mu.Unlock()
	setAttr(b.node, "value", strconv.FormatFloat(v, 'f', -1, 64))
}

func nodeSelector(n *html.Node) string {
	if id := attr(n, "id"); id != "" {
		return "#" + id
	}
	return n.Data
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

func removeAttr(n *html.Node, key string) {
	n.Attr = slices.DeleteFunc(n.Attr, func(a html.Attribute) bool {
		return a.Namespace == "" && a.Key == key
	})
}

func floatAttr(n *html.Node, key string) float64 {
	return host.ParsePixels(attr(n, key))
}

func orDefault(v, fallback float64) float64 {
	if v > 0 {
		return v
	}
	return fallback
}
