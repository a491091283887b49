// Package dom is an in-memory host backed by a parsed HTML snapshot.
//
// Geometry a browser would compute from layout is read from data
// attributes on each node (data-x, data-y, data-width, data-height,
// data-client-width, data-client-height, data-scroll-width), so a saved page
// can be replayed without a renderer. Inline styles are read and written
// through the style attribute.
package dom

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"canvaszoom/internal/host"
)

// Viewport attributes, read from the <html> or <body> node.
const (
	attrInnerWidth  = "data-inner-width"
	attrInnerHeight = "data-inner-height"
	attrClientWidth = "data-client-width"
)

// DefaultViewport is used when the snapshot carries no viewport attributes.
var DefaultViewport = host.Viewport{InnerWidth: 1280, InnerHeight: 800, ClientWidth: 1280}

// Document is a host.Document over an HTML tree.
type Document struct {
	mu       sync.Mutex
	root     *html.Node
	view     host.Viewport
	elements map[*html.Node]*Element
	compiled map[string]cascadia.Sel
}

// Parse reads an HTML snapshot.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse html: %w", err)
	}
	d := &Document{
		root:     root,
		view:     DefaultViewport,
		elements: map[*html.Node]*Element{},
		compiled: map[string]cascadia.Sel{},
	}
	d.readViewport()
	return d, nil
}

// ParseString reads an HTML snapshot from src.
func ParseString(src string) (*Document, error) {
	return Parse(strings.NewReader(src))
}

func (d *Document) readViewport() {
	for _, tag := range []string{"html", "body"} {
		n := cascadia.Query(d.root, cascadia.MustCompile(tag))
		if n == nil {
			continue
		}
		if v := floatAttr(n, attrInnerWidth); v > 0 {
			d.view.InnerWidth = v
			d.view.ClientWidth = v
		}
		if v := floatAttr(n, attrInnerHeight); v > 0 {
			d.view.InnerHeight = v
		}
		if v := floatAttr(n, attrClientWidth); v > 0 {
			d.view.ClientWidth = v
		}
	}
}

func (d *Document) selector(selector string) (cascadia.Sel, error) {
	if sel, ok := d.compiled[selector]; ok {
		return sel, nil
	}
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return nil, err
	}
	d.compiled[selector] = sel
	return sel, nil
}

func (d *Document) find(selector string) *html.Node {
	sel, err := d.selector(selector)
	if err != nil {
		slog.Debug("[DEBUG-DOM] invalid selector", "selector", selector, "error", err)
		return nil
	}
	return cascadia.Query(d.root, sel)
}

// wrap returns the stable Element for n, so subscriptions survive repeated
// queries. Caller holds d.mu.
func (d *Document) wrap(n *html.Node, selector string) *Element {
	if e, ok := d.elements[n]; ok {
		return e
	}
	e := &Element{doc: d, node: n, selector: selector, handlers: map[int]host.Handler{}}
	d.elements[n] = e
	return e
}

// Query implements host.Document.
func (d *Document) Query(selector string) host.Element {
	if e := d.Element(selector); e != nil {
		return e
	}
	return nil
}

// Element returns the concrete element matching selector, or nil.
func (d *Document) Element(selector string) *Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.find(selector)
	if n == nil {
		return nil
	}
	return d.wrap(n, selector)
}

// Viewport implements host.Document.
func (d *Document) Viewport() host.Viewport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view
}

// SetViewport replaces the viewport geometry.
func (d *Document) SetViewport(v host.Viewport) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.view = v
}

// Remove detaches the first node matching selector from the tree.
func (d *Document) Remove(selector string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.find(selector)
	if n == nil || n.Parent == nil {
		return false
	}
	n.Parent.RemoveChild(n)
	delete(d.elements, n)
	return true
}

// Insert parses fragment and appends it to the node matching parent.
func (d *Document) Insert(parent, fragment string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := d.find(parent)
	if p == nil {
		return fmt.Errorf("dom: parent %q not found", parent)
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), p)
	if err != nil {
		return fmt.Errorf("dom: parse fragment: %w", err)
	}
	for _, n := range nodes {
		p.AppendChild(n)
	}
	return nil
}

// Fire delivers ev to the subscribers of the element matching selector.
func (d *Document) Fire(selector string, ev host.Event) host.Result {
	e := d.Element(selector)
	if e == nil {
		return host.Result{}
	}
	return e.Fire(ev)
}

// Restyle changes an inline style from outside the engine and reports the
// change as an attribute mutation to the node and every subscribed
// ancestor, the way a subtree observer sees it.
func (d *Document) Restyle(selector, prop, value string) bool {
	e := d.Element(selector)
	if e == nil {
		return false
	}
	e.SetStyle(prop, value)

	m := &host.Mutation{Kind: host.MutationAttribute, TargetTag: e.node.Data, Attribute: "style"}
	for _, target := range d.ancestry(e.node) {
		target.Fire(host.Event{Kind: host.EventMutation, Mutation: m})
	}
	return true
}

func (d *Document) ancestry(n *html.Node) []*Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*Element
	for ; n != nil; n = n.Parent {
		if e, ok := d.elements[n]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Render writes the current tree as HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := html.Render(w, d.root); err != nil {
		return fmt.Errorf("dom: render: %w", err)
	}
	return nil
}
