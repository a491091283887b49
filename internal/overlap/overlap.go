// Package overlap raises a canvas above its neighbours while it is zoomed and
// lets embedded canvases spill out of their container.
package overlap

import "canvaszoom/internal/host"

// z-index values for the two stacking states.
const (
	ZIndexBase     = "0"
	ZIndexElevated = "998"
)

// Overflow values written to embedded elements.
const (
	OverflowVisible = "visible"
	OverflowHidden  = "hidden"
)

// Controller manages the stacking and overflow styles of one element.
type Controller struct {
	elem     host.Element
	embedded bool
}

// New returns a controller for elem.
func New(elem host.Element, embedded bool) *Controller {
	return &Controller{elem: elem, embedded: embedded}
}

// Elevated reports whether the element currently sits above its neighbours.
func (c *Controller) Elevated() bool {
	return c.elem.Style(host.StyleZIndex) == ZIndexElevated
}

// Toggle flips the stacking state.
func (c *Controller) Toggle() {
	if c.Elevated() {
		c.Off()
		return
	}
	c.On()
}

// On elevates the element.
func (c *Controller) On() {
	c.elem.SetStyle(host.StyleZIndex, ZIndexElevated)
}

// Off returns the element to the base layer.
func (c *Controller) Off() {
	c.elem.SetStyle(host.StyleZIndex, ZIndexBase)
}

// SetOverflow lets the element overflow its container when visible is true.
// Standalone elements are left alone.
func (c *Controller) SetOverflow(visible bool) {
	if !c.embedded {
		return
	}
	if visible {
		c.elem.SetStyle(host.StyleOverflow, OverflowVisible)
		return
	}
	c.elem.SetStyle(host.StyleOverflow, OverflowHidden)
}
