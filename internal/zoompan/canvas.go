package zoompan

import (
	"fmt"
	"log/slog"
	"time"

	"canvaszoom/internal/fit"
	"canvaszoom/internal/gesture"
	"canvaszoom/internal/host"
	"canvaszoom/internal/hotkeys"
	"canvaszoom/internal/overlap"
	"canvaszoom/internal/transform"
	"canvaszoom/internal/watcher"
	"canvaszoom/internal/workerutil"
)

// AutoExpandDelay is how long an auto-expanding canvas stays hidden while it
// is measured.
const AutoExpandDelay = 10 * time.Millisecond

// OriginTopLeft is the transform origin every managed element uses.
const OriginTopLeft = "0 0"

// Canvas is one element with zoom and pan attached. All methods must be
// called on the scheduler goroutine.
type Canvas struct {
	m        *Manager
	selector string
	elem     host.Element
	embedded bool
	handle   transform.Handle
	// panFrame keys the coalesced pan redraw. Managers can share one
	// scheduler, so the key must not depend on the selector alone.
	panFrame string

	overlap *overlap.Controller
	watcher *watcher.Watcher

	unsubscribe  func()
	cancelExpand func()
}

func newCanvas(m *Manager, selector string, elem host.Element, embedded bool) *Canvas {
	c := &Canvas{
		m:        m,
		selector: selector,
		elem:     elem,
		embedded: embedded,
		handle:   m.store.Create(),
		overlap:  overlap.New(elem, embedded),
	}
	c.panFrame = fmt.Sprintf("pan:%p", c)
	c.watcher = watcher.New(c, m.sched, m.cfg.Flags().AutoExpand)
	elem.SetStyle(host.StyleTransformOrigin, OriginTopLeft)
	c.unsubscribe = elem.Subscribe(host.HandlerFunc(c.HandleEvent))
	return c
}

// Selector returns the selector the canvas was attached with.
func (c *Canvas) Selector() string { return c.selector }

// Embedded reports whether the canvas lives inside a third-party component.
func (c *Canvas) Embedded() bool { return c.embedded }

// Element returns the managed element.
func (c *Canvas) Element() host.Element { return c.elem }

// State returns the current transform state.
func (c *Canvas) State() transform.State {
	st, _ := c.m.store.Get(c.handle)
	return st
}

// StyleWidth returns the element's inline width in pixels.
func (c *Canvas) StyleWidth() float64 {
	return host.ParsePixels(c.elem.Style(host.StyleWidth))
}

func (c *Canvas) update(fn func(*transform.State)) transform.State {
	c.m.store.Update(c.handle, fn)
	return c.State()
}

func (c *Canvas) apply(st transform.State) {
	c.elem.SetStyle(host.StyleTransform, st.CSS())
}

// HandleEvent handles input targeted at the element itself.
func (c *Canvas) HandleEvent(ev host.Event) host.Result {
	return workerutil.GuardValue("canvas "+c.selector, host.Result{}, func() host.Result {
		switch ev.Kind {
		case host.EventWheel:
			return c.wheel(ev)
		case host.EventPointerMove:
			c.pointerMove()
		case host.EventPointerLeave:
			c.m.leave(c)
		case host.EventMutation:
			if ev.Mutation != nil {
				c.watcher.Handle(*ev.Mutation)
			}
		}
		return host.Result{}
	})
}

func (c *Canvas) wheel(ev host.Event) host.Result {
	var res host.Result
	zoomKey := c.m.cfg.Binding(hotkeys.ActionZoom)
	if zoomKey.Held(ev.Mods) {
		res = host.Handled
		if zoomKey.Normalized() == hotkeys.ModAlt {
			c.m.altInteracted = true
		}
		c.zoom(ev)
	}

	adjustKey := c.m.cfg.Binding(hotkeys.ActionAdjust)
	if adjustKey.Held(ev.Mods) {
		res = host.Handled
		if adjustKey.Normalized() == hotkeys.ModAlt {
			c.m.altInteracted = true
		}
		c.AdjustBrush(ev.DeltaY)
	}
	return res
}

// zoom steps the zoom level around the cursor.
func (c *Canvas) zoom(ev host.Event) {
	rect := c.elem.Box().Rect
	cursorX := ev.ClientX - rect.X
	cursorY := ev.ClientY - rect.Y

	st := c.update(func(s *transform.State) {
		next := gesture.NextZoom(s.Zoom, gesture.ZoomIn(ev.DeltaY))
		s.PanX = gesture.ZoomAbout(s.PanX, cursorX, s.Zoom, next)
		s.PanY = gesture.ZoomAbout(s.PanY, cursorY, s.Zoom, next)
		s.Zoom = next
		s.FullScreen = false
		s.Zoomed = true
	})

	c.elem.SetStyle(host.StyleTransformOrigin, OriginTopLeft)
	c.apply(st)
	c.overlap.On()
	c.overlap.SetOverflow(true)
	c.m.rec.Gesture(GestureZoom)
	slog.Debug("[DEBUG-ZOOM] zoom", "selector", c.selector, "zoom", st.Zoom, "panX", st.PanX, "panY", st.PanY)
}

// AdjustBrush activates the brush control and moves its value one step,
// down for positive deltaY.
func (c *Canvas) AdjustBrush(deltaY float64) {
	brush := c.elem.Brush()
	if brush == nil {
		slog.Debug("[DEBUG-ZOOM] no brush control", "selector", c.selector)
		return
	}
	brush.Activate()
	brush.SetValue(gesture.NextBrushValue(brush.Value(), brush.Max(), deltaY, gesture.BrushPercent))
	c.m.rec.Gesture(GestureBrush)
}

// pan accumulates pointer movement and schedules one transform write for
// the next frame.
func (c *Canvas) pan(dx, dy float64) {
	c.update(func(s *transform.State) {
		factor := gesture.PanFactor(s.Zoom)
		s.PanX += dx * factor
		s.PanY += dy * factor
	})
	c.m.sched.RequestFrame(c.panFrame, func() {
		st, ok := c.m.store.Get(c.handle)
		if !ok {
			return
		}
		c.apply(st)
		c.overlap.On()
	})
	c.m.rec.Gesture(GesturePan)
}

func (c *Canvas) setPointerEvents(value string) {
	if c.elem.Style(host.StylePointerEvents) != value {
		c.elem.SetStyle(host.StylePointerEvents, value)
	}
}

func (c *Canvas) pointerMove() {
	c.m.activate(c)
	if c.m.cfg.Flags().AutoExpand {
		c.AutoExpand()
	}
	if c.embedded {
		c.CheckForOutBox()
	}
}

// Reset returns the canvas to zoom 1 and no pan. Wide canvases are then
// fitted to their container instead of overflowing it.
func (c *Canvas) Reset() {
	c.update(func(s *transform.State) {
		expanded := s.Expanded
		*s = transform.Identity()
		s.Expanded = expanded
	})
	c.overlap.SetOverflow(false)
	c.elem.SetStyle(host.StyleTransform, transform.NeutralCSS)
	c.overlap.Off()
	c.m.rec.Gesture(GestureReset)

	if c.oversized() {
		c.FitToElement()
		return
	}
	c.elem.SetStyle(host.StyleWidth, "")
}

// oversized reports whether both the surface and the element are wider than
// the space they are laid out in.
func (c *Canvas) oversized() bool {
	surface := c.elem.Surface()
	if surface == nil {
		return false
	}
	limit := fit.OversizeWidth
	if c.embedded {
		container := c.elem.Container(true)
		if container == nil {
			return false
		}
		limit = container.Box().OffsetWidth
	}
	return host.ParsePixels(surface.Style(host.StyleWidth)) > limit && c.StyleWidth() > limit
}

func (c *Canvas) origin() fit.Point {
	x, y := host.ParseOrigin(c.elem.Style(host.StyleTransformOrigin))
	return fit.Point{X: x, Y: y}
}

// FitToElement scales the canvas to fit its container.
func (c *Canvas) FitToElement() {
	c.elem.SetStyle(host.StyleTransform, transform.ClearCSS)
	container := c.elem.Container(c.embedded)
	if container == nil {
		slog.Debug("[DEBUG-ZOOM] fit skipped, no container", "selector", c.selector)
		return
	}
	cb := container.Box()
	eb := c.elem.Box()
	r := fit.ToContainer(
		fit.Size{Width: eb.OffsetWidth, Height: eb.OffsetHeight},
		fit.Size{Width: cb.ClientWidth, Height: cb.ClientHeight},
		c.origin(),
	)
	st := c.update(func(s *transform.State) {
		s.Zoom = r.Scale
		s.PanX = r.OffsetX
		s.PanY = r.OffsetY
		s.FullScreen = false
	})
	c.apply(st)
	c.overlap.Off()
	c.m.rec.Gesture(GestureFitElement)
}

// FitToScreen toggles fullscreen: the canvas is scaled to the viewport, or
// reset when it already is.
func (c *Canvas) FitToScreen() {
	surface := c.elem.Surface()
	if surface == nil {
		return
	}
	if sw := surface.Box().OffsetWidth; sw > fit.ScreenWidthThreshold || c.embedded {
		c.elem.SetStyle(host.StyleWidth, host.FormatPixels(sw+fit.SurfaceBorder))
	}
	c.overlap.SetOverflow(true)

	if c.State().FullScreen {
		c.Reset()
		return
	}

	c.elem.SetStyle(host.StyleTransform, transform.ClearCSS)
	vp := c.m.doc.Viewport()
	eb := c.elem.Box()
	r := fit.ToViewport(
		fit.Size{Width: eb.OffsetWidth, Height: eb.OffsetHeight},
		fit.Size{Width: vp.InnerWidth - vp.ScrollbarWidth(), Height: vp.InnerHeight},
		fit.Point{X: eb.Rect.X, Y: eb.Rect.Y},
		c.origin(),
	)
	st := c.update(func(s *transform.State) {
		s.Zoom = r.Scale
		s.PanX = r.OffsetX
		s.PanY = r.OffsetY
		s.FullScreen = true
	})
	c.apply(st)
	c.overlap.On()
	c.m.rec.Gesture(GestureFitScreen)
}

// ToggleOverlap flips the stacking state.
func (c *Canvas) ToggleOverlap() {
	c.overlap.Toggle()
	c.m.rec.Gesture(GestureOverlap)
}

// AutoExpand reveals a canvas whose content overflows horizontally: it is
// hidden, fitted to the screen, reset and shown again, once.
func (c *Canvas) AutoExpand() {
	if c.elem.Surface() == nil || c.cancelExpand != nil {
		return
	}
	if !c.elem.Box().HasHorizontalScrollbar() || c.State().Expanded {
		return
	}
	c.elem.SetStyle(host.StyleVisibility, "hidden")
	c.cancelExpand = c.m.sched.After(AutoExpandDelay, func() {
		c.cancelExpand = nil
		c.FitToScreen()
		c.Reset()
		c.elem.SetStyle(host.StyleVisibility, "visible")
		c.update(func(s *transform.State) { s.Expanded = true })
		c.m.rec.Gesture(GestureAutoExpand)
	})
}

// CheckForOutBox resets an embedded canvas that has grown wider than its
// component.
func (c *Canvas) CheckForOutBox() {
	container := c.elem.Container(true)
	if container == nil {
		return
	}
	overflowing := func() bool {
		return container.Box().OffsetWidth < c.elem.Box().OffsetWidth
	}

	if overflowing() && !c.State().Expanded {
		c.Reset()
		c.update(func(s *transform.State) { s.Expanded = true })
	}
	if overflowing() && c.State().Zoom == 1 {
		c.Reset()
	}
	st := c.State()
	if overflowing() && c.elem.Box().OffsetWidth*st.Zoom > container.Box().OffsetWidth && st.Zoom < 1 && !st.Zoomed {
		c.Reset()
	}
}

// ClearExpanded allows auto-expand to run again.
func (c *Canvas) ClearExpanded() {
	c.update(func(s *transform.State) { s.Expanded = false })
}

// ClearZoomed forgets that the user zoomed by wheel.
func (c *Canvas) ClearZoomed() {
	c.update(func(s *transform.State) { s.Zoomed = false })
}

// SyncPreview mirrors the canvas scale onto an aspect-ratio preview overlay
// when the canvas is wider than the page column.
func (c *Canvas) SyncPreview(preview host.Element) {
	preview.SetStyle(host.StyleTransform, "")
	if c.StyleWidth() <= fit.OversizeWidth {
		return
	}
	zoom := transform.ParseScale(c.elem.Style(host.StyleTransform))
	preview.SetStyle(host.StyleTransformOrigin, OriginTopLeft)
	preview.SetStyle(host.StyleTransform, fmt.Sprintf("scale(%s)", formatScale(zoom)))
}

func (c *Canvas) destroy() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	if c.cancelExpand != nil {
		c.cancelExpand()
		c.cancelExpand = nil
	}
	c.watcher.Stop()
	c.m.store.Delete(c.handle)
}
