// Package fit computes the scale and offset that inscribe an element in a
// target box without distortion.
package fit

import "canvaszoom/internal/transform"

// ContainerVerticalDivisor biases a container fit upwards, leaving room for
// the controls rendered below the canvas.
const ContainerVerticalDivisor = 2.5

// OversizeWidth is the inline width above which a standalone canvas no
// longer fits the page column and is fitted to its container instead.
const OversizeWidth = 865.0

// ScreenWidthThreshold is the surface width above which a fullscreen fit
// first widens the element to the surface.
const ScreenWidthThreshold = 862.0

// SurfaceBorder is added to the surface width when widening.
const SurfaceBorder = 2.0

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64
	Height float64
}

// Point is a position in pixels.
type Point struct {
	X float64
	Y float64
}

// Result is a computed fit.
type Result struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
}

// Scale returns min(target.W/elem.W, target.H/elem.H) limited to the zoom
// bounds, so offsets derived from it match the rendered scale. Degenerate
// element sizes yield 1.
func Scale(elem, target Size) float64 {
	if elem.Width <= 0 || elem.Height <= 0 {
		return 1
	}
	return transform.ClampZoom(min(target.Width/elem.Width, target.Height/elem.Height))
}

// ToContainer fits elem into its container. origin is the element's
// transform origin.
func ToContainer(elem, container Size, origin Point) Result {
	scale := Scale(elem, container)
	return Result{
		Scale:   scale,
		OffsetX: (container.Width-elem.Width*scale)/2 - origin.X*(1-scale),
		OffsetY: (container.Height-elem.Height*scale)/ContainerVerticalDivisor - origin.Y*(1-scale),
	}
}

// ToViewport fits elem into the viewport. position is the element's current
// viewport coordinate, subtracted so the translate lands it centered on
// screen.
func ToViewport(elem, viewport Size, position, origin Point) Result {
	scale := Scale(elem, viewport)
	return Result{
		Scale:   scale,
		OffsetX: (viewport.Width-elem.Width*scale)/2 - position.X - origin.X*(1-scale),
		OffsetY: (viewport.Height-elem.Height*scale)/2 - position.Y - origin.Y*(1-scale),
	}
}
