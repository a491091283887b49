// Package gesture turns raw wheel, key and pointer input into zoom, pan and
// brush deltas. It holds no state; the canvas applies the results.
package gesture

import (
	"canvaszoom/internal/host"
	"canvaszoom/internal/transform"
)

// Zoom step tiers. The step grows with the zoom level so deep zooms do not
// take dozens of wheel ticks.
const (
	ZoomStepLow  = 0.2
	ZoomStepMid  = 0.6
	ZoomStepHigh = 0.9

	// ZoomTierMid and ZoomTierHigh are the exclusive lower bounds of the mid
	// and high tiers.
	ZoomTierMid  = 2.0
	ZoomTierHigh = 7.0
)

// Pan speed multipliers applied to pointer movement.
const (
	PanSpeed     = 2.0
	PanSpeedFast = 3.5
	// PanSpeedBreakpoint is the zoom level above which PanSpeedFast applies.
	PanSpeedBreakpoint = 8.0
)

// Brush adjustment.
const (
	// BrushPercent is the share of the control range changed per wheel tick.
	BrushPercent = 5.0
	// BrushDefaultMax is used when the control reports no maximum.
	BrushDefaultMax = 100.0
	// BrushKeyDelta is the synthetic wheel delta used by the brush hotkeys;
	// positive shrinks.
	BrushKeyDelta = 10.0
)

// ZoomStep returns the zoom increment for the current level.
func ZoomStep(zoom float64) float64 {
	switch {
	case zoom > ZoomTierHigh:
		return ZoomStepHigh
	case zoom > ZoomTierMid:
		return ZoomStepMid
	default:
		return ZoomStepLow
	}
}

// ZoomIn reports whether a wheel delta zooms in. Scrolling down (positive
// delta) zooms out.
func ZoomIn(deltaY float64) bool {
	return !(deltaY > 0)
}

// NextZoom applies one wheel tick to zoom and clamps the result.
func NextZoom(zoom float64, in bool) float64 {
	step := ZoomStep(zoom)
	if !in {
		step = -step
	}
	return transform.ClampZoom(zoom + step)
}

// ZoomAbout returns the pan offset that keeps the content point under cursor
// fixed when zoom changes from oldZoom to newZoom. cursor is relative to the
// element's transformed bounding box.
func ZoomAbout(pan, cursor, oldZoom, newZoom float64) float64 {
	if oldZoom == 0 {
		return pan
	}
	return pan + cursor - cursor*newZoom/oldZoom
}

// PanFactor returns the pointer-movement multiplier for zoom.
func PanFactor(zoom float64) float64 {
	if zoom > PanSpeedBreakpoint {
		return PanSpeedFast
	}
	return PanSpeed
}

// NextBrushValue moves value by percent of maxValue, down for positive
// deltaY, and clamps to [0, maxValue]. A non-positive maxValue is treated as
// BrushDefaultMax.
func NextBrushValue(value, maxValue, deltaY, percent float64) float64 {
	if maxValue <= 0 {
		maxValue = BrushDefaultMax
	}
	change := maxValue * (percent / 100)
	if deltaY > 0 {
		change = -change
	}
	return max(0, min(value+change, maxValue))
}

// IsPassthrough reports key combinations the canvas never intercepts:
// copy, paste and refresh.
func IsPassthrough(ev host.Event) bool {
	if ev.Code == "F5" {
		return true
	}
	return ev.Mods.Ctrl && (ev.Code == "KeyV" || ev.Code == "KeyC")
}

// IgnoreTarget reports whether a key event aimed at a text field must be left
// alone. With blurPrompt enabled, shortcuts fire even while typing.
func IgnoreTarget(ev host.Event, blurPrompt bool) bool {
	return !blurPrompt && ev.TextInput
}

// StartsDrag reports whether a move-key keydown may begin panning: any
// Ctrl or Meta chord belongs to the browser.
func StartsDrag(ev host.Event) bool {
	return !ev.Mods.Ctrl && !ev.Mods.Meta
}
