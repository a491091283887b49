// Package transform holds the per-element zoom and pan state and renders it
// as a CSS transform.
package transform

import (
	"fmt"
	"regexp"
	"strconv"
)

// Zoom bounds.
const (
	MinZoom = 0.1
	MaxZoom = 15.0
)

// State is the transform of one managed element.
type State struct {
	Zoom float64 `json:"zoom"`
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
	// Zoomed is set by wheel zoom and cleared by a reset.
	Zoomed bool `json:"zoomed"`
	// Expanded records that the one-time auto-expand already ran.
	Expanded bool `json:"expanded"`
	// FullScreen is set while the element is fitted to the viewport.
	FullScreen bool `json:"fullScreen"`
}

// Identity returns the neutral state.
func Identity() State {
	return State{Zoom: 1}
}

// ClampZoom limits z to [MinZoom, MaxZoom].
func ClampZoom(z float64) float64 {
	return max(MinZoom, min(z, MaxZoom))
}

// CSS renders the state as translate-then-scale, the order used for every
// zoomed or panned write.
func (s State) CSS() string {
	return fmt.Sprintf("translate(%spx, %spx) scale(%s)",
		formatNumber(s.PanX), formatNumber(s.PanY), formatNumber(s.Zoom))
}

// NeutralCSS is the transform written by a reset.
const NeutralCSS = "scale(1) translate(0px, 0px)"

// ClearCSS is the transform written before measuring for a fit.
const ClearCSS = "translate(0px, 0px) scale(1)"

var scalePattern = regexp.MustCompile(`scale\(([-+]?[0-9]*\.?[0-9]+)\)`)

// ParseScale extracts the scale factor from a transform string, returning 1
// when none is present.
func ParseScale(css string) float64 {
	m := scalePattern.FindStringSubmatch(css)
	if len(m) < 2 {
		return 1
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 1
	}
	return v
}

var translatePattern = regexp.MustCompile(`translate\(\s*([-+]?[0-9]*\.?[0-9]+(?:e[-+]?[0-9]+)?)px\s*,\s*([-+]?[0-9]*\.?[0-9]+(?:e[-+]?[0-9]+)?)px\s*\)`)

// ParseTranslate extracts the translate offsets from a transform string,
// returning zeros when none is present.
func ParseTranslate(css string) (x, y float64) {
	m := translatePattern.FindStringSubmatch(css)
	if len(m) < 3 {
		return 0, 0
	}
	x, _ = strconv.ParseFloat(m[1], 64)
	y, _ = strconv.ParseFloat(m[2], 64)
	return x, y
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
