package dom

import (
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"canvaszoom/internal/hotkeys"
)

// Tooltip class names.
const (
	TooltipClass        = "canvas-tooltip"
	TooltipInfoClass    = "canvas-tooltip-info"
	TooltipContentClass = "canvas-tooltip-content"
)

var imageContainerSel = cascadia.MustCompile(".image-container")

// RenderTooltip appends the hotkey tooltip to the element's image
// container. It reports false when the element has no image container or
// already carries a tooltip.
func RenderTooltip(e *Element, lines []hotkeys.TooltipLine) bool {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	target := cascadia.Query(e.node, imageContainerSel)
	if target == nil {
		return false
	}
	if cascadia.Query(target, cascadia.MustCompile("."+TooltipClass)) != nil {
		return false
	}

	tooltip := newElement(atom.Div, TooltipClass)
	tooltip.AppendChild(newElement(atom.I, TooltipInfoClass))
	content := newElement(atom.Div, TooltipContentClass)
	for _, line := range lines {
		p := newElement(atom.P, "")
		b := newElement(atom.B, "")
		b.AppendChild(&html.Node{Type: html.TextNode, Data: line.Key})
		p.AppendChild(b)
		p.AppendChild(&html.Node{Type: html.TextNode, Data: " - " + line.Action})
		content.AppendChild(p)
	}
	tooltip.AppendChild(content)
	target.AppendChild(tooltip)
	return true
}

func newElement(a atom.Atom, class string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	if class != "" {
		n.Attr = []html.Attribute{{Key: "class", Val: class}}
	}
	return n
}
