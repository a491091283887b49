package bridge

import (
	"sync"
	"testing"

	"canvaszoom/internal/host"
)

type captured struct {
	mu     sync.Mutex
	frames []any
}

func (c *captured) out(msg any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, msg)
}

func (c *captured) styles() []StyleMsg {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []StyleMsg
	for _, f := range c.frames {
		if s, ok := f.(StyleMsg); ok {
			out = append(out, s)
		}
	}
	return out
}

func canvasLayout() *Layout {
	return &Layout{
		Viewport: host.Viewport{InnerWidth: 1280, InnerHeight: 800, ClientWidth: 1280},
		Elements: map[string]*ElementLayout{
			"#img2maskimg": {
				NodeLayout: NodeLayout{
					Selector: "#img2maskimg",
					Box: host.Box{
						Rect:        host.Rect{X: 100, Y: 50, Width: 512, Height: 512},
						OffsetWidth: 512, OffsetHeight: 512, ClientWidth: 512, ClientHeight: 512, ScrollWidth: 512,
					},
				},
				Parent:    &NodeLayout{Selector: "#wrap", Box: host.Box{OffsetWidth: 880}},
				Component: &NodeLayout{Selector: "#component-7", Box: host.Box{OffsetWidth: 900}},
				Surface:   &NodeLayout{Selector: "#img2maskimg canvas", Box: host.Box{OffsetWidth: 512}},
				Brush:     &BrushLayout{Max: 100, Value: 50},
			},
		},
	}
}

func TestDocumentQueryFollowsSnapshots(t *testing.T) {
	doc := NewDocument(nil)
	if doc.Query("#img2maskimg") != nil {
		t.Fatal("unknown element should not resolve")
	}
	doc.Apply(canvasLayout())
	a := doc.Element("#img2maskimg")
	if a == nil || doc.Element("#img2maskimg") != a {
		t.Fatal("element should be stable across queries")
	}
	if doc.Viewport().InnerWidth != 1280 {
		t.Fatalf("Viewport() = %+v", doc.Viewport())
	}

	doc.Apply(&Layout{Elements: map[string]*ElementLayout{"#img2maskimg": nil}})
	if doc.Known("#img2maskimg") {
		t.Fatal("null entry should forget the element")
	}
	if doc.Viewport().InnerWidth != 1280 {
		t.Fatal("zero viewport must keep the previous one")
	}
}

func TestElementWritesAreForwarded(t *testing.T) {
	var c captured
	doc := NewDocument(c.out)
	doc.Apply(canvasLayout())
	e := doc.Element("#img2maskimg")

	e.SetStyle(host.StyleTransform, "translate(5px, 6px) scale(2)")
	e.SetStyle(host.StyleZIndex, "")
	got := c.styles()
	if len(got) != 2 {
		t.Fatalf("frames = %+v", got)
	}
	if got[0].Selector != "#img2maskimg" || got[0].Property != host.StyleTransform || got[0].Value != "translate(5px, 6px) scale(2)" {
		t.Fatalf("first frame = %+v", got[0])
	}
	if got[1].Value != "" {
		t.Fatalf("removal should send an empty value: %+v", got[1])
	}

	// A stale snapshot does not revert the local style.
	doc.Apply(canvasLayout())
	if e.Style(host.StyleTransform) != "translate(5px, 6px) scale(2)" {
		t.Fatalf("style reverted to %q", e.Style(host.StyleTransform))
	}
}

func TestBoxRebasesSnapshotTransform(t *testing.T) {
	doc := NewDocument(nil)
	l := canvasLayout()
	el := l.Elements["#img2maskimg"]
	// Measured while scaled 2x about 0 0 and shifted by 10,20.
	el.Style = map[string]string{
		host.StyleTransform:       "translate(10px, 20px) scale(2)",
		host.StyleTransformOrigin: "0 0",
	}
	el.Box.Rect = host.Rect{X: 110, Y: 70, Width: 1024, Height: 1024}
	doc.Apply(l)

	e := doc.Element("#img2maskimg")
	b := e.Box()
	if b.Rect != (host.Rect{X: 110, Y: 70, Width: 1024, Height: 1024}) {
		t.Fatalf("unchanged style should reproduce the measured rect: %+v", b.Rect)
	}

	e.SetStyle(host.StyleTransform, "translate(0px, 0px) scale(1)")
	b = e.Box()
	if b.Rect != (host.Rect{X: 100, Y: 50, Width: 512, Height: 512}) {
		t.Fatalf("rebased rect = %+v", b.Rect)
	}

	e.SetStyle(host.StyleWidth, "600px")
	if b := e.Box(); b.OffsetWidth != 600 || b.Rect.Width != 600 {
		t.Fatalf("local width not applied: %+v", b)
	}
}

func TestContainerSurfaceBrush(t *testing.T) {
	var c captured
	doc := NewDocument(c.out)
	doc.Apply(canvasLayout())
	e := doc.Element("#img2maskimg")

	if got := e.Container(true); got == nil || got.Selector() != "#component-7" || got.Box().OffsetWidth != 900 {
		t.Fatalf("Container(true) = %v", got)
	}
	if got := e.Container(false); got == nil || got.Box().OffsetWidth != 880 {
		t.Fatalf("Container(false) = %v", got)
	}
	if got := e.Surface(); got == nil || got.Box().OffsetWidth != 512 {
		t.Fatalf("Surface() = %v", got)
	}

	brush := e.Brush()
	brush.Activate()
	brush.SetValue(55)
	if brush.Value() != 55 || brush.Max() != 100 {
		t.Fatalf("brush value %v max %v", brush.Value(), brush.Max())
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) != 2 {
		t.Fatalf("frames = %+v", c.frames)
	}
	if f := c.frames[0].(BrushMsg); !f.Activate || f.Selector != "#img2maskimg" {
		t.Fatalf("activate frame = %+v", f)
	}
	if f := c.frames[1].(BrushMsg); f.Activate || f.Value != 55 {
		t.Fatalf("value frame = %+v", f)
	}
}
