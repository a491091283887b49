package dom

import (
	"strings"
	"testing"

	"canvaszoom/internal/hotkeys"
	"canvaszoom/internal/host"
	"canvaszoom/internal/loop"
	"canvaszoom/internal/testutil"
	"canvaszoom/internal/transform"
	"canvaszoom/internal/zoompan"
)

const page = `<!DOCTYPE html>
<html data-inner-width="1400" data-inner-height="900" data-client-width="1385">
<body>
<div id="component-12" data-width="900" data-height="700">
  <div class="wrap" data-width="880" data-height="680">
    <div id="img2maskimg" data-x="100" data-y="50" data-width="512" data-height="512" style="width: 512px; color: red !important;">
      <div class="image-container">
        <canvas key="interface" data-width="512" data-height="512"></canvas>
      </div>
      <input type="range" aria-label="Brush radius" max="100" value="50">
    </div>
  </div>
</div>
<div id="plain" data-width="200" data-height="100"></div>
</body>
</html>`

func mustParse(t *testing.T) *Document {
	t.Helper()
	doc, err := ParseString(page)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	return doc
}

func TestViewportFromAttributes(t *testing.T) {
	doc := mustParse(t)
	v := doc.Viewport()
	if v.InnerWidth != 1400 || v.InnerHeight != 900 || v.ClientWidth != 1385 {
		t.Fatalf("Viewport() = %+v", v)
	}
	if v.ScrollbarWidth() != 15 {
		t.Fatalf("ScrollbarWidth() = %v, want 15", v.ScrollbarWidth())
	}
}

func TestQueryReturnsStableElements(t *testing.T) {
	doc := mustParse(t)
	a := doc.Element("#img2maskimg")
	b := doc.Element("div#img2maskimg")
	if a == nil || a != b {
		t.Fatalf("same node should map to the same element: %p %p", a, b)
	}
	if doc.Query("#missing") != nil {
		t.Fatal("Query(#missing) should return a nil interface")
	}
	if doc.Query("[[[") != nil {
		t.Fatal("invalid selector should not match")
	}
}

func TestStyleRoundTrip(t *testing.T) {
	doc := mustParse(t)
	e := doc.Element("#img2maskimg")

	if got := e.Style("width"); got != "512px" {
		t.Fatalf("Style(width) = %q, want 512px", got)
	}
	e.SetStyle(host.StyleTransform, "translate(10px, 20px) scale(1.5)")
	if got := e.Style(host.StyleTransform); got != "translate(10px, 20px) scale(1.5)" {
		t.Fatalf("Style(transform) = %q", got)
	}

	e.SetStyle("width", "600px")
	if got := e.Style("width"); got != "600px" {
		t.Fatalf("Style(width) after update = %q", got)
	}
	attr := e.Attr("style")
	if !strings.HasPrefix(attr, "width: 600px;") {
		t.Fatalf("property order not kept: %q", attr)
	}
	if !strings.Contains(attr, "!important") {
		t.Fatalf("important flag lost: %q", attr)
	}

	e.SetStyle("width", "")
	e.SetStyle("color", "")
	e.SetStyle(host.StyleTransform, "")
	if got := e.Attr("style"); got != "" {
		t.Fatalf("style attribute should be removed, got %q", got)
	}
}

func TestParseInlineFallback(t *testing.T) {
	decls := parseInline("z-index: 998; overflow:visible")
	if lookup(decls, "z-index") != "998" || lookup(decls, "overflow") != "visible" {
		t.Fatalf("parseInline() = %+v", decls)
	}
	if lookup(parseInline(""), "width") != "" {
		t.Fatal("empty style should yield no declarations")
	}
}

func TestBoxFollowsTransform(t *testing.T) {
	doc := mustParse(t)
	e := doc.Element("#img2maskimg")
	e.SetStyle("width", "")

	b := e.Box()
	if b.Rect.X != 100 || b.Rect.Y != 50 || b.Rect.Width != 512 || b.OffsetWidth != 512 {
		t.Fatalf("Box() = %+v", b)
	}

	e.SetStyle(host.StyleTransformOrigin, "0 0")
	e.SetStyle(host.StyleTransform, "translate(-20px, 10px) scale(2)")
	b = e.Box()
	if b.Rect.X != 80 || b.Rect.Y != 60 || b.Rect.Width != 1024 {
		t.Fatalf("transformed Box() = %+v", b)
	}
	if b.OffsetWidth != 512 {
		t.Fatalf("offset width must ignore the transform: %v", b.OffsetWidth)
	}
}

func TestContainerSurfaceBrush(t *testing.T) {
	doc := mustParse(t)
	e := doc.Element("#img2maskimg")

	if c := e.Container(true); c == nil || c.Selector() != "#component-12" {
		t.Fatalf("embedded container = %v", c)
	}
	if c := e.Container(false); c == nil || c.Box().OffsetWidth != 880 {
		t.Fatalf("standalone container = %v", c)
	}
	if e.Surface() == nil || e.Surface().Box().Rect.Width != 512 {
		t.Fatal("surface not found")
	}

	brush := e.Brush()
	if brush == nil || brush.Max() != 100 || brush.Value() != 50 {
		t.Fatalf("brush = %v", brush)
	}
	brush.Activate()
	brush.SetValue(55)
	input := doc.Element(`input[aria-label='Brush radius']`)
	if input.Attr("value") != "55" || input.Attr(AttrClicks) != "1" {
		t.Fatalf("brush attributes = value %q clicks %q", input.Attr("value"), input.Attr(AttrClicks))
	}

	plain := doc.Element("#plain")
	if plain.Surface() != nil || plain.Brush() != nil {
		t.Fatal("plain element has no surface or brush")
	}
	if plain.Container(true) != nil {
		t.Fatal("plain element has no component wrapper")
	}
}

func TestRestyleNotifiesAncestors(t *testing.T) {
	doc := mustParse(t)
	var got []host.Mutation
	doc.Element("#img2maskimg").Subscribe(host.HandlerFunc(func(ev host.Event) host.Result {
		if ev.Mutation != nil {
			got = append(got, *ev.Mutation)
		}
		return host.Result{}
	}))

	if !doc.Restyle(`canvas[key="interface"]`, "width", "400px") {
		t.Fatal("Restyle() = false")
	}
	if len(got) != 1 || got[0].TargetTag != "canvas" || got[0].Attribute != "style" {
		t.Fatalf("mutations = %+v", got)
	}
	if doc.Restyle("#missing", "width", "1px") {
		t.Fatal("Restyle on a missing element should report false")
	}
}

func TestInsertRemove(t *testing.T) {
	doc := mustParse(t)
	if err := doc.Insert("body", `<div id="late" data-width="10" data-height="10"></div>`); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if doc.Query("#late") == nil {
		t.Fatal("inserted element not found")
	}
	if !doc.Remove("#late") || doc.Query("#late") != nil {
		t.Fatal("Remove() did not detach the element")
	}
	if err := doc.Insert("#nope", "<p></p>"); err == nil {
		t.Fatal("Insert into a missing parent should fail")
	}
}

func TestRenderTooltip(t *testing.T) {
	doc := mustParse(t)
	e := doc.Element("#img2maskimg")
	lines := hotkeys.DefaultConfig().Tooltip()

	if !RenderTooltip(e, lines) {
		t.Fatal("RenderTooltip() = false")
	}
	if RenderTooltip(e, lines) {
		t.Fatal("second RenderTooltip() should be a no-op")
	}
	var out strings.Builder
	if err := doc.Render(&out); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	html := out.String()
	if strings.Count(html, `class="canvas-tooltip"`) != 1 {
		t.Fatalf("tooltip count wrong:\n%s", html)
	}
	if !strings.Contains(html, "<p><b>R</b> - Reset zoom</p>") {
		t.Fatalf("reset row missing:\n%s", html)
	}
	if RenderTooltip(doc.Element("#plain"), lines) {
		t.Fatal("element without image container should not get a tooltip")
	}
}

func TestEngineDrivesDocument(t *testing.T) {
	doc := mustParse(t)
	sched := loop.NewManual()
	m := zoompan.NewManager(doc, sched, hotkeys.DefaultConfig())
	if m.ApplyZoomAndPan("#img2maskimg", false) == nil {
		t.Fatal("ApplyZoomAndPan() = nil")
	}

	res := doc.Fire("#img2maskimg", host.Event{
		Kind:    host.EventWheel,
		Mods:    host.Modifiers{Alt: true},
		ClientX: 356,
		ClientY: 306,
		DeltaY:  -100,
	})
	if !res.PreventDefault {
		t.Fatal("zoom wheel should be handled")
	}

	e := doc.Element("#img2maskimg")
	css := e.Style(host.StyleTransform)
	if z := transform.ParseScale(css); !testutil.ApproxEqual(z, 1.2, 1e-9) {
		t.Fatalf("scale = %v from %q", z, css)
	}
	x, y := transform.ParseTranslate(css)
	if !testutil.ApproxEqual(x, -51.2, 1e-6) || !testutil.ApproxEqual(y, -51.2, 1e-6) {
		t.Fatalf("translate = %v,%v from %q", x, y, css)
	}
	if e.Style(host.StyleTransformOrigin) != "0 0" {
		t.Fatalf("transform-origin = %q", e.Style(host.StyleTransformOrigin))
	}
}
