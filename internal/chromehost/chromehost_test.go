package chromehost

import (
	"context"
	"net/url"
	"os/exec"
	"slices"
	"testing"
	"time"

	"github.com/chromedp/chromedp"

	"canvaszoom/internal/hotkeys"
	"canvaszoom/internal/host"
	"canvaszoom/internal/loop"
)

func TestCallEncodesArguments(t *testing.T) {
	tests := []struct {
		name string
		fn   string
		args []any
		want string
	}{
		{name: "no args", fn: "viewport", want: "window.__canvaszoom.viewport()"},
		{name: "selector quoting", fn: "resolve", args: []any{`canvas[key="interface"]`, "x"},
			want: `window.__canvaszoom.resolve("canvas[key=\"interface\"]", "x")`},
		{name: "number", fn: "brush", args: []any{"#a|brush", "set", 55.5},
			want: `window.__canvaszoom.brush("#a|brush", "set", 55.5)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := call(tt.fn, tt.args...)
			if err != nil {
				t.Fatalf("call() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("call() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPageConfigFromBindings(t *testing.T) {
	pc := newPageConfig(hotkeys.DefaultConfig())
	if pc.Zoom != hotkeys.ModAlt || pc.Adjust != hotkeys.ModCtrl {
		t.Fatalf("modifiers = %q/%q", pc.Zoom, pc.Adjust)
	}
	for _, code := range []string{"KeyR", "KeyS", "KeyF", "KeyO", "KeyQ", "KeyW"} {
		if !slices.Contains(pc.Codes, code) {
			t.Fatalf("codes %v missing %s", pc.Codes, code)
		}
	}
}

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name    string
		raw      string
		target   string
		kind     host.EventKind
		mutation host.MutationKind
		wantErr  bool
	}{
		{name: "element wheel", raw: `{"target":"#img","event":{"kind":"wheel","mods":{"alt":true},"deltaY":-100}}`,
			target: "#img", kind: host.EventWheel},
		{name: "document key", raw: `{"target":"","event":{"kind":"keydown","code":"KeyR"}}`, kind: host.EventKeyDown},
		{name: "image removed", raw: `{"target":"#img","event":{"kind":"mutation","mods":{},"mutation":{"kind":"image-replaced"}}}`,
			target: "#img", kind: host.EventMutation, mutation: host.MutationImageReplaced},
		{name: "tab switch", raw: `{"target":"","event":{"kind":"mutation","mods":{},"mutation":{"kind":"tab-switched"}}}`,
			kind: host.EventMutation, mutation: host.MutationTabSwitched},
		{name: "no kind", raw: `{"target":"#img","event":{}}`, wantErr: true},
		{name: "garbage", raw: `{"target":`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := decodePayload(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodePayload() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if p.Target != tt.target || p.Event.Kind != tt.kind {
				t.Fatalf("payload = %+v", p)
			}
			if tt.mutation != "" && (p.Event.Mutation == nil || p.Event.Mutation.Kind != tt.mutation) {
				t.Fatalf("mutation = %+v, want %s", p.Event.Mutation, tt.mutation)
			}
		})
	}
}

func TestDeliverRoutesOnScheduler(t *testing.T) {
	sched := loop.NewManual()
	doc := newDocument(context.Background(), sched)

	var docEvents, elemEvents []host.EventKind
	doc.SetHandler(host.HandlerFunc(func(ev host.Event) host.Result {
		docEvents = append(docEvents, ev.Kind)
		return host.Result{}
	}))
	e := doc.element("#img", "#img")
	e.handlers[0] = host.HandlerFunc(func(ev host.Event) host.Result {
		elemEvents = append(elemEvents, ev.Kind)
		return host.Handled
	})

	doc.deliver(payload{Target: "", Event: host.Event{Kind: host.EventKeyDown}})
	doc.deliver(payload{Target: "#img", Event: host.Event{Kind: host.EventWheel}})
	doc.deliver(payload{Target: "#gone", Event: host.Event{Kind: host.EventClick}})
	if len(docEvents)+len(elemEvents) != 0 {
		t.Fatal("events must wait for the scheduler")
	}
	sched.RunPending()

	if !slices.Equal(docEvents, []host.EventKind{host.EventKeyDown}) {
		t.Fatalf("document events = %v", docEvents)
	}
	if !slices.Equal(elemEvents, []host.EventKind{host.EventWheel}) {
		t.Fatalf("element events = %v", elemEvents)
	}
	if doc.element("#img", "#img") != e {
		t.Fatal("element wrappers must be stable per key")
	}
}

const browserPage = `<!doctype html><html><body style="margin:0">
<div id="component-3" style="width:900px"><div id="wrap" style="width:880px">
<div id="img2maskimg" style="width:512px;height:256px">
<canvas key="interface" width="512" height="256"></canvas>
<input type="range" aria-label="Brush radius" max="100" value="50">
<button aria-label="Remove Image">x</button>
<input type="file" accept="image/*">
</div></div></div>
<div class="tab-nav"><button id="tab-sketch">Sketch</button></div></body></html>`

func findBrowser(t *testing.T) string {
	t.Helper()
	for _, name := range []string{"headless-shell", "chromium", "chromium-browser", "google-chrome"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	t.Skip("no Chrome or Chromium binary on PATH")
	return ""
}

func TestBrowserRoundTrip(t *testing.T) {
	execPath := findBrowser(t)
	l := loop.New(0)
	l.Start()
	t.Cleanup(l.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	b, err := Launch(ctx, Options{ExecPath: execPath}, l)
	if err != nil {
		t.Skipf("browser did not start: %v", err)
	}
	t.Cleanup(b.Close)
	if err := b.Navigate("data:text/html," + url.PathEscape(browserPage)); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}

	type observed struct {
		found, missing    bool
		origin            string
		offsetWidth       float64
		container         string
		surface, hasBrush bool
		brushMax, brush   float64
		innerWidth        float64
	}
	var got observed
	doc := b.Document()
	err = l.Do(ctx, func() {
		el := doc.Query("#img2maskimg")
		got.missing = doc.Query("#missing") == nil
		if el == nil {
			return
		}
		got.found = true
		el.SetStyle(host.StyleTransformOrigin, "0px 0px")
		got.origin = el.Style(host.StyleTransformOrigin)
		got.offsetWidth = el.Box().OffsetWidth
		if c := el.Container(true); c != nil {
			got.container = c.Selector()
		}
		got.surface = el.Surface() != nil
		if brush := el.Brush(); brush != nil {
			got.hasBrush = true
			got.brushMax = brush.Max()
			brush.SetValue(55)
			got.brush = brush.Value()
		}
		got.innerWidth = doc.Viewport().InnerWidth
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	want := observed{
		found: true, missing: true, origin: "0px 0px", offsetWidth: 512,
		container: "#component-3", surface: true, hasBrush: true,
		brushMax: 100, brush: 55, innerWidth: got.innerWidth,
	}
	if got != want || got.innerWidth == 0 {
		t.Fatalf("observed %+v, want %+v", got, want)
	}
}

func TestBrowserReportsImageAndTabClicks(t *testing.T) {
	execPath := findBrowser(t)
	l := loop.New(0)
	l.Start()
	t.Cleanup(l.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	b, err := Launch(ctx, Options{ExecPath: execPath}, l)
	if err != nil {
		t.Skipf("browser did not start: %v", err)
	}
	t.Cleanup(b.Close)
	if err := b.Navigate("data:text/html," + url.PathEscape(browserPage)); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}

	type report struct {
		target string
		kind   host.MutationKind
	}
	reports := make(chan report, 16)
	collect := func(target string) host.Handler {
		return host.HandlerFunc(func(ev host.Event) host.Result {
			if ev.Kind == host.EventMutation && ev.Mutation != nil && ev.Mutation.Kind != host.MutationAttribute {
				reports <- report{target: target, kind: ev.Mutation.Kind}
			}
			return host.Result{}
		})
	}
	doc := b.Document()
	doc.SetHandler(collect("document"))
	var attached bool
	err = l.Do(ctx, func() {
		if el := doc.Query("#img2maskimg"); el != nil {
			el.Subscribe(collect("element"))
			attached = true
		}
	})
	if err != nil || !attached {
		t.Fatalf("attach failed: attached=%v err=%v", attached, err)
	}

	clicks := []struct {
		selector string
		want     report
	}{
		{selector: removeImageSelector, want: report{target: "element", kind: host.MutationImageReplaced}},
		{selector: fileInputSelector, want: report{target: "element", kind: host.MutationImageReplaced}},
		{selector: "#tab-sketch", want: report{target: "document", kind: host.MutationTabSwitched}},
	}
	for _, c := range clicks {
		script := "document.querySelector('" + c.selector + "').dispatchEvent(new MouseEvent('click', { bubbles: true }))"
		var dispatched bool
		if err := chromedp.Run(b.ctx, chromedp.Evaluate(script, &dispatched)); err != nil {
			t.Fatalf("click %s: %v", c.selector, err)
		}
		select {
		case got := <-reports:
			if got != c.want {
				t.Fatalf("click %s reported %+v, want %+v", c.selector, got, c.want)
			}
		case <-ctx.Done():
			t.Fatalf("click %s: no mutation reported", c.selector)
		}
	}
}
