package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestResolveText(t *testing.T) {
	path := writeOptions(t, conflictingOptions)
	out, err := execute(t, "", "resolve", "--config", path)
	if err != nil {
		t.Fatalf("resolve error = %v", err)
	}
	for _, want := range []string{"ACTION", "canvas_hotkey_reset", "KeyR", "show_tooltip=true", "tooltip:", "warning:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestResolveJSON(t *testing.T) {
	path := writeOptions(t, conflictingOptions+"canvas_show_tooltip: false\n")
	out, err := execute(t, "", "resolve", "--config", path, "--json")
	if err != nil {
		t.Fatalf("resolve error = %v", err)
	}
	var got resolved
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("unmarshal %q: %v", out, err)
	}
	if got.Bindings["canvas_hotkey_overlap"] != "KeyO" {
		t.Fatalf("bindings = %+v", got.Bindings)
	}
	if got.Flags.ShowTooltip || len(got.Tooltip) != 0 {
		t.Fatalf("tooltip should be off: %+v", got)
	}
	if len(got.Warnings) != 1 {
		t.Fatalf("warnings = %v", got.Warnings)
	}
}

const replayPage = `<html data-inner-width="1400" data-inner-height="900" data-client-width="1385"><body>
<div id="img2maskimg" data-x="100" data-y="50" data-width="512" data-height="512">
<canvas key="interface" data-width="512" data-height="512"></canvas>
</div></body></html>`

const replayScript = `steps:
  - attach: "#img2maskimg"
  - event: {target: "#img2maskimg", kind: wheel, mods: [alt], x: 356, y: 306, deltaY: -100}
`

func TestReplayFromStdin(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "page.html")
	if err := os.WriteFile(page, []byte(replayPage), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, replayScript, "replay", page)
	if err != nil {
		t.Fatalf("replay error = %v", err)
	}
	if !strings.Contains(out, "#img2maskimg") || !strings.Contains(out, "1.2") {
		t.Fatalf("summary missing the zoomed canvas:\n%s", out)
	}
	if !strings.Contains(out, "handled 1 events") {
		t.Fatalf("summary missing handled count:\n%s", out)
	}
}

func TestReplayRender(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "page.html")
	script := filepath.Join(dir, "script.yaml")
	if err := os.WriteFile(page, []byte(replayPage), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(script, []byte(replayScript), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "", "replay", page, script, "--render")
	if err != nil {
		t.Fatalf("replay error = %v", err)
	}
	if !strings.Contains(out, "transform-origin: 0 0") {
		t.Fatalf("rendered HTML missing engine styles:\n%s", out)
	}
}

func TestReplayRejectsBadScript(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "page.html")
	if err := os.WriteFile(page, []byte(replayPage), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "steps:\n  - {}\n", "replay", page, "-"); err == nil {
		t.Fatal("replay should reject an empty step")
	}
	if _, err := execute(t, "", "replay"); err == nil {
		t.Fatal("replay without a page should fail")
	}
}
