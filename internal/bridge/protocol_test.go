package bridge

import (
	"strings"
	"testing"

	"canvaszoom/internal/host"
)

func TestPeekType(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		want    string
		wantErr bool
	}{
		{name: "event", frame: `{"type":"event","target":"#a"}`, want: TypeEvent},
		{name: "missing", frame: `{"target":"#a"}`, wantErr: true},
		{name: "number", frame: `{"type":3}`, wantErr: true},
		{name: "invalid", frame: `{"type":`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PeekType([]byte(tt.frame))
			if (err != nil) != tt.wantErr {
				t.Fatalf("PeekType() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("PeekType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPeekLayout(t *testing.T) {
	if !PeekLayout([]byte(`{"type":"layout","layout":{"viewport":{}}}`)) {
		t.Fatal("layout object not detected")
	}
	if PeekLayout([]byte(`{"type":"event"}`)) {
		t.Fatal("frame without layout reported one")
	}
}

func TestDecodeEvent(t *testing.T) {
	frame := `{"type":"event","target":"#img2maskimg","event":{"kind":"wheel","mods":{"alt":true},"clientX":10,"deltaY":-100},` +
		`"layout":{"viewport":{"innerWidth":1280,"innerHeight":800,"clientWidth":1280},` +
		`"elements":{"#img2maskimg":{"selector":"#img2maskimg","box":{"rect":{"x":1,"y":2,"width":3,"height":4}},` +
		`"surface":{"selector":"#s","box":{"offsetWidth":512}},"brush":{"max":100,"value":20}}}}}`
	msg, err := Decode([]byte(frame))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	ev, ok := msg.(*EventMsg)
	if !ok {
		t.Fatalf("Decode() = %T, want *EventMsg", msg)
	}
	if ev.Event.Kind != host.EventWheel || !ev.Event.Mods.Alt || ev.Event.DeltaY != -100 {
		t.Fatalf("event = %+v", ev.Event)
	}
	el := ev.Layout.Elements["#img2maskimg"]
	if el == nil || el.Box.Rect.Width != 3 || el.Surface.Box.OffsetWidth != 512 || el.Brush.Value != 20 {
		t.Fatalf("layout = %+v", el)
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"subscribe"}`))
	if err == nil || !strings.Contains(err.Error(), "unknown frame type") {
		t.Fatalf("Decode() error = %v", err)
	}
	if _, err := Decode([]byte(`{"type":"attach","embedded":"yes"}`)); err == nil {
		t.Fatal("Decode() should reject a mistyped field")
	}
}
