// Package bridge drives canvases living in a browser page over a websocket.
//
// # Text frame protocol
//
// Every frame is a JSON object with a "type" field.
//
// Client to server:
//
//   - hello: announces the page; answered with a config frame.
//   - attach: ApplyZoomAndPan for one selector.
//   - integrate: ApplyZoomAndPanIntegration for a trigger and targets.
//   - event: one input or mutation event; target "" is the document.
//   - layout: a fresh geometry snapshot without an event.
//   - preview: sync the aspect preview overlay with a canvas.
//
// attach, integrate, event, layout and preview may carry a layout snapshot.
// The server never queries the page: elements read the latest snapshot.
//
// Server to client:
//
//   - config: session id, resolved bindings, flags and tooltip rows.
//   - style: one inline style write (selector, property, value).
//   - brush: a brush control activation or value write.
//   - diag: a forwarded log record.
//   - error: a rejected frame.
package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"canvaszoom/internal/hotkeys"
	"canvaszoom/internal/host"
)

// Frame types.
const (
	TypeHello     = "hello"
	TypeAttach    = "attach"
	TypeIntegrate = "integrate"
	TypeEvent     = "event"
	TypeLayout    = "layout"
	TypePreview   = "preview"

	TypeConfig = "config"
	TypeStyle  = "style"
	TypeBrush  = "brush"
	TypeDiag   = "diag"
	TypeError  = "error"
)

// NodeLayout is the measured state of one page node.
type NodeLayout struct {
	Selector string            `json:"selector"`
	Box      host.Box          `json:"box"`
	Style    map[string]string `json:"style,omitempty"`
}

// BrushLayout is the state of a brush radius control.
type BrushLayout struct {
	Max   float64 `json:"max"`
	Value float64 `json:"value"`
}

// ElementLayout is the measured state of a candidate canvas element and the
// nodes the engine reads around it.
type ElementLayout struct {
	NodeLayout
	// Parent is the direct parent, used by standalone canvases.
	Parent *NodeLayout `json:"parent,omitempty"`
	// Component is the closest component wrapper, used by embedded ones.
	Component *NodeLayout  `json:"component,omitempty"`
	Surface   *NodeLayout  `json:"surface,omitempty"`
	Brush     *BrushLayout `json:"brush,omitempty"`
}

// Layout is a geometry snapshot of the page.
type Layout struct {
	Viewport host.Viewport             `json:"viewport"`
	Elements map[string]*ElementLayout `json:"elements,omitempty"`
}

// HelloMsg opens a session.
type HelloMsg struct {
	Type string `json:"type"`
	Page string `json:"page,omitempty"`
}

// AttachMsg asks for one canvas.
type AttachMsg struct {
	Type     string  `json:"type"`
	Selector string  `json:"selector"`
	Embedded bool    `json:"embedded,omitempty"`
	Layout   *Layout `json:"layout,omitempty"`
}

// IntegrateMsg asks for deferred attachment of targets.
type IntegrateMsg struct {
	Type    string   `json:"type"`
	Trigger string   `json:"trigger"`
	Targets []string `json:"targets"`
	Layout  *Layout  `json:"layout,omitempty"`
}

// EventMsg forwards one event.
type EventMsg struct {
	Type   string     `json:"type"`
	Target string     `json:"target,omitempty"`
	Event  host.Event `json:"event"`
	Layout *Layout    `json:"layout,omitempty"`
}

// LayoutMsg refreshes geometry.
type LayoutMsg struct {
	Type   string  `json:"type"`
	Layout *Layout `json:"layout"`
}

// PreviewMsg asks for a preview sync.
type PreviewMsg struct {
	Type     string  `json:"type"`
	Selector string  `json:"selector"`
	Layout   *Layout `json:"layout,omitempty"`
}

// ConfigMsg describes the resolved configuration to the page.
type ConfigMsg struct {
	Type     string                `json:"type"`
	Session  string                `json:"session"`
	Bindings map[string]string     `json:"bindings"`
	Flags    hotkeys.Flags         `json:"flags"`
	Tooltip  []hotkeys.TooltipLine `json:"tooltip,omitempty"`
	Disabled []string              `json:"disabled,omitempty"`
}

// StyleMsg is one inline style write. An empty value removes the property.
type StyleMsg struct {
	Type     string `json:"type"`
	Selector string `json:"selector"`
	Property string `json:"property"`
	Value    string `json:"value"`
}

// BrushMsg activates the brush control of a canvas and sets its value.
type BrushMsg struct {
	Type     string  `json:"type"`
	Selector string  `json:"selector"`
	Activate bool    `json:"activate,omitempty"`
	Value    float64 `json:"value"`
}

// DiagMsg forwards a log record.
type DiagMsg struct {
	Type    string         `json:"type"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// ErrorMsg reports a rejected frame.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// PeekType returns the "type" field of a frame without decoding the rest.
func PeekType(frame []byte) (string, error) {
	if !gjson.ValidBytes(frame) {
		return "", fmt.Errorf("bridge: frame is not valid JSON")
	}
	t := gjson.GetBytes(frame, "type")
	if t.Type != gjson.String || t.Str == "" {
		return "", fmt.Errorf("bridge: frame has no type")
	}
	return t.Str, nil
}

// PeekLayout reports whether a frame carries a layout snapshot.
func PeekLayout(frame []byte) bool {
	return gjson.GetBytes(frame, "layout").IsObject()
}

// Decode parses a client frame into its message struct.
func Decode(frame []byte) (any, error) {
	typ, err := PeekType(frame)
	if err != nil {
		return nil, err
	}
	var msg any
	switch typ {
	case TypeHello:
		msg = &HelloMsg{}
	case TypeAttach:
		msg = &AttachMsg{}
	case TypeIntegrate:
		msg = &IntegrateMsg{}
	case TypeEvent:
		msg = &EventMsg{}
	case TypeLayout:
		msg = &LayoutMsg{}
	case TypePreview:
		msg = &PreviewMsg{}
	default:
		return nil, fmt.Errorf("bridge: unknown frame type %q", typ)
	}
	if err := json.Unmarshal(frame, msg); err != nil {
		return nil, fmt.Errorf("bridge: decode %s: %w", typ, err)
	}
	return msg, nil
}
