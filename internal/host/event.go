package host

// EventKind identifies what an Event carries.
type EventKind string

const (
	EventPointerMove  EventKind = "pointermove"
	EventPointerLeave EventKind = "pointerleave"
	EventWheel        EventKind = "wheel"
	EventKeyDown      EventKind = "keydown"
	EventKeyUp        EventKind = "keyup"
	EventClick        EventKind = "click"
	EventBlur         EventKind = "blur"
	EventMutation     EventKind = "mutation"
)

// Modifiers is the modifier key state at the time of an event.
type Modifiers struct {
	Ctrl  bool `json:"ctrl,omitempty"`
	Alt   bool `json:"alt,omitempty"`
	Shift bool `json:"shift,omitempty"`
	Meta  bool `json:"meta,omitempty"`
}

// Event is a user input or page notification. Only the fields relevant to
// Kind are set.
type Event struct {
	Kind EventKind `json:"kind"`
	Mods Modifiers `json:"mods"`

	// Pointer and wheel position relative to the viewport.
	ClientX float64 `json:"clientX,omitempty"`
	ClientY float64 `json:"clientY,omitempty"`
	// Pointer position relative to the target element.
	OffsetX float64 `json:"offsetX,omitempty"`
	OffsetY float64 `json:"offsetY,omitempty"`
	// Pointer movement since the previous pointer event.
	MovementX float64 `json:"movementX,omitempty"`
	MovementY float64 `json:"movementY,omitempty"`

	DeltaY float64 `json:"deltaY,omitempty"`

	// Code is the physical key code ("KeyR", "F5"); Key the produced value
	// ("r", "Alt").
	Code string `json:"code,omitempty"`
	Key  string `json:"key,omitempty"`
	// TextInput reports that the key event target is a text field.
	TextInput bool `json:"textInput,omitempty"`

	Mutation *Mutation `json:"mutation,omitempty"`
}

// MutationKind classifies an external page change.
type MutationKind string

const (
	// MutationAttribute is an attribute change below the element.
	MutationAttribute MutationKind = "attribute"
	// MutationImageReplaced is an upload or removal of the edited image.
	MutationImageReplaced MutationKind = "image-replaced"
	// MutationTabSwitched is a click on the surrounding tab strip.
	MutationTabSwitched MutationKind = "tab-switched"
	// MutationResized is a window or container resize.
	MutationResized MutationKind = "resized"
)

// Mutation describes an external change to the page.
type Mutation struct {
	Kind MutationKind `json:"kind"`
	// TargetTag is the lower-case tag name of the mutated node.
	TargetTag string `json:"targetTag,omitempty"`
	// Attribute is the attribute name for MutationAttribute.
	Attribute string `json:"attribute,omitempty"`
}

// Result is the outcome of handling an event.
type Result struct {
	// PreventDefault asks the host to suppress the browser default action.
	PreventDefault bool `json:"preventDefault,omitempty"`
}

// Handled is the Result for consumed events.
var Handled = Result{PreventDefault: true}

// Merge combines two results; suppression wins.
func (r Result) Merge(other Result) Result {
	return Result{PreventDefault: r.PreventDefault || other.PreventDefault}
}
