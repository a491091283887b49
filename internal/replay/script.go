// Package replay runs a scripted list of attachments, gestures and page
// changes against an HTML snapshot on a manual clock.
package replay

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"canvaszoom/internal/host"
)

// Script is a replay file.
type Script struct {
	Steps []Step `yaml:"steps"`
}

// Step is one scripted action. Exactly one action field is set.
type Step struct {
	Attach    string     `yaml:"attach,omitempty"`
	Embedded  bool       `yaml:"embedded,omitempty"`
	Integrate *Integrate `yaml:"integrate,omitempty"`
	Detach    string     `yaml:"detach,omitempty"`
	Event     *Event     `yaml:"event,omitempty"`
	Mutation  string     `yaml:"mutation,omitempty"`
	Restyle   *Restyle   `yaml:"restyle,omitempty"`
	Insert    *Insert    `yaml:"insert,omitempty"`
	Remove    string     `yaml:"remove,omitempty"`
	Preview   string     `yaml:"preview,omitempty"`
	// Advance moves the clock, e.g. "100ms".
	Advance string `yaml:"advance,omitempty"`
	// Frames runs that many animation frames.
	Frames int `yaml:"frames,omitempty"`
}

// Integrate attaches third-party targets behind a trigger.
type Integrate struct {
	Trigger string   `yaml:"trigger"`
	Targets []string `yaml:"targets"`
}

// Event is a scripted input event. An empty Target sends it to the document.
type Event struct {
	Target    string   `yaml:"target,omitempty"`
	Kind      string   `yaml:"kind"`
	Mods      []string `yaml:"mods,omitempty"`
	X         float64  `yaml:"x,omitempty"`
	Y         float64  `yaml:"y,omitempty"`
	OffsetX   float64  `yaml:"offsetX,omitempty"`
	OffsetY   float64  `yaml:"offsetY,omitempty"`
	MovementX float64  `yaml:"movementX,omitempty"`
	MovementY float64  `yaml:"movementY,omitempty"`
	DeltaY    float64  `yaml:"deltaY,omitempty"`
	Code      string   `yaml:"code,omitempty"`
	Key       string   `yaml:"key,omitempty"`
	TextInput bool     `yaml:"textInput,omitempty"`
}

// Restyle changes an inline style from outside the engine.
type Restyle struct {
	Selector string `yaml:"selector"`
	Property string `yaml:"property"`
	Value    string `yaml:"value"`
}

// Insert appends an HTML fragment to the parent element.
type Insert struct {
	Parent string `yaml:"parent"`
	HTML   string `yaml:"html"`
}

// Parse decodes a replay file. Unknown fields are rejected.
func Parse(raw []byte) (Script, error) {
	var s Script
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Script{}, fmt.Errorf("replay: parse script: %w", err)
	}
	for i, step := range s.Steps {
		if err := step.validate(); err != nil {
			return Script{}, fmt.Errorf("replay: step %d: %w", i+1, err)
		}
	}
	return s, nil
}

func (s Step) validate() error {
	set := 0
	for _, present := range []bool{
		s.Attach != "", s.Integrate != nil, s.Detach != "", s.Event != nil,
		s.Mutation != "", s.Restyle != nil, s.Insert != nil, s.Remove != "",
		s.Preview != "", s.Advance != "", s.Frames > 0,
	} {
		if present {
			set++
		}
	}
	switch {
	case set == 0:
		return errors.New("no action")
	case set > 1:
		return errors.New("more than one action")
	}
	if s.Advance != "" {
		if _, err := time.ParseDuration(s.Advance); err != nil {
			return fmt.Errorf("advance: %w", err)
		}
	}
	if s.Event != nil {
		if _, err := s.Event.toHost(); err != nil {
			return err
		}
	}
	if s.Mutation != "" {
		if _, err := mutationKind(s.Mutation); err != nil {
			return err
		}
	}
	return nil
}

var eventKinds = map[string]host.EventKind{
	string(host.EventPointerMove):  host.EventPointerMove,
	string(host.EventPointerLeave): host.EventPointerLeave,
	string(host.EventWheel):        host.EventWheel,
	string(host.EventKeyDown):      host.EventKeyDown,
	string(host.EventKeyUp):        host.EventKeyUp,
	string(host.EventClick):        host.EventClick,
	string(host.EventBlur):         host.EventBlur,
}

func (e Event) toHost() (host.Event, error) {
	kind, ok := eventKinds[strings.ToLower(e.Kind)]
	if !ok {
		return host.Event{}, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	ev := host.Event{
		Kind:      kind,
		ClientX:   e.X,
		ClientY:   e.Y,
		OffsetX:   e.OffsetX,
		OffsetY:   e.OffsetY,
		MovementX: e.MovementX,
		MovementY: e.MovementY,
		DeltaY:    e.DeltaY,
		Code:      e.Code,
		Key:       e.Key,
		TextInput: e.TextInput,
	}
	for _, m := range e.Mods {
		switch strings.ToLower(m) {
		case "ctrl":
			ev.Mods.Ctrl = true
		case "alt":
			ev.Mods.Alt = true
		case "shift":
			ev.Mods.Shift = true
		case "meta":
			ev.Mods.Meta = true
		default:
			return host.Event{}, fmt.Errorf("unknown modifier %q", m)
		}
	}
	return ev, nil
}

func mutationKind(name string) (host.MutationKind, error) {
	switch kind := host.MutationKind(strings.ToLower(name)); kind {
	case host.MutationImageReplaced, host.MutationTabSwitched, host.MutationResized:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown mutation %q", name)
	}
}
