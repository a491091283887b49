package hotkeys

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// Action is a configurable canvas operation, named by its option key.
type Action string

const (
	ActionZoom        Action = "canvas_hotkey_zoom"
	ActionAdjust      Action = "canvas_hotkey_adjust"
	ActionReset       Action = "canvas_hotkey_reset"
	ActionFullscreen  Action = "canvas_hotkey_fullscreen"
	ActionMove        Action = "canvas_hotkey_move"
	ActionOverlap     Action = "canvas_hotkey_overlap"
	ActionShrinkBrush Action = "canvas_hotkey_shrink_brush"
	ActionGrowBrush   Action = "canvas_hotkey_grow_brush"
)

// Actions lists every action in resolution order. Conflicts are decided by
// this order: the earlier action keeps the key.
var Actions = []Action{
	ActionZoom,
	ActionAdjust,
	ActionReset,
	ActionFullscreen,
	ActionMove,
	ActionOverlap,
	ActionShrinkBrush,
	ActionGrowBrush,
}

var defaultBindings = map[Action]Binding{
	ActionZoom:        mustParse(ModAlt),
	ActionAdjust:      mustParse(ModCtrl),
	ActionReset:       mustParse("KeyR"),
	ActionFullscreen:  mustParse("KeyS"),
	ActionMove:        mustParse("KeyF"),
	ActionOverlap:     mustParse("KeyO"),
	ActionShrinkBrush: mustParse("KeyQ"),
	ActionGrowBrush:   mustParse("KeyW"),
}

// featureActions maps the human-readable names accepted in the disabled
// feature list to actions.
var featureActions = map[string]Action{
	"Zoom":                 ActionZoom,
	"Adjust brush size":    ActionAdjust,
	"Hotkey shrink brush":  ActionShrinkBrush,
	"Hotkey enlarge brush": ActionGrowBrush,
	"Moving canvas":        ActionMove,
	"Fullscreen":           ActionFullscreen,
	"Reset Zoom":           ActionReset,
	"Overlap":              ActionOverlap,
}

// FeatureNames returns the accepted disabled-feature names, sorted.
func FeatureNames() []string {
	names := make([]string, 0, len(featureActions))
	for name := range featureActions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultBinding returns the built-in binding for action.
func DefaultBinding(action Action) Binding {
	return defaultBindings[action]
}

// Flags are the boolean canvas options.
type Flags struct {
	ShowTooltip bool `json:"showTooltip"`
	AutoExpand  bool `json:"autoExpand"`
	BlurPrompt  bool `json:"blurPrompt"`
}

// DefaultFlags returns the built-in flag values.
func DefaultFlags() Flags {
	return Flags{ShowTooltip: true, AutoExpand: true, BlurPrompt: false}
}

// Config is the resolved, read-only hotkey configuration.
type Config struct {
	bindings map[Action]Binding
	flags    Flags
	disabled []string
	warnings []string
}

// DefaultConfig returns the configuration with no user overrides.
func DefaultConfig() Config {
	return Resolve(nil, nil, DefaultFlags())
}

// Binding returns the resolved binding for action.
func (c Config) Binding(action Action) Binding {
	if b, ok := c.bindings[action]; ok {
		return b
	}
	return Disabled
}

// Enabled reports whether action can fire.
func (c Config) Enabled(action Action) bool {
	return c.Binding(action).Enabled()
}

// Flags returns the boolean options.
func (c Config) Flags() Flags { return c.flags }

// DisabledFeatures returns a copy of the disabled feature names as given.
func (c Config) DisabledFeatures() []string { return slices.Clone(c.disabled) }

// Warnings returns the diagnostics produced while resolving.
func (c Config) Warnings() []string { return slices.Clone(c.warnings) }

// Bindings returns a copy of the action -> canonical key table.
func (c Config) Bindings() map[string]string {
	out := make(map[string]string, len(c.bindings))
	for action, b := range c.bindings {
		out[string(action)] = b.Normalized()
	}
	return out
}

// ActionForCode returns the keyboard action bound to a key code. Only the
// single-key actions (reset, overlap, fullscreen, shrink, grow) are
// considered; when two share a code the earlier one in Actions wins.
func (c Config) ActionForCode(code string) (Action, bool) {
	for _, action := range Actions {
		if !isKeyboardAction(action) {
			continue
		}
		if c.Binding(action).Matches(code) {
			return action, true
		}
	}
	return "", false
}

func isKeyboardAction(action Action) bool {
	switch action {
	case ActionReset, ActionOverlap, ActionFullscreen, ActionShrinkBrush, ActionGrowBrush:
		return true
	default:
		return false
	}
}

// Resolve merges user overrides with the defaults, then forces every action
// named in disabled to the disabled binding.
//
// Overrides that are absent keep the default. Non-string values (booleans,
// lists, maps) are taken as-is and match no key, so the action is disabled.
// Invalid strings and letters already claimed by an earlier override fall
// back to the default with a warning.
func Resolve(overrides map[string]any, disabled []string, flags Flags) Config {
	cfg := Config{
		bindings: make(map[Action]Binding, len(Actions)),
		flags:    flags,
		disabled: slices.Clone(disabled),
	}
	used := map[string]struct{}{}

	for _, action := range Actions {
		def := defaultBindings[action]
		raw, present := overrides[string(action)]
		if !present || raw == nil {
			cfg.bindings[action] = def
			continue
		}

		userValue, isString := raw.(string)
		if !isString {
			slog.Debug("[DEBUG-HOTKEY] non-string value for hotkey, action disabled",
				"action", action, "type", fmt.Sprintf("%T", raw))
			cfg.bindings[action] = Disabled
			continue
		}
		if userValue == disableWord {
			cfg.bindings[action] = Disabled
			continue
		}

		binding, err := ParseUserBinding(userValue)
		if err != nil {
			cfg.warn(fmt.Sprintf("Hotkey: %s for %s is not valid. The default hotkey is used: %s",
				Display(userValue), action, def.Display()))
			cfg.bindings[action] = def
			continue
		}
		if !binding.Enabled() {
			cfg.bindings[action] = binding
			continue
		}

		if _, taken := used[binding.Normalized()]; taken {
			cfg.warn(fmt.Sprintf("Hotkey: %s for %s is repeated and conflicts with another hotkey. The default hotkey is used: %s",
				Display(userValue), action, def.Display()))
			cfg.bindings[action] = def
			continue
		}
		used[binding.Normalized()] = struct{}{}
		cfg.bindings[action] = binding
	}

	for _, name := range disabled {
		action, ok := featureActions[strings.TrimSpace(name)]
		if !ok {
			slog.Debug("[DEBUG-HOTKEY] unknown feature in disabled list, ignoring", "feature", name)
			continue
		}
		cfg.bindings[action] = Disabled
	}

	return cfg
}

func (c *Config) warn(message string) {
	slog.Warn("[WARN-HOTKEY] " + message)
	c.warnings = append(c.warnings, message)
}
