package hotkeys

import (
	"strings"

	"canvaszoom/internal/host"
)

// Kind classifies a Binding.
type Kind uint8

const (
	// KindDisabled never matches any input.
	KindDisabled Kind = iota
	// KindLetter matches one physical letter key.
	KindLetter
	// KindModifier matches while a modifier key is held.
	KindModifier
)

// Canonical modifier and disabled forms.
const (
	ModCtrl     = "Ctrl"
	ModAlt      = "Alt"
	ModShift    = "Shift"
	disableWord = "disable"
	keyPrefix   = "Key"
)

// Binding describes a resolved canvas hotkey.
// Construct only via ParseBinding or the package defaults.
type Binding struct {
	kind       Kind
	normalized string
}

// Disabled is the binding that never fires.
var Disabled = Binding{kind: KindDisabled, normalized: disableWord}

// Kind returns the binding class.
func (b Binding) Kind() Kind { return b.kind }

// Normalized returns the canonical key form ("KeyR", "Alt", "disable").
func (b Binding) Normalized() string {
	if b.normalized == "" {
		return disableWord
	}
	return b.normalized
}

// Enabled reports whether the binding can fire.
func (b Binding) Enabled() bool { return b.kind != KindDisabled }

// Display returns the human-readable form ("R", "Alt").
func (b Binding) Display() string { return Display(b.Normalized()) }

// String implements fmt.Stringer.
func (b Binding) String() string { return b.Normalized() }

// Matches reports whether a key event code triggers a letter binding.
func (b Binding) Matches(code string) bool {
	return b.kind == KindLetter && code == b.normalized
}

// Held reports whether a modifier binding is satisfied by mods.
func (b Binding) Held(mods host.Modifiers) bool {
	if b.kind != KindModifier {
		return false
	}
	switch b.normalized {
	case ModCtrl:
		return mods.Ctrl
	case ModAlt:
		return mods.Alt
	case ModShift:
		return mods.Shift
	default:
		return false
	}
}

// IsModifierKey reports whether a keydown of key is the modifier itself
// ("Alt" for an Alt binding).
func (b Binding) IsModifierKey(key string) bool {
	if b.kind != KindModifier {
		return false
	}
	if b.normalized == ModCtrl {
		return key == "Control" || key == ModCtrl
	}
	return key == b.normalized
}

// Display strips the "Key" prefix of a canonical letter code.
func Display(hotkey string) string {
	if strings.HasPrefix(hotkey, keyPrefix) && len(hotkey) == len(keyPrefix)+1 {
		return hotkey[len(keyPrefix):]
	}
	return hotkey
}

func letterBinding(code string) Binding {
	return Binding{kind: KindLetter, normalized: code}
}

func modifierBinding(name string) Binding {
	return Binding{kind: KindModifier, normalized: name}
}
