package hotkeys

import (
	"errors"
	"fmt"
	"strings"
)

var modifierByName = map[string]string{
	ModCtrl:  ModCtrl,
	ModAlt:   ModAlt,
	ModShift: ModShift,
}

// ParseBinding parses a binding in any accepted form: a single letter ("r",
// "R"), a canonical letter code ("KeyR"), one of "Ctrl", "Alt", "Shift", or
// "Disable"/"disable". Surrounding whitespace is ignored. Values from the
// options file go through ParseUserBinding instead.
func ParseBinding(s string) (Binding, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Binding{}, errors.New("hotkey binding is empty")
	}

	if raw == "Disable" || raw == disableWord {
		return Disabled, nil
	}
	if name, ok := modifierByName[raw]; ok {
		return modifierBinding(name), nil
	}
	if len(raw) == 1 && isASCIILetter(raw[0]) {
		return letterBinding(keyPrefix + strings.ToUpper(raw)), nil
	}
	if len(raw) == len(keyPrefix)+1 && strings.HasPrefix(raw, keyPrefix) {
		ch := raw[len(keyPrefix)]
		if ch >= 'A' && ch <= 'Z' {
			return letterBinding(raw), nil
		}
	}
	return Binding{}, fmt.Errorf("invalid hotkey %q: want a single letter or one of Ctrl, Alt, Shift, Disable", raw)
}

// ParseUserBinding parses a binding as written by the user: exactly one
// ASCII letter or one of "Ctrl", "Alt", "Shift", "Disable". Key codes and
// padded values are rejected.
func ParseUserBinding(s string) (Binding, error) {
	_, isModifier := modifierByName[s]
	if !isModifier && s != "Disable" && (len(s) != 1 || !isASCIILetter(s[0])) {
		return Binding{}, fmt.Errorf("invalid hotkey %q: want a single letter or one of Ctrl, Alt, Shift, Disable", s)
	}
	return ParseBinding(s)
}

// Normalize returns the canonical form of s, or s unchanged when it is
// not a valid binding. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	b, err := ParseBinding(s)
	if err != nil {
		return s
	}
	return b.Normalized()
}

func isASCIILetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func mustParse(s string) Binding {
	b, err := ParseBinding(s)
	if err != nil {
		panic(err)
	}
	return b
}
