// Package keymap turns hotkey strings such as "ctrl+shift+a" into the
// platform combos a listener adapter understands.
package keymap

import (
	"errors"
	"fmt"
	"strings"

	"keywatch/internal/listener"
)

// Modifier names after alias folding.
const (
	Shift   = "shift"
	Ctrl    = "ctrl"
	Alt     = "alt"
	Super   = "super"
	NumLock = "numlock"
)

var modifierAliases = map[string]string{
	"shift":   Shift,
	"ctrl":    Ctrl,
	"control": Ctrl,
	"alt":     Alt,
	"option":  Alt,
	"mod1":    Alt,
	"super":   Super,
	"win":     Super,
	"cmd":     Super,
	"meta":    Super,
	"mod4":    Super,
	"numlock": NumLock,
	"mod2":    NumLock,
}

var (
	ErrEmpty           = errors.New("empty hotkey")
	ErrUnknownKey      = errors.New("unknown key")
	ErrUnknownModifier = errors.New("unknown modifier")
)

// Spec is a parsed hotkey string.
type Spec struct {
	Mods []string
	Key  string
}

func (s Spec) String() string {
	return strings.Join(append(append([]string(nil), s.Mods...), s.Key), "+")
}

// Parse splits a "+" separated hotkey. The last part is the key and keeps
// its case; the rest are modifiers.
func Parse(s string) (Spec, error) {
	parts := strings.Split(s, "+")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	key := parts[len(parts)-1]
	if key == "" {
		return Spec{}, fmt.Errorf("%w: %q", ErrEmpty, s)
	}

	var spec Spec
	seen := make(map[string]bool)
	for _, p := range parts[:len(parts)-1] {
		name, ok := modifierAliases[strings.ToLower(p)]
		if !ok {
			return Spec{}, fmt.Errorf("%w %q in %q", ErrUnknownModifier, p, s)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		spec.Mods = append(spec.Mods, name)
	}
	spec.Key = key
	return spec, nil
}

// Resolver maps a parsed hotkey to a platform combo.
type Resolver interface {
	Resolve(Spec) (listener.Combo, error)
}

// ModMasks maps modifier names to platform mask bits.
type ModMasks map[string]uint32

// Mask folds mods into one mask.
func (m ModMasks) Mask(mods []string) (uint32, error) {
	var mask uint32
	for _, name := range mods {
		bit, ok := m[name]
		if !ok {
			return 0, fmt.Errorf("%w %q on this platform", ErrUnknownModifier, name)
		}
		mask |= bit
	}
	return mask, nil
}

// ResolveString parses s and resolves it with r.
func ResolveString(r Resolver, s string) (listener.Combo, error) {
	spec, err := Parse(s)
	if err != nil {
		return listener.Combo{}, err
	}
	return r.Resolve(spec)
}

// ButtonResolver resolves mouse button names such as "ctrl+button3" or
// "wheelup".
type ButtonResolver struct {
	Masks ModMasks
}

var buttonNames = map[string]uint32{
	"left":       1,
	"middle":     2,
	"right":      3,
	"wheelup":    4,
	"wheeldown":  5,
	"wheelleft":  6,
	"wheelright": 7,
}

func (b ButtonResolver) Resolve(s Spec) (listener.Combo, error) {
	mask, err := b.Masks.Mask(s.Mods)
	if err != nil {
		return listener.Combo{}, err
	}
	name := strings.ToLower(s.Key)
	if code, ok := buttonNames[name]; ok {
		return listener.Combo{Code: code, Mods: mask}, nil
	}
	for _, prefix := range []string{"button", "mouse"} {
		if rest, ok := strings.CutPrefix(name, prefix); ok {
			var n uint32
			if _, err := fmt.Sscanf(rest, "%d", &n); err == nil && n > 0 && n < 256 {
				return listener.Combo{Code: n, Mods: mask}, nil
			}
		}
	}
	return listener.Combo{}, fmt.Errorf("%w %q", ErrUnknownKey, s.Key)
}
