package keymap

import (
	"errors"
	"testing"

	"keywatch/internal/listener"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		mods []string
		key  string
	}{
		{"a", nil, "a"},
		{"Ctrl+Shift+F12", []string{Ctrl, Shift}, "F12"},
		{"control + alt + Return", []string{Ctrl, Alt}, "Return"},
		{"cmd+option+space", []string{Super, Alt}, "space"},
		{"win+win+d", []string{Super}, "d"},
	}
	for _, tt := range tests {
		spec, err := Parse(tt.in)
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.in, err)
			continue
		}
		if spec.Key != tt.key {
			t.Errorf("Parse(%q) key = %q, want %q", tt.in, spec.Key, tt.key)
		}
		if len(spec.Mods) != len(tt.mods) {
			t.Errorf("Parse(%q) mods = %v, want %v", tt.in, spec.Mods, tt.mods)
			continue
		}
		for i := range tt.mods {
			if spec.Mods[i] != tt.mods[i] {
				t.Errorf("Parse(%q) mods = %v, want %v", tt.in, spec.Mods, tt.mods)
				break
			}
		}
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse(""); !errors.Is(err, ErrEmpty) {
		t.Errorf("Expected ErrEmpty, got %v", err)
	}
	if _, err := Parse("ctrl+"); !errors.Is(err, ErrEmpty) {
		t.Errorf("Expected ErrEmpty for a trailing +, got %v", err)
	}
	if _, err := Parse("hyper+a"); !errors.Is(err, ErrUnknownModifier) {
		t.Errorf("Expected ErrUnknownModifier, got %v", err)
	}
}

func TestSpecString(t *testing.T) {
	spec, _ := Parse("Control+option+x")
	if got := spec.String(); got != "ctrl+alt+x" {
		t.Errorf("Expected ctrl+alt+x, got %s", got)
	}
}

func TestVKResolver(t *testing.T) {
	tests := []struct {
		in   string
		want listener.Combo
	}{
		{"a", listener.Combo{Code: 0x41}},
		{"ctrl+alt+Z", listener.Combo{Code: 0x5A, Mods: 0x3}},
		{"shift+9", listener.Combo{Code: 0x39, Mods: 0x4}},
		{"win+F1", listener.Combo{Code: 0x70, Mods: 0x8}},
		{"f24", listener.Combo{Code: 0x87}},
		{"Escape", listener.Combo{Code: 0x1B}},
	}
	for _, tt := range tests {
		got, err := ResolveString(VKResolver{}, tt.in)
		if err != nil {
			t.Errorf("Resolve(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Resolve(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ResolveString(VKResolver{}, "f25"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Expected ErrUnknownKey for f25, got %v", err)
	}
	if _, err := ResolveString(VKResolver{}, "numlock+a"); !errors.Is(err, ErrUnknownModifier) {
		t.Errorf("Expected ErrUnknownModifier for numlock, got %v", err)
	}
}

func TestButtonResolver(t *testing.T) {
	r := ButtonResolver{Masks: X11Masks}
	tests := []struct {
		in   string
		want listener.Combo
	}{
		{"left", listener.Combo{Code: 1}},
		{"ctrl+right", listener.Combo{Code: 3, Mods: 4}},
		{"WheelDown", listener.Combo{Code: 5}},
		{"shift+button9", listener.Combo{Code: 9, Mods: 1}},
		{"mouse8", listener.Combo{Code: 8}},
	}
	for _, tt := range tests {
		got, err := ResolveString(r, tt.in)
		if err != nil {
			t.Errorf("Resolve(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Resolve(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	for _, bad := range []string{"button0", "buttonx", "thumb"} {
		if _, err := ResolveString(r, bad); !errors.Is(err, ErrUnknownKey) {
			t.Errorf("Resolve(%q): expected ErrUnknownKey, got %v", bad, err)
		}
	}
}

func TestModMasks(t *testing.T) {
	mask, err := X11Masks.Mask([]string{Super, NumLock})
	if err != nil {
		t.Fatalf("Mask: %v", err)
	}
	if mask != 64|16 {
		t.Errorf("Expected %#x, got %#x", 64|16, mask)
	}
}
