package backend

import (
	"go.uber.org/zap"

	"keywatch/internal/keymap"
	"keywatch/internal/osutils"
	"keywatch/internal/portable"
	"keywatch/internal/winhook"
)

// Names lists the backends available on this platform.
func Names() []string {
	return []string{"hotkey", "keys", "keyboard", "mouse", "portable"}
}

func defaultName(DisplayServer) string {
	return "hotkey"
}

func build(name string, opts Options) (*Backend, error) {
	onMove := moveFunc(opts.OnMove, func(m winhook.Motion) (int, int, int, int) {
		return m.X, m.Y, m.DX, m.DY
	})

	b := &Backend{Name: name, Resolver: keymap.VKResolver{}}
	switch name {
	case "hotkey":
		b.Adapter = winhook.NewHotkeyAdapter(opts.Log)
		b.PressOnly = true
	case "keys":
		b.Adapter = winhook.NewHookAdapter(winhook.ModeKeys, nil, opts.Log)
	case "keyboard":
		b.Adapter = winhook.NewHookAdapter(winhook.ModeKeyboard, nil, opts.Log)
	case "mouse":
		b.Adapter = winhook.NewHookAdapter(winhook.ModeMouse, onMove, opts.Log)
		// Hook events carry no modifier state for buttons.
		b.Resolver = keymap.ButtonResolver{Masks: keymap.ModMasks{}}
	case "portable":
		b.Adapter = portable.New(opts.Log)
		b.Resolver = portable.Resolver{}
	}
	if name != "hotkey" && name != "portable" {
		warnNotElevated(opts.Log)
	}
	return b, nil
}

func warnNotElevated(log *zap.Logger) {
	if osutils.Elevated() {
		return
	}
	if osutils.IsAdmin() {
		log.Warn("not elevated: hooks will not see input sent to elevated windows; run as administrator to fix")
		return
	}
	log.Warn("not elevated: hooks will not see input sent to elevated windows")
}
