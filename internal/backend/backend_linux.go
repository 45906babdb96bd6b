package backend

import (
	"go.uber.org/zap"

	"keywatch/internal/keymap"
	"keywatch/internal/x11"
)

// portableBackend is set when the binary is built with the portable tag.
// The hotkey library opens the X display in its package init and panics
// without one, so it is left out of default Linux builds.
var portableBackend func(opts Options) *Backend

// Names lists the backends available on this platform.
func Names() []string {
	names := []string{"keys", "keyboard", "buttons", "cursor", "mouse"}
	if portableBackend != nil {
		names = append(names, "portable")
	}
	return names
}

func defaultName(DisplayServer) string {
	return "keys"
}

func build(name string, opts Options) (*Backend, error) {
	if name == "portable" && portableBackend != nil {
		return portableBackend(opts), nil
	}

	xopts := []x11.Option{
		x11.Display(opts.Display),
		x11.Transparent(opts.Transparent),
		x11.SkipRepeat(opts.SkipRepeat),
		x11.OnMove(moveFunc(opts.OnMove, func(m x11.Motion) (int, int, int, int) {
			return m.X, m.Y, m.DX, m.DY
		})),
		x11.WithLogger(opts.Log),
	}
	b := &Backend{Name: name, Resolver: keymap.ButtonResolver{Masks: keymap.X11Masks}}
	switch name {
	case "keys", "keyboard":
		if name == "keys" {
			b.Adapter = x11.NewKeyGrab(xopts...)
		} else {
			b.Adapter = x11.NewKeyboardGrab(xopts...)
		}
		r, err := keymap.NewX11Resolver(opts.Display)
		if err != nil {
			return nil, err
		}
		b.Resolver = r
		b.closers = append(b.closers, r.Close)
		if opts.Transparent && name == "keys" {
			// Replayed keys reach the focused client, which keeps the
			// release to itself.
			b.PressOnly = true
			opts.Log.Info("transparent grabs: release binds will not fire")
		}
	case "buttons":
		b.Adapter = x11.NewButtonGrab(xopts...)
	case "cursor":
		b.Adapter = x11.NewCursorCapture(xopts...)
	case "mouse":
		b.Adapter = x11.NewMouseGrab(xopts...)
	}
	if opts.OnMove == nil && (name == "cursor" || name == "mouse") {
		opts.Log.Warn("pointer captured without a move handler", zap.String("backend", name))
	}
	return b, nil
}
