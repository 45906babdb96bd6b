// Package backend picks the listener adapter and key resolver for the
// current platform by name.
package backend

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"slices"

	"go.uber.org/zap"

	"keywatch/internal/keymap"
	"keywatch/internal/listener"
)

// Auto picks the platform default.
const Auto = ""

var ErrUnknownBackend = errors.New("unknown backend")

// Options configures New.
type Options struct {
	Name        string
	Display     string
	Transparent bool
	SkipRepeat  bool
	// OnMove receives pointer motion for the capturing backends.
	OnMove func(x, y, dx, dy int)
	Log    *zap.Logger
}

// Backend is a ready-to-use adapter and the resolver for its combos.
type Backend struct {
	Name     string
	Adapter  listener.Adapter
	Resolver keymap.Resolver
	// PressOnly is set when release binds are accepted but never fire.
	PressOnly bool

	closers []func()
}

// Close releases resources held outside the adapter, such as the
// resolver's display connection.
func (b *Backend) Close() {
	for _, fn := range b.closers {
		fn()
	}
	b.closers = nil
}

// New builds the named backend. Auto picks the platform default.
func New(opts Options) (*Backend, error) {
	if opts.Log == nil {
		opts.Log = zap.L()
	}
	opts.Log = opts.Log.With(zap.String("component", "backend"))

	name := opts.Name
	if name == Auto {
		name = defaultName(DetectDisplayServer(opts.Log))
	}
	if !slices.Contains(Names(), name) {
		return nil, fmt.Errorf("%w %q on %s (have %v)", ErrUnknownBackend, name, runtime.GOOS, Names())
	}
	b, err := build(name, opts)
	if err != nil {
		return nil, err
	}
	opts.Log.Info("backend selected", zap.String("backend", b.Name), zap.Bool("pressOnly", b.PressOnly))
	return b, nil
}

// DisplayServer is the kind of display session the process runs in.
type DisplayServer int

const (
	DisplayServerUnknown DisplayServer = iota
	DisplayServerWindows
	DisplayServerX11
	DisplayServerWayland
	DisplayServerQuartz
)

func (ds DisplayServer) String() string {
	switch ds {
	case DisplayServerWindows:
		return "Windows"
	case DisplayServerX11:
		return "X11"
	case DisplayServerWayland:
		return "Wayland"
	case DisplayServerQuartz:
		return "Quartz"
	default:
		return "Unknown"
	}
}

// DetectDisplayServer determines which display server is in use from the
// OS and the session environment.
func DetectDisplayServer(log *zap.Logger) DisplayServer {
	ds := detect(runtime.GOOS, os.Getenv)
	if ds == DisplayServerWayland {
		log.Warn("Wayland session: global grabs only reach X11 clients through XWayland")
	}
	log.Debug("display server detected", zap.Stringer("display", ds))
	return ds
}

func detect(goos string, getenv func(string) string) DisplayServer {
	switch goos {
	case "windows":
		return DisplayServerWindows
	case "darwin":
		return DisplayServerQuartz
	}
	if getenv("WAYLAND_DISPLAY") != "" {
		return DisplayServerWayland
	}
	if getenv("DISPLAY") != "" {
		return DisplayServerX11
	}
	return DisplayServerUnknown
}

func moveFunc[M any](fn func(x, y, dx, dy int), split func(M) (int, int, int, int)) func(M) {
	if fn == nil {
		return nil
	}
	return func(m M) { fn(split(m)) }
}
