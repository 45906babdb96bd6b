// Package app keeps a listener's bindings in line with the configuration
// and performs binding actions.
package app

import (
	"errors"
	"fmt"
	"os/exec"
	"reflect"
	"sort"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/gen2brain/beeep"
	"go.uber.org/zap"

	"keywatch/internal/config"
	"keywatch/internal/keymap"
	"keywatch/internal/listener"
)

// Listener is the part of listener.Listener the app drives.
type Listener interface {
	Start() error
	Stop() error
	Bind(key listener.BindKey, fn func()) error
	Unbind(key listener.BindKey) error
	State() listener.State
}

// Runner starts a binding's command. It must not block.
type Runner func(name string, argv []string)

// Notifier shows a desktop notification.
type Notifier func(title, message string) error

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(a *App) { a.log = log }
}

// WithRunner replaces how commands are started.
func WithRunner(r Runner) Option {
	return func(a *App) { a.runner = r }
}

// WithNotifier replaces how notifications are shown.
func WithNotifier(n Notifier) Option {
	return func(a *App) { a.notify = n }
}

// WithClipboard replaces how text is copied.
func WithClipboard(fn func(text string) error) Option {
	return func(a *App) { a.copy = fn }
}

// PressOnly marks a backend whose release binds never fire.
func PressOnly(on bool) Option {
	return func(a *App) { a.pressOnly = on }
}

// entry is one resolved binding.
type entry struct {
	key     listener.BindKey
	binding config.Binding
}

// App applies configured bindings to a listener.
type App struct {
	lis       Listener
	resolver  keymap.Resolver
	log       *zap.Logger
	runner    Runner
	notify    Notifier
	copy      func(string) error
	pressOnly bool

	mu      sync.Mutex
	desired map[string]entry
	bound   map[string]entry
	paused  bool
}

// New returns an app driving l. Hotkey strings are resolved with r.
func New(l Listener, r keymap.Resolver, opts ...Option) *App {
	a := &App{
		lis:      l,
		resolver: r,
		log:      zap.L(),
		desired:  make(map[string]entry),
		bound:    make(map[string]entry),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With(zap.String("component", "app"))
	if a.runner == nil {
		a.runner = a.execRunner
	}
	if a.notify == nil {
		a.notify = func(title, message string) error { return beeep.Notify(title, message, "") }
	}
	if a.copy == nil {
		a.copy = clipboard.WriteAll
	}
	return a
}

// Start starts the listener and binds everything applied so far.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.lis.Start(); err != nil {
		return err
	}
	a.paused = false
	return a.sync()
}

// Stop stops the listener, which releases every binding.
func (a *App) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.bound)
	if a.lis.State() != listener.Living {
		return nil
	}
	return a.lis.Stop()
}

// Pause stops listening until Resume.
func (a *App) Pause() error {
	a.mu.Lock()
	a.paused = true
	a.mu.Unlock()
	a.log.Info("paused")
	return a.Stop()
}

// Resume restarts listening after Pause.
func (a *App) Resume() error {
	a.log.Info("resuming")
	return a.Start()
}

// Paused reports whether the app was paused.
func (a *App) Paused() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.paused
}

// Bound returns the names of the bindings currently grabbed.
func (a *App) Bound() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := make([]string, 0, len(a.bound))
	for name := range a.bound {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply makes cfg's bindings the desired set. Removed or changed bindings
// are unbound and new ones bound when the listener is running. Bindings
// that fail to resolve or bind are reported and skipped; the rest still
// apply.
func (a *App) Apply(cfg *config.Config) error {
	var errs []error
	desired := make(map[string]entry, len(cfg.Bindings))
	for _, b := range cfg.Bindings {
		key, err := a.resolve(b)
		if err != nil {
			errs = append(errs, fmt.Errorf("binding %q: %w", b.Name, err))
			continue
		}
		if key.Edge == listener.Release && a.pressOnly {
			a.log.Warn("release binding will never fire with this backend", zap.String("binding", b.Name))
		}
		desired[b.Name] = entry{key: key, binding: b}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.desired = desired
	if a.lis.State() == listener.Living {
		errs = append(errs, a.sync())
	}
	return errors.Join(errs...)
}

// Check resolves every binding of cfg without touching the listener.
func (a *App) Check(cfg *config.Config) error {
	var errs []error
	for _, b := range cfg.Bindings {
		key, err := a.resolve(b)
		if err != nil {
			errs = append(errs, fmt.Errorf("binding %q: %w", b.Name, err))
			continue
		}
		a.log.Info("binding ok", zap.String("binding", b.Name), zap.Stringer("key", key))
	}
	return errors.Join(errs...)
}

func (a *App) resolve(b config.Binding) (listener.BindKey, error) {
	edge := listener.Press
	if b.Release() {
		edge = listener.Release
	}
	if b.Keycode != nil {
		return listener.Key(*b.Keycode, b.Modifiers, edge), nil
	}
	combo, err := keymap.ResolveString(a.resolver, b.Hotkey)
	if err != nil {
		return listener.BindKey{}, err
	}
	return listener.BindKey{Combo: combo, Edge: edge}, nil
}

// sync brings bound in line with desired. Callers hold mu.
func (a *App) sync() error {
	var errs []error
	for name, cur := range a.bound {
		want, ok := a.desired[name]
		if ok && reflect.DeepEqual(want, cur) {
			continue
		}
		if err := a.lis.Unbind(cur.key); err != nil {
			errs = append(errs, fmt.Errorf("unbind %q: %w", name, err))
		}
		delete(a.bound, name)
		a.log.Info("unbound", zap.String("binding", name), zap.Stringer("key", cur.key))
	}

	names := make([]string, 0, len(a.desired))
	for name := range a.desired {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := a.bound[name]; ok {
			continue
		}
		e := a.desired[name]
		if err := a.lis.Bind(e.key, a.action(e.binding)); err != nil {
			errs = append(errs, fmt.Errorf("bind %q (%s): %w", name, e.key, err))
			continue
		}
		a.bound[name] = e
		a.log.Info("bound", zap.String("binding", name), zap.Stringer("key", e.key))
	}

	err := errors.Join(errs...)
	if err != nil {
		a.log.Error("some bindings were not applied", zap.Error(err))
	}
	return err
}

// action returns the callback of b. It runs on the listener's worker, so
// anything slower than logging happens on another goroutine.
func (a *App) action(b config.Binding) func() {
	return func() {
		fields := []zap.Field{zap.String("binding", b.Name)}
		if b.Message != "" {
			fields = append(fields, zap.String("message", b.Message))
		}
		a.log.Info("hotkey", fields...)
		if len(b.Run) > 0 {
			a.runner(b.Name, b.Run)
		}
		if b.Notify || b.Copy != "" {
			go a.desktop(b)
		}
	}
}

// desktop performs the clipboard and notification parts of b.
func (a *App) desktop(b config.Binding) {
	log := a.log.With(zap.String("binding", b.Name))
	if b.Copy != "" {
		if err := a.copy(b.Copy); err != nil {
			log.Warn("clipboard write failed", zap.Error(err))
		}
	}
	if b.Notify {
		msg := b.Message
		if msg == "" {
			msg = b.Name
		}
		if err := a.notify("keywatch", msg); err != nil {
			log.Warn("notification failed", zap.Error(err))
		}
	}
}

func (a *App) execRunner(name string, argv []string) {
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		a.log.Error("command failed to start", zap.String("binding", name), zap.Strings("argv", argv), zap.Error(err))
		return
	}
	go func() {
		err := cmd.Wait()
		log := a.log.With(zap.String("binding", name), zap.Int("pid", cmd.Process.Pid))
		if err != nil {
			log.Warn("command exited", zap.Error(err))
			return
		}
		log.Debug("command finished")
	}()
}
