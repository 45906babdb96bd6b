package app

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"keywatch/internal/config"
	"keywatch/internal/keymap"
	"keywatch/internal/listener"
	"keywatch/internal/listener/listenertest"
)

const (
	vkA    = 0x41
	vkB    = 0x42
	modCtl = 0x2
)

type fixture struct {
	world *listenertest.World
	a     *listenertest.Adapter
	lis   *listener.Listener
	app   *App
	runs  chan string
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{world: listenertest.NewWorld(), runs: make(chan string, 8)}
	f.a = listenertest.NewAdapter(f.world)
	log := zaptest.NewLogger(t)
	f.lis = listener.New(f.a, listener.WithLogger(log), listener.WithTimeout(time.Second))
	opts = append([]Option{
		WithLogger(log),
		WithRunner(func(name string, argv []string) { f.runs <- name + ":" + strings.Join(argv, " ") }),
	}, opts...)
	f.app = New(f.lis, keymap.VKResolver{}, opts...)
	t.Cleanup(func() { f.app.Stop() })
	return f
}

func cfgWith(bindings ...config.Binding) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Bindings = bindings
	return cfg
}

func expectRun(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Errorf("Expected run %q, got %q", want, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Expected run %q", want)
	}
}

func TestApplyBeforeStart(t *testing.T) {
	f := newFixture(t)
	err := f.app.Apply(cfgWith(config.Binding{Name: "a", Hotkey: "ctrl+a", Run: []string{"echo", "hi"}}))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(f.app.Bound()) != 0 {
		t.Error("Expected nothing bound before Start")
	}
	if err := f.app.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := f.app.Bound(); !slices.Equal(got, []string{"a"}) {
		t.Fatalf("Expected [a] bound, got %v", got)
	}
	if !f.world.Press(vkA, modCtl) {
		t.Fatal("Expected ctrl+a to be grabbed")
	}
	expectRun(t, f.runs, "a:echo hi")
}

func TestApplyDiffs(t *testing.T) {
	f := newFixture(t)
	if err := f.app.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	keep := config.Binding{Name: "keep", Hotkey: "ctrl+a", Run: []string{"keep"}}
	drop := config.Binding{Name: "drop", Hotkey: "b", Run: []string{"drop"}}
	if err := f.app.Apply(cfgWith(keep, drop)); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	grabs := len(f.a.Grabs())

	code := uint32(vkB)
	raw := config.Binding{Name: "raw", Keycode: &code, Modifiers: modCtl, Run: []string{"raw"}}
	if err := f.app.Apply(cfgWith(keep, raw)); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := f.app.Bound(); !slices.Equal(got, []string{"keep", "raw"}) {
		t.Errorf("Expected [keep raw], got %v", got)
	}
	if got := len(f.a.Grabs()); got != grabs+1 {
		t.Errorf("Expected exactly one new grab, got %d", got-grabs)
	}
	if f.world.Owner(listener.Combo{Code: vkB}) != nil {
		t.Error("Expected dropped binding to be released")
	}
	f.world.Press(vkB, modCtl)
	expectRun(t, f.runs, "raw:raw")
	f.world.Press(vkA, modCtl)
	expectRun(t, f.runs, "keep:keep")
}

func TestApplyRebindsChangedAction(t *testing.T) {
	f := newFixture(t)
	f.app.Start()
	f.app.Apply(cfgWith(config.Binding{Name: "x", Hotkey: "a", Run: []string{"old"}}))
	f.app.Apply(cfgWith(config.Binding{Name: "x", Hotkey: "a", Run: []string{"new"}}))
	f.world.Press(vkA, 0)
	expectRun(t, f.runs, "x:new")
}

func TestApplyReportsBadBindings(t *testing.T) {
	f := newFixture(t)
	f.app.Start()
	err := f.app.Apply(cfgWith(
		config.Binding{Name: "good", Hotkey: "a"},
		config.Binding{Name: "bad", Hotkey: "ctrl+nosuchkey"},
		config.Binding{Name: "dup", Hotkey: "a"},
	))
	if !errors.Is(err, keymap.ErrUnknownKey) {
		t.Errorf("Expected ErrUnknownKey, got %v", err)
	}
	if !errors.Is(err, listener.ErrAlreadyBound) {
		t.Errorf("Expected ErrAlreadyBound for the duplicate combo, got %v", err)
	}
	if got := f.app.Bound(); len(got) != 1 {
		t.Errorf("Expected one binding to survive, got %v", got)
	}
}

func TestReleaseEdge(t *testing.T) {
	f := newFixture(t)
	f.app.Start()
	f.app.Apply(cfgWith(
		config.Binding{Name: "down", Hotkey: "a", Run: []string{"down"}},
		config.Binding{Name: "up", Hotkey: "a", Edge: config.EdgeRelease, Run: []string{"up"}},
	))
	if got := len(f.a.Grabs()); got != 1 {
		t.Errorf("Expected both edges to share one grab, got %d", got)
	}
	f.world.Press(vkA, 0)
	expectRun(t, f.runs, "down:down")
	f.world.Release(vkA, 0)
	expectRun(t, f.runs, "up:up")
}

func TestPauseResume(t *testing.T) {
	f := newFixture(t)
	f.app.Start()
	f.app.Apply(cfgWith(config.Binding{Name: "a", Hotkey: "a", Run: []string{"go"}}))

	if err := f.app.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if !f.app.Paused() || f.lis.State() != listener.Idle {
		t.Error("Expected paused app and idle listener")
	}
	if f.world.Owner(listener.Combo{Code: vkA}) != nil {
		t.Error("Expected grab released while paused")
	}
	// Config changes while paused apply on resume.
	f.app.Apply(cfgWith(config.Binding{Name: "b", Hotkey: "b", Run: []string{"b"}}))

	if err := f.app.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if f.app.Paused() {
		t.Error("Expected not paused after Resume")
	}
	if got := f.app.Bound(); !slices.Equal(got, []string{"b"}) {
		t.Errorf("Expected [b] after resume, got %v", got)
	}
	f.world.Press(vkB, 0)
	expectRun(t, f.runs, "b:b")
}

func TestPressOnlyWarns(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	f := newFixture(t, PressOnly(true), WithLogger(zap.New(core)))
	f.app.Apply(cfgWith(config.Binding{Name: "up", Hotkey: "a", Edge: config.EdgeRelease}))
	if logs.FilterMessageSnippet("never fire").Len() != 1 {
		t.Errorf("Expected one warning, got %v", logs.All())
	}
}

func TestCheck(t *testing.T) {
	f := newFixture(t)
	if err := f.app.Check(cfgWith(config.Binding{Name: "a", Hotkey: "ctrl+f5"})); err != nil {
		t.Errorf("Check: %v", err)
	}
	if err := f.app.Check(cfgWith(config.Binding{Name: "a", Hotkey: "hyper+a"})); !errors.Is(err, keymap.ErrUnknownModifier) {
		t.Errorf("Expected ErrUnknownModifier, got %v", err)
	}
	if f.lis.State() != listener.Idle {
		t.Error("Expected Check to leave the listener idle")
	}
}

func TestMessageLogged(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	f := newFixture(t, WithLogger(zap.New(core)))
	f.app.Start()
	f.app.Apply(cfgWith(config.Binding{Name: "m", Hotkey: "a", Message: "hello"}))
	f.world.Press(vkA, 0)

	deadline := time.Now().Add(2 * time.Second)
	for logs.FilterField(zap.String("message", "hello")).Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Expected the message to be logged")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDesktopActions(t *testing.T) {
	notes := make(chan string, 2)
	copies := make(chan string, 2)
	f := newFixture(t,
		WithNotifier(func(title, msg string) error { notes <- title + ":" + msg; return nil }),
		WithClipboard(func(text string) error { copies <- text; return nil }),
	)
	f.app.Start()
	f.app.Apply(cfgWith(
		config.Binding{Name: "snippet", Hotkey: "ctrl+a", Copy: "hello world", Notify: true},
		config.Binding{Name: "ping", Hotkey: "b", Message: "pong", Notify: true},
	))

	f.world.Press(vkA, modCtl)
	expectRun(t, copies, "hello world")
	expectRun(t, notes, "keywatch:snippet")

	f.world.Press(vkB, 0)
	expectRun(t, notes, "keywatch:pong")
}
