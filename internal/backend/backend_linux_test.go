//go:build linux && !portable

package backend

import (
	"errors"
	"slices"
	"testing"

	"go.uber.org/zap/zaptest"

	"keywatch/internal/listener"
)

func TestPortableNeedsBuildTag(t *testing.T) {
	if slices.Contains(Names(), "portable") {
		t.Errorf("Expected no portable backend without the build tag, got %v", Names())
	}
	_, err := New(Options{Name: "portable", Log: zaptest.NewLogger(t)})
	if !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("Expected ErrUnknownBackend, got %v", err)
	}
}

func TestKeysWithoutDisplayFails(t *testing.T) {
	_, err := New(Options{Name: "keys", Display: ":4242", Log: zaptest.NewLogger(t)})
	if err == nil {
		t.Fatal("Expected an error for an unreachable display")
	}
}

func TestMouseBackendsNeedNoDisplayUntilStart(t *testing.T) {
	for _, name := range []string{"buttons", "cursor", "mouse"} {
		b, err := New(Options{Name: name, Display: ":4242", Log: zaptest.NewLogger(t)})
		if err != nil {
			t.Errorf("New(%s): %v", name, err)
			continue
		}
		err = b.Adapter.Open()
		var perr *listener.PlatformError
		if !errors.As(err, &perr) {
			if err == nil {
				b.Adapter.Close()
			}
			t.Errorf("Expected PlatformError opening %s on an unreachable display, got %v", name, err)
		}
		b.Close()
	}
}
