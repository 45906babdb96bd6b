//go:build !linux || portable

package backend

import (
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestPortableAlwaysAvailable(t *testing.T) {
	b, err := New(Options{Name: "portable", Log: zaptest.NewLogger(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer b.Close()
	if b.Adapter == nil || b.Resolver == nil {
		t.Error("Expected adapter and resolver to be set")
	}
	if b.PressOnly {
		t.Error("Expected portable backend to report releases")
	}
}
