package listener

import (
	"errors"
	"testing"
)

func TestBindTableInsertConflict(t *testing.T) {
	table := NewBindTable()
	key := Key(30, 0, Press)

	calls := 0
	if err := table.Insert(key, func() { calls++ }); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := table.Insert(key, func() { calls += 100 }); !errors.Is(err, ErrAlreadyBound) {
		t.Fatalf("Expected ErrAlreadyBound, got %v", err)
	}

	fn, ok := table.Lookup(key)
	if !ok {
		t.Fatal("Expected key to be bound")
	}
	fn()
	if calls != 1 {
		t.Errorf("Expected original callback to survive, calls = %d", calls)
	}
}

func TestBindTableEdgesAreDistinct(t *testing.T) {
	table := NewBindTable()
	if err := table.Insert(Key(48, 0, Press), func() {}); err != nil {
		t.Fatalf("Insert press: %v", err)
	}
	if err := table.Insert(Key(48, 0, Release), func() {}); err != nil {
		t.Fatalf("Insert release: %v", err)
	}
	if table.Len() != 2 {
		t.Errorf("Expected 2 bindings, got %d", table.Len())
	}
	if table.Has(Key(48, 1, Press)) {
		t.Error("Different modifiers must not match")
	}
}

func TestBindTableRemove(t *testing.T) {
	table := NewBindTable()
	key := Key(1, 4, Release)

	if _, err := table.Remove(key); !errors.Is(err, ErrNotBound) {
		t.Errorf("Expected ErrNotBound, got %v", err)
	}
	table.Insert(key, func() {})
	if _, err := table.Remove(key); err != nil {
		t.Errorf("Remove: %v", err)
	}
	if table.Has(key) {
		t.Error("Expected key to be gone")
	}
}

func TestBindTableDrainAll(t *testing.T) {
	table := NewBindTable()
	table.Insert(Key(3, 0, Press), func() {})
	table.Insert(Key(1, 0, Release), func() {})
	table.Insert(Key(1, 0, Press), func() {})

	keys := table.DrainAll()
	want := []BindKey{Key(1, 0, Press), Key(1, 0, Release), Key(3, 0, Press)}
	if len(keys) != len(want) {
		t.Fatalf("Expected %d keys, got %d", len(want), len(keys))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %s, want %s", i, keys[i], want[i])
		}
	}
	if table.Len() != 0 {
		t.Errorf("Expected empty table, got %d", table.Len())
	}
}

func TestRawEventKey(t *testing.T) {
	ev := RawEvent{Code: 9, Mods: 0x14, Release: true}
	if got := ev.Key(); got != Key(9, 0x14, Release) {
		t.Errorf("Expected release key, got %s", got)
	}
	if got := (RawEvent{Code: 9}).Key(); got.Edge != Press {
		t.Errorf("Expected press edge, got %s", got.Edge)
	}
}
