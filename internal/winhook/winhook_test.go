package winhook

import (
	"errors"
	"testing"

	"keywatch/internal/listener"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry[string]()
	if err := r.Put(7, "first"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := r.Put(7, "second"); err == nil {
		t.Error("Expected a thread to be registered only once")
	}
	if v, ok := r.Get(7); !ok || v != "first" {
		t.Errorf("Expected first, got %q, %v", v, ok)
	}
	r.Delete(7)
	if _, ok := r.Get(7); ok {
		t.Error("Expected thread to be gone")
	}
	if r.Len() != 0 {
		t.Errorf("Expected empty registry, got %d", r.Len())
	}
}

func TestClaims(t *testing.T) {
	cl := NewClaims()
	a, b := new(int), new(int)
	combo := listener.Combo{Code: 0x41, Mods: ModControl}

	if err := cl.Claim(a, combo); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := cl.Claim(a, combo); err != nil {
		t.Errorf("Expected re-claim by owner to succeed, got %v", err)
	}
	if err := cl.Claim(b, combo); !errors.Is(err, listener.ErrAlreadyGrabbed) {
		t.Errorf("Expected ErrAlreadyGrabbed, got %v", err)
	}
	if err := cl.ClaimAll(b); !errors.Is(err, listener.ErrAlreadyGrabbed) {
		t.Errorf("Expected whole-device claim to conflict, got %v", err)
	}

	cl.Release(b, combo)
	if err := cl.Claim(b, combo); !errors.Is(err, listener.ErrAlreadyGrabbed) {
		t.Error("Release by a non-owner must not free the combo")
	}

	cl.ReleaseAll(a)
	if err := cl.ClaimAll(b); err != nil {
		t.Fatalf("ClaimAll: %v", err)
	}
	if err := cl.Claim(a, combo); !errors.Is(err, listener.ErrAlreadyGrabbed) {
		t.Errorf("Expected claim under a whole-device owner to fail, got %v", err)
	}
	cl.ReleaseAll(b)
	if err := cl.Claim(a, combo); err != nil {
		t.Errorf("Expected claim after release, got %v", err)
	}
}

func TestModState(t *testing.T) {
	var s ModState
	if s.Update(0x41, true) {
		t.Error("A is not a modifier")
	}
	s.Update(0xA2, true) // left ctrl
	s.Update(0xA0, true) // left shift
	s.Update(0xA1, true) // right shift
	if got := s.Mods(); got != ModControl|ModShift {
		t.Errorf("Expected ctrl+shift, got %#x", got)
	}
	s.Update(0xA0, false)
	if got := s.Mods(); got != ModControl|ModShift {
		t.Errorf("Expected shift to stay while right shift is held, got %#x", got)
	}
	s.Update(0xA1, false)
	s.Update(0x5B, true)
	if got := s.Mods(); got != ModControl|ModWin {
		t.Errorf("Expected ctrl+win, got %#x", got)
	}
}

func TestWheelAccumulates(t *testing.T) {
	var w Wheel
	if clicks := w.Add(60, false); len(clicks) != 0 {
		t.Errorf("Expected half a notch to wait, got %v", clicks)
	}
	clicks := w.Add(60, false)
	if len(clicks) != 1 || clicks[0] != ButtonWheelUp {
		t.Errorf("Expected one wheel-up click, got %v", clicks)
	}
	clicks = w.Add(-240, false)
	if len(clicks) != 2 || clicks[0] != ButtonWheelDown {
		t.Errorf("Expected two wheel-down clicks, got %v", clicks)
	}
	clicks = w.Add(120, true)
	if len(clicks) != 1 || clicks[0] != ButtonWheelRight {
		t.Errorf("Expected wheel-right, got %v", clicks)
	}
	clicks = w.Add(-120, true)
	if len(clicks) != 1 || clicks[0] != ButtonWheelLeft {
		t.Errorf("Expected wheel-left, got %v", clicks)
	}
}

func TestWheelReversalDropsPartialNotch(t *testing.T) {
	var w Wheel
	w.Add(100, false)
	if clicks := w.Add(-100, false); len(clicks) != 0 {
		t.Errorf("Expected no click, got %v", clicks)
	}
	if clicks := w.Add(-20, false); len(clicks) != 1 || clicks[0] != ButtonWheelDown {
		t.Errorf("Expected the reversed delta to count from zero, got %v", clicks)
	}
}

func TestHookStateKeysMode(t *testing.T) {
	s := newHookState(ModeKeys, false)
	combo := listener.Combo{Code: 0x41, Mods: ModControl}
	s.grabbed[combo] = true

	if s.key(0x41, true) {
		t.Error("Ungrabbed combo must pass through")
	}
	if s.key(0xA2, true) {
		t.Error("Modifiers must pass through in keys mode")
	}
	if !s.key(0x41, true) {
		t.Fatal("Expected grabbed combo to be swallowed")
	}
	// Ctrl goes up before A: the release still belongs to ctrl+A.
	s.key(0xA2, false)
	if !s.key(0x41, false) {
		t.Fatal("Expected release of held combo to be swallowed")
	}

	press, _ := s.pop()
	release, _ := s.pop()
	if press.raw != (listener.RawEvent{Code: 0x41, Mods: ModControl}) {
		t.Errorf("Unexpected press %+v", press.raw)
	}
	if release.raw != (listener.RawEvent{Code: 0x41, Mods: ModControl, Release: true}) {
		t.Errorf("Unexpected release %+v", release.raw)
	}
	if _, ok := s.pop(); ok {
		t.Error("Expected queue to be empty")
	}
}

func TestHookStateKeyboardMode(t *testing.T) {
	s := newHookState(ModeKeyboard, false)
	if !s.key(0x10, true) || !s.key(0x42, true) {
		t.Fatal("Expected every key to be swallowed")
	}
	shift, _ := s.pop()
	b, _ := s.pop()
	if shift.raw.Mods != 0 {
		t.Errorf("Expected modifier press to report prior state, got %#x", shift.raw.Mods)
	}
	if b.raw.Mods != ModShift {
		t.Errorf("Expected shift on B, got %#x", b.raw.Mods)
	}
}

func TestHookStateMouseMode(t *testing.T) {
	s := newHookState(ModeMouse, true)
	s.originX, s.originY = 500, 400

	if !s.button(ButtonRight, true) {
		t.Error("Expected button to be swallowed")
	}
	if !s.scroll(120, false) {
		t.Error("Expected wheel to be swallowed")
	}
	if !s.moved(503, 390) {
		t.Error("Expected motion to be swallowed while capturing")
	}

	var raws []listener.RawEvent
	var motion *Motion
	for ev, ok := s.pop(); ok; ev, ok = s.pop() {
		if ev.motion != nil {
			motion = ev.motion
			continue
		}
		raws = append(raws, ev.raw)
	}
	want := []listener.RawEvent{
		{Code: ButtonRight},
		{Code: ButtonWheelUp},
		{Code: ButtonWheelUp, Release: true},
	}
	if len(raws) != len(want) {
		t.Fatalf("Expected %d events, got %v", len(want), raws)
	}
	for i := range want {
		if raws[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, raws[i], want[i])
		}
	}
	if motion == nil || motion.DX != 3 || motion.DY != -10 {
		t.Errorf("Unexpected motion %+v", motion)
	}
}

func TestHookStateMouseWithoutCapture(t *testing.T) {
	s := newHookState(ModeMouse, false)
	if s.moved(1, 1) {
		t.Error("Motion must pass through without a move callback")
	}
	s = newHookState(ModeKeys, false)
	if s.button(ButtonLeft, true) {
		t.Error("Buttons must pass through outside mouse mode")
	}
}
