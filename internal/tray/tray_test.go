package tray

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"testing"
)

func TestKeyCapIsPNG(t *testing.T) {
	img, err := png.Decode(bytes.NewReader(keyCap(activeColor)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != iconSize || b.Dy() != iconSize {
		t.Errorf("Expected %dx%d icon, got %v", iconSize, iconSize, b)
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0 {
		t.Error("Expected transparent border")
	}
	if _, _, _, a := img.At(iconSize/2, iconSize/2).RGBA(); a == 0 {
		t.Error("Expected opaque center")
	}
}

func TestIconsDiffer(t *testing.T) {
	if bytes.Equal(keyCap(activeColor), keyCap(pausedColor)) {
		t.Error("Expected paused icon to differ from active icon")
	}
}

func TestWrapICO(t *testing.T) {
	data := keyCap(activeColor)
	ico := wrapICO(data)
	if len(ico) != 22+len(data) {
		t.Fatalf("Expected %d bytes, got %d", 22+len(data), len(ico))
	}
	if binary.LittleEndian.Uint16(ico[2:]) != 1 || binary.LittleEndian.Uint16(ico[4:]) != 1 {
		t.Error("Expected one icon of type 1")
	}
	if size := binary.LittleEndian.Uint32(ico[14:]); size != uint32(len(data)) {
		t.Errorf("Expected image size %d, got %d", len(data), size)
	}
	if off := binary.LittleEndian.Uint32(ico[18:]); off != 22 {
		t.Errorf("Expected offset 22, got %d", off)
	}
	if !bytes.Equal(ico[22:], data) {
		t.Error("Expected PNG payload after the header")
	}
}

func TestMenuBuilding(t *testing.T) {
	tr := New("keywatch", "tip")
	status := tr.AddLabel("Listening")
	pause := tr.AddCheckbox("Pause", func() {})
	tr.AddSeparator()
	quit := tr.AddMenuItem("Quit", func() {})

	if status != 0 || pause != 1 || quit != 3 {
		t.Errorf("Unexpected ids %d %d %d", status, pause, quit)
	}
	if !tr.items[status].Disabled || !tr.items[pause].Checkable {
		t.Error("Expected label disabled and pause checkable")
	}
	if tr.items[2] != nil {
		t.Error("Expected separator at index 2")
	}
	// Not running: setters must be no-ops.
	tr.SetItemChecked(pause, true)
	tr.SetItemTitle(status, "Paused")
	tr.SetPaused(true)
	if !tr.paused {
		t.Error("Expected paused state remembered for Run")
	}
}
