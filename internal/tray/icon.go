package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"runtime"
)

const iconSize = 16

var (
	activeColor = color.NRGBA{R: 0x2e, G: 0x9e, B: 0x5b, A: 0xff}
	pausedColor = color.NRGBA{R: 0x8a, G: 0x8a, B: 0x8a, A: 0xff}
)

// iconFor returns the tray icon: a key cap, green while listening and grey
// while paused. Windows wants an ICO container; elsewhere PNG is used.
func iconFor(paused bool) []byte {
	fill := activeColor
	if paused {
		fill = pausedColor
	}
	data := keyCap(fill)
	if runtime.GOOS == "windows" {
		return wrapICO(data)
	}
	return data
}

// keyCap draws a rounded square with a lighter top face.
func keyCap(fill color.NRGBA) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	face := color.NRGBA{
		R: fill.R + (0xff-fill.R)/3,
		G: fill.G + (0xff-fill.G)/3,
		B: fill.B + (0xff-fill.B)/3,
		A: 0xff,
	}
	for y := 1; y < iconSize-1; y++ {
		for x := 1; x < iconSize-1; x++ {
			corner := (x == 1 || x == iconSize-2) && (y == 1 || y == iconSize-2)
			if corner {
				continue
			}
			c := fill
			if x >= 4 && x < iconSize-4 && y >= 3 && y < iconSize-6 {
				c = face
			}
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	// Encoding an in-memory NRGBA image cannot fail.
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// wrapICO puts a PNG into a single-image ICO container.
func wrapICO(pngData []byte) []byte {
	var buf bytes.Buffer
	// ICONDIR
	binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, 1})
	// ICONDIRENTRY
	buf.Write([]byte{iconSize, iconSize, 0, 0})
	binary.Write(&buf, binary.LittleEndian, [2]uint16{1, 32})
	binary.Write(&buf, binary.LittleEndian, [2]uint32{uint32(len(pngData)), 6 + 16})
	buf.Write(pngData)
	return buf.Bytes()
}
