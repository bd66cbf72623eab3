// Package lcd is the PPU's pixel sink: a 160x144 RGBA framebuffer the PPU
// pushes finished pixels into column by column, plus a PNG export helper
// for headless runs.
package lcd

import (
	"image"
	"image/png"
	"io"
)

const (
	Width  = 160
	Height = 144
)

// Shade indices map DMG 2-bit color through a palette register (BGP/OBP0/OBP1)
// before reaching the framebuffer.
var dmgPalette = [4][4]byte{
	{0x9B, 0xBC, 0x0F, 0xFF},
	{0x8B, 0xAC, 0x0F, 0xFF},
	{0x30, 0x62, 0x30, 0xFF},
	{0x0F, 0x38, 0x0F, 0xFF},
}

type Lcd struct {
	fb [Width * Height * 4]byte
}

func New() *Lcd { return &Lcd{} }

// SetPixel writes one shade-resolved (0-3) pixel at (x,y).
func (l *Lcd) SetPixel(x, y int, shade byte) {
	i := (y*Width + x) * 4
	copy(l.fb[i:i+4], dmgPalette[shade&0x03][:])
}

func (l *Lcd) Framebuffer() []byte { return l.fb[:] }

func (l *Lcd) WritePNG(w io.Writer) error {
	img := &image.RGBA{
		Pix:    append([]byte(nil), l.fb[:]...),
		Stride: 4 * Width,
		Rect:   image.Rect(0, 0, Width, Height),
	}
	return png.Encode(w, img)
}
