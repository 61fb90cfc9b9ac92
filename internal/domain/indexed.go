package domain

import (
	"image"
	"image/color"
)

// IndexedFrame is the post-dither output: one palette index per pixel,
// at the panel's exact dimensions. It never holds more than 256 colors,
// which every dithering identifier in this package respects.
type IndexedFrame struct {
	Width   int
	Height  int
	Indices []uint8
	Palette []RGB
}

// NewIndexedFrame allocates a zeroed (index 0 everywhere) indexed frame.
func NewIndexedFrame(width, height int, palette []RGB) *IndexedFrame {
	return &IndexedFrame{
		Width:   width,
		Height:  height,
		Indices: make([]uint8, width*height),
		Palette: palette,
	}
}

// SetIndex sets the palette index at (x, y). Out-of-bounds is a no-op,
// matching Frame.SetPixel's convention.
func (f *IndexedFrame) SetIndex(x, y int, index uint8) {
	if x < 0 || x >= f.Width || y < 0 || y >= f.Height {
		return
	}
	f.Indices[y*f.Width+x] = index
}

// Index returns the palette index at (x, y), or 0 if out of bounds.
func (f *IndexedFrame) Index(x, y int) uint8 {
	if x < 0 || x >= f.Width || y < 0 || y >= f.Height {
		return 0
	}
	return f.Indices[y*f.Width+x]
}

// AsPaletted adapts the frame to image.Paletted so it can be handed to
// golang.org/x/image/bmp.Encode without re-walking the pixel data.
func (f *IndexedFrame) AsPaletted() *image.Paletted {
	pal := make(color.Palette, len(f.Palette))
	for i, c := range f.Palette {
		pal[i] = c.Color()
	}
	return &image.Paletted{
		Pix:     f.Indices,
		Stride:  f.Width,
		Rect:    image.Rect(0, 0, f.Width, f.Height),
		Palette: pal,
	}
}

// Equal reports whether two indexed frames have identical dimensions and
// pixel indices. Palette entries are not compared (two frames rendered
// against generation-bumped but value-identical palettes should still
// compare equal) — used by determinism tests.
func (f *IndexedFrame) Equal(other *IndexedFrame) bool {
	if f == nil || other == nil {
		return f == other
	}
	if f.Width != other.Width || f.Height != other.Height {
		return false
	}
	if len(f.Indices) != len(other.Indices) {
		return false
	}
	for i := range f.Indices {
		if f.Indices[i] != other.Indices[i] {
			return false
		}
	}
	return true
}
