// Package transform implements the per-frame image pipeline: orient,
// fit, pad, adjust, overlay. Every stage takes and returns a plain
// image.Image/*domain.Frame so stages compose without the caller
// tracking format-specific state, the same way the teacher's
// internal/render package threads *domain.Frame through composer.go.
package transform

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/draw"

	"github.com/jwulff/photoframe-server/internal/domain"
)

// ExifOrientation parses the EXIF orientation tag (values 1-8, per the
// TIFF/EXIF spec) out of a JPEG's APP1 segment. Returns 1 (no
// transform) if data isn't a JPEG, carries no EXIF, or the tag is
// absent — callers never need a separate "has orientation" check.
//
// No EXIF-parsing library appears anywhere in the retrieval pack (the
// original Rust implementation used kamadak-exif, which has no Go
// analog among the examples), so this walks the APP1/TIFF structure by
// hand; see DESIGN.md.
func ExifOrientation(data []byte) int {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return 1
	}
	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			return 1
		}
		marker := data[pos+1]
		if marker == 0xD8 || marker == 0xD9 {
			return 1
		}
		if marker >= 0xD0 && marker <= 0xD7 {
			pos += 2
			continue
		}
		segLen := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if marker == 0xE1 { // APP1: EXIF
			segStart := pos + 4
			segEnd := pos + 2 + segLen
			if segEnd > len(data) {
				return 1
			}
			if tag, ok := parseExifOrientation(data[segStart:segEnd]); ok {
				return tag
			}
			return 1
		}
		if marker == 0xDA { // SOS: compressed data follows, no more APPn
			return 1
		}
		pos += 2 + segLen
	}
	return 1
}

func parseExifOrientation(seg []byte) (int, bool) {
	if !bytes.HasPrefix(seg, []byte("Exif\x00\x00")) {
		return 0, false
	}
	tiff := seg[6:]
	if len(tiff) < 8 {
		return 0, false
	}
	var order binary.ByteOrder
	switch string(tiff[0:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 0, false
	}
	ifdOffset := order.Uint32(tiff[4:8])
	if int(ifdOffset)+2 > len(tiff) {
		return 0, false
	}
	numEntries := order.Uint16(tiff[ifdOffset : ifdOffset+2])
	entryBase := int(ifdOffset) + 2
	const orientationTag = 0x0112
	for i := 0; i < int(numEntries); i++ {
		off := entryBase + i*12
		if off+12 > len(tiff) {
			break
		}
		tagID := order.Uint16(tiff[off : off+2])
		if tagID == orientationTag {
			valueOffset := off + 8
			return int(order.Uint16(tiff[valueOffset : valueOffset+2])), true
		}
	}
	return 0, false
}

// Orient applies the EXIF orientation tag and then, if flip180 is set,
// an additional 180-degree rotation (the user's flip-180 setting from
// FrameSettings). The standard EXIF orientation table:
//
//	1 normal   2 flip-h   3 rotate-180  4 flip-v
//	5 transpose 6 rotate-90cw 7 transverse 8 rotate-270cw
func Orient(src image.Image, exifTag int, flip180 bool) image.Image {
	out := applyExifTag(src, exifTag)
	if flip180 {
		out = rotate180(out)
	}
	return out
}

func applyExifTag(src image.Image, tag int) image.Image {
	switch tag {
	case 2:
		return flipHorizontal(src)
	case 3:
		return rotate180(src)
	case 4:
		return flipVertical(src)
	case 5:
		return rotate270(flipHorizontal(src))
	case 6:
		return rotate90(src)
	case 7:
		return rotate90(flipHorizontal(src))
	case 8:
		return rotate270(src)
	default:
		return src
	}
}

func rotate90(src image.Image) *domain.Frame {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := domain.NewFrame(h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out.SetPixel(h-1-y, x, domain.NewRGB(uint8(r>>8), uint8(g>>8), uint8(bl>>8)))
		}
	}
	return out
}

func rotate180(src image.Image) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := domain.NewFrame(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out.SetPixel(w-1-x, h-1-y, domain.NewRGB(uint8(r>>8), uint8(g>>8), uint8(bl>>8)))
		}
	}
	return out
}

func rotate270(src image.Image) *domain.Frame {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := domain.NewFrame(h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out.SetPixel(y, w-1-x, domain.NewRGB(uint8(r>>8), uint8(g>>8), uint8(bl>>8)))
		}
	}
	return out
}

func flipHorizontal(src image.Image) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := domain.NewFrame(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out.SetPixel(w-1-x, y, domain.NewRGB(uint8(r>>8), uint8(g>>8), uint8(bl>>8)))
		}
	}
	return out
}

func flipVertical(src image.Image) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := domain.NewFrame(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out.SetPixel(x, h-1-y, domain.NewRGB(uint8(r>>8), uint8(g>>8), uint8(bl>>8)))
		}
	}
	return out
}

// ResolvedOrientation reports landscape/portrait for a decoded image's
// pixel dimensions, used by the selection loop to verify a fetched
// asset actually matches the frame's orientation policy once its
// orientation hint was "unknown".
func ResolvedOrientation(img image.Image) domain.Orientation {
	b := img.Bounds()
	if b.Dx() >= b.Dy() {
		return domain.OrientationLandscape
	}
	return domain.OrientationPortrait
}

var _ draw.Image = (*domain.Frame)(nil)
