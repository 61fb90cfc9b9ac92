package transform

import (
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/jwulff/photoframe-server/internal/domain"
)

// lanczos3 is a custom Lanczos-3 draw.Kernel, used for downscaling
// (x/image/draw ships CatmullRom and ApproxBiLinear but no Lanczos
// variant), grounded on the standard windowed-sinc formula.
var lanczos3 = draw.Kernel{
	Support: 3,
	At:      lanczosAt,
}

func lanczosAt(t float64) float64 {
	if t == 0 {
		return 1
	}
	if t < -3 || t > 3 {
		return 0
	}
	piT := math.Pi * t
	return 3 * math.Sin(piT) * math.Sin(piT/3) / (piT * piT)
}

// Fit scales src to exactly fill visibleW x visibleH. For FitCover it
// scales so both dimensions are covered, then crops centered; for
// FitContain it scales so neither dimension is exceeded and centers
// the result on a palette-white visibleW x visibleH canvas, per
// spec.md's fit semantics. Downscaling uses the Lanczos-3 kernel above;
// upscaling uses x/image/draw's built-in Catmull-Rom kernel.
func Fit(src image.Image, visibleW, visibleH int, mode domain.FitMode, white domain.RGB) *domain.Frame {
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw == 0 || sh == 0 || visibleW <= 0 || visibleH <= 0 {
		return domain.NewFrameWithColor(maxInt(visibleW, 1), maxInt(visibleH, 1), white)
	}

	var scale float64
	switch mode {
	case domain.FitContain:
		scale = math.Min(float64(visibleW)/float64(sw), float64(visibleH)/float64(sh))
	default: // FitCover
		scale = math.Max(float64(visibleW)/float64(sw), float64(visibleH)/float64(sh))
	}

	scaledW := maxInt(int(math.Round(float64(sw)*scale)), 1)
	scaledH := maxInt(int(math.Round(float64(sh)*scale)), 1)

	kernel := &lanczos3
	if scale > 1 {
		kernel = draw.CatmullRom
	}

	scaled := image.NewRGBA(image.Rect(0, 0, scaledW, scaledH))
	kernel.Scale(scaled, scaled.Bounds(), src, sb, draw.Over, nil)

	out := domain.NewFrameWithColor(visibleW, visibleH, white)
	switch mode {
	case domain.FitContain:
		offX := (visibleW - scaledW) / 2
		offY := (visibleH - scaledH) / 2
		draw.Draw(out, image.Rect(offX, offY, offX+scaledW, offY+scaledH), scaled, image.Point{}, draw.Src)
	default: // FitCover: crop centered
		cropX := (scaledW - visibleW) / 2
		cropY := (scaledH - visibleH) / 2
		srcRect := image.Rect(cropX, cropY, cropX+visibleW, cropY+visibleH)
		draw.Draw(out, out.Bounds(), scaled, srcRect.Min, draw.Src)
	}
	return out
}

// PlaceOnCanvas copies a visibleW x visibleH fitted image onto a
// palette-white panelW x panelH canvas at the overscan's top-left
// offset, per spec.md invariant 3: the border occluded by the physical
// frame stays pure palette-white.
func PlaceOnCanvas(fitted image.Image, panelW, panelH int, overscan domain.Overscan, white domain.RGB) *domain.Frame {
	canvas := domain.NewFrameWithColor(panelW, panelH, white)
	b := fitted.Bounds()
	dst := image.Rect(overscan.Left, overscan.Top, overscan.Left+b.Dx(), overscan.Top+b.Dy())
	draw.Draw(canvas, dst, fitted, b.Min, draw.Src)
	return canvas
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
