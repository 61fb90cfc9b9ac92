package transform

import (
	"math"

	"github.com/jwulff/photoframe-server/internal/domain"
)

// Adjust applies brightness, contrast, saturation, and sharpness, in
// that fixed order, per spec.md §4.3 step 4. It mutates frame in place
// and also returns it, so callers can chain it into a pipeline.
func Adjust(frame *domain.Frame, a domain.Adjustments) *domain.Frame {
	if a.Brightness != 0 {
		applyBrightness(frame, a.Brightness)
	}
	if a.Contrast != 0 {
		applyContrast(frame, a.Contrast)
	}
	if a.Saturation != 0 {
		applySaturation(frame, a.Saturation)
	}
	if a.Sharpness != 0 {
		applySharpness(frame, a.Sharpness)
	}
	return frame
}

func applyBrightness(frame *domain.Frame, brightness int) {
	shift := float64(brightness) * 2.55 // map [-50,50] onto roughly [-127,127]
	forEachPixel(frame, func(p domain.RGB) domain.RGB {
		return domain.NewRGB(
			clamp8(float64(p.R)+shift),
			clamp8(float64(p.G)+shift),
			clamp8(float64(p.B)+shift),
		)
	})
}

func applyContrast(frame *domain.Frame, contrast int) {
	slope := 1 + float64(contrast)/50
	forEachPixel(frame, func(p domain.RGB) domain.RGB {
		return domain.NewRGB(
			clamp8(128+(float64(p.R)-128)*slope),
			clamp8(128+(float64(p.G)-128)*slope),
			clamp8(128+(float64(p.B)-128)*slope),
		)
	})
}

func applySaturation(frame *domain.Frame, saturation float64) {
	// saturation in [-0.25, 0.25]; negative blends toward luminance,
	// positive blends away from it (the same linear interpolation with
	// the sign of t flipped).
	forEachPixel(frame, func(p domain.RGB) domain.RGB {
		y := 0.299*float64(p.R) + 0.587*float64(p.G) + 0.114*float64(p.B)
		t := -saturation * 4 // scale [-0.25,0.25] to a full [-1,1] blend range
		return domain.NewRGB(
			clamp8(y+(float64(p.R)-y)*(1-t)),
			clamp8(y+(float64(p.G)-y)*(1-t)),
			clamp8(y+(float64(p.B)-y)*(1-t)),
		)
	})
}

// applySharpness implements an unsharp mask with a fixed radius of 1.0:
// blur with a small Gaussian, then push the original away from the
// blurred version by the sharpness amount. Negative sharpness performs
// the softening half of the same operation (push toward the blur
// instead of away from it), per spec.md §4.3 step 4.
func applySharpness(frame *domain.Frame, sharpness float64) {
	blurred := gaussianBlur(frame, 1.0)
	amount := sharpness / 5 // [-5,5] -> [-1,1]

	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			orig := frame.GetPixel(x, y)
			blur := blurred.GetPixel(x, y)
			if orig == nil || blur == nil {
				continue
			}
			frame.SetPixel(x, y, domain.NewRGB(
				clamp8(float64(orig.R)+(float64(orig.R)-float64(blur.R))*amount),
				clamp8(float64(orig.G)+(float64(orig.G)-float64(blur.G))*amount),
				clamp8(float64(orig.B)+(float64(orig.B)-float64(blur.B))*amount),
			))
		}
	}
}

// gaussianBlur applies a small separable Gaussian kernel sized by sigma,
// clamping at the frame edges rather than wrapping.
func gaussianBlur(frame *domain.Frame, sigma float64) *domain.Frame {
	radius := 2
	weights := make([]float64, 2*radius+1)
	var sum float64
	for i := -radius; i <= radius; i++ {
		w := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		weights[i+radius] = w
		sum += w
	}
	for i := range weights {
		weights[i] /= sum
	}

	horiz := domain.NewFrame(frame.Width, frame.Height)
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			var r, g, b float64
			for k := -radius; k <= radius; k++ {
				p := frame.GetPixel(clampInt(x+k, 0, frame.Width-1), y)
				if p == nil {
					continue
				}
				w := weights[k+radius]
				r += float64(p.R) * w
				g += float64(p.G) * w
				b += float64(p.B) * w
			}
			horiz.SetPixel(x, y, domain.NewRGB(clamp8(r), clamp8(g), clamp8(b)))
		}
	}

	out := domain.NewFrame(frame.Width, frame.Height)
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			var r, g, b float64
			for k := -radius; k <= radius; k++ {
				p := horiz.GetPixel(x, clampInt(y+k, 0, frame.Height-1))
				if p == nil {
					continue
				}
				w := weights[k+radius]
				r += float64(p.R) * w
				g += float64(p.G) * w
				b += float64(p.B) * w
			}
			out.SetPixel(x, y, domain.NewRGB(clamp8(r), clamp8(g), clamp8(b)))
		}
	}
	return out
}

func forEachPixel(frame *domain.Frame, fn func(domain.RGB) domain.RGB) {
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			p := frame.GetPixel(x, y)
			if p == nil {
				continue
			}
			frame.SetPixel(x, y, fn(*p))
		}
	}
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
