package dither

import (
	"github.com/jwulff/photoframe-server/internal/domain"
	"github.com/jwulff/photoframe-server/internal/palette"
)

// Apply quantizes src against r's palette using the named algorithm and
// returns an IndexedFrame at src's exact dimensions. Every algorithm
// family shares the same linear-RGB working space as palette.Resolver
// so the thresholds and distances line up with Nearest's own notion of
// closeness.
func Apply(id ID, src *domain.Frame, r *palette.Resolver) *domain.IndexedFrame {
	w, h := src.Width, src.Height
	out := domain.NewIndexedFrame(w, h, r.RGBPalette())

	switch {
	case id == None:
		applyNearest(src, r, out)
	case isOrdered(id):
		applyOrdered(id, src, r, out)
	case isDiffusion(id):
		applyDiffusion(id, src, r, out)
	case isPatternSearch(id):
		applyPatternSearch(id, src, r, out)
	default:
		applyNearest(src, r, out)
	}
	return out
}

func applyNearest(src *domain.Frame, r *palette.Resolver, out *domain.IndexedFrame) {
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			p := src.GetPixel(x, y)
			if p == nil {
				continue
			}
			idx := r.ValidPosition(r.Nearest(*p))
			out.SetIndex(x, y, clampIndex(idx))
		}
	}
}

// applyOrdered perturbs each pixel by a scaled matrix offset before the
// nearest-color search, per spec.md §4.2: the offset is scaled by the
// palette's median nearest-neighbor distance so a coarse palette gets a
// wider dither spread than a fine one.
func applyOrdered(id ID, src *domain.Frame, r *palette.Resolver, out *domain.IndexedFrame) {
	m := matrixFor(id)
	spread := r.MedianNeighborDistance()

	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			p := src.GetPixel(x, y)
			if p == nil {
				continue
			}
			offset := m.offset(x, y) * spread
			perturbed := domain.NewRGB(
				clampChannel(float64(p.R)+offset),
				clampChannel(float64(p.G)+offset),
				clampChannel(float64(p.B)+offset),
			)
			idx := r.ValidPosition(r.Nearest(perturbed))
			out.SetIndex(x, y, clampIndex(idx))
		}
	}
}

// applyDiffusion walks the frame in raster order, quantizing each pixel
// against the palette and pushing the quantization error forward onto
// not-yet-visited neighbors per the chosen kernel. err holds running
// per-channel error accumulators the size of the frame, so taps landing
// on already-diffused pixels compound correctly.
func applyDiffusion(id ID, src *domain.Frame, r *palette.Resolver, out *domain.IndexedFrame) {
	k := kernelFor(id)
	w, h := src.Width, src.Height

	errR := make([]float64, w*h)
	errG := make([]float64, w*h)
	errB := make([]float64, w*h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := src.GetPixel(x, y)
			if p == nil {
				continue
			}
			i := y*w + x
			target := domain.NewRGB(
				clampChannel(float64(p.R)+errR[i]),
				clampChannel(float64(p.G)+errG[i]),
				clampChannel(float64(p.B)+errB[i]),
			)

			resolvedIdx := r.Nearest(target)
			validIdx := r.ValidPosition(resolvedIdx)
			out.SetIndex(x, y, clampIndex(validIdx))

			chosen := r.Resolved[resolvedIdx].RGB
			dr := float64(target.R) - float64(chosen.R)
			dg := float64(target.G) - float64(chosen.G)
			db := float64(target.B) - float64(chosen.B)

			for _, tap := range k {
				nx, ny := x+tap.dx, y+tap.dy
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				ni := ny*w + nx
				errR[ni] += dr * tap.weight
				errG[ni] += dg * tap.weight
				errB[ni] += db * tap.weight
			}
		}
	}
}

func applyPatternSearch(id ID, src *domain.Frame, r *palette.Resolver, out *domain.IndexedFrame) {
	w, h := src.Width, src.Height
	linear := make([][3]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := src.GetPixel(x, y)
			if p == nil {
				continue
			}
			linear[y*w+x] = toLinearRGB(*p)
		}
	}

	var indices []int
	switch id {
	case Stark:
		indices = stark(linear, w, h, r)
	case Yliluoma1:
		indices = yliluoma1(linear, w, h, r)
	case Yliluoma2:
		indices = yliluoma2(linear, w, h, r)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.SetIndex(x, y, uint8(indices[y*w+x]))
		}
	}
}

func clampChannel(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func clampIndex(idx int) uint8 {
	if idx < 0 {
		return 0
	}
	return uint8(idx)
}
