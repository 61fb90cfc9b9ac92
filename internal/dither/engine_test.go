package dither

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwulff/photoframe-server/internal/domain"
	"github.com/jwulff/photoframe-server/internal/palette"
)

func gradientFrame(w, h int) *domain.Frame {
	f := domain.NewFrame(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x * 255) / (w - 1))
			f.SetPixel(x, y, domain.NewRGB(v, v, v))
		}
	}
	return f
}

func TestApplyIsDeterministicAcrossAllAlgorithms(t *testing.T) {
	r := palette.Resolve([]string{"#000000", "#808080", "#ffffff", "#ff0000", "#00ff00", "#0000ff"})
	frame := gradientFrame(17, 13)

	for _, id := range All() {
		first := Apply(id, frame, r)
		second := Apply(id, frame, r)
		assert.True(t, first.Equal(second), "algorithm %s is not deterministic", id)
	}
}

func TestApplyNoneIsPlainNearest(t *testing.T) {
	r := palette.Resolve([]string{"#000000", "#ffffff"})
	frame := domain.NewFrame(2, 1)
	frame.SetPixel(0, 0, domain.NewRGB(10, 10, 10))
	frame.SetPixel(1, 0, domain.NewRGB(250, 250, 250))

	out := Apply(None, frame, r)
	assert.Equal(t, uint8(0), out.Index(0, 0))
	assert.Equal(t, uint8(1), out.Index(1, 0))
}

func TestApplyProducesOnlyValidPaletteIndices(t *testing.T) {
	r := palette.Resolve([]string{"#000000", "#444444", "#888888", "#cccccc", "#ffffff"})
	frame := gradientFrame(32, 8)

	for _, id := range All() {
		out := Apply(id, frame, r)
		for _, idx := range out.Indices {
			require.Less(t, int(idx), len(r.RGBPalette()), "algorithm %s emitted out-of-range index", id)
		}
	}
}

func TestApplyOrderedDitherVariesOutputAcrossFlatRegion(t *testing.T) {
	// A flat mid-gray region with a two-color b/w palette: plain nearest
	// collapses to a single index everywhere, but an ordered dither
	// should alternate, demonstrating the matrix offset is actually
	// being applied.
	r := palette.Resolve([]string{"#000000", "#ffffff"})
	frame := domain.NewFrame(8, 8)
	frame.Fill(domain.NewRGB(128, 128, 128))

	out := Apply(OrderedBayer4, frame, r)
	seen := map[uint8]bool{}
	for _, idx := range out.Indices {
		seen[idx] = true
	}
	assert.Len(t, seen, 2, "expected ordered dither to use both palette entries on a flat midtone")
}

func TestApplyFloydSteinbergPreservesAverageBrightness(t *testing.T) {
	r := palette.Resolve([]string{"#000000", "#ffffff"})
	frame := domain.NewFrame(64, 64)
	frame.Fill(domain.NewRGB(96, 96, 96))

	out := Apply(FloydSteinberg, frame, r)
	var whiteCount int
	for _, idx := range out.Indices {
		if idx == 1 {
			whiteCount++
		}
	}
	fraction := float64(whiteCount) / float64(len(out.Indices))
	// 96/255 ~= 0.376; error diffusion should land the white fraction
	// close to that ratio, not at the 0 or 1 extremes nearest-color
	// quantization alone would produce.
	assert.InDelta(t, 96.0/255.0, fraction, 0.08)
}

func TestAtkinsonDiscardsAQuarterOfError(t *testing.T) {
	var sum float64
	for _, tap := range kernelAtkinson {
		sum += tap.weight
	}
	assert.InDelta(t, 0.75, sum, 1e-9)
}

func TestDiffusionKernelsSumToOne(t *testing.T) {
	for _, k := range []kernel{
		kernelFloydSteinberg, kernelJarvisJudiceNinke, kernelStucki, kernelBurkes,
		kernelSierra3, kernelSierra2, kernelSierra1,
	} {
		var sum float64
		for _, tap := range k {
			sum += tap.weight
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestBayerMatrixIsPermutationOfRanks(t *testing.T) {
	for _, m := range []orderedMatrix{bayer2, bayer4, bayer8} {
		seen := map[float64]bool{}
		for _, row := range m.vals {
			for _, v := range row {
				seen[v] = true
			}
		}
		assert.Len(t, seen, m.size*m.size)
	}
}

func TestBlueNoiseIsPermutationOfRanks(t *testing.T) {
	seen := map[float64]bool{}
	for _, row := range blueNoise256.vals {
		for _, v := range row {
			seen[v] = true
		}
	}
	assert.Len(t, seen, 256*256)
}

func TestValidRejectsUnknownIdentifier(t *testing.T) {
	assert.False(t, Valid(ID("not_a_real_algorithm")))
	assert.True(t, Valid(FloydSteinberg))
}
