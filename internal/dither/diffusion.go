package dither

// diffusionTap is one weighted neighbor an error-diffusion kernel pushes
// its quantization error onto, relative to the pixel just quantized.
type diffusionTap struct {
	dx, dy int
	weight float64
}

// kernel is a normalized diffusion kernel: every weight already divided
// by the published denominator, so applying it is a plain multiply-add.
type kernel []diffusionTap

func buildKernel(denom float64, taps []diffusionTap) kernel {
	k := make(kernel, len(taps))
	for i, t := range taps {
		k[i] = diffusionTap{dx: t.dx, dy: t.dy, weight: t.weight / denom}
	}
	return k
}

// The following tables are the standard published error-diffusion
// kernels, grounded on the integer-weight layout used by
// jo-hoe-goframe's dithercommand.go and HighDoping-EinkPhotoFrame's
// ditter.go (both walk rows left-to-right, top-to-bottom and push
// weighted error to not-yet-visited neighbors only).
var (
	kernelFloydSteinberg = buildKernel(16, []diffusionTap{
		{1, 0, 7},
		{-1, 1, 3}, {0, 1, 5}, {1, 1, 1},
	})

	kernelJarvisJudiceNinke = buildKernel(48, []diffusionTap{
		{1, 0, 7}, {2, 0, 5},
		{-2, 1, 3}, {-1, 1, 5}, {0, 1, 7}, {1, 1, 5}, {2, 1, 3},
		{-2, 2, 1}, {-1, 2, 3}, {0, 2, 5}, {1, 2, 3}, {2, 2, 1},
	})

	kernelStucki = buildKernel(42, []diffusionTap{
		{1, 0, 8}, {2, 0, 4},
		{-2, 1, 2}, {-1, 1, 4}, {0, 1, 8}, {1, 1, 4}, {2, 1, 2},
		{-2, 2, 1}, {-1, 2, 2}, {0, 2, 4}, {1, 2, 2}, {2, 2, 1},
	})

	kernelBurkes = buildKernel(32, []diffusionTap{
		{1, 0, 8}, {2, 0, 4},
		{-2, 1, 2}, {-1, 1, 4}, {0, 1, 8}, {1, 1, 4}, {2, 1, 2},
	})

	kernelSierra3 = buildKernel(32, []diffusionTap{
		{1, 0, 5}, {2, 0, 3},
		{-2, 1, 2}, {-1, 1, 4}, {0, 1, 5}, {1, 1, 4}, {2, 1, 2},
		{-1, 2, 2}, {0, 2, 3}, {1, 2, 2},
	})

	kernelSierra2 = buildKernel(16, []diffusionTap{
		{1, 0, 4}, {2, 0, 3},
		{-2, 1, 1}, {-1, 1, 2}, {0, 1, 3}, {1, 1, 2}, {2, 1, 1},
	})

	kernelSierra1 = buildKernel(4, []diffusionTap{
		{1, 0, 2},
		{-1, 1, 1}, {0, 1, 1},
	})

	// Atkinson deliberately discards a quarter of the quantization error
	// (6/8 taps summed) rather than 8/8 — that loss is the algorithm's
	// signature soft, low-contrast look.
	kernelAtkinson = buildKernel(8, []diffusionTap{
		{1, 0, 1}, {2, 0, 1},
		{-1, 1, 1}, {0, 1, 1}, {1, 1, 1},
		{0, 2, 1},
	})

	// reducedAtkinson discards even more error than Atkinson (3/8 of the
	// weight, over a denominator of 16) and reaches two pixels ahead on
	// the current row instead of one, for panels too coarse for
	// Atkinson's two-row lookahead to matter.
	kernelReducedAtkinson = buildKernel(16, []diffusionTap{
		{1, 0, 2}, {2, 0, 1},
		{0, 1, 2}, {1, 1, 1},
	})
)

func kernelFor(id ID) kernel {
	switch id {
	case FloydSteinberg:
		return kernelFloydSteinberg
	case JarvisJudiceNinke:
		return kernelJarvisJudiceNinke
	case Stucki:
		return kernelStucki
	case Burkes:
		return kernelBurkes
	case Sierra3:
		return kernelSierra3
	case Sierra2:
		return kernelSierra2
	case Sierra1:
		return kernelSierra1
	case Atkinson:
		return kernelAtkinson
	case ReducedAtkinson:
		return kernelReducedAtkinson
	default:
		return kernelFloydSteinberg
	}
}

func isDiffusion(id ID) bool {
	switch id {
	case FloydSteinberg, JarvisJudiceNinke, Stucki, Burkes,
		Sierra3, Sierra2, Sierra1, Atkinson, ReducedAtkinson:
		return true
	}
	return false
}

func isOrdered(id ID) bool {
	switch id {
	case OrderedBayer2, OrderedBayer4, OrderedBayer8, OrderedBlue256:
		return true
	}
	return false
}

func isPatternSearch(id ID) bool {
	switch id {
	case Stark, Yliluoma1, Yliluoma2:
		return true
	}
	return false
}
