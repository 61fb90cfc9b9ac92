package dither

import (
	_ "embed"
)

// orderedMatrix is a square threshold matrix normalized to [0,1), used as
// an additive offset (matrix[y%n][x%n] - 0.5) before quantizing a pixel
// against the palette, per original_source's ordered-dither pass.
type orderedMatrix struct {
	size int
	vals [][]float64
}

func (m orderedMatrix) offset(x, y int) float64 {
	return m.vals[y%m.size][x%m.size] - 0.5
}

// bayerMatrix builds the classic recursive Bayer matrix of size n x n
// (n must be a power of two), normalized so each cell holds
// (rank+0.5)/n^2, grounded on the standard recursive quadrant
// construction used by HighDoping-EinkPhotoFrame's ditter.go.
func bayerMatrix(n int) orderedMatrix {
	ranks := [][]int{{0}}
	for len(ranks) < n {
		ranks = doubleBayer(ranks)
	}
	total := float64(n * n)
	vals := make([][]float64, n)
	for y := 0; y < n; y++ {
		vals[y] = make([]float64, n)
		for x := 0; x < n; x++ {
			vals[y][x] = (float64(ranks[y][x]) + 0.5) / total
		}
	}
	return orderedMatrix{size: n, vals: vals}
}

// doubleBayer takes an NxN rank matrix and produces the 2Nx2N matrix one
// level up, placing the base pattern's four quadrant offsets (0,2,3,1)
// around 4x the smaller matrix.
func doubleBayer(m [][]int) [][]int {
	n := len(m)
	out := make([][]int, n*2)
	for i := range out {
		out[i] = make([]int, n*2)
	}
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			v := m[y][x]
			out[y][x] = 4*v + 0
			out[y][x+n] = 4*v + 2
			out[y+n][x] = 4*v + 3
			out[y+n][x+n] = 4*v + 1
		}
	}
	return out
}

var (
	bayer2 = bayerMatrix(2)
	bayer4 = bayerMatrix(4)
	bayer8 = bayerMatrix(8)
)

// blueNoiseBytes is the bundled 256x256 blue-noise threshold table: one
// byte per cell (0..255, rank-order value), committed alongside the
// code so its exact values are reproducible, the same way the original
// bundles assets/256x256_blue.png via include_bytes!.
//
//go:embed assets/blue_noise_256.bin
var blueNoiseBytes []byte

// blueNoise256 loads the bundled table once at package init and holds
// it for the life of the process.
var blueNoise256 = loadBlueNoise(256, blueNoiseBytes)

// loadBlueNoise turns the bundled n*n byte table into a normalized
// orderedMatrix, the same [0,1) threshold representation bayerMatrix
// produces.
func loadBlueNoise(n int, data []byte) orderedMatrix {
	if len(data) != n*n {
		panic("dither: blue noise asset has unexpected size")
	}
	vals := make([][]float64, n)
	for y := 0; y < n; y++ {
		vals[y] = make([]float64, n)
		for x := 0; x < n; x++ {
			vals[y][x] = float64(data[y*n+x]) / 255.0
		}
	}
	return orderedMatrix{size: n, vals: vals}
}

func matrixFor(id ID) orderedMatrix {
	switch id {
	case OrderedBayer2:
		return bayer2
	case OrderedBayer4:
		return bayer4
	case OrderedBayer8:
		return bayer8
	case OrderedBlue256:
		return blueNoise256
	default:
		return bayer4
	}
}
