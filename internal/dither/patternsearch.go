package dither

import (
	"math"
	"sort"

	"github.com/jwulff/photoframe-server/internal/palette"
)

// bayerRanks returns the Bayer matrix's raw integer dispersal ranks
// (0..n*n-1) before normalization to [0,1), built with the same
// recursive quadrant-doubling as bayerMatrix in ordered.go. Stark and
// the Yliluoma algorithms below index by this raw rank directly, per
// the published formulas, rather than by the normalized threshold
// ordered_bayer_n uses.
func bayerRanks(n int) [][]int {
	ranks := [][]int{{0}}
	for len(ranks) < n {
		ranks = doubleBayer(ranks)
	}
	return ranks
}

var bayer8Ranks = bayerRanks(8)

// stark implements Stark's ordered-dithering algorithm: for each pixel,
// find the nearest palette entry, then search every palette entry for
// the one *farthest* from the pixel that still keeps
// (dist/nearestDist)*threshold under 1 — the Bayer matrix's rank
// scaled by 1/cbrt(paletteLen) — and place that one instead. A small
// threshold (bright corner of the matrix) accepts almost nothing but
// the nearest color; a threshold near 1 (dark corner) accepts anything
// still closer than the nearest's exact opposite, producing the
// dispersed-dot pattern.
func stark(linear [][3]float64, w, h int, r *palette.Resolver) []int {
	pal := r.RGBPaletteLinear()
	out := make([]int, w*h)
	if len(pal) == 0 {
		return out
	}

	const dim = 8
	paletteLen := len(pal)
	rc := 1.0 / math.Cbrt(float64(paletteLen))
	fraction := 1.0 / float64(dim*dim-1)

	var threshold [dim][dim]float64
	for y := 0; y < dim; y++ {
		for x := 0; x < dim; x++ {
			threshold[y][x] = 1 - float64(bayer8Ranks[y][x])*fraction*rc
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			target := linear[y*w+x]

			shortestIdx := 0
			shortest := sqDist(target, pal[0])
			for i := 1; i < len(pal); i++ {
				d := sqDist(target, pal[i])
				if d < shortest {
					shortest = d
					shortestIdx = i
				}
			}

			chosen := shortestIdx
			bayerValue := threshold[y%dim][x%dim]
			if bayerValue < 1.0 && shortest > 0 {
				greatestAllowed := -1.0
				greatestIdx := shortestIdx
				for i, p := range pal {
					d := sqDist(target, p)
					if d > greatestAllowed && (d/shortest)*bayerValue < 1.0 {
						greatestAllowed = d
						greatestIdx = i
					}
				}
				chosen = greatestIdx
			}
			out[y*w+x] = chosen
		}
	}
	return out
}

// yliluoma1 implements Yliluoma's first ordered-dithering algorithm: an
// exhaustive search over every ordered palette pair (including a color
// against itself) and matrixLen (64) discrete mix ratios, scored by a
// penalty that adds the mix's color error to a term favoring pairs
// whose two colors sit close together — so the dispersed pattern stays
// fine-grained instead of alternating between wildly different colors
// — then thresholds the winning ratio against the Bayer matrix's raw
// rank to decide which of the two colors this pixel gets.
func yliluoma1(linear [][3]float64, w, h int, r *palette.Resolver) []int {
	pal := r.RGBPaletteLinear()
	out := make([]int, w*h)
	if len(pal) == 0 {
		return out
	}

	const dim = 8
	const matrixLen = dim * dim

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			target := linear[y*w+x]
			bayerValue := float64(bayer8Ranks[y%dim][x%dim])

			idx1, idx2, lowestRatio := yliluoma1Search(target, pal, matrixLen)

			chosen := idx1
			if bayerValue < lowestRatio {
				chosen = idx2
			}
			out[y*w+x] = chosen
		}
	}
	return out
}

func yliluoma1Search(target [3]float64, pal [][3]float64, matrixLen int) (idx1, idx2 int, lowestRatio float64) {
	leastPenalty := math.Inf(1)
	for i1 := range pal {
		for i2 := i1; i2 < len(pal); i2++ {
			for ratio := 0; ratio < matrixLen; ratio++ {
				if i1 == i2 && ratio != 0 {
					break
				}
				t := float64(ratio) / float64(matrixLen)
				mix := [3]float64{
					pal[i1][0] + t*(pal[i2][0]-pal[i1][0]),
					pal[i1][1] + t*(pal[i2][1]-pal[i1][1]),
					pal[i1][2] + t*(pal[i2][2]-pal[i1][2]),
				}
				mixDist := sqDist(target, mix)
				colorPairDist := sqDist(pal[i1], pal[i2])
				penalty := mixDist + colorPairDist*0.1*(math.Abs(t-0.5)+0.5)
				if penalty < leastPenalty {
					leastPenalty = penalty
					idx1, idx2, lowestRatio = i1, i2, float64(ratio)
				}
			}
		}
	}
	return idx1, idx2, lowestRatio
}

// yliluoma2 implements Yliluoma's second ordered-dithering algorithm: it
// devises, per pixel, a mixing plan of paletteLen color picks whose
// running average best approximates the target color (searched by
// repeatedly doubling a candidate run length, same as the original),
// sorts that plan by luma, and indexes into it with the Bayer matrix's
// raw rank scaled to the plan's length — so brighter matrix cells pick
// further into the luma-sorted plan.
func yliluoma2(linear [][3]float64, w, h int, r *palette.Resolver) []int {
	pal := r.RGBPaletteLinear()
	out := make([]int, w*h)
	n := len(pal)
	if n == 0 {
		return out
	}

	const dim = 8
	const matrixLen = dim * dim

	paletteLuma := make([]float64, n)
	for i, c := range pal {
		paletteLuma[i] = c[0]*0.299 + c[1]*0.587 + c[2]*0.114
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			target := linear[y*w+x]
			bayerValue := bayer8Ranks[y%dim][x%dim]
			planIndex := (bayerValue * n) / matrixLen

			plan := yliluoma2Plan(target, pal, n)
			sort.Slice(plan, func(i, j int) bool { return paletteLuma[plan[i]] < paletteLuma[plan[j]] })

			out[y*w+x] = plan[planIndex]
		}
	}
	return out
}

// yliluoma2Plan builds a mixing plan of n color picks: at each step it
// tries every palette entry and every power-of-two run length up to the
// picks made so far, keeping whichever (color, run length) pulls the
// running average closest to target, then commits that many picks
// before continuing. Doubling the run length bounds the search to
// O(log n) candidate lengths per color instead of testing all n.
func yliluoma2Plan(target [3]float64, pal [][3]float64, n int) []int {
	plan := make([]int, 0, n)
	var soFar [3]float64
	total := 0

	for total < n {
		maxTestCount := total
		if maxTestCount < 1 {
			maxTestCount = 1
		}

		leastPenalty := math.Inf(1)
		chosen := 0
		chosenAmount := 1

		for idx, color := range pal {
			sum := soFar
			add := color
			for p := 1; p <= maxTestCount; p *= 2 {
				sum[0] += add[0]
				sum[1] += add[1]
				sum[2] += add[2]
				add[0] += add[0]
				add[1] += add[1]
				add[2] += add[2]

				t := float64(total + p)
				test := [3]float64{sum[0] / t, sum[1] / t, sum[2] / t}
				penalty := sqDist(target, test)
				if penalty < leastPenalty {
					leastPenalty = penalty
					chosen = idx
					chosenAmount = p
				}
			}
		}

		for i := 0; i < chosenAmount && total < n; i++ {
			plan = append(plan, chosen)
			total++
		}
		soFar[0] += pal[chosen][0] * float64(chosenAmount)
		soFar[1] += pal[chosen][1] * float64(chosenAmount)
		soFar[2] += pal[chosen][2] * float64(chosenAmount)
	}
	return plan
}
