// Package palette parses a frame's declared palette colors and exposes a
// nearest-color search over them, per spec.md §4.1.
package palette

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/jwulff/photoframe-server/internal/domain"
)

// Resolver parses a declared palette and answers nearest-color queries
// against it. Malformed entries are excluded from the search but kept,
// marked invalid, in Resolved so the HTTP layer can report them
// (spec.md §4.1: "the resolver must not fail the frame").
type Resolver struct {
	Resolved []domain.ResolvedColor

	// valid holds only the parseable entries, indexed by their position
	// in Resolved's valid subsequence; linear holds each valid entry's
	// gamma-expanded linear-RGB coordinates for distance computation.
	valid  []domain.ResolvedColor
	linear [][3]float64

	tree *kdNode // nil when len(valid) < treeThreshold

	whiteIndex int // index into Resolved, of the nearest-to-white valid entry
}

// treeThreshold is the palette size at or above which Resolve builds a
// k-d tree instead of scanning linearly, per spec.md §4.1.
const treeThreshold = 16

// Resolve parses every declared color in order and builds the nearest-
// color search structure. It never returns an error: malformed entries
// are recorded as domain.ResolvedColor{Invalid: true} instead.
func Resolve(declared []string) *Resolver {
	r := &Resolver{Resolved: make([]domain.ResolvedColor, len(declared))}

	for i, s := range declared {
		rgb, hex, ok := parseHex(s)
		if !ok {
			r.Resolved[i] = domain.ResolvedColor{Input: s, Hex: "invalid", Invalid: true}
			continue
		}
		r.Resolved[i] = domain.ResolvedColor{Input: s, Hex: hex, RGB: rgb}
		r.valid = append(r.valid, r.Resolved[i])
		r.linear = append(r.linear, toLinear(rgb))
	}

	if len(r.valid) >= treeThreshold {
		idx := make([]int, len(r.valid))
		for i := range idx {
			idx[i] = i
		}
		r.tree = buildKDTree(r.linear, idx, 0)
	}

	r.whiteIndex = r.computeWhiteIndex()
	return r
}

// parseHex accepts "#rgb", "rgb", "#rrggbb", "rrggbb" (case-insensitive).
func parseHex(s string) (domain.RGB, string, bool) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(h) {
	case 3:
		r, err1 := strconv.ParseUint(string(h[0])+string(h[0]), 16, 8)
		g, err2 := strconv.ParseUint(string(h[1])+string(h[1]), 16, 8)
		b, err3 := strconv.ParseUint(string(h[2])+string(h[2]), 16, 8)
		if err1 != nil || err2 != nil || err3 != nil {
			return domain.RGB{}, "", false
		}
		rgb := domain.NewRGB(uint8(r), uint8(g), uint8(b))
		return rgb, normalizedHex(rgb), true
	case 6:
		v, err := strconv.ParseUint(h, 16, 32)
		if err != nil {
			return domain.RGB{}, "", false
		}
		rgb := domain.NewRGB(uint8(v>>16), uint8(v>>8), uint8(v))
		return rgb, normalizedHex(rgb), true
	default:
		return domain.RGB{}, "", false
	}
}

func normalizedHex(c domain.RGB) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// toLinear gamma-expands sRGB 8-bit channels into linear-RGB in [0,1],
// via go-colorful, matching original_source's srgb_to_linear table.
func toLinear(c domain.RGB) [3]float64 {
	cc := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
	r, g, b := cc.LinearRgb()
	return [3]float64{r, g, b}
}

// Nearest returns the index into Resolved of the closest valid palette
// entry to rgb, by squared Euclidean distance in linear-premultiplied
// sRGB space, ties broken by first occurrence. Returns -1 if every
// declared entry is invalid.
func (r *Resolver) Nearest(rgb domain.RGB) int {
	if len(r.valid) == 0 {
		return -1
	}
	target := toLinear(rgb)
	var bestIdx int
	if r.tree != nil {
		bestIdx = r.tree.nearest(target, r.linear)
	} else {
		bestIdx = nearestLinear(target, r.linear)
	}
	return r.resolvedIndexOf(bestIdx)
}

// resolvedIndexOf maps an index into r.valid back to its position in
// r.Resolved (they diverge once invalid entries are interleaved).
func (r *Resolver) resolvedIndexOf(validIdx int) int {
	want := r.valid[validIdx]
	for i, c := range r.Resolved {
		if !c.Invalid && c == want {
			return i
		}
	}
	return validIdx
}

func nearestLinear(target [3]float64, pts [][3]float64) int {
	best := 0
	bestDist := sqDist(target, pts[0])
	for i := 1; i < len(pts); i++ {
		d := sqDist(target, pts[i])
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

func sqDist(a, b [3]float64) float64 {
	dr := a[0] - b[0]
	dg := a[1] - b[1]
	db := a[2] - b[2]
	return dr*dr + dg*dg + db*db
}

// WhiteIndex returns the index into Resolved of the palette-white entry
// (nearest valid entry to pure white), or -1 if the palette has no
// valid entries.
func (r *Resolver) WhiteIndex() int {
	return r.whiteIndex
}

func (r *Resolver) computeWhiteIndex() int {
	return r.Nearest(domain.NewRGB(255, 255, 255))
}

// RGBPalette returns the ordered list of valid colors, suitable for
// domain.IndexedFrame / domain.IndexedFrame.AsPaletted. Invalid entries
// are skipped, so indices returned by Nearest into this slice use
// ValidPosition, not Resolved's position.
func (r *Resolver) RGBPalette() []domain.RGB {
	out := make([]domain.RGB, len(r.valid))
	for i, c := range r.valid {
		out[i] = c.RGB
	}
	return out
}

// RGBPaletteLinear returns the same entries as RGBPalette, gamma-expanded
// into linear-RGB, in the same ValidPosition order — the coordinate space
// the Dither Engine's pattern-search algorithms blend in.
func (r *Resolver) RGBPaletteLinear() [][3]float64 {
	return r.linear
}

// ValidPosition maps a Resolved index to its position within RGBPalette,
// or -1 if that entry is invalid.
func (r *Resolver) ValidPosition(resolvedIdx int) int {
	if resolvedIdx < 0 || resolvedIdx >= len(r.Resolved) || r.Resolved[resolvedIdx].Invalid {
		return -1
	}
	target := r.Resolved[resolvedIdx]
	for i, c := range r.valid {
		if c == target {
			return i
		}
	}
	return -1
}

// MedianNeighborDistance returns the median nearest-neighbor distance
// (in sRGB 0-255 Euclidean space) across all valid palette pairs, used
// by the Dither Engine to scale an ordered matrix's spread. Returns 0
// for palettes with fewer than two valid entries.
func (r *Resolver) MedianNeighborDistance() float64 {
	n := len(r.valid)
	if n < 2 {
		return 0
	}
	dists := make([]float64, n)
	for i := 0; i < n; i++ {
		best := -1.0
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			d := srgbDist(r.valid[i].RGB, r.valid[j].RGB)
			if best < 0 || d < best {
				best = d
			}
		}
		dists[i] = best
	}
	sort.Float64s(dists)
	mid := n / 2
	if n%2 == 1 {
		return dists[mid]
	}
	return (dists[mid-1] + dists[mid]) / 2
}

func srgbDist(a, b domain.RGB) float64 {
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	return dr*dr + dg*dg + db*db
}
