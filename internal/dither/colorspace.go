package dither

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/jwulff/photoframe-server/internal/domain"
)

// toLinearRGB gamma-expands an 8-bit sRGB pixel into linear-RGB in
// [0,1], the same coordinate space palette.Resolver.Nearest compares
// in, so the pattern-search algorithms' blends agree with the rest of
// the engine's notion of color distance.
func toLinearRGB(c domain.RGB) [3]float64 {
	cc := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
	r, g, b := cc.LinearRgb()
	return [3]float64{r, g, b}
}

func sqDist(a, b [3]float64) float64 {
	dr := a[0] - b[0]
	dg := a[1] - b[1]
	db := a[2] - b[2]
	return dr*dr + dg*dg + db*db
}
