package transform

import (
	"image"
	"image/draw"
	"time"

	"github.com/ncruces/go-strftime"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/jwulff/photoframe-server/internal/domain"
)

// overlayFace is parsed once; every frame's timestamp renders through
// the same bundled face (golang.org/x/image/font/gofont/goregular),
// avoiding per-render font parsing.
var overlayFaceSource = mustParseFont()

func mustParseFont() *opentype.Font {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		panic(err) // goregular.TTF is a compiled-in constant; a parse failure is a build defect.
	}
	return f
}

// Overlay burns the current time into frame's visible area per the
// settings in cfg, using fmt/strftime-style formatting (via
// github.com/ncruces/go-strftime, since the format strings in
// FrameSettings are strftime directives, not Go's reference-time
// layout). now is passed in rather than read internally so preview
// renders stay reproducible for a fixed instant.
func Overlay(frame *domain.Frame, visible domain.Overscan, cfg domain.TimestampConfig, now time.Time) error {
	if !cfg.Enabled {
		return nil
	}
	text := strftime.Format(cfg.Format, now)

	face, err := opentype.NewFace(overlayFaceSource, &opentype.FaceOptions{
		Size: float64(cfg.FontSize),
		DPI:  72,
	})
	if err != nil {
		return err
	}

	textW := font.MeasureString(face, text).Ceil()
	metrics := face.Metrics()
	textH := (metrics.Ascent + metrics.Descent).Ceil()

	visW, visH := visible.Visible(frame.Width, frame.Height)
	var boxW, boxH int
	var originX, originY int
	if cfg.FullWidthBanner {
		boxW, boxH = visW, cfg.BannerHeight
		originX = visible.Left
		originY = bannerY(cfg.VPosition, visible.Top, visH, cfg.BannerHeight)
	} else {
		boxW = textW + 2*cfg.Padding.H
		boxH = textH + 2*cfg.Padding.V
		originX = boxX(cfg.HPosition, visible.Left, visW, boxW, cfg.Padding.H)
		originY = boxY(cfg.VPosition, visible.Top, visH, boxH, cfg.Padding.V)
	}
	box := image.Rect(originX, originY, originX+boxW, originY+boxH)

	textColor, strokeColor := resolveColors(frame, box, cfg)

	if bg, ok := backgroundFor(cfg.ColorMode); ok {
		frame.FillRect(box.Min.X, box.Min.Y, box.Dx(), box.Dy(), bg)
	}

	baseline := originY + (boxH-textH)/2 + metrics.Ascent.Ceil()
	textX := originX + (boxW-textW)/2
	if !cfg.FullWidthBanner {
		textX = originX + cfg.Padding.H
	}

	if cfg.Stroke.Enabled {
		drawStrokedText(frame, face, text, fixed.P(textX, baseline), cfg.Stroke.Width, strokeColor, textColor)
	} else {
		drawText(frame, face, text, fixed.P(textX, baseline), textColor)
	}
	return nil
}

func bannerY(pos domain.TimestampVPosition, visTop, visH, bannerH int) int {
	if pos == domain.VTop {
		return visTop
	}
	return visTop + visH - bannerH
}

func boxX(pos domain.TimestampHPosition, visLeft, visW, boxW, pad int) int {
	switch pos {
	case domain.HLeft:
		return visLeft
	case domain.HCenter:
		return visLeft + (visW-boxW)/2
	default: // right
		return visLeft + visW - boxW
	}
}

func boxY(pos domain.TimestampVPosition, visTop, visH, boxH, pad int) int {
	if pos == domain.VTop {
		return visTop
	}
	return visTop + visH - boxH
}

// resolveColors picks the glyph color per cfg.ColorMode. transparent_*
// modes fix the text color outright; the two *_background modes paint
// a solid rectangle and pick the opposite color for legible text;
// auto samples the mean luminance of the region the box will cover
// and paints no background, per spec.md §4.3 step 5. Stroke always
// takes the opposite of the resolved text color.
func resolveColors(frame *domain.Frame, box image.Rectangle, cfg domain.TimestampConfig) (text, stroke domain.RGB) {
	switch cfg.ColorMode {
	case domain.ColorModeTransparentBlackText:
		text = domain.NewRGB(0, 0, 0)
	case domain.ColorModeTransparentWhiteText:
		text = domain.NewRGB(255, 255, 255)
	case domain.ColorModeBlackBackground:
		text = domain.NewRGB(255, 255, 255)
	case domain.ColorModeWhiteBackground:
		text = domain.NewRGB(0, 0, 0)
	default: // auto
		if meanLuminance(frame, box) < 128 {
			text = domain.NewRGB(255, 255, 255)
		} else {
			text = domain.NewRGB(0, 0, 0)
		}
	}
	if text.Equals(domain.NewRGB(255, 255, 255)) {
		stroke = domain.NewRGB(0, 0, 0)
	} else {
		stroke = domain.NewRGB(255, 255, 255)
	}
	return text, stroke
}

// backgroundFor reports the solid color to paint behind the glyphs for
// the two *_background modes, or ok=false for the transparent/auto
// modes that paint glyph pixels only.
func backgroundFor(mode domain.TimestampColorMode) (domain.RGB, bool) {
	switch mode {
	case domain.ColorModeBlackBackground:
		return domain.NewRGB(0, 0, 0), true
	case domain.ColorModeWhiteBackground:
		return domain.NewRGB(255, 255, 255), true
	default:
		return domain.RGB{}, false
	}
}

func meanLuminance(frame *domain.Frame, box image.Rectangle) float64 {
	b := box.Intersect(frame.Bounds())
	if b.Empty() {
		return 255
	}
	var sum float64
	var n int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			p := frame.GetPixel(x, y)
			if p == nil {
				continue
			}
			sum += 0.299*float64(p.R) + 0.587*float64(p.G) + 0.114*float64(p.B)
			n++
		}
	}
	if n == 0 {
		return 255
	}
	return sum / float64(n)
}

func drawText(dst draw.Image, face font.Face, text string, pt fixed.Point26_6, color domain.RGB) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Color()),
		Face: face,
		Dot:  pt,
	}
	d.DrawString(text)
}

// drawStrokedText paints the glyph outline by re-drawing the text at
// width offsets around the target point before the solid fill, the
// same cheap "poor man's stroke" technique as rendering in N extra
// passes — good enough for a timestamp banner, not a general text
// renderer.
func drawStrokedText(dst draw.Image, face font.Face, text string, pt fixed.Point26_6, width int, strokeColor, textColor domain.RGB) {
	offset := fixed.I(1)
	for dx := -width; dx <= width; dx++ {
		for dy := -width; dy <= width; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			p := fixed.Point26_6{X: pt.X + fixed.Int26_6(dx)*offset, Y: pt.Y + fixed.Int26_6(dy)*offset}
			drawText(dst, face, text, p, strokeColor)
		}
	}
	drawText(dst, face, text, pt, textColor)
}
