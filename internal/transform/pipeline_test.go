package transform

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwulff/photoframe-server/internal/domain"
)

func solidImage(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestRunProducesExactPanelDimensions(t *testing.T) {
	src := solidImage(1600, 900, color.RGBA{R: 20, G: 30, B: 40, A: 255})
	settings := domain.DefaultFrameSettings()
	white := domain.NewRGB(255, 255, 255)

	out, err := Run(src, 800, 480, domain.Overscan{Left: 10, Right: 10, Top: 10, Bottom: 10}, domain.FitCover, settings, 1, white, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 800, out.Width)
	assert.Equal(t, 480, out.Height)
}

func TestRunOverscanBorderIsPaletteWhite(t *testing.T) {
	src := solidImage(1600, 900, color.RGBA{R: 0, G: 0, B: 0, A: 255})
	settings := domain.DefaultFrameSettings()
	white := domain.NewRGB(255, 255, 255)

	out, err := Run(src, 800, 480, domain.Overscan{Left: 10, Right: 10, Top: 10, Bottom: 10}, domain.FitCover, settings, 1, white, time.Now())
	require.NoError(t, err)

	for x := 0; x < 800; x++ {
		p := out.GetPixel(x, 0)
		require.NotNil(t, p)
		assert.True(t, p.Equals(white))
	}
	for y := 0; y < 480; y++ {
		p := out.GetPixel(0, y)
		require.NotNil(t, p)
		assert.True(t, p.Equals(white))
	}
}

func TestFitContainLetterboxesWithWhite(t *testing.T) {
	src := solidImage(100, 100, color.RGBA{R: 10, G: 10, B: 10, A: 255})
	white := domain.NewRGB(255, 255, 255)

	out := Fit(src, 600, 448, domain.FitContain, white)
	assert.Equal(t, 600, out.Width)
	assert.Equal(t, 448, out.Height)

	corner := out.GetPixel(0, 0)
	require.NotNil(t, corner)
	assert.True(t, corner.Equals(white))
}

func TestFitCoverFillsEntireVisibleArea(t *testing.T) {
	src := solidImage(1600, 900, color.RGBA{R: 5, G: 5, B: 5, A: 255})
	white := domain.NewRGB(255, 255, 255)

	out := Fit(src, 780, 460, domain.FitCover, white)
	assert.Equal(t, 780, out.Width)
	assert.Equal(t, 460, out.Height)
}

func TestOrientRotate90SwapsDimensions(t *testing.T) {
	src := solidImage(100, 50, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	out := Orient(src, 6, false)
	b := out.Bounds()
	assert.Equal(t, 50, b.Dx())
	assert.Equal(t, 100, b.Dy())
}

func TestOrientFlip180ComposesWithExifTag(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.RGBA{R: 255, A: 255})
	src.Set(1, 0, color.RGBA{B: 255, A: 255})

	out := Orient(src, 1, true)
	r, _, _, _ := out.At(0, 0).RGBA()
	assert.Equal(t, uint32(0), r>>8)
	_, _, b, _ := out.At(1, 0).RGBA()
	assert.Equal(t, uint32(255), b>>8)
}

func TestExifOrientationDefaultsToNormalForNonJPEG(t *testing.T) {
	assert.Equal(t, 1, ExifOrientation([]byte("not a jpeg")))
}

func TestResolvedOrientationFromDimensions(t *testing.T) {
	wide := solidImage(200, 100, color.RGBA{A: 255})
	tall := solidImage(100, 200, color.RGBA{A: 255})
	assert.Equal(t, domain.OrientationLandscape, ResolvedOrientation(wide))
	assert.Equal(t, domain.OrientationPortrait, ResolvedOrientation(tall))
}

func TestAdjustBrightnessIncreasesChannels(t *testing.T) {
	frame := domain.NewFrameWithColor(2, 2, domain.NewRGB(100, 100, 100))
	Adjust(frame, domain.Adjustments{Brightness: 50})
	p := frame.GetPixel(0, 0)
	require.NotNil(t, p)
	assert.Greater(t, int(p.R), 100)
}

func TestOverlayDisabledIsNoOp(t *testing.T) {
	frame := domain.NewFrameWithColor(100, 60, domain.NewRGB(255, 255, 255))
	cfg := domain.DefaultTimestampConfig()
	cfg.Enabled = false

	err := Overlay(frame, domain.Overscan{}, cfg, time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	p := frame.GetPixel(0, 0)
	require.NotNil(t, p)
	assert.True(t, p.Equals(domain.NewRGB(255, 255, 255)))
}

func TestOverlayEnabledDrawsSomethingIntoFrame(t *testing.T) {
	frame := domain.NewFrameWithColor(200, 100, domain.NewRGB(255, 255, 255))
	cfg := domain.DefaultTimestampConfig()
	cfg.Enabled = true
	cfg.ColorMode = domain.ColorModeTransparentBlackText

	err := Overlay(frame, domain.Overscan{}, cfg, time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	var sawNonWhite bool
	for y := 0; y < frame.Height && !sawNonWhite; y++ {
		for x := 0; x < frame.Width; x++ {
			p := frame.GetPixel(x, y)
			if p != nil && !p.Equals(domain.NewRGB(255, 255, 255)) {
				sawNonWhite = true
				break
			}
		}
	}
	assert.True(t, sawNonWhite, "expected timestamp overlay to paint at least one non-white pixel")
}
