package transform

import (
	"image"
	"time"

	"github.com/jwulff/photoframe-server/internal/domain"
)

// Run executes the full Image Transform component (spec.md §4.3) against
// a decoded source image, producing the intermediate RGB frame at exactly
// panelW x panelH. exifTag is the source's own EXIF orientation (1 if
// none/unknown); settings carries the frame's current adjustments,
// overscan override, flip, and timestamp config; white is the frame's
// resolved palette-white color, used for overscan/letterbox fill.
func Run(src image.Image, panelW, panelH int, overscan domain.Overscan, fit domain.FitMode, settings domain.FrameSettings, exifTag int, white domain.RGB, now time.Time) (*domain.Frame, error) {
	oriented := Orient(src, exifTag, settings.Flip180)

	visW, visH := overscan.Visible(panelW, panelH)
	fitted := Fit(oriented, visW, visH, fit, white)
	canvas := PlaceOnCanvas(fitted, panelW, panelH, overscan, white)

	Adjust(canvas, settings.Adjustments)

	if err := Overlay(canvas, overscan, settings.Timestamp, now); err != nil {
		return nil, err
	}
	return canvas, nil
}

// EffectiveOverscan returns settings.OverscanOverride if set, else the
// descriptor's own overscan, per spec.md's "preview... Overscan/flip
// changes reuse cached source_bytes" override model.
func EffectiveOverscan(descriptorOverscan domain.Overscan, settings domain.FrameSettings) domain.Overscan {
	if settings.OverscanOverride != nil {
		return *settings.OverscanOverride
	}
	return descriptorOverscan
}
