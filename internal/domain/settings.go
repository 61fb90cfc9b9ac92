package domain

// Adjustments are the tonal adjustments applied in the Image Transform
// step, each clamped to its documented range on write.
type Adjustments struct {
	Brightness int     // [-50, 50]
	Contrast   int     // [-50, 50]
	Saturation float64 // [-0.25, 0.25]
	Sharpness  float64 // [-5, 5]
}

// Clamp returns a to its documented ranges.
func (a Adjustments) Clamp() Adjustments {
	return Adjustments{
		Brightness: clampInt(a.Brightness, -50, 50),
		Contrast:   clampInt(a.Contrast, -50, 50),
		Saturation: clampFloat(a.Saturation, -0.25, 0.25),
		Sharpness:  clampFloat(a.Sharpness, -5, 5),
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// TimestampHPosition is the horizontal component of a timestamp overlay's
// position.
type TimestampHPosition string

const (
	HLeft   TimestampHPosition = "left"
	HCenter TimestampHPosition = "center"
	HRight  TimestampHPosition = "right"
)

// TimestampVPosition is the vertical component.
type TimestampVPosition string

const (
	VTop    TimestampVPosition = "top"
	VBottom TimestampVPosition = "bottom"
)

// TimestampColorMode controls how glyphs and their background are
// painted.
type TimestampColorMode string

const (
	ColorModeAuto                 TimestampColorMode = "auto"
	ColorModeTransparentBlackText TimestampColorMode = "transparent_black_text"
	ColorModeTransparentWhiteText TimestampColorMode = "transparent_white_text"
	ColorModeBlackBackground      TimestampColorMode = "black_background"
	ColorModeWhiteBackground      TimestampColorMode = "white_background"
)

// Padding is the inset, in pixels, from the visible area's edges.
type Padding struct {
	H, V int
}

// Stroke is the glyph outline applied by the timestamp overlay.
type Stroke struct {
	Enabled bool
	Width   int
	// Color is "auto" (opposite of the resolved text color) or a hex
	// string.
	Color string
}

// TimestampConfig configures the timestamp overlay (§4.3 step 5).
type TimestampConfig struct {
	Enabled         bool
	HPosition       TimestampHPosition
	VPosition       TimestampVPosition
	FontSize        int
	ColorMode       TimestampColorMode
	FullWidthBanner bool
	BannerHeight    int
	Padding         Padding
	Stroke          Stroke
	// Format is a strftime-style format string, e.g. "%Y-%m-%d %H:%M".
	Format string
}

// DefaultTimestampConfig mirrors original_source's defaults.
func DefaultTimestampConfig() TimestampConfig {
	return TimestampConfig{
		Enabled:   false,
		HPosition: HRight,
		VPosition: VBottom,
		FontSize:  16,
		ColorMode: ColorModeAuto,
		Padding:   Padding{H: 8, V: 8},
		Format:    "%Y-%m-%d %H:%M",
	}
}

// FrameSettings is the mutable, per-frame configuration persisted on
// every PATCH. It is the operator-editable counterpart to the immutable
// FrameDescriptor.
type FrameSettings struct {
	Dithering   string
	Adjustments Adjustments
	// OverscanOverride, when non-nil, replaces the descriptor's overscan.
	OverscanOverride *Overscan
	Paused         bool
	Dummy          bool
	Flip180        bool
	Timestamp      TimestampConfig
}

// DefaultFrameSettings returns the zero-adjustment, non-dithered,
// unpaused starting point for a newly configured frame.
func DefaultFrameSettings() FrameSettings {
	return FrameSettings{
		Dithering: "none",
		Timestamp: DefaultTimestampConfig(),
	}
}

// Merge applies a partial PATCH overlay on top of s, returning the
// resulting settings. Only fields explicitly set in the overlay (per the
// *FrameSettingsPatch wire type, which httpapi decodes into pointers)
// take effect; everything else in s passes through unchanged.
func (s FrameSettings) Merge(patch FrameSettingsPatch) FrameSettings {
	out := s
	if patch.Dithering != nil {
		out.Dithering = *patch.Dithering
	}
	if patch.Brightness != nil {
		out.Adjustments.Brightness = *patch.Brightness
	}
	if patch.Contrast != nil {
		out.Adjustments.Contrast = *patch.Contrast
	}
	if patch.Saturation != nil {
		out.Adjustments.Saturation = *patch.Saturation
	}
	if patch.Sharpness != nil {
		out.Adjustments.Sharpness = *patch.Sharpness
	}
	out.Adjustments = out.Adjustments.Clamp()
	if patch.Overscan != nil {
		out.OverscanOverride = patch.Overscan
	}
	if patch.Paused != nil {
		out.Paused = *patch.Paused
	}
	if patch.Dummy != nil {
		out.Dummy = *patch.Dummy
	}
	if patch.Flip180 != nil {
		out.Flip180 = *patch.Flip180
	}
	if patch.Timestamp != nil {
		out.Timestamp = *patch.Timestamp
	}
	return out
}

// FrameSettingsPatch is the partial-update wire shape for PATCH
// /frames/{id} and for preview overlays. Pointer fields distinguish
// "not supplied" (nil) from "supplied as the zero value".
type FrameSettingsPatch struct {
	Dithering  *string
	Brightness *int
	Contrast   *int
	Saturation *float64
	Sharpness  *float64
	Overscan   *Overscan
	Paused     *bool
	Dummy      *bool
	Flip180    *bool
	Timestamp  *TimestampConfig
}

// InvalidatesIntermediate reports whether applying this patch requires
// recomputing FrameState.intermediate (anything beyond dithering alone).
func (p FrameSettingsPatch) InvalidatesIntermediate() bool {
	return p.Brightness != nil || p.Contrast != nil || p.Saturation != nil ||
		p.Sharpness != nil || p.Overscan != nil || p.Flip180 != nil || p.Timestamp != nil
}

// InvalidatesEncoded reports whether applying this patch requires
// recomputing FrameState.encoded, which is true whenever intermediate
// changes, and also true for a dithering-only change.
func (p FrameSettingsPatch) InvalidatesEncoded() bool {
	return p.Dithering != nil || p.InvalidatesIntermediate()
}
