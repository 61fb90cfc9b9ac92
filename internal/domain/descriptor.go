package domain

// Orientation is a frame's or an asset's aspect-ratio policy.
type Orientation string

const (
	OrientationLandscape Orientation = "landscape"
	OrientationPortrait  Orientation = "portrait"
	OrientationUnknown   Orientation = "unknown"
)

// FitMode controls how a source image is scaled into the frame's visible
// area.
type FitMode string

const (
	FitCover   FitMode = "cover"
	FitContain FitMode = "contain"
)

// Overscan is the border of the panel occluded by the physical frame,
// painted palette-white so the device's own bezel content fills the
// full panel.
type Overscan struct {
	Left, Right, Top, Bottom int
}

// Visible returns the visible (non-occluded) sub-rectangle of a
// width x height panel after this overscan is applied.
func (o Overscan) Visible(panelW, panelH int) (w, h int) {
	w = panelW - o.Left - o.Right
	h = panelH - o.Top - o.Bottom
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return w, h
}

// PushTransportConfig holds the device push endpoint parameters.
type PushTransportConfig struct {
	// Host is the device's address, e.g. "192.168.1.42" or a hostname.
	Host string
	// Port defaults to 80 when zero.
	Port int
	// Path is the HTTP path the device expects the BMP POST on.
	Path string
}

// FrameDescriptor is the immutable identity and hardware shape of one
// configured display, loaded once at config-load time. Mutable,
// user-editable behavior lives in FrameSettings.
type FrameDescriptor struct {
	ID          string
	Name        string
	Transport   PushTransportConfig
	PanelWidth  int
	PanelHeight int
	Orientation Orientation
	Overscan    Overscan
	Fit         FitMode
	// Palette is the ordered list of declared colors, hex strings as
	// written in config (e.g. "#000000", "ffffff").
	Palette []string
	Cron    string
	// SourceIDs is the ordered list of bound SourceConfig IDs consulted
	// by the Selection Loop, round-robin.
	SourceIDs []string
}
