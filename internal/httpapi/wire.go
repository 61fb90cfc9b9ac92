package httpapi

import (
	"time"

	"github.com/jwulff/photoframe-server/internal/domain"
)

// overscanWire mirrors domain.Overscan with camelCase JSON field names
// (spec.md §6: "JSON, camelCase field names on the wire").
type overscanWire struct {
	Left   int `json:"left"`
	Right  int `json:"right"`
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
}

func overscanToWire(o domain.Overscan) overscanWire {
	return overscanWire{Left: o.Left, Right: o.Right, Top: o.Top, Bottom: o.Bottom}
}

func overscanFromWire(o overscanWire) domain.Overscan {
	return domain.Overscan{Left: o.Left, Right: o.Right, Top: o.Top, Bottom: o.Bottom}
}

type paddingWire struct {
	H int `json:"h"`
	V int `json:"v"`
}

type strokeWire struct {
	Enabled bool   `json:"enabled"`
	Width   int    `json:"width"`
	Color   string `json:"color"`
}

type timestampWire struct {
	Enabled         bool        `json:"enabled"`
	HPosition       string      `json:"hPosition"`
	VPosition       string      `json:"vPosition"`
	FontSize        int         `json:"fontSize"`
	ColorMode       string      `json:"colorMode"`
	FullWidthBanner bool        `json:"fullWidthBanner"`
	BannerHeight    int         `json:"bannerHeight"`
	Padding         paddingWire `json:"padding"`
	Stroke          strokeWire  `json:"stroke"`
	Format          string      `json:"format"`
}

func timestampToWire(t domain.TimestampConfig) timestampWire {
	return timestampWire{
		Enabled:         t.Enabled,
		HPosition:       string(t.HPosition),
		VPosition:       string(t.VPosition),
		FontSize:        t.FontSize,
		ColorMode:       string(t.ColorMode),
		FullWidthBanner: t.FullWidthBanner,
		BannerHeight:    t.BannerHeight,
		Padding:         paddingWire{H: t.Padding.H, V: t.Padding.V},
		Stroke:          strokeWire{Enabled: t.Stroke.Enabled, Width: t.Stroke.Width, Color: t.Stroke.Color},
		Format:          t.Format,
	}
}

func timestampFromWire(t timestampWire) domain.TimestampConfig {
	return domain.TimestampConfig{
		Enabled:         t.Enabled,
		HPosition:       domain.TimestampHPosition(t.HPosition),
		VPosition:       domain.TimestampVPosition(t.VPosition),
		FontSize:        t.FontSize,
		ColorMode:       domain.TimestampColorMode(t.ColorMode),
		FullWidthBanner: t.FullWidthBanner,
		BannerHeight:    t.BannerHeight,
		Padding:         domain.Padding{H: t.Padding.H, V: t.Padding.V},
		Stroke:          domain.Stroke{Enabled: t.Stroke.Enabled, Width: t.Stroke.Width, Color: t.Stroke.Color},
		Format:          t.Format,
	}
}

// settingsPatchWire is the partial-update wire shape shared by PATCH
// /frames/{id} and the preview overlay, mirroring
// domain.FrameSettingsPatch's pointer-field "not supplied vs. zero value"
// distinction.
type settingsPatchWire struct {
	Dithering  *string        `json:"dithering"`
	Brightness *int           `json:"brightness"`
	Contrast   *int           `json:"contrast"`
	Saturation *float64       `json:"saturation"`
	Sharpness  *float64       `json:"sharpness"`
	Overscan   *overscanWire  `json:"overscan"`
	Paused     *bool          `json:"paused"`
	Dummy      *bool          `json:"dummy"`
	Flip180    *bool          `json:"flip180"`
	Timestamp  *timestampWire `json:"timestamp"`
}

func (p settingsPatchWire) toDomain() domain.FrameSettingsPatch {
	out := domain.FrameSettingsPatch{
		Dithering:  p.Dithering,
		Brightness: p.Brightness,
		Contrast:   p.Contrast,
		Saturation: p.Saturation,
		Sharpness:  p.Sharpness,
		Paused:     p.Paused,
		Dummy:      p.Dummy,
		Flip180:    p.Flip180,
	}
	if p.Overscan != nil {
		o := overscanFromWire(*p.Overscan)
		out.Overscan = &o
	}
	if p.Timestamp != nil {
		ts := timestampFromWire(*p.Timestamp)
		out.Timestamp = &ts
	}
	return out
}

// frameConfigWire is one entry of GET /config's "photoframes" map,
// merging the immutable descriptor with the current mutable settings
// and the scheduler's last observed tick outcome (SPEC_FULL.md §11).
type frameConfigWire struct {
	Name           string        `json:"name"`
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	Path           string        `json:"path"`
	PanelWidth     int           `json:"panelWidth"`
	PanelHeight    int           `json:"panelHeight"`
	Orientation    string        `json:"orientation"`
	Overscan       overscanWire  `json:"overscan"`
	Fit            string        `json:"fit"`
	Palette        []string      `json:"palette"`
	Cron           string        `json:"cron"`
	SourceIDs      []string      `json:"sourceIds"`
	Dithering      string        `json:"dithering"`
	Brightness     int           `json:"brightness"`
	Contrast       int           `json:"contrast"`
	Saturation     float64       `json:"saturation"`
	Sharpness      float64       `json:"sharpness"`
	Paused         bool          `json:"paused"`
	Dummy          bool          `json:"dummy"`
	Flip180        bool          `json:"flip180"`
	Timestamp      timestampWire `json:"timestamp"`
	LastTickStatus string        `json:"lastTickStatus"`
}

func frameConfigToWire(d *domain.FrameDescriptor, s domain.FrameSettings, lastTickStatus string) frameConfigWire {
	return frameConfigWire{
		Name:           d.Name,
		Host:           d.Transport.Host,
		Port:           d.Transport.Port,
		Path:           d.Transport.Path,
		PanelWidth:     d.PanelWidth,
		PanelHeight:    d.PanelHeight,
		Orientation:    string(d.Orientation),
		Overscan:       overscanToWire(d.Overscan),
		Fit:            string(d.Fit),
		Palette:        d.Palette,
		Cron:           d.Cron,
		SourceIDs:      d.SourceIDs,
		Dithering:      s.Dithering,
		Brightness:     s.Adjustments.Brightness,
		Contrast:       s.Adjustments.Contrast,
		Saturation:     s.Adjustments.Saturation,
		Sharpness:      s.Adjustments.Sharpness,
		Paused:         s.Paused,
		Dummy:          s.Dummy,
		Flip180:        s.Flip180,
		Timestamp:      timestampToWire(s.Timestamp),
		LastTickStatus: lastTickStatus,
	}
}

// sourceConfigWire is one entry of GET /config's "sources" map.
// Credentials (api key / OAuth token) are deliberately omitted from the
// wire shape — this endpoint is a read model for the operator UI, not a
// secrets export.
type sourceConfigWire struct {
	Kind       string            `json:"kind"`
	Glob       string            `json:"glob,omitempty"`
	BaseURL    string            `json:"baseUrl,omitempty"`
	FilterBlob string            `json:"filterBlob,omitempty"`
	AlbumRef   string            `json:"albumRef,omitempty"`
	Order      string            `json:"order"`
	Blacklist  []string          `json:"blacklist"`
	Health     *sourceHealthWire `json:"health,omitempty"`
}

// sourceHealthWire mirrors domain.SourceHealth, letting the operator UI
// tell a degraded remote source apart from one that is simply empty.
type sourceHealthWire struct {
	LastListOK string `json:"lastListOk,omitempty"`
	ErrorCount int    `json:"errorCount"`
	LastError  string `json:"lastError,omitempty"`
}

func sourceConfigToWire(c *domain.SourceConfig, health *domain.SourceHealth) sourceConfigWire {
	blacklist := make([]string, 0, len(c.Blacklist))
	for assetID := range c.Blacklist {
		blacklist = append(blacklist, assetID)
	}
	wire := sourceConfigWire{
		Kind:       string(c.Kind),
		Glob:       c.Filesystem.Glob,
		BaseURL:    c.RemoteAPI.BaseURL,
		FilterBlob: c.RemoteAPI.FilterBlob,
		AlbumRef:   c.RemoteAPI.AlbumRef,
		Order:      string(c.Order),
		Blacklist:  blacklist,
	}
	if health != nil {
		hw := sourceHealthWire{ErrorCount: health.ErrorCount, LastError: health.LastError}
		if !health.LastListOK.IsZero() {
			hw.LastListOK = health.LastListOK.Format(time.RFC3339)
		}
		wire.Health = &hw
	}
	return wire
}

// configResponse is GET /config's top-level body.
type configResponse struct {
	Photoframes map[string]frameConfigWire  `json:"photoframes"`
	Sources     map[string]sourceConfigWire `json:"sources"`
}

// credentialsWire is the kind-specific body of
// POST /sources/{id}/*/credentials. Only the fields matching the
// source's own kind are applied; the rest are ignored.
type credentialsWire struct {
	APIKey           string `json:"apiKey"`
	OAuthAccessToken string `json:"oauthAccessToken"`
}

// filtersWire is the kind-specific body of POST /sources/{id}/*/filters.
type filtersWire struct {
	FilterBlob string `json:"filterBlob"`
	AlbumRef   string `json:"albumRef"`
	Glob       string `json:"glob"`
}

// blacklistWire is the body of POST /sources/{id}/blacklist.
type blacklistWire struct {
	AssetID string `json:"assetId"`
}

type rgbWire struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// paletteEntryWire is one entry of GET /frames/{id}/palette.
type paletteEntryWire struct {
	Input   string  `json:"input"`
	Hex     string  `json:"hex"`
	RGB     rgbWire `json:"rgb"`
	Invalid bool    `json:"invalid,omitempty"`
}

type paletteResponse struct {
	FrameID           string             `json:"frameId"`
	Palette           []paletteEntryWire `json:"palette"`
	PaletteWhiteIndex int                `json:"paletteWhiteIndex"`
}

// metadataResponse is GET /frames/{id}/metadata's body, adopted verbatim
// from original_source's ui.rs shape (SPEC_FULL.md §11).
type metadataResponse struct {
	SourceID    string `json:"sourceId"`
	AssetID     string `json:"assetId"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Orientation string `json:"orientation"`
	SelectedAt  string `json:"selectedAt"`
}
