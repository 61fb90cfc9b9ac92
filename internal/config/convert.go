package config

import "github.com/jwulff/photoframe-server/internal/domain"

func (e FrameFileEntry) toDescriptor(id string) *domain.FrameDescriptor {
	return &domain.FrameDescriptor{
		ID:   id,
		Name: e.Name,
		Transport: domain.PushTransportConfig{
			Host: e.Host,
			Port: e.Port,
			Path: e.Path,
		},
		PanelWidth:  e.PanelWidth,
		PanelHeight: e.PanelHeight,
		Orientation: domain.Orientation(e.Orientation),
		Overscan: domain.Overscan{
			Left: e.Overscan.Left, Right: e.Overscan.Right,
			Top: e.Overscan.Top, Bottom: e.Overscan.Bottom,
		},
		Fit:       domain.FitMode(orDefault(e.Fit, string(domain.FitCover))),
		Palette:   e.Palette,
		Cron:      e.Cron,
		SourceIDs: e.SourceIDs,
	}
}

func (e FrameFileEntry) toSettings() domain.FrameSettings {
	s := domain.DefaultFrameSettings()
	if e.Dithering != "" {
		s.Dithering = e.Dithering
	}
	s.Adjustments = domain.Adjustments{
		Brightness: e.Brightness,
		Contrast:   e.Contrast,
		Saturation: e.Saturation,
		Sharpness:  e.Sharpness,
	}.Clamp()
	s.Paused = e.Paused
	s.Dummy = e.Dummy
	s.Flip180 = e.Flip180
	s.Timestamp = e.Timestamp.toDomain()
	return s
}

func (t Timestamp) toDomain() domain.TimestampConfig {
	cfg := domain.DefaultTimestampConfig()
	cfg.Enabled = t.Enabled
	if t.HPosition != "" {
		cfg.HPosition = domain.TimestampHPosition(t.HPosition)
	}
	if t.VPosition != "" {
		cfg.VPosition = domain.TimestampVPosition(t.VPosition)
	}
	if t.FontSize != 0 {
		cfg.FontSize = t.FontSize
	}
	if t.ColorMode != "" {
		cfg.ColorMode = domain.TimestampColorMode(t.ColorMode)
	}
	cfg.FullWidthBanner = t.FullWidthBanner
	cfg.BannerHeight = t.BannerHeight
	cfg.Padding = domain.Padding{H: t.PaddingH, V: t.PaddingV}
	cfg.Stroke = domain.Stroke{Enabled: t.StrokeEnabled, Width: t.StrokeWidth, Color: t.StrokeColor}
	if t.Format != "" {
		cfg.Format = t.Format
	}
	return cfg
}

func (e SourceFileEntry) toSourceConfig(id string) *domain.SourceConfig {
	blacklist := make(map[string]struct{}, len(e.Blacklist))
	for _, assetID := range e.Blacklist {
		blacklist[assetID] = struct{}{}
	}
	return &domain.SourceConfig{
		ID:   id,
		Kind: domain.SourceKind(e.Kind),
		Filesystem: domain.FilesystemParams{
			Glob: e.Glob,
		},
		RemoteAPI: domain.RemoteAPIParams{
			BaseURL:          e.BaseURL,
			APIKey:           e.APIKey,
			FilterBlob:       e.FilterBlob,
			OAuthAccessToken: e.OAuthAccessToken,
			AlbumRef:         e.AlbumRef,
		},
		Order:     domain.OrderPolicy(orDefault(e.Order, string(domain.OrderSequential))),
		Blacklist: blacklist,
	}
}

func fromDomain(d *domain.FrameDescriptor, s domain.FrameSettings) FrameFileEntry {
	return FrameFileEntry{
		Name:        d.Name,
		Host:        d.Transport.Host,
		Port:        d.Transport.Port,
		Path:        d.Transport.Path,
		PanelWidth:  d.PanelWidth,
		PanelHeight: d.PanelHeight,
		Orientation: string(d.Orientation),
		Overscan: Overscan{
			Left: d.Overscan.Left, Right: d.Overscan.Right,
			Top: d.Overscan.Top, Bottom: d.Overscan.Bottom,
		},
		Fit:        string(d.Fit),
		Palette:    d.Palette,
		Cron:       d.Cron,
		SourceIDs:  d.SourceIDs,
		Dithering:  s.Dithering,
		Brightness: s.Adjustments.Brightness,
		Contrast:   s.Adjustments.Contrast,
		Saturation: s.Adjustments.Saturation,
		Sharpness:  s.Adjustments.Sharpness,
		Paused:     s.Paused,
		Dummy:      s.Dummy,
		Flip180:    s.Flip180,
		Timestamp:  fromTimestamp(s.Timestamp),
	}
}

func fromTimestamp(t domain.TimestampConfig) Timestamp {
	return Timestamp{
		Enabled:         t.Enabled,
		HPosition:       string(t.HPosition),
		VPosition:       string(t.VPosition),
		FontSize:        t.FontSize,
		ColorMode:       string(t.ColorMode),
		FullWidthBanner: t.FullWidthBanner,
		BannerHeight:    t.BannerHeight,
		PaddingH:        t.Padding.H,
		PaddingV:        t.Padding.V,
		StrokeEnabled:   t.Stroke.Enabled,
		StrokeWidth:     t.Stroke.Width,
		StrokeColor:     t.Stroke.Color,
		Format:          t.Format,
	}
}

func fromSourceConfig(s *domain.SourceConfig) SourceFileEntry {
	blacklist := make([]string, 0, len(s.Blacklist))
	for assetID := range s.Blacklist {
		blacklist = append(blacklist, assetID)
	}
	return SourceFileEntry{
		Kind:             string(s.Kind),
		Glob:             s.Filesystem.Glob,
		BaseURL:          s.RemoteAPI.BaseURL,
		APIKey:           s.RemoteAPI.APIKey,
		FilterBlob:       s.RemoteAPI.FilterBlob,
		OAuthAccessToken: s.RemoteAPI.OAuthAccessToken,
		AlbumRef:         s.RemoteAPI.AlbumRef,
		Order:            string(s.Order),
		Blacklist:        blacklist,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
