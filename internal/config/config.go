// Package config loads and persists the TOML configuration file (spec.md
// §6/§9: "[photoframes.<id>]"/"[sources.<id>]" top-level keys, atomic
// tmp-file-rename writes, a read-mostly swappable snapshot). Grounded on
// the teacher-sibling waves repo's koanf+toml+file Load, generalized
// with a Save path waves never needed since its config is read-only at
// runtime.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/jwulff/photoframe-server/internal/apierr"
	"github.com/jwulff/photoframe-server/internal/domain"
)

// FileConfig is the on-disk TOML shape.
type FileConfig struct {
	Photoframes map[string]FrameFileEntry  `koanf:"photoframes"`
	Sources     map[string]SourceFileEntry `koanf:"sources"`
}

// FrameFileEntry merges a frame's immutable descriptor fields with its
// mutable, persisted settings — on disk there is one table per frame;
// Load splits it into domain.FrameDescriptor and domain.FrameSettings.
type FrameFileEntry struct {
	Name        string   `koanf:"name"`
	Host        string   `koanf:"host"`
	Port        int      `koanf:"port"`
	Path        string   `koanf:"path"`
	PanelWidth  int      `koanf:"panel_width"`
	PanelHeight int      `koanf:"panel_height"`
	Orientation string   `koanf:"orientation"`
	Overscan    Overscan `koanf:"overscan"`
	Fit         string   `koanf:"fit"`
	Palette     []string `koanf:"palette"`
	Cron        string   `koanf:"cron"`
	SourceIDs   []string `koanf:"source_ids"`

	Dithering   string      `koanf:"dithering"`
	Brightness  int         `koanf:"brightness"`
	Contrast    int         `koanf:"contrast"`
	Saturation  float64     `koanf:"saturation"`
	Sharpness   float64     `koanf:"sharpness"`
	Paused      bool        `koanf:"paused"`
	Dummy       bool        `koanf:"dummy"`
	Flip180     bool        `koanf:"flip180"`
	Timestamp   Timestamp   `koanf:"timestamp"`
}

// Overscan mirrors domain.Overscan for TOML (un)marshaling.
type Overscan struct {
	Left   int `koanf:"left"`
	Right  int `koanf:"right"`
	Top    int `koanf:"top"`
	Bottom int `koanf:"bottom"`
}

// Timestamp mirrors domain.TimestampConfig for TOML (un)marshaling.
type Timestamp struct {
	Enabled         bool   `koanf:"enabled"`
	HPosition       string `koanf:"h_position"`
	VPosition       string `koanf:"v_position"`
	FontSize        int    `koanf:"font_size"`
	ColorMode       string `koanf:"color_mode"`
	FullWidthBanner bool   `koanf:"full_width_banner"`
	BannerHeight    int    `koanf:"banner_height"`
	PaddingH        int    `koanf:"padding_h"`
	PaddingV        int    `koanf:"padding_v"`
	StrokeEnabled   bool   `koanf:"stroke_enabled"`
	StrokeWidth     int    `koanf:"stroke_width"`
	StrokeColor     string `koanf:"stroke_color"`
	Format          string `koanf:"format"`
}

// SourceFileEntry is one [sources.<id>] table.
type SourceFileEntry struct {
	Kind             string   `koanf:"kind"`
	Glob             string   `koanf:"glob"`
	BaseURL          string   `koanf:"base_url"`
	APIKey           string   `koanf:"api_key"`
	FilterBlob       string   `koanf:"filter_blob"`
	OAuthAccessToken string   `koanf:"oauth_access_token"`
	AlbumRef         string   `koanf:"album_ref"`
	Order            string   `koanf:"order"`
	Blacklist        []string `koanf:"blacklist"`
}

// Load reads path as TOML and splits it into domain structs. A missing
// file is not an error — callers get an empty config to start a fresh
// install from (the HTTP API is how frames/sources subsequently get
// declared, per spec.md's config file being an external collaborator).
func Load(path string) (map[string]*domain.FrameDescriptor, map[string]domain.FrameSettings, map[string]*domain.SourceConfig, error) {
	k := koanf.New(".")

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, nil, nil, apierr.Config(fmt.Errorf("parse %s: %w", path, err))
		}
	}

	var fc FileConfig
	if err := k.Unmarshal("", &fc); err != nil {
		return nil, nil, nil, apierr.Config(fmt.Errorf("unmarshal %s: %w", path, err))
	}

	descriptors := make(map[string]*domain.FrameDescriptor, len(fc.Photoframes))
	settings := make(map[string]domain.FrameSettings, len(fc.Photoframes))
	for id, entry := range fc.Photoframes {
		descriptors[id] = entry.toDescriptor(id)
		settings[id] = entry.toSettings()
	}

	sources := make(map[string]*domain.SourceConfig, len(fc.Sources))
	for id, entry := range fc.Sources {
		sources[id] = entry.toSourceConfig(id)
	}

	return descriptors, settings, sources, nil
}

// Save serializes descriptors/settings/sources back to path, writing to
// a temp file in the same directory and renaming over the original so a
// crash mid-write never leaves a truncated config (spec.md §6: "...
// serialized back ... atomically via tmp-file rename").
func Save(path string, descriptors map[string]*domain.FrameDescriptor, settings map[string]domain.FrameSettings, sources map[string]*domain.SourceConfig) error {
	fc := FileConfig{
		Photoframes: make(map[string]FrameFileEntry, len(descriptors)),
		Sources:     make(map[string]SourceFileEntry, len(sources)),
	}
	for id, d := range descriptors {
		fc.Photoframes[id] = fromDomain(d, settings[id])
	}
	for id, s := range sources {
		fc.Sources[id] = fromSourceConfig(s)
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(fc, "koanf"), nil); err != nil {
		return apierr.Config(fmt.Errorf("build config tree: %w", err))
	}

	data, err := k.Marshal(toml.Parser())
	if err != nil {
		return apierr.Config(fmt.Errorf("marshal toml: %w", err))
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".config-*.toml.tmp")
	if err != nil {
		return apierr.Config(fmt.Errorf("create temp config: %w", err))
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apierr.Config(fmt.Errorf("write temp config: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return apierr.Config(fmt.Errorf("close temp config: %w", err))
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return apierr.Config(fmt.Errorf("rename temp config into place: %w", err))
	}
	return nil
}
