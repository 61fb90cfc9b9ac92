package source

import (
	"bufio"
	"context"
	"image"
	"os"
	"path/filepath"
	"sort"
	"sync"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/jwulff/photoframe-server/internal/domain"
)

// FilesystemSource lists files matching a glob pattern, expanded once
// at construction (spec.md §4.4: "glob expanded once at startup") and
// re-expanded on demand by Refresh.
type FilesystemSource struct {
	id   string
	glob string

	mu     sync.RWMutex
	paths  []string
	health *domain.SourceHealth
}

// NewFilesystemSource builds a FilesystemSource from cfg, expanding the
// glob immediately. A glob error leaves paths empty rather than failing
// construction — a later List simply returns nothing, consistent with
// spec.md's "listing failures ... treated as empty".
func NewFilesystemSource(cfg *domain.SourceConfig) *FilesystemSource {
	matches, err := filepath.Glob(cfg.Filesystem.Glob)
	sort.Strings(matches)
	health := domain.NewSourceHealth(cfg.ID)
	if err != nil {
		health.RecordError(err.Error())
	} else {
		health.RecordSuccess()
	}
	return &FilesystemSource{id: cfg.ID, glob: cfg.Filesystem.Glob, paths: matches, health: health}
}

func (s *FilesystemSource) ID() string { return s.id }

// Refresh re-expands the glob, picking up files added or removed since
// construction or the last refresh.
func (s *FilesystemSource) Refresh(ctx context.Context) error {
	matches, err := filepath.Glob(s.glob)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.health.RecordError(err.Error())
		return err
	}
	sort.Strings(matches)
	s.paths = matches
	s.health.RecordSuccess()
	return nil
}

func (s *FilesystemSource) List(ctx context.Context) ([]domain.Asset, error) {
	s.mu.RLock()
	paths := make([]string, len(s.paths))
	copy(paths, s.paths)
	s.mu.RUnlock()

	assets := make([]domain.Asset, 0, len(paths))
	for _, p := range paths {
		path := p
		orientation := probeOrientation(path)
		assets = append(assets, domain.Asset{
			SourceID:    s.id,
			AssetID:     path,
			Orientation: orientation,
			Fetch: func(ctx context.Context) ([]byte, error) {
				return os.ReadFile(path)
			},
		})
	}

	s.mu.Lock()
	s.health.RecordSuccess()
	s.mu.Unlock()
	return assets, nil
}

// Health returns a copy of the adapter's current listing health.
func (s *FilesystemSource) Health() *domain.SourceHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := *s.health
	return &h
}

// probeOrientation reads only the image header (via image.DecodeConfig,
// which stops after the header) to infer landscape/portrait without
// decoding pixel data, per spec.md §4.4's "probe header only, do not
// decode".
func probeOrientation(path string) domain.Orientation {
	f, err := os.Open(path)
	if err != nil {
		return domain.OrientationUnknown
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(bufio.NewReader(f))
	if err != nil {
		return domain.OrientationUnknown
	}
	if cfg.Width >= cfg.Height {
		return domain.OrientationLandscape
	}
	return domain.OrientationPortrait
}
