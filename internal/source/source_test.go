package source

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwulff/photoframe-server/internal/domain"
)

func writeMinimalPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestNewReturnsFilesystemSourceForFilesystemKind(t *testing.T) {
	dir := t.TempDir()
	writeMinimalPNG(t, filepath.Join(dir, "a.png"), 10, 5)

	cfg := &domain.SourceConfig{
		ID:   "s1",
		Kind: domain.SourceKindFilesystem,
		Filesystem: domain.FilesystemParams{
			Glob: filepath.Join(dir, "*.png"),
		},
	}
	src, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "s1", src.ID())

	assets, err := src.List(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, domain.OrientationLandscape, assets[0].Orientation)

	bytesOut, err := assets[0].Fetch(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, bytesOut)
}

func TestFilesystemSourceRefreshPicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := &domain.SourceConfig{
		ID:         "s1",
		Kind:       domain.SourceKindFilesystem,
		Filesystem: domain.FilesystemParams{Glob: filepath.Join(dir, "*.png")},
	}
	src := NewFilesystemSource(cfg)

	assets, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, assets)

	writeMinimalPNG(t, filepath.Join(dir, "new.png"), 8, 4)

	assets, err = src.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, assets, "List must not pick up new files without a Refresh")

	require.NoError(t, src.Refresh(context.Background()))

	assets, err = src.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, assets, 1)
}

func TestNewRejectsUnknownKind(t *testing.T) {
	cfg := &domain.SourceConfig{ID: "s1", Kind: domain.SourceKind("carrier-pigeon")}
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestFilesystemSourceEmptyGlobYieldsNoAssets(t *testing.T) {
	cfg := &domain.SourceConfig{
		ID:         "s1",
		Kind:       domain.SourceKindFilesystem,
		Filesystem: domain.FilesystemParams{Glob: filepath.Join(t.TempDir(), "*.png")},
	}
	src := NewFilesystemSource(cfg)
	assets, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, assets)
}

func TestRemoteAPISourceListsAndFetches(t *testing.T) {
	var sawAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth = r.Header.Get("Authorization")
		switch {
		case r.URL.Path == "/search":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"assetId":"a1","width":100,"height":50}]`))
		case r.URL.Path == "/assets/a1/bytes":
			w.Write([]byte("fake-bytes"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := &domain.SourceConfig{
		ID:   "remote1",
		Kind: domain.SourceKindRemoteAPI,
		RemoteAPI: domain.RemoteAPIParams{
			BaseURL: srv.URL,
			APIKey:  "secret-key",
		},
	}
	src, err := New(cfg)
	require.NoError(t, err)

	assets, err := src.List(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "a1", assets[0].AssetID)
	assert.Equal(t, domain.OrientationLandscape, assets[0].Orientation)
	assert.Equal(t, "Bearer secret-key", sawAuth)

	data, err := assets[0].Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fake-bytes", string(data))
}

func TestFilesystemSourceHealthRecordsSuccess(t *testing.T) {
	dir := t.TempDir()
	writeMinimalPNG(t, filepath.Join(dir, "a.png"), 10, 5)

	cfg := &domain.SourceConfig{
		ID:         "s1",
		Kind:       domain.SourceKindFilesystem,
		Filesystem: domain.FilesystemParams{Glob: filepath.Join(dir, "*.png")},
	}
	src := NewFilesystemSource(cfg)

	_, err := src.List(context.Background())
	require.NoError(t, err)

	health := src.Health()
	assert.Equal(t, "s1", health.SourceID)
	assert.Zero(t, health.ErrorCount)
	assert.False(t, health.LastListOK.IsZero())
}

func TestRemoteAPISourceHealthRecordsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := &domain.SourceConfig{
		ID:        "remote1",
		Kind:      domain.SourceKindRemoteAPI,
		RemoteAPI: domain.RemoteAPIParams{BaseURL: srv.URL},
	}
	src, err := New(cfg)
	require.NoError(t, err)

	_, err = src.List(context.Background())
	require.Error(t, err)

	health := src.Health()
	assert.Equal(t, 1, health.ErrorCount)
	assert.NotEmpty(t, health.LastError)
}

func TestRemoteAPISourcePrefersOAuthTokenOverAPIKey(t *testing.T) {
	var sawAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	cfg := &domain.SourceConfig{
		ID:   "remote1",
		Kind: domain.SourceKindRemoteAPI,
		RemoteAPI: domain.RemoteAPIParams{
			BaseURL:          srv.URL,
			APIKey:           "static-key",
			OAuthAccessToken: "oauth-token",
		},
	}
	src, err := New(cfg)
	require.NoError(t, err)

	_, err = src.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer oauth-token", sawAuth)
}
