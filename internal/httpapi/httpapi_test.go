package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwulff/photoframe-server/internal/domain"
	"github.com/jwulff/photoframe-server/internal/orchestrator"
	"github.com/jwulff/photoframe-server/internal/palette"
	"github.com/jwulff/photoframe-server/internal/registry"
	"github.com/jwulff/photoframe-server/internal/scheduler"
	"github.com/jwulff/photoframe-server/internal/selection"
	"github.com/jwulff/photoframe-server/internal/source"
	"github.com/jwulff/photoframe-server/internal/storage/sqlite"
	"github.com/jwulff/photoframe-server/internal/transport"
)

func writeTestPNG(t *testing.T, path string, w, h int, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func newTestServer(t *testing.T) (*Server, *registry.Registry) {
	t.Helper()
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "a.png"), 20, 10, color.RGBA{R: 200, G: 200, B: 200, A: 255})

	store, err := sqlite.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	reg := registry.New("", store)

	sourceCfg := &domain.SourceConfig{
		ID:         "local",
		Kind:       domain.SourceKindFilesystem,
		Filesystem: domain.FilesystemParams{Glob: filepath.Join(dir, "*.png")},
		Order:      domain.OrderSequential,
	}
	adapter, err := source.New(sourceCfg)
	require.NoError(t, err)
	reg.AddSource(sourceCfg, adapter)

	descriptor := &domain.FrameDescriptor{
		ID:          "living_room",
		Name:        "Living Room",
		PanelWidth:  20,
		PanelHeight: 10,
		Fit:         domain.FitCover,
		Palette:     []string{"#000000", "#ffffff"},
		Cron:        "@every 1h",
		SourceIDs:   []string{"local"},
	}
	resolver := palette.Resolve(descriptor.Palette)
	selector := selection.New(descriptor, reg.SourceConfigs(), map[string]source.Source{"local": adapter})
	// Dummy keeps the test frame from attempting a real network push to
	// the zero-value (host-less) transport config.
	settings := domain.DefaultFrameSettings()
	settings.Dummy = true
	frame := orchestrator.NewFrame(descriptor, settings, resolver, selector)
	reg.AddFrame(descriptor, frame)

	pusher := transport.NewPusher()
	sched := scheduler.New(pusher, reg.SourceConfigs, nil)
	require.NoError(t, sched.Register(frame))

	return New(reg, sched, pusher, nil), reg
}

func TestGetConfigListsFramesAndSources(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp configResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	require.Contains(t, resp.Photoframes, "living_room")
	assert.Equal(t, "Living Room", resp.Photoframes["living_room"].Name)
	require.Contains(t, resp.Sources, "local")
	assert.Equal(t, "filesystem", resp.Sources["local"].Kind)
}

func TestPatchFrameUpdatesSettings(t *testing.T) {
	s, reg := newTestServer(t)

	dithering := "floyd_steinberg"
	body, err := json.Marshal(settingsPatchWire{Dithering: &dithering})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPatch, "/frames/living_room", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)

	frame, err := reg.Frame("living_room")
	require.NoError(t, err)
	assert.Equal(t, "floyd_steinberg", frame.Settings.Dithering)
}

func TestPatchFrameUnknownIDReturns404(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPatch, "/frames/nope", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNextSelectsAndRendersWithoutPushing(t *testing.T) {
	s, reg := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/frames/living_room/next", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	frame, err := reg.Frame("living_room")
	require.NoError(t, err)
	snap := frame.Snapshot()
	require.NotNil(t, snap.CurrentAsset)
	assert.Equal(t, "ok", snap.LastTickStatus)
}

func TestPreviewReturnsBMPBlob(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/frames/living_room/preview", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/bmp", rec.Header().Get("Content-Type"))
	data := rec.Body.Bytes()
	require.True(t, len(data) > 2)
	assert.Equal(t, byte('B'), data[0])
	assert.Equal(t, byte('M'), data[1])
}

func TestPreviewDoesNotCommitIntermediate(t *testing.T) {
	s, _ := newTestServer(t)

	nextReq := httptest.NewRequest(http.MethodPost, "/frames/living_room/next", nil)
	nextRec := httptest.NewRecorder()
	s.ServeHTTP(nextRec, nextReq)
	require.Equal(t, http.StatusAccepted, nextRec.Code)

	beforeRec := httptest.NewRecorder()
	s.ServeHTTP(beforeRec, httptest.NewRequest(http.MethodGet, "/frames/living_room/intermediate", nil))
	require.Equal(t, http.StatusOK, beforeRec.Code)
	before := beforeRec.Body.Bytes()

	previewReq := httptest.NewRequest(http.MethodPost, "/frames/living_room/preview", bytes.NewReader([]byte(`{"brightness":20}`)))
	previewRec := httptest.NewRecorder()
	s.ServeHTTP(previewRec, previewReq)
	require.Equal(t, http.StatusOK, previewRec.Code)

	afterRec := httptest.NewRecorder()
	s.ServeHTTP(afterRec, httptest.NewRequest(http.MethodGet, "/frames/living_room/intermediate", nil))
	require.Equal(t, http.StatusOK, afterRec.Code)

	assert.Equal(t, before, afterRec.Body.Bytes(), "preview must not publish its override into the frame's intermediate")
}

func TestUploadPausesFrameAndReturns204(t *testing.T) {
	s, reg := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "upload.png")
	require.NoError(t, err)

	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	require.NoError(t, png.Encode(part, img))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/frames/living_room/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)

	frame, err := reg.Frame("living_room")
	require.NoError(t, err)
	assert.True(t, frame.Settings.Paused)
}

func TestClearPushesAllWhiteAndResetsState(t *testing.T) {
	s, reg := newTestServer(t)

	frame, err := reg.Frame("living_room")
	require.NoError(t, err)
	require.NoError(t, frame.RenderForDevice(context.Background(), reg.SourceConfigs()))
	require.NotNil(t, frame.Snapshot().CurrentAsset)

	req := httptest.NewRequest(http.MethodPost, "/frames/living_room/clear", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, frame.Snapshot().CurrentAsset)
}

func TestIntermediateReturnsPNGAfterRender(t *testing.T) {
	s, reg := newTestServer(t)

	frame, err := reg.Frame("living_room")
	require.NoError(t, err)
	require.NoError(t, frame.RenderForDevice(context.Background(), reg.SourceConfigs()))

	req := httptest.NewRequest(http.MethodGet, "/frames/living_room/intermediate", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	_, err = png.Decode(rec.Body)
	require.NoError(t, err)
}

func TestIntermediateBeforeRenderReturns404(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/frames/living_room/intermediate", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPaletteReturnsResolvedColorsAndWhiteIndex(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/frames/living_room/palette", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp paletteResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "living_room", resp.FrameID)
	require.Len(t, resp.Palette, 2)
	assert.Equal(t, "#ffffff", resp.Palette[1].Hex)
}

func TestMetadataAfterRenderReportsCurrentAsset(t *testing.T) {
	s, reg := newTestServer(t)

	frame, err := reg.Frame("living_room")
	require.NoError(t, err)
	require.NoError(t, frame.RenderForDevice(context.Background(), reg.SourceConfigs()))

	req := httptest.NewRequest(http.MethodGet, "/frames/living_room/metadata", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp metadataResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "local", resp.SourceID)
}

func TestSourceRefreshReturns204(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/sources/local/refresh", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSourceBlacklistPersistsAndFiltersSelection(t *testing.T) {
	s, reg := newTestServer(t)

	frame, err := reg.Frame("living_room")
	require.NoError(t, err)
	require.NoError(t, frame.RenderForDevice(context.Background(), reg.SourceConfigs()))
	blacklisted := frame.Snapshot().CurrentAsset.AssetID

	body, err := json.Marshal(blacklistWire{AssetID: blacklisted})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/sources/local/blacklist", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, cfg, err := reg.Source("local")
	require.NoError(t, err)
	assert.True(t, cfg.IsBlacklisted(blacklisted))
}

func TestSourceCredentialsUpdatesRemoteAPIFields(t *testing.T) {
	s, reg := newTestServer(t)

	remoteCfg := &domain.SourceConfig{
		ID:        "remote",
		Kind:      domain.SourceKindRemoteAPI,
		RemoteAPI: domain.RemoteAPIParams{BaseURL: "https://example.invalid"},
		Order:     domain.OrderRandom,
	}
	adapter, err := source.New(remoteCfg)
	require.NoError(t, err)
	reg.AddSource(remoteCfg, adapter)

	body, err := json.Marshal(credentialsWire{APIKey: "new-key"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/sources/remote/remote-photo-api/credentials", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	_, cfg, err := reg.Source("remote")
	require.NoError(t, err)
	assert.Equal(t, "new-key", cfg.RemoteAPI.APIKey)
}
