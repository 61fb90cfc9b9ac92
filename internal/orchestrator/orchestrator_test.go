package orchestrator

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwulff/photoframe-server/internal/domain"
	"github.com/jwulff/photoframe-server/internal/palette"
	"github.com/jwulff/photoframe-server/internal/selection"
	"github.com/jwulff/photoframe-server/internal/source"
)

type fakeSource struct {
	id     string
	assets []domain.Asset
}

func (f *fakeSource) ID() string { return f.id }

func (f *fakeSource) List(ctx context.Context) ([]domain.Asset, error) { return f.assets, nil }

func (f *fakeSource) Refresh(ctx context.Context) error { return nil }

func (f *fakeSource) Health() *domain.SourceHealth { return domain.NewSourceHealth(f.id) }

func encodedPNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestFrame(t *testing.T, payload []byte) *Frame {
	resolver := palette.Resolve([]string{"#000000", "#ffffff"})
	descriptor := &domain.FrameDescriptor{
		ID: "f1", PanelWidth: 40, PanelHeight: 20,
		Orientation: domain.OrientationLandscape,
		Fit:         domain.FitCover,
		SourceIDs:   []string{"s1"},
	}
	asset := domain.Asset{
		SourceID: "s1", AssetID: "a1", Orientation: domain.OrientationLandscape,
		Fetch: func(ctx context.Context) ([]byte, error) { return payload, nil },
	}
	registry := map[string]source.Source{"s1": &fakeSource{id: "s1", assets: []domain.Asset{asset}}}
	configs := map[string]*domain.SourceConfig{"s1": {ID: "s1", Order: domain.OrderSequential}}
	sel := selection.New(descriptor, configs, registry)

	return NewFrame(descriptor, domain.DefaultFrameSettings(), resolver, sel)
}

func TestRenderForDevicePublishesEncodedAndAsset(t *testing.T) {
	payload := encodedPNG(t, 80, 40, color.RGBA{R: 20, G: 20, B: 20, A: 255})
	frame := newTestFrame(t, payload)
	configs := map[string]*domain.SourceConfig{"s1": {ID: "s1", Order: domain.OrderSequential}}

	require.True(t, frame.TryLock())
	defer frame.Unlock()

	err := frame.RenderForDevice(context.Background(), configs)
	require.NoError(t, err)

	snap := frame.Snapshot()
	require.NotNil(t, snap.CurrentAsset)
	assert.Equal(t, "s1", snap.CurrentAsset.SourceID)
	require.NotNil(t, snap.Encoded)
	assert.Equal(t, 40, snap.Encoded.Width)
	assert.Equal(t, 20, snap.Encoded.Height)
	assert.EqualValues(t, 1, snap.Generation)
}

func TestPreviewDitheringChangeReusesIntermediate(t *testing.T) {
	payload := encodedPNG(t, 80, 40, color.RGBA{R: 200, G: 200, B: 200, A: 255})
	frame := newTestFrame(t, payload)
	configs := map[string]*domain.SourceConfig{"s1": {ID: "s1", Order: domain.OrderSequential}}

	require.True(t, frame.TryLock())
	require.NoError(t, frame.RenderForDevice(context.Background(), configs))
	firstSnap := frame.Snapshot()
	frame.Unlock()

	ditherName := "floyd_steinberg"
	result, err := frame.Preview(context.Background(), domain.FrameSettingsPatch{Dithering: &ditherName}, configs)
	require.NoError(t, err)

	assert.Same(t, firstSnap.Intermediate, result.Intermediate)

	// Preview must not have published anything: generation and the
	// intermediate/encoded fields stay exactly as RenderForDevice left
	// them.
	snap := frame.Snapshot()
	assert.Same(t, firstSnap.Intermediate, snap.Intermediate)
	assert.Same(t, firstSnap.Encoded, snap.Encoded)
	assert.EqualValues(t, 1, snap.Generation)
}

func TestPreviewBrightnessChangeInvalidatesIntermediate(t *testing.T) {
	payload := encodedPNG(t, 80, 40, color.RGBA{R: 50, G: 50, B: 50, A: 255})
	frame := newTestFrame(t, payload)
	configs := map[string]*domain.SourceConfig{"s1": {ID: "s1", Order: domain.OrderSequential}}

	require.True(t, frame.TryLock())
	require.NoError(t, frame.RenderForDevice(context.Background(), configs))
	firstSnap := frame.Snapshot()
	frame.Unlock()

	brightness := 30
	result, err := frame.Preview(context.Background(), domain.FrameSettingsPatch{Brightness: &brightness}, configs)
	require.NoError(t, err)

	assert.NotSame(t, firstSnap.Intermediate, result.Intermediate)

	// The published intermediate is untouched by the preview.
	snap := frame.Snapshot()
	assert.Same(t, firstSnap.Intermediate, snap.Intermediate)
}

func TestPreviewDoesNotCommitPublishedState(t *testing.T) {
	payload := encodedPNG(t, 80, 40, color.RGBA{R: 90, G: 90, B: 90, A: 255})
	frame := newTestFrame(t, payload)
	configs := map[string]*domain.SourceConfig{"s1": {ID: "s1", Order: domain.OrderSequential}}

	require.True(t, frame.TryLock())
	require.NoError(t, frame.RenderForDevice(context.Background(), configs))
	frame.Unlock()

	before := frame.Settings
	brightness := 77
	_, err := frame.Preview(context.Background(), domain.FrameSettingsPatch{Brightness: &brightness}, configs)
	require.NoError(t, err)

	assert.Equal(t, before, frame.Settings, "preview must never mutate published Settings")
}

func TestUploadPausesFrameAndPublishesWithoutSelecting(t *testing.T) {
	payload := encodedPNG(t, 80, 40, color.RGBA{R: 10, G: 10, B: 10, A: 255})
	frame := newTestFrame(t, payload)

	uploadPayload := encodedPNG(t, 40, 40, color.RGBA{R: 250, G: 250, B: 250, A: 255})

	require.True(t, frame.TryLock())
	defer frame.Unlock()
	err := frame.Upload(context.Background(), uploadPayload)
	require.NoError(t, err)

	assert.True(t, frame.Settings.Paused)
	snap := frame.Snapshot()
	require.NotNil(t, snap.CurrentAsset)
	assert.Equal(t, "upload", snap.CurrentAsset.SourceID)
}

func TestTryLockFailsWhileHeld(t *testing.T) {
	payload := encodedPNG(t, 80, 40, color.RGBA{A: 255})
	frame := newTestFrame(t, payload)

	require.True(t, frame.TryLock())
	assert.False(t, frame.TryLock())
	frame.Unlock()
	assert.True(t, frame.TryLock())
	frame.Unlock()
}

func TestClearResetsPublishedState(t *testing.T) {
	payload := encodedPNG(t, 80, 40, color.RGBA{R: 5, G: 5, B: 5, A: 255})
	frame := newTestFrame(t, payload)
	configs := map[string]*domain.SourceConfig{"s1": {ID: "s1", Order: domain.OrderSequential}}

	require.True(t, frame.TryLock())
	require.NoError(t, frame.RenderForDevice(context.Background(), configs))
	frame.Unlock()

	frame.Clear()
	snap := frame.Snapshot()
	assert.Nil(t, snap.CurrentAsset)
	assert.Nil(t, snap.Encoded)
}
