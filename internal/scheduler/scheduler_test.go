package scheduler

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwulff/photoframe-server/internal/domain"
	"github.com/jwulff/photoframe-server/internal/orchestrator"
	"github.com/jwulff/photoframe-server/internal/palette"
	"github.com/jwulff/photoframe-server/internal/selection"
	"github.com/jwulff/photoframe-server/internal/source"
	"github.com/jwulff/photoframe-server/internal/transport"
)

type fakeSource struct {
	id     string
	assets []domain.Asset
}

func (f *fakeSource) ID() string { return f.id }

func (f *fakeSource) List(ctx context.Context) ([]domain.Asset, error) { return f.assets, nil }

func (f *fakeSource) Refresh(ctx context.Context) error { return nil }

func (f *fakeSource) Health() *domain.SourceHealth { return domain.NewSourceHealth(f.id) }

func testPayload(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 80, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 80; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 10, B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestFrame(t *testing.T, transportCfg domain.PushTransportConfig) *orchestrator.Frame {
	resolver := palette.Resolve([]string{"#000000", "#ffffff"})
	descriptor := &domain.FrameDescriptor{
		ID: "f1", PanelWidth: 40, PanelHeight: 20,
		Orientation: domain.OrientationLandscape,
		Fit:         domain.FitCover,
		SourceIDs:   []string{"s1"},
		Cron:        "@every 1h",
		Transport:   transportCfg,
	}
	asset := domain.Asset{
		SourceID: "s1", AssetID: "a1", Orientation: domain.OrientationLandscape,
		Fetch: func(ctx context.Context) ([]byte, error) { return testPayload(t), nil },
	}
	registry := map[string]source.Source{"s1": &fakeSource{id: "s1", assets: []domain.Asset{asset}}}
	configs := map[string]*domain.SourceConfig{"s1": {ID: "s1", Order: domain.OrderSequential}}
	sel := selection.New(descriptor, configs, registry)

	return orchestrator.NewFrame(descriptor, domain.DefaultFrameSettings(), resolver, sel)
}

func deviceTransportConfig(t *testing.T, srv *httptest.Server) domain.PushTransportConfig {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return domain.PushTransportConfig{Host: host, Port: port, Path: "/frame"}
}

func TestTriggerRendersAndPushes(t *testing.T) {
	var pushed bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pushed = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	frame := newTestFrame(t, deviceTransportConfig(t, srv))
	configs := map[string]*domain.SourceConfig{"s1": {ID: "s1", Order: domain.OrderSequential}}

	sched := New(transport.NewPusher(), func() map[string]*domain.SourceConfig { return configs }, nil)

	err := sched.Trigger(context.Background(), frame)
	require.NoError(t, err)
	assert.True(t, pushed)
	assert.Equal(t, "ok", frame.Snapshot().LastTickStatus)
}

func TestTriggerSkipsPausedFrameWithoutPushing(t *testing.T) {
	var pushed bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pushed = true
	}))
	defer srv.Close()

	frame := newTestFrame(t, deviceTransportConfig(t, srv))
	frame.Settings.Paused = true
	configs := map[string]*domain.SourceConfig{"s1": {ID: "s1", Order: domain.OrderSequential}}

	sched := New(transport.NewPusher(), func() map[string]*domain.SourceConfig { return configs }, nil)

	err := sched.Trigger(context.Background(), frame)
	require.NoError(t, err)
	assert.False(t, pushed)
	assert.Equal(t, "skipped-paused", frame.Snapshot().LastTickStatus)
}

func TestTriggerDummyRendersWithoutPushing(t *testing.T) {
	var pushed bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pushed = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	frame := newTestFrame(t, deviceTransportConfig(t, srv))
	frame.Settings.Dummy = true
	configs := map[string]*domain.SourceConfig{"s1": {ID: "s1", Order: domain.OrderSequential}}

	sched := New(transport.NewPusher(), func() map[string]*domain.SourceConfig { return configs }, nil)

	err := sched.Trigger(context.Background(), frame)
	require.NoError(t, err)
	assert.False(t, pushed)
	snap := frame.Snapshot()
	require.NotNil(t, snap.Encoded)
	assert.Equal(t, "ok", snap.LastTickStatus)
}

func TestTriggerReturnsBusyWhenLockHeld(t *testing.T) {
	frame := newTestFrame(t, domain.PushTransportConfig{Host: "127.0.0.1", Port: 1})
	require.True(t, frame.TryLock())
	defer frame.Unlock()

	configs := map[string]*domain.SourceConfig{"s1": {ID: "s1", Order: domain.OrderSequential}}
	sched := New(transport.NewPusher(), func() map[string]*domain.SourceConfig { return configs }, nil)

	err := sched.Trigger(context.Background(), frame)
	require.Error(t, err)
	assert.Equal(t, "skipped-lock-held", frame.Snapshot().LastTickStatus)
}

func TestRegisterRejectsInvalidCronExpression(t *testing.T) {
	frame := newTestFrame(t, domain.PushTransportConfig{})
	frame.Descriptor.Cron = "not a cron expression"

	sched := New(transport.NewPusher(), func() map[string]*domain.SourceConfig { return nil }, nil)
	err := sched.Register(frame)
	assert.Error(t, err)
}
