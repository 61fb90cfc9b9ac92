// Package orchestrator owns each frame's in-memory FrameState triple and
// exposes the render_for_device/preview/upload operations of spec.md
// §4.6, single-flighting device renders the way the teacher's dexcom
// poller single-flights a refresh against concurrent reads.
package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/jwulff/photoframe-server/internal/apierr"
	"github.com/jwulff/photoframe-server/internal/dither"
	"github.com/jwulff/photoframe-server/internal/domain"
	"github.com/jwulff/photoframe-server/internal/palette"
	"github.com/jwulff/photoframe-server/internal/selection"
	"github.com/jwulff/photoframe-server/internal/transform"
)

// Clock is injected for testability; time.Now in production.
type Clock func() time.Time

// Frame bundles one FrameDescriptor with its mutable state and the
// collaborators the orchestrator needs to render it. The orchestrator
// never mutates Descriptor or Settings directly — httpapi PATCH handlers
// own those and hand the orchestrator a fresh *Frame view (copy-on-write,
// mirroring domain.SourceConfig).
type Frame struct {
	Descriptor *domain.FrameDescriptor
	Settings   domain.FrameSettings
	Resolver   *palette.Resolver
	Selector   *selection.Selector

	mu    sync.RWMutex
	state *domain.FrameState
	clock Clock
}

// NewFrame builds a Frame ready for its first render.
func NewFrame(descriptor *domain.FrameDescriptor, settings domain.FrameSettings, resolver *palette.Resolver, selector *selection.Selector) *Frame {
	return &Frame{
		Descriptor: descriptor,
		Settings:   settings,
		Resolver:   resolver,
		Selector:   selector,
		state:      domain.NewFrameState(),
		clock:      time.Now,
	}
}

// Snapshot returns a copy of the current published state, safe to read
// without blocking a concurrent render.
func (f *Frame) Snapshot() domain.StateSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state.Snapshot()
}

// TryLock attempts to acquire the frame's single-flight lock without
// blocking, per spec.md §4.7 step 2 ("try_acquire ... if held, skip").
func (f *Frame) TryLock() bool {
	return f.mu.TryLock()
}

func (f *Frame) Unlock() { f.mu.Unlock() }

// Lock blocks until the frame's single-flight lock is acquired. Used by
// the preview and upload paths, which must serialize with a render
// rather than skip when one is already in flight.
func (f *Frame) Lock() { f.mu.Lock() }

// RenderForDevice runs selection, then the full transform+dither
// pipeline, and publishes intermediate/encoded/current_asset. Callers
// driving a scheduled tick or a manual trigger must hold the frame's
// lock (via TryLock/Lock) before calling this.
func (f *Frame) RenderForDevice(ctx context.Context, configs map[string]*domain.SourceConfig) error {
	res, err := f.Selector.Select(ctx, f.state.SequentialCursor, configs)
	if err != nil {
		return err
	}

	img, _, err := image.Decode(bytes.NewReader(res.Bytes))
	if err != nil {
		return apierr.Pipeline(apierr.StageDecode, fmt.Errorf("decode %s/%s: %w", res.SourceID, res.AssetID, err))
	}

	f.state.SourceBytes = res.Bytes
	f.state.CurrentAsset = &domain.AssetMetadata{
		SourceID:    res.SourceID,
		AssetID:     res.AssetID,
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		Orientation: res.Orientation,
		SelectedAt:  f.clock(),
	}

	return f.renderFromSourceBytes(res.Bytes)
}

// PreviewResult is the transient output of a preview render. It is
// never published into the frame's state: spec.md's testable-property
// scenario 6 requires a subsequent GET .../intermediate to still return
// the pre-override intermediate, so the caller (handlePreview) encodes
// this value directly rather than reading it back off the frame.
type PreviewResult struct {
	Intermediate *domain.Frame
	Encoded      *domain.IndexedFrame
}

// errPreviewSuperseded signals that a preview's render raced a
// concurrent render_for_device/upload commit and must be discarded
// rather than emitted, per spec.md §5.
var errPreviewSuperseded = errors.New("orchestrator: preview superseded by a concurrent render")

// maxPreviewAttempts bounds the discard-and-retry loop Preview runs
// when previewOnce reports its result was superseded.
const maxPreviewAttempts = 3

// Preview re-runs only the stages patch invalidates against a scratch
// copy of Settings and, when needed, a freshly selected source, without
// ever writing into f.Settings or f.state (spec.md §4.6, scenario 6:
// "preview did not commit"). Unlike RenderForDevice/Upload, callers must
// NOT hold the frame's write lock before calling Preview — it manages
// its own brief read-locked snapshots internally so independent preview
// requests can run concurrently with each other, serializing only at
// the moments it actually touches shared state. Preview requests are
// tagged with the generation they observed at start (spec.md §5's
// per-frame sequence number); if a render_for_device/upload commits a
// new generation while the pipeline runs, the result is discarded and
// the render retried against the new state rather than emitted stale.
func (f *Frame) Preview(ctx context.Context, patch domain.FrameSettingsPatch, configs map[string]*domain.SourceConfig) (*PreviewResult, error) {
	var result *PreviewResult
	var err error
	for attempt := 0; attempt < maxPreviewAttempts; attempt++ {
		result, err = f.previewOnce(ctx, patch, configs)
		if err != errPreviewSuperseded {
			return result, err
		}
	}
	return nil, apierr.Superseded()
}

func (f *Frame) previewOnce(ctx context.Context, patch domain.FrameSettingsPatch, configs map[string]*domain.SourceConfig) (*PreviewResult, error) {
	f.mu.RLock()
	seq := f.state.Generation
	sourceBytes := f.state.SourceBytes
	intermediate := f.state.Intermediate
	merged := f.Settings.Merge(patch)
	cursors := make(map[string]int, len(f.state.SequentialCursor))
	for id, c := range f.state.SequentialCursor {
		cursors[id] = c
	}
	f.mu.RUnlock()

	if sourceBytes == nil {
		res, err := f.Selector.Select(ctx, cursors, configs)
		if err != nil {
			return nil, err
		}
		sourceBytes = res.Bytes
		intermediate = nil
	}

	if patch.InvalidatesIntermediate() || intermediate == nil {
		var err error
		intermediate, err = f.buildIntermediate(sourceBytes, merged)
		if err != nil {
			return nil, err
		}
	}

	encoded, err := f.buildEncoded(intermediate, merged)
	if err != nil {
		return nil, err
	}

	f.mu.RLock()
	superseded := f.state.Generation != seq
	f.mu.RUnlock()
	if superseded {
		return nil, errPreviewSuperseded
	}

	return &PreviewResult{Intermediate: intermediate, Encoded: encoded}, nil
}

// Upload treats bytes as a synthetic asset: pauses the frame, replaces
// source_bytes, and republishes intermediate/encoded without pushing.
func (f *Frame) Upload(ctx context.Context, data []byte) error {
	f.Settings.Paused = true
	f.state.SourceBytes = data
	f.state.CurrentAsset = &domain.AssetMetadata{
		SourceID:    "upload",
		AssetID:     fmt.Sprintf("upload-%d", f.state.Generation+1),
		Orientation: domain.OrientationUnknown,
		SelectedAt:  f.clock(),
	}
	return f.renderFromSourceBytes(data)
}

// Clear resets the frame's published state to empty without touching
// settings, so the UI shows a blank preview until the next render.
func (f *Frame) Clear() {
	f.state = domain.NewFrameState()
}

// AllWhite builds a panel-sized indexed frame filled with the palette's
// resolved white entry, for the clear operation's "push all-white"
// behavior (spec.md §6).
func (f *Frame) AllWhite() *domain.IndexedFrame {
	pal := f.Resolver.RGBPalette()
	frame := domain.NewIndexedFrame(f.Descriptor.PanelWidth, f.Descriptor.PanelHeight, pal)

	whiteIdx := f.Resolver.ValidPosition(f.Resolver.WhiteIndex())
	if whiteIdx < 0 || whiteIdx >= len(pal) {
		whiteIdx = 0
	}
	for i := range frame.Indices {
		frame.Indices[i] = uint8(whiteIdx)
	}
	return frame
}

// SeedSequentialCursor primes the cursor position for a bound source
// from storage, so sequential cycling resumes where it left off across a
// restart instead of rewinding to index 0.
func (f *Frame) SeedSequentialCursor(sourceID string, cursor int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.SequentialCursor[sourceID] = cursor
}

// SequentialCursors returns a copy of the current per-source cursor
// positions, for persisting back to storage after a selection advances
// them.
func (f *Frame) SequentialCursors() map[string]int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]int, len(f.state.SequentialCursor))
	for id, c := range f.state.SequentialCursor {
		out[id] = c
	}
	return out
}

// SetLastTickStatus records the scheduler's outcome for the most recent
// tick, acquiring the write lock itself. Used for outcomes decided
// before the render lock is held (paused, lock-held).
func (f *Frame) SetLastTickStatus(status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.LastTickStatus = status
}

// SetLastTickStatusLocked records the tick outcome without acquiring
// the lock; the caller must already hold it (e.g. from a preceding
// TryLock around RenderForDevice/the push step).
func (f *Frame) SetLastTickStatusLocked(status string) {
	f.state.LastTickStatus = status
}

func (f *Frame) renderFromSourceBytes(data []byte) error {
	intermediate, err := f.buildIntermediate(data, f.Settings)
	if err != nil {
		return err
	}

	f.state.Intermediate = intermediate
	f.state.PaletteResolved = f.Resolver.Resolved
	f.state.PaletteWhiteIndex = f.Resolver.WhiteIndex()

	return f.encodeFromIntermediate()
}

func (f *Frame) encodeFromIntermediate() error {
	encoded, err := f.buildEncoded(f.state.Intermediate, f.Settings)
	if err != nil {
		return err
	}
	f.state.Encoded = encoded
	f.state.Generation++
	return nil
}

// buildIntermediate runs the decode+transform stage against data using
// settings, without touching f.state or f.Settings — shared by the
// committing renderFromSourceBytes and the scratch-copy Preview path.
func (f *Frame) buildIntermediate(data []byte, settings domain.FrameSettings) (*domain.Frame, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apierr.Pipeline(apierr.StageDecode, err)
	}

	exifTag := transform.ExifOrientation(data)
	overscan := transform.EffectiveOverscan(f.Descriptor.Overscan, settings)
	white := resolvedWhite(f.Resolver)

	intermediate, err := transform.Run(img, f.Descriptor.PanelWidth, f.Descriptor.PanelHeight, overscan, f.Descriptor.Fit, settings, exifTag, white, f.clock())
	if err != nil {
		return nil, apierr.Pipeline(apierr.StageTransform, err)
	}
	return intermediate, nil
}

// buildEncoded runs the dither stage against intermediate using
// settings' algorithm, without touching f.state or f.Settings.
func (f *Frame) buildEncoded(intermediate *domain.Frame, settings domain.FrameSettings) (*domain.IndexedFrame, error) {
	id := dither.ID(settings.Dithering)
	if !dither.Valid(id) {
		return nil, apierr.Invalid("dithering", fmt.Errorf("unknown dithering algorithm %q", settings.Dithering))
	}
	return dither.Apply(id, intermediate, f.Resolver), nil
}

func resolvedWhite(r *palette.Resolver) domain.RGB {
	pal := r.RGBPalette()
	pos := r.ValidPosition(r.WhiteIndex())
	if pos < 0 || pos >= len(pal) {
		return domain.NewRGB(255, 255, 255)
	}
	return pal[pos]
}
