package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"net/http"
	"time"

	"github.com/jwulff/photoframe-server/internal/apierr"
	"github.com/jwulff/photoframe-server/internal/domain"
	"github.com/jwulff/photoframe-server/internal/transport"
)

// errBusy mirrors scheduler's own sentinel for a held single-flight
// lock; httpapi's /next handler drives the render directly (there is no
// push step to delegate to the scheduler) so it needs its own copy
// rather than reaching into the unexported scheduler one.
var errBusy = errors.New("httpapi: frame render already in flight")

// maxUploadBytes bounds the multipart body POST /frames/{id}/upload
// will read, guarding against an operator accidentally pointing the
// upload endpoint at something enormous.
const maxUploadBytes = 32 << 20

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	resp := configResponse{
		Photoframes: make(map[string]frameConfigWire),
		Sources:     make(map[string]sourceConfigWire),
	}
	for _, id := range s.reg.FrameIDs() {
		frame, err := s.reg.Frame(id)
		if err != nil {
			continue
		}
		descriptor, err := s.reg.Descriptor(id)
		if err != nil {
			continue
		}
		snap := frame.Snapshot()
		resp.Photoframes[id] = frameConfigToWire(descriptor, frame.Settings, snap.LastTickStatus)
	}
	for id, cfg := range s.reg.SourceConfigs() {
		var health *domain.SourceHealth
		if adapter, _, err := s.reg.Source(id); err == nil {
			health = adapter.Health()
		}
		resp.Sources[id] = sourceConfigToWire(cfg, health)
	}
	s.respondJSON(w, resp)
}

func (s *Server) handlePatchFrame(w http.ResponseWriter, r *http.Request) {
	id := frameIDFromPath(r)
	if _, err := s.reg.Frame(id); err != nil {
		s.respondErr(w, err)
		return
	}

	var wire settingsPatchWire
	if err := decodeJSON(r, &wire); err != nil {
		s.respondErr(w, err)
		return
	}

	if err := s.reg.UpdateFrameSettings(id, wire.toDomain()); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondStatus(w, http.StatusNoContent)
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	frame, err := s.reg.Frame(frameIDFromPath(r))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if err := s.sched.Trigger(r.Context(), frame); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondStatus(w, http.StatusAccepted)
}

// handleNext selects and renders without pushing, per spec.md §6's
// "202 (select without push)". It does not go through the scheduler
// since there is no push step to synchronize with the device.
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	frame, err := s.reg.Frame(frameIDFromPath(r))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if !frame.TryLock() {
		s.respondErr(w, apierr.Transport(apierr.TransportTimeout, errBusy))
		return
	}
	defer frame.Unlock()

	if err := frame.RenderForDevice(r.Context(), s.reg.SourceConfigs()); err != nil {
		frame.SetLastTickStatusLocked(apierr.TickStatus(err))
		s.respondErr(w, err)
		return
	}
	frame.SetLastTickStatusLocked("ok")
	s.persistCursors(r.Context(), frame)
	s.respondStatus(w, http.StatusAccepted)
}

// handlePreview re-renders only the stages the posted settings overlay
// invalidates and returns the resulting BMP blob, per spec.md §4.6 and
// §6. Preview never publishes into the frame's state — a subsequent
// GET .../intermediate must still return the pre-override intermediate
// — so this handler does not take the frame's write lock; Frame.Preview
// manages its own brief read-locked snapshots and hands back the
// transient render directly.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	frame, err := s.reg.Frame(frameIDFromPath(r))
	if err != nil {
		s.respondErr(w, err)
		return
	}

	var wire settingsPatchWire
	if err := decodeJSON(r, &wire); err != nil {
		s.respondErr(w, err)
		return
	}

	result, err := frame.Preview(r.Context(), wire.toDomain(), s.reg.SourceConfigs())
	if err != nil {
		s.respondErr(w, err)
		return
	}

	s.writeBMP(w, result.Encoded)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	frame, err := s.reg.Frame(frameIDFromPath(r))
	if err != nil {
		s.respondErr(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondErr(w, apierr.Invalid("file", err))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		s.respondErr(w, apierr.Invalid("file", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondErr(w, apierr.Invalid("file", err))
		return
	}

	frame.Lock()
	uploadErr := frame.Upload(r.Context(), data)
	frame.Unlock()
	if uploadErr != nil {
		s.respondErr(w, uploadErr)
		return
	}

	if err := s.reg.Persist(); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondStatus(w, http.StatusNoContent)
}

// handleClear pushes an all-white frame to the device and resets the
// frame's published state, per spec.md §6's "204 (push all-white)".
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	frame, err := s.reg.Frame(frameIDFromPath(r))
	if err != nil {
		s.respondErr(w, err)
		return
	}

	frame.Lock()
	defer frame.Unlock()

	white := frame.AllWhite()
	if !frame.Settings.Dummy {
		if err := s.pusher.Push(r.Context(), frame.Descriptor.Transport, white); err != nil {
			s.respondErr(w, err)
			return
		}
	}
	frame.Clear()
	s.respondStatus(w, http.StatusNoContent)
}

func (s *Server) handleIntermediate(w http.ResponseWriter, r *http.Request) {
	frame, err := s.reg.Frame(frameIDFromPath(r))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	snap := frame.Snapshot()
	if snap.Intermediate == nil {
		s.respondErr(w, apierr.NotFound("intermediate", frameIDFromPath(r)))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, snap.Intermediate); err != nil {
		s.log.Error("encode intermediate png", "error", err)
	}
}

func (s *Server) handlePalette(w http.ResponseWriter, r *http.Request) {
	frame, err := s.reg.Frame(frameIDFromPath(r))
	if err != nil {
		s.respondErr(w, err)
		return
	}

	entries := make([]paletteEntryWire, 0, len(frame.Resolver.Resolved))
	for _, c := range frame.Resolver.Resolved {
		entries = append(entries, paletteEntryWire{
			Input:   c.Input,
			Hex:     c.Hex,
			RGB:     rgbWire{R: c.RGB.R, G: c.RGB.G, B: c.RGB.B},
			Invalid: c.Invalid,
		})
	}

	s.respondJSON(w, paletteResponse{
		FrameID:           frameIDFromPath(r),
		Palette:           entries,
		PaletteWhiteIndex: frame.Resolver.WhiteIndex(),
	})
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	frame, err := s.reg.Frame(frameIDFromPath(r))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	snap := frame.Snapshot()
	if snap.CurrentAsset == nil {
		s.respondErr(w, apierr.NotFound("asset", frameIDFromPath(r)))
		return
	}
	asset := snap.CurrentAsset
	s.respondJSON(w, metadataResponse{
		SourceID:    asset.SourceID,
		AssetID:     asset.AssetID,
		Width:       asset.Width,
		Height:      asset.Height,
		Orientation: string(asset.Orientation),
		SelectedAt:  asset.SelectedAt.Format(time.RFC3339),
	})
}

func (s *Server) handleSourceRefresh(w http.ResponseWriter, r *http.Request) {
	adapter, _, err := s.reg.Source(sourceIDFromPath(r))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if err := adapter.Refresh(r.Context()); err != nil {
		s.respondErr(w, apierr.Source(apierr.SourceUnreachable, err))
		return
	}
	s.respondStatus(w, http.StatusNoContent)
}

func (s *Server) handleSourceCredentials(w http.ResponseWriter, r *http.Request) {
	id := sourceIDFromPath(r)
	var wire credentialsWire
	if err := decodeJSON(r, &wire); err != nil {
		s.respondErr(w, err)
		return
	}

	err := s.reg.UpdateSourceConfig(id, func(cfg *domain.SourceConfig) *domain.SourceConfig {
		next := *cfg
		if wire.APIKey != "" {
			next.RemoteAPI.APIKey = wire.APIKey
		}
		if wire.OAuthAccessToken != "" {
			next.RemoteAPI.OAuthAccessToken = wire.OAuthAccessToken
		}
		return &next
	})
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondStatus(w, http.StatusNoContent)
}

func (s *Server) handleSourceFilters(w http.ResponseWriter, r *http.Request) {
	id := sourceIDFromPath(r)
	var wire filtersWire
	if err := decodeJSON(r, &wire); err != nil {
		s.respondErr(w, err)
		return
	}

	err := s.reg.UpdateSourceConfig(id, func(cfg *domain.SourceConfig) *domain.SourceConfig {
		next := *cfg
		if wire.FilterBlob != "" {
			next.RemoteAPI.FilterBlob = wire.FilterBlob
		}
		if wire.AlbumRef != "" {
			next.RemoteAPI.AlbumRef = wire.AlbumRef
		}
		if wire.Glob != "" {
			next.Filesystem.Glob = wire.Glob
		}
		return &next
	})
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondStatus(w, http.StatusNoContent)
}

func (s *Server) handleSourceBlacklist(w http.ResponseWriter, r *http.Request) {
	id := sourceIDFromPath(r)
	var wire blacklistWire
	if err := decodeJSON(r, &wire); err != nil {
		s.respondErr(w, err)
		return
	}
	if wire.AssetID == "" {
		s.respondErr(w, apierr.Invalid("assetId", errors.New("assetId is required")))
		return
	}

	if err := s.reg.BlacklistAsset(r.Context(), id, wire.AssetID); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondStatus(w, http.StatusNoContent)
}

func (s *Server) writeBMP(w http.ResponseWriter, frame *domain.IndexedFrame) {
	if frame == nil {
		s.respondErr(w, apierr.NotFound("encoded", ""))
		return
	}
	data, err := transport.Encode(frame)
	if err != nil {
		s.respondErr(w, apierr.Pipeline(apierr.StageDither, err))
		return
	}
	w.Header().Set("Content-Type", "image/bmp")
	_, _ = w.Write(data)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return apierr.Invalid("body", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return apierr.Invalid("body", err)
	}
	return nil
}
