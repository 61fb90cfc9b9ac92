// Package httpapi exposes the control plane routes of spec.md §6 over
// stdlib net/http, using Go 1.22's method+pattern ServeMux (no routing
// library exists anywhere in the retrieval pack, so this is the one
// ambient concern this core builds on the standard library — see
// DESIGN.md). Every handler funnels through respond/respondErr so the
// internal/apierr taxonomy maps 1:1 onto status codes per spec.md §7.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jwulff/photoframe-server/internal/apierr"
	"github.com/jwulff/photoframe-server/internal/orchestrator"
	"github.com/jwulff/photoframe-server/internal/registry"
	"github.com/jwulff/photoframe-server/internal/scheduler"
	"github.com/jwulff/photoframe-server/internal/transport"
)

// Server holds the dependencies every route needs: the live frame/source
// registry, the scheduler (for manual triggers) and the pusher (for the
// clear operation's direct push), grounded on the teacher's client-
// construction style of bundling collaborators into one struct passed by
// pointer.
type Server struct {
	reg    *registry.Registry
	sched  *scheduler.Scheduler
	pusher *transport.Pusher
	log    *slog.Logger
	mux    *http.ServeMux
}

// New builds a Server with all routes registered.
func New(reg *registry.Registry, sched *scheduler.Scheduler, pusher *transport.Pusher, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{reg: reg, sched: sched, pusher: pusher, log: log, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /config", s.handleGetConfig)

	s.mux.HandleFunc("PATCH /frames/{id}", s.handlePatchFrame)
	s.mux.HandleFunc("POST /frames/{id}/trigger", s.handleTrigger)
	s.mux.HandleFunc("POST /frames/{id}/next", s.handleNext)
	s.mux.HandleFunc("POST /frames/{id}/preview", s.handlePreview)
	s.mux.HandleFunc("POST /frames/{id}/upload", s.handleUpload)
	s.mux.HandleFunc("POST /frames/{id}/clear", s.handleClear)
	s.mux.HandleFunc("GET /frames/{id}/intermediate", s.handleIntermediate)
	s.mux.HandleFunc("GET /frames/{id}/palette", s.handlePalette)
	s.mux.HandleFunc("GET /frames/{id}/metadata", s.handleMetadata)

	s.mux.HandleFunc("POST /sources/{id}/refresh", s.handleSourceRefresh)
	// The "*" segment in spec.md's table names the source kind
	// (filesystem / remote-photo-api); handlers apply only the fields
	// relevant to the source's actual kind, so the segment's value
	// itself is informational rather than dispatched on.
	s.mux.HandleFunc("POST /sources/{id}/{kind}/credentials", s.handleSourceCredentials)
	s.mux.HandleFunc("POST /sources/{id}/{kind}/filters", s.handleSourceFilters)
	s.mux.HandleFunc("POST /sources/{id}/blacklist", s.handleSourceBlacklist)
}

// respondJSON writes v as a 200 JSON body.
func (s *Server) respondJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", "error", err)
	}
}

// respondStatus writes an empty body with the given status, for the
// 202/204 "accepted, no body" routes.
func (s *Server) respondStatus(w http.ResponseWriter, status int) {
	w.WriteHeader(status)
}

// respondErr translates err through the apierr taxonomy into a JSON
// error body and the matching status code, per spec.md §7.
func (s *Server) respondErr(w http.ResponseWriter, err error) {
	apiErr, ok := apierr.As(err)
	if !ok {
		s.log.Error("unclassified error", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal", err.Error(), "")
		return
	}

	status, kind := statusForKind(apiErr.Kind)
	writeJSONError(w, status, kind, apiErr.Error(), apiErr.Field)
}

func statusForKind(kind apierr.Kind) (int, string) {
	switch kind {
	case apierr.KindNotFound:
		return http.StatusNotFound, "not_found"
	case apierr.KindInvalid:
		return http.StatusBadRequest, "invalid"
	case apierr.KindSourceError:
		return http.StatusServiceUnavailable, "source"
	case apierr.KindNoMatch:
		return http.StatusConflict, "no_match"
	case apierr.KindSuperseded:
		return http.StatusConflict, "superseded"
	case apierr.KindTransport:
		return http.StatusBadGateway, "transport"
	case apierr.KindConfig:
		return http.StatusInternalServerError, "config"
	case apierr.KindPipeline:
		return http.StatusInternalServerError, "pipeline"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSONError(w http.ResponseWriter, status int, kind, message, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{"error": kind, "message": message}
	if field != "" {
		body["field"] = field
	}
	_ = json.NewEncoder(w).Encode(body)
}

// persistCursors writes a frame's current sequential-cursor positions to
// the registry's store. Used by /next, the one selection-driving route
// that bypasses the scheduler (which persists its own via
// scheduler.SetCursorStore).
func (s *Server) persistCursors(ctx context.Context, frame *orchestrator.Frame) {
	store := s.reg.Store()
	if store == nil {
		return
	}
	for sourceID, cursor := range frame.SequentialCursors() {
		if err := store.SetCursor(ctx, frame.Descriptor.ID, sourceID, cursor); err != nil {
			s.log.Warn("persist sequential cursor", "frame", frame.Descriptor.ID, "source", sourceID, "error", err)
		}
	}
}

func frameIDFromPath(r *http.Request) string { return r.PathValue("id") }

func sourceIDFromPath(r *http.Request) string { return r.PathValue("id") }
