// Package scheduler drives per-frame cron ticks (spec.md §4.7), grounded
// on the teacher's cmd/signage main loop shape — a single select over a
// ticker and a shutdown signal — generalized from one fixed per-minute
// tick to one independently-scheduled robfig/cron/v3 entry per frame,
// since each frame declares its own cron expression.
package scheduler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/jwulff/photoframe-server/internal/apierr"
	"github.com/jwulff/photoframe-server/internal/domain"
	"github.com/jwulff/photoframe-server/internal/orchestrator"
	"github.com/jwulff/photoframe-server/internal/storage"
	"github.com/jwulff/photoframe-server/internal/transport"
)

var errBusy = errors.New("scheduler: frame render already in flight")

// ConfigSource supplies the live SourceConfig registry a tick needs for
// blacklist checks, resolved fresh on every tick so a concurrent
// PATCH /sources/{id}/blacklist takes effect on the next fire without
// restarting the scheduler.
type ConfigSource func() map[string]*domain.SourceConfig

// Scheduler owns one robfig/cron/v3 instance and fires one entry per
// registered frame.
type Scheduler struct {
	cron    *cron.Cron
	pusher  *transport.Pusher
	configs ConfigSource
	log     *slog.Logger
	cursors storage.Store
}

// New builds a Scheduler. configs is called fresh on every tick.
func New(pusher *transport.Pusher, configs ConfigSource, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(),
		pusher:  pusher,
		configs: configs,
		log:     log,
	}
}

// SetCursorStore wires a storage.Store so every successful tick persists
// the frame's sequential-cursor positions, resuming cycling across a
// restart instead of rewinding. Optional: nil (the New default) simply
// skips the persist step.
func (s *Scheduler) SetCursorStore(store storage.Store) { s.cursors = store }

func (s *Scheduler) persistCursors(ctx context.Context, frame *orchestrator.Frame) {
	if s.cursors == nil {
		return
	}
	for sourceID, cursor := range frame.SequentialCursors() {
		if err := s.cursors.SetCursor(ctx, frame.Descriptor.ID, sourceID, cursor); err != nil {
			s.log.Warn("persist sequential cursor", "frame", frame.Descriptor.ID, "source", sourceID, "error", err)
		}
	}
}

// Register adds frame's cron expression to the schedule. Returns an
// error if the expression fails to parse.
func (s *Scheduler) Register(frame *orchestrator.Frame) error {
	_, err := s.cron.AddFunc(frame.Descriptor.Cron, func() { s.tick(frame) })
	if err != nil {
		return apierr.Config(err)
	}
	return nil
}

// Start begins firing registered entries. Non-blocking; cron/v3 runs its
// own goroutine internally.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop blocks until any in-flight tick callback returns.
func (s *Scheduler) Stop() { <-s.cron.Stop().Done() }

// tick implements spec.md §4.7's five steps for one frame.
func (s *Scheduler) tick(frame *orchestrator.Frame) {
	log := s.log.With("frame", frame.Descriptor.ID)

	if frame.Settings.Paused {
		frame.SetLastTickStatus("skipped-paused")
		return
	}

	if !frame.TryLock() {
		log.Warn("tick skipped: render already in flight")
		frame.SetLastTickStatus("skipped-lock-held")
		return
	}
	defer frame.Unlock()

	ctx := context.Background()
	if err := frame.RenderForDevice(ctx, s.configs()); err != nil {
		log.Error("render failed", "error", err)
		frame.SetLastTickStatusLocked(apierr.TickStatus(err))
		return
	}
	s.persistCursors(ctx, frame)

	if frame.Settings.Dummy {
		frame.SetLastTickStatusLocked("ok")
		return
	}

	snap := frame.Snapshot()
	if err := s.pusher.Push(ctx, frame.Descriptor.Transport, snap.Encoded); err != nil {
		log.Error("push failed", "error", err)
		frame.SetLastTickStatusLocked("error")
		return
	}
	frame.SetLastTickStatusLocked("ok")
}

// Trigger runs one synchronous, manually-requested tick for frame,
// identical to a cron fire (spec.md §4.7: "Manual triggers are
// identical to a cron tick but synchronous to the caller's request"),
// returning whatever error the render or push produced instead of only
// logging it.
func (s *Scheduler) Trigger(ctx context.Context, frame *orchestrator.Frame) error {
	if frame.Settings.Paused {
		frame.SetLastTickStatus("skipped-paused")
		return nil
	}
	if !frame.TryLock() {
		frame.SetLastTickStatus("skipped-lock-held")
		return apierr.Transport(apierr.TransportTimeout, errBusy)
	}
	defer frame.Unlock()

	if err := frame.RenderForDevice(ctx, s.configs()); err != nil {
		frame.SetLastTickStatusLocked(apierr.TickStatus(err))
		return err
	}
	s.persistCursors(ctx, frame)
	if frame.Settings.Dummy {
		frame.SetLastTickStatusLocked("ok")
		return nil
	}

	snap := frame.Snapshot()
	if err := s.pusher.Push(ctx, frame.Descriptor.Transport, snap.Encoded); err != nil {
		frame.SetLastTickStatusLocked("error")
		return err
	}
	frame.SetLastTickStatusLocked("ok")
	return nil
}
