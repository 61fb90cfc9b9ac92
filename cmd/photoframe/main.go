// Command photoframe is the entry point for the photo-frame orchestration
// server: it loads the TOML config, wires a frame/source registry, starts
// the per-frame cron scheduler, and serves the HTTP control plane until
// interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwulff/photoframe-server/internal/config"
	"github.com/jwulff/photoframe-server/internal/domain"
	"github.com/jwulff/photoframe-server/internal/httpapi"
	"github.com/jwulff/photoframe-server/internal/orchestrator"
	"github.com/jwulff/photoframe-server/internal/palette"
	"github.com/jwulff/photoframe-server/internal/registry"
	"github.com/jwulff/photoframe-server/internal/scheduler"
	"github.com/jwulff/photoframe-server/internal/selection"
	"github.com/jwulff/photoframe-server/internal/source"
	"github.com/jwulff/photoframe-server/internal/storage"
	"github.com/jwulff/photoframe-server/internal/storage/sqlite"
	"github.com/jwulff/photoframe-server/internal/transport"
)

func main() {
	configPath := flag.String("config", "photoframe.toml", "path to the TOML config file")
	dbPath := flag.String("db", "photoframe.db", "path to the blacklist/cursor database (':memory:' for none)")
	addr := flag.String("addr", ":8080", "HTTP control plane listen address")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	if err := run(*configPath, *dbPath, *addr, log); err != nil {
		log.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func run(configPath, dbPath, addr string, log *slog.Logger) error {
	descriptors, settings, sourceConfigs, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := openStore(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	reg := registry.New(configPath, store)
	adapters := make(map[string]source.Source, len(sourceConfigs))

	for id, cfg := range sourceConfigs {
		seeded, err := seedBlacklist(ctx, store, cfg)
		if err != nil {
			log.Warn("load persisted blacklist", "source", id, "error", err)
			seeded = cfg
		}

		adapter, err := source.New(seeded)
		if err != nil {
			return fmt.Errorf("build source adapter %s: %w", id, err)
		}
		reg.AddSource(seeded, adapter)
		adapters[id] = adapter

		log.Info("source registered", "source", id, "kind", seeded.Kind)
	}

	pusher := transport.NewPusher()
	sched := scheduler.New(pusher, reg.SourceConfigs, log)
	sched.SetCursorStore(store)

	for id, descriptor := range descriptors {
		resolver := palette.Resolve(descriptor.Palette)
		selector := selection.New(descriptor, sourceConfigs, adapters)
		frame := orchestrator.NewFrame(descriptor, settings[id], resolver, selector)

		seedCursors(ctx, store, descriptor, frame, log)

		reg.AddFrame(descriptor, frame)
		if err := sched.Register(frame); err != nil {
			return fmt.Errorf("register frame %s: %w", id, err)
		}

		log.Info("frame registered", "frame", id, "cron", descriptor.Cron, "panel", fmt.Sprintf("%dx%d", descriptor.PanelWidth, descriptor.PanelHeight))
	}

	sched.Start()
	defer sched.Stop()

	server := httpapi.New(reg, sched, pusher, log)
	httpServer := &http.Server{Addr: addr, Handler: server}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-sigChan:
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// openStore opens dbPath as a file-based store, or an in-memory one when
// the operator explicitly opts out of persistence.
func openStore(dbPath string) (storage.Store, error) {
	if dbPath == ":memory:" {
		return sqlite.NewMemoryStore()
	}
	return sqlite.NewFileStore(dbPath)
}

// seedBlacklist merges any blacklist entries persisted from a previous
// run into cfg before the source adapter and Selector are built from it,
// so a restart never un-blacklists an asset (spec.md §3). The TOML file's
// own [sources.<id>].blacklist entries (if any) are kept too — the store
// is additive, never a replacement.
func seedBlacklist(ctx context.Context, store storage.Store, cfg *domain.SourceConfig) (*domain.SourceConfig, error) {
	persisted, err := store.GetBlacklist(ctx, cfg.ID)
	if err != nil || len(persisted) == 0 {
		return cfg, err
	}

	next := *cfg
	next.Blacklist = make(map[string]struct{}, len(cfg.Blacklist)+len(persisted))
	for id := range cfg.Blacklist {
		next.Blacklist[id] = struct{}{}
	}
	for _, id := range persisted {
		next.Blacklist[id] = struct{}{}
	}
	return &next, nil
}

// seedCursors primes frame's sequential-cursor positions from storage for
// every bound source, so round-robin cycling resumes where it left off
// rather than rewinding to the start on every restart.
func seedCursors(ctx context.Context, store storage.Store, descriptor *domain.FrameDescriptor, frame *orchestrator.Frame, log *slog.Logger) {
	for _, sourceID := range descriptor.SourceIDs {
		cursor, err := store.GetCursor(ctx, descriptor.ID, sourceID)
		if err != nil {
			log.Warn("load persisted cursor", "frame", descriptor.ID, "source", sourceID, "error", err)
			continue
		}
		frame.SeedSequentialCursor(sourceID, cursor)
	}
}
