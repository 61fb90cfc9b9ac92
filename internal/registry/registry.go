// Package registry is the process-lifetime collaborator that owns every
// configured frame and source, and the httpapi/scheduler glue between
// them: the copy-on-write SourceConfig swap, the config-file persist
// that follows every mutating write (spec.md §6: "serialized back ...
// on every PATCH/credentials/filters write"), and blacklist/cursor
// writes through internal/storage. Grounded on the teacher's
// cmd/signage main.go, which holds the same kind of "everything this
// process needs" struct before handing pieces to its HTTP mux.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/jwulff/photoframe-server/internal/apierr"
	"github.com/jwulff/photoframe-server/internal/config"
	"github.com/jwulff/photoframe-server/internal/domain"
	"github.com/jwulff/photoframe-server/internal/orchestrator"
	"github.com/jwulff/photoframe-server/internal/source"
	"github.com/jwulff/photoframe-server/internal/storage"
)

// Registry holds every frame and source configured at startup, plus the
// collaborators needed to mutate and persist them.
type Registry struct {
	mu sync.RWMutex

	configPath  string
	descriptors map[string]*domain.FrameDescriptor
	frames      map[string]*orchestrator.Frame
	sources     map[string]*domain.SourceConfig
	adapters    map[string]source.Source
	store       storage.Store
}

// New builds an empty Registry. Populate it via AddFrame/AddSource (used
// by cmd/photoframe at startup) before serving traffic.
func New(configPath string, store storage.Store) *Registry {
	return &Registry{
		configPath:  configPath,
		descriptors: make(map[string]*domain.FrameDescriptor),
		frames:      make(map[string]*orchestrator.Frame),
		sources:     make(map[string]*domain.SourceConfig),
		adapters:    make(map[string]source.Source),
		store:       store,
	}
}

// AddFrame registers a frame's descriptor, live orchestrator.Frame and
// adapter binding. Called once per configured frame at startup.
func (r *Registry) AddFrame(descriptor *domain.FrameDescriptor, frame *orchestrator.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descriptors[descriptor.ID] = descriptor
	r.frames[descriptor.ID] = frame
}

// AddSource registers a source's config and live adapter. Called once
// per configured source at startup.
func (r *Registry) AddSource(cfg *domain.SourceConfig, adapter source.Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[cfg.ID] = cfg
	r.adapters[cfg.ID] = adapter
}

// Frame returns the frame registered under id.
func (r *Registry) Frame(id string) (*orchestrator.Frame, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.frames[id]
	if !ok {
		return nil, apierr.NotFound("frame", id)
	}
	return f, nil
}

// Source returns the adapter and config registered under id.
func (r *Registry) Source(id string) (source.Source, *domain.SourceConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[id]
	if !ok {
		return nil, nil, apierr.NotFound("source", id)
	}
	return adapter, r.sources[id], nil
}

// SourceConfigs returns a snapshot of every source's config, keyed by ID.
// Passed to selection.Selector.Select and used as the scheduler's
// ConfigSource, so it is resolved fresh on every call rather than cached.
func (r *Registry) SourceConfigs() map[string]*domain.SourceConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*domain.SourceConfig, len(r.sources))
	for id, cfg := range r.sources {
		out[id] = cfg
	}
	return out
}

// FrameIDs returns every registered frame ID.
func (r *Registry) FrameIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.frames))
	for id := range r.frames {
		ids = append(ids, id)
	}
	return ids
}

// Descriptor returns the immutable descriptor for frame id.
func (r *Registry) Descriptor(id string) (*domain.FrameDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[id]
	if !ok {
		return nil, apierr.NotFound("frame", id)
	}
	return d, nil
}

// UpdateSourceConfig atomically swaps the SourceConfig registered under
// id by applying mutate to the current value, then persists the whole
// config file. mutate must return a new *domain.SourceConfig (the
// copy-on-write contract SourceConfig.WithBlacklisted already follows).
func (r *Registry) UpdateSourceConfig(id string, mutate func(*domain.SourceConfig) *domain.SourceConfig) error {
	r.mu.Lock()
	cur, ok := r.sources[id]
	if !ok {
		r.mu.Unlock()
		return apierr.NotFound("source", id)
	}
	next := mutate(cur)
	r.sources[id] = next
	r.mu.Unlock()
	return r.Persist()
}

// BlacklistAsset adds assetID to sourceID's blacklist, persisting both
// to the storage.Store (survives restarts, spec.md §3) and to the
// in-memory SourceConfig consulted by the Selection Loop, then rewrites
// the config file.
func (r *Registry) BlacklistAsset(ctx context.Context, sourceID, assetID string) error {
	if r.store != nil {
		if err := r.store.AddToBlacklist(ctx, sourceID, assetID); err != nil {
			return apierr.Config(fmt.Errorf("persist blacklist entry: %w", err))
		}
	}
	return r.UpdateSourceConfig(sourceID, func(cfg *domain.SourceConfig) *domain.SourceConfig {
		return cfg.WithBlacklisted(assetID)
	})
}

// UpdateFrameSettings replaces frame id's Settings with the result of
// applying patch, then persists the config file. The orchestrator.Frame
// itself is not re-rendered; callers that also need a fresh render call
// frame.Preview separately (PATCH is a settings-only write per spec.md
// §6's "204" response, with no body to return).
func (r *Registry) UpdateFrameSettings(id string, patch domain.FrameSettingsPatch) error {
	frame, err := r.Frame(id)
	if err != nil {
		return err
	}
	frame.Settings = frame.Settings.Merge(patch)
	return r.Persist()
}

// Persist rewrites the config file from the registry's current
// descriptors/settings/sources, under the registry's read lock (settings
// mutation itself happens under the frame's own lock, not the
// registry's, so a concurrent PATCH and render never race on Settings).
// Exposed so handlers that mutate Settings outside UpdateFrameSettings
// (upload's pause, for instance) can still trigger a write-back.
func (r *Registry) Persist() error {
	if r.configPath == "" {
		return nil
	}
	r.mu.RLock()
	descriptors := make(map[string]*domain.FrameDescriptor, len(r.descriptors))
	settings := make(map[string]domain.FrameSettings, len(r.frames))
	for id, d := range r.descriptors {
		descriptors[id] = d
		if f, ok := r.frames[id]; ok {
			settings[id] = f.Settings
		}
	}
	sources := make(map[string]*domain.SourceConfig, len(r.sources))
	for id, s := range r.sources {
		sources[id] = s
	}
	r.mu.RUnlock()

	return config.Save(r.configPath, descriptors, settings, sources)
}

// Store exposes the underlying storage.Store, e.g. for seeding a fresh
// Selector's sequential cursors at startup.
func (r *Registry) Store() storage.Store { return r.store }
