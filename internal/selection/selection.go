// Package selection implements the Selection Loop (spec.md §4.5): given
// a frame's bound sources, orientation policy and blacklist, produce the
// next asset to render. Grounded on the round-robin-over-adapters shape
// of original_source's sources.rs, adapted to the Source Adapter
// interface (internal/source) rather than that file's direct HTTP/glob
// handling.
package selection

import (
	"context"
	"math/rand"

	"github.com/jwulff/photoframe-server/internal/apierr"
	"github.com/jwulff/photoframe-server/internal/domain"
	"github.com/jwulff/photoframe-server/internal/source"
)

// DefaultMaxAttempts is the loop's runaway guard (spec.md §4.5).
const DefaultMaxAttempts = 32

// Result is a winning candidate: its source and asset identity, raw
// bytes, and the orientation the candidate was resolved to.
type Result struct {
	SourceID    string
	AssetID     string
	Bytes       []byte
	Orientation domain.Orientation
}

// Selector walks a frame's bound sources round-robin, applying blacklist
// and orientation filtering, per spec.md §4.5. One Selector is owned by
// the orchestrator per frame and outlives any single Select call so the
// "start after last winner" rotation and the random-order draw pools
// persist across ticks.
type Selector struct {
	sourceIDs   []string
	orientation domain.Orientation
	sources     map[string]source.Source
	orders      map[string]domain.OrderPolicy
	maxAttempts int

	nextSourceIdx int
	randomPools   map[string][]domain.Asset
}

// New builds a Selector for one frame descriptor, resolving each bound
// source ID against the supplied registry. Unknown source IDs are
// skipped silently — a dangling binding is a config-time concern, not a
// per-tick one.
func New(descriptor *domain.FrameDescriptor, configs map[string]*domain.SourceConfig, registry map[string]source.Source) *Selector {
	ids := make([]string, 0, len(descriptor.SourceIDs))
	orders := make(map[string]domain.OrderPolicy, len(descriptor.SourceIDs))
	for _, id := range descriptor.SourceIDs {
		if _, ok := registry[id]; !ok {
			continue
		}
		ids = append(ids, id)
		order := domain.OrderSequential
		if cfg, ok := configs[id]; ok && cfg.Order != "" {
			order = cfg.Order
		}
		orders[id] = order
	}
	return &Selector{
		sourceIDs:   ids,
		orientation: descriptor.Orientation,
		sources:     registry,
		orders:      orders,
		maxAttempts: DefaultMaxAttempts,
		randomPools: make(map[string][]domain.Asset),
	}
}

// Select returns the next matching asset, advancing sequentialCursors
// (keyed by source ID, owned by the caller's domain.FrameState) and this
// Selector's internal random-draw pools and round-robin position as it
// goes. configs supplies the live blacklist per source ID.
func (s *Selector) Select(ctx context.Context, sequentialCursors map[string]int, configs map[string]*domain.SourceConfig) (*Result, error) {
	if len(s.sourceIDs) == 0 {
		return nil, apierr.Source(apierr.SourceEmpty, errNoBoundSources)
	}

	attempts := 0
	sourceOffset := 0
	for attempts < s.maxAttempts {
		idx := (s.nextSourceIdx + sourceOffset) % len(s.sourceIDs)
		sourceOffset++
		id := s.sourceIDs[idx]

		cfg := configs[id]
		cand, err := s.nextCandidate(ctx, id, sequentialCursors)
		if err != nil {
			return nil, err
		}
		attempts++
		if cand == nil {
			continue
		}

		if cfg != nil && cfg.IsBlacklisted(cand.AssetID) {
			continue
		}
		if cand.Orientation != domain.OrientationUnknown && !s.orientationMatches(cand.Orientation) {
			continue
		}

		bytes, resolved, err := s.resolve(ctx, cand)
		if err != nil {
			return nil, err
		}
		if resolved != domain.OrientationUnknown && !s.orientationMatches(resolved) {
			continue
		}

		s.nextSourceIdx = (idx + 1) % len(s.sourceIDs)
		return &Result{SourceID: id, AssetID: cand.AssetID, Bytes: bytes, Orientation: resolved}, nil
	}

	return nil, apierr.NoMatch(attempts)
}

func (s *Selector) orientationMatches(o domain.Orientation) bool {
	if s.orientation == "" || s.orientation == domain.OrientationUnknown {
		return true
	}
	return o == s.orientation
}

// nextCandidate draws one asset from source id without fetching its
// bytes, per its configured order policy. Returns nil, nil if the
// source currently has nothing to offer (listing failed or is empty).
func (s *Selector) nextCandidate(ctx context.Context, id string, sequentialCursors map[string]int) (*domain.Asset, error) {
	src := s.sources[id]
	assets, err := src.List(ctx)
	if err != nil || len(assets) == 0 {
		return nil, nil
	}

	switch s.orders[id] {
	case domain.OrderRandom:
		return s.drawRandom(id, assets), nil
	default:
		cursor := sequentialCursors[id] % len(assets)
		sequentialCursors[id] = (cursor + 1) % len(assets)
		a := assets[cursor]
		return &a, nil
	}
}

// drawRandom draws without repetition from a per-source shuffled pool,
// reshuffling once exhausted (spec.md §4.5).
func (s *Selector) drawRandom(id string, assets []domain.Asset) *domain.Asset {
	pool := s.randomPools[id]
	if len(pool) == 0 {
		pool = make([]domain.Asset, len(assets))
		copy(pool, assets)
		rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	}
	next := pool[len(pool)-1]
	s.randomPools[id] = pool[:len(pool)-1]
	return &next
}

// resolve fetches the candidate's bytes and, if its hint orientation was
// unknown, decodes just enough of the header to resolve one.
func (s *Selector) resolve(ctx context.Context, cand *domain.Asset) ([]byte, domain.Orientation, error) {
	data, err := cand.Fetch(ctx)
	if err != nil {
		return nil, domain.OrientationUnknown, apierr.Source(apierr.SourceUnreachable, err)
	}
	if cand.Orientation != domain.OrientationUnknown {
		return data, cand.Orientation, nil
	}
	return data, orientationFromBytes(data), nil
}
