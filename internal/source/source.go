// Package source implements the Source Adapter component (spec.md
// §4.4): a uniform capability set over filesystem-glob and
// remote-photo-API origins, grounded on the request/response and
// auth-session shape of the teacher's internal/dexcom client.
package source

import (
	"context"

	"github.com/jwulff/photoframe-server/internal/domain"
)

// Source is the capability set every adapter kind implements. Blacklist
// membership and its persistence live one layer up, in the
// SourceConfig/storage pair (spec.md: "blacklists are per-source,
// persist across restarts ... out of scope" for the adapter itself) —
// adapters only need to list and fetch.
type Source interface {
	// ID returns the SourceConfig identity this adapter was built from.
	ID() string
	// List returns every known asset, in adapter-defined stable order.
	// Listing failures are the caller's responsibility to treat as
	// empty (spec.md §4.4: "listing failures are logged and treated as
	// empty").
	List(ctx context.Context) ([]domain.Asset, error)
	// Refresh re-derives whatever List's listing is cheap to keep stale
	// between calls (a filesystem source's glob expansion; a remote-API
	// source has nothing to refresh, since List already hits the
	// network every time). Backs POST /sources/{id}/refresh.
	Refresh(ctx context.Context) error
	// Health reports the adapter's recent listing success/error history,
	// so the operator can tell a degraded remote source apart from one
	// that is simply empty.
	Health() *domain.SourceHealth
}

// New builds the adapter for cfg's kind. cfg is captured by reference so
// a config-reload that swaps in a new *SourceConfig (copy-on-write) is
// picked up by re-calling New rather than mutating the adapter in place.
func New(cfg *domain.SourceConfig) (Source, error) {
	switch cfg.Kind {
	case domain.SourceKindFilesystem:
		return NewFilesystemSource(cfg), nil
	case domain.SourceKindRemoteAPI:
		return NewRemoteAPISource(cfg), nil
	default:
		return nil, &UnknownKindError{Kind: string(cfg.Kind)}
	}
}

// UnknownKindError is returned by New for an unrecognized SourceConfig.Kind.
type UnknownKindError struct{ Kind string }

func (e *UnknownKindError) Error() string { return "source: unknown kind " + e.Kind }
