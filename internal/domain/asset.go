package domain

import (
	"context"
	"time"
)

// Asset is an opaque source item: a stable ID within its source, an
// orientation hint resolved from source metadata where available, and a
// lazy byte-stream fetcher.
type Asset struct {
	SourceID    string
	AssetID     string
	Orientation Orientation
	// Fetch retrieves the asset's raw image bytes. Called at most once
	// per selection attempt by the Selection Loop.
	Fetch func(ctx context.Context) ([]byte, error)
}

// AssetMetadata is the blob attached to FrameState.current_asset and
// returned verbatim by GET /frames/{id}/metadata, per original_source's
// ui.rs shape.
type AssetMetadata struct {
	SourceID    string
	AssetID     string
	Width       int
	Height      int
	Orientation Orientation
	SelectedAt  time.Time
}
