package domain

// FrameState is the per-frame, in-memory triple described by the data
// model: the source bytes, the post-transform pre-dither intermediate,
// and the post-dither encoded output, plus the bookkeeping needed to
// decide what a PATCH or preview invalidates. It is never persisted —
// process exit or a superseding selection destroys it.
//
// Callers must hold the owning orchestrator's per-frame lock while
// mutating a FrameState; readers (HTTP handlers) take a cheap snapshot
// via Snapshot instead of reaching into these fields directly.
type FrameState struct {
	CurrentAsset *AssetMetadata

	SourceBytes []byte

	Intermediate *Frame

	Encoded *IndexedFrame

	PaletteResolved   []ResolvedColor
	PaletteWhiteIndex int

	// SequentialCursor tracks, per bound source ID, the next index into
	// that source's list() output for OrderSequential sources.
	SequentialCursor map[string]int

	// Generation counts how many times Encoded has been republished by
	// a committing render (render_for_device/upload). orchestrator.Frame
	// captures it when a preview starts and compares it again when the
	// preview's pipeline finishes; a mismatch means a commit raced the
	// preview, so the result is discarded and the preview retried
	// (monotonic per-frame sequence numbers, per spec.md §5).
	Generation uint64

	// LastTickStatus is original_source's recovered scheduler-visibility
	// field: the outcome of the most recent scheduler tick, one of
	// "ok", "skipped-paused", "skipped-lock-held", "no-match", "error".
	LastTickStatus string
}

// NewFrameState returns an empty state ready for its first selection.
func NewFrameState() *FrameState {
	return &FrameState{SequentialCursor: make(map[string]int)}
}

// StateSnapshot is the read-only view handed to HTTP handlers: it copies
// metadata but borrows the encoded bytes (safe because FrameState.Encoded
// is only ever replaced, never mutated in place, by the orchestrator).
type StateSnapshot struct {
	CurrentAsset      *AssetMetadata
	Intermediate      *Frame
	Encoded           *IndexedFrame
	PaletteResolved   []ResolvedColor
	PaletteWhiteIndex int
	Generation        uint64
	LastTickStatus    string
}

// Snapshot copies the metadata fields of s into a StateSnapshot. The
// caller must already hold whatever lock protects s.
func (s *FrameState) Snapshot() StateSnapshot {
	return StateSnapshot{
		CurrentAsset:      s.CurrentAsset,
		Intermediate:      s.Intermediate,
		Encoded:           s.Encoded,
		PaletteResolved:   s.PaletteResolved,
		PaletteWhiteIndex: s.PaletteWhiteIndex,
		Generation:        s.Generation,
		LastTickStatus:    s.LastTickStatus,
	}
}
