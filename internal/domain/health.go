package domain

import "time"

// SourceHealth tracks the recent success/error history of one
// SourceConfig, so the Selection Loop and HTTP layer can report why a
// source is degraded without threading error state through every call
// site. It plays the same bookkeeping role the teacher's WidgetState
// played for a scheduled widget's last-run/error accounting.
type SourceHealth struct {
	SourceID   string
	LastListOK time.Time
	ErrorCount int
	LastError  string
}

// NewSourceHealth creates a zero-value health record for sourceID.
func NewSourceHealth(sourceID string) *SourceHealth {
	return &SourceHealth{SourceID: sourceID}
}

// RecordSuccess records a successful list() or fetch() call.
func (h *SourceHealth) RecordSuccess() {
	h.LastListOK = time.Now()
	h.ErrorCount = 0
	h.LastError = ""
}

// RecordError records a listing or fetch failure. Per spec.md §4.4,
// listing failures are logged and treated as empty rather than
// propagated, so this is the only trace of the failure.
func (h *SourceHealth) RecordError(errMsg string) {
	h.ErrorCount++
	h.LastError = errMsg
}

// ResetErrors clears the error streak, e.g. after a manual
// POST /sources/{id}/refresh.
func (h *SourceHealth) ResetErrors() {
	h.ErrorCount = 0
	h.LastError = ""
}
