// Package apierr implements the error taxonomy from spec.md §7: a small
// sealed set of error kinds the HTTP layer maps 1:1 onto status codes,
// and the scheduler treats as "skip this tick" rather than propagating.
package apierr

import (
	"errors"
	"fmt"
)

// Kind is one of the taxonomy's error categories.
type Kind string

const (
	KindConfig       Kind = "config"        // startup only, fatal to the process
	KindSourceError  Kind = "source"        // unreachable, auth, empty, exhausted
	KindNoMatch      Kind = "no_match"      // selection loop exhausted max_attempts
	KindPipeline     Kind = "pipeline"       // decode, transform, dither
	KindTransport    Kind = "transport"      // timeout, http_status
	KindNotFound     Kind = "not_found"      // unknown frame or source ID
	KindInvalid      Kind = "invalid"        // bad PATCH payload, malformed filter/hex
	KindSuperseded   Kind = "superseded"     // preview raced a render_for_device/upload commit
)

// SourceErrorReason narrows KindSourceError.
type SourceErrorReason string

const (
	SourceUnreachable SourceErrorReason = "unreachable"
	SourceAuth        SourceErrorReason = "auth"
	SourceEmpty       SourceErrorReason = "empty"
	SourceExhausted   SourceErrorReason = "exhausted"
)

// PipelineStage narrows KindPipeline.
type PipelineStage string

const (
	StageDecode    PipelineStage = "decode"
	StageTransform PipelineStage = "transform"
	StageDither    PipelineStage = "dither"
)

// TransportReason narrows KindTransport.
type TransportReason string

const (
	TransportTimeout    TransportReason = "timeout"
	TransportHTTPStatus TransportReason = "http_status"
)

// Error is the taxonomy's concrete type. Field is set only for
// KindInvalid, naming the offending PATCH/filter/hex field.
type Error struct {
	Kind   Kind
	Reason string
	Field  string
	Err    error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %q): %v", e.Kind, e.Reason, e.Field, e.Err)
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound builds a KindNotFound error naming the missing resource.
func NotFound(resource, id string) *Error {
	return &Error{Kind: KindNotFound, Err: fmt.Errorf("%s %q not found", resource, id)}
}

// Invalid builds a KindInvalid error naming the offending field.
func Invalid(field string, err error) *Error {
	return &Error{Kind: KindInvalid, Field: field, Err: err}
}

// Source builds a KindSourceError error.
func Source(reason SourceErrorReason, err error) *Error {
	return &Error{Kind: KindSourceError, Reason: string(reason), Err: err}
}

// NoMatch builds a KindNoMatch error.
func NoMatch(attempts int) *Error {
	return &Error{Kind: KindNoMatch, Err: fmt.Errorf("no matching asset after %d attempts", attempts)}
}

// Pipeline builds a KindPipeline error.
func Pipeline(stage PipelineStage, err error) *Error {
	return &Error{Kind: KindPipeline, Reason: string(stage), Err: err}
}

// Transport builds a KindTransport error.
func Transport(reason TransportReason, err error) *Error {
	return &Error{Kind: KindTransport, Reason: string(reason), Err: err}
}

// Config builds a KindConfig error, fatal to process startup.
func Config(err error) *Error {
	return &Error{Kind: KindConfig, Err: err}
}

// Superseded builds a KindSuperseded error: a preview's render could not
// settle against a stable generation within its retry budget because
// render_for_device/upload kept committing ahead of it.
func Superseded() *Error {
	return &Error{Kind: KindSuperseded, Err: errors.New("preview superseded by a concurrent render")}
}

// TickStatus maps err onto the scheduler's lastTickStatus vocabulary
// ("ok" | "skipped-paused" | "skipped-lock-held" | "no-match" | "error"):
// a KindNoMatch error gets its own distinct status since an exhausted
// selection loop is an expected outcome (e.g. every asset blacklisted),
// not a pipeline failure.
func TickStatus(err error) string {
	if e, ok := As(err); ok && e.Kind == KindNoMatch {
		return "no-match"
	}
	return "error"
}

// As reports whether err is (or wraps) an *Error and returns it.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
