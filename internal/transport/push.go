// Package transport encodes an IndexedFrame into the device wire format
// and pushes it to a frame's configured endpoint, per spec.md §4.8.
// Grounded on the teacher's internal/pixoo.Client: an *http.Client with a
// generous per-call timeout and a small typed command surface, here
// narrowed to a single "post this image" operation plus the one-retry
// backoff spec.md adds on top.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/image/bmp"

	"github.com/jwulff/photoframe-server/internal/apierr"
	"github.com/jwulff/photoframe-server/internal/domain"
)

// DefaultTimeout is the push HTTP client's per-attempt timeout. E-ink
// panels do not respond until their full refresh completes, hence the
// generous floor (spec.md §4.8: "Timeout ≥ 30 s").
const DefaultTimeout = 30 * time.Second

// RetryBackoff is the pause between the initial attempt and its one
// retry on a transport-level error.
const RetryBackoff = 2 * time.Second

// Encode packs frame into a BMP byte-for-byte identical to the one the
// GET /frames/{id}/current-image?format=bmp endpoint serves.
func Encode(frame *domain.IndexedFrame) ([]byte, error) {
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, frame.AsPaletted()); err != nil {
		return nil, fmt.Errorf("encode bmp: %w", err)
	}
	return buf.Bytes(), nil
}

// Pusher POSTs an encoded frame to one device endpoint.
type Pusher struct {
	httpClient *http.Client
}

// NewPusher builds a Pusher with the default per-attempt timeout.
func NewPusher() *Pusher {
	return &Pusher{httpClient: &http.Client{Timeout: DefaultTimeout}}
}

// Push encodes frame and POSTs it to cfg's endpoint. One retry follows a
// transport-level error (connection refused, timeout, DNS) after
// RetryBackoff; an HTTP 4xx/5xx response is fatal for the tick and is
// not retried (spec.md §4.8).
func (p *Pusher) Push(ctx context.Context, cfg domain.PushTransportConfig, frame *domain.IndexedFrame) error {
	data, err := Encode(frame)
	if err != nil {
		return apierr.Pipeline(apierr.StageDither, err)
	}

	url := endpointURL(cfg)

	err = p.attempt(ctx, url, data)
	if err == nil {
		return nil
	}
	if _, isHTTPStatus := err.(*httpStatusError); isHTTPStatus {
		return apierr.Transport(apierr.TransportHTTPStatus, err)
	}

	select {
	case <-time.After(RetryBackoff):
	case <-ctx.Done():
		return apierr.Transport(apierr.TransportTimeout, ctx.Err())
	}

	err = p.attempt(ctx, url, data)
	if err == nil {
		return nil
	}
	if _, isHTTPStatus := err.(*httpStatusError); isHTTPStatus {
		return apierr.Transport(apierr.TransportHTTPStatus, err)
	}
	return apierr.Transport(apierr.TransportTimeout, err)
}

func (p *Pusher) attempt(ctx context.Context, url string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "image/bmp")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &httpStatusError{status: resp.StatusCode, body: string(body)}
	}
	return nil
}

type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("device responded %d: %s", e.status, e.body)
}

func endpointURL(cfg domain.PushTransportConfig) string {
	port := cfg.Port
	if port == 0 {
		port = 80
	}
	path := cfg.Path
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("http://%s:%d%s", cfg.Host, port, path)
}
