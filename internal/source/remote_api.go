package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/jwulff/photoframe-server/internal/domain"
)

// RemoteAPISource lists and fetches assets from a remote photo API,
// filtered by type=image plus an opaque caller-supplied filter blob.
// Grounded on the teacher's internal/dexcom client's HTTP request/
// response plumbing, generalized from a single bearer-session to the
// remote-photo-api kind's bearer-or-OAuth token model (spec.md §4.4).
type RemoteAPISource struct {
	id         string
	baseURL    string
	apiKey     string
	token      string
	filterBlob string
	albumRef   string
	httpClient *http.Client

	mu     sync.Mutex
	health *domain.SourceHealth
}

// NewRemoteAPISource builds a RemoteAPISource from cfg.
func NewRemoteAPISource(cfg *domain.SourceConfig) *RemoteAPISource {
	return &RemoteAPISource{
		id:         cfg.ID,
		baseURL:    cfg.RemoteAPI.BaseURL,
		apiKey:     cfg.RemoteAPI.APIKey,
		token:      cfg.RemoteAPI.OAuthAccessToken,
		filterBlob: cfg.RemoteAPI.FilterBlob,
		albumRef:   cfg.RemoteAPI.AlbumRef,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		health:     domain.NewSourceHealth(cfg.ID),
	}
}

func (s *RemoteAPISource) ID() string { return s.id }

// Refresh is a no-op: List already queries the remote API live on every
// call, so there is nothing cached to invalidate.
func (s *RemoteAPISource) Refresh(ctx context.Context) error { return nil }

// Health returns a copy of the adapter's current listing health.
func (s *RemoteAPISource) Health() *domain.SourceHealth {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := *s.health
	return &h
}

type searchRequest struct {
	Type    string          `json:"type"`
	Album   string          `json:"album,omitempty"`
	Filters json.RawMessage `json:"filters,omitempty"`
}

type searchResultItem struct {
	AssetID string `json:"assetId"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

func (s *RemoteAPISource) List(ctx context.Context) ([]domain.Asset, error) {
	req := searchRequest{Type: "image", Album: s.albumRef}
	if s.filterBlob != "" {
		req.Filters = json.RawMessage(s.filterBlob)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	items, err := s.search(ctx, body)
	if err != nil {
		s.mu.Lock()
		s.health.RecordError(err.Error())
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Lock()
	s.health.RecordSuccess()
	s.mu.Unlock()

	assets := make([]domain.Asset, 0, len(items))
	for _, item := range items {
		id := item.AssetID
		orientation := domain.OrientationUnknown
		switch {
		case item.Width > 0 && item.Height > 0 && item.Width >= item.Height:
			orientation = domain.OrientationLandscape
		case item.Width > 0 && item.Height > 0:
			orientation = domain.OrientationPortrait
		}
		assets = append(assets, domain.Asset{
			SourceID:    s.id,
			AssetID:     id,
			Orientation: orientation,
			Fetch: func(ctx context.Context) ([]byte, error) {
				return s.fetchBytes(ctx, id)
			},
		})
	}
	return assets, nil
}

func (s *RemoteAPISource) search(ctx context.Context, body []byte) ([]searchResultItem, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	s.authorize(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("remote source %s: auth rejected: %s", s.id, string(respBody))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote source %s: unexpected status %d: %s", s.id, resp.StatusCode, string(respBody))
	}

	var items []searchResultItem
	if err := json.Unmarshal(respBody, &items); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}
	return items, nil
}

func (s *RemoteAPISource) fetchBytes(ctx context.Context, assetID string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/assets/"+assetID+"/bytes", nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}
	s.authorize(httpReq)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("remote source %s: fetch %s: status %d: %s", s.id, assetID, resp.StatusCode, string(body))
	}
	return io.ReadAll(resp.Body)
}

// authorize prefers the OAuth bearer token when present, falling back
// to the static API key; refreshing an expired OAuth token is the
// caller's responsibility (the device-flow handshake is out of scope
// per spec.md §1, feeding this adapter an opaque access token through
// Credentials updates).
func (s *RemoteAPISource) authorize(req *http.Request) {
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
		return
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
}
