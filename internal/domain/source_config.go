package domain

// SourceKind identifies which adapter implementation a SourceConfig
// binds to.
type SourceKind string

const (
	SourceKindFilesystem SourceKind = "filesystem"
	SourceKindRemoteAPI  SourceKind = "remote-photo-api"
)

// OrderPolicy controls how a Source Adapter's list() output is walked.
type OrderPolicy string

const (
	OrderSequential OrderPolicy = "sequential"
	OrderRandom     OrderPolicy = "random"
)

// FilesystemParams configures a filesystem source.
type FilesystemParams struct {
	Glob string
}

// RemoteAPIParams configures a remote-photo-api source.
type RemoteAPIParams struct {
	BaseURL string
	APIKey  string
	// FilterBlob is an opaque, caller-supplied JSON filter passed through
	// to the remote search endpoint verbatim.
	FilterBlob string
	// OAuthAccessToken, when set, is used instead of APIKey as a bearer
	// token; refreshed by the (out-of-scope) device-flow handshake and
	// swapped in by Credentials updates.
	OAuthAccessToken string
	AlbumRef         string
}

// SourceConfig is copy-on-write: mutating operations (credentials,
// filters, blacklist) build a whole new *SourceConfig and the caller
// swaps it under a writer lock (internal/config.Snapshot). A SourceConfig
// value is therefore treated as immutable once published.
type SourceConfig struct {
	ID         string
	Kind       SourceKind
	Filesystem FilesystemParams
	RemoteAPI  RemoteAPIParams
	Order      OrderPolicy
	Blacklist  map[string]struct{}
}

// IsBlacklisted reports whether assetID is blacklisted.
func (c *SourceConfig) IsBlacklisted(assetID string) bool {
	if c.Blacklist == nil {
		return false
	}
	_, ok := c.Blacklist[assetID]
	return ok
}

// WithBlacklisted returns a copy of c with assetID added to the
// blacklist, preserving copy-on-write semantics.
func (c *SourceConfig) WithBlacklisted(assetID string) *SourceConfig {
	next := *c
	next.Blacklist = make(map[string]struct{}, len(c.Blacklist)+1)
	for id := range c.Blacklist {
		next.Blacklist[id] = struct{}{}
	}
	next.Blacklist[assetID] = struct{}{}
	return &next
}
