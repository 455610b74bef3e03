package domain

import (
	"encoding/json"
	"time"
)

// SyncStatus is the outcome of forwarding one item to one destination
type SyncStatus string

const (
	StatusSuccess SyncStatus = "success"
	StatusFailed  SyncStatus = "failed"
	StatusSkipped SyncStatus = "skipped"
)

// SyncRecord is a ledger row. (Key, Service) is unique; writes replace.
type SyncRecord struct {
	Key      string      `json:"key"`
	Service  string      `json:"service"` // ServiceRadarr or ServiceSonarr
	Status   SyncStatus  `json:"status"`
	Title    string      `json:"title"`
	Kind     MediaKind   `json:"kind"`
	IDs      ProviderIDs `json:"ids"`
	SyncedAt time.Time   `json:"synced_at"`
	Error    string      `json:"error,omitempty"`
}

// MetadataEntry is a cached raw metadata blob for a watchlist source item
type MetadataEntry struct {
	Key      string          `json:"key"`
	Data     json.RawMessage `json:"data"`
	CachedAt time.Time       `json:"cached_at"`
}

// Stale reports whether the entry is older than maxAge at now
func (m MetadataEntry) Stale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(m.CachedAt) > maxAge
}

// ExternalIDEntry caches the outcome of resolving a TMDB id from a source slug.
// ResolvedAt is nil until a resolution attempt is made. A non-nil ResolvedAt
// with an empty TMDBID records a definitive miss.
type ExternalIDEntry struct {
	SourceItemID string     `json:"source_item_id"`
	Slug         string     `json:"slug"`
	TMDBID       string     `json:"tmdb_id,omitempty"`
	Title        string     `json:"title"`
	Year         int        `json:"year,omitempty"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

// Attempted reports whether a resolution was already tried for this entry
func (e *ExternalIDEntry) Attempted() bool {
	return e != nil && e.ResolvedAt != nil
}

// SeenEntry marks when a watchlist item was first observed by a baseline run
type SeenEntry struct {
	Key       string      `json:"key"`
	Source    string      `json:"source"`
	Title     string      `json:"title"`
	Kind      MediaKind   `json:"kind"`
	IDs       ProviderIDs `json:"ids"`
	FirstSeen time.Time   `json:"first_seen"`
}

// SyncResult is the per-item outcome of one orchestrator pass
type SyncResult struct {
	Item    *WatchlistItem
	Service string
	Status  SyncStatus
	Message string
	Err     error // Classification, matches one of the sentinel errors
}

// SyncSummary aggregates one orchestrator pass. Results keep input order.
type SyncSummary struct {
	Total       int
	MoviesAdded int
	ShowsAdded  int
	Skipped     int
	Failed      int
	Results     []SyncResult
}

// AddResult is returned by a destination after a successful add call
type AddResult struct {
	AlreadyExisted bool
	DisplayTitle   string
}
