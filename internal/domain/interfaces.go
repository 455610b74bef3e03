package domain

import "context"

// WatchlistSource fetches a user's watchlist. Sources own their own
// pagination, caching and rate limiting.
type WatchlistSource interface {
	// Name returns the source key, e.g. "plex" or "letterboxd"
	Name() string

	// FetchWatchlist returns the current watchlist. forceRefresh bypasses caches.
	FetchWatchlist(ctx context.Context, forceRefresh bool) ([]*WatchlistItem, error)
}

// Destination adds titles to a download manager (Radarr or Sonarr)
type Destination interface {
	// Name returns the product name used in user-facing messages
	Name() string

	// TestConnection returns nil when the service answers with valid credentials
	TestConnection(ctx context.Context) error

	// Add requests the title. Failures are *DestinationError.
	Add(ctx context.Context, ids ProviderIDs, title string, year int) (*AddResult, error)
}

// ReverseLookup fills in missing ids from a catalog service. It is best
// effort: on any failure it returns ids unchanged.
type ReverseLookup interface {
	Configured() bool
	Resolve(ctx context.Context, ids ProviderIDs, kind MediaKind) ProviderIDs
}

// PageResolver performs the slow per-film page scrape for a TMDB id.
// An empty id with a nil error is a definitive miss.
type PageResolver interface {
	ResolveTMDBID(ctx context.Context, slug string) (string, error)
}

// Ledger is the persisted state the sync engine depends on.
// Every error it returns is fatal to the current run.
type Ledger interface {
	IsSynced(key, service string) (bool, error)
	RecordSync(rec SyncRecord) error

	ExternalIDByItemID(id string) (*ExternalIDEntry, error)
	ExternalIDBySlug(slug string) (*ExternalIDEntry, error)
	UpsertExternalID(entry ExternalIDEntry) error

	MarkSeen(entries []SeenEntry) error
}

// EventEmitter publishes lifecycle events to configured hooks
type EventEmitter interface {
	Emit(ctx context.Context, event string, payload map[string]any)
}

// Event names
const (
	EventCommandStart = "command_start"
	EventCommandEnd   = "command_end"
	EventSyncComplete = "sync_complete"
	EventSyncError    = "sync_error"
)
