package domain

import (
	"fmt"
	"strings"
	"time"
)

// MediaKind distinguishes content types
type MediaKind string

const (
	KindMovie  MediaKind = "movie"
	KindSeries MediaKind = "series"
)

// Label returns the human label used in tables and messages
func (k MediaKind) Label() string {
	switch k {
	case KindMovie:
		return "Movie"
	case KindSeries:
		return "TV Show"
	default:
		return string(k)
	}
}

// ProviderIDs is the cross-service identifier triple for a single title.
// Movies are keyed on TMDB by Radarr, series on TVDB by Sonarr.
type ProviderIDs struct {
	TMDB string `json:"tmdb,omitempty"` // Primary catalog id
	TVDB string `json:"tvdb,omitempty"` // Secondary catalog id
	IMDB string `json:"imdb,omitempty"` // External database id, "tt" prefixed
}

// Empty reports whether no identifier is known
func (p ProviderIDs) Empty() bool {
	return p.TMDB == "" && p.TVDB == "" && p.IMDB == ""
}

// String formats the known ids as "tmdb:603 imdb:tt0133093"
func (p ProviderIDs) String() string {
	var parts []string
	if p.TMDB != "" {
		parts = append(parts, "tmdb:"+p.TMDB)
	}
	if p.TVDB != "" {
		parts = append(parts, "tvdb:"+p.TVDB)
	}
	if p.IMDB != "" {
		parts = append(parts, "imdb:"+p.IMDB)
	}
	return strings.Join(parts, " ")
}

// WatchlistItem is one title on a user's watchlist as reported by a source
type WatchlistItem struct {
	Key    string      `json:"key"`    // Idempotence key, stable per source+user
	Source string      `json:"source"` // "plex" or "letterboxd"
	Title  string      `json:"title"`
	Kind   MediaKind   `json:"kind"`
	Year   int         `json:"year,omitempty"` // 0 when unknown
	IDs    ProviderIDs `json:"ids"`

	Rating        float64   `json:"rating,omitempty"` // Source rating, 0 when unrated
	Summary       string    `json:"summary,omitempty"`
	Genres        []string  `json:"genres,omitempty"`
	ContentRating string    `json:"content_rating,omitempty"`
	Studio        string    `json:"studio,omitempty"`
	AddedAt       time.Time `json:"added_at,omitzero"`

	// Source-specific handles used by slug resolution (Letterboxd film id and slug)
	SourceID   string `json:"source_id,omitempty"`
	SourceSlug string `json:"source_slug,omitempty"`
}

// DisplayTitle returns "Title (Year)" or just the title when the year is unknown
func (w *WatchlistItem) DisplayTitle() string {
	if w.Year > 0 {
		return fmt.Sprintf("%s (%d)", w.Title, w.Year)
	}
	return w.Title
}

// Destination service identifiers used as ledger keys
const (
	ServiceRadarr = "radarr"
	ServiceSonarr = "sonarr"
)

// ServiceFor returns the destination service that accepts the given kind
func ServiceFor(kind MediaKind) string {
	if kind == KindSeries {
		return ServiceSonarr
	}
	return ServiceRadarr
}

// ServiceDisplayName returns the product name for a service key
func ServiceDisplayName(service string) string {
	switch service {
	case ServiceRadarr:
		return "Radarr"
	case ServiceSonarr:
		return "Sonarr"
	default:
		return service
	}
}
