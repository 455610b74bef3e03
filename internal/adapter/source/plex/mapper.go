package plex

import (
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/arrsync/internal/domain"
)

var (
	tmdbGuid = regexp.MustCompile(`tmdb://(\d+)`)
	tvdbGuid = regexp.MustCompile(`tvdb://(\d+)`)
	imdbGuid = regexp.MustCompile(`imdb://(tt\d+)`)
)

// ParseGuids extracts provider ids from Plex guid strings
func ParseGuids(guids []string) domain.ProviderIDs {
	var ids domain.ProviderIDs
	for _, g := range guids {
		if m := tmdbGuid.FindStringSubmatch(g); m != nil && ids.TMDB == "" {
			ids.TMDB = m[1]
		}
		if m := tvdbGuid.FindStringSubmatch(g); m != nil && ids.TVDB == "" {
			ids.TVDB = m[1]
		}
		if m := imdbGuid.FindStringSubmatch(g); m != nil && ids.IMDB == "" {
			ids.IMDB = m[1]
		}
	}
	return ids
}

// mapKind converts a Plex type to a media kind
func mapKind(plexType string) (domain.MediaKind, bool) {
	switch strings.ToLower(plexType) {
	case "movie":
		return domain.KindMovie, true
	case "show":
		return domain.KindSeries, true
	default:
		return "", false
	}
}

// MapWatchlistItem converts watchlist metadata. Entries that are neither
// movies nor shows are dropped.
func MapWatchlistItem(m Metadata) (*domain.WatchlistItem, bool) {
	kind, ok := mapKind(m.Type)
	if !ok || m.RatingKey == "" {
		return nil, false
	}

	guids := make([]string, 0, len(m.Guids))
	for _, g := range m.Guids {
		guids = append(guids, g.ID)
	}

	genres := make([]string, 0, len(m.Genres))
	for _, g := range m.Genres {
		if g.Tag != "" {
			genres = append(genres, g.Tag)
		}
	}

	item := &domain.WatchlistItem{
		Key:           m.RatingKey,
		Source:        SourceName,
		Title:         m.Title,
		Kind:          kind,
		Year:          m.Year,
		IDs:           ParseGuids(guids),
		Summary:       m.Summary,
		Genres:        genres,
		ContentRating: m.ContentRating,
		Studio:        m.Studio,
	}
	if m.AddedAt > 0 {
		item.AddedAt = time.Unix(m.AddedAt, 0)
	}
	return item, true
}

// MapWatchlist converts a page of metadata, dropping unsupported types
func MapWatchlist(metadata []Metadata) []*domain.WatchlistItem {
	items := make([]*domain.WatchlistItem, 0, len(metadata))
	for _, m := range metadata {
		if item, ok := MapWatchlistItem(m); ok {
			items = append(items, item)
		}
	}
	return items
}
