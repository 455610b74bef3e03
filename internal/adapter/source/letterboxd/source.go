package letterboxd

import (
	"context"
	"log/slog"

	"github.com/mmcdole/arrsync/internal/domain"
)

// SourceName is the source key recorded on every Letterboxd item
const SourceName = "letterboxd"

// Options selects which feeds are read per user
type Options struct {
	Usernames []string
	Diary     bool    // RSS diary feed
	Watchlist bool    // Public watchlist pages
	MinRating float64 // Diary entries rated below this are dropped; 0 disables
}

// Source implements domain.WatchlistSource over one or more Letterboxd users
type Source struct {
	client *Client
	opts   Options
	logger *slog.Logger
}

// NewSource creates a Letterboxd source
func NewSource(client *Client, opts Options, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{client: client, opts: opts, logger: logger}
}

func (s *Source) Name() string {
	return SourceName
}

// FetchWatchlist reads every configured feed. Pages are not cached so
// forceRefresh has no effect.
func (s *Source) FetchWatchlist(ctx context.Context, _ bool) ([]*domain.WatchlistItem, error) {
	var all []*domain.WatchlistItem

	for _, user := range s.opts.Usernames {
		if s.opts.Diary {
			items, err := s.client.FetchDiary(ctx, user)
			if err != nil {
				return nil, err
			}
			all = append(all, items...)
		}
		if s.opts.Watchlist {
			items, err := s.client.FetchWatchlist(ctx, user)
			if err != nil {
				return nil, err
			}
			all = append(all, items...)
		}
	}

	items := filterItems(all, s.opts.MinRating)
	s.logger.Info("fetched letterboxd items", "users", len(s.opts.Usernames), "items", len(items), "dropped", len(all)-len(items))
	return items, nil
}

// filterItems drops duplicate keys and rated items below minRating.
// Unrated items always pass.
func filterItems(items []*domain.WatchlistItem, minRating float64) []*domain.WatchlistItem {
	seen := make(map[string]bool, len(items))
	out := make([]*domain.WatchlistItem, 0, len(items))
	for _, item := range items {
		if seen[item.Key] {
			continue
		}
		if minRating > 0 && item.Rating > 0 && item.Rating < minRating {
			continue
		}
		seen[item.Key] = true
		out = append(out, item)
	}
	return out
}
