package plex

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/arrsync/internal/domain"
)

// SourceName is the source key recorded on every Plex watchlist item
const SourceName = "plex"

// MetadataCache caches detail responses between runs
type MetadataCache interface {
	GetMetadata(keys []string) (map[string]domain.MetadataEntry, error)
	SetMetadata(blobs map[string]json.RawMessage) error
	IsMetadataStale(key string, maxAge time.Duration) (bool, error)
}

// Source implements domain.WatchlistSource for a Plex account, either through
// the authenticated watchlist API or the public RSS feed
type Source struct {
	client *Client  // API mode
	feed   *RSSFeed // RSS mode
	cache  MetadataCache
	maxAge time.Duration
	logger *slog.Logger
}

// NewSource creates an API-backed source. cache may be nil.
func NewSource(client *Client, cache MetadataCache, maxAge time.Duration, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		client: client,
		cache:  cache,
		maxAge: maxAge,
		logger: logger,
	}
}

// NewRSSSource creates a source backed by the public watchlist feed
func NewRSSSource(feed *RSSFeed, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{feed: feed, logger: logger}
}

func (s *Source) Name() string {
	return SourceName
}

// Ping verifies credentials. RSS mode has nothing to verify beyond fetching.
func (s *Source) Ping(ctx context.Context) error {
	if s.client == nil {
		_, err := s.feed.Fetch(ctx)
		return err
	}
	return s.client.Ping(ctx)
}

// FetchWatchlist returns the account watchlist. Entries that come back
// without external ids are enriched from detail metadata, cached unless
// forceRefresh is set.
func (s *Source) FetchWatchlist(ctx context.Context, forceRefresh bool) ([]*domain.WatchlistItem, error) {
	if s.feed != nil {
		return s.feed.Fetch(ctx)
	}

	metadata, err := s.client.GetWatchlist(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.enrich(ctx, metadata, forceRefresh); err != nil {
		return nil, err
	}

	items := MapWatchlist(metadata)
	s.logger.Info("fetched plex watchlist", "items", len(items))
	return items, nil
}

// enrich replaces entries lacking Guid with their detail metadata in place
func (s *Source) enrich(ctx context.Context, metadata []Metadata, forceRefresh bool) error {
	var keys []string
	for _, m := range metadata {
		if len(m.Guids) == 0 && m.RatingKey != "" {
			keys = append(keys, m.RatingKey)
		}
	}
	if len(keys) == 0 {
		return nil
	}

	details := make(map[string]Metadata, len(keys))
	missing := keys

	if s.cache != nil && !forceRefresh {
		var fresh []string
		missing = missing[:0:0]
		for _, key := range keys {
			stale, err := s.cache.IsMetadataStale(key, s.maxAge)
			if err != nil {
				return err
			}
			if stale {
				missing = append(missing, key)
			} else {
				fresh = append(fresh, key)
			}
		}

		if len(fresh) > 0 {
			cached, err := s.cache.GetMetadata(fresh)
			if err != nil {
				return err
			}
			for _, key := range fresh {
				if entry, ok := cached[key]; ok {
					var m Metadata
					if err := json.Unmarshal(entry.Data, &m); err == nil {
						details[key] = m
						continue
					}
				}
				missing = append(missing, key)
			}
		}
		s.logger.Debug("plex metadata cache", "hits", len(details), "misses", len(missing))
	}

	if len(missing) > 0 {
		fetched, err := s.client.GetMetadata(ctx, missing)
		if err != nil {
			return fmt.Errorf("failed to fetch plex metadata: %w", err)
		}

		blobs := make(map[string]json.RawMessage, len(fetched))
		for key, m := range fetched {
			details[key] = m
			if data, err := json.Marshal(m); err == nil {
				blobs[key] = data
			}
		}
		if s.cache != nil && len(blobs) > 0 {
			if err := s.cache.SetMetadata(blobs); err != nil {
				return err
			}
		}
	}

	for i, m := range metadata {
		if d, ok := details[m.RatingKey]; ok {
			metadata[i] = d
		}
	}
	return nil
}
