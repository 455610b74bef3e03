package plex

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/mmcdole/arrsync/internal/domain"
	"github.com/mmcdole/gofeed"
)

const rssBaseURL = "https://rss.plex.tv"

var titleYear = regexp.MustCompile(`^(.*)\s+\((\d{4})\)$`)

// RSSFeed reads the public watchlist feed a Plex user can share from
// watchlist settings. It needs no token.
type RSSFeed struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewRSSFeed creates a feed reader for rssID
func NewRSSFeed(rssID string, logger *slog.Logger) *RSSFeed {
	if logger == nil {
		logger = slog.Default()
	}
	return &RSSFeed{
		url:        fmt.Sprintf("%s/%s", rssBaseURL, rssID),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

// Fetch downloads and parses the feed
func (f *RSSFeed) Fetch(ctx context.Context) ([]*domain.WatchlistItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	f.logger.Debug("fetching plex rss", "url", f.url)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: plex rss: %w", domain.ErrConnectivity, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: plex rss returned status %d", domain.ErrConnectivity, resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse plex rss: %w", err)
	}

	items := make([]*domain.WatchlistItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if item, ok := mapRSSItem(it); ok {
			items = append(items, item)
		} else {
			f.logger.Warn("skipping plex rss item", "title", it.Title, "categories", it.Categories)
		}
	}

	f.logger.Info("fetched plex rss watchlist", "items", len(items))
	return items, nil
}

// mapRSSItem converts a feed entry. The guid ("tmdb://603") is the only
// stable handle, so it doubles as the key.
func mapRSSItem(it *gofeed.Item) (*domain.WatchlistItem, bool) {
	var kind domain.MediaKind
	for _, c := range it.Categories {
		if k, ok := mapKind(c); ok {
			kind = k
			break
		}
	}
	if kind == "" || it.GUID == "" {
		return nil, false
	}

	title, year := splitTitleYear(it.Title)
	item := &domain.WatchlistItem{
		Key:     strings.ReplaceAll(it.GUID, "://", "_"),
		Source:  SourceName,
		Title:   title,
		Kind:    kind,
		Year:    year,
		IDs:     ParseGuids([]string{it.GUID}),
		Summary: it.Description,
	}

	if media, ok := it.Extensions["media"]; ok {
		for _, kw := range media["keywords"] {
			for _, g := range strings.Split(kw.Value, ",") {
				if g = strings.TrimSpace(g); g != "" {
					item.Genres = append(item.Genres, g)
				}
			}
		}
		for _, r := range media["rating"] {
			scheme := r.Attrs["scheme"]
			if strings.Contains(scheme, "mpaa") || strings.Contains(scheme, "v-chip") {
				item.ContentRating = r.Value
				break
			}
		}
	}
	return item, true
}

// splitTitleYear parses "Title (Year)"
func splitTitleYear(s string) (string, int) {
	s = strings.TrimSpace(s)
	if m := titleYear.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[2])
		return strings.TrimSpace(m[1]), year
	}
	return s, 0
}
