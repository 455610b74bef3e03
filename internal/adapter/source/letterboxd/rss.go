package letterboxd

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mmcdole/arrsync/internal/domain"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

// FetchDiary returns the films in a user's diary feed. Entries that are not
// films (list updates) are skipped.
func (c *Client) FetchDiary(ctx context.Context, username string) ([]*domain.WatchlistItem, error) {
	body, err := c.get(ctx, fmt.Sprintf("/%s/rss/", username))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch RSS feed for %s: %w", username, err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSS feed for %s: %w", username, err)
	}

	items := make([]*domain.WatchlistItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if item, ok := mapDiaryItem(it, username); ok {
			items = append(items, item)
		}
	}

	c.logger.Debug("fetched letterboxd diary", "user", username, "items", len(items))
	return items, nil
}

func mapDiaryItem(it *gofeed.Item, username string) (*domain.WatchlistItem, bool) {
	lb := it.Extensions["letterboxd"]
	title := extValue(lb, "filmTitle")
	if title == "" {
		return nil, false
	}

	year, _ := strconv.Atoi(extValue(lb, "filmYear"))
	rating, _ := strconv.ParseFloat(extValue(lb, "memberRating"), 64)

	key := fmt.Sprintf("letterboxd-%s-%s", username, it.GUID)
	if it.GUID == "" {
		key = fmt.Sprintf("letterboxd-%s-%s-%d", username, title, year)
	}

	var summary string
	if watched := extValue(lb, "watchedDate"); watched != "" {
		summary = "Watched on " + watched
		if extValue(lb, "rewatch") == "Yes" {
			summary += " (Rewatch)"
		}
	}

	return &domain.WatchlistItem{
		Key:     key,
		Source:  SourceName,
		Title:   title,
		Kind:    domain.KindMovie,
		Year:    year,
		IDs:     domain.ProviderIDs{TMDB: extValue(it.Extensions["tmdb"], "movieId")},
		Rating:  rating,
		Summary: summary,
	}, true
}

func extValue(m map[string][]ext.Extension, name string) string {
	if vals := m[name]; len(vals) > 0 {
		return strings.TrimSpace(vals[0].Value)
	}
	return ""
}
