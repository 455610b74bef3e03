package letterboxd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/mmcdole/arrsync/internal/domain"
	"golang.org/x/net/html"
)

var (
	nameYear = regexp.MustCompile(`^(.*?)(?:\s+\((\d{4})\))?$`)
	filmLink = regexp.MustCompile(`^/film/([^/]+)/`)
)

// poster is one LazyPoster element on a watchlist page
type poster struct {
	Slug   string
	Name   string
	FilmID string
}

// watchlistPage is what one page of a watchlist contributes
type watchlistPage struct {
	Posters []poster
	Total   int // data-num-entries, 0 when absent
	HasNext bool
}

// FetchWatchlist pages through a public watchlist. Ids are not on these
// pages; items carry the film id and slug for later resolution.
func (c *Client) FetchWatchlist(ctx context.Context, username string) ([]*domain.WatchlistItem, error) {
	var (
		items []*domain.WatchlistItem
		seen  = make(map[string]bool)
		total int
	)

	for page := 1; ; page++ {
		path := fmt.Sprintf("/%s/watchlist/", username)
		if page > 1 {
			path = fmt.Sprintf("/%s/watchlist/page/%d/", username, page)
		}

		body, err := c.get(ctx, path)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) && page > 1 {
				break
			}
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("watchlist not found for %s: %w", username, err)
			}
			return nil, fmt.Errorf("failed to fetch watchlist page %d for %s: %w", page, username, err)
		}

		wp, err := parseWatchlistPage(body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse watchlist page %d for %s: %w", page, username, err)
		}
		if total == 0 {
			total = wp.Total
		}
		if len(wp.Posters) == 0 {
			break
		}

		for _, p := range wp.Posters {
			if p.Slug == "" || seen[p.Slug] {
				continue
			}
			seen[p.Slug] = true
			items = append(items, watchlistItem(p, username))
		}

		if total > 0 && len(items) >= total {
			break
		}
		if !wp.HasNext {
			break
		}
	}

	c.logger.Debug("fetched letterboxd watchlist", "user", username, "items", len(items))
	return items, nil
}

func watchlistItem(p poster, username string) *domain.WatchlistItem {
	name := p.Name
	if name == "" {
		name = strings.ReplaceAll(p.Slug, "-", " ")
	}
	title, year := parseNameYear(name)

	id := p.FilmID
	if id == "" {
		id = p.Slug
	}

	return &domain.WatchlistItem{
		Key:        fmt.Sprintf("letterboxd-watchlist-%s-%s", username, id),
		Source:     SourceName,
		Title:      title,
		Kind:       domain.KindMovie,
		Year:       year,
		SourceID:   p.FilmID,
		SourceSlug: p.Slug,
	}
}

func parseNameYear(s string) (string, int) {
	s = strings.TrimSpace(s)
	m := nameYear.FindStringSubmatch(s)
	if m == nil {
		return s, 0
	}
	year, _ := strconv.Atoi(m[2])
	return strings.TrimSpace(m[1]), year
}

func parseWatchlistPage(body []byte) (*watchlistPage, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	wp := &watchlistPage{}
	var walk func(n *html.Node, inPager bool)
	walk = func(n *html.Node, inPager bool) {
		if n.Type == html.ElementNode {
			attrs := attrMap(n)
			if v, ok := attrs["data-num-entries"]; ok && wp.Total == 0 {
				wp.Total, _ = strconv.Atoi(v)
			}

			classes := strings.Fields(attrs["class"])
			if slices.Contains(classes, "paginate-nextprev") {
				inPager = true
			}
			if inPager && n.Data == "a" && slices.Contains(classes, "next") {
				wp.HasNext = true
			}

			if n.Data == "div" && attrs["data-component-class"] == "LazyPoster" {
				slug := attrs["data-item-slug"]
				if slug == "" {
					if m := filmLink.FindStringSubmatch(attrs["data-item-link"]); m != nil {
						slug = m[1]
					}
				}
				name := attrs["data-item-name"]
				if name == "" {
					name = attrs["data-item-full-display-name"]
				}
				wp.Posters = append(wp.Posters, poster{Slug: slug, Name: name, FilmID: attrs["data-film-id"]})
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child, inPager)
		}
	}
	walk(doc, false)
	return wp, nil
}

func attrMap(n *html.Node) map[string]string {
	m := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		m[a.Key] = a.Val
	}
	return m
}
