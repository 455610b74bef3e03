package letterboxd

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/mmcdole/arrsync/internal/domain"
	"golang.org/x/net/html"
)

// ResolveTMDBID reads the TMDB id from a film page's body tag. A missing
// page or attribute is a miss, not an error.
func (c *Client) ResolveTMDBID(ctx context.Context, slug string) (string, error) {
	body, err := c.get(ctx, fmt.Sprintf("/film/%s/", slug))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil
		}
		return "", err
	}

	id, err := bodyTMDBID(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse film page %s: %w", slug, err)
	}
	if id == "" {
		c.logger.Warn("no tmdb id on film page", "slug", slug)
		return "", nil
	}

	c.logger.Debug("extracted tmdb id", "slug", slug, "tmdb", id)
	return id, nil
}

func bodyTMDBID(page []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return "", err
	}

	var find func(n *html.Node) *html.Node
	find = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode && n.Data == "body" {
			return n
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if found := find(child); found != nil {
				return found
			}
		}
		return nil
	}

	body := find(doc)
	if body == nil {
		return "", nil
	}
	return attrMap(body)["data-tmdb-id"], nil
}
