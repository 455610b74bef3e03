// Package tmdb implements the reverse id lookup against The Movie Database
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/arrsync/internal/domain"
)

const (
	baseURL        = "https://api.themoviedb.org/3"
	defaultTimeout = 10 * time.Second
)

type findResponse struct {
	MovieResults []struct {
		ID int64 `json:"id"`
	} `json:"movie_results"`
	TVResults []struct {
		ID int64 `json:"id"`
	} `json:"tv_results"`
}

type externalIDsResponse struct {
	IMDBID string `json:"imdb_id"`
	TVDBID int64  `json:"tvdb_id"`
}

// Client resolves TMDB and TVDB ids from other providers. Every failure is
// logged and swallowed; callers get the ids they passed in.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a lookup client. An empty apiKey yields an
// unconfigured client that never makes requests.
func NewClient(apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Resolve fills in the id the destination for kind needs. Movies gain a
// TMDB id from TVDB or IMDB. Series gain a TMDB id and, through the show's
// external ids, a TVDB id.
func (c *Client) Resolve(ctx context.Context, ids domain.ProviderIDs, kind domain.MediaKind) domain.ProviderIDs {
	if !c.Configured() {
		return ids
	}
	if kind == domain.KindSeries {
		return c.resolveSeries(ctx, ids)
	}
	return c.resolveMovie(ctx, ids)
}

func (c *Client) resolveMovie(ctx context.Context, ids domain.ProviderIDs) domain.ProviderIDs {
	if ids.TMDB != "" {
		return ids
	}
	ids.TMDB = c.findFirst(ctx, ids, domain.KindMovie)
	return ids
}

func (c *Client) resolveSeries(ctx context.Context, ids domain.ProviderIDs) domain.ProviderIDs {
	if ids.TMDB == "" {
		ids.TMDB = c.findFirst(ctx, ids, domain.KindSeries)
	}
	if ids.TVDB != "" || ids.TMDB == "" {
		return ids
	}

	var ext externalIDsResponse
	if err := c.get(ctx, fmt.Sprintf("/tv/%s/external_ids", url.PathEscape(ids.TMDB)), nil, &ext); err != nil {
		c.logger.Warn("tmdb external ids lookup failed", "tmdb", ids.TMDB, "error", err)
		return ids
	}
	if ext.TVDBID > 0 {
		ids.TVDB = strconv.FormatInt(ext.TVDBID, 10)
	}
	if ids.IMDB == "" {
		ids.IMDB = ext.IMDBID
	}
	return ids
}

// findFirst queries /find by TVDB then IMDB and returns the TMDB id of the
// first result of the requested kind. A hit of the other kind does not
// stop the search.
func (c *Client) findFirst(ctx context.Context, ids domain.ProviderIDs, kind domain.MediaKind) string {
	sources := []struct{ id, source string }{
		{ids.TVDB, "tvdb_id"},
		{ids.IMDB, "imdb_id"},
	}
	for _, s := range sources {
		if s.id == "" {
			continue
		}
		res, err := c.find(ctx, s.id, s.source)
		if err != nil {
			c.logger.Warn("tmdb find failed", "id", s.id, "source", s.source, "error", err)
			continue
		}
		results := res.MovieResults
		if kind == domain.KindSeries {
			results = res.TVResults
		}
		if len(results) > 0 {
			return strconv.FormatInt(results[0].ID, 10)
		}
	}
	return ""
}

func (c *Client) find(ctx context.Context, id, source string) (*findResponse, error) {
	query := url.Values{}
	query.Set("external_source", source)

	var res findResponse
	if err := c.get(ctx, "/find/"+url.PathEscape(id), query, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, v any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)
	reqURL := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("tmdb request", "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: tmdb: %w", domain.ErrConnectivity, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: tmdb rejected the API key", domain.ErrAuthFailed)
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode >= 400:
		return fmt.Errorf("tmdb request failed: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to parse tmdb response: %w", err)
	}
	return nil
}
