package plex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/arrsync/internal/domain"
)

const (
	discoverBaseURL = "https://discover.provider.plex.tv"
	defaultTimeout  = 30 * time.Second
	product         = "arrsync"
	version         = "1.0"
	userAgent       = "arrsync/1.0"

	watchlistPageSize = 50
	metadataBatchSize = 20
)

// Client talks to the Plex discover provider that serves account watchlists
type Client struct {
	baseURL    string
	token      string
	clientID   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Plex watchlist client
func NewClient(token, clientID string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:  discoverBaseURL,
		token:    token,
		clientID: clientID,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
}

// setHeaders applies the X-Plex identification headers
func setHeaders(req *http.Request, token, clientID string) {
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("X-Plex-Token", token)
	}
	req.Header.Set("X-Plex-Client-Identifier", clientID)
	req.Header.Set("X-Plex-Product", product)
	req.Header.Set("X-Plex-Version", version)
	req.Header.Set("X-Plex-Device", "CLI")
	req.Header.Set("X-Plex-Platform", "CLI")
	req.Header.Set("User-Agent", userAgent)
}

// doRequest performs an authenticated HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	reqURL := fmt.Sprintf("%s%s", c.baseURL, path)
	if query != nil {
		reqURL = fmt.Sprintf("%s?%s", reqURL, query.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setHeaders(req, c.token, c.clientID)

	c.logger.Debug("plex request", "method", method, "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("plex request failed", "error", err)
		return nil, fmt.Errorf("%w: plex: %w", domain.ErrConnectivity, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusUnauthorized, http.StatusPaymentRequired, http.StatusForbidden:
		return nil, fmt.Errorf("%w (HTTP %d), check plex.token or run `arrsync login`", domain.ErrAuthFailed, resp.StatusCode)
	default:
		c.logger.Error("plex request error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("%w: plex returned status %d", domain.ErrConnectivity, resp.StatusCode)
	}
}

// parseResponse parses a JSON response into its MediaContainer
func (c *Client) parseResponse(body []byte) (*MediaContainer, error) {
	var resp APIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Error("JSON parse error", "error", err, "bodyLen", len(body))
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &resp.MediaContainer, nil
}

// Ping checks that the token is accepted
func (c *Client) Ping(ctx context.Context) error {
	query := url.Values{}
	query.Set("X-Plex-Container-Start", "0")
	query.Set("X-Plex-Container-Size", "1")
	_, err := c.doRequest(ctx, http.MethodGet, "/library/sections/watchlist/all", query)
	return err
}

// GetWatchlistPage returns one page of the watchlist and the total size
func (c *Client) GetWatchlistPage(ctx context.Context, offset, limit int) ([]Metadata, int, error) {
	query := url.Values{}
	query.Set("X-Plex-Container-Start", strconv.Itoa(offset))
	query.Set("X-Plex-Container-Size", strconv.Itoa(limit))
	query.Set("includeGuids", "1")

	body, err := c.doRequest(ctx, http.MethodGet, "/library/sections/watchlist/all", query)
	if err != nil {
		return nil, 0, err
	}

	container, err := c.parseResponse(body)
	if err != nil {
		return nil, 0, err
	}

	totalSize := container.TotalSize
	if totalSize == 0 {
		totalSize = container.Size // Fallback if TotalSize not provided
	}
	return container.Metadata, totalSize, nil
}

// GetWatchlist pages through the whole watchlist
func (c *Client) GetWatchlist(ctx context.Context) ([]Metadata, error) {
	return fetchAll(ctx, c.GetWatchlistPage, watchlistPageSize)
}

// GetMetadata fetches detail metadata (including Guid) for ratingKeys,
// batching several keys into one comma-separated request
func (c *Client) GetMetadata(ctx context.Context, ratingKeys []string) (map[string]Metadata, error) {
	result := make(map[string]Metadata, len(ratingKeys))

	for start := 0; start < len(ratingKeys); start += metadataBatchSize {
		end := min(start+metadataBatchSize, len(ratingKeys))
		batch := ratingKeys[start:end]

		path := "/library/metadata/" + strings.Join(batch, ",")
		body, err := c.doRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}

		container, err := c.parseResponse(body)
		if err != nil {
			return nil, err
		}
		for _, m := range container.Metadata {
			if m.RatingKey != "" {
				result[m.RatingKey] = m
			}
		}
	}

	return result, nil
}

// fetchAll is a private helper that handles pagination
func fetchAll[T any](
	ctx context.Context,
	fetch func(ctx context.Context, offset, limit int) ([]T, int, error),
	chunkSize int,
) ([]T, error) {
	var all []T
	offset := 0

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		items, total, err := fetch(ctx, offset, chunkSize)
		if err != nil {
			return nil, err
		}

		all = append(all, items...)

		if len(all) >= total || len(items) == 0 {
			break
		}
		offset += chunkSize
	}

	return all, nil
}
