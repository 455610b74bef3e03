package letterboxd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/mmcdole/arrsync/internal/domain"
	"golang.org/x/time/rate"
)

const (
	baseURL        = "https://letterboxd.com"
	defaultTimeout = 30 * time.Second
	userAgent      = "arrsync/1.0"

	requestInterval = 500 * time.Millisecond
	maxAttempts     = 3
)

// statusError is a non-200 response
type statusError struct {
	Code       int
	RetryAfter time.Duration // Parsed Retry-After on 429
}

func (e *statusError) Error() string {
	return fmt.Sprintf("letterboxd returned status %d", e.Code)
}

// Client fetches public Letterboxd pages and feeds. Requests are spaced by a
// shared limiter and 429s are retried honoring Retry-After.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewClient creates a new Letterboxd client
func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter:   rate.NewLimiter(rate.Every(requestInterval), 1),
		baseDelay: requestInterval,
		logger:    logger,
	}
}

// get fetches path and returns the body of a 200 response. A 404 is
// reported as domain.ErrNotFound and is not retried.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	reqURL := c.baseURL + path

	body, err := retry.DoWithData(
		func() ([]byte, error) {
			return c.fetch(ctx, reqURL)
		},
		retry.Context(ctx),
		retry.Attempts(maxAttempts),
		retry.LastErrorOnly(true),
		retry.DelayType(c.retryDelay),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying letterboxd request", "url", reqURL, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		var se *statusError
		switch {
		case errors.As(err, &se) && se.Code == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, reqURL)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, err
		default:
			return nil, fmt.Errorf("%w: letterboxd: %w", domain.ErrConnectivity, err)
		}
	}
	return body, nil
}

func (c *Client) fetch(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, retry.Unrecoverable(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("letterboxd request", "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &statusError{Code: resp.StatusCode, RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	default:
		return nil, retry.Unrecoverable(&statusError{Code: resp.StatusCode})
	}
}

// retryDelay waits max(Retry-After, base) after a 429, otherwise a
// linearly growing delay
func (c *Client) retryDelay(n uint, err error, _ *retry.Config) time.Duration {
	var se *statusError
	if errors.As(err, &se) && se.RetryAfter > 0 {
		return max(se.RetryAfter, c.baseDelay)
	}
	return c.baseDelay * time.Duration(n+1)
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
