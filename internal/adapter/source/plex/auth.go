package plex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/arrsync/internal/domain"
)

const (
	plexTVBaseURL = "https://plex.tv"
	pinEndpoint   = "/api/v2/pins"
)

// AuthClient handles the plex.tv PIN login flow
type AuthClient struct {
	baseURL    string
	clientID   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewAuthClient creates a new authentication client identified by clientID
func NewAuthClient(clientID string, logger *slog.Logger) *AuthClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthClient{
		baseURL:  plexTVBaseURL,
		clientID: clientID,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
}

func (a *AuthClient) do(ctx context.Context, method, path string, query url.Values, token string) (int, []byte, error) {
	reqURL := a.baseURL + path
	if query != nil {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	setHeaders(req, token, a.clientID)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Error("plex.tv request failed", "path", path, "error", err)
		return 0, nil, fmt.Errorf("%w: plex.tv: %w", domain.ErrConnectivity, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// GetPIN generates a new authentication PIN
func (a *AuthClient) GetPIN(ctx context.Context) (pin string, id int, err error) {
	data := url.Values{}
	data.Set("strong", "false")

	a.logger.Debug("requesting PIN")

	status, body, err := a.do(ctx, http.MethodPost, pinEndpoint, data, "")
	if err != nil {
		return "", 0, err
	}

	if status != http.StatusCreated && status != http.StatusOK {
		a.logger.Error("PIN request error", "status", status, "body", string(body))
		return "", 0, fmt.Errorf("%w: PIN request returned status %d", domain.ErrConnectivity, status)
	}

	var pinResp PINResponse
	if err := json.Unmarshal(body, &pinResp); err != nil {
		return "", 0, fmt.Errorf("failed to parse PIN response: %w", err)
	}

	a.logger.Info("PIN generated", "pin", pinResp.Code, "id", pinResp.ID)
	return pinResp.Code, pinResp.ID, nil
}

// CheckPIN polls for PIN claim status and returns the auth token
func (a *AuthClient) CheckPIN(ctx context.Context, pinID int) (token string, claimed bool, err error) {
	status, body, err := a.do(ctx, http.MethodGet, fmt.Sprintf("%s/%d", pinEndpoint, pinID), nil, "")
	if err != nil {
		return "", false, err
	}

	if status == http.StatusNotFound {
		return "", false, domain.ErrPINExpired
	}

	if status != http.StatusOK {
		a.logger.Error("PIN check error", "status", status, "body", string(body))
		return "", false, fmt.Errorf("%w: PIN check returned status %d", domain.ErrConnectivity, status)
	}

	var pinResp PINCheckResponse
	if err := json.Unmarshal(body, &pinResp); err != nil {
		return "", false, fmt.Errorf("failed to parse PIN response: %w", err)
	}

	if pinResp.AuthToken == "" {
		return "", false, nil // Not yet claimed
	}

	a.logger.Info("PIN claimed successfully")
	return pinResp.AuthToken, true, nil
}

// ValidateToken returns the account a token belongs to
func (a *AuthClient) ValidateToken(ctx context.Context, token string) (*UserResponse, error) {
	status, body, err := a.do(ctx, http.MethodGet, "/api/v2/user", nil, token)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w (HTTP %d)", domain.ErrAuthFailed, status)
	default:
		return nil, fmt.Errorf("%w: plex.tv returned status %d", domain.ErrConnectivity, status)
	}

	var user UserResponse
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to parse user response: %w", err)
	}
	return &user, nil
}

// WaitForPIN polls for PIN claim with exponential backoff
func (a *AuthClient) WaitForPIN(ctx context.Context, pinID int, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	interval := 1 * time.Second
	maxInterval := 5 * time.Second

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
			token, claimed, err := a.CheckPIN(ctx, pinID)
			if err != nil {
				if errors.Is(err, domain.ErrPINExpired) {
					return "", err
				}
				a.logger.Warn("PIN check error, retrying", "error", err)
				continue
			}

			if claimed {
				return token, nil
			}

			// Increase interval up to max
			interval = min(interval*2, maxInterval)
		}
	}

	return "", domain.ErrPINExpired
}
