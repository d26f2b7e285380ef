package backendapi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/frahmantamala/performance-management/internal"
	"github.com/frahmantamala/performance-management/internal/identity"
)

// Client exchanges credentials with the performance-management backend and
// revokes its bearer tokens on sign-out. It is the only component that talks
// to the backend's auth endpoints.
type Client struct {
	baseURL    string
	loginPath  string
	logoutPath string
	httpClient *http.Client
	logger     *slog.Logger

	// collapses duplicate submits of the same credentials while one
	// exchange is still in flight
	loginGroup singleflight.Group
}

type Config struct {
	BaseURL    string
	LoginPath  string
	LogoutPath string
	Timeout    time.Duration
}

func NewClient(config Config, logger *slog.Logger) *Client {
	loginPath := config.LoginPath
	if loginPath == "" {
		loginPath = "/api/auth/login"
	}
	logoutPath := config.LogoutPath
	if logoutPath == "" {
		logoutPath = "/api/auth/logout"
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    config.BaseURL,
		loginPath:  loginPath,
		logoutPath: logoutPath,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token       string         `json:"token"`
	ID          string         `json:"id"`
	Username    string         `json:"username"`
	Role        string         `json:"role"`
	RoleDetails map[string]any `json:"roleDetails"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Authenticate sends credentials to the backend and maps the result onto an
// Identity. A well-formed rejection comes back as AUTHENTICATION_FAILED with
// the backend's message; a 200 with missing fields is INVALID_BACKEND_RESPONSE
// and is never partially accepted.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*identity.Identity, error) {
	key := loginKey(username, password)

	result, err, _ := c.loginGroup.Do(key, func() (interface{}, error) {
		return c.doLogin(ctx, username, password)
	})

	// a caller that navigated away must not receive a late identity
	if ctx.Err() != nil {
		return nil, internal.ErrBackendUnavailable.WithCause(ctx.Err())
	}

	if err != nil {
		return nil, err
	}

	id := result.(*identity.Identity)
	cloned := id.Clone()
	return &cloned, nil
}

func (c *Client) doLogin(ctx context.Context, username, password string) (*identity.Identity, error) {
	payload, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return nil, internal.NewInternalError("failed to encode login request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.loginPath, bytes.NewBuffer(payload))
	if err != nil {
		return nil, internal.NewInternalError("failed to create login request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("backend login request failed", "error", err)
		return nil, internal.ErrBackendUnavailable.WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("failed to read backend login response", "error", err)
		return nil, internal.ErrBackendUnavailable.WithCause(err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		message := "Invalid username or password"
		if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && errResp.Message != "" {
			message = errResp.Message
		}
		c.logger.Warn("backend rejected login",
			"status_code", resp.StatusCode,
			"username", username)
		return nil, internal.ErrAuthenticationFailed.WithMessage(message)
	}

	var loginResp loginResponse
	if err := json.Unmarshal(body, &loginResp); err != nil {
		c.logger.Error("backend login response is not valid JSON", "error", err)
		return nil, internal.ErrInvalidBackendResponse.WithCause(err)
	}

	if loginResp.Token == "" || loginResp.ID == "" || loginResp.Username == "" || loginResp.Role == "" {
		c.logger.Error("backend login response is missing required fields",
			"has_token", loginResp.Token != "",
			"has_id", loginResp.ID != "",
			"has_username", loginResp.Username != "",
			"has_role", loginResp.Role != "")
		return nil, internal.ErrInvalidBackendResponse
	}

	role, err := identity.ParseRole(loginResp.Role)
	if err != nil {
		c.logger.Error("backend returned unrecognized role", "role", loginResp.Role, "username", loginResp.Username)
		return nil, internal.ErrUnknownRole.WithCause(err)
	}

	return &identity.Identity{
		ID:          loginResp.ID,
		Username:    loginResp.Username,
		Role:        role,
		Token:       loginResp.Token,
		RoleDetails: loginResp.RoleDetails,
	}, nil
}

// Revoke asks the backend to invalidate its bearer token. Best effort: the
// caller clears local state regardless of the outcome.
func (c *Client) Revoke(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.logoutPath, nil)
	if err != nil {
		return internal.NewInternalError("failed to create revocation request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return internal.NewExternalError("token revocation request failed", internal.ErrCodeRevocationFailed).WithCause(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return internal.NewExternalError(
			fmt.Sprintf("backend returned status %d on revocation", resp.StatusCode),
			internal.ErrCodeRevocationFailed)
	}

	return nil
}

// loginKey hashes the credential pair so raw passwords never sit in the
// singleflight key map.
func loginKey(username, password string) string {
	sum := sha256.Sum256([]byte(username + "\x00" + password))
	return fmt.Sprintf("%x", sum)
}
