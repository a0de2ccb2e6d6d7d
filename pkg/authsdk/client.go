package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/labres/pkg/httpx"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// SDKClient talks to the lab auth service. It is stateless; session state
// lives in Manager.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// APIKey is sent as x-api-key on every request when set.
	APIKey string
}

// NewSDKClient creates a new auth service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Login exchanges credentials for a token pair.
func (c *SDKClient) Login(ctx context.Context, req LoginRequest) (*TokenPair, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return c.requestPair(ctx, PathLogin, req, "")
}

// Register creates an account and returns its first token pair.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*TokenPair, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return c.requestPair(ctx, PathRegister, req, "")
}

// Refresh exchanges a refresh token for a new pair. Servers that do not
// rotate refresh tokens may omit refresh_token; the presented one is kept.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	body := refreshRequest{RefreshToken: refreshToken}
	if err := validateRequest(body); err != nil {
		return nil, err
	}

	pair, err := c.requestPair(ctx, PathRefresh, body, "")
	if err != nil {
		return nil, err
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	return pair, nil
}

// Logout tells the auth service to revoke the session.
func (c *SDKClient) Logout(ctx context.Context, accessToken, refreshToken string) error {
	resp, err := c.doJSON(ctx, PathLogout, logoutRequest{RefreshToken: refreshToken}, accessToken)
	if err != nil {
		return err
	}
	return httpx.DecodeJSON(resp, nil)
}

// url builds a complete URL by appending the path to the base URL.
func (c *SDKClient) url(path string) string {
	return c.BaseURL + path
}

func (c *SDKClient) requestPair(ctx context.Context, path string, body any, bearer string) (*TokenPair, error) {
	resp, err := c.doJSON(ctx, path, body, bearer)
	if err != nil {
		return nil, err
	}

	var pair TokenPair
	if err := httpx.DecodeJSON(resp, &pair); err != nil {
		return nil, err
	}
	if err := validate.Struct(pair); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTokenResponse, path)
	}
	return &pair, nil
}

// doJSON POSTs body as JSON.
func (c *SDKClient) doJSON(ctx context.Context, path string, body any, bearer string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("x-api-key", c.APIKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	return resp, nil
}

func validateRequest(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}
