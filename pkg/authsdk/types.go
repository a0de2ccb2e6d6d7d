package authsdk

import (
	"time"
)

// KeyRefreshToken is the storage key holding the refresh token.
const KeyRefreshToken = "refresh_token"

// Auth service endpoints, relative to SDKClient.BaseURL.
const (
	PathLogin    = "/login"
	PathRegister = "/register"
	PathRefresh  = "/refresh"
	PathLogout   = "/logout"
)

// ============================================================================
// Requests
// ============================================================================

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

// ============================================================================
// Token Types
// ============================================================================

// TokenPair is what every auth endpoint returns. The access token only ever
// lives in memory; the refresh token is persisted under KeyRefreshToken.
type TokenPair struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token"`

	// RefreshTokenExpiresAt is passed through as sent by the server; see
	// RefreshExpiry for a parsed form.
	RefreshTokenExpiresAt string `json:"refresh_token_expires_at,omitempty"`
}

// RefreshExpiry parses RefreshTokenExpiresAt. The auth service emits ISO
// 8601 timestamps with or without an offset.
func (p TokenPair) RefreshExpiry() (time.Time, bool) {
	if p.RefreshTokenExpiresAt == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, p.RefreshTokenExpiresAt); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsZero reports whether the pair holds no tokens.
func (p TokenPair) IsZero() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// ============================================================================
// Session Types
// ============================================================================

// User is the identity decoded from the access token claims. It is a
// display hint only; the lab API authorises every request itself.
type User struct {
	ID       string
	Username string
	Name     string
	Admin    bool
	RoleID   int
}

// State is the session lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateRecovering
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRecovering:
		return "recovering"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Trigger names what started a token refresh.
type Trigger string

const (
	TriggerRecovery     Trigger = "recovery"
	TriggerTimer        Trigger = "timer"
	TriggerUnauthorized Trigger = "unauthorized"
	TriggerManual       Trigger = "manual"
)
