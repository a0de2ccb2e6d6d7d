package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed = errors.New("jwtx: malformed token")
	ErrExpired   = errors.New("jwtx: token expired")
)

// Claims are the access-token claims issued by the lab auth service.
//
// The client never holds the signing key, so these are decoded without
// signature verification. They are a display hint (who am I, am I an admin)
// and must not gate anything; the API re-checks every request.
type Claims struct {
	jwt.RegisteredClaims

	// Username is the login name of the authenticated user
	Username string `json:"username,omitempty"`

	// Name is the display name
	Name string `json:"name,omitempty"`

	Admin  bool `json:"admin"`
	RoleID int  `json:"role_id"`
}

// ParseUnverified decodes the payload of a compact JWT. The signature is not
// checked.
func ParseUnverified(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMalformed
	}

	var c Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return nil, errors.Join(ErrMalformed, err)
	}
	return &c, nil
}

// ExpiresIn reports how long until the token expires, relative to now. It is
// zero for tokens without an exp claim.
func (c *Claims) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}

// ValidateExpiryWithLeeway adds a small grace period for clock skew.
func (c *Claims) ValidateExpiryWithLeeway(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	return nil
}
