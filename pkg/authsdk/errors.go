package authsdk

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/labres/pkg/httpx"
)

var (
	// ErrNotFound must be returned (or wrapped) by Storage.Get for an
	// absent key.
	ErrNotFound = errors.New("authsdk: storage key not found")

	ErrNotAuthenticated = errors.New("authsdk: not authenticated")

	// ErrInvalidRequest wraps validator errors for request structs. Nothing
	// is sent when it is returned.
	ErrInvalidRequest = errors.New("authsdk: invalid request")

	// ErrInvalidTokenResponse means a 2xx response without an access token.
	ErrInvalidTokenResponse = errors.New("authsdk: invalid token response")

	// ErrSessionChanged is returned by a refresh whose result was discarded
	// because a logout or a new login replaced the session meanwhile.
	ErrSessionChanged = errors.New("authsdk: session changed during refresh")
)

// IsRejected reports whether err is the auth service refusing the request
// (a 4xx), as opposed to a transport failure or a server fault.
func IsRejected(err error) bool {
	code := httpx.StatusCode(err)
	return code >= http.StatusBadRequest && code < http.StatusInternalServerError
}
