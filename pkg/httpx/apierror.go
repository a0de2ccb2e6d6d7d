package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx response from the lab API or the auth service.
type APIError struct {
	StatusCode int

	// Message is the server supplied explanation, empty when the body had
	// none we could recognise.
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// NewAPIError builds an APIError, extracting the message from body.
func NewAPIError(status int, body []byte) *APIError {
	return &APIError{StatusCode: status, Message: ExtractMessage(body)}
}

// ExtractMessage pulls a human readable message out of an error body. The
// fields are tried in order: detail, message, error. A body that is a JSON
// string, or not JSON at all, is used as is. FastAPI validation errors put a
// list under detail; the first entry's msg is used.
func ExtractMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err == nil {
		for _, key := range []string{"detail", "message", "error"} {
			if msg := rawMessage(obj[key]); msg != "" {
				return msg
			}
		}
		return ""
	}

	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return strings.TrimSpace(s)
	}

	// Plain text bodies, but not some other JSON value.
	if json.Valid(body) {
		return ""
	}
	return trimmed
}

func rawMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 {
		return strings.TrimSpace(items[0].Msg)
	}
	return ""
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// MessageOr returns the server message carried by err, or fallback.
func MessageOr(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
