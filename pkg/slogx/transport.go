package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/labres/pkg/idx"
)

// RequestIDHeader carries the correlation id to the lab and auth services.
const RequestIDHeader = "X-Request-ID"

// Transport logs every outbound request. Each request gets a ULID request id
// sent as X-Request-ID, unless the caller already set one, and the id is
// attached to the context logger so downstream log lines share it.
//
// Only method, host, path, status and timing are logged. Headers and bodies
// carry tokens and are never written.
type Transport struct {
	Base   http.RoundTripper
	Logger *slog.Logger
}

// NewTransport wraps base, defaulting to http.DefaultTransport.
func NewTransport(base http.RoundTripper, logger *slog.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{Base: base, Logger: logger}
}

func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()

	reqID := r.Header.Get(RequestIDHeader)
	if _, err := idx.Parse(reqID); err != nil {
		reqID = idx.New().String()
	}

	ctx := r.Context()
	if t.Logger != nil {
		ctx = WithContext(ctx, t.Logger)
	}
	ctx = WithRequestID(ctx, reqID)
	logger := FromContext(ctx).With(
		"method", r.Method,
		"host", r.URL.Host,
		"path", r.URL.Path,
	)

	// RoundTrippers must not modify the caller's request.
	r = r.Clone(WithContext(ctx, logger))
	r.Header.Set(RequestIDHeader, reqID)

	resp, err := t.Base.RoundTrip(r)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		logger.Warn("http_client_request",
			"error", err,
			"duration_ms", duration,
		)
		return nil, err
	}

	level := slog.LevelDebug
	if resp.StatusCode >= http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "http_client_request",
		"status", resp.StatusCode,
		"duration_ms", duration,
	)
	return resp, nil
}
