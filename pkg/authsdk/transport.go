package authsdk

import (
	"context"
	"io"
	"net/http"
	"strings"
)

type retriedKey struct{}

// Transport returns a RoundTripper that authenticates requests with the
// current access token. A 401 response triggers one refresh and one replay
// of the request; the replay is marked so its own 401 is returned as is.
// Requests to the auth service's refresh endpoint are never intercepted.
//
// When the refresh fails the session is torn down and the original 401
// response is returned.
func (m *Manager) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &authTransport{m: m, base: base}
}

type authTransport struct {
	m    *Manager
	base http.RoundTripper
}

func (t *authTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	out := r
	if token := t.m.AccessToken(); token != "" && r.Header.Get("Authorization") == "" {
		out = r.Clone(r.Context())
		out.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if isRetried(r.Context()) || t.isRefreshEndpoint(r) {
		return resp, nil
	}
	// A consumed body without GetBody cannot be sent again.
	if r.Body != nil && r.Body != http.NoBody && r.GetBody == nil {
		return resp, nil
	}

	token, rerr := t.m.refresh(r.Context(), TriggerUnauthorized)
	t.m.observer.RequestRetried(rerr == nil)
	if rerr != nil {
		return resp, nil
	}

	retry := r.Clone(context.WithValue(r.Context(), retriedKey{}, true))
	if r.GetBody != nil {
		body, err := r.GetBody()
		if err != nil {
			return resp, nil
		}
		retry.Body = body
	}
	retry.Header.Set("Authorization", "Bearer "+token)

	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return t.base.RoundTrip(retry)
}

func (t *authTransport) isRefreshEndpoint(r *http.Request) bool {
	u := r.URL.Scheme + "://" + r.URL.Host + r.URL.Path
	return strings.TrimSuffix(u, "/") == t.m.client.url(PathRefresh)
}

func isRetried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey{}).(bool)
	return v
}
