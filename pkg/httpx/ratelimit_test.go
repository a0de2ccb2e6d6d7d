package httpx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/labres/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestRateLimitTransportDisabled(t *testing.T) {
	base := http.DefaultTransport
	rt := httpx.NewRateLimitTransport(base, httpx.RateLimitConfig{})
	require.Equal(t, base, rt)
}

func TestRateLimitTransportWaits(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := &http.Client{Transport: httpx.NewRateLimitTransport(nil, httpx.RateLimitConfig{
		RequestsPerWindow: 1,
		Window:            time.Hour,
		Burst:             1,
	})}

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	// The bucket is empty for an hour, so the next request waits until the
	// context gives up instead of reaching the server.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	require.Error(t, err)
	require.Equal(t, int32(1), hits.Load())
}

func TestRateLimitTransportBurst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := &http.Client{Transport: httpx.NewRateLimitTransport(nil, httpx.PerSecond(5))}

	start := time.Now()
	for i := 0; i < 5; i++ {
		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		resp.Body.Close()
	}
	require.Less(t, time.Since(start), time.Second)
}
