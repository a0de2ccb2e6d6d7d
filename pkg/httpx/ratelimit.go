package httpx

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aussiebroadwan/labres/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// PerSecond builds a config allowing rps requests per second with an equal
// burst.
func PerSecond(rps int) RateLimitConfig {
	return RateLimitConfig{RequestsPerWindow: rps, Window: time.Second, Burst: rps}
}

// Enabled reports whether the config limits anything.
func (c RateLimitConfig) Enabled() bool {
	return c.RequestsPerWindow > 0 && c.Window > 0
}

// KeyExtractor groups requests that share a limiter.
type KeyExtractor func(*http.Request) string

// HostKeyExtractor keys by target host so the lab API and the auth service
// are throttled independently.
func HostKeyExtractor(r *http.Request) string {
	return r.URL.Host
}

// rateLimiter manages rate limiters for different keys
type rateLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// getLimiter retrieves or creates a rate limiter for the given key
func (rl *rateLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, ok := rl.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(rl.rate, rl.burst)
	actual, _ := rl.limiters.LoadOrStore(key, limiter)
	return actual.(*rate.Limiter)
}

// RateLimitTransport throttles outbound requests. Requests over the limit
// wait for a token instead of failing; a cancelled context aborts the wait.
type RateLimitTransport struct {
	base   http.RoundTripper
	rl     *rateLimiter
	keyFor KeyExtractor
}

// NewRateLimitTransport wraps base. A disabled config returns base unchanged.
func NewRateLimitTransport(base http.RoundTripper, config RateLimitConfig) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if !config.Enabled() {
		return base
	}

	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}
	ratePerSecond := float64(config.RequestsPerWindow) / config.Window.Seconds()

	return &RateLimitTransport{
		base: base,
		rl: &rateLimiter{
			rate:  rate.Limit(ratePerSecond),
			burst: burst,
		},
		keyFor: HostKeyExtractor,
	}
}

func (t *RateLimitTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()
	limiter := t.rl.getLimiter(t.keyFor(r))

	if !limiter.Allow() {
		slogx.FromContext(ctx).Debug("rate limit: waiting for token", "host", r.URL.Host)
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	return t.base.RoundTrip(r)
}
