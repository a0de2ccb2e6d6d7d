package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/labres/pkg/httpx"
	"github.com/aussiebroadwan/labres/pkg/jwtx"
	"github.com/aussiebroadwan/labres/pkg/slogx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-api-key"

// fakeAuth is an in-process auth service issuing rotating refresh tokens.
type fakeAuth struct {
	srv *httptest.Server

	mu     sync.Mutex
	valid  map[string]bool // live refresh tokens
	issued int

	refreshCalls atomic.Int32
	logoutCalls  atomic.Int32
	loginCalls   atomic.Int32

	// refreshStatus, when non-zero, makes /refresh fail with that status.
	refreshStatus atomic.Int32
	// logoutStatus, when non-zero, makes /logout fail with that status.
	logoutStatus atomic.Int32

	// gate, when set, holds /refresh until closed. Guarded by mu.
	gate chan struct{}
	// entered receives one value per /refresh request that reached the
	// handler.
	entered chan struct{}
}

func newFakeAuth(t *testing.T) *fakeAuth {
	t.Helper()

	f := &fakeAuth{
		valid:   make(map[string]bool),
		entered: make(chan struct{}, 64),
	}

	r := mux.NewRouter()
	r.Use(f.requireAPIKey)
	r.HandleFunc(PathLogin, f.handleLogin).Methods(http.MethodPost)
	r.HandleFunc(PathRegister, f.handleLogin).Methods(http.MethodPost)
	r.HandleFunc(PathRefresh, f.handleRefresh).Methods(http.MethodPost)
	r.HandleFunc(PathLogout, f.handleLogout).Methods(http.MethodPost)

	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAuth) client() *SDKClient {
	c := NewSDKClient(f.srv.URL)
	c.APIKey = testAPIKey
	return c
}

func (f *fakeAuth) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != testAPIKey {
			httpx.WriteJSON(w, http.StatusForbidden, map[string]string{"detail": "bad api key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// hold makes /refresh block until the returned func is called.
func (f *fakeAuth) hold() (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gate = gate
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.gate = nil
			f.mu.Unlock()
			close(gate)
		})
	}
}

// seed issues a pair without going through HTTP, as if from an earlier run.
func (f *fakeAuth) seed() TokenPair {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issueLocked("jdoe")
}

func (f *fakeAuth) issueLocked(username string) TokenPair {
	f.issued++
	claims := jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ID:        fmt.Sprintf("jti-%d", f.issued),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
		},
		Username: username,
		Name:     "Jane Doe",
		Admin:    false,
		RoleID:   2,
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	if err != nil {
		panic(err)
	}

	refresh := fmt.Sprintf("rt-%d", f.issued)
	f.valid[refresh] = true
	return TokenPair{
		AccessToken:           access,
		RefreshToken:          refresh,
		RefreshTokenExpiresAt: time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
	}
}

func (f *fakeAuth) handleLogin(w http.ResponseWriter, r *http.Request) {
	f.loginCalls.Add(1)

	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, map[string]string{"detail": "bad body"})
		return
	}
	if body.Password != "correct-horse" {
		httpx.WriteJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid credentials"})
		return
	}

	f.mu.Lock()
	pair := f.issueLocked(body.Username)
	f.mu.Unlock()
	httpx.WriteJSON(w, http.StatusOK, pair)
}

func (f *fakeAuth) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f.refreshCalls.Add(1)
	f.entered <- struct{}{}

	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	if code := f.refreshStatus.Load(); code != 0 {
		httpx.WriteJSON(w, int(code), map[string]string{"detail": "refresh rejected"})
		return
	}

	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.valid[body.RefreshToken] {
		httpx.WriteJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid refresh token"})
		return
	}
	delete(f.valid, body.RefreshToken)
	httpx.WriteJSON(w, http.StatusOK, f.issueLocked("jdoe"))
}

func (f *fakeAuth) handleLogout(w http.ResponseWriter, r *http.Request) {
	f.logoutCalls.Add(1)
	if code := f.logoutStatus.Load(); code != 0 {
		httpx.WriteJSON(w, int(code), map[string]string{"detail": "logout failed"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// memStorage is a Storage with optional failure injection.
type memStorage struct {
	mu      sync.Mutex
	data    map[string]string
	failSet bool
}

func newMemStorage() *memStorage {
	return &memStorage{data: make(map[string]string)}
}

func (s *memStorage) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *memStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSet {
		return fmt.Errorf("disk full")
	}
	s.data[key] = value
	return nil
}

func (s *memStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *memStorage) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

// countingObserver records lifecycle events.
type countingObserver struct {
	mu        sync.Mutex
	refreshes map[Trigger]int
	failures  int
	retries   int
}

func (o *countingObserver) RefreshCompleted(trigger Trigger, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.refreshes == nil {
		o.refreshes = make(map[Trigger]int)
	}
	o.refreshes[trigger]++
	if err != nil {
		o.failures++
	}
}

func (o *countingObserver) RequestRetried(bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retries++
}

func (o *countingObserver) count(trigger Trigger) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.refreshes[trigger]
}

type harness struct {
	auth    *fakeAuth
	storage *memStorage
	clock   *clockwork.FakeClock
	obs     *countingObserver
	m       *Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		auth:    newFakeAuth(t),
		storage: newMemStorage(),
		clock:   clockwork.NewFakeClock(),
		obs:     &countingObserver{},
	}
	h.m = NewManager(h.auth.client(), h.storage,
		WithClock(h.clock),
		WithLogger(slogx.Discard()),
		WithObserver(h.obs),
	)
	t.Cleanup(h.m.Close)
	return h
}

// storeSeeded persists a pair issued "in a previous run".
func (h *harness) storeSeeded(t *testing.T) TokenPair {
	t.Helper()
	pair := h.auth.seed()
	require.NoError(t, h.storage.Set(context.Background(), KeyRefreshToken, pair.RefreshToken))
	return pair
}

// waitTimers blocks until exactly n tickers are registered on the fake
// clock.
func (h *harness) waitTimers(t *testing.T, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.clock.BlockUntilContext(ctx, n))
}
