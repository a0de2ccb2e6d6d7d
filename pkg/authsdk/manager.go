package authsdk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/labres/pkg/cryptox"
	"github.com/aussiebroadwan/labres/pkg/jwtx"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// DefaultRefreshInterval is the recurring refresh cadence. Access tokens
// live a few minutes longer than this.
const DefaultRefreshInterval = 4 * time.Minute

const (
	flightInit    = "init"
	flightRefresh = "refresh"
)

// Manager owns one session: the token pair, the decoded user, the lifecycle
// state and the recurring refresh timer. It is safe for concurrent use.
//
// All token exchanges go through one singleflight key, so the refresh timer
// and a burst of 401 responses share a single request to the auth service.
type Manager struct {
	client   *SDKClient
	storage  Storage
	clock    clockwork.Clock
	logger   *slog.Logger
	observer Observer
	interval time.Duration

	flight singleflight.Group

	mu    sync.RWMutex
	state State
	pair  TokenPair
	user  *User
	timer *refreshTimer

	// gen changes whenever the pair is replaced or cleared. A refresh that
	// finds a different gen after its exchange drops its result.
	gen uint64
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

func WithClock(c clockwork.Clock) ManagerOption {
	return func(m *Manager) { m.clock = c }
}

func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

func WithObserver(o Observer) ManagerOption {
	return func(m *Manager) { m.observer = o }
}

// WithRefreshInterval overrides DefaultRefreshInterval. Non-positive values
// are ignored.
func WithRefreshInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.interval = d
		}
	}
}

// NewManager creates a Manager in StateUninitialized. Call InitAuth to
// recover a persisted session.
func NewManager(client *SDKClient, storage Storage, opts ...ManagerOption) *Manager {
	m := &Manager{
		client:   client,
		storage:  storage,
		clock:    clockwork.NewRealClock(),
		logger:   slog.Default(),
		observer: nopObserver{},
		interval: DefaultRefreshInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ============================================================================
// Lifecycle
// ============================================================================

// InitAuth recovers the session from the stored refresh token. Only the
// first call does any work; concurrent first calls share it and later calls
// return the settled result. The returned error explains a failed recovery
// and is informational: the session is anonymous either way.
func (m *Manager) InitAuth(ctx context.Context) (bool, error) {
	if ok, settled := m.settled(); settled {
		return ok, nil
	}

	v, err, _ := m.flight.Do(flightInit, func() (any, error) {
		return m.recoverSession(context.WithoutCancel(ctx))
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (m *Manager) settled() (authenticated, settled bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	switch m.state {
	case StateAuthenticated:
		return true, true
	case StateAnonymous:
		return false, true
	default:
		return false, false
	}
}

func (m *Manager) recoverSession(ctx context.Context) (bool, error) {
	m.mu.Lock()
	if m.state != StateUninitialized {
		// Lost a race with a caller that already settled.
		ok := m.state == StateAuthenticated
		m.mu.Unlock()
		return ok, nil
	}
	m.state = StateRecovering
	gen := m.gen
	m.mu.Unlock()

	log := m.logger.With("trigger", TriggerRecovery)

	stored, err := m.storage.Get(ctx, KeyRefreshToken)
	if err != nil || stored == "" {
		m.settleAnonymous(gen)
		if err != nil && !errors.Is(err, ErrNotFound) {
			log.Warn("failed to read stored refresh token", "error", err)
			return false, fmt.Errorf("read refresh token: %w", err)
		}
		log.Debug("no stored session")
		return false, nil
	}

	pair, err := m.client.Refresh(ctx, stored)
	m.observer.RefreshCompleted(TriggerRecovery, err)
	if err != nil {
		// Only drop the stored token when the auth service refused it. A
		// network failure leaves it for the next start.
		if IsRejected(err) && m.sameGen(gen) {
			m.clearStored(ctx)
		}
		m.settleAnonymous(gen)
		log.Info("session recovery failed",
			"error", err,
			"token", cryptox.LogFingerprint(stored),
		)
		return false, fmt.Errorf("recover session: %w", err)
	}

	if !m.install(ctx, *pair, gen) {
		return m.State() == StateAuthenticated, nil
	}
	log.Info("session recovered", "user", m.username())
	return true, nil
}

// settleAnonymous moves a recovering session to anonymous unless something
// else changed it meanwhile.
func (m *Manager) settleAnonymous(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen == gen && m.state == StateRecovering {
		m.state = StateAnonymous
	}
}

// Login authenticates with credentials and starts the refresh timer.
func (m *Manager) Login(ctx context.Context, req LoginRequest) (*User, error) {
	pair, err := m.client.Login(ctx, req)
	if err != nil {
		return nil, err
	}
	m.installFresh(ctx, *pair)
	m.logger.Info("logged in", "user", m.username())
	return m.User(), nil
}

// Register creates an account, then behaves like Login.
func (m *Manager) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	pair, err := m.client.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	m.installFresh(ctx, *pair)
	m.logger.Info("registered", "user", m.username())
	return m.User(), nil
}

// Logout ends the session. Local teardown always happens first and always
// completes; the auth service is then told on a best-effort basis and its
// failure is only logged.
func (m *Manager) Logout(ctx context.Context) error {
	old := m.teardown(ctx)

	if old.IsZero() {
		return nil
	}
	if err := m.client.Logout(ctx, old.AccessToken, old.RefreshToken); err != nil {
		m.logger.Warn("remote logout failed", "error", err)
	}
	return nil
}

// Close stops the refresh timer and leaves stored tokens alone, so the next
// process can recover the session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimerLocked()
}

// ============================================================================
// Refresh
// ============================================================================

// Refresh exchanges the refresh token now and returns the new access token.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	return m.refresh(ctx, TriggerManual)
}

// refresh is the single in-flight refresh guard. Callers that arrive while
// an exchange is running wait for it and share its result.
func (m *Manager) refresh(ctx context.Context, trigger Trigger) (string, error) {
	v, err, shared := m.flight.Do(flightRefresh, func() (any, error) {
		return m.doRefresh(context.WithoutCancel(ctx), trigger)
	})
	if shared {
		m.logger.Debug("joined in-flight refresh", "trigger", trigger)
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) doRefresh(ctx context.Context, trigger Trigger) (string, error) {
	m.mu.RLock()
	refreshToken := m.pair.RefreshToken
	gen := m.gen
	m.mu.RUnlock()

	if refreshToken == "" {
		return "", ErrNotAuthenticated
	}

	pair, err := m.client.Refresh(ctx, refreshToken)
	m.observer.RefreshCompleted(trigger, err)
	if err != nil {
		m.logger.Warn("token refresh failed, ending session",
			"trigger", trigger,
			"error", err,
		)
		if m.sameGen(gen) {
			m.teardown(ctx)
		}
		return "", fmt.Errorf("refresh session: %w", err)
	}

	if !m.replace(ctx, *pair, gen) {
		return "", ErrSessionChanged
	}
	m.logger.Debug("token refreshed", "trigger", trigger)
	return pair.AccessToken, nil
}

func (m *Manager) sameGen(gen uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gen == gen
}

// ============================================================================
// State changes
// ============================================================================

// installFresh replaces whatever session exists with pair. Used by login and
// registration.
func (m *Manager) installFresh(ctx context.Context, pair TokenPair) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setPairLocked(ctx, pair)
	m.armTimerLocked()
}

// install stores pair as the new session and (re)arms the refresh timer. It
// fails if gen is stale.
func (m *Manager) install(ctx context.Context, pair TokenPair, gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen {
		return false
	}
	m.setPairLocked(ctx, pair)
	m.armTimerLocked()
	return true
}

// replace swaps in a refreshed pair. The running timer keeps its cadence.
func (m *Manager) replace(ctx context.Context, pair TokenPair, gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen {
		return false
	}
	m.setPairLocked(ctx, pair)
	return true
}

// setPairLocked replaces both tokens in one critical section and persists
// the refresh token. A storage failure is logged; the in-memory session is
// still valid for this process.
func (m *Manager) setPairLocked(ctx context.Context, pair TokenPair) {
	m.gen++
	m.pair = pair
	m.user = decodeUser(pair.AccessToken, m.logger)
	m.state = StateAuthenticated

	if err := m.storage.Set(ctx, KeyRefreshToken, pair.RefreshToken); err != nil {
		m.logger.Error("failed to persist refresh token", "error", err)
	}
}

// teardown clears the tokens in memory and in storage, cancels the refresh
// timer and drops the cached user, in that order. It returns the pair that
// was cleared.
func (m *Manager) teardown(ctx context.Context) TokenPair {
	ctx = context.WithoutCancel(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	old := m.pair
	m.gen++
	m.pair = TokenPair{}
	m.clearStored(ctx)
	m.stopTimerLocked()
	m.user = nil
	m.state = StateAnonymous
	return old
}

func (m *Manager) clearStored(ctx context.Context) {
	if err := m.storage.Delete(ctx, KeyRefreshToken); err != nil {
		m.logger.Error("failed to clear stored refresh token", "error", err)
	}
}

func decodeUser(accessToken string, logger *slog.Logger) *User {
	claims, err := jwtx.ParseUnverified(accessToken)
	if err != nil {
		logger.Debug("access token claims not decodable", "error", err)
		return nil
	}
	return &User{
		ID:       claims.Subject,
		Username: claims.Username,
		Name:     claims.Name,
		Admin:    claims.Admin,
		RoleID:   claims.RoleID,
	}
}

// ============================================================================
// Accessors
// ============================================================================

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) IsAuthenticated() bool {
	return m.State() == StateAuthenticated
}

// User returns a copy of the decoded user, or nil.
func (m *Manager) User() *User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// AccessToken returns the in-memory access token, empty when anonymous.
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pair.AccessToken
}

// Tokens returns both tokens as one consistent snapshot.
func (m *Manager) Tokens() TokenPair {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pair
}

func (m *Manager) username() string {
	if u := m.User(); u != nil {
		return u.Username
	}
	return ""
}
