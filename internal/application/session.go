// Package application holds the use-case services that sit between the
// driving adapters and the domain ports.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nclarke/newsdeck/internal/domain/model"
	"github.com/nclarke/newsdeck/internal/domain/port/driven"
)

// Sentinel errors surfaced to the view layer. Raw API error detail is
// logged but never shown to the user.
var (
	// ErrInvalidCredentials is returned by Login for any credential
	// rejection or transport failure during the exchange.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrRegistrationFailed is returned by Register when the registration
	// call itself failed; no local state was changed.
	ErrRegistrationFailed = errors.New("registration failed")

	// ErrRegisteredNoSession is returned by Register when the account was
	// created server-side but the follow-up login failed. The account
	// exists; the user can sign in manually.
	ErrRegisteredNoSession = errors.New("account created but sign-in failed")
)

// SessionManager owns the authentication token lifecycle against the news
// API: acquisition, durable persistence, attachment to outbound calls,
// validation, and invalidation. It is the single source of truth for
// "who is logged in".
//
// All operations serialize on an internal mutex, so interleaved calls from
// concurrent HTTP handlers are safe. Ordering across operations is still
// last-write-wins: a Logout issued while a Login is blocked on the network
// will be applied in whichever order the lock admits them.
type SessionManager struct {
	api    driven.NewsAPI
	tokens driven.TokenStore
	logger *slog.Logger

	mu      sync.Mutex
	state   model.SessionState
	user    *model.User
	message string
}

// NewSessionManager creates a SessionManager in the loading state. One
// instance is constructed per running application; call Initialize before
// serving traffic.
func NewSessionManager(api driven.NewsAPI, tokens driven.TokenStore, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		api:    api,
		tokens: tokens,
		logger: logger,
		state:  model.SessionLoading,
	}
}

// Session returns a point-in-time snapshot of the session state.
func (m *SessionManager) Session() model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := model.Session{State: m.state, Message: m.message}
	if m.user != nil {
		u := *m.user
		snap.User = &u
	}
	return snap
}

// Initialize restores a persisted session at process start. It never
// returns an error: a missing token, unreadable storage, or a failed
// validation all degrade to an unauthenticated (or errored) state and are
// logged. No network call is made when no token is stored.
func (m *SessionManager) Initialize(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, err := m.tokens.Get(ctx, driven.SessionTokenSlot)
	if err != nil {
		m.logger.Warn("session: token storage unreadable, starting unauthenticated", "error", err)
		m.becomeUnauthenticatedLocked(ctx)
		return
	}
	if token == "" {
		m.becomeUnauthenticatedLocked(ctx)
		return
	}

	m.api.SetToken(token)
	m.validateLocked(ctx)
}

// Login exchanges credentials for a session token, persists it, attaches
// it to the API client, and validates it to populate the user identity.
// On any failure the caller receives ErrInvalidCredentials; the underlying
// cause is logged only.
func (m *SessionManager) Login(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loginLocked(ctx, email, password)
}

func (m *SessionManager) loginLocked(ctx context.Context, email, password string) error {
	token, err := m.api.ExchangeToken(ctx, email, password)
	if err != nil {
		m.logger.Info("session: credential exchange failed", "error", err)
		return ErrInvalidCredentials
	}

	// A failed persist is not fatal: the session stays usable in memory,
	// it just will not survive a restart.
	if err := m.tokens.Set(ctx, driven.SessionTokenSlot, token); err != nil {
		m.logger.Warn("session: failed to persist token", "error", err)
	}

	m.api.SetToken(token)

	if !m.validateLocked(ctx) {
		return ErrInvalidCredentials
	}
	return nil
}

// Register creates an account and immediately logs in, so registration
// yields an authenticated session in one flow. A failure of the
// registration call leaves no local state. A failure of the follow-up
// login is the distinct ErrRegisteredNoSession outcome: the account exists
// server-side with no local session.
func (m *SessionManager) Register(ctx context.Context, email, password, fullName string) error {
	if email == "" || password == "" || fullName == "" {
		return ErrRegistrationFailed
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.api.CreateUser(ctx, email, password, fullName); err != nil {
		m.logger.Info("session: registration failed", "email", email, "error", err)
		return ErrRegistrationFailed
	}

	if err := m.loginLocked(ctx, email, password); err != nil {
		m.logger.Warn("session: account created but follow-up login failed", "email", email)
		return fmt.Errorf("%w: %w", ErrRegisteredNoSession, err)
	}
	return nil
}

// Validate re-checks the attached token against the API and refreshes the
// user identity. Safe to call repeatedly; see validateLocked for the
// rejection-vs-transport distinction.
func (m *SessionManager) Validate(ctx context.Context) model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.validateLocked(ctx)

	snap := model.Session{State: m.state, Message: m.message}
	if m.user != nil {
		u := *m.user
		snap.User = &u
	}
	return snap
}

// validateLocked calls the who-am-I endpoint and applies the result.
// An explicit authorization rejection clears the session entirely; a
// transport failure preserves the token and marks the session errored so
// a temporary outage cannot log the user out. Returns true when the
// session ends up authenticated.
func (m *SessionManager) validateLocked(ctx context.Context) bool {
	user, err := m.api.CurrentUser(ctx)
	if err == nil {
		m.state = model.SessionAuthenticated
		m.user = &user
		m.message = ""
		return true
	}

	if errors.Is(err, driven.ErrUnauthorized) {
		m.logger.Info("session: token rejected, clearing session", "error", err)
		m.becomeUnauthenticatedLocked(ctx)
		return false
	}

	m.logger.Warn("session: validation failed with transport error, keeping token", "error", err)
	m.state = model.SessionErrored
	m.message = "Temporarily unable to verify your session"
	return false
}

// Logout clears the session unconditionally: stored token, attached
// credential, and user identity. Idempotent; no network call is made.
func (m *SessionManager) Logout(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.becomeUnauthenticatedLocked(ctx)
}

// becomeUnauthenticatedLocked clears all session state. Storage delete
// failures are logged, never surfaced; the in-memory state is
// authoritative for the rest of the process lifetime.
func (m *SessionManager) becomeUnauthenticatedLocked(ctx context.Context) {
	if err := m.tokens.Delete(ctx, driven.SessionTokenSlot); err != nil {
		m.logger.Warn("session: failed to delete stored token", "error", err)
	}
	m.api.SetToken("")
	m.user = nil
	m.message = ""
	m.state = model.SessionUnauthenticated
}
