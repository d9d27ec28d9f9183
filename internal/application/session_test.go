package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nclarke/newsdeck/internal/domain/model"
	"github.com/nclarke/newsdeck/internal/domain/port/driven"
)

// --- Mock implementations for SessionManager tests ---

var errRejected = fmt.Errorf("HTTP 401: %w", driven.ErrUnauthorized)

type mockNewsAPI struct {
	mu sync.Mutex

	token string

	exchangeToken string
	exchangeErr   error
	createdUser   model.User
	createErr     error
	currentUser   model.User
	currentErr    error

	exchangeCalls int
	createCalls   int
	currentCalls  int

	// When non-nil, ExchangeToken closes exchangeStarted and blocks until
	// exchangeRelease is closed. Used to interleave operations.
	exchangeStarted chan struct{}
	exchangeRelease chan struct{}
}

func (m *mockNewsAPI) ExchangeToken(_ context.Context, _, _ string) (string, error) {
	m.mu.Lock()
	m.exchangeCalls++
	started, release := m.exchangeStarted, m.exchangeRelease
	m.mu.Unlock()

	if started != nil {
		close(started)
		<-release
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exchangeToken, m.exchangeErr
}

func (m *mockNewsAPI) CreateUser(_ context.Context, _, _, _ string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	return m.createdUser, m.createErr
}

func (m *mockNewsAPI) CurrentUser(_ context.Context) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentCalls++
	return m.currentUser, m.currentErr
}

func (m *mockNewsAPI) ListArticles(_ context.Context, _ model.ArticleFilter) ([]model.Article, error) {
	return nil, nil
}

func (m *mockNewsAPI) GetArticle(_ context.Context, _ int64) (model.Article, error) {
	return model.Article{}, nil
}

func (m *mockNewsAPI) RecordInteraction(_ context.Context, _ int64, _ string) error {
	return nil
}

func (m *mockNewsAPI) SetToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
}

func (m *mockNewsAPI) attachedToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

type mockTokenStore struct {
	mu     sync.Mutex
	values map[string]string

	getErr error
	setErr error
	delErr error
}

func newMockTokenStore() *mockTokenStore {
	return &mockTokenStore{values: map[string]string{}}
}

func (s *mockTokenStore) Get(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", s.getErr
	}
	return s.values[name], nil
}

func (s *mockTokenStore) Set(_ context.Context, name, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.values[name] = token
	return nil
}

func (s *mockTokenStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.delErr != nil {
		return s.delErr
	}
	delete(s.values, name)
	return nil
}

func (s *mockTokenStore) stored(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[name]
}

var testUser = model.User{
	ID:       7,
	Email:    "user@x.com",
	FullName: "Test User",
	IsActive: true,
}

func newTestManager(api *mockNewsAPI, store *mockTokenStore) *SessionManager {
	return NewSessionManager(api, store, slog.Default())
}

// --- Tests ---

func TestInitialize_NoStoredToken(t *testing.T) {
	api := &mockNewsAPI{}
	store := newMockTokenStore()
	mgr := newTestManager(api, store)

	mgr.Initialize(context.Background())

	sess := mgr.Session()
	assert.Equal(t, model.SessionUnauthenticated, sess.State)
	assert.Nil(t, sess.User)
	assert.Zero(t, api.currentCalls, "no network call should be made without a stored token")
}

func TestInitialize_StorageUnreadable(t *testing.T) {
	api := &mockNewsAPI{}
	store := newMockTokenStore()
	store.getErr = errors.New("disk exploded")
	mgr := newTestManager(api, store)

	mgr.Initialize(context.Background())

	assert.Equal(t, model.SessionUnauthenticated, mgr.Session().State)
}

func TestInitialize_RestoresPersistedSession(t *testing.T) {
	api := &mockNewsAPI{currentUser: testUser}
	store := newMockTokenStore()
	store.values[driven.SessionTokenSlot] = "tok-persisted"
	mgr := newTestManager(api, store)

	mgr.Initialize(context.Background())

	sess := mgr.Session()
	require.Equal(t, model.SessionAuthenticated, sess.State)
	require.NotNil(t, sess.User)
	assert.Equal(t, testUser.Email, sess.User.Email)
	assert.Equal(t, "tok-persisted", api.attachedToken())
}

func TestInitialize_RejectedTokenClearsStorage(t *testing.T) {
	api := &mockNewsAPI{currentErr: errRejected}
	store := newMockTokenStore()
	store.values[driven.SessionTokenSlot] = "tok-stale"
	mgr := newTestManager(api, store)

	mgr.Initialize(context.Background())

	assert.Equal(t, model.SessionUnauthenticated, mgr.Session().State)
	assert.Empty(t, store.stored(driven.SessionTokenSlot), "rejected token must be removed from storage")
	assert.Empty(t, api.attachedToken())
}

func TestLogin_Success(t *testing.T) {
	api := &mockNewsAPI{exchangeToken: "tok-1", currentUser: testUser}
	store := newMockTokenStore()
	mgr := newTestManager(api, store)
	mgr.Initialize(context.Background())

	err := mgr.Login(context.Background(), "user@x.com", "secret123")

	require.NoError(t, err)
	sess := mgr.Session()
	assert.Equal(t, model.SessionAuthenticated, sess.State)
	require.NotNil(t, sess.User)
	assert.Equal(t, testUser.Email, sess.User.Email)
	assert.Equal(t, "tok-1", store.stored(driven.SessionTokenSlot))
	assert.Equal(t, "tok-1", api.attachedToken())
}

func TestLogin_RoundTripAcrossRestart(t *testing.T) {
	store := newMockTokenStore()

	api1 := &mockNewsAPI{exchangeToken: "tok-1", currentUser: testUser}
	mgr1 := newTestManager(api1, store)
	mgr1.Initialize(context.Background())
	require.NoError(t, mgr1.Login(context.Background(), "user@x.com", "secret123"))

	// Simulated process restart: a fresh manager and client over the same
	// durable store.
	api2 := &mockNewsAPI{currentUser: testUser}
	mgr2 := newTestManager(api2, store)
	mgr2.Initialize(context.Background())

	sess := mgr2.Session()
	require.Equal(t, model.SessionAuthenticated, sess.State)
	require.NotNil(t, sess.User)
	assert.Equal(t, testUser.Email, sess.User.Email)
	assert.Equal(t, "tok-1", api2.attachedToken())
}

func TestLogin_RejectionLeavesNoTrace(t *testing.T) {
	api := &mockNewsAPI{exchangeErr: errRejected}
	store := newMockTokenStore()
	mgr := newTestManager(api, store)
	mgr.Initialize(context.Background())

	err := mgr.Login(context.Background(), "user@x.com", "wrong-password")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Empty(t, store.stored(driven.SessionTokenSlot))
	assert.Empty(t, api.attachedToken())
	assert.Equal(t, model.SessionUnauthenticated, mgr.Session().State)
}

func TestLogin_EmptyCredentialsNeverHitNetwork(t *testing.T) {
	api := &mockNewsAPI{}
	mgr := newTestManager(api, newMockTokenStore())

	assert.ErrorIs(t, mgr.Login(context.Background(), "", "secret123"), ErrInvalidCredentials)
	assert.ErrorIs(t, mgr.Login(context.Background(), "user@x.com", ""), ErrInvalidCredentials)
	assert.Zero(t, api.exchangeCalls)
}

func TestLogin_TokenRejectedByValidation(t *testing.T) {
	// The exchange succeeds but the who-am-I call rejects the new token:
	// the session must not be left half-authenticated.
	api := &mockNewsAPI{exchangeToken: "tok-dud", currentErr: errRejected}
	store := newMockTokenStore()
	mgr := newTestManager(api, store)
	mgr.Initialize(context.Background())

	err := mgr.Login(context.Background(), "user@x.com", "secret123")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, model.SessionUnauthenticated, mgr.Session().State)
	assert.Empty(t, store.stored(driven.SessionTokenSlot))
	assert.Empty(t, api.attachedToken())
}

func TestRegister_ChainsIntoAuthenticatedSession(t *testing.T) {
	api := &mockNewsAPI{exchangeToken: "tok-new", currentUser: testUser}
	store := newMockTokenStore()
	mgr := newTestManager(api, store)
	mgr.Initialize(context.Background())

	err := mgr.Register(context.Background(), "new@x.com", "pw12345678", "Jane Doe")

	require.NoError(t, err)
	assert.Equal(t, 1, api.createCalls)
	assert.Equal(t, 1, api.exchangeCalls, "registration must log in without a second user action")
	assert.Equal(t, model.SessionAuthenticated, mgr.Session().State)
	assert.Equal(t, "tok-new", store.stored(driven.SessionTokenSlot))
}

func TestRegister_RegistrationFailure(t *testing.T) {
	api := &mockNewsAPI{createErr: errors.New("HTTP 400: email already registered")}
	store := newMockTokenStore()
	mgr := newTestManager(api, store)
	mgr.Initialize(context.Background())

	err := mgr.Register(context.Background(), "new@x.com", "pw12345678", "Jane Doe")

	assert.ErrorIs(t, err, ErrRegistrationFailed)
	assert.NotErrorIs(t, err, ErrRegisteredNoSession)
	assert.Zero(t, api.exchangeCalls)
	assert.Empty(t, store.stored(driven.SessionTokenSlot))
}

func TestRegister_CreatedButLoginFailed(t *testing.T) {
	// The account now exists server-side with no local session; this is a
	// distinct outcome, not a generic registration failure.
	api := &mockNewsAPI{createdUser: testUser, exchangeErr: errors.New("connection reset")}
	store := newMockTokenStore()
	mgr := newTestManager(api, store)
	mgr.Initialize(context.Background())

	err := mgr.Register(context.Background(), "new@x.com", "pw12345678", "Jane Doe")

	assert.ErrorIs(t, err, ErrRegisteredNoSession)
	assert.Equal(t, model.SessionUnauthenticated, mgr.Session().State)
	assert.Empty(t, store.stored(driven.SessionTokenSlot))
}

func TestValidate_TransportErrorKeepsToken(t *testing.T) {
	api := &mockNewsAPI{exchangeToken: "tok-1", currentUser: testUser}
	store := newMockTokenStore()
	mgr := newTestManager(api, store)
	mgr.Initialize(context.Background())
	require.NoError(t, mgr.Login(context.Background(), "user@x.com", "secret123"))

	// A temporary outage must not log the user out.
	api.mu.Lock()
	api.currentErr = errors.New("dial tcp: connection refused")
	api.mu.Unlock()

	sess := mgr.Validate(context.Background())

	assert.Equal(t, model.SessionErrored, sess.State)
	assert.NotEmpty(t, sess.Message)
	assert.Equal(t, "tok-1", store.stored(driven.SessionTokenSlot), "transient failure must not clear the stored token")
	assert.Equal(t, "tok-1", api.attachedToken())
	require.NotNil(t, sess.User, "last known identity survives a transient failure")

	// The outage ends; the next validation heals the session.
	api.mu.Lock()
	api.currentErr = nil
	api.mu.Unlock()

	sess = mgr.Validate(context.Background())
	assert.Equal(t, model.SessionAuthenticated, sess.State)
}

func TestValidate_RejectionClearsSession(t *testing.T) {
	api := &mockNewsAPI{exchangeToken: "tok-1", currentUser: testUser}
	store := newMockTokenStore()
	mgr := newTestManager(api, store)
	mgr.Initialize(context.Background())
	require.NoError(t, mgr.Login(context.Background(), "user@x.com", "secret123"))

	api.mu.Lock()
	api.currentErr = errRejected
	api.mu.Unlock()

	sess := mgr.Validate(context.Background())

	assert.Equal(t, model.SessionUnauthenticated, sess.State)
	assert.Nil(t, sess.User)
	assert.Empty(t, store.stored(driven.SessionTokenSlot))
	assert.Empty(t, api.attachedToken())
}

func TestValidate_Idempotent(t *testing.T) {
	api := &mockNewsAPI{currentErr: errRejected}
	store := newMockTokenStore()
	store.values[driven.SessionTokenSlot] = "tok-stale"
	mgr := newTestManager(api, store)
	mgr.Initialize(context.Background())

	// Repeated validation of a dead session stays unauthenticated and
	// never errors.
	for i := 0; i < 3; i++ {
		sess := mgr.Validate(context.Background())
		assert.Equal(t, model.SessionUnauthenticated, sess.State)
	}
}

func TestLogout_Idempotent(t *testing.T) {
	api := &mockNewsAPI{}
	store := newMockTokenStore()
	mgr := newTestManager(api, store)
	mgr.Initialize(context.Background())

	mgr.Logout(context.Background())
	mgr.Logout(context.Background())

	sess := mgr.Session()
	assert.Equal(t, model.SessionUnauthenticated, sess.State)
	assert.Nil(t, sess.User)
}

func TestLogout_ClearsEverything(t *testing.T) {
	api := &mockNewsAPI{exchangeToken: "tok-1", currentUser: testUser}
	store := newMockTokenStore()
	mgr := newTestManager(api, store)
	mgr.Initialize(context.Background())
	require.NoError(t, mgr.Login(context.Background(), "user@x.com", "secret123"))

	mgr.Logout(context.Background())

	sess := mgr.Session()
	assert.Equal(t, model.SessionUnauthenticated, sess.State)
	assert.Nil(t, sess.User)
	assert.Empty(t, store.stored(driven.SessionTokenSlot))
	assert.Empty(t, api.attachedToken())
}

func TestLogout_StorageDeleteFailureStillClearsMemory(t *testing.T) {
	api := &mockNewsAPI{exchangeToken: "tok-1", currentUser: testUser}
	store := newMockTokenStore()
	mgr := newTestManager(api, store)
	mgr.Initialize(context.Background())
	require.NoError(t, mgr.Login(context.Background(), "user@x.com", "secret123"))

	store.mu.Lock()
	store.delErr = errors.New("disk read-only")
	store.mu.Unlock()

	mgr.Logout(context.Background())

	assert.Equal(t, model.SessionUnauthenticated, mgr.Session().State)
	assert.Empty(t, api.attachedToken())
}

// TestLogoutDuringPendingLogin documents the last-write-wins ordering: a
// logout issued while a login is blocked on the network is applied after
// the login completes, so the final state is unauthenticated. The manager
// serializes the operations; it does not cancel the in-flight one.
func TestLogoutDuringPendingLogin(t *testing.T) {
	api := &mockNewsAPI{
		exchangeToken:   "tok-1",
		currentUser:     testUser,
		exchangeStarted: make(chan struct{}),
		exchangeRelease: make(chan struct{}),
	}
	store := newMockTokenStore()
	mgr := newTestManager(api, store)
	mgr.Initialize(context.Background())

	loginDone := make(chan error, 1)
	go func() {
		loginDone <- mgr.Login(context.Background(), "user@x.com", "secret123")
	}()

	<-api.exchangeStarted

	logoutDone := make(chan struct{})
	go func() {
		// Blocks on the manager mutex until the login finishes.
		mgr.Logout(context.Background())
		close(logoutDone)
	}()

	close(api.exchangeRelease)
	require.NoError(t, <-loginDone)
	<-logoutDone

	sess := mgr.Session()
	assert.Equal(t, model.SessionUnauthenticated, sess.State)
	assert.Empty(t, store.stored(driven.SessionTokenSlot))
}

func TestSession_SnapshotIsACopy(t *testing.T) {
	api := &mockNewsAPI{exchangeToken: "tok-1", currentUser: testUser}
	store := newMockTokenStore()
	mgr := newTestManager(api, store)
	mgr.Initialize(context.Background())
	require.NoError(t, mgr.Login(context.Background(), "user@x.com", "secret123"))

	snap := mgr.Session()
	require.NotNil(t, snap.User)
	snap.User.Email = "mutated@x.com"

	assert.Equal(t, testUser.Email, mgr.Session().User.Email)
}
