package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	domainauth "github.com/versehub/console/internal/domain/auth"
	"github.com/versehub/console/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthProvider        = (*MockAuthProvider)(nil)
	_ ports.CredentialExchanger = (*MockCredentialExchanger)(nil)
	_ ports.ProfileFetcher      = (*MockProfileFetcher)(nil)
	_ ports.SessionStore        = (*MemorySessionStore)(nil)
)

// MockAuthProvider simulates an IdP for tests with deterministic state/nonce handling.
type MockAuthProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error)

	// Deterministic values for predictable testing
	AuthURL     string
	StatePrefix string
	NoncePrefix string
	DefaultUser domainauth.Identity

	// Internal state tracking for deterministic behavior
	callCount int
}

// NewMockAuthProvider creates a MockAuthProvider with sensible defaults.
func NewMockAuthProvider() *MockAuthProvider {
	return &MockAuthProvider{
		AuthURL:     "https://mock-idp/auth",
		StatePrefix: "state",
		NoncePrefix: "nonce",
		DefaultUser: domainauth.Identity{
			SubjectID: "mock-user-1",
			Name:      "Mock User",
			Email:     "mock.user@example.com",
			Token:     "mock-id-token",
			Groups:    []string{"editors"},
		},
	}
}

func (m *MockAuthProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}

	m.callCount++
	authURL := m.AuthURL
	if authURL == "" {
		authURL = "https://mock-idp/auth"
	}
	statePrefix := m.StatePrefix
	if statePrefix == "" {
		statePrefix = "state"
	}
	noncePrefix := m.NoncePrefix
	if noncePrefix == "" {
		noncePrefix = "nonce"
	}

	return authURL, fmt.Sprintf("%s-%d", statePrefix, m.callCount), fmt.Sprintf("%s-%d", noncePrefix, m.callCount), nil
}

func (m *MockAuthProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}

	// Return a copy of the default user with a fresh expiration time
	user := m.DefaultUser
	user.ExpiresAt = time.Now().Add(time.Hour)
	return user, nil
}

// MockCredentialExchanger returns a fixed identity for matching credentials.
type MockCredentialExchanger struct {
	ExchangeFunc func(ctx context.Context, creds ports.Credentials) (domainauth.Identity, error)

	Email    string
	Password string
	Identity domainauth.Identity
}

// ErrBadCredentials is returned by MockCredentialExchanger when credentials do not match.
var ErrBadCredentials = errors.New("invalid credentials")

func (m *MockCredentialExchanger) ExchangeCredentials(ctx context.Context, creds ports.Credentials) (domainauth.Identity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, creds)
	}
	if creds.Email != m.Email || creds.Password != m.Password {
		return domainauth.Identity{}, ErrBadCredentials
	}
	return m.Identity, nil
}

// MockProfileFetcher returns a configurable identity for any token.
type MockProfileFetcher struct {
	FetchFunc func(ctx context.Context, token string) (domainauth.Identity, error)
	Identity  domainauth.Identity
	Calls     int
}

func (m *MockProfileFetcher) FetchProfile(ctx context.Context, token string) (domainauth.Identity, error) {
	m.Calls++
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, token)
	}
	return m.Identity, nil
}

// MemorySessionStore is an in-memory session store for unit tests. Safe for concurrent use.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
	deletes  int
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]domainauth.Session),
	}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return domainauth.Session{}, ErrNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	if id == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		m.deletes++
	}
	delete(m.sessions, id)
	return nil
}

// Deletes reports how many stored sessions were removed.
func (m *MemorySessionStore) Deletes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deletes
}

// IDs returns the stored session ids in sorted order.
func (m *MemorySessionStore) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ErrNotFound is returned by mocks when an entity is not present.
var ErrNotFound = ports.ErrSessionNotFound
