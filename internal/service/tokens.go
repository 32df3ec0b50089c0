package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/versehub/console/internal/ports"
)

// Token store defaults.
const (
	DefaultTokenTTL             = 30 * 24 * time.Hour
	DefaultTokenProviderTimeout = 3 * time.Second
)

// TokenStoreOptions groups dependencies for TokenStore.
type TokenStoreOptions struct {
	Local           ports.TokenPersistence   // Required: fast per-client copy (cookie)
	Provider        ports.SessionTokenSource // Optional: authoritative session provider
	TTL             time.Duration            // Optional: local persistence lifetime
	ProviderTimeout time.Duration            // Optional: bound on the provider call
	Logger          *slog.Logger             // Optional: structured logger
	Now             func() time.Time         // Optional: clock for expiry checks
}

// TokenStore is the single read/write surface for the bearer credential.
// It reconciles the local copy with the session provider and writes through on fallback.
type TokenStore struct {
	local           ports.TokenPersistence
	provider        ports.SessionTokenSource
	ttl             time.Duration
	providerTimeout time.Duration
	logger          *slog.Logger
	now             func() time.Time
}

// NewTokenStore constructs a TokenStore. Local persistence is required.
func NewTokenStore(opts TokenStoreOptions) *TokenStore {
	s := &TokenStore{
		local:           opts.Local,
		provider:        opts.Provider,
		ttl:             opts.TTL,
		providerTimeout: opts.ProviderTimeout,
		logger:          opts.Logger,
		now:             opts.Now,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTokenTTL
	}
	if s.providerTimeout <= 0 {
		s.providerTimeout = DefaultTokenProviderTimeout
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "token_store")
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// GetToken returns the bearer credential, preferring the local copy.
// On a local miss it asks the session provider (bounded by the provider timeout) and
// writes a returned token back to local persistence. Provider failures are logged and
// reported as absent.
func (s *TokenStore) GetToken(ctx context.Context) (string, bool) {
	if tok, ok := s.local.LoadToken(); ok && tok != "" {
		if !s.expired(tok) {
			return tok, true
		}
		s.local.ClearToken()
	}

	if s.provider == nil {
		return "", false
	}

	pctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()

	tok, err := s.provider.SessionToken(pctx)
	if err != nil {
		s.logger.WarnContext(ctx, "session provider lookup failed", "error", err)
		return "", false
	}
	if tok == "" || s.expired(tok) {
		return "", false
	}

	s.local.StoreToken(tok, s.ttl)
	return tok, true
}

// SetToken overwrites the local copy. A non-positive ttl uses the store default.
// Setting an empty token clears it.
func (s *TokenStore) SetToken(token string, ttl time.Duration) {
	if token == "" {
		s.RemoveToken()
		return
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	s.local.StoreToken(token, ttl)
}

// RemoveToken clears the local copy. Removing an absent token is a no-op.
func (s *TokenStore) RemoveToken() {
	s.local.ClearToken()
}

// expired reports whether tok is a JWT whose exp claim is in the past.
// Opaque tokens, and JWTs without exp, are never considered expired here;
// the backend stays authoritative and answers 401 for them.
func (s *TokenStore) expired(tok string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !s.now().Before(exp.Time)
}

// MemoryTokens is an in-memory TokenPersistence for tools and tests.
type MemoryTokens struct {
	mu      sync.Mutex
	token   string
	expires time.Time
	now     func() time.Time
}

// NewMemoryTokens returns an empty MemoryTokens using the wall clock.
func NewMemoryTokens() *MemoryTokens { return &MemoryTokens{now: time.Now} }

func (m *MemoryTokens) LoadToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", false
	}
	if !m.expires.IsZero() && !m.now().Before(m.expires) {
		m.token = ""
		return "", false
	}
	return m.token, true
}

func (m *MemoryTokens) StoreToken(token string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.expires = time.Time{}
	if ttl > 0 {
		m.expires = m.now().Add(ttl)
	}
}

func (m *MemoryTokens) ClearToken() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.expires = time.Time{}
}
