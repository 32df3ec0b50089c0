package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"

	domainauth "github.com/versehub/console/internal/domain/auth"
)

// BeginInput carries inputs for initiating an auth flow.
type BeginInput struct {
	RedirectURL string
}

// AuthProvider initiates and completes a redirect-based authentication flow against an IdP.
type AuthProvider interface {
	// Begin starts the login flow and returns the provider auth URL, an opaque state, and a nonce.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)

	// Exchange completes the login flow, verifying state and nonce, and returns the authenticated identity.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, error)
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// Credentials is an email and password pair submitted to the login form.
type Credentials struct {
	Email    string
	Password string
}

// CredentialExchanger trades user credentials for an identity and bearer token.
type CredentialExchanger interface {
	ExchangeCredentials(ctx context.Context, creds Credentials) (domainauth.Identity, error)
}

// ProfileFetcher re-reads the signed-in principal using its current bearer token.
// Used by the session refresh flow.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, token string) (domainauth.Identity, error)
}

// ErrSessionNotFound is returned by session stores when no live session exists for an id.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists and retrieves user sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// RoleMapper maps provider groups to backend role ids.
type RoleMapper interface {
	Map(groups []string) domainauth.RoleID
}
