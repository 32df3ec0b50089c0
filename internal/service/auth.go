package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/versehub/console/internal/domain/auth"
	apperrors "github.com/versehub/console/internal/errors"
	"github.com/versehub/console/internal/ports"
)

// DefaultSessionTTL is the lifetime of a server-side session record when the provider
// does not report an expiry of its own.
const DefaultSessionTTL = 365 * 24 * time.Hour

// AuthServiceOptions groups dependencies for AuthService.
// Provider drives redirect-based logins (OIDC or dev auth); Credentials drives the password form.
// Either may be nil when the corresponding mode is disabled.
type AuthServiceOptions struct {
	Provider    ports.AuthProvider
	Credentials ports.CredentialExchanger
	Profiles    ports.ProfileFetcher
	Sessions    ports.SessionStore
	Roles       ports.RoleMapper
	SessionTTL  time.Duration
	Now         func() time.Time
}

// AuthService orchestrates authentication flows by coordinating providers, role mapping, and session persistence.
type AuthService struct {
	provider    ports.AuthProvider
	credentials ports.CredentialExchanger
	profiles    ports.ProfileFetcher
	sessions    ports.SessionStore
	roles       ports.RoleMapper
	sessionTTL  time.Duration
	now         func() time.Time
}

var (
	errSessionExpired = errors.New("session expired")

	// ErrModeDisabled is returned when a login flow is invoked that the current auth mode does not support.
	ErrModeDisabled = errors.New("login flow not enabled")
)

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		provider:    opts.Provider,
		credentials: opts.Credentials,
		profiles:    opts.Profiles,
		sessions:    opts.Sessions,
		roles:       opts.Roles,
		sessionTTL:  ttl,
		now:         now,
	}
}

// SupportsPassword reports whether the password form is enabled.
func (s *AuthService) SupportsPassword() bool { return s.credentials != nil }

// SupportsRedirect reports whether a redirect-based (SSO or dev) login is enabled.
func (s *AuthService) SupportsRedirect() bool { return s.provider != nil }

// BeginLoginResult contains the result of beginning a login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin initiates a redirect-based authentication flow and returns the provider auth URL with state and nonce.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if s.provider == nil {
		return nil, ErrModeDisabled
	}
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}

	return &BeginLoginResult{
		AuthURL: authURL,
		State:   state,
		Nonce:   nonce,
	}, nil
}

// CompleteLoginInput groups parameters for completing a login flow.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
}

// CompleteLoginResult contains the result of completing a login flow.
type CompleteLoginResult struct {
	Session domainauth.Session
}

// CompleteLogin completes a redirect-based flow by exchanging the code for an identity,
// mapping groups to a role id, and persisting a session.
func (s *AuthService) CompleteLogin(ctx context.Context, input CompleteLoginInput) (*CompleteLoginResult, error) {
	if s.provider == nil {
		return nil, ErrModeDisabled
	}
	if input.Code == "" {
		return nil, errors.New("authorization code is required")
	}
	if input.State == "" {
		return nil, errors.New("state parameter is required")
	}
	if input.Nonce == "" {
		return nil, errors.New("nonce parameter is required")
	}

	identity, err := s.provider.Exchange(ctx, ports.ExchangeInput{
		Code:  input.Code,
		State: input.State,
		Nonce: input.Nonce,
	})
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	// Group membership decides the role for IdP identities.
	if s.roles != nil {
		identity.RoleID = s.roles.Map(identity.Groups)
	}

	session, err := s.createSession(ctx, identity)
	if err != nil {
		return nil, err
	}
	return &CompleteLoginResult{Session: session}, nil
}

// LoginWithPassword exchanges credentials with the backend and persists a new session.
func (s *AuthService) LoginWithPassword(ctx context.Context, creds ports.Credentials) (*domainauth.Session, error) {
	if s.credentials == nil {
		return nil, ErrModeDisabled
	}
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return nil, apperrors.ValidationField("email", "email and password are required")
	}

	identity, err := s.credentials.ExchangeCredentials(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("exchange credentials: %w", err)
	}
	if identity.Token == "" {
		return nil, errors.New("exchange credentials: backend returned no token")
	}

	session, err := s.createSession(ctx, identity)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *AuthService) createSession(ctx context.Context, identity domainauth.Identity) (domainauth.Session, error) {
	expiresAt := identity.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = s.now().Add(s.sessionTTL)
	}

	session := domainauth.Session{
		ID:        generateSessionID(),
		SubjectID: identity.SubjectID,
		RoleID:    identity.RoleID,
		Email:     identity.Email,
		Name:      identity.Name,
		Token:     identity.Token,
		ExpiresAt: expiresAt,
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return domainauth.Session{}, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}

// GetSession retrieves a session by ID.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if s.now().After(session.ExpiresAt) {
		// Clean up expired session
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
			return nil, errors.Join(errSessionExpired, fmt.Errorf("delete session: %w", deleteErr))
		}
		return nil, errSessionExpired
	}

	return &session, nil
}

// Refresh re-reads the principal from the backend with the session's current token and
// updates role, profile and (when rotated) token. The session keeps its id and expiry.
func (s *AuthService) Refresh(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if s.profiles == nil {
		return nil, ErrModeDisabled
	}
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	identity, err := s.profiles.FetchProfile(ctx, session.Token)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	if identity.SubjectID != "" {
		session.SubjectID = identity.SubjectID
	}
	if identity.RoleID != 0 {
		session.RoleID = identity.RoleID
	}
	if identity.Email != "" {
		session.Email = identity.Email
	}
	if identity.Name != "" {
		session.Name = identity.Name
	}
	if identity.Token != "" {
		session.Token = identity.Token
	}

	if err := s.sessions.Save(ctx, *session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}

// Logout removes a session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil // Nothing to logout
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// SessionToken returns the bearer token stored on the session, or "" when the
// session is missing or expired. It backs the token store's provider fallback.
func (s *AuthService) SessionToken(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", nil
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ports.ErrSessionNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("get session: %w", err)
	}
	if s.now().After(sess.ExpiresAt) {
		return "", nil
	}
	return sess.Token, nil
}

// generateSessionID creates a cryptographically secure random session ID.
func generateSessionID() string {
	// Use UUID for session ID - it's URL-safe and has good entropy
	return uuid.New().String()
}
