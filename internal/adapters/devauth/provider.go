// Package devauth provides a config-driven AuthProvider for local development.
// It stands in for the IdP: Begin redirects straight back to the SSO callback and
// Exchange returns the configured identity.
package devauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	domainauth "github.com/versehub/console/internal/domain/auth"
	"github.com/versehub/console/internal/ports"
)

// DefaultCallbackPath is where Begin sends the browser.
const DefaultCallbackPath = "/auth/sso/callback"

// Config controls the dev auth provider behavior.
// UserID and Email are required; Token defaults to "dev-token".
type Config struct {
	UserID          string
	Email           string
	Name            string
	Token           string
	Groups          []string
	CallbackPath    string
	SessionDuration time.Duration // default 8h when zero
}

// Provider implements ports.AuthProvider for local development.
type Provider struct {
	callback        string
	sessionDuration time.Duration

	mu       sync.Mutex
	identity domainauth.Identity
}

var _ ports.AuthProvider = (*Provider)(nil)

// NewProvider constructs a dev auth provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.UserID == "" {
		return nil, errors.New("dev auth: UserID is required")
	}
	if cfg.Email == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	dur := cfg.SessionDuration
	if dur == 0 {
		dur = 8 * time.Hour
	}
	token := cfg.Token
	if token == "" {
		token = "dev-token"
	}
	callback := cfg.CallbackPath
	if callback == "" {
		callback = DefaultCallbackPath
	}
	return &Provider{
		callback: callback,
		identity: domainauth.Identity{
			SubjectID: cfg.UserID,
			Email:     cfg.Email,
			Name:      cfg.Name,
			Token:     token,
			Groups:    append([]string(nil), cfg.Groups...),
			ExpiresAt: time.Now().Add(dur),
		},
		sessionDuration: dur,
	}, nil
}

// Begin returns the local callback URL with freshly generated state and nonce.
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (string, string, string, error) {
	state, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}
	q := url.Values{"code": {"dev"}, "state": {state}}
	return p.callback + "?" + q.Encode(), state, nonce, nil
}

// Exchange ignores the code (state is checked by the handler) and returns the dev identity.
func (p *Provider) Exchange(_ context.Context, _ ports.ExchangeInput) (domainauth.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if time.Until(p.identity.ExpiresAt) < 5*time.Minute {
		p.identity.ExpiresAt = time.Now().Add(p.sessionDuration)
	}
	id := p.identity
	id.Groups = append([]string(nil), p.identity.Groups...)
	return id, nil
}

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	b := make([]byte, (n*3+3)/4+1)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:n], nil
}
