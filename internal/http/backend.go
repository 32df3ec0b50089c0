package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/versehub/console/internal/apiclient"
	"github.com/versehub/console/internal/service"
)

// Default cookie names and lifetimes.
const (
	DefaultSessionCookie = "session_id"
	DefaultTokenCookie   = "token"
	DefaultNoticeCookie  = "session_notice"

	noticeSessionExpired = "session_expired"
	noticeTTL            = 5 * time.Minute
)

// BackendOptions groups dependencies for Backend.
type BackendOptions struct {
	API             *apiclient.Client    // Required: content backend client
	Auth            AuthServiceInterface // Optional: session provider for the token store
	Teardown        *service.SessionTeardown
	Cookies         CookieSettings
	SessionCookie   string
	TokenCookie     string
	NoticeCookie    string
	LoginPath       string
	TokenTTL        time.Duration
	ProviderTimeout time.Duration
	Logger          *slog.Logger
}

// Backend binds the content backend client to one request/response pair: a token store
// over the token cookie, and a teardown that runs when the backend rejects the credential.
type Backend struct {
	opts   BackendOptions
	logger *slog.Logger
}

// NewBackend constructs a Backend, applying cookie name defaults.
func NewBackend(opts BackendOptions) *Backend {
	if opts.SessionCookie == "" {
		opts.SessionCookie = DefaultSessionCookie
	}
	if opts.TokenCookie == "" {
		opts.TokenCookie = DefaultTokenCookie
	}
	if opts.NoticeCookie == "" {
		opts.NoticeCookie = DefaultNoticeCookie
	}
	if opts.LoginPath == "" {
		opts.LoginPath = "/login"
	}
	if opts.Teardown == nil {
		opts.Teardown = service.NewSessionTeardown(service.SessionTeardownOptions{Logger: opts.Logger})
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{opts: opts, logger: logger.With("component", "backend")}
}

// requestBackend is the per-request view of the backend.
type requestBackend struct {
	tokens *service.TokenStore
	caller *apiclient.Caller
}

// forRequest returns the token store and pipeline caller for this request.
func (b *Backend) forRequest(w http.ResponseWriter, r *http.Request) *requestBackend {
	sessionID := cookieValue(r, b.opts.SessionCookie)
	store := service.NewTokenStore(service.TokenStoreOptions{
		Local:           newRequestTokens(w, r, b.opts.Cookies, b.opts.TokenCookie),
		Provider:        sessionTokens{auth: b.opts.Auth, sessionID: sessionID},
		TTL:             b.opts.TokenTTL,
		ProviderTimeout: b.opts.ProviderTimeout,
		Logger:          b.logger,
	})
	rb := &requestBackend{tokens: store}
	rb.caller = b.opts.API.As(store, func(ctx context.Context) {
		b.teardown(ctx, w, r, store, sessionID)
	})
	return rb
}

// teardown clears this client's credential state. The response-scoped part runs every time;
// the shared part (notice, server-side session delete) runs once per session across
// concurrent failures.
func (b *Backend) teardown(ctx context.Context, w http.ResponseWriter, r *http.Request, store *service.TokenStore, sessionID string) {
	store.RemoveToken()
	if cookieValue(r, b.opts.SessionCookie) != "" {
		b.opts.Cookies.clear(w, r, b.opts.SessionCookie)
	}

	if sessionID == "" {
		b.setNotice(w, r)
		return
	}
	_, err := b.opts.Teardown.Run(ctx, sessionID, func(ctx context.Context) error {
		b.setNotice(w, r)
		if b.opts.Auth == nil {
			return nil
		}
		return b.opts.Auth.Logout(ctx, sessionID)
	})
	if err != nil {
		b.logger.WarnContext(ctx, "session teardown incomplete", "error", err)
	}
}

func (b *Backend) setNotice(w http.ResponseWriter, r *http.Request) {
	b.opts.Cookies.set(w, r, b.opts.NoticeCookie, noticeSessionExpired, noticeTTL, true)
}

// consumeNotice returns and clears the one-shot session notice.
func (b *Backend) consumeNotice(w http.ResponseWriter, r *http.Request) string {
	v := cookieValue(r, b.opts.NoticeCookie)
	if v != "" {
		b.opts.Cookies.clear(w, r, b.opts.NoticeCookie)
	}
	return v
}

func (b *Backend) loginPath() string { return b.opts.LoginPath }
