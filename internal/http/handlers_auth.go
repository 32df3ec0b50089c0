package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/versehub/console/internal/domain/access"
	domainauth "github.com/versehub/console/internal/domain/auth"
	apperrors "github.com/versehub/console/internal/errors"
	"github.com/versehub/console/internal/ports"
	"github.com/versehub/console/internal/service"
)

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	SupportsPassword() bool
	SupportsRedirect() bool
	BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	CompleteLogin(ctx context.Context, input service.CompleteLoginInput) (*service.CompleteLoginResult, error)
	LoginWithPassword(ctx context.Context, creds ports.Credentials) (*domainauth.Session, error)
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
	Refresh(ctx context.Context, sessionID string) (*domainauth.Session, error)
	Logout(ctx context.Context, sessionID string) error
	SessionToken(ctx context.Context, sessionID string) (string, error)
}

const (
	oauthStateCookie = "oauth_state"
	oauthNonceCookie = "oauth_nonce"
	oauthCookieTTL   = 10 * time.Minute
)

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc           AuthServiceInterface
	Backend       *Backend
	Policy        access.Policy
	Cookies       CookieSettings
	SessionCookie string
	SessionTTL    time.Duration
	TokenTTL      time.Duration
	LogoutURL     string // Optional: IdP end-session endpoint
	Logger        *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *AuthHandlers) sessionCookie() string {
	if h.SessionCookie == "" {
		return DefaultSessionCookie
	}
	return h.SessionCookie
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PasswordLogin exchanges email and password with the backend.
// POST /auth/login (form or JSON).
func (h *AuthHandlers) PasswordLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if !DecodeJSON(w, r, &in) {
			return
		}
	} else {
		in.Email = r.FormValue("email")
		in.Password = r.FormValue("password")
	}

	sess, err := h.Svc.LoginWithPassword(r.Context(), ports.Credentials{Email: in.Email, Password: in.Password})
	if err != nil {
		h.writeLoginError(w, r, err)
		return
	}

	h.startSession(w, r, sess)
	h.finishLogin(w, r, sess)
}

func (h *AuthHandlers) writeLoginError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrModeDisabled):
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "mode_disabled", Err: err})
	case apperrors.GetCode(err) != "":
		WriteAppError(w, err)
	default:
		h.logger().ErrorContext(r.Context(), "login failed", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "login_failed",
			Err:     errors.New("login failed"),
		})
	}
}

// SSOLogin handles the redirect login initiation endpoint.
// GET /auth/sso/login?redirect_uri=<optional_redirect>.
func (h *AuthHandlers) SSOLogin(w http.ResponseWriter, r *http.Request) {
	redirectURI := safeRedirectPath(r.URL.Query().Get("redirect_uri"))

	result, err := h.Svc.BeginLogin(r.Context(), redirectURI)
	if err != nil {
		h.writeLoginError(w, r, err)
		return
	}

	h.Cookies.set(w, r, oauthStateCookie, result.State, oauthCookieTTL, true)
	h.Cookies.set(w, r, oauthNonceCookie, result.Nonce, oauthCookieTTL, true)
	if redirectURI != "/" {
		h.Cookies.set(w, r, postLoginRedirectCookie, redirectURI, oauthCookieTTL, true)
	}

	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// SSOCallback handles the IdP callback endpoint.
// GET /auth/sso/callback?code=<code>&state=<state>.
func (h *AuthHandlers) SSOCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_code",
			Err:     errors.New("authorization code is required"),
		})
		return
	}
	if state == "" || cookieValue(r, oauthStateCookie) != state {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_state",
			Err:     errors.New("invalid or missing state parameter"),
		})
		return
	}
	nonce := cookieValue(r, oauthNonceCookie)
	if nonce == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_nonce",
			Err:     errors.New("missing nonce parameter"),
		})
		return
	}

	result, err := h.Svc.CompleteLogin(r.Context(), service.CompleteLoginInput{Code: code, State: state, Nonce: nonce})
	if err != nil {
		h.logger().WarnContext(r.Context(), "sso login failed", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "login_completion_failed",
			Err:     errors.New("login could not be completed"),
		})
		return
	}

	h.Cookies.clear(w, r, oauthStateCookie)
	h.Cookies.clear(w, r, oauthNonceCookie)
	h.startSession(w, r, &result.Session)
	http.Redirect(w, r, h.postLoginTarget(w, r, &result.Session), http.StatusFound)
}

// Refresh re-reads the principal from the backend and rewrites session and token.
// POST /auth/refresh.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	sessionID := cookieValue(r, h.sessionCookie())
	if sessionID == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: string(apperrors.ErrCodeUnauthenticated),
			Err:     errors.New("authentication required"),
		})
		return
	}

	sess, err := h.Svc.Refresh(r.Context(), sessionID)
	if err != nil {
		if apperrors.IsSessionExpired(err) && h.Backend != nil {
			rb := h.Backend.forRequest(w, r)
			h.Backend.teardown(r.Context(), w, r, rb.tokens, sessionID)
		}
		h.writeLoginError(w, r, err)
		return
	}

	if h.Backend != nil {
		h.Backend.forRequest(w, r).tokens.SetToken(sess.Token, h.TokenTTL)
	}
	WriteJSON(w, http.StatusOK, statusBody(sess, h.landing(sess)))
}

// Logout handles the logout endpoint.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID := cookieValue(r, h.sessionCookie()); sessionID != "" {
		if err := h.Svc.Logout(r.Context(), sessionID); err != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", err)
		}
	}
	h.Cookies.clear(w, r, h.sessionCookie())
	if h.Backend != nil {
		h.Backend.forRequest(w, r).tokens.RemoveToken()
	}

	target := h.Policy.Routes().Login
	if h.LogoutURL != "" {
		target = h.LogoutURL
	}
	if wantsJSON(r) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "success", "redirect_to": target})
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Status returns the current authentication status.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	sessionID := cookieValue(r, h.sessionCookie())
	if sessionID == "" {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	sess, err := h.Svc.GetSession(r.Context(), sessionID)
	if err != nil {
		// Session is invalid or expired, clear the cookie
		h.Cookies.clear(w, r, h.sessionCookie())
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	WriteJSON(w, http.StatusOK, statusBody(sess, h.landing(sess)))
}

// LoginPage describes the login surface and consumes the one-shot session notice.
// GET /login.
func (h *AuthHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"password_login": h.Svc.SupportsPassword(),
		"sso_login":      h.Svc.SupportsRedirect(),
	}
	if h.Backend != nil {
		if notice := h.Backend.consumeNotice(w, r); notice != "" {
			body["notice"] = notice
		}
	}
	WriteJSON(w, http.StatusOK, body)
}

func statusBody(sess *domainauth.Session, landing string) map[string]any {
	return map[string]any{
		"authenticated": true,
		"user": map[string]any{
			"id":      sess.SubjectID,
			"email":   sess.Email,
			"name":    sess.Name,
			"role_id": sess.RoleID,
			"admin":   sess.IsAdmin(),
		},
		"landing":    landing,
		"expires_at": sess.ExpiresAt,
	}
}

// startSession writes the session cookie and seeds the token cookie.
func (h *AuthHandlers) startSession(w http.ResponseWriter, r *http.Request, sess *domainauth.Session) {
	ttl := h.SessionTTL
	if until := time.Until(sess.ExpiresAt); ttl <= 0 || until < ttl {
		ttl = until
	}
	h.Cookies.set(w, r, h.sessionCookie(), sess.ID, ttl, true)
	if h.Backend != nil {
		h.Backend.forRequest(w, r).tokens.SetToken(sess.Token, h.TokenTTL)
	}
}

func (h *AuthHandlers) finishLogin(w http.ResponseWriter, r *http.Request, sess *domainauth.Session) {
	target := h.postLoginTarget(w, r, sess)
	if wantsJSON(r) {
		body := statusBody(sess, h.landing(sess))
		body["redirect_to"] = target
		WriteJSON(w, http.StatusOK, body)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *AuthHandlers) landing(sess *domainauth.Session) string {
	if sess.IsAdmin() {
		return h.Policy.Routes().AdminLanding
	}
	return h.Policy.Routes().UserLanding
}

// postLoginTarget returns the remembered destination when the new session may view it,
// otherwise the role landing page. The remembered destination is consumed.
func (h *AuthHandlers) postLoginTarget(w http.ResponseWriter, r *http.Request, sess *domainauth.Session) string {
	target := h.landing(sess)
	raw := cookieValue(r, postLoginRedirectCookie)
	if raw == "" {
		return target
	}
	h.Cookies.clear(w, r, postLoginRedirectCookie)

	candidate := safeRedirectPath(raw)
	u, err := url.Parse(candidate)
	if err != nil || candidate == "/" {
		return target
	}
	if u.Path == h.Policy.Routes().Login {
		return target
	}
	if h.Policy.Evaluate(sess, u.Path).Allowed() {
		return candidate
	}
	return target
}
