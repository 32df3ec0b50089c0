package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// CookieSettings carries the attributes shared by every cookie the console writes.
type CookieSettings struct {
	Domain string
	// Secure forces the Secure flag; otherwise it follows the request scheme.
	Secure bool
}

func (c CookieSettings) secure(r *http.Request) bool {
	if c.Secure || r.TLS != nil {
		return true
	}
	// X-Forwarded-Proto may carry a comma-separated chain, e.g. "https,http".
	for _, proto := range strings.Split(r.Header.Get("X-Forwarded-Proto"), ",") {
		if strings.EqualFold(strings.TrimSpace(proto), "https") {
			return true
		}
	}
	return false
}

// set writes a cookie with path "/" and SameSite=Lax.
func (c CookieSettings) set(w http.ResponseWriter, r *http.Request, name, value string, ttl time.Duration, httpOnly bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: httpOnly,
		Secure:   c.secure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl).UTC(),
	})
}

// clear expires a cookie, mirroring the attributes used when it was set.
func (c CookieSettings) clear(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.secure(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

func cookieValue(r *http.Request, name string) string {
	if c, err := r.Cookie(name); err == nil {
		return c.Value
	}
	return ""
}

// requestTokens is the cookie-backed local token copy for one request/response pair.
// Writes are recorded in an overlay so later reads within the same request see them.
type requestTokens struct {
	w       http.ResponseWriter
	r       *http.Request
	cookies CookieSettings
	name    string

	written bool
	value   string
}

func newRequestTokens(w http.ResponseWriter, r *http.Request, cookies CookieSettings, name string) *requestTokens {
	return &requestTokens{w: w, r: r, cookies: cookies, name: name}
}

func (t *requestTokens) LoadToken() (string, bool) {
	if t.written {
		return t.value, t.value != ""
	}
	v := cookieValue(t.r, t.name)
	return v, v != ""
}

func (t *requestTokens) StoreToken(token string, ttl time.Duration) {
	t.cookies.set(t.w, t.r, t.name, token, ttl, true)
	t.written, t.value = true, token
}

func (t *requestTokens) ClearToken() {
	if t.written && t.value == "" {
		return
	}
	if !t.written && cookieValue(t.r, t.name) == "" {
		return
	}
	t.cookies.clear(t.w, t.r, t.name)
	t.written, t.value = true, ""
}

// sessionTokens adapts the auth service to the token store's session provider port.
type sessionTokens struct {
	auth      AuthServiceInterface
	sessionID string
}

func (s sessionTokens) SessionToken(ctx context.Context) (string, error) {
	if s.auth == nil {
		return "", nil
	}
	return s.auth.SessionToken(ctx, s.sessionID)
}
