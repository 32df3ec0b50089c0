package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/versehub/console/internal/domain/auth"
	apperrors "github.com/versehub/console/internal/errors"
	"github.com/versehub/console/internal/ports"
)

func jsonLogin(body string, cookies ...*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "application/json")
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func TestPasswordLogin_JSON(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.serve(jsonLogin(`{"email":"ama@example.com","password":"s3cret"}`))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "/dashboard", body["redirect_to"])

	sess := findCookie(resp, DefaultSessionCookie)
	require.NotNil(t, sess)
	assert.True(t, sess.HttpOnly)
	assert.Equal(t, []string{sess.Value}, env.sessions.IDs())

	token := findCookie(resp, DefaultTokenCookie)
	require.NotNil(t, token)
	assert.Equal(t, "tok-login", token.Value)
}

func TestPasswordLogin_FormRedirectsAdminToAdminLanding(t *testing.T) {
	env := newTestEnv(t, nil)
	env.creds.Identity.RoleID = domainauth.RoleAdmin

	form := url.Values{"email": {"ama@example.com"}, "password": {"s3cret"}}
	r := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("Accept", "text/html")

	resp := env.serve(r)

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/dashboard", resp.Header.Get("Location"))
}

func TestPasswordLogin_HonoursRememberedDestination(t *testing.T) {
	env := newTestEnv(t, nil)

	remembered := &http.Cookie{Name: postLoginRedirectCookie, Value: "/dashboard/geo"}
	resp := env.serve(jsonLogin(`{"email":"ama@example.com","password":"s3cret"}`, remembered))
	assert.Equal(t, "/dashboard/geo", decodeBody(t, resp)["redirect_to"])

	// a destination the new session may not view falls back to the landing page
	remembered.Value = "/admin/dashboard"
	resp = env.serve(jsonLogin(`{"email":"ama@example.com","password":"s3cret"}`, remembered))
	assert.Equal(t, "/dashboard", decodeBody(t, resp)["redirect_to"])
}

func TestPasswordLogin_BackendRejection(t *testing.T) {
	env := newTestEnv(t, nil)
	env.creds.ExchangeFunc = func(context.Context, ports.Credentials) (domainauth.Identity, error) {
		return domainauth.Identity{}, apperrors.Upstream(http.StatusUnauthorized, "invalid email or password")
	}

	resp := env.serve(jsonLogin(`{"email":"ama@example.com","password":"nope"}`))

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid email or password", decodeBody(t, resp)["message"])
	assert.Nil(t, findCookie(resp, DefaultSessionCookie))
}

func TestPasswordLogin_MissingFields(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.serve(jsonLogin(`{"email":"ama@example.com"}`))

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation", decodeBody(t, resp)["error"])
}

func TestSSOLogin_DisabledInPasswordMode(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.serve(apiGet("/auth/sso/login"))

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSSOCallback_RejectsStateMismatch(t *testing.T) {
	env := newTestEnv(t, nil)

	r := apiGet("/auth/sso/callback?code=abc&state=s1", &http.Cookie{Name: oauthStateCookie, Value: "other"})
	resp := env.serve(r)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_state", decodeBody(t, resp)["error"])
}

func TestRefresh_RotatesTokenAndRole(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.seed("s-user", domainauth.RoleStandard, "tok-old")

	r := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	r.AddCookie(sessionCookie(id))
	resp := env.serve(r)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/admin/dashboard", decodeBody(t, resp)["landing"])
	token := findCookie(resp, DefaultTokenCookie)
	require.NotNil(t, token)
	assert.Equal(t, "tok-rotated", token.Value)

	sess, err := env.auth.GetSession(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAdmin, sess.RoleID)
}

func TestRefresh_WithoutSession(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.serve(httptest.NewRequest(http.MethodPost, "/auth/refresh", nil))

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogout_ClearsSessionAndCookies(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.seed("s-user", domainauth.RoleStandard, "tok")

	r := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	r.Header.Set("Accept", "text/html")
	r.AddCookie(sessionCookie(id))
	r.AddCookie(&http.Cookie{Name: DefaultTokenCookie, Value: "tok"})
	resp := env.serve(r)

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Empty(t, env.sessions.IDs())
	for _, name := range []string{DefaultSessionCookie, DefaultTokenCookie} {
		c := findCookie(resp, name)
		require.NotNil(t, c, name)
		assert.Negative(t, c.MaxAge, name)
	}
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.serve(apiGet("/auth/status"))
	assert.Equal(t, false, decodeBody(t, resp)["authenticated"])

	id := env.seed("s-admin", domainauth.RoleAdmin, "tok")
	resp = env.serve(apiGet("/auth/status", sessionCookie(id)))
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, "/admin/dashboard", body["landing"])
}

func TestLoginPage_ConsumesNotice(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.serve(apiGet("/login", append(geoCookies(), &http.Cookie{Name: DefaultNoticeCookie, Value: noticeSessionExpired})...))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, noticeSessionExpired, body["notice"])
	assert.Equal(t, true, body["password_login"])
	cleared := findCookie(resp, DefaultNoticeCookie)
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)

	resp = env.serve(apiGet("/login", geoCookies()...))
	assert.NotContains(t, decodeBody(t, resp), "notice")
}
