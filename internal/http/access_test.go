package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/versehub/console/internal/domain/access"
	domainauth "github.com/versehub/console/internal/domain/auth"
)

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestAccessGate_UnauthenticatedBrowserRedirectsToLogin(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.serve(browserGet("/dashboard?tab=2", geoCookies()...))

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	remembered := findCookie(resp, postLoginRedirectCookie)
	require.NotNil(t, remembered)
	assert.Equal(t, "/dashboard?tab=2", remembered.Value)
}

func TestAccessGate_UnauthenticatedXHRGets401(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.serve(apiGet("/admin/dashboard", geoCookies()...))

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "/login", body["redirect_to"])
	assert.Equal(t, string(access.ReasonUnauthenticated), body["error"])
}

func TestAccessGate_StandardUserKeptOffAdminSection(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.seed("s-user", domainauth.RoleStandard, "tok")

	resp := env.serve(browserGet("/admin/products/1/stories/next-order", append(geoCookies(), sessionCookie(id))...))
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	resp = env.serve(apiGet("/admin/dashboard", append(geoCookies(), sessionCookie(id))...))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "/dashboard", decodeBody(t, resp)["redirect_to"])
}

func TestAccessGate_AdminForcedToAdminLanding(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.seed("s-admin", domainauth.RoleAdmin, "tok")

	for _, path := range []string{"/", "/dashboard", "/dashboard/geo", "/admin"} {
		resp := env.serve(browserGet(path, append(geoCookies(), sessionCookie(id))...))
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, path)
		assert.Equal(t, "/admin/dashboard", resp.Header.Get("Location"), path)
	}
}

func TestAccessGate_AllowedRequestCarriesSession(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.seed("s-admin", domainauth.RoleAdmin, "tok")

	resp := env.serve(browserGet("/admin/dashboard", append(geoCookies(), sessionCookie(id))...))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "admin-dashboard", body["page"])
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "subject-s-admin", user["id"])
}

func TestAccessGate_LoginReachableByEveryone(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.seed("s-admin", domainauth.RoleAdmin, "tok")

	for _, cookies := range [][]*http.Cookie{geoCookies(), append(geoCookies(), sessionCookie(admin))} {
		resp := env.serve(browserGet("/login", cookies...))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func TestAccessGate_UnknownSessionIsUnauthenticated(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.serve(browserGet("/dashboard", append(geoCookies(), sessionCookie("nope"))...))

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestRouteMiddleware_PublicPathsBypassGeoAndGate(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/healthz", "/auth/status"} {
		resp := env.serve(apiGet(path))
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
	assert.Zero(t, env.geo.Calls())
}

func TestRouteMiddleware_GeoRunsBeforeGate(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.serve(browserGet("/dashboard"))

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, 1, env.geo.Calls())
	assert.NotNil(t, findCookie(resp, CookieCountry))
}

func TestAccessGate_RecordsFreshVisits(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.seed("s-user", domainauth.RoleStandard, "tok")

	env.serve(browserGet("/dashboard", sessionCookie(id)))
	env.serve(browserGet("/dashboard", append(geoCookies(), sessionCookie(id))...))

	env.visits.mu.Lock()
	defer env.visits.mu.Unlock()
	require.Len(t, env.visits.recorded, 1)
	assert.Equal(t, "subject-s-user", env.visits.recorded[0].subject)
	assert.Equal(t, "/dashboard", env.visits.recorded[0].path)
	assert.Equal(t, "Ghana", env.visits.recorded[0].rec.Country)
}

func TestIsPublicPath(t *testing.T) {
	public := []string{"/auth/", "/healthz", "/metrics"}
	tests := map[string]bool{
		"/auth/login":      true,
		"/auth":            true,
		"/healthz":         true,
		"/healthz/":        true,
		"/metrics":         true,
		"/metricsx":        false,
		"/authx":           false,
		"/dashboard":       false,
		"/auth/../admin":   false,
		"/admin/dashboard": false,
	}
	for path, want := range tests {
		assert.Equal(t, want, isPublicPath(path, public), path)
	}
}

func TestIsBrowserRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, isBrowserRequest(r))

	r.Header.Set("Accept", "text/html")
	assert.True(t, isBrowserRequest(r))

	r.Header.Set("Sec-Fetch-Mode", "cors")
	assert.False(t, isBrowserRequest(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Accept", "application/json")
	assert.False(t, isBrowserRequest(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Requested-With", "XMLHttpRequest")
	assert.False(t, isBrowserRequest(r))
}

func TestSafeRedirectPath(t *testing.T) {
	tests := map[string]string{
		"":                     "/",
		"/dashboard":           "/dashboard",
		"/dashboard?x=1":       "/dashboard?x=1",
		"https://evil.example": "/",
		"//evil.example/x":     "/",
		"/\\evil.example":      "/",
		"relative":             "/",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeRedirectPath(in), in)
	}
}
