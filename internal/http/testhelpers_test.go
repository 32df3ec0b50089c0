package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/versehub/console/internal/apiclient"
	"github.com/versehub/console/internal/domain/access"
	"github.com/versehub/console/internal/domain/analytics"
	domainauth "github.com/versehub/console/internal/domain/auth"
	"github.com/versehub/console/internal/domain/geo"
	mockauth "github.com/versehub/console/internal/mocks/auth"
	"github.com/versehub/console/internal/service"
)

var testRoutes = access.Routes{
	Login:        "/login",
	AdminPrefix:  "/admin",
	AdminLanding: "/admin/dashboard",
	UserLanding:  "/dashboard",
}

type stubResolver struct {
	mu    sync.Mutex
	calls int
	last  service.GeoRequest
	rec   geo.Record
	err   error
}

func (s *stubResolver) Resolve(_ context.Context, req service.GeoRequest) (geo.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.last = req
	return s.rec, s.err
}

func (s *stubResolver) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordedVisit struct {
	subject, path string
	rec           geo.Record
}

type stubVisits struct {
	mu       sync.Mutex
	recorded []recordedVisit
	listed   analytics.VisitListOptions
	visits   []*analytics.Visit
}

func (s *stubVisits) RecordAsync(subjectID, path string, rec geo.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorded = append(s.recorded, recordedVisit{subject: subjectID, path: path, rec: rec})
}

func (s *stubVisits) List(_ context.Context, opts analytics.VisitListOptions) ([]*analytics.Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listed = opts
	return s.visits, nil
}

type testEnv struct {
	t        *testing.T
	sessions *mockauth.MemorySessionStore
	creds    *mockauth.MockCredentialExchanger
	auth     *service.AuthService
	geo      *stubResolver
	visits   *stubVisits
	handler  http.Handler
}

// newTestEnv wires the router against an in-memory session store and a fake content backend.
func newTestEnv(t *testing.T, backend http.HandlerFunc) *testEnv {
	t.Helper()
	if backend == nil {
		backend = func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }
	}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	api, err := apiclient.New(apiclient.ClientOptions{BaseURL: srv.URL, TokenInvalidExpr: "tokenInvalid"})
	require.NoError(t, err)

	env := &testEnv{
		t:        t,
		sessions: mockauth.NewMemorySessionStore(),
		creds: &mockauth.MockCredentialExchanger{
			Email:    "ama@example.com",
			Password: "s3cret",
			Identity: domainauth.Identity{SubjectID: "u-1", RoleID: domainauth.RoleStandard, Email: "ama@example.com", Token: "tok-login"},
		},
		geo:    &stubResolver{rec: geo.Record{Browser: "Chrome", OS: "macOS", Device: geo.DeviceDesktop, Country: "Ghana", City: "Accra"}},
		visits: &stubVisits{},
	}
	env.auth = service.NewAuthService(service.AuthServiceOptions{
		Credentials: env.creds,
		Profiles:    &mockauth.MockProfileFetcher{Identity: domainauth.Identity{SubjectID: "u-1", RoleID: domainauth.RoleAdmin, Token: "tok-rotated"}},
		Sessions:    env.sessions,
	})
	env.handler = NewRouter(RouterServices{
		Auth:     env.auth,
		API:      api,
		Geo:      env.geo,
		Visits:   env.visits,
		Routes:   testRoutes,
		Public:   []string{"/auth/", "/healthz", "/metrics"},
		Siblings: SiblingPaths{Stories: "/products/{id}/stories", Chapters: "/stories/{id}/chapters", Verses: "/chapters/{id}/verses"},
	})
	return env
}

// seed stores a session and returns its id.
func (e *testEnv) seed(id string, role domainauth.RoleID, token string) string {
	e.t.Helper()
	require.NoError(e.t, e.sessions.Save(context.Background(), domainauth.Session{
		ID:        id,
		SubjectID: "subject-" + id,
		RoleID:    role,
		Token:     token,
		ExpiresAt: time.Now().Add(time.Hour),
	}))
	return id
}

func (e *testEnv) serve(r *http.Request) *http.Response {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, r)
	resp := rec.Result()
	e.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func browserGet(path string, cookies ...*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	r.Header.Set("Accept", "text/html,application/xhtml+xml")
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func apiGet(path string, cookies ...*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	r.Header.Set("Accept", "application/json")
	r.Header.Set("X-Requested-With", "XMLHttpRequest")
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func sessionCookie(id string) *http.Cookie { return &http.Cookie{Name: DefaultSessionCookie, Value: id} }

// geoCookies is a complete cookie set that lets GeoTagging skip resolution.
func geoCookies() []*http.Cookie {
	return []*http.Cookie{
		{Name: CookieBrowser, Value: "Firefox"},
		{Name: CookieOS, Value: "Linux"},
		{Name: CookieDevice, Value: "Desktop"},
		{Name: CookieCountry, Value: "Ghana"},
		{Name: CookieCity, Value: "Accra"},
	}
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
