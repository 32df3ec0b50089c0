package bootstrap

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/versehub/console/config"
	"github.com/versehub/console/internal/apiclient"
	mockauth "github.com/versehub/console/internal/mocks/auth"
)

func testAppConfig() *config.AppConfig {
	cfg := &config.AppConfig{
		Services: "http",
		HTTP:     config.HTTPConfig{BaseURL: "https://console.example.com", CompressionEnabled: true},
		Routes: config.RoutesConfig{
			Login:        "/login",
			AdminPrefix:  "/admin",
			AdminLanding: "/admin/dashboard",
			UserLanding:  "/dashboard",
			Public:       []string{"/auth/", "/healthz"},
		},
		Auth: config.AuthConfig{Mode: config.AuthModePassword},
	}
	cfg.Sanitize()
	return cfg
}

func testServices(t *testing.T) ServiceContainer {
	t.Helper()
	client, err := apiclient.New(apiclient.ClientOptions{BaseURL: "http://backend.test/api"})
	require.NoError(t, err)
	auth, err := BuildAuthService(AuthConfig{
		Auth:     config.AuthConfig{Mode: config.AuthModePassword},
		Client:   client,
		Sessions: mockauth.NewMemorySessionStore(),
	})
	require.NoError(t, err)
	return ServiceContainer{Auth: auth, API: client}
}

func TestRouterServices_OptionalServicesStayNil(t *testing.T) {
	rs := routerServices(testAppConfig(), testServices(t), nil, slog.Default())

	assert.Nil(t, rs.Geo)
	assert.Nil(t, rs.Visits)
	assert.Empty(t, rs.MetricsPath)
	assert.Empty(t, rs.Health)
	assert.True(t, rs.Cookies.Secure)
	assert.Equal(t, "/admin/dashboard", rs.Routes.AdminLanding)
}

func TestNewHTTPServer_ServesHealthAndGatesPages(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewHTTPServer(&HTTPServerConfig{Config: testAppConfig(), Services: testServices(t), Logger: logger})

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Accept", "text/html")
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestHealthChecksSkipMissingDependencies(t *testing.T) {
	assert.Empty(t, healthChecks(ServiceContainer{}, nil))
}
