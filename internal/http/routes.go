package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/versehub/console/internal/apiclient"
	"github.com/versehub/console/internal/domain/access"
	"github.com/versehub/console/internal/observability/metrics"
	"github.com/versehub/console/internal/service"
)

// VisitService is the analytics surface used by the router.
type VisitService interface {
	VisitRecorder
	VisitLister
}

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth     AuthServiceInterface // Required
	API      *apiclient.Client    // Required: content backend
	Geo      GeoResolverInterface // Optional: nil disables geo tagging
	Visits   VisitService         // Optional: nil disables visitor analytics
	Teardown *service.SessionTeardown
	Metrics  *metrics.Metrics
	Health   map[string]HealthCheck

	Routes   access.Routes
	Public   []string // path prefixes outside the access gate
	Siblings SiblingPaths
	Cookies  CookieSettings

	SessionCookie   string
	TokenCookie     string
	NoticeCookie    string
	SessionTTL      time.Duration
	TokenTTL        time.Duration
	ProviderTimeout time.Duration
	GeoCookieTTL    time.Duration
	LogoutURL       string
	MetricsPath     string // empty disables /metrics

	Logger *slog.Logger
}

// NewRouter creates the HTTP router. Every non-public route runs behind geo tagging
// and the access gate; auth, health and metrics endpoints stay public.
func NewRouter(services RouterServices) http.Handler {
	if services.SessionCookie == "" {
		services.SessionCookie = DefaultSessionCookie
	}
	policy := access.NewPolicy(services.Routes)

	backend := NewBackend(BackendOptions{
		API:             services.API,
		Auth:            services.Auth,
		Teardown:        services.Teardown,
		Cookies:         services.Cookies,
		SessionCookie:   services.SessionCookie,
		TokenCookie:     services.TokenCookie,
		NoticeCookie:    services.NoticeCookie,
		LoginPath:       policy.Routes().Login,
		TokenTTL:        services.TokenTTL,
		ProviderTimeout: services.ProviderTimeout,
		Logger:          services.Logger,
	})
	authHandlers := &AuthHandlers{
		Svc:           services.Auth,
		Backend:       backend,
		Policy:        policy,
		Cookies:       services.Cookies,
		SessionCookie: services.SessionCookie,
		SessionTTL:    services.SessionTTL,
		TokenTTL:      services.TokenTTL,
		LogoutURL:     services.LogoutURL,
		Logger:        services.Logger,
	}
	pages := &PageHandlers{
		Backend:  backend,
		Visits:   services.Visits,
		Siblings: services.Siblings,
		Logger:   services.Logger,
	}

	mux := http.NewServeMux()
	registerAuthRoutes(mux, authHandlers)
	registerPageRoutes(mux, pages, policy.Routes())
	mux.Handle("GET "+policy.Routes().Login, http.HandlerFunc(authHandlers.LoginPage))
	health := healthHandler(services.Health)
	mux.Handle("GET /healthz", health)
	mux.Handle("HEAD /healthz", health)
	if services.MetricsPath != "" {
		mux.Handle("GET "+services.MetricsPath, services.Metrics.Handler())
	}

	gate := AccessGate(AccessGateOptions{
		Auth:          services.Auth,
		Policy:        policy,
		Cookies:       services.Cookies,
		SessionCookie: services.SessionCookie,
		Visits:        services.Visits,
		Metrics:       services.Metrics,
		Logger:        services.Logger,
	})
	routeOpts := RouteMiddlewareOptions{AccessGate: gate, Public: services.Public}
	if services.Geo != nil {
		routeOpts.GeoTagging = GeoTagging(GeoTaggingOptions{
			Resolver: services.Geo,
			Cookies:  services.Cookies,
			TTL:      services.GeoCookieTTL,
			Logger:   services.Logger,
		})
	}
	return RouteMiddleware(routeOpts)(mux)
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("POST /auth/login", h.PasswordLogin)
	mux.HandleFunc("GET /auth/sso/login", h.SSOLogin)
	mux.HandleFunc("GET /auth/sso/callback", h.SSOCallback)
	mux.HandleFunc("POST /auth/refresh", h.Refresh)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
}

func registerPageRoutes(mux *http.ServeMux, h *PageHandlers, routes access.Routes) {
	if routes.UserLanding != "/" {
		mux.Handle("GET /{$}", http.RedirectHandler(routes.UserLanding, http.StatusFound))
	}
	mux.HandleFunc("GET "+routes.UserLanding, h.Dashboard)
	mux.HandleFunc("GET "+routes.AdminLanding, h.AdminDashboard)
	mux.HandleFunc("GET /dashboard/geo", h.Geo)
	mux.HandleFunc("GET /admin/analytics/visits", h.ListVisits)
	mux.HandleFunc("GET /admin/products/{id}/stories/next-order", h.NextStoryOrder)
	mux.HandleFunc("GET /admin/stories/{id}/chapters/next-order", h.NextChapterOrder)
	mux.HandleFunc("GET /admin/chapters/{id}/verses/next-order", h.NextVerseOrder)
}
