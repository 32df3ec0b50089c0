package bootstrap

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/versehub/console/config"
	"github.com/versehub/console/internal/domain/access"
	httpx "github.com/versehub/console/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	DB       *sql.DB // Optional: adds a postgres health check
	Logger   *slog.Logger
}

// NewHTTPServer builds the HTTP server without starting it.
func NewHTTPServer(cfg *HTTPServerConfig) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	addr := appCfg.HTTP.Addr
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	return &http.Server{
		Addr: addr,
		Handler: buildHTTPHandler(httpHandlerConfig{
			Logger:   logger,
			Services: routerServices(appCfg, cfg.Services, cfg.DB, logger),
			HTTP:     appCfg.HTTP,
		}),
		ReadHeaderTimeout: appCfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func routerServices(cfg *config.AppConfig, sc ServiceContainer, db *sql.DB, logger *slog.Logger) httpx.RouterServices {
	rs := httpx.RouterServices{
		Auth:     sc.Auth,
		API:      sc.API,
		Teardown: sc.Teardown,
		Metrics:  sc.Metrics,
		Health:   healthChecks(sc, db),
		Routes: access.Routes{
			Login:        cfg.Routes.Login,
			AdminPrefix:  cfg.Routes.AdminPrefix,
			AdminLanding: cfg.Routes.AdminLanding,
			UserLanding:  cfg.Routes.UserLanding,
		},
		Public: cfg.Routes.Public,
		Siblings: httpx.SiblingPaths{
			Stories:  cfg.API.StoriesPath,
			Chapters: cfg.API.ChaptersPath,
			Verses:   cfg.API.VersesPath,
		},
		Cookies: httpx.CookieSettings{
			Domain: cfg.HTTP.CookieDomain,
			Secure: cfg.HTTP.SecureCookies(),
		},
		SessionCookie:   cfg.Tokens.SessionCookieName,
		TokenCookie:     cfg.Tokens.CookieName,
		NoticeCookie:    cfg.Tokens.NoticeCookieName,
		SessionTTL:      cfg.Tokens.SessionTTL,
		TokenTTL:        cfg.Tokens.TTL,
		ProviderTimeout: cfg.Tokens.ProviderTimeout,
		GeoCookieTTL:    cfg.Geo.CookieTTL,
		LogoutURL:       cfg.Auth.OAuth.LogoutURL,
		Logger:          logger,
	}
	if sc.Metrics != nil {
		rs.MetricsPath = cfg.Observability.Metrics.Path
	}
	// Interface fields stay nil rather than holding typed nil pointers.
	if sc.Geo != nil {
		rs.Geo = sc.Geo
	}
	if sc.Visits != nil {
		rs.Visits = sc.Visits
	}
	return rs
}

func healthChecks(sc ServiceContainer, db *sql.DB) map[string]httpx.HealthCheck {
	checks := make(map[string]httpx.HealthCheck, 2)
	if sc.Cache != nil {
		checks["redis"] = sc.Cache.Health
	}
	if db != nil {
		checks["postgres"] = func(ctx context.Context) error { return db.PingContext(ctx) }
	}
	return checks
}

type httpHandlerConfig struct {
	Logger   *slog.Logger
	Services httpx.RouterServices
	HTTP     config.HTTPConfig
}

func buildHTTPHandler(cfg httpHandlerConfig) http.Handler {
	router := httpx.NewRouter(cfg.Services)

	// Apply compression middleware first (innermost) so logging captures compressed sizes
	// Order: Recover -> Logging -> Compression -> Router
	h := router
	if cfg.HTTP.CompressionEnabled {
		cfg.Logger.Info("HTTP compression enabled", "level", cfg.HTTP.CompressionLevel)
		h = httpx.Compression(httpx.CompressionConfig{Level: cfg.HTTP.CompressionLevel, Logger: cfg.Logger})(h)
	}

	h = httpx.Logging(cfg.Logger, cfg.Services.Metrics)(h)
	h = httpx.Recover(cfg.Logger)(h)

	return h
}
