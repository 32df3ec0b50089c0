package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/versehub/console/config"
	"github.com/versehub/console/internal/adapters/geoip"
	redisadapter "github.com/versehub/console/internal/adapters/redis"
	"github.com/versehub/console/internal/apiclient"
	"github.com/versehub/console/internal/data"
	"github.com/versehub/console/internal/observability/metrics"
	"github.com/versehub/console/internal/service"
)

// ServiceContainer holds the services shared by the HTTP server and background loops.
type ServiceContainer struct {
	Auth      *service.AuthService
	API       *apiclient.Client
	Geo       *service.GeoResolver      // nil when geo tagging is disabled
	Visits    *service.VisitService     // nil when analytics is disabled
	Retention *service.RetentionService // nil when analytics is disabled
	Teardown  *service.SessionTeardown
	Sessions  *redisadapter.SessionStore
	Cache     *data.RedisCacheRepo
	Metrics   *metrics.Metrics
}

// ServiceDeps groups the infrastructure NewServices wires services onto.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices builds every service the enabled modes need.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps missing AppConfig")
	}
	if deps.RedisClient == nil {
		return ServiceContainer{}, errors.New("service deps missing redis client")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := buildMetrics(cfg.Observability)
	cache := data.NewRedisCacheRepo(deps.RedisClient)
	sessions := redisadapter.NewSessionStoreWithPrefix(deps.RedisClient, "session:")

	api, err := apiclient.New(apiclient.ClientOptions{
		BaseURL:          cfg.API.BaseURL,
		Timeout:          cfg.API.Timeout,
		TokenInvalidExpr: cfg.API.TokenInvalidExpr,
		OrderExpr:        cfg.API.OrderExpr,
		Metrics:          m,
		Logger:           logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build api client: %w", err)
	}

	auth, err := BuildAuthService(AuthConfig{
		Auth:       cfg.Auth,
		API:        cfg.API,
		Client:     api,
		Sessions:   sessions,
		SessionTTL: cfg.Tokens.SessionTTL,
		Logger:     logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	geo, err := BuildGeoResolver(cfg.Geo, cache, m, logger)
	if err != nil {
		return ServiceContainer{}, err
	}

	sc := ServiceContainer{
		Auth:     auth,
		API:      api,
		Geo:      geo,
		Sessions: sessions,
		Cache:    cache,
		Metrics:  m,
		Teardown: service.NewSessionTeardown(service.SessionTeardownOptions{
			Window:  cfg.Tokens.TeardownWindow,
			Marker:  cache,
			Metrics: m,
			Logger:  logger,
		}),
	}

	if cfg.Analytics.Enabled || cfg.IsRetentionEnabled() {
		if deps.DB == nil {
			return ServiceContainer{}, errors.New("analytics requires a database connection")
		}
		repo := data.NewVisitRepo(deps.DB)
		if cfg.Analytics.Enabled {
			sc.Visits, err = service.NewVisitService(service.VisitServiceOptions{
				Repo:          repo,
				RecordTimeout: cfg.Analytics.RecordTimeout,
				Logger:        logger,
			})
			if err != nil {
				return ServiceContainer{}, err
			}
		}
		sc.Retention, err = service.NewRetentionService(service.RetentionServiceOptions{
			Repo:   repo,
			Config: cfg.Analytics,
			Logger: logger,
		})
		if err != nil {
			return ServiceContainer{}, err
		}
	}

	return sc, nil
}

func buildMetrics(cfg config.ObservabilityConfig) *metrics.Metrics {
	if !cfg.Metrics.IsEnabled() {
		return nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return metrics.New(reg)
}

// BuildGeoResolver wires the configured providers into a resolver. It returns nil when geo
// tagging is disabled. cache may be nil.
func BuildGeoResolver(
	cfg config.GeoConfig,
	cache *data.RedisCacheRepo,
	m *metrics.Metrics,
	logger *slog.Logger,
) (*service.GeoResolver, error) {
	if !cfg.Enabled {
		return nil, nil //nolint:nilnil // geo tagging is optional
	}
	primary, err := geoip.New(geoip.Options{Name: "primary", Config: cfg.Primary})
	if err != nil {
		return nil, err
	}
	fallback, err := geoip.New(geoip.Options{Name: "fallback", Config: cfg.Fallback})
	if err != nil {
		return nil, err
	}
	opts := service.GeoResolverOptions{
		Primary:         primary,
		Fallback:        fallback,
		CacheTTL:        cfg.CacheTTL,
		PrimaryTimeout:  cfg.PrimaryTimeout,
		FallbackTimeout: cfg.FallbackTimeout,
		Metrics:         m,
		Logger:          logger,
	}
	if cfg.CacheTTL > 0 && cache != nil {
		opts.Cache = cache
	}
	if cfg.EnhanceEnabled {
		enhance, err := geoip.New(geoip.Options{Name: "enhance", Config: cfg.Enhance})
		if err != nil {
			return nil, err
		}
		opts.Enhancer = enhance
	}
	return service.NewGeoResolver(opts), nil
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// RunServicesWithShutdown starts all enabled services and blocks until a shutdown
// signal arrives or one of them fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RunServices(ctx, cfg)
}

// RunServices runs the enabled services until ctx is cancelled or one of them fails.
func RunServices(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if enabled[config.ServiceModeHTTP] {
		server := NewHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			DB:       cfg.DB,
			Logger:   logger,
		})
		g.Go(func() error {
			logger.InfoContext(gctx, "starting HTTP server", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return ShutdownHTTPServer(ShutdownConfig{
				Server:  server,
				Timeout: cfg.Config.HTTP.ShutdownTimeout,
				Visits:  cfg.Services.Visits,
				Logger:  logger,
			})
		})
	}

	if enabled[config.ServiceModeRetention] {
		if cfg.Services.Retention == nil {
			return errors.New("retention service enabled but not configured")
		}
		g.Go(func() error {
			logger.InfoContext(gctx, "background service started", "service", "retention")
			if err := cfg.Services.Retention.Run(gctx); err != nil {
				return fmt.Errorf("retention failed: %w", err)
			}
			logger.InfoContext(gctx, "retention stopped")
			return nil
		})
	}

	return g.Wait()
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Server  *http.Server
	Timeout time.Duration
	Visits  *service.VisitService // Optional: pending visit inserts are drained after shutdown
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	logger.Info("shutting down HTTP server")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := cfg.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if cfg.Visits != nil {
		cfg.Visits.Wait()
	}
	logger.Info("HTTP server stopped")
	return nil
}
