package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/versehub/console/config"
	"github.com/versehub/console/internal/adapters/authroles"
	"github.com/versehub/console/internal/adapters/backendauth"
	"github.com/versehub/console/internal/adapters/devauth"
	"github.com/versehub/console/internal/adapters/oidc"
	"github.com/versehub/console/internal/apiclient"
	"github.com/versehub/console/internal/ports"
	"github.com/versehub/console/internal/service"
)

// AuthConfig contains configuration for auth service.
type AuthConfig struct {
	Auth       config.AuthConfig
	API        config.APIConfig
	Client     *apiclient.Client // backend client for the credential exchange and profile refresh
	Sessions   ports.SessionStore
	SessionTTL time.Duration
	Logger     *slog.Logger
}

// BuildAuthService creates an auth service for the configured auth mode.
// Password mode exchanges credentials with the backend and refreshes profiles from it.
// SSO and mock modes take the role from IdP groups, so they do not refresh.
func BuildAuthService(cfg AuthConfig) (*service.AuthService, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("auth: session store is required")
	}
	if cfg.Client == nil {
		return nil, errors.New("auth: backend client is required")
	}

	exchanger, err := backendauth.New(backendauth.Options{
		Client:      cfg.Client,
		LoginPath:   cfg.API.LoginPath,
		ProfilePath: cfg.API.ProfilePath,
		TokenExpr:   cfg.API.TokenExpr,
		SubjectExpr: cfg.API.SubjectExpr,
		RoleExpr:    cfg.API.RoleExpr,
		EmailExpr:   cfg.API.EmailExpr,
		NameExpr:    cfg.API.NameExpr,
	})
	if err != nil {
		return nil, err
	}

	opts := service.AuthServiceOptions{
		Sessions:   cfg.Sessions,
		Roles:      authroles.StaticRoleMapper{AdminGroup: cfg.Auth.AdminGroup},
		SessionTTL: cfg.SessionTTL,
	}

	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		prov, err := buildDevAuthProvider(cfg.Auth.DevAuth)
		if err != nil {
			return nil, err
		}
		opts.Provider = prov
	case config.AuthModeOAuth:
		prov, err := buildOIDCProvider(cfg.Auth.OAuth)
		if err != nil {
			return nil, err
		}
		opts.Provider = prov
	case config.AuthModePassword, "":
		opts.Credentials = exchanger
		opts.Profiles = exchanger
	default:
		return nil, fmt.Errorf("auth: unsupported mode %q", cfg.Auth.Mode)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("auth service configured",
			"mode", cfg.Auth.Mode,
			"password_login", opts.Credentials != nil,
			"redirect_login", opts.Provider != nil,
		)
	}
	return service.NewAuthService(opts), nil
}

func buildDevAuthProvider(dev config.DevAuthConfig) (*devauth.Provider, error) {
	prov, err := devauth.NewProvider(devauth.Config{
		UserID: dev.UserID,
		Email:  dev.Email,
		Name:   dev.Name,
		Token:  dev.Token,
		Groups: dev.Groups,
		// session duration defaults inside provider
	})
	if err != nil {
		return nil, fmt.Errorf("create dev auth provider: %w", err)
	}
	return prov, nil
}

func buildOIDCProvider(oauth config.OAuthConfig) (*oidc.Provider, error) {
	if oauth.DiscoveryURL == "" || oauth.ClientID == "" || oauth.ClientSecret == "" {
		return nil, errors.New("auth: oauth mode requires discovery url, client id and client secret")
	}
	prov, err := oidc.NewProvider(oidc.ProviderConfig{
		ClientID:     oauth.ClientID,
		ClientSecret: oauth.ClientSecret,
		RedirectURL:  oauth.RedirectURL,
		Scope:        oauth.Scope,
		DiscoveryURL: oauth.DiscoveryURL,
		LogoutURL:    oauth.LogoutURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create OIDC provider: %w", err)
	}
	return prov, nil
}
