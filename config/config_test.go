package config

import (
	"reflect"
	"strings"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:     "single service - http",
			input:    "http",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true},
		},
		{
			name:     "single service - retention",
			input:    "retention",
			expected: map[ServiceMode]bool{ServiceModeRetention: true},
		},
		{
			name:     "multiple services with whitespace",
			input:    " http , retention ",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true, ServiceModeRetention: true},
		},
		{
			name:        "empty string",
			input:       "",
			expectError: true,
		},
		{
			name:        "only separators",
			input:       ", ,",
			expectError: true,
		},
		{
			name:        "unknown service",
			input:       "http,scheduler",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServices(tt.input)
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("ParseServices(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestAppConfig_Defaults(t *testing.T) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Auth.Mode != AuthModePassword {
		t.Errorf("Auth.Mode = %q, want password", cfg.Auth.Mode)
	}
	if cfg.Tokens.TTL != 30*24*time.Hour {
		t.Errorf("Tokens.TTL = %v, want 30 days", cfg.Tokens.TTL)
	}
	if cfg.Tokens.SessionTTL != 365*24*time.Hour {
		t.Errorf("Tokens.SessionTTL = %v, want 365 days", cfg.Tokens.SessionTTL)
	}
	if cfg.Tokens.ProviderTimeout != 3*time.Second {
		t.Errorf("Tokens.ProviderTimeout = %v, want 3s", cfg.Tokens.ProviderTimeout)
	}
	if cfg.Geo.FallbackTimeout != 5*time.Second {
		t.Errorf("Geo.FallbackTimeout = %v, want 5s", cfg.Geo.FallbackTimeout)
	}
	if cfg.Geo.CookieTTL != 24*time.Hour {
		t.Errorf("Geo.CookieTTL = %v, want 24h", cfg.Geo.CookieTTL)
	}
	if cfg.Geo.Primary != DefaultGeoPrimary {
		t.Errorf("Geo.Primary = %#v, want defaults", cfg.Geo.Primary)
	}
	if cfg.Geo.Fallback.URL != "https://ipapi.co/json/" {
		t.Errorf("Geo.Fallback.URL = %q", cfg.Geo.Fallback.URL)
	}
	if !reflect.DeepEqual(cfg.Routes.Public, []string{"/auth/", "/healthz", "/metrics"}) {
		t.Errorf("Routes.Public = %v", cfg.Routes.Public)
	}
	if cfg.Analytics.RetentionMaxAge != 90*24*time.Hour {
		t.Errorf("Analytics.RetentionMaxAge = %v, want 90 days", cfg.Analytics.RetentionMaxAge)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestAppConfig_ParseAuthEnv(t *testing.T) {
	t.Setenv("AUTH_MODE", "OAuth")
	t.Setenv("ADMIN_GROUP", "cn=admins,ou=groups,dc=example,dc=org")
	t.Setenv("OAUTH_CLIENT_ID", "console-client")
	t.Setenv("OAUTH_CLIENT_SECRET", "super-secret")
	t.Setenv("OAUTH_REDIRECT_URL", "https://console.example.com/auth/sso/callback")
	t.Setenv("OAUTH_DISCOVERY_URL", "https://login.example.com/.well-known/openid-configuration")
	t.Setenv("OAUTH_SCOPE", "openid profile email")
	t.Setenv("DEV_AUTH_USER_ID", "dev-user")
	t.Setenv("DEV_AUTH_EMAIL", "dev@example.com")
	t.Setenv("DEV_AUTH_GROUPS", "admins;editors")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}

	expected := AuthConfig{
		Mode: AuthModeOAuth,
		OAuth: OAuthConfig{
			ClientID:     "console-client",
			ClientSecret: "super-secret",
			RedirectURL:  "https://console.example.com/auth/sso/callback",
			Scope:        "openid profile email",
			DiscoveryURL: "https://login.example.com/.well-known/openid-configuration",
		},
		DevAuth: DevAuthConfig{
			UserID: "dev-user",
			Email:  "dev@example.com",
			Name:   "Dev User",
			Token:  "dev-token",
			Groups: []string{"admins", "editors"},
		},
		AdminGroup: "cn=admins,ou=groups,dc=example,dc=org",
	}

	if !reflect.DeepEqual(cfg.Auth, expected) {
		t.Fatalf("unexpected auth configuration:\nexpected: %#v\ngot:      %#v", expected, cfg.Auth)
	}
}

func TestAppConfig_InvalidAuthMode(t *testing.T) {
	t.Setenv("AUTH_MODE", "ldap")

	var cfg AppConfig
	if err := env.Parse(&cfg); err == nil {
		t.Fatal("expected error for invalid AUTH_MODE")
	}
}

func TestAuthConfig_OAuthRequiresDiscovery(t *testing.T) {
	a := AuthConfig{Mode: AuthModeOAuth}
	if err := a.Validate(); err == nil {
		t.Fatal("expected error when discovery URL is missing")
	}
	a.OAuth.DiscoveryURL = "https://login.example.com"
	if err := a.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGeoConfig_ProviderOverrides(t *testing.T) {
	t.Setenv("GEO_PRIMARY_URL", "https://geo.internal/lookup/{ip}")
	t.Setenv("GEO_PRIMARY_CITY", "location.city")
	t.Setenv("GEO_FALLBACK_TIMEOUT", "0s")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Geo.Primary.URL != "https://geo.internal/lookup/{ip}" {
		t.Errorf("Primary.URL = %q", cfg.Geo.Primary.URL)
	}
	if cfg.Geo.Primary.City != "location.city" {
		t.Errorf("Primary.City = %q", cfg.Geo.Primary.City)
	}
	// untouched fields keep the slot defaults
	if cfg.Geo.Primary.Country != DefaultGeoPrimary.Country {
		t.Errorf("Primary.Country = %q, want default", cfg.Geo.Primary.Country)
	}
	if cfg.Geo.FallbackTimeout != 5*time.Second {
		t.Errorf("FallbackTimeout = %v, want restored 5s", cfg.Geo.FallbackTimeout)
	}
}

func TestHTTPConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		domain  string
		wantErr bool
	}{
		{name: "empty", domain: ""},
		{name: "registrable domain", domain: "console.example.com"},
		{name: "leading dot", domain: ".example.co.uk"},
		{name: "localhost", domain: "localhost"},
		{name: "public suffix", domain: "co.uk", wantErr: true},
		{name: "tld", domain: "com", wantErr: true},
		{name: "hosting suffix", domain: "github.io", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := HTTPConfig{BaseURL: "https://console.example.com", CookieDomain: tt.domain}
			err := h.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHTTPConfig_SecureCookies(t *testing.T) {
	if (&HTTPConfig{BaseURL: "http://localhost:8080"}).SecureCookies() {
		t.Error("http base URL should not use secure cookies")
	}
	if !(&HTTPConfig{BaseURL: "HTTPS://console.example.com"}).SecureCookies() {
		t.Error("https base URL should use secure cookies")
	}
}

func TestRoutesConfig_Validate(t *testing.T) {
	valid := RoutesConfig{Login: "/login", AdminPrefix: "/admin", AdminLanding: "/admin/dashboard", UserLanding: "/dashboard"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	landingOutside := valid
	landingOutside.AdminLanding = "/administrator/home"
	if err := landingOutside.Validate(); err == nil || !strings.Contains(err.Error(), "ADMIN_LANDING") {
		t.Errorf("expected admin landing error, got %v", err)
	}

	userUnderAdmin := valid
	userUnderAdmin.UserLanding = "/admin/user"
	if err := userUnderAdmin.Validate(); err == nil {
		t.Error("expected error when user landing is under admin prefix")
	}

	relative := valid
	relative.Login = "login"
	if err := relative.Validate(); err == nil {
		t.Error("expected error for relative login path")
	}
}

func TestAnalyticsConfig_Sanitize(t *testing.T) {
	a := AnalyticsConfig{RetentionInterval: time.Second, RetentionMaxAge: time.Minute, BatchSize: 50000}
	a.Sanitize()

	if a.RetentionInterval != time.Minute {
		t.Errorf("RetentionInterval = %v, want 1m", a.RetentionInterval)
	}
	if a.RetentionMaxAge != 24*time.Hour {
		t.Errorf("RetentionMaxAge = %v, want 24h", a.RetentionMaxAge)
	}
	if a.BatchSize != 10000 {
		t.Errorf("BatchSize = %d, want 10000", a.BatchSize)
	}
}

func TestObservabilityConfig_Sanitize(t *testing.T) {
	c := ObservabilityConfig{Metrics: ObservabilityMetricsConfig{Enabled: true, Path: "metrics"}, LogLevel: "TRACE"}
	c.Sanitize()
	if c.Metrics.Path != "/metrics" || !c.Metrics.IsEnabled() {
		t.Errorf("metrics = %#v", c.Metrics)
	}
	if c.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", c.LogLevel)
	}
}
