package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the public base URL of the console (e.g., "https://console.example.com").
	// Secure cookies are issued when it uses https.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	// CookieDomain is the domain for session, token and geo cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// ReadHeaderTimeout bounds how long the server waits for request headers.
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"10s"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// CompressionEnabled gzips JSON and text responses for clients that accept it.
	CompressionEnabled bool `env:"HTTP_COMPRESSION_ENABLED" envDefault:"true"`
	// CompressionLevel is the gzip level (1-9); 0 selects the library default.
	CompressionLevel int `env:"HTTP_COMPRESSION_LEVEL" envDefault:"0"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.CookieDomain = strings.TrimSpace(h.CookieDomain)
	h.BaseURL = strings.TrimRight(strings.TrimSpace(h.BaseURL), "/")
	if h.ReadHeaderTimeout <= 0 {
		h.ReadHeaderTimeout = 10 * time.Second
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
	if h.CompressionLevel < 0 || h.CompressionLevel > 9 {
		h.CompressionLevel = 0
	}
}

// SecureCookies reports whether cookies should carry the Secure attribute.
func (h *HTTPConfig) SecureCookies() bool {
	return strings.HasPrefix(strings.ToLower(h.BaseURL), "https://")
}

// Validate rejects a cookie domain that browsers would refuse (public suffixes such as "co.uk").
func (h *HTTPConfig) Validate() error {
	if h.BaseURL != "" {
		u, err := url.Parse(h.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("APP_BASE_URL must be an absolute URL: %q", h.BaseURL)
		}
	}
	if h.CookieDomain == "" {
		return nil
	}
	domain := strings.ToLower(strings.TrimPrefix(h.CookieDomain, "."))
	if domain == "localhost" {
		return nil
	}
	suffix, _ := publicsuffix.PublicSuffix(domain)
	if suffix == domain {
		return fmt.Errorf("APP_COOKIE_DOMAIN %q is a public suffix", h.CookieDomain)
	}
	return nil
}

// RoutesConfig is the route surface gated by the access policy.
type RoutesConfig struct {
	Login        string   `env:"LOGIN"         envDefault:"/login"`
	AdminPrefix  string   `env:"ADMIN_PREFIX"  envDefault:"/admin"`
	AdminLanding string   `env:"ADMIN_LANDING" envDefault:"/admin/dashboard"`
	UserLanding  string   `env:"USER_LANDING"  envDefault:"/dashboard"`
	Public       []string `env:"PUBLIC"        envDefault:"/auth/;/healthz;/metrics" envSeparator:";"`
}

// Sanitize trims whitespace and drops empty public prefixes.
func (r *RoutesConfig) Sanitize() {
	r.Login = strings.TrimSpace(r.Login)
	r.AdminPrefix = strings.TrimRight(strings.TrimSpace(r.AdminPrefix), "/")
	r.AdminLanding = strings.TrimSpace(r.AdminLanding)
	r.UserLanding = strings.TrimSpace(r.UserLanding)

	public := r.Public[:0]
	for _, p := range r.Public {
		if p = strings.TrimSpace(p); p != "" {
			public = append(public, p)
		}
	}
	r.Public = public
}

// Validate checks the routes are absolute and consistent with each other.
func (r *RoutesConfig) Validate() error {
	for name, p := range map[string]string{
		"ROUTES_LOGIN":         r.Login,
		"ROUTES_ADMIN_PREFIX":  r.AdminPrefix,
		"ROUTES_ADMIN_LANDING": r.AdminLanding,
		"ROUTES_USER_LANDING":  r.UserLanding,
	} {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%s must start with '/': %q", name, p)
		}
	}
	if !strings.HasPrefix(r.AdminLanding+"/", r.AdminPrefix+"/") {
		return fmt.Errorf("ROUTES_ADMIN_LANDING %q must live under ROUTES_ADMIN_PREFIX %q", r.AdminLanding, r.AdminPrefix)
	}
	if strings.HasPrefix(r.UserLanding+"/", r.AdminPrefix+"/") {
		return fmt.Errorf("ROUTES_USER_LANDING %q must not live under ROUTES_ADMIN_PREFIX %q", r.UserLanding, r.AdminPrefix)
	}
	return nil
}

// TokenConfig controls the bearer token cookie and the session cookie.
type TokenConfig struct {
	CookieName        string        `env:"TOKEN_COOKIE_NAME"        envDefault:"token"`
	TTL               time.Duration `env:"TOKEN_TTL"                envDefault:"720h"`
	SessionCookieName string        `env:"SESSION_COOKIE_NAME"      envDefault:"session_id"`
	SessionTTL        time.Duration `env:"SESSION_TTL"              envDefault:"8760h"`
	NoticeCookieName  string        `env:"SESSION_NOTICE_COOKIE"    envDefault:"session_notice"`
	ProviderTimeout   time.Duration `env:"TOKEN_PROVIDER_TIMEOUT"   envDefault:"3s"`
	TeardownWindow    time.Duration `env:"SESSION_TEARDOWN_WINDOW"  envDefault:"10s"`
}

// Sanitize restores defaults for non-positive durations and empty names.
func (t *TokenConfig) Sanitize() {
	if t.CookieName == "" {
		t.CookieName = "token"
	}
	if t.SessionCookieName == "" {
		t.SessionCookieName = "session_id"
	}
	if t.NoticeCookieName == "" {
		t.NoticeCookieName = "session_notice"
	}
	if t.TTL <= 0 {
		t.TTL = 30 * 24 * time.Hour
	}
	if t.SessionTTL <= 0 {
		t.SessionTTL = 365 * 24 * time.Hour
	}
	if t.ProviderTimeout <= 0 {
		t.ProviderTimeout = 3 * time.Second
	}
	if t.TeardownWindow < time.Second {
		t.TeardownWindow = time.Second
	}
}
