package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// APIConfig describes the content backend the console calls on behalf of signed-in users.
type APIConfig struct {
	BaseURL string        `env:"BASE_URL" envDefault:"http://localhost:4000/api"`
	Timeout time.Duration `env:"TIMEOUT"  envDefault:"15s"`

	// TokenInvalidExpr is a JMESPath expression evaluated against JSON error bodies.
	// A truthy result is treated like a 401 even when the status code says otherwise.
	TokenInvalidExpr string `env:"TOKEN_INVALID_EXPR" envDefault:"tokenInvalid || error == 'token_invalid'"`

	// Credential exchange and profile endpoints.
	LoginPath   string `env:"LOGIN_PATH"   envDefault:"/auth/login"`
	ProfilePath string `env:"PROFILE_PATH" envDefault:"/auth/me"`

	// JMESPath expressions mapping login/profile responses onto an identity.
	TokenExpr   string `env:"TOKEN_EXPR"   envDefault:"token"`
	SubjectExpr string `env:"SUBJECT_EXPR" envDefault:"user.id"`
	RoleExpr    string `env:"ROLE_EXPR"    envDefault:"user.roleId"`
	EmailExpr   string `env:"EMAIL_EXPR"   envDefault:"user.email"`
	NameExpr    string `env:"NAME_EXPR"    envDefault:"user.name"`

	// Sibling listings used to compute the next free order number.
	StoriesPath  string `env:"STORIES_PATH"  envDefault:"/products/{id}/stories"`
	ChaptersPath string `env:"CHAPTERS_PATH" envDefault:"/stories/{id}/chapters"`
	VersesPath   string `env:"VERSES_PATH"   envDefault:"/chapters/{id}/verses"`
	OrderExpr    string `env:"ORDER_EXPR"    envDefault:"data[].order"`
}

// Sanitize trims the base URL and restores a positive timeout.
func (a *APIConfig) Sanitize() {
	a.BaseURL = strings.TrimRight(strings.TrimSpace(a.BaseURL), "/")
	if a.Timeout <= 0 {
		a.Timeout = 15 * time.Second
	}
	if strings.TrimSpace(a.OrderExpr) == "" {
		a.OrderExpr = "data[].order"
	}
}

// Validate requires an absolute base URL.
func (a *APIConfig) Validate() error {
	u, err := url.Parse(a.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL: %q", a.BaseURL)
	}
	return nil
}
