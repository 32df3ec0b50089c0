// Package backendauth signs users in against the content backend's own credential endpoint
// and re-reads their profile with the issued bearer token.
package backendauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/versehub/console/internal/apiclient"
	domainauth "github.com/versehub/console/internal/domain/auth"
	"github.com/versehub/console/internal/ports"
)

// ErrMissingToken is returned when a successful login response carries no bearer token.
var ErrMissingToken = errors.New("backendauth: login response has no token")

// Options configures an Exchanger. Expression fields are JMESPath evaluated against the
// login and profile response bodies.
type Options struct {
	Client      *apiclient.Client
	LoginPath   string
	ProfilePath string
	TokenExpr   string
	SubjectExpr string
	RoleExpr    string
	EmailExpr   string
	NameExpr    string
}

// Exchanger implements ports.CredentialExchanger and ports.ProfileFetcher.
type Exchanger struct {
	client      *apiclient.Client
	loginPath   string
	profilePath string

	token, subject, role, email, name jmespath.JMESPath
}

var (
	_ ports.CredentialExchanger = (*Exchanger)(nil)
	_ ports.ProfileFetcher      = (*Exchanger)(nil)
)

// New compiles the field expressions.
func New(opts Options) (*Exchanger, error) {
	if opts.Client == nil {
		return nil, errors.New("backendauth: client is required")
	}
	e := &Exchanger{
		client:      opts.Client,
		loginPath:   defaultString(opts.LoginPath, "/auth/login"),
		profilePath: defaultString(opts.ProfilePath, "/auth/me"),
	}

	exprs := []struct {
		dst  *jmespath.JMESPath
		expr string
		def  string
	}{
		{&e.token, opts.TokenExpr, "token"},
		{&e.subject, opts.SubjectExpr, "user.id"},
		{&e.role, opts.RoleExpr, "user.roleId"},
		{&e.email, opts.EmailExpr, "user.email"},
		{&e.name, opts.NameExpr, "user.name"},
	}
	for _, x := range exprs {
		compiled, err := jmespath.Compile(defaultString(x.expr, x.def))
		if err != nil {
			return nil, fmt.Errorf("backendauth: compile %q: %w", x.expr, err)
		}
		*x.dst = compiled
	}
	return e, nil
}

// ExchangeCredentials posts the credentials to the login endpoint.
// A rejected login surfaces as the backend's upstream error (usually 401).
func (e *Exchanger) ExchangeCredentials(ctx context.Context, creds ports.Credentials) (domainauth.Identity, error) {
	var body any
	err := e.client.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   e.loginPath,
		Body:   map[string]string{"email": creds.Email, "password": creds.Password},
	}, &body)
	if err != nil {
		return domainauth.Identity{}, err
	}

	id := e.identity(body)
	if id.Token == "" {
		return domainauth.Identity{}, ErrMissingToken
	}
	if id.RoleID == 0 {
		id.RoleID = domainauth.RoleStandard
	}
	return id, nil
}

// FetchProfile re-reads the principal. A rotated token in the response replaces token.
// RoleID stays zero when the profile carries no readable role.
func (e *Exchanger) FetchProfile(ctx context.Context, token string) (domainauth.Identity, error) {
	var body any
	caller := e.client.As(bearer(token), nil)
	if err := caller.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: e.profilePath}, &body); err != nil {
		return domainauth.Identity{}, err
	}
	id := e.identity(body)
	if id.Token == "" {
		id.Token = token
	}
	return id, nil
}

func (e *Exchanger) identity(body any) domainauth.Identity {
	id := domainauth.Identity{
		SubjectID: searchString(e.subject, body),
		Email:     searchString(e.email, body),
		Name:      searchString(e.name, body),
		Token:     searchString(e.token, body),
	}
	if role, ok := searchRole(e.role, body); ok {
		id.RoleID = role
	}
	return id
}

type bearer string

func (b bearer) GetToken(context.Context) (string, bool) { return string(b), b != "" }

func searchString(expr jmespath.JMESPath, body any) string {
	v, err := expr.Search(body)
	if err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// searchRole reads a numeric role id. ok is false when the payload has no usable role.
func searchRole(expr jmespath.JMESPath, body any) (domainauth.RoleID, bool) {
	v, err := expr.Search(body)
	if err != nil {
		return 0, false
	}
	var n int
	switch t := v.(type) {
	case float64:
		n = int(t)
	case string:
		if n, err = strconv.Atoi(strings.TrimSpace(t)); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if n == 0 {
		return 0, false
	}
	return domainauth.RoleID(n), true
}

func defaultString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
