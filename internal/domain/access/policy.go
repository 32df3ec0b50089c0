// Package access decides whether a navigation may proceed and where it is redirected otherwise.
package access

import (
	"path"
	"strings"

	domainauth "github.com/versehub/console/internal/domain/auth"
)

// Outcome is the kind of decision returned by the policy.
type Outcome int

const (
	// Allow lets the request continue to page logic.
	Allow Outcome = iota
	// Redirect sends the caller to Decision.Target.
	Redirect
)

// Reason classifies why a redirect was issued.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonUnauthorized    Reason = "unauthorized"
	ReasonForcedRouting   Reason = "forced_routing"
)

// Decision is the result of evaluating a session against a path.
type Decision struct {
	Outcome Outcome
	Target  string
	Reason  Reason
}

// Allowed reports whether the decision lets the request through.
func (d Decision) Allowed() bool { return d.Outcome == Allow }

// Routes is the route surface gated by the policy.
type Routes struct {
	Login        string // public login page
	AdminPrefix  string // administrative section root, e.g. /admin
	AdminLanding string // canonical admin landing page, e.g. /admin/dashboard
	UserLanding  string // standard-user landing page, e.g. /dashboard
}

// Policy is a pure decision function over (session, path).
// It holds no state besides the route configuration and is safe for concurrent use.
type Policy struct {
	routes Routes
}

// NewPolicy builds a Policy with normalized routes.
func NewPolicy(routes Routes) Policy {
	return Policy{routes: Routes{
		Login:        Normalize(routes.Login),
		AdminPrefix:  Normalize(routes.AdminPrefix),
		AdminLanding: Normalize(routes.AdminLanding),
		UserLanding:  Normalize(routes.UserLanding),
	}}
}

// Routes returns the normalized route configuration.
func (p Policy) Routes() Routes { return p.routes }

// Evaluate decides whether session may view reqPath.
// A nil session means the caller is not authenticated.
//
// Rule order matters: the login check short-circuits before the admin-forcing rule so an
// admin can always reach the login page to switch accounts.
func (p Policy) Evaluate(session *domainauth.Session, reqPath string) Decision {
	cleaned := Normalize(reqPath)

	if cleaned == p.routes.Login {
		return Decision{Outcome: Allow}
	}
	if session == nil {
		return redirect(p.routes.Login, ReasonUnauthenticated)
	}

	adminRoute := p.IsAdminRoute(cleaned)
	admin := session.IsAdmin()

	switch {
	case adminRoute && !admin:
		return redirect(p.routes.UserLanding, ReasonUnauthorized)
	case admin && !adminRoute:
		return redirect(p.routes.AdminLanding, ReasonForcedRouting)
	case admin && cleaned == p.routes.AdminPrefix && cleaned != p.routes.AdminLanding:
		return redirect(p.routes.AdminLanding, ReasonForcedRouting)
	}
	return Decision{Outcome: Allow}
}

// IsAdminRoute reports whether the normalized path falls under the administrative prefix.
// Matching is segment aware: /admin and /admin/x match, /administrator does not.
func (p Policy) IsAdminRoute(cleaned string) bool {
	prefix := p.routes.AdminPrefix
	if prefix == "/" {
		return true
	}
	return cleaned == prefix || strings.HasPrefix(cleaned, prefix+"/")
}

// Normalize cleans a request path: leading slash, no dot segments, no trailing slash.
func Normalize(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func redirect(target string, reason Reason) Decision {
	return Decision{Outcome: Redirect, Target: target, Reason: reason}
}
