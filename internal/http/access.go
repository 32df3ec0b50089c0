package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/versehub/console/internal/domain/access"
	domainauth "github.com/versehub/console/internal/domain/auth"
	"github.com/versehub/console/internal/domain/geo"
	"github.com/versehub/console/internal/observability/metrics"
	"github.com/versehub/console/internal/ports"
)

const postLoginRedirectCookie = "post_login_redirect"

// VisitRecorder persists freshly resolved geo records. Implementations must not block.
type VisitRecorder interface {
	RecordAsync(subjectID, path string, rec geo.Record)
}

// AccessGateOptions groups dependencies for AccessGate.
type AccessGateOptions struct {
	Auth          AuthServiceInterface // Required
	Policy        access.Policy
	Cookies       CookieSettings
	SessionCookie string
	Visits        VisitRecorder // Optional: visitor analytics
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
}

// AccessGate evaluates the access policy for every request before the handler runs.
// Allowed requests carry the session in their context. Browser navigations are redirected;
// XHR and API callers get a JSON 401/403 naming where to go instead.
func AccessGate(opts AccessGateOptions) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "access_gate")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := loadSession(r, opts.Auth, opts.SessionCookie, logger)

			if opts.Visits != nil {
				if rec, fresh := freshGeoFromContext(r.Context()); fresh {
					subject := ""
					if sess != nil {
						subject = sess.SubjectID
					}
					opts.Visits.RecordAsync(subject, r.URL.Path, rec)
				}
			}

			d := opts.Policy.Evaluate(sess, r.URL.Path)
			opts.Metrics.AccessDecision(outcomeLabel(d), string(d.Reason))

			if d.Allowed() {
				next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), sess)))
				return
			}

			if d.Reason == access.ReasonUnauthenticated && r.Method == http.MethodGet {
				opts.Cookies.set(w, r, postLoginRedirectCookie, safeRedirectPath(r.URL.RequestURI()), 10*time.Minute, true)
			}
			denyRequest(w, r, d)
		})
	}
}

func outcomeLabel(d access.Decision) string {
	if d.Allowed() {
		return "allow"
	}
	return "redirect"
}

func denyRequest(w http.ResponseWriter, r *http.Request, d access.Decision) {
	if isBrowserRequest(r) {
		http.Redirect(w, r, d.Target, http.StatusSeeOther)
		return
	}
	status := http.StatusForbidden
	if d.Reason == access.ReasonUnauthenticated {
		status = http.StatusUnauthorized
	}
	WriteJSON(w, status, map[string]string{
		"error":       string(d.Reason),
		"message":     http.StatusText(status),
		"redirect_to": d.Target,
	})
}

// loadSession resolves the session cookie. Missing, unknown and expired sessions all read as nil.
func loadSession(r *http.Request, auth AuthServiceInterface, cookieName string, logger *slog.Logger) *domainauth.Session {
	id := cookieValue(r, cookieName)
	if id == "" || auth == nil {
		return nil
	}
	sess, err := auth.GetSession(r.Context(), id)
	if err != nil {
		if !errors.Is(err, ports.ErrSessionNotFound) && !errors.Is(err, context.Canceled) {
			logger.DebugContext(r.Context(), "session lookup failed", "error", err)
		}
		return nil
	}
	return sess
}

// RouteMiddlewareOptions groups the pieces RouteMiddleware composes.
type RouteMiddlewareOptions struct {
	GeoTagging func(http.Handler) http.Handler // Optional: nil disables geo tagging
	AccessGate func(http.Handler) http.Handler // Required
	Public     []string                        // path prefixes that bypass both
}

// RouteMiddleware runs geo tagging and then the access gate for every non-public path.
func RouteMiddleware(opts RouteMiddlewareOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		gated := opts.AccessGate(next)
		if opts.GeoTagging != nil {
			gated = opts.GeoTagging(gated)
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path, opts.Public) {
				next.ServeHTTP(w, r)
				return
			}
			gated.ServeHTTP(w, r)
		})
	}
}

func isPublicPath(p string, public []string) bool {
	cleaned := access.Normalize(p)
	for _, prefix := range public {
		if strings.HasSuffix(prefix, "/") {
			if strings.HasPrefix(cleaned+"/", prefix) {
				return true
			}
			continue
		}
		if cleaned == prefix || strings.HasPrefix(cleaned, prefix+"/") {
			return true
		}
	}
	return false
}
