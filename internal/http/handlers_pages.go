package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/versehub/console/internal/domain/analytics"
	"github.com/versehub/console/internal/domain/ordering"
	apperrors "github.com/versehub/console/internal/errors"
)

// VisitLister lists recorded visits for the analytics page.
type VisitLister interface {
	List(ctx context.Context, opts analytics.VisitListOptions) ([]*analytics.Visit, error)
}

// SiblingPaths are backend listing templates; {id} is replaced with the parent id.
type SiblingPaths struct {
	Stories  string
	Chapters string
	Verses   string
}

// PageHandlers serves the thin JSON pages behind the access gate.
type PageHandlers struct {
	Backend  *Backend
	Visits   VisitLister // Optional: nil when analytics is disabled
	Siblings SiblingPaths
	Logger   *slog.Logger
}

func (h *PageHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Dashboard renders the standard user landing page.
// GET /dashboard.
func (h *PageHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.writePage(w, r, "dashboard")
}

// AdminDashboard renders the administrator landing page.
// GET /admin/dashboard.
func (h *PageHandlers) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	h.writePage(w, r, "admin-dashboard")
}

func (h *PageHandlers) writePage(w http.ResponseWriter, r *http.Request, page string) {
	body := map[string]any{"page": page}
	if sess, ok := GetUserSessionFromContext(r.Context()); ok {
		body["user"] = map[string]any{
			"id":      sess.SubjectID,
			"email":   sess.Email,
			"name":    sess.Name,
			"role_id": sess.RoleID,
		}
	}
	if rec, ok := GeoRecordFromContext(r.Context()); ok {
		body["geo"] = rec
	}
	WriteJSON(w, http.StatusOK, body)
}

// Geo returns the geo record attached to this request.
// GET /dashboard/geo.
func (h *PageHandlers) Geo(w http.ResponseWriter, r *http.Request) {
	rec, ok := GeoRecordFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: string(apperrors.ErrCodeNotFound),
			Err:     apperrors.NotFound("geo tagging is disabled"),
		})
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

// ListVisits lists recorded visits, newest first.
// GET /admin/analytics/visits?limit=&offset=&country=&device=&since=<RFC3339>.
func (h *PageHandlers) ListVisits(w http.ResponseWriter, r *http.Request) {
	if h.Visits == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: string(apperrors.ErrCodeNotFound),
			Err:     apperrors.NotFound("visitor analytics is disabled"),
		})
		return
	}

	q := r.URL.Query()
	limit, offset := ParseLimitOffset(r, analytics.DefaultVisitLimit, analytics.MaxVisitLimit)
	opts := analytics.VisitListOptions{
		Country: strings.TrimSpace(q.Get("country")),
		Device:  strings.TrimSpace(q.Get("device")),
		Limit:   limit,
		Offset:  offset,
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			WriteAppError(w, apperrors.ValidationField("since", "since must be an RFC3339 timestamp"))
			return
		}
		opts.Since = &since
	}

	visits, err := h.Visits.List(r.Context(), opts)
	if err != nil {
		h.logger().ErrorContext(r.Context(), "list visits failed", "error", err)
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"visits": visits,
		"limit":  limit,
		"offset": offset,
	})
}

// NextStoryOrder answers GET /admin/products/{id}/stories/next-order.
func (h *PageHandlers) NextStoryOrder(w http.ResponseWriter, r *http.Request) {
	h.nextOrder(w, r, h.Siblings.Stories)
}

// NextChapterOrder answers GET /admin/stories/{id}/chapters/next-order.
func (h *PageHandlers) NextChapterOrder(w http.ResponseWriter, r *http.Request) {
	h.nextOrder(w, r, h.Siblings.Chapters)
}

// NextVerseOrder answers GET /admin/chapters/{id}/verses/next-order.
func (h *PageHandlers) NextVerseOrder(w http.ResponseWriter, r *http.Request) {
	h.nextOrder(w, r, h.Siblings.Verses)
}

func (h *PageHandlers) nextOrder(w http.ResponseWriter, r *http.Request, tmpl string) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		WriteAppError(w, apperrors.ValidationField("id", "id is required"))
		return
	}

	path := strings.ReplaceAll(tmpl, "{id}", url.PathEscape(id))
	orders, err := h.Backend.forRequest(w, r).caller.Orders(r.Context(), path)
	if err != nil {
		if apperrors.IsSessionExpired(err) && isBrowserRequest(r) {
			http.Redirect(w, r, h.Backend.loginPath(), http.StatusSeeOther)
			return
		}
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{"next_order": ordering.NextOrder(orders)})
}
