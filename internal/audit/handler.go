package audit

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/hotel-pms/hotel-pms/internal/platform/httpx"
	"github.com/hotel-pms/hotel-pms/internal/rbac"
	"github.com/hotel-pms/hotel-pms/internal/shared"
)

const (
	exportRateLimit  = 10
	exportRateWindow = time.Minute
)

// Handler exposes the audit timeline.
type Handler struct {
	service *Service
	rbac    rbac.Middleware
	logger  *slog.Logger
	now     func() time.Time
}

// NewHandler constructs Handler.
func NewHandler(service *Service, rbac rbac.Middleware, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, rbac: rbac, logger: logger, now: time.Now}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(exportRateLimit, exportRateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export limit reached, retry later")
		}),
	)
	r.With(h.rbac.RequireAny(shared.PermAuditView)).Get("/audit", h.timeline)
	r.With(h.rbac.RequireAny(shared.PermAuditView), limiter).Get("/audit/export.csv", h.export)
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.fail(w, "load audit timeline", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.fail(w, "export audit timeline", err)
		return
	}
	body, err := WriteCSV(rows)
	if err != nil {
		h.fail(w, "encode csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-timeline.csv"`)
	if _, err := w.Write(body); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if shared.KindOf(err) == "" {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) parseFilters(r *http.Request) (TimelineFilters, error) {
	q := r.URL.Query()
	now := h.now().UTC()
	to := now
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return TimelineFilters{}, shared.Validation("to", raw, "expected YYYY-MM-DD")
		}
		to = t.Add(24*time.Hour - time.Nanosecond)
	}
	from := to.Add(-DefaultRange)
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return TimelineFilters{}, shared.Validation("from", raw, "expected YYYY-MM-DD")
		}
		from = t
	}
	filters := TimelineFilters{
		From:     from,
		To:       to,
		Entity:   q.Get("entity"),
		EntityID: q.Get("entity_id"),
		Action:   q.Get("action"),
	}
	if raw := q.Get("actor_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return TimelineFilters{}, shared.Validation("actor_id", raw, "must be a positive integer")
		}
		filters.ActorID = id
	}
	page := httpx.PageParams(r)
	filters.Page, filters.PageSize = page.Page, page.PerPage
	return filters, nil
}

// WriteCSV encodes rows with a header line.
func WriteCSV(rows []TimelineRow) ([]byte, error) {
	buf := &bytes.Buffer{}
	cw := csv.NewWriter(buf)
	if err := cw.Write([]string{"at", "actor_id", "action", "entity", "entity_id", "meta"}); err != nil {
		return nil, err
	}
	for _, row := range rows {
		meta := ""
		if len(row.Meta) > 0 {
			b, err := json.Marshal(row.Meta)
			if err != nil {
				return nil, err
			}
			meta = string(b)
		}
		actor := ""
		if row.ActorID > 0 {
			actor = strconv.FormatInt(row.ActorID, 10)
		}
		if err := cw.Write([]string{row.At.UTC().Format(time.RFC3339), actor, row.Action, row.Entity, row.EntityID, meta}); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	return buf.Bytes(), cw.Error()
}

func rateLimitKey(r *http.Request) (string, error) {
	if id, ok := shared.IdentityFromContext(r.Context()); ok && id.UserID > 0 {
		return "user:" + strconv.FormatInt(id.UserID, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
