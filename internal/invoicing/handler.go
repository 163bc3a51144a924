package invoicing

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hotel-pms/hotel-pms/internal/platform/httpx"
	"github.com/hotel-pms/hotel-pms/internal/rbac"
	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// Handler serves invoice documents.
type Handler struct {
	service *Service
	rbac    rbac.Middleware
	logger  *slog.Logger
}

// NewHandler constructs Handler.
func NewHandler(service *Service, rbac rbac.Middleware, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, rbac: rbac, logger: logger}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermBookingsView)).Get("/bookings/{id}/invoice.pdf", h.pdf)
}

func (h *Handler) pdf(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	pdf, err := h.service.PDF(r.Context(), id)
	if err != nil {
		if shared.KindOf(err) == "" {
			h.logger.Error("render invoice", slog.Int64("booking_id", id), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="factura-%d.pdf"`, id))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
