package rooms

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hotel-pms/hotel-pms/internal/platform/httpx"
	"github.com/hotel-pms/hotel-pms/internal/rbac"
	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// Handler exposes the catalogue over HTTP.
type Handler struct {
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs Handler.
func NewHandler(service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{service: service, rbac: rbac}
}

// MountRoutes registers catalogue routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermRoomsView, shared.PermBookingsView)).Get("/rooms", h.listRooms)
	r.With(h.rbac.RequireAny(shared.PermRoomsView, shared.PermBookingsView)).Get("/room-categories", h.listCategories)
}

func (h *Handler) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.service.Rooms(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": rooms})
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": categories})
}
