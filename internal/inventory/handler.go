package inventory

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hotel-pms/hotel-pms/internal/platform/httpx"
	"github.com/hotel-pms/hotel-pms/internal/rbac"
	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs inventory handler.
func NewHandler(service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{service: service, rbac: rbac}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermInventoryView))
		r.Get("/inventory/basics", h.listBasics)
		r.Get("/inventory/basics/{id}", h.getBasic)
		r.Get("/inventory/basics/{id}/movements", h.stockCard)
		r.Get("/inventory/below-minimum", h.belowMinimum)
		r.Get("/rooms/{room}/basics", h.listRoomBasics)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermInventoryManage))
		r.Post("/inventory/basics", h.createBasic)
		r.Patch("/inventory/basics/{id}", h.updateBasic)
		r.Post("/inventory/basics/{id}/adjust", h.adjust)
		r.Put("/rooms/{room}/basics", h.setRoomBasic)
		r.Delete("/rooms/{room}/basics/{basicID}", h.removeRoomBasic)
	})
}

type basicRequest struct {
	Name         string          `json:"name" validate:"required,max=120"`
	Description  string          `json:"description" validate:"max=500"`
	MinimumStock int             `json:"minimum_stock" validate:"gte=0"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Category     string          `json:"category" validate:"required,oneof=Room Bathroom Kitchen Other"`
	Active       *bool           `json:"active"`
	InitialStock int             `json:"initial_stock" validate:"gte=0"`
}

type patchRequest struct {
	Name         *string          `json:"name" validate:"omitempty,max=120"`
	Description  *string          `json:"description" validate:"omitempty,max=500"`
	MinimumStock *int             `json:"minimum_stock" validate:"omitempty,gte=0"`
	UnitPrice    *decimal.Decimal `json:"unit_price"`
	Category     *string          `json:"category" validate:"omitempty,oneof=Room Bathroom Kitchen Other"`
	Active       *bool            `json:"active"`
}

type adjustRequest struct {
	Delta int    `json:"delta" validate:"required"`
	Note  string `json:"note" validate:"required,max=255"`
}

type roomBasicRequest struct {
	BasicID  int64 `json:"basic_id" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"required,min=1"`
	Required bool  `json:"required"`
	Priority int   `json:"priority" validate:"required,min=1,max=5"`
}

func (h *Handler) listBasics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.service.ListBasics(r.Context(), BasicFilter{
		Category:   Category(q.Get("category")),
		ActiveOnly: q.Get("active") == "true",
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": items})
}

func (h *Handler) getBasic(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.GetBasic(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) createBasic(w http.ResponseWriter, r *http.Request) {
	var req basicRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	item, err := h.service.CreateBasic(r.Context(), BasicInput{
		Name:         req.Name,
		Description:  req.Description,
		MinimumStock: req.MinimumStock,
		UnitPrice:    req.UnitPrice,
		Category:     Category(req.Category),
		Active:       active,
		InitialStock: req.InitialStock,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) updateBasic(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req patchRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	patch := BasicPatch{
		Name:         req.Name,
		Description:  req.Description,
		MinimumStock: req.MinimumStock,
		UnitPrice:    req.UnitPrice,
		Active:       req.Active,
	}
	if req.Category != nil {
		c := Category(*req.Category)
		patch.Category = &c
	}
	item, err := h.service.UpdateBasic(r.Context(), id, patch)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req adjustRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	mv, err := h.service.Adjust(r.Context(), AdjustInput{BasicID: id, Delta: req.Delta, Note: req.Note})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, mv)
}

func (h *Handler) stockCard(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	card, err := h.service.StockCard(r.Context(), id, limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": card})
}

func (h *Handler) belowMinimum(w http.ResponseWriter, r *http.Request) {
	items := []BasicInventory{}
	for item, err := range h.service.BelowMinimum(r.Context()) {
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		items = append(items, item)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": items})
}

func (h *Handler) listRoomBasics(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListRoomBasics(r.Context(), chi.URLParam(r, "room"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": items})
}

func (h *Handler) setRoomBasic(w http.ResponseWriter, r *http.Request) {
	var req roomBasicRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rb, err := h.service.SetRoomBasic(r.Context(), RoomBasic{
		RoomNumber: chi.URLParam(r, "room"),
		BasicID:    req.BasicID,
		Quantity:   req.Quantity,
		Required:   req.Required,
		Priority:   req.Priority,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rb)
}

func (h *Handler) removeRoomBasic(w http.ResponseWriter, r *http.Request) {
	basicID, err := httpx.IDParam(r, "basicID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.RemoveRoomBasic(r.Context(), chi.URLParam(r, "room"), basicID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
