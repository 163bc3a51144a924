package booking

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hotel-pms/hotel-pms/internal/platform/httpx"
	"github.com/hotel-pms/hotel-pms/internal/rbac"
	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// Handler exposes booking endpoints.
type Handler struct {
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs Handler.
func NewHandler(service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{service: service, rbac: rbac}
}

// MountRoutes registers booking routes.
func (h *Handler) MountRoutes(r chi.Router) {
	view := h.rbac.RequireAny(shared.PermBookingsView)
	manage := h.rbac.RequireAny(shared.PermBookingsManage)
	r.With(view).Get("/bookings", h.list)
	r.With(manage).Post("/bookings", h.create)
	r.With(view).Get("/bookings/{id}", h.get)
	r.With(view).Get("/bookings/{id}/folio", h.folio)
	r.With(manage).Post("/bookings/{id}/confirm", h.transition(h.service.Confirm))
	r.With(manage).Post("/bookings/{id}/check-in", h.transition(h.service.CheckIn))
	r.With(manage).Post("/bookings/{id}/complete", h.transition(h.service.Complete))
	r.With(manage).Post("/bookings/{id}/invoice", h.transition(h.service.Invoice))
	r.With(manage).Post("/bookings/{id}/cancel", h.cancel)
}

type createRequest struct {
	RoomNumber  string          `json:"room_number" validate:"required,max=16"`
	GuestName   string          `json:"guest_name" validate:"max=160"`
	CheckIn     time.Time       `json:"check_in" validate:"required"`
	CheckOut    time.Time       `json:"check_out" validate:"required"`
	PointOfSale string          `json:"point_of_sale" validate:"required,oneof=online local"`
	GuestCount  int             `json:"guest_count" validate:"required,min=1"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Notes       string          `json:"notes" validate:"max=1000"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	b, err := h.service.Create(r.Context(), CreateInput{
		RoomNumber:     req.RoomNumber,
		GuestName:      req.GuestName,
		CheckIn:        req.CheckIn,
		CheckOut:       req.CheckOut,
		PointOfSale:    PointOfSale(req.PointOfSale),
		GuestCount:     req.GuestCount,
		TotalAmount:    req.TotalAmount,
		Notes:          req.Notes,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, b)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Status:           Status(q.Get("status")),
		RoomNumber:       q.Get("room"),
		IncludeCancelled: q.Get("include_cancelled") == "true",
	}
	var err error
	if filter.From, err = dateParam(q.Get("from"), "from"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filter.To, err = dateParam(q.Get("to"), "to"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, pagination, err := h.service.List(r.Context(), filter, httpx.PageParams(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": items, "pagination": pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) folio(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	folio, err := h.service.Folio(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, folio)
}

func (h *Handler) transition(step func(context.Context, int64) (Booking, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		b, err := step(r.Context(), id)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, b)
	}
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req cancelRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeAndValidate(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	b, err := h.service.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func dateParam(raw, name string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, shared.Validation(name, raw, "expected YYYY-MM-DD")
	}
	return &t, nil
}
