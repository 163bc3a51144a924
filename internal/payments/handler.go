package payments

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hotel-pms/hotel-pms/internal/platform/httpx"
	"github.com/hotel-pms/hotel-pms/internal/rbac"
	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// Handler exposes payment and extra charge endpoints.
type Handler struct {
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs Handler.
func NewHandler(service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{service: service, rbac: rbac}
}

// MountRoutes registers payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermBookingsView)).Get("/bookings/{id}/payments", h.listPayments)
	r.With(h.rbac.RequireAny(shared.PermPaymentsRecord)).Post("/bookings/{id}/payments", h.recordPayment)
	r.With(h.rbac.RequireAny(shared.PermBookingsView)).Get("/bookings/{id}/charges", h.listCharges)
	r.With(h.rbac.RequireAny(shared.PermPaymentsRecord)).Post("/bookings/{id}/charges", h.addCharge)
	r.With(h.rbac.RequireAny(shared.PermPaymentsRecord)).Post("/payments/{id}/settle", h.settle)
	r.With(h.rbac.RequireAny(shared.PermPaymentsRefund)).Post("/payments/{id}/refund", h.refund)
	r.With(h.rbac.RequireAny(shared.PermPaymentsRecord)).Delete("/charges/{id}", h.removeCharge)
}

type recordRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	Method         string          `json:"method" validate:"required"`
	Type           string          `json:"type" validate:"required,oneof=advance complete extra_charges"`
	Pending        bool            `json:"pending"`
	TransactionRef string          `json:"transaction_ref" validate:"max=128"`
	PaidAt         *time.Time      `json:"paid_at"`
}

type settleRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=completed failed"`
}

type chargeRequest struct {
	Description string          `json:"description" validate:"required,max=255"`
	Quantity    int             `json:"quantity" validate:"required,min=1"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	ChargeDate  *time.Time      `json:"charge_date"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	bookingID, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req recordRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := RecordInput{
		BookingID:      bookingID,
		Amount:         req.Amount,
		Method:         shared.PaymentMethod(req.Method),
		Type:           Type(req.Type),
		Pending:        req.Pending,
		TransactionRef: req.TransactionRef,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}
	if req.PaidAt != nil {
		input.PaidAt = req.PaidAt.UTC()
	}
	payment, err := h.service.RecordPayment(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	bookingID, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	summary, err := h.service.Summary(r.Context(), bookingID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	pays, err := h.service.Payments(r.Context(), bookingID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": pays, "summary": summary})
}

func (h *Handler) settle(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req settleRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	payment, err := h.service.Settle(r.Context(), id, Outcome(req.Outcome))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	payment, err := h.service.Refund(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

func (h *Handler) listCharges(w http.ResponseWriter, r *http.Request) {
	bookingID, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	charges, err := h.service.Charges(r.Context(), bookingID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": charges})
}

func (h *Handler) addCharge(w http.ResponseWriter, r *http.Request) {
	bookingID, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req chargeRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := ChargeInput{
		BookingID:   bookingID,
		Description: req.Description,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
	}
	if req.ChargeDate != nil {
		input.ChargeDate = req.ChargeDate.UTC()
	}
	charge, err := h.service.AddExtraCharge(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, charge)
}

func (h *Handler) removeCharge(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.RemoveExtraCharge(r.Context(), id); err != nil {
		if errors.Is(err, ErrChargeNotFound) {
			err = shared.NotFound("extra_charge", id)
		}
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
