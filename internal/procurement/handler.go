package procurement

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hotel-pms/hotel-pms/internal/platform/httpx"
	"github.com/hotel-pms/hotel-pms/internal/rbac"
	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// Handler manages purchase endpoints.
type Handler struct {
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{service: service, rbac: rbac}
}

// MountRoutes registers purchase routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPurchasesView))
		r.Get("/purchases", h.list)
		r.Get("/purchases/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermPurchasesCreate))
		r.Post("/purchases", h.create)
		r.Post("/purchases/{id}/payments", h.registerPayment)
	})
}

type itemRequest struct {
	BasicID     int64           `json:"basic_id" validate:"gte=0"`
	Description string          `json:"description" validate:"max=255"`
	Quantity    int             `json:"quantity" validate:"required,min=1"`
	Price       decimal.Decimal `json:"price"`
}

type createRequest struct {
	Supplier      string          `json:"supplier" validate:"required,max=160"`
	InvoiceNumber string          `json:"invoice_number" validate:"max=64"`
	PurchaseDate  *time.Time      `json:"purchase_date"`
	PaymentMethod string          `json:"payment_method" validate:"required"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	Notes         string          `json:"notes" validate:"max=1000"`
	Items         []itemRequest   `json:"items" validate:"required,min=1,dive"`
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := RecordInput{
		Supplier:       req.Supplier,
		InvoiceNumber:  req.InvoiceNumber,
		PaymentMethod:  shared.PaymentMethod(req.PaymentMethod),
		PaidAmount:     req.PaidAmount,
		Notes:          req.Notes,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}
	if req.PurchaseDate != nil {
		input.PurchaseDate = req.PurchaseDate.UTC()
	}
	for _, it := range req.Items {
		input.Items = append(input.Items, ItemInput{BasicID: it.BasicID, Description: it.Description, Quantity: it.Quantity, Price: it.Price})
	}
	p, err := h.service.RecordPurchase(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) registerPayment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req paymentRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.RegisterPayment(r.Context(), PaymentInput{PurchaseID: id, Amount: req.Amount, Method: shared.PaymentMethod(req.Method)})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	pays, err := h.service.Payments(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": p, "payments": pays})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Supplier: q.Get("supplier"), Status: PaymentStatus(q.Get("status"))}
	for name, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			httpx.RespondError(w, shared.Validation(name, raw, "expected YYYY-MM-DD"))
			return
		}
		*dst = &t
	}
	items, pagination, err := h.service.List(r.Context(), filter, httpx.PageParams(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": items, "pagination": pagination})
}
