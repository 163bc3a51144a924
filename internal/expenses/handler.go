package expenses

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hotel-pms/hotel-pms/internal/platform/httpx"
	"github.com/hotel-pms/hotel-pms/internal/rbac"
	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// Handler exposes the expense ledger.
type Handler struct {
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs Handler.
func NewHandler(service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{service: service, rbac: rbac}
}

// MountRoutes registers expense routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermExpensesView)).Get("/expenses", h.list)
	r.With(h.rbac.RequireAny(shared.PermExpensesView)).Get("/expenses/summary", h.summary)
	r.With(h.rbac.RequireAll(shared.PermExpensesCreate)).Post("/expenses", h.create)
}

type createRequest struct {
	Payee         string          `json:"payee" validate:"required,max=160"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category" validate:"required,max=64"`
	PaymentMethod string          `json:"payment_method" validate:"required"`
	Receipt       string          `json:"receipt" validate:"max=255"`
	Notes         string          `json:"notes" validate:"max=1000"`
	ExpenseDate   *time.Time      `json:"expense_date"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := RecordInput{
		Payee:         req.Payee,
		Amount:        req.Amount,
		Category:      req.Category,
		PaymentMethod: shared.PaymentMethod(req.PaymentMethod),
		Receipt:       req.Receipt,
		Notes:         req.Notes,
	}
	if req.ExpenseDate != nil {
		input.ExpenseDate = req.ExpenseDate.UTC()
	}
	e, err := h.service.RecordExpense(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, e)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	from, to, err := rangeParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter := ListFilter{Category: r.URL.Query().Get("category"), From: from, To: to}
	items, pagination, err := h.service.List(r.Context(), filter, httpx.PageParams(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": items, "pagination": pagination})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	from, to, err := rangeParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sum, err := h.service.Summary(r.Context(), from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sum)
}

func rangeParams(r *http.Request) (from, to *time.Time, err error) {
	q := r.URL.Query()
	if raw := q.Get("from"); raw != "" {
		t, perr := time.Parse(time.DateOnly, raw)
		if perr != nil {
			return nil, nil, shared.Validation("from", raw, "expected YYYY-MM-DD")
		}
		from = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, perr := time.Parse(time.DateOnly, raw)
		if perr != nil {
			return nil, nil, shared.Validation("to", raw, "expected YYYY-MM-DD")
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	return from, to, nil
}
