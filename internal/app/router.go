package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hotel-pms/hotel-pms/internal/audit"
	"github.com/hotel-pms/hotel-pms/internal/auth"
	"github.com/hotel-pms/hotel-pms/internal/booking"
	"github.com/hotel-pms/hotel-pms/internal/expenses"
	"github.com/hotel-pms/hotel-pms/internal/inventory"
	"github.com/hotel-pms/hotel-pms/internal/invoicing"
	"github.com/hotel-pms/hotel-pms/internal/observability"
	"github.com/hotel-pms/hotel-pms/internal/payments"
	"github.com/hotel-pms/hotel-pms/internal/platform/httpx"
	"github.com/hotel-pms/hotel-pms/internal/procurement"
	"github.com/hotel-pms/hotel-pms/internal/rooms"
	"github.com/hotel-pms/hotel-pms/jobs"
	"github.com/hotel-pms/hotel-pms/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
	Auth    auth.Middleware

	AuthHandler        *auth.Handler
	RoomsHandler       *rooms.Handler
	BookingHandler     *booking.Handler
	PaymentsHandler    *payments.Handler
	InventoryHandler   *inventory.Handler
	ProcurementHandler *procurement.Handler
	ExpensesHandler    *expenses.Handler
	InvoicingHandler   *invoicing.Handler
	AuditHandler       *audit.Handler
	ReportHandler      *report.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router serving the hotel API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(params.Auth.Authenticate)
		params.AuthHandler.MountRoutes(api)
		params.RoomsHandler.MountRoutes(api)
		params.BookingHandler.MountRoutes(api)
		params.PaymentsHandler.MountRoutes(api)
		params.InventoryHandler.MountRoutes(api)
		params.ProcurementHandler.MountRoutes(api)
		params.ExpensesHandler.MountRoutes(api)
		if params.InvoicingHandler != nil {
			params.InvoicingHandler.MountRoutes(api)
		}
		if params.AuditHandler != nil {
			params.AuditHandler.MountRoutes(api)
		}
		if params.ReportHandler != nil {
			params.ReportHandler.MountRoutes(api)
		}
		if params.JobHandler != nil {
			api.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})
	return r
}
