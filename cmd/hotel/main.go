package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/text/language"

	"github.com/hotel-pms/hotel-pms/internal/app"
	"github.com/hotel-pms/hotel-pms/internal/audit"
	"github.com/hotel-pms/hotel-pms/internal/auth"
	"github.com/hotel-pms/hotel-pms/internal/booking"
	"github.com/hotel-pms/hotel-pms/internal/expenses"
	"github.com/hotel-pms/hotel-pms/internal/inventory"
	"github.com/hotel-pms/hotel-pms/internal/invoicing"
	"github.com/hotel-pms/hotel-pms/internal/observability"
	"github.com/hotel-pms/hotel-pms/internal/payments"
	"github.com/hotel-pms/hotel-pms/internal/platform/cache"
	"github.com/hotel-pms/hotel-pms/internal/platform/db"
	"github.com/hotel-pms/hotel-pms/internal/procurement"
	"github.com/hotel-pms/hotel-pms/internal/rbac"
	"github.com/hotel-pms/hotel-pms/internal/rooms"
	"github.com/hotel-pms/hotel-pms/internal/shared"
	"github.com/hotel-pms/hotel-pms/jobs"
	"github.com/hotel-pms/hotel-pms/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	dbpool, err := db.New(ctx, cfg.Postgres("hotel-api"))
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	policy := db.DefaultRetryPolicy()
	policy.MaxRetries = cfg.TxMaxRetries
	if cfg.TxRetryBase > 0 {
		policy.BaseDelay = cfg.TxRetryBase
	}

	metrics := observability.NewMetrics()
	domainMetrics := observability.NewDomainMetrics(metrics.Registerer())
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(redisClient, cfg.IdempotencyTTL)

	rbacService := rbac.NewService()
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	roomService := rooms.NewService(rooms.NewRepository(dbpool))
	capacity := rooms.NewCachedProvider(roomService, redisClient, cfg.RoomCacheTTL)

	paymentService := payments.NewService(payments.NewRepository(dbpool, policy), booking.PaymentPhase, idempotencyStore, auditLogger, domainMetrics, logger)
	bookingService := booking.NewService(booking.NewRepository(dbpool, policy), capacity, paymentService, idempotencyStore, auditLogger, domainMetrics, logger)
	inventoryService := inventory.NewService(inventory.NewRepository(dbpool, policy), auditLogger, logger)
	procurementService := procurement.NewService(procurement.NewRepository(dbpool, policy), rbacService, idempotencyStore, auditLogger, logger)
	expenseService := expenses.NewService(expenses.NewRepository(dbpool), rbacService, auditLogger, logger)

	reportClient := report.NewClient(cfg.GotenbergURL, cfg.GotenbergTimeout)
	renderer, err := invoicing.NewRenderer(reportClient, language.MustParse("es-CO"))
	if err != nil {
		logger.Error("init invoice renderer", slog.Any("error", err))
		os.Exit(1)
	}
	invoiceService := invoicing.NewService(bookingService, renderer, cfg.HotelName)

	inspector := asynq.NewInspector(cfg.Queue())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Metrics:            metrics,
		Auth:               auth.Middleware{Verifier: auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer), Logger: logger},
		AuthHandler:        auth.NewHandler(rbacService),
		RoomsHandler:       rooms.NewHandler(roomService, rbacMiddleware),
		BookingHandler:     booking.NewHandler(bookingService, rbacMiddleware),
		PaymentsHandler:    payments.NewHandler(paymentService, rbacMiddleware),
		InventoryHandler:   inventory.NewHandler(inventoryService, rbacMiddleware),
		ProcurementHandler: procurement.NewHandler(procurementService, rbacMiddleware),
		ExpensesHandler:    expenses.NewHandler(expenseService, rbacMiddleware),
		InvoicingHandler:   invoicing.NewHandler(invoiceService, rbacMiddleware, logger),
		AuditHandler:       audit.NewHandler(audit.NewService(audit.NewRepository(dbpool)), rbacMiddleware, logger),
		ReportHandler:      report.NewHandler(reportClient, logger),
		JobHandler:         jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
