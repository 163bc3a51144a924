package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hotel-pms/hotel-pms/internal/alerts"
	"github.com/hotel-pms/hotel-pms/internal/app"
	"github.com/hotel-pms/hotel-pms/internal/inventory"
	jobmetrics "github.com/hotel-pms/hotel-pms/internal/jobs"
	"github.com/hotel-pms/hotel-pms/internal/platform/cache"
	"github.com/hotel-pms/hotel-pms/internal/platform/db"
	"github.com/hotel-pms/hotel-pms/internal/shared"
	"github.com/hotel-pms/hotel-pms/jobs"
)

func main() {
	trigger := flag.String("trigger", "", "enqueue the named task once and exit")
	stats := flag.Bool("stats", false, "print default queue statistics and exit")
	flag.Parse()

	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
	redisOpts := cfg.Queue()

	if *trigger != "" || *stats {
		os.Exit(runCLI(ctx, logger, redisOpts, *trigger, *stats))
	}

	pool, err := db.New(ctx, cfg.Postgres("hotel-worker"))
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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
	inventoryService := inventory.NewService(inventory.NewRepository(pool, policy), shared.NewAuditLogger(pool), logger)
	publisher := alerts.NewPublisher(redisClient, cfg.AlertChannel)
	lowStockJob := jobs.NewLowStockScanJob(inventoryService, publisher, logger, jobmetrics.NewMetrics(prometheus.DefaultRegisterer))

	scanTask, err := jobs.NewLowStockScanTask(time.Now().UTC())
	if err != nil {
		logger.Error("build low stock task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLowStockScan, Handler: lowStockJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.LowStockScanCron, Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("worker started", slog.String("low_stock_cron", cfg.LowStockScanCron), slog.String("channel", publisher.Channel()))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func runCLI(ctx context.Context, logger *slog.Logger, opts asynq.RedisClientOpt, trigger string, stats bool) int {
	cli := newQueueCLI(opts)
	defer func() {
		if err := cli.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()
	if trigger != "" {
		info, err := cli.Trigger(ctx, trigger)
		if err != nil {
			logger.Error("enqueue task", slog.String("task", trigger), slog.Any("error", err))
			return 1
		}
		logger.Info("task enqueued", slog.String("task", trigger), slog.String("id", info.ID), slog.String("queue", info.Queue))
	}
	if stats {
		s, err := cli.Stats()
		if err != nil {
			logger.Error("queue stats", slog.Any("error", err))
			return 1
		}
		logger.Info("queue stats",
			slog.String("queue", s.Queue),
			slog.Int("pending", s.Pending),
			slog.Int("active", s.Active),
			slog.Int("scheduled", s.Scheduled),
			slog.Int("retry", s.Retry),
			slog.Int("archived", s.Archived),
			slog.Bool("paused", s.Paused),
		)
	}
	return 0
}
