package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	defaultConcurrency = 4
	shutdownTimeout    = 10 * time.Second
)

// Worker runs the asynq server and the cron scheduler side by side.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
	types     []string
}

// TaskHandler binds a task type to its handler.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// CronRegistration schedules a prepared task on a cron expression.
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Logger      *slog.Logger
	Concurrency int
	Handlers    []TaskHandler
	Cron        []CronRegistration
}

// NewWorker validates the handler and cron tables and builds the server.
// Every cron entry must target a task type that has a handler.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	mux := asynq.NewServeMux()
	handled := make(map[string]bool, len(cfg.Handlers))
	types := make([]string, 0, len(cfg.Handlers))
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			return nil, fmt.Errorf("jobs: incomplete handler for %q", h.Type)
		}
		if handled[h.Type] {
			return nil, fmt.Errorf("jobs: duplicate handler for %q", h.Type)
		}
		handled[h.Type] = true
		types = append(types, h.Type)
		mux.HandleFunc(h.Type, h.Handler)
	}

	var scheduler *asynq.Scheduler
	if len(cfg.Cron) > 0 {
		scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{
			Location: time.UTC,
			EnqueueErrorHandler: func(task *asynq.Task, _ []asynq.Option, err error) {
				logger.Warn("cron enqueue failed", slog.String("task", task.Type()), slog.Any("error", err))
			},
		})
		for _, entry := range cfg.Cron {
			if entry.Task == nil || entry.Spec == "" {
				return nil, errors.New("jobs: cron entry needs a spec and a task")
			}
			if !handled[entry.Task.Type()] {
				return nil, fmt.Errorf("jobs: cron task %q has no handler", entry.Task.Type())
			}
			if _, err := scheduler.Register(entry.Spec, entry.Task, entry.Options...); err != nil {
				return nil, fmt.Errorf("jobs: register %q: %w", entry.Spec, err)
			}
		}
	}

	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency:     concurrency,
		Queues:          map[string]int{QueueDefault: 1},
		ShutdownTimeout: shutdownTimeout,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Warn("task failed",
				slog.String("task", task.Type()),
				slog.Int("retry", retried),
				slog.Int("max_retry", maxRetry),
				slog.Any("error", err),
			)
		}),
	})

	return &Worker{server: srv, mux: mux, scheduler: scheduler, logger: logger, types: types}, nil
}

// Types lists the task types the worker handles.
func (w *Worker) Types() []string {
	return append([]string(nil), w.types...)
}

// Run processes tasks until ctx is cancelled, then drains in-flight work.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("jobs: worker not configured")
	}
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			w.server.Shutdown()
			return err
		}
	}
	w.logger.Info("worker running", slog.Any("tasks", w.types))

	<-ctx.Done()
	if w.scheduler != nil {
		w.scheduler.Shutdown()
	}
	w.server.Shutdown()
	return ctx.Err()
}
