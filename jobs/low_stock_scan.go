package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/hotel-pms/hotel-pms/internal/alerts"
	"github.com/hotel-pms/hotel-pms/internal/inventory"
	jobmetrics "github.com/hotel-pms/hotel-pms/internal/jobs"
)

// BelowMinimumSource yields the items that need restocking.
type BelowMinimumSource interface {
	BelowMinimum(ctx context.Context) iter.Seq2[inventory.BasicInventory, error]
}

// AlertSweeper publishes alerts for a scan.
type AlertSweeper interface {
	Sweep(ctx context.Context, below iter.Seq2[inventory.BasicInventory, error]) (alerts.SweepResult, error)
}

// LowStockScanJob feeds the below-minimum query into the alert publisher.
type LowStockScanJob struct {
	Source    BelowMinimumSource
	Publisher AlertSweeper
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewLowStockScanJob initialises the scan handler.
func NewLowStockScanJob(source BelowMinimumSource, publisher AlertSweeper, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	return &LowStockScanJob{
		Source:    source,
		Publisher: publisher,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle runs one scan.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Source == nil || j.Publisher == nil {
		return errors.New("low stock scan: handler not configured")
	}
	start := j.clock()
	tracker := j.Metrics.Track(TaskLowStockScan)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	var payload LowStockScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("low stock scan payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	logger := j.logger()
	if !payload.ScheduledFor.IsZero() {
		logger = logger.With(slog.Time("scheduled_for", payload.ScheduledFor))
	}
	res, err := j.Publisher.Sweep(ctx, j.Source.BelowMinimum(ctx))
	if err != nil {
		logger.Error("low stock scan failed", slog.Any("error", err))
		return err
	}
	j.Metrics.ObserveScan(res.Below, res.Published, res.Cleared)
	logger.Info("completed low stock scan",
		slog.Int("below_minimum", res.Below),
		slog.Int("published", res.Published),
		slog.Int("cleared", res.Cleared),
		slog.Duration("duration", j.clock().Sub(start)),
	)
	return nil
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
