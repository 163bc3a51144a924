package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockScan scans basic inventory for items below their minimum.
	TaskLowStockScan = "inventory:low_stock_scan"
)

// LowStockScanPayload carries scheduling metadata.
type LowStockScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLowStockScanTask constructs the scan task.
func NewLowStockScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// NewTask builds a task by type name, for one-off triggers.
func NewTask(taskType string, at time.Time) (*asynq.Task, error) {
	switch taskType {
	case TaskLowStockScan:
		return NewLowStockScanTask(at)
	default:
		return nil, fmt.Errorf("jobs: unknown task %q", taskType)
	}
}
