package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, *asynq.Task) error { return nil }

func TestNewWorkerValidatesTables(t *testing.T) {
	mr := miniredis.RunT(t)
	opts := asynq.RedisClientOpt{Addr: mr.Addr()}
	task, err := NewLowStockScanTask(time.Now())
	require.NoError(t, err)

	_, err = NewWorker(WorkerConfig{RedisOpts: opts, Handlers: []TaskHandler{{Type: TaskLowStockScan}}})
	require.ErrorContains(t, err, "incomplete handler")

	_, err = NewWorker(WorkerConfig{RedisOpts: opts, Handlers: []TaskHandler{
		{Type: TaskLowStockScan, Handler: noop},
		{Type: TaskLowStockScan, Handler: noop},
	}})
	require.ErrorContains(t, err, "duplicate handler")

	_, err = NewWorker(WorkerConfig{RedisOpts: opts, Cron: []CronRegistration{{Spec: "*/30 * * * *", Task: task}}})
	require.ErrorContains(t, err, "has no handler")

	w, err := NewWorker(WorkerConfig{
		RedisOpts: opts,
		Handlers:  []TaskHandler{{Type: TaskLowStockScan, Handler: noop}},
		Cron:      []CronRegistration{{Spec: "*/30 * * * *", Task: task}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{TaskLowStockScan}, w.Types())
}

func TestClientEnqueueKnownTasks(t *testing.T) {
	mr := miniredis.RunT(t)
	opts := asynq.RedisClientOpt{Addr: mr.Addr()}
	client := NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	info, err := client.Enqueue(context.Background(), TaskLowStockScan)
	require.NoError(t, err)
	require.Equal(t, QueueDefault, info.Queue)

	_, err = client.Enqueue(context.Background(), "mail:send")
	require.Error(t, err)
}
