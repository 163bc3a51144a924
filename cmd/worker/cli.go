package main

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"

	"github.com/hotel-pms/hotel-pms/jobs"
)

// queueCLI backs the one-shot -trigger and -stats flags.
type queueCLI struct {
	client    *jobs.Client
	inspector *asynq.Inspector
}

func newQueueCLI(opts asynq.RedisClientOpt) *queueCLI {
	return &queueCLI{client: jobs.NewClient(opts), inspector: asynq.NewInspector(opts)}
}

func (c *queueCLI) Close() error {
	return errors.Join(c.inspector.Close(), c.client.Close())
}

// Trigger enqueues a known task once.
func (c *queueCLI) Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error) {
	return c.client.Enqueue(ctx, name)
}

// Stats reads the default queue depth.
func (c *queueCLI) Stats() (jobs.QueueDepth, error) {
	return jobs.Depth(c.inspector, jobs.QueueDefault)
}
