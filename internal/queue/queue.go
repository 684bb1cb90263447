package queue

import (
	"context"

	"github.com/google/uuid"
)

// Job is a unit of generation work handed to the worker pool.
type Job struct {
	OrderID uuid.UUID `json:"order_id"`
}

// Queue hands generation jobs from the API to the workers. Dequeue blocks
// until a job is available or the context is canceled.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Dequeue(ctx context.Context) (Job, error)
	Close() error
}
