package queue

import (
	"context"

	"storebridge-sync-core/internal/domain"
	"storebridge-sync-core/internal/ports"
)

// MemoryQueue is a process-local job queue for tests and single-instance
// deployments without Redis.
type MemoryQueue struct {
	jobs chan *domain.Job
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryQueue{jobs: make(chan *domain.Job, capacity)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job *domain.Job) error {
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*domain.Job, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) Len(ctx context.Context) (int64, error) {
	return int64(len(q.jobs)), nil
}

var _ ports.JobQueue = (*MemoryQueue)(nil)
