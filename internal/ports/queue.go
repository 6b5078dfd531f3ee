package ports

import (
	"context"

	"storebridge-sync-core/internal/domain"
)

// JobQueue defines the interface for the asynchronous job queue between the
// dispatcher and the worker pool. Dequeue blocks until a job is available or
// the context is done.
type JobQueue interface {
	Enqueue(ctx context.Context, job *domain.Job) error
	Dequeue(ctx context.Context) (*domain.Job, error)
	Len(ctx context.Context) (int64, error)
}

// NoticeBus defines the interface for in-process sync outcome notifications.
// Subscriptions end when their context is cancelled; publishing never blocks.
type NoticeBus interface {
	Publish(notice *domain.SyncNotice)
	Subscribe(ctx context.Context, filter *domain.NoticeFilter) <-chan *domain.SyncNotice
}
