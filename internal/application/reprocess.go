package application

import (
	"context"
	"time"

	"storebridge-sync-core/internal/domain"
	"storebridge-sync-core/internal/infrastructure/metrics"
	"storebridge-sync-core/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Reprocessor re-enqueues Incomplete sync attempts as fresh jobs. Incomplete
// entries retain their payload, so the original delivery is not needed once
// the blocking condition (usually a missing master record) has cleared.
type Reprocessor struct {
	logs    ports.SyncLogRepository
	orders  ports.OrderRepository
	queue   ports.JobQueue
	metrics metrics.Recorder
	logger  zerolog.Logger
	batch   int64
}

// NewReprocessor creates the incomplete-entry reprocessor
func NewReprocessor(
	logs ports.SyncLogRepository,
	orders ports.OrderRepository,
	queue ports.JobQueue,
	recorder metrics.Recorder,
	batch int64,
	logger zerolog.Logger,
) *Reprocessor {
	return &Reprocessor{
		logs:    logs,
		orders:  orders,
		queue:   queue,
		metrics: recorder,
		logger:  logger,
		batch:   batch,
	}
}

// Reprocess enqueues one job per distinct incomplete order of the store,
// newest entry first, and returns how many jobs it enqueued. Orders that
// materialized since their incomplete attempt are skipped.
func (r *Reprocessor) Reprocess(ctx context.Context, store *domain.Store) (int, error) {
	limit := r.batch
	if limit <= 0 {
		limit = 50
	}
	entries, err := r.logs.ListByStatus(ctx, store.ID, domain.SyncStatusIncomplete, limit)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]struct{})
	enqueued := 0
	for _, entry := range entries {
		if entry.Method != domain.MethodOrderMaterialize && entry.Method != domain.MethodOrderUpdate {
			continue
		}
		if _, ok := seen[entry.InputID]; ok {
			continue
		}
		seen[entry.InputID] = struct{}{}
		if len(entry.Payload) == 0 {
			continue
		}

		existing, err := r.orders.GetByExternalID(ctx, store.ID, entry.InputID)
		if err != nil {
			return enqueued, err
		}
		if existing != nil {
			continue
		}

		job := &domain.Job{
			ID:          uuid.NewString(),
			StoreID:     store.ID,
			StoreDomain: store.Domain,
			Topic:       domain.TopicOrderCreate,
			Payload:     entry.Payload,
			ReceivedAt:  time.Now().UTC(),
		}
		if err := r.queue.Enqueue(ctx, job); err != nil {
			return enqueued, err
		}
		r.metrics.JobEnqueued(job.Topic)
		enqueued++
	}

	if enqueued > 0 {
		r.logger.Info().
			Str("shop_domain", store.Domain).
			Int("jobs", enqueued).
			Msg("Requeued incomplete orders for reprocessing")
	}
	return enqueued, nil
}
