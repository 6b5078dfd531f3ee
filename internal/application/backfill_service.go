package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storebridge-sync-core/internal/domain"
	"storebridge-sync-core/internal/ports"

	"github.com/rs/zerolog"
)

// BackfillService pulls historical orders from the platform and runs them
// through the same materialization path as webhook deliveries. Idempotency
// dedupes against whatever the webhooks already delivered.
type BackfillService struct {
	reg      *Registry
	pipeline *Pipeline
	stores   ports.StoreRepository
	logger   zerolog.Logger
	pageSize int
}

// NewBackfillService creates the historical order backfill service
func NewBackfillService(registry *Registry, pipeline *Pipeline, stores ports.StoreRepository, pageSize int, logger zerolog.Logger) *BackfillService {
	return &BackfillService{
		reg:      registry,
		pipeline: pipeline,
		stores:   stores,
		logger:   logger,
		pageSize: pageSize,
	}
}

// BackfillStore lists orders created since the store's watermark and
// materializes each page. The watermark only advances after a page completed,
// so an aborted run repeats work instead of skipping it.
func (s *BackfillService) BackfillStore(ctx context.Context, store *domain.Store) error {
	if !store.Enabled || !store.BackfillEnabled {
		return nil
	}

	since := store.BackfillWatermark
	if since.IsZero() {
		since = store.OrderCutoff
	}
	if since.IsZero() {
		since = time.Now().Add(-24 * time.Hour)
	}

	client, err := s.reg.ClientFor(store)
	if err != nil {
		return err
	}

	pageSize := s.pageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		events, err := client.ListOrdersSince(ctx, since, pageSize)
		if err != nil {
			return fmt.Errorf("failed to list orders since %s: %w", since.Format(time.RFC3339), err)
		}
		if len(events) == 0 {
			break
		}

		var pageMax time.Time
		counts := make(map[domain.OutcomeStatus]int)
		for i := range events {
			event := &events[i]
			payload, merr := json.Marshal(event)
			if merr != nil {
				s.logger.Warn().Err(merr).
					Str("shop_domain", store.Domain).
					Str("order_id", event.ExternalID()).
					Msg("Skipping unencodable backfill order")
				continue
			}

			out := s.pipeline.Materialize(ctx, store, event, payload)
			counts[out.Status]++
			if out.Status == domain.OutcomeError && domain.IsRetryable(out.Err) {
				// Do not advance the watermark past a failed order.
				return out.Err
			}
			if event.CreatedAt.After(pageMax) {
				pageMax = event.CreatedAt
			}
		}

		s.logger.Info().
			Str("shop_domain", store.Domain).
			Int("orders", len(events)).
			Int("materialized", counts[domain.OutcomeMaterialized]).
			Int("incomplete", counts[domain.OutcomeIncomplete]).
			Int("skipped", counts[domain.OutcomeSkipped]).
			Int("errors", counts[domain.OutcomeError]).
			Time("watermark", pageMax).
			Msg("Backfill page processed")

		if !pageMax.After(store.BackfillWatermark) {
			// No forward progress; stop instead of refetching the
			// same page forever.
			break
		}
		store.BackfillWatermark = pageMax
		if err := s.stores.Update(ctx, store); err != nil {
			return fmt.Errorf("failed to advance backfill watermark: %w", err)
		}

		if len(events) < pageSize {
			break
		}
		since = pageMax
	}
	return nil
}
