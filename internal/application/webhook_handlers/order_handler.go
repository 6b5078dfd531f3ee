package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"storebridge-sync-core/internal/application"
	"storebridge-sync-core/internal/domain"

	"github.com/rs/zerolog"
)

// OrderHandler handles order-related webhook events by running them through
// the sync pipeline.
type OrderHandler struct {
	pipeline *application.Pipeline
	logger   zerolog.Logger
}

// NewOrderHandler creates a new order webhook handler
func NewOrderHandler(pipeline *application.Pipeline, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		pipeline: pipeline,
		logger:   logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *OrderHandler) CanHandle(topic string) bool {
	return topic == domain.TopicOrderCreate ||
		topic == domain.TopicOrderUpdated ||
		topic == domain.TopicOrderCancelled ||
		topic == domain.TopicOrderPaid ||
		topic == domain.TopicOrderFulfilled
}

// Handle routes an order event to the pipeline method for its topic.
func (h *OrderHandler) Handle(ctx context.Context, store *domain.Store, job *domain.Job) domain.Outcome {
	var event domain.OrderEvent
	if err := json.Unmarshal(job.Payload, &event); err != nil {
		h.logger.Error().Err(err).
			Str("shop_domain", store.Domain).
			Str("topic", job.Topic).
			Msg("Failed to decode order payload")
		return domain.ErrorOutcome("", fmt.Errorf("%w: %v", domain.ErrValidation, err))
	}

	h.logger.Debug().
		Str("shop_domain", store.Domain).
		Str("topic", job.Topic).
		Str("order_id", event.ExternalID()).
		Msg("Processing order event")

	switch job.Topic {
	case domain.TopicOrderCreate:
		return h.pipeline.Materialize(ctx, store, &event, job.Payload)
	case domain.TopicOrderUpdated:
		return h.pipeline.HandleUpdate(ctx, store, &event, job.Payload)
	case domain.TopicOrderCancelled:
		return h.pipeline.Cancel(ctx, store, &event)
	case domain.TopicOrderPaid:
		return h.pipeline.MarkPaid(ctx, store, &event)
	case domain.TopicOrderFulfilled:
		return h.pipeline.SyncFulfillments(ctx, store, &event)
	default:
		return domain.SkippedOutcome(event.ExternalID(), "unhandled order topic "+job.Topic)
	}
}
