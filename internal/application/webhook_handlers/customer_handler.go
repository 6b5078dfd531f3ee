package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"storebridge-sync-core/internal/application"
	"storebridge-sync-core/internal/domain"

	"github.com/rs/zerolog"
)

// CustomerHandler handles customer-related webhook events
type CustomerHandler struct {
	pipeline *application.Pipeline
	logger   zerolog.Logger
}

// NewCustomerHandler creates a new customer webhook handler
func NewCustomerHandler(pipeline *application.Pipeline, logger zerolog.Logger) *CustomerHandler {
	return &CustomerHandler{
		pipeline: pipeline,
		logger:   logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *CustomerHandler) CanHandle(topic string) bool {
	return topic == domain.TopicCustomerCreate ||
		topic == domain.TopicCustomerUpdate
}

// Handle upserts the shared customer master for the event's customer.
func (h *CustomerHandler) Handle(ctx context.Context, store *domain.Store, job *domain.Job) domain.Outcome {
	var event domain.CustomerEvent
	if err := json.Unmarshal(job.Payload, &event); err != nil {
		h.logger.Error().Err(err).
			Str("shop_domain", store.Domain).
			Str("topic", job.Topic).
			Msg("Failed to decode customer payload")
		return domain.ErrorOutcome("", fmt.Errorf("%w: %v", domain.ErrValidation, err))
	}

	h.logger.Debug().
		Str("shop_domain", store.Domain).
		Str("topic", job.Topic).
		Str("customer_id", event.ExternalID()).
		Msg("Processing customer event")

	return h.pipeline.SyncCustomer(ctx, store, &event)
}
