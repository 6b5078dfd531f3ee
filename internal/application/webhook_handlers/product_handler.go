package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"storebridge-sync-core/internal/application"
	"storebridge-sync-core/internal/domain"

	"github.com/rs/zerolog"
)

// ProductHandler handles product-related webhook events
type ProductHandler struct {
	pipeline *application.Pipeline
	logger   zerolog.Logger
}

// NewProductHandler creates a new product webhook handler
func NewProductHandler(pipeline *application.Pipeline, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		pipeline: pipeline,
		logger:   logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *ProductHandler) CanHandle(topic string) bool {
	return topic == domain.TopicProductUpdate
}

// Handle refreshes the store's item links from the product's variants.
func (h *ProductHandler) Handle(ctx context.Context, store *domain.Store, job *domain.Job) domain.Outcome {
	var event domain.ProductEvent
	if err := json.Unmarshal(job.Payload, &event); err != nil {
		h.logger.Error().Err(err).
			Str("shop_domain", store.Domain).
			Str("topic", job.Topic).
			Msg("Failed to decode product payload")
		return domain.ErrorOutcome("", fmt.Errorf("%w: %v", domain.ErrValidation, err))
	}

	h.logger.Debug().
		Str("shop_domain", store.Domain).
		Int64("product_id", event.ID).
		Int("variants", len(event.Variants)).
		Msg("Processing product event")

	return h.pipeline.RefreshProductLinks(ctx, store, &event)
}
