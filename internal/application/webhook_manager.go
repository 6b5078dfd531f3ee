package application

import (
	"context"
	"fmt"

	"storebridge-sync-core/internal/domain"
	"storebridge-sync-core/internal/ports"

	"github.com/rs/zerolog"
)

// WebhookManager keeps a store's webhook registrations on the platform in
// line with the topic set the pipeline consumes.
type WebhookManager struct {
	callbackURL string
	logger      zerolog.Logger
}

// NewWebhookManager creates a webhook manager registering against callbackURL
func NewWebhookManager(callbackURL string, logger zerolog.Logger) *WebhookManager {
	return &WebhookManager{
		callbackURL: callbackURL,
		logger:      logger,
	}
}

// DefaultTopics returns the webhook topics every enabled store subscribes to.
// Inventory levels are pulled on the orchestrator schedule, not pushed, so
// inventory_levels/update is deliberately absent.
func DefaultTopics() []string {
	return []string{
		domain.TopicOrderCreate,
		domain.TopicOrderUpdated,
		domain.TopicOrderCancelled,
		domain.TopicOrderPaid,
		domain.TopicOrderFulfilled,
		domain.TopicCustomerCreate,
		domain.TopicCustomerUpdate,
		domain.TopicProductUpdate,
		domain.TopicAppUninstalled,
	}
}

// EnsureRegistered registers whichever default topics the store is missing
// and returns the IDs of all registrations pointing at the callback URL.
// Re-running against a fully registered store creates nothing.
func (m *WebhookManager) EnsureRegistered(ctx context.Context, client ports.PlatformClient, storeDomain string) ([]int64, error) {
	existing, err := client.ListWebhooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}

	registered := make(map[string]int64)
	for _, wh := range existing {
		if wh.Address == m.callbackURL {
			registered[wh.Topic] = wh.ID
		}
	}

	topics := DefaultTopics()
	ids := make([]int64, 0, len(topics))
	for _, topic := range topics {
		if id, ok := registered[topic]; ok {
			ids = append(ids, id)
			continue
		}
		id, err := client.CreateWebhook(ctx, topic, m.callbackURL)
		if err != nil {
			return nil, fmt.Errorf("failed to register webhook for %s: %w", topic, err)
		}
		m.logger.Info().
			Str("shop_domain", storeDomain).
			Str("topic", topic).
			Int64("webhook_id", id).
			Msg("Registered webhook")
		ids = append(ids, id)
	}
	return ids, nil
}

// Unregister deletes the given webhook registrations. Failures are logged and
// skipped; the platform prunes dead registrations on its own eventually.
func (m *WebhookManager) Unregister(ctx context.Context, client ports.PlatformClient, storeDomain string, ids []int64) {
	for _, id := range ids {
		if err := client.DeleteWebhook(ctx, id); err != nil {
			m.logger.Warn().Err(err).
				Str("shop_domain", storeDomain).
				Int64("webhook_id", id).
				Msg("Failed to delete webhook")
		}
	}
}
