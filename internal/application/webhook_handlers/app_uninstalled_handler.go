package webhook_handlers

import (
	"context"

	"storebridge-sync-core/internal/application"
	"storebridge-sync-core/internal/domain"
	"storebridge-sync-core/internal/ports"

	"github.com/rs/zerolog"
)

// AppUninstalledHandler handles app uninstalled webhook events. The store is
// disabled so no further deliveries dispatch; its records are kept for audit.
type AppUninstalledHandler struct {
	registry *application.Registry
	logs     ports.SyncLogRepository
	logger   zerolog.Logger
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler
func NewAppUninstalledHandler(registry *application.Registry, logs ports.SyncLogRepository, logger zerolog.Logger) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		registry: registry,
		logs:     logs,
		logger:   logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == domain.TopicAppUninstalled
}

// Handle disables the store the uninstall came from. Webhook cleanup inside
// DisableStore is expected to fail here since the token is already revoked.
func (h *AppUninstalledHandler) Handle(ctx context.Context, store *domain.Store, job *domain.Job) domain.Outcome {
	h.logger.Warn().
		Str("shop_domain", store.Domain).
		Msg("App uninstalled, disabling store")

	if _, err := h.registry.DisableStore(ctx, store.ID); err != nil {
		return domain.ErrorOutcome(store.Domain, err)
	}

	entry := domain.NewSyncLogEntry(store, domain.MethodStoreDisable, store.Domain,
		domain.SyncStatusSuccess, "store disabled after app uninstall")
	if err := h.logs.Append(ctx, entry); err != nil {
		h.logger.Error().Err(err).
			Str("shop_domain", store.Domain).
			Msg("Failed to append sync log entry")
	}

	out := domain.MaterializedOutcome(store.Domain, store.ID, false)
	out.Reason = "store disabled"
	return out
}
