package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storebridge-sync-core/internal/domain"
	"storebridge-sync-core/internal/infrastructure/metrics"
	"storebridge-sync-core/internal/ports"

	"github.com/rs/zerolog"
)

// InventoryService pushes current warehouse stock levels to each store's
// storefront. Levels flow one way, record store to platform; the platform is
// never the source of truth for stock.
type InventoryService struct {
	links   ports.EntityLinkRepository
	items   ports.ItemRepository
	stock   ports.StockRepository
	stores  ports.StoreRepository
	logs    ports.SyncLogRepository
	notices ports.NoticeBus
	reg     *Registry
	metrics metrics.Recorder
	logger  zerolog.Logger
	batch   int
}

// NewInventoryService creates the inventory push service. batch caps how
// many links one run touches; the rest waits for the next tick.
func NewInventoryService(
	links ports.EntityLinkRepository,
	items ports.ItemRepository,
	stock ports.StockRepository,
	stores ports.StoreRepository,
	logs ports.SyncLogRepository,
	notices ports.NoticeBus,
	registry *Registry,
	recorder metrics.Recorder,
	batch int,
	logger zerolog.Logger,
) *InventoryService {
	return &InventoryService{
		links:   links,
		items:   items,
		stock:   stock,
		stores:  stores,
		logs:    logs,
		notices: notices,
		reg:     registry,
		metrics: recorder,
		logger:  logger,
		batch:   batch,
	}
}

// SyncStore pushes the store's changed stock levels through the rate-limited
// client. force bypasses both the frequency gate and the changed-level check.
func (s *InventoryService) SyncStore(ctx context.Context, store *domain.Store, force bool) error {
	if !store.Enabled || !store.SyncInventory {
		return nil
	}
	if store.InventoryLocationID == 0 {
		s.logger.Warn().
			Str("shop_domain", store.Domain).
			Msg("Inventory sync enabled but no inventory location configured")
		return nil
	}
	if !force && !store.InventorySyncDue(time.Now()) {
		s.logger.Debug().
			Str("shop_domain", store.Domain).
			Msg("Inventory sync not due yet")
		return nil
	}

	client, err := s.reg.ClientFor(store)
	if err != nil {
		s.recordRollup(ctx, store, domain.SyncStatusError, err.Error())
		return err
	}

	itemLinks, err := s.links.ListByKind(ctx, store.ID, domain.EntityKindItem)
	if err != nil {
		s.recordRollup(ctx, store, domain.SyncStatusError, err.Error())
		return err
	}

	var pushed, missing, failed int
	var failedSKUs []string
	now := time.Now().UTC()

	for _, link := range itemLinks {
		if s.batch > 0 && pushed+missing+failed >= s.batch {
			break
		}
		if link.InventoryItemID == 0 {
			continue
		}

		item, err := s.items.GetByID(ctx, link.MasterID)
		if err != nil {
			failed++
			failedSKUs = append(failedSKUs, link.SKU)
			continue
		}
		if item == nil || item.Disabled {
			continue
		}

		level, err := s.stock.GetLevel(ctx, item.ID, store.Warehouse)
		if err != nil {
			failed++
			failedSKUs = append(failedSKUs, item.SKU)
			continue
		}
		if level == nil {
			continue
		}
		if !force && !link.LastSyncedAt.IsZero() && !level.UpdatedAt.After(link.LastSyncedAt) {
			continue
		}

		if err := client.SetInventoryLevel(ctx, link.InventoryItemID, store.InventoryLocationID, level.Quantity); err != nil {
			if errors.Is(err, domain.ErrRemoteNotFound) {
				// Variant is gone upstream; nothing to push anymore.
				missing++
				s.touch(ctx, store, link.ID, now)
				continue
			}
			failed++
			failedSKUs = append(failedSKUs, item.SKU)
			s.logger.Warn().Err(err).
				Str("shop_domain", store.Domain).
				Str("sku", item.SKU).
				Msg("Failed to push inventory level")
			continue
		}

		pushed++
		s.touch(ctx, store, link.ID, now)
	}

	s.metrics.InventoryPushed(store.Domain, pushed)

	var status domain.SyncStatus
	switch {
	case failed > 0 && pushed == 0 && missing == 0:
		status = domain.SyncStatusError
	case failed > 0:
		status = domain.SyncStatusIncomplete
	default:
		status = domain.SyncStatusSuccess
	}
	detail := fmt.Sprintf("pushed %d levels, %d missing upstream, %d failed", pushed, missing, failed)
	if len(failedSKUs) > 0 {
		detail += " (failed: " + strings.Join(failedSKUs, ", ") + ")"
	}
	s.recordRollup(ctx, store, status, detail)

	if status != domain.SyncStatusError {
		store.LastInventorySyncAt = now
		if err := s.stores.Update(ctx, store); err != nil {
			s.logger.Warn().Err(err).
				Str("shop_domain", store.Domain).
				Msg("Failed to update last inventory sync timestamp")
		}
	}

	if status == domain.SyncStatusError {
		return fmt.Errorf("inventory push failed for all %d attempted levels", failed)
	}
	return nil
}

func (s *InventoryService) touch(ctx context.Context, store *domain.Store, linkID string, at time.Time) {
	if err := s.links.Touch(ctx, linkID, at); err != nil {
		s.logger.Warn().Err(err).
			Str("shop_domain", store.Domain).
			Str("link_id", linkID).
			Msg("Failed to touch item link")
	}
}

// recordRollup writes the one rollup log entry for an inventory run and
// publishes the matching notice.
func (s *InventoryService) recordRollup(ctx context.Context, store *domain.Store, status domain.SyncStatus, detail string) {
	entry := domain.NewSyncLogEntry(store, domain.MethodInventoryPush, store.Domain, status, detail)
	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Error().Err(err).
			Str("shop_domain", store.Domain).
			Msg("Failed to append sync log entry")
	}
	s.notices.Publish(&domain.SyncNotice{
		StoreID:     store.ID,
		StoreDomain: store.Domain,
		Method:      domain.MethodInventoryPush,
		InputID:     store.Domain,
		Status:      status,
		Detail:      detail,
		At:          time.Now().UTC(),
	})
	s.metrics.OutcomeRecorded(store.Domain, domain.MethodInventoryPush, string(status))

	s.logger.Info().
		Str("shop_domain", store.Domain).
		Str("status", string(status)).
		Str("detail", detail).
		Msg("Inventory push finished")
}
