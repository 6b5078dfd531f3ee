package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"storebridge-sync-core/internal/domain"
	"storebridge-sync-core/internal/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LineResolver maps inbound order lines onto master item records. Resolution
// tries the store's entity links first (by external variant ID, then by SKU)
// and falls back to the shared item masters; a master hit backfills a link so
// the next event for the same variant resolves without the fallback.
type LineResolver struct {
	links  ports.EntityLinkRepository
	items  ports.ItemRepository
	logger zerolog.Logger
}

// NewLineResolver creates a line resolver
func NewLineResolver(links ports.EntityLinkRepository, items ports.ItemRepository, logger zerolog.Logger) *LineResolver {
	return &LineResolver{
		links:  links,
		items:  items,
		logger: logger,
	}
}

// ResolvedLines is the result of resolving every line of one order event.
// Unresolved carries the identifiers of lines no strategy could place.
type ResolvedLines struct {
	Lines      []domain.OrderLine
	Unresolved []string
}

// ResolveLines resolves all lines of an order event against the store's links
// and the shared item masters. It returns an error only on infrastructure
// failure; lines that simply have no master record land in Unresolved.
func (r *LineResolver) ResolveLines(ctx context.Context, store *domain.Store, lineItems []domain.LineItemEvent, warehouse string) (*ResolvedLines, error) {
	result := &ResolvedLines{}
	for i := range lineItems {
		li := &lineItems[i]

		masterID, err := r.resolveLine(ctx, store, li)
		if err != nil {
			return nil, err
		}
		if masterID == "" {
			result.Unresolved = append(result.Unresolved, lineTag(li))
			continue
		}

		qty := decimal.NewFromInt(int64(li.Quantity))
		result.Lines = append(result.Lines, domain.OrderLine{
			MasterItemID: masterID,
			SKU:          li.SKU,
			Description:  li.Title,
			Quantity:     qty,
			Rate:         li.Price,
			Amount:       li.Price.Mul(qty),
			Warehouse:    warehouse,
		})
	}
	return result, nil
}

// resolveLine returns the master item ID for one line, or "" when no strategy
// found one.
func (r *LineResolver) resolveLine(ctx context.Context, store *domain.Store, li *domain.LineItemEvent) (string, error) {
	variantID := strconv.FormatInt(li.VariantID, 10)

	if li.VariantID != 0 {
		link, err := r.links.GetByExternalID(ctx, store.ID, domain.EntityKindItem, variantID)
		if err != nil {
			return "", fmt.Errorf("failed to resolve line by external ID: %w", err)
		}
		if link != nil {
			return link.MasterID, nil
		}
	}

	// A link recorded under the same SKU means the variant was recreated
	// upstream; refresh the recorded external ID.
	if li.SKU != "" {
		link, err := r.links.GetBySKU(ctx, store.ID, li.SKU)
		if err != nil {
			return "", fmt.Errorf("failed to resolve line by SKU: %w", err)
		}
		if link != nil {
			if li.VariantID != 0 && link.ExternalID != variantID {
				link.ExternalID = variantID
				if uerr := r.links.Update(ctx, link); uerr != nil {
					r.logger.Warn().Err(uerr).
						Str("sku", li.SKU).
						Str("variant_id", variantID).
						Msg("Failed to refresh item link external ID")
				}
			}
			return link.MasterID, nil
		}
	}

	item, err := r.lookupItem(ctx, li)
	if err != nil {
		return "", err
	}
	if item == nil || item.Disabled {
		return "", nil
	}

	r.backfillLink(ctx, store, li, item)
	return item.ID, nil
}

// lookupItem searches the shared item masters by SKU, then by name.
func (r *LineResolver) lookupItem(ctx context.Context, li *domain.LineItemEvent) (*domain.Item, error) {
	if li.SKU != "" {
		item, err := r.items.GetBySKU(ctx, li.SKU)
		if err != nil {
			return nil, fmt.Errorf("failed to look up item by SKU: %w", err)
		}
		if item != nil {
			return item, nil
		}
	}
	if li.Title != "" {
		item, err := r.items.GetByName(ctx, li.Title)
		if err != nil {
			return nil, fmt.Errorf("failed to look up item by name: %w", err)
		}
		if item != nil {
			return item, nil
		}
	}
	return nil, nil
}

// backfillLink records the resolved variant so the master fallback is not
// needed again. Losing the race to a concurrent backfill is fine.
func (r *LineResolver) backfillLink(ctx context.Context, store *domain.Store, li *domain.LineItemEvent, item *domain.Item) {
	if li.VariantID == 0 {
		return
	}
	link := &domain.EntityLink{
		StoreID:      store.ID,
		Kind:         domain.EntityKindItem,
		MasterID:     item.ID,
		ExternalID:   strconv.FormatInt(li.VariantID, 10),
		SKU:          li.SKU,
		LastSyncedAt: time.Now().UTC(),
	}
	if err := r.links.Create(ctx, link); err != nil && !errors.Is(err, domain.ErrConflict) {
		r.logger.Warn().Err(err).
			Str("sku", li.SKU).
			Int64("variant_id", li.VariantID).
			Msg("Failed to backfill item link")
	}
}

// lineTag returns the identifier reported for an unresolved line.
func lineTag(li *domain.LineItemEvent) string {
	if li.SKU != "" {
		return li.SKU
	}
	if li.Title != "" {
		return li.Title
	}
	return "variant:" + strconv.FormatInt(li.VariantID, 10)
}
