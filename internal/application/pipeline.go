package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"storebridge-sync-core/internal/domain"
	"storebridge-sync-core/internal/infrastructure/metrics"
	"storebridge-sync-core/internal/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// updateConflictRetries bounds how often an optimistic order update is
// retried before the event is surfaced as a retryable error.
const updateConflictRetries = 5

// Pipeline executes the sync methods that turn authenticated storefront
// events into backend records. Every method returns a tagged Outcome, writes
// exactly one sync log entry and publishes one notice; there is no silent
// path out.
//
// Order-level work is serialized per (store, external order ID), so a create
// and an update for the same order never interleave within this process. The
// unique index on the orders collection covers races across processes.
type Pipeline struct {
	orders       ports.OrderRepository
	invoices     ports.InvoiceRepository
	fulfillments ports.FulfillmentRepository
	customers    ports.CustomerRepository
	links        ports.EntityLinkRepository
	logs         ports.SyncLogRepository
	resolver     *LineResolver
	notices      ports.NoticeBus
	metrics      metrics.Recorder
	locks        *KeyedLocks
	logger       zerolog.Logger
}

// NewPipeline creates the sync pipeline
func NewPipeline(
	orders ports.OrderRepository,
	invoices ports.InvoiceRepository,
	fulfillments ports.FulfillmentRepository,
	customers ports.CustomerRepository,
	links ports.EntityLinkRepository,
	logs ports.SyncLogRepository,
	resolver *LineResolver,
	notices ports.NoticeBus,
	recorder metrics.Recorder,
	logger zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		orders:       orders,
		invoices:     invoices,
		fulfillments: fulfillments,
		customers:    customers,
		links:        links,
		logs:         logs,
		resolver:     resolver,
		notices:      notices,
		metrics:      recorder,
		locks:        NewKeyedLocks(),
		logger:       logger,
	}
}

func orderKey(storeID, externalID string) string {
	return storeID + ":" + externalID
}

// Materialize turns one order create event into a durable order plus its
// derived records. Redelivered events resolve to the already-materialized
// order; success is only reported after the written order was re-read.
func (p *Pipeline) Materialize(ctx context.Context, store *domain.Store, event *domain.OrderEvent, payload json.RawMessage) domain.Outcome {
	externalID := event.ExternalID()
	unlock := p.locks.Lock(orderKey(store.ID, externalID))
	defer unlock()

	out := p.materialize(ctx, store, event)
	return p.record(ctx, store, domain.MethodOrderMaterialize, externalID, out, payload)
}

func (p *Pipeline) materialize(ctx context.Context, store *domain.Store, event *domain.OrderEvent) domain.Outcome {
	externalID := event.ExternalID()

	existing, err := p.orders.GetByExternalID(ctx, store.ID, externalID)
	if err != nil {
		return domain.ErrorOutcome(externalID, err)
	}
	if existing != nil {
		// Redelivery. The order stands; derived records may still be
		// missing if an earlier run failed between writes.
		if out := p.ensureDerived(ctx, store, existing, event); out != nil {
			return *out
		}
		return domain.MaterializedOutcome(externalID, existing.ID, true)
	}

	if !store.OrderCutoff.IsZero() && !event.CreatedAt.IsZero() && event.CreatedAt.Before(store.OrderCutoff) {
		return domain.SkippedOutcome(externalID, "order predates the store cutoff")
	}
	if event.CancelledAt != nil {
		return domain.SkippedOutcome(externalID, "order was cancelled upstream before materialization")
	}
	if len(event.LineItems) == 0 {
		return domain.IncompleteOutcome(externalID, "order carries no line items", nil)
	}
	if event.RequiresShipping() && event.ShippingAddress == nil {
		return domain.IncompleteOutcome(externalID, "order requires shipping but carries no shipping address", nil)
	}

	customerID, failed := p.ensureCustomer(ctx, store, event)
	if failed != nil {
		return *failed
	}

	warehouse := store.Warehouse
	if event.ShippingAddress != nil {
		warehouse = store.WarehouseForCountry(event.ShippingAddress.CountryCode)
	}

	resolved, err := p.resolver.ResolveLines(ctx, store, event.LineItems, warehouse)
	if err != nil {
		return domain.ErrorOutcome(externalID, err)
	}
	if len(resolved.Unresolved) > 0 {
		return domain.IncompleteOutcome(externalID, "line items could not be resolved to master items", resolved.Unresolved)
	}

	order := buildOrder(store, event, customerID, resolved.Lines)

	orderID, err := p.orders.Create(ctx, order)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Lost a cross-process race; the winner's order stands.
			winner, gerr := p.orders.GetByExternalID(ctx, store.ID, externalID)
			if gerr != nil {
				return domain.ErrorOutcome(externalID, gerr)
			}
			if winner != nil {
				return domain.MaterializedOutcome(externalID, winner.ID, true)
			}
		}
		return domain.ErrorOutcome(externalID, err)
	}

	// Success is only claimed for an order that reads back.
	persisted, err := p.orders.GetByID(ctx, orderID)
	if err != nil {
		return domain.ErrorOutcome(externalID, err)
	}
	if persisted == nil {
		return domain.ErrorOutcome(externalID, fmt.Errorf("%w: order %s missing after create", domain.ErrPersistence, orderID))
	}

	if out := p.ensureDerived(ctx, store, persisted, event); out != nil {
		return *out
	}

	return domain.MaterializedOutcome(externalID, persisted.ID, false)
}

// HandleUpdate applies an order update event to the materialized order. An
// update for an order that only exists as an Incomplete log entry re-runs
// materialization with the fresh payload.
func (p *Pipeline) HandleUpdate(ctx context.Context, store *domain.Store, event *domain.OrderEvent, payload json.RawMessage) domain.Outcome {
	externalID := event.ExternalID()

	if !store.OrderCutoff.IsZero() && !event.CreatedAt.IsZero() && event.CreatedAt.Before(store.OrderCutoff) {
		return p.record(ctx, store, domain.MethodOrderUpdate, externalID,
			domain.SkippedOutcome(externalID, "order predates the store cutoff"), nil)
	}

	existing, err := p.orders.GetByExternalID(ctx, store.ID, externalID)
	if err != nil {
		return p.record(ctx, store, domain.MethodOrderUpdate, externalID, domain.ErrorOutcome(externalID, err), nil)
	}
	if existing == nil {
		incomplete, herr := p.logs.HasIncomplete(ctx, store.ID, externalID)
		if herr != nil {
			return p.record(ctx, store, domain.MethodOrderUpdate, externalID, domain.ErrorOutcome(externalID, herr), nil)
		}
		if incomplete {
			// The update payload may carry what the create was missing.
			return p.Materialize(ctx, store, event, payload)
		}
		return p.record(ctx, store, domain.MethodOrderUpdate, externalID,
			domain.SkippedOutcome(externalID, "update for an order that was never materialized"), nil)
	}

	unlock := p.locks.Lock(orderKey(store.ID, externalID))
	defer unlock()

	out := p.applyUpdate(ctx, store, event)
	return p.record(ctx, store, domain.MethodOrderUpdate, externalID, out, payload)
}

func (p *Pipeline) applyUpdate(ctx context.Context, store *domain.Store, event *domain.OrderEvent) domain.Outcome {
	externalID := event.ExternalID()

	var lastErr error
	for attempt := 0; attempt < updateConflictRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return domain.ErrorOutcome(externalID, fmt.Errorf("%w: %v", domain.ErrTransientUpstream, ctx.Err()))
			case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
			}
		}

		order, err := p.orders.GetByExternalID(ctx, store.ID, externalID)
		if err != nil {
			return domain.ErrorOutcome(externalID, err)
		}
		if order == nil {
			return domain.SkippedOutcome(externalID, "update for an order that was never materialized")
		}
		if order.Status == domain.OrderStatusCancelled {
			return domain.SkippedOutcome(externalID, "order is cancelled")
		}

		if len(event.LineItems) > 0 {
			warehouse := store.Warehouse
			if event.ShippingAddress != nil {
				warehouse = store.WarehouseForCountry(event.ShippingAddress.CountryCode)
			}
			resolved, rerr := p.resolver.ResolveLines(ctx, store, event.LineItems, warehouse)
			if rerr != nil {
				return domain.ErrorOutcome(externalID, rerr)
			}
			if len(resolved.Unresolved) > 0 {
				return domain.IncompleteOutcome(externalID, "updated line items could not be resolved to master items", resolved.Unresolved)
			}
			order.Lines = resolved.Lines
		}

		order.Subtotal = event.SubtotalPrice
		order.TaxTotal = event.TotalTax
		order.Total = event.TotalPrice
		if event.Name != "" {
			order.ExternalNumber = event.Name
		}
		if event.FinancialStatus != "" {
			order.FinancialState = event.FinancialStatus
		}
		order.Note = event.Note
		if event.ShippingAddress != nil {
			order.ShippingTo = event.ShippingAddress.ToAddress()
		}
		if event.BillingAddress != nil {
			order.BillingTo = event.BillingAddress.ToAddress()
		}

		if err := p.orders.Update(ctx, order); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				lastErr = err
				continue
			}
			return domain.ErrorOutcome(externalID, err)
		}
		return domain.MaterializedOutcome(externalID, order.ID, false)
	}
	return domain.ErrorOutcome(externalID, fmt.Errorf("order update retries exhausted: %w", lastErr))
}

// Cancel marks the materialized order cancelled and cascades to its derived
// records: an unpaid invoice is cancelled, fulfillments are cancelled.
func (p *Pipeline) Cancel(ctx context.Context, store *domain.Store, event *domain.OrderEvent) domain.Outcome {
	externalID := event.ExternalID()
	unlock := p.locks.Lock(orderKey(store.ID, externalID))
	defer unlock()

	out := p.cancel(ctx, store, externalID)
	return p.record(ctx, store, domain.MethodOrderCancel, externalID, out, nil)
}

func (p *Pipeline) cancel(ctx context.Context, store *domain.Store, externalID string) domain.Outcome {
	order, err := p.orders.GetByExternalID(ctx, store.ID, externalID)
	if err != nil {
		return domain.ErrorOutcome(externalID, err)
	}
	if order == nil {
		return domain.SkippedOutcome(externalID, "order was never materialized")
	}
	if order.Status == domain.OrderStatusCancelled {
		return domain.MaterializedOutcome(externalID, order.ID, true)
	}

	var lastErr error
	for attempt := 0; attempt < updateConflictRetries; attempt++ {
		order.Status = domain.OrderStatusCancelled
		if err := p.orders.Update(ctx, order); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				lastErr = err
				order, err = p.orders.GetByExternalID(ctx, store.ID, externalID)
				if err != nil {
					return domain.ErrorOutcome(externalID, err)
				}
				if order == nil || order.Status == domain.OrderStatusCancelled {
					break
				}
				continue
			}
			return domain.ErrorOutcome(externalID, err)
		}
		lastErr = nil
		break
	}
	if lastErr != nil {
		return domain.ErrorOutcome(externalID, fmt.Errorf("order cancel retries exhausted: %w", lastErr))
	}
	if order == nil {
		return domain.ErrorOutcome(externalID, fmt.Errorf("%w: order vanished during cancel", domain.ErrPersistence))
	}

	if store.SyncInvoices {
		inv, err := p.invoices.GetByExternalOrderID(ctx, store.ID, externalID)
		if err != nil {
			return domain.ErrorOutcome(externalID, err)
		}
		// A paid invoice is left standing for the refund flow.
		if inv != nil && !inv.Paid && !inv.Cancelled {
			inv.Cancelled = true
			if err := p.invoices.Update(ctx, inv); err != nil {
				return domain.ErrorOutcome(externalID, err)
			}
		}
	}

	existing, err := p.fulfillments.ListByOrder(ctx, order.ID)
	if err != nil {
		return domain.ErrorOutcome(externalID, err)
	}
	for _, f := range existing {
		if f.Cancelled {
			continue
		}
		f.Cancelled = true
		if err := p.fulfillments.Update(ctx, f); err != nil {
			return domain.ErrorOutcome(externalID, err)
		}
	}

	return domain.MaterializedOutcome(externalID, order.ID, false)
}

// MarkPaid records payment on the order's invoice, creating the invoice first
// if materialization ran before invoice sync was enabled.
func (p *Pipeline) MarkPaid(ctx context.Context, store *domain.Store, event *domain.OrderEvent) domain.Outcome {
	externalID := event.ExternalID()
	unlock := p.locks.Lock(orderKey(store.ID, externalID))
	defer unlock()

	out := p.markPaid(ctx, store, event)
	return p.record(ctx, store, domain.MethodInvoicePaid, externalID, out, nil)
}

func (p *Pipeline) markPaid(ctx context.Context, store *domain.Store, event *domain.OrderEvent) domain.Outcome {
	externalID := event.ExternalID()

	if !store.SyncInvoices {
		return domain.SkippedOutcome(externalID, "invoice sync is disabled for this store")
	}

	order, err := p.orders.GetByExternalID(ctx, store.ID, externalID)
	if err != nil {
		return domain.ErrorOutcome(externalID, err)
	}
	if order == nil {
		return domain.SkippedOutcome(externalID, "order was never materialized")
	}

	if out := p.ensureInvoice(ctx, store, order); out != nil {
		return *out
	}
	inv, err := p.invoices.GetByExternalOrderID(ctx, store.ID, externalID)
	if err != nil {
		return domain.ErrorOutcome(externalID, err)
	}
	if inv == nil {
		return domain.ErrorOutcome(externalID, fmt.Errorf("%w: invoice missing after create", domain.ErrPersistence))
	}
	if inv.Paid {
		return domain.MaterializedOutcome(externalID, order.ID, true)
	}

	inv.Paid = true
	inv.PaymentRef = order.ExternalNumber
	if err := p.invoices.Update(ctx, inv); err != nil {
		return domain.ErrorOutcome(externalID, err)
	}

	if order.FinancialState != "paid" {
		order.FinancialState = "paid"
		if err := p.orders.Update(ctx, order); err != nil {
			p.logger.Warn().Err(err).
				Str("shop_domain", store.Domain).
				Str("order_id", externalID).
				Msg("Failed to update order financial state after payment")
		}
	}

	return domain.MaterializedOutcome(externalID, order.ID, false)
}

// SyncFulfillments creates fulfillment records for the fulfillment blocks of
// an order event, deduplicated by external fulfillment ID.
func (p *Pipeline) SyncFulfillments(ctx context.Context, store *domain.Store, event *domain.OrderEvent) domain.Outcome {
	externalID := event.ExternalID()
	unlock := p.locks.Lock(orderKey(store.ID, externalID))
	defer unlock()

	out := p.syncFulfillments(ctx, store, event)
	return p.record(ctx, store, domain.MethodFulfillmentSync, externalID, out, nil)
}

func (p *Pipeline) syncFulfillments(ctx context.Context, store *domain.Store, event *domain.OrderEvent) domain.Outcome {
	externalID := event.ExternalID()

	if !store.SyncFulfillments {
		return domain.SkippedOutcome(externalID, "fulfillment sync is disabled for this store")
	}

	order, err := p.orders.GetByExternalID(ctx, store.ID, externalID)
	if err != nil {
		return domain.ErrorOutcome(externalID, err)
	}
	if order == nil {
		return domain.SkippedOutcome(externalID, "order was never materialized")
	}

	if out := p.ensureFulfillments(ctx, store, order, event); out != nil {
		return *out
	}
	return domain.MaterializedOutcome(externalID, order.ID, false)
}

// ensureDerived creates whatever derived records the store's flags ask for
// and the order does not have yet. It returns a non-nil outcome on failure.
func (p *Pipeline) ensureDerived(ctx context.Context, store *domain.Store, order *domain.Order, event *domain.OrderEvent) *domain.Outcome {
	if store.SyncInvoices {
		if out := p.ensureInvoice(ctx, store, order); out != nil {
			return out
		}
	}
	if store.SyncFulfillments && len(event.Fulfillments) > 0 {
		if out := p.ensureFulfillments(ctx, store, order, event); out != nil {
			return out
		}
	}
	return nil
}

func (p *Pipeline) ensureInvoice(ctx context.Context, store *domain.Store, order *domain.Order) *domain.Outcome {
	inv, err := p.invoices.GetByExternalOrderID(ctx, store.ID, order.ExternalID)
	if err != nil {
		return errOutcome(order.ExternalID, err)
	}
	if inv != nil {
		return nil
	}

	invoice := &domain.Invoice{
		OrderID:         order.ID,
		StoreID:         store.ID,
		ExternalOrderID: order.ExternalID,
		Series:          store.InvoiceSeriesOrDefault(),
		Total:           order.Total,
		Paid:            order.FinancialState == "paid",
		PostingDate:     order.PlacedAt,
	}
	if _, err := p.invoices.Create(ctx, invoice); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil
		}
		return errOutcome(order.ExternalID, err)
	}

	persisted, err := p.invoices.GetByExternalOrderID(ctx, store.ID, order.ExternalID)
	if err != nil {
		return errOutcome(order.ExternalID, err)
	}
	if persisted == nil {
		return errOutcome(order.ExternalID, fmt.Errorf("%w: invoice for order %s missing after create", domain.ErrPersistence, order.ExternalID))
	}
	return nil
}

func (p *Pipeline) ensureFulfillments(ctx context.Context, store *domain.Store, order *domain.Order, event *domain.OrderEvent) *domain.Outcome {
	for i := range event.Fulfillments {
		f := &event.Fulfillments[i]
		if f.Status != "" && f.Status != "success" {
			continue
		}
		fulfillmentID := f.ExternalID()

		existing, err := p.fulfillments.GetByExternalFulfillmentID(ctx, store.ID, fulfillmentID)
		if err != nil {
			return errOutcome(order.ExternalID, err)
		}
		if existing != nil {
			continue
		}

		fulfillment := buildFulfillment(store, order, f)
		if _, err := p.fulfillments.Create(ctx, fulfillment); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			return errOutcome(order.ExternalID, err)
		}

		persisted, err := p.fulfillments.GetByExternalFulfillmentID(ctx, store.ID, fulfillmentID)
		if err != nil {
			return errOutcome(order.ExternalID, err)
		}
		if persisted == nil {
			return errOutcome(order.ExternalID, fmt.Errorf("%w: fulfillment %s missing after create", domain.ErrPersistence, fulfillmentID))
		}
	}
	return nil
}

// ensureCustomer resolves the order's customer block to a master customer,
// creating master and link as needed. It returns a non-nil outcome when the
// order cannot proceed.
func (p *Pipeline) ensureCustomer(ctx context.Context, store *domain.Store, event *domain.OrderEvent) (string, *domain.Outcome) {
	externalID := event.ExternalID()
	if event.Customer == nil || event.Customer.ID == 0 {
		out := domain.IncompleteOutcome(externalID, "order carries no customer", nil)
		return "", &out
	}
	c := event.Customer

	link, err := p.links.GetByExternalID(ctx, store.ID, domain.EntityKindCustomer, c.ExternalID())
	if err != nil {
		return "", errOutcome(externalID, err)
	}
	if link != nil {
		return link.MasterID, nil
	}

	var master *domain.Customer
	if c.Email != "" {
		master, err = p.customers.GetByEmail(ctx, c.Email)
		if err != nil {
			return "", errOutcome(externalID, err)
		}
	}
	if master == nil {
		master = &domain.Customer{
			Name:            domain.DisplayName(c.FirstName, c.LastName, c.Email),
			Email:           c.Email,
			Group:           store.CustomerGroup,
			BillingAddress:  event.BillingAddress.ToAddress(),
			ShippingAddress: event.ShippingAddress.ToAddress(),
		}
		id, cerr := p.customers.Create(ctx, master)
		if cerr != nil {
			return "", errOutcome(externalID, cerr)
		}
		persisted, gerr := p.customers.GetByID(ctx, id)
		if gerr != nil {
			return "", errOutcome(externalID, gerr)
		}
		if persisted == nil {
			return "", errOutcome(externalID, fmt.Errorf("%w: customer %s missing after create", domain.ErrPersistence, id))
		}
		master = persisted
	}

	link = &domain.EntityLink{
		StoreID:      store.ID,
		Kind:         domain.EntityKindCustomer,
		MasterID:     master.ID,
		ExternalID:   c.ExternalID(),
		LastSyncedAt: time.Now().UTC(),
	}
	if err := p.links.Create(ctx, link); err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			return "", errOutcome(externalID, err)
		}
		winner, gerr := p.links.GetByExternalID(ctx, store.ID, domain.EntityKindCustomer, c.ExternalID())
		if gerr == nil && winner != nil {
			return winner.MasterID, nil
		}
		// The master is already linked under another external ID for
		// this store; the order can still reference it.
	}
	return master.ID, nil
}

// SyncCustomer upserts a shared customer master from a customer event and
// keeps the store's link current.
func (p *Pipeline) SyncCustomer(ctx context.Context, store *domain.Store, event *domain.CustomerEvent) domain.Outcome {
	externalID := event.ExternalID()
	out := p.syncCustomer(ctx, store, event)
	return p.record(ctx, store, domain.MethodCustomerSync, externalID, out, nil)
}

func (p *Pipeline) syncCustomer(ctx context.Context, store *domain.Store, event *domain.CustomerEvent) domain.Outcome {
	externalID := event.ExternalID()
	if event.ID == 0 {
		return domain.ErrorOutcome(externalID, fmt.Errorf("%w: customer event carries no ID", domain.ErrValidation))
	}

	link, err := p.links.GetByExternalID(ctx, store.ID, domain.EntityKindCustomer, externalID)
	if err != nil {
		return domain.ErrorOutcome(externalID, err)
	}

	if link != nil {
		master, err := p.customers.GetByID(ctx, link.MasterID)
		if err != nil {
			return domain.ErrorOutcome(externalID, err)
		}
		if master == nil {
			return domain.ErrorOutcome(externalID, fmt.Errorf("%w: link references missing customer %s", domain.ErrPersistence, link.MasterID))
		}

		master.Name = domain.DisplayName(event.FirstName, event.LastName, event.Email)
		if event.Email != "" {
			master.Email = event.Email
		}
		if event.DefaultAddress != nil {
			master.BillingAddress = event.DefaultAddress.ToAddress()
		}
		if err := p.customers.Update(ctx, master); err != nil {
			return domain.ErrorOutcome(externalID, err)
		}
		if err := p.links.Touch(ctx, link.ID, time.Now().UTC()); err != nil {
			p.logger.Warn().Err(err).
				Str("shop_domain", store.Domain).
				Str("customer_id", externalID).
				Msg("Failed to touch customer link")
		}
		return domain.MaterializedOutcome(externalID, master.ID, true)
	}

	var master *domain.Customer
	if event.Email != "" {
		master, err = p.customers.GetByEmail(ctx, event.Email)
		if err != nil {
			return domain.ErrorOutcome(externalID, err)
		}
	}
	if master == nil {
		master = &domain.Customer{
			Name:           domain.DisplayName(event.FirstName, event.LastName, event.Email),
			Email:          event.Email,
			Group:          store.CustomerGroup,
			BillingAddress: event.DefaultAddress.ToAddress(),
		}
		id, cerr := p.customers.Create(ctx, master)
		if cerr != nil {
			return domain.ErrorOutcome(externalID, cerr)
		}
		persisted, gerr := p.customers.GetByID(ctx, id)
		if gerr != nil {
			return domain.ErrorOutcome(externalID, gerr)
		}
		if persisted == nil {
			return domain.ErrorOutcome(externalID, fmt.Errorf("%w: customer %s missing after create", domain.ErrPersistence, id))
		}
		master = persisted
	}

	link = &domain.EntityLink{
		StoreID:      store.ID,
		Kind:         domain.EntityKindCustomer,
		MasterID:     master.ID,
		ExternalID:   externalID,
		LastSyncedAt: time.Now().UTC(),
	}
	if err := p.links.Create(ctx, link); err != nil && !errors.Is(err, domain.ErrConflict) {
		return domain.ErrorOutcome(externalID, err)
	}
	return domain.MaterializedOutcome(externalID, master.ID, false)
}

// RefreshProductLinks updates the store's item links from a product event so
// recreated variants and changed SKUs keep resolving. Links are only
// refreshed, never invented; masters come from the backend record store.
func (p *Pipeline) RefreshProductLinks(ctx context.Context, store *domain.Store, event *domain.ProductEvent) domain.Outcome {
	externalID := strconv.FormatInt(event.ID, 10)
	out := p.refreshProductLinks(ctx, store, event)
	return p.record(ctx, store, domain.MethodProductRefresh, externalID, out, nil)
}

func (p *Pipeline) refreshProductLinks(ctx context.Context, store *domain.Store, event *domain.ProductEvent) domain.Outcome {
	externalID := strconv.FormatInt(event.ID, 10)
	refreshed := 0

	for _, v := range event.Variants {
		if v.ID == 0 && v.SKU == "" {
			continue
		}
		variantID := strconv.FormatInt(v.ID, 10)

		var link *domain.EntityLink
		var err error
		if v.ID != 0 {
			link, err = p.links.GetByExternalID(ctx, store.ID, domain.EntityKindItem, variantID)
			if err != nil {
				return domain.ErrorOutcome(externalID, err)
			}
		}
		if link == nil && v.SKU != "" {
			link, err = p.links.GetBySKU(ctx, store.ID, v.SKU)
			if err != nil {
				return domain.ErrorOutcome(externalID, err)
			}
		}
		if link == nil {
			continue
		}

		changed := false
		if v.ID != 0 && link.ExternalID != variantID {
			link.ExternalID = variantID
			changed = true
		}
		if v.SKU != "" && link.SKU != v.SKU {
			link.SKU = v.SKU
			changed = true
		}
		if v.InventoryItemID != 0 && link.InventoryItemID != v.InventoryItemID {
			link.InventoryItemID = v.InventoryItemID
			changed = true
		}
		if changed {
			if err := p.links.Update(ctx, link); err != nil {
				if errors.Is(err, domain.ErrConflict) {
					p.logger.Warn().Err(err).
						Str("shop_domain", store.Domain).
						Str("sku", v.SKU).
						Msg("Skipping conflicting item link refresh")
					continue
				}
				return domain.ErrorOutcome(externalID, err)
			}
			refreshed++
		}
	}

	out := domain.MaterializedOutcome(externalID, "", false)
	out.Reason = fmt.Sprintf("refreshed %d of %d variant links", refreshed, len(event.Variants))
	return out
}

// record writes the sync log entry for an outcome, publishes the notice and
// bumps the outcome metric. Incomplete outcomes retain the event payload so
// reprocessing can re-run them without the original delivery.
func (p *Pipeline) record(ctx context.Context, store *domain.Store, method, inputID string, out domain.Outcome, payload json.RawMessage) domain.Outcome {
	status := statusFor(out)
	detail := detailFor(out)

	entry := domain.NewSyncLogEntry(store, method, inputID, status, detail)
	entry.UnresolvedSKUs = out.UnresolvedSKUs
	if out.Status == domain.OutcomeIncomplete {
		entry.Payload = payload
	}
	if err := p.logs.Append(ctx, entry); err != nil {
		p.logger.Error().Err(err).
			Str("shop_domain", store.Domain).
			Str("method", method).
			Str("input_id", inputID).
			Msg("Failed to append sync log entry")
	}

	p.notices.Publish(&domain.SyncNotice{
		StoreID:     store.ID,
		StoreDomain: store.Domain,
		Method:      method,
		InputID:     inputID,
		Status:      status,
		RecordID:    out.OrderID,
		Detail:      detail,
		At:          time.Now().UTC(),
	})
	p.metrics.OutcomeRecorded(store.Domain, method, string(status))

	evt := p.logger.Info()
	if out.Status == domain.OutcomeError {
		evt = p.logger.Error().Err(out.Err)
	}
	evt.Str("shop_domain", store.Domain).
		Str("method", method).
		Str("input_id", inputID).
		Str("status", string(status)).
		Msg("Sync outcome recorded")

	return out
}

func statusFor(out domain.Outcome) domain.SyncStatus {
	switch out.Status {
	case domain.OutcomeMaterialized:
		return domain.SyncStatusSuccess
	case domain.OutcomeIncomplete:
		return domain.SyncStatusIncomplete
	case domain.OutcomeSkipped:
		return domain.SyncStatusSkipped
	default:
		return domain.SyncStatusError
	}
}

func detailFor(out domain.Outcome) string {
	if out.Reason != "" {
		return out.Reason
	}
	if out.Err != nil {
		return out.Err.Error()
	}
	if out.AlreadyExisted {
		return "already materialized"
	}
	return ""
}

func errOutcome(externalID string, err error) *domain.Outcome {
	out := domain.ErrorOutcome(externalID, err)
	return &out
}

func buildOrder(store *domain.Store, event *domain.OrderEvent, customerID string, lines []domain.OrderLine) *domain.Order {
	placed := event.CreatedAt
	if placed.IsZero() {
		placed = time.Now().UTC()
	}
	return &domain.Order{
		StoreID:        store.ID,
		ExternalID:     event.ExternalID(),
		ExternalNumber: event.Name,
		Series:         store.OrderSeriesOrDefault(),
		CustomerID:     customerID,
		Lines:          lines,
		Currency:       event.Currency,
		Subtotal:       event.SubtotalPrice,
		TaxTotal:       event.TotalTax,
		Total:          event.TotalPrice,
		TaxAccount:     store.TaxAccount,
		CostCenter:     store.CostCenter,
		ShippingTo:     event.ShippingAddress.ToAddress(),
		BillingTo:      event.BillingAddress.ToAddress(),
		FinancialState: event.FinancialStatus,
		Status:         domain.OrderStatusOpen,
		Note:           event.Note,
		PlacedAt:       placed,
	}
}

func buildFulfillment(store *domain.Store, order *domain.Order, f *domain.FulfillmentEvent) *domain.Fulfillment {
	lines := make([]domain.FulfillmentLine, 0, len(f.LineItems))
	for i := range f.LineItems {
		li := &f.LineItems[i]
		ol := matchOrderLine(order, li)
		if ol == nil {
			continue
		}
		lines = append(lines, domain.FulfillmentLine{
			MasterItemID: ol.MasterItemID,
			SKU:          ol.SKU,
			Quantity:     decimal.NewFromInt(int64(li.Quantity)),
		})
	}

	posting := f.CreatedAt
	if posting.IsZero() {
		posting = time.Now().UTC()
	}
	return &domain.Fulfillment{
		OrderID:               order.ID,
		StoreID:               store.ID,
		ExternalOrderID:       order.ExternalID,
		ExternalFulfillmentID: f.ExternalID(),
		Series:                store.FulfillmentSeriesOrDefault(),
		Warehouse:             store.WarehouseForLocation(strconv.FormatInt(f.LocationID, 10)),
		Lines:                 lines,
		TrackingNumber:        f.TrackingNumber,
		Carrier:               f.TrackingCompany,
		PostingDate:           posting,
	}
}

// matchOrderLine pairs a fulfillment line with the order line it ships,
// by SKU first and by description as a fallback.
func matchOrderLine(order *domain.Order, li *domain.LineItemEvent) *domain.OrderLine {
	if li.SKU != "" {
		for i := range order.Lines {
			if order.Lines[i].SKU == li.SKU {
				return &order.Lines[i]
			}
		}
	}
	if li.Title != "" {
		for i := range order.Lines {
			if order.Lines[i].Description == li.Title {
				return &order.Lines[i]
			}
		}
	}
	return nil
}
