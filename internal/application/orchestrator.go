package application

import (
	"context"
	"fmt"
	"sync"

	"storebridge-sync-core/internal/domain"
	"storebridge-sync-core/internal/ports"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	taskInventory = "inventory"
	taskBackfill  = "backfill"
	taskReprocess = "reprocess"
)

// Orchestrator drives the scheduled per-store work: inventory pushes and
// historical backfills on cron, plus manual triggers for both and for
// incomplete reprocessing. Each store's unit runs in its own goroutine
// behind a shared semaphore; one store's failure is logged and contained.
type Orchestrator struct {
	stores    ports.StoreRepository
	inventory *InventoryService
	backfill  *BackfillService
	reprocess *Reprocessor
	logger    zerolog.Logger

	cron *cron.Cron
	sem  chan struct{}

	baseCtx context.Context

	mu      sync.Mutex
	running map[string]bool
	wg      sync.WaitGroup
}

// NewOrchestrator creates the store task orchestrator. concurrency bounds
// how many store units run at once across all task types.
func NewOrchestrator(
	stores ports.StoreRepository,
	inventory *InventoryService,
	backfill *BackfillService,
	reprocess *Reprocessor,
	concurrency int,
	logger zerolog.Logger,
) *Orchestrator {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Orchestrator{
		stores:    stores,
		inventory: inventory,
		backfill:  backfill,
		reprocess: reprocess,
		logger:    logger,
		cron:      cron.New(cron.WithSeconds()),
		sem:       make(chan struct{}, concurrency),
		running:   make(map[string]bool),
		baseCtx:   context.Background(),
	}
}

// Start registers the cron entries and begins scheduling. ctx cancels
// in-flight units on shutdown.
func (o *Orchestrator) Start(ctx context.Context, inventorySpec, backfillSpec string) error {
	o.baseCtx = ctx

	if inventorySpec != "" {
		if _, err := o.cron.AddFunc(inventorySpec, func() { o.runAll(taskInventory, false) }); err != nil {
			return fmt.Errorf("failed to schedule inventory sync: %w", err)
		}
	}
	if backfillSpec != "" {
		if _, err := o.cron.AddFunc(backfillSpec, func() { o.runAll(taskBackfill, false) }); err != nil {
			return fmt.Errorf("failed to schedule backfill: %w", err)
		}
	}

	o.cron.Start()
	o.logger.Info().
		Str("inventory_cron", inventorySpec).
		Str("backfill_cron", backfillSpec).
		Msg("Orchestrator started")
	return nil
}

// Stop halts scheduling and waits for running units to finish.
func (o *Orchestrator) Stop() {
	<-o.cron.Stop().Done()
	o.wg.Wait()
	o.logger.Info().Msg("Orchestrator stopped")
}

// TriggerInventorySync runs the inventory unit on demand, bypassing the
// frequency gate. An empty storeID targets every enabled store.
func (o *Orchestrator) TriggerInventorySync(ctx context.Context, storeID string) error {
	return o.trigger(ctx, taskInventory, storeID, true)
}

// TriggerBackfill runs the backfill unit on demand.
func (o *Orchestrator) TriggerBackfill(ctx context.Context, storeID string) error {
	return o.trigger(ctx, taskBackfill, storeID, false)
}

// TriggerReprocess requeues incomplete entries on demand.
func (o *Orchestrator) TriggerReprocess(ctx context.Context, storeID string) error {
	return o.trigger(ctx, taskReprocess, storeID, false)
}

func (o *Orchestrator) trigger(ctx context.Context, task, storeID string, force bool) error {
	if storeID == "" {
		stores, err := o.stores.ListEnabled(ctx)
		if err != nil {
			return err
		}
		for _, store := range stores {
			o.dispatchUnit(task, store, force)
		}
		return nil
	}

	store, err := o.stores.GetByID(ctx, storeID)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("%w: %s", domain.ErrUnknownStore, storeID)
	}
	o.dispatchUnit(task, store, force)
	return nil
}

func (o *Orchestrator) runAll(task string, force bool) {
	stores, err := o.stores.ListEnabled(o.baseCtx)
	if err != nil {
		o.logger.Error().Err(err).Str("task", task).Msg("Failed to list enabled stores")
		return
	}
	for _, store := range stores {
		o.dispatchUnit(task, store, force)
	}
}

// dispatchUnit runs one store's unit in its own goroutine with its own
// failure boundary. A unit still running from a previous tick is not
// started again.
func (o *Orchestrator) dispatchUnit(task string, store *domain.Store, force bool) {
	key := task + ":" + store.ID
	o.mu.Lock()
	if o.running[key] {
		o.mu.Unlock()
		o.logger.Debug().
			Str("task", task).
			Str("shop_domain", store.Domain).
			Msg("Previous run still in progress, skipping")
		return
	}
	o.running[key] = true
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer func() {
			o.mu.Lock()
			delete(o.running, key)
			o.mu.Unlock()
		}()
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error().
					Interface("panic", r).
					Str("task", task).
					Str("shop_domain", store.Domain).
					Msg("Recovered from task panic")
			}
		}()

		select {
		case o.sem <- struct{}{}:
		case <-o.baseCtx.Done():
			return
		}
		defer func() { <-o.sem }()

		ctx := domain.WithStoreDomain(o.baseCtx, store.Domain)
		if err := o.runUnit(ctx, task, store, force); err != nil {
			o.logger.Error().Err(err).
				Str("task", task).
				Str("shop_domain", store.Domain).
				Msg("Store task failed")
		}
	}()
}

func (o *Orchestrator) runUnit(ctx context.Context, task string, store *domain.Store, force bool) error {
	switch task {
	case taskInventory:
		return o.inventory.SyncStore(ctx, store, force)
	case taskBackfill:
		return o.backfill.BackfillStore(ctx, store)
	case taskReprocess:
		_, err := o.reprocess.Reprocess(ctx, store)
		return err
	default:
		return fmt.Errorf("unknown task %q", task)
	}
}
