package application

import (
	"context"
	"strconv"
	"testing"
	"time"

	"storebridge-sync-core/internal/domain"
	"storebridge-sync-core/internal/infrastructure/metrics"
	"storebridge-sync-core/internal/infrastructure/queue"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orchestratorFixture struct {
	pipe   *pipelineFixture
	stores *fakeStoreRepo
	stock  *fakeStockRepo
	client *fakePlatformClient
	jobs   *queue.MemoryQueue
	orch   *Orchestrator
}

func newOrchestratorFixture(concurrency int) *orchestratorFixture {
	pf := newPipelineFixture()
	f := &orchestratorFixture{
		pipe:   pf,
		stores: newFakeStoreRepo(),
		stock:  newFakeStockRepo(),
		client: newFakePlatformClient(),
		jobs:   queue.NewMemoryQueue(16),
	}
	registry := NewRegistry(
		f.stores,
		newFakeCredentials(),
		newFakeClientPool(f.client),
		NewWebhookManager(testCallbackURL, zerolog.Nop()),
		zerolog.Nop(),
	)
	inventory := NewInventoryService(
		pf.links, pf.items, f.stock, f.stores, pf.logs, pf.notices,
		registry, metrics.NewNopRecorder(), 50, zerolog.Nop(),
	)
	backfill := NewBackfillService(registry, pf.pipeline, f.stores, 50, zerolog.Nop())
	reprocess := NewReprocessor(pf.logs, pf.orders, f.jobs, metrics.NewNopRecorder(), 50, zerolog.Nop())
	f.orch = NewOrchestrator(f.stores, inventory, backfill, reprocess, concurrency, zerolog.Nop())
	return f
}

func (f *orchestratorFixture) seedStocked(store *domain.Store, sku string, variantID int64, qty int) {
	itemID := f.pipe.items.seed(&domain.Item{SKU: sku, Name: sku + " master"})
	_ = f.pipe.links.Create(context.Background(), &domain.EntityLink{
		StoreID:         store.ID,
		Kind:            domain.EntityKindItem,
		MasterID:        itemID,
		ExternalID:      strconv.FormatInt(variantID, 10),
		SKU:             sku,
		InventoryItemID: variantID + 100,
	})
	_ = f.stock.SetLevel(context.Background(), &domain.StockLevel{
		ItemID:    itemID,
		Warehouse: store.Warehouse,
		Quantity:  qty,
		UpdatedAt: time.Now().UTC(),
	})
}

func TestOrchestrator_TriggerInventorySyncBypassesGate(t *testing.T) {
	ctx := context.Background()
	f := newOrchestratorFixture(2)
	store := testStore()
	store.InventorySyncInterval = 15 * time.Minute
	store.LastInventorySyncAt = time.Now().UTC()
	f.stores.seed(store)
	f.seedStocked(store, "TREK-01", 808950810, 14)

	require.NoError(t, f.orch.TriggerInventorySync(ctx, store.ID))

	waitFor(t, time.Second, func() bool {
		return len(f.client.inventoryCalls()) == 1
	})
	assert.Equal(t, int64(808950910), f.client.inventoryCalls()[0].InventoryItemID)
}

func TestOrchestrator_TriggerUnknownStore(t *testing.T) {
	ctx := context.Background()
	f := newOrchestratorFixture(2)

	assert.ErrorIs(t, f.orch.TriggerInventorySync(ctx, "store-ghost"), domain.ErrUnknownStore)
	assert.ErrorIs(t, f.orch.TriggerBackfill(ctx, "store-ghost"), domain.ErrUnknownStore)
	assert.ErrorIs(t, f.orch.TriggerReprocess(ctx, "store-ghost"), domain.ErrUnknownStore)
}

func TestOrchestrator_SkipsOverlappingRuns(t *testing.T) {
	ctx := context.Background()
	f := newOrchestratorFixture(2)
	store := testStore()
	f.stores.seed(store)
	f.seedStocked(store, "TREK-01", 808950810, 14)
	f.client.setGate = make(chan struct{})

	// The first unit parks inside the inventory push; the repeat trigger
	// must bounce off the running flag instead of starting a second run.
	require.NoError(t, f.orch.TriggerInventorySync(ctx, store.ID))
	require.NoError(t, f.orch.TriggerInventorySync(ctx, store.ID))

	close(f.client.setGate)

	waitFor(t, time.Second, func() bool {
		return len(f.pipe.logs.byMethod(store.ID, domain.MethodInventoryPush)) == 1
	})
	assert.Len(t, f.client.inventoryCalls(), 1)

	// Once the first run finished the unit may run again. The retrigger
	// races the finishing goroutine, so keep asking until one lands.
	waitFor(t, time.Second, func() bool {
		require.NoError(t, f.orch.TriggerInventorySync(ctx, store.ID))
		return len(f.client.inventoryCalls()) >= 2
	})
}

func TestOrchestrator_FleetTriggerFansOut(t *testing.T) {
	ctx := context.Background()
	f := newOrchestratorFixture(2)

	acme := testStore()
	beta := secondStore()
	beta.AccessToken = "enc:shpat_beta"
	beta.SyncInventory = true
	beta.Warehouse = "Main - BL"
	beta.InventoryLocationID = 71985685719
	dark := &domain.Store{ID: "store-dark", Domain: "dark.myshopify.com", Enabled: false, SyncInventory: true}
	f.stores.seed(acme)
	f.stores.seed(beta)
	f.stores.seed(dark)

	f.seedStocked(acme, "TREK-01", 808950810, 14)
	f.seedStocked(beta, "SOFA-01", 909950810, 2)

	require.NoError(t, f.orch.TriggerInventorySync(ctx, ""))

	waitFor(t, time.Second, func() bool {
		return len(f.client.inventoryCalls()) == 2
	})
	itemIDs := []int64{f.client.inventoryCalls()[0].InventoryItemID, f.client.inventoryCalls()[1].InventoryItemID}
	assert.ElementsMatch(t, []int64{808950910, 909950910}, itemIDs)
}

func TestOrchestrator_TriggerBackfill(t *testing.T) {
	ctx := context.Background()
	f := newOrchestratorFixture(2)
	store := testStore()
	store.OrderCutoff = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	f.stores.seed(store)
	f.pipe.seedVariant(store, "TREK-01", 808950810)
	f.client.orderPages = [][]domain.OrderEvent{{
		backfillEvent(5001, store.OrderCutoff.Add(time.Hour)),
	}}

	require.NoError(t, f.orch.TriggerBackfill(ctx, store.ID))

	waitFor(t, time.Second, func() bool {
		return f.pipe.orders.count() == 1
	})
	waitFor(t, time.Second, func() bool {
		persisted, err := f.stores.GetByID(ctx, store.ID)
		return err == nil && persisted.BackfillWatermark.Equal(store.OrderCutoff.Add(time.Hour))
	})
}

func TestOrchestrator_TriggerReprocess(t *testing.T) {
	ctx := context.Background()
	f := newOrchestratorFixture(2)
	store := testStore()
	f.stores.seed(store)
	require.NoError(t, f.pipe.logs.Append(ctx,
		incompleteEntry(store, domain.MethodOrderMaterialize, "4567001", `{"id":4567001}`, time.Now().UTC())))

	require.NoError(t, f.orch.TriggerReprocess(ctx, store.ID))

	waitFor(t, time.Second, func() bool {
		depth, err := f.jobs.Len(ctx)
		return err == nil && depth == 1
	})
}

func TestOrchestrator_StartValidatesCronSpecs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t.Run("valid specs", func(t *testing.T) {
		f := newOrchestratorFixture(2)
		require.NoError(t, f.orch.Start(ctx, "0 */15 * * * *", "0 0 3 * * *"))
		f.orch.Stop()
	})

	t.Run("empty specs schedule nothing", func(t *testing.T) {
		f := newOrchestratorFixture(2)
		require.NoError(t, f.orch.Start(ctx, "", ""))
		f.orch.Stop()
	})

	t.Run("bad spec", func(t *testing.T) {
		f := newOrchestratorFixture(2)
		assert.Error(t, f.orch.Start(ctx, "every full moon", ""))
	})
}
