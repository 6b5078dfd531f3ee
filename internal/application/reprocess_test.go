package application

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"storebridge-sync-core/internal/domain"
	"storebridge-sync-core/internal/infrastructure/metrics"
	"storebridge-sync-core/internal/infrastructure/queue"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reprocessFixture struct {
	orders *fakeOrderRepo
	logs   *fakeLogRepo
	jobs   *queue.MemoryQueue
	rp     *Reprocessor
}

func newReprocessFixture(batch int64) *reprocessFixture {
	f := &reprocessFixture{
		orders: newFakeOrderRepo(),
		logs:   newFakeLogRepo(),
		jobs:   queue.NewMemoryQueue(16),
	}
	f.rp = NewReprocessor(f.logs, f.orders, f.jobs, metrics.NewNopRecorder(), batch, zerolog.Nop())
	return f
}

func incompleteEntry(store *domain.Store, method, inputID, payload string, at time.Time) *domain.SyncLogEntry {
	e := domain.NewSyncLogEntry(store, method, inputID, domain.SyncStatusIncomplete,
		"line items could not be resolved to master items")
	e.Payload = json.RawMessage(payload)
	e.CreatedAt = at
	return e
}

func TestReprocessor_RequeuesIncompleteOrders(t *testing.T) {
	ctx := context.Background()
	f := newReprocessFixture(50)
	store := testStore()

	payload := `{"id":4567001,"name":"#1042"}`
	require.NoError(t, f.logs.Append(ctx,
		incompleteEntry(store, domain.MethodOrderMaterialize, "4567001", payload, time.Now().UTC())))

	n, err := f.rp.Reprocess(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	depth, err := f.jobs.Len(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, depth)

	job, err := f.jobs.Dequeue(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, store.ID, job.StoreID)
	assert.Equal(t, store.Domain, job.StoreDomain)
	assert.Equal(t, domain.TopicOrderCreate, job.Topic)
	assert.JSONEq(t, payload, string(job.Payload))
}

func TestReprocessor_SkipsOrdersThatMaterializedSince(t *testing.T) {
	ctx := context.Background()
	f := newReprocessFixture(50)
	store := testStore()

	require.NoError(t, f.logs.Append(ctx,
		incompleteEntry(store, domain.MethodOrderMaterialize, "4567001", `{"id":4567001}`, time.Now().UTC())))
	f.orders.put(&domain.Order{StoreID: store.ID, ExternalID: "4567001"})

	n, err := f.rp.Reprocess(ctx, store)
	require.NoError(t, err)
	assert.Zero(t, n)

	depth, err := f.jobs.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestReprocessor_DedupesRepeatAttempts(t *testing.T) {
	ctx := context.Background()
	f := newReprocessFixture(50)
	store := testStore()

	now := time.Now().UTC()
	require.NoError(t, f.logs.Append(ctx,
		incompleteEntry(store, domain.MethodOrderMaterialize, "4567001", `{"id":4567001,"note":"old"}`, now.Add(-time.Hour))))
	require.NoError(t, f.logs.Append(ctx,
		incompleteEntry(store, domain.MethodOrderUpdate, "4567001", `{"id":4567001,"note":"new"}`, now)))

	n, err := f.rp.Reprocess(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	job, err := f.jobs.Dequeue(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":4567001,"note":"new"}`, string(job.Payload),
		"the newest attempt carries the freshest payload")
}

func TestReprocessor_IgnoresNonOrderMethods(t *testing.T) {
	ctx := context.Background()
	f := newReprocessFixture(50)
	store := testStore()

	require.NoError(t, f.logs.Append(ctx,
		incompleteEntry(store, domain.MethodCustomerSync, "207119551", `{"id":207119551}`, time.Now().UTC())))
	require.NoError(t, f.logs.Append(ctx,
		incompleteEntry(store, domain.MethodInventoryPush, store.Domain, `{}`, time.Now().UTC())))

	n, err := f.rp.Reprocess(ctx, store)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReprocessor_SkipsEntriesWithoutPayload(t *testing.T) {
	ctx := context.Background()
	f := newReprocessFixture(50)
	store := testStore()

	entry := domain.NewSyncLogEntry(store, domain.MethodOrderMaterialize, "4567001",
		domain.SyncStatusIncomplete, "order carries no customer")
	require.NoError(t, f.logs.Append(ctx, entry))

	n, err := f.rp.Reprocess(ctx, store)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReprocessor_HonorsBatchLimit(t *testing.T) {
	ctx := context.Background()
	f := newReprocessFixture(1)
	store := testStore()

	now := time.Now().UTC()
	require.NoError(t, f.logs.Append(ctx,
		incompleteEntry(store, domain.MethodOrderMaterialize, "4567001", `{"id":4567001}`, now.Add(-time.Minute))))
	require.NoError(t, f.logs.Append(ctx,
		incompleteEntry(store, domain.MethodOrderMaterialize, "4567002", `{"id":4567002}`, now)))

	n, err := f.rp.Reprocess(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	job, err := f.jobs.Dequeue(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":4567002}`, string(job.Payload))
}
