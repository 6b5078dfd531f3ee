package application

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"storebridge-sync-core/internal/domain"
	"storebridge-sync-core/internal/ports"
)

// In-memory fakes for the persistence and platform ports. They mirror the
// documented port contracts, most importantly the unique indexes surfaced as
// domain.ErrConflict, so the pipeline's race handling is exercised for real.

type fakeStoreRepo struct {
	mu     sync.Mutex
	stores map[string]*domain.Store
	seq    int
}

func newFakeStoreRepo() *fakeStoreRepo {
	return &fakeStoreRepo{stores: make(map[string]*domain.Store)}
}

func (r *fakeStoreRepo) Create(ctx context.Context, store *domain.Store) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stores {
		if s.Domain == store.Domain {
			return "", fmt.Errorf("%w: duplicate store domain", domain.ErrConflict)
		}
	}
	r.seq++
	id := fmt.Sprintf("store-%d", r.seq)
	cp := *store
	cp.ID = id
	r.stores[id] = &cp
	return id, nil
}

func (r *fakeStoreRepo) GetByID(ctx context.Context, id string) (*domain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *fakeStoreRepo) GetByDomain(ctx context.Context, storeDomain string) (*domain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stores {
		if s.Domain == storeDomain {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeStoreRepo) Update(ctx context.Context, store *domain.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stores[store.ID]; !ok {
		return fmt.Errorf("store %s not found", store.ID)
	}
	cp := *store
	r.stores[store.ID] = &cp
	return nil
}

func (r *fakeStoreRepo) List(ctx context.Context) ([]*domain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Store, 0, len(r.stores))
	for _, s := range r.stores {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeStoreRepo) ListEnabled(ctx context.Context) ([]*domain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Store
	for _, s := range r.stores {
		if s.Enabled {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

// seed inserts a store as-is, keeping its preset ID.
func (r *fakeStoreRepo) seed(store *domain.Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *store
	r.stores[store.ID] = &cp
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	seq    int

	// onCreate runs once in place of the next insert when set.
	onCreate func(order *domain.Order) error
	// dropAfterCreate makes inserts report success without persisting,
	// so the verify re-read comes back empty.
	dropAfterCreate bool
	// updateConflicts fails that many Update calls with ErrConflict.
	updateConflicts int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*domain.Order)}
}

func (r *fakeOrderRepo) Create(ctx context.Context, order *domain.Order) (string, error) {
	r.mu.Lock()
	hook := r.onCreate
	r.onCreate = nil
	r.mu.Unlock()
	if hook != nil {
		if err := hook(order); err != nil {
			return "", err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.StoreID == order.StoreID && o.ExternalID == order.ExternalID {
			return "", fmt.Errorf("%w: duplicate order", domain.ErrConflict)
		}
	}
	r.seq++
	id := fmt.Sprintf("order-%d", r.seq)
	if r.dropAfterCreate {
		return id, nil
	}
	cp := *order
	cp.ID = id
	r.orders[id] = &cp
	return id, nil
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) GetByExternalID(ctx context.Context, storeID, externalID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.StoreID == storeID && o.ExternalID == externalID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeOrderRepo) Update(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateConflicts > 0 {
		r.updateConflicts--
		return fmt.Errorf("%w: concurrent order update", domain.ErrConflict)
	}
	if _, ok := r.orders[order.ID]; !ok {
		return fmt.Errorf("order %s not found", order.ID)
	}
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) ListByStore(ctx context.Context, storeID string, limit int64) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, o := range r.orders {
		if o.StoreID == storeID {
			cp := *o
			out = append(out, &cp)
		}
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) CountByStore(ctx context.Context, storeID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, o := range r.orders {
		if o.StoreID == storeID {
			n++
		}
	}
	return n, nil
}

func (r *fakeOrderRepo) CountByStatus(ctx context.Context, storeID string, status domain.OrderStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, o := range r.orders {
		if o.StoreID == storeID && o.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *fakeOrderRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

// put inserts an order directly, bypassing hooks and uniqueness.
func (r *fakeOrderRepo) put(order *domain.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.ID == "" {
		r.seq++
		order.ID = fmt.Sprintf("order-%d", r.seq)
	}
	cp := *order
	r.orders[order.ID] = &cp
}

type fakeInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[string]*domain.Invoice
	seq      int

	dropAfterCreate bool
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: make(map[string]*domain.Invoice)}
}

func (r *fakeInvoiceRepo) Create(ctx context.Context, invoice *domain.Invoice) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.StoreID == invoice.StoreID && inv.ExternalOrderID == invoice.ExternalOrderID {
			return "", fmt.Errorf("%w: duplicate invoice", domain.ErrConflict)
		}
	}
	r.seq++
	id := fmt.Sprintf("invoice-%d", r.seq)
	if r.dropAfterCreate {
		return id, nil
	}
	cp := *invoice
	cp.ID = id
	r.invoices[id] = &cp
	return id, nil
}

func (r *fakeInvoiceRepo) GetByExternalOrderID(ctx context.Context, storeID, externalOrderID string) (*domain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.StoreID == storeID && inv.ExternalOrderID == externalOrderID {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeInvoiceRepo) Update(ctx context.Context, invoice *domain.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.invoices[invoice.ID]; !ok {
		return fmt.Errorf("invoice %s not found", invoice.ID)
	}
	cp := *invoice
	r.invoices[invoice.ID] = &cp
	return nil
}

func (r *fakeInvoiceRepo) CountByStore(ctx context.Context, storeID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, inv := range r.invoices {
		if inv.StoreID == storeID {
			n++
		}
	}
	return n, nil
}

func (r *fakeInvoiceRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.invoices)
}

type fakeFulfillmentRepo struct {
	mu           sync.Mutex
	fulfillments map[string]*domain.Fulfillment
	seq          int
}

func newFakeFulfillmentRepo() *fakeFulfillmentRepo {
	return &fakeFulfillmentRepo{fulfillments: make(map[string]*domain.Fulfillment)}
}

func (r *fakeFulfillmentRepo) Create(ctx context.Context, fulfillment *domain.Fulfillment) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.fulfillments {
		if f.StoreID == fulfillment.StoreID && f.ExternalFulfillmentID == fulfillment.ExternalFulfillmentID {
			return "", fmt.Errorf("%w: duplicate fulfillment", domain.ErrConflict)
		}
	}
	r.seq++
	id := fmt.Sprintf("fulfillment-%d", r.seq)
	cp := *fulfillment
	cp.ID = id
	r.fulfillments[id] = &cp
	return id, nil
}

func (r *fakeFulfillmentRepo) GetByExternalFulfillmentID(ctx context.Context, storeID, externalFulfillmentID string) (*domain.Fulfillment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.fulfillments {
		if f.StoreID == storeID && f.ExternalFulfillmentID == externalFulfillmentID {
			cp := *f
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeFulfillmentRepo) ListByOrder(ctx context.Context, orderID string) ([]*domain.Fulfillment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Fulfillment
	for _, f := range r.fulfillments {
		if f.OrderID == orderID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeFulfillmentRepo) Update(ctx context.Context, fulfillment *domain.Fulfillment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.fulfillments[fulfillment.ID]; !ok {
		return fmt.Errorf("fulfillment %s not found", fulfillment.ID)
	}
	cp := *fulfillment
	r.fulfillments[fulfillment.ID] = &cp
	return nil
}

func (r *fakeFulfillmentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fulfillments)
}

type fakeCustomerRepo struct {
	mu        sync.Mutex
	customers map[string]*domain.Customer
	seq       int
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: make(map[string]*domain.Customer)}
}

func (r *fakeCustomerRepo) Create(ctx context.Context, customer *domain.Customer) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	id := fmt.Sprintf("customer-%d", r.seq)
	cp := *customer
	cp.ID = id
	r.customers[id] = &cp
	return id, nil
}

func (r *fakeCustomerRepo) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCustomerRepo) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.customers {
		if c.Email == email {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeCustomerRepo) Update(ctx context.Context, customer *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.customers[customer.ID]; !ok {
		return fmt.Errorf("customer %s not found", customer.ID)
	}
	cp := *customer
	r.customers[customer.ID] = &cp
	return nil
}

func (r *fakeCustomerRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.customers)
}

type fakeItemRepo struct {
	mu    sync.Mutex
	items map[string]*domain.Item
	seq   int
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: make(map[string]*domain.Item)}
}

func (r *fakeItemRepo) Create(ctx context.Context, item *domain.Item) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	id := fmt.Sprintf("item-%d", r.seq)
	cp := *item
	cp.ID = id
	r.items[id] = &cp
	return id, nil
}

func (r *fakeItemRepo) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	cp := *i
	return &cp, nil
}

func (r *fakeItemRepo) GetBySKU(ctx context.Context, sku string) (*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.items {
		if i.SKU == sku {
			cp := *i
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeItemRepo) GetByName(ctx context.Context, name string) (*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.items {
		if i.Name == name {
			cp := *i
			return &cp, nil
		}
	}
	return nil, nil
}

// seed inserts an item and returns its assigned ID.
func (r *fakeItemRepo) seed(item *domain.Item) string {
	id, _ := r.Create(context.Background(), item)
	return id
}

type fakeStockRepo struct {
	mu     sync.Mutex
	levels map[string]*domain.StockLevel
}

func newFakeStockRepo() *fakeStockRepo {
	return &fakeStockRepo{levels: make(map[string]*domain.StockLevel)}
}

func stockKey(itemID, warehouse string) string {
	return itemID + "|" + warehouse
}

func (r *fakeStockRepo) GetLevel(ctx context.Context, itemID, warehouse string) (*domain.StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.levels[stockKey(itemID, warehouse)]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *fakeStockRepo) SetLevel(ctx context.Context, level *domain.StockLevel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *level
	r.levels[stockKey(level.ItemID, level.Warehouse)] = &cp
	return nil
}

type fakeLinkRepo struct {
	mu    sync.Mutex
	links map[string]*domain.EntityLink
	seq   int
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{links: make(map[string]*domain.EntityLink)}
}

func (r *fakeLinkRepo) Create(ctx context.Context, link *domain.EntityLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.links {
		if l.StoreID == link.StoreID && l.Kind == link.Kind && l.ExternalID == link.ExternalID {
			return fmt.Errorf("%w: duplicate external link", domain.ErrConflict)
		}
		if l.StoreID == link.StoreID && l.Kind == link.Kind && l.MasterID == link.MasterID {
			return fmt.Errorf("%w: master already linked for store", domain.ErrConflict)
		}
	}
	r.seq++
	id := fmt.Sprintf("link-%d", r.seq)
	cp := *link
	cp.ID = id
	r.links[id] = &cp
	link.ID = id
	return nil
}

func (r *fakeLinkRepo) GetByExternalID(ctx context.Context, storeID string, kind domain.EntityKind, externalID string) (*domain.EntityLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.links {
		if l.StoreID == storeID && l.Kind == kind && l.ExternalID == externalID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeLinkRepo) GetBySKU(ctx context.Context, storeID string, sku string) (*domain.EntityLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.links {
		if l.StoreID == storeID && l.SKU != "" && l.SKU == sku {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeLinkRepo) GetByMaster(ctx context.Context, storeID string, kind domain.EntityKind, masterID string) (*domain.EntityLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.links {
		if l.StoreID == storeID && l.Kind == kind && l.MasterID == masterID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeLinkRepo) ListByKind(ctx context.Context, storeID string, kind domain.EntityKind) ([]*domain.EntityLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.EntityLink
	for _, l := range r.links {
		if l.StoreID == storeID && l.Kind == kind {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeLinkRepo) Update(ctx context.Context, link *domain.EntityLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.links[link.ID]; !ok {
		return fmt.Errorf("link %s not found", link.ID)
	}
	cp := *link
	r.links[link.ID] = &cp
	return nil
}

func (r *fakeLinkRepo) Touch(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.links[id]
	if !ok {
		return fmt.Errorf("link %s not found", id)
	}
	l.LastSyncedAt = at
	return nil
}

func (r *fakeLinkRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.links)
}

type fakeLogRepo struct {
	mu      sync.Mutex
	entries []*domain.SyncLogEntry
	seq     int
}

func newFakeLogRepo() *fakeLogRepo {
	return &fakeLogRepo{}
}

func (r *fakeLogRepo) Append(ctx context.Context, entry *domain.SyncLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	cp := *entry
	cp.ID = fmt.Sprintf("log-%d", r.seq)
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *fakeLogRepo) ListByStatus(ctx context.Context, storeID string, status domain.SyncStatus, limit int64) ([]*domain.SyncLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.SyncLogEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if e.StoreID != storeID || e.Status != status {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeLogRepo) HasIncomplete(ctx context.Context, storeID, inputID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.StoreID == storeID && e.InputID == inputID && e.Status == domain.SyncStatusIncomplete {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeLogRepo) CountSince(ctx context.Context, storeID string, status domain.SyncStatus, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, e := range r.entries {
		if e.StoreID == storeID && e.Status == status && e.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

func (r *fakeLogRepo) LastSuccessAt(ctx context.Context, storeID string) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last time.Time
	for _, e := range r.entries {
		if e.StoreID == storeID && e.Status == domain.SyncStatusSuccess && e.CreatedAt.After(last) {
			last = e.CreatedAt
		}
	}
	return last, nil
}

// byMethod returns the store's entries for one method, oldest first.
func (r *fakeLogRepo) byMethod(storeID, method string) []*domain.SyncLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.SyncLogEntry
	for _, e := range r.entries {
		if e.StoreID == storeID && e.Method == method {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}

type fakeNoticeBus struct {
	mu        sync.Mutex
	published []*domain.SyncNotice
	subs      []chan *domain.SyncNotice
}

func newFakeNoticeBus() *fakeNoticeBus {
	return &fakeNoticeBus{}
}

func (b *fakeNoticeBus) Publish(notice *domain.SyncNotice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, notice)
	for _, ch := range b.subs {
		select {
		case ch <- notice:
		default:
		}
	}
}

func (b *fakeNoticeBus) Subscribe(ctx context.Context, filter *domain.NoticeFilter) <-chan *domain.SyncNotice {
	ch := make(chan *domain.SyncNotice, 64)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	go func() {
		<-ctx.Done()
		b.mu.Lock()
		for i, sub := range b.subs {
			if sub == ch {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				close(ch)
				break
			}
		}
		b.mu.Unlock()
	}()
	return ch
}

func (b *fakeNoticeBus) notices() []*domain.SyncNotice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*domain.SyncNotice, len(b.published))
	copy(out, b.published)
	return out
}

type inventoryCall struct {
	InventoryItemID int64
	LocationID      int64
	Available       int
}

// fakePlatformClient is a scripted platform client. Fields prime responses,
// the call records let tests assert what went out.
type fakePlatformClient struct {
	mu sync.Mutex

	probeErr error

	orderPages [][]domain.OrderEvent
	listErr    error
	sinceArgs  []time.Time

	setErrs  map[int64]error
	setCalls []inventoryCall
	setGate  chan struct{}

	webhooks      []ports.PlatformWebhook
	listHooksErr  error
	createHookErr error
	nextHookID    int64
	createdHooks  []ports.PlatformWebhook
	deletedHooks  []int64
	deleteHookErr error
}

func newFakePlatformClient() *fakePlatformClient {
	return &fakePlatformClient{nextHookID: 9000}
}

func (c *fakePlatformClient) Probe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.probeErr
}

func (c *fakePlatformClient) GetOrder(ctx context.Context, orderID int64) (*domain.OrderEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, page := range c.orderPages {
		for i := range page {
			if page[i].ID == orderID {
				cp := page[i]
				return &cp, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: order %d", domain.ErrRemoteNotFound, orderID)
}

func (c *fakePlatformClient) ListOrdersSince(ctx context.Context, since time.Time, limit int) ([]domain.OrderEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sinceArgs = append(c.sinceArgs, since)
	if c.listErr != nil {
		return nil, c.listErr
	}
	if len(c.orderPages) == 0 {
		return nil, nil
	}
	page := c.orderPages[0]
	c.orderPages = c.orderPages[1:]
	return page, nil
}

func (c *fakePlatformClient) SetInventoryLevel(ctx context.Context, inventoryItemID, locationID int64, available int) error {
	if c.setGate != nil {
		<-c.setGate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.setErrs[inventoryItemID]; ok {
		return err
	}
	c.setCalls = append(c.setCalls, inventoryCall{
		InventoryItemID: inventoryItemID,
		LocationID:      locationID,
		Available:       available,
	})
	return nil
}

func (c *fakePlatformClient) CreateWebhook(ctx context.Context, topic, address string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.createHookErr != nil {
		return 0, c.createHookErr
	}
	c.nextHookID++
	wh := ports.PlatformWebhook{ID: c.nextHookID, Topic: topic, Address: address}
	c.webhooks = append(c.webhooks, wh)
	c.createdHooks = append(c.createdHooks, wh)
	return wh.ID, nil
}

func (c *fakePlatformClient) ListWebhooks(ctx context.Context) ([]ports.PlatformWebhook, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listHooksErr != nil {
		return nil, c.listHooksErr
	}
	out := make([]ports.PlatformWebhook, len(c.webhooks))
	copy(out, c.webhooks)
	return out, nil
}

func (c *fakePlatformClient) DeleteWebhook(ctx context.Context, webhookID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deleteHookErr != nil {
		return c.deleteHookErr
	}
	c.deletedHooks = append(c.deletedHooks, webhookID)
	for i, wh := range c.webhooks {
		if wh.ID == webhookID {
			c.webhooks = append(c.webhooks[:i], c.webhooks[i+1:]...)
			break
		}
	}
	return nil
}

func (c *fakePlatformClient) inventoryCalls() []inventoryCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]inventoryCall, len(c.setCalls))
	copy(out, c.setCalls)
	return out
}

func (c *fakePlatformClient) listCalls() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Time, len(c.sinceArgs))
	copy(out, c.sinceArgs)
	return out
}

type fakeClientPool struct {
	mu      sync.Mutex
	client  *fakePlatformClient
	granted []string
	evicted []string
}

func newFakeClientPool(client *fakePlatformClient) *fakeClientPool {
	return &fakeClientPool{client: client}
}

func (p *fakeClientPool) ClientFor(storeDomain, accessToken string) ports.PlatformClient {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.granted = append(p.granted, storeDomain+"|"+accessToken)
	return p.client
}

func (p *fakeClientPool) Evict(storeDomain string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evicted = append(p.evicted, storeDomain)
}

// fakeCredentials encrypts by prefixing, so stored values are visibly not
// plaintext and decryption of something never encrypted fails.
type fakeCredentials struct {
	valid       bool
	validateErr error
}

func newFakeCredentials() *fakeCredentials {
	return &fakeCredentials{valid: true}
}

func (c *fakeCredentials) EncryptToken(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("refusing to encrypt empty token")
	}
	return "enc:" + token, nil
}

func (c *fakeCredentials) DecryptToken(encryptedToken string) (string, error) {
	if len(encryptedToken) < 4 || encryptedToken[:4] != "enc:" {
		return "", fmt.Errorf("malformed ciphertext")
	}
	return encryptedToken[4:], nil
}

func (c *fakeCredentials) ValidateCredentials(ctx context.Context, client ports.PlatformClient, storeDomain string) (bool, error) {
	if c.validateErr != nil {
		return false, c.validateErr
	}
	if !c.valid {
		return false, nil
	}
	if err := client.Probe(ctx); err != nil {
		return false, nil
	}
	return true, nil
}

// waitFor polls cond until it holds or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
