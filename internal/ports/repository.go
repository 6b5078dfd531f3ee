package ports

import (
	"context"
	"time"

	"storebridge-sync-core/internal/domain"
)

// StoreRepository defines the interface for store tenant persistence
type StoreRepository interface {
	Create(ctx context.Context, store *domain.Store) (string, error)
	GetByID(ctx context.Context, id string) (*domain.Store, error)
	GetByDomain(ctx context.Context, storeDomain string) (*domain.Store, error)
	Update(ctx context.Context, store *domain.Store) error
	List(ctx context.Context) ([]*domain.Store, error)
	ListEnabled(ctx context.Context) ([]*domain.Store, error)
}

// EntityLinkRepository defines the interface for entity link persistence.
// Implementations must enforce uniqueness of (store, kind, external ID) and
// of (kind, master ID, store) and surface violations as domain.ErrConflict.
type EntityLinkRepository interface {
	Create(ctx context.Context, link *domain.EntityLink) error
	GetByExternalID(ctx context.Context, storeID string, kind domain.EntityKind, externalID string) (*domain.EntityLink, error)
	GetBySKU(ctx context.Context, storeID string, sku string) (*domain.EntityLink, error)
	GetByMaster(ctx context.Context, storeID string, kind domain.EntityKind, masterID string) (*domain.EntityLink, error)
	ListByKind(ctx context.Context, storeID string, kind domain.EntityKind) ([]*domain.EntityLink, error)
	Update(ctx context.Context, link *domain.EntityLink) error
	Touch(ctx context.Context, id string, at time.Time) error
}

// OrderRepository defines the interface for order persistence.
// Implementations must enforce uniqueness of (store, external ID), surface
// duplicate inserts as domain.ErrConflict, and report concurrent updates of
// the same order as domain.ErrConflict.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) (string, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByExternalID(ctx context.Context, storeID, externalID string) (*domain.Order, error)
	Update(ctx context.Context, order *domain.Order) error
	ListByStore(ctx context.Context, storeID string, limit int64) ([]*domain.Order, error)
	CountByStore(ctx context.Context, storeID string) (int64, error)
	CountByStatus(ctx context.Context, storeID string, status domain.OrderStatus) (int64, error)
}

// InvoiceRepository defines the interface for derived invoice persistence
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *domain.Invoice) (string, error)
	GetByExternalOrderID(ctx context.Context, storeID, externalOrderID string) (*domain.Invoice, error)
	Update(ctx context.Context, invoice *domain.Invoice) error
	CountByStore(ctx context.Context, storeID string) (int64, error)
}

// FulfillmentRepository defines the interface for derived fulfillment persistence
type FulfillmentRepository interface {
	Create(ctx context.Context, fulfillment *domain.Fulfillment) (string, error)
	GetByExternalFulfillmentID(ctx context.Context, storeID, externalFulfillmentID string) (*domain.Fulfillment, error)
	ListByOrder(ctx context.Context, orderID string) ([]*domain.Fulfillment, error)
	Update(ctx context.Context, fulfillment *domain.Fulfillment) error
}

// CustomerRepository defines the interface for shared customer master persistence
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) (string, error)
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	Update(ctx context.Context, customer *domain.Customer) error
}

// ItemRepository defines the interface for shared item master persistence
type ItemRepository interface {
	Create(ctx context.Context, item *domain.Item) (string, error)
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	GetBySKU(ctx context.Context, sku string) (*domain.Item, error)
	GetByName(ctx context.Context, name string) (*domain.Item, error)
}

// StockRepository defines the interface for warehouse stock level persistence
type StockRepository interface {
	GetLevel(ctx context.Context, itemID, warehouse string) (*domain.StockLevel, error)
	SetLevel(ctx context.Context, level *domain.StockLevel) error
}

// SyncLogRepository defines the interface for the append-only sync log.
// Entries are never updated or deleted once written.
type SyncLogRepository interface {
	Append(ctx context.Context, entry *domain.SyncLogEntry) error
	ListByStatus(ctx context.Context, storeID string, status domain.SyncStatus, limit int64) ([]*domain.SyncLogEntry, error)
	HasIncomplete(ctx context.Context, storeID, inputID string) (bool, error)
	CountSince(ctx context.Context, storeID string, status domain.SyncStatus, since time.Time) (int64, error)
	LastSuccessAt(ctx context.Context, storeID string) (time.Time, error)
}
