package entity

import (
	"time"

	"storebridge-sync-core/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoStoreDoc represents a store tenant in MongoDB
type MongoStoreDoc struct {
	ID                     primitive.ObjectID `bson:"_id,omitempty"`
	Name                   string             `bson:"name"`
	Domain                 string             `bson:"domain"`
	Enabled                bool               `bson:"enabled"`
	AccessToken            string             `bson:"accessToken"`
	WebhookSecret          string             `bson:"webhookSecret"`
	SyncInvoices           bool               `bson:"syncInvoices"`
	SyncFulfillments       bool               `bson:"syncFulfillments"`
	SyncInventory          bool               `bson:"syncInventory"`
	BackfillEnabled        bool               `bson:"backfillEnabled"`
	Warehouse              string             `bson:"warehouse"`
	InternationalWarehouse string             `bson:"internationalWarehouse"`
	LocationWarehouses     map[string]string  `bson:"locationWarehouses"`
	InventoryLocationID    int64              `bson:"inventoryLocationId"`
	OrderSeries            string             `bson:"orderSeries"`
	InvoiceSeries          string             `bson:"invoiceSeries"`
	FulfillmentSeries      string             `bson:"fulfillmentSeries"`
	TaxAccount             string             `bson:"taxAccount"`
	CostCenter             string             `bson:"costCenter"`
	CustomerGroup          string             `bson:"customerGroup"`
	CashAccount            string             `bson:"cashAccount"`
	HomeCountryCode        string             `bson:"homeCountryCode"`
	OrderCutoff            time.Time          `bson:"orderCutoff"`
	InventorySyncInterval  time.Duration      `bson:"inventorySyncInterval"`
	LastInventorySyncAt    time.Time          `bson:"lastInventorySyncAt"`
	BackfillWatermark      time.Time          `bson:"backfillWatermark"`
	RegisteredWebhookIDs   []int64            `bson:"registeredWebhookIds"`
	CreatedAt              time.Time          `bson:"createdAt"`
	UpdatedAt              time.Time          `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoStoreDoc) ToDomain() *domain.Store {
	return &domain.Store{
		ID:                     d.ID.Hex(),
		Name:                   d.Name,
		Domain:                 d.Domain,
		Enabled:                d.Enabled,
		AccessToken:            d.AccessToken,
		WebhookSecret:          d.WebhookSecret,
		SyncInvoices:           d.SyncInvoices,
		SyncFulfillments:       d.SyncFulfillments,
		SyncInventory:          d.SyncInventory,
		BackfillEnabled:        d.BackfillEnabled,
		Warehouse:              d.Warehouse,
		InternationalWarehouse: d.InternationalWarehouse,
		LocationWarehouses:     d.LocationWarehouses,
		InventoryLocationID:    d.InventoryLocationID,
		OrderSeries:            d.OrderSeries,
		InvoiceSeries:          d.InvoiceSeries,
		FulfillmentSeries:      d.FulfillmentSeries,
		TaxAccount:             d.TaxAccount,
		CostCenter:             d.CostCenter,
		CustomerGroup:          d.CustomerGroup,
		CashAccount:            d.CashAccount,
		HomeCountryCode:        d.HomeCountryCode,
		OrderCutoff:            d.OrderCutoff,
		InventorySyncInterval:  d.InventorySyncInterval,
		LastInventorySyncAt:    d.LastInventorySyncAt,
		BackfillWatermark:      d.BackfillWatermark,
		RegisteredWebhookIDs:   d.RegisteredWebhookIDs,
		CreatedAt:              d.CreatedAt,
		UpdatedAt:              d.UpdatedAt,
	}
}

// MongoStoreDocFromDomain converts a domain entity to a MongoDB document
func MongoStoreDocFromDomain(store *domain.Store) *MongoStoreDoc {
	doc := &MongoStoreDoc{
		Name:                   store.Name,
		Domain:                 store.Domain,
		Enabled:                store.Enabled,
		AccessToken:            store.AccessToken,
		WebhookSecret:          store.WebhookSecret,
		SyncInvoices:           store.SyncInvoices,
		SyncFulfillments:       store.SyncFulfillments,
		SyncInventory:          store.SyncInventory,
		BackfillEnabled:        store.BackfillEnabled,
		Warehouse:              store.Warehouse,
		InternationalWarehouse: store.InternationalWarehouse,
		LocationWarehouses:     store.LocationWarehouses,
		InventoryLocationID:    store.InventoryLocationID,
		OrderSeries:            store.OrderSeries,
		InvoiceSeries:          store.InvoiceSeries,
		FulfillmentSeries:      store.FulfillmentSeries,
		TaxAccount:             store.TaxAccount,
		CostCenter:             store.CostCenter,
		CustomerGroup:          store.CustomerGroup,
		CashAccount:            store.CashAccount,
		HomeCountryCode:        store.HomeCountryCode,
		OrderCutoff:            store.OrderCutoff,
		InventorySyncInterval:  store.InventorySyncInterval,
		LastInventorySyncAt:    store.LastInventorySyncAt,
		BackfillWatermark:      store.BackfillWatermark,
		RegisteredWebhookIDs:   store.RegisteredWebhookIDs,
		CreatedAt:              store.CreatedAt,
		UpdatedAt:              store.UpdatedAt,
	}

	if store.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(store.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}
