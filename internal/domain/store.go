package domain

import (
	"strings"
	"time"
)

// Default numbering series applied when a store does not override them.
const (
	DefaultOrderSeries       = "SO-Shopify-"
	DefaultInvoiceSeries     = "SI-Shopify-"
	DefaultFulfillmentSeries = "DN-Shopify-"
)

// Store represents one connected storefront tenant. Every sync operation is
// scoped to exactly one store; credentials, defaults and rate budgets are
// never shared across stores.
type Store struct {
	ID      string `json:"id" bson:"_id,omitempty"`
	Name    string `json:"name" bson:"name"`
	Domain  string `json:"domain" bson:"domain"` // unique, normalized storefront domain
	Enabled bool   `json:"enabled" bson:"enabled"`

	// Credentials are encrypted at rest and decrypted on use.
	AccessToken   string `json:"-" bson:"access_token"`
	WebhookSecret string `json:"-" bson:"webhook_secret"`

	// Sync feature flags
	SyncInvoices     bool `json:"sync_invoices" bson:"sync_invoices"`
	SyncFulfillments bool `json:"sync_fulfillments" bson:"sync_fulfillments"`
	SyncInventory    bool `json:"sync_inventory" bson:"sync_inventory"`
	BackfillEnabled  bool `json:"backfill_enabled" bson:"backfill_enabled"`

	// Defaults applied during materialization
	Warehouse              string            `json:"warehouse" bson:"warehouse"`
	InternationalWarehouse string            `json:"international_warehouse" bson:"international_warehouse"`
	LocationWarehouses     map[string]string `json:"location_warehouses" bson:"location_warehouses"` // external location ID -> warehouse
	InventoryLocationID    int64             `json:"inventory_location_id" bson:"inventory_location_id"`
	OrderSeries            string            `json:"order_series" bson:"order_series"`
	InvoiceSeries          string            `json:"invoice_series" bson:"invoice_series"`
	FulfillmentSeries      string            `json:"fulfillment_series" bson:"fulfillment_series"`
	TaxAccount             string            `json:"tax_account" bson:"tax_account"`
	CostCenter             string            `json:"cost_center" bson:"cost_center"`
	CustomerGroup          string            `json:"customer_group" bson:"customer_group"`
	CashAccount            string            `json:"cash_account" bson:"cash_account"`
	HomeCountryCode        string            `json:"home_country_code" bson:"home_country_code"`

	// Orders placed before the cutoff are never materialized.
	OrderCutoff time.Time `json:"order_cutoff" bson:"order_cutoff"`

	InventorySyncInterval time.Duration `json:"inventory_sync_interval" bson:"inventory_sync_interval"`
	LastInventorySyncAt   time.Time     `json:"last_inventory_sync_at" bson:"last_inventory_sync_at"`
	BackfillWatermark     time.Time     `json:"backfill_watermark" bson:"backfill_watermark"`

	RegisteredWebhookIDs []int64 `json:"registered_webhook_ids" bson:"registered_webhook_ids"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// NormalizeStoreDomain canonicalizes an inbound claimed domain so lookups
// match regardless of how the operator entered the store URL.
func NormalizeStoreDomain(raw string) string {
	d := strings.TrimSpace(strings.ToLower(raw))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	return strings.TrimSuffix(d, "/")
}

// OrderSeriesOrDefault returns the store's order numbering series.
func (s *Store) OrderSeriesOrDefault() string {
	if s.OrderSeries != "" {
		return s.OrderSeries
	}
	return DefaultOrderSeries
}

// InvoiceSeriesOrDefault returns the store's invoice numbering series.
func (s *Store) InvoiceSeriesOrDefault() string {
	if s.InvoiceSeries != "" {
		return s.InvoiceSeries
	}
	return DefaultInvoiceSeries
}

// FulfillmentSeriesOrDefault returns the store's fulfillment numbering series.
func (s *Store) FulfillmentSeriesOrDefault() string {
	if s.FulfillmentSeries != "" {
		return s.FulfillmentSeries
	}
	return DefaultFulfillmentSeries
}

// WarehouseForLocation maps an external location ID to a backend warehouse,
// falling back to the store default.
func (s *Store) WarehouseForLocation(locationID string) string {
	if wh, ok := s.LocationWarehouses[locationID]; ok && wh != "" {
		return wh
	}
	return s.Warehouse
}

// WarehouseForCountry picks the fulfillment warehouse by destination country.
// Shipments outside the store's home country use the international warehouse
// when one is configured.
func (s *Store) WarehouseForCountry(countryCode string) string {
	if s.HomeCountryCode != "" && countryCode != "" &&
		!strings.EqualFold(countryCode, s.HomeCountryCode) && s.InternationalWarehouse != "" {
		return s.InternationalWarehouse
	}
	return s.Warehouse
}

// InventorySyncDue reports whether enough time has passed since the last
// inventory push for this store.
func (s *Store) InventorySyncDue(now time.Time) bool {
	if s.InventorySyncInterval <= 0 {
		return true
	}
	if s.LastInventorySyncAt.IsZero() {
		return true
	}
	return now.Sub(s.LastInventorySyncAt) >= s.InventorySyncInterval
}
