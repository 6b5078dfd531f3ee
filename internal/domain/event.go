package domain

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Webhook topics the pipeline understands.
const (
	TopicOrderCreate     = "orders/create"
	TopicOrderUpdated    = "orders/updated"
	TopicOrderCancelled  = "orders/cancelled"
	TopicOrderPaid       = "orders/paid"
	TopicOrderFulfilled  = "orders/fulfilled"
	TopicCustomerCreate  = "customers/create"
	TopicCustomerUpdate  = "customers/update"
	TopicProductUpdate   = "products/update"
	TopicInventoryUpdate = "inventory_levels/update"
	TopicAppUninstalled  = "app/uninstalled"
)

// Job is one unit of asynchronous work: an authenticated event tagged with
// its store context, produced by the dispatcher or the orchestrator and
// consumed by the worker pool.
type Job struct {
	ID          string          `json:"id"`
	StoreID     string          `json:"store_id"`
	StoreDomain string          `json:"store_domain"`
	Topic       string          `json:"topic"`
	Payload     json.RawMessage `json:"payload"`
	ReceivedAt  time.Time       `json:"received_at"`
	Attempts    int             `json:"attempts"`
}

// OrderEvent is the typed decode of an inbound order payload.
type OrderEvent struct {
	ID                int64              `json:"id"`
	Name              string             `json:"name"`
	Email             string             `json:"email"`
	Currency          string             `json:"currency"`
	FinancialStatus   string             `json:"financial_status"`
	FulfillmentStatus string             `json:"fulfillment_status"`
	Note              string             `json:"note"`
	SubtotalPrice     decimal.Decimal    `json:"subtotal_price"`
	TotalTax          decimal.Decimal    `json:"total_tax"`
	TotalPrice        decimal.Decimal    `json:"total_price"`
	CreatedAt         time.Time          `json:"created_at"`
	CancelledAt       *time.Time         `json:"cancelled_at"`
	Customer          *CustomerEvent     `json:"customer"`
	LineItems         []LineItemEvent    `json:"line_items"`
	ShippingAddress   *AddressEvent      `json:"shipping_address"`
	BillingAddress    *AddressEvent      `json:"billing_address"`
	Fulfillments      []FulfillmentEvent `json:"fulfillments"`
}

// ExternalID returns the order identifier as carried in idempotency keys.
func (e *OrderEvent) ExternalID() string {
	return strconv.FormatInt(e.ID, 10)
}

// RequiresShipping reports whether any line carries physical goods.
func (e *OrderEvent) RequiresShipping() bool {
	for _, li := range e.LineItems {
		if li.RequiresShipping {
			return true
		}
	}
	return false
}

// LineItemEvent is one inbound order line before resolution.
type LineItemEvent struct {
	ID               int64           `json:"id"`
	ProductID        int64           `json:"product_id"`
	VariantID        int64           `json:"variant_id"`
	SKU              string          `json:"sku"`
	Title            string          `json:"title"`
	Quantity         int             `json:"quantity"`
	Price            decimal.Decimal `json:"price"`
	RequiresShipping bool            `json:"requires_shipping"`
}

// CustomerEvent is the customer block of an inbound order or customer payload.
type CustomerEvent struct {
	ID             int64         `json:"id"`
	Email          string        `json:"email"`
	FirstName      string        `json:"first_name"`
	LastName       string        `json:"last_name"`
	DefaultAddress *AddressEvent `json:"default_address"`
}

// ExternalID returns the customer identifier as used in entity links.
func (e *CustomerEvent) ExternalID() string {
	return strconv.FormatInt(e.ID, 10)
}

// AddressEvent is an inbound address block.
type AddressEvent struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Company     string `json:"company"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2"`
	City        string `json:"city"`
	Province    string `json:"province"`
	CountryCode string `json:"country_code"`
	Zip         string `json:"zip"`
	Phone       string `json:"phone"`
}

// ToAddress converts an inbound address block to the domain form.
func (a *AddressEvent) ToAddress() *Address {
	if a == nil {
		return nil
	}
	return &Address{
		Name:        DisplayName(a.FirstName, a.LastName, ""),
		Company:     a.Company,
		Line1:       a.Address1,
		Line2:       a.Address2,
		City:        a.City,
		Province:    a.Province,
		CountryCode: a.CountryCode,
		Zip:         a.Zip,
		Phone:       a.Phone,
	}
}

// FulfillmentEvent is one inbound fulfillment block of an order payload.
type FulfillmentEvent struct {
	ID              int64           `json:"id"`
	OrderID         int64           `json:"order_id"`
	Status          string          `json:"status"`
	TrackingNumber  string          `json:"tracking_number"`
	TrackingCompany string          `json:"tracking_company"`
	LocationID      int64           `json:"location_id"`
	CreatedAt       time.Time       `json:"created_at"`
	LineItems       []LineItemEvent `json:"line_items"`
}

// ExternalID returns the fulfillment identifier used for dedup.
func (e *FulfillmentEvent) ExternalID() string {
	return strconv.FormatInt(e.ID, 10)
}

// ProductEvent carries the variant identities needed to keep item links
// current when a product changes upstream.
type ProductEvent struct {
	ID       int64          `json:"id"`
	Title    string         `json:"title"`
	Variants []VariantEvent `json:"variants"`
}

// VariantEvent is one variant of an inbound product payload.
type VariantEvent struct {
	ID              int64  `json:"id"`
	SKU             string `json:"sku"`
	Title           string `json:"title"`
	InventoryItemID int64  `json:"inventory_item_id"`
}

// InventoryLevelEvent is an inbound inventory level change notification.
type InventoryLevelEvent struct {
	InventoryItemID int64 `json:"inventory_item_id"`
	LocationID      int64 `json:"location_id"`
	Available       int   `json:"available"`
}
