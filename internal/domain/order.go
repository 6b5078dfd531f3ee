package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of a materialized order.
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is the domain record materialized from exactly one store's order
// event. (StoreID, ExternalID) is the idempotency key: at most one Order
// exists per key, ever, regardless of how often the event is redelivered.
type Order struct {
	ID             string          `json:"id" bson:"_id,omitempty"`
	StoreID        string          `json:"store_id" bson:"store_id"`
	ExternalID     string          `json:"external_id" bson:"external_id"`
	ExternalNumber string          `json:"external_number" bson:"external_number"`
	Series         string          `json:"series" bson:"series"`
	CustomerID     string          `json:"customer_id" bson:"customer_id"`
	Lines          []OrderLine     `json:"lines" bson:"lines"`
	Currency       string          `json:"currency" bson:"currency"`
	Subtotal       decimal.Decimal `json:"subtotal" bson:"subtotal"`
	TaxTotal       decimal.Decimal `json:"tax_total" bson:"tax_total"`
	Total          decimal.Decimal `json:"total" bson:"total"`
	TaxAccount     string          `json:"tax_account" bson:"tax_account"`
	CostCenter     string          `json:"cost_center" bson:"cost_center"`
	ShippingTo     *Address        `json:"shipping_to,omitempty" bson:"shipping_to,omitempty"`
	BillingTo      *Address        `json:"billing_to,omitempty" bson:"billing_to,omitempty"`
	FinancialState string          `json:"financial_state" bson:"financial_state"`
	Status         OrderStatus     `json:"status" bson:"status"`
	Note           string          `json:"note,omitempty" bson:"note,omitempty"`
	PlacedAt       time.Time       `json:"placed_at" bson:"placed_at"`
	CreatedAt      time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" bson:"updated_at"`
}

// OrderLine is one resolved line of an Order. MasterItemID always references
// an existing item master; unresolvable lines prevent order creation instead
// of producing partial orders.
type OrderLine struct {
	MasterItemID string          `json:"master_item_id" bson:"master_item_id"`
	SKU          string          `json:"sku" bson:"sku"`
	Description  string          `json:"description" bson:"description"`
	Quantity     decimal.Decimal `json:"quantity" bson:"quantity"`
	Rate         decimal.Decimal `json:"rate" bson:"rate"`
	Amount       decimal.Decimal `json:"amount" bson:"amount"`
	Warehouse    string          `json:"warehouse" bson:"warehouse"`
}

// Address is a postal address carried on orders and customers.
type Address struct {
	Name        string `json:"name,omitempty" bson:"name,omitempty"`
	Company     string `json:"company,omitempty" bson:"company,omitempty"`
	Line1       string `json:"line1" bson:"line1"`
	Line2       string `json:"line2,omitempty" bson:"line2,omitempty"`
	City        string `json:"city" bson:"city"`
	Province    string `json:"province,omitempty" bson:"province,omitempty"`
	CountryCode string `json:"country_code" bson:"country_code"`
	Zip         string `json:"zip,omitempty" bson:"zip,omitempty"`
	Phone       string `json:"phone,omitempty" bson:"phone,omitempty"`
}

// Invoice is derived from a fully materialized Order. It references its
// source order one-directionally and inherits the order's idempotency key.
type Invoice struct {
	ID              string          `json:"id" bson:"_id,omitempty"`
	OrderID         string          `json:"order_id" bson:"order_id"`
	StoreID         string          `json:"store_id" bson:"store_id"`
	ExternalOrderID string          `json:"external_order_id" bson:"external_order_id"`
	Series          string          `json:"series" bson:"series"`
	Total           decimal.Decimal `json:"total" bson:"total"`
	Paid            bool            `json:"paid" bson:"paid"`
	PaymentRef      string          `json:"payment_ref,omitempty" bson:"payment_ref,omitempty"`
	Cancelled       bool            `json:"cancelled" bson:"cancelled"`
	PostingDate     time.Time       `json:"posting_date" bson:"posting_date"`
	CreatedAt       time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" bson:"updated_at"`
}

// Fulfillment is derived from a fully materialized Order, one per external
// fulfillment. (StoreID, ExternalFulfillmentID) dedupes redelivered
// fulfillment events.
type Fulfillment struct {
	ID                    string            `json:"id" bson:"_id,omitempty"`
	OrderID               string            `json:"order_id" bson:"order_id"`
	StoreID               string            `json:"store_id" bson:"store_id"`
	ExternalOrderID       string            `json:"external_order_id" bson:"external_order_id"`
	ExternalFulfillmentID string            `json:"external_fulfillment_id" bson:"external_fulfillment_id"`
	Series                string            `json:"series" bson:"series"`
	Warehouse             string            `json:"warehouse" bson:"warehouse"`
	Lines                 []FulfillmentLine `json:"lines" bson:"lines"`
	TrackingNumber        string            `json:"tracking_number,omitempty" bson:"tracking_number,omitempty"`
	Carrier               string            `json:"carrier,omitempty" bson:"carrier,omitempty"`
	Cancelled             bool              `json:"cancelled" bson:"cancelled"`
	PostingDate           time.Time         `json:"posting_date" bson:"posting_date"`
	CreatedAt             time.Time         `json:"created_at" bson:"created_at"`
}

// FulfillmentLine records the shipped quantity of one order line.
type FulfillmentLine struct {
	MasterItemID string          `json:"master_item_id" bson:"master_item_id"`
	SKU          string          `json:"sku" bson:"sku"`
	Quantity     decimal.Decimal `json:"quantity" bson:"quantity"`
}
