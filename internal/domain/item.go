package domain

import "time"

// Item is a shared master item record resolved against during order
// materialization and pushed during inventory sync.
type Item struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	SKU       string    `json:"sku" bson:"sku"`
	Name      string    `json:"name" bson:"name"`
	Disabled  bool      `json:"disabled" bson:"disabled"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// StockLevel is the current on-hand quantity of one item in one warehouse,
// maintained by the backend record store and read during inventory pushes.
type StockLevel struct {
	ItemID    string    `json:"item_id" bson:"item_id"`
	Warehouse string    `json:"warehouse" bson:"warehouse"`
	Quantity  int       `json:"quantity" bson:"quantity"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}
