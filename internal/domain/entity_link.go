package domain

import "time"

// EntityKind distinguishes the master entity an EntityLink binds.
type EntityKind string

const (
	EntityKindCustomer EntityKind = "customer"
	EntityKindItem     EntityKind = "item"
)

// EntityLink binds one shared master entity to one store's external
// identifier. Many links may point to the same master entity (one customer
// known to many stores); each link belongs to exactly one store.
// (StoreID, Kind, ExternalID) is unique, and so is (Kind, MasterID, StoreID).
type EntityLink struct {
	ID              string     `json:"id" bson:"_id,omitempty"`
	StoreID         string     `json:"store_id" bson:"store_id"`
	Kind            EntityKind `json:"kind" bson:"kind"`
	MasterID        string     `json:"master_id" bson:"master_id"`
	ExternalID      string     `json:"external_id" bson:"external_id"`
	SKU             string     `json:"sku,omitempty" bson:"sku,omitempty"`                             // items only
	InventoryItemID int64      `json:"inventory_item_id,omitempty" bson:"inventory_item_id,omitempty"` // items only
	LastSyncedAt    time.Time  `json:"last_synced_at" bson:"last_synced_at"`
	CreatedAt       time.Time  `json:"created_at" bson:"created_at"`
}
