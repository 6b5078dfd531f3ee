package entity

import (
	"time"

	"storebridge-sync-core/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoEntityLinkDoc represents an entity link in MongoDB
type MongoEntityLinkDoc struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	StoreID         string             `bson:"storeId"`
	Kind            string             `bson:"kind"`
	MasterID        string             `bson:"masterId"`
	ExternalID      string             `bson:"externalId"`
	SKU             string             `bson:"sku"`
	InventoryItemID int64              `bson:"inventoryItemId"`
	LastSyncedAt    time.Time          `bson:"lastSyncedAt"`
	CreatedAt       time.Time          `bson:"createdAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoEntityLinkDoc) ToDomain() *domain.EntityLink {
	return &domain.EntityLink{
		ID:              d.ID.Hex(),
		StoreID:         d.StoreID,
		Kind:            domain.EntityKind(d.Kind),
		MasterID:        d.MasterID,
		ExternalID:      d.ExternalID,
		SKU:             d.SKU,
		InventoryItemID: d.InventoryItemID,
		LastSyncedAt:    d.LastSyncedAt,
		CreatedAt:       d.CreatedAt,
	}
}

// MongoEntityLinkDocFromDomain converts a domain entity to a MongoDB document
func MongoEntityLinkDocFromDomain(link *domain.EntityLink) *MongoEntityLinkDoc {
	doc := &MongoEntityLinkDoc{
		StoreID:         link.StoreID,
		Kind:            string(link.Kind),
		MasterID:        link.MasterID,
		ExternalID:      link.ExternalID,
		SKU:             link.SKU,
		InventoryItemID: link.InventoryItemID,
		LastSyncedAt:    link.LastSyncedAt,
		CreatedAt:       link.CreatedAt,
	}

	if link.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(link.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}
