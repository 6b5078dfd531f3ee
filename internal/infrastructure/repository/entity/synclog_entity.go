package entity

import (
	"encoding/json"
	"time"

	"storebridge-sync-core/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoSyncLogDoc represents one sync log entry in MongoDB
type MongoSyncLogDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	StoreID        string             `bson:"storeId"`
	StoreTag       string             `bson:"storeTag"`
	Method         string             `bson:"method"`
	InputID        string             `bson:"inputId"`
	Status         string             `bson:"status"`
	Detail         string             `bson:"detail"`
	UnresolvedSKUs []string           `bson:"unresolvedSkus,omitempty"`
	Payload        []byte             `bson:"payload,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoSyncLogDoc) ToDomain() *domain.SyncLogEntry {
	return &domain.SyncLogEntry{
		ID:             d.ID.Hex(),
		StoreID:        d.StoreID,
		StoreTag:       d.StoreTag,
		Method:         d.Method,
		InputID:        d.InputID,
		Status:         domain.SyncStatus(d.Status),
		Detail:         d.Detail,
		UnresolvedSKUs: d.UnresolvedSKUs,
		Payload:        json.RawMessage(d.Payload),
		CreatedAt:      d.CreatedAt,
	}
}

// MongoSyncLogDocFromDomain converts a domain entity to a MongoDB document
func MongoSyncLogDocFromDomain(entry *domain.SyncLogEntry) *MongoSyncLogDoc {
	doc := &MongoSyncLogDoc{
		StoreID:        entry.StoreID,
		StoreTag:       entry.StoreTag,
		Method:         entry.Method,
		InputID:        entry.InputID,
		Status:         string(entry.Status),
		Detail:         entry.Detail,
		UnresolvedSKUs: entry.UnresolvedSKUs,
		Payload:        []byte(entry.Payload),
		CreatedAt:      entry.CreatedAt,
	}

	if entry.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(entry.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}
