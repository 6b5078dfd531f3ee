package repository

import (
	"context"
	"fmt"
	"time"

	"storebridge-sync-core/internal/domain"
	"storebridge-sync-core/internal/infrastructure/repository/entity"
	"storebridge-sync-core/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoEntityLinkRepository implements EntityLinkRepository using MongoDB
type MongoEntityLinkRepository struct {
	collection *mongo.Collection
}

// NewMongoEntityLinkRepository creates a new MongoDB entity link repository
func NewMongoEntityLinkRepository(db *mongo.Database) ports.EntityLinkRepository {
	return &MongoEntityLinkRepository{
		collection: db.Collection("entity_links"),
	}
}

// Create inserts a new link. Concurrent creation of the same link loses the
// race on the unique indexes and comes back as domain.ErrConflict.
func (r *MongoEntityLinkRepository) Create(ctx context.Context, link *domain.EntityLink) error {
	doc := entity.MongoEntityLinkDocFromDomain(link)
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	// Create unique indexes if they don't exist
	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "storeId", Value: 1}, {Key: "kind", Value: 1}, {Key: "externalId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "kind", Value: 1}, {Key: "masterId", Value: 1}, {Key: "storeId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, _ = r.collection.Indexes().CreateMany(ctx, indexModels)

	_, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: link for %s %s already exists in store %s",
				domain.ErrConflict, link.Kind, link.ExternalID, link.StoreID)
		}
		return fmt.Errorf("failed to create entity link: %w", err)
	}

	return nil
}

// GetByExternalID retrieves a link by its store-scoped external identifier
func (r *MongoEntityLinkRepository) GetByExternalID(ctx context.Context, storeID string, kind domain.EntityKind, externalID string) (*domain.EntityLink, error) {
	filter := bson.M{
		"storeId":    storeID,
		"kind":       string(kind),
		"externalId": externalID,
	}
	return r.findOne(ctx, filter)
}

// GetBySKU retrieves an item link by SKU within one store
func (r *MongoEntityLinkRepository) GetBySKU(ctx context.Context, storeID string, sku string) (*domain.EntityLink, error) {
	filter := bson.M{
		"storeId": storeID,
		"kind":    string(domain.EntityKindItem),
		"sku":     sku,
	}
	return r.findOne(ctx, filter)
}

// GetByMaster retrieves the link binding a master entity to one store
func (r *MongoEntityLinkRepository) GetByMaster(ctx context.Context, storeID string, kind domain.EntityKind, masterID string) (*domain.EntityLink, error) {
	filter := bson.M{
		"storeId":  storeID,
		"kind":     string(kind),
		"masterId": masterID,
	}
	return r.findOne(ctx, filter)
}

// ListByKind retrieves all links of one kind within a store
func (r *MongoEntityLinkRepository) ListByKind(ctx context.Context, storeID string, kind domain.EntityKind) ([]*domain.EntityLink, error) {
	filter := bson.M{
		"storeId": storeID,
		"kind":    string(kind),
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list entity links: %w", err)
	}
	defer cursor.Close(ctx)

	var links []*domain.EntityLink
	for cursor.Next(ctx) {
		var doc entity.MongoEntityLinkDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode entity link: %w", err)
		}
		links = append(links, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return links, nil
}

// Update replaces the stored state of an existing link
func (r *MongoEntityLinkRepository) Update(ctx context.Context, link *domain.EntityLink) error {
	oid, err := primitive.ObjectIDFromHex(link.ID)
	if err != nil {
		return fmt.Errorf("%w: invalid link ID %q", domain.ErrValidation, link.ID)
	}

	doc := entity.MongoEntityLinkDocFromDomain(link)
	doc.ID = primitive.NilObjectID

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": doc})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: link for %s %s already exists in store %s",
				domain.ErrConflict, link.Kind, link.ExternalID, link.StoreID)
		}
		return fmt.Errorf("failed to update entity link: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("entity link not found: %s", link.ID)
	}

	return nil
}

// Touch records when a link's master entity was last pushed or resolved
func (r *MongoEntityLinkRepository) Touch(ctx context.Context, id string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: invalid link ID %q", domain.ErrValidation, id)
	}

	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"lastSyncedAt": at}})
	if err != nil {
		return fmt.Errorf("failed to touch entity link: %w", err)
	}
	return nil
}

func (r *MongoEntityLinkRepository) findOne(ctx context.Context, filter bson.M) (*domain.EntityLink, error) {
	var doc entity.MongoEntityLinkDoc
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entity link: %w", err)
	}

	return doc.ToDomain(), nil
}
