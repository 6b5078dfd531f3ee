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

// MongoFulfillmentRepository implements FulfillmentRepository using MongoDB
type MongoFulfillmentRepository struct {
	collection *mongo.Collection
}

// NewMongoFulfillmentRepository creates a new MongoDB fulfillment repository
func NewMongoFulfillmentRepository(db *mongo.Database) ports.FulfillmentRepository {
	return &MongoFulfillmentRepository{
		collection: db.Collection("fulfillments"),
	}
}

// Create inserts a new fulfillment and returns its ID. Redelivered
// fulfillment events dedupe on (storeId, externalFulfillmentId).
func (r *MongoFulfillmentRepository) Create(ctx context.Context, fulfillment *domain.Fulfillment) (string, error) {
	doc := entity.MongoFulfillmentDocFromDomain(fulfillment)
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	// Create unique index on (storeId, externalFulfillmentId) if it doesn't exist
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "storeId", Value: 1}, {Key: "externalFulfillmentId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, _ = r.collection.Indexes().CreateOne(ctx, indexModel)

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%w: fulfillment %s already exists in store %s",
				domain.ErrConflict, fulfillment.ExternalFulfillmentID, fulfillment.StoreID)
		}
		return "", fmt.Errorf("%w: failed to create fulfillment: %v", domain.ErrPersistence, err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted ID type %T", result.InsertedID)
	}
	return oid.Hex(), nil
}

// GetByExternalFulfillmentID retrieves a fulfillment by its store-scoped
// external identifier
func (r *MongoFulfillmentRepository) GetByExternalFulfillmentID(ctx context.Context, storeID, externalFulfillmentID string) (*domain.Fulfillment, error) {
	var doc entity.MongoFulfillmentDoc
	filter := bson.M{"storeId": storeID, "externalFulfillmentId": externalFulfillmentID}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fulfillment: %w", err)
	}

	return doc.ToDomain(), nil
}

// ListByOrder retrieves all fulfillments derived from one order
func (r *MongoFulfillmentRepository) ListByOrder(ctx context.Context, orderID string) ([]*domain.Fulfillment, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"orderId": orderID})
	if err != nil {
		return nil, fmt.Errorf("failed to list fulfillments: %w", err)
	}
	defer cursor.Close(ctx)

	var fulfillments []*domain.Fulfillment
	for cursor.Next(ctx) {
		var doc entity.MongoFulfillmentDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode fulfillment: %w", err)
		}
		fulfillments = append(fulfillments, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return fulfillments, nil
}

// Update replaces a fulfillment's stored state
func (r *MongoFulfillmentRepository) Update(ctx context.Context, fulfillment *domain.Fulfillment) error {
	oid, err := primitive.ObjectIDFromHex(fulfillment.ID)
	if err != nil {
		return fmt.Errorf("%w: invalid fulfillment ID %q", domain.ErrValidation, fulfillment.ID)
	}

	doc := entity.MongoFulfillmentDocFromDomain(fulfillment)
	doc.ID = primitive.NilObjectID

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": doc})
	if err != nil {
		return fmt.Errorf("%w: failed to update fulfillment: %v", domain.ErrPersistence, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("fulfillment not found: %s", fulfillment.ID)
	}

	return nil
}
