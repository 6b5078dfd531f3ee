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

// MongoOrderRepository implements OrderRepository using MongoDB. The unique
// index on (storeId, externalId) is what makes order materialization
// idempotent under concurrent delivery: the second writer loses the race and
// gets domain.ErrConflict.
type MongoOrderRepository struct {
	collection *mongo.Collection
}

// NewMongoOrderRepository creates a new MongoDB order repository
func NewMongoOrderRepository(db *mongo.Database) ports.OrderRepository {
	return &MongoOrderRepository{
		collection: db.Collection("orders"),
	}
}

// Create inserts a new order and returns its ID
func (r *MongoOrderRepository) Create(ctx context.Context, order *domain.Order) (string, error) {
	doc := entity.MongoOrderDocFromDomain(order)
	now := time.Now()
	doc.UpdatedAt = now
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}

	// Create unique index on (storeId, externalId) if it doesn't exist
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "storeId", Value: 1}, {Key: "externalId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, _ = r.collection.Indexes().CreateOne(ctx, indexModel)

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%w: order %s already exists in store %s",
				domain.ErrConflict, order.ExternalID, order.StoreID)
		}
		return "", fmt.Errorf("%w: failed to create order: %v", domain.ErrPersistence, err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted ID type %T", result.InsertedID)
	}
	return oid.Hex(), nil
}

// GetByID retrieves an order by its ID
func (r *MongoOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// GetByExternalID retrieves an order by its store-scoped external identifier
func (r *MongoOrderRepository) GetByExternalID(ctx context.Context, storeID, externalID string) (*domain.Order, error) {
	return r.findOne(ctx, bson.M{"storeId": storeID, "externalId": externalID})
}

// Update replaces an order's stored state. The previously read UpdatedAt is
// the optimistic concurrency token: if another writer got there first, the
// filter matches nothing and the caller gets domain.ErrConflict to re-read
// and retry.
func (r *MongoOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	oid, err := primitive.ObjectIDFromHex(order.ID)
	if err != nil {
		return fmt.Errorf("%w: invalid order ID %q", domain.ErrValidation, order.ID)
	}

	expected := order.UpdatedAt
	doc := entity.MongoOrderDocFromDomain(order)
	doc.ID = primitive.NilObjectID
	doc.UpdatedAt = time.Now()

	filter := bson.M{"_id": oid, "updatedAt": expected}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": doc})
	if err != nil {
		return fmt.Errorf("%w: failed to update order: %v", domain.ErrPersistence, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: order %s was modified concurrently", domain.ErrConflict, order.ID)
	}

	return nil
}

// ListByStore retrieves the most recently materialized orders of one store
func (r *MongoOrderRepository) ListByStore(ctx context.Context, storeID string, limit int64) ([]*domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, bson.M{"storeId": storeID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []*domain.Order
	for cursor.Next(ctx) {
		var doc entity.MongoOrderDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode order: %w", err)
		}
		orders = append(orders, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return orders, nil
}

// CountByStore returns how many orders have been materialized for a store
func (r *MongoOrderRepository) CountByStore(ctx context.Context, storeID string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"storeId": storeID})
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}

// CountByStatus returns how many of a store's orders are in the given state
func (r *MongoOrderRepository) CountByStatus(ctx context.Context, storeID string, status domain.OrderStatus) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"storeId": storeID, "status": string(status)})
	if err != nil {
		return 0, fmt.Errorf("failed to count orders by status: %w", err)
	}
	return count, nil
}

func (r *MongoOrderRepository) findOne(ctx context.Context, filter bson.M) (*domain.Order, error) {
	var doc entity.MongoOrderDoc
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return doc.ToDomain(), nil
}
