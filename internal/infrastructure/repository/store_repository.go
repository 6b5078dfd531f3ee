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

// MongoStoreRepository implements StoreRepository using MongoDB
type MongoStoreRepository struct {
	collection *mongo.Collection
}

// NewMongoStoreRepository creates a new MongoDB store repository
func NewMongoStoreRepository(db *mongo.Database) ports.StoreRepository {
	return &MongoStoreRepository{
		collection: db.Collection("stores"),
	}
}

// Create inserts a new store. The store domain is unique across tenants.
func (r *MongoStoreRepository) Create(ctx context.Context, store *domain.Store) (string, error) {
	doc := entity.MongoStoreDocFromDomain(store)
	doc.UpdatedAt = time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	// Create unique index on domain if it doesn't exist
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "domain", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, _ = r.collection.Indexes().CreateOne(ctx, indexModel)

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%w: store with domain %s already exists", domain.ErrConflict, store.Domain)
		}
		return "", fmt.Errorf("failed to create store: %w", err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted ID type %T", result.InsertedID)
	}
	return oid.Hex(), nil
}

// GetByID retrieves a store by its ID
func (r *MongoStoreRepository) GetByID(ctx context.Context, id string) (*domain.Store, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var doc entity.MongoStoreDoc
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get store: %w", err)
	}

	return doc.ToDomain(), nil
}

// GetByDomain retrieves a store by its normalized storefront domain
func (r *MongoStoreRepository) GetByDomain(ctx context.Context, storeDomain string) (*domain.Store, error) {
	var doc entity.MongoStoreDoc
	err := r.collection.FindOne(ctx, bson.M{"domain": storeDomain}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get store: %w", err)
	}

	return doc.ToDomain(), nil
}

// Update replaces the stored state of an existing store
func (r *MongoStoreRepository) Update(ctx context.Context, store *domain.Store) error {
	oid, err := primitive.ObjectIDFromHex(store.ID)
	if err != nil {
		return fmt.Errorf("%w: invalid store ID %q", domain.ErrValidation, store.ID)
	}

	doc := entity.MongoStoreDocFromDomain(store)
	doc.ID = primitive.NilObjectID
	doc.UpdatedAt = time.Now()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": doc})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: store with domain %s already exists", domain.ErrConflict, store.Domain)
		}
		return fmt.Errorf("failed to update store: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", domain.ErrUnknownStore, store.ID)
	}

	return nil
}

// List retrieves all stores
func (r *MongoStoreRepository) List(ctx context.Context) ([]*domain.Store, error) {
	return r.list(ctx, bson.M{})
}

// ListEnabled retrieves all stores currently enabled for syncing
func (r *MongoStoreRepository) ListEnabled(ctx context.Context) ([]*domain.Store, error) {
	return r.list(ctx, bson.M{"enabled": true})
}

func (r *MongoStoreRepository) list(ctx context.Context, filter bson.M) ([]*domain.Store, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	defer cursor.Close(ctx)

	var stores []*domain.Store
	for cursor.Next(ctx) {
		var doc entity.MongoStoreDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode store: %w", err)
		}
		stores = append(stores, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return stores, nil
}
