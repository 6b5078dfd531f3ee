package repository

import (
	"context"
	"fmt"
	"time"

	"storebridge-sync-core/internal/domain"
	"storebridge-sync-core/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Shared master records (customers, items, stock levels) are plain documents
// maintained alongside the sync service's own collections. They carry their
// bson tags on the domain types and are persisted directly.

// MongoCustomerRepository implements CustomerRepository using MongoDB
type MongoCustomerRepository struct {
	collection *mongo.Collection
}

// NewMongoCustomerRepository creates a new MongoDB customer repository
func NewMongoCustomerRepository(db *mongo.Database) ports.CustomerRepository {
	return &MongoCustomerRepository{
		collection: db.Collection("customers"),
	}
}

// Create inserts a new customer master record and returns its ID
func (r *MongoCustomerRepository) Create(ctx context.Context, customer *domain.Customer) (string, error) {
	c := *customer
	c.ID = ""
	now := time.Now()
	c.UpdatedAt = now
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}

	result, err := r.collection.InsertOne(ctx, &c)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create customer: %v", domain.ErrPersistence, err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted ID type %T", result.InsertedID)
	}
	return oid.Hex(), nil
}

// GetByID retrieves a customer by ID
func (r *MongoCustomerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var customer domain.Customer
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&customer)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return &customer, nil
}

// GetByEmail retrieves a customer by email address
func (r *MongoCustomerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	var customer domain.Customer
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&customer)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return &customer, nil
}

// Update replaces a customer's stored state
func (r *MongoCustomerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	oid, err := primitive.ObjectIDFromHex(customer.ID)
	if err != nil {
		return fmt.Errorf("%w: invalid customer ID %q", domain.ErrValidation, customer.ID)
	}

	c := *customer
	c.ID = ""
	c.UpdatedAt = time.Now()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": &c})
	if err != nil {
		return fmt.Errorf("%w: failed to update customer: %v", domain.ErrPersistence, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("customer not found: %s", customer.ID)
	}

	return nil
}

// MongoItemRepository implements ItemRepository using MongoDB
type MongoItemRepository struct {
	collection *mongo.Collection
}

// NewMongoItemRepository creates a new MongoDB item repository
func NewMongoItemRepository(db *mongo.Database) ports.ItemRepository {
	return &MongoItemRepository{
		collection: db.Collection("items"),
	}
}

// Create inserts a new item master record and returns its ID
func (r *MongoItemRepository) Create(ctx context.Context, item *domain.Item) (string, error) {
	i := *item
	i.ID = ""
	now := time.Now()
	i.UpdatedAt = now
	if i.CreatedAt.IsZero() {
		i.CreatedAt = now
	}

	// Create unique index on sku if it doesn't exist
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "sku", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, _ = r.collection.Indexes().CreateOne(ctx, indexModel)

	result, err := r.collection.InsertOne(ctx, &i)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%w: item with SKU %s already exists", domain.ErrConflict, item.SKU)
		}
		return "", fmt.Errorf("%w: failed to create item: %v", domain.ErrPersistence, err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted ID type %T", result.InsertedID)
	}
	return oid.Hex(), nil
}

// GetByID retrieves an item by ID
func (r *MongoItemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// GetBySKU retrieves an item by its SKU
func (r *MongoItemRepository) GetBySKU(ctx context.Context, sku string) (*domain.Item, error) {
	return r.findOne(ctx, bson.M{"sku": sku})
}

// GetByName retrieves an item by its display name
func (r *MongoItemRepository) GetByName(ctx context.Context, name string) (*domain.Item, error) {
	return r.findOne(ctx, bson.M{"name": name})
}

func (r *MongoItemRepository) findOne(ctx context.Context, filter bson.M) (*domain.Item, error) {
	var item domain.Item
	err := r.collection.FindOne(ctx, filter).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return &item, nil
}

// MongoStockRepository implements StockRepository using MongoDB
type MongoStockRepository struct {
	collection *mongo.Collection
}

// NewMongoStockRepository creates a new MongoDB stock level repository
func NewMongoStockRepository(db *mongo.Database) ports.StockRepository {
	return &MongoStockRepository{
		collection: db.Collection("stock_levels"),
	}
}

// GetLevel retrieves the stock level of one item in one warehouse
func (r *MongoStockRepository) GetLevel(ctx context.Context, itemID, warehouse string) (*domain.StockLevel, error) {
	var level domain.StockLevel
	filter := bson.M{"item_id": itemID, "warehouse": warehouse}

	err := r.collection.FindOne(ctx, filter).Decode(&level)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock level: %w", err)
	}

	return &level, nil
}

// SetLevel saves or updates the stock level of one item in one warehouse
func (r *MongoStockRepository) SetLevel(ctx context.Context, level *domain.StockLevel) error {
	l := *level
	l.UpdatedAt = time.Now()

	// Create unique index on (item_id, warehouse) if it doesn't exist
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "item_id", Value: 1}, {Key: "warehouse", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, _ = r.collection.Indexes().CreateOne(ctx, indexModel)

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"item_id": level.ItemID, "warehouse": level.Warehouse}

	_, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": &l}, opts)
	if err != nil {
		return fmt.Errorf("%w: failed to set stock level: %v", domain.ErrPersistence, err)
	}

	return nil
}
