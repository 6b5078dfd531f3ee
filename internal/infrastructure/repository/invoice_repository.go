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

// MongoInvoiceRepository implements InvoiceRepository using MongoDB
type MongoInvoiceRepository struct {
	collection *mongo.Collection
}

// NewMongoInvoiceRepository creates a new MongoDB invoice repository
func NewMongoInvoiceRepository(db *mongo.Database) ports.InvoiceRepository {
	return &MongoInvoiceRepository{
		collection: db.Collection("invoices"),
	}
}

// Create inserts a new invoice and returns its ID. One invoice exists per
// source order.
func (r *MongoInvoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) (string, error) {
	doc := entity.MongoInvoiceDocFromDomain(invoice)
	now := time.Now()
	doc.UpdatedAt = now
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}

	// Create unique index on (storeId, externalOrderId) if it doesn't exist
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "storeId", Value: 1}, {Key: "externalOrderId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, _ = r.collection.Indexes().CreateOne(ctx, indexModel)

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%w: invoice for order %s already exists in store %s",
				domain.ErrConflict, invoice.ExternalOrderID, invoice.StoreID)
		}
		return "", fmt.Errorf("%w: failed to create invoice: %v", domain.ErrPersistence, err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted ID type %T", result.InsertedID)
	}
	return oid.Hex(), nil
}

// GetByExternalOrderID retrieves the invoice derived from one external order
func (r *MongoInvoiceRepository) GetByExternalOrderID(ctx context.Context, storeID, externalOrderID string) (*domain.Invoice, error) {
	var doc entity.MongoInvoiceDoc
	filter := bson.M{"storeId": storeID, "externalOrderId": externalOrderID}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	return doc.ToDomain(), nil
}

// Update replaces an invoice's stored state
func (r *MongoInvoiceRepository) Update(ctx context.Context, invoice *domain.Invoice) error {
	oid, err := primitive.ObjectIDFromHex(invoice.ID)
	if err != nil {
		return fmt.Errorf("%w: invalid invoice ID %q", domain.ErrValidation, invoice.ID)
	}

	doc := entity.MongoInvoiceDocFromDomain(invoice)
	doc.ID = primitive.NilObjectID
	doc.UpdatedAt = time.Now()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": doc})
	if err != nil {
		return fmt.Errorf("%w: failed to update invoice: %v", domain.ErrPersistence, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("invoice not found: %s", invoice.ID)
	}

	return nil
}

// CountByStore returns how many invoices have been derived for a store
func (r *MongoInvoiceRepository) CountByStore(ctx context.Context, storeID string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"storeId": storeID})
	if err != nil {
		return 0, fmt.Errorf("failed to count invoices: %w", err)
	}
	return count, nil
}
