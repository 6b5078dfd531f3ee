package repository

import (
	"context"
	"fmt"
	"time"

	"storebridge-sync-core/internal/domain"
	"storebridge-sync-core/internal/infrastructure/repository/entity"
	"storebridge-sync-core/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSyncLogRepository implements the append-only sync log using MongoDB
type MongoSyncLogRepository struct {
	collection *mongo.Collection
}

// NewMongoSyncLogRepository creates a new MongoDB sync log repository
func NewMongoSyncLogRepository(db *mongo.Database) ports.SyncLogRepository {
	return &MongoSyncLogRepository{
		collection: db.Collection("sync_log"),
	}
}

// Append writes one log entry. Entries are never updated afterwards.
func (r *MongoSyncLogRepository) Append(ctx context.Context, entry *domain.SyncLogEntry) error {
	doc := entity.MongoSyncLogDocFromDomain(entry)
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	// Create query indexes if they don't exist
	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "storeId", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "storeId", Value: 1}, {Key: "inputId", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	_, _ = r.collection.Indexes().CreateMany(ctx, indexModels)

	_, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("%w: failed to append sync log entry: %v", domain.ErrPersistence, err)
	}

	return nil
}

// ListByStatus retrieves a store's entries with the given status, newest
// first.
func (r *MongoSyncLogRepository) ListByStatus(ctx context.Context, storeID string, status domain.SyncStatus, limit int64) ([]*domain.SyncLogEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}

	filter := bson.M{"storeId": storeID, "status": string(status)}
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync log entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*domain.SyncLogEntry
	for cursor.Next(ctx) {
		var doc entity.MongoSyncLogDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode sync log entry: %w", err)
		}
		entries = append(entries, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return entries, nil
}

// HasIncomplete reports whether the most recent materialization attempt for
// the given input ended Incomplete. Later attempts supersede earlier ones,
// so only the newest entry counts.
func (r *MongoSyncLogRepository) HasIncomplete(ctx context.Context, storeID, inputID string) (bool, error) {
	filter := bson.M{
		"storeId": storeID,
		"inputId": inputID,
		"method":  domain.MethodOrderMaterialize,
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var doc entity.MongoSyncLogDoc
	err := r.collection.FindOne(ctx, filter, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check sync log: %w", err)
	}

	return domain.SyncStatus(doc.Status) == domain.SyncStatusIncomplete, nil
}

// CountSince counts a store's entries with the given status recorded at or
// after the given time.
func (r *MongoSyncLogRepository) CountSince(ctx context.Context, storeID string, status domain.SyncStatus, since time.Time) (int64, error) {
	filter := bson.M{
		"storeId":   storeID,
		"status":    string(status),
		"createdAt": bson.M{"$gte": since},
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count sync log entries: %w", err)
	}
	return count, nil
}

// LastSuccessAt returns when the store last recorded a successful sync, or
// the zero time if it never has.
func (r *MongoSyncLogRepository) LastSuccessAt(ctx context.Context, storeID string) (time.Time, error) {
	filter := bson.M{"storeId": storeID, "status": string(domain.SyncStatusSuccess)}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var doc entity.MongoSyncLogDoc
	err := r.collection.FindOne(ctx, filter, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last success: %w", err)
	}

	return doc.CreatedAt, nil
}
