package store

import (
	"context"
	"fmt"

	"github.com/clusterpass/checkin-services/internal/checkinsvc/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const logCollection = "checkin_logs"

// LogStore is the append-only audit sink, backed by MongoDB.
type LogStore struct {
	coll *mongo.Collection
}

func NewLogStore(db *mongo.Database) *LogStore {
	return &LogStore{coll: db.Collection(logCollection)}
}

// EnsureIndexes creates the lookup index used by RecentLogsByUser.
func (s *LogStore) EnsureIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "created_at", Value: -1},
		},
	}

	_, err := s.coll.Indexes().CreateOne(ctx, indexModel)
	if err != nil {
		return fmt.Errorf("failed to create checkin_logs index: %w", err)
	}

	return nil
}

// AppendLog inserts one transaction record. Entries are never updated or
// deleted.
func (s *LogStore) AppendLog(ctx context.Context, entry *models.AuditLog) error {
	_, err := s.coll.InsertOne(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to append audit log: %w", err)
	}

	return nil
}

// RecentLogsByUser lists a user's transactions, newest first.
func (s *LogStore) RecentLogsByUser(ctx context.Context, userID int64, limit int64) ([]*models.AuditLog, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*models.AuditLog
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode audit logs: %w", err)
	}

	return entries, nil
}
