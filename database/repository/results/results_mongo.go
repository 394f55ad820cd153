package resultsRepo

import (
	"context"
	"fmt"
	"time"

	"wayfarer/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "search_results"

// MongoResultsRepo implements ResultsRepository using MongoDB.
type MongoResultsRepo struct {
	coll *mongo.Collection
}

func NewMongoResultsRepo(db *mongo.Database) *MongoResultsRepo {
	return newRepo(db.Collection(collectionName))
}

func newRepo(coll *mongo.Collection) *MongoResultsRepo {
	return &MongoResultsRepo{coll: coll}
}

func (r *MongoResultsRepo) Upsert(ctx context.Context, record models.SearchRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	filter := bson.M{"sessionId": record.SessionID, "phase": record.Phase}
	_, err := r.coll.ReplaceOne(ctx, filter, record, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to archive phase %d of session %s: %w", record.Phase, record.SessionID, err)
	}
	return nil
}

func (r *MongoResultsRepo) ListBySession(ctx context.Context, sessionID string) ([]models.SearchRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "phase", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"sessionId": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list results for session %s: %w", sessionID, err)
	}
	defer cursor.Close(ctx)

	records := []models.SearchRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}
	return records, nil
}
