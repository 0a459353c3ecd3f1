package mongodb

import (
	"context"
	"errors"
	"time"

	"kinto-admin/internal/admin/domain/model"
	apperrors "kinto-admin/internal/shared/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const historyCollection = "server_history"

type historyDocument struct {
	ClientID  string    `bson:"_id"`
	Servers   []string  `bson:"servers"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoHistoryRepository stores the servers each browser connected to
type MongoHistoryRepository struct {
	history *mongo.Collection
	limit   int
}

// NewMongoHistoryRepository creates a new MongoDB history repository
func NewMongoHistoryRepository(db *mongo.Database, limit int) (*MongoHistoryRepository, error) {
	repo := &MongoHistoryRepository{
		history: db.Collection(historyCollection),
		limit:   limit,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	updatedIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "updated_at", Value: -1}},
	}
	if _, err := repo.history.Indexes().CreateOne(ctx, updatedIndex); err != nil {
		return nil, err
	}

	return repo, nil
}

// Get returns the history of a client, most recent first
func (r *MongoHistoryRepository) Get(ctx context.Context, clientID string) ([]string, error) {
	var doc historyDocument
	err := r.history.FindOne(ctx, bson.M{"_id": clientID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []string{}, nil
		}
		return nil, apperrors.NewInfrastructureError("failed to load server history").WithCause(err)
	}
	if doc.Servers == nil {
		return []string{}, nil
	}
	return doc.Servers, nil
}

// Add moves server to the front of the client history
func (r *MongoHistoryRepository) Add(ctx context.Context, clientID, server string) ([]string, error) {
	current, err := r.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	doc := historyDocument{
		ClientID:  clientID,
		Servers:   model.PrependServer(current, server, r.limit),
		UpdatedAt: time.Now(),
	}

	_, err = r.history.ReplaceOne(ctx, bson.M{"_id": clientID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return nil, apperrors.NewInfrastructureError("failed to save server history").WithCause(err)
	}
	return doc.Servers, nil
}

// Clear forgets every server of a client
func (r *MongoHistoryRepository) Clear(ctx context.Context, clientID string) error {
	if _, err := r.history.DeleteOne(ctx, bson.M{"_id": clientID}); err != nil {
		return apperrors.NewInfrastructureError("failed to clear server history").WithCause(err)
	}
	return nil
}
