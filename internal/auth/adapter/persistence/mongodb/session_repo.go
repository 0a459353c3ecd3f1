package mongodb

import (
	"context"
	"errors"
	"time"

	"kinto-admin/internal/auth/domain/model"
	apperrors "kinto-admin/internal/shared/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const sessionsCollection = "console_sessions"

// MongoSessionRepository implements the SessionRepository interface using MongoDB
type MongoSessionRepository struct {
	db       *mongo.Database
	sessions *mongo.Collection
}

// NewMongoSessionRepository creates a new MongoDB session repository
func NewMongoSessionRepository(db *mongo.Database) (*MongoSessionRepository, error) {
	repo := &MongoSessionRepository{
		db:       db,
		sessions: db.Collection(sessionsCollection),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Lookups of every session of a browser
	clientIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "client_id", Value: 1}},
	}
	if _, err := repo.sessions.Indexes().CreateOne(ctx, clientIndex); err != nil {
		return nil, err
	}

	// TTL index, mongo drops sessions once expires_at passes
	expiresAtIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}
	if _, err := repo.sessions.Indexes().CreateOne(ctx, expiresAtIndex); err != nil {
		return nil, err
	}

	return repo, nil
}

// Save creates or replaces a session
func (r *MongoSessionRepository) Save(ctx context.Context, session *model.Session) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if session.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	session.UpdatedAt = time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = session.UpdatedAt
	}

	_, err := r.sessions.ReplaceOne(ctx, bson.M{"_id": session.ID}, session, options.Replace().SetUpsert(true))
	if err != nil {
		return apperrors.NewInfrastructureError("failed to save session").WithCause(err)
	}
	return nil
}

// Get retrieves a session by ID
func (r *MongoSessionRepository) Get(ctx context.Context, id string) (*model.Session, error) {
	if id == "" {
		return nil, apperrors.ErrSessionNotFound
	}

	var session model.Session
	err := r.sessions.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// Delete deletes a session by ID
func (r *MongoSessionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.sessions.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return apperrors.ErrSessionNotFound
	}
	return nil
}

// ListActive returns sessions whose expiry is still ahead, most recent first
func (r *MongoSessionRepository) ListActive(ctx context.Context) ([]*model.Session, error) {
	filter := bson.M{"expires_at": bson.M{"$gt": time.Now()}}
	cursor, err := r.sessions.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []*model.Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}
