package session

import (
	"context"
	"errors"

	"minilibrary-session-svc/src/clients"
	"minilibrary-session-svc/src/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository is the Session Store contract consumed by the lifecycle
// service. FindOpenSession returns (nil, nil) when the user has no
// non-terminal session.
type Repository interface {
	FindOpenSession(ctx context.Context, userID string) (*models.ReadingSession, error)
	FindByUserAndBook(ctx context.Context, userID string, bookID primitive.ObjectID) ([]*models.ReadingSession, error)
	Save(ctx context.Context, session *models.ReadingSession) (*models.ReadingSession, error)
	DeleteByUserAndBook(ctx context.Context, userID string, bookID primitive.ObjectID) error
}

type repository struct {
	collection *mongo.Collection
}

func NewSessionRepository(db *clients.MongoDB, collectionName string) Repository {
	collection := db.Database.Collection(collectionName)
	return &repository{collection: collection}
}

func (r *repository) FindOpenSession(ctx context.Context, userID string) (*models.ReadingSession, error) {
	filter := bson.M{
		"user_id": userID,
		"status":  bson.M{"$in": models.OpenStatuses},
	}

	// Most recent start wins when the store holds more than one open
	// session (should not happen, but the tie-break keeps it deterministic).
	opts := options.FindOne().SetSort(bson.M{"start_time": -1})

	var session models.ReadingSession
	err := r.collection.FindOne(ctx, filter, opts).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to find open session")
		return nil, models.ErrDatabaseQuery
	}

	return &session, nil
}

func (r *repository) FindByUserAndBook(ctx context.Context, userID string, bookID primitive.ObjectID) ([]*models.ReadingSession, error) {
	filter := bson.M{
		"user_id": userID,
		"book_id": bookID,
	}

	opts := options.Find().SetSort(bson.M{"start_time": -1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to find sessions by book")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	var sessions []*models.ReadingSession
	for cursor.Next(ctx) {
		var session models.ReadingSession
		if err := cursor.Decode(&session); err != nil {
			logrus.WithError(err).Error("Failed to decode reading session")
			continue
		}
		sessions = append(sessions, &session)
	}

	if err := cursor.Err(); err != nil {
		logrus.WithError(err).Error("Cursor error")
		return nil, models.ErrDatabaseQuery
	}

	return sessions, nil
}

func (r *repository) Save(ctx context.Context, session *models.ReadingSession) (*models.ReadingSession, error) {
	if session.ID.IsZero() {
		session.ID = primitive.NewObjectID()
		if _, err := r.collection.InsertOne(ctx, session); err != nil {
			logrus.WithError(err).WithField("user_id", session.UserID).Error("Failed to insert reading session")
			return nil, models.ErrDatabaseInsert
		}
		return session, nil
	}

	filter := bson.M{"_id": session.ID}
	if _, err := r.collection.ReplaceOne(ctx, filter, session); err != nil {
		logrus.WithError(err).WithField("session_id", session.ID.Hex()).Error("Failed to update reading session")
		return nil, models.ErrDatabaseUpdate
	}

	return session, nil
}

func (r *repository) DeleteByUserAndBook(ctx context.Context, userID string, bookID primitive.ObjectID) error {
	filter := bson.M{
		"user_id": userID,
		"book_id": bookID,
	}

	result, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"book_id": bookID.Hex(),
		}).Error("Failed to delete sessions by book")
		return models.ErrDatabaseDelete
	}

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"book_id": bookID.Hex(),
		"deleted": result.DeletedCount,
	}).Debug("Deleted reading sessions for book")

	return nil
}
