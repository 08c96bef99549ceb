package book

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

// Repository is the Book Store: every lookup is owner-scoped, a book
// belonging to another user is indistinguishable from a missing one.
type Repository interface {
	FindOwned(ctx context.Context, bookID primitive.ObjectID, userID string) (*models.Book, error)
	FindAllByUser(ctx context.Context, userID string, page, limit int) ([]*models.Book, int64, error)
	Save(ctx context.Context, book *models.Book) (*models.Book, error)
	Delete(ctx context.Context, bookID primitive.ObjectID, userID string) error
}

type repository struct {
	collection *mongo.Collection
}

func NewBookRepository(db *clients.MongoDB, collectionName string) Repository {
	collection := db.Database.Collection(collectionName)
	return &repository{collection: collection}
}

func (r *repository) FindOwned(ctx context.Context, bookID primitive.ObjectID, userID string) (*models.Book, error) {
	filter := bson.M{
		"_id":     bookID,
		"user_id": userID,
	}

	var book models.Book
	err := r.collection.FindOne(ctx, filter).Decode(&book)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrBookNotFound
		}
		logrus.WithError(err).WithField("book_id", bookID.Hex()).Error("Failed to find book")
		return nil, models.ErrDatabaseQuery
	}

	return &book, nil
}

func (r *repository) FindAllByUser(ctx context.Context, userID string, page, limit int) ([]*models.Book, int64, error) {
	filter := bson.M{"user_id": userID}

	totalCount, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		logrus.WithError(err).Error("Failed to count books")
		return nil, 0, models.ErrDatabaseQuery
	}

	skip := (page - 1) * limit

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(int64(skip)).
		SetSort(bson.M{"created_at": -1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		logrus.WithError(err).Error("Failed to find books")
		return nil, 0, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	var books []*models.Book
	for cursor.Next(ctx) {
		var book models.Book
		if err := cursor.Decode(&book); err != nil {
			logrus.WithError(err).Error("Failed to decode book")
			continue
		}
		books = append(books, &book)
	}

	if err := cursor.Err(); err != nil {
		logrus.WithError(err).Error("Cursor error")
		return nil, 0, models.ErrDatabaseQuery
	}

	return books, totalCount, nil
}

func (r *repository) Save(ctx context.Context, book *models.Book) (*models.Book, error) {
	if book.ID.IsZero() {
		book.ID = primitive.NewObjectID()
		if _, err := r.collection.InsertOne(ctx, book); err != nil {
			logrus.WithError(err).WithField("user_id", book.UserID).Error("Failed to insert book")
			return nil, models.ErrDatabaseInsert
		}
		return book, nil
	}

	filter := bson.M{"_id": book.ID}
	if _, err := r.collection.ReplaceOne(ctx, filter, book); err != nil {
		logrus.WithError(err).WithField("book_id", book.ID.Hex()).Error("Failed to update book")
		return nil, models.ErrDatabaseUpdate
	}

	return book, nil
}

func (r *repository) Delete(ctx context.Context, bookID primitive.ObjectID, userID string) error {
	filter := bson.M{
		"_id":     bookID,
		"user_id": userID,
	}

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		logrus.WithError(err).WithField("book_id", bookID.Hex()).Error("Failed to delete book")
		return models.ErrDatabaseDelete
	}

	if result.DeletedCount == 0 {
		return models.ErrBookNotFound
	}

	return nil
}
