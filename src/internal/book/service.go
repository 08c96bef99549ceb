package book

import (
	"context"
	"math"
	"time"

	"minilibrary-session-svc/src/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionStore is the slice of the session collaborator the book surface
// consumes: the goal-progress read and the pre-delete cascade guard. The
// session lifecycle service satisfies it, so the cascade runs inside the
// same per-user critical section as every other session mutation.
type SessionStore interface {
	GetSessionsByBook(ctx context.Context, userID string, bookID primitive.ObjectID) ([]*models.ReadingSession, error)
	DeleteSessionsByBook(ctx context.Context, userID string, bookID primitive.ObjectID) error
}

type Service interface {
	CreateBook(ctx context.Context, userID string, req *CreateBookRequest) (*models.Book, error)
	GetBook(ctx context.Context, userID string, bookID primitive.ObjectID) (*models.Book, error)
	ListBooks(ctx context.Context, userID string, page, limit int) (*ListBooksResponse, error)
	UpdateProgress(ctx context.Context, userID string, bookID primitive.ObjectID, currentPage int) (*models.Book, error)
	UpdateStatus(ctx context.Context, userID string, bookID primitive.ObjectID, completed bool) (*models.Book, error)
	SetGoal(ctx context.Context, userID string, bookID primitive.ObjectID, goalType *string, goalPages *int) (*models.Book, error)
	GoalProgress(ctx context.Context, userID string, bookID primitive.ObjectID) (*int, error)
	DeleteBook(ctx context.Context, userID string, bookID primitive.ObjectID) error
}

type CreateBookRequest struct {
	ISBN        string `json:"isbn"`
	Title       string `json:"title" binding:"required"`
	Author      string `json:"author"`
	PublishDate string `json:"publishDate"`
	CoverURL    string `json:"coverUrl"`
	Categories  string `json:"categories"`
	PageCount   *int   `json:"pageCount"`
}

type ListBooksResponse struct {
	Books      []*models.Book `json:"books"`
	TotalCount int64          `json:"totalCount"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"totalPages"`
}

type bookService struct {
	books    Repository
	sessions SessionStore
	progress ProgressService
}

func NewBookService(books Repository, sessions SessionStore, progress ProgressService) Service {
	return &bookService{
		books:    books,
		sessions: sessions,
		progress: progress,
	}
}

func (s *bookService) CreateBook(ctx context.Context, userID string, req *CreateBookRequest) (*models.Book, error) {
	now := time.Now()
	zero := 0
	startDate := now

	book := &models.Book{
		UserID:      userID,
		ISBN:        req.ISBN,
		Title:       req.Title,
		Author:      req.Author,
		PublishDate: req.PublishDate,
		CoverURL:    req.CoverURL,
		Categories:  req.Categories,
		PageCount:   req.PageCount,
		CurrentPage: &zero,
		StartDate:   &startDate,
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"title":   req.Title,
	}).Info("Creating book")

	return s.books.Save(ctx, book)
}

func (s *bookService) GetBook(ctx context.Context, userID string, bookID primitive.ObjectID) (*models.Book, error) {
	return s.books.FindOwned(ctx, bookID, userID)
}

func (s *bookService) ListBooks(ctx context.Context, userID string, page, limit int) (*ListBooksResponse, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	books, totalCount, err := s.books.FindAllByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}

	if books == nil {
		books = []*models.Book{}
	}

	totalPages := int(math.Ceil(float64(totalCount) / float64(limit)))

	return &ListBooksResponse{
		Books:      books,
		TotalCount: totalCount,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

func (s *bookService) UpdateProgress(ctx context.Context, userID string, bookID primitive.ObjectID, currentPage int) (*models.Book, error) {
	book, err := s.books.FindOwned(ctx, bookID, userID)
	if err != nil {
		return nil, err
	}
	return s.progress.UpdateProgress(ctx, book, currentPage)
}

func (s *bookService) UpdateStatus(ctx context.Context, userID string, bookID primitive.ObjectID, completed bool) (*models.Book, error) {
	book, err := s.books.FindOwned(ctx, bookID, userID)
	if err != nil {
		return nil, err
	}

	book.Completed = completed
	book.UpdatedAt = time.Now()

	return s.books.Save(ctx, book)
}

func (s *bookService) SetGoal(ctx context.Context, userID string, bookID primitive.ObjectID, goalType *string, goalPages *int) (*models.Book, error) {
	if goalType != nil {
		if *goalType != models.GoalWeekly && *goalType != models.GoalMonthly {
			return nil, models.ErrInvalidGoalType
		}
		if goalPages == nil || *goalPages <= 0 {
			return nil, models.ErrInvalidGoalPages
		}
	}

	book, err := s.books.FindOwned(ctx, bookID, userID)
	if err != nil {
		return nil, err
	}

	// A nil type clears the goal entirely.
	if goalType == nil {
		book.GoalType = nil
		book.GoalPages = nil
	} else {
		book.GoalType = goalType
		book.GoalPages = goalPages
	}
	book.UpdatedAt = time.Now()

	return s.books.Save(ctx, book)
}

func (s *bookService) GoalProgress(ctx context.Context, userID string, bookID primitive.ObjectID) (*int, error) {
	book, err := s.books.FindOwned(ctx, bookID, userID)
	if err != nil {
		return nil, err
	}

	if !book.HasGoal() {
		return nil, nil
	}

	sessions, err := s.sessions.GetSessionsByBook(ctx, userID, book.ID)
	if err != nil {
		return nil, err
	}

	return CalculateGoalProgress(book, sessions, time.Now()), nil
}

func (s *bookService) DeleteBook(ctx context.Context, userID string, bookID primitive.ObjectID) error {
	book, err := s.books.FindOwned(ctx, bookID, userID)
	if err != nil {
		return err
	}

	// Sessions go first so a failed delete never leaves orphans.
	if err := s.sessions.DeleteSessionsByBook(ctx, userID, book.ID); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"book_id": bookID.Hex(),
	}).Info("Deleting book and its reading sessions")

	return s.books.Delete(ctx, book.ID, userID)
}
