package book

import (
	"context"
	"time"

	"minilibrary-session-svc/src/internal/models"

	"github.com/sirupsen/logrus"
)

// ProgressService applies a new page position to a book. Completion tracks
// the page marker in both directions: moving it back below the page count
// un-completes a previously finished book.
type ProgressService interface {
	UpdateProgress(ctx context.Context, book *models.Book, currentPage int) (*models.Book, error)
}

type progressService struct {
	books Repository
}

func NewProgressService(books Repository) ProgressService {
	return &progressService{books: books}
}

func (s *progressService) UpdateProgress(ctx context.Context, book *models.Book, currentPage int) (*models.Book, error) {
	if currentPage < 0 {
		return nil, models.ErrNegativePage
	}
	if book.PageCount != nil && currentPage > *book.PageCount {
		return nil, models.ErrPageBeyondTotal
	}

	book.CurrentPage = &currentPage

	// Completion is only derived when the total is known; otherwise the
	// flag is left untouched.
	if book.PageCount != nil {
		book.Completed = currentPage >= *book.PageCount
	}

	book.UpdatedAt = time.Now()

	logrus.WithFields(logrus.Fields{
		"book_id":      book.ID.Hex(),
		"current_page": currentPage,
		"completed":    book.Completed,
	}).Debug("Updating book progress")

	return s.books.Save(ctx, book)
}
