package session

import (
	"context"
	"time"

	"minilibrary-session-svc/src/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BookStore is the slice of the book collaborator the lifecycle service
// consumes: owner-scoped lookup only.
type BookStore interface {
	FindOwned(ctx context.Context, bookID primitive.ObjectID, userID string) (*models.Book, error)
}

// ProgressUpdater applies a session's reported end page to the owning book.
type ProgressUpdater interface {
	UpdateProgress(ctx context.Context, book *models.Book, currentPage int) (*models.Book, error)
}

// Service is the reading-session lifecycle state machine. Every mutating
// operation runs inside a per-user critical section and captures a single
// timestamp it reuses throughout.
type Service interface {
	StartSession(ctx context.Context, userID string, bookID primitive.ObjectID) (*models.ReadingSession, error)
	StopSession(ctx context.Context, userID string, endTime *time.Time, endPage *int) (*models.ReadingSession, error)
	PauseSession(ctx context.Context, userID string) (*models.ReadingSession, error)
	ResumeSession(ctx context.Context, userID string) (*models.ReadingSession, error)
	ExcludeTime(ctx context.Context, userID string, millis int64) (*models.ReadingSession, error)
	GetActiveSession(ctx context.Context, userID string) (*models.ReadingSession, error)
	GetSessionsByBook(ctx context.Context, userID string, bookID primitive.ObjectID) ([]*models.ReadingSession, error)
	DeleteSessionsByBook(ctx context.Context, userID string, bookID primitive.ObjectID) error
}

type sessionService struct {
	sessions Repository
	books    BookStore
	progress ProgressUpdater
	locks    *userLocks
	now      func() time.Time
}

func NewSessionService(sessions Repository, books BookStore, progress ProgressUpdater) Service {
	return &sessionService{
		sessions: sessions,
		books:    books,
		progress: progress,
		locks:    newUserLocks(),
		now:      time.Now,
	}
}

func (s *sessionService) StartSession(ctx context.Context, userID string, bookID primitive.ObjectID) (*models.ReadingSession, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	return s.startLocked(ctx, userID, bookID)
}

func (s *sessionService) startLocked(ctx context.Context, userID string, bookID primitive.ObjectID) (*models.ReadingSession, error) {
	now := s.now()

	existing, err := s.sessions.FindOpenSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		// Already reading this book: resume if paused, otherwise the
		// call is idempotent and returns the running session.
		if existing.BookID == bookID {
			if existing.Status == models.SessionPaused {
				return s.resumeLocked(ctx, userID)
			}
			return existing, nil
		}

		// Switching books ends the previous session with no page progress.
		if _, err := s.stopLocked(ctx, userID, &now, nil); err != nil {
			return nil, err
		}

		logrus.WithFields(logrus.Fields{
			"user_id":       userID,
			"previous_book": existing.BookID.Hex(),
			"next_book":     bookID.Hex(),
		}).Info("Auto-stopped previous session on book switch")
	}

	book, err := s.books.FindOwned(ctx, bookID, userID)
	if err != nil {
		return nil, err
	}

	session := &models.ReadingSession{
		UserID:    userID,
		BookID:    book.ID,
		Status:    models.SessionActive,
		StartTime: now,
	}
	paused := int64(0)
	session.PausedMillis = &paused

	return s.sessions.Save(ctx, session)
}

func (s *sessionService) StopSession(ctx context.Context, userID string, endTime *time.Time, endPage *int) (*models.ReadingSession, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	return s.stopLocked(ctx, userID, endTime, endPage)
}

func (s *sessionService) stopLocked(ctx context.Context, userID string, endTime *time.Time, endPage *int) (*models.ReadingSession, error) {
	session, err := s.sessions.FindOpenSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, models.ErrSessionNotFound
	}

	effectiveEnd := s.now()
	if endTime != nil {
		effectiveEnd = *endTime
	}

	// A pending pause is folded into the accumulator before completion.
	// Negative gaps (clock skew) contribute nothing.
	if session.Status == models.SessionPaused && session.PausedAt != nil {
		session.AddPausedMillis(effectiveEnd.Sub(*session.PausedAt).Milliseconds())
	}

	session.PausedAt = nil
	session.EndTime = &effectiveEnd
	session.EndPage = endPage
	session.Status = models.SessionCompleted

	if endPage != nil {
		book, err := s.books.FindOwned(ctx, session.BookID, userID)
		if err != nil {
			return nil, err
		}

		pagesRead := *endPage - book.CurrentPageOrZero()
		if pagesRead < 0 {
			pagesRead = 0
		}
		session.PagesRead = &pagesRead

		if _, err := s.progress.UpdateProgress(ctx, book, *endPage); err != nil {
			return nil, err
		}
	}

	return s.sessions.Save(ctx, session)
}

func (s *sessionService) PauseSession(ctx context.Context, userID string) (*models.ReadingSession, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	now := s.now()

	session, err := s.sessions.FindOpenSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.Status != models.SessionActive {
		return nil, models.ErrNoActiveSession
	}

	session.Status = models.SessionPaused
	session.PausedAt = &now

	return s.sessions.Save(ctx, session)
}

func (s *sessionService) ResumeSession(ctx context.Context, userID string) (*models.ReadingSession, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	return s.resumeLocked(ctx, userID)
}

func (s *sessionService) resumeLocked(ctx context.Context, userID string) (*models.ReadingSession, error) {
	now := s.now()

	session, err := s.sessions.FindOpenSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.Status != models.SessionPaused {
		return nil, models.ErrNoPausedSession
	}

	if session.PausedAt != nil {
		session.AddPausedMillis(now.Sub(*session.PausedAt).Milliseconds())
	}

	session.Status = models.SessionActive
	session.PausedAt = nil

	return s.sessions.Save(ctx, session)
}

func (s *sessionService) ExcludeTime(ctx context.Context, userID string, millis int64) (*models.ReadingSession, error) {
	if millis < 0 {
		return nil, models.ErrNegativeMillis
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	session, err := s.sessions.FindOpenSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.Status != models.SessionActive {
		return nil, models.ErrNoActiveSession
	}

	// Manual discount of idle time: touches the accumulator only, the
	// session stays active and pausedAt is left alone.
	session.AddPausedMillis(millis)

	return s.sessions.Save(ctx, session)
}

func (s *sessionService) GetActiveSession(ctx context.Context, userID string) (*models.ReadingSession, error) {
	return s.sessions.FindOpenSession(ctx, userID)
}

func (s *sessionService) GetSessionsByBook(ctx context.Context, userID string, bookID primitive.ObjectID) ([]*models.ReadingSession, error) {
	book, err := s.books.FindOwned(ctx, bookID, userID)
	if err != nil {
		return nil, err
	}
	return s.sessions.FindByUserAndBook(ctx, userID, book.ID)
}

func (s *sessionService) DeleteSessionsByBook(ctx context.Context, userID string, bookID primitive.ObjectID) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	return s.sessions.DeleteByUserAndBook(ctx, userID, bookID)
}
