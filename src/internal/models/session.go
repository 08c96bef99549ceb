package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session status constants
const (
	SessionActive    = "ACTIVE"
	SessionPaused    = "PAUSED"
	SessionCompleted = "COMPLETED"
)

// OpenStatuses are the non-terminal session states. At most one session
// per user may be in any of them at a time.
var OpenStatuses = []string{SessionActive, SessionPaused}

type ReadingSession struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID       string             `json:"userId" bson:"user_id"`
	BookID       primitive.ObjectID `json:"bookId" bson:"book_id"`
	Status       string             `json:"status" bson:"status"`
	StartTime    time.Time          `json:"startTime" bson:"start_time"`
	EndTime      *time.Time         `json:"endTime,omitempty" bson:"end_time,omitempty"`
	EndPage      *int               `json:"endPage,omitempty" bson:"end_page,omitempty"`
	PagesRead    *int               `json:"pagesRead,omitempty" bson:"pages_read,omitempty"`
	PausedMillis *int64             `json:"pausedMillis,omitempty" bson:"paused_millis,omitempty"`
	PausedAt     *time.Time         `json:"pausedAt,omitempty" bson:"paused_at,omitempty"`
}

// IsOpen reports whether the session is still non-terminal.
func (s *ReadingSession) IsOpen() bool {
	return s.Status == SessionActive || s.Status == SessionPaused
}

// PausedTotal returns the accumulated paused duration in milliseconds,
// normalizing a missing accumulator to zero. Legacy records may carry nil.
func (s *ReadingSession) PausedTotal() int64 {
	if s.PausedMillis == nil {
		return 0
	}
	return *s.PausedMillis
}

// AddPausedMillis folds millis into the paused accumulator. Non-positive
// values contribute nothing; the accumulator never decreases.
func (s *ReadingSession) AddPausedMillis(millis int64) {
	if millis <= 0 {
		return
	}
	total := s.PausedTotal() + millis
	s.PausedMillis = &total
}
