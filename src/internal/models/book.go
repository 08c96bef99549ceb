package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reading goal type constants
const (
	GoalWeekly  = "WEEKLY"
	GoalMonthly = "MONTHLY"
)

type Book struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID      string             `json:"userId" bson:"user_id"`
	ISBN        string             `json:"isbn,omitempty" bson:"isbn,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Author      string             `json:"author,omitempty" bson:"author,omitempty"`
	PublishDate string             `json:"publishDate,omitempty" bson:"publish_date,omitempty"`
	CoverURL    string             `json:"coverUrl,omitempty" bson:"cover_url,omitempty"`
	Categories  string             `json:"categories,omitempty" bson:"categories,omitempty"`
	PageCount   *int               `json:"pageCount,omitempty" bson:"page_count,omitempty"`
	CurrentPage *int               `json:"currentPage,omitempty" bson:"current_page,omitempty"`
	StartDate   *time.Time         `json:"startDate,omitempty" bson:"start_date,omitempty"`
	Completed   bool               `json:"completed" bson:"completed"`
	GoalType    *string            `json:"readingGoalType,omitempty" bson:"reading_goal_type,omitempty"`
	GoalPages   *int               `json:"readingGoalPages,omitempty" bson:"reading_goal_pages,omitempty"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updated_at"`
}

// CurrentPageOrZero normalizes a missing page marker to zero.
func (b *Book) CurrentPageOrZero() int {
	if b.CurrentPage == nil {
		return 0
	}
	return *b.CurrentPage
}

// HasGoal reports whether a periodic reading goal is fully configured.
func (b *Book) HasGoal() bool {
	return b.GoalType != nil && b.GoalPages != nil
}
