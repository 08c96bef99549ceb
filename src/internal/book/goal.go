package book

import (
	"time"

	"minilibrary-session-svc/src/internal/models"
)

// CalculateGoalProgress sums the pages read within the book's current goal
// period. It returns nil when the book has no goal configured, and 0 when
// it has a goal but no qualifying sessions.
//
// The period starts at the most recent Monday (weekly) or the first of the
// month (monthly), at midnight in now's location. Only sessions that ended
// strictly after the period start count; a session without a recorded
// pagesRead contributes 0 — the prior page baseline cannot be reliably
// reconstructed from a single session record.
func CalculateGoalProgress(book *models.Book, sessions []*models.ReadingSession, now time.Time) *int {
	if !book.HasGoal() {
		return nil
	}

	periodStart := goalPeriodStart(*book.GoalType, now)

	total := 0
	for _, s := range sessions {
		if s.EndTime == nil || !s.EndTime.After(periodStart) {
			continue
		}
		if s.PagesRead == nil || *s.PagesRead < 0 {
			continue
		}
		total += *s.PagesRead
	}

	return &total
}

func goalPeriodStart(goalType string, now time.Time) time.Time {
	if goalType == models.GoalWeekly {
		// Days since the previous-or-same Monday; Weekday is Sunday=0.
		offset := (int(now.Weekday()) + 6) % 7
		monday := now.AddDate(0, 0, -offset)
		return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, now.Location())
	}
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}
