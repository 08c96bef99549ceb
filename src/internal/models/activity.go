package models

import "time"

type ActivityMessage struct {
	EventID   string            `json:"event_id"`
	UserID    string            `json:"user_id"`
	SessionID string            `json:"session_id,omitempty"`
	BookID    string            `json:"book_id,omitempty"`
	Action    string            `json:"action"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Activity action constants
const (
	ActionSessionStarted = "session_started"
	ActionSessionStopped = "session_stopped"
	ActionSessionPaused  = "session_paused"
	ActionSessionResumed = "session_resumed"
	ActionTimeExcluded   = "time_excluded"
	ActionBookDeleted    = "book_deleted"
)
