package models

import "errors"

var (
	ErrRedisConnection = errors.New("redis connection error")
	ErrRedisGet        = errors.New("redis get error")
	ErrRedisSet        = errors.New("redis set error")
	ErrRedisDelete     = errors.New("redis delete error")
)

// Not-found family: the referenced resource does not exist or is not
// owned by the caller. Mapped to 404, never retried.
var (
	ErrBookNotFound    = errors.New("book not found or access denied")
	ErrSessionNotFound = errors.New("no open reading session found")
)

// Illegal-state family: the lifecycle operation does not apply to the
// session's current state. Mapped to 409, indicates a client ordering
// mistake rather than a transient fault.
var (
	ErrNoActiveSession = errors.New("no active session")
	ErrNoPausedSession = errors.New("no paused session")
)

// Invalid-argument family: malformed input. Mapped to 400.
var (
	ErrNegativeMillis   = errors.New("excluded millis cannot be negative")
	ErrNegativePage     = errors.New("current page cannot be negative")
	ErrPageBeyondTotal  = errors.New("current page cannot exceed total page count")
	ErrInvalidGoalType  = errors.New("reading goal type must be WEEKLY or MONTHLY")
	ErrInvalidGoalPages = errors.New("reading goal pages must be positive")
)

var (
	ErrDatabaseConnection = errors.New("database connection error")
	ErrDatabaseQuery      = errors.New("database query error")
	ErrDatabaseInsert     = errors.New("database insert error")
	ErrDatabaseUpdate     = errors.New("database update error")
	ErrDatabaseDelete     = errors.New("database delete error")
)
