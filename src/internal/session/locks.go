package session

import "sync"

// userLocks serializes lifecycle operations per user. The single-open-session
// invariant is enforced by read-then-decide logic, so two concurrent calls
// for the same user must never both observe "no open session". Different
// users never contend.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for userID and returns its release func.
func (l *userLocks) Lock(userID string) func() {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
