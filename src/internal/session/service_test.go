package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"minilibrary-session-svc/src/internal/book"
	"minilibrary-session-svc/src/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions []*models.ReadingSession
}

func (r *fakeSessionRepo) FindOpenSession(_ context.Context, userID string) (*models.ReadingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *models.ReadingSession
	for _, s := range r.sessions {
		if s.UserID != userID || !s.IsOpen() {
			continue
		}
		if latest == nil || s.StartTime.After(latest.StartTime) {
			latest = s
		}
	}
	return latest, nil
}

func (r *fakeSessionRepo) FindByUserAndBook(_ context.Context, userID string, bookID primitive.ObjectID) ([]*models.ReadingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.ReadingSession
	for _, s := range r.sessions {
		if s.UserID == userID && s.BookID == bookID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) Save(_ context.Context, session *models.ReadingSession) (*models.ReadingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session.ID.IsZero() {
		session.ID = primitive.NewObjectID()
		r.sessions = append(r.sessions, session)
		return session, nil
	}
	for i, s := range r.sessions {
		if s.ID == session.ID {
			r.sessions[i] = session
			return session, nil
		}
	}
	r.sessions = append(r.sessions, session)
	return session, nil
}

func (r *fakeSessionRepo) DeleteByUserAndBook(_ context.Context, userID string, bookID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var kept []*models.ReadingSession
	for _, s := range r.sessions {
		if s.UserID == userID && s.BookID == bookID {
			continue
		}
		kept = append(kept, s)
	}
	r.sessions = kept
	return nil
}

func (r *fakeSessionRepo) openCount(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsOpen() {
			count++
		}
	}
	return count
}

type fakeBookRepo struct {
	mu    sync.Mutex
	books map[primitive.ObjectID]*models.Book
}

func newFakeBookRepo(books ...*models.Book) *fakeBookRepo {
	r := &fakeBookRepo{books: make(map[primitive.ObjectID]*models.Book)}
	for _, b := range books {
		r.books[b.ID] = b
	}
	return r
}

func (r *fakeBookRepo) FindOwned(_ context.Context, bookID primitive.ObjectID, userID string) (*models.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.books[bookID]
	if !ok || b.UserID != userID {
		return nil, models.ErrBookNotFound
	}
	return b, nil
}

func (r *fakeBookRepo) FindAllByUser(_ context.Context, userID string, page, limit int) ([]*models.Book, int64, error) {
	return nil, 0, nil
}

func (r *fakeBookRepo) Save(_ context.Context, b *models.Book) (*models.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	r.books[b.ID] = b
	return b, nil
}

func (r *fakeBookRepo) Delete(_ context.Context, bookID primitive.ObjectID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.books, bookID)
	return nil
}

const testUser = "user-1"

func newTestBook(userID string, pageCount, currentPage int) *models.Book {
	return &models.Book{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		Title:       "The Trial",
		PageCount:   &pageCount,
		CurrentPage: &currentPage,
	}
}

func newTestService(sessions *fakeSessionRepo, books *fakeBookRepo) *sessionService {
	progress := book.NewProgressService(books)
	return NewSessionService(sessions, books, progress).(*sessionService)
}

func TestStartSessionCreatesActiveSession(t *testing.T) {
	bk := newTestBook(testUser, 200, 0)
	repo := &fakeSessionRepo{}
	svc := newTestService(repo, newFakeBookRepo(bk))

	start := time.Date(2024, 3, 6, 19, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }

	session, err := svc.StartSession(context.Background(), testUser, bk.ID)
	require.NoError(t, err)

	assert.Equal(t, models.SessionActive, session.Status)
	assert.Equal(t, start, session.StartTime)
	assert.Equal(t, bk.ID, session.BookID)
	assert.Equal(t, int64(0), session.PausedTotal())
	assert.Nil(t, session.EndTime)
	assert.Nil(t, session.PausedAt)
	assert.False(t, session.ID.IsZero())
}

func TestStartSessionUnknownBook(t *testing.T) {
	svc := newTestService(&fakeSessionRepo{}, newFakeBookRepo())

	_, err := svc.StartSession(context.Background(), testUser, primitive.NewObjectID())
	assert.ErrorIs(t, err, models.ErrBookNotFound)
}

func TestStartSessionForeignBook(t *testing.T) {
	bk := newTestBook("someone-else", 200, 0)
	svc := newTestService(&fakeSessionRepo{}, newFakeBookRepo(bk))

	_, err := svc.StartSession(context.Background(), testUser, bk.ID)
	assert.ErrorIs(t, err, models.ErrBookNotFound)
}

func TestStartSessionIdempotentForSameBook(t *testing.T) {
	bk := newTestBook(testUser, 200, 0)
	repo := &fakeSessionRepo{}
	svc := newTestService(repo, newFakeBookRepo(bk))

	first, err := svc.StartSession(context.Background(), testUser, bk.ID)
	require.NoError(t, err)

	second, err := svc.StartSession(context.Background(), testUser, bk.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, repo.openCount(testUser))
}

func TestStartSessionResumesPausedSameBook(t *testing.T) {
	bk := newTestBook(testUser, 200, 0)
	repo := &fakeSessionRepo{}
	svc := newTestService(repo, newFakeBookRepo(bk))

	current := time.Date(2024, 3, 6, 19, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }

	started, err := svc.StartSession(context.Background(), testUser, bk.ID)
	require.NoError(t, err)

	_, err = svc.PauseSession(context.Background(), testUser)
	require.NoError(t, err)

	current = current.Add(3 * time.Second)

	resumed, err := svc.StartSession(context.Background(), testUser, bk.ID)
	require.NoError(t, err)

	assert.Equal(t, started.ID, resumed.ID)
	assert.Equal(t, models.SessionActive, resumed.Status)
	assert.Nil(t, resumed.PausedAt)
	assert.Equal(t, int64(3000), resumed.PausedTotal())
}

func TestStartSessionAutoStopsPreviousBook(t *testing.T) {
	bookA := newTestBook(testUser, 200, 0)
	bookB := newTestBook(testUser, 300, 0)
	repo := &fakeSessionRepo{}
	svc := newTestService(repo, newFakeBookRepo(bookA, bookB))

	sessionA, err := svc.StartSession(context.Background(), testUser, bookA.ID)
	require.NoError(t, err)

	sessionB, err := svc.StartSession(context.Background(), testUser, bookB.ID)
	require.NoError(t, err)

	assert.NotEqual(t, sessionA.ID, sessionB.ID)
	assert.Equal(t, models.SessionActive, sessionB.Status)
	assert.Equal(t, bookB.ID, sessionB.BookID)

	// Previous session completed without page progress.
	assert.Equal(t, models.SessionCompleted, sessionA.Status)
	assert.NotNil(t, sessionA.EndTime)
	assert.Nil(t, sessionA.EndPage)
	assert.Nil(t, sessionA.PagesRead)

	assert.Equal(t, 1, repo.openCount(testUser))
}

func TestStopSessionWithoutOpenSession(t *testing.T) {
	svc := newTestService(&fakeSessionRepo{}, newFakeBookRepo())

	_, err := svc.StopSession(context.Background(), testUser, nil, nil)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestStopSessionRecordsProgressAndCompletesBook(t *testing.T) {
	bk := newTestBook(testUser, 200, 0)
	books := newFakeBookRepo(bk)
	svc := newTestService(&fakeSessionRepo{}, books)

	_, err := svc.StartSession(context.Background(), testUser, bk.ID)
	require.NoError(t, err)

	endPage := 200
	session, err := svc.StopSession(context.Background(), testUser, nil, &endPage)
	require.NoError(t, err)

	assert.Equal(t, models.SessionCompleted, session.Status)
	require.NotNil(t, session.PagesRead)
	assert.Equal(t, 200, *session.PagesRead)
	require.NotNil(t, session.EndTime)

	updated, err := books.FindOwned(context.Background(), bk.ID, testUser)
	require.NoError(t, err)
	assert.Equal(t, 200, updated.CurrentPageOrZero())
	assert.True(t, updated.Completed)
}

func TestStopSessionClampsNegativePagesRead(t *testing.T) {
	bk := newTestBook(testUser, 200, 150)
	books := newFakeBookRepo(bk)
	svc := newTestService(&fakeSessionRepo{}, books)

	_, err := svc.StartSession(context.Background(), testUser, bk.ID)
	require.NoError(t, err)

	endPage := 100
	session, err := svc.StopSession(context.Background(), testUser, nil, &endPage)
	require.NoError(t, err)

	require.NotNil(t, session.PagesRead)
	assert.Equal(t, 0, *session.PagesRead)

	// Moving the marker backwards still updates the book.
	updated, err := books.FindOwned(context.Background(), bk.ID, testUser)
	require.NoError(t, err)
	assert.Equal(t, 100, updated.CurrentPageOrZero())
	assert.False(t, updated.Completed)
}

func TestStopSessionWithoutEndPageLeavesBookUntouched(t *testing.T) {
	bk := newTestBook(testUser, 200, 42)
	books := newFakeBookRepo(bk)
	svc := newTestService(&fakeSessionRepo{}, books)

	_, err := svc.StartSession(context.Background(), testUser, bk.ID)
	require.NoError(t, err)

	session, err := svc.StopSession(context.Background(), testUser, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, models.SessionCompleted, session.Status)
	assert.Nil(t, session.EndPage)
	assert.Nil(t, session.PagesRead)

	updated, err := books.FindOwned(context.Background(), bk.ID, testUser)
	require.NoError(t, err)
	assert.Equal(t, 42, updated.CurrentPageOrZero())
}

func TestStopSessionUsesProvidedEndTime(t *testing.T) {
	bk := newTestBook(testUser, 200, 0)
	svc := newTestService(&fakeSessionRepo{}, newFakeBookRepo(bk))

	_, err := svc.StartSession(context.Background(), testUser, bk.ID)
	require.NoError(t, err)

	endTime := time.Date(2024, 3, 6, 21, 30, 0, 0, time.UTC)
	session, err := svc.StopSession(context.Background(), testUser, &endTime, nil)
	require.NoError(t, err)

	require.NotNil(t, session.EndTime)
	assert.Equal(t, endTime, *session.EndTime)
}

func TestStopSessionFoldsPendingPause(t *testing.T) {
	bk := newTestBook(testUser, 200, 0)
	svc := newTestService(&fakeSessionRepo{}, newFakeBookRepo(bk))

	current := time.Date(2024, 3, 6, 19, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }

	_, err := svc.StartSession(context.Background(), testUser, bk.ID)
	require.NoError(t, err)

	_, err = svc.PauseSession(context.Background(), testUser)
	require.NoError(t, err)

	current = current.Add(7 * time.Second)

	session, err := svc.StopSession(context.Background(), testUser, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, models.SessionCompleted, session.Status)
	assert.Nil(t, session.PausedAt)
	assert.Equal(t, int64(7000), session.PausedTotal())
}

func TestPauseSessionRequiresActive(t *testing.T) {
	bk := newTestBook(testUser, 200, 0)
	svc := newTestService(&fakeSessionRepo{}, newFakeBookRepo(bk))

	_, err := svc.PauseSession(context.Background(), testUser)
	assert.ErrorIs(t, err, models.ErrNoActiveSession)

	_, err = svc.StartSession(context.Background(), testUser, bk.ID)
	require.NoError(t, err)

	_, err = svc.PauseSession(context.Background(), testUser)
	require.NoError(t, err)

	// Pausing an already paused session is a state conflict too.
	_, err = svc.PauseSession(context.Background(), testUser)
	assert.ErrorIs(t, err, models.ErrNoActiveSession)
}

func TestResumeSessionRequiresPaused(t *testing.T) {
	bk := newTestBook(testUser, 200, 0)
	svc := newTestService(&fakeSessionRepo{}, newFakeBookRepo(bk))

	_, err := svc.ResumeSession(context.Background(), testUser)
	assert.ErrorIs(t, err, models.ErrNoPausedSession)

	_, err = svc.StartSession(context.Background(), testUser, bk.ID)
	require.NoError(t, err)

	_, err = svc.ResumeSession(context.Background(), testUser)
	assert.ErrorIs(t, err, models.ErrNoPausedSession)
}

func TestPauseResumeAccounting(t *testing.T) {
	bk := newTestBook(testUser, 200, 0)
	svc := newTestService(&fakeSessionRepo{}, newFakeBookRepo(bk))

	current := time.Date(2024, 3, 6, 19, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }

	_, err := svc.StartSession(context.Background(), testUser, bk.ID)
	require.NoError(t, err)

	paused, err := svc.PauseSession(context.Background(), testUser)
	require.NoError(t, err)
	require.NotNil(t, paused.PausedAt)
	assert.Equal(t, current, *paused.PausedAt)

	current = current.Add(5 * time.Second)

	resumed, err := svc.ResumeSession(context.Background(), testUser)
	require.NoError(t, err)

	assert.Equal(t, models.SessionActive, resumed.Status)
	assert.Nil(t, resumed.PausedAt)
	assert.Equal(t, int64(5000), resumed.PausedTotal())
}

func TestPauseResumeZeroElapsedLeavesAccumulator(t *testing.T) {
	bk := newTestBook(testUser, 200, 0)
	svc := newTestService(&fakeSessionRepo{}, newFakeBookRepo(bk))

	current := time.Date(2024, 3, 6, 19, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }

	_, err := svc.StartSession(context.Background(), testUser, bk.ID)
	require.NoError(t, err)

	_, err = svc.PauseSession(context.Background(), testUser)
	require.NoError(t, err)

	resumed, err := svc.ResumeSession(context.Background(), testUser)
	require.NoError(t, err)

	assert.Equal(t, int64(0), resumed.PausedTotal())
}

func TestResumeNegativeGapContributesNothing(t *testing.T) {
	bk := newTestBook(testUser, 200, 0)
	svc := newTestService(&fakeSessionRepo{}, newFakeBookRepo(bk))

	current := time.Date(2024, 3, 6, 19, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }

	_, err := svc.StartSession(context.Background(), testUser, bk.ID)
	require.NoError(t, err)

	_, err = svc.PauseSession(context.Background(), testUser)
	require.NoError(t, err)

	// Clock went backwards between pause and resume.
	current = current.Add(-10 * time.Second)

	resumed, err := svc.ResumeSession(context.Background(), testUser)
	require.NoError(t, err)

	assert.Equal(t, int64(0), resumed.PausedTotal())
}

func TestExcludeTimeValidation(t *testing.T) {
	bk := newTestBook(testUser, 200, 0)
	svc := newTestService(&fakeSessionRepo{}, newFakeBookRepo(bk))

	_, err := svc.ExcludeTime(context.Background(), testUser, -1)
	assert.ErrorIs(t, err, models.ErrNegativeMillis)

	// Requires an active session.
	_, err = svc.ExcludeTime(context.Background(), testUser, 1000)
	assert.ErrorIs(t, err, models.ErrNoActiveSession)

	_, err = svc.StartSession(context.Background(), testUser, bk.ID)
	require.NoError(t, err)

	_, err = svc.PauseSession(context.Background(), testUser)
	require.NoError(t, err)

	_, err = svc.ExcludeTime(context.Background(), testUser, 1000)
	assert.ErrorIs(t, err, models.ErrNoActiveSession)
}

func TestExcludeTimeAccumulatesWithoutPausing(t *testing.T) {
	bk := newTestBook(testUser, 200, 0)
	svc := newTestService(&fakeSessionRepo{}, newFakeBookRepo(bk))

	_, err := svc.StartSession(context.Background(), testUser, bk.ID)
	require.NoError(t, err)

	session, err := svc.ExcludeTime(context.Background(), testUser, 90000)
	require.NoError(t, err)

	assert.Equal(t, models.SessionActive, session.Status)
	assert.Nil(t, session.PausedAt)
	assert.Equal(t, int64(90000), session.PausedTotal())

	session, err = svc.ExcludeTime(context.Background(), testUser, 10000)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), session.PausedTotal())
}

func TestGetActiveSession(t *testing.T) {
	bk := newTestBook(testUser, 200, 0)
	svc := newTestService(&fakeSessionRepo{}, newFakeBookRepo(bk))

	session, err := svc.GetActiveSession(context.Background(), testUser)
	require.NoError(t, err)
	assert.Nil(t, session)

	started, err := svc.StartSession(context.Background(), testUser, bk.ID)
	require.NoError(t, err)

	session, err = svc.GetActiveSession(context.Background(), testUser)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, started.ID, session.ID)

	// A paused session still counts as open.
	_, err = svc.PauseSession(context.Background(), testUser)
	require.NoError(t, err)

	session, err = svc.GetActiveSession(context.Background(), testUser)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, models.SessionPaused, session.Status)
}

func TestGetSessionsByBookChecksOwnership(t *testing.T) {
	bk := newTestBook("someone-else", 200, 0)
	svc := newTestService(&fakeSessionRepo{}, newFakeBookRepo(bk))

	_, err := svc.GetSessionsByBook(context.Background(), testUser, bk.ID)
	assert.ErrorIs(t, err, models.ErrBookNotFound)
}

func TestDeleteSessionsByBook(t *testing.T) {
	bk := newTestBook(testUser, 200, 0)
	repo := &fakeSessionRepo{}
	svc := newTestService(repo, newFakeBookRepo(bk))

	_, err := svc.StartSession(context.Background(), testUser, bk.ID)
	require.NoError(t, err)
	_, err = svc.StopSession(context.Background(), testUser, nil, nil)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSessionsByBook(context.Background(), testUser, bk.ID))

	sessions, err := svc.GetSessionsByBook(context.Background(), testUser, bk.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestSingleOpenSessionInvariantUnderSequence(t *testing.T) {
	bookA := newTestBook(testUser, 200, 0)
	bookB := newTestBook(testUser, 300, 0)
	repo := &fakeSessionRepo{}
	svc := newTestService(repo, newFakeBookRepo(bookA, bookB))

	ctx := context.Background()

	_, err := svc.StartSession(ctx, testUser, bookA.ID)
	require.NoError(t, err)
	_, err = svc.PauseSession(ctx, testUser)
	require.NoError(t, err)
	_, err = svc.StartSession(ctx, testUser, bookB.ID)
	require.NoError(t, err)
	_, err = svc.PauseSession(ctx, testUser)
	require.NoError(t, err)
	_, err = svc.ResumeSession(ctx, testUser)
	require.NoError(t, err)
	_, err = svc.StartSession(ctx, testUser, bookA.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.openCount(testUser))

	_, err = svc.StopSession(ctx, testUser, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, repo.openCount(testUser))
}

func TestSingleOpenSessionInvariantUnderConcurrency(t *testing.T) {
	bookA := newTestBook(testUser, 200, 0)
	bookB := newTestBook(testUser, 300, 0)
	repo := &fakeSessionRepo{}
	svc := newTestService(repo, newFakeBookRepo(bookA, bookB))

	ctx := context.Background()
	books := []primitive.ObjectID{bookA.ID, bookB.ID}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.StartSession(ctx, testUser, books[i%2])
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, repo.openCount(testUser))
}

func TestCrossUserIndependence(t *testing.T) {
	bookA := newTestBook("alice", 200, 0)
	bookB := newTestBook("bob", 300, 0)
	repo := &fakeSessionRepo{}
	svc := newTestService(repo, newFakeBookRepo(bookA, bookB))

	ctx := context.Background()

	_, err := svc.StartSession(ctx, "alice", bookA.ID)
	require.NoError(t, err)
	_, err = svc.StartSession(ctx, "bob", bookB.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.openCount("alice"))
	assert.Equal(t, 1, repo.openCount("bob"))

	_, err = svc.StopSession(ctx, "alice", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, repo.openCount("alice"))
	assert.Equal(t, 1, repo.openCount("bob"))
}
