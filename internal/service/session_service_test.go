package service

import (
	"context"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "focusflow/backend/internal/errors"
	"focusflow/backend/internal/model"
	"focusflow/backend/internal/repository"
)

type fakeStore struct {
	sessions map[string]model.Session
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]model.Session)}
}

func (f *fakeStore) CreateActive(_ context.Context, session *model.Session) error {
	for _, existing := range f.sessions {
		if existing.OwnerID == session.OwnerID && existing.EndedAt == nil {
			return repository.ErrActiveSessionExists
		}
	}
	f.sessions[session.ID] = *session
	return nil
}

func (f *fakeStore) FindActive(_ context.Context, ownerID string) (*model.Session, error) {
	for _, existing := range f.sessions {
		if existing.OwnerID == ownerID && existing.EndedAt == nil {
			session := existing
			return &session, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) FindByID(_ context.Context, ownerID, id string) (*model.Session, error) {
	existing, ok := f.sessions[id]
	if !ok || existing.OwnerID != ownerID {
		return nil, repository.ErrNotFound
	}
	session := existing
	return &session, nil
}

func (f *fakeStore) Save(_ context.Context, session *model.Session) error {
	existing, ok := f.sessions[session.ID]
	if !ok || existing.OwnerID != session.OwnerID {
		return repository.ErrNotFound
	}
	if existing.Completed {
		return repository.ErrSessionCompleted
	}
	f.sessions[session.ID] = *session
	return nil
}

func (f *fakeStore) ListRecent(_ context.Context, ownerID string, limit int) ([]model.Session, error) {
	var sessions []model.Session
	for _, existing := range f.sessions {
		if existing.OwnerID == ownerID {
			sessions = append(sessions, existing)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (f *fakeStore) ListCompletedToday(_ context.Context, ownerID string, dayStart, dayEnd time.Time) ([]model.Session, error) {
	var sessions []model.Session
	for _, existing := range f.sessions {
		if existing.OwnerID != ownerID || !existing.Completed || existing.EndedAt == nil {
			continue
		}
		if existing.EndedAt.Before(dayStart) || !existing.EndedAt.Before(dayEnd) {
			continue
		}
		sessions = append(sessions, existing)
	}
	return sessions, nil
}

func (f *fakeStore) CountCompleted(_ context.Context, ownerID string) (int, error) {
	count := 0
	for _, existing := range f.sessions {
		if existing.OwnerID == ownerID && existing.Completed {
			count++
		}
	}
	return count, nil
}

type fakeNotifier struct {
	ended []SessionView
}

func (f *fakeNotifier) SessionEnded(_ string, session SessionView) {
	f.ended = append(f.ended, session)
}

type fixture struct {
	store    *fakeStore
	notifier *fakeNotifier
	svc      *SessionService
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    newFakeStore(),
		notifier: &fakeNotifier{},
		now:      time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewSessionService(f.store, f.notifier, 0)
	f.svc.nowFunc = func() time.Time { return f.now }
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

const owner = "owner-1"

func TestStart(t *testing.T) {
	t.Run("returns the full planned duration immediately", func(t *testing.T) {
		f := newFixture(t)
		view, apiErr := f.svc.Start(context.Background(), owner, StartInput{Label: "Math", DurationMinutes: 25})
		require.Nil(t, apiErr)
		assert.Equal(t, 1500, view.RemainingSeconds)
		assert.Equal(t, "Math", view.Label)
		assert.Equal(t, model.StateRunning, view.State)
		assert.Equal(t, f.now, view.StartedAt)
	})

	t.Run("empty label is coerced to the default", func(t *testing.T) {
		f := newFixture(t)
		view, apiErr := f.svc.Start(context.Background(), owner, StartInput{Label: "   "})
		require.Nil(t, apiErr)
		assert.Equal(t, model.DefaultLabel, view.Label)
		assert.Equal(t, model.DefaultFocusDurationSeconds, view.PlannedDurationSeconds)
	})

	t.Run("negative duration is rejected", func(t *testing.T) {
		f := newFixture(t)
		_, apiErr := f.svc.Start(context.Background(), owner, StartInput{DurationMinutes: -5})
		require.NotNil(t, apiErr)
		assert.Equal(t, "invalid_duration", apiErr.Code)
	})

	t.Run("second start while one is active conflicts", func(t *testing.T) {
		f := newFixture(t)
		_, apiErr := f.svc.Start(context.Background(), owner, StartInput{})
		require.Nil(t, apiErr)

		_, apiErr = f.svc.Start(context.Background(), owner, StartInput{})
		require.NotNil(t, apiErr)
		assert.Equal(t, "active_session_exists", apiErr.Code)
	})

	t.Run("an expired active session is finalized, not a blocker", func(t *testing.T) {
		f := newFixture(t)
		first, apiErr := f.svc.Start(context.Background(), owner, StartInput{DurationMinutes: 1})
		require.Nil(t, apiErr)

		f.advance(65 * time.Second)
		second, apiErr := f.svc.Start(context.Background(), owner, StartInput{})
		require.Nil(t, apiErr)
		assert.NotEqual(t, first.ID, second.ID)

		stored := f.store.sessions[first.ID]
		assert.True(t, stored.Completed)
		require.NotNil(t, stored.EndedAt)
		assert.Equal(t, first.StartedAt.Add(60*time.Second), *stored.EndedAt, "finalized at the deadline, not at observation time")
		require.Len(t, f.notifier.ended, 1)
		assert.Equal(t, first.ID, f.notifier.ended[0].ID)
	})
}

func TestPauseResume(t *testing.T) {
	t.Run("pause freezes remaining and resume restores it exactly", func(t *testing.T) {
		f := newFixture(t)
		view, apiErr := f.svc.Start(context.Background(), owner, StartInput{DurationMinutes: 25})
		require.Nil(t, apiErr)

		f.advance(100 * time.Second)
		paused, apiErr := f.svc.Pause(context.Background(), owner, view.ID)
		require.Nil(t, apiErr)
		assert.Equal(t, model.StatePaused, paused.State)
		assert.Equal(t, 1400, paused.RemainingSeconds)

		f.advance(60 * time.Second)
		resumed, apiErr := f.svc.Resume(context.Background(), owner, view.ID)
		require.Nil(t, apiErr)
		assert.Equal(t, model.StateRunning, resumed.State)
		assert.Equal(t, 1400, resumed.RemainingSeconds, "remaining must be unchanged across the pause")
		assert.Equal(t, 60, resumed.TotalPausedSeconds)
		assert.Nil(t, resumed.PausedAt)
	})

	t.Run("pause is idempotent", func(t *testing.T) {
		f := newFixture(t)
		view, apiErr := f.svc.Start(context.Background(), owner, StartInput{})
		require.Nil(t, apiErr)

		f.advance(10 * time.Second)
		first, apiErr := f.svc.Pause(context.Background(), owner, view.ID)
		require.Nil(t, apiErr)

		f.advance(30 * time.Second)
		second, apiErr := f.svc.Pause(context.Background(), owner, view.ID)
		require.Nil(t, apiErr)

		assert.Equal(t, first.PausedAt, second.PausedAt, "open pause must be left untouched")
		assert.Equal(t, first.TotalPausedSeconds, second.TotalPausedSeconds)
		assert.Equal(t, first.RemainingSeconds, second.RemainingSeconds)
	})

	t.Run("resume on a running session is a no-op", func(t *testing.T) {
		f := newFixture(t)
		view, apiErr := f.svc.Start(context.Background(), owner, StartInput{})
		require.Nil(t, apiErr)

		f.advance(10 * time.Second)
		resumed, apiErr := f.svc.Resume(context.Background(), owner, view.ID)
		require.Nil(t, apiErr)
		assert.Equal(t, model.StateRunning, resumed.State)
		assert.Equal(t, 0, resumed.TotalPausedSeconds)
	})

	t.Run("unknown session id is not found", func(t *testing.T) {
		f := newFixture(t)
		_, apiErr := f.svc.Pause(context.Background(), owner, "missing")
		require.NotNil(t, apiErr)
		assert.Equal(t, "session_not_found", apiErr.Code)
	})

	t.Run("foreign-owned session looks like not found", func(t *testing.T) {
		f := newFixture(t)
		view, apiErr := f.svc.Start(context.Background(), owner, StartInput{})
		require.Nil(t, apiErr)

		_, apiErr = f.svc.Pause(context.Background(), "owner-2", view.ID)
		require.NotNil(t, apiErr)
		assert.Equal(t, "session_not_found", apiErr.Code)
	})
}

func TestStop(t *testing.T) {
	t.Run("stop while running completes the session", func(t *testing.T) {
		f := newFixture(t)
		view, apiErr := f.svc.Start(context.Background(), owner, StartInput{DurationMinutes: 25})
		require.Nil(t, apiErr)

		f.advance(200 * time.Second)
		stopped, apiErr := f.svc.Stop(context.Background(), owner, view.ID)
		require.Nil(t, apiErr)
		assert.Equal(t, model.StateCompleted, stopped.State)
		assert.True(t, stopped.Completed)
		require.NotNil(t, stopped.EndedAt)
		assert.Equal(t, f.now, *stopped.EndedAt)
	})

	t.Run("stop while paused folds the open pause first", func(t *testing.T) {
		f := newFixture(t)
		view, apiErr := f.svc.Start(context.Background(), owner, StartInput{})
		require.Nil(t, apiErr)

		f.advance(100 * time.Second)
		_, apiErr = f.svc.Pause(context.Background(), owner, view.ID)
		require.Nil(t, apiErr)

		f.advance(40 * time.Second)
		stopped, apiErr := f.svc.Stop(context.Background(), owner, view.ID)
		require.Nil(t, apiErr)
		assert.Equal(t, 40, stopped.TotalPausedSeconds)
		assert.Nil(t, stopped.PausedAt)
		assert.True(t, stopped.Completed)
	})

	t.Run("stop at zero remaining is accepted as the natural-expiry finalize", func(t *testing.T) {
		f := newFixture(t)
		view, apiErr := f.svc.Start(context.Background(), owner, StartInput{DurationMinutes: 1})
		require.Nil(t, apiErr)

		f.advance(65 * time.Second)
		stopped, apiErr := f.svc.Stop(context.Background(), owner, view.ID)
		require.Nil(t, apiErr, "the first stop against an expired running session must succeed")
		assert.Equal(t, model.StateCompleted, stopped.State)
		assert.True(t, stopped.Completed)
		require.NotNil(t, stopped.EndedAt)
		assert.Equal(t, view.StartedAt.Add(60*time.Second), *stopped.EndedAt, "ended at the deadline, not at observation time")
		require.Len(t, f.notifier.ended, 1)

		// The session was completed before this command, so now it is terminal.
		_, apiErr = f.svc.Stop(context.Background(), owner, view.ID)
		require.NotNil(t, apiErr)
		assert.Equal(t, "invalid_state", apiErr.Code)
	})

	t.Run("completed sessions are terminal and unchanged by further commands", func(t *testing.T) {
		f := newFixture(t)
		view, apiErr := f.svc.Start(context.Background(), owner, StartInput{})
		require.Nil(t, apiErr)
		_, apiErr = f.svc.Stop(context.Background(), owner, view.ID)
		require.Nil(t, apiErr)

		frozen := f.store.sessions[view.ID]

		commands := []func(context.Context, string, string) (*SessionView, *apperrors.APIError){
			f.svc.Pause, f.svc.Resume, f.svc.Stop,
		}
		for _, command := range commands {
			_, apiErr := command(context.Background(), owner, view.ID)
			require.NotNil(t, apiErr)
			assert.Equal(t, "invalid_state", apiErr.Code)
			assert.Equal(t, http.StatusConflict, apiErr.Status)
			assert.Equal(t, frozen, f.store.sessions[view.ID], "record must be unchanged")
		}
	})
}

func TestActive(t *testing.T) {
	t.Run("reports the single active session", func(t *testing.T) {
		f := newFixture(t)
		view, apiErr := f.svc.Start(context.Background(), owner, StartInput{DurationMinutes: 25})
		require.Nil(t, apiErr)

		f.advance(30 * time.Second)
		active, apiErr := f.svc.Active(context.Background(), owner)
		require.Nil(t, apiErr)
		assert.Equal(t, view.ID, active.ID)
		assert.Equal(t, 1470, active.RemainingSeconds)
	})

	t.Run("natural expiry is observed as no active session", func(t *testing.T) {
		f := newFixture(t)
		view, apiErr := f.svc.Start(context.Background(), owner, StartInput{DurationMinutes: 1})
		require.Nil(t, apiErr)

		f.advance(65 * time.Second)
		_, apiErr = f.svc.Active(context.Background(), owner)
		require.NotNil(t, apiErr)
		assert.Equal(t, "no_active_session", apiErr.Code)

		stored := f.store.sessions[view.ID]
		assert.True(t, stored.Completed)
		require.Len(t, f.notifier.ended, 1)
	})

	t.Run("no session at all", func(t *testing.T) {
		f := newFixture(t)
		_, apiErr := f.svc.Active(context.Background(), owner)
		require.NotNil(t, apiErr)
		assert.Equal(t, "no_active_session", apiErr.Code)
	})
}

func TestStatsToday(t *testing.T) {
	f := newFixture(t)

	// Two sessions completed at the fixed now: 1500s focused (full plan) and
	// 300s focused after subtracting the pause.
	endedA := f.now
	f.store.sessions["a"] = model.Session{
		ID: "a", OwnerID: owner, PlannedDurationSeconds: 1500,
		StartedAt: f.now.Add(-1500 * time.Second), EndedAt: &endedA, Completed: true,
	}
	endedB := f.now
	f.store.sessions["b"] = model.Session{
		ID: "b", OwnerID: owner, PlannedDurationSeconds: 1500,
		StartedAt: f.now.Add(-400 * time.Second), TotalPausedSeconds: 100,
		EndedAt: &endedB, Completed: true,
	}

	stats, apiErr := f.svc.StatsToday(context.Background(), owner)
	require.Nil(t, apiErr)
	assert.Equal(t, 2, stats.CompletedCount)
	assert.Equal(t, 1800, stats.FocusedSeconds)
}

func TestHistory(t *testing.T) {
	f := newFixture(t)

	first, apiErr := f.svc.Start(context.Background(), owner, StartInput{Label: "one"})
	require.Nil(t, apiErr)
	f.advance(10 * time.Second)
	_, apiErr = f.svc.Stop(context.Background(), owner, first.ID)
	require.Nil(t, apiErr)

	f.advance(10 * time.Second)
	second, apiErr := f.svc.Start(context.Background(), owner, StartInput{Label: "two"})
	require.Nil(t, apiErr)

	views, apiErr := f.svc.History(context.Background(), owner, 10)
	require.Nil(t, apiErr)
	require.Len(t, views, 2)
	assert.Equal(t, second.ID, views[0].ID, "newest first")
	assert.Equal(t, first.ID, views[1].ID)
}
