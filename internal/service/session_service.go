package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "focusflow/backend/internal/errors"
	"focusflow/backend/internal/model"
	"focusflow/backend/internal/repository"
	"focusflow/backend/internal/timeutil"
)

// SessionStore is the persistence contract the lifecycle engine depends on.
// Implemented by repository.SessionRepository.
type SessionStore interface {
	CreateActive(ctx context.Context, session *model.Session) error
	FindActive(ctx context.Context, ownerID string) (*model.Session, error)
	FindByID(ctx context.Context, ownerID, id string) (*model.Session, error)
	Save(ctx context.Context, session *model.Session) error
	ListRecent(ctx context.Context, ownerID string, limit int) ([]model.Session, error)
	ListCompletedToday(ctx context.Context, ownerID string, dayStart, dayEnd time.Time) ([]model.Session, error)
	CountCompleted(ctx context.Context, ownerID string) (int, error)
}

// Notifier receives the session-ended signal on natural expiry so an
// external sound/toast layer can react. The engine never plays sound itself.
type Notifier interface {
	SessionEnded(ownerID string, session SessionView)
}

// NotifierFunc adapts a plain function to the Notifier interface.
type NotifierFunc func(ownerID string, session SessionView)

func (f NotifierFunc) SessionEnded(ownerID string, session SessionView) {
	f(ownerID, session)
}

// SessionService is the lifecycle state machine over running, paused and
// completed. Commands for the same owner are serialized; remaining time is
// recomputed from persisted timestamps on every call.
type SessionService struct {
	store        SessionStore
	notifier     Notifier
	focusSeconds int
	nowFunc      func() time.Time
	ownerLocks   sync.Map // ownerID -> *sync.Mutex
}

type SessionView struct {
	ID                     string     `json:"id"`
	OwnerID                string     `json:"ownerId"`
	Label                  string     `json:"label"`
	State                  string     `json:"state"`
	PlannedDurationSeconds int        `json:"plannedDurationSeconds"`
	RemainingSeconds       int        `json:"remainingSeconds"`
	StartedAt              time.Time  `json:"startedAt"`
	PausedAt               *time.Time `json:"pausedAt,omitempty"`
	TotalPausedSeconds     int        `json:"totalPausedSeconds"`
	EndedAt                *time.Time `json:"endedAt,omitempty"`
	Completed              bool       `json:"completed"`
	ServerTime             time.Time  `json:"serverTime"`
}

type StartInput struct {
	Label           string
	DurationMinutes int
}

type TodayStats struct {
	CompletedCount int `json:"completedCount"`
	FocusedSeconds int `json:"focusedSeconds"`
}

func NewSessionService(store SessionStore, notifier Notifier, focusSeconds int) *SessionService {
	if focusSeconds <= 0 {
		focusSeconds = model.DefaultFocusDurationSeconds
	}
	return &SessionService{
		store:        store,
		notifier:     notifier,
		focusSeconds: focusSeconds,
		nowFunc:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *SessionService) Start(ctx context.Context, ownerID string, input StartInput) (*SessionView, *apperrors.APIError) {
	planned := s.focusSeconds
	if input.DurationMinutes != 0 {
		if input.DurationMinutes < 0 {
			return nil, apperrors.BadRequest("invalid_duration", "durationMinutes must be positive")
		}
		planned = input.DurationMinutes * 60
	}
	if planned > model.MaxPlannedDurationSeconds {
		return nil, apperrors.BadRequest("invalid_duration", "durationMinutes exceeds the maximum supported session length")
	}

	label := strings.TrimSpace(input.Label)
	if label == "" {
		label = model.DefaultLabel
	}

	unlock := s.lockOwner(ownerID)
	defer unlock()

	now := s.nowFunc()

	// An expired-but-unfinalized session must not block a new start.
	if active, err := s.store.FindActive(ctx, ownerID); err == nil {
		if apiErr := s.finalizeIfExpired(ctx, active, now); apiErr != nil {
			return nil, apiErr
		}
		if active.EndedAt == nil {
			return nil, apperrors.Conflict("active_session_exists", "stop the current session before starting a new one", nil)
		}
	} else if err != repository.ErrNotFound {
		return nil, apperrors.Internal("failed to query active session")
	}

	session := model.Session{
		ID:                     uuid.NewString(),
		OwnerID:                ownerID,
		Label:                  label,
		PlannedDurationSeconds: planned,
		StartedAt:              now,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.store.CreateActive(ctx, &session); err != nil {
		if err == repository.ErrActiveSessionExists {
			return nil, apperrors.Conflict("active_session_exists", "stop the current session before starting a new one", nil)
		}
		return nil, apperrors.Internal("failed to create session")
	}

	view := s.toView(&session, now)
	return &view, nil
}

func (s *SessionService) Pause(ctx context.Context, ownerID, id string) (*SessionView, *apperrors.APIError) {
	unlock := s.lockOwner(ownerID)
	defer unlock()

	now := s.nowFunc()
	session, _, apiErr := s.loadForUpdate(ctx, ownerID, id, now)
	if apiErr != nil {
		return nil, apiErr
	}

	switch session.State() {
	case model.StatePaused:
		// Idempotent: the open pause is left untouched.
		view := s.toView(session, now)
		return &view, nil
	case model.StateCompleted:
		return nil, apperrors.InvalidState("session is already completed")
	}

	session.PausedAt = &now
	session.UpdatedAt = now
	if apiErr := s.save(ctx, session); apiErr != nil {
		return nil, apiErr
	}

	view := s.toView(session, now)
	return &view, nil
}

func (s *SessionService) Resume(ctx context.Context, ownerID, id string) (*SessionView, *apperrors.APIError) {
	unlock := s.lockOwner(ownerID)
	defer unlock()

	now := s.nowFunc()
	session, _, apiErr := s.loadForUpdate(ctx, ownerID, id, now)
	if apiErr != nil {
		return nil, apiErr
	}

	switch session.State() {
	case model.StateRunning:
		view := s.toView(session, now)
		return &view, nil
	case model.StateCompleted:
		return nil, apperrors.InvalidState("session is already completed")
	}

	session.TotalPausedSeconds += timeutil.PauseElapsedSeconds(*session.PausedAt, now)
	session.PausedAt = nil
	session.UpdatedAt = now
	if apiErr := s.save(ctx, session); apiErr != nil {
		return nil, apiErr
	}

	view := s.toView(session, now)
	return &view, nil
}

func (s *SessionService) Stop(ctx context.Context, ownerID, id string) (*SessionView, *apperrors.APIError) {
	unlock := s.lockOwner(ownerID)
	defer unlock()

	now := s.nowFunc()
	session, expired, apiErr := s.loadForUpdate(ctx, ownerID, id, now)
	if apiErr != nil {
		return nil, apiErr
	}

	if session.State() == model.StateCompleted {
		// A stop that observes its own session's natural expiry succeeds:
		// the session is done either way. Only a stop against a session
		// that was completed before this command is an illegal transition.
		if expired {
			view := s.toView(session, now)
			return &view, nil
		}
		return nil, apperrors.InvalidState("session is already completed")
	}

	if session.PausedAt != nil {
		session.TotalPausedSeconds += timeutil.PauseElapsedSeconds(*session.PausedAt, now)
		session.PausedAt = nil
	}
	session.EndedAt = &now
	session.Completed = true
	session.UpdatedAt = now
	if apiErr := s.save(ctx, session); apiErr != nil {
		return nil, apiErr
	}

	log.Info().
		Str("ownerId", ownerID).
		Str("sessionId", session.ID).
		Int("focusedSeconds", timeutil.FocusedSeconds(session.StartedAt, *session.EndedAt, session.TotalPausedSeconds, session.PlannedDurationSeconds)).
		Msg("session stopped")

	view := s.toView(session, now)
	return &view, nil
}

// Active returns the single non-completed session for the owner, if any. A
// session found already past its deadline is finalized first, in which case
// there is no active session to return.
func (s *SessionService) Active(ctx context.Context, ownerID string) (*SessionView, *apperrors.APIError) {
	unlock := s.lockOwner(ownerID)
	defer unlock()

	now := s.nowFunc()
	session, err := s.store.FindActive(ctx, ownerID)
	if err == repository.ErrNotFound {
		return nil, apperrors.NotFound("no_active_session", "no active session")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to query active session")
	}

	if apiErr := s.finalizeIfExpired(ctx, session, now); apiErr != nil {
		return nil, apiErr
	}
	if session.EndedAt != nil {
		return nil, apperrors.NotFound("no_active_session", "no active session")
	}

	view := s.toView(session, now)
	return &view, nil
}

func (s *SessionService) History(ctx context.Context, ownerID string, limit int) ([]SessionView, *apperrors.APIError) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	now := s.nowFunc()
	sessions, err := s.store.ListRecent(ctx, ownerID, limit)
	if err != nil {
		return nil, apperrors.Internal("failed to get history")
	}

	views := make([]SessionView, 0, len(sessions))
	for i := range sessions {
		views = append(views, s.toView(&sessions[i], now))
	}
	return views, nil
}

func (s *SessionService) StatsToday(ctx context.Context, ownerID string) (*TodayStats, *apperrors.APIError) {
	now := s.nowFunc().Local()
	dayStart := timeutil.StartOfDay(now)
	dayEnd := dayStart.Add(24 * time.Hour)

	sessions, err := s.store.ListCompletedToday(ctx, ownerID, dayStart, dayEnd)
	if err != nil {
		return nil, apperrors.Internal("failed to get daily stats")
	}

	stats := TodayStats{CompletedCount: len(sessions)}
	for i := range sessions {
		session := &sessions[i]
		if session.EndedAt == nil {
			continue
		}
		stats.FocusedSeconds += timeutil.FocusedSeconds(session.StartedAt, *session.EndedAt, session.TotalPausedSeconds, session.PlannedDurationSeconds)
	}
	return &stats, nil
}

// loadForUpdate fetches an owner-scoped session and lazily finalizes it when
// its deadline has already passed, so stale timers converge before the
// command's own guard runs. The expired result tells the caller whether this
// load is what completed the session.
func (s *SessionService) loadForUpdate(ctx context.Context, ownerID, id string, now time.Time) (*model.Session, bool, *apperrors.APIError) {
	session, err := s.store.FindByID(ctx, ownerID, id)
	if err == repository.ErrNotFound {
		return nil, false, apperrors.NotFound("session_not_found", "session not found")
	}
	if err != nil {
		return nil, false, apperrors.Internal("failed to get session")
	}

	wasRunning := session.State() == model.StateRunning
	if apiErr := s.finalizeIfExpired(ctx, session, now); apiErr != nil {
		return nil, false, apiErr
	}
	expired := wasRunning && session.State() == model.StateCompleted
	return session, expired, nil
}

// finalizeIfExpired completes a running session whose remaining time has
// reached zero. The end is recorded at the exact deadline rather than the
// observation time, and the notifier is signaled: this is natural expiry.
func (s *SessionService) finalizeIfExpired(ctx context.Context, session *model.Session, now time.Time) *apperrors.APIError {
	if session.State() != model.StateRunning {
		return nil
	}
	if timeutil.RemainingSeconds(session.StartedAt, nil, session.TotalPausedSeconds, session.PlannedDurationSeconds, now) > 0 {
		return nil
	}

	deadline := timeutil.Deadline(session.StartedAt, session.TotalPausedSeconds, session.PlannedDurationSeconds)
	session.EndedAt = &deadline
	session.Completed = true
	session.UpdatedAt = now
	if apiErr := s.save(ctx, session); apiErr != nil {
		return apiErr
	}

	log.Info().
		Str("ownerId", session.OwnerID).
		Str("sessionId", session.ID).
		Msg("session expired")

	if s.notifier != nil {
		s.notifier.SessionEnded(session.OwnerID, s.toView(session, now))
	}
	return nil
}

func (s *SessionService) save(ctx context.Context, session *model.Session) *apperrors.APIError {
	switch err := s.store.Save(ctx, session); err {
	case nil:
		return nil
	case repository.ErrSessionCompleted:
		// The transition lost an ordering race against a persisted stop.
		return apperrors.InvalidState("session is already completed")
	case repository.ErrNotFound:
		return apperrors.NotFound("session_not_found", "session not found")
	default:
		return apperrors.Internal("failed to save session")
	}
}

func (s *SessionService) lockOwner(ownerID string) func() {
	value, _ := s.ownerLocks.LoadOrStore(ownerID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *SessionService) toView(session *model.Session, now time.Time) SessionView {
	remaining := 0
	if session.EndedAt == nil {
		remaining = timeutil.RemainingSeconds(session.StartedAt, session.PausedAt, session.TotalPausedSeconds, session.PlannedDurationSeconds, now)
	}
	return SessionView{
		ID:                     session.ID,
		OwnerID:                session.OwnerID,
		Label:                  session.Label,
		State:                  session.State(),
		PlannedDurationSeconds: session.PlannedDurationSeconds,
		RemainingSeconds:       remaining,
		StartedAt:              session.StartedAt,
		PausedAt:               session.PausedAt,
		TotalPausedSeconds:     session.TotalPausedSeconds,
		EndedAt:                session.EndedAt,
		Completed:              session.Completed,
		ServerTime:             now,
	}
}
