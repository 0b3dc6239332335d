package client

import (
	"errors"
	"sync"

	"focusflow/backend/internal/timer"
)

// Lifecycle is the server surface the syncer reconciles against. *API
// implements it; tests substitute a fake.
type Lifecycle interface {
	Start(label string, durationMinutes int) (*Session, error)
	Pause(id string) (*Session, error)
	Resume(id string) (*Session, error)
	Stop(id string) (*Session, error)
	Active() (*Session, error)
}

// ErrStateUnknown is returned by tick-affecting calls after a mutating
// command fails: the local display can no longer be trusted until Refresh
// re-fetches authoritative state.
var ErrStateUnknown = errors.New("local state unknown, refresh required")

// Syncer keeps a locally ticking countdown reconciled with the server. Every
// mutating call adopts the server's remainingSeconds instead of trusting
// local elapsed-time tracking, so tab suspension or clock drift can never
// corrupt the displayed value for long.
type Syncer struct {
	api       Lifecycle
	countdown *timer.Countdown
	onTick    func(remaining int)
	onExpire  func()

	mu         sync.Mutex
	sessionID  string
	remaining  int
	ticking    bool
	stateKnown bool
}

func NewSyncer(api Lifecycle, onTick func(remaining int), onExpire func()) *Syncer {
	return &Syncer{
		api:        api,
		countdown:  timer.NewCountdown(),
		onTick:     onTick,
		onExpire:   onExpire,
		stateKnown: true,
	}
}

func (s *Syncer) Start(label string, durationMinutes int) (*Session, error) {
	session, err := s.api.Start(label, durationMinutes)
	if err != nil {
		s.markUnknown()
		return nil, err
	}
	s.adopt(session, true)
	return session, nil
}

func (s *Syncer) Pause() (*Session, error) {
	id, err := s.currentID()
	if err != nil {
		return nil, err
	}
	session, err := s.api.Pause(id)
	if err != nil {
		s.markUnknown()
		return nil, err
	}
	s.adopt(session, false)
	return session, nil
}

func (s *Syncer) Resume() (*Session, error) {
	id, err := s.currentID()
	if err != nil {
		return nil, err
	}
	session, err := s.api.Resume(id)
	if err != nil {
		s.markUnknown()
		return nil, err
	}
	s.adopt(session, true)
	return session, nil
}

func (s *Syncer) Stop() (*Session, error) {
	id, err := s.currentID()
	if err != nil {
		return nil, err
	}
	session, err := s.api.Stop(id)
	if err != nil {
		s.markUnknown()
		return nil, err
	}
	s.countdown.Stop()
	s.mu.Lock()
	s.sessionID = ""
	s.remaining = session.RemainingSeconds
	s.ticking = false
	s.stateKnown = true
	s.mu.Unlock()
	return session, nil
}

// Restore adopts the active session after a cold load without starting the
// local tick: a reload cannot be distinguished from a long network pause, so
// ticking waits for an explicit Resume. A missing active session is not an
// error.
func (s *Syncer) Restore() (*Session, error) {
	session, err := s.api.Active()
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == "no_active_session" {
			s.countdown.Stop()
			s.mu.Lock()
			s.sessionID = ""
			s.remaining = 0
			s.ticking = false
			s.stateKnown = true
			s.mu.Unlock()
			return nil, nil
		}
		s.markUnknown()
		return nil, err
	}
	s.adopt(session, false)
	return session, nil
}

// Refresh re-fetches authoritative state after a failed command. Until it
// succeeds, the syncer refuses to resume ticking.
func (s *Syncer) Refresh() (*Session, error) {
	return s.Restore()
}

// Remaining reports the displayed value: the local tick while running, the
// last server-reconciled value otherwise.
func (s *Syncer) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticking {
		return s.countdown.Remaining()
	}
	return s.remaining
}

func (s *Syncer) Ticking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticking
}

func (s *Syncer) StateKnown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateKnown
}

// Close releases the local timer.
func (s *Syncer) Close() {
	s.countdown.Stop()
}

func (s *Syncer) currentID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stateKnown {
		return "", ErrStateUnknown
	}
	if s.sessionID == "" {
		return "", errors.New("no tracked session")
	}
	return s.sessionID, nil
}

func (s *Syncer) adopt(session *Session, tick bool) {
	// Always clear the previous tick first so two tickers never race the
	// same display.
	s.countdown.Stop()

	s.mu.Lock()
	s.sessionID = session.ID
	s.remaining = session.RemainingSeconds
	s.stateKnown = true
	tick = tick && session.State == "running" && session.RemainingSeconds > 0
	s.ticking = tick
	s.mu.Unlock()

	if tick {
		s.countdown.Start(session.RemainingSeconds, s.onTick, s.expire)
	}
}

func (s *Syncer) expire() {
	s.mu.Lock()
	s.ticking = false
	s.remaining = 0
	s.mu.Unlock()
	if s.onExpire != nil {
		s.onExpire()
	}
}

func (s *Syncer) markUnknown() {
	s.countdown.Stop()
	s.mu.Lock()
	s.ticking = false
	s.stateKnown = false
	s.mu.Unlock()
}
