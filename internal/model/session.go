package model

import "time"

const (
	StateRunning   = "running"
	StatePaused    = "paused"
	StateCompleted = "completed"
)

const (
	DefaultLabel                = "Pomodoro Session"
	DefaultFocusDurationSeconds = 25 * 60
	MaxPlannedDurationSeconds   = 4 * 60 * 60
)

// Session is the canonical record of one timed focus interval. All derived
// values (remaining seconds, state) are computed from its timestamps; the
// countdown itself is never stored.
type Session struct {
	ID                     string     `json:"id"`
	OwnerID                string     `json:"ownerId"`
	Label                  string     `json:"label"`
	PlannedDurationSeconds int        `json:"plannedDurationSeconds"`
	StartedAt              time.Time  `json:"startedAt"`
	PausedAt               *time.Time `json:"pausedAt,omitempty"`
	TotalPausedSeconds     int        `json:"totalPausedSeconds"`
	EndedAt                *time.Time `json:"endedAt,omitempty"`
	Completed              bool       `json:"completed"`
	CreatedAt              time.Time  `json:"createdAt"`
	UpdatedAt              time.Time  `json:"updatedAt"`
}

// State derives the lifecycle state from the timestamp fields. A session is
// in exactly one state: completed wins over paused, paused over running.
func (s *Session) State() string {
	if s.EndedAt != nil {
		return StateCompleted
	}
	if s.PausedAt != nil {
		return StatePaused
	}
	return StateRunning
}
