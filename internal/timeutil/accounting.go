// Package timeutil holds the pure time accounting behind the session
// countdown. Remaining time is always re-derived from persisted wall-clock
// timestamps; nothing in here reads the clock or touches storage.
package timeutil

import "time"

// RemainingSeconds computes the floored seconds left on a session at the
// given instant, clamped to zero. While paused, the current pause interval is
// excluded so the value holds still.
func RemainingSeconds(startedAt time.Time, pausedAt *time.Time, totalPausedSeconds, plannedDurationSeconds int, now time.Time) int {
	elapsed := int(now.Sub(startedAt).Seconds()) - totalPausedSeconds
	if pausedAt != nil {
		elapsed -= PauseElapsedSeconds(*pausedAt, now)
	}
	remaining := plannedDurationSeconds - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// PauseElapsedSeconds is the floored length of the pause that began at
// pausedAt, as of now. This is the amount folded into totalPausedSeconds when
// a pause ends.
func PauseElapsedSeconds(pausedAt, now time.Time) int {
	elapsed := int(now.Sub(pausedAt).Seconds())
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// FocusedSeconds is the focus time actually spent on a finished session:
// wall time minus accumulated pauses, capped at the plan.
func FocusedSeconds(startedAt, endedAt time.Time, totalPausedSeconds, plannedDurationSeconds int) int {
	focused := int(endedAt.Sub(startedAt).Seconds()) - totalPausedSeconds
	if focused < 0 {
		return 0
	}
	if focused > plannedDurationSeconds {
		return plannedDurationSeconds
	}
	return focused
}

// Deadline is the instant a running session naturally expires given its
// accumulated pauses so far.
func Deadline(startedAt time.Time, totalPausedSeconds, plannedDurationSeconds int) time.Time {
	return startedAt.Add(time.Duration(plannedDurationSeconds+totalPausedSeconds) * time.Second)
}

// StartOfDay returns local midnight for the day containing t, the boundary
// used by the completed-today queries.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
