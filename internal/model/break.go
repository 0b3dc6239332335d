package model

const (
	BreakShort = "short"
	BreakLong  = "long"
)

const (
	DefaultShortBreakDurationSeconds = 5 * 60
	DefaultLongBreakDurationSeconds  = 15 * 60
	DefaultLongBreakEvery            = 3
)

// Break is derived from the completed-session count and never persisted.
type Break struct {
	Kind            string `json:"kind"`
	DurationSeconds int    `json:"durationSeconds"`
}
