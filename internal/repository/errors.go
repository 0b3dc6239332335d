package repository

import "errors"

var (
	// ErrNotFound covers both a missing record and an owner mismatch; the
	// two are indistinguishable to callers so existence never leaks across
	// owners.
	ErrNotFound = errors.New("record not found")

	// ErrActiveSessionExists is returned when an insert would violate the
	// one-active-session-per-owner index.
	ErrActiveSessionExists = errors.New("owner already has an active session")

	// ErrSessionCompleted is returned when a write targets a finalized
	// session. Completed rows are immutable.
	ErrSessionCompleted = errors.New("session already completed")
)
