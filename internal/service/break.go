package service

import (
	"context"

	apperrors "focusflow/backend/internal/errors"
	"focusflow/backend/internal/model"
)

// BreakPolicy decides the rest cadence from the running count of completed
// sessions. It is a pure decision; the countdown it feeds is client-local
// and never touches a Session record.
type BreakPolicy struct {
	ShortSeconds int
	LongSeconds  int
	LongEvery    int
}

func DefaultBreakPolicy() BreakPolicy {
	return BreakPolicy{
		ShortSeconds: model.DefaultShortBreakDurationSeconds,
		LongSeconds:  model.DefaultLongBreakDurationSeconds,
		LongEvery:    model.DefaultLongBreakEvery,
	}
}

// Next returns the break that follows the given number of completed
// sessions: every LongEvery-th completion earns the long break.
func (p BreakPolicy) Next(completedCount int) model.Break {
	if completedCount > 0 && completedCount%p.LongEvery == 0 {
		return model.Break{Kind: model.BreakLong, DurationSeconds: p.LongSeconds}
	}
	return model.Break{Kind: model.BreakShort, DurationSeconds: p.ShortSeconds}
}

// NextBreak resolves the owner's upcoming break from their completed-session
// count in the store.
func (s *SessionService) NextBreak(ctx context.Context, ownerID string, policy BreakPolicy) (*model.Break, *apperrors.APIError) {
	count, err := s.store.CountCompleted(ctx, ownerID)
	if err != nil {
		return nil, apperrors.Internal("failed to count completed sessions")
	}
	next := policy.Next(count)
	return &next, nil
}
