package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"focusflow/backend/internal/model"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, owner_id, label, planned_duration_seconds,
	        started_at, paused_at, total_paused_seconds,
	        ended_at, completed, created_at, updated_at`

// CreateActive inserts a new running session. The partial unique index on
// (owner_id) WHERE ended_at IS NULL enforces at most one active session per
// owner; a violation surfaces as ErrActiveSessionExists.
func (r *SessionRepository) CreateActive(ctx context.Context, session *model.Session) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO sessions (
			id, owner_id, label, planned_duration_seconds,
			started_at, paused_at, total_paused_seconds,
			ended_at, completed, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.OwnerID,
		session.Label,
		session.PlannedDurationSeconds,
		formatTime(session.StartedAt),
		formatTimePtr(session.PausedAt),
		session.TotalPausedSeconds,
		formatTimePtr(session.EndedAt),
		boolToInt(session.Completed),
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrActiveSessionExists
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) FindActive(ctx context.Context, ownerID string) (*model.Session, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions
		 WHERE owner_id = ? AND ended_at IS NULL`,
		ownerID,
	)
	return scanSession(row)
}

func (r *SessionRepository) FindByID(ctx context.Context, ownerID, id string) (*model.Session, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions
		 WHERE id = ? AND owner_id = ?`,
		id,
		ownerID,
	)
	return scanSession(row)
}

// Save persists a state transition. The completed = 0 guard makes finalized
// rows immutable at the SQL level: a write that lost the race against a stop
// comes back as ErrSessionCompleted instead of silently overwriting it.
func (r *SessionRepository) Save(ctx context.Context, session *model.Session) error {
	result, err := r.db.ExecContext(
		ctx,
		`UPDATE sessions
		 SET label = ?,
		     started_at = ?,
		     paused_at = ?,
		     total_paused_seconds = ?,
		     ended_at = ?,
		     completed = ?,
		     updated_at = ?
		 WHERE id = ? AND owner_id = ? AND completed = 0`,
		session.Label,
		formatTime(session.StartedAt),
		formatTimePtr(session.PausedAt),
		session.TotalPausedSeconds,
		formatTimePtr(session.EndedAt),
		boolToInt(session.Completed),
		formatTime(session.UpdatedAt),
		session.ID,
		session.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save session rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var completed int
	err = r.db.QueryRowContext(
		ctx,
		`SELECT completed FROM sessions WHERE id = ? AND owner_id = ?`,
		session.ID,
		session.OwnerID,
	).Scan(&completed)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("save session recheck: %w", err)
	}
	return ErrSessionCompleted
}

func (r *SessionRepository) ListRecent(ctx context.Context, ownerID string, limit int) ([]model.Session, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions
		 WHERE owner_id = ?
		 ORDER BY started_at DESC
		 LIMIT ?`,
		ownerID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	return collectSessions(rows, limit)
}

// ListCompletedToday returns completed sessions whose end falls inside
// [dayStart, dayEnd), the local-midnight window computed by the caller.
func (r *SessionRepository) ListCompletedToday(ctx context.Context, ownerID string, dayStart, dayEnd time.Time) ([]model.Session, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions
		 WHERE owner_id = ?
		   AND completed = 1
		   AND ended_at >= ?
		   AND ended_at < ?
		 ORDER BY ended_at DESC`,
		ownerID,
		formatTime(dayStart),
		formatTime(dayEnd),
	)
	if err != nil {
		return nil, fmt.Errorf("list completed today: %w", err)
	}
	defer rows.Close()

	return collectSessions(rows, 0)
}

func (r *SessionRepository) CountCompleted(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM sessions WHERE owner_id = ? AND completed = 1`,
		ownerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count completed sessions: %w", err)
	}
	return count, nil
}

func collectSessions(rows *sql.Rows, sizeHint int) ([]model.Session, error) {
	sessions := make([]model.Session, 0, sizeHint)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(s scanner) (*model.Session, error) {
	session := model.Session{}
	var startedAt string
	var pausedAt sql.NullString
	var endedAt sql.NullString
	var completed int
	var createdAt string
	var updatedAt string
	err := s.Scan(
		&session.ID,
		&session.OwnerID,
		&session.Label,
		&session.PlannedDurationSeconds,
		&startedAt,
		&pausedAt,
		&session.TotalPausedSeconds,
		&endedAt,
		&completed,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	session.Completed = completed != 0

	parsedStartedAt, err := parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse session started_at: %w", err)
	}
	session.StartedAt = parsedStartedAt

	if pausedAt.Valid {
		parsedPausedAt, parseErr := parseTime(pausedAt.String)
		if parseErr != nil {
			return nil, fmt.Errorf("parse session paused_at: %w", parseErr)
		}
		session.PausedAt = &parsedPausedAt
	}

	if endedAt.Valid {
		parsedEndedAt, parseErr := parseTime(endedAt.String)
		if parseErr != nil {
			return nil, fmt.Errorf("parse session ended_at: %w", parseErr)
		}
		session.EndedAt = &parsedEndedAt
	}

	parsedCreatedAt, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse session created_at: %w", err)
	}
	session.CreatedAt = parsedCreatedAt

	parsedUpdatedAt, err := parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse session updated_at: %w", err)
	}
	session.UpdatedAt = parsedUpdatedAt

	return &session, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
