package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"focusflow/backend/internal/model"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Append inserts one completed focus block. Records are never updated or
// deleted here.
func (r *SessionRepository) Append(ctx context.Context, record *model.FocusSessionRecord) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO focus_sessions (
			id, user_id, started_at, duration_minutes, phase_type, created_at
		) VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.UserID,
		record.StartedAt.UTC().Format(time.RFC3339Nano),
		record.DurationMinutes,
		record.PhaseType,
		record.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append session: %w", err)
	}
	return nil
}

// ListForDay returns the user's records whose started_at falls on the given
// UTC day (format 2006-01-02), most recent first.
func (r *SessionRepository) ListForDay(ctx context.Context, userID, day string) ([]model.FocusSessionRecord, error) {
	start, end, err := dayBounds(day)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, user_id, started_at, duration_minutes, phase_type, created_at
		 FROM focus_sessions
		 WHERE user_id = ? AND started_at >= ? AND started_at < ?
		 ORDER BY started_at DESC`,
		userID,
		start,
		end,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions for day: %w", err)
	}
	defer rows.Close()

	records := make([]model.FocusSessionRecord, 0)
	for rows.Next() {
		record, scanErr := scanSessionRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return records, nil
}

// MinutesForDay sums the persisted work minutes for the given UTC day.
func (r *SessionRepository) MinutesForDay(ctx context.Context, userID, day string) (int, error) {
	start, end, err := dayBounds(day)
	if err != nil {
		return 0, err
	}

	var minutes sql.NullInt64
	err = r.db.QueryRowContext(
		ctx,
		`SELECT SUM(duration_minutes)
		 FROM focus_sessions
		 WHERE user_id = ? AND phase_type = ? AND started_at >= ? AND started_at < ?`,
		userID,
		model.PhaseWork,
		start,
		end,
	).Scan(&minutes)
	if err != nil {
		return 0, fmt.Errorf("sum minutes for day: %w", err)
	}
	if !minutes.Valid {
		return 0, nil
	}
	return int(minutes.Int64), nil
}

// dayBounds converts a 2006-01-02 day into a half-open RFC3339 range so the
// string comparison in SQL matches every timestamp precision we store.
func dayBounds(day string) (string, string, error) {
	parsed, err := time.Parse("2006-01-02", day)
	if err != nil {
		return "", "", fmt.Errorf("parse day %q: %w", day, err)
	}
	start := parsed.UTC().Format(time.RFC3339Nano)
	end := parsed.UTC().AddDate(0, 0, 1).Format(time.RFC3339Nano)
	return start, end, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSessionRecord(s scanner) (*model.FocusSessionRecord, error) {
	record := model.FocusSessionRecord{}
	var startedAt string
	var createdAt string
	err := s.Scan(
		&record.ID,
		&record.UserID,
		&startedAt,
		&record.DurationMinutes,
		&record.PhaseType,
		&createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	parsedStartedAt, err := parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse session started_at: %w", err)
	}
	record.StartedAt = parsedStartedAt

	parsedCreatedAt, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse session created_at: %w", err)
	}
	record.CreatedAt = parsedCreatedAt

	return &record, nil
}
