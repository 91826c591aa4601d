package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"focusflow/backend/internal/model"
)

type PreferencesRepository struct {
	db *sql.DB
}

func NewPreferencesRepository(db *sql.DB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

// Read returns the user's preferences, creating a default row on first access.
func (r *PreferencesRepository) Read(ctx context.Context, userID string) (*model.FocusPreferences, error) {
	prefs, err := r.get(ctx, userID)
	if err == nil {
		return prefs, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	defaults := model.DefaultPreferences(userID, time.Now().UTC())
	if err := r.insert(ctx, &defaults); err != nil {
		return nil, err
	}
	return &defaults, nil
}

func (r *PreferencesRepository) Write(ctx context.Context, userID string, prefs *model.FocusPreferences) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(
		ctx,
		`UPDATE focus_preferences
		 SET work_minutes = ?,
		     short_break_minutes = ?,
		     long_break_minutes = ?,
		     long_break_interval_cycles = ?,
		     daily_goal_minutes = ?,
		     last_reset_date = ?,
		     updated_at = ?
		 WHERE user_id = ?`,
		prefs.WorkMinutes,
		prefs.ShortBreakMinutes,
		prefs.LongBreakMinutes,
		prefs.LongBreakIntervalCycles,
		prefs.DailyGoalMinutes,
		prefs.LastResetDate,
		now.Format(time.RFC3339Nano),
		userID,
	)
	if err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("write preferences rows affected: %w", err)
	}
	if affected == 0 {
		prefs.UserID = userID
		prefs.UpdatedAt = now
		return r.insert(ctx, prefs)
	}
	return nil
}

// WriteLastResetDate records the midnight rollover without touching durations.
func (r *PreferencesRepository) WriteLastResetDate(ctx context.Context, userID, date string) error {
	_, err := r.db.ExecContext(
		ctx,
		`UPDATE focus_preferences
		 SET last_reset_date = ?, updated_at = ?
		 WHERE user_id = ?`,
		date,
		time.Now().UTC().Format(time.RFC3339Nano),
		userID,
	)
	if err != nil {
		return fmt.Errorf("write last reset date: %w", err)
	}
	return nil
}

// AllUserIDs lists every user holding a preferences row.
func (r *PreferencesRepository) AllUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM focus_preferences`)
	if err != nil {
		return nil, fmt.Errorf("list preference users: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan preference user: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate preference users: %w", err)
	}

	return ids, nil
}

func (r *PreferencesRepository) insert(ctx context.Context, prefs *model.FocusPreferences) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO focus_preferences (
			user_id, work_minutes, short_break_minutes, long_break_minutes,
			long_break_interval_cycles, daily_goal_minutes, last_reset_date, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		prefs.UserID,
		prefs.WorkMinutes,
		prefs.ShortBreakMinutes,
		prefs.LongBreakMinutes,
		prefs.LongBreakIntervalCycles,
		prefs.DailyGoalMinutes,
		prefs.LastResetDate,
		prefs.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert preferences: %w", err)
	}
	return nil
}

func (r *PreferencesRepository) get(ctx context.Context, userID string) (*model.FocusPreferences, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT user_id, work_minutes, short_break_minutes, long_break_minutes,
		        long_break_interval_cycles, daily_goal_minutes, last_reset_date, updated_at
		 FROM focus_preferences WHERE user_id = ?`,
		userID,
	)

	var prefs model.FocusPreferences
	var updatedAt string
	err := row.Scan(
		&prefs.UserID,
		&prefs.WorkMinutes,
		&prefs.ShortBreakMinutes,
		&prefs.LongBreakMinutes,
		&prefs.LongBreakIntervalCycles,
		&prefs.DailyGoalMinutes,
		&prefs.LastResetDate,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan preferences: %w", err)
	}

	parsedUpdatedAt, err := parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse preferences updated_at: %w", err)
	}
	prefs.UpdatedAt = parsedUpdatedAt
	return &prefs, nil
}
