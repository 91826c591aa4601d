package model

import "time"

const (
	PhaseIdle       = "idle"
	PhaseWork       = "work"
	PhaseShortBreak = "short_break"
	PhaseLongBreak  = "long_break"
)

const (
	DefaultWorkMinutes            = 25
	DefaultShortBreakMinutes      = 5
	DefaultLongBreakMinutes       = 15
	DefaultLongBreakIntervalCycle = 4
	DefaultDailyGoalMinutes       = 120
)

// FocusPreferences is the per-user timer configuration. One row per user,
// created with defaults on first access.
type FocusPreferences struct {
	UserID                  string    `json:"userId"`
	WorkMinutes             int       `json:"workMinutes"`
	ShortBreakMinutes       int       `json:"shortBreakMinutes"`
	LongBreakMinutes        int       `json:"longBreakMinutes"`
	LongBreakIntervalCycles int       `json:"longBreakIntervalCycles"`
	DailyGoalMinutes        int       `json:"dailyGoalMinutes"`
	LastResetDate           string    `json:"lastResetDate"`
	UpdatedAt               time.Time `json:"updatedAt"`
}

// FocusSessionRecord is one completed (or explicitly ended) work block.
// Records are append-only; this subsystem never mutates or deletes them.
type FocusSessionRecord struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	StartedAt       time.Time `json:"startedAt"`
	DurationMinutes int       `json:"durationMinutes"`
	PhaseType       string    `json:"phaseType"`
	CreatedAt       time.Time `json:"createdAt"`
}

func DefaultPreferences(userID string, now time.Time) FocusPreferences {
	return FocusPreferences{
		UserID:                  userID,
		WorkMinutes:             DefaultWorkMinutes,
		ShortBreakMinutes:       DefaultShortBreakMinutes,
		LongBreakMinutes:        DefaultLongBreakMinutes,
		LongBreakIntervalCycles: DefaultLongBreakIntervalCycle,
		DailyGoalMinutes:        DefaultDailyGoalMinutes,
		LastResetDate:           now.Format("2006-01-02"),
		UpdatedAt:               now,
	}
}

// Valid reports whether all minute values are positive and the long-break
// interval is at least one cycle.
func (p FocusPreferences) Valid() bool {
	return p.WorkMinutes > 0 &&
		p.ShortBreakMinutes > 0 &&
		p.LongBreakMinutes > 0 &&
		p.LongBreakIntervalCycles >= 1 &&
		p.DailyGoalMinutes > 0
}
