package service

import (
	"context"
	"log"
	"sync"
	"time"

	"focusflow/backend/internal/engine"
	apperrors "focusflow/backend/internal/errors"
	"focusflow/backend/internal/model"
)

// PreferencesDirectory is the preferences adapter plus the user listing the
// midnight rollover needs.
type PreferencesDirectory interface {
	engine.PreferencesStore
	AllUserIDs(ctx context.Context) ([]string, error)
}

// FocusService owns one timer engine per user. Engines are created lazily
// from the user's stored preferences and live for the rest of the process;
// repeated lookups return the same instance.
type FocusService struct {
	prefsRepo   PreferencesDirectory
	sessionRepo engine.SessionStore
	opts        engine.Options

	mu      sync.Mutex
	engines map[string]*engine.Engine
}

// TodayView reports persisted plus in-memory minutes against the daily goal.
type TodayView struct {
	Date             string `json:"date"`
	LoggedMinutes    int    `json:"loggedMinutes"`
	UnflushedMinutes int    `json:"unflushedMinutes"`
	TotalMinutes     int    `json:"totalMinutes"`
	GoalMinutes      int    `json:"goalMinutes"`
}

type UpdateSettingsInput struct {
	WorkMinutes             int
	ShortBreakMinutes       int
	LongBreakMinutes        int
	LongBreakIntervalCycles int
	DailyGoalMinutes        int
}

func NewFocusService(
	prefsRepo PreferencesDirectory,
	sessionRepo engine.SessionStore,
	opts engine.Options,
) *FocusService {
	return &FocusService{
		prefsRepo:   prefsRepo,
		sessionRepo: sessionRepo,
		opts:        opts,
		engines:     make(map[string]*engine.Engine),
	}
}

func (s *FocusService) engineFor(ctx context.Context, userID string) (*engine.Engine, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if eng, ok := s.engines[userID]; ok {
		return eng, nil
	}

	prefs, err := s.prefsRepo.Read(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to read focus preferences")
	}

	eng := engine.New(userID, *prefs, s.sessionRepo, s.opts)
	s.engines[userID] = eng
	return eng, nil
}

// Command runs one engine operation and returns the resulting snapshot.
// Invalid transitions are no-ops inside the engine, so every command
// succeeds from the caller's point of view.
func (s *FocusService) Command(ctx context.Context, userID, command string) (*engine.Snapshot, *apperrors.APIError) {
	eng, apiErr := s.engineFor(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	switch command {
	case "start":
		eng.StartWork()
	case "pause":
		eng.Pause()
	case "resume":
		eng.Resume()
	case "reset":
		eng.Reset()
	case "end":
		eng.SaveAndEnd()
	default:
		return nil, apperrors.BadRequest("invalid_command", "unknown focus command")
	}

	snapshot := eng.Snapshot()
	return &snapshot, nil
}

func (s *FocusService) State(ctx context.Context, userID string) (*engine.Snapshot, *apperrors.APIError) {
	eng, apiErr := s.engineFor(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	snapshot := eng.Snapshot()
	return &snapshot, nil
}

func (s *FocusService) SetBreakOverride(ctx context.Context, userID string, minutes int) (*engine.Snapshot, *apperrors.APIError) {
	if minutes <= 0 {
		return nil, apperrors.BadRequest("invalid_minutes", "break minutes must be positive")
	}

	eng, apiErr := s.engineFor(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	eng.SetBreakOverride(minutes)
	snapshot := eng.Snapshot()
	return &snapshot, nil
}

func (s *FocusService) UpdateSettings(ctx context.Context, userID string, input UpdateSettingsInput) (*model.FocusPreferences, *apperrors.APIError) {
	prefs, err := s.prefsRepo.Read(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to read focus preferences")
	}

	prefs.WorkMinutes = input.WorkMinutes
	prefs.ShortBreakMinutes = input.ShortBreakMinutes
	prefs.LongBreakMinutes = input.LongBreakMinutes
	prefs.LongBreakIntervalCycles = input.LongBreakIntervalCycles
	prefs.DailyGoalMinutes = input.DailyGoalMinutes

	if !prefs.Valid() {
		return nil, apperrors.BadRequest(
			"invalid_settings",
			"minutes must be positive and long break interval at least 1",
		)
	}

	if err := s.prefsRepo.Write(ctx, userID, prefs); err != nil {
		return nil, apperrors.Internal("failed to write focus preferences")
	}

	s.mu.Lock()
	eng, ok := s.engines[userID]
	s.mu.Unlock()
	if ok {
		eng.UpdatePreferences(*prefs)
	}

	return prefs, nil
}

func (s *FocusService) History(ctx context.Context, userID, day string) ([]model.FocusSessionRecord, *apperrors.APIError) {
	records, err := s.sessionRepo.ListForDay(ctx, userID, day)
	if err != nil {
		return nil, apperrors.Internal("failed to list focus sessions")
	}
	return records, nil
}

func (s *FocusService) Today(ctx context.Context, userID string) (*TodayView, *apperrors.APIError) {
	day := time.Now().UTC().Format("2006-01-02")

	logged, err := s.sessionRepo.MinutesForDay(ctx, userID, day)
	if err != nil {
		return nil, apperrors.Internal("failed to sum focus minutes")
	}

	prefs, err := s.prefsRepo.Read(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to read focus preferences")
	}

	eng, apiErr := s.engineFor(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	snapshot := eng.Snapshot()

	return &TodayView{
		Date:             day,
		LoggedMinutes:    logged,
		UnflushedMinutes: snapshot.UnflushedMinutes,
		TotalMinutes:     logged + snapshot.UnflushedMinutes,
		GoalMinutes:      prefs.DailyGoalMinutes,
	}, nil
}

// Subscribe attaches an observer to the user's engine for the event stream.
func (s *FocusService) Subscribe(ctx context.Context, userID string) (int, <-chan engine.Event, *apperrors.APIError) {
	eng, apiErr := s.engineFor(ctx, userID)
	if apiErr != nil {
		return 0, nil, apiErr
	}
	handle, ch := eng.Subscribe(16)
	return handle, ch, nil
}

func (s *FocusService) Unsubscribe(userID string, handle int) {
	s.mu.Lock()
	eng, ok := s.engines[userID]
	s.mu.Unlock()
	if ok {
		eng.Unsubscribe(handle)
	}
}

// MarkDayRollover writes the new date into every user's preferences. Wired
// to the midnight scheduler; it never touches cycle counts or running
// engines.
func (s *FocusService) MarkDayRollover(date string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	userIDs, err := s.prefsRepo.AllUserIDs(ctx)
	if err != nil {
		log.Printf("focus service: day rollover user listing failed: %v", err)
		return
	}

	for _, userID := range userIDs {
		if err := s.prefsRepo.WriteLastResetDate(ctx, userID, date); err != nil {
			log.Printf("focus service: day rollover failed for user %s: %v", userID, err)
		}
	}
}

// StopAll shuts down every engine with a final best-effort flush.
func (s *FocusService) StopAll() {
	s.mu.Lock()
	engines := make([]*engine.Engine, 0, len(s.engines))
	for _, eng := range s.engines {
		engines = append(engines, eng)
	}
	s.engines = make(map[string]*engine.Engine)
	s.mu.Unlock()

	for _, eng := range engines {
		eng.Stop()
	}
}
