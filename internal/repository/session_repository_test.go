package repository_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"

	"focusflow/backend/internal/db"
	"focusflow/backend/internal/model"
	"focusflow/backend/internal/repository"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsDir := filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
	if err := db.RunMigrations(database, migrationsDir); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return database
}

func createUser(t *testing.T, database *sql.DB) string {
	t.Helper()
	userRepo := repository.NewUserRepository(database)
	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := userRepo.Create(context.Background(), &user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user.ID
}

func TestPreferencesReadCreatesDefaults(t *testing.T) {
	database := setupDB(t)
	userID := createUser(t, database)
	repo := repository.NewPreferencesRepository(database)
	ctx := context.Background()

	prefs, err := repo.Read(ctx, userID)
	if err != nil {
		t.Fatalf("read preferences: %v", err)
	}
	if prefs.WorkMinutes != model.DefaultWorkMinutes {
		t.Fatalf("expected default work minutes, got %d", prefs.WorkMinutes)
	}
	if prefs.LongBreakIntervalCycles != model.DefaultLongBreakIntervalCycle {
		t.Fatalf("expected default interval, got %d", prefs.LongBreakIntervalCycles)
	}

	prefs.WorkMinutes = 50
	if err := repo.Write(ctx, userID, prefs); err != nil {
		t.Fatalf("write preferences: %v", err)
	}

	reread, err := repo.Read(ctx, userID)
	if err != nil {
		t.Fatalf("reread preferences: %v", err)
	}
	if reread.WorkMinutes != 50 {
		t.Fatalf("expected persisted work minutes 50, got %d", reread.WorkMinutes)
	}
}

func TestPreferencesLastResetDate(t *testing.T) {
	database := setupDB(t)
	userID := createUser(t, database)
	repo := repository.NewPreferencesRepository(database)
	ctx := context.Background()

	if _, err := repo.Read(ctx, userID); err != nil {
		t.Fatalf("read preferences: %v", err)
	}
	if err := repo.WriteLastResetDate(ctx, userID, "2026-08-28"); err != nil {
		t.Fatalf("write last reset date: %v", err)
	}

	prefs, err := repo.Read(ctx, userID)
	if err != nil {
		t.Fatalf("reread preferences: %v", err)
	}
	if prefs.LastResetDate != "2026-08-28" {
		t.Fatalf("expected updated reset date, got %s", prefs.LastResetDate)
	}

	ids, err := repo.AllUserIDs(ctx)
	if err != nil {
		t.Fatalf("list user ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != userID {
		t.Fatalf("unexpected user ids: %v", ids)
	}
}

func TestSessionAppendAndDayQueries(t *testing.T) {
	database := setupDB(t)
	userID := createUser(t, database)
	otherID := createUser(t, database)
	repo := repository.NewSessionRepository(database)
	ctx := context.Background()

	day := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	records := []model.FocusSessionRecord{
		{ID: uuid.NewString(), UserID: userID, StartedAt: day, DurationMinutes: 25, PhaseType: model.PhaseWork, CreatedAt: day},
		{ID: uuid.NewString(), UserID: userID, StartedAt: day.Add(2 * time.Hour), DurationMinutes: 5, PhaseType: model.PhaseWork, CreatedAt: day.Add(2 * time.Hour)},
		{ID: uuid.NewString(), UserID: userID, StartedAt: day.AddDate(0, 0, -1), DurationMinutes: 40, PhaseType: model.PhaseWork, CreatedAt: day.AddDate(0, 0, -1)},
		{ID: uuid.NewString(), UserID: otherID, StartedAt: day, DurationMinutes: 15, PhaseType: model.PhaseWork, CreatedAt: day},
	}
	for i := range records {
		if err := repo.Append(ctx, &records[i]); err != nil {
			t.Fatalf("append session: %v", err)
		}
	}

	listed, err := repo.ListForDay(ctx, userID, "2026-08-27")
	if err != nil {
		t.Fatalf("list for day: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 records for the day, got %d", len(listed))
	}
	if listed[0].DurationMinutes != 5 {
		t.Fatalf("expected most recent first, got %+v", listed[0])
	}

	minutes, err := repo.MinutesForDay(ctx, userID, "2026-08-27")
	if err != nil {
		t.Fatalf("minutes for day: %v", err)
	}
	if minutes != 30 {
		t.Fatalf("expected 30 minutes, got %d", minutes)
	}

	minutes, err = repo.MinutesForDay(ctx, userID, "2026-08-29")
	if err != nil {
		t.Fatalf("minutes for empty day: %v", err)
	}
	if minutes != 0 {
		t.Fatalf("expected 0 minutes for empty day, got %d", minutes)
	}
}
