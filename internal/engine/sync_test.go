package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"focusflow/backend/internal/model"
)

// blockingStore holds every Append until the gate opens.
type blockingStore struct {
	fakeSessionStore
	gate     chan struct{}
	gateOnce sync.Once
}

func newBlockingStore() *blockingStore {
	return &blockingStore{gate: make(chan struct{})}
}

func (s *blockingStore) Append(ctx context.Context, record *model.FocusSessionRecord) error {
	<-s.gate
	return s.fakeSessionStore.Append(ctx, record)
}

func (s *blockingStore) release() {
	s.gateOnce.Do(func() { close(s.gate) })
}

func TestIntervalFlushDebitsExactlyWholeMinutes(t *testing.T) {
	eng, store, clock := newTestEngine(t, testPrefs())
	startWorkQuiet(eng)

	tick(eng, 130)
	clock.Advance(3 * time.Minute)
	tick(eng, 1)
	eng.flushWG.Wait()

	records := store.all()
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	if records[0].DurationMinutes != 2 {
		t.Fatalf("expected 2 whole minutes flushed, got %d", records[0].DurationMinutes)
	}

	eng.mu.Lock()
	unflushed := eng.unflushedSeconds
	lastSync := eng.lastSyncAt
	eng.mu.Unlock()
	if unflushed != 11 {
		t.Fatalf("expected 131-120=11s left in accumulator, got %d", unflushed)
	}
	if lastSync == nil {
		t.Fatal("successful flush must set lastSyncAt")
	}
}

func TestIntervalFlushNeedsAtLeastOneMinuteAccrued(t *testing.T) {
	eng, store, clock := newTestEngine(t, testPrefs())
	startWorkQuiet(eng)

	tick(eng, 30)
	clock.Advance(3 * time.Minute)
	tick(eng, 1)
	eng.flushWG.Wait()

	if len(store.all()) != 0 {
		t.Fatal("sub-minute accumulator must not flush")
	}
}

func TestFailedFlushKeepsStalenessVisible(t *testing.T) {
	eng, store, clock := newTestEngine(t, testPrefs())
	startWorkQuiet(eng)
	store.setFailing(true)

	tick(eng, 70)
	clock.Advance(2 * time.Minute)
	tick(eng, 1)
	eng.flushWG.Wait()

	eng.mu.Lock()
	unflushed := eng.unflushedSeconds
	lastSync := eng.lastSyncAt
	eng.mu.Unlock()
	if unflushed != 71 {
		t.Fatalf("failed flush must leave the accumulator unchanged, got %d", unflushed)
	}
	if lastSync != nil {
		t.Fatal("failed flush must not advance lastSyncAt")
	}

	// Retry persists the cumulative total, not the failed increment.
	store.setFailing(false)
	tick(eng, 60)
	clock.Advance(2 * time.Minute)
	tick(eng, 1)
	eng.flushWG.Wait()

	records := store.all()
	if len(records) != 1 {
		t.Fatalf("expected one record after retry, got %d", len(records))
	}
	if records[0].DurationMinutes != 2 {
		t.Fatalf("expected cumulative 2 minutes, got %d", records[0].DurationMinutes)
	}
}

func TestSecondFlushDefersWhileOneIsInFlight(t *testing.T) {
	store := newBlockingStore()
	clock := newFakeClock(time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC))
	eng := New("user-1", testPrefs(), store, Options{
		TickInterval: time.Second,
		SyncInterval: time.Minute,
		Clock:        clock.Now,
	})
	t.Cleanup(func() {
		store.release()
		eng.Stop()
	})
	startWorkQuiet(eng)

	tick(eng, 70)
	clock.Advance(2 * time.Minute)
	tick(eng, 1) // first flush dispatched, blocked in the store

	tick(eng, 60)
	clock.Advance(2 * time.Minute)
	tick(eng, 1) // second trigger must defer, not duplicate

	eng.mu.Lock()
	pending := eng.flushPending
	eng.mu.Unlock()
	if !pending {
		t.Fatal("expected deferred flush while one is in flight")
	}

	store.release()
	eng.flushWG.Wait()

	records := store.all()
	if len(records) != 2 {
		t.Fatalf("expected blocked flush plus deferred flush, got %d records", len(records))
	}
	if records[0].DurationMinutes != 1 || records[1].DurationMinutes != 1 {
		t.Fatalf("unexpected durations: %+v", records)
	}

	eng.mu.Lock()
	unflushed := eng.unflushedSeconds
	eng.mu.Unlock()
	if unflushed != 12 {
		t.Fatalf("expected 132-120=12s left, got %d", unflushed)
	}
}

func TestFlushRecordShape(t *testing.T) {
	eng, store, clock := newTestEngine(t, testPrefs())
	startWorkQuiet(eng)

	tick(eng, 120)
	clock.Advance(2 * time.Minute)
	tick(eng, 1)
	eng.flushWG.Wait()

	records := store.all()
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	record := records[0]
	if record.ID == "" || record.UserID != "user-1" {
		t.Fatalf("unexpected identity fields: %+v", record)
	}
	if record.PhaseType != model.PhaseWork {
		t.Fatalf("flush must log work time only, got %s", record.PhaseType)
	}
	wantStart := record.CreatedAt.Add(-2 * time.Minute)
	if !record.StartedAt.Equal(wantStart) {
		t.Fatalf("startedAt must back-date by the flushed minutes: %+v", record)
	}
}
