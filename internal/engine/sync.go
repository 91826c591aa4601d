package engine

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"focusflow/backend/internal/model"
)

// requestFlushLocked converts whole minutes of the accumulator into a durable
// session record. The write runs off the tick path; only one flush is in
// flight at a time, and a trigger arriving mid-flight is deferred, not
// duplicated. The accumulator is debited only after the write succeeds, so a
// failed flush retries later with the cumulative total.
func (e *Engine) requestFlushLocked() {
	if e.unflushedSeconds < 60 {
		return
	}
	if e.flushInFlight {
		e.flushPending = true
		return
	}

	now := e.opts.Clock()
	minutes := e.unflushedSeconds / 60
	record := &model.FocusSessionRecord{
		ID:              uuid.NewString(),
		UserID:          e.userID,
		StartedAt:       now.Add(-time.Duration(minutes) * time.Minute),
		DurationMinutes: minutes,
		PhaseType:       model.PhaseWork,
		CreatedAt:       now,
	}

	e.flushInFlight = true
	e.flushWG.Add(1)
	go func() {
		err := e.sessions.Append(context.Background(), record)
		e.completeFlush(minutes*60, now, err)
		e.flushWG.Done()
	}()
}

// completeFlush applies a flush result back onto the engine state.
func (e *Engine) completeFlush(flushedSeconds int, at time.Time, err error) {
	e.mu.Lock()
	e.flushInFlight = false

	if err != nil {
		// Accumulator untouched: the next trigger retries with the larger
		// total. The UI only sees lastSyncAt not advancing.
		log.Printf("focus engine: flush failed for user %s: %v", e.userID, err)
	} else {
		e.unflushedSeconds -= flushedSeconds
		if e.unflushedSeconds < 0 {
			e.unflushedSeconds = 0
		}
		syncedAt := at
		e.lastSyncAt = &syncedAt
		e.emitLocked(EventSync)
	}

	if e.flushPending {
		e.flushPending = false
		e.requestFlushLocked()
	}
	e.mu.Unlock()
}
