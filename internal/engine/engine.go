package engine

import (
	"context"
	"sync"
	"time"

	"focusflow/backend/internal/model"
)

// PreferencesStore is the durable home of per-user timer configuration.
type PreferencesStore interface {
	Read(ctx context.Context, userID string) (*model.FocusPreferences, error)
	Write(ctx context.Context, userID string, prefs *model.FocusPreferences) error
	WriteLastResetDate(ctx context.Context, userID, date string) error
}

// SessionStore is the append-only record of completed focus blocks.
type SessionStore interface {
	Append(ctx context.Context, record *model.FocusSessionRecord) error
	ListForDay(ctx context.Context, userID, day string) ([]model.FocusSessionRecord, error)
	MinutesForDay(ctx context.Context, userID, day string) (int, error)
}

// Options contains runtime knobs for an Engine.
type Options struct {
	TickInterval time.Duration
	SyncInterval time.Duration
	Clock        func() time.Time
}

// Engine is the focus-session state machine for a single user. All state is
// owned here and mutated only under the mutex; persistence happens through
// the SessionStore, asynchronously, one flush in flight at a time.
type Engine struct {
	mu       sync.Mutex
	userID   string
	prefs    model.FocusPreferences
	sessions SessionStore
	opts     Options

	phase                string
	remainingSeconds     int
	completedWorkCycles  int
	unflushedSeconds     int
	paused               bool
	breakOverrideMinutes int
	lastSyncAt           *time.Time
	lastFlushCheck       time.Time

	flushInFlight bool
	flushPending  bool
	flushWG       sync.WaitGroup

	ticking bool
	stopped bool
	stopCh  chan struct{}

	subscribers map[int]chan Event
	nextSubID   int
}

// New creates an idle engine for the given user.
func New(userID string, prefs model.FocusPreferences, sessions SessionStore, opts Options) *Engine {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.SyncInterval <= 0 {
		opts.SyncInterval = time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Engine{
		userID:      userID,
		prefs:       prefs,
		sessions:    sessions,
		opts:        opts,
		phase:       model.PhaseIdle,
		subscribers: make(map[int]chan Event),
	}
}

// StartWork begins a work phase. Valid only from idle; otherwise a no-op.
func (e *Engine) StartWork() {
	e.mu.Lock()
	if e.stopped || e.phase != model.PhaseIdle {
		e.mu.Unlock()
		return
	}
	e.phase = model.PhaseWork
	e.remainingSeconds = e.prefs.WorkMinutes * 60
	e.unflushedSeconds = 0
	e.paused = false
	e.lastFlushCheck = e.opts.Clock()
	e.startTickerLocked()
	e.emitLocked(EventPhaseChange)
	e.mu.Unlock()
}

// Pause freezes the countdown. The ticker keeps firing; ticks become no-ops.
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.phase == model.PhaseIdle || e.paused {
		e.mu.Unlock()
		return
	}
	e.paused = true
	e.emitLocked(EventProgress)
	e.mu.Unlock()
}

// Resume continues the countdown from the exact remaining seconds at pause.
func (e *Engine) Resume() {
	e.mu.Lock()
	if e.phase == model.PhaseIdle || !e.paused {
		e.mu.Unlock()
		return
	}
	e.paused = false
	e.lastFlushCheck = e.opts.Clock()
	e.emitLocked(EventProgress)
	e.mu.Unlock()
}

// Reset flushes whole minutes of accrued work time, then returns to idle.
// The completed-cycle count is preserved so stopping early does not forfeit
// progress toward the long break.
func (e *Engine) Reset() {
	e.endSession()
}

// SaveAndEnd is Reset under a different caller intent ("done for now"); the
// state transition is identical.
func (e *Engine) SaveAndEnd() {
	e.endSession()
}

func (e *Engine) endSession() {
	e.mu.Lock()
	if e.phase == model.PhaseIdle {
		e.mu.Unlock()
		return
	}
	e.requestFlushLocked()
	// Sub-minute remainder is discarded here; truncation happens only at
	// flush time, and idle state carries no accumulator.
	e.phase = model.PhaseIdle
	e.remainingSeconds = 0
	e.unflushedSeconds = 0
	e.paused = false
	e.breakOverrideMinutes = 0
	e.stopTickerLocked()
	e.emitLocked(EventPhaseChange)
	e.mu.Unlock()
}

// SetBreakOverride sets a custom break length for the current session. It is
// read at each break entry and cleared by Reset and SaveAndEnd.
func (e *Engine) SetBreakOverride(minutes int) {
	e.mu.Lock()
	if minutes > 0 && e.phase != model.PhaseIdle {
		e.breakOverrideMinutes = minutes
	}
	e.mu.Unlock()
}

// UpdatePreferences replaces the engine's configuration. Durations are read
// at phase entry, so a running phase keeps its current countdown.
func (e *Engine) UpdatePreferences(prefs model.FocusPreferences) {
	e.mu.Lock()
	e.prefs = prefs
	e.emitLocked(EventProgress)
	e.mu.Unlock()
}

// Snapshot returns the current read-only view.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Subscribe registers an observer channel and returns its handle.
func (e *Engine) Subscribe(buffer int) (int, <-chan Event) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	e.mu.Lock()
	e.nextSubID++
	id := e.nextSubID
	e.subscribers[id] = ch
	e.mu.Unlock()
	return id, ch
}

// Unsubscribe removes an observer. Unknown or repeated handles are no-ops.
func (e *Engine) Unsubscribe(id int) {
	e.mu.Lock()
	ch, ok := e.subscribers[id]
	if ok {
		delete(e.subscribers, id)
	}
	e.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Stop cancels the ticker, attempts a final best-effort flush, and closes
// all observer channels. The engine accepts no operations afterwards.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	if e.phase != model.PhaseIdle {
		e.requestFlushLocked()
	}
	e.phase = model.PhaseIdle
	e.remainingSeconds = 0
	e.unflushedSeconds = 0
	e.paused = false
	e.stopTickerLocked()
	subs := e.subscribers
	e.subscribers = make(map[int]chan Event)
	e.mu.Unlock()

	for _, ch := range subs {
		close(ch)
	}
	e.flushWG.Wait()
}

func (e *Engine) startTickerLocked() {
	if e.ticking {
		return
	}
	e.ticking = true
	e.stopCh = make(chan struct{})
	go e.run(e.stopCh)
}

func (e *Engine) stopTickerLocked() {
	if !e.ticking {
		return
	}
	e.ticking = false
	close(e.stopCh)
}

func (e *Engine) run(stopCh chan struct{}) {
	ticker := time.NewTicker(e.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			e.handleTick()
		}
	}
}

// handleTick applies one tick. It never panics out; a failure here would
// stop the ticker for every future tick.
func (e *Engine) handleTick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase == model.PhaseIdle || e.paused {
		return
	}

	step := int(e.opts.TickInterval / time.Second)
	if step <= 0 {
		step = 1
	}

	e.remainingSeconds -= step
	if e.remainingSeconds < 0 {
		e.remainingSeconds = 0
	}

	if e.phase == model.PhaseWork {
		e.unflushedSeconds += step
		now := e.opts.Clock()
		if now.Sub(e.lastFlushCheck) >= e.opts.SyncInterval {
			e.lastFlushCheck = now
			e.requestFlushLocked()
		}
	}

	if e.remainingSeconds == 0 {
		e.advancePhaseLocked()
		return
	}
	e.emitLocked(EventProgress)
}

// advancePhaseLocked fires when the current phase's countdown expires.
func (e *Engine) advancePhaseLocked() {
	switch e.phase {
	case model.PhaseWork:
		e.completedWorkCycles++
		// Whole minutes flush now; any sub-minute remainder stays in the
		// accumulator across the break and seeds the next work block.
		e.requestFlushLocked()

		next := model.PhaseShortBreak
		if e.completedWorkCycles%e.prefs.LongBreakIntervalCycles == 0 {
			next = model.PhaseLongBreak
		}
		e.phase = next
		e.remainingSeconds = e.breakSecondsLocked(next)
	case model.PhaseShortBreak, model.PhaseLongBreak:
		e.phase = model.PhaseWork
		e.remainingSeconds = e.prefs.WorkMinutes * 60
		e.lastFlushCheck = e.opts.Clock()
	default:
		return
	}
	e.emitLocked(EventPhaseChange)
}

func (e *Engine) breakSecondsLocked(phase string) int {
	if e.breakOverrideMinutes > 0 {
		return e.breakOverrideMinutes * 60
	}
	if phase == model.PhaseLongBreak {
		return e.prefs.LongBreakMinutes * 60
	}
	return e.prefs.ShortBreakMinutes * 60
}

func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		Phase:                e.phase,
		RemainingSeconds:     e.remainingSeconds,
		IsPaused:             e.paused,
		CompletedWorkCycles:  e.completedWorkCycles,
		UnflushedMinutes:     e.unflushedSeconds / 60,
		BreakOverrideMinutes: e.breakOverrideMinutes,
		LastSyncAt:           e.lastSyncAt,
	}
}

func (e *Engine) emitLocked(eventType EventType) {
	event := Event{
		Type:  eventType,
		State: e.snapshotLocked(),
		At:    e.opts.Clock(),
	}
	for _, ch := range e.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
