package engine

import "time"

// EventType defines the type of engine event.
type EventType string

const (
	EventPhaseChange EventType = "phase_change"
	EventProgress    EventType = "progress"
	EventSync        EventType = "sync"
)

// Snapshot is the read-only view of the engine exposed to subscribers.
type Snapshot struct {
	Phase                string     `json:"phase"`
	RemainingSeconds     int        `json:"remainingSeconds"`
	IsPaused             bool       `json:"isPaused"`
	CompletedWorkCycles  int        `json:"completedWorkCycles"`
	UnflushedMinutes     int        `json:"unflushedMinutes"`
	BreakOverrideMinutes int        `json:"breakOverrideMinutes,omitempty"`
	LastSyncAt           *time.Time `json:"lastSyncAt,omitempty"`
}

// Event is an engine update delivered to observers after every mutation.
type Event struct {
	Type  EventType `json:"type"`
	State Snapshot  `json:"state"`
	At    time.Time `json:"at"`
}
