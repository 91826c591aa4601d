package engine

import (
	"log"
	"sync"
	"time"
)

// MidnightScheduler fires once per local midnight and recomputes the next
// boundary after each run. It only marks the day boundary; it never resets
// cycle counts or interrupts a running session. Start and Stop are
// idempotent, so the process needs no global guard flag beyond owning a
// single instance.
type MidnightScheduler struct {
	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	clock    func() time.Time
	rollover func(date string)
}

// NewMidnightScheduler creates a scheduler that invokes rollover with the
// new local date (2006-01-02) after each midnight crossing.
func NewMidnightScheduler(clock func() time.Time, rollover func(date string)) *MidnightScheduler {
	if clock == nil {
		clock = time.Now
	}
	return &MidnightScheduler{
		clock:    clock,
		rollover: rollover,
	}
}

// Start launches the scheduler loop. A second Start is ignored, not queued.
func (s *MidnightScheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	go s.run(stopCh)
}

// Stop terminates the scheduler loop.
func (s *MidnightScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()
}

func (s *MidnightScheduler) run(stopCh chan struct{}) {
	for {
		now := s.clock()
		next := nextMidnight(now)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
			date := next.Format("2006-01-02")
			log.Printf("focus engine: day rollover to %s", date)
			s.rollover(date)
		}
	}
}

func nextMidnight(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}
