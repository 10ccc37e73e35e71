package journey

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultEventBuffer = 32

// Event is a simulated reply whose delay elapsed.
type Event struct {
	ID     string
	Kind   ReplyKind
	Review int
	Epoch  uint64
	Due    time.Time
}

// Timer is the part of *time.Timer the scheduler needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it through
// StdAfterFunc; tests inject a manual clock.
type AfterFunc func(d time.Duration, f func()) Timer

// StdAfterFunc wraps time.AfterFunc.
func StdAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SchedulerOption customizes Scheduler construction.
type SchedulerOption func(*Scheduler)

// WithAfterFunc replaces the timer source.
func WithAfterFunc(fn AfterFunc) SchedulerOption {
	return func(s *Scheduler) {
		if fn != nil {
			s.afterFunc = fn
		}
	}
}

// WithSchedulerLogger routes drop diagnostics to logger.
func WithSchedulerLogger(logger *zap.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEventBuffer overrides the delivery channel capacity.
func WithEventBuffer(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.buffer = n
		}
	}
}

// Scheduler delivers simulated delayed replies on a channel. Every pending
// timer can be cancelled, and CancelAll starts a new epoch so a timer that
// already fired but has not been delivered is dropped too.
type Scheduler struct {
	mu        sync.Mutex
	timers    map[string]Timer
	events    chan Event
	epoch     uint64
	buffer    int
	closed    bool
	afterFunc AfterFunc
	logger    *zap.Logger
}

// NewScheduler constructs a scheduler backed by time.AfterFunc.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		timers:    map[string]Timer{},
		epoch:     1,
		buffer:    defaultEventBuffer,
		afterFunc: StdAfterFunc,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.events = make(chan Event, s.buffer)
	return s
}

// Events is the delivery channel. It is closed by Close.
func (s *Scheduler) Events() <-chan Event {
	return s.events
}

// After schedules ev to be delivered after d and returns its id.
func (s *Scheduler) After(d time.Duration, ev Event) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if s.closed {
		return ev.ID
	}
	ev.Epoch = s.epoch
	ev.Due = time.Now().Add(d)
	id := ev.ID
	s.timers[id] = s.afterFunc(d, func() { s.fire(ev) })
	return id
}

func (s *Scheduler) fire(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.timers[ev.ID]; !ok || s.closed {
		return
	}
	delete(s.timers, ev.ID)
	if ev.Epoch != s.epoch {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("journey: delayed event dropped, buffer full",
			zap.String("id", ev.ID),
			zap.String("kind", string(ev.Kind)),
		)
	}
}

// Cancel stops the timer for id. It reports whether the timer was pending.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[id]
	if !ok {
		return false
	}
	t.Stop()
	delete(s.timers, id)
	return true
}

// CancelAll stops every pending timer, discards undelivered events, and
// starts a new epoch. It returns the number of timers stopped.
func (s *Scheduler) CancelAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.stopAllLocked()
	s.epoch++
	for {
		select {
		case <-s.events:
			continue
		default:
		}
		break
	}
	return n
}

// Pending counts timers that have not fired.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Close stops every timer and closes the delivery channel.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.stopAllLocked()
	s.closed = true
	close(s.events)
}

func (s *Scheduler) stopAllLocked() int {
	n := 0
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
		n++
	}
	return n
}
