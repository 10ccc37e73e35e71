package journey

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kingrea/selection-journey/internal/eventbridge"
)

// StoreOption customizes Store construction.
type StoreOption func(*Store)

// WithLogger routes store diagnostics to logger.
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSeed applies fn to the defaults at construction and on every reset,
// e.g. to fill the panel rosters from a scenario.
func WithSeed(fn func(*Signals)) StoreOption {
	return func(s *Store) {
		s.seed = fn
	}
}

// WithRouter publishes change notifications on router instead of a private one.
func WithRouter(router *eventbridge.Router) StoreOption {
	return func(s *Store) {
		if router != nil {
			s.router = router
		}
	}
}

// Change describes one committed transition.
type Change struct {
	Version  uint64
	Epoch    uint64
	Reason   string
	Signals  []string
	Restored []Name
}

// Store owns every durable signal of a session. All writes go through
// Update, which applies a mutation to a private copy and publishes it as a
// single version so no reader ever sees half of a compound change.
type Store struct {
	mu         sync.RWMutex
	signals    Signals
	version    uint64
	epoch      uint64
	violations int
	seed       func(*Signals)
	logger     *zap.Logger
	router     *eventbridge.Router
}

// NewStore constructs a store holding the default signals.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		logger: zap.NewNop(),
		epoch:  1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.router == nil {
		s.router = eventbridge.NewRouter(eventbridge.RouterWithLogger(s.logger))
	}
	s.signals = s.initial()
	return s
}

func (s *Store) initial() Signals {
	signals := DefaultSignals()
	if s.seed != nil {
		s.seed(&signals)
	}
	return signals
}

// Snapshot returns a deep copy of the current signals.
func (s *Store) Snapshot() Signals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signals.Clone()
}

// Version is the number of committed transitions since construction.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Epoch identifies the current session; it changes on every reset.
func (s *Store) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Violations counts monotonic regressions the store had to revert.
func (s *Store) Violations() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.violations
}

// Tracker returns the stage view of this store.
func (s *Store) Tracker() *Tracker {
	return &Tracker{store: s}
}

// Update applies fn to a copy of the signals and commits the copy as one
// version. When fn returns an error nothing is committed. Monotonic signals
// that fn moved backward are restored and reported in Change.Restored.
// An update that changes nothing does not bump the version.
func (s *Store) Update(reason string, fn func(*Signals) error) (Change, error) {
	if fn == nil {
		return Change{}, fmt.Errorf("journey: update %q: nil mutation", reason)
	}
	s.mu.Lock()
	prev := s.signals
	next := prev.Clone()
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return Change{}, err
	}
	restored := pinMonotonic(&prev, &next)
	names := changedNames(&prev, &next)
	change := Change{
		Version:  s.version,
		Epoch:    s.epoch,
		Reason:   reason,
		Signals:  names,
		Restored: restored,
	}
	if len(names) == 0 && len(restored) == 0 {
		s.mu.Unlock()
		return change, nil
	}
	s.version++
	change.Version = s.version
	s.violations += len(restored)
	s.signals = next
	s.mu.Unlock()

	for _, name := range restored {
		s.logger.Warn("journey: monotonic signal regression reverted",
			zap.String("signal", string(name)),
			zap.String("reason", reason),
		)
	}
	if len(restored) > 0 {
		s.publish(eventbridge.KindViolation, change)
	}
	if len(names) > 0 {
		s.logger.Debug("journey: signals changed",
			zap.Uint64("version", change.Version),
			zap.String("reason", reason),
			zap.Strings("signals", names),
		)
		s.publish(eventbridge.KindSignalsChanged, change)
	}
	return change, nil
}

// Get returns the value of a named signal. It never fails: unknown names
// yield nil and a warning.
func (s *Store) Get(name Name) any {
	e, ok := lookup(name)
	if !ok {
		s.logger.Warn("journey: read of unknown signal", zap.String("signal", string(name)))
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return e.get(&s.signals)
}

// Set overwrites one named signal. Compound signals take their whole value.
func (s *Store) Set(name Name, value any) error {
	e, ok := lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSignal, name)
	}
	if e.set == nil {
		return fmt.Errorf("%w: %s", ErrReadOnly, name)
	}
	_, err := s.Update("set "+string(name), func(sig *Signals) error {
		return e.set(sig, value)
	})
	return err
}

// Subscribe returns a feed of change notifications.
func (s *Store) Subscribe() eventbridge.Subscription {
	return s.router.Subscribe(eventbridge.TopicSignals)
}

// Reset returns every signal to its default and starts a new epoch.
func (s *Store) Reset() {
	s.mu.Lock()
	s.signals = s.initial()
	s.version++
	s.epoch++
	s.violations = 0
	change := Change{Version: s.version, Epoch: s.epoch, Reason: "reset"}
	s.mu.Unlock()

	s.router.Drain()
	s.logger.Info("journey: session reset", zap.Uint64("epoch", change.Epoch))
	s.publish(eventbridge.KindSessionReset, change)
}

func (s *Store) publish(kind string, change Change) {
	s.router.Route(eventbridge.Event{
		ID:      uuid.NewString(),
		Topic:   eventbridge.TopicSignals,
		Kind:    kind,
		Version: change.Version,
		Epoch:   change.Epoch,
		Signals: change.Signals,
		Reason:  change.Reason,
	})
}
