// Package journey holds the selection journey's state machine: the signal
// store, the stage tracker, the priority-ordered router, the out-of-band
// navigation channel, and the scheduler for simulated delayed replies.
package journey

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Option customizes Journey construction.
type Option func(*Journey)

// WithJourneyLogger routes journey diagnostics to logger.
func WithJourneyLogger(logger *zap.Logger) Option {
	return func(j *Journey) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// Journey ties the store, router, and navigation channel together.
type Journey struct {
	mu     sync.Mutex
	store  *Store
	router *Router
	nav    *Channel
	logger *zap.Logger
}

// New validates dependencies and constructs a Journey.
func New(store *Store, router *Router, nav *Channel, opts ...Option) (*Journey, error) {
	if store == nil {
		return nil, errors.New("journey: store is required")
	}
	if router == nil {
		return nil, errors.New("journey: router is required")
	}
	if nav == nil {
		return nil, errors.New("journey: navigation channel is required")
	}
	j := &Journey{
		store:  store,
		router: router,
		nav:    nav,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(j)
		}
	}
	return j, nil
}

// Store returns the signal store.
func (j *Journey) Store() *Store { return j.store }

// Router returns the router.
func (j *Journey) Router() *Router { return j.router }

// Navigation returns the out-of-band channel.
func (j *Journey) Navigation() *Channel { return j.nav }

// Tracker returns the stage tracker.
func (j *Journey) Tracker() *Tracker { return j.store.Tracker() }

// Evaluate takes any pending navigation request, promotes it into the
// store, and decides the active screen from the resulting snapshot.
func (j *Journey) Evaluate() Decision {
	j.mu.Lock()
	defer j.mu.Unlock()
	if req, ok := j.nav.Take(); ok {
		j.promote(req)
	}
	return j.router.Decide(j.store.Snapshot())
}

func (j *Journey) promote(req Request) {
	var replaced string
	_, err := j.store.Update("promote detour to "+string(req.Target), func(s *Signals) error {
		if s.Detour != nil {
			replaced = s.Detour.ID
		}
		s.Detour = &Detour{
			ID:     req.ID,
			Target: req.Target,
			Return: req.Return,
			Kind:   req.Kind,
		}
		return nil
	})
	if err != nil {
		j.logger.Warn("journey: detour promotion failed", zap.String("id", req.ID), zap.Error(err))
		j.nav.Discard(req.ID)
		return
	}
	if replaced != "" {
		j.logger.Warn("journey: detour replaced before completion", zap.String("stale", replaced), zap.String("id", req.ID))
		j.nav.Discard(replaced)
	}
}

// SwitchTab selects a tab. A live detour is abandoned and its unconsumed
// payload discarded.
func (j *Journey) SwitchTab(tab Screen) error {
	if !tab.IsTab() {
		return fmt.Errorf("%w: %s is not a tab", ErrSignalType, tab)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	var abandoned string
	_, err := j.store.Update("switch tab to "+string(tab), func(s *Signals) error {
		if s.Detour != nil {
			abandoned = s.Detour.ID
			s.Detour = nil
		}
		s.Tab = tab
		return nil
	})
	if err != nil {
		return err
	}
	if abandoned != "" {
		j.nav.Discard(abandoned)
		j.logger.Info("journey: detour abandoned by tab switch", zap.String("id", abandoned), zap.String("tab", string(tab)))
	}
	return nil
}

// Reset restores every signal to its default and clears scratch storage.
func (j *Journey) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.nav.Flush()
	j.store.Reset()
}
