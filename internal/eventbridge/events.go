package eventbridge

import (
	"errors"
	"strings"
	"time"
)

// Topics carried by the journey's change feed.
const (
	TopicSignals = "signals"
)

// Event kinds.
const (
	KindSignalsChanged = "signals.changed"
	KindSessionReset   = "session.reset"
	KindViolation      = "signals.violation"
)

// Event is one notification published on the change feed.
type Event struct {
	ID      string
	Topic   string
	Kind    string
	Version uint64
	Epoch   uint64
	Signals []string
	Reason  string
	At      time.Time
}

// Normalize trims identifiers and fills the timestamp.
func (e *Event) Normalize() {
	if e == nil {
		return
	}
	e.ID = strings.TrimSpace(e.ID)
	e.Topic = strings.TrimSpace(e.Topic)
	e.Kind = strings.TrimSpace(e.Kind)
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
}

// Validate enforces the fields every routed event needs.
func (e Event) Validate() error {
	if e.Topic == "" {
		return errors.New("topic is required")
	}
	if e.Kind == "" {
		return errors.New("kind is required")
	}
	return nil
}

// Touches reports whether the event changed the named signal.
func (e Event) Touches(name string) bool {
	for _, candidate := range e.Signals {
		if candidate == name {
			return true
		}
	}
	return false
}
