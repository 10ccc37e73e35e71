// Package session implements the trainee's actions inside the mock
// applications. Every action is a single store transition; replies that
// arrive "later" are scheduled on the journey scheduler and applied through
// Deliver.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kingrea/selection-journey/internal/config"
	"github.com/kingrea/selection-journey/internal/journey"
	"github.com/kingrea/selection-journey/internal/logbook"
	"github.com/kingrea/selection-journey/internal/scenario"
)

// Option customizes Session construction.
type Option func(*Session)

// WithLogger routes session diagnostics to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithJournal records trainee actions in the plain-text journal.
func WithJournal(book *logbook.Logbook) Option {
	return func(s *Session) {
		s.journal = book
	}
}

// WithTiming overrides the simulated reply delays.
func WithTiming(timing config.TimingConfig) Option {
	return func(s *Session) {
		s.timing = timing
	}
}

// WithThresholds overrides the stage exit criteria.
func WithThresholds(th config.ThresholdConfig) Option {
	return func(s *Session) {
		if th.MinQuestions > 0 {
			s.thresholds.MinQuestions = th.MinQuestions
		}
		if th.MinStatements > 0 {
			s.thresholds.MinStatements = th.MinStatements
		}
		if th.RequiredReviews > 0 {
			s.thresholds.RequiredReviews = th.RequiredReviews
		}
	}
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// Session is one trainee run through the scripted case.
type Session struct {
	journey    *journey.Journey
	store      *journey.Store
	scheduler  *journey.Scheduler
	scenario   *scenario.Scenario
	journal    *logbook.Logbook
	logger     *zap.Logger
	timing     config.TimingConfig
	thresholds config.ThresholdConfig
	id         string
	now        func() time.Time
}

// New validates dependencies and constructs a Session.
func New(j *journey.Journey, sched *journey.Scheduler, sc *scenario.Scenario, opts ...Option) (*Session, error) {
	if j == nil {
		return nil, errors.New("session: journey is required")
	}
	if sched == nil {
		return nil, errors.New("session: scheduler is required")
	}
	if sc == nil {
		return nil, errors.New("session: scenario is required")
	}
	s := &Session{
		journey:   j,
		store:     j.Store(),
		scheduler: sched,
		scenario:  sc,
		logger:    zap.NewNop(),
		timing: config.TimingConfig{
			ReplyDelay:      2 * time.Second,
			AssessmentDelay: 4 * time.Second,
		},
		thresholds: config.ThresholdConfig{
			MinQuestions:    8,
			MinStatements:   4,
			RequiredReviews: journey.DefaultRequiredReviews,
		},
		id:  uuid.NewString(),
		now: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.journal.SetStage(s.store.Snapshot().Stage.String())
	s.journal.Info("session %s opened for %s", s.id, sc.Company.Name)
	return s, nil
}

// Open assembles a session and its journey from configuration.
func Open(cfg *config.Config, sc *scenario.Scenario, logger *zap.Logger, journal *logbook.Logbook, schedOpts ...journey.SchedulerOption) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("session: config is required")
	}
	if sc == nil {
		return nil, errors.New("session: scenario is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	store := journey.NewStore(journey.WithLogger(logger.Named("store")), journey.WithSeed(Seed(sc)))
	router := journey.NewRouter(
		journey.WithRouterLogger(logger.Named("router")),
		journey.WithRequiredReviews(cfg.Thresholds().RequiredReviews),
	)
	nav := journey.NewChannel(cfg.Timing().ScratchTTL, logger.Named("navigation"))
	j, err := journey.New(store, router, nav, journey.WithJourneyLogger(logger.Named("journey")))
	if err != nil {
		return nil, err
	}
	schedOpts = append([]journey.SchedulerOption{journey.WithSchedulerLogger(logger.Named("scheduler"))}, schedOpts...)
	sched := journey.NewScheduler(schedOpts...)
	return New(j, sched, sc,
		WithLogger(logger.Named("session")),
		WithJournal(journal),
		WithTiming(cfg.Timing()),
		WithThresholds(cfg.Thresholds()),
	)
}

// Seed fills the panel rosters from the scenario on every fresh session.
func Seed(sc *scenario.Scenario) func(*journey.Signals) {
	return func(s *journey.Signals) {
		for i := range s.Panels.Records {
			if panel, ok := sc.Panel(i + 1); ok {
				s.Panels.Records[i].Panelists = append([]string(nil), panel.Panelists...)
			}
		}
	}
}

// ID identifies the current run; it changes on Reset.
func (s *Session) ID() string { return s.id }

// Journey returns the underlying journey.
func (s *Session) Journey() *journey.Journey { return s.journey }

// Scheduler returns the delayed reply scheduler.
func (s *Session) Scheduler() *journey.Scheduler { return s.scheduler }

// Scenario returns the scripted case.
func (s *Session) Scenario() *scenario.Scenario { return s.scenario }

// Journal returns the session journal, if any.
func (s *Session) Journal() *logbook.Logbook { return s.journal }

// Thresholds returns the effective stage exit criteria.
func (s *Session) Thresholds() config.ThresholdConfig { return s.thresholds }

// Snapshot returns a copy of the current signals.
func (s *Session) Snapshot() journey.Signals { return s.store.Snapshot() }

// Evaluate decides the active screen.
func (s *Session) Evaluate() journey.Decision { return s.journey.Evaluate() }

// SwitchTab selects one of the four mock applications.
func (s *Session) SwitchTab(tab journey.Screen) error {
	return s.journey.SwitchTab(tab)
}

// Reset cancels every outstanding reply and starts the session over.
func (s *Session) Reset() {
	cancelled := s.scheduler.CancelAll()
	s.journey.Reset()
	s.id = uuid.NewString()
	if err := s.journal.Truncate(); err != nil {
		s.logger.Warn("session: journal truncate failed", zap.Error(err))
	}
	s.journal.SetStage(journey.StageFOR.String())
	s.journal.Info("session %s started over", s.id)
	s.logger.Info("session: reset", zap.String("session", s.id), zap.Int("cancelled_replies", cancelled))
}

// Close stops the scheduler.
func (s *Session) Close() {
	s.scheduler.Close()
}

func (s *Session) update(reason string, fn func(*journey.Signals) error) error {
	change, err := s.store.Update(reason, fn)
	if err != nil {
		s.logger.Debug("session: action refused", zap.String("action", reason), zap.Error(err))
		return err
	}
	if len(change.Restored) > 0 {
		s.journal.Warn("%s tried to undo %v; kept the recorded values", reason, change.Restored)
	}
	return nil
}

// note writes a journal line tagged with the current stage.
func (s *Session) note(format string, args ...any) {
	s.journal.SetStage(s.store.Snapshot().Stage.String())
	s.journal.Info(format, args...)
}

// reply is a scheduled simulated reply: the signal bookkeeping is written
// inside the action's transition, the timer is armed only once it commits.
type reply struct {
	id     string
	kind   journey.ReplyKind
	review int
	delay  time.Duration
}

func (s *Session) newReply(kind journey.ReplyKind, review int, delay time.Duration) reply {
	return reply{id: uuid.NewString(), kind: kind, review: review, delay: delay}
}

func (r reply) record(sig *journey.Signals, now time.Time) {
	sig.Await(journey.PendingReply{ID: r.id, Kind: r.kind, Review: r.review, Due: now.Add(r.delay)})
}

func (s *Session) arm(r reply) {
	s.scheduler.After(r.delay, journey.Event{ID: r.id, Kind: r.kind, Review: r.review})
	s.logger.Debug("session: reply scheduled",
		zap.String("id", r.id),
		zap.String("kind", string(r.kind)),
		zap.Duration("delay", r.delay),
	)
}

func gated(format string, args ...any) error {
	return fmt.Errorf("%w: %s", journey.ErrGated, fmt.Sprintf(format, args...))
}
