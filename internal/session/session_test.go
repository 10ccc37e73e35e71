package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kingrea/selection-journey/internal/config"
	"github.com/kingrea/selection-journey/internal/journey"
	"github.com/kingrea/selection-journey/internal/logbook"
	"github.com/kingrea/selection-journey/internal/scenario"
)

type manualTimer struct {
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

// manualClock hands out timers that only fire when told to.
type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (c *manualClock) after(_ time.Duration, f func()) journey.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) fire() {
	c.mu.Lock()
	timers := append([]*manualTimer(nil), c.timers...)
	c.mu.Unlock()
	for _, t := range timers {
		if !t.stopped {
			t.f()
		}
	}
}

type fixture struct {
	cfg      *config.Config
	scenario *scenario.Scenario
	instant  bool
	clock    *manualClock
}

type fixtureOption func(*fixture)

func instant() fixtureOption {
	return func(f *fixture) { f.instant = true }
}

func withScenario(sc *scenario.Scenario) fixtureOption {
	return func(f *fixture) { f.scenario = sc }
}

func newTestSession(t *testing.T, opts ...fixtureOption) (*Session, *manualClock) {
	t.Helper()
	cfg, err := config.NewConfig(t.TempDir())
	require.NoError(t, err)
	f := &fixture{cfg: cfg, scenario: scenario.Default()}
	for _, opt := range opts {
		opt(f)
	}
	var schedOpts []journey.SchedulerOption
	if f.instant {
		cfg.Instant()
	} else {
		f.clock = &manualClock{}
		schedOpts = append(schedOpts, journey.WithAfterFunc(f.clock.after))
	}
	book, err := logbook.New(cfg.JournalPath())
	require.NoError(t, err)
	s, err := Open(cfg, f.scenario, zaptest.NewLogger(t), book, schedOpts...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, f.clock
}

func prepare(t *testing.T, s *Session) {
	t.Helper()
	for _, q := range s.Scenario().Questions()[:s.Thresholds().MinQuestions] {
		require.NoError(t, s.ToggleQuestion(q.ID))
	}
	for i := 0; i < s.Thresholds().MinStatements; i++ {
		require.NoError(t, s.AddPitchStatement(fmt.Sprintf("statement %d", i+1)))
	}
	require.NoError(t, s.CompletePreparation())
}

// openDetour promotes the pending navigation request and consumes its draft.
func openDetour(t *testing.T, s *Session, want journey.Screen) journey.Draft {
	t.Helper()
	d := s.Evaluate()
	require.Equal(t, want, d.Screen)
	require.Equal(t, "detour", d.Rule)
	sig := s.Snapshot()
	require.NotNil(t, sig.Detour)
	draft, ok := s.Journey().Navigation().ConsumePayload(sig.Detour.ID)
	require.True(t, ok, "detour payload")
	return draft
}

func nextEvent(t *testing.T, s *Session) journey.Event {
	t.Helper()
	select {
	case ev := <-s.Scheduler().Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("expected a scheduled reply")
	}
	return journey.Event{}
}

func deliverNext(t *testing.T, s *Session, clock *manualClock) journey.Event {
	t.Helper()
	clock.fire()
	ev := nextEvent(t, s)
	require.NoError(t, s.Deliver(ev))
	return ev
}

// jump applies fn directly to the signals to skip ahead in the journey.
func jump(t *testing.T, s *Session, fn func(*journey.Signals)) {
	t.Helper()
	_, err := s.store.Update("test setup", func(sig *journey.Signals) error {
		fn(sig)
		return nil
	})
	require.NoError(t, err)
}

func TestNewValidatesDependencies(t *testing.T) {
	j, err := journey.New(journey.NewStore(), journey.NewRouter(), journey.NewChannel(0, nil))
	require.NoError(t, err)
	sched := journey.NewScheduler()
	defer sched.Close()

	_, err = New(nil, sched, scenario.Default())
	assert.ErrorContains(t, err, "journey is required")
	_, err = New(j, nil, scenario.Default())
	assert.ErrorContains(t, err, "scheduler is required")
	_, err = New(j, sched, nil)
	assert.ErrorContains(t, err, "scenario is required")
}

func TestOpenSeedsPanelRosters(t *testing.T) {
	s, _ := newTestSession(t)
	sig := s.Snapshot()
	assert.Equal(t, []string{"sarah-nguyen", "karim-el-masry"}, sig.Panels.Records[0].Panelists)
	assert.Equal(t, []string{"maria-santos", "david-chen"}, sig.Panels.Records[2].Panelists)
	assert.Equal(t, journey.VariantPreparation, s.Evaluate().Variant)
}

func TestPreparationGatesSOR(t *testing.T) {
	s, _ := newTestSession(t)

	err := s.CompletePreparation()
	require.ErrorIs(t, err, journey.ErrGated)
	assert.Contains(t, err.Error(), "select at least 8 questions")

	assert.Error(t, s.ToggleQuestion("q99.1"))
	require.NoError(t, s.ToggleQuestion("q1.1"))
	require.NoError(t, s.ToggleQuestion("q1.1"))
	assert.Empty(t, s.Snapshot().Prep.Questions, "second toggle deselects")

	for _, q := range s.Scenario().Questions()[:8] {
		require.NoError(t, s.ToggleQuestion(q.ID))
	}
	require.NoError(t, s.AddPitchStatement("one"))
	assert.Error(t, s.AddPitchStatement("   "))
	err = s.CompletePreparation()
	require.ErrorIs(t, err, journey.ErrGated)
	assert.Contains(t, err.Error(), "pitch statements")

	for _, stmt := range []string{"two", "three", "four", "five"} {
		require.NoError(t, s.AddPitchStatement(stmt))
	}
	assert.Error(t, s.RemovePitchStatement(9))
	require.NoError(t, s.RemovePitchStatement(4))
	require.NoError(t, s.CompletePreparation())

	sig := s.Snapshot()
	assert.Equal(t, journey.StageSOR, sig.Stage)
	assert.True(t, sig.Prep.Complete)
	assert.Equal(t, []string{"one", "two", "three", "four"}, sig.Prep.Statements)
	assert.ErrorIs(t, s.ToggleQuestion("q1.2"), journey.ErrGated)
	assert.Equal(t, journey.VariantProgress, s.Evaluate().Variant)
}

func TestResetDropsRepliesInFlight(t *testing.T) {
	s, clock := newTestSession(t)
	prepare(t, s)
	_, err := s.InitiateReview()
	require.NoError(t, err)
	_, err = s.SendEmail(openDetour(t, s, journey.ScreenInbox))
	require.NoError(t, err)

	clock.fire()
	ev := nextEvent(t, s)
	before := s.ID()

	s.Reset()
	assert.NotEqual(t, before, s.ID())
	require.NoError(t, s.Deliver(ev), "stale replies are ignored")

	sig := s.Snapshot()
	assert.Equal(t, journey.StageFOR, sig.Stage)
	assert.Empty(t, sig.Reviews.Cycles)
	assert.Empty(t, sig.Mail)

	lines, total := s.Journal().Tail(10)
	require.Equal(t, 1, total, "journal starts over")
	assert.Contains(t, lines[0], "started over")
}

func TestResetCancelsPendingTimers(t *testing.T) {
	s, clock := newTestSession(t)
	prepare(t, s)
	_, err := s.InitiateReview()
	require.NoError(t, err)
	_, err = s.SendEmail(openDetour(t, s, journey.ScreenInbox))
	require.NoError(t, err)
	require.Equal(t, 1, s.Scheduler().Pending())

	s.Reset()
	clock.fire()
	select {
	case ev := <-s.Scheduler().Events():
		t.Fatalf("unexpected delivery %+v", ev)
	default:
	}
}

func TestDeliverIgnoresUnknownReplies(t *testing.T) {
	s, _ := newTestSession(t)
	version := s.store.Version()
	require.NoError(t, s.Deliver(journey.Event{ID: "never-scheduled", Kind: journey.ReplyMentorSlots, Review: 1}))
	assert.Equal(t, version, s.store.Version())
}
