package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap/zaptest"

	"github.com/kingrea/selection-journey/internal/config"
	"github.com/kingrea/selection-journey/internal/eventbridge"
	"github.com/kingrea/selection-journey/internal/journey"
	"github.com/kingrea/selection-journey/internal/logbook"
	"github.com/kingrea/selection-journey/internal/scenario"
	"github.com/kingrea/selection-journey/internal/session"
)

func TestNewAppRequiresSession(t *testing.T) {
	if _, err := NewApp(nil); err == nil {
		t.Fatalf("expected an error without a session")
	}
}

func TestPreparationThroughKeys(t *testing.T) {
	app := newTestApp(t)
	if got := app.mode.Screen(); got != journey.ScreenOverview {
		t.Fatalf("expected overview on start, got %s", got)
	}
	prepareThroughKeys(t, app)

	sig := app.session.Snapshot()
	if sig.Stage != journey.StageSOR {
		t.Fatalf("expected SOR after submitting, got %s", sig.Stage)
	}
	if len(sig.Prep.Statements) != app.session.Thresholds().MinStatements {
		t.Fatalf("expected %d statements, got %d", app.session.Thresholds().MinStatements, len(sig.Prep.Statements))
	}
	if app.err != nil {
		t.Fatalf("unexpected error: %v", app.err)
	}
	if !strings.Contains(app.statusMsg, "submitted") {
		t.Fatalf("expected submission status, got %q", app.statusMsg)
	}
}

func TestSubmittingEarlyReportsTheGate(t *testing.T) {
	app := newTestApp(t)
	press(t, app, runes("s"))
	if app.err == nil {
		t.Fatalf("expected the preparation gate to refuse submission")
	}
	if app.session.Snapshot().Stage != journey.StageFOR {
		t.Fatalf("stage must not move")
	}
	if !strings.Contains(app.View(), "⚠") {
		t.Fatalf("expected the error in the status line")
	}
}

func TestTabKeysSwitchApps(t *testing.T) {
	app := newTestApp(t)
	press(t, app, runes("3"))
	if got := app.mode.Screen(); got != journey.ScreenCalendar {
		t.Fatalf("expected calendar, got %s", got)
	}
	press(t, app, runes("4"))
	if got := app.mode.Screen(); got != journey.ScreenRecords {
		t.Fatalf("expected records, got %s", got)
	}
	press(t, app, runes("1"))
	if got := app.mode.Screen(); got != journey.ScreenOverview {
		t.Fatalf("expected overview, got %s", got)
	}
}

func TestTabKeysSuspendedWhileComposing(t *testing.T) {
	app := newTestApp(t)
	press(t, app, runes("2"), runes("c"))
	if !app.mode.Capturing() {
		t.Fatalf("compose should capture keys")
	}
	press(t, app, runes("1"))
	if got := app.mode.Screen(); got != journey.ScreenInbox {
		t.Fatalf("typing into the draft must not switch apps, got %s", got)
	}
	press(t, app, tea.KeyMsg{Type: tea.KeyEsc}, runes("1"))
	if got := app.mode.Screen(); got != journey.ScreenOverview {
		t.Fatalf("expected overview after leaving compose, got %s", got)
	}
}

func TestInitiateReviewMountsPrefilledDraft(t *testing.T) {
	app := newTestApp(t)
	prepareThroughKeys(t, app)

	press(t, app, runes("n"))
	if got := app.mode.Screen(); got != journey.ScreenInbox {
		t.Fatalf("expected the coordination detour into the inbox, got %s", got)
	}
	if !app.mode.Capturing() {
		t.Fatalf("the detour should open compose")
	}
	if view := app.View(); !strings.Contains(view, string(journey.DraftCoordination)) {
		t.Fatalf("expected the coordination draft in view:\n%s", view)
	}

	press(t, app, tea.KeyMsg{Type: tea.KeyCtrlS})
	if app.err != nil {
		t.Fatalf("send failed: %v", app.err)
	}
	sig := app.session.Snapshot()
	if c := sig.Reviews.Active(); c == nil || c.Phase != journey.PhaseCoordinationSent {
		t.Fatalf("expected coordination sent, got %+v", c)
	}
	if sig.Detour != nil {
		t.Fatalf("the detour should be finished after sending")
	}

	deliver(t, app)
	sig = app.session.Snapshot()
	if c := sig.Reviews.Active(); c.Phase != journey.PhaseSlotsReceived {
		t.Fatalf("expected mentor slots after the reply, got %s", c.Phase)
	}
	if sig.Unread() == 0 {
		t.Fatalf("the reply should land unread")
	}
}

func TestFirstReviewThroughKeys(t *testing.T) {
	app := newTestApp(t)
	prepareThroughKeys(t, app)
	save := tea.KeyMsg{Type: tea.KeyCtrlS}
	enter := tea.KeyMsg{Type: tea.KeyEnter}

	press(t, app, runes("n"), save)
	deliver(t, app)
	if c := reviewOne(app); c.Phase != journey.PhaseSlotsReceived {
		t.Fatalf("expected mentor slots, got %s", c.Phase)
	}

	press(t, app, runes("2"), runes("r"))
	if !app.mode.Capturing() {
		t.Fatalf("r should open the founder slots draft")
	}
	if view := app.View(); !strings.Contains(view, string(journey.DraftFounderSlots)) {
		t.Fatalf("expected the founder slots draft in view:\n%s", view)
	}
	press(t, app, save)
	if app.err != nil {
		t.Fatalf("send failed: %v", app.err)
	}
	deliver(t, app)
	if c := reviewOne(app); c.Phase != journey.PhaseSlotConfirmed {
		t.Fatalf("expected a confirmed slot, got %s", c.Phase)
	}

	press(t, app, runes("3"), runes("s"), enter, enter)
	if app.err != nil {
		t.Fatalf("calendar: %v", app.err)
	}
	if c := reviewOne(app); c.Phase != journey.PhaseMeetingEnded {
		t.Fatalf("expected the meeting to have ended, got %s", c.Phase)
	}

	press(t, app, runes("4"), runes("l"), runes("Mentor pushed on churn."), save)
	if app.err != nil {
		t.Fatalf("log: %v", app.err)
	}
	deliver(t, app)

	sig := app.session.Snapshot()
	if len(sig.Reviews.Completed) != 1 || sig.Reviews.Completed[0] != 1 {
		t.Fatalf("expected review #1 complete, got %v", sig.Reviews.Completed)
	}
}

func TestAbandonedCoordinationIsRedrafted(t *testing.T) {
	app := newTestApp(t)
	prepareThroughKeys(t, app)

	press(t, app, runes("n"), tea.KeyMsg{Type: tea.KeyEsc}, runes("1"))
	if got := app.mode.Screen(); got != journey.ScreenOverview {
		t.Fatalf("expected overview after leaving the draft, got %s", got)
	}
	if c := reviewOne(app); c.Phase != journey.PhaseNotStarted {
		t.Fatalf("nothing was sent, got %s", c.Phase)
	}

	press(t, app, runes("n"))
	if app.err != nil {
		t.Fatalf("initiate again: %v", app.err)
	}
	if got := app.mode.Screen(); got != journey.ScreenInbox || !app.mode.Capturing() {
		t.Fatalf("expected the coordination draft again, got %s", got)
	}
	press(t, app, tea.KeyMsg{Type: tea.KeyCtrlS})
	if c := reviewOne(app); c.Phase != journey.PhaseCoordinationSent {
		t.Fatalf("expected coordination sent, got %s", c.Phase)
	}
}

func TestResetStartsOver(t *testing.T) {
	app := newTestApp(t)
	prepareThroughKeys(t, app)
	press(t, app, tea.KeyMsg{Type: tea.KeyCtrlR})
	if got := app.session.Snapshot().Stage; got != journey.StageFOR {
		t.Fatalf("expected FOR after reset, got %s", got)
	}
	if got := app.mode.Screen(); got != journey.ScreenOverview {
		t.Fatalf("expected overview after reset, got %s", got)
	}
	if !strings.Contains(app.statusMsg, "Started over") {
		t.Fatalf("unexpected status %q", app.statusMsg)
	}
}

func TestViewRendersBoard(t *testing.T) {
	app := newTestApp(t)
	app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	view := app.View()
	for _, want := range []string{"SELECTION JOURNEY", "TechFlow Solutions", "FOR", "JOURNAL", "Overview", "Inbox"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view:\n%s", want, view)
		}
	}
}

func TestClosedFeedsStopRearming(t *testing.T) {
	app := newTestApp(t)
	if _, cmd := app.Update(replyMsg{ok: false}); cmd != nil {
		t.Fatalf("a closed scheduler must not re-arm")
	}
	if _, cmd := app.Update(signalsMsg{ok: false}); cmd != nil {
		t.Fatalf("a closed subscription must not re-arm")
	}
	_, cmd := app.Update(signalsMsg{ok: true, event: eventbridge.Event{Kind: eventbridge.KindSignalsChanged}})
	if cmd == nil {
		t.Fatalf("an open subscription should re-arm")
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg, err := config.NewConfig(t.TempDir())
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	cfg.Instant()
	book, err := logbook.New(cfg.JournalPath())
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}
	s, err := session.Open(cfg, scenario.Default(), zaptest.NewLogger(t), book)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	t.Cleanup(s.Close)
	app, err := NewApp(s, WithLogger(zaptest.NewLogger(t)), WithReportsDir(cfg.ReportsDir()))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(app.Close)
	app.sync()
	return app
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds keys through Update. Returned commands are dropped: they are
// cursor blinks and feed re-arms that would block.
func press(t *testing.T, app *App, keys ...tea.KeyMsg) {
	t.Helper()
	for _, k := range keys {
		model, _ := app.Update(k)
		if _, ok := model.(*App); !ok {
			t.Fatalf("unexpected model type: %T", model)
		}
	}
}

func prepareThroughKeys(t *testing.T, app *App) {
	t.Helper()
	th := app.session.Thresholds()
	for i := 0; i < th.MinQuestions; i++ {
		press(t, app, tea.KeyMsg{Type: tea.KeySpace}, tea.KeyMsg{Type: tea.KeyDown})
	}
	for i := 0; i < th.MinStatements; i++ {
		press(t, app, runes("a"), runes("We grew revenue"), tea.KeyMsg{Type: tea.KeyEnter})
		if app.err != nil {
			t.Fatalf("add statement: %v", app.err)
		}
	}
	press(t, app, runes("s"))
}

func reviewOne(app *App) journey.ReviewCycle {
	sig := app.session.Snapshot()
	if c := sig.Reviews.Cycle(1); c != nil {
		return *c
	}
	return journey.ReviewCycle{}
}

// deliver waits for one scheduled reply and feeds it to the app.
func deliver(t *testing.T, app *App) {
	t.Helper()
	select {
	case ev, ok := <-app.session.Scheduler().Events():
		if !ok {
			t.Fatalf("scheduler closed")
		}
		app.Update(replyMsg{event: ev, ok: true})
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for a reply")
	}
}
