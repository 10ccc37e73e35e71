package modes

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kingrea/selection-journey/internal/config"
	"github.com/kingrea/selection-journey/internal/journey"
	"github.com/kingrea/selection-journey/internal/logbook"
	"github.com/kingrea/selection-journey/internal/scenario"
	"github.com/kingrea/selection-journey/internal/session"
)

// recorder captures what a mode reports to the status line.
type recorder struct {
	status string
	err    error
}

func newSession(t *testing.T) (*session.Session, *config.Config) {
	t.Helper()
	cfg, err := config.NewConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Instant()
	book, err := logbook.New(cfg.JournalPath())
	require.NoError(t, err)
	s, err := session.Open(cfg, scenario.Default(), zaptest.NewLogger(t), book)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, cfg
}

// mount evaluates the router and mounts the chosen screen, as the app does.
func mount(t *testing.T, s *session.Session, rec *recorder) Mode {
	t.Helper()
	d := s.Evaluate()
	ctx := &Context{
		Session:  s,
		Decision: d,
		Width:    100,
		Height:   30,
		Notify: func(status string, err error) {
			rec.status, rec.err = status, err
		},
		ReportsDir: t.TempDir(),
	}
	m := For(d.Screen)
	require.Equal(t, d.Screen, m.Screen())
	m.Init(ctx)
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func keys(m Mode, msgs ...tea.KeyMsg) Mode {
	for _, msg := range msgs {
		m, _ = m.Update(msg)
	}
	return m
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	save  = tea.KeyMsg{Type: tea.KeyCtrlS}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
	down  = tea.KeyMsg{Type: tea.KeyDown}
)

// walkUntil plays the scripted trainee until the router first picks screen.
func walkUntil(t *testing.T, s *session.Session, screen journey.Screen) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	reached := false
	err := s.Walk(ctx, func(_ string, d journey.Decision) {
		if d.Screen == screen && !reached {
			reached = true
			cancel()
		}
	})
	require.True(t, reached, "walk never reached %s", screen)
	if err != nil {
		require.ErrorIs(t, err, context.Canceled)
	}
}

func TestForCoversEveryScreen(t *testing.T) {
	screens := []journey.Screen{
		journey.ScreenOverview, journey.ScreenInbox, journey.ScreenCalendar, journey.ScreenRecords,
		journey.ScreenReviewTransition, journey.ScreenPanelOverview, journey.ScreenPanel,
		journey.ScreenFoundersLeave, journey.ScreenDeliberations, journey.ScreenComeback,
		journey.ScreenChampionSelection, journey.ScreenPostSelection, journey.ScreenSynthesize,
		journey.ScreenComplete,
	}
	screens = append(screens, journey.InfoSequence()...)
	for _, screen := range screens {
		assert.Equal(t, screen, For(screen).Screen(), "screen %s", screen)
	}
	assert.Equal(t, journey.ScreenOverview, For("nowhere").Screen())
}

func TestContextReportIsNilSafe(t *testing.T) {
	var ctx *Context
	ctx.Report("ignored", nil)
	(&Context{}).Report("ignored", nil)
}

func TestOverviewPreparation(t *testing.T) {
	s, _ := newSession(t)
	rec := &recorder{}
	m := mount(t, s, rec)
	require.Equal(t, journey.ScreenOverview, m.Screen())

	th := s.Thresholds()
	for i := 0; i < th.MinQuestions; i++ {
		m = keys(m, tea.KeyMsg{Type: tea.KeySpace}, down)
	}
	for i := 0; i < th.MinStatements; i++ {
		m = keys(m, runes("a"))
		require.True(t, m.Capturing())
		m = keys(m, runes("Revenue doubled last year"), enter)
		require.NoError(t, rec.err)
		require.False(t, m.Capturing())
	}
	assert.Contains(t, m.View(), "Revenue doubled last year")

	m = keys(m, runes("x"))
	require.NoError(t, rec.err)
	assert.Len(t, s.Snapshot().Prep.Statements, th.MinStatements-1)

	m = keys(m, runes("s"))
	require.ErrorIs(t, rec.err, journey.ErrGated)

	m = keys(m, runes("a"), runes("We ship weekly"), enter, runes("s"))
	require.NoError(t, rec.err)
	sig := s.Snapshot()
	assert.Equal(t, journey.StageSOR, sig.Stage)
	assert.Len(t, sig.Prep.Questions, th.MinQuestions)
	assert.Contains(t, m.View(), "Second Opinion Reviews: 0 of")
}

func prepare(t *testing.T, s *session.Session) {
	t.Helper()
	th := s.Thresholds()
	for _, q := range s.Scenario().Questions()[:th.MinQuestions] {
		require.NoError(t, s.ToggleQuestion(q.ID))
	}
	for i := 0; i < th.MinStatements; i++ {
		require.NoError(t, s.AddPitchStatement("We grew 3x"))
	}
	require.NoError(t, s.CompletePreparation())
}

func await(t *testing.T, s *session.Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.AwaitReplies(ctx))
}

func TestInboxDetourOpensDraft(t *testing.T) {
	s, _ := newSession(t)
	prepare(t, s)
	_, err := s.InitiateReview()
	require.NoError(t, err)

	rec := &recorder{}
	m := mount(t, s, rec)
	require.Equal(t, journey.ScreenInbox, m.Screen())
	require.True(t, m.Capturing(), "a detour arrives in compose")
	view := m.View()
	assert.Contains(t, view, "coordination")
	assert.Contains(t, view, s.Scenario().AccountManager.Name)

	m = keys(m, save)
	require.NoError(t, rec.err)
	assert.Contains(t, rec.status, "sent")
	assert.False(t, m.Capturing())
	sig := s.Snapshot()
	assert.Nil(t, sig.Detour)
	assert.Equal(t, journey.PhaseCoordinationSent, sig.Reviews.Active().Phase)

	await(t, s)
	require.NoError(t, s.SwitchTab(journey.ScreenInbox))
	m = mount(t, s, rec)
	require.Equal(t, 1, s.Snapshot().Unread())
	m = keys(m, enter)
	require.NoError(t, rec.err)
	assert.Zero(t, s.Snapshot().Unread())
	assert.Contains(t, m.View(), "From: ")
}

func TestInboxFreeFormMail(t *testing.T) {
	s, _ := newSession(t)
	require.NoError(t, s.SwitchTab(journey.ScreenInbox))
	rec := &recorder{}
	m := mount(t, s, rec)
	assert.Contains(t, m.View(), "No mail yet.")

	m = keys(m, runes("c"), runes("Omar Hassan"), tab, runes("Hello"), tab, runes("Just checking in."), save)
	require.NoError(t, rec.err)
	mail := s.Snapshot().Mail
	require.Len(t, mail, 1)
	assert.Equal(t, "Hello", mail[0].Subject)
	assert.True(t, mail[0].Outgoing)
	assert.Contains(t, m.View(), "Hello")
}

// confirmSlot runs the first review up to a founder-confirmed slot.
func confirmSlot(t *testing.T, s *session.Session) {
	t.Helper()
	prepare(t, s)
	_, err := s.InitiateReview()
	require.NoError(t, err)
	for _, kind := range []journey.DraftKind{journey.DraftCoordination, journey.DraftFounderSlots} {
		d, err := s.Compose(kind)
		require.NoError(t, err)
		s.Evaluate()
		if sig := s.Snapshot(); sig.Detour != nil {
			s.Journey().Navigation().ConsumePayload(sig.Detour.ID)
		}
		_, err = s.SendEmail(d)
		require.NoError(t, err)
		await(t, s)
	}
	snap := s.Snapshot()
	require.Equal(t, journey.PhaseSlotConfirmed, snap.Reviews.Active().Phase)
}

func TestCalendarAndRecordsRunAMeeting(t *testing.T) {
	s, _ := newSession(t)
	confirmSlot(t, s)

	require.NoError(t, s.SwitchTab(journey.ScreenCalendar))
	rec := &recorder{}
	m := mount(t, s, rec)
	assert.Contains(t, m.View(), "press s to schedule")

	m = keys(m, runes("s"))
	require.NoError(t, rec.err)
	meetings := s.Snapshot().Meetings
	require.Len(t, meetings, 1)
	assert.Equal(t, journey.MeetingScheduled, meetings[0].Status)

	m = keys(m, enter)
	require.NoError(t, rec.err)
	assert.Equal(t, journey.MeetingInProgress, s.Snapshot().Meetings[0].Status)
	m = keys(m, enter)
	require.NoError(t, rec.err)
	assert.Equal(t, journey.MeetingEnded, s.Snapshot().Meetings[0].Status)
	keys(m, enter)
	require.Error(t, rec.err, "an ended meeting cannot restart")

	require.NoError(t, s.SwitchTab(journey.ScreenRecords))
	m = mount(t, s, rec)
	assert.Contains(t, m.View(), "Waiting for notes")
	m = keys(m, runes("l"))
	require.True(t, m.Capturing())
	m = keys(m, runes("Strong unit economics."), save)
	require.NoError(t, rec.err)
	assert.False(t, m.Capturing())
	sig := s.Snapshot()
	assert.True(t, sig.Meetings[0].Logged)
	assert.Equal(t, journey.PhaseLogged, sig.Reviews.Cycle(1).Phase)
	assert.Contains(t, m.View(), "Strong unit economics.")
}

func TestRecordsRefusesWithoutEndedMeetings(t *testing.T) {
	s, _ := newSession(t)
	require.NoError(t, s.SwitchTab(journey.ScreenRecords))
	rec := &recorder{}
	m := mount(t, s, rec)
	m = keys(m, runes("l"))
	assert.Error(t, rec.err)
	assert.False(t, m.Capturing())
	keys(m, runes("f"))
	assert.Error(t, rec.err)
}

func TestReviewTransitionAndPanels(t *testing.T) {
	s, _ := newSession(t)
	walkUntil(t, s, journey.ScreenReviewTransition)
	rec := &recorder{}

	m := mount(t, s, rec)
	require.Equal(t, journey.ScreenReviewTransition, m.Screen())
	keys(m, enter)
	require.NoError(t, rec.err)

	m = mount(t, s, rec)
	require.Equal(t, journey.ScreenPanelOverview, m.Screen())
	assert.Contains(t, m.View(), "Sarah Nguyen")
	keys(m, enter)
	require.NoError(t, rec.err)

	for id := 1; id <= journey.PanelCount; id++ {
		m = mount(t, s, rec)
		require.Equal(t, journey.ScreenPanel, m.Screen())
		assert.Contains(t, m.View(), "Panel ")

		m = keys(m, runes("e"), save)
		require.ErrorIs(t, rec.err, journey.ErrGated, "a panel needs notes")
		m = keys(m, runes("Clear answers on unit economics."), save)
		require.NoError(t, rec.err)
		assert.False(t, m.Capturing())
		sig := s.Snapshot()
		assert.True(t, sig.Panels.Panel(id).Complete)
	}

	m = mount(t, s, rec)
	require.Equal(t, journey.ScreenFoundersLeave, m.Screen())
	assert.Contains(t, m.View(), "Clear answers on unit economics.")
	keys(m, enter)
	require.NoError(t, rec.err)
	assert.Equal(t, journey.ScreenDeliberations, s.Evaluate().Screen)
}

func TestDeliberationsToChampion(t *testing.T) {
	s, _ := newSession(t)
	walkUntil(t, s, journey.ScreenDeliberations)
	rec := &recorder{}
	m := mount(t, s, rec)
	require.Equal(t, journey.ScreenDeliberations, m.Screen())

	m = keys(m, runes("v"))
	require.NoError(t, rec.err)
	assert.Equal(t, "round 1: 5 yes, 1 no", rec.status)
	assert.Equal(t, 5, s.Snapshot().Deliberation.Round1.Yes)

	m = keys(m, runes("c"))
	require.ErrorIs(t, rec.err, journey.ErrGated, "round 2 is still due")

	m = keys(m, runes("d"), runes("v"))
	require.NoError(t, rec.err)
	assert.Equal(t, "round 2: 6 yes, 0 no", rec.status)

	m = keys(m, runes("e"), runes("Traction outweighed the hiring risk."), save)
	require.NoError(t, rec.err)
	assert.Equal(t, "Traction outweighed the hiring risk.", s.Snapshot().Deliberation.Notes)

	keys(m, runes("c"))
	require.NoError(t, rec.err)
	assert.Equal(t, journey.OutcomeUnanimousYes, s.Snapshot().Deliberation.Outcome)

	m = mount(t, s, rec)
	require.Equal(t, journey.ScreenChampionSelection, m.Screen())
	keys(m, down, enter)
	require.NoError(t, rec.err)
	assert.Equal(t, s.Scenario().Panelists[1].ID, s.Snapshot().ChampionID)

	m = mount(t, s, rec)
	assert.Equal(t, journey.ScreenPostSelection, m.Screen())
}

func TestPostSelectionAndSynthesis(t *testing.T) {
	s, _ := newSession(t)
	walkUntil(t, s, journey.ScreenPostSelection)
	rec := &recorder{}
	m := mount(t, s, rec)
	require.Equal(t, journey.ScreenPostSelection, m.Screen())

	keys(m, runes("y"))
	require.ErrorIs(t, rec.err, journey.ErrGated, "thank the founders first")

	keys(m, runes("t"))
	require.NoError(t, rec.err)
	m = mount(t, s, rec)
	require.Equal(t, journey.ScreenInbox, m.Screen())
	keys(m, save)
	require.NoError(t, rec.err)
	require.True(t, s.Snapshot().PostSelection.ThanksSent)

	m = mount(t, s, rec)
	require.Equal(t, journey.ScreenPostSelection, m.Screen())
	keys(m, runes("y"))
	require.NoError(t, rec.err)

	m = mount(t, s, rec)
	require.Equal(t, journey.ScreenSynthesize, m.Screen())
	require.True(t, m.Capturing())
	assert.Contains(t, m.View(), "Panel 1:")

	m = keys(m, tea.KeyMsg{Type: tea.KeyEsc})
	require.False(t, m.Capturing(), "esc hands the keys back to the tabs")
	require.NoError(t, s.SwitchTab(journey.ScreenOverview))
	require.Nil(t, s.Snapshot().Detour)
	m = mount(t, s, rec)
	require.Equal(t, journey.ScreenPostSelection, m.Screen())
	keys(m, runes("y"))
	require.NoError(t, rec.err)

	m = mount(t, s, rec)
	require.Equal(t, journey.ScreenSynthesize, m.Screen())
	assert.Contains(t, m.View(), "Panel 1:", "a fresh detour carries the notes again")
	m = keys(m, tea.KeyMsg{Type: tea.KeyEsc}, runes("e"))
	require.True(t, m.Capturing())

	m = keys(m, save)
	require.Error(t, rec.err, "both lists need an item")
	keys(m, runes("Strong traction"), tab, runes("Thin bench"), tab, runes("Back them."), save)
	require.NoError(t, rec.err)
	sig := s.Snapshot()
	assert.Equal(t, []string{"Strong traction"}, sig.Synthesis.Pros)
	assert.Equal(t, []string{"Thin bench"}, sig.Synthesis.Cons)
	assert.Equal(t, "Back them.", sig.Synthesis.Recap)
	assert.Nil(t, sig.Detour)
}

func TestComebackIsADeadEnd(t *testing.T) {
	sc := scenario.Default()
	sc.Deliberation.Round2 = scenario.Votes{Yes: 4, No: 2}
	cfg, err := config.NewConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Instant()
	book, err := logbook.New(cfg.JournalPath())
	require.NoError(t, err)
	s, err := session.Open(cfg, sc, zaptest.NewLogger(t), book)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, s.Walk(ctx, nil))

	rec := &recorder{}
	m := mount(t, s, rec)
	require.Equal(t, journey.ScreenComeback, m.Screen())
	assert.Contains(t, m.View(), "split 4 to 2")
	assert.Empty(t, m.Keys())
}

func TestWalkthroughStepsAndExport(t *testing.T) {
	s, _ := newSession(t)
	walkUntil(t, s, journey.ScreenGlobalReview)
	rec := &recorder{}

	m := mount(t, s, rec)
	require.Equal(t, journey.ScreenGlobalReview, m.Screen())
	assert.Contains(t, m.View(), "1 of 5")
	keys(m, enter)
	require.NoError(t, rec.err)

	m = mount(t, s, rec)
	require.Equal(t, journey.ScreenFormatSelection, m.Screen())
	keys(m, enter)
	assert.NoError(t, rec.err)
	assert.Equal(t, journey.ScreenFormatSelection, s.Evaluate().Screen, "enter does not pick a format")
	keys(m, runes("p"))
	require.NoError(t, rec.err)
	assert.Equal(t, journey.FormatInPerson, s.Snapshot().ISP.Format)

	for _, screen := range []journey.Screen{journey.ScreenProfilePairing, journey.ScreenTeamReview, journey.ScreenIntroduction} {
		m = mount(t, s, rec)
		require.Equal(t, screen, m.Screen())
		keys(m, enter)
		require.NoError(t, rec.err)
	}

	m = mount(t, s, rec)
	require.Equal(t, journey.ScreenComplete, m.Screen())
	m = keys(m, runes("e"))
	require.NoError(t, rec.err)
	path := strings.TrimPrefix(rec.status, "report written to ")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Selection journey: TechFlow Solutions")
	assert.Contains(t, m.View(), "Saved to")
}

// durable ignores the selected tab, which moving between screens changes.
var durable = cmpopts.IgnoreFields(journey.Signals{}, "Tab")

// visit mounts whatever the router picks and renders it without acting.
func visit(t *testing.T, s *session.Session, want journey.Screen) Mode {
	t.Helper()
	m := mount(t, s, &recorder{})
	require.Equal(t, want, m.Screen())
	m.View()
	m.Keys()
	return m
}

func TestRevisitingScreensChangesNothing(t *testing.T) {
	t.Run("tabs", func(t *testing.T) {
		s, _ := newSession(t)
		confirmSlot(t, s)
		before := s.Snapshot()
		for _, tab := range []journey.Screen{
			journey.ScreenInbox, journey.ScreenCalendar, journey.ScreenRecords,
			journey.ScreenInbox, journey.ScreenOverview, journey.ScreenInbox,
		} {
			require.NoError(t, s.SwitchTab(tab))
			visit(t, s, tab)
		}
		if diff := cmp.Diff(before, s.Snapshot(), durable); diff != "" {
			t.Fatalf("revisiting tabs changed signals (-before +after):\n%s", diff)
		}
	})

	t.Run("synthesize", func(t *testing.T) {
		s, _ := newSession(t)
		walkUntil(t, s, journey.ScreenPostSelection)
		_, err := s.StartFounderEmail()
		require.NoError(t, err)
		inbox := visit(t, s, journey.ScreenInbox)
		keys(inbox, save)
		require.True(t, s.Snapshot().PostSelection.ThanksSent)
		_, err = s.StartSynthesis()
		require.NoError(t, err)

		first := visit(t, s, journey.ScreenSynthesize)
		assert.Contains(t, first.View(), "Panel 1:")
		before := s.Snapshot()
		second := visit(t, s, journey.ScreenSynthesize)
		assert.Contains(t, second.View(), "No notes were carried over.", "the payload is consumed once")
		if diff := cmp.Diff(before, s.Snapshot()); diff != "" {
			t.Fatalf("remounting synthesis changed signals (-before +after):\n%s", diff)
		}
	})

	t.Run("walkthrough steps", func(t *testing.T) {
		s, _ := newSession(t)
		walkUntil(t, s, journey.ScreenGlobalReview)
		before := s.Snapshot()
		for _, tab := range []journey.Screen{journey.ScreenInbox, journey.ScreenOverview, journey.ScreenRecords} {
			require.NoError(t, s.SwitchTab(tab))
			visit(t, s, journey.ScreenGlobalReview)
		}
		if diff := cmp.Diff(before, s.Snapshot(), durable); diff != "" {
			t.Fatalf("revisiting the first step changed signals (-before +after):\n%s", diff)
		}

		require.NoError(t, s.AcknowledgeStep(journey.ScreenGlobalReview))
		before = s.Snapshot()
		for _, tab := range []journey.Screen{journey.ScreenCalendar, journey.ScreenOverview} {
			require.NoError(t, s.SwitchTab(tab))
			visit(t, s, journey.ScreenFormatSelection)
		}
		if diff := cmp.Diff(before, s.Snapshot(), durable); diff != "" {
			t.Fatalf("revisiting format selection changed signals (-before +after):\n%s", diff)
		}
	})
}
