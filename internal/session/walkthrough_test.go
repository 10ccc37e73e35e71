package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/selection-journey/internal/journey"
	"github.com/kingrea/selection-journey/internal/scenario"
)

func walk(t *testing.T, s *Session) []journey.Screen {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var screens []journey.Screen
	require.NoError(t, s.Walk(ctx, func(_ string, d journey.Decision) {
		if n := len(screens); n == 0 || screens[n-1] != d.Screen {
			screens = append(screens, d.Screen)
		}
	}))
	return screens
}

// assertVisited checks that want appears in order within got.
func assertVisited(t *testing.T, got []journey.Screen, want ...journey.Screen) {
	t.Helper()
	i := 0
	for _, screen := range got {
		if i < len(want) && screen == want[i] {
			i++
		}
	}
	assert.Equal(t, len(want), i, "visited %v, want in order %v", got, want)
}

func TestWalkCompletesTheJourney(t *testing.T) {
	s, _ := newTestSession(t, instant())
	screens := walk(t, s)

	assertVisited(t, screens,
		journey.ScreenInbox,
		journey.ScreenReviewTransition,
		journey.ScreenPanelOverview,
		journey.ScreenPanel,
		journey.ScreenFoundersLeave,
		journey.ScreenDeliberations,
		journey.ScreenChampionSelection,
		journey.ScreenPostSelection,
		journey.ScreenSynthesize,
		journey.ScreenCalendar,
		journey.ScreenGlobalReview,
		journey.ScreenFormatSelection,
		journey.ScreenProfilePairing,
		journey.ScreenTeamReview,
		journey.ScreenIntroduction,
		journey.ScreenComplete,
	)

	sig := s.Snapshot()
	assert.Equal(t, journey.StageISP, sig.Stage)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, sig.Reviews.Completed)
	assert.Equal(t, "sarah-nguyen", sig.ChampionID)
	assert.Equal(t, s.Scenario().ChampionSlots[0], sig.Followup.Confirmation.Slot)
	assert.Equal(t, journey.FormatVirtual, sig.ISP.Format)
	assert.True(t, sig.ISP.Done())
	assert.Empty(t, sig.Awaiting)
	assert.Zero(t, s.store.Violations())
	assert.Equal(t, journey.ScreenComplete, s.Evaluate().Screen)

	t.Run("report", func(t *testing.T) {
		report := s.Report()
		for _, want := range []string{
			"# Selection journey: TechFlow Solutions",
			"5 of 5 complete.",
			"Outcome: **unanimous-yes**",
			"Champion: Sarah Nguyen",
			"[x] Follow-up logged",
			"## International Selection Panel",
			"(virtual)",
			"## Journal",
		} {
			assert.Contains(t, report, want)
		}

		dir := filepath.Join(t.TempDir(), "reports")
		path, err := s.ExportReport(dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, s.ID()+".md"), path)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "Champion: Sarah Nguyen")
	})
}

func TestWalkStopsAtComeback(t *testing.T) {
	sc := scenario.Default()
	sc.Deliberation.Round2 = scenario.Votes{Yes: 4, No: 2}
	s, _ := newTestSession(t, instant(), withScenario(sc))
	screens := walk(t, s)

	assert.Equal(t, journey.ScreenComeback, screens[len(screens)-1])
	sig := s.Snapshot()
	assert.Equal(t, journey.OutcomeComeback, sig.Deliberation.Outcome)
	assert.Empty(t, sig.ChampionID)
	assert.NotContains(t, s.Report(), "## Post-selection")
}

func TestWalkHonoursCancellation(t *testing.T) {
	s, _ := newTestSession(t, instant())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Walk(ctx, nil), context.Canceled)
}

func TestAwaitRepliesAfterClose(t *testing.T) {
	s, _ := newTestSession(t)
	prepare(t, s)
	_, err := s.InitiateReview()
	require.NoError(t, err)
	_, err = s.SendEmail(openDetour(t, s, journey.ScreenInbox))
	require.NoError(t, err)
	s.Close()
	assert.ErrorIs(t, s.AwaitReplies(context.Background()), ErrSchedulerClosed)
}

func championed(sig *journey.Signals) {
	atLSP(sig)
	sig.Panels.Started = true
	for i := range sig.Panels.Records {
		sig.Panels.Records[i].Notes = "observed"
		sig.Panels.Records[i].Complete = true
	}
	sig.Deliberation.FoundersLeft = true
	sig.Deliberation.Round1 = journey.VoteRound{Held: true, Yes: 6}
	sig.Deliberation.Outcome = journey.OutcomeUnanimousYes
	sig.ChampionID = "sarah-nguyen"
}

func TestPostSelectionChecklistOrder(t *testing.T) {
	s, clock := newTestSession(t)
	_, err := s.StartFounderEmail()
	assert.ErrorIs(t, err, journey.ErrGated)
	jump(t, s, championed)

	_, err = s.StartSynthesis()
	assert.ErrorIs(t, err, journey.ErrGated, "thank the founders first")
	_, err = s.StartChampionEmail()
	assert.ErrorIs(t, err, journey.ErrGated)
	_, err = s.StartForwardAvailability()
	assert.ErrorIs(t, err, journey.ErrGated)

	_, err = s.StartFounderEmail()
	require.NoError(t, err)
	thanks := openDetour(t, s, journey.ScreenInbox)
	_, err = s.SendEmail(thanks)
	require.NoError(t, err)
	assert.Equal(t, journey.ScreenPostSelection, s.Evaluate().Screen)
	deliverNext(t, s, clock)

	_, err = s.StartSynthesis()
	require.NoError(t, err)
	points := openDetour(t, s, journey.ScreenSynthesize)
	assert.Len(t, points.Points, 3, "one point per panel")
	assert.Error(t, s.SaveSynthesis([]string{"  "}, []string{"risk"}, ""))
	require.NoError(t, s.SaveSynthesis([]string{"coachable"}, []string{"defensibility"}, "strong"))
	assert.Equal(t, journey.ScreenPostSelection, s.Evaluate().Screen)

	_, err = s.StartChampionEmail()
	require.NoError(t, err)
	email := openDetour(t, s, journey.ScreenInbox)
	assert.Equal(t, "Sarah Nguyen", email.To)
	assert.Contains(t, email.Body, "coachable")
	_, err = s.SendEmail(email)
	require.NoError(t, err)
	sig := s.Snapshot()
	assert.True(t, sig.PostSelection.Done())
	assert.Equal(t, journey.ScreenOverview, s.Evaluate().Screen, "a finished checklist falls back to the tab")

	deliverNext(t, s, clock)
	sig = s.Snapshot()
	assert.True(t, sig.Followup.Availability.Received)
	assert.Equal(t, s.Scenario().ChampionSlots, sig.Followup.Availability.Slots)

	_, err = s.StartForwardAvailability()
	require.NoError(t, err)
	forward := openDetour(t, s, journey.ScreenInbox)
	_, err = s.SendEmail(forward)
	require.NoError(t, err)
	assert.Equal(t, journey.ScreenCalendar, s.Evaluate().Screen, "forwarding returns to the calendar")

	_, err = s.ScheduleMeeting()
	assert.ErrorIs(t, err, journey.ErrGated, "the founder has not confirmed")
	deliverNext(t, s, clock)

	meeting, err := s.ScheduleMeeting()
	require.NoError(t, err)
	assert.Equal(t, journey.MeetingFollowup, meeting.Kind)
	assert.Equal(t, s.Scenario().ChampionSlots[0], meeting.Slot)
	require.NoError(t, s.StartMeeting(meeting.ID))
	require.NoError(t, s.EndMeeting(meeting.ID))
	require.NoError(t, s.LogMeeting(meeting.ID, "agreed next steps"))

	sig = s.Snapshot()
	assert.True(t, sig.Followup.Logged)
	assert.Equal(t, journey.StageISP, sig.Stage)
	assert.Equal(t, journey.ScreenGlobalReview, s.Evaluate().Screen)
}

func TestWalkthroughStepsInOrder(t *testing.T) {
	s, _ := newTestSession(t)
	assert.ErrorIs(t, s.AcknowledgeStep(journey.ScreenGlobalReview), journey.ErrGated)
	jump(t, s, func(sig *journey.Signals) {
		championed(sig)
		sig.PostSelection = journey.PostSelection{ThanksSent: true, NotesSynthesized: true, ChampionEmailed: true}
		sig.Followup.Logged = true
		sig.AdvanceStage(journey.StageISP)
	})

	assert.Error(t, s.AcknowledgeStep(journey.ScreenInbox))
	assert.ErrorContains(t, s.AcknowledgeStep(journey.ScreenFormatSelection), "choose a format")
	assert.ErrorIs(t, s.AcknowledgeStep(journey.ScreenProfilePairing), journey.ErrGated)
	assert.ErrorIs(t, s.ChooseFormat(journey.FormatInPerson), journey.ErrGated)

	require.NoError(t, s.AcknowledgeStep(journey.ScreenGlobalReview))
	assert.ErrorIs(t, s.AcknowledgeStep(journey.ScreenGlobalReview), journey.ErrGated)
	assert.Equal(t, journey.ScreenFormatSelection, s.Evaluate().Screen)
	assert.Error(t, s.ChooseFormat("hybrid"))
	require.NoError(t, s.ChooseFormat(journey.FormatInPerson))

	for _, step := range []journey.Screen{journey.ScreenProfilePairing, journey.ScreenTeamReview, journey.ScreenIntroduction} {
		assert.Equal(t, step, s.Evaluate().Screen)
		require.NoError(t, s.AcknowledgeStep(step))
	}
	assert.Equal(t, journey.ScreenComplete, s.Evaluate().Screen)
	assert.Equal(t, journey.FormatInPerson, s.Snapshot().ISP.Format)
}
