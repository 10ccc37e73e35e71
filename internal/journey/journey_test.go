package journey

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJourney(t *testing.T) *Journey {
	t.Helper()
	j, err := New(NewStore(), NewRouter(), NewChannel(time.Minute, nil))
	require.NoError(t, err)
	return j
}

func TestNewValidatesDependencies(t *testing.T) {
	_, err := New(nil, NewRouter(), NewChannel(0, nil))
	assert.ErrorContains(t, err, "store is required")
	_, err = New(NewStore(), nil, NewChannel(0, nil))
	assert.ErrorContains(t, err, "router is required")
	_, err = New(NewStore(), NewRouter(), nil)
	assert.ErrorContains(t, err, "navigation channel is required")
}

func TestDetourRoundTrip(t *testing.T) {
	j := newTestJourney(t)
	_, err := j.Store().Update("select champion", func(s *Signals) error {
		*s = championed()
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, ScreenPostSelection, j.Evaluate().Screen)

	id, err := j.Navigation().RequestDetour(ScreenInbox, Draft{Kind: DraftFounderThanks, To: "Omar Hassan"}, ScreenOverview)
	require.NoError(t, err)

	d := j.Evaluate()
	require.Equal(t, ScreenInbox, d.Screen)
	require.Equal(t, "detour", d.Rule)
	require.False(t, j.Navigation().Pending(), "request is consumed by the evaluation")

	draft, ok := j.Navigation().ConsumePayload(id)
	require.True(t, ok)
	assert.Equal(t, "Omar Hassan", draft.To)

	// remount of the target finds nothing to prefill
	_, ok = j.Navigation().ConsumePayload(id)
	assert.False(t, ok)
	assert.Equal(t, ScreenInbox, j.Evaluate().Screen)

	_, err = j.Store().Update("send thank-you", func(s *Signals) error {
		s.PostSelection.ThanksSent = true
		require.True(t, s.FinishDetour(ScreenInbox))
		return nil
	})
	require.NoError(t, err)

	snap := j.Store().Snapshot()
	assert.Nil(t, snap.Detour)
	assert.Equal(t, ScreenOverview, snap.Tab)
	assert.Equal(t, ScreenPostSelection, j.Evaluate().Screen)
}

func TestDetourReturnsToTheRequestedTab(t *testing.T) {
	j := newTestJourney(t)
	_, err := j.Navigation().RequestDetour(ScreenInbox, Draft{Kind: DraftAssessmentFollowup, Review: 1}, ScreenRecords)
	require.NoError(t, err)
	require.Equal(t, ScreenInbox, j.Evaluate().Screen)
	_, err = j.Store().Update("send follow-up", func(s *Signals) error {
		s.FinishDetour(ScreenInbox)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, ScreenRecords, j.Evaluate().Screen)
}

func TestFinishDetourIgnoresOtherTargets(t *testing.T) {
	s := DefaultSignals()
	s.Detour = &Detour{ID: "d", Target: ScreenSynthesize, Return: ScreenOverview}
	s.Tab = ScreenCalendar
	assert.False(t, s.FinishDetour(ScreenInbox))
	assert.NotNil(t, s.Detour)
	assert.Equal(t, ScreenCalendar, s.Tab)
}

func TestSwitchTabAbandonsDetour(t *testing.T) {
	j := newTestJourney(t)
	id, err := j.Navigation().RequestDetour(ScreenInbox, Draft{Kind: DraftChampion}, ScreenOverview)
	require.NoError(t, err)
	require.Equal(t, ScreenInbox, j.Evaluate().Screen)

	require.NoError(t, j.SwitchTab(ScreenCalendar))
	assert.Nil(t, j.Store().Snapshot().Detour)
	assert.Equal(t, ScreenCalendar, j.Evaluate().Screen)
	_, ok := j.Navigation().ConsumePayload(id)
	assert.False(t, ok, "abandoned payload must not misfire later")
	assert.Zero(t, j.Navigation().Len())

	assert.Error(t, j.SwitchTab(ScreenComplete))
}

func TestRouterFollowsSignalsWithoutTabToggling(t *testing.T) {
	j := newTestJourney(t)
	_, err := j.Store().Update("all panels complete", func(s *Signals) error {
		*s = deliberated(OutcomePending)
		s.Deliberation.FoundersLeft = false
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, ScreenFoundersLeave, j.Evaluate().Screen)

	require.NoError(t, j.Store().Set(SignalFoundersLeft, true))
	assert.Equal(t, ScreenDeliberations, j.Evaluate().Screen)
}

func TestResetClearsSignalsAndScratch(t *testing.T) {
	j := newTestJourney(t)
	require.True(t, j.Tracker().Advance(StageSOR))
	_, err := j.Navigation().RequestDetour(ScreenInbox, Draft{Kind: DraftCoordination}, ScreenOverview)
	require.NoError(t, err)
	j.Evaluate()
	_, err = j.Navigation().RequestDetour(ScreenSynthesize, Draft{Kind: DraftSynthesis}, ScreenOverview)
	require.NoError(t, err)

	j.Reset()

	if diff := cmp.Diff(DefaultSignals(), j.Store().Snapshot()); diff != "" {
		t.Fatalf("reset left residue (-want +got):\n%s", diff)
	}
	assert.Zero(t, j.Navigation().Len())
	d := j.Evaluate()
	assert.Equal(t, ScreenOverview, d.Screen)
	assert.Equal(t, VariantPreparation, d.Variant)
}
