package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/kingrea/selection-journey/internal/journey"
)

// ErrSchedulerClosed is returned when replies are awaited after Close.
var ErrSchedulerClosed = errors.New("session: scheduler closed")

// StepFunc observes the walkthrough after each scripted action.
type StepFunc func(action string, d journey.Decision)

// AwaitReplies delivers scheduled replies until none are outstanding.
func (s *Session) AwaitReplies(ctx context.Context) error {
	for len(s.store.Snapshot().Awaiting) > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-s.scheduler.Events():
			if !ok {
				return ErrSchedulerClosed
			}
			if err := s.Deliver(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Walk plays the scripted trainee through the whole journey, from the FOR
// checklist to the end of the ISP walkthrough. It stops early, without error,
// if the panel asks the founders to come back.
func (s *Session) Walk(ctx context.Context, observe StepFunc) error {
	if observe == nil {
		observe = func(string, journey.Decision) {}
	}
	w := &walker{s: s, ctx: ctx, observe: observe}
	for _, phase := range []func() error{
		w.prepare,
		w.reviews,
		w.panels,
		w.deliberate,
		w.postSelection,
		w.followup,
		w.walkthrough,
	} {
		if err := phase(); err != nil {
			if errors.Is(err, errComeback) {
				return nil
			}
			return err
		}
	}
	return nil
}

var errComeback = errors.New("comeback")

type walker struct {
	s       *Session
	ctx     context.Context
	observe StepFunc
}

func (w *walker) do(action string, fn func() error) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return fmt.Errorf("walkthrough: %s: %w", action, err)
	}
	w.observe(action, w.s.Evaluate())
	return nil
}

func (w *walker) await(action string) error {
	return w.do(action, func() error { return w.s.AwaitReplies(w.ctx) })
}

// draft opens a detour, promotes it and collects its payload the way a
// mounted screen would.
func (w *walker) draft(action string, open func() (string, error)) (journey.Draft, error) {
	var draft journey.Draft
	err := w.do(action, func() error {
		id, err := open()
		if err != nil {
			return err
		}
		w.s.Evaluate()
		d, ok := w.s.journey.Navigation().ConsumePayload(id)
		if !ok {
			return fmt.Errorf("detour %s has no payload", id)
		}
		draft = d
		return nil
	})
	return draft, err
}

func (w *walker) send(action string, d journey.Draft) error {
	return w.do(action, func() error {
		_, err := w.s.SendEmail(d)
		return err
	})
}

func (w *walker) prepare() error {
	s := w.s
	questions := s.scenario.Questions()
	for i := 0; i < s.thresholds.MinQuestions && i < len(questions); i++ {
		if err := s.ToggleQuestion(questions[i].ID); err != nil {
			return err
		}
	}
	for _, stmt := range s.scenario.Script.Pitch {
		if err := s.AddPitchStatement(stmt); err != nil {
			return err
		}
	}
	return w.do("complete preparation", s.CompletePreparation)
}

func (w *walker) reviews() error {
	s := w.s
	for s.Snapshot().Reviews.CompletedCount() < s.thresholds.RequiredReviews {
		var index int
		coordination, err := w.draft("initiate review", func() (string, error) {
			var err error
			index, err = s.InitiateReview()
			if err != nil {
				return "", err
			}
			s.Evaluate()
			sig := s.Snapshot()
			if sig.Detour == nil {
				return "", fmt.Errorf("review #%d opened no detour", index)
			}
			return sig.Detour.ID, nil
		})
		if err != nil {
			return err
		}
		if err := w.send(fmt.Sprintf("review #%d: coordinate", index), coordination); err != nil {
			return err
		}
		if err := w.await("mentor slots"); err != nil {
			return err
		}
		slots, ok := s.DueDraft()
		if !ok || slots.Kind != journey.DraftFounderSlots {
			return fmt.Errorf("review #%d: no founder slots draft is due", index)
		}
		if err := w.send(fmt.Sprintf("review #%d: forward slots", index), slots); err != nil {
			return err
		}
		if err := w.await("founder slot"); err != nil {
			return err
		}
		var meeting journey.Meeting
		if err := w.do("schedule review meeting", func() error {
			meeting, err = s.ScheduleMeeting()
			return err
		}); err != nil {
			return err
		}
		if err := w.meet(meeting.ID, s.scenario.Script.ReviewNotes); err != nil {
			return err
		}
		if err := w.await("assessment"); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) meet(id, notes string) error {
	s := w.s
	if notes == "" {
		notes = "Meeting held."
	}
	if err := w.do("start meeting", func() error { return s.StartMeeting(id) }); err != nil {
		return err
	}
	if err := w.do("end meeting", func() error { return s.EndMeeting(id) }); err != nil {
		return err
	}
	return w.do("log meeting", func() error { return s.LogMeeting(id, notes) })
}

func (w *walker) panels() error {
	s := w.s
	if err := w.do("continue to panels", s.ContinueToPanels); err != nil {
		return err
	}
	if err := w.do("begin panels", s.BeginPanels); err != nil {
		return err
	}
	notes := s.scenario.Script.PanelNotes
	for id := 1; id <= journey.PanelCount; id++ {
		note := fmt.Sprintf("Panel %d observed.", id)
		if id <= len(notes) {
			note = notes[id-1]
		}
		if err := s.SavePanelNotes(id, note); err != nil {
			return err
		}
		panel := id
		if err := w.do(fmt.Sprintf("complete panel %d", id), func() error { return s.CompletePanel(panel) }); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) deliberate() error {
	s := w.s
	if err := w.do("founders leave", s.DismissFounders); err != nil {
		return err
	}
	var round journey.VoteRound
	if err := w.do("vote round 1", func() (err error) {
		round, err = s.HoldVoteRound1()
		return err
	}); err != nil {
		return err
	}
	if !round.Unanimous() {
		if err := w.do("finish discussion", s.FinishDiscussion); err != nil {
			return err
		}
		if err := w.do("vote round 2", func() error {
			_, err := s.HoldVoteRound2()
			return err
		}); err != nil {
			return err
		}
	}
	if err := s.SaveDeliberationNotes(s.scenario.Script.DeliberationNotes); err != nil {
		return err
	}
	var outcome journey.Outcome
	if err := w.do("conclude deliberations", func() (err error) {
		outcome, err = s.ConcludeDeliberations()
		return err
	}); err != nil {
		return err
	}
	if outcome == journey.OutcomeComeback {
		return errComeback
	}
	champion := s.scenario.Script.Champion
	if champion == "" {
		champion = s.scenario.Panels[0].Panelists[0]
	}
	return w.do("select champion", func() error { return s.SelectChampion(champion) })
}

func (w *walker) postSelection() error {
	s := w.s
	thanks, err := w.draft("open founder email", s.StartFounderEmail)
	if err != nil {
		return err
	}
	if err := w.send("thank founders", thanks); err != nil {
		return err
	}
	if err := w.await("founder thanks"); err != nil {
		return err
	}
	points, err := w.draft("open synthesis", s.StartSynthesis)
	if err != nil {
		return err
	}
	pros, cons := s.scenario.Script.Pros, s.scenario.Script.Cons
	if len(pros) == 0 {
		pros = points.Points
	}
	if len(cons) == 0 {
		cons = []string{"None recorded"}
	}
	if err := w.do("save synthesis", func() error {
		return s.SaveSynthesis(pros, cons, "")
	}); err != nil {
		return err
	}
	champion, err := w.draft("open champion email", s.StartChampionEmail)
	if err != nil {
		return err
	}
	if err := w.send("email champion", champion); err != nil {
		return err
	}
	return w.await("champion availability")
}

func (w *walker) followup() error {
	s := w.s
	forward, err := w.draft("open availability forward", s.StartForwardAvailability)
	if err != nil {
		return err
	}
	if err := w.send("forward availability", forward); err != nil {
		return err
	}
	if err := w.await("founder confirmation"); err != nil {
		return err
	}
	var meeting journey.Meeting
	if err := w.do("schedule follow-up", func() (err error) {
		meeting, err = s.ScheduleMeeting()
		return err
	}); err != nil {
		return err
	}
	return w.meet(meeting.ID, s.scenario.Script.FollowupNotes)
}

func (w *walker) walkthrough() error {
	s := w.s
	format, err := journey.ParseFormat(s.scenario.Script.Format)
	if err != nil {
		format = journey.FormatVirtual
	}
	for _, step := range journey.InfoSequence() {
		screen := step
		if screen == journey.ScreenFormatSelection {
			if err := w.do("choose format", func() error { return s.ChooseFormat(format) }); err != nil {
				return err
			}
			continue
		}
		if err := w.do("acknowledge "+string(screen), func() error { return s.AcknowledgeStep(screen) }); err != nil {
			return err
		}
	}
	return nil
}
