package session

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kingrea/selection-journey/internal/journey"
	"github.com/kingrea/selection-journey/internal/scenario"
)

// Deliver applies a simulated reply. Events that are no longer awaited (a
// reset happened, or a follow-up superseded them) are ignored.
func (s *Session) Deliver(ev journey.Event) error {
	var (
		ignored bool
		applied journey.PendingReply
		subject string
	)
	err := s.update("deliver "+string(ev.Kind), func(sig *journey.Signals) error {
		pending, ok := sig.Settle(ev.ID)
		if !ok {
			ignored = true
			return nil
		}
		applied = pending
		email, err := s.applyReply(sig, pending)
		if err != nil {
			return err
		}
		if email != nil {
			subject = email.Subject
			sig.Mail = append(sig.Mail, *email)
		}
		return nil
	})
	if ignored {
		s.logger.Debug("session: stale reply ignored", zap.String("id", ev.ID), zap.String("kind", string(ev.Kind)))
		return nil
	}
	if err != nil {
		// Drop the reply so it cannot sit in the awaiting list forever.
		s.logger.Warn("session: reply could not be applied", zap.String("id", ev.ID), zap.Error(err))
		_ = s.update("drop "+string(ev.Kind), func(sig *journey.Signals) error {
			sig.Settle(ev.ID)
			return nil
		})
		return err
	}
	if subject != "" {
		s.note("reply arrived: %q", subject)
	} else {
		s.note("%s arrived for review #%d", applied.Kind, applied.Review)
	}
	return nil
}

func (s *Session) applyReply(sig *journey.Signals, r journey.PendingReply) (*journey.Email, error) {
	data := s.scenario.Base()
	var from scenario.Person
	switch r.Kind {
	case journey.ReplyMentorSlots:
		c, err := s.cycle(sig, r.Review)
		if err != nil {
			return nil, err
		}
		if err := c.Advance(journey.PhaseCoordinationSent); err != nil {
			return nil, err
		}
		c.MentorSlots = append([]string(nil), s.scenario.MentorSlots...)
		data.Mentor, data.Review, data.Slots = c.Mentor, c.Index, c.MentorSlots
		from = s.scenario.AccountManager
	case journey.ReplyFounderSlot:
		c, err := s.cycle(sig, r.Review)
		if err != nil {
			return nil, err
		}
		if err := c.Advance(journey.PhaseFounderAsked); err != nil {
			return nil, err
		}
		c.Slot = s.scenario.SlotChoice()
		data.Mentor, data.Review, data.Slot = c.Mentor, c.Index, c.Slot
		from = s.scenario.Founder
	case journey.ReplyAssessment:
		c, err := s.cycle(sig, r.Review)
		if err != nil {
			return nil, err
		}
		if c.Assessment.Status != journey.AssessmentPending {
			return nil, gated("review #%d has no pending assessment", c.Index)
		}
		a := s.scenario.Assessment
		c.Assessment.Status = journey.AssessmentCompleted
		c.Assessment.Ratings = &journey.Ratings{Readiness: a.Readiness, Potential: a.Potential, Fit: a.Fit}
		c.Assessment.Feedback = a.Feedback
		completeIfReady(sig, c)
		if !c.Assessment.FollowupSent {
			return nil, nil
		}
		data.Mentor, data.Review = c.Mentor, c.Index
		from = s.scenario.AccountManager
	case journey.ReplyFounderThanks:
		from = s.scenario.Founder
	case journey.ReplyChampionAvailability:
		champion, ok := s.scenario.Panelist(sig.ChampionID)
		if !ok {
			return nil, gated("no champion selected")
		}
		sig.Followup.Availability = journey.Availability{
			Received: true,
			Slots:    append([]string(nil), s.scenario.ChampionSlots...),
		}
		data.Champion, data.Slots = champion.Name, sig.Followup.Availability.Slots
		from = champion
	case journey.ReplyFounderConfirmation:
		if !sig.Followup.Forwarded || len(sig.Followup.Availability.Slots) == 0 {
			return nil, gated("the champion's availability was never forwarded")
		}
		slot := sig.Followup.Availability.Slots[0]
		sig.Followup.Confirmation = journey.Confirmation{Confirmed: true, Slot: slot}
		data.Slot = slot
		from = s.scenario.Founder
	default:
		return nil, fmt.Errorf("session: unknown reply %q", r.Kind)
	}

	subject, body, err := s.scenario.RenderReply(string(r.Kind), data)
	if err != nil {
		return nil, err
	}
	return &journey.Email{
		ID:      uuid.NewString(),
		Thread:  replyThread(r),
		From:    from.Address(),
		To:      s.scenario.Trainee,
		Subject: subject,
		Body:    body,
		At:      s.now().UTC(),
	}, nil
}

func (s *Session) cycle(sig *journey.Signals, index int) (*journey.ReviewCycle, error) {
	c := sig.Reviews.Cycle(index)
	if c == nil {
		return nil, fmt.Errorf("session: no review #%d", index)
	}
	return c, nil
}

func replyThread(r journey.PendingReply) string {
	switch r.Kind {
	case journey.ReplyMentorSlots:
		return threadFor(journey.DraftCoordination, r.Review)
	case journey.ReplyFounderSlot:
		return threadFor(journey.DraftFounderSlots, r.Review)
	case journey.ReplyAssessment:
		return threadFor(journey.DraftAssessmentFollowup, r.Review)
	case journey.ReplyFounderThanks:
		return threadFor(journey.DraftFounderThanks, 0)
	case journey.ReplyChampionAvailability:
		return threadFor(journey.DraftChampion, 0)
	case journey.ReplyFounderConfirmation:
		return threadFor(journey.DraftForwardAvailability, 0)
	}
	return "general"
}
