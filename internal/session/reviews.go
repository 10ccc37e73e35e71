package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kingrea/selection-journey/internal/journey"
	"github.com/kingrea/selection-journey/internal/scenario"
)

// InitiateReview opens the next Second Opinion Review and sends the trainee
// to the inbox with the coordination email drafted. A review whose
// coordination email was never sent is reopened instead.
func (s *Session) InitiateReview() (int, error) {
	var (
		index    int
		reopened bool
	)
	err := s.update("initiate review", func(sig *journey.Signals) error {
		if sig.Stage != journey.StageSOR {
			return gated("reviews run during %s, the session is at %s", journey.StageSOR, sig.Stage)
		}
		if c := sig.Reviews.Active(); c != nil {
			if c.Phase != journey.PhaseNotStarted {
				return gated("review #%d is still %s", c.Index, c.Phase)
			}
			index, reopened = c.Index, true
			return nil
		}
		if sig.Reviews.CompletedCount() >= s.thresholds.RequiredReviews {
			return gated("all %d reviews are complete", s.thresholds.RequiredReviews)
		}
		index = len(sig.Reviews.Cycles) + 1
		sig.Reviews.Cycles = append(sig.Reviews.Cycles, journey.ReviewCycle{
			Index:  index,
			Mentor: s.scenario.Mentor(index).Name,
			Phase:  journey.PhaseNotStarted,
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	if reopened {
		s.note("review #%d coordination redrafted", index)
	} else {
		s.note("review #%d initiated with %s", index, s.scenario.Mentor(index).Name)
	}

	draft, err := s.Compose(journey.DraftCoordination)
	if err != nil {
		return index, err
	}
	if _, err := s.journey.Navigation().RequestDetour(journey.ScreenInbox, draft, journey.ScreenOverview); err != nil {
		s.logger.Warn("session: coordination detour not requested", zap.Int("review", index), zap.Error(err))
	}
	return index, nil
}

// Compose suggests a draft of kind from the current signals.
func (s *Session) Compose(kind journey.DraftKind) (journey.Draft, error) {
	sig := s.store.Snapshot()
	data := s.scenario.Base()
	draft := journey.Draft{Kind: kind}

	switch kind {
	case journey.DraftCoordination, journey.DraftFounderSlots:
		c := sig.Reviews.Active()
		if c == nil {
			return draft, gated("no review is in progress")
		}
		draft.Review = c.Index
		data.Review = c.Index
		data.Mentor = c.Mentor
		data.Slots = c.MentorSlots
		if kind == journey.DraftCoordination {
			draft.To = s.scenario.AccountManager.Name
		} else {
			draft.To = s.scenario.Founder.Name
		}
	case journey.DraftAssessmentFollowup:
		c := pendingAssessment(&sig)
		if c == nil {
			return draft, gated("no assessment is pending")
		}
		draft.Review = c.Index
		data.Review = c.Index
		data.Mentor = c.Mentor
		draft.To = s.scenario.AccountManager.Name
	case journey.DraftFounderThanks:
		draft.To = s.scenario.Founder.Name
	case journey.DraftChampion:
		champion, ok := s.scenario.Panelist(sig.ChampionID)
		if !ok {
			return draft, gated("no champion selected")
		}
		draft.To = champion.Name
		data.Champion = champion.Name
		data.Pros = sig.Synthesis.Pros
		data.Cons = sig.Synthesis.Cons
	case journey.DraftForwardAvailability:
		champion, _ := s.scenario.Panelist(sig.ChampionID)
		draft.To = s.scenario.Founder.Name
		data.Champion = champion.Name
		data.Slots = sig.Followup.Availability.Slots
	case journey.DraftSynthesis:
		for _, rec := range sig.Panels.Records {
			if note := strings.TrimSpace(rec.Notes); note != "" {
				draft.Points = append(draft.Points, fmt.Sprintf("Panel %d: %s", rec.ID, note))
			}
		}
		if note := strings.TrimSpace(sig.Deliberation.Notes); note != "" {
			draft.Points = append(draft.Points, "Deliberations: "+note)
		}
		return draft, nil
	default:
		return draft, fmt.Errorf("session: unknown draft kind %q", kind)
	}

	subject, body, err := s.scenario.Render(string(kind), data)
	if err != nil {
		return draft, err
	}
	draft.Subject = subject
	draft.Body = body
	return draft, nil
}

// DueDraft suggests the review email the active cycle is waiting on: the
// coordination request before it starts, the founder's slot request once
// the mentor has answered.
func (s *Session) DueDraft() (journey.Draft, bool) {
	sig := s.store.Snapshot()
	c := sig.Reviews.Active()
	if c == nil {
		return journey.Draft{}, false
	}
	var kind journey.DraftKind
	switch c.Phase {
	case journey.PhaseNotStarted:
		kind = journey.DraftCoordination
	case journey.PhaseSlotsReceived:
		kind = journey.DraftFounderSlots
	default:
		return journey.Draft{}, false
	}
	d, err := s.Compose(kind)
	if err != nil {
		s.logger.Warn("session: due draft not composed", zap.String("kind", string(kind)), zap.Error(err))
		return journey.Draft{}, false
	}
	return d, true
}

// SendEmail sends d from the inbox. Scripted drafts advance the journey and
// schedule the simulated reply; free-form mail (empty Kind) is just filed.
func (s *Session) SendEmail(d journey.Draft) (journey.Email, error) {
	to, err := s.scenario.Resolve(d.To)
	if err != nil {
		if errors.Is(err, scenario.ErrMentorDirect) {
			s.journal.Warn("tried to email %s directly", to.Name)
		}
		return journey.Email{}, err
	}
	if strings.TrimSpace(d.Subject) == "" {
		return journey.Email{}, fmt.Errorf("session: subject is required")
	}
	if want, ok := s.recipientFor(d.Kind); ok && want.ID != to.ID {
		return journey.Email{}, fmt.Errorf("session: this email goes to %s, not %s", want.Name, to.Name)
	}

	email := journey.Email{
		ID:       uuid.NewString(),
		From:     s.scenario.Trainee,
		To:       to.Address(),
		Subject:  strings.TrimSpace(d.Subject),
		Body:     strings.TrimSpace(d.Body),
		Outgoing: true,
		Read:     true,
		At:       s.now().UTC(),
	}
	var (
		next     *reply
		replaced []string
	)
	err = s.update("send "+describeKind(d.Kind)+" email", func(sig *journey.Signals) error {
		email.Thread = threadFor(d.Kind, d.Review)
		r, stale, err := s.applySend(sig, d)
		if err != nil {
			return err
		}
		next, replaced = r, stale
		sig.Mail = append(sig.Mail, email)
		if sig.Detour != nil && sig.Detour.Kind == d.Kind {
			sig.FinishDetour(journey.ScreenInbox)
		}
		return nil
	})
	if err != nil {
		return journey.Email{}, err
	}
	for _, id := range replaced {
		s.scheduler.Cancel(id)
	}
	if next != nil {
		s.arm(*next)
	}
	s.note("sent %q to %s", email.Subject, to.Name)
	return email, nil
}

func (s *Session) recipientFor(kind journey.DraftKind) (scenario.Person, bool) {
	switch kind {
	case journey.DraftCoordination, journey.DraftAssessmentFollowup:
		return s.scenario.AccountManager, true
	case journey.DraftFounderSlots, journey.DraftFounderThanks, journey.DraftForwardAvailability:
		return s.scenario.Founder, true
	case journey.DraftChampion:
		if p, ok := s.scenario.Panelist(s.store.Snapshot().ChampionID); ok {
			return p, true
		}
	}
	return scenario.Person{}, false
}

// applySend performs the journey transition a scripted email triggers.
func (s *Session) applySend(sig *journey.Signals, d journey.Draft) (*reply, []string, error) {
	now := s.now()
	schedule := func(kind journey.ReplyKind, review int, delay time.Duration) *reply {
		r := s.newReply(kind, review, delay)
		r.record(sig, now)
		return &r
	}
	switch d.Kind {
	case "":
		return nil, nil, nil
	case journey.DraftCoordination:
		c := sig.Reviews.Active()
		if c == nil {
			return nil, nil, gated("no review is in progress")
		}
		if err := c.Advance(journey.PhaseNotStarted); err != nil {
			return nil, nil, err
		}
		return schedule(journey.ReplyMentorSlots, c.Index, s.timing.ReplyDelay), nil, nil
	case journey.DraftFounderSlots:
		c := sig.Reviews.Active()
		if c == nil {
			return nil, nil, gated("no review is in progress")
		}
		if err := c.Advance(journey.PhaseSlotsReceived); err != nil {
			return nil, nil, err
		}
		return schedule(journey.ReplyFounderSlot, c.Index, s.timing.ReplyDelay), nil, nil
	case journey.DraftAssessmentFollowup:
		c := sig.Reviews.Cycle(d.Review)
		if c == nil || c.Phase != journey.PhaseLogged || c.Assessment.Status != journey.AssessmentPending {
			return nil, nil, gated("review #%d has no pending assessment", d.Review)
		}
		if c.Assessment.FollowupSent {
			return nil, nil, gated("already followed up on review #%d", d.Review)
		}
		c.Assessment.FollowupSent = true
		var stale []string
		for _, p := range append([]journey.PendingReply(nil), sig.Awaiting...) {
			if p.Kind == journey.ReplyAssessment && p.Review == c.Index {
				sig.Settle(p.ID)
				stale = append(stale, p.ID)
			}
		}
		return schedule(journey.ReplyAssessment, c.Index, s.timing.ReplyDelay), stale, nil
	case journey.DraftFounderThanks:
		if !selected(sig) {
			return nil, nil, gated("no champion has been selected")
		}
		if sig.PostSelection.ThanksSent {
			return nil, nil, gated("the founders were already thanked")
		}
		sig.PostSelection.ThanksSent = true
		return schedule(journey.ReplyFounderThanks, 0, s.timing.ReplyDelay), nil, nil
	case journey.DraftChampion:
		if !sig.PostSelection.NotesSynthesized {
			return nil, nil, gated("synthesize the panel notes first")
		}
		if sig.PostSelection.ChampionEmailed {
			return nil, nil, gated("the champion was already emailed")
		}
		sig.PostSelection.ChampionEmailed = true
		return schedule(journey.ReplyChampionAvailability, 0, s.timing.ReplyDelay), nil, nil
	case journey.DraftForwardAvailability:
		if !sig.Followup.Availability.Received {
			return nil, nil, gated("the champion has not shared availability yet")
		}
		if sig.Followup.Forwarded {
			return nil, nil, gated("availability was already forwarded")
		}
		sig.Followup.Forwarded = true
		return schedule(journey.ReplyFounderConfirmation, 0, s.timing.ReplyDelay), nil, nil
	}
	return nil, nil, fmt.Errorf("session: %q is not an email", d.Kind)
}

// ReadEmail marks a message as read.
func (s *Session) ReadEmail(id string) error {
	return s.update("read email", func(sig *journey.Signals) error {
		e := sig.Email(id)
		if e == nil {
			return fmt.Errorf("session: no email %q", id)
		}
		e.Read = true
		return nil
	})
}

// ScheduleMeeting puts whichever meeting is due on the calendar: the active
// review once the founder confirmed a slot, or the champion follow-up once
// the founder confirmed the champion's slot.
func (s *Session) ScheduleMeeting() (journey.Meeting, error) {
	var meeting journey.Meeting
	err := s.update("schedule meeting", func(sig *journey.Signals) error {
		id := uuid.NewString()
		if c := sig.Reviews.Active(); c != nil && c.Phase == journey.PhaseSlotConfirmed {
			if err := c.Advance(journey.PhaseSlotConfirmed); err != nil {
				return err
			}
			c.MeetingID = id
			meeting = journey.Meeting{
				ID:     id,
				Kind:   journey.MeetingReview,
				Review: c.Index,
				Title:  fmt.Sprintf("SOR #%d — %s × %s", c.Index, s.scenario.Company.Name, c.Mentor),
				With:   c.Mentor + ", " + s.scenario.Founder.Name,
				Slot:   c.Slot,
				Status: journey.MeetingScheduled,
			}
		} else if sig.Followup.Confirmation.Confirmed && !sig.Followup.Scheduled {
			champion, _ := s.scenario.Panelist(sig.ChampionID)
			sig.Followup.Scheduled = true
			sig.Followup.MeetingID = id
			meeting = journey.Meeting{
				ID:     id,
				Kind:   journey.MeetingFollowup,
				Title:  "Champion Follow-Up — " + s.scenario.Company.Name,
				With:   champion.Name + ", " + s.scenario.Founder.Name,
				Slot:   sig.Followup.Confirmation.Slot,
				Status: journey.MeetingScheduled,
			}
		} else {
			return gated("no confirmed slot is waiting to be scheduled")
		}
		sig.Meetings = append(sig.Meetings, meeting)
		return nil
	})
	if err != nil {
		return journey.Meeting{}, err
	}
	s.note("scheduled %q for %s", meeting.Title, meeting.Slot)
	return meeting, nil
}

// StartMeeting joins a scheduled meeting.
func (s *Session) StartMeeting(id string) error {
	return s.moveMeeting(id, journey.MeetingScheduled, journey.MeetingInProgress, journey.PhaseScheduled)
}

// EndMeeting leaves a meeting in progress.
func (s *Session) EndMeeting(id string) error {
	return s.moveMeeting(id, journey.MeetingInProgress, journey.MeetingEnded, journey.PhaseInMeeting)
}

func (s *Session) moveMeeting(id string, from, to journey.MeetingStatus, phase journey.ReviewPhase) error {
	var title string
	err := s.update(fmt.Sprintf("meeting %s", to), func(sig *journey.Signals) error {
		m := sig.Meeting(id)
		if m == nil {
			return fmt.Errorf("session: no meeting %q", id)
		}
		if m.Status != from {
			return gated("meeting %q is %s", m.Title, m.Status)
		}
		if m.Kind == journey.MeetingReview {
			c := sig.Reviews.Cycle(m.Review)
			if c == nil {
				return fmt.Errorf("session: meeting %q has no review", m.Title)
			}
			if err := c.Advance(phase); err != nil {
				return err
			}
		}
		m.Status = to
		title = m.Title
		return nil
	})
	if err == nil {
		s.note("meeting %q %s", title, to)
	}
	return err
}

// LogMeeting files notes for an ended meeting in records. A review log asks
// the mentor for the assessment; the champion follow-up log closes LSP and
// moves the session to ISP.
func (s *Session) LogMeeting(id, notes string) error {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return fmt.Errorf("session: meeting notes are empty")
	}
	var (
		next *reply
		m    journey.Meeting
	)
	err := s.update("log meeting", func(sig *journey.Signals) error {
		meeting := sig.Meeting(id)
		if meeting == nil {
			return fmt.Errorf("session: no meeting %q", id)
		}
		if meeting.Status != journey.MeetingEnded {
			return gated("meeting %q has not ended", meeting.Title)
		}
		if meeting.Logged {
			return gated("meeting %q is already logged", meeting.Title)
		}
		switch meeting.Kind {
		case journey.MeetingReview:
			c := sig.Reviews.Cycle(meeting.Review)
			if c == nil {
				return fmt.Errorf("session: meeting %q has no review", meeting.Title)
			}
			if err := c.Advance(journey.PhaseMeetingEnded); err != nil {
				return err
			}
			if c.Assessment.Status == journey.AssessmentNone {
				c.Assessment.Status = journey.AssessmentPending
				r := s.newReply(journey.ReplyAssessment, c.Index, s.timing.AssessmentDelay)
				r.record(sig, s.now())
				next = &r
			}
			completeIfReady(sig, c)
		case journey.MeetingFollowup:
			sig.Followup.Logged = true
			sig.AdvanceStage(journey.StageISP)
		}
		meeting.Logged = true
		m = *meeting
		sig.Logs = append(sig.Logs, journey.MeetingLog{
			ID:        uuid.NewString(),
			MeetingID: meeting.ID,
			Kind:      meeting.Kind,
			Review:    meeting.Review,
			Notes:     notes,
			At:        s.now().UTC(),
		})
		return nil
	})
	if err != nil {
		return err
	}
	if next != nil {
		s.arm(*next)
	}
	s.note("logged %q", m.Title)
	return nil
}

// RequestAssessmentFollowup drafts a nudge to the account manager about a
// pending assessment and returns to records once it is sent.
func (s *Session) RequestAssessmentFollowup(review int) (string, error) {
	sig := s.store.Snapshot()
	c := sig.Reviews.Cycle(review)
	if c == nil || c.Phase != journey.PhaseLogged || c.Assessment.Status != journey.AssessmentPending {
		return "", gated("review #%d has no pending assessment", review)
	}
	if c.Assessment.FollowupSent {
		return "", gated("already followed up on review #%d", review)
	}
	data := s.scenario.Base()
	data.Review = c.Index
	data.Mentor = c.Mentor
	subject, body, err := s.scenario.Render(string(journey.DraftAssessmentFollowup), data)
	if err != nil {
		return "", err
	}
	return s.journey.Navigation().RequestDetour(journey.ScreenInbox, journey.Draft{
		Kind:    journey.DraftAssessmentFollowup,
		To:      s.scenario.AccountManager.Name,
		Subject: subject,
		Body:    body,
		Review:  c.Index,
	}, journey.ScreenRecords)
}

func completeIfReady(sig *journey.Signals, c *journey.ReviewCycle) {
	if !c.Ready() {
		return
	}
	if err := c.Advance(journey.PhaseLogged); err != nil {
		return
	}
	sig.Reviews.Completed = append(sig.Reviews.Completed, c.Index)
}

func pendingAssessment(sig *journey.Signals) *journey.ReviewCycle {
	for i := len(sig.Reviews.Cycles) - 1; i >= 0; i-- {
		c := &sig.Reviews.Cycles[i]
		if c.Phase == journey.PhaseLogged && c.Assessment.Status == journey.AssessmentPending {
			return c
		}
	}
	return nil
}

func selected(sig *journey.Signals) bool {
	return sig.Deliberated() && sig.Deliberation.Outcome == journey.OutcomeUnanimousYes && sig.ChampionID != ""
}

func threadFor(kind journey.DraftKind, review int) string {
	switch kind {
	case journey.DraftCoordination:
		return fmt.Sprintf("sor-%d-coordination", review)
	case journey.DraftFounderSlots:
		return fmt.Sprintf("sor-%d-scheduling", review)
	case journey.DraftAssessmentFollowup:
		return fmt.Sprintf("sor-%d-assessment", review)
	case journey.DraftFounderThanks:
		return "lsp-outcome"
	case journey.DraftChampion:
		return "champion-followup"
	case journey.DraftForwardAvailability:
		return "champion-availability"
	}
	return "general"
}

func describeKind(kind journey.DraftKind) string {
	if kind == "" {
		return "free-form"
	}
	return string(kind)
}
