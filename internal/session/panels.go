package session

import (
	"fmt"
	"strings"

	"github.com/kingrea/selection-journey/internal/journey"
)

// ContinueToPanels leaves the review transition screen and opens LSP.
func (s *Session) ContinueToPanels() error {
	err := s.update("continue to panels", func(sig *journey.Signals) error {
		if sig.Stage != journey.StageSOR {
			return gated("the session is at %s, not %s", sig.Stage, journey.StageSOR)
		}
		if n := sig.Reviews.CompletedCount(); n < s.thresholds.RequiredReviews {
			return gated("%d of %d reviews complete", n, s.thresholds.RequiredReviews)
		}
		sig.AdvanceStage(journey.StageLSP)
		return nil
	})
	if err == nil {
		s.note("second opinion reviews closed, moving to the local selection panel")
	}
	return err
}

// BeginPanels starts the first interview.
func (s *Session) BeginPanels() error {
	err := s.update("begin panels", func(sig *journey.Signals) error {
		if sig.Stage < journey.StageLSP {
			return gated("panels open at %s", journey.StageLSP)
		}
		sig.Panels.Started = true
		return nil
	})
	if err == nil {
		s.note("local selection panels started")
	}
	return err
}

// SavePanelNotes stores the trainee's notes for the open panel.
func (s *Session) SavePanelNotes(id int, notes string) error {
	return s.update(fmt.Sprintf("save panel %d notes", id), func(sig *journey.Signals) error {
		rec, err := openPanel(sig, id)
		if err != nil {
			return err
		}
		rec.Notes = strings.TrimSpace(notes)
		return nil
	})
}

// CompletePanel closes the open panel. Panels run in order and each needs
// notes.
func (s *Session) CompletePanel(id int) error {
	err := s.update(fmt.Sprintf("complete panel %d", id), func(sig *journey.Signals) error {
		rec, err := openPanel(sig, id)
		if err != nil {
			return err
		}
		if rec.Notes == "" {
			return gated("write notes for panel %d first", id)
		}
		rec.Complete = true
		return nil
	})
	if err == nil {
		s.note("panel %d complete", id)
	}
	return err
}

func openPanel(sig *journey.Signals, id int) (*journey.PanelRecord, error) {
	if !sig.Panels.Started {
		return nil, gated("the panels have not started")
	}
	rec := sig.Panels.Panel(id)
	if rec == nil {
		return nil, fmt.Errorf("session: no panel %d", id)
	}
	if rec.Complete {
		return nil, gated("panel %d is already complete", id)
	}
	if next := sig.Panels.Next(); next != id {
		return nil, gated("panel %d is next", next)
	}
	return rec, nil
}

// DismissFounders ends the founders' part of the day.
func (s *Session) DismissFounders() error {
	err := s.update("founders leave", func(sig *journey.Signals) error {
		if !sig.Panels.AllComplete() {
			return gated("panel %d is still open", sig.Panels.Next())
		}
		sig.Deliberation.FoundersLeft = true
		return nil
	})
	if err == nil {
		s.note("founders left the room, deliberations begin")
	}
	return err
}

// HoldVoteRound1 records the first show of hands.
func (s *Session) HoldVoteRound1() (journey.VoteRound, error) {
	votes := s.scenario.Deliberation.Round1
	round := journey.VoteRound{Held: true, Yes: votes.Yes, No: votes.No}
	err := s.update("vote round 1", func(sig *journey.Signals) error {
		if err := deliberating(sig); err != nil {
			return err
		}
		if sig.Deliberation.Round1.Held {
			return gated("round 1 was already held")
		}
		sig.Deliberation.Round1 = round
		return nil
	})
	if err != nil {
		return journey.VoteRound{}, err
	}
	s.note("round 1: %d yes, %d no", round.Yes, round.No)
	return round, nil
}

// FinishDiscussion closes the debate that follows a split first round.
func (s *Session) FinishDiscussion() error {
	return s.update("finish discussion", func(sig *journey.Signals) error {
		if err := deliberating(sig); err != nil {
			return err
		}
		if !sig.Deliberation.NeedsSecondRound() {
			return gated("no discussion is needed")
		}
		sig.Deliberation.DiscussionDone = true
		return nil
	})
}

// HoldVoteRound2 records the second show of hands. It only happens when
// round 1 was not unanimous.
func (s *Session) HoldVoteRound2() (journey.VoteRound, error) {
	votes := s.scenario.Deliberation.Round2
	round := journey.VoteRound{Held: true, Yes: votes.Yes, No: votes.No}
	err := s.update("vote round 2", func(sig *journey.Signals) error {
		if err := deliberating(sig); err != nil {
			return err
		}
		if !sig.Deliberation.NeedsSecondRound() {
			return gated("round 1 settled the vote")
		}
		if !sig.Deliberation.DiscussionDone {
			return gated("finish the discussion first")
		}
		if sig.Deliberation.Round2.Held {
			return gated("round 2 was already held")
		}
		sig.Deliberation.Round2 = round
		return nil
	})
	if err != nil {
		return journey.VoteRound{}, err
	}
	s.note("round 2: %d yes, %d no", round.Yes, round.No)
	return round, nil
}

// SaveDeliberationNotes stores the trainee's deliberation notes.
func (s *Session) SaveDeliberationNotes(notes string) error {
	return s.update("save deliberation notes", func(sig *journey.Signals) error {
		if !sig.Deliberation.FoundersLeft {
			return gated("deliberations have not started")
		}
		sig.Deliberation.Notes = strings.TrimSpace(notes)
		return nil
	})
}

// ConcludeDeliberations records the verdict from the final round held.
func (s *Session) ConcludeDeliberations() (journey.Outcome, error) {
	var outcome journey.Outcome
	err := s.update("conclude deliberations", func(sig *journey.Signals) error {
		if err := deliberating(sig); err != nil {
			return err
		}
		d := &sig.Deliberation
		if !d.Round1.Held {
			return gated("hold round 1 first")
		}
		final := d.Round1
		if d.NeedsSecondRound() {
			if !d.Round2.Held {
				return gated("hold round 2 first")
			}
			final = d.Round2
		}
		outcome = journey.OutcomeComeback
		if final.Unanimous() {
			outcome = journey.OutcomeUnanimousYes
		}
		d.Outcome = outcome
		return nil
	})
	if err != nil {
		return "", err
	}
	s.note("deliberations concluded: %s", outcome)
	return outcome, nil
}

func deliberating(sig *journey.Signals) error {
	if !sig.Deliberation.FoundersLeft {
		return gated("the founders are still in the room")
	}
	if sig.Deliberation.Outcome != journey.OutcomePending {
		return gated("deliberations already concluded: %s", sig.Deliberation.Outcome)
	}
	return nil
}

// SelectChampion names the panelist who leads the follow-up.
func (s *Session) SelectChampion(id string) error {
	person, ok := s.scenario.Panelist(id)
	if !ok {
		return fmt.Errorf("session: %q is not a panelist", id)
	}
	err := s.update("select champion", func(sig *journey.Signals) error {
		if !sig.Deliberated() || sig.Deliberation.Outcome != journey.OutcomeUnanimousYes {
			return gated("a champion is chosen after a unanimous yes")
		}
		if sig.ChampionID != "" {
			return gated("champion already selected")
		}
		sig.ChampionID = person.ID
		sig.Tab = journey.ScreenOverview
		return nil
	})
	if err == nil {
		s.note("%s selected as champion", person.Name)
	}
	return err
}
