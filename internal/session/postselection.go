package session

import (
	"fmt"
	"strings"

	"github.com/kingrea/selection-journey/internal/journey"
)

// StartFounderEmail opens the inbox with the congratulations email drafted.
func (s *Session) StartFounderEmail() (string, error) {
	sig := s.store.Snapshot()
	if !selected(&sig) {
		return "", gated("no champion has been selected")
	}
	if sig.PostSelection.ThanksSent {
		return "", gated("the founders were already thanked")
	}
	return s.detour(journey.ScreenInbox, journey.DraftFounderThanks, journey.ScreenOverview)
}

// StartSynthesis opens the synthesis screen seeded with the panel notes.
func (s *Session) StartSynthesis() (string, error) {
	sig := s.store.Snapshot()
	if !sig.PostSelection.ThanksSent {
		return "", gated("thank the founders first")
	}
	if sig.PostSelection.NotesSynthesized {
		return "", gated("the notes were already synthesized")
	}
	return s.detour(journey.ScreenSynthesize, journey.DraftSynthesis, journey.ScreenOverview)
}

// SaveSynthesis records the pros and cons and returns to the checklist.
func (s *Session) SaveSynthesis(pros, cons []string, recap string) error {
	pros, cons = cleanList(pros), cleanList(cons)
	if len(pros) == 0 || len(cons) == 0 {
		return fmt.Errorf("session: list at least one strength and one area to watch")
	}
	err := s.update("save synthesis", func(sig *journey.Signals) error {
		if !sig.PostSelection.ThanksSent {
			return gated("thank the founders first")
		}
		if sig.PostSelection.NotesSynthesized {
			return gated("the notes were already synthesized")
		}
		sig.Synthesis = journey.Synthesis{Pros: pros, Cons: cons, Recap: strings.TrimSpace(recap)}
		sig.PostSelection.NotesSynthesized = true
		sig.FinishDetour(journey.ScreenSynthesize)
		return nil
	})
	if err == nil {
		s.note("synthesized %d strengths and %d areas to watch", len(pros), len(cons))
	}
	return err
}

// StartChampionEmail opens the inbox with the champion summary drafted.
func (s *Session) StartChampionEmail() (string, error) {
	sig := s.store.Snapshot()
	if !sig.PostSelection.NotesSynthesized {
		return "", gated("synthesize the panel notes first")
	}
	if sig.PostSelection.ChampionEmailed {
		return "", gated("the champion was already emailed")
	}
	return s.detour(journey.ScreenInbox, journey.DraftChampion, journey.ScreenOverview)
}

// StartForwardAvailability opens the inbox with the champion's slots drafted
// for the founder, returning to the calendar to schedule.
func (s *Session) StartForwardAvailability() (string, error) {
	sig := s.store.Snapshot()
	if !sig.Followup.Availability.Received {
		return "", gated("the champion has not shared availability yet")
	}
	if sig.Followup.Forwarded {
		return "", gated("availability was already forwarded")
	}
	return s.detour(journey.ScreenInbox, journey.DraftForwardAvailability, journey.ScreenCalendar)
}

func (s *Session) detour(target journey.Screen, kind journey.DraftKind, ret journey.Screen) (string, error) {
	draft, err := s.Compose(kind)
	if err != nil {
		return "", err
	}
	return s.journey.Navigation().RequestDetour(target, draft, ret)
}

// AcknowledgeStep marks an informational ISP walkthrough screen as read.
// Steps are acknowledged strictly in order; format selection goes through
// ChooseFormat.
func (s *Session) AcknowledgeStep(screen journey.Screen) error {
	if screen == journey.ScreenFormatSelection {
		return fmt.Errorf("session: choose a format instead")
	}
	if journey.InfoStepIndex(screen) == 0 {
		return fmt.Errorf("session: %s is not a walkthrough step", screen)
	}
	err := s.update("acknowledge "+string(screen), func(sig *journey.Signals) error {
		if err := stepDue(sig, screen); err != nil {
			return err
		}
		switch screen {
		case journey.ScreenGlobalReview:
			sig.ISP.GlobalReview = true
		case journey.ScreenProfilePairing:
			sig.ISP.Pairing = true
		case journey.ScreenTeamReview:
			sig.ISP.TeamReview = true
		case journey.ScreenIntroduction:
			sig.ISP.Introduction = true
		}
		return nil
	})
	if err == nil {
		s.note("walkthrough step %q acknowledged", screen)
	}
	return err
}

// ChooseFormat records how the founders attend the ISP.
func (s *Session) ChooseFormat(format journey.Format) error {
	if _, err := journey.ParseFormat(string(format)); err != nil {
		return err
	}
	err := s.update("choose ISP format", func(sig *journey.Signals) error {
		if err := stepDue(sig, journey.ScreenFormatSelection); err != nil {
			return err
		}
		sig.ISP.Format = format
		return nil
	})
	if err == nil {
		s.note("ISP format: %s", format)
	}
	return err
}

func stepDue(sig *journey.Signals, screen journey.Screen) error {
	if !sig.Followup.Logged {
		return gated("log the champion follow-up first")
	}
	for _, step := range journey.InfoSequence() {
		if step == screen {
			if sig.ISP.StepDone(step) {
				return gated("%s is already done", step)
			}
			return nil
		}
		if !sig.ISP.StepDone(step) {
			return gated("%s comes first", step)
		}
	}
	return fmt.Errorf("session: %s is not a walkthrough step", screen)
}

func cleanList(in []string) []string {
	var out []string
	for _, item := range in {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
