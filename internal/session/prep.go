package session

import (
	"fmt"
	"strings"

	"github.com/kingrea/selection-journey/internal/journey"
)

// ToggleQuestion selects or deselects a FOR question by catalog id.
func (s *Session) ToggleQuestion(id string) error {
	if _, ok := s.scenario.Question(id); !ok {
		return fmt.Errorf("session: unknown question %q", id)
	}
	return s.update("toggle question "+id, func(sig *journey.Signals) error {
		if sig.Prep.Complete {
			return gated("the FOR preparation is already submitted")
		}
		for i, q := range sig.Prep.Questions {
			if q == id {
				sig.Prep.Questions = append(sig.Prep.Questions[:i:i], sig.Prep.Questions[i+1:]...)
				return nil
			}
		}
		sig.Prep.Questions = append(sig.Prep.Questions, id)
		return nil
	})
}

// AddPitchStatement appends one intro pitch bullet.
func (s *Session) AddPitchStatement(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("session: pitch statement is empty")
	}
	return s.update("add pitch statement", func(sig *journey.Signals) error {
		if sig.Prep.Complete {
			return gated("the FOR preparation is already submitted")
		}
		sig.Prep.Statements = append(sig.Prep.Statements, text)
		return nil
	})
}

// RemovePitchStatement deletes the bullet at index.
func (s *Session) RemovePitchStatement(index int) error {
	return s.update("remove pitch statement", func(sig *journey.Signals) error {
		if sig.Prep.Complete {
			return gated("the FOR preparation is already submitted")
		}
		if index < 0 || index >= len(sig.Prep.Statements) {
			return fmt.Errorf("session: no pitch statement at %d", index)
		}
		sig.Prep.Statements = append(sig.Prep.Statements[:index:index], sig.Prep.Statements[index+1:]...)
		return nil
	})
}

// CompletePreparation submits the FOR checklist and moves to SOR.
func (s *Session) CompletePreparation() error {
	err := s.update("complete FOR preparation", func(sig *journey.Signals) error {
		if sig.Prep.Complete {
			return nil
		}
		if n := len(sig.Prep.Questions); n < s.thresholds.MinQuestions {
			return gated("select at least %d questions (%d selected)", s.thresholds.MinQuestions, n)
		}
		if n := len(sig.Prep.Statements); n < s.thresholds.MinStatements {
			return gated("draft at least %d pitch statements (%d drafted)", s.thresholds.MinStatements, n)
		}
		sig.Prep.Complete = true
		sig.AdvanceStage(journey.StageSOR)
		return nil
	})
	if err == nil {
		s.note("FOR preparation submitted")
	}
	return err
}
