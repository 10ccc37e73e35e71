package journey

import (
	"fmt"
	"strings"
)

// Stage is one of the four ordered phases of the selection journey.
type Stage int

const (
	StageFOR Stage = iota // First Opinion Review
	StageSOR              // Second Opinion Reviews
	StageLSP              // Local Selection Panel
	StageISP              // International Selection Panel
)

var stageOrder = []Stage{StageFOR, StageSOR, StageLSP, StageISP}

var stageInfo = map[Stage]struct {
	code  string
	label string
}{
	StageFOR: {"FOR", "First Opinion Review"},
	StageSOR: {"SOR", "Second Opinion Reviews"},
	StageLSP: {"LSP", "Local Selection Panel"},
	StageISP: {"ISP", "International Selection Panel"},
}

// Stages returns every stage in journey order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// Valid reports whether s is one of the four known stages.
func (s Stage) Valid() bool {
	_, ok := stageInfo[s]
	return ok
}

func (s Stage) String() string {
	if info, ok := stageInfo[s]; ok {
		return info.code
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Label returns the long display name.
func (s Stage) Label() string {
	if info, ok := stageInfo[s]; ok {
		return info.label
	}
	return s.String()
}

// ParseStage resolves a stage code such as "sor".
func ParseStage(value string) (Stage, error) {
	key := strings.ToUpper(strings.TrimSpace(value))
	for _, stage := range stageOrder {
		if stageInfo[stage].code == key {
			return stage, nil
		}
	}
	return StageFOR, fmt.Errorf("journey: unknown stage %q", value)
}

// Tracker exposes the stage held in a Store. It performs no validation of
// exit conditions; callers advance only after checking their own criteria.
type Tracker struct {
	store *Store
}

// Current returns the active stage.
func (t *Tracker) Current() Stage {
	return t.store.Snapshot().Stage
}

// Advance moves the journey to next. Backward or unknown stages are refused
// and reported as false.
func (t *Tracker) Advance(next Stage) bool {
	moved := false
	_, err := t.store.Update("advance stage to "+next.String(), func(s *Signals) error {
		moved = s.AdvanceStage(next)
		return nil
	})
	return err == nil && moved
}
