package journey

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/google/go-cmp/cmp"
)

// Name identifies one named signal in the registry.
type Name string

// Kind classifies a signal's value.
type Kind int

const (
	KindFlag Kind = iota
	KindEnum
	KindText
	KindList
	KindNumber
	KindCompound
)

func (k Kind) String() string {
	switch k {
	case KindFlag:
		return "flag"
	case KindEnum:
		return "enum"
	case KindText:
		return "text"
	case KindList:
		return "list"
	case KindNumber:
		return "number"
	case KindCompound:
		return "compound"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

const (
	SignalTab              Name = "tab"
	SignalStage            Name = "stage"
	SignalQuestions        Name = "prep.questions"
	SignalStatements       Name = "prep.statements"
	SignalPrepComplete     Name = "prep.complete"
	SignalReviewCycles     Name = "reviews.cycles"
	SignalActiveReview     Name = "reviews.active"
	SignalCompletedReviews Name = "reviews.completed"
	SignalPanelsStarted    Name = "panels.started"
	SignalFoundersLeft     Name = "deliberation.founders-left"
	SignalRound1           Name = "deliberation.round1"
	SignalDiscussion       Name = "deliberation.discussion"
	SignalRound2           Name = "deliberation.round2"
	SignalDeliberationNote Name = "deliberation.notes"
	SignalOutcome          Name = "deliberation.outcome"
	SignalChampion         Name = "champion.id"
	SignalSynthesis        Name = "synthesis"
	SignalThanksSent       Name = "post.thanks-sent"
	SignalNotesSynthesized Name = "post.notes-synthesized"
	SignalChampionEmailed  Name = "post.champion-emailed"
	SignalAvailability     Name = "followup.availability"
	SignalForwarded        Name = "followup.forwarded"
	SignalConfirmation     Name = "followup.confirmation"
	SignalFollowupSched    Name = "followup.scheduled"
	SignalFollowupLogged   Name = "followup.logged"
	SignalGlobalReview     Name = "isp.global-review"
	SignalFormat           Name = "isp.format"
	SignalPairing          Name = "isp.pairing"
	SignalTeamReview       Name = "isp.team-review"
	SignalIntroduction     Name = "isp.introduction"
	SignalMail             Name = "mail"
	SignalUnread           Name = "mail.unread"
	SignalMeetings         Name = "calendar.meetings"
	SignalLogs             Name = "records.logs"
	SignalAwaiting         Name = "replies.awaiting"
	SignalDetour           Name = "detour"
)

// PanelComplete names the completion flag of panel id.
func PanelComplete(id int) Name {
	return Name(fmt.Sprintf("panel.%d.complete", id))
}

// PanelNotes names the notes of panel id.
func PanelNotes(id int) Name {
	return Name(fmt.Sprintf("panel.%d.notes", id))
}

// Descriptor documents one registered signal.
type Descriptor struct {
	Name      Name
	Kind      Kind
	Monotonic bool
	Default   any
	ReadOnly  bool
}

type entry struct {
	name      Name
	kind      Kind
	monotonic bool
	get       func(*Signals) any
	set       func(*Signals, any) error
	// pin restores prev's value into next when next regressed, reporting
	// whether it did. Flags get one generated from get/set.
	pin func(prev, next *Signals) bool
}

var (
	registry      []entry
	registryIndex map[Name]int
)

func init() {
	registry = buildRegistry()
	registryIndex = make(map[Name]int, len(registry))
	for i, e := range registry {
		registryIndex[e.name] = i
	}
}

func lookup(name Name) (entry, bool) {
	idx, ok := registryIndex[name]
	if !ok {
		return entry{}, false
	}
	return registry[idx], true
}

// Describe returns the registry entries sorted by name.
func Describe() []Descriptor {
	defaults := DefaultSignals()
	out := make([]Descriptor, 0, len(registry))
	for _, e := range registry {
		out = append(out, Descriptor{
			Name:      e.name,
			Kind:      e.kind,
			Monotonic: e.monotonic,
			Default:   e.get(&defaults),
			ReadOnly:  e.set == nil,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Default returns the documented default value for name.
func Default(name Name) (any, bool) {
	e, ok := lookup(name)
	if !ok {
		return nil, false
	}
	defaults := DefaultSignals()
	return e.get(&defaults), true
}

// changedNames lists every registered signal whose value differs.
func changedNames(prev, next *Signals) []string {
	var names []string
	for _, e := range registry {
		if !cmp.Equal(e.get(prev), e.get(next)) {
			names = append(names, string(e.name))
		}
	}
	return names
}

// pinMonotonic reverts any monotonic signal that moved backward and returns
// the names it restored.
func pinMonotonic(prev, next *Signals) []Name {
	var restored []Name
	for _, e := range registry {
		if e.pin != nil && e.pin(prev, next) {
			restored = append(restored, e.name)
		}
	}
	return restored
}

func flag(name Name, field func(*Signals) *bool) entry {
	return entry{
		name:      name,
		kind:      KindFlag,
		monotonic: true,
		get:       func(s *Signals) any { return *field(s) },
		set: func(s *Signals, v any) error {
			b, ok := v.(bool)
			if !ok {
				return typeError(name, v, false)
			}
			*field(s) = b
			return nil
		},
		pin: func(prev, next *Signals) bool {
			if *field(prev) && !*field(next) {
				*field(next) = true
				return true
			}
			return false
		},
	}
}

func text(name Name, field func(*Signals) *string) entry {
	return entry{
		name: name,
		kind: KindText,
		get:  func(s *Signals) any { return *field(s) },
		set: func(s *Signals, v any) error {
			str, ok := v.(string)
			if !ok {
				return typeError(name, v, "")
			}
			*field(s) = str
			return nil
		},
	}
}

func stringList(name Name, field func(*Signals) *[]string) entry {
	return entry{
		name: name,
		kind: KindList,
		get:  func(s *Signals) any { return cloneStrings(*field(s)) },
		set: func(s *Signals, v any) error {
			list, ok := v.([]string)
			if !ok {
				return typeError(name, v, []string(nil))
			}
			*field(s) = cloneStrings(list)
			return nil
		},
	}
}

func readOnly(name Name, kind Kind, get func(*Signals) any) entry {
	return entry{name: name, kind: kind, get: get}
}

func typeError(name Name, got, want any) error {
	return fmt.Errorf("%w: %s wants %T, got %T", ErrSignalType, name, want, got)
}

func buildRegistry() []entry {
	entries := []entry{
		{
			name: SignalTab,
			kind: KindEnum,
			get:  func(s *Signals) any { return s.Tab },
			set: func(s *Signals, v any) error {
				tab, ok := v.(Screen)
				if !ok {
					return typeError(SignalTab, v, ScreenOverview)
				}
				if !tab.IsTab() {
					return fmt.Errorf("%w: %s is not a tab", ErrSignalType, tab)
				}
				s.Tab = tab
				return nil
			},
		},
		{
			name:      SignalStage,
			kind:      KindEnum,
			monotonic: true,
			get:       func(s *Signals) any { return s.Stage },
			set: func(s *Signals, v any) error {
				stage, ok := v.(Stage)
				if !ok || !stage.Valid() {
					return typeError(SignalStage, v, StageFOR)
				}
				s.Stage = stage
				return nil
			},
			pin: func(prev, next *Signals) bool {
				if next.Stage < prev.Stage || !next.Stage.Valid() {
					next.Stage = prev.Stage
					return true
				}
				return false
			},
		},
		stringList(SignalQuestions, func(s *Signals) *[]string { return &s.Prep.Questions }),
		stringList(SignalStatements, func(s *Signals) *[]string { return &s.Prep.Statements }),
		flag(SignalPrepComplete, func(s *Signals) *bool { return &s.Prep.Complete }),
		readOnly(SignalReviewCycles, KindList, func(s *Signals) any {
			return cloneCycles(s.Reviews.Cycles)
		}),
		readOnly(SignalActiveReview, KindNumber, func(s *Signals) any {
			if c := s.Reviews.Active(); c != nil {
				return c.Index
			}
			return 0
		}),
		{
			name:      SignalCompletedReviews,
			kind:      KindList,
			monotonic: true,
			get:       func(s *Signals) any { return cloneInts(s.Reviews.Completed) },
			set: func(s *Signals, v any) error {
				list, ok := v.([]int)
				if !ok {
					return typeError(SignalCompletedReviews, v, []int(nil))
				}
				s.Reviews.Completed = cloneInts(list)
				return nil
			},
			pin: func(prev, next *Signals) bool {
				if hasPrefix(next.Reviews.Completed, prev.Reviews.Completed) {
					return false
				}
				next.Reviews.Completed = cloneInts(prev.Reviews.Completed)
				return true
			},
		},
		flag(SignalPanelsStarted, func(s *Signals) *bool { return &s.Panels.Started }),
		flag(SignalFoundersLeft, func(s *Signals) *bool { return &s.Deliberation.FoundersLeft }),
		voteEntry(SignalRound1, func(s *Signals) *VoteRound { return &s.Deliberation.Round1 }),
		flag(SignalDiscussion, func(s *Signals) *bool { return &s.Deliberation.DiscussionDone }),
		voteEntry(SignalRound2, func(s *Signals) *VoteRound { return &s.Deliberation.Round2 }),
		text(SignalDeliberationNote, func(s *Signals) *string { return &s.Deliberation.Notes }),
		{
			name:      SignalOutcome,
			kind:      KindEnum,
			monotonic: true,
			get:       func(s *Signals) any { return s.Deliberation.Outcome },
			set: func(s *Signals, v any) error {
				outcome, ok := v.(Outcome)
				if !ok {
					return typeError(SignalOutcome, v, OutcomePending)
				}
				switch outcome {
				case OutcomePending, OutcomeUnanimousYes, OutcomeComeback:
				default:
					return fmt.Errorf("%w: unknown outcome %q", ErrSignalType, outcome)
				}
				s.Deliberation.Outcome = outcome
				return nil
			},
			pin: func(prev, next *Signals) bool {
				if prev.Deliberation.Outcome != OutcomePending && next.Deliberation.Outcome != prev.Deliberation.Outcome {
					next.Deliberation.Outcome = prev.Deliberation.Outcome
					return true
				}
				return false
			},
		},
		{
			name:      SignalChampion,
			kind:      KindText,
			monotonic: true,
			get:       func(s *Signals) any { return s.ChampionID },
			set: func(s *Signals, v any) error {
				id, ok := v.(string)
				if !ok {
					return typeError(SignalChampion, v, "")
				}
				s.ChampionID = id
				return nil
			},
			pin: func(prev, next *Signals) bool {
				if prev.ChampionID != "" && next.ChampionID != prev.ChampionID {
					next.ChampionID = prev.ChampionID
					return true
				}
				return false
			},
		},
		{
			name: SignalSynthesis,
			kind: KindCompound,
			get: func(s *Signals) any {
				return Synthesis{Pros: cloneStrings(s.Synthesis.Pros), Cons: cloneStrings(s.Synthesis.Cons), Recap: s.Synthesis.Recap}
			},
			set: func(s *Signals, v any) error {
				syn, ok := v.(Synthesis)
				if !ok {
					return typeError(SignalSynthesis, v, Synthesis{})
				}
				s.Synthesis = Synthesis{Pros: cloneStrings(syn.Pros), Cons: cloneStrings(syn.Cons), Recap: syn.Recap}
				return nil
			},
		},
		flag(SignalThanksSent, func(s *Signals) *bool { return &s.PostSelection.ThanksSent }),
		flag(SignalNotesSynthesized, func(s *Signals) *bool { return &s.PostSelection.NotesSynthesized }),
		flag(SignalChampionEmailed, func(s *Signals) *bool { return &s.PostSelection.ChampionEmailed }),
		{
			name:      SignalAvailability,
			kind:      KindCompound,
			monotonic: true,
			get: func(s *Signals) any {
				return Availability{Received: s.Followup.Availability.Received, Slots: cloneStrings(s.Followup.Availability.Slots)}
			},
			set: func(s *Signals, v any) error {
				av, ok := v.(Availability)
				if !ok {
					return typeError(SignalAvailability, v, Availability{})
				}
				s.Followup.Availability = Availability{Received: av.Received, Slots: cloneStrings(av.Slots)}
				return nil
			},
			pin: func(prev, next *Signals) bool {
				if prev.Followup.Availability.Received && !next.Followup.Availability.Received {
					next.Followup.Availability = Availability{Received: true, Slots: cloneStrings(prev.Followup.Availability.Slots)}
					return true
				}
				return false
			},
		},
		flag(SignalForwarded, func(s *Signals) *bool { return &s.Followup.Forwarded }),
		{
			name:      SignalConfirmation,
			kind:      KindCompound,
			monotonic: true,
			get:       func(s *Signals) any { return s.Followup.Confirmation },
			set: func(s *Signals, v any) error {
				conf, ok := v.(Confirmation)
				if !ok {
					return typeError(SignalConfirmation, v, Confirmation{})
				}
				s.Followup.Confirmation = conf
				return nil
			},
			pin: func(prev, next *Signals) bool {
				if prev.Followup.Confirmation.Confirmed && !next.Followup.Confirmation.Confirmed {
					next.Followup.Confirmation = prev.Followup.Confirmation
					return true
				}
				return false
			},
		},
		flag(SignalFollowupSched, func(s *Signals) *bool { return &s.Followup.Scheduled }),
		flag(SignalFollowupLogged, func(s *Signals) *bool { return &s.Followup.Logged }),
		flag(SignalGlobalReview, func(s *Signals) *bool { return &s.ISP.GlobalReview }),
		{
			name:      SignalFormat,
			kind:      KindEnum,
			monotonic: true,
			get:       func(s *Signals) any { return s.ISP.Format },
			set: func(s *Signals, v any) error {
				format, ok := v.(Format)
				if !ok {
					return typeError(SignalFormat, v, FormatUnset)
				}
				if format != FormatUnset {
					if _, err := ParseFormat(string(format)); err != nil {
						return fmt.Errorf("%w: %v", ErrSignalType, err)
					}
				}
				s.ISP.Format = format
				return nil
			},
			pin: func(prev, next *Signals) bool {
				if prev.ISP.Format != FormatUnset && next.ISP.Format == FormatUnset {
					next.ISP.Format = prev.ISP.Format
					return true
				}
				return false
			},
		},
		flag(SignalPairing, func(s *Signals) *bool { return &s.ISP.Pairing }),
		flag(SignalTeamReview, func(s *Signals) *bool { return &s.ISP.TeamReview }),
		flag(SignalIntroduction, func(s *Signals) *bool { return &s.ISP.Introduction }),
		readOnly(SignalMail, KindList, func(s *Signals) any { return append([]Email(nil), s.Mail...) }),
		readOnly(SignalUnread, KindNumber, func(s *Signals) any { return s.Unread() }),
		readOnly(SignalMeetings, KindList, func(s *Signals) any { return append([]Meeting(nil), s.Meetings...) }),
		readOnly(SignalLogs, KindList, func(s *Signals) any { return append([]MeetingLog(nil), s.Logs...) }),
		readOnly(SignalAwaiting, KindNumber, func(s *Signals) any { return len(s.Awaiting) }),
		readOnly(SignalDetour, KindCompound, func(s *Signals) any {
			if s.Detour == nil {
				return Detour{}
			}
			return *s.Detour
		}),
	}
	for id := 1; id <= PanelCount; id++ {
		idx := id - 1
		entries = append(entries,
			flag(PanelComplete(id), func(s *Signals) *bool { return &s.Panels.Records[idx].Complete }),
			text(PanelNotes(id), func(s *Signals) *string { return &s.Panels.Records[idx].Notes }),
		)
	}
	return entries
}

func voteEntry(name Name, field func(*Signals) *VoteRound) entry {
	return entry{
		name:      name,
		kind:      KindCompound,
		monotonic: true,
		get:       func(s *Signals) any { return *field(s) },
		set: func(s *Signals, v any) error {
			round, ok := v.(VoteRound)
			if !ok {
				return typeError(name, v, VoteRound{})
			}
			*field(s) = round
			return nil
		},
		pin: func(prev, next *Signals) bool {
			if field(prev).Held && !field(next).Held {
				*field(next) = *field(prev)
				return true
			}
			return false
		},
	}
}

func hasPrefix(list, prefix []int) bool {
	if len(list) < len(prefix) {
		return false
	}
	for i := range prefix {
		if list[i] != prefix[i] {
			return false
		}
	}
	return true
}
