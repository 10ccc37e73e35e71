package journey

import (
	"fmt"
	"time"
)

// PanelCount is the number of Local Selection Panel interviews.
const PanelCount = 3

// ReviewPhase is the position of one Second Opinion Review in its cycle.
type ReviewPhase int

const (
	PhaseNotStarted       ReviewPhase = iota
	PhaseCoordinationSent             // account manager asked for mentor slots
	PhaseSlotsReceived                // mentor slots arrived
	PhaseFounderAsked                 // slots forwarded to the founder
	PhaseSlotConfirmed                // founder picked a slot
	PhaseScheduled                    // meeting on the calendar
	PhaseInMeeting
	PhaseMeetingEnded
	PhaseLogged // meeting notes saved in records
	PhaseComplete
)

var reviewPhaseNames = map[ReviewPhase]string{
	PhaseNotStarted:       "not-started",
	PhaseCoordinationSent: "coordination-sent",
	PhaseSlotsReceived:    "slots-received",
	PhaseFounderAsked:     "founder-asked",
	PhaseSlotConfirmed:    "slot-confirmed",
	PhaseScheduled:        "scheduled",
	PhaseInMeeting:        "in-meeting",
	PhaseMeetingEnded:     "meeting-ended",
	PhaseLogged:           "logged",
	PhaseComplete:         "complete",
}

var reviewTransitions = map[ReviewPhase]ReviewPhase{
	PhaseNotStarted:       PhaseCoordinationSent,
	PhaseCoordinationSent: PhaseSlotsReceived,
	PhaseSlotsReceived:    PhaseFounderAsked,
	PhaseFounderAsked:     PhaseSlotConfirmed,
	PhaseSlotConfirmed:    PhaseScheduled,
	PhaseScheduled:        PhaseInMeeting,
	PhaseInMeeting:        PhaseMeetingEnded,
	PhaseMeetingEnded:     PhaseLogged,
	PhaseLogged:           PhaseComplete,
}

func (p ReviewPhase) String() string {
	if name, ok := reviewPhaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Next returns the phase that follows p, if any.
func (p ReviewPhase) Next() (ReviewPhase, bool) {
	next, ok := reviewTransitions[p]
	return next, ok
}

// AssessmentStatus tracks the mentor's written assessment.
type AssessmentStatus string

const (
	AssessmentNone      AssessmentStatus = ""
	AssessmentPending   AssessmentStatus = "pending"
	AssessmentCompleted AssessmentStatus = "completed"
)

// Ratings are the mentor's scores out of ten.
type Ratings struct {
	Readiness int
	Potential int
	Fit       int
}

// Assessment is the mentor's verdict attached to one review.
type Assessment struct {
	Status       AssessmentStatus
	Ratings      *Ratings
	Feedback     string
	FollowupSent bool
}

// ReviewCycle is one Second Opinion Review.
type ReviewCycle struct {
	Index       int
	Mentor      string
	Phase       ReviewPhase
	MentorSlots []string
	Slot        string
	MeetingID   string
	Assessment  Assessment
}

// Advance moves the cycle to its next phase when it is currently at from.
func (c *ReviewCycle) Advance(from ReviewPhase) error {
	if c.Phase != from {
		return fmt.Errorf("%w: review #%d is %s, not %s", ErrGated, c.Index, c.Phase, from)
	}
	next, ok := c.Phase.Next()
	if !ok {
		return fmt.Errorf("%w: review #%d already complete", ErrGated, c.Index)
	}
	c.Phase = next
	return nil
}

// Ready reports whether both the meeting log and the assessment exist.
func (c ReviewCycle) Ready() bool {
	return c.Phase == PhaseLogged && c.Assessment.Status == AssessmentCompleted
}

// ReviewLedger holds every review cycle initiated so far.
type ReviewLedger struct {
	Cycles    []ReviewCycle
	Completed []int
}

// Active returns the newest cycle when it is still running.
func (l *ReviewLedger) Active() *ReviewCycle {
	if len(l.Cycles) == 0 {
		return nil
	}
	last := &l.Cycles[len(l.Cycles)-1]
	if last.Phase == PhaseComplete {
		return nil
	}
	return last
}

// Cycle returns the cycle with the given 1-based index.
func (l *ReviewLedger) Cycle(index int) *ReviewCycle {
	for i := range l.Cycles {
		if l.Cycles[i].Index == index {
			return &l.Cycles[i]
		}
	}
	return nil
}

// CompletedCount is the number of finished reviews.
func (l ReviewLedger) CompletedCount() int {
	return len(l.Completed)
}

// Preparation is the FOR checklist.
type Preparation struct {
	Questions  []string
	Statements []string
	Complete   bool
}

// HasQuestion reports whether id is selected.
func (p Preparation) HasQuestion(id string) bool {
	for _, q := range p.Questions {
		if q == id {
			return true
		}
	}
	return false
}

// PanelRecord is one LSP interview.
type PanelRecord struct {
	ID        int
	Panelists []string
	Notes     string
	Complete  bool
}

// PanelSet is the pre-allocated trio of panels.
type PanelSet struct {
	Started bool
	Records [PanelCount]PanelRecord
}

// AllComplete reports whether every panel finished.
func (p PanelSet) AllComplete() bool {
	for _, rec := range p.Records {
		if !rec.Complete {
			return false
		}
	}
	return true
}

// Next returns the first incomplete panel id, or 0.
func (p PanelSet) Next() int {
	for _, rec := range p.Records {
		if !rec.Complete {
			return rec.ID
		}
	}
	return 0
}

// Panel returns the record for id.
func (p *PanelSet) Panel(id int) *PanelRecord {
	if id < 1 || id > PanelCount {
		return nil
	}
	return &p.Records[id-1]
}

// VoteRound is one show of hands during deliberations.
type VoteRound struct {
	Held bool
	Yes  int
	No   int
}

// Unanimous reports a held round with only yes votes.
func (v VoteRound) Unanimous() bool {
	return v.Held && v.No == 0 && v.Yes > 0
}

// Outcome is the deliberation verdict.
type Outcome string

const (
	OutcomePending      Outcome = "pending"
	OutcomeUnanimousYes Outcome = "unanimous-yes"
	OutcomeComeback     Outcome = "comeback"
)

// Deliberation tracks the closed-door discussion after the panels.
type Deliberation struct {
	FoundersLeft   bool
	Round1         VoteRound
	DiscussionDone bool
	Round2         VoteRound
	Notes          string
	Outcome        Outcome
}

// NeedsSecondRound reports whether round one failed to reach consensus.
func (d Deliberation) NeedsSecondRound() bool {
	return d.Round1.Held && !d.Round1.Unanimous()
}

// Synthesis is the trainee's summary of the panels.
type Synthesis struct {
	Pros  []string
	Cons  []string
	Recap string
}

// PostSelection is the checklist shown after a champion is chosen.
type PostSelection struct {
	ThanksSent       bool
	NotesSynthesized bool
	ChampionEmailed  bool
}

// Done reports whether all three steps are finished.
func (p PostSelection) Done() bool {
	return p.ThanksSent && p.NotesSynthesized && p.ChampionEmailed
}

// Availability is the champion's offered slots. Received and Slots are
// always written together.
type Availability struct {
	Received bool
	Slots    []string
}

// Confirmation is the founder's chosen slot. Confirmed and Slot are always
// written together.
type Confirmation struct {
	Confirmed bool
	Slot      string
}

// Followup tracks the champion follow-up meeting.
type Followup struct {
	Availability Availability
	Forwarded    bool
	Confirmation Confirmation
	Scheduled    bool
	MeetingID    string
	Logged       bool
}

// Format is how the founders attend the ISP.
type Format string

const (
	FormatUnset    Format = ""
	FormatVirtual  Format = "virtual"
	FormatInPerson Format = "in-person"
)

// ParseFormat resolves a format name.
func ParseFormat(value string) (Format, error) {
	switch Format(value) {
	case FormatVirtual, FormatInPerson:
		return Format(value), nil
	}
	return FormatUnset, fmt.Errorf("journey: unknown format %q", value)
}

// ISPProgress tracks the five-step walkthrough after the follow-up.
type ISPProgress struct {
	GlobalReview bool
	Format       Format
	Pairing      bool
	TeamReview   bool
	Introduction bool
}

// StepDone reports whether the walkthrough screen has been acknowledged.
func (p ISPProgress) StepDone(s Screen) bool {
	switch s {
	case ScreenGlobalReview:
		return p.GlobalReview
	case ScreenFormatSelection:
		return p.Format != FormatUnset
	case ScreenProfilePairing:
		return p.Pairing
	case ScreenTeamReview:
		return p.TeamReview
	case ScreenIntroduction:
		return p.Introduction
	}
	return false
}

// Done reports whether every walkthrough step is acknowledged.
func (p ISPProgress) Done() bool {
	for _, s := range infoSequence {
		if !p.StepDone(s) {
			return false
		}
	}
	return true
}

// Email is one message in the mock inbox.
type Email struct {
	ID       string
	Thread   string
	From     string
	To       string
	Subject  string
	Body     string
	Outgoing bool
	Read     bool
	At       time.Time
}

// MeetingKind separates review meetings from the champion follow-up.
type MeetingKind string

const (
	MeetingReview   MeetingKind = "review"
	MeetingFollowup MeetingKind = "followup"
)

// MeetingStatus is the calendar state of a meeting.
type MeetingStatus string

const (
	MeetingScheduled  MeetingStatus = "scheduled"
	MeetingInProgress MeetingStatus = "in-progress"
	MeetingEnded      MeetingStatus = "ended"
)

// Meeting is one calendar entry.
type Meeting struct {
	ID     string
	Kind   MeetingKind
	Review int
	Title  string
	With   string
	Slot   string
	Status MeetingStatus
	Logged bool
}

// MeetingLog is a records entry written after a meeting.
type MeetingLog struct {
	ID        string
	MeetingID string
	Kind      MeetingKind
	Review    int
	Notes     string
	At        time.Time
}

// ReplyKind names a simulated delayed reply.
type ReplyKind string

const (
	ReplyMentorSlots          ReplyKind = "mentor-slots"
	ReplyFounderSlot          ReplyKind = "founder-slot"
	ReplyAssessment           ReplyKind = "assessment"
	ReplyFounderThanks        ReplyKind = "founder-thanks"
	ReplyChampionAvailability ReplyKind = "champion-availability"
	ReplyFounderConfirmation  ReplyKind = "founder-confirmation"
)

// PendingReply is a reply scheduled but not yet delivered.
type PendingReply struct {
	ID     string
	Kind   ReplyKind
	Review int
	Due    time.Time
}

// Detour is a promoted navigation request: show Target, then go to Return.
type Detour struct {
	ID     string
	Target Screen
	Return Screen
	Kind   DraftKind
}

// Signals is the full durable state of one training session.
type Signals struct {
	Tab           Screen
	Stage         Stage
	Prep          Preparation
	Reviews       ReviewLedger
	Panels        PanelSet
	Deliberation  Deliberation
	ChampionID    string
	Synthesis     Synthesis
	PostSelection PostSelection
	Followup      Followup
	ISP           ISPProgress
	Mail          []Email
	Meetings      []Meeting
	Logs          []MeetingLog
	Awaiting      []PendingReply
	Detour        *Detour
}

// DefaultSignals returns the state of a brand-new session.
func DefaultSignals() Signals {
	s := Signals{
		Tab:   ScreenOverview,
		Stage: StageFOR,
		Deliberation: Deliberation{
			Outcome: OutcomePending,
		},
	}
	for i := range s.Panels.Records {
		s.Panels.Records[i].ID = i + 1
	}
	return s
}

// Clone returns a deep copy.
func (s Signals) Clone() Signals {
	out := s
	out.Prep.Questions = cloneStrings(s.Prep.Questions)
	out.Prep.Statements = cloneStrings(s.Prep.Statements)
	out.Reviews.Completed = cloneInts(s.Reviews.Completed)
	out.Reviews.Cycles = cloneCycles(s.Reviews.Cycles)
	for i := range out.Panels.Records {
		out.Panels.Records[i].Panelists = cloneStrings(s.Panels.Records[i].Panelists)
	}
	out.Synthesis.Pros = cloneStrings(s.Synthesis.Pros)
	out.Synthesis.Cons = cloneStrings(s.Synthesis.Cons)
	out.Followup.Availability.Slots = cloneStrings(s.Followup.Availability.Slots)
	out.Mail = append([]Email(nil), s.Mail...)
	out.Meetings = append([]Meeting(nil), s.Meetings...)
	out.Logs = append([]MeetingLog(nil), s.Logs...)
	out.Awaiting = append([]PendingReply(nil), s.Awaiting...)
	if s.Detour != nil {
		d := *s.Detour
		out.Detour = &d
	}
	return out
}

// AdvanceStage moves forward to next. It refuses backward or unknown values.
func (s *Signals) AdvanceStage(next Stage) bool {
	if !next.Valid() || next <= s.Stage {
		return false
	}
	s.Stage = next
	return true
}

// FinishDetour completes the active detour when it targets target: the tab
// switches to the stored return screen and the detour is cleared.
func (s *Signals) FinishDetour(target Screen) bool {
	if s.Detour == nil || s.Detour.Target != target {
		return false
	}
	s.Tab = s.Detour.Return
	s.Detour = nil
	return true
}

// Deliberated reports whether the panels, the founders' exit and a verdict
// are all behind us.
func (s Signals) Deliberated() bool {
	return s.Panels.AllComplete() && s.Deliberation.FoundersLeft && s.Deliberation.Outcome != OutcomePending
}

// Await records a scheduled reply.
func (s *Signals) Await(reply PendingReply) {
	s.Awaiting = append(s.Awaiting, reply)
}

// Awaits reports whether id is still outstanding.
func (s Signals) Awaits(id string) bool {
	for _, r := range s.Awaiting {
		if r.ID == id {
			return true
		}
	}
	return false
}

// Settle removes id from the outstanding replies and returns it.
func (s *Signals) Settle(id string) (PendingReply, bool) {
	for i, r := range s.Awaiting {
		if r.ID == id {
			s.Awaiting = append(s.Awaiting[:i:i], s.Awaiting[i+1:]...)
			return r, true
		}
	}
	return PendingReply{}, false
}

// Meeting returns the calendar entry with id.
func (s *Signals) Meeting(id string) *Meeting {
	for i := range s.Meetings {
		if s.Meetings[i].ID == id {
			return &s.Meetings[i]
		}
	}
	return nil
}

// Email returns the message with id.
func (s *Signals) Email(id string) *Email {
	for i := range s.Mail {
		if s.Mail[i].ID == id {
			return &s.Mail[i]
		}
	}
	return nil
}

// Unread counts unread incoming mail.
func (s Signals) Unread() int {
	n := 0
	for _, e := range s.Mail {
		if !e.Outgoing && !e.Read {
			n++
		}
	}
	return n
}

func cloneCycles(in []ReviewCycle) []ReviewCycle {
	if in == nil {
		return nil
	}
	out := make([]ReviewCycle, len(in))
	for i, c := range in {
		c.MentorSlots = cloneStrings(c.MentorSlots)
		if c.Assessment.Ratings != nil {
			r := *c.Assessment.Ratings
			c.Assessment.Ratings = &r
		}
		out[i] = c
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneInts(in []int) []int {
	if in == nil {
		return nil
	}
	return append([]int(nil), in...)
}
