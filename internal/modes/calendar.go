package modes

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/selection-journey/internal/journey"
)

var (
	keySchedule = binding("s", "schedule meeting")
	keyJoin     = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start/end meeting"))
	keyLog      = binding("l", "log notes")
	keyFollowup = binding("f", "chase assessment")
)

// Calendar lists meetings and runs them.
type Calendar struct {
	BaseMode
	cursor int
}

// NewCalendar creates the calendar tab.
func NewCalendar() *Calendar {
	return &Calendar{BaseMode: NewBaseMode(journey.ScreenCalendar)}
}

func (m *Calendar) Init(ctx *Context) tea.Cmd {
	m.SetContext(ctx)
	return nil
}

func (m *Calendar) Update(msg tea.Msg) (Mode, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	s := m.Session()
	meetings := s.Snapshot().Meetings
	switch {
	case key.Matches(keyMsg, keyUp):
		m.cursor = clamp(m.cursor-1, len(meetings))
	case key.Matches(keyMsg, keyDown):
		m.cursor = clamp(m.cursor+1, len(meetings))
	case key.Matches(keyMsg, keySchedule):
		meeting, err := s.ScheduleMeeting()
		m.ctx.Report(fmt.Sprintf("scheduled %q", meeting.Title), err)
		if err == nil {
			m.cursor = len(meetings)
		}
	case key.Matches(keyMsg, keyJoin):
		if len(meetings) == 0 {
			return m, nil
		}
		meeting := meetings[clamp(m.cursor, len(meetings))]
		switch meeting.Status {
		case journey.MeetingScheduled:
			m.ctx.Report("meeting started", s.StartMeeting(meeting.ID))
		case journey.MeetingInProgress:
			m.ctx.Report("meeting ended, log your notes in records", s.EndMeeting(meeting.ID))
		default:
			m.ctx.Report("", fmt.Errorf("%q already ended", meeting.Title))
		}
	}
	return m, nil
}

func (m *Calendar) Keys() []key.Binding {
	return []key.Binding{keyUp, keyDown, keySchedule, keyJoin}
}

func (m *Calendar) View() string {
	sig := m.Session().Snapshot()
	var b strings.Builder
	b.WriteString(title("Calendar") + "\n")
	if c := sig.Reviews.Active(); c != nil && c.Phase == journey.PhaseSlotConfirmed {
		b.WriteString(pendingStyle.Render(fmt.Sprintf("Review #%d confirmed for %s, press s to schedule", c.Index, c.Slot)) + "\n\n")
	}
	if sig.Followup.Confirmation.Confirmed && !sig.Followup.Scheduled {
		b.WriteString(pendingStyle.Render(fmt.Sprintf("Founder confirmed %s for the champion follow-up, press s to schedule", sig.Followup.Confirmation.Slot)) + "\n\n")
	}
	if len(sig.Meetings) == 0 {
		b.WriteString(subtleStyle.Render("Nothing on the calendar.") + "\n")
	}
	for i, meeting := range sig.Meetings {
		fmt.Fprintf(&b, "%s %-40.40s %-20s %s\n", cursor(i == m.cursor), meeting.Title, meeting.Slot, meeting.Status)
	}
	return b.String()
}

// Records files meeting notes and shows mentor assessments.
type Records struct {
	BaseMode
	cursor  int
	logging bool
	notes   textarea.Model
}

// NewRecords creates the records tab.
func NewRecords() *Records {
	notes := textarea.New()
	notes.Placeholder = "Meeting notes"
	notes.ShowLineNumbers = false
	return &Records{BaseMode: NewBaseMode(journey.ScreenRecords), notes: notes}
}

func (m *Records) Init(ctx *Context) tea.Cmd {
	m.SetContext(ctx)
	m.notes.SetWidth(max(20, m.width()-4))
	m.notes.SetHeight(6)
	return nil
}

func (m *Records) Capturing() bool { return m.logging }

// unlogged lists ended meetings still waiting for notes.
func (m *Records) unlogged() []journey.Meeting {
	var out []journey.Meeting
	for _, meeting := range m.Session().Snapshot().Meetings {
		if meeting.Status == journey.MeetingEnded && !meeting.Logged {
			out = append(out, meeting)
		}
	}
	return out
}

func (m *Records) Update(msg tea.Msg) (Mode, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	s := m.Session()
	pending := m.unlogged()
	if m.logging {
		switch {
		case key.Matches(keyMsg, keyCancel):
			m.logging = false
			m.notes.Blur()
			return m, nil
		case key.Matches(keyMsg, keySave):
			if len(pending) == 0 {
				m.logging = false
				return m, nil
			}
			meeting := pending[clamp(m.cursor, len(pending))]
			err := s.LogMeeting(meeting.ID, m.notes.Value())
			m.ctx.Report(fmt.Sprintf("logged %q", meeting.Title), err)
			if err == nil {
				m.logging = false
				m.notes.Blur()
				m.notes.Reset()
				m.cursor = 0
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.notes, cmd = m.notes.Update(msg)
		return m, cmd
	}
	switch {
	case key.Matches(keyMsg, keyUp):
		m.cursor = clamp(m.cursor-1, len(pending))
	case key.Matches(keyMsg, keyDown):
		m.cursor = clamp(m.cursor+1, len(pending))
	case key.Matches(keyMsg, keyLog):
		if len(pending) == 0 {
			m.ctx.Report("", fmt.Errorf("no ended meeting is waiting for notes"))
			return m, nil
		}
		m.logging = true
		return m, m.notes.Focus()
	case key.Matches(keyMsg, keyFollowup):
		c := chaseable(s.Snapshot())
		if c == nil {
			m.ctx.Report("", fmt.Errorf("no assessment is pending"))
			return m, nil
		}
		_, err := s.RequestAssessmentFollowup(c.Index)
		m.ctx.Report(fmt.Sprintf("drafting a follow-up on review #%d", c.Index), err)
	}
	return m, nil
}

func chaseable(sig journey.Signals) *journey.ReviewCycle {
	for i := range sig.Reviews.Cycles {
		c := &sig.Reviews.Cycles[i]
		if c.Phase == journey.PhaseLogged && c.Assessment.Status == journey.AssessmentPending && !c.Assessment.FollowupSent {
			return c
		}
	}
	return nil
}

func (m *Records) Keys() []key.Binding {
	if m.logging {
		return []key.Binding{keySave, keyCancel}
	}
	return []key.Binding{keyUp, keyDown, keyLog, keyFollowup}
}

func (m *Records) View() string {
	sig := m.Session().Snapshot()
	var b strings.Builder
	b.WriteString(title("Records") + "\n")

	pending := m.unlogged()
	if len(pending) > 0 {
		b.WriteString(subtleStyle.Render("Waiting for notes") + "\n")
		for i, meeting := range pending {
			fmt.Fprintf(&b, "%s %s\n", cursor(i == m.cursor), meeting.Title)
		}
		b.WriteString("\n")
	}
	if m.logging {
		b.WriteString(m.notes.View() + "\n\n")
	}

	b.WriteString(subtleStyle.Render("Assessments") + "\n")
	for _, c := range sig.Reviews.Cycles {
		switch c.Assessment.Status {
		case journey.AssessmentPending:
			fmt.Fprintf(&b, "%s #%d %s · pending\n", checkbox(false), c.Index, c.Mentor)
		case journey.AssessmentCompleted:
			r := c.Assessment.Ratings
			if r == nil {
				fmt.Fprintf(&b, "%s #%d %s · completed\n", checkbox(true), c.Index, c.Mentor)
				continue
			}
			fmt.Fprintf(&b, "%s #%d %s · readiness %d, potential %d, fit %d\n", checkbox(true), c.Index, c.Mentor, r.Readiness, r.Potential, r.Fit)
		}
	}

	if len(sig.Logs) > 0 {
		b.WriteString("\n" + subtleStyle.Render("Meeting logs") + "\n")
		for _, log := range sig.Logs {
			fmt.Fprintf(&b, "• %s: %s\n", log.At.Format("Jan 2 15:04"), log.Notes)
		}
	}
	return b.String()
}
