package modes

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/selection-journey/internal/journey"
	"github.com/kingrea/selection-journey/internal/scenario"
	"github.com/kingrea/selection-journey/internal/session"
)

var (
	keyContinue  = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "continue"))
	keyNotes     = binding("e", "write notes")
	keyDoneNotes = key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save and finish panel"))
)

// NewReviewTransition closes SOR once enough reviews are complete.
func NewReviewTransition() Mode {
	render := func(ctx *Context) string {
		s := ctx.Session
		sig := s.Snapshot()
		var b strings.Builder
		b.WriteString(title("Second Opinion Reviews complete") + "\n")
		for _, c := range sig.Reviews.Cycles {
			if c.Phase == journey.PhaseComplete {
				fmt.Fprintf(&b, "%s #%d with %s\n", checkbox(true), c.Index, c.Mentor)
			}
		}
		b.WriteString("\n" + bodyStyle.Render(fmt.Sprintf("%s is ready for the Local Selection Panel.", s.Scenario().Company.Name)))
		return b.String()
	}
	return newActionMode(NewBaseMode(journey.ScreenReviewTransition), render,
		action{key: keyContinue, label: "on to the Local Selection Panel", run: (*session.Session).ContinueToPanels},
	)
}

// NewPanelOverview introduces the three panels and their rosters.
func NewPanelOverview() Mode {
	render := func(ctx *Context) string {
		s := ctx.Session
		sig := s.Snapshot()
		var b strings.Builder
		b.WriteString(title("Local Selection Panel · %s", s.Scenario().Company.Name) + "\n")
		for _, rec := range sig.Panels.Records {
			fmt.Fprintf(&b, "%s Panel %d: %s\n", checkbox(rec.Complete), rec.ID, roster(s.Scenario(), rec.Panelists))
		}
		b.WriteString("\n" + subtleStyle.Render("Take notes during each interview. Every panel needs notes before it closes."))
		return b.String()
	}
	return newActionMode(NewBaseMode(journey.ScreenPanelOverview), render,
		action{key: keyContinue, label: "panel 1 started", run: (*session.Session).BeginPanels},
	)
}

func roster(sc *scenario.Scenario, ids []string) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = sc.Speaker(id)
	}
	return strings.Join(names, ", ")
}

// transcript renders scripted lines as markdown.
func transcript(sc *scenario.Scenario, lines []scenario.Line) string {
	var b strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&b, "**%s:** %s\n\n", sc.Speaker(l.Speaker), l.Text)
	}
	return b.String()
}

// Panel plays one interview transcript and collects the trainee's notes.
type Panel struct {
	BaseMode
	id      int
	writing bool
	viewer  viewport.Model
	notes   textarea.Model
}

// NewPanel creates the interview screen. The panel id comes from the
// routing decision on Init.
func NewPanel() *Panel {
	notes := textarea.New()
	notes.Placeholder = "Your notes on the founders' answers"
	notes.ShowLineNumbers = false
	return &Panel{
		BaseMode: NewBaseMode(journey.ScreenPanel),
		viewer:   viewport.New(80, 12),
		notes:    notes,
	}
}

func (m *Panel) Init(ctx *Context) tea.Cmd {
	m.SetContext(ctx)
	m.id = ctx.Decision.Panel
	s := m.Session()
	if m.id == 0 {
		m.id = s.Snapshot().Panels.Next()
	}
	w := max(20, m.width()-4)
	m.viewer.Width = w
	m.viewer.Height = max(5, m.height()-14)
	m.notes.SetWidth(w)
	m.notes.SetHeight(5)

	sig := s.Snapshot()
	if rec := sig.Panels.Panel(m.id); rec != nil {
		m.notes.SetValue(rec.Notes)
	}
	if p, ok := s.Scenario().Panel(m.id); ok {
		m.viewer.SetContent(Markdown(transcript(s.Scenario(), p.Transcript), w))
	}
	return nil
}

func (m *Panel) Capturing() bool { return m.writing }

func (m *Panel) Update(msg tea.Msg) (Mode, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	s := m.Session()
	if m.writing {
		switch {
		case key.Matches(keyMsg, keyCancel):
			m.writing = false
			m.notes.Blur()
			m.ctx.Report("", s.SavePanelNotes(m.id, m.notes.Value()))
			return m, nil
		case key.Matches(keyMsg, keyDoneNotes):
			if err := s.SavePanelNotes(m.id, m.notes.Value()); err != nil {
				m.ctx.Report("", err)
				return m, nil
			}
			err := s.CompletePanel(m.id)
			m.ctx.Report(fmt.Sprintf("panel %d complete", m.id), err)
			if err == nil {
				m.writing = false
				m.notes.Blur()
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.notes, cmd = m.notes.Update(msg)
		return m, cmd
	}
	switch {
	case key.Matches(keyMsg, keyNotes):
		m.writing = true
		return m, m.notes.Focus()
	case key.Matches(keyMsg, keyUp), key.Matches(keyMsg, keyDown):
		var cmd tea.Cmd
		m.viewer, cmd = m.viewer.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Panel) Keys() []key.Binding {
	if m.writing {
		return []key.Binding{keyDoneNotes, keyCancel}
	}
	return []key.Binding{keyUp, keyDown, keyNotes}
}

func (m *Panel) View() string {
	s := m.Session()
	var b strings.Builder
	sig := s.Snapshot()
	panelists := ""
	if rec := sig.Panels.Panel(m.id); rec != nil {
		panelists = roster(s.Scenario(), rec.Panelists)
	}
	b.WriteString(title("Panel %d of %d · %s", m.id, journey.PanelCount, panelists) + "\n")
	b.WriteString(boxStyle.Render(m.viewer.View()) + "\n")
	b.WriteString(subtleStyle.Render("Notes") + "\n")
	b.WriteString(m.notes.View())
	return b.String()
}

func panelNotes(sig journey.Signals, id int) string {
	if rec := sig.Panels.Panel(id); rec != nil {
		return rec.Notes
	}
	return ""
}

// NewFoundersLeave shows the panels' notes once every interview is done.
func NewFoundersLeave() Mode {
	render := func(ctx *Context) string {
		sig := ctx.Session.Snapshot()
		var b strings.Builder
		b.WriteString(title("The founders leave the room") + "\n")
		for id := 1; id <= journey.PanelCount; id++ {
			fmt.Fprintf(&b, "Panel %d: %s\n", id, subtleStyle.Render(panelNotes(sig, id)))
		}
		b.WriteString("\n" + bodyStyle.Render("The panelists stay behind to deliberate."))
		return b.String()
	}
	return newActionMode(NewBaseMode(journey.ScreenFoundersLeave), render,
		action{key: keyContinue, label: "deliberations begin", run: (*session.Session).DismissFounders},
	)
}
