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
	keyVote       = binding("v", "hold vote")
	keyDiscuss    = binding("d", "finish discussion")
	keyConclude   = binding("c", "conclude")
	keySelectLead = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select champion"))
)

// Deliberations runs the closed-door vote after the founders leave.
type Deliberations struct {
	BaseMode
	writing bool
	notes   textarea.Model
}

// NewDeliberations creates the deliberation screen.
func NewDeliberations() *Deliberations {
	notes := textarea.New()
	notes.Placeholder = "What swayed the room?"
	notes.ShowLineNumbers = false
	return &Deliberations{BaseMode: NewBaseMode(journey.ScreenDeliberations), notes: notes}
}

func (m *Deliberations) Init(ctx *Context) tea.Cmd {
	m.SetContext(ctx)
	m.notes.SetWidth(max(20, m.width()-4))
	m.notes.SetHeight(4)
	m.notes.SetValue(m.Session().Snapshot().Deliberation.Notes)
	return nil
}

func (m *Deliberations) Capturing() bool { return m.writing }

func (m *Deliberations) Update(msg tea.Msg) (Mode, tea.Cmd) {
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
			return m, nil
		case key.Matches(keyMsg, keySave):
			err := s.SaveDeliberationNotes(m.notes.Value())
			m.ctx.Report("deliberation notes saved", err)
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

	d := s.Snapshot().Deliberation
	switch {
	case key.Matches(keyMsg, keyVote):
		var (
			round journey.VoteRound
			err   error
			n     = 1
		)
		if d.Round1.Held {
			n = 2
			round, err = s.HoldVoteRound2()
		} else {
			round, err = s.HoldVoteRound1()
		}
		m.ctx.Report(fmt.Sprintf("round %d: %d yes, %d no", n, round.Yes, round.No), err)
	case key.Matches(keyMsg, keyDiscuss):
		m.ctx.Report("discussion finished", s.FinishDiscussion())
	case key.Matches(keyMsg, keyNotes):
		m.writing = true
		return m, m.notes.Focus()
	case key.Matches(keyMsg, keyConclude):
		outcome, err := s.ConcludeDeliberations()
		m.ctx.Report(fmt.Sprintf("outcome: %s", outcome), err)
	}
	return m, nil
}

func (m *Deliberations) Keys() []key.Binding {
	if m.writing {
		return []key.Binding{keySave, keyCancel}
	}
	d := m.Session().Snapshot().Deliberation
	keys := []key.Binding{keyNotes}
	switch {
	case !d.Round1.Held:
		keys = append(keys, keyVote)
	case d.NeedsSecondRound() && !d.DiscussionDone:
		keys = append(keys, keyDiscuss)
	case d.NeedsSecondRound() && !d.Round2.Held:
		keys = append(keys, keyVote)
	default:
		keys = append(keys, keyConclude)
	}
	return keys
}

func (m *Deliberations) View() string {
	s := m.Session()
	sc := s.Scenario()
	d := s.Snapshot().Deliberation
	var md strings.Builder
	md.WriteString(transcript(sc, sc.Deliberation.Opening))
	if d.Round1.Held {
		fmt.Fprintf(&md, "*Round 1: %d yes, %d no.*\n\n", d.Round1.Yes, d.Round1.No)
	}
	if d.DiscussionDone {
		md.WriteString(transcript(sc, sc.Deliberation.Discussion))
	}
	if d.Round2.Held {
		fmt.Fprintf(&md, "*Round 2: %d yes, %d no.*\n\n", d.Round2.Yes, d.Round2.No)
	}

	var b strings.Builder
	b.WriteString(title("Deliberations") + "\n")
	b.WriteString(Markdown(md.String(), m.width()-4) + "\n\n")
	if m.writing {
		b.WriteString(m.notes.View())
	} else if d.Notes != "" {
		b.WriteString(subtleStyle.Render("Notes: ") + d.Notes)
	}
	return b.String()
}

// NewComeback is the dead end after a split vote.
func NewComeback() Mode {
	render := func(ctx *Context) string {
		sc := ctx.Session.Scenario()
		d := ctx.Session.Snapshot().Deliberation
		final := d.Round1
		if d.Round2.Held {
			final = d.Round2
		}
		var b strings.Builder
		b.WriteString(title("Come back later") + "\n")
		fmt.Fprintf(&b, "The panel split %d to %d. %s is invited to reapply once the concerns are addressed.\n\n", final.Yes, final.No, sc.Company.Name)
		b.WriteString(subtleStyle.Render("Press ctrl+r to start a new session."))
		return b.String()
	}
	return newActionMode(NewBaseMode(journey.ScreenComeback), render)
}

// ChampionSelection picks the panelist who leads the follow-up.
type ChampionSelection struct {
	BaseMode
	cursor int
}

// NewChampionSelection creates the champion picker.
func NewChampionSelection() *ChampionSelection {
	return &ChampionSelection{BaseMode: NewBaseMode(journey.ScreenChampionSelection)}
}

func (m *ChampionSelection) Init(ctx *Context) tea.Cmd {
	m.SetContext(ctx)
	return nil
}

func (m *ChampionSelection) Update(msg tea.Msg) (Mode, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	panelists := m.Session().Scenario().Panelists
	switch {
	case key.Matches(keyMsg, keyUp):
		m.cursor = clamp(m.cursor-1, len(panelists))
	case key.Matches(keyMsg, keyDown):
		m.cursor = clamp(m.cursor+1, len(panelists))
	case key.Matches(keyMsg, keySelectLead):
		if len(panelists) == 0 {
			return m, nil
		}
		p := panelists[clamp(m.cursor, len(panelists))]
		m.ctx.Report(fmt.Sprintf("%s is the champion", p.Name), m.Session().SelectChampion(p.ID))
	}
	return m, nil
}

func (m *ChampionSelection) Keys() []key.Binding {
	return []key.Binding{keyUp, keyDown, keySelectLead}
}

func (m *ChampionSelection) View() string {
	var b strings.Builder
	b.WriteString(title("Unanimous yes · choose a champion") + "\n")
	for i, p := range m.Session().Scenario().Panelists {
		fmt.Fprintf(&b, "%s %-24s %s\n", cursor(i == m.cursor), p.Name, subtleStyle.Render(p.Role))
	}
	return b.String()
}
