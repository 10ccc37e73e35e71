package modes

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/selection-journey/internal/journey"
)

const (
	listPros = iota
	listCons
	listRecap
	listCount
)

// Synthesize turns the panel notes into strengths and areas to watch. Each
// line of a list is one item.
type Synthesize struct {
	BaseMode
	points  []string
	focus   int
	editing bool
	lists   [listCount]textarea.Model
}

var keyEditLists = binding("e", "edit synthesis")

// NewSynthesize creates the synthesis screen.
func NewSynthesize() *Synthesize {
	m := &Synthesize{BaseMode: NewBaseMode(journey.ScreenSynthesize)}
	for i, placeholder := range []string{"Strengths, one per line", "Areas to watch, one per line", "One-line recap (optional)"} {
		ta := textarea.New()
		ta.Placeholder = placeholder
		ta.ShowLineNumbers = false
		m.lists[i] = ta
	}
	return m
}

func (m *Synthesize) Init(ctx *Context) tea.Cmd {
	m.SetContext(ctx)
	for i := range m.lists {
		m.lists[i].SetWidth(max(20, m.width()-4))
		m.lists[i].SetHeight(4)
	}
	m.lists[listRecap].SetHeight(2)
	sig := m.Session().Snapshot()
	if sig.Detour != nil && sig.Detour.Kind == journey.DraftSynthesis {
		if d, ok := m.Session().Journey().Navigation().ConsumePayload(sig.Detour.ID); ok {
			m.points = d.Points
		}
	}
	m.editing = true
	return m.applyFocus()
}

func (m *Synthesize) applyFocus() tea.Cmd {
	for i := range m.lists {
		m.lists[i].Blur()
	}
	return m.lists[m.focus].Focus()
}

// Capturing holds while a list has focus. Esc releases the keys so a tab
// switch can abandon the screen.
func (m *Synthesize) Capturing() bool { return m.editing }

func (m *Synthesize) Update(msg tea.Msg) (Mode, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if !m.editing {
		switch {
		case key.Matches(keyMsg, keyEditLists):
			m.editing = true
			return m, m.applyFocus()
		case key.Matches(keyMsg, keySave):
			return m, m.save()
		}
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, keyCancel):
		m.editing = false
		for i := range m.lists {
			m.lists[i].Blur()
		}
		return m, nil
	case key.Matches(keyMsg, keyNextFld):
		m.focus = (m.focus + 1) % listCount
		return m, m.applyFocus()
	case key.Matches(keyMsg, keySave):
		return m, m.save()
	}
	var cmd tea.Cmd
	m.lists[m.focus], cmd = m.lists[m.focus].Update(msg)
	return m, cmd
}

func (m *Synthesize) save() tea.Cmd {
	err := m.Session().SaveSynthesis(
		strings.Split(m.lists[listPros].Value(), "\n"),
		strings.Split(m.lists[listCons].Value(), "\n"),
		m.lists[listRecap].Value(),
	)
	m.ctx.Report("synthesis saved", err)
	return nil
}

func (m *Synthesize) Keys() []key.Binding {
	if !m.editing {
		return []key.Binding{keyEditLists, keySave}
	}
	return []key.Binding{keyNextFld, keySave, keyCancel}
}

func (m *Synthesize) View() string {
	var b strings.Builder
	b.WriteString(title("Synthesize the panel notes") + "\n")
	if len(m.points) == 0 {
		b.WriteString(subtleStyle.Render("No notes were carried over.") + "\n")
	}
	for _, p := range m.points {
		b.WriteString(subtleStyle.Render("• "+p) + "\n")
	}
	b.WriteString("\n")
	for i, heading := range []string{"Strengths", "Areas to watch", "Recap"} {
		label := heading
		if i == m.focus {
			label = selectedStyle.Render(heading)
		}
		b.WriteString(label + "\n" + m.lists[i].View() + "\n")
	}
	return b.String()
}
