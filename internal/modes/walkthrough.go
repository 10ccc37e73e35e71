package modes

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/selection-journey/internal/journey"
	"github.com/kingrea/selection-journey/internal/session"
)

var (
	keyAck      = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "next"))
	keyVirtual  = binding("v", "virtual")
	keyInPerson = binding("p", "in person")
	keyExport   = binding("e", "export report")
)

// NewStep renders one ISP walkthrough screen. Format selection offers the
// two attendance options instead of a plain acknowledgement.
func NewStep(screen journey.Screen) Mode {
	render := func(ctx *Context) string {
		sc := ctx.Session.Scenario()
		n := journey.InfoStepIndex(screen)
		total := len(journey.InfoSequence())
		step, ok := sc.Step(string(screen))
		if !ok {
			step.Title = string(screen)
		}
		var b strings.Builder
		b.WriteString(title("International Selection Panel · %d of %d · %s", n, total, step.Title) + "\n")
		b.WriteString(Markdown(step.Body, max(20, ctx.Width-4)))
		return b.String()
	}
	base := NewBaseMode(screen)
	if screen == journey.ScreenFormatSelection {
		choose := func(f journey.Format) func(*session.Session) error {
			return func(s *session.Session) error { return s.ChooseFormat(f) }
		}
		return newActionMode(base, render,
			action{key: keyVirtual, label: "the founders join virtually", run: choose(journey.FormatVirtual)},
			action{key: keyInPerson, label: "the founders attend in person", run: choose(journey.FormatInPerson)},
		)
	}
	return newActionMode(base, render,
		action{key: keyAck, label: fmt.Sprintf("%s done", screen), run: func(s *session.Session) error {
			return s.AcknowledgeStep(screen)
		}},
	)
}

// Complete shows the session report at the end of the journey.
type Complete struct {
	BaseMode
	viewer   viewport.Model
	exported string
}

// NewComplete creates the closing screen.
func NewComplete() *Complete {
	return &Complete{BaseMode: NewBaseMode(journey.ScreenComplete), viewer: viewport.New(80, 12)}
}

func (m *Complete) Init(ctx *Context) tea.Cmd {
	m.SetContext(ctx)
	w := max(20, m.width()-4)
	m.viewer.Width = w
	m.viewer.Height = max(5, m.height()-6)
	m.viewer.SetContent(Markdown(m.Session().Report(), w))
	return nil
}

func (m *Complete) Update(msg tea.Msg) (Mode, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, keyExport):
		path, err := m.Session().ExportReport(m.ctx.ReportsDir)
		if err == nil {
			m.exported = path
		}
		m.ctx.Report("report written to "+path, err)
	case key.Matches(keyMsg, keyUp), key.Matches(keyMsg, keyDown):
		var cmd tea.Cmd
		m.viewer, cmd = m.viewer.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Complete) Keys() []key.Binding {
	return []key.Binding{keyUp, keyDown, keyExport}
}

func (m *Complete) View() string {
	var b strings.Builder
	b.WriteString(title("Journey complete · %s", m.Session().Scenario().Company.Name) + "\n")
	b.WriteString(m.viewer.View())
	if m.exported != "" {
		b.WriteString("\n" + doneStyle.Render("Saved to "+m.exported))
	}
	return b.String()
}
