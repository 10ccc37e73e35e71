package modes

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/selection-journey/internal/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF")).
			MarginBottom(1)
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	bodyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#DDDDDD"))
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6BCB77"))
	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD93D"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	boxStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// Markdown renders narrative copy for the terminal. It falls back to the
// raw text when the renderer fails.
func Markdown(md string, width int) string {
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func checkbox(done bool) string {
	if done {
		return doneStyle.Render("[x]")
	}
	return pendingStyle.Render("[ ]")
}

func cursor(active bool) string {
	if active {
		return selectedStyle.Render("›")
	}
	return " "
}

func title(format string, args ...any) string {
	return titleStyle.Render(fmt.Sprintf(format, args...))
}

func binding(keys, help string) key.Binding {
	return key.NewBinding(key.WithKeys(strings.Split(keys, ",")...), key.WithHelp(keys, help))
}

var (
	keyUp      = key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up"))
	keyDown    = key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down"))
	keyEnter   = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "continue"))
	keySave    = key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save"))
	keyCancel  = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel"))
	keyNextFld = key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field"))
)

// action is one key-triggered session call.
type action struct {
	key key.Binding
	// label is what the status line reports on success.
	label string
	run   func(*session.Session) error
}

// actionMode is a screen of narrative plus a few single-key actions.
type actionMode struct {
	BaseMode
	render  func(*Context) string
	actions []action
}

func newActionMode(base BaseMode, render func(*Context) string, actions ...action) *actionMode {
	return &actionMode{BaseMode: base, render: render, actions: actions}
}

func (m *actionMode) Init(ctx *Context) tea.Cmd {
	m.SetContext(ctx)
	return nil
}

func (m *actionMode) Update(msg tea.Msg) (Mode, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	for _, a := range m.actions {
		if key.Matches(keyMsg, a.key) {
			err := a.run(m.Session())
			m.ctx.Report(a.label, err)
			break
		}
	}
	return m, nil
}

func (m *actionMode) View() string {
	return m.render(m.ctx)
}

func (m *actionMode) Keys() []key.Binding {
	out := make([]key.Binding, len(m.actions))
	for i, a := range m.actions {
		out[i] = a.key
	}
	return out
}

// clamp keeps a list cursor inside [0, n).
func clamp(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
