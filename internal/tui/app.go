// internal/tui/app.go
//
// This is the main TUI (Terminal User Interface) for the selection journey.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The app owns no journey state of its own. After every message it asks the
// session which screen the router picked and mounts that screen's mode.

package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/kingrea/selection-journey/internal/eventbridge"
	"github.com/kingrea/selection-journey/internal/journey"
	"github.com/kingrea/selection-journey/internal/modes"
	"github.com/kingrea/selection-journey/internal/session"
)

const journalLines = 6

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithLogger routes app diagnostics to logger.
func WithLogger(logger *zap.Logger) AppOption {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithReportsDir sets where the complete screen exports reports.
func WithReportsDir(dir string) AppOption {
	return func(a *App) {
		a.reportsDir = dir
	}
}

// replyMsg carries one simulated reply off the scheduler.
type replyMsg struct {
	event journey.Event
	ok    bool
}

// signalsMsg carries one store change notification.
type signalsMsg struct {
	event eventbridge.Event
	ok    bool
}

var (
	keyQuit  = key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit"))
	keyReset = key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "start over"))
	keyHelp  = key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help"))
	keyTabs  = key.NewBinding(key.WithKeys("1", "2", "3", "4"), key.WithHelp("1-4", "switch app"))
)

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	session    *session.Session
	logger     *zap.Logger
	reportsDir string
	sub        eventbridge.Subscription

	// Mounted screen
	ctx      *modes.Context
	mode     modes.Mode
	mountKey string
	decision journey.Decision

	// UI components
	help      help.Model
	statusMsg string
	err       error

	// Window size (we get this from bubbletea)
	width  int
	height int
}

// NewApp builds the app around an open session.
func NewApp(s *session.Session, opts ...AppOption) (*App, error) {
	if s == nil {
		return nil, fmt.Errorf("tui: session is required")
	}
	a := &App{
		session: s,
		logger:  zap.NewNop(),
		help:    help.New(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	a.ctx = &modes.Context{
		Session:    s,
		Notify:     a.notify,
		ReportsDir: a.reportsDir,
	}
	a.sub = s.Journey().Store().Subscribe()
	a.statusMsg = fmt.Sprintf("Welcome. %s is applying, start with the FOR checklist.", s.Scenario().Company.Name)
	return a, nil
}

// Close releases the store subscription.
func (a *App) Close() {
	a.sub.Close()
}

func (a *App) notify(status string, err error) {
	if err != nil {
		a.err = err
		a.logger.Debug("tui: action refused", zap.Error(err))
		return
	}
	a.err = nil
	if status != "" {
		a.statusMsg = status
	}
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.sync(),
		waitForReply(a.session.Scheduler().Events()),
		waitForSignals(a.sub.Events),
	)
}

func waitForReply(events <-chan journey.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		return replyMsg{event: ev, ok: ok}
	}
}

func waitForSignals(events <-chan eventbridge.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		return signalsMsg{event: ev, ok: ok}
	}
}

// sync evaluates the router and remounts when the screen changed.
func (a *App) sync() tea.Cmd {
	d := a.session.Evaluate()
	a.decision = d
	mountKey := mountKeyFor(d, a.session.Snapshot())
	if a.mode != nil && mountKey == a.mountKey {
		return nil
	}
	a.mountKey = mountKey
	a.ctx.Decision = d
	a.ctx.Width = a.contentWidth()
	a.ctx.Height = a.contentHeight()
	a.mode = modes.For(d.Screen)
	a.logger.Debug("tui: mounted",
		zap.String("screen", string(d.Screen)),
		zap.String("rule", d.Rule),
		zap.Int("panel", d.Panel),
	)
	return a.mode.Init(a.ctx)
}

func mountKeyFor(d journey.Decision, sig journey.Signals) string {
	detour := ""
	if sig.Detour != nil {
		detour = sig.Detour.ID
	}
	return fmt.Sprintf("%s/%d/%s", d.Screen, d.Panel, detour)
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		a.ctx.Width = a.contentWidth()
		a.ctx.Height = a.contentHeight()
		return a, nil

	case replyMsg:
		if !msg.ok {
			return a, nil
		}
		if err := a.session.Deliver(msg.event); err != nil {
			a.logger.Warn("tui: reply delivery failed", zap.String("kind", string(msg.event.Kind)), zap.Error(err))
		}
		return a, tea.Batch(a.sync(), waitForReply(a.session.Scheduler().Events()))

	case signalsMsg:
		if !msg.ok {
			return a, nil
		}
		if msg.event.Kind == eventbridge.KindSessionReset {
			a.mountKey = ""
		}
		return a, tea.Batch(a.sync(), waitForSignals(a.sub.Events))

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keyQuit):
			return a, tea.Quit
		case key.Matches(msg, keyReset):
			a.session.Reset()
			a.mode = nil
			a.err = nil
			a.statusMsg = "Started over with a fresh session."
			return a, a.sync()
		}
		if a.mode != nil && !a.mode.Capturing() {
			switch {
			case key.Matches(msg, keyHelp):
				a.help.ShowAll = !a.help.ShowAll
				return a, nil
			case key.Matches(msg, keyTabs):
				tabs := journey.Tabs()
				tab := tabs[int(msg.String()[0]-'1')]
				if err := a.session.SwitchTab(tab); err != nil {
					a.notify("", err)
				} else {
					a.notify(fmt.Sprintf("switched to %s", tab), nil)
				}
				return a, a.sync()
			}
		}
	}

	if a.mode == nil {
		return a, a.sync()
	}
	var cmd tea.Cmd
	a.mode, cmd = a.mode.Update(msg)
	return a, tea.Batch(cmd, a.sync())
}

// View renders the current state to a string.
func (a *App) View() string {
	if a.mode == nil {
		return "Loading…"
	}
	width := a.width
	if width <= 0 {
		width = 100
	}
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF6B6B")).
		MarginBottom(1).
		Render(fmt.Sprintf("⬡ SELECTION JOURNEY · %s", a.session.Scenario().Company.Name))

	main := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Width(max(20, width-4)).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			a.renderStageBar(),
			a.renderTabBar(),
			"",
			a.mode.View(),
		))

	sections := []string{header, main}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	sections = append(sections, a.renderStatus(), a.renderHelp())
	return strings.Join(sections, "\n")
}

func (a *App) renderStageBar() string {
	current := a.session.Snapshot().Stage
	var parts []string
	for _, stage := range journey.Stages() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
		switch {
		case stage == current:
			style = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
		case stage < current:
			style = lipgloss.NewStyle().Foreground(lipgloss.Color("#6BCB77"))
		}
		parts = append(parts, style.Render(stage.String()))
	}
	return strings.Join(parts, " → ") + "   " + lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Render(current.Label())
}

func (a *App) renderTabBar() string {
	var parts []string
	for i, tab := range journey.Tabs() {
		label := fmt.Sprintf("%d %s", i+1, titleCase(string(tab)))
		if tab == a.decision.Screen {
			label = lipgloss.NewStyle().Bold(true).Reverse(true).Render(" " + label + " ")
		} else {
			label = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render(" " + label + " ")
		}
		parts = append(parts, label)
	}
	if !a.decision.Screen.IsTab() {
		parts = append(parts, lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD93D")).
			Render(" · "+string(a.decision.Screen)))
	}
	return strings.Join(parts, "")
}

func (a *App) renderLogPanel() string {
	book := a.session.Journal()
	if book == nil {
		return ""
	}
	lines, total := book.Tail(journalLines)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(book.Path())
	if fileName == "." || fileName == "" {
		fileName = "journal"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("JOURNAL · %s · %d entries", fileName, total))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n%s", head, body))
	return box
}

func (a *App) renderStatus() string {
	if a.err != nil {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginTop(1).
			Render("⚠ " + a.err.Error())
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		MarginTop(1).
		Render(a.statusMsg)
}

// ShortHelp and FullHelp make App a help.KeyMap.
func (a *App) ShortHelp() []key.Binding {
	keys := append([]key.Binding{}, a.mode.Keys()...)
	if !a.mode.Capturing() {
		keys = append(keys, keyTabs, keyHelp)
	}
	return append(keys, keyReset, keyQuit)
}

func (a *App) FullHelp() [][]key.Binding {
	return [][]key.Binding{a.mode.Keys(), {keyTabs, keyHelp, keyReset, keyQuit}}
}

func (a *App) renderHelp() string {
	return a.help.View(a)
}

func (a *App) contentWidth() int {
	if a.width <= 0 {
		return 80
	}
	return max(20, a.width-8)
}

func (a *App) contentHeight() int {
	if a.height <= 0 {
		return 20
	}
	return max(8, a.height-journalLines-12)
}

func titleCase(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	lower := strings.ToLower(value)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
