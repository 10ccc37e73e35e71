// internal/modes/mode.go
//
// Defines the Mode interface every journey screen implements.
// A mode is mounted when the router picks its screen and talks to the
// journey only through session actions.

package modes

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/selection-journey/internal/journey"
	"github.com/kingrea/selection-journey/internal/session"
)

// Context provides shared context for all modes
type Context struct {
	Session  *session.Session
	Decision journey.Decision
	Width    int
	Height   int
	// Notify reports the outcome of a trainee action to the status line.
	Notify func(status string, err error)
	// ReportsDir is where the complete screen exports the session report.
	ReportsDir string
}

// Report forwards an action outcome to Notify, if set.
func (c *Context) Report(status string, err error) {
	if c == nil || c.Notify == nil {
		return
	}
	c.Notify(status, err)
}

// Mode defines the interface that all journey screens must implement
type Mode interface {
	// Screen returns the journey screen this mode renders
	Screen() journey.Screen

	// Init mounts the mode and returns a startup command
	Init(ctx *Context) tea.Cmd

	// Update handles messages and returns the updated mode plus any commands
	Update(msg tea.Msg) (Mode, tea.Cmd)

	// View renders the mode's current state
	View() string

	// Keys lists the screen's bindings for the footer
	Keys() []key.Binding

	// Capturing reports whether a text field has focus, which suspends the
	// global single-key shortcuts
	Capturing() bool
}

// BaseMode provides common functionality for all modes
type BaseMode struct {
	ctx    *Context
	screen journey.Screen
}

// NewBaseMode creates a new BaseMode for screen
func NewBaseMode(screen journey.Screen) BaseMode {
	return BaseMode{screen: screen}
}

// Screen returns the journey screen this mode renders
func (m *BaseMode) Screen() journey.Screen {
	return m.screen
}

// Context returns the mode context
func (m *BaseMode) Context() *Context {
	return m.ctx
}

// SetContext sets the mode context
func (m *BaseMode) SetContext(ctx *Context) {
	m.ctx = ctx
}

// Session returns the session behind the context.
func (m *BaseMode) Session() *session.Session {
	if m.ctx == nil {
		return nil
	}
	return m.ctx.Session
}

// Capturing is false unless a mode overrides it.
func (m *BaseMode) Capturing() bool {
	return false
}

// width is the usable content width.
func (m *BaseMode) width() int {
	if m.ctx == nil || m.ctx.Width <= 0 {
		return 80
	}
	return m.ctx.Width
}

func (m *BaseMode) height() int {
	if m.ctx == nil || m.ctx.Height <= 0 {
		return 20
	}
	return m.ctx.Height
}

// For returns a fresh mode for screen. ISP walkthrough steps share one
// implementation.
func For(screen journey.Screen) Mode {
	switch screen {
	case journey.ScreenOverview:
		return NewOverview()
	case journey.ScreenInbox:
		return NewInbox()
	case journey.ScreenCalendar:
		return NewCalendar()
	case journey.ScreenRecords:
		return NewRecords()
	case journey.ScreenReviewTransition:
		return NewReviewTransition()
	case journey.ScreenPanelOverview:
		return NewPanelOverview()
	case journey.ScreenPanel:
		return NewPanel()
	case journey.ScreenFoundersLeave:
		return NewFoundersLeave()
	case journey.ScreenDeliberations:
		return NewDeliberations()
	case journey.ScreenComeback:
		return NewComeback()
	case journey.ScreenChampionSelection:
		return NewChampionSelection()
	case journey.ScreenPostSelection:
		return NewPostSelection()
	case journey.ScreenSynthesize:
		return NewSynthesize()
	case journey.ScreenComplete:
		return NewComplete()
	}
	if journey.InfoStepIndex(screen) > 0 {
		return NewStep(screen)
	}
	return NewOverview()
}
