package modes

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/selection-journey/internal/journey"
)

var (
	keyCompose = binding("c", "compose")
	keyDraft   = binding("r", "draft the due email")
	keyRead    = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open"))
	keySend    = key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "send"))
)

const (
	fieldTo = iota
	fieldSubject
	fieldBody
	fieldCount
)

// Inbox is the mail tab. A detour into it arrives with a prefilled draft.
type Inbox struct {
	BaseMode
	cursor    int
	reading   bool
	composing bool
	focus     int
	draft     journey.Draft
	to        textinput.Model
	subject   textinput.Model
	body      textarea.Model
	viewer    viewport.Model
}

// NewInbox creates the inbox tab.
func NewInbox() *Inbox {
	to := textinput.New()
	to.Placeholder = "Recipient name or email"
	subject := textinput.New()
	subject.Placeholder = "Subject"
	body := textarea.New()
	body.Placeholder = "Write your message…"
	body.ShowLineNumbers = false
	return &Inbox{
		BaseMode: NewBaseMode(journey.ScreenInbox),
		to:       to,
		subject:  subject,
		body:     body,
		viewer:   viewport.New(80, 12),
	}
}

func (m *Inbox) Init(ctx *Context) tea.Cmd {
	m.SetContext(ctx)
	m.body.SetWidth(max(20, m.width()-4))
	m.body.SetHeight(max(5, m.height()-12))
	if ctx.Decision.Rule != "detour" {
		return nil
	}
	sig := m.Session().Snapshot()
	if sig.Detour == nil {
		return nil
	}
	draft, ok := m.Session().Journey().Navigation().ConsumePayload(sig.Detour.ID)
	if !ok {
		return nil
	}
	return m.compose(draft)
}

func (m *Inbox) compose(d journey.Draft) tea.Cmd {
	m.composing = true
	m.reading = false
	m.draft = d
	m.to.SetValue(d.To)
	m.subject.SetValue(d.Subject)
	m.body.SetValue(d.Body)
	m.focus = fieldTo
	if d.To != "" {
		m.focus = fieldBody
	}
	return m.applyFocus()
}

func (m *Inbox) applyFocus() tea.Cmd {
	m.to.Blur()
	m.subject.Blur()
	m.body.Blur()
	switch m.focus {
	case fieldTo:
		return m.to.Focus()
	case fieldSubject:
		return m.subject.Focus()
	default:
		return m.body.Focus()
	}
}

func (m *Inbox) Capturing() bool { return m.composing }

// mail returns the inbox newest first.
func (m *Inbox) mail() []journey.Email {
	sig := m.Session().Snapshot()
	out := make([]journey.Email, len(sig.Mail))
	for i, e := range sig.Mail {
		out[len(sig.Mail)-1-i] = e
	}
	return out
}

func (m *Inbox) Update(msg tea.Msg) (Mode, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.composing {
		return m.updateCompose(keyMsg)
	}
	mail := m.mail()
	switch {
	case key.Matches(keyMsg, keyCancel):
		m.reading = false
	case m.reading && (key.Matches(keyMsg, keyUp) || key.Matches(keyMsg, keyDown)):
		var cmd tea.Cmd
		m.viewer, cmd = m.viewer.Update(msg)
		return m, cmd
	case key.Matches(keyMsg, keyUp):
		m.cursor = clamp(m.cursor-1, len(mail))
	case key.Matches(keyMsg, keyDown):
		m.cursor = clamp(m.cursor+1, len(mail))
	case key.Matches(keyMsg, keyRead):
		if len(mail) == 0 {
			return m, nil
		}
		e := mail[clamp(m.cursor, len(mail))]
		if !e.Read {
			m.ctx.Report("", m.Session().ReadEmail(e.ID))
		}
		m.reading = true
		m.viewer.Width = max(20, m.width()-4)
		m.viewer.Height = max(5, m.height()-10)
		m.viewer.SetContent(fmt.Sprintf("From: %s\nTo: %s\nSubject: %s\n\n%s", e.From, e.To, e.Subject, e.Body))
		m.viewer.GotoTop()
	case key.Matches(keyMsg, keyCompose):
		return m, m.compose(journey.Draft{})
	case key.Matches(keyMsg, keyDraft):
		d, ok := m.Session().DueDraft()
		if !ok {
			m.ctx.Report("", fmt.Errorf("no review email is due"))
			return m, nil
		}
		return m, m.compose(d)
	}
	return m, nil
}

func (m *Inbox) updateCompose(msg tea.KeyMsg) (Mode, tea.Cmd) {
	switch {
	case key.Matches(msg, keyCancel):
		m.composing = false
		return m, nil
	case key.Matches(msg, keyNextFld):
		m.focus = (m.focus + 1) % fieldCount
		return m, m.applyFocus()
	case key.Matches(msg, keySend):
		d := m.draft
		d.To = m.to.Value()
		d.Subject = m.subject.Value()
		d.Body = m.body.Value()
		email, err := m.Session().SendEmail(d)
		m.ctx.Report(fmt.Sprintf("sent %q", email.Subject), err)
		if err == nil {
			m.composing = false
			m.draft = journey.Draft{}
			m.cursor = 0
		}
		return m, nil
	}
	var cmd tea.Cmd
	switch m.focus {
	case fieldTo:
		m.to, cmd = m.to.Update(msg)
	case fieldSubject:
		m.subject, cmd = m.subject.Update(msg)
	default:
		m.body, cmd = m.body.Update(msg)
	}
	return m, cmd
}

func (m *Inbox) Keys() []key.Binding {
	if m.composing {
		return []key.Binding{keyNextFld, keySend, keyCancel}
	}
	if m.reading {
		return []key.Binding{keyUp, keyDown, keyCancel}
	}
	keys := []key.Binding{keyUp, keyDown, keyRead, keyCompose}
	if _, ok := m.Session().DueDraft(); ok {
		keys = append(keys, keyDraft)
	}
	return keys
}

func (m *Inbox) View() string {
	var b strings.Builder
	if m.composing {
		heading := "New message"
		if m.draft.Kind != "" {
			heading = "Draft · " + string(m.draft.Kind)
		}
		b.WriteString(title("%s", heading) + "\n")
		fmt.Fprintf(&b, "To:      %s\n", m.to.View())
		fmt.Fprintf(&b, "Subject: %s\n\n", m.subject.View())
		b.WriteString(m.body.View())
		return b.String()
	}
	if m.reading {
		return title("Inbox") + "\n" + m.viewer.View()
	}
	mail := m.mail()
	b.WriteString(title("Inbox · %d unread", m.Session().Snapshot().Unread()) + "\n")
	if d, ok := m.Session().DueDraft(); ok {
		b.WriteString(pendingStyle.Render(fmt.Sprintf("Review #%d: the %s email to %s is due, press r to draft it", d.Review, d.Kind, d.To)) + "\n\n")
	}
	if len(mail) == 0 {
		b.WriteString(subtleStyle.Render("No mail yet.") + "\n")
	}
	for i, e := range mail {
		who := e.From
		if e.Outgoing {
			who = "→ " + e.To
		}
		line := fmt.Sprintf("%s %-28.28s %s", cursor(i == m.cursor), who, e.Subject)
		if !e.Read {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}
