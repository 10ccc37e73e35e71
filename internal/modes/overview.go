package modes

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/selection-journey/internal/journey"
	"github.com/kingrea/selection-journey/internal/session"
)

var (
	keyToggle     = binding(" ", "toggle question")
	keyAddStmt    = binding("a", "add pitch statement")
	keyDropStmt   = binding("x", "remove last statement")
	keySubmit     = binding("s", "submit preparation")
	keyNewReview  = binding("n", "initiate review")
	keyForward    = binding("f", "forward champion availability")
	keyThank      = binding("t", "thank founders")
	keySynthesize = binding("y", "synthesize notes")
	keyChampion   = binding("c", "email champion")
)

// Overview is the home tab: the FOR checklist before SOR, a progress board
// afterwards.
type Overview struct {
	BaseMode
	cursor int
	input  textinput.Model
	adding bool
}

// NewOverview creates the overview tab.
func NewOverview() *Overview {
	in := textinput.New()
	in.Placeholder = "One line of the intro pitch"
	in.CharLimit = 240
	return &Overview{BaseMode: NewBaseMode(journey.ScreenOverview), input: in}
}

func (m *Overview) Init(ctx *Context) tea.Cmd {
	m.SetContext(ctx)
	return nil
}

func (m *Overview) Capturing() bool { return m.adding }

func (m *Overview) preparing() bool {
	sig := m.Session().Snapshot()
	return sig.Stage == journey.StageFOR && !sig.Prep.Complete
}

func (m *Overview) Update(msg tea.Msg) (Mode, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	s := m.Session()
	if m.adding {
		switch {
		case key.Matches(keyMsg, keyCancel):
			m.adding = false
			m.input.Blur()
			m.input.Reset()
			return m, nil
		case keyMsg.Type == tea.KeyEnter:
			err := s.AddPitchStatement(m.input.Value())
			m.ctx.Report("pitch statement added", err)
			if err == nil {
				m.adding = false
				m.input.Blur()
				m.input.Reset()
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	if m.preparing() {
		questions := s.Scenario().Questions()
		switch {
		case key.Matches(keyMsg, keyUp):
			m.cursor = clamp(m.cursor-1, len(questions))
		case key.Matches(keyMsg, keyDown):
			m.cursor = clamp(m.cursor+1, len(questions))
		case key.Matches(keyMsg, keyToggle):
			if len(questions) > 0 {
				m.ctx.Report("", s.ToggleQuestion(questions[m.cursor].ID))
			}
		case key.Matches(keyMsg, keyAddStmt):
			m.adding = true
			return m, m.input.Focus()
		case key.Matches(keyMsg, keyDropStmt):
			if n := len(s.Snapshot().Prep.Statements); n > 0 {
				m.ctx.Report("statement removed", s.RemovePitchStatement(n-1))
			}
		case key.Matches(keyMsg, keySubmit):
			m.ctx.Report("FOR preparation submitted, on to the Second Opinion Reviews", s.CompletePreparation())
		}
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, keyNewReview):
		index, err := s.InitiateReview()
		m.ctx.Report(fmt.Sprintf("review #%d initiated", index), err)
	case key.Matches(keyMsg, keyForward):
		_, err := s.StartForwardAvailability()
		m.ctx.Report("forwarding the champion's availability", err)
	}
	return m, nil
}

func (m *Overview) Keys() []key.Binding {
	if m.adding {
		return []key.Binding{keyEnter, keyCancel}
	}
	if m.preparing() {
		return []key.Binding{keyUp, keyDown, keyToggle, keyAddStmt, keyDropStmt, keySubmit}
	}
	sig := m.Session().Snapshot()
	var keys []key.Binding
	if sig.Stage == journey.StageSOR {
		keys = append(keys, keyNewReview)
	}
	if sig.Followup.Availability.Received && !sig.Followup.Forwarded {
		keys = append(keys, keyForward)
	}
	return keys
}

func (m *Overview) View() string {
	if m.preparing() {
		return m.viewPreparation()
	}
	return m.viewProgress()
}

func (m *Overview) viewPreparation() string {
	s := m.Session()
	sig := s.Snapshot()
	th := s.Thresholds()
	var b strings.Builder
	b.WriteString(title("First Opinion Review · %s", s.Scenario().Company.Name))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s questions %d/%d   %s pitch statements %d/%d\n\n",
		checkbox(len(sig.Prep.Questions) >= th.MinQuestions), len(sig.Prep.Questions), th.MinQuestions,
		checkbox(len(sig.Prep.Statements) >= th.MinStatements), len(sig.Prep.Statements), th.MinStatements,
	)

	questions := s.Scenario().Questions()
	window := max(5, m.height()-14)
	start := clamp(m.cursor-window/2, max(1, len(questions)-window+1))
	category := ""
	for i := start; i < len(questions) && i < start+window; i++ {
		q := questions[i]
		if q.Category != category {
			category = q.Category
			b.WriteString(subtleStyle.Render(category) + "\n")
		}
		fmt.Fprintf(&b, "%s %s %s\n", cursor(i == m.cursor), checkbox(sig.Prep.HasQuestion(q.ID)), q.Text)
	}

	b.WriteString("\n" + subtleStyle.Render("Pitch") + "\n")
	for i, stmt := range sig.Prep.Statements {
		fmt.Fprintf(&b, "%d. %s\n", i+1, stmt)
	}
	if m.adding {
		b.WriteString(m.input.View() + "\n")
	}
	return b.String()
}

func (m *Overview) viewProgress() string {
	s := m.Session()
	sig := s.Snapshot()
	var b strings.Builder
	b.WriteString(title("%s · %s", sig.Stage.Label(), s.Scenario().Company.Name))
	b.WriteString("\n")

	fmt.Fprintf(&b, "Second Opinion Reviews: %d of %d complete\n", sig.Reviews.CompletedCount(), s.Thresholds().RequiredReviews)
	for _, c := range sig.Reviews.Cycles {
		line := fmt.Sprintf("  #%d %s · %s", c.Index, c.Mentor, c.Phase)
		if c.Slot != "" {
			line += " · " + c.Slot
		}
		if c.Assessment.Status != journey.AssessmentNone {
			line += " · assessment " + string(c.Assessment.Status)
		}
		b.WriteString(line + "\n")
	}
	if n := len(sig.Awaiting); n > 0 {
		b.WriteString(pendingStyle.Render(fmt.Sprintf("\n%d repl%s on the way…", n, plural(n, "y", "ies"))) + "\n")
	}
	if n := sig.Unread(); n > 0 {
		fmt.Fprintf(&b, "%d unread in the inbox\n", n)
	}
	if sig.ChampionID != "" {
		b.WriteString("\n")
		b.WriteString(checklist(sig))
	}
	return b.String()
}

func checklist(sig journey.Signals) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Thank the founders\n", checkbox(sig.PostSelection.ThanksSent))
	fmt.Fprintf(&b, "%s Synthesize the panel notes\n", checkbox(sig.PostSelection.NotesSynthesized))
	fmt.Fprintf(&b, "%s Email the champion\n", checkbox(sig.PostSelection.ChampionEmailed))
	fmt.Fprintf(&b, "%s Forward the champion's availability\n", checkbox(sig.Followup.Forwarded))
	fmt.Fprintf(&b, "%s Schedule and log the follow-up\n", checkbox(sig.Followup.Logged))
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// NewPostSelection is the checklist after a champion is chosen. Each step
// opens its mock application prefilled.
func NewPostSelection() Mode {
	render := func(ctx *Context) string {
		sig := ctx.Session.Snapshot()
		champion := ctx.Session.Scenario().Speaker(sig.ChampionID)
		return title("Post-selection · champion %s", champion) + "\n" + checklist(sig)
	}
	return newActionMode(NewBaseMode(journey.ScreenPostSelection), render,
		action{key: keyThank, label: "drafting the thank-you", run: func(s *session.Session) error {
			_, err := s.StartFounderEmail()
			return err
		}},
		action{key: keySynthesize, label: "synthesizing the notes", run: func(s *session.Session) error {
			_, err := s.StartSynthesis()
			return err
		}},
		action{key: keyChampion, label: "drafting the champion email", run: func(s *session.Session) error {
			_, err := s.StartChampionEmail()
			return err
		}},
	)
}
