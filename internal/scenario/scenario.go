// Package scenario holds the scripted case a training session runs through:
// the company, the people involved, the question catalog, panel transcripts,
// the deliberation script, and the email templates.
package scenario

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed scenario.yaml
var defaultScenarioYAML []byte

// Company is the applicant company.
type Company struct {
	Name    string `yaml:"name"`
	Summary string `yaml:"summary"`
}

// Person is anyone the trainee corresponds with or watches on a panel.
type Person struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Role  string `yaml:"role"`
	Email string `yaml:"email,omitempty"`
}

// Address renders the person as an email header value.
func (p Person) Address() string {
	if p.Email == "" {
		return p.Name
	}
	return fmt.Sprintf("%s <%s>", p.Name, p.Email)
}

// Category groups FOR questions.
type Category struct {
	Name  string   `yaml:"category"`
	Items []string `yaml:"items"`
}

// Question is one selectable FOR question with a stable id.
type Question struct {
	ID       string
	Category string
	Text     string
}

// Line is one utterance in a transcript.
type Line struct {
	Speaker string `yaml:"speaker"`
	Text    string `yaml:"text"`
}

// Panel is one scripted LSP interview.
type Panel struct {
	ID         int      `yaml:"id"`
	Panelists  []string `yaml:"panelists"`
	Transcript []Line   `yaml:"transcript"`
}

// Votes is a scripted show of hands.
type Votes struct {
	Yes int `yaml:"yes"`
	No  int `yaml:"no"`
}

// Deliberation is the scripted closed-door discussion.
type Deliberation struct {
	Opening    []Line `yaml:"opening"`
	Round1     Votes  `yaml:"round1"`
	Discussion []Line `yaml:"discussion"`
	Round2     Votes  `yaml:"round2"`
}

// Assessment is the mentor's scripted verdict for every review.
type Assessment struct {
	Readiness int    `yaml:"readiness"`
	Potential int    `yaml:"potential"`
	Fit       int    `yaml:"fit"`
	Feedback  string `yaml:"feedback"`
}

// Step is the copy for one ISP walkthrough screen.
type Step struct {
	Screen string `yaml:"screen"`
	Title  string `yaml:"title"`
	Body   string `yaml:"body"`
}

// Script is what a model trainee types, used by the headless walkthrough.
type Script struct {
	Pitch             []string `yaml:"pitch"`
	ReviewNotes       string   `yaml:"review_notes"`
	PanelNotes        []string `yaml:"panel_notes"`
	DeliberationNotes string   `yaml:"deliberation_notes"`
	Pros              []string `yaml:"pros"`
	Cons              []string `yaml:"cons"`
	Champion          string   `yaml:"champion"`
	Format            string   `yaml:"format"`
	FollowupNotes     string   `yaml:"followup_notes"`
}

// Template is an email subject/body pair in text/template syntax.
type Template struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// Scenario is the complete scripted case.
type Scenario struct {
	Version        int                 `yaml:"version"`
	Company        Company             `yaml:"company"`
	Trainee        string              `yaml:"trainee"`
	Founder        Person              `yaml:"founder"`
	AccountManager Person              `yaml:"account_manager"`
	Mentors        []Person            `yaml:"mentors"`
	MentorSlots    []string            `yaml:"mentor_slots"`
	FounderSlot    string              `yaml:"founder_slot"`
	Assessment     Assessment          `yaml:"assessment"`
	Categories     []Category          `yaml:"questions"`
	Panelists      []Person            `yaml:"panelists"`
	Panels         []Panel             `yaml:"panels"`
	Deliberation   Deliberation        `yaml:"deliberation"`
	ChampionSlots  []string            `yaml:"champion_slots"`
	Steps          []Step              `yaml:"steps"`
	Templates      map[string]Template `yaml:"templates"`
	Replies        map[string]Template `yaml:"replies"`
	Script         Script              `yaml:"script"`

	questions []Question
}

// Default returns the built-in case.
func Default() *Scenario {
	sc, err := Parse(defaultScenarioYAML)
	if err != nil {
		panic(fmt.Sprintf("scenario: built-in case is invalid: %v", err))
	}
	return sc
}

// Load reads a scenario file. An empty path yields the built-in case.
func Load(path string) (*Scenario, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: read %s: %w", path, err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scenario: %s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes, normalizes and validates scenario YAML.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	sc.normalize()
	if err := sc.validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (sc *Scenario) normalize() {
	if sc.Version == 0 {
		sc.Version = 1
	}
	if strings.TrimSpace(sc.Trainee) == "" {
		sc.Trainee = "[Your Name]"
	}
	sc.Company.Name = strings.TrimSpace(sc.Company.Name)
	sc.Company.Summary = strings.TrimSpace(sc.Company.Summary)
	sc.FounderSlot = strings.TrimSpace(sc.FounderSlot)
	for i := range sc.Steps {
		sc.Steps[i].Body = strings.TrimSpace(sc.Steps[i].Body)
	}
	sc.questions = sc.questions[:0]
	for ci, cat := range sc.Categories {
		for qi, text := range cat.Items {
			sc.questions = append(sc.questions, Question{
				ID:       fmt.Sprintf("q%d.%d", ci+1, qi+1),
				Category: cat.Name,
				Text:     strings.TrimSpace(text),
			})
		}
	}
}

func (sc *Scenario) validate() error {
	var errs []error
	if sc.Company.Name == "" {
		errs = append(errs, errors.New("company.name is required"))
	}
	for label, p := range map[string]Person{"founder": sc.Founder, "account_manager": sc.AccountManager} {
		if p.ID == "" || p.Name == "" {
			errs = append(errs, fmt.Errorf("%s needs an id and a name", label))
		}
	}
	if len(sc.Mentors) == 0 {
		errs = append(errs, errors.New("at least one mentor is required"))
	}
	if len(sc.MentorSlots) == 0 {
		errs = append(errs, errors.New("mentor_slots must not be empty"))
	}
	if sc.FounderSlot != "" && !contains(sc.MentorSlots, sc.FounderSlot) {
		errs = append(errs, fmt.Errorf("founder_slot %q is not one of mentor_slots", sc.FounderSlot))
	}
	if len(sc.ChampionSlots) == 0 {
		errs = append(errs, errors.New("champion_slots must not be empty"))
	}
	if len(sc.questions) == 0 {
		errs = append(errs, errors.New("questions must not be empty"))
	}
	seen := map[string]bool{}
	for _, p := range sc.Directory() {
		if seen[p.ID] {
			errs = append(errs, fmt.Errorf("duplicate person id %q", p.ID))
		}
		seen[p.ID] = true
	}
	if len(sc.Panels) != 3 {
		errs = append(errs, fmt.Errorf("exactly 3 panels are required, got %d", len(sc.Panels)))
	}
	for i, panel := range sc.Panels {
		if panel.ID != i+1 {
			errs = append(errs, fmt.Errorf("panel %d has id %d", i+1, panel.ID))
		}
		if len(panel.Panelists) == 0 {
			errs = append(errs, fmt.Errorf("panel %d has no panelists", panel.ID))
		}
		for _, id := range panel.Panelists {
			if _, ok := sc.Panelist(id); !ok {
				errs = append(errs, fmt.Errorf("panel %d lists unknown panelist %q", panel.ID, id))
			}
		}
	}
	if sc.Deliberation.Round1.Yes+sc.Deliberation.Round1.No == 0 {
		errs = append(errs, errors.New("deliberation.round1 has no votes"))
	}
	if sc.Script.Champion != "" {
		if _, ok := sc.Panelist(sc.Script.Champion); !ok {
			errs = append(errs, fmt.Errorf("script.champion %q is not a panelist", sc.Script.Champion))
		}
	}
	if len(sc.Steps) != 5 {
		errs = append(errs, fmt.Errorf("exactly 5 steps are required, got %d", len(sc.Steps)))
	}
	for kind, tmpl := range sc.Templates {
		if err := checkTemplate("templates."+kind, tmpl); err != nil {
			errs = append(errs, err)
		}
	}
	for kind, tmpl := range sc.Replies {
		if err := checkTemplate("replies."+kind, tmpl); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Questions returns the FOR catalog with stable ids.
func (sc *Scenario) Questions() []Question {
	return append([]Question(nil), sc.questions...)
}

// Question returns the catalog entry for id.
func (sc *Scenario) Question(id string) (Question, bool) {
	for _, q := range sc.questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Mentor returns the mentor for the 1-based review index, rotating through
// the roster.
func (sc *Scenario) Mentor(review int) Person {
	if review < 1 {
		review = 1
	}
	return sc.Mentors[(review-1)%len(sc.Mentors)]
}

// SlotChoice is the mentor slot the founder picks.
func (sc *Scenario) SlotChoice() string {
	if sc.FounderSlot != "" {
		return sc.FounderSlot
	}
	return sc.MentorSlots[0]
}

// Panelist returns the panelist with id.
func (sc *Scenario) Panelist(id string) (Person, bool) {
	for _, p := range sc.Panelists {
		if p.ID == id {
			return p, true
		}
	}
	return Person{}, false
}

// Panel returns the scripted panel with the 1-based id.
func (sc *Scenario) Panel(id int) (Panel, bool) {
	if id < 1 || id > len(sc.Panels) {
		return Panel{}, false
	}
	return sc.Panels[id-1], true
}

// Step returns the walkthrough copy for screen.
func (sc *Scenario) Step(screen string) (Step, bool) {
	for _, s := range sc.Steps {
		if s.Screen == screen {
			return s, true
		}
	}
	return Step{}, false
}

// Person looks up anyone in the directory by id.
func (sc *Scenario) Person(id string) (Person, bool) {
	for _, p := range sc.Directory() {
		if p.ID == id {
			return p, true
		}
	}
	return Person{}, false
}

// Speaker resolves a transcript speaker id to a display name.
func (sc *Scenario) Speaker(id string) string {
	if p, ok := sc.Person(id); ok {
		return p.Name
	}
	return id
}

// Directory lists everyone the trainee could address.
func (sc *Scenario) Directory() []Person {
	out := []Person{sc.Founder, sc.AccountManager}
	out = append(out, sc.Mentors...)
	out = append(out, sc.Panelists...)
	return out
}

// IsMentor reports whether id belongs to a review mentor.
func (sc *Scenario) IsMentor(id string) bool {
	for _, m := range sc.Mentors {
		if m.ID == id {
			return true
		}
	}
	return false
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
