package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kingrea/selection-journey/internal/journey"
)

const reportJournalLines = 20

// Report renders the session so far as markdown.
func (s *Session) Report() string {
	sig := s.store.Snapshot()
	sc := s.scenario
	var b strings.Builder

	fmt.Fprintf(&b, "# Selection journey: %s\n\n", sc.Company.Name)
	fmt.Fprintf(&b, "- Session: `%s`\n", s.id)
	fmt.Fprintf(&b, "- Founder: %s\n", sc.Founder.Name)
	fmt.Fprintf(&b, "- Stage: **%s** (%s)\n", sig.Stage, sig.Stage.Label())
	fmt.Fprintf(&b, "- Screen: %s\n\n", s.journey.Router().Decide(sig).Screen)

	b.WriteString("## First Opinion Review\n\n")
	fmt.Fprintf(&b, "%d questions selected, %d pitch statements drafted", len(sig.Prep.Questions), len(sig.Prep.Statements))
	if sig.Prep.Complete {
		b.WriteString(", submitted.\n\n")
	} else {
		b.WriteString(", not submitted.\n\n")
	}
	for _, stmt := range sig.Prep.Statements {
		fmt.Fprintf(&b, "- %s\n", stmt)
	}
	if len(sig.Prep.Statements) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("## Second Opinion Reviews\n\n")
	fmt.Fprintf(&b, "%d of %d complete.\n\n", sig.Reviews.CompletedCount(), s.thresholds.RequiredReviews)
	if len(sig.Reviews.Cycles) > 0 {
		b.WriteString("| # | Mentor | Phase | Slot | Assessment |\n|---|---|---|---|---|\n")
		for _, c := range sig.Reviews.Cycles {
			assessment := string(c.Assessment.Status)
			if assessment == "" {
				assessment = "-"
			}
			if r := c.Assessment.Ratings; r != nil {
				assessment = fmt.Sprintf("readiness %d, potential %d, fit %d", r.Readiness, r.Potential, r.Fit)
			}
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n", c.Index, c.Mentor, c.Phase, orDash(c.Slot), assessment)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Local Selection Panel\n\n")
	for _, rec := range sig.Panels.Records {
		names := make([]string, 0, len(rec.Panelists))
		for _, id := range rec.Panelists {
			names = append(names, sc.Speaker(id))
		}
		status := "open"
		if rec.Complete {
			status = "complete"
		}
		fmt.Fprintf(&b, "- Panel %d (%s): %s", rec.ID, strings.Join(names, ", "), status)
		if rec.Notes != "" {
			fmt.Fprintf(&b, ". Notes: %s", rec.Notes)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	d := sig.Deliberation
	if d.Round1.Held {
		b.WriteString("### Deliberations\n\n")
		fmt.Fprintf(&b, "- Round 1: %d yes, %d no\n", d.Round1.Yes, d.Round1.No)
		if d.Round2.Held {
			fmt.Fprintf(&b, "- Round 2: %d yes, %d no\n", d.Round2.Yes, d.Round2.No)
		}
		fmt.Fprintf(&b, "- Outcome: **%s**\n", d.Outcome)
		if d.Notes != "" {
			fmt.Fprintf(&b, "- Notes: %s\n", d.Notes)
		}
		b.WriteString("\n")
	}

	if sig.ChampionID != "" {
		b.WriteString("## Post-selection\n\n")
		fmt.Fprintf(&b, "Champion: %s\n\n", sc.Speaker(sig.ChampionID))
		fmt.Fprintf(&b, "- %s Founders thanked\n", check(sig.PostSelection.ThanksSent))
		fmt.Fprintf(&b, "- %s Notes synthesized\n", check(sig.PostSelection.NotesSynthesized))
		fmt.Fprintf(&b, "- %s Champion emailed\n", check(sig.PostSelection.ChampionEmailed))
		fmt.Fprintf(&b, "- %s Follow-up scheduled %s\n", check(sig.Followup.Scheduled), sig.Followup.Confirmation.Slot)
		fmt.Fprintf(&b, "- %s Follow-up logged\n\n", check(sig.Followup.Logged))
		if len(sig.Synthesis.Pros) > 0 {
			b.WriteString("**Strengths**\n\n")
			for _, p := range sig.Synthesis.Pros {
				fmt.Fprintf(&b, "- %s\n", p)
			}
			b.WriteString("\n**Areas to watch**\n\n")
			for _, c := range sig.Synthesis.Cons {
				fmt.Fprintf(&b, "- %s\n", c)
			}
			b.WriteString("\n")
		}
	}

	if sig.Followup.Logged {
		b.WriteString("## International Selection Panel\n\n")
		for _, step := range journey.InfoSequence() {
			title := string(step)
			if st, ok := sc.Step(string(step)); ok {
				title = st.Title
			}
			line := fmt.Sprintf("- %s %s", check(sig.ISP.StepDone(step)), title)
			if step == journey.ScreenFormatSelection && sig.ISP.Format != journey.FormatUnset {
				line += fmt.Sprintf(" (%s)", sig.ISP.Format)
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	if lines, total := s.journal.Tail(reportJournalLines); total > 0 {
		fmt.Fprintf(&b, "## Journal (last %d of %d)\n\n```\n", len(lines), total)
		for _, line := range lines {
			b.WriteString(line + "\n")
		}
		b.WriteString("```\n")
	}
	return b.String()
}

// ExportReport writes the report to dir/<session>.md and returns the path.
func (s *Session) ExportReport(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("session: ensure %s: %w", dir, err)
	}
	path := filepath.Join(dir, s.id+".md")
	if err := os.WriteFile(path, []byte(s.Report()), 0o644); err != nil {
		return "", fmt.Errorf("session: write report: %w", err)
	}
	s.note("report exported to %s", path)
	return path, nil
}

func check(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
