package journey

import (
	"go.uber.org/zap"
)

// DefaultRequiredReviews is how many Second Opinion Reviews close the SOR stage.
const DefaultRequiredReviews = 5

// Guard is a pure predicate over a signal snapshot.
type Guard func(Signals) bool

// Rule is one row of the priority table.
type Rule struct {
	Name   string
	Screen Screen
	Reason string
	Guard  Guard
	// Target computes the screen for rows whose destination depends on the
	// snapshot (the detour and the default tab).
	Target func(Signals) Screen
}

func (r Rule) screenFor(s Signals) Screen {
	if r.Target != nil {
		return r.Target(s)
	}
	return r.Screen
}

// Decision is the router's verdict for one snapshot.
type Decision struct {
	Screen  Screen
	Variant Variant
	Rule    string
	Reason  string
	Panel   int
}

// RouterOption customizes Router construction.
type RouterOption func(*Router)

// WithRouterLogger routes ambiguity and fallback warnings to logger.
func WithRouterLogger(logger *zap.Logger) RouterOption {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRequiredReviews overrides how many reviews close the SOR stage.
func WithRequiredReviews(n int) RouterOption {
	return func(r *Router) {
		if n > 0 {
			r.requiredReviews = n
		}
	}
}

// WithRules replaces the priority table.
func WithRules(rules ...Rule) RouterOption {
	return func(r *Router) {
		r.rules = append([]Rule(nil), rules...)
	}
}

// Router maps a signal snapshot to exactly one screen by walking a
// priority-ordered guard table. Guards are exclusive by construction; if two
// ever match, the higher row wins and a warning is logged.
type Router struct {
	rules           []Rule
	requiredReviews int
	logger          *zap.Logger
}

// NewRouter constructs a router over the journey's default table.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		requiredReviews: DefaultRequiredReviews,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.rules == nil {
		r.rules = DefaultRules(r.requiredReviews)
	}
	return r
}

// Rules returns the priority table, highest first.
func (r *Router) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Matches returns every rule whose guard holds for s, in priority order.
func (r *Router) Matches(s Signals) []Rule {
	var out []Rule
	for _, rule := range r.rules {
		if rule.Guard(s) {
			out = append(out, rule)
		}
	}
	return out
}

// Decide selects the screen for s.
func (r *Router) Decide(s Signals) Decision {
	matches := r.Matches(s)
	if len(matches) == 0 {
		r.logger.Warn("journey: no route matched, falling back to overview",
			zap.String("stage", s.Stage.String()),
			zap.String("tab", string(s.Tab)),
		)
		return Decision{
			Screen:  ScreenOverview,
			Variant: overviewVariant(s),
			Rule:    "fallback",
			Reason:  "no rule matched",
		}
	}
	if len(matches) > 1 {
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Name
		}
		r.logger.Warn("journey: ambiguous route, using highest priority",
			zap.Strings("rules", names),
		)
	}
	winner := matches[0]
	d := Decision{
		Screen: winner.screenFor(s),
		Rule:   winner.Name,
		Reason: winner.Reason,
	}
	switch d.Screen {
	case ScreenOverview:
		d.Variant = overviewVariant(s)
	case ScreenPanel:
		d.Panel = s.Panels.Next()
	}
	return d
}

func overviewVariant(s Signals) Variant {
	if s.Stage == StageFOR {
		return VariantPreparation
	}
	return VariantProgress
}

func noDetour(s Signals) bool { return s.Detour == nil }

func panelsOpen(s Signals) bool { return !s.Panels.AllComplete() }

func selected(s Signals) bool {
	return noDetour(s) &&
		s.Deliberated() &&
		s.Deliberation.Outcome == OutcomeUnanimousYes &&
		s.ChampionID != ""
}

func walkthrough(s Signals) bool {
	return selected(s) && s.Followup.Logged
}

// stepGuard holds while every walkthrough step before step is done and step
// itself is not.
func stepGuard(step Screen) Guard {
	return func(s Signals) bool {
		if !walkthrough(s) {
			return false
		}
		for _, candidate := range infoSequence {
			if candidate == step {
				return !s.ISP.StepDone(step)
			}
			if !s.ISP.StepDone(candidate) {
				return false
			}
		}
		return false
	}
}

// DefaultRules builds the journey's priority table. requiredReviews closes
// the SOR stage.
func DefaultRules(requiredReviews int) []Rule {
	if requiredReviews <= 0 {
		requiredReviews = DefaultRequiredReviews
	}
	rules := []Rule{
		{
			Name:   "detour",
			Reason: "a navigation request was promoted",
			Guard:  func(s Signals) bool { return s.Detour != nil },
			Target: func(s Signals) Screen { return s.Detour.Target },
		},
		{
			Name:   "review-transition",
			Screen: ScreenReviewTransition,
			Reason: "enough second opinion reviews are complete",
			Guard: func(s Signals) bool {
				return noDetour(s) &&
					s.Stage == StageSOR &&
					s.Reviews.CompletedCount() >= requiredReviews &&
					!s.Panels.Started &&
					panelsOpen(s)
			},
		},
		{
			Name:   "panel-overview",
			Screen: ScreenPanelOverview,
			Reason: "local selection panel has not started",
			Guard: func(s Signals) bool {
				return noDetour(s) && s.Stage >= StageLSP && !s.Panels.Started && panelsOpen(s)
			},
		},
		{
			Name:   "panel",
			Screen: ScreenPanel,
			Reason: "a panel interview is still open",
			Guard: func(s Signals) bool {
				return noDetour(s) && s.Panels.Started && panelsOpen(s)
			},
		},
		{
			Name:   "founders-leave",
			Screen: ScreenFoundersLeave,
			Reason: "all panels are complete and the founders are still in the room",
			Guard: func(s Signals) bool {
				return noDetour(s) && s.Panels.AllComplete() && !s.Deliberation.FoundersLeft
			},
		},
		{
			Name:   "deliberations",
			Screen: ScreenDeliberations,
			Reason: "the panel has not reached a verdict",
			Guard: func(s Signals) bool {
				return noDetour(s) &&
					s.Panels.AllComplete() &&
					s.Deliberation.FoundersLeft &&
					s.Deliberation.Outcome == OutcomePending
			},
		},
		{
			Name:   "comeback",
			Screen: ScreenComeback,
			Reason: "the panel asked the founders to come back later",
			Guard: func(s Signals) bool {
				return noDetour(s) && s.Deliberated() && s.Deliberation.Outcome == OutcomeComeback
			},
		},
		{
			Name:   "champion-selection",
			Screen: ScreenChampionSelection,
			Reason: "unanimous yes without a champion",
			Guard: func(s Signals) bool {
				return noDetour(s) &&
					s.Deliberated() &&
					s.Deliberation.Outcome == OutcomeUnanimousYes &&
					s.ChampionID == ""
			},
		},
		{
			Name:   "post-selection",
			Screen: ScreenPostSelection,
			Reason: "post-selection checklist is unfinished",
			Guard: func(s Signals) bool {
				return selected(s) &&
					!s.PostSelection.Done() &&
					s.Tab == ScreenOverview &&
					!s.Followup.Logged
			},
		},
		{Name: "global-review", Screen: ScreenGlobalReview, Reason: "walkthrough step 1", Guard: stepGuard(ScreenGlobalReview)},
		{Name: "format-selection", Screen: ScreenFormatSelection, Reason: "walkthrough step 2", Guard: stepGuard(ScreenFormatSelection)},
		{Name: "profile-pairing", Screen: ScreenProfilePairing, Reason: "walkthrough step 3", Guard: stepGuard(ScreenProfilePairing)},
		{Name: "team-review", Screen: ScreenTeamReview, Reason: "walkthrough step 4", Guard: stepGuard(ScreenTeamReview)},
		{Name: "introduction", Screen: ScreenIntroduction, Reason: "walkthrough step 5", Guard: stepGuard(ScreenIntroduction)},
		{
			Name:   "complete",
			Screen: ScreenComplete,
			Reason: "the walkthrough is finished",
			Guard: func(s Signals) bool {
				return walkthrough(s) && s.ISP.Done()
			},
		},
	}
	specific := append([]Rule(nil), rules...)
	rules = append(rules, Rule{
		Name:   "tab",
		Reason: "no journey screen is due; show the selected tab",
		Guard: func(s Signals) bool {
			for _, rule := range specific {
				if rule.Guard(s) {
					return false
				}
			}
			return true
		},
		Target: func(s Signals) Screen {
			if s.Tab.IsTab() {
				return s.Tab
			}
			return ScreenOverview
		},
	})
	return rules
}
