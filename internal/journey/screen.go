package journey

// Screen identifies what the trainee is looking at. The first four values are
// the tab screens reachable from the app switcher.
type Screen string

const (
	ScreenOverview Screen = "overview"
	ScreenInbox    Screen = "inbox"
	ScreenCalendar Screen = "calendar"
	ScreenRecords  Screen = "records"

	ScreenReviewTransition  Screen = "review-transition"
	ScreenPanelOverview     Screen = "panel-overview"
	ScreenPanel             Screen = "panel"
	ScreenFoundersLeave     Screen = "founders-leave"
	ScreenDeliberations     Screen = "deliberations"
	ScreenComeback          Screen = "comeback"
	ScreenChampionSelection Screen = "champion-selection"
	ScreenPostSelection     Screen = "post-selection"
	ScreenSynthesize        Screen = "synthesize"
	ScreenGlobalReview      Screen = "global-review"
	ScreenFormatSelection   Screen = "format-selection"
	ScreenProfilePairing    Screen = "profile-pairing"
	ScreenTeamReview        Screen = "team-review"
	ScreenIntroduction      Screen = "introduction"
	ScreenComplete          Screen = "complete"
)

var tabs = []Screen{ScreenOverview, ScreenInbox, ScreenCalendar, ScreenRecords}

// Tabs returns the tab screens in switcher order.
func Tabs() []Screen {
	out := make([]Screen, len(tabs))
	copy(out, tabs)
	return out
}

// IsTab reports whether s is one of the four tab screens.
func (s Screen) IsTab() bool {
	for _, tab := range tabs {
		if tab == s {
			return true
		}
	}
	return false
}

// Variant refines how the overview tab renders.
type Variant string

const (
	VariantNone        Variant = ""
	VariantPreparation Variant = "preparation"
	VariantProgress    Variant = "progress"
)

// infoSequence is the ordered ISP walkthrough.
var infoSequence = []Screen{
	ScreenGlobalReview,
	ScreenFormatSelection,
	ScreenProfilePairing,
	ScreenTeamReview,
	ScreenIntroduction,
}

// InfoSequence returns the ISP walkthrough screens in order.
func InfoSequence() []Screen {
	out := make([]Screen, len(infoSequence))
	copy(out, infoSequence)
	return out
}

// InfoStepIndex returns the 1-based position of s in the ISP walkthrough, or 0.
func InfoStepIndex(s Screen) int {
	for idx, candidate := range infoSequence {
		if candidate == s {
			return idx + 1
		}
	}
	return 0
}
