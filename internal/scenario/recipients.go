package scenario

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

var (
	// ErrUnknownRecipient is returned when no directory entry is close enough.
	ErrUnknownRecipient = errors.New("scenario: unknown recipient")
	// ErrMentorDirect is returned when the trainee addresses a review mentor.
	// Mentor scheduling always goes through the account manager.
	ErrMentorDirect = errors.New("scenario: mentors are contacted through the account manager")
)

// maxTypoRatio is the share of a name that may be mistyped and still match.
const maxTypoRatio = 0.34

// Resolve maps free-form recipient text ("Daniel Kim — Account Manager",
// "daniel.kim@endeavor.org", "danel kim") to a directory entry. Exact id,
// email and name matches win; otherwise the closest name by edit distance
// is accepted when it is within maxTypoRatio of the name's length.
func (sc *Scenario) Resolve(input string) (Person, error) {
	query := recipientKey(input)
	if query == "" {
		return Person{}, fmt.Errorf("%w: empty recipient", ErrUnknownRecipient)
	}
	directory := sc.Directory()
	for _, p := range directory {
		if query == p.ID || query == strings.ToLower(p.Email) || query == recipientKey(p.Name) {
			return sc.checkMentor(p)
		}
	}

	best, bestDist := Person{}, -1
	for _, p := range directory {
		dist := levenshtein.ComputeDistance(query, recipientKey(p.Name))
		if bestDist < 0 || dist < bestDist {
			best, bestDist = p, dist
		}
	}
	limit := int(float64(len(recipientKey(best.Name))) * maxTypoRatio)
	if bestDist < 0 || bestDist > limit {
		return Person{}, fmt.Errorf("%w: %q", ErrUnknownRecipient, strings.TrimSpace(input))
	}
	return sc.checkMentor(best)
}

func (sc *Scenario) checkMentor(p Person) (Person, error) {
	if sc.IsMentor(p.ID) {
		return p, fmt.Errorf("%w: write to %s instead of %s", ErrMentorDirect, sc.AccountManager.Name, p.Name)
	}
	return p, nil
}

// recipientKey strips decorations: role suffixes after a dash, angle-bracket
// addresses, punctuation and case.
func recipientKey(input string) string {
	s := strings.TrimSpace(input)
	if open := strings.Index(s, "<"); open >= 0 {
		if end := strings.Index(s[open:], ">"); end > 0 {
			addr := strings.TrimSpace(s[open+1 : open+end])
			if name := strings.TrimSpace(s[:open]); name != "" {
				s = name
			} else {
				s = addr
			}
		}
	}
	for _, sep := range []string{" — ", " – ", " - "} {
		if idx := strings.Index(s, sep); idx > 0 {
			s = s[:idx]
		}
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.Contains(s, "@") {
		return s
	}
	var b strings.Builder
	space := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			space = false
		case !space && b.Len() > 0:
			b.WriteRune(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}
