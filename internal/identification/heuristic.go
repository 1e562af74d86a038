package identification

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// heuristicConfidence is reported for path-derived candidates. Path cleaning
// is reliable for well-formed release names but cannot disambiguate remakes
// or translated titles.
const heuristicConfidence = 0.4

var titleCaser = cases.Title(language.English)

// Candidate is a single movie identification.
type Candidate struct {
	Title      string
	Year       int
	Confidence float64
	// Source names the recognizer that produced the candidate:
	// "llm" or "heuristic".
	Source string
}

// HeuristicCandidate builds a candidate from path hints alone. It always
// produces a usable title as long as the path has one token of substance.
func HeuristicCandidate(hints Hints) Candidate {
	title := strings.TrimSpace(hints.Title)
	if title == "" {
		title = strings.TrimSpace(hints.RawName)
	}
	// All-lowercase release names read better title-cased; mixed-case names
	// already carry intentional casing (McTeague, RoboCop).
	if title != "" && !strings.ContainsFunc(title, unicode.IsUpper) {
		title = titleCaser.String(title)
	}
	return Candidate{
		Title:      title,
		Year:       hints.Year,
		Confidence: heuristicConfidence,
		Source:     "heuristic",
	}
}
