package subtitles

import (
	"sort"
	"strings"
	"time"
	"unicode"
)

// Origin identifies how a track's cues were obtained.
type Origin string

const (
	// OriginEmbedded marks cues extracted from a text subtitle stream.
	OriginEmbedded Origin = "embedded"
	// OriginCaption marks cues extracted from closed-caption data.
	OriginCaption Origin = "caption"
	// OriginOCR marks cues recognized from burned-in subtitles.
	OriginOCR Origin = "ocr"
	// OriginExternal marks cues downloaded from a subtitle provider.
	OriginExternal Origin = "external"
)

// originRank orders origins by trust for same-language conflicts.
// Lower is better.
func originRank(o Origin) int {
	switch o {
	case OriginEmbedded:
		return 0
	case OriginCaption:
		return 1
	case OriginOCR:
		return 2
	case OriginExternal:
		return 3
	default:
		return 4
	}
}

// Cue is a single timed subtitle line.
type Cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Track is an ordered cue sequence for one language from one source.
type Track struct {
	// Language is the ISO 639-1 code; empty means undetermined.
	Language string
	Origin   Origin
	// Codec is the source stream codec for embedded/caption tracks.
	Codec string
	// Source describes where the track came from (stream index, provider file).
	Source string
	Cues   []Cue
}

// CueCount returns the number of cues in the track.
func (t Track) CueCount() int {
	return len(t.Cues)
}

// Empty reports whether the track carries no cues.
func (t Track) Empty() bool {
	return len(t.Cues) == 0
}

// CoalesceCues sorts cues by start time and merges adjacent cues with
// identical normalized text into one spanning cue. Applying it to its own
// output returns an equal slice.
func CoalesceCues(cues []Cue) []Cue {
	if len(cues) == 0 {
		return nil
	}
	sorted := append([]Cue(nil), cues...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	merged := make([]Cue, 0, len(sorted))
	for _, cue := range sorted {
		text := NormalizeCueText(cue.Text)
		if text == "" {
			continue
		}
		cue.Text = text
		if cue.End < cue.Start {
			cue.End = cue.Start
		}
		if len(merged) > 0 {
			last := &merged[len(merged)-1]
			if last.Text == cue.Text && cue.Start <= last.End {
				if cue.End > last.End {
					last.End = cue.End
				}
				continue
			}
		}
		merged = append(merged, cue)
	}
	if len(merged) == 0 {
		return nil
	}
	return merged
}

// NormalizeCueText collapses runs of whitespace within lines, trims each
// line, and drops empty lines. Line breaks inside a cue are preserved.
func NormalizeCueText(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	cleaned := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		cleaned = append(cleaned, line)
	}
	return strings.Join(cleaned, "\n")
}

// AlnumRatio returns the share of letters and digits among the non-space
// characters of text. Empty input yields 0.
func AlnumRatio(text string) float64 {
	var total, alnum int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(alnum) / float64(total)
}

// ClampCues truncates cue end times to the given limit and drops cues that
// start at or beyond it. A zero or negative limit leaves cues untouched.
func ClampCues(cues []Cue, limit time.Duration) []Cue {
	if limit <= 0 || len(cues) == 0 {
		return cues
	}
	clamped := make([]Cue, 0, len(cues))
	for _, cue := range cues {
		if cue.Start >= limit {
			continue
		}
		if cue.End > limit {
			cue.End = limit
		}
		clamped = append(clamped, cue)
	}
	return clamped
}
