package identification

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"sublift/internal/textutil"
)

// Hints carries what a video path reveals about the movie it contains.
type Hints struct {
	// RawName is the file name without its extension.
	RawName string
	// Title is the cleaned candidate title derived from the path.
	Title string
	// Year is the release year found in the path, 0 when absent.
	Year int
	// YearSource names where the year came from: "filename", "directory",
	// or "" when no year was found.
	YearSource string
}

var (
	resolutionPattern = regexp.MustCompile(`^\d{3,4}p$`)
	codecPattern      = regexp.MustCompile(`^[hx]26[45]$`)
	audioChanPattern  = regexp.MustCompile(`^(?:dd|ddp|aac|ac|dts)\d`)
)

// noiseTokens are release-name fragments that never belong to a title.
// Everything from the first noise token onward is discarded.
var noiseTokens = map[string]struct{}{
	"bluray": {}, "bdrip": {}, "brrip": {}, "bdremux": {}, "remux": {},
	"webrip": {}, "webdl": {}, "web": {}, "hdtv": {}, "dvdrip": {},
	"dvd": {}, "hdrip": {}, "cam": {}, "telesync": {}, "screener": {},
	"uhd": {}, "4k": {}, "8k": {}, "hdr": {}, "hdr10": {}, "sdr": {},
	"dolby": {}, "atmos": {}, "truehd": {}, "dts": {}, "aac": {},
	"ac3": {}, "eac3": {}, "flac": {}, "mp3": {}, "opus": {},
	"hevc": {}, "avc": {}, "av1": {}, "xvid": {}, "divx": {}, "vp9": {},
	"10bit": {}, "8bit": {}, "proper": {}, "repack": {}, "internal": {},
	"limited": {}, "multi": {}, "dual": {}, "subbed": {}, "dubbed": {},
	"remastered": {}, "extended": {}, "unrated": {}, "uncut": {},
	"imax": {}, "criterion": {}, "hc": {}, "retail": {}, "rip": {},
}

// HintsFromPath derives title and year hints for the movie at path. The file
// name is the primary source; when it carries no year, the two nearest parent
// directory names are consulted. A file name that is nothing but noise falls
// back to the immediate directory name for the title as well.
func HintsFromPath(path string) Hints {
	rawName := strings.TrimSpace(textutil.Stem(path))
	hints := Hints{RawName: rawName}

	title, year := splitNameYear(rawName)
	hints.Title = title
	if year > 0 {
		hints.Year = year
		hints.YearSource = "filename"
	}

	dir := filepath.Dir(path)
	for depth := 0; depth < 2; depth++ {
		name := filepath.Base(dir)
		if name == "." || name == string(filepath.Separator) || name == "" {
			break
		}
		dirTitle, dirYear := splitNameYear(name)
		if hints.Year == 0 && dirYear > 0 {
			hints.Year = dirYear
			hints.YearSource = "directory"
		}
		if hints.Title == "" && depth == 0 && dirTitle != "" {
			hints.Title = dirTitle
		}
		dir = filepath.Dir(dir)
	}
	return hints
}

// splitNameYear tokenizes a file or directory name, locates the release year,
// and returns the title tokens that precede the year and any release noise.
func splitNameYear(name string) (string, int) {
	tokens := splitTokens(name)
	if len(tokens) == 0 {
		return "", 0
	}

	yearIdx, year := -1, 0
	for i, token := range tokens {
		if y, ok := parseYearToken(token); ok {
			yearIdx, year = i, y
		}
	}
	cut := len(tokens)
	for i, token := range tokens {
		if isNoiseToken(token) {
			cut = i
			break
		}
	}
	if yearIdx >= 0 && yearIdx < cut {
		cut = yearIdx
	}
	if cut == 0 {
		// The name starts with a year or noise. A leading year is almost
		// always the title itself (1917, 1984, 2012).
		if yearIdx == 0 {
			return tokens[0], 0
		}
		return "", year
	}
	return strings.Join(tokens[:cut], " "), year
}

// splitTokens breaks a release name on the separators scene names use,
// leaving apostrophes and other in-word characters alone.
func splitTokens(name string) []string {
	fields := strings.FieldsFunc(name, func(r rune) bool {
		switch r {
		case '.', '_', '-', ' ', '(', ')', '[', ']', '{', '}', '+':
			return true
		}
		return unicode.IsSpace(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field != "" {
			tokens = append(tokens, field)
		}
	}
	return tokens
}

// parseYearToken accepts whole tokens in the plausible release-year range.
func parseYearToken(token string) (int, bool) {
	if len(token) != 4 {
		return 0, false
	}
	year, err := strconv.Atoi(token)
	if err != nil {
		return 0, false
	}
	if year < 1900 || year > 2099 {
		return 0, false
	}
	return year, true
}

func isNoiseToken(token string) bool {
	lowered := strings.ToLower(token)
	if _, ok := noiseTokens[lowered]; ok {
		return true
	}
	if resolutionPattern.MatchString(lowered) {
		return true
	}
	if codecPattern.MatchString(lowered) {
		return true
	}
	return audioChanPattern.MatchString(lowered)
}
