package metadata

import (
	"regexp"
	"strconv"
	"strings"
)

// imdbIDPattern matches the IMDb catalog identifier form: "tt" followed by
// seven or eight digits.
var imdbIDPattern = regexp.MustCompile(`^tt\d{7,8}$`)

// ValidIMDBID reports whether id is a well-formed IMDb identifier.
func ValidIMDBID(id string) bool {
	return imdbIDPattern.MatchString(strings.TrimSpace(id))
}

// Record is the merged movie metadata assembled from provider partials.
// Ratings are normalized to the 0 to 10 scale; zero values mean the field
// was not supplied by any provider.
type Record struct {
	Title         string   `json:"title,omitempty"`
	OriginalTitle string   `json:"original_title,omitempty"`
	ReleaseDate   string   `json:"release_date,omitempty"`
	Year          int      `json:"year,omitempty"`
	Runtime       int      `json:"runtime,omitempty"`
	Overview      string   `json:"overview,omitempty"`
	Genres        []string `json:"genres,omitempty"`
	Director      string   `json:"director,omitempty"`
	Actors        []string `json:"actors,omitempty"`
	// Language is the original language as reported by the winning
	// provider, either an ISO code or a language name.
	Language string  `json:"language,omitempty"`
	Country  string  `json:"country,omitempty"`
	IMDBID   string  `json:"imdb_id,omitempty"`
	TMDBID   int64   `json:"tmdb_id,omitempty"`
	Rating   float64 `json:"rating,omitempty"`
	// Sources lists the providers that contributed fields, in priority
	// order.
	Sources []string `json:"sources,omitempty"`
}

// HasData reports whether the record carries anything worth merging.
func (r *Record) HasData() bool {
	if r == nil {
		return false
	}
	return r.Title != "" || r.OriginalTitle != "" || r.IMDBID != "" ||
		r.Overview != "" || r.Director != "" || r.Language != "" ||
		r.Country != "" || r.ReleaseDate != "" ||
		len(r.Genres) > 0 || len(r.Actors) > 0 ||
		r.Runtime > 0 || r.Year > 0 || r.Rating > 0 || r.TMDBID > 0
}

// NormalizeRating converts the rating forms providers emit ("7.8", "78%",
// "76/100", "7.8/10") to the 0 to 10 scale. It reports false for empty,
// sentinel, or unparseable input.
func NormalizeRating(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "n/a") {
		return 0, false
	}
	if trimmed, ok := strings.CutSuffix(raw, "%"); ok {
		value, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
		if err != nil {
			return 0, false
		}
		return clampRating(value / 10), true
	}
	if numerator, denominator, ok := strings.Cut(raw, "/"); ok {
		num, errN := strconv.ParseFloat(strings.TrimSpace(numerator), 64)
		den, errD := strconv.ParseFloat(strings.TrimSpace(denominator), 64)
		if errN != nil || errD != nil || den <= 0 {
			return 0, false
		}
		return clampRating(num / den * 10), true
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 || value > 10 {
		return 0, false
	}
	return value, true
}

func clampRating(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 10 {
		return 10
	}
	return value
}
