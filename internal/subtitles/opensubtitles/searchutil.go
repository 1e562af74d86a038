package opensubtitles

import (
	"strconv"
	"strings"
)

// MovieSearchVariants produces ordered search variants for a movie. The
// IMDb identifier is the most precise handle and goes first, the TMDB
// identifier follows, and a textual title/year query is the last resort.
// Identical variants collapse while preserving order.
func MovieSearchVariants(base SearchRequest, title string, year int) []SearchRequest {
	variants := make([]SearchRequest, 0, 3)
	if sanitizeIMDBID(base.IMDBID) != "" {
		variants = append(variants, SearchRequest{
			IMDBID:          base.IMDBID,
			Languages:       base.Languages,
			HearingImpaired: base.HearingImpaired,
		})
	}
	if base.TMDBID > 0 {
		variants = append(variants, SearchRequest{
			TMDBID:          base.TMDBID,
			Languages:       base.Languages,
			HearingImpaired: base.HearingImpaired,
		})
	}
	if title = strings.TrimSpace(title); title != "" {
		textual := SearchRequest{
			Query:           title,
			Languages:       base.Languages,
			HearingImpaired: base.HearingImpaired,
		}
		if year > 0 {
			textual.Year = strconv.Itoa(year)
		}
		variants = append(variants, textual)
	}
	return dedupeVariants(variants)
}

type variantKey struct {
	imdb  string
	tmdb  int64
	query string
	year  string
	langs string
}

// dedupeVariants removes equal requests, keeping the first occurrence.
func dedupeVariants(variants []SearchRequest) []SearchRequest {
	unique := variants[:0]
	seen := make(map[variantKey]struct{}, len(variants))
	for _, variant := range variants {
		key := variantKey{
			imdb:  sanitizeIMDBID(variant.IMDBID),
			tmdb:  variant.TMDBID,
			query: strings.TrimSpace(variant.Query),
			year:  strings.TrimSpace(variant.Year),
			langs: strings.Join(variant.Languages, ","),
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, variant)
	}
	return unique
}
