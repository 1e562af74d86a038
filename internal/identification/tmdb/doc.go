// Package tmdb provides the minimal TMDB API client used for movie metadata.
//
// It authenticates requests and exposes movie search with optional
// release-year and runtime filters plus movie detail retrieval, which carries
// the IMDb identifier and original language the search endpoint omits.
// Options allow tests to supply custom HTTP clients without modifying
// production code.
package tmdb
