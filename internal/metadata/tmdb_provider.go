package metadata

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"sublift/internal/config"
	"sublift/internal/identification/tmdb"
	"sublift/internal/language"
	"sublift/internal/logging"
	"sublift/internal/textutil"
)

// TMDBProvider queries The Movie Database: a title search narrowed by year,
// then a details fetch for credits and the IMDb identifier.
type TMDBProvider struct {
	client tmdb.Searcher
	logger *slog.Logger
}

// NewTMDBProvider builds the TMDB metadata provider. A missing API key
// yields an unavailable provider rather than an error.
func NewTMDBProvider(cfg *config.Config, logger *slog.Logger) *TMDBProvider {
	provider := &TMDBProvider{logger: logging.NewComponentLogger(logger, "metadata")}
	if cfg == nil || strings.TrimSpace(cfg.TMDB.APIKey) == "" {
		return provider
	}
	client, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language)
	if err != nil {
		provider.logger.Warn("tmdb client unavailable", logging.Error(err))
		return provider
	}
	provider.client = client
	return provider
}

// newTMDBProviderWithClient wires a custom searcher (tests).
func newTMDBProviderWithClient(client tmdb.Searcher, logger *slog.Logger) *TMDBProvider {
	return &TMDBProvider{client: client, logger: logging.NewComponentLogger(logger, "metadata")}
}

// Name implements Provider.
func (p *TMDBProvider) Name() string { return "tmdb" }

// Available implements Provider.
func (p *TMDBProvider) Available() bool { return p.client != nil }

// Fetch implements Provider.
func (p *TMDBProvider) Fetch(ctx context.Context, req Request) (*Record, error) {
	if !p.Available() {
		return nil, fmt.Errorf("tmdb not configured")
	}
	resp, err := p.client.SearchMovieWithOptions(ctx, req.Title, tmdb.SearchOptions{Year: req.Year, Runtime: req.RuntimeMinutes})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 && (req.Year > 0 || req.RuntimeMinutes > 0) {
		// The year and runtime filters exclude re-releases and off-by-one
		// release dates; retry unfiltered before giving up.
		resp, err = p.client.SearchMovieWithOptions(ctx, req.Title, tmdb.SearchOptions{})
		if err != nil {
			return nil, err
		}
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("no tmdb results for %q", req.Title)
	}
	best := bestResult(req, resp.Results)
	details, err := p.client.GetMovieDetails(ctx, best.ID)
	if err != nil {
		return nil, err
	}
	return recordFromDetails(details), nil
}

// bestResult picks the search hit whose title and year line up with the
// request. Ties keep TMDB's own popularity ordering.
func bestResult(req Request, results []tmdb.Result) tmdb.Result {
	best := results[0]
	bestScore := resultScore(req, best)
	for _, result := range results[1:] {
		if score := resultScore(req, result); score > bestScore {
			best, bestScore = result, score
		}
	}
	return best
}

func resultScore(req Request, result tmdb.Result) float64 {
	score := textutil.TitleSimilarity(req.Title, result.Title)
	if original := textutil.TitleSimilarity(req.Title, result.OriginalTitle); original > score {
		score = original
	}
	if req.Year > 0 && result.ReleaseYear() == req.Year {
		score += 0.25
	}
	return score
}

func recordFromDetails(details *tmdb.MovieDetails) *Record {
	record := &Record{
		Title:         details.Title,
		OriginalTitle: details.OriginalTitle,
		ReleaseDate:   details.ReleaseDate,
		Year:          details.ReleaseYear(),
		Runtime:       details.Runtime,
		Overview:      details.Overview,
		Director:      details.Director(),
		Actors:        details.TopCast(10),
		IMDBID:        details.IMDBID,
		TMDBID:        details.ID,
	}
	if details.OriginalLanguage != "" {
		record.Language = language.DisplayName(details.OriginalLanguage)
	}
	if len(details.ProductionCountries) > 0 {
		record.Country = details.ProductionCountries[0].Name
	}
	for _, genre := range details.Genres {
		if genre.Name != "" {
			record.Genres = append(record.Genres, genre.Name)
		}
	}
	if details.VoteAverage > 0 {
		record.Rating = clampRating(details.VoteAverage)
	}
	return record
}
