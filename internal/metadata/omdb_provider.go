package metadata

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"sublift/internal/config"
	"sublift/internal/logging"
	"sublift/internal/metadata/omdb"
)

// OMDBProvider queries the OMDb API, preferring a catalog ID lookup over a
// title search when an IMDb ID is already known.
type OMDBProvider struct {
	client *omdb.Client
	logger *slog.Logger
}

var _ IDRefetcher = (*OMDBProvider)(nil)

// NewOMDBProvider builds the OMDb metadata provider. A missing API key
// yields an unavailable provider rather than an error.
func NewOMDBProvider(cfg *config.Config, logger *slog.Logger) *OMDBProvider {
	provider := &OMDBProvider{logger: logging.NewComponentLogger(logger, "metadata")}
	if cfg == nil || strings.TrimSpace(cfg.OMDB.APIKey) == "" {
		return provider
	}
	client, err := omdb.New(cfg.OMDB.APIKey, cfg.OMDB.BaseURL)
	if err != nil {
		provider.logger.Warn("omdb client unavailable", logging.Error(err))
		return provider
	}
	provider.client = client
	return provider
}

// newOMDBProviderWithClient wires a custom client (tests).
func newOMDBProviderWithClient(client *omdb.Client, logger *slog.Logger) *OMDBProvider {
	return &OMDBProvider{client: client, logger: logging.NewComponentLogger(logger, "metadata")}
}

// Name implements Provider.
func (p *OMDBProvider) Name() string { return "omdb" }

// Available implements Provider.
func (p *OMDBProvider) Available() bool { return p.client != nil }

// Fetch implements Provider.
func (p *OMDBProvider) Fetch(ctx context.Context, req Request) (*Record, error) {
	if !p.Available() {
		return nil, fmt.Errorf("omdb not configured")
	}
	if ValidIMDBID(req.IMDBID) {
		return p.FetchByIMDBID(ctx, req.IMDBID)
	}
	movie, err := p.client.ByTitle(ctx, req.Title, req.Year)
	if err != nil {
		return nil, err
	}
	return recordFromMovie(movie), nil
}

// FetchByIMDBID implements IDRefetcher.
func (p *OMDBProvider) FetchByIMDBID(ctx context.Context, imdbID string) (*Record, error) {
	if !p.Available() {
		return nil, fmt.Errorf("omdb not configured")
	}
	movie, err := p.client.ByIMDBID(ctx, imdbID)
	if err != nil {
		return nil, err
	}
	return recordFromMovie(movie), nil
}

func recordFromMovie(movie *omdb.Movie) *Record {
	record := &Record{
		Title:    movie.Title,
		Runtime:  movie.RuntimeMinutes(),
		Overview: movie.Plot,
		Genres:   movie.GenreList(),
		Director: movie.Director,
		Actors:   movie.ActorList(),
		IMDBID:   movie.IMDBID,
	}
	if year, err := strconv.Atoi(strings.TrimSpace(movie.Year)); err == nil && year > 0 {
		record.Year = year
	}
	if released, err := time.Parse("02 Jan 2006", strings.TrimSpace(movie.Released)); err == nil {
		record.ReleaseDate = released.Format("2006-01-02")
	}
	// OMDb lists the original language first when a film has several.
	if languages := splitFirst(movie.Language); languages != "" {
		record.Language = languages
	}
	if country := splitFirst(movie.Country); country != "" {
		record.Country = country
	}
	record.Rating = movieRating(movie)
	return record
}

// movieRating takes the flat imdbRating field when present, otherwise the
// first entry of the ratings array that normalizes cleanly.
func movieRating(movie *omdb.Movie) float64 {
	if rating, ok := NormalizeRating(movie.IMDBRating); ok {
		return rating
	}
	for _, entry := range movie.Ratings {
		if rating, ok := NormalizeRating(entry.Value); ok {
			return rating
		}
	}
	return 0
}

func splitFirst(joined string) string {
	first, _, _ := strings.Cut(joined, ",")
	return strings.TrimSpace(first)
}
