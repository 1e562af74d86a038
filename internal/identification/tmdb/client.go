package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Searcher defines the TMDB operations used for movie metadata.
type Searcher interface {
	SearchMovieWithOptions(ctx context.Context, query string, opts SearchOptions) (*Response, error)
	GetMovieDetails(ctx context.Context, movieID int64) (*MovieDetails, error)
}

// Client calls The Movie Database JSON API.
type Client struct {
	apiKey   string
	base     string
	language string
	http     *http.Client
}

var _ Searcher = (*Client)(nil)

// New validates the credentials and returns a client. language narrows
// result text to one locale and may be empty.
func New(apiKey, baseURL, language string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb: api key required")
	}
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errors.New("tmdb: base url required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("tmdb: base url: %w", err)
	}
	return &Client{
		apiKey:   apiKey,
		base:     base,
		language: strings.TrimSpace(language),
		http:     &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// SearchOptions narrows a movie search.
type SearchOptions struct {
	Year    int
	Runtime int // minutes
}

// SearchMovieWithOptions searches for a movie, filtering by release year
// and approximate runtime when provided.
func (c *Client) SearchMovieWithOptions(ctx context.Context, query string, opts SearchOptions) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("tmdb: empty query")
	}
	params := url.Values{"query": {query}}
	if opts.Year > 0 {
		params.Set("primary_release_year", strconv.Itoa(opts.Year))
	}
	if opts.Runtime > 0 {
		// Ten minute margin either way; cut runtimes rarely match exactly.
		params.Set("runtime.gte", strconv.Itoa(opts.Runtime-10))
		params.Set("runtime.lte", strconv.Itoa(opts.Runtime+10))
	}

	var payload Response
	if err := c.get(ctx, "/search/movie", params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// GetMovieDetails fetches one movie with credits appended. The full record
// carries the IMDb id, runtime, and crew the search results omit.
func (c *Client) GetMovieDetails(ctx context.Context, movieID int64) (*MovieDetails, error) {
	if movieID <= 0 {
		return nil, errors.New("tmdb: movie id must be positive")
	}
	params := url.Values{"append_to_response": {"credits"}}

	var payload MovieDetails
	if err := c.get(ctx, fmt.Sprintf("/movie/%d", movieID), params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// get issues one API request and decodes the JSON body into out. The API
// key and configured language ride along as query parameters.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("tmdb: build request: %w", err)
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("tmdb %s (after %s): %w", path, time.Since(start).Round(time.Millisecond), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tmdb %s: status %d (after %s)", path, resp.StatusCode, time.Since(start).Round(time.Millisecond))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("tmdb %s: decode response: %w", path, err)
	}
	return nil
}

// Response models the paginated search envelope.
type Response struct {
	Page         int      `json:"page"`
	Results      []Result `json:"results"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
}

// Result is a single movie search match.
type Result struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	OriginalLanguage string  `json:"original_language"`
	Overview         string  `json:"overview"`
	ReleaseDate      string  `json:"release_date"`
	Popularity       float64 `json:"popularity"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int64   `json:"vote_count"`
}

// ReleaseYear parses the year out of the release date, 0 when absent.
func (r Result) ReleaseYear() int {
	return yearOf(r.ReleaseDate)
}

// MovieDetails is the full movie payload with credits appended.
type MovieDetails struct {
	ID                  int64               `json:"id"`
	IMDBID              string              `json:"imdb_id"`
	Title               string              `json:"title"`
	OriginalTitle       string              `json:"original_title"`
	OriginalLanguage    string              `json:"original_language"`
	Overview            string              `json:"overview"`
	Tagline             string              `json:"tagline"`
	ReleaseDate         string              `json:"release_date"`
	Runtime             int                 `json:"runtime"`
	Genres              []Genre             `json:"genres"`
	ProductionCountries []ProductionCountry `json:"production_countries"`
	Credits             Credits             `json:"credits"`
	Popularity          float64             `json:"popularity"`
	VoteAverage         float64             `json:"vote_average"`
	VoteCount           int64               `json:"vote_count"`
}

// Genre is a TMDB genre entry.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ProductionCountry is a TMDB production country entry.
type ProductionCountry struct {
	ISO  string `json:"iso_3166_1"`
	Name string `json:"name"`
}

// Credits carries the cast and crew lists from the credits append.
type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// CastMember is a billed cast entry.
type CastMember struct {
	Name      string `json:"name"`
	Character string `json:"character"`
	Order     int    `json:"order"`
}

// CrewMember is a crew entry.
type CrewMember struct {
	Name string `json:"name"`
	Job  string `json:"job"`
}

// Director returns the first crew member credited as Director.
func (d MovieDetails) Director() string {
	for _, member := range d.Credits.Crew {
		if member.Job == "Director" {
			return member.Name
		}
	}
	return ""
}

// TopCast returns up to limit billed cast names in billing order.
func (d MovieDetails) TopCast(limit int) []string {
	if limit <= 0 || len(d.Credits.Cast) == 0 {
		return nil
	}
	if limit > len(d.Credits.Cast) {
		limit = len(d.Credits.Cast)
	}
	names := make([]string, 0, limit)
	for _, member := range d.Credits.Cast[:limit] {
		if member.Name != "" {
			names = append(names, member.Name)
		}
	}
	return names
}

// ReleaseYear parses the year out of the release date, 0 when absent.
func (d MovieDetails) ReleaseYear() int {
	return yearOf(d.ReleaseDate)
}

func yearOf(releaseDate string) int {
	releaseDate = strings.TrimSpace(releaseDate)
	if len(releaseDate) < 4 {
		return 0
	}
	year, err := strconv.Atoi(releaseDate[:4])
	if err != nil {
		return 0
	}
	return year
}
