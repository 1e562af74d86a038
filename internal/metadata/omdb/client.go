package omdb

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

// Rating is one entry of the OMDb ratings array. Values arrive in
// per-source forms ("8.7/10", "92%", "76/100").
type Rating struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

// Movie is the OMDb payload for a single title. String fields holding the
// OMDb "N/A" sentinel are cleared during decoding.
type Movie struct {
	Title      string   `json:"Title"`
	Year       string   `json:"Year"`
	Rated      string   `json:"Rated"`
	Released   string   `json:"Released"`
	Runtime    string   `json:"Runtime"`
	Genre      string   `json:"Genre"`
	Director   string   `json:"Director"`
	Writer     string   `json:"Writer"`
	Actors     string   `json:"Actors"`
	Plot       string   `json:"Plot"`
	Language   string   `json:"Language"`
	Country    string   `json:"Country"`
	Awards     string   `json:"Awards"`
	Metascore  string   `json:"Metascore"`
	IMDBRating string   `json:"imdbRating"`
	IMDBVotes  string   `json:"imdbVotes"`
	IMDBID     string   `json:"imdbID"`
	BoxOffice  string   `json:"BoxOffice"`
	Production string   `json:"Production"`
	Ratings    []Rating `json:"Ratings"`
}

// RuntimeMinutes parses the "136 min" runtime form, 0 when absent.
func (m Movie) RuntimeMinutes() int {
	fields := strings.Fields(m.Runtime)
	if len(fields) == 0 {
		return 0
	}
	minutes, err := strconv.Atoi(fields[0])
	if err != nil || minutes < 0 {
		return 0
	}
	return minutes
}

// GenreList splits the comma-separated genre field.
func (m Movie) GenreList() []string {
	return splitList(m.Genre)
}

// ActorList splits the comma-separated actors field.
func (m Movie) ActorList() []string {
	return splitList(m.Actors)
}

func splitList(joined string) []string {
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Client provides access to the OMDb API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates an OMDb client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("omdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("omdb base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// ByIMDBID fetches a title by its IMDb identifier.
func (c *Client) ByIMDBID(ctx context.Context, imdbID string) (*Movie, error) {
	imdbID = strings.TrimSpace(imdbID)
	if imdbID == "" {
		return nil, errors.New("imdb id must not be empty")
	}
	params := url.Values{}
	params.Set("i", imdbID)
	return c.fetch(ctx, params)
}

// ByTitle fetches a title by name, optionally filtered by release year.
func (c *Client) ByTitle(ctx context.Context, title string, year int) (*Movie, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("title must not be empty")
	}
	params := url.Values{}
	params.Set("t", title)
	if year > 0 {
		params.Set("y", strconv.Itoa(year))
	}
	return c.fetch(ctx, params)
}

func (c *Client) fetch(ctx context.Context, params url.Values) (*Movie, error) {
	endpoint, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return nil, fmt.Errorf("parse omdb url: %w", err)
	}
	params.Set("apikey", c.apiKey)
	params.Set("r", "json")
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("omdb returned %d (latency=%v)", resp.StatusCode, latency)
	}

	var payload struct {
		Movie
		Response string `json:"Response"`
		Error    string `json:"Error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode omdb response: %w", err)
	}
	if payload.Response == "False" {
		message := payload.Error
		if message == "" {
			message = "no result"
		}
		return nil, fmt.Errorf("omdb: %s", message)
	}
	movie := payload.Movie
	movie.scrubSentinels()
	return &movie, nil
}

// scrubSentinels clears the "N/A" placeholder OMDb uses for absent fields.
func (m *Movie) scrubSentinels() {
	for _, field := range []*string{
		&m.Title, &m.Year, &m.Rated, &m.Released, &m.Runtime, &m.Genre,
		&m.Director, &m.Writer, &m.Actors, &m.Plot, &m.Language, &m.Country,
		&m.Awards, &m.Metascore, &m.IMDBRating, &m.IMDBVotes, &m.IMDBID,
		&m.BoxOffice, &m.Production,
	} {
		if strings.TrimSpace(*field) == "N/A" {
			*field = ""
		}
	}
}
