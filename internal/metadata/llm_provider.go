package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"log/slog"

	"sublift/internal/config"
	"sublift/internal/logging"
	"sublift/internal/services/llm"
)

// metadataSystemPrompt primes the model as a movie catalog authority. The
// emphasis on international cinema matters: original titles and IMDb IDs
// for non-English films are where models most often drift.
const metadataSystemPrompt = `You are a movie database expert with comprehensive knowledge of international cinema, including Chinese, Japanese, and other foreign films. Your expertise includes accurate IMDb IDs, original language titles, and official translations. Always provide the most accurate and complete metadata possible.`

// llmAnswer is the structured field set requested from the model.
type llmAnswer struct {
	Title         string          `json:"title"`
	OriginalTitle string          `json:"original_title"`
	ReleaseDate   string          `json:"release_date"`
	Runtime       int             `json:"runtime"`
	Overview      string          `json:"overview"`
	Genres        []string        `json:"genres"`
	Director      string          `json:"director"`
	Actors        []string        `json:"actors"`
	Language      string          `json:"language"`
	Country       string          `json:"country"`
	IMDBID        string          `json:"imdb_id"`
	IMDBRating    json.RawMessage `json:"imdb_rating"`
}

type completionClient interface {
	Configured() bool
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// LLMProvider asks the configured model for the full metadata field set in
// a single JSON completion.
type LLMProvider struct {
	client completionClient
	logger *slog.Logger
}

// NewLLMProvider builds the LLM metadata provider from the shared LLM
// connection settings.
func NewLLMProvider(cfg *config.Config, logger *slog.Logger) *LLMProvider {
	provider := &LLMProvider{logger: logging.NewComponentLogger(logger, "metadata")}
	if cfg != nil {
		llmCfg := cfg.LLMSettings()
		provider.client = llm.NewClient(llm.Config{
			APIKey:         llmCfg.APIKey,
			BaseURL:        llmCfg.BaseURL,
			Model:          llmCfg.Model,
			Referer:        llmCfg.Referer,
			Title:          llmCfg.Title,
			TimeoutSeconds: llmCfg.TimeoutSeconds,
		})
	}
	return provider
}

// newLLMProviderWithClient wires a custom completion client (tests).
func newLLMProviderWithClient(client completionClient, logger *slog.Logger) *LLMProvider {
	return &LLMProvider{client: client, logger: logging.NewComponentLogger(logger, "metadata")}
}

// Name implements Provider.
func (p *LLMProvider) Name() string { return "llm" }

// Available implements Provider.
func (p *LLMProvider) Available() bool {
	return p.client != nil && p.client.Configured()
}

// Fetch implements Provider.
func (p *LLMProvider) Fetch(ctx context.Context, req Request) (*Record, error) {
	if !p.Available() {
		return nil, fmt.Errorf("llm not configured")
	}
	payload, err := p.client.CompleteJSON(ctx, metadataSystemPrompt, metadataUserPrompt(req))
	if err != nil {
		return nil, err
	}
	var answer llmAnswer
	if err := llm.DecodeLLMJSON(payload, &answer); err != nil {
		return nil, fmt.Errorf("decode metadata answer: %w", err)
	}
	if strings.TrimSpace(answer.Title) == "" {
		return nil, fmt.Errorf("metadata answer missing title")
	}
	return answer.toRecord(), nil
}

func (a llmAnswer) toRecord() *Record {
	record := &Record{
		Title:         strings.TrimSpace(a.Title),
		OriginalTitle: strings.TrimSpace(a.OriginalTitle),
		ReleaseDate:   strings.TrimSpace(a.ReleaseDate),
		Overview:      strings.TrimSpace(a.Overview),
		Director:      strings.TrimSpace(a.Director),
		Language:      strings.TrimSpace(a.Language),
		Country:       strings.TrimSpace(a.Country),
		IMDBID:        strings.TrimSpace(a.IMDBID),
	}
	if a.Runtime > 0 {
		record.Runtime = a.Runtime
	}
	if year := releaseYear(record.ReleaseDate); year > 0 {
		record.Year = year
	}
	for _, genre := range a.Genres {
		if genre = strings.TrimSpace(genre); genre != "" {
			record.Genres = append(record.Genres, genre)
		}
	}
	for _, actor := range a.Actors {
		if actor = strings.TrimSpace(actor); actor != "" {
			record.Actors = append(record.Actors, actor)
		}
	}
	if rating, ok := ratingFromRaw(a.IMDBRating); ok {
		record.Rating = rating
	}
	return record
}

// ratingFromRaw accepts the numeric and string spellings models produce for
// the rating field.
func ratingFromRaw(raw json.RawMessage) (float64, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return 0, false
	}
	var numeric float64
	if err := json.Unmarshal(raw, &numeric); err == nil {
		if numeric < 0 || numeric > 10 {
			return 0, false
		}
		return numeric, true
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return NormalizeRating(text)
	}
	return 0, false
}

func metadataUserPrompt(req Request) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "Provide metadata for the movie %q.\n", req.Title)
	if req.Year > 0 {
		fmt.Fprintf(&builder, "This movie was released in the year %d.\n", req.Year)
	}
	builder.WriteString(`
Return a JSON object with these fields:
- title: the official English title
- original_title: the title in the movie's native language
- release_date: YYYY-MM-DD
- runtime: minutes as a number
- overview: a two to three sentence plot summary
- genres: array of genre names
- director: the director's name
- actors: array of the top billed cast
- language: the primary language of the film
- country: the country of origin
- imdb_id: the IMDb ID in the form "tt" followed by 7 or 8 digits
- imdb_rating: the numeric IMDb rating

Omit or null any field you do not know with certainty rather than guessing.
When several movies share the title, pick the most well-known one`)
	if req.Year > 0 {
		builder.WriteString(" unless the year indicates otherwise")
	}
	builder.WriteString(".\n")
	return builder.String()
}

func releaseYear(date string) int {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year < 1888 || year > 2100 {
		return 0
	}
	return year
}
