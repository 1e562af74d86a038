package metadata

import (
	"context"
	"strconv"
	"strings"
)

// Request identifies the movie a provider should look up.
type Request struct {
	Title string
	Year  int
	// IMDBID carries an identifier discovered earlier; providers that can
	// query by catalog ID prefer it over the title.
	IMDBID string
	// RuntimeMinutes is the probed video duration, used to narrow search
	// results. It does not participate in cache keying because rips of the
	// same movie vary by a few minutes.
	RuntimeMinutes int
}

// CacheKey returns a stable representation of the request for response
// caching.
func (r Request) CacheKey() string {
	var builder strings.Builder
	builder.WriteString(strings.ToLower(strings.TrimSpace(r.Title)))
	builder.WriteString("|")
	builder.WriteString(strconv.Itoa(r.Year))
	builder.WriteString("|")
	builder.WriteString(strings.ToLower(strings.TrimSpace(r.IMDBID)))
	return builder.String()
}

// Provider fetches a partial metadata record from one external source.
// A provider that finds nothing returns an error; the aggregator treats
// every provider error as an empty contribution.
type Provider interface {
	Name() string
	Available() bool
	Fetch(ctx context.Context, req Request) (*Record, error)
}

// IDRefetcher is implemented by providers that can retry a lookup once an
// IMDb ID has been discovered by another provider.
type IDRefetcher interface {
	FetchByIMDBID(ctx context.Context, imdbID string) (*Record, error)
}

// ResponseCache persists provider partials between runs so repeated passes
// over the same library avoid re-querying external services.
type ResponseCache interface {
	Get(ctx context.Context, provider, key string) ([]byte, bool, error)
	Put(ctx context.Context, provider, key string, payload []byte) error
}
