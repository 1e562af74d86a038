package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"log/slog"

	"sublift/internal/config"
	"sublift/internal/logging"
	"sublift/internal/services"
)

// maxParallelProviders bounds concurrent provider calls so one aggregation
// cannot trip provider rate limits.
const maxParallelProviders = 2

const defaultProviderTimeout = 15 * time.Second

// Aggregator merges provider partials into one Record under a fixed
// priority order.
type Aggregator struct {
	logger    *slog.Logger
	providers []Provider
	cache     ResponseCache
	timeout   time.Duration
}

// AggregatorOption customizes Aggregator construction.
type AggregatorOption func(*Aggregator)

// WithProviders replaces the default provider set. Slice order is priority
// order.
func WithProviders(providers ...Provider) AggregatorOption {
	return func(a *Aggregator) { a.providers = providers }
}

// WithResponseCache attaches a provider response cache.
func WithResponseCache(cache ResponseCache) AggregatorOption {
	return func(a *Aggregator) { a.cache = cache }
}

// WithProviderTimeout overrides the per-provider call timeout.
func WithProviderTimeout(timeout time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if timeout > 0 {
			a.timeout = timeout
		}
	}
}

// NewAggregator builds an aggregator over the LLM, TMDB, and OMDb providers
// in that priority order.
func NewAggregator(cfg *config.Config, logger *slog.Logger, opts ...AggregatorOption) *Aggregator {
	agg := &Aggregator{
		logger:  logging.NewComponentLogger(logger, "metadata"),
		timeout: defaultProviderTimeout,
	}
	if cfg != nil && cfg.Metadata.ProviderTimeoutSeconds > 0 {
		agg.timeout = time.Duration(cfg.Metadata.ProviderTimeoutSeconds) * time.Second
	}
	for _, opt := range opts {
		opt(agg)
	}
	if agg.providers == nil {
		agg.providers = []Provider{
			NewLLMProvider(cfg, logger),
			NewTMDBProvider(cfg, logger),
			NewOMDBProvider(cfg, logger),
		}
	}
	return agg
}

// Aggregate queries every available provider and merges the partials field
// by field in priority order. A provider failure or timeout contributes
// nothing. The IMDb ID is special cased: the first well-formed one found is
// kept, and a malformed one never displaces it. The returned error is
// non-nil only when no provider produced a usable record or the context was
// cancelled.
func (a *Aggregator) Aggregate(ctx context.Context, req Request) (Record, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return Record{}, services.Wrap(services.ErrValidation, "metadata", "aggregate", "No title to aggregate metadata for", nil)
	}

	partials := a.fetchAll(ctx, req)
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	a.warnMalformedIDs(partials)

	merged, sources := mergeRecords(a.providers, partials)
	if a.refetchByID(ctx, merged.IMDBID, partials) {
		merged, sources = mergeRecords(a.providers, partials)
	}
	if !merged.HasData() {
		return Record{}, services.Wrap(services.ErrNotFound, "metadata", "aggregate",
			fmt.Sprintf("No provider returned metadata for %q", req.Title), nil)
	}
	merged.Sources = sources
	a.logger.Info("metadata aggregated", logging.Args(
		logging.String("title", merged.Title),
		logging.String("imdb_id", merged.IMDBID),
		logging.String("providers", strings.Join(sources, ",")),
	)...)
	return merged, nil
}

func (a *Aggregator) fetchAll(ctx context.Context, req Request) []*Record {
	partials := make([]*Record, len(a.providers))
	sem := make(chan struct{}, maxParallelProviders)
	var wg sync.WaitGroup
	for i, provider := range a.providers {
		if !provider.Available() {
			a.logger.Debug("metadata provider skipped", logging.Args(
				logging.String("provider", provider.Name()),
				logging.String("reason", "not configured"),
			)...)
			continue
		}
		wg.Add(1)
		go func(i int, provider Provider) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			partials[i] = a.fetchOne(ctx, provider, req)
		}(i, provider)
	}
	wg.Wait()
	return partials
}

func (a *Aggregator) fetchOne(ctx context.Context, provider Provider, req Request) *Record {
	key := req.CacheKey()
	if cached, ok := a.cacheGet(ctx, provider.Name(), key); ok {
		return cached
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	partial, err := provider.Fetch(callCtx, req)
	if err != nil {
		a.logProviderFailure(provider.Name(), err)
		return nil
	}
	if !partial.HasData() {
		return nil
	}
	a.cachePut(ctx, provider.Name(), key, partial)
	return partial
}

// refetchByID gives providers that found nothing a second chance once an
// IMDb ID has been discovered elsewhere. Reports whether any partial
// changed.
func (a *Aggregator) refetchByID(ctx context.Context, imdbID string, partials []*Record) bool {
	if !ValidIMDBID(imdbID) || ctx.Err() != nil {
		return false
	}
	changed := false
	for i, provider := range a.providers {
		if partials[i].HasData() || !provider.Available() {
			continue
		}
		refetcher, ok := provider.(IDRefetcher)
		if !ok {
			continue
		}
		key := Request{IMDBID: imdbID}.CacheKey()
		if cached, ok := a.cacheGet(ctx, provider.Name(), key); ok {
			partials[i] = cached
			changed = true
			continue
		}
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		partial, err := refetcher.FetchByIMDBID(callCtx, imdbID)
		cancel()
		if err != nil {
			a.logProviderFailure(provider.Name(), err)
			continue
		}
		if !partial.HasData() {
			continue
		}
		a.cachePut(ctx, provider.Name(), key, partial)
		partials[i] = partial
		changed = true
	}
	return changed
}

func (a *Aggregator) warnMalformedIDs(partials []*Record) {
	for i, partial := range partials {
		if partial == nil {
			continue
		}
		if id := strings.TrimSpace(partial.IMDBID); id != "" && !ValidIMDBID(id) {
			a.logger.Warn("discarding malformed imdb id", logging.Args(
				logging.String("provider", a.providers[i].Name()),
				logging.String("imdb_id", id),
			)...)
		}
	}
}

func (a *Aggregator) logProviderFailure(name string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	reason := "provider error"
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "provider timeout"
	}
	a.logger.Warn("metadata provider contributed nothing", logging.Args(
		logging.String("provider", name),
		logging.String("reason", reason),
		logging.Error(err),
	)...)
}

func (a *Aggregator) cacheGet(ctx context.Context, provider, key string) (*Record, bool) {
	if a.cache == nil {
		return nil, false
	}
	payload, ok, err := a.cache.Get(ctx, provider, key)
	if err != nil || !ok {
		return nil, false
	}
	var record Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, false
	}
	if !record.HasData() {
		return nil, false
	}
	a.logger.Debug("metadata cache hit", logging.Args(
		logging.String("provider", provider),
	)...)
	return &record, true
}

func (a *Aggregator) cachePut(ctx context.Context, provider, key string, record *Record) {
	if a.cache == nil {
		return
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := a.cache.Put(ctx, provider, key, payload); err != nil {
		a.logger.Debug("metadata cache write failed", logging.Args(
			logging.String("provider", provider),
			logging.Error(err),
		)...)
	}
}

// mergeRecords folds partials in priority order: first non-empty value per
// field, except the IMDb ID where only a well-formed value may land and the
// first such value sticks.
func mergeRecords(providers []Provider, partials []*Record) (Record, []string) {
	var merged Record
	var sources []string
	for i, partial := range partials {
		if !partial.HasData() {
			continue
		}
		sources = append(sources, providers[i].Name())
		fillString(&merged.Title, partial.Title)
		fillString(&merged.OriginalTitle, partial.OriginalTitle)
		fillString(&merged.ReleaseDate, partial.ReleaseDate)
		fillInt(&merged.Year, partial.Year)
		fillInt(&merged.Runtime, partial.Runtime)
		fillString(&merged.Overview, partial.Overview)
		if len(merged.Genres) == 0 {
			merged.Genres = partial.Genres
		}
		fillString(&merged.Director, partial.Director)
		if len(merged.Actors) == 0 {
			merged.Actors = partial.Actors
		}
		fillString(&merged.Language, partial.Language)
		fillString(&merged.Country, partial.Country)
		if merged.IMDBID == "" && ValidIMDBID(partial.IMDBID) {
			merged.IMDBID = strings.TrimSpace(partial.IMDBID)
		}
		if merged.TMDBID == 0 {
			merged.TMDBID = partial.TMDBID
		}
		if merged.Rating == 0 && partial.Rating > 0 {
			merged.Rating = partial.Rating
		}
	}
	return merged, sources
}

func fillString(dst *string, value string) {
	if *dst == "" && strings.TrimSpace(value) != "" {
		*dst = value
	}
}

func fillInt(dst *int, value int) {
	if *dst == 0 && value > 0 {
		*dst = value
	}
}
