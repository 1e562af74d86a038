package metadata

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"sublift/internal/services"
)

type fakeProvider struct {
	name      string
	available bool
	record    *Record
	err       error
	// block keeps Fetch pending until the call context expires.
	block  bool
	calls  int
	gotReq Request
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Available() bool { return f.available }

func (f *fakeProvider) Fetch(ctx context.Context, req Request) (*Record, error) {
	f.calls++
	f.gotReq = req
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

type fakeRefetchProvider struct {
	fakeProvider
	byID      *Record
	byIDErr   error
	refetches int
	gotIMDBID string
}

func (f *fakeRefetchProvider) FetchByIMDBID(ctx context.Context, imdbID string) (*Record, error) {
	f.refetches++
	f.gotIMDBID = imdbID
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	return f.byID, nil
}

type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	gets  int
	puts  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: map[string][]byte{}}
}

func (c *fakeCache) Get(ctx context.Context, provider, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	payload, ok := c.store[provider+"|"+key]
	return payload, ok, nil
}

func (c *fakeCache) Put(ctx context.Context, provider, key string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	c.store[provider+"|"+key] = payload
	return nil
}

func testAggregator(t *testing.T, opts ...AggregatorOption) *Aggregator {
	t.Helper()
	return NewAggregator(nil, nil, opts...)
}

func TestAggregatePriorityMerge(t *testing.T) {
	llm := &fakeProvider{name: "llm", available: true, record: &Record{
		Title:    "The Matrix",
		Overview: "llm overview",
		Director: "Lana Wachowski",
	}}
	tmdbP := &fakeProvider{name: "tmdb", available: true, record: &Record{
		Title:    "The Matrix (TMDB)",
		Overview: "tmdb overview",
		Runtime:  136,
		IMDBID:   "tt0133093",
		Rating:   8.2,
		Genres:   []string{"Action"},
	}}
	omdbP := &fakeProvider{name: "omdb", available: true, record: &Record{
		Rating:  8.7,
		Country: "United States",
	}}
	agg := testAggregator(t, WithProviders(llm, tmdbP, omdbP))

	record, err := agg.Aggregate(context.Background(), Request{Title: "The Matrix", Year: 1999})
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if record.Title != "The Matrix" {
		t.Errorf("title = %q, want llm value to win", record.Title)
	}
	if record.Overview != "llm overview" {
		t.Errorf("overview = %q, want llm value to win", record.Overview)
	}
	if record.Runtime != 136 {
		t.Errorf("runtime = %d, want 136 from tmdb", record.Runtime)
	}
	if record.IMDBID != "tt0133093" {
		t.Errorf("imdb id = %q, want tt0133093", record.IMDBID)
	}
	if record.Rating != 8.2 {
		t.Errorf("rating = %v, want 8.2 from tmdb over omdb", record.Rating)
	}
	if record.Country != "United States" {
		t.Errorf("country = %q, want omdb to fill the gap", record.Country)
	}
	if want := []string{"llm", "tmdb", "omdb"}; !reflect.DeepEqual(record.Sources, want) {
		t.Errorf("sources = %v, want %v", record.Sources, want)
	}
}

func TestAggregateKeepsValidIMDBIDOverMalformed(t *testing.T) {
	llm := &fakeProvider{name: "llm", available: true, record: &Record{
		Title:  "The Matrix",
		IMDBID: "tt133",
	}}
	tmdbP := &fakeProvider{name: "tmdb", available: true, record: &Record{
		IMDBID: "tt0133093",
	}}
	agg := testAggregator(t, WithProviders(llm, tmdbP))

	record, err := agg.Aggregate(context.Background(), Request{Title: "The Matrix"})
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if record.IMDBID != "tt0133093" {
		t.Errorf("imdb id = %q, want malformed llm id displaced by valid tmdb id", record.IMDBID)
	}
}

func TestAggregateFirstValidIMDBIDSticks(t *testing.T) {
	llm := &fakeProvider{name: "llm", available: true, record: &Record{
		Title:  "The Matrix",
		IMDBID: "tt0000001",
	}}
	omdbP := &fakeProvider{name: "omdb", available: true, record: &Record{
		IMDBID: "tt9999999",
	}}
	agg := testAggregator(t, WithProviders(llm, omdbP))

	record, err := agg.Aggregate(context.Background(), Request{Title: "The Matrix"})
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if record.IMDBID != "tt0000001" {
		t.Errorf("imdb id = %q, want first valid id kept", record.IMDBID)
	}
}

func TestAggregateProviderFailureDegrades(t *testing.T) {
	llm := &fakeProvider{name: "llm", available: true, err: errors.New("upstream 500")}
	tmdbP := &fakeProvider{name: "tmdb", available: true, record: &Record{Title: "The Matrix"}}
	agg := testAggregator(t, WithProviders(llm, tmdbP))

	record, err := agg.Aggregate(context.Background(), Request{Title: "The Matrix"})
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if record.Title != "The Matrix" {
		t.Errorf("title = %q, want tmdb value", record.Title)
	}
	if want := []string{"tmdb"}; !reflect.DeepEqual(record.Sources, want) {
		t.Errorf("sources = %v, want %v", record.Sources, want)
	}
}

func TestAggregateSlowProviderAbandoned(t *testing.T) {
	slow := &fakeProvider{name: "llm", available: true, block: true}
	fast := &fakeProvider{name: "tmdb", available: true, record: &Record{Title: "The Matrix"}}
	agg := testAggregator(t,
		WithProviders(slow, fast),
		WithProviderTimeout(20*time.Millisecond),
	)

	start := time.Now()
	record, err := agg.Aggregate(context.Background(), Request{Title: "The Matrix"})
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("aggregate took %v, slow provider not abandoned", elapsed)
	}
	if record.Title != "The Matrix" {
		t.Errorf("title = %q, want fast provider value", record.Title)
	}
	if want := []string{"tmdb"}; !reflect.DeepEqual(record.Sources, want) {
		t.Errorf("sources = %v, want %v", record.Sources, want)
	}
}

func TestAggregateAllProvidersEmpty(t *testing.T) {
	llm := &fakeProvider{name: "llm", available: true, err: errors.New("down")}
	tmdbP := &fakeProvider{name: "tmdb", available: true, err: errors.New("down")}
	agg := testAggregator(t, WithProviders(llm, tmdbP))

	_, err := agg.Aggregate(context.Background(), Request{Title: "Obscure Film"})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("error = %v, want not-found marker", err)
	}
}

func TestAggregateSkipsUnavailableProviders(t *testing.T) {
	off := &fakeProvider{name: "llm", available: false, record: &Record{Title: "ignored"}}
	on := &fakeProvider{name: "tmdb", available: true, record: &Record{Title: "The Matrix"}}
	agg := testAggregator(t, WithProviders(off, on))

	record, err := agg.Aggregate(context.Background(), Request{Title: "The Matrix"})
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if off.calls != 0 {
		t.Errorf("unavailable provider called %d times", off.calls)
	}
	if record.Title != "The Matrix" {
		t.Errorf("title = %q", record.Title)
	}
}

func TestAggregateEmptyTitle(t *testing.T) {
	agg := testAggregator(t, WithProviders(&fakeProvider{name: "llm", available: true}))
	if _, err := agg.Aggregate(context.Background(), Request{Title: "  "}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want validation marker", err)
	}
}

func TestAggregateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	agg := testAggregator(t, WithProviders(&fakeProvider{name: "llm", available: true, block: true}))

	if _, err := agg.Aggregate(ctx, Request{Title: "The Matrix"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestAggregateRefetchesByDiscoveredID(t *testing.T) {
	tmdbP := &fakeProvider{name: "tmdb", available: true, record: &Record{
		Title:  "The Matrix",
		IMDBID: "tt0133093",
	}}
	omdbP := &fakeRefetchProvider{
		fakeProvider: fakeProvider{name: "omdb", available: true, err: errors.New("movie not found")},
		byID:         &Record{Rating: 8.7, Country: "United States"},
	}
	agg := testAggregator(t, WithProviders(tmdbP, omdbP))

	record, err := agg.Aggregate(context.Background(), Request{Title: "The Matrix", Year: 1999})
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if omdbP.refetches != 1 {
		t.Fatalf("refetches = %d, want 1", omdbP.refetches)
	}
	if omdbP.gotIMDBID != "tt0133093" {
		t.Errorf("refetch id = %q, want tt0133093", omdbP.gotIMDBID)
	}
	if record.Rating != 8.7 || record.Country != "United States" {
		t.Errorf("record = %+v, want refetched omdb fields merged", record)
	}
	if want := []string{"tmdb", "omdb"}; !reflect.DeepEqual(record.Sources, want) {
		t.Errorf("sources = %v, want %v", record.Sources, want)
	}
}

func TestAggregateNoRefetchWithoutID(t *testing.T) {
	tmdbP := &fakeProvider{name: "tmdb", available: true, record: &Record{Title: "The Matrix"}}
	omdbP := &fakeRefetchProvider{
		fakeProvider: fakeProvider{name: "omdb", available: true, err: errors.New("movie not found")},
		byID:         &Record{Rating: 8.7},
	}
	agg := testAggregator(t, WithProviders(tmdbP, omdbP))

	if _, err := agg.Aggregate(context.Background(), Request{Title: "The Matrix"}); err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if omdbP.refetches != 0 {
		t.Errorf("refetches = %d, want 0 without a discovered id", omdbP.refetches)
	}
}

func TestAggregateUsesResponseCache(t *testing.T) {
	provider := &fakeProvider{name: "llm", available: true, record: &Record{Title: "The Matrix", Rating: 8.7}}
	cache := newFakeCache()
	agg := testAggregator(t, WithProviders(provider), WithResponseCache(cache))
	req := Request{Title: "The Matrix", Year: 1999}

	first, err := agg.Aggregate(context.Background(), req)
	if err != nil {
		t.Fatalf("first Aggregate returned error: %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", provider.calls)
	}
	if cache.puts != 1 {
		t.Fatalf("cache puts = %d, want 1", cache.puts)
	}

	second, err := agg.Aggregate(context.Background(), req)
	if err != nil {
		t.Fatalf("second Aggregate returned error: %v", err)
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want cached result to skip the provider", provider.calls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached aggregate differs: %+v vs %+v", first, second)
	}
}

func TestAggregateDeterministic(t *testing.T) {
	build := func() *Aggregator {
		return testAggregator(t, WithProviders(
			&fakeProvider{name: "llm", available: true, record: &Record{Title: "A", Overview: "llm"}},
			&fakeProvider{name: "tmdb", available: true, record: &Record{Title: "B", Overview: "tmdb", IMDBID: "tt0000001"}},
			&fakeProvider{name: "omdb", available: true, record: &Record{Title: "C", Rating: 7.0}},
		))
	}
	req := Request{Title: "Anything", Year: 2000}

	first, err := build().Aggregate(context.Background(), req)
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	for range 10 {
		next, err := build().Aggregate(context.Background(), req)
		if err != nil {
			t.Fatalf("Aggregate returned error: %v", err)
		}
		if !reflect.DeepEqual(first, next) {
			t.Fatalf("aggregate not deterministic: %+v vs %+v", first, next)
		}
	}
}
