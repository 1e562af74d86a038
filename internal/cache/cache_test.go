package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"sublift/internal/config"
)

func newTestStore(t *testing.T, ttlDays int) *Store {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Metadata.CacheTTLDays = ttlDays

	store, err := Open(&cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func backdate(t *testing.T, store *Store, provider, key string, age time.Duration) {
	t.Helper()
	stale := time.Now().UTC().Add(-age).Format(time.RFC3339Nano)
	if _, err := store.db.Exec(
		"UPDATE responses SET created_at = ? WHERE provider = ? AND cache_key = ?",
		stale, provider, key); err != nil {
		t.Fatalf("backdate entry: %v", err)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t, 7)
	ctx := context.Background()

	if _, found, err := store.Get(ctx, "tmdb", "the matrix|1999|"); err != nil || found {
		t.Fatalf("empty cache Get = found %v, err %v", found, err)
	}

	payload := []byte(`{"title":"The Matrix"}`)
	if err := store.Put(ctx, "tmdb", "the matrix|1999|", payload); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, found, err := store.Get(ctx, "tmdb", "the matrix|1999|")
	if err != nil || !found {
		t.Fatalf("Get after Put = found %v, err %v", found, err)
	}
	if string(got) != string(payload) {
		t.Errorf("payload = %s, want %s", got, payload)
	}

	count, err := store.Count(ctx)
	if err != nil || count != 1 {
		t.Errorf("cache holds %d entries (err %v), want 1", count, err)
	}
}

func TestPutReplacesExisting(t *testing.T) {
	store := newTestStore(t, 7)
	ctx := context.Background()

	if err := store.Put(ctx, "omdb", "k", []byte("first")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, "omdb", "k", []byte("second")); err != nil {
		t.Fatalf("Put replace: %v", err)
	}

	got, found, err := store.Get(ctx, "omdb", "k")
	if err != nil || !found {
		t.Fatalf("Get = found %v, err %v", found, err)
	}
	if string(got) != "second" {
		t.Errorf("payload = %s, want the replacement", got)
	}
	if count, _ := store.Count(ctx); count != 1 {
		t.Errorf("cache holds %d entries, want 1", count)
	}
}

func TestExpiredEntryIsMiss(t *testing.T) {
	store := newTestStore(t, 7)
	ctx := context.Background()

	if err := store.Put(ctx, "llm", "old", []byte("{}")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	backdate(t, store, "llm", "old", 8*24*time.Hour)

	if _, found, err := store.Get(ctx, "llm", "old"); err != nil || found {
		t.Fatalf("expired Get = found %v, err %v", found, err)
	}
	if count, _ := store.Count(ctx); count != 0 {
		t.Errorf("expired entry not evicted, count = %d", count)
	}
}

func TestPruneRemovesExpired(t *testing.T) {
	store := newTestStore(t, 7)
	ctx := context.Background()

	if err := store.Put(ctx, "tmdb", "fresh", []byte("{}")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, "tmdb", "stale", []byte("{}")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	backdate(t, store, "tmdb", "stale", 30*24*time.Hour)

	removed, err := store.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("pruned %d entries, want 1", removed)
	}
	if count, _ := store.Count(ctx); count != 1 {
		t.Errorf("cache holds %d entries after prune, want 1", count)
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()

	if err := store.Put(ctx, "tmdb", "ancient", []byte("{}")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	backdate(t, store, "tmdb", "ancient", 365*24*time.Hour)

	if _, found, err := store.Get(ctx, "tmdb", "ancient"); err != nil || !found {
		t.Fatalf("Get = found %v, err %v, want hit with zero ttl", found, err)
	}
	if removed, err := store.Prune(ctx); err != nil || removed != 0 {
		t.Errorf("Prune = %d, %v, want no-op with zero ttl", removed, err)
	}
}

func TestBlankKeysRejected(t *testing.T) {
	store := newTestStore(t, 7)
	ctx := context.Background()

	if _, found, err := store.Get(ctx, "", "k"); err != nil || found {
		t.Errorf("blank provider Get = found %v, err %v, want silent miss", found, err)
	}
	if err := store.Put(ctx, "tmdb", " ", []byte("{}")); err == nil {
		t.Error("blank key Put succeeded, want error")
	}
	if err := store.Put(ctx, "tmdb", "k", nil); err == nil {
		t.Error("empty payload Put succeeded, want error")
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	ctx := context.Background()

	store, err := Open(&cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Put(ctx, "omdb", "persist", []byte("kept")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(&cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, found, err := reopened.Get(ctx, "omdb", "persist")
	if err != nil || !found {
		t.Fatalf("Get after reopen = found %v, err %v", found, err)
	}
	if string(got) != "kept" {
		t.Errorf("payload = %s, want kept", got)
	}
}
