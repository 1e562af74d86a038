package opensubtitles

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestCacheRoundtrip(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewCache(dir, nil)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	entry := CacheEntry{
		FileID:      42,
		Language:    "en",
		FileName:    "movie.en.srt",
		DownloadURL: "https://example.com/payload",
	}
	path, err := cache.Store(entry, []byte("hello"))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if path != filepath.Join(dir, "42.srt") {
		t.Errorf("payload path = %q", path)
	}

	result, ok, err := cache.Load(42)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if string(result.Data) != "hello" {
		t.Errorf("payload = %q", result.Data)
	}
	if result.Entry.Language != "en" || result.Entry.FileName != "movie.en.srt" {
		t.Errorf("entry = %+v", result.Entry)
	}
	if result.Entry.StoredAt.IsZero() {
		t.Error("Store should stamp StoredAt")
	}
	if result.Path != path {
		t.Errorf("Path = %q, want %q", result.Path, path)
	}

	converted := result.DownloadResult()
	if string(converted.Data) != "hello" || converted.FileName != "movie.en.srt" {
		t.Errorf("DownloadResult = %+v", converted)
	}
	if converted.DownloadURL != "https://example.com/payload" {
		t.Errorf("DownloadURL = %q", converted.DownloadURL)
	}
}

func TestCacheLoadMiss(t *testing.T) {
	cache, err := NewCache(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	if _, ok, err := cache.Load(99); err != nil || ok {
		t.Fatalf("Load on empty cache = (ok=%v, err=%v), want miss", ok, err)
	}
}

func TestCacheHealsCorruptEntry(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewCache(dir, nil)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "7.json"), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "7.srt"), []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok, err := cache.Load(7); err != nil || ok {
		t.Fatalf("Load over corrupt entry = (ok=%v, err=%v), want miss", ok, err)
	}
	for _, name := range []string{"7.json", "7.srt"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("%s should be cleared after a corrupt read", name)
		}
	}
}

func TestCacheClearsOrphanPayload(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewCache(dir, nil)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "9.srt"), []byte("orphan"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok, err := cache.Load(9); err != nil || ok {
		t.Fatalf("Load over orphan payload = (ok=%v, err=%v), want miss", ok, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "9.srt")); !os.IsNotExist(err) {
		t.Error("orphan payload should be cleared")
	}
}

func TestCachingClientReusesStoredPayload(t *testing.T) {
	negotiations := 0
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/download":
			negotiations++
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"link":"`+server.URL+`/payload","file_name":"heat.en.srt","language":"en"}`)
		case "/payload":
			io.WriteString(w, "payload-bytes")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	cache, err := NewCache(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	client := NewCachingClient(newTestClient(t, Config{BaseURL: server.URL}), cache, nil)

	first, err := client.Download(context.Background(), 42, DownloadOptions{})
	if err != nil {
		t.Fatalf("first Download: %v", err)
	}
	if negotiations != 1 {
		t.Fatalf("first download should hit the network once, saw %d", negotiations)
	}

	second, err := client.Download(context.Background(), 42, DownloadOptions{})
	if err != nil {
		t.Fatalf("second Download: %v", err)
	}
	if negotiations != 1 {
		t.Errorf("second download should come from cache, server saw %d negotiations", negotiations)
	}
	if string(second.Data) != string(first.Data) {
		t.Errorf("cached payload = %q, want %q", second.Data, first.Data)
	}
	if second.FileName != "heat.en.srt" || second.Language != "en" {
		t.Errorf("cached metadata = %+v", second)
	}
}
