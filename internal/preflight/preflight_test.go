package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"sublift/internal/config"
)

func stubServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL
}

func minimalConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.CacheDir = t.TempDir()
	cfg.LLM.APIKey = ""
	cfg.TMDB.APIKey = ""
	cfg.OMDB.APIKey = ""
	cfg.OpenSubtitles.Enabled = false
	return cfg
}

func TestCheckDirectoryAccess(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "plain.txt")
	if err := os.WriteFile(filePath, []byte("x"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	cases := map[string]struct {
		path string
		want bool
	}{
		"writable directory": {path: t.TempDir(), want: true},
		"missing path":       {path: filepath.Join(t.TempDir(), "nope"), want: false},
		"plain file":         {path: filePath, want: false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			result := CheckDirectoryAccess("Output directory", tc.path)
			if result.Passed != tc.want {
				t.Errorf("Passed = %v (%s), want %v", result.Passed, result.Detail, tc.want)
			}
			if result.Detail == "" {
				t.Error("detail should never be empty")
			}
		})
	}
}

func TestCheckTMDB(t *testing.T) {
	base := stubServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/configuration" {
			http.NotFound(w, r)
			return
		}
		switch r.URL.Query().Get("api_key") {
		case "good-key":
			w.WriteHeader(http.StatusOK)
		case "grumpy":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})

	t.Run("valid key", func(t *testing.T) {
		result := CheckTMDB(context.Background(), base, "good-key")
		if !result.Passed {
			t.Fatalf("check failed: %s", result.Detail)
		}
	})
	t.Run("rejected key", func(t *testing.T) {
		result := CheckTMDB(context.Background(), base, "bad-key")
		if result.Passed {
			t.Fatal("want failure for rejected key")
		}
		if !strings.Contains(result.Detail, "401") {
			t.Errorf("detail = %q, want the status code mentioned", result.Detail)
		}
	})
	t.Run("server error", func(t *testing.T) {
		if result := CheckTMDB(context.Background(), base, "grumpy"); result.Passed {
			t.Fatal("want failure on server error")
		}
	})
	t.Run("no key", func(t *testing.T) {
		if result := CheckTMDB(context.Background(), base, "   "); result.Passed {
			t.Fatal("want failure without a key")
		}
	})
}

func TestCheckOMDB(t *testing.T) {
	base := stubServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apikey") != "good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	if result := CheckOMDB(context.Background(), base, "good-key"); !result.Passed {
		t.Errorf("check failed: %s", result.Detail)
	}
	if result := CheckOMDB(context.Background(), base, "other"); result.Passed {
		t.Error("want failure for rejected key")
	}
	if result := CheckOMDB(context.Background(), base, ""); result.Passed {
		t.Error("want failure without a key")
	}
}

func TestCheckOpenSubtitles(t *testing.T) {
	base := stubServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/infos/formats" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("User-Agent") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.Header.Get("Api-Key") != "good-key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	if result := CheckOpenSubtitles(context.Background(), base, "good-key", "sublift test"); !result.Passed {
		t.Errorf("check failed: %s", result.Detail)
	}
	if result := CheckOpenSubtitles(context.Background(), base, "good-key", ""); !result.Passed {
		t.Errorf("default user agent not applied: %s", result.Detail)
	}
	if result := CheckOpenSubtitles(context.Background(), base, "wrong", "sublift test"); result.Passed {
		t.Error("want failure for rejected key")
	}
	if result := CheckOpenSubtitles(context.Background(), base, "", "sublift test"); result.Passed {
		t.Error("want failure without a key")
	}
}

func TestRunAllNilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatalf("got %+v, want nil", results)
	}
}

func TestRunAllChecksDirectoriesOnly(t *testing.T) {
	cfg := minimalConfig(t)

	results := RunAll(context.Background(), &cfg)
	if len(results) != 3 {
		t.Fatalf("got %d results, want the 3 directory checks", len(results))
	}
	for _, result := range results {
		if !result.Passed {
			t.Errorf("%s failed: %s", result.Name, result.Detail)
		}
	}
}

func TestRunAllCoversConfiguredProviders(t *testing.T) {
	base := stubServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	cfg := minimalConfig(t)
	cfg.TMDB.APIKey = "test"
	cfg.TMDB.BaseURL = base

	results := RunAll(context.Background(), &cfg)
	idx := slices.IndexFunc(results, func(r Result) bool { return r.Name == "TMDB" })
	if idx < 0 {
		t.Fatalf("TMDB missing from %+v", results)
	}
	if !results[idx].Passed {
		t.Errorf("TMDB failed: %s", results[idx].Detail)
	}
}

func TestCheckSystemDepsListsPipelineTools(t *testing.T) {
	cfg := config.Default()
	statuses := CheckSystemDeps(context.Background(), &cfg)

	names := make(map[string]bool, len(statuses))
	for _, status := range statuses {
		names[status.Name] = true
	}
	for _, want := range []string{"FFmpeg", "FFprobe", "CCExtractor", "Tesseract"} {
		if !names[want] {
			t.Errorf("expected %s in system deps, got %#v", want, statuses)
		}
	}
}

func TestCheckSystemDepsTesseractOptionalWhenOCRDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.OCR.Enabled = false
	statuses := CheckSystemDeps(context.Background(), &cfg)
	for _, status := range statuses {
		if status.Name == "Tesseract" && !status.Optional {
			t.Fatal("expected tesseract to be optional when OCR is disabled")
		}
	}

	cfg.OCR.Enabled = true
	statuses = CheckSystemDeps(context.Background(), &cfg)
	for _, status := range statuses {
		if status.Name == "Tesseract" && status.Optional {
			t.Fatal("expected tesseract to be required when OCR is enabled")
		}
	}
}
