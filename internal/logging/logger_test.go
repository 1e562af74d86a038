package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"sublift/internal/services"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"fatal", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestConsoleHandlerComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar, false))

	NewComponentLogger(logger, "subtitles").Info("extraction complete", Int("cues", 42))

	line := buf.String()
	if !strings.Contains(line, "subtitles: extraction complete") {
		t.Errorf("expected component prefix in output, got %q", line)
	}
	if !strings.Contains(line, "cues=42") {
		t.Errorf("expected k=v attribute in output, got %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Errorf("component attribute should be folded into the prefix, got %q", line)
	}
}

func TestConsoleHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar, false))

	logger.Info("probing", String("path", "/movies/My Movie.mkv"))

	if !strings.Contains(buf.String(), `path="/movies/My Movie.mkv"`) {
		t.Errorf("expected quoted value for string with spaces, got %q", buf.String())
	}
}

func TestConsoleHandlerGroupKeys(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar, false))

	logger.WithGroup("provider").With(String("name", "tmdb")).Info("lookup", Int("hits", 3))

	line := buf.String()
	if !strings.Contains(line, "provider.name=tmdb") {
		t.Errorf("expected group prefix on logger attrs, got %q", line)
	}
	if !strings.Contains(line, "provider.hits=3") {
		t.Errorf("expected group prefix on record attrs, got %q", line)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar, false))

	ctx := services.WithVideo(context.Background(), "/movies/example.mkv")
	ctx = services.WithStage(ctx, "extract")
	WithContext(ctx, logger).Info("working")

	line := buf.String()
	if !strings.Contains(line, `video="/movies/example.mkv"`) && !strings.Contains(line, "video=/movies/example.mkv") {
		t.Errorf("expected video field, got %q", line)
	}
	if !strings.Contains(line, "stage=extract") {
		t.Errorf("expected stage field, got %q", line)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar, false))

	WarnWithContext(logger, "provider slow", "provider_timeout")

	line := buf.String()
	for _, key := range []string{FieldEventType, FieldErrorHint, FieldImpact} {
		if !strings.Contains(line, key+"=") {
			t.Errorf("expected %s field to be injected, got %q", key, line)
		}
	}
}
