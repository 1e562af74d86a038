package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"sublift/internal/deps"
	"sublift/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("FFmpeg", statusError, "not available", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "FFmpeg:", "[ERROR] not available")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("FFmpeg", statusOK, "Ready", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestResultLine(t *testing.T) {
	passing := preflight.Result{Name: "TMDB", Passed: true, Detail: "Not configured"}
	if got := resultLine(passing, statusWarn, false); !strings.Contains(got, "[OK] Not configured") {
		t.Fatalf("expected OK line for passing result, got %q", got)
	}

	failing := preflight.Result{Name: "OpenSubtitles", Detail: "Missing API key"}
	if got := resultLine(failing, statusWarn, false); !strings.Contains(got, "[WARN] Missing API key") {
		t.Fatalf("expected WARN line for failing result, got %q", got)
	}
	if got := resultLine(failing, statusError, false); !strings.Contains(got, "[ERROR]") {
		t.Fatalf("expected ERROR line with error severity, got %q", got)
	}
}

func TestToolLines(t *testing.T) {
	tools := []deps.Status{
		{Name: "FFmpeg", Available: false},
		{Name: "FFprobe", Command: "ffprobe", Available: true},
		{Name: "CCExtractor", Optional: true, Available: false, Detail: "binary not found"},
		{Name: "Tesseract", Command: "tesseract", Available: true, Version: "tesseract 5.3.0"},
	}
	lines := toolLines(tools, false)
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], "[ERROR] not available") {
		t.Fatalf("expected error detail in first line, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[OK] Ready (command: ffprobe)") {
		t.Fatalf("expected ready detail in second line, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "[WARN] binary not found (optional)") {
		t.Fatalf("expected optional warn in third line, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "[OK] Ready (command: tesseract, tesseract 5.3.0)") {
		t.Fatalf("expected version detail in fourth line, got %q", lines[3])
	}
	if !strings.Contains(lines[4], "Missing tools:") || !strings.Contains(lines[4], "FFmpeg") {
		t.Fatalf("expected missing tools summary, got %q", lines[4])
	}
	if strings.Contains(lines[4], "CCExtractor") {
		t.Fatalf("optional tools do not belong in the missing summary, got %q", lines[4])
	}
}

func TestRenderSectionHeader(t *testing.T) {
	lines := renderSectionHeader("Tools", false)
	if len(lines) != 2 {
		t.Fatalf("expected header and rule, got %d lines", len(lines))
	}
	if lines[0] != "== Tools ==" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != strings.Repeat("-", len(lines[0])) {
		t.Fatalf("rule length mismatch: %q", lines[1])
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatal("expected non-file writer to disable color")
	}
}
