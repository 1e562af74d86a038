package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	outputDir  string
	workDir    string
	logDir     string
	cacheDir   string
}

// setupCLITestEnv builds an isolated config under a throwaway HOME. Every
// external tool points at a nonexistent path and every provider key is
// cleared, so runs degrade deterministically instead of touching whatever
// the host has installed.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	home := filepath.Join(base, "home")
	t.Setenv("HOME", home)
	for _, key := range []string{
		"SUBLIFT_OUTPUT_DIR",
		"FFMPEG_PATH",
		"FFPROBE_PATH",
		"CCEXTRACTOR_PATH",
		"TESSERACT_CMD",
		"OCR_FRAME_INTERVAL",
		"OCR_LANGUAGE",
		"DEEPSEEK_API_KEY",
		"OPENROUTER_API_KEY",
		"TMDB_API_KEY",
		"OMDB_API_KEY",
		"OPENSUBTITLES_API_KEY",
		"OPENSUBTITLES_USER_TOKEN",
	} {
		t.Setenv(key, "")
	}

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(home, ".config", "sublift", "config.toml"),
		outputDir:  filepath.Join(base, "subtitles"),
		workDir:    filepath.Join(base, "work"),
		logDir:     filepath.Join(base, "logs"),
		cacheDir:   filepath.Join(base, "cache"),
	}
	if err := os.MkdirAll(filepath.Dir(env.configPath), 0o755); err != nil {
		t.Fatalf("prepare config dir: %v", err)
	}

	missing := filepath.Join(base, "missing-bin")
	writeTestConfig(t, env, map[string]string{
		"ffmpeg":      filepath.Join(missing, "ffmpeg"),
		"ffprobe":     filepath.Join(missing, "ffprobe"),
		"ccextractor": filepath.Join(missing, "ccextractor"),
		"tesseract":   filepath.Join(missing, "tesseract"),
	})
	return env
}

func writeTestConfig(t *testing.T, env *cliTestEnv, tools map[string]string) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
output_dir = %q
work_dir = %q
log_dir = %q
cache_dir = %q

[tools]
ffmpeg = %q
ffprobe = %q
ccextractor = %q
tesseract = %q
`,
		env.outputDir, env.workDir, env.logDir, env.cacheDir,
		tools["ffmpeg"], tools["ffprobe"], tools["ccextractor"], tools["tesseract"],
	)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()

	var stdout, stderr strings.Builder
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeStubProbe installs a fake ffprobe that answers with a fixed JSON
// payload regardless of arguments.
func writeStubProbe(t *testing.T, dir, payload string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create stub dir: %v", err)
	}
	path := filepath.Join(dir, "ffprobe")
	script := "#!/bin/sh\ncat <<'JSON'\n" + payload + "\nJSON\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("install ffprobe stub: %v", err)
	}
	return path
}

func writeVideoFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create video dir: %v", err)
	}
	if err := os.WriteFile(path, []byte("not a real container"), 0o644); err != nil {
		t.Fatalf("seed video: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("output %q does not contain %q", output, substr)
	}
}
