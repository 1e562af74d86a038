package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFprobePath returns the ffprobe command Sublift will execute.
//
// FFmpeg builds install ffmpeg and ffprobe side by side, so when ffprobe is
// left at its bare default but ffmpeg resolves to a concrete file, the
// sibling ffprobe in the same directory is preferred over whatever PATH
// happens to carry. A configured ffprobe path always wins.
func ResolveFFprobePath(ffprobeCommand, ffmpegCommand string) string {
	ffprobe := strings.TrimSpace(ffprobeCommand)
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	if strings.ContainsRune(ffprobe, os.PathSeparator) {
		return ffprobe
	}

	ffmpeg := strings.TrimSpace(ffmpegCommand)
	if ffmpeg != "" {
		if resolved, err := exec.LookPath(ffmpeg); err == nil {
			if candidate, ok := siblingCandidate(resolved, ffprobe); ok {
				if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
					return candidate
				}
			}
		}
	}

	return ffprobe
}

func siblingCandidate(anchorPath, name string) (string, bool) {
	if anchorPath == "" || name == "" {
		return "", false
	}
	if runtime.GOOS == "windows" && !strings.HasSuffix(name, ".exe") {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(anchorPath), name), true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
