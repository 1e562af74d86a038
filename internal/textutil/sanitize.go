package textutil

import (
	"path/filepath"
	"strings"
)

// mapReserved rewrites characters that are unsafe in file names on at least
// one supported filesystem. Path separators become dashes so titles like
// "Face/Off" stay readable; the rest are dropped.
func mapReserved(r rune) rune {
	switch r {
	case '/', '\\':
		return '-'
	case ':', '*', '?', '"', '<', '>', '|':
		return -1
	}
	if r < ' ' {
		return -1
	}
	return r
}

// SanitizeFileName converts an artifact name into a filesystem-safe form.
// Reserved characters are dropped or dashed and whitespace runs collapse to
// a single underscore, so "Spirited Away_en.srt" becomes
// "Spirited_Away_en.srt". Leading dots are trimmed so the result is never a
// hidden file.
func SanitizeFileName(name string) string {
	cleaned := strings.Join(strings.Fields(strings.Map(mapReserved, name)), "_")
	return strings.Trim(cleaned, "._-")
}

// Stem returns the final path element without its extension.
func Stem(path string) string {
	base := filepath.Base(strings.TrimSpace(path))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
