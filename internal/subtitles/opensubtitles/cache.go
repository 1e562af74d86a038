package opensubtitles

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"log/slog"
)

// CacheEntry captures metadata about a cached OpenSubtitles download.
type CacheEntry struct {
	FileID      int64     `json:"file_id"`
	Language    string    `json:"language"`
	FileName    string    `json:"file_name"`
	DownloadURL string    `json:"download_url"`
	StoredAt    time.Time `json:"stored_at"`
}

// normalized trims the textual fields and stamps the entry.
func (e CacheEntry) normalized() CacheEntry {
	e.Language = strings.TrimSpace(e.Language)
	e.FileName = strings.TrimSpace(e.FileName)
	e.DownloadURL = strings.TrimSpace(e.DownloadURL)
	e.StoredAt = time.Now().UTC()
	return e
}

// CacheResult represents a cache hit including the subtitle payload.
type CacheResult struct {
	Entry CacheEntry
	Data  []byte
	Path  string
}

// DownloadResult converts the hit into the shape Download returns.
func (r CacheResult) DownloadResult() DownloadResult {
	return DownloadResult{
		Data:        slices.Clone(r.Data),
		FileName:    r.Entry.FileName,
		Language:    r.Entry.Language,
		DownloadURL: r.Entry.DownloadURL,
	}
}

// Cache keeps downloaded subtitle payloads on disk so repeated runs against
// the same movie do not burn the OpenSubtitles download quota. Each file id
// owns a payload (<id>.srt) and a sidecar entry (<id>.json).
type Cache struct {
	dir    string
	logger *slog.Logger
}

// NewCache initialises a cache rooted at dir.
func NewCache(dir string, logger *slog.Logger) (*Cache, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("opensubtitles: cache directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("opensubtitles: create cache dir: %w", err)
	}
	return &Cache{dir: dir, logger: logger}, nil
}

// Load returns the cached download for fileID. A missing, corrupt, or
// half-written pair counts as a miss and is cleared so the next download
// heals it.
func (c *Cache) Load(fileID int64) (CacheResult, bool, error) {
	if c == nil {
		return CacheResult{}, false, errors.New("opensubtitles: cache is nil")
	}
	if fileID <= 0 {
		return CacheResult{}, false, errors.New("opensubtitles: invalid file id")
	}
	entryPath, payloadPath := c.paths(fileID)

	rawEntry, err := os.ReadFile(entryPath)
	if errors.Is(err, os.ErrNotExist) {
		c.discard(fileID)
		return CacheResult{}, false, nil
	}
	if err != nil {
		return CacheResult{}, false, fmt.Errorf("opensubtitles: read cache entry: %w", err)
	}
	var entry CacheEntry
	if err := json.Unmarshal(rawEntry, &entry); err != nil {
		c.discard(fileID)
		return CacheResult{}, false, nil
	}

	data, err := os.ReadFile(payloadPath)
	if errors.Is(err, os.ErrNotExist) {
		c.discard(fileID)
		return CacheResult{}, false, nil
	}
	if err != nil {
		return CacheResult{}, false, fmt.Errorf("opensubtitles: read cache payload: %w", err)
	}

	if entry.FileID == 0 {
		entry.FileID = fileID
	}
	return CacheResult{Entry: entry, Data: data, Path: payloadPath}, true, nil
}

// Store writes a downloaded payload and its entry, returning the payload
// path.
func (c *Cache) Store(entry CacheEntry, data []byte) (string, error) {
	if c == nil {
		return "", errors.New("opensubtitles: cache is nil")
	}
	if entry.FileID <= 0 {
		return "", errors.New("opensubtitles: invalid file id")
	}
	entry = entry.normalized()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", fmt.Errorf("opensubtitles: ensure cache dir: %w", err)
	}
	entryPath, payloadPath := c.paths(entry.FileID)
	rawEntry, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("opensubtitles: encode cache entry: %w", err)
	}
	if err := replaceFile(payloadPath, data); err != nil {
		return "", err
	}
	if err := replaceFile(entryPath, rawEntry); err != nil {
		return "", err
	}
	if c.logger != nil {
		c.logger.Debug("opensubtitles cache stored",
			slog.Int64("file_id", entry.FileID),
			slog.String("path", payloadPath),
		)
	}
	return payloadPath, nil
}

// paths returns the entry and payload locations for a file id.
func (c *Cache) paths(fileID int64) (entryPath, payloadPath string) {
	stem := filepath.Join(c.dir, strconv.FormatInt(fileID, 10))
	return stem + ".json", stem + ".srt"
}

// discard removes whatever half of a cache pair is on disk.
func (c *Cache) discard(fileID int64) {
	entryPath, payloadPath := c.paths(fileID)
	_ = os.Remove(entryPath)
	_ = os.Remove(payloadPath)
}

// replaceFile writes data next to path and renames it into place so readers
// never observe a partial file.
func replaceFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("opensubtitles: write %s: %w", filepath.Base(tmp), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("opensubtitles: replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
