// Package cache persists metadata provider responses in SQLite so repeat
// runs over the same library do not hammer the provider APIs.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"sublift/internal/config"
)

// Store is a TTL-bounded response cache backed by SQLite. A zero TTL keeps
// entries forever.
type Store struct {
	db   *sql.DB
	path string
	ttl  time.Duration
}

// Open initializes or connects to the response cache database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.CacheDir, "metadata.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, ttl: ttlFromConfig(cfg)}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func ttlFromConfig(cfg *config.Config) time.Duration {
	days := cfg.Metadata.CacheTTLDays
	if days <= 0 {
		return 0
	}
	return time.Duration(days) * 24 * time.Hour
}

func (s *Store) ensureSchema(ctx context.Context) error {
	const schema = `CREATE TABLE IF NOT EXISTS responses (
        provider TEXT NOT NULL,
        cache_key TEXT NOT NULL,
        payload BLOB NOT NULL,
        created_at TEXT NOT NULL,
        PRIMARY KEY (provider, cache_key)
    )`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure responses table: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path reports the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Get returns the cached payload for a provider and key. Expired entries
// are deleted and reported as misses.
func (s *Store) Get(ctx context.Context, provider, key string) ([]byte, bool, error) {
	provider, key = strings.TrimSpace(provider), strings.TrimSpace(key)
	if provider == "" || key == "" {
		return nil, false, nil
	}

	var payload []byte
	var createdAt string
	row := s.db.QueryRowContext(ctx,
		"SELECT payload, created_at FROM responses WHERE provider = ? AND cache_key = ?",
		provider, key)
	if err := row.Scan(&payload, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read cache entry: %w", err)
	}

	if s.expired(createdAt) {
		if _, err := s.db.ExecContext(ctx,
			"DELETE FROM responses WHERE provider = ? AND cache_key = ?",
			provider, key); err != nil {
			return nil, false, fmt.Errorf("evict expired entry: %w", err)
		}
		return nil, false, nil
	}
	return payload, true, nil
}

// Put inserts or replaces the cached payload for a provider and key.
func (s *Store) Put(ctx context.Context, provider, key string, payload []byte) error {
	provider, key = strings.TrimSpace(provider), strings.TrimSpace(key)
	if provider == "" || key == "" {
		return errors.New("cache entry needs a provider and key")
	}
	if len(payload) == 0 {
		return errors.New("cache entry needs a payload")
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO responses (provider, cache_key, payload, created_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(provider, cache_key) DO UPDATE SET
             payload = excluded.payload,
             created_at = excluded.created_at`,
		provider, key, payload, timestamp)
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Prune deletes expired entries and reports how many were removed.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-s.ttl).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, "DELETE FROM responses WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count pruned rows: %w", err)
	}
	return removed, nil
}

// Count reports the number of cached responses, expired entries included.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM responses")
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return count, nil
}

func (s *Store) expired(createdAt string) bool {
	if s.ttl <= 0 {
		return false
	}
	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return true
	}
	return time.Since(created) > s.ttl
}
