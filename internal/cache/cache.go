// Package cache provides a durable sqlite cache for upstream API
// responses. repodata.json payloads run to tens of megabytes, so
// re-downloading them for every invocation is wasteful; entries are
// reused until their TTL lapses.
package cache

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema
const currentSchemaVersion = 0

// ErrMiss is returned by Get when no fresh entry exists for a URL.
var ErrMiss = errors.New("cache miss")

// Cache stores raw API response bodies keyed by URL.
// Uses SQLite with WAL mode for concurrent read access.
type Cache struct {
	db *sql.DB
}

// Entry is one cached response.
type Entry struct {
	ID        string
	URL       string
	Body      []byte
	Digest    string
	FetchedAt time.Time
}

// Stats summarizes cache contents.
type Stats struct {
	Entries   int       `json:"entries"`
	TotalSize int64     `json:"total_size_bytes"`
	Oldest    time.Time `json:"oldest,omitempty"`
	Newest    time.Time `json:"newest,omitempty"`
}

// Open creates or opens a cache database at the given path.
// Applies required pragmas and the schema automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Get returns the cached entry for url if it was fetched within ttl.
// Returns ErrMiss when absent or stale. A ttl of zero never matches,
// which effectively disables reads without touching stored rows.
func (c *Cache) Get(ctx context.Context, url string, ttl time.Duration) (*Entry, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT id, url, body, digest, fetched_at FROM responses WHERE url = ?`, url)

	var e Entry
	var fetchedAt int64
	if err := row.Scan(&e.ID, &e.URL, &e.Body, &e.Digest, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("query cache: %w", err)
	}
	e.FetchedAt = time.Unix(fetchedAt, 0).UTC()

	if ttl <= 0 || time.Since(e.FetchedAt) > ttl {
		return nil, ErrMiss
	}
	return &e, nil
}

// Put stores (or replaces) the response body for url.
func (c *Cache) Put(ctx context.Context, url string, body []byte, digest string) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO responses (id, url, body, digest, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			body = excluded.body,
			digest = excluded.digest,
			fetched_at = excluded.fetched_at`,
		uuid.NewString(), url, body, digest, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("store response for %s: %w", url, err)
	}
	return nil
}

// Prune removes entries fetched before the cutoff and returns the
// number of rows deleted.
func (c *Cache) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).Unix()
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM responses WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	return n, nil
}

// ReadStats reports entry count, total body size and fetch-time range.
func (c *Cache) ReadStats(ctx context.Context) (Stats, error) {
	var s Stats
	var oldest, newest sql.NullInt64
	var size sql.NullInt64
	err := c.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(LENGTH(body)), 0), MIN(fetched_at), MAX(fetched_at)
		FROM responses`).Scan(&s.Entries, &size, &oldest, &newest)
	if err != nil {
		return Stats{}, fmt.Errorf("read cache stats: %w", err)
	}
	s.TotalSize = size.Int64
	if oldest.Valid {
		s.Oldest = time.Unix(oldest.Int64, 0).UTC()
	}
	if newest.Valid {
		s.Newest = time.Unix(newest.Int64, 0).UTC()
	}
	return s, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and records the
// schema version. Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}
