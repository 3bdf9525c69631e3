// Package cache is a local sqlite-backed cache of backend query results.
// Entries are scoped to a user so that switching accounts never serves
// another account's data.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Cache stores JSON-encoded query results.
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the cache database at dbPath.
func Open(ctx context.Context, dbPath string) (*Cache, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping cache: %w", err)
	}

	c := &Cache{db: db, now: time.Now}
	if err := c.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return c, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS queries (
		scope      TEXT NOT NULL,
		key        TEXT NOT NULL,
		payload    BLOB NOT NULL,
		fetched_at INTEGER NOT NULL,
		PRIMARY KEY (scope, key)
	);
	CREATE INDEX IF NOT EXISTS idx_queries_fetched ON queries(fetched_at);
	`
	_, err := c.db.ExecContext(ctx, schema)
	return err
}

// Get decodes the entry for (scope, key) into out if it is younger than
// maxAge. It reports whether a fresh entry was found.
func (c *Cache) Get(ctx context.Context, scope, key string, maxAge time.Duration, out any) (bool, error) {
	var payload []byte
	var fetched int64
	err := c.db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM queries WHERE scope = ? AND key = ?`,
		scope, key,
	).Scan(&payload, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if c.now().Sub(time.Unix(0, fetched)) > maxAge {
		return false, nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		// Shape changed between versions; treat as a miss.
		return false, nil
	}
	return true, nil
}

// Put stores v under (scope, key).
func (c *Cache) Put(ctx context.Context, scope, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO queries (scope, key, payload, fetched_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(scope, key) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		scope, key, payload, c.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Invalidate drops every entry in scope whose key starts with prefix.
// Mutations call this so the next read refetches.
func (c *Cache) Invalidate(ctx context.Context, scope, prefix string) error {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	_, err := c.db.ExecContext(ctx,
		`DELETE FROM queries WHERE scope = ? AND key LIKE ? ESCAPE '\'`,
		scope, escaped+"%",
	)
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return nil
}

// Purge drops every entry for every scope.
func (c *Cache) Purge(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM queries`); err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}
	return nil
}

// Fetch is a read-through helper: it returns the cached value for
// (scope, key) when fresh, otherwise calls fn and stores its result. A nil
// cache or a non-positive ttl always calls fn. Cache errors are logged and
// never fail the fetch.
func Fetch[T any](ctx context.Context, c *Cache, scope, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if c == nil || ttl <= 0 {
		return fn(ctx)
	}

	var cached T
	hit, err := c.Get(ctx, scope, key, ttl, &cached)
	if err != nil {
		log.Printf("⚠️  Cache read failed for %s: %v", key, err)
	}
	if hit {
		return cached, nil
	}

	v, err := fn(ctx)
	if err != nil {
		return v, err
	}
	if err := c.Put(ctx, scope, key, v); err != nil {
		log.Printf("⚠️  Cache write failed for %s: %v", key, err)
	}
	return v, nil
}
