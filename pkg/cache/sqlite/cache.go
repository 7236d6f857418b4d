package sqlite

import (
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pario-ai/modelbench/pkg/models"
)

// Cache is an exact-match response cache backed by SQLite.
type Cache struct {
	db     *sql.DB
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

const createCacheTable = `
CREATE TABLE IF NOT EXISTS cache_entries (
	cache_key TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	ttl_seconds INTEGER NOT NULL
);
`

// New creates a Cache with the given database path. A zero ttl keeps
// entries until they are cleared explicitly.
func New(dbPath string, ttl time.Duration) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	// Parallel reviewers share the handle; a single connection serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Cache{db: db, ttl: ttl}, nil
}

// Get retrieves a cached response. Missing, expired and empty entries are misses.
func (c *Cache) Get(key string) (string, bool) {
	var content string
	var createdAt time.Time
	var ttlSeconds int64

	err := c.db.QueryRow(
		`SELECT content, created_at, ttl_seconds FROM cache_entries WHERE cache_key = ?`,
		key,
	).Scan(&content, &createdAt, &ttlSeconds)

	if err != nil || content == "" {
		c.misses.Add(1)
		return "", false
	}

	if ttlSeconds > 0 && time.Since(createdAt) > time.Duration(ttlSeconds)*time.Second {
		c.misses.Add(1)
		return "", false
	}

	c.hits.Add(1)
	return content, true
}

// Put stores a response in the cache.
func (c *Cache) Put(key, content string) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO cache_entries (cache_key, content, created_at, ttl_seconds)
		 VALUES (?, ?, ?, ?)`,
		key, content, time.Now().UTC(), int64(c.ttl.Seconds()),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Stats returns cache performance metrics.
func (c *Cache) Stats() (models.CacheStats, error) {
	var count int64
	err := c.db.QueryRow(`SELECT COUNT(*) FROM cache_entries`).Scan(&count)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return models.CacheStats{
		Entries: count,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}, nil
}

// Clear removes cache entries. If expiredOnly is true, only expired entries are removed.
func (c *Cache) Clear(expiredOnly bool) error {
	if !expiredOnly {
		if _, err := c.db.Exec(`DELETE FROM cache_entries`); err != nil {
			return fmt.Errorf("cache clear: %w", err)
		}
		return nil
	}

	rows, err := c.db.Query(`SELECT cache_key, created_at, ttl_seconds FROM cache_entries WHERE ttl_seconds > 0`)
	if err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	var expired []string
	for rows.Next() {
		var key string
		var createdAt time.Time
		var ttlSeconds int64
		if err := rows.Scan(&key, &createdAt, &ttlSeconds); err != nil {
			rows.Close()
			return fmt.Errorf("cache clear: %w", err)
		}
		if time.Since(createdAt) > time.Duration(ttlSeconds)*time.Second {
			expired = append(expired, key)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}

	for _, key := range expired {
		if _, err := c.db.Exec(`DELETE FROM cache_entries WHERE cache_key = ?`, key); err != nil {
			return fmt.Errorf("cache clear: %w", err)
		}
	}
	return nil
}

// Close releases the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}
