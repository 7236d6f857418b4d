// Package cache stores model and reviewer responses keyed by the request
// that produced them, so re-running a benchmark does not pay for the same
// call twice.
package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/pario-ai/modelbench/pkg/cache/file"
	cachesqlite "github.com/pario-ai/modelbench/pkg/cache/sqlite"
	"github.com/pario-ai/modelbench/pkg/config"
	"github.com/pario-ai/modelbench/pkg/models"
)

// Store is a persistent response cache.
//
// Get never fails: a missing, expired or unreadable entry is a miss and the
// caller performs the live request instead.
type Store interface {
	Get(key string) (string, bool)
	Put(key, content string) error
	Stats() (models.CacheStats, error)
	Clear(expiredOnly bool) error
	Close() error
}

// Key derives a stable cache key from the parameters of a request. The
// parameters are sorted by name before hashing so map order is irrelevant,
// and every value participates so changing any of them yields a new key.
func Key(params map[string]string) string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	pairs := make([][2]string, len(names))
	for i, k := range names {
		pairs[i] = [2]string{k, params[k]}
	}
	data, _ := json.Marshal(pairs)

	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}

// Open builds the store selected by cfg. It returns a nil Store when caching
// is disabled.
func Open(cfg *config.Config, logger *slog.Logger) (Store, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	switch cfg.Cache.Backend {
	case "", "file":
		dir := cfg.Cache.Dir
		if dir == "" {
			dir = "cache"
		}
		s, err := file.New(dir, file.WithTTL(cfg.Cache.TTL), file.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		dbPath := cfg.DBPath
		if dbPath == "" {
			dbPath = filepath.Join(cfg.Cache.Dir, "cache.db")
		}
		c, err := cachesqlite.New(dbPath, cfg.Cache.TTL)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
