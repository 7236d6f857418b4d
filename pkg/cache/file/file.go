// Package file implements a response cache with one JSON document per key.
package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pario-ai/modelbench/pkg/models"
)

const ext = ".json"

// Store keeps cache entries as <root>/<key>.json.
type Store struct {
	root   string
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// Option customizes a Store during construction.
type Option func(*Store)

// WithTTL expires entries older than ttl. Zero keeps entries forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithClock overrides the clock used for timestamps and expiry.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.now = clock }
}

// WithLogger sets the logger used to report unreadable entries.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string, opts ...Option) (*Store, error) {
	s := &Store{
		root:   dir,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: ensure dir: %w", err)
	}
	return s, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.root, key+ext)
}

// Get returns the cached content for key.
func (s *Store) Get(key string) (string, bool) {
	entry, err := s.read(key)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("cache entry unreadable, treating as miss", "key", key, "error", err)
		}
		s.misses.Add(1)
		return "", false
	}
	if entry.Content == "" || s.expired(entry) {
		s.misses.Add(1)
		return "", false
	}
	s.hits.Add(1)
	return entry.Content, true
}

func (s *Store) read(key string) (models.CacheEntry, error) {
	var entry models.CacheEntry
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return entry, err
	}
	if err := json.Unmarshal(data, &entry); err != nil {
		return entry, fmt.Errorf("decode %s: %w", s.path(key), err)
	}
	return entry, nil
}

func (s *Store) expired(entry models.CacheEntry) bool {
	if s.ttl <= 0 {
		return false
	}
	written := time.Unix(0, int64(entry.Timestamp*float64(time.Second)))
	return s.now().Sub(written) > s.ttl
}

// Put stores content under key. The entry is written to a temporary file in
// the cache directory and renamed into place, so a concurrent or later Get
// never observes a partial document.
func (s *Store) Put(key, content string) error {
	entry := models.CacheEntry{
		Key:       key,
		Content:   content,
		Timestamp: float64(s.now().UnixNano()) / float64(time.Second),
	}
	data, err := json.MarshalIndent(entry, "", "    ")
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}

	tmp, err := os.CreateTemp(s.root, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("cache put: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cache put: %w", err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Stats returns cache performance metrics.
func (s *Store) Stats() (models.CacheStats, error) {
	names, err := s.entries()
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return models.CacheStats{
		Entries: int64(len(names)),
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
	}, nil
}

// Clear removes cache entries. If expiredOnly is true, only expired or
// unreadable entries are removed.
func (s *Store) Clear(expiredOnly bool) error {
	names, err := s.entries()
	if err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	for _, name := range names {
		if expiredOnly {
			entry, err := s.read(strings.TrimSuffix(name, ext))
			if err == nil && !s.expired(entry) {
				continue
			}
		}
		if err := os.Remove(filepath.Join(s.root, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("cache clear: %w", err)
		}
	}
	return nil
}

// Close is a no-op; it satisfies the cache.Store interface.
func (s *Store) Close() error { return nil }

func (s *Store) entries() ([]string, error) {
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range dirEntries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}
