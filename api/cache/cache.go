package cache

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	// DefaultTTL is the default time-to-live for cached entries
	DefaultTTL = 24 * time.Hour

	// DefaultDir is the default cache directory
	DefaultDir string

	mu         sync.RWMutex
	defaultTTL = DefaultTTL
)

// Entry represents a cached item
type Entry[T any] struct {
	Value     T
	CreatedAt time.Time
}

// Cache is a gob file cache scoped to a namespace directory
type Cache[T any] struct {
	dir string
	ttl time.Duration
}

func init() {
	cacheHome, err := os.UserCacheDir()
	if err != nil {
		DefaultDir = filepath.Join(os.TempDir(), "levels")
	} else {
		DefaultDir = filepath.Join(cacheHome, "levels")
	}
}

// New creates a cache for values of type T stored under DefaultDir/namespace
func New[T any](namespace string) *Cache[T] {
	mu.RLock()
	defer mu.RUnlock()
	return &Cache[T]{
		dir: filepath.Join(DefaultDir, normalizeKey(namespace)),
		ttl: defaultTTL,
	}
}

// Clear removes every cached entry of every namespace
func Clear() error {
	mu.RLock()
	defer mu.RUnlock()
	return os.RemoveAll(DefaultDir)
}

// SetTTL updates the TTL used by caches created afterwards
func SetTTL(d time.Duration) {
	mu.Lock()
	defer mu.Unlock()
	defaultTTL = d
}

// SetDir updates the root directory used by caches created afterwards
func SetDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	DefaultDir = dir
	return nil
}

// normalizeKey converts a cache key into a filesystem-safe format
func normalizeKey(key string) string {
	normalized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			r == '-' || r == '_' || r == '.' || r == '/' {
			return r
		}
		return '_'
	}, key)

	for strings.Contains(normalized, "..") {
		normalized = strings.ReplaceAll(normalized, "..", ".")
	}
	for strings.Contains(normalized, "//") {
		normalized = strings.ReplaceAll(normalized, "//", "/")
	}

	return strings.TrimPrefix(normalized, "/")
}

// GetOrSet retrieves a value from cache or computes and stores it.
// forceUpdate skips the lookup. A failed save still returns the computed value.
func (c *Cache[T]) GetOrSet(key string, fn func() (T, error), forceUpdate bool) (T, error) {
	path := filepath.Join(c.dir, normalizeKey(key)+".gob")

	if !forceUpdate {
		if entry, err := c.loadEntry(path); err == nil && time.Since(entry.CreatedAt) < c.ttl {
			return entry.Value, nil
		}
	}

	value, err := fn()
	if err != nil {
		var zero T
		return zero, err
	}

	entry := Entry[T]{
		Value:     value,
		CreatedAt: time.Now(),
	}
	if err := c.saveEntry(path, entry); err != nil {
		return value, err
	}

	return value, nil
}

// Delete removes a single entry
func (c *Cache[T]) Delete(key string) error {
	err := os.Remove(filepath.Join(c.dir, normalizeKey(key)+".gob"))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (c *Cache[T]) loadEntry(path string) (*Entry[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entry Entry[T]
	if err := gob.NewDecoder(f).Decode(&entry); err != nil {
		return nil, err
	}

	return &entry, nil
}

func (c *Cache[T]) saveEntry(path string, entry Entry[T]) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	// write to a temp file first so concurrent readers never see a partial entry
	tmp, err := os.CreateTemp(filepath.Dir(path), ".entry-*")
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(tmp).Encode(entry); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// SetTTL updates the cache TTL
func (c *Cache[T]) SetTTL(d time.Duration) {
	c.ttl = d
}

// Clear removes all entries of this cache
func (c *Cache[T]) Clear() error {
	return os.RemoveAll(c.dir)
}
