// Package caching provides the two shared caches of the bridge: the on-disk
// image cache behind the proxy and the in-memory marker icon cache.
package caching

import (
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for the cache index
	"github.com/opentravelmate/bridge-go/internal/infrastructure/observability/logging"
)

var validKey = regexp.MustCompile(`^[a-z0-9]{1,64}$`)

// KeyForURL derives the cache key for a source URL, constrained to the
// cache's allowed charset and length.
func KeyForURL(sourceURL string) string {
	sum := md5.Sum([]byte(sourceURL))
	return hex.EncodeToString(sum[:])
}

// DiskCache is a bounded on-disk byte cache with least-recently-used
// eviction. Entry bytes live as files under dir; the index (size and last
// access per key) lives in a SQLite database next to them. After repeated
// index failures the cache disables itself and every lookup misses, so
// requests fall through to direct fetch instead of hanging.
type DiskCache struct {
	mu       sync.Mutex
	db       *sql.DB
	dir      string
	maxBytes int64
	failures int
	disabled bool
	logger   *logging.ChanneledLogger
}

const maxIndexFailures = 3

// NewDiskCache opens or creates a disk cache rooted at dir.
func NewDiskCache(dir string, maxBytes int64, logger *logging.ChanneledLogger) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open cache index: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS entries (
		key TEXT PRIMARY KEY,
		size INTEGER NOT NULL,
		last_access INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache index: %w", err)
	}

	return &DiskCache{
		db:       db,
		dir:      dir,
		maxBytes: maxBytes,
		logger:   logger,
	}, nil
}

// Close releases the index database.
func (c *DiskCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.Close()
}

// Disabled reports whether the cache shut itself off after persistent
// index failures.
func (c *DiskCache) Disabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disabled
}

// Get returns the cached bytes for key and promotes the entry. A disabled
// cache always misses.
func (c *DiskCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disabled || !validKey.MatchString(key) {
		return nil, false
	}

	var size int64
	err := c.db.QueryRow(`SELECT size FROM entries WHERE key = ?`, key).Scan(&size)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		c.recordFailure("index read", err)
		return nil, false
	}

	data, err := os.ReadFile(c.entryPath(key))
	if err != nil {
		// Index and file disagree; drop the stale row.
		c.db.Exec(`DELETE FROM entries WHERE key = ?`, key)
		return nil, false
	}

	if _, err := c.db.Exec(`UPDATE entries SET last_access = ? WHERE key = ?`, time.Now().UnixNano(), key); err != nil {
		c.recordFailure("index promote", err)
	}
	return data, true
}

// Put stores data under key, evicting least-recently-used entries until the
// total size fits the bound. The entry is committed only once the bytes are
// fully on disk.
func (c *DiskCache) Put(key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disabled {
		return fmt.Errorf("disk cache disabled")
	}
	if !validKey.MatchString(key) {
		return fmt.Errorf("invalid cache key %q", key)
	}

	tmp, err := os.CreateTemp(c.dir, "put-*")
	if err != nil {
		return fmt.Errorf("failed to stage cache entry: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := os.Rename(tmpName, c.entryPath(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to commit cache entry: %w", err)
	}

	if _, err := c.db.Exec(
		`INSERT INTO entries (key, size, last_access) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET size = excluded.size, last_access = excluded.last_access`,
		key, int64(len(data)), time.Now().UnixNano(),
	); err != nil {
		c.recordFailure("index write", err)
		return fmt.Errorf("failed to index cache entry: %w", err)
	}

	c.evictLocked()
	return nil
}

func (c *DiskCache) evictLocked() {
	var total int64
	if err := c.db.QueryRow(`SELECT COALESCE(SUM(size), 0) FROM entries`).Scan(&total); err != nil {
		c.recordFailure("index size scan", err)
		return
	}

	for total > c.maxBytes {
		var key string
		var size int64
		err := c.db.QueryRow(`SELECT key, size FROM entries ORDER BY last_access ASC LIMIT 1`).Scan(&key, &size)
		if err != nil {
			return
		}
		if _, err := c.db.Exec(`DELETE FROM entries WHERE key = ?`, key); err != nil {
			c.recordFailure("index evict", err)
			return
		}
		os.Remove(c.entryPath(key))
		total -= size
		if c.logger != nil {
			c.logger.Cache().Debug("Evicted cache entry", "key", key, "size", size)
		}
	}
}

func (c *DiskCache) recordFailure(op string, err error) {
	c.failures++
	if c.logger != nil {
		c.logger.Cache().Warn("Disk cache failure", "op", op, "error", err.Error(), "failures", c.failures)
	}
	if c.failures >= maxIndexFailures && !c.disabled {
		c.disabled = true
		if c.logger != nil {
			c.logger.Cache().Error("Disk cache disabled after persistent failures", "failures", c.failures)
		}
	}
}

func (c *DiskCache) entryPath(key string) string {
	return filepath.Join(c.dir, key)
}
