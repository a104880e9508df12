// Package cache stores analyzed programs keyed by the hash of their source
// content and the dialect they were analyzed under.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/panbanda/fortmap/pkg/analyzer/fixedform"
	"github.com/zeebo/blake3"
)

// Cache provides file-based caching for analysis results, optionally
// fronted by an in-memory LRU for long-running processes.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
	memory  *lru.Cache[string, *fixedform.Program]
}

// Entry represents a cached analysis result.
type Entry struct {
	Hash      string    `json:"hash"`
	Timestamp time.Time `json:"timestamp"`
	Data      []byte    `json:"data"`
}

// Option configures a Cache.
type Option func(*Cache) error

// WithMemory keeps up to entries programs in memory in front of the disk cache.
func WithMemory(entries int) Option {
	return func(c *Cache) error {
		if entries <= 0 {
			return nil
		}
		m, err := lru.New[string, *fixedform.Program](entries)
		if err != nil {
			return err
		}
		c.memory = m
		return nil
	}
}

// New creates a new cache instance. A disabled cache stores nothing.
func New(dir string, ttlHours int, enabled bool, opts ...Option) (*Cache, error) {
	if !enabled {
		return &Cache{enabled: false}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	c := &Cache{
		dir:     dir,
		ttl:     time.Duration(ttlHours) * time.Hour,
		enabled: true,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Enabled reports whether the cache stores anything.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Key identifies an analysis of content under dialect d.
func Key(content []byte, d *fixedform.Dialect) string {
	return HashBytes(content) + "-" + strconv.FormatUint(d.Fingerprint(), 16)
}

// Get retrieves a cached entry if it exists and is not expired.
func (c *Cache) Get(key string) ([]byte, bool) {
	if !c.enabled {
		return nil, false
	}

	path := c.keyPath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}

	if entry.Hash != key {
		return nil, false
	}

	if c.ttl > 0 && time.Since(entry.Timestamp) > c.ttl {
		os.Remove(path)
		return nil, false
	}

	return entry.Data, true
}

// Set stores data in the cache.
func (c *Cache) Set(key string, data []byte) error {
	if !c.enabled {
		return nil
	}

	entry := Entry{
		Hash:      key,
		Timestamp: time.Now(),
		Data:      data,
	}

	entryData, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return os.WriteFile(c.keyPath(key), entryData, 0600)
}

// storedProgram carries the source lines, which Program omits from JSON.
type storedProgram struct {
	Lines   []string           `json:"lines"`
	Program *fixedform.Program `json:"program"`
}

// GetProgram returns the program cached under key, relabeled with path.
func (c *Cache) GetProgram(key, path string) (*fixedform.Program, bool) {
	if !c.enabled {
		return nil, false
	}

	if c.memory != nil {
		if prog, ok := c.memory.Get(key); ok {
			return withPath(prog, path), true
		}
	}

	data, ok := c.Get(key)
	if !ok {
		return nil, false
	}
	var stored storedProgram
	if err := json.Unmarshal(data, &stored); err != nil || stored.Program == nil {
		return nil, false
	}
	stored.Program.Lines = stored.Lines

	if c.memory != nil {
		c.memory.Add(key, stored.Program)
	}
	return withPath(stored.Program, path), true
}

// SetProgram stores prog under key.
func (c *Cache) SetProgram(key string, prog *fixedform.Program) error {
	if !c.enabled {
		return nil
	}

	if c.memory != nil {
		c.memory.Add(key, prog)
	}

	data, err := json.Marshal(storedProgram{Lines: prog.Lines, Program: prog})
	if err != nil {
		return err
	}
	return c.Set(key, data)
}

// withPath returns a shallow copy so cached programs are never mutated.
func withPath(prog *fixedform.Program, path string) *fixedform.Program {
	cp := *prog
	cp.Path = path
	return &cp
}

// Invalidate removes a cache entry.
func (c *Cache) Invalidate(key string) error {
	if !c.enabled {
		return nil
	}
	if c.memory != nil {
		c.memory.Remove(key)
	}
	return os.Remove(c.keyPath(key))
}

// Clear removes all cache entries.
func (c *Cache) Clear() error {
	if !c.enabled {
		return nil
	}
	if c.memory != nil {
		c.memory.Purge()
	}
	return os.RemoveAll(c.dir)
}

// keyPath converts a key to a filesystem path.
func (c *Cache) keyPath(key string) string {
	hash := blake3.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(hash[:])+".json")
}

// Stats returns cache statistics.
type Stats struct {
	Entries       int           `json:"entries" toon:"entries"`
	TotalSize     int64         `json:"total_size" toon:"total_size"`
	MemoryEntries int           `json:"memory_entries" toon:"memory_entries"`
	OldestAge     time.Duration `json:"oldest_age" toon:"oldest_age"`
	NewestAge     time.Duration `json:"newest_age" toon:"newest_age"`
}

// GetStats returns statistics about the cache.
func (c *Cache) GetStats() (*Stats, error) {
	if !c.enabled {
		return &Stats{}, nil
	}

	stats := &Stats{}
	if c.memory != nil {
		stats.MemoryEntries = c.memory.Len()
	}
	var oldest, newest time.Time

	err := filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		stats.Entries++
		stats.TotalSize += info.Size()

		modTime := info.ModTime()
		if oldest.IsZero() || modTime.Before(oldest) {
			oldest = modTime
		}
		if newest.IsZero() || modTime.After(newest) {
			newest = modTime
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	if !oldest.IsZero() {
		stats.OldestAge = time.Since(oldest)
	}
	if !newest.IsZero() {
		stats.NewestAge = time.Since(newest)
	}

	return stats, nil
}
