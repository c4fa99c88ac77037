package analyze

import (
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/pborman/uuid"
	"github.com/spf13/afero"
)

// cacheFormatVersion is the version of the on-disk cache document. Readers
// ignore documents with a different version and start from scratch.
const cacheFormatVersion = 1

// flushDebounce is how long after the last Set the cache waits before
// writing itself to disk. Bursts of analysis completions coalesce into a
// single write.
const flushDebounce = 750 * time.Millisecond

// cacheDocument is the on-disk format of the results cache.
type cacheDocument struct {
	Version int                   `json:"version"`
	Entries map[string]CacheEntry `json:"entries"`
}

// Cache is a JSON-file-backed fingerprint to analysis result map. It is a
// performance optimization and not a source of truth: losing it merely
// means analyzing files again.
type Cache struct {
	fs   afero.Fs
	path string

	mu     sync.Mutex
	loaded bool
	dirty  bool
	doc    cacheDocument
	timer  *time.Timer
}

// NewCache returns a results cache persisted at path on appfs. Nothing is
// read from the disk until the first use.
func NewCache(appfs afero.Fs, path string) *Cache {
	return &Cache{
		fs:   appfs,
		path: path,
		doc: cacheDocument{
			Version: cacheFormatVersion,
			Entries: map[string]CacheEntry{},
		},
	}
}

// Load reads the cache file from disk. It is idempotent, only the first
// call does any work. A missing or corrupt cache file results in an empty
// cache, never in an error.
func (c *Cache) Load() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadLocked()
}

func (c *Cache) loadLocked() {
	if c.loaded {
		return
	}
	c.loaded = true

	contents, err := afero.ReadFile(c.fs, c.path)
	if err != nil {
		return
	}

	var doc cacheDocument
	if err := json.Unmarshal(contents, &doc); err != nil {
		log.Printf("Analysis cache at %s was corrupt, starting fresh: %s",
			c.path, err)
		return
	}

	if doc.Version != cacheFormatVersion || doc.Entries == nil {
		return
	}

	c.doc = doc
}

// Get returns a copy of the entry stored for `key` or nil when there is
// none.
func (c *Cache) Get(key string) *CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadLocked()

	entry, ok := c.doc.Entries[key]
	if !ok {
		return nil
	}

	return &entry
}

// Set stores `entry` under `key`, overwriting any previous entry. The write
// to disk is debounced, it happens flushDebounce after the last Set unless
// Flush is called explicitly before that.
func (c *Cache) Set(key string, entry CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadLocked()

	c.doc.Entries[key] = entry
	c.dirty = true

	// A single timer handle is reused so that at most one flush is ever
	// scheduled.
	if c.timer == nil {
		c.timer = time.AfterFunc(flushDebounce, func() {
			if err := c.Flush(); err != nil {
				log.Printf("Error flushing analysis cache: %s", err)
			}
		})
	} else {
		c.timer.Reset(flushDebounce)
	}
}

// Flush writes the cache document to disk. The document is first written to
// a temporary file in the same directory and then renamed over the real
// one, so a crash mid-write never leaves a corrupt cache file behind. Flush
// is a no-op when there is nothing new to write.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	contents, err := json.MarshalIndent(&c.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding analysis cache: %w", err)
	}

	tmpPath := filepath.Join(
		filepath.Dir(c.path),
		fmt.Sprintf(".%s.%s.tmp", filepath.Base(c.path), uuid.New()),
	)

	if err := afero.WriteFile(c.fs, tmpPath, contents, 0644); err != nil {
		return fmt.Errorf("writing analysis cache temp file: %w", err)
	}

	if err := c.fs.Rename(tmpPath, c.path); err != nil {
		_ = c.fs.Remove(tmpPath)
		return fmt.Errorf("renaming analysis cache into place: %w", err)
	}

	c.dirty = false
	return nil
}

// Len returns the number of entries currently in the cache.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadLocked()

	return len(c.doc.Entries)
}
