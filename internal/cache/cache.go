// Package cache is a TTL response cache for collaborator answers. Entries
// are held in a bounded LRU index and snapshotted to disk so cached quotes
// survive restarts. Every operation is fail-soft: a cache problem degrades
// to a miss, never to a request failure.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
)

const snapshotFile = "cache.json"

// Entry pairs a serialized payload with its storage time. Expiry is judged
// at read time against the caller's TTL.
type Entry struct {
	Data     json.RawMessage `json:"data"`
	StoredAt time.Time       `json:"timestamp"`
}

// Cache is a thread-safe TTL cache with file snapshot persistence.
type Cache struct {
	index *lru.Cache[string, Entry]

	snapshotPath string        // empty = no persistence
	saveMu       sync.Mutex    // guards file writes
	saveCh       chan struct{} // debounce channel
	doneCh       chan struct{}
	closeOnce    sync.Once

	now func() time.Time
}

// New creates a cache with at most maxEntries entries. If dataDir is
// non-empty, entries are snapshotted to a JSON file there and reloaded on
// startup.
func New(maxEntries int, dataDir string) (*Cache, error) {
	index, err := lru.New[string, Entry](maxEntries)
	if err != nil {
		return nil, err
	}
	c := &Cache{
		index:  index,
		saveCh: make(chan struct{}, 1),
		doneCh: make(chan struct{}),
		now:    time.Now,
	}

	if dataDir != "" {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			log.Warn().Err(err).Str("dir", dataDir).Msg("Cannot create data dir, cache persistence disabled")
		} else {
			c.snapshotPath = filepath.Join(dataDir, snapshotFile)
		}
	}

	if c.snapshotPath != "" {
		c.loadSnapshot()
		go c.saveLoop()
	}

	return c, nil
}

// Key builds a cache key from a prefix and discriminating parts.
func Key(prefix string, parts ...string) string {
	return prefix + ":" + strings.Join(parts, ":")
}

// Get looks up key and, if the entry is younger than ttl, unmarshals its
// payload into out. Missing, expired, or unreadable entries are misses.
func (c *Cache) Get(key string, ttl time.Duration, out any) bool {
	entry, ok := c.index.Get(key)
	if !ok {
		return false
	}
	if c.now().Sub(entry.StoredAt) > ttl {
		c.index.Remove(key)
		return false
	}
	if err := json.Unmarshal(entry.Data, out); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Dropping unreadable cache entry")
		c.index.Remove(key)
		return false
	}
	return true
}

// Set stores value under key with the current time. Serialization failures
// are logged and swallowed.
func (c *Cache) Set(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cannot serialize cache value")
		return
	}
	c.index.Add(key, Entry{Data: data, StoredAt: c.now()})
	c.requestSave()
}

// Len returns the number of live entries, expired or not.
func (c *Cache) Len() int {
	return c.index.Len()
}

// Close stops the save goroutine and flushes a final snapshot.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		close(c.doneCh)
		if c.snapshotPath != "" {
			c.saveSnapshot()
		}
	})
}

// requestSave signals the background goroutine to persist entries.
// Non-blocking: rapid writes coalesce into one disk flush.
func (c *Cache) requestSave() {
	if c.snapshotPath == "" {
		return
	}
	select {
	case c.saveCh <- struct{}{}:
	default:
		// Already pending
	}
}

func (c *Cache) saveLoop() {
	for {
		select {
		case <-c.doneCh:
			return
		case <-c.saveCh:
			time.Sleep(500 * time.Millisecond) // debounce
			c.saveSnapshot()
		}
	}
}

func (c *Cache) saveSnapshot() {
	snap := make(map[string]Entry, c.index.Len())
	for _, k := range c.index.Keys() {
		if e, ok := c.index.Peek(k); ok {
			snap[k] = e
		}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal cache snapshot")
		return
	}

	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	tmp := c.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		log.Error().Err(err).Str("path", tmp).Msg("Failed to write cache snapshot tmp")
		return
	}
	if err := os.Rename(tmp, c.snapshotPath); err != nil {
		log.Error().Err(err).Str("path", c.snapshotPath).Msg("Failed to rename cache snapshot")
		return
	}
}

func (c *Cache) loadSnapshot() {
	data, err := os.ReadFile(c.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		log.Warn().Err(err).Str("path", c.snapshotPath).Msg("Failed to read cache snapshot")
		return
	}

	var snap map[string]Entry
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Error().Err(err).Str("path", c.snapshotPath).Msg("Failed to parse cache snapshot, starting empty")
		return
	}
	for k, e := range snap {
		c.index.Add(k, e)
	}
	log.Info().Int("entries", len(snap)).Str("path", c.snapshotPath).Msg("Cache snapshot loaded")
}
