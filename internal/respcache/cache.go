// Package respcache is a content-addressed, TTL-bound disk cache of prior
// external-call results. Entries persist as one JSON record file per key with
// an in-memory hot layer in front. The cache is advisory: every failure
// degrades to a miss, never to an error that blocks the caller.
package respcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Entry is one persisted cache record
type Entry struct {
	Key        string    `json:"key"`
	Payload    string    `json:"payload"`
	CreatedAt  time.Time `json:"created_at"`
	TTLSeconds int       `json:"ttl_seconds"`
}

// Cache stores entries under dir, one file per key
type Cache struct {
	dir        string
	defaultTTL time.Duration
	hot        *gocache.Cache

	now func() time.Time
}

// Key derives the cache key from a normalized request fingerprint
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

// New creates a disk cache rooted at dir. defaultTTL applies to entries stored
// without an explicit TTL and to records whose stored TTL is missing.
func New(dir string, defaultTTL time.Duration) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{
		dir:        dir,
		defaultTTL: defaultTTL,
		hot:        gocache.New(defaultTTL, 2*defaultTTL),
		now:        time.Now,
	}, nil
}

// Get returns the cached payload for key, treating expired, unreadable, or
// corrupt entries as absent.
func (c *Cache) Get(key string) (string, bool) {
	if v, found := c.hot.Get(key); found {
		if payload, ok := v.(string); ok {
			return payload, true
		}
	}

	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return "", false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		log.Printf("⚠️  [CACHE] Corrupt entry %s, treating as miss: %v", key, err)
		os.Remove(c.path(key))
		return "", false
	}

	if c.expired(entry) {
		os.Remove(c.path(key))
		return "", false
	}

	// Re-warm the hot layer for the entry's remaining lifetime
	remaining := entry.CreatedAt.Add(c.ttlOf(entry)).Sub(c.now())
	if remaining > 0 {
		c.hot.Set(key, entry.Payload, remaining)
	}
	return entry.Payload, true
}

// Set stores a payload under key. ttl <= 0 uses the cache-wide default.
// Write failures are logged and swallowed: the cache must never block callers.
func (c *Cache) Set(key, payload string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	entry := Entry{
		Key:        key,
		Payload:    payload,
		CreatedAt:  c.now(),
		TTLSeconds: int(ttl.Seconds()),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Printf("⚠️  [CACHE] Failed to encode entry %s: %v", key, err)
		return
	}

	// Atomic replace so a crashed write never leaves a torn record
	tmp := c.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Printf("⚠️  [CACHE] Failed to write entry %s: %v", key, err)
		return
	}
	if err := os.Rename(tmp, c.path(key)); err != nil {
		log.Printf("⚠️  [CACHE] Failed to store entry %s: %v", key, err)
		os.Remove(tmp)
		return
	}

	c.hot.Set(key, payload, ttl)
}

// Delete removes the entry for key, if present
func (c *Cache) Delete(key string) {
	c.hot.Delete(key)
	os.Remove(c.path(key))
}

// Sweep proactively removes expired and unreadable entries to bound storage.
// Lazy expiry in Get keeps correctness without it; Sweep only reclaims disk.
func (c *Cache) Sweep() int {
	files, err := os.ReadDir(c.dir)
	if err != nil {
		log.Printf("⚠️  [CACHE] Sweep failed to list %s: %v", c.dir, err)
		return 0
	}

	removed := 0
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		path := filepath.Join(c.dir, f.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil || c.expired(entry) {
			if os.Remove(path) == nil {
				c.hot.Delete(entry.Key)
				removed++
			}
		}
	}

	if removed > 0 {
		log.Printf("🗑️  [CACHE] Sweep removed %d expired entries", removed)
	}
	return removed
}

func (c *Cache) expired(entry Entry) bool {
	return c.now().After(entry.CreatedAt.Add(c.ttlOf(entry)))
}

func (c *Cache) ttlOf(entry Entry) time.Duration {
	if entry.TTLSeconds <= 0 {
		return c.defaultTTL
	}
	return time.Duration(entry.TTLSeconds) * time.Second
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}
