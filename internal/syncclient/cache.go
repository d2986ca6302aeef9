package syncclient

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Cache is the client-side local store: a durable primary directory and a
// fallback directory. Both are advisory; the server copy stays the system of
// record for cross-device convergence. Write failures (quota, permissions)
// are logged and tolerated, never raised.
type Cache struct {
	durableDir  string
	fallbackDir string
	log         *zap.Logger
}

// NewCache constructs a cache over the two directories.
func NewCache(durableDir, fallbackDir string, log *zap.Logger) *Cache {
	return &Cache{durableDir: durableDir, fallbackDir: fallbackDir, log: log}
}

// cacheFileName flattens a namespaced key into a safe file name.
func cacheFileName(key string) string {
	r := strings.NewReplacer(":", "_", "/", "_", "\\", "_")
	return r.Replace(key) + ".json"
}

func (c *Cache) durablePath(key string) string {
	return filepath.Join(c.durableDir, cacheFileName(key))
}

func (c *Cache) fallbackPath(key string) string {
	return filepath.Join(c.fallbackDir, cacheFileName(key))
}

// Read returns the cached document for a key. The durable store is consulted
// first; a hit in the fallback store is opportunistically migrated into the
// durable one.
func (c *Cache) Read(key string) json.RawMessage {
	if b, err := os.ReadFile(c.durablePath(key)); err == nil && json.Valid(b) {
		return b
	}
	b, err := os.ReadFile(c.fallbackPath(key))
	if err != nil || !json.Valid(b) {
		return nil
	}
	c.WriteDurable(key, b)
	return b
}

// WriteDurable persists to the primary store, best-effort.
func (c *Cache) WriteDurable(key string, doc json.RawMessage) {
	c.write(c.durableDir, c.durablePath(key), doc)
}

// WriteFallback persists to the fallback store, best-effort.
func (c *Cache) WriteFallback(key string, doc json.RawMessage) {
	c.write(c.fallbackDir, c.fallbackPath(key), doc)
}

// WriteBoth persists to both stores, best-effort.
func (c *Cache) WriteBoth(key string, doc json.RawMessage) {
	c.WriteDurable(key, doc)
	c.WriteFallback(key, doc)
}

func (c *Cache) write(dir, path string, doc json.RawMessage) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		c.log.Warn("cache mkdir failed", zap.String("dir", dir), zap.Error(err))
		return
	}
	if err := os.WriteFile(path, doc, 0o600); err != nil {
		c.log.Warn("cache write failed", zap.String("path", path), zap.Error(err))
	}
}
