// Package cache provides an in-process TTL cache for grounded answers.
//
// Entries expire after a fixed duration and are also bounded in number, with
// least-recently-used eviction when the bound is hit. The cache is a pure
// performance layer: a miss is always safe.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultTTL is how long a cached answer stays valid.
	DefaultTTL = 30 * time.Minute

	// DefaultSize bounds the number of cached answers.
	DefaultSize = 1024
)

// Key derives the cache key for a question. Keys are case-insensitive over
// the trimmed question text so that trivially re-phrased casing hits the
// same entry. Two distinct questions collide only on a SHA-256 collision.
func Key(question string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(question))))
	return "rag:" + hex.EncodeToString(sum[:])
}

// ResponseCache stores generated answers keyed by normalized question.
//
// ResponseCache is safe for concurrent use by multiple goroutines.
type ResponseCache struct {
	lru    *expirable.LRU[string, string]
	logger *slog.Logger
}

// New creates a ResponseCache. A non-positive ttl or size falls back to the
// defaults. logger may be nil.
func New(size int, ttl time.Duration, logger *slog.Logger) *ResponseCache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResponseCache{
		lru:    expirable.NewLRU[string, string](size, nil, ttl),
		logger: logger,
	}
}

// Get returns the cached answer for key, if present and not expired.
func (c *ResponseCache) Get(key string) (string, bool) {
	answer, ok := c.lru.Get(key)
	if ok {
		c.logger.Debug("cache hit", "key", key)
	}
	return answer, ok
}

// Set stores an answer under key, replacing any previous entry.
func (c *ResponseCache) Set(key, answer string) {
	c.lru.Add(key, answer)
}

// Len returns the number of live entries.
func (c *ResponseCache) Len() int {
	return c.lru.Len()
}
