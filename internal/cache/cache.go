package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/arifsetiawan/gambot/internal/genai"
)

// Cache memoizes generation results by fingerprint. Completed entries are
// served without touching the compute function; concurrent misses on the
// same key collapse into one computation. Failed computations are never
// published, so a later caller retries.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]genai.Result
	flight  singleflight.Group
	ttl     time.Duration // zero keeps entries for the process lifetime
}

func New(ttl time.Duration) *Cache {
	return &Cache{entries: make(map[string]genai.Result), ttl: ttl}
}

// Key derives a deterministic fingerprint from the given parts.
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

// GetOrCompute returns the cached result for key, or runs compute to
// produce it. At most one compute runs per key at any time; waiters share
// the winner's result or error.
func (c *Cache) GetOrCompute(key string, compute func() (genai.Result, error)) (genai.Result, error) {
	if res, ok := c.lookup(key); ok {
		return res, nil
	}

	v, err, _ := c.flight.Do(key, func() (any, error) {
		// someone may have published while we queued for the flight
		if res, ok := c.lookup(key); ok {
			return res, nil
		}

		res, err := compute()
		if err != nil {
			return genai.Result{}, err
		}

		if res.ProducedAt.IsZero() {
			res.ProducedAt = time.Now()
		}

		c.mu.Lock()
		c.entries[key] = res
		c.mu.Unlock()

		return res, nil
	})
	if err != nil {
		return genai.Result{}, err
	}

	return v.(genai.Result), nil
}

func (c *Cache) lookup(key string) (genai.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res, ok := c.entries[key]
	if !ok {
		return genai.Result{}, false
	}

	if c.ttl > 0 && time.Since(res.ProducedAt) > c.ttl {
		return genai.Result{}, false
	}

	return res, true
}

// Len returns the number of published entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Sweep drops entries past their TTL. A no-op when no TTL is set.
// Eviction only touches completed entries, so in-flight deduplication
// is unaffected.
func (c *Cache) Sweep() int {
	if c.ttl <= 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, res := range c.entries {
		if time.Since(res.ProducedAt) > c.ttl {
			delete(c.entries, key)
			removed++
		}
	}

	return removed
}
