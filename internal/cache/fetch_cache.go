package cache

import (
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bbernstein/chargefinder/internal/config"
	"github.com/bbernstein/chargefinder/internal/models"
)

// clock allows tests to control expiry
type clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// fetchEntry wraps cached provider records with their expiry
type fetchEntry struct {
	Records   []models.RawRecord
	ExpiresAt time.Time
}

// FetchCache is a size-bounded LRU of provider responses with a per-entry TTL.
type FetchCache struct {
	lru    *lru.Cache[string, *fetchEntry]
	ttl    time.Duration
	clock  clock
	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewFetchCache(cfg *config.CacheConfig) (*FetchCache, error) {
	if cfg == nil {
		cfg = config.GetCacheConfig()
	}
	return newFetchCacheWithClock(cfg.FetchLRUSize, cfg.GetFetchLRUTTL(), realClock{})
}

func newFetchCacheWithClock(size int, ttl time.Duration, c clock) (*FetchCache, error) {
	cache, err := lru.New[string, *fetchEntry](size)
	if err != nil {
		return nil, fmt.Errorf("creating LRU cache: %w", err)
	}
	return &FetchCache{
		lru:   cache,
		ttl:   ttl,
		clock: c,
	}, nil
}

// FetchKey identifies a provider query. Coordinates are quantized to three
// decimals (about 100 m) so nearby requests share an entry.
func FetchKey(provider string, lat, lon, radiusKm float64, maxResults int) string {
	return fmt.Sprintf("%s:%.3f:%.3f:%.1f:%d", provider, lat, lon, radiusKm, maxResults)
}

// Get returns a copy of the cached records for key.
func (c *FetchCache) Get(key string) ([]models.RawRecord, bool) {
	entry, ok := c.lru.Get(key)
	if ok && c.clock.Now().Before(entry.ExpiresAt) {
		c.hits.Add(1)
		records := make([]models.RawRecord, len(entry.Records))
		copy(records, entry.Records)
		return records, true
	}
	if ok {
		c.lru.Remove(key)
	}
	c.misses.Add(1)
	return nil, false
}

func (c *FetchCache) Set(key string, records []models.RawRecord) {
	stored := make([]models.RawRecord, len(records))
	copy(stored, records)
	c.lru.Add(key, &fetchEntry{
		Records:   stored,
		ExpiresAt: c.clock.Now().Add(c.ttl),
	})
}

// Stats returns cache hit and miss counters
func (c *FetchCache) Stats() map[string]uint64 {
	return map[string]uint64{
		"hits":   c.hits.Load(),
		"misses": c.misses.Load(),
	}
}

func (c *FetchCache) Len() int {
	return c.lru.Len()
}

// Clear removes all entries
func (c *FetchCache) Clear() {
	c.lru.Purge()
}
