package provider

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/bbernstein/chargefinder/internal/cache"
	"github.com/bbernstein/chargefinder/internal/models"
)

// cachedProvider serves repeated queries from a FetchCache. Failed fetches
// are not cached.
type cachedProvider struct {
	Provider
	cache *cache.FetchCache
}

// WithCache wraps p so identical nearby queries within the cache TTL reuse
// the previous response. A nil cache returns p unchanged.
func WithCache(p Provider, c *cache.FetchCache) Provider {
	if c == nil {
		return p
	}
	return &cachedProvider{Provider: p, cache: c}
}

func (c *cachedProvider) FetchNearby(ctx context.Context, q Query) ([]models.RawRecord, error) {
	key := cache.FetchKey(c.Name(), q.Latitude, q.Longitude, q.RadiusKm, q.MaxResults)
	if records, ok := c.cache.Get(key); ok {
		log.Debug().Str("provider", c.Name()).Str("key", key).Msg("Fetch cache HIT")
		return records, nil
	}

	records, err := c.Provider.FetchNearby(ctx, q)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, records)
	return records, nil
}
