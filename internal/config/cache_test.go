package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetCacheConfigDefaults(t *testing.T) {
	cfg := GetCacheConfig()

	assert.Equal(t, defaultFetchLRUSize, cfg.FetchLRUSize)
	assert.Equal(t, defaultFetchLRUTTLMinutes, cfg.FetchLRUTTLMinutes)
	assert.Equal(t, defaultBatchSize, cfg.BatchSize)
	assert.Equal(t, defaultMaxBatchRetries, cfg.MaxBatchRetries)
	assert.True(t, cfg.EnableFetchCache)
	assert.Equal(t, 10*time.Minute, cfg.GetFetchLRUTTL())
}

func TestGetCacheConfigFromEnv(t *testing.T) {
	t.Setenv("CACHE_FETCH_LRU_SIZE", "42")
	t.Setenv("CACHE_FETCH_LRU_TTL_MINUTES", "3")
	t.Setenv("CACHE_BATCH_SIZE", "10")
	t.Setenv("CACHE_MAX_BATCH_RETRIES", "not-a-number")
	t.Setenv("CACHE_ENABLE_FETCH", "false")

	cfg := GetCacheConfig()

	assert.Equal(t, 42, cfg.FetchLRUSize)
	assert.Equal(t, 3*time.Minute, cfg.GetFetchLRUTTL())
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, defaultMaxBatchRetries, cfg.MaxBatchRetries)
	assert.False(t, cfg.EnableFetchCache)
}
