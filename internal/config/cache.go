package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// CacheConfig holds all cache-related configuration
type CacheConfig struct {
	// Provider fetch LRU settings
	FetchLRUSize       int
	FetchLRUTTLMinutes int

	// DynamoDB batch settings
	BatchSize       int
	MaxBatchRetries int

	EnableFetchCache bool
}

const (
	defaultFetchLRUSize       = 500
	defaultFetchLRUTTLMinutes = 10
	defaultBatchSize          = 25
	defaultMaxBatchRetries    = 3
)

// GetCacheConfig returns the cache configuration from environment variables or defaults
func GetCacheConfig() *CacheConfig {
	config := &CacheConfig{
		FetchLRUSize:       getEnvInt("CACHE_FETCH_LRU_SIZE", defaultFetchLRUSize),
		FetchLRUTTLMinutes: getEnvInt("CACHE_FETCH_LRU_TTL_MINUTES", defaultFetchLRUTTLMinutes),
		BatchSize:          getEnvInt("CACHE_BATCH_SIZE", defaultBatchSize),
		MaxBatchRetries:    getEnvInt("CACHE_MAX_BATCH_RETRIES", defaultMaxBatchRetries),
		EnableFetchCache:   getEnvBool("CACHE_ENABLE_FETCH", true),
	}

	log.Debug().
		Int("FetchLRUSize", config.FetchLRUSize).
		Int("FetchLRUTTLMinutes", config.FetchLRUTTLMinutes).
		Int("BatchSize", config.BatchSize).
		Int("MaxBatchRetries", config.MaxBatchRetries).
		Bool("EnableFetchCache", config.EnableFetchCache).
		Msg("Cache configuration loaded")

	return config
}

func (c *CacheConfig) GetFetchLRUTTL() time.Duration {
	return time.Duration(c.FetchLRUTTLMinutes) * time.Minute
}

// Helper functions to get environment variables with defaults
func getEnvInt(key string, defaultVal int) int {
	if val, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
		log.Warn().Str("key", key).Msg("Invalid integer value in environment variable, using default")
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val, exists := os.LookupEnv(key); exists {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}
