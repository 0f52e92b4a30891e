package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigWithDefaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 20*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 5.0, cfg.ProviderRateLimit)
	assert.Equal(t, 50.0, cfg.DefaultRadiusKm)
	assert.Equal(t, 10, cfg.MaxResults)
	assert.Equal(t, 5, cfg.PresentationLimit)
	assert.False(t, cfg.SortByDistance)
	assert.Equal(t, DefaultOpenChargeMapURL, cfg.OpenChargeMapBaseURL)
	assert.Equal(t, DefaultPlugShareURL, cfg.PlugShareBaseURL)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.NoError(t, cfg.Validate())
}

func TestOptions(t *testing.T) {
	cfg := New(
		WithEnvironment("development"),
		WithLogLevel("debug"),
		WithHTTPTimeout(30*time.Second),
		WithFetchTimeout(time.Second),
		WithSearch(25, 7),
		WithPresentationLimit(3),
		WithSortByDistance(true),
		WithAPIKeys("ocm", "ps"),
		WithProviderURLs("http://ocm", ""),
	)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, time.Second, cfg.FetchTimeout)
	assert.Equal(t, 25.0, cfg.DefaultRadiusKm)
	assert.Equal(t, 7, cfg.MaxResults)
	assert.Equal(t, 3, cfg.PresentationLimit)
	assert.True(t, cfg.SortByDistance)
	assert.Equal(t, "ocm", cfg.OpenChargeMapAPIKey)
	assert.Equal(t, "ps", cfg.PlugShareAPIKey)
	assert.Equal(t, "http://ocm", cfg.OpenChargeMapBaseURL)
	assert.Equal(t, DefaultPlugShareURL, cfg.PlugShareBaseURL, "empty URL keeps the default")
}

func TestWithLogLevelInvalid(t *testing.T) {
	cfg := New(WithLogLevel("loud"))
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
}

func TestInitializeLogging(t *testing.T) {
	cfg := New(WithEnvironment("local"), WithLogLevel("debug"))
	cfg.InitializeLogging()

	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantKey string
	}{
		{name: "memory backend", opts: nil},
		{name: "dynamodb with table", opts: []Option{WithStoreBackend(BackendDynamoDB), WithDynamoDB("stations", "")}},
		{name: "dynamodb without table", opts: []Option{WithStoreBackend(BackendDynamoDB)}, wantKey: "DYNAMODB_TABLE"},
		{name: "postgres without URL", opts: []Option{WithStoreBackend(BackendPostgres)}, wantKey: "DATABASE_URL"},
		{name: "postgres with URL", opts: []Option{WithStoreBackend(BackendPostgres), WithDatabaseURL("postgres://localhost/db")}},
		{name: "redis without addr", opts: []Option{WithStoreBackend(BackendRedis)}, wantKey: "REDIS_ADDR"},
		{name: "redis with addr", opts: []Option{WithStoreBackend(BackendRedis), WithRedis("localhost:6379", "")}},
		{name: "unknown backend", opts: []Option{WithStoreBackend("sqlite")}, wantKey: "STORE_BACKEND"},
		{name: "zero radius", opts: []Option{WithSearch(0, 10)}, wantKey: "DEFAULT_RADIUS_KM"},
		{name: "negative max results", opts: []Option{WithSearch(50, -1)}, wantKey: "MAX_RESULTS"},
		{name: "zero presentation limit", opts: []Option{WithPresentationLimit(0)}, wantKey: "PRESENTATION_LIMIT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.opts...).Validate()
			if tt.wantKey == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantKey, cfgErr.Key)
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("FETCH_TIMEOUT", "15s")
	t.Setenv("MAX_RETRIES", "2")
	t.Setenv("PROVIDER_RATE_LIMIT", "2.5")
	t.Setenv("DEFAULT_RADIUS_KM", "30")
	t.Setenv("MAX_RESULTS", "20")
	t.Setenv("PRESENTATION_LIMIT", "8")
	t.Setenv("SORT_BY_DISTANCE", "true")
	t.Setenv("OCM_API_KEY", "ocm-key")
	t.Setenv("PLUGSHARE_API_KEY", "ps-key")
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("NETWORK_S3_BUCKET", "bucket")

	cfg := LoadFromEnv()

	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, zerolog.WarnLevel, cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 15*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, 2.5, cfg.ProviderRateLimit)
	assert.Equal(t, 30.0, cfg.DefaultRadiusKm)
	assert.Equal(t, 20, cfg.MaxResults)
	assert.Equal(t, 8, cfg.PresentationLimit)
	assert.True(t, cfg.SortByDistance)
	assert.Equal(t, "ocm-key", cfg.OpenChargeMapAPIKey)
	assert.Equal(t, "ps-key", cfg.PlugShareAPIKey)
	assert.Equal(t, BackendRedis, cfg.StoreBackend)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "bucket", cfg.NetworkS3Bucket)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvInvalidValuesUseDefaults(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "soon")
	t.Setenv("MAX_RESULTS", "many")
	t.Setenv("DEFAULT_RADIUS_KM", "far")

	cfg := LoadFromEnv()
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 10, cfg.MaxResults)
	assert.Equal(t, 50.0, cfg.DefaultRadiusKm)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CHARGEFINDER_TEST_FROM_FILE=file\nCHARGEFINDER_TEST_PRESET=file\n"), 0o600))

	t.Setenv("CHARGEFINDER_TEST_PRESET", "env")
	t.Cleanup(func() { _ = os.Unsetenv("CHARGEFINDER_TEST_FROM_FILE") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "file", os.Getenv("CHARGEFINDER_TEST_FROM_FILE"))
	assert.Equal(t, "env", os.Getenv("CHARGEFINDER_TEST_PRESET"), "real environment wins")
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}
