package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"

	DefaultOpenChargeMapURL = "https://api.openchargemap.io/v3/poi/"
	DefaultPlugShareURL     = "https://api.plugshare.com/v3/locations/region"
)

type Config struct {
	Environment  string
	LogLevel     zerolog.Level
	HTTPTimeout  time.Duration
	FetchTimeout time.Duration
	MaxRetries   int

	// ProviderRateLimit is requests per second per provider; zero disables limiting.
	ProviderRateLimit float64

	DefaultRadiusKm   float64
	MaxResults        int
	PresentationLimit int
	SortByDistance    bool

	OpenChargeMapAPIKey  string
	PlugShareAPIKey      string
	OpenChargeMapBaseURL string
	PlugShareBaseURL     string

	StoreBackend     string
	DynamoDBTable    string
	DynamoDBEndpoint string
	DatabaseURL      string
	RedisAddr        string
	RedisPassword    string
	NetworkS3Bucket  string
	NetworkS3Key     string
}

type Option func(*Config)

// WithEnvironment allows setting the environment
func WithEnvironment(env string) Option {
	return func(c *Config) {
		c.Environment = env
	}
}

// WithLogLevel allows setting the log level
func WithLogLevel(level string) Option {
	return func(c *Config) {
		parsedLevel, err := zerolog.ParseLevel(level)
		if err != nil {
			parsedLevel = zerolog.InfoLevel
		}
		c.LogLevel = parsedLevel
	}
}

// WithHTTPTimeout allows setting the HTTP timeout
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.HTTPTimeout = timeout
	}
}

// WithFetchTimeout bounds each provider fetch
func WithFetchTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.FetchTimeout = timeout
	}
}

func WithMaxRetries(retries int) Option {
	return func(c *Config) {
		c.MaxRetries = retries
	}
}

func WithProviderRateLimit(perSecond float64) Option {
	return func(c *Config) {
		c.ProviderRateLimit = perSecond
	}
}

// WithSearch sets the search radius and the per-provider result cap
func WithSearch(radiusKm float64, maxResults int) Option {
	return func(c *Config) {
		c.DefaultRadiusKm = radiusKm
		c.MaxResults = maxResults
	}
}

func WithPresentationLimit(limit int) Option {
	return func(c *Config) {
		c.PresentationLimit = limit
	}
}

func WithSortByDistance(enabled bool) Option {
	return func(c *Config) {
		c.SortByDistance = enabled
	}
}

// WithAPIKeys sets the OpenChargeMap and PlugShare credentials
func WithAPIKeys(openChargeMap, plugShare string) Option {
	return func(c *Config) {
		c.OpenChargeMapAPIKey = openChargeMap
		c.PlugShareAPIKey = plugShare
	}
}

func WithProviderURLs(openChargeMap, plugShare string) Option {
	return func(c *Config) {
		if openChargeMap != "" {
			c.OpenChargeMapBaseURL = openChargeMap
		}
		if plugShare != "" {
			c.PlugShareBaseURL = plugShare
		}
	}
}

// WithStoreBackend selects where normalized stations are cached
func WithStoreBackend(backend string) Option {
	return func(c *Config) {
		c.StoreBackend = backend
	}
}

func WithDynamoDB(table, endpoint string) Option {
	return func(c *Config) {
		c.DynamoDBTable = table
		c.DynamoDBEndpoint = endpoint
	}
}

func WithDatabaseURL(url string) Option {
	return func(c *Config) {
		c.DatabaseURL = url
	}
}

func WithRedis(addr, password string) Option {
	return func(c *Config) {
		c.RedisAddr = addr
		c.RedisPassword = password
	}
}

// WithNetworkSnapshot enables S3 persistence of user-submitted stations
func WithNetworkSnapshot(bucket, key string) Option {
	return func(c *Config) {
		c.NetworkS3Bucket = bucket
		c.NetworkS3Key = key
	}
}

// New creates a new configuration with default values
func New(opts ...Option) *Config {
	cfg := &Config{
		Environment:          "production",
		LogLevel:             zerolog.InfoLevel,
		HTTPTimeout:          10 * time.Second,
		FetchTimeout:         20 * time.Second,
		MaxRetries:           3,
		ProviderRateLimit:    5,
		DefaultRadiusKm:      50,
		MaxResults:           10,
		PresentationLimit:    5,
		OpenChargeMapBaseURL: DefaultOpenChargeMapURL,
		PlugShareBaseURL:     DefaultPlugShareURL,
		StoreBackend:         BackendMemory,
	}

	// Apply options
	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// Validate reports the first setting that prevents startup.
func (c *Config) Validate() error {
	if c.DefaultRadiusKm <= 0 {
		return NewConfigurationError("DEFAULT_RADIUS_KM", "must be positive")
	}
	if c.MaxResults <= 0 {
		return NewConfigurationError("MAX_RESULTS", "must be positive")
	}
	if c.PresentationLimit <= 0 {
		return NewConfigurationError("PRESENTATION_LIMIT", "must be positive")
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendDynamoDB:
		if c.DynamoDBTable == "" {
			return NewConfigurationError("DYNAMODB_TABLE", "is required for the dynamodb backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return NewConfigurationError("DATABASE_URL", "is required for the postgres backend")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return NewConfigurationError("REDIS_ADDR", "is required for the redis backend")
		}
	default:
		return NewConfigurationError("STORE_BACKEND", "unknown backend "+strconv.Quote(c.StoreBackend))
	}
	return nil
}

// InitializeLogging sets up logging based on the configuration
func (c *Config) InitializeLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(c.LogLevel)

	// Setup console logger for development environments
	if c.Environment == "local" || c.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
}

// LoadDotEnv loads variables from the given files (".env" by default)
// without overriding variables already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return NewConfigurationError(path, err.Error())
		}
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	return New(
		WithEnvironment(getEnvOrDefault("ENV", "production")),
		WithLogLevel(getEnvOrDefault("LOG_LEVEL", "info")),
		WithHTTPTimeout(getDurationEnvOrDefault("HTTP_TIMEOUT", 10*time.Second)),
		WithFetchTimeout(getDurationEnvOrDefault("FETCH_TIMEOUT", 20*time.Second)),
		WithMaxRetries(getEnvInt("MAX_RETRIES", 3)),
		WithProviderRateLimit(getEnvFloat("PROVIDER_RATE_LIMIT", 5)),
		WithSearch(getEnvFloat("DEFAULT_RADIUS_KM", 50), getEnvInt("MAX_RESULTS", 10)),
		WithPresentationLimit(getEnvInt("PRESENTATION_LIMIT", 5)),
		WithSortByDistance(getEnvBool("SORT_BY_DISTANCE", false)),
		WithAPIKeys(os.Getenv("OCM_API_KEY"), os.Getenv("PLUGSHARE_API_KEY")),
		WithProviderURLs(os.Getenv("OCM_BASE_URL"), os.Getenv("PLUGSHARE_BASE_URL")),
		WithStoreBackend(getEnvOrDefault("STORE_BACKEND", BackendMemory)),
		WithDynamoDB(os.Getenv("DYNAMODB_TABLE"), os.Getenv("DYNAMODB_ENDPOINT")),
		WithDatabaseURL(os.Getenv("DATABASE_URL")),
		WithRedis(os.Getenv("REDIS_ADDR"), os.Getenv("REDIS_PASSWORD")),
		WithNetworkSnapshot(os.Getenv("NETWORK_S3_BUCKET"), os.Getenv("NETWORK_S3_KEY")),
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
		log.Warn().Str("key", key).Msg("Invalid number in environment variable, using default")
	}
	return defaultVal
}
