package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/bbernstein/chargefinder/internal/aggregator"
	"github.com/bbernstein/chargefinder/internal/cache"
	"github.com/bbernstein/chargefinder/internal/config"
	"github.com/bbernstein/chargefinder/internal/metrics"
	"github.com/bbernstein/chargefinder/internal/models"
	"github.com/bbernstein/chargefinder/internal/network"
	"github.com/bbernstein/chargefinder/internal/provider"
	"github.com/bbernstein/chargefinder/internal/search"
	"github.com/bbernstein/chargefinder/pkg/http/client"
)

// App is the wired search core shared by every entry point.
type App struct {
	Config     *config.Config
	Service    *search.Service
	Aggregator *aggregator.Aggregator
	Metrics    *metrics.Recorder
	Repository models.StationRepository

	closers []func()
}

// Build validates cfg and wires storage, providers and the pipeline. A
// returned error is a startup failure; callers abort on it.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Metrics: metrics.NewRecorder(),
	}

	repo, closer, err := NewRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Repository = repo
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	store, err := newNetworkStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	local := provider.NewLocalNetwork(store)

	cacheConfig := config.GetCacheConfig()
	var fetchCache *cache.FetchCache
	if cacheConfig.EnableFetchCache {
		fetchCache, err = cache.NewFetchCache(cacheConfig)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating fetch cache: %w", err)
		}
	}

	registrations := []aggregator.Registration{
		{
			Provider: provider.WithCache(provider.NewOpenChargeMap(newHTTPClient(cfg, cfg.OpenChargeMapBaseURL)), fetchCache),
			APIKey:   cfg.OpenChargeMapAPIKey,
		},
		{
			Provider: provider.WithCache(provider.NewPlugShare(newHTTPClient(cfg, cfg.PlugShareBaseURL)), fetchCache),
			APIKey:   cfg.PlugShareAPIKey,
		},
		{Provider: local},
	}

	a.Aggregator = aggregator.New(registrations, aggregator.Options{
		RadiusKm:       cfg.DefaultRadiusKm,
		MaxResults:     cfg.MaxResults,
		Limit:          cfg.PresentationLimit,
		FetchTimeout:   cfg.FetchTimeout,
		SortByDistance: cfg.SortByDistance,
		Repository:     repo,
		Observer:       a.Metrics,
	})
	a.Service = search.NewService(a.Aggregator, local)

	log.Info().
		Str("backend", cfg.StoreBackend).
		Bool("fetch_cache", fetchCache != nil).
		Bool("network_snapshot", cfg.NetworkS3Bucket != "").
		Msg("Search core initialized")
	return a, nil
}

// Close releases backend connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func newHTTPClient(cfg *config.Config, baseURL string) *client.Client {
	return client.New(client.Options{
		BaseURL:    baseURL,
		Timeout:    cfg.HTTPTimeout,
		MaxRetries: cfg.MaxRetries,
		RateLimit:  cfg.ProviderRateLimit,
	})
}

// NewRepository opens the configured station cache backend. The returned
// closer may be nil.
func NewRepository(ctx context.Context, cfg *config.Config) (models.StationRepository, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendDynamoDB:
		dynamoClient, err := cache.NewDynamoClient(ctx, cfg.DynamoDBEndpoint)
		if err != nil {
			return nil, nil, fmt.Errorf("creating DynamoDB client: %w", err)
		}
		return cache.NewDynamoStationStore(dynamoClient, cfg.DynamoDBTable, config.GetCacheConfig()), nil, nil

	case config.BackendPostgres:
		pool, err := cache.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := cache.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return cache.NewPostgresStationStore(pool), pool.Close, nil

	case config.BackendRedis:
		redisClient, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, nil, err
		}
		closeRedis := func() {
			if err := redisClient.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing redis client")
			}
		}
		return cache.NewRedisStationStore(redisClient), closeRedis, nil

	case config.BackendMemory, "":
		return cache.NewMemoryStationStore(), nil, nil

	default:
		return nil, nil, config.NewConfigurationError("STORE_BACKEND", "unknown backend "+cfg.StoreBackend)
	}
}

// newNetworkStore seeds the local network and, when a bucket is configured,
// persists user submissions to S3.
func newNetworkStore(ctx context.Context, cfg *config.Config) (network.Store, error) {
	mem, err := network.NewSeededMemoryStore()
	if err != nil {
		return nil, fmt.Errorf("loading local network: %w", err)
	}
	if cfg.NetworkS3Bucket == "" {
		return mem, nil
	}

	s3Client, err := network.NewS3Client(ctx)
	if err != nil {
		return nil, err
	}
	return network.NewPersistentStore(ctx, mem, network.NewS3Snapshot(s3Client, cfg.NetworkS3Bucket, cfg.NetworkS3Key))
}
