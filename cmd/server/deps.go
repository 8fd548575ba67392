package main

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/unpackeat/backend/config"
	"github.com/unpackeat/backend/internal/domain"
	"github.com/unpackeat/backend/internal/infrastructure/cache"
	"github.com/unpackeat/backend/internal/infrastructure/fallback"
	"github.com/unpackeat/backend/internal/infrastructure/metrics"
	"github.com/unpackeat/backend/internal/infrastructure/openfoodfacts"
	"github.com/unpackeat/backend/internal/infrastructure/postgres"
	"github.com/unpackeat/backend/internal/infrastructure/productapi"
	"github.com/unpackeat/backend/internal/logger"
	"github.com/unpackeat/backend/internal/usecase"
)

// newStore creates the internal product store and a function releasing it
func newStore(ctx context.Context, cfg *config.Config) (domain.ProductStore, func(), error) {
	switch cfg.Store.Type {
	case config.StoreTypePostgres:
		pool, err := postgres.NewPool(ctx, postgres.Options{
			DSN:             cfg.Store.DSN,
			MaxConns:        cfg.Store.MaxConns,
			MinConns:        cfg.Store.MinConns,
			MaxConnLifetime: cfg.Store.MaxConnLifetime,
			MaxConnIdleTime: cfg.Store.MaxConnIdleTime,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("could not create postgres pool: %w", err)
		}
		logger.Info(ctx, "using postgres product store")

		return postgres.NewProductStore(pool), func() {
			logger.Info(ctx, "closing postgres pool...")
			pool.Close()
		}, nil
	default:
		store := cache.NewMemoryCache(cfg.Store.TTL)
		logger.Info(ctx, "using in-memory product store", zap.Duration("ttl", cfg.Store.TTL))

		return store, store.Close, nil
	}
}

// newRemote creates the remote product source selected by remote.kind
func newRemote(ctx context.Context, cfg *config.Config) (domain.ProductSource, error) {
	debug := cfg.Server.Environment == "development"

	switch cfg.Remote.Kind {
	case config.RemoteKindOpenFoodFacts:
		catalog := usecase.DefaultAdditiveCatalog()
		if cfg.Analysis.AdditivesFile != "" {
			var err error
			catalog, err = usecase.LoadAdditiveCatalog(afero.NewOsFs(), cfg.Analysis.AdditivesFile)
			if err != nil {
				return nil, err
			}
		}

		client := openfoodfacts.NewClient(openfoodfacts.Options{
			BaseURL:     cfg.Remote.BaseURL,
			Timeout:     cfg.Remote.Timeout,
			UserAgent:   cfg.Remote.UserAgent,
			RatePerHour: cfg.Remote.RatePerHour,
		}, usecase.NewHealthAnalyzer(catalog))
		client.SetDebug(debug)
		logger.Info(ctx, "using openfoodfacts remote source", zap.String("base_url", cfg.Remote.BaseURL))

		return client, nil
	default:
		client := productapi.NewClient(productapi.Options{
			BaseURL:     cfg.Remote.BaseURL,
			Timeout:     cfg.Remote.Timeout,
			UserAgent:   cfg.Remote.UserAgent,
			RatePerHour: cfg.Remote.RatePerHour,
		})
		client.SetDebug(debug)
		logger.Info(ctx, "using product service remote source", zap.String("base_url", cfg.Remote.BaseURL))

		return client, nil
	}
}

// newResolver wires the resolution chain; the returned function releases the store
func newResolver(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*usecase.ResolutionService, func(), error) {
	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	remote, err := newRemote(ctx, cfg)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	var fallbackSource domain.ProductSource
	if cfg.Fallback.Dir != "" {
		fallbackSource = fallback.NewOSFileStore(cfg.Fallback.Dir)
		logger.Info(ctx, "using fallback store", zap.String("dir", cfg.Fallback.Dir))
	}

	resolver := usecase.NewResolutionService(store, remote, fallbackSource, usecase.ResolutionServiceConfig{
		RemoteTimeout:   cfg.Remote.Timeout,
		CoalesceLookups: cfg.Resolver.Coalesce,
		Metrics:         m,
	})

	return resolver, closeStore, nil
}
