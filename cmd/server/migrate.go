package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/unpackeat/backend/config"
	"github.com/unpackeat/backend/internal/infrastructure/postgres"
	"github.com/unpackeat/backend/internal/logger"
)

// migrateCommand applies the product store migrations with goose
func migrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrates the postgres product store to the latest version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cfg.Store.Type != config.StoreTypePostgres {
				return errors.New("migrate requires store.type=postgres")
			}

			ctx := context.Background()

			pool, err := postgres.NewPool(ctx, postgres.Options{
				DSN:             cfg.Store.DSN,
				MaxConns:        cfg.Store.MaxConns,
				MinConns:        cfg.Store.MinConns,
				MaxConnLifetime: cfg.Store.MaxConnLifetime,
				MaxConnIdleTime: cfg.Store.MaxConnIdleTime,
			})
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := postgres.Migrate(ctx, pool); err != nil {
				return err
			}

			logger.Info(ctx, "product store migrated")
			return nil
		},
	}
}
