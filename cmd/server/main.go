// Package main provides the CLI entrypoint for the UnPackEat backend.
// It wires subcommands (serve, migrate, lookup, scan), loads configuration and initializes logging.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unpackeat/backend/config"
	"github.com/unpackeat/backend/internal/logger"
)

// app carries state shared by subcommands once the root command has run
type app struct {
	configFile string
	cfg        *config.Config
}

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "unpackeat",
		Short:         "Barcode product lookup and health analysis backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			logger.Setup(cfg.Server.Environment)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Config file path (default ./config.yaml when present)")

	rootCmd.AddCommand(
		serveCommand(a),
		migrateCommand(a),
		lookupCommand(a),
		scanCommand(a),
	)

	ctx := context.Background()

	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "captured panic, exiting...", zap.Any("panic", p))
			logger.Sync()

			panic(p)
		}
	}()

	err := rootCmd.Execute()
	if err != nil {
		logger.Error(ctx, "command failed", zap.Error(err))
	}
	logger.Sync()
	if err != nil {
		os.Exit(1) //nolint: gocritic
	}
}
