package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unpackeat/backend/internal/infrastructure/detector"
	"github.com/unpackeat/backend/internal/logger"
	"github.com/unpackeat/backend/internal/usecase"
)

func scanCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Reads detections from stdin (e.g. zbarcam output), confirms a barcode and looks it up",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var opts []usecase.DebouncerOption
			if cfg.Scan.StrictCandidates {
				opts = append(opts, usecase.WithCandidateFilter(usecase.IsScanCandidate))
			}

			event, err := usecase.RunScanSession(ctx, detector.NewLineDetector(os.Stdin), cfg.Scan.Threshold, opts...)
			if err != nil {
				return err
			}
			logger.Info(ctx, "barcode confirmed", zap.String("barcode", event.Barcode))

			resolver, closeStore, err := newResolver(ctx, cfg, nil)
			if err != nil {
				return err
			}
			defer closeStore()

			return printResolution(ctx, resolver, os.Stdout, event.Barcode)
		},
	}
}
