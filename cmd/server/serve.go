package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpDelivery "github.com/unpackeat/backend/internal/delivery/http"
	"github.com/unpackeat/backend/internal/infrastructure/metrics"
	"github.com/unpackeat/backend/internal/logger"
	"github.com/unpackeat/backend/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

func serveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Starts the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info(ctx, "starting UnPackEat backend",
				zap.String("environment", cfg.Server.Environment),
				zap.String("port", cfg.Server.Port),
				zap.String("store", cfg.Store.Type),
				zap.String("remote", cfg.Remote.Kind),
			)

			m := metrics.New(prometheus.DefaultRegisterer)

			resolver, closeStore, err := newResolver(ctx, cfg, m)
			if err != nil {
				return err
			}
			defer closeStore()

			scans := usecase.NewScanService(usecase.ScanServiceConfig{
				Threshold:        cfg.Scan.Threshold,
				SessionTTL:       cfg.Scan.SessionTTL,
				StrictCandidates: cfg.Scan.StrictCandidates,
				Metrics:          m,
			})

			handler := httpDelivery.NewHandler(resolver, scans)
			router := httpDelivery.SetupRouter(cfg, handler, promhttp.Handler())

			server := &http.Server{
				Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
				Handler:           router,
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info(ctx, "server listening", zap.String("addr", server.Addr))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("could not start server: %w", err)
				}
			case <-ctx.Done():
			}

			logger.Info(ctx, "stopping server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("could not stop server: %w", err)
			}

			return nil
		},
	}
}
