package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unpackeat/backend/internal/domain"
	"github.com/unpackeat/backend/internal/logger"
	"github.com/unpackeat/backend/internal/usecase"
)

func lookupCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <barcode>",
		Short: "Resolves a barcode through the source chain and prints the record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			resolver, closeStore, err := newResolver(ctx, a.cfg, nil)
			if err != nil {
				return err
			}
			defer closeStore()

			return printResolution(ctx, resolver, os.Stdout, args[0])
		},
	}
}

// printResolution resolves barcode and writes the record as JSON to w.
// An unresolved barcode is reported with the user-facing message; the
// attempted sources only go to the log.
func printResolution(ctx context.Context, resolver *usecase.ResolutionService, w io.Writer, barcode string) error {
	result, err := resolver.Resolve(ctx, barcode)
	if err != nil {
		var failed *domain.ResolutionFailedError
		if errors.As(err, &failed) {
			logger.Info(ctx, "barcode not resolved", zap.Error(err))
			return errors.New(domain.NotFoundMessage(failed.Barcode))
		}
		return err
	}
	if result.PersistErr != nil {
		logger.Warn(ctx, "record was not saved to the internal store", zap.Error(result.PersistErr))
	}

	out, err := json.MarshalIndent(map[string]any{
		"barcode": result.Record.Barcode,
		"source":  result.Source,
		"record":  result.Record.Payload,
	}, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(out))
	return err
}
