package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/unpackeat/backend/internal/domain"
	"github.com/unpackeat/backend/internal/logger"
)

// RunScanSession arms a debouncer, feeds it the detector's output and returns
// the first confirmation. The detector is stopped and the tally discarded
// before returning, so no detection is observed after teardown starts.
//
// It returns domain.ErrScanAborted when the detector closes its channel and
// the context error when ctx ends first.
func RunScanSession(
	ctx context.Context,
	detector domain.Detector,
	threshold int,
	opts ...DebouncerOption,
) (domain.ConfirmationEvent, error) {
	debouncer := NewDebouncer(threshold, opts...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	detections, err := detector.Start(ctx)
	if err != nil {
		return domain.ConfirmationEvent{}, fmt.Errorf("start detector: %w", err)
	}

	defer func() {
		if err := detector.Stop(); err != nil {
			logger.Warn(ctx, "failed to stop detector", zap.Error(err))
		}
		debouncer.Reset()
	}()

	logger.Debug(ctx, "scan session armed", zap.Int("threshold", debouncer.Threshold()))

	for {
		select {
		case <-ctx.Done():
			return domain.ConfirmationEvent{}, ctx.Err()
		case detection, ok := <-detections:
			if !ok {
				return domain.ConfirmationEvent{}, domain.ErrScanAborted
			}
			if event, confirmed := debouncer.Observe(detection.Code); confirmed {
				logger.Info(ctx, "barcode confirmed", zap.String("barcode", event.Barcode))
				return event, nil
			}
		}
	}
}
