package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/unpackeat/backend/internal/domain"
	"github.com/unpackeat/backend/internal/infrastructure/metrics"
	"github.com/unpackeat/backend/internal/logger"
)

const defaultRemoteTimeout = 8 * time.Second

// Stage is one entry of the resolution chain
type Stage struct {
	Source domain.ProductSource
	// Persist upserts hits from this stage into the internal store
	Persist bool
	// Timeout bounds the lookup; zero means only the caller's context applies
	Timeout time.Duration
}

// ResolutionServiceConfig holds configuration for the resolution service
type ResolutionServiceConfig struct {
	RemoteTimeout   time.Duration
	CoalesceLookups bool
	Metrics         *metrics.Metrics
}

// ResolutionService resolves barcodes to product records by trying an
// ordered list of sources and healing the internal store from remote hits.
type ResolutionService struct {
	store    domain.ProductStore
	stages   []Stage
	coalesce bool
	group    singleflight.Group
	metrics  *metrics.Metrics
}

// NewResolutionService builds the standard chain: internal store, then the
// remote service (persisted, bounded by RemoteTimeout), then the fallback
// store. A nil remote or fallback source is left out of the chain.
func NewResolutionService(
	store domain.ProductStore,
	remote domain.ProductSource,
	fallback domain.ProductSource,
	config ResolutionServiceConfig,
) *ResolutionService {
	remoteTimeout := config.RemoteTimeout
	if remoteTimeout <= 0 {
		remoteTimeout = defaultRemoteTimeout
	}

	stages := []Stage{{Source: StoreSource(store)}}
	if remote != nil {
		stages = append(stages, Stage{Source: remote, Persist: true, Timeout: remoteTimeout})
	}
	if fallback != nil {
		stages = append(stages, Stage{Source: fallback})
	}

	return NewResolutionServiceWithStages(store, stages, config)
}

// NewResolutionServiceWithStages builds a chain from an explicit stage list.
// store receives the upserts of stages marked Persist.
func NewResolutionServiceWithStages(store domain.ProductStore, stages []Stage, config ResolutionServiceConfig) *ResolutionService {
	return &ResolutionService{
		store:    store,
		stages:   stages,
		coalesce: config.CoalesceLookups,
		metrics:  config.Metrics,
	}
}

// Resolve returns the first record found for barcode.
//
// Errors: domain.ErrInvalidInput for an empty barcode (no source is touched),
// *domain.ResolutionFailedError (matching domain.ErrResolutionFailed) when every
// stage missed or failed. A failed upsert after a remote hit is reported in
// ResolutionResult.PersistErr and does not fail the call.
func (s *ResolutionService) Resolve(ctx context.Context, raw string) (*domain.ResolutionResult, error) {
	barcode, err := NormalizeBarcode(raw)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithFields(ctx, zap.String("barcode", barcode))

	if !s.coalesce {
		return s.resolve(ctx, barcode)
	}

	// The shared lookup must not die with whichever caller started it
	v, err, shared := s.group.Do(barcode, func() (interface{}, error) {
		return s.resolve(context.WithoutCancel(ctx), barcode)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debug(ctx, "coalesced concurrent resolution")
	}

	result := *v.(*domain.ResolutionResult)
	return &result, nil
}

func (s *ResolutionService) resolve(ctx context.Context, barcode string) (*domain.ResolutionResult, error) {
	attempted := make([]domain.Source, 0, len(s.stages))
	var causes []error

	for _, stage := range s.stages {
		name := stage.Source.Name()
		attempted = append(attempted, name)

		record, err := s.lookup(ctx, stage, barcode)
		if err != nil {
			causes = append(causes, fmt.Errorf("%s: %w", name, err))
			if errors.Is(err, domain.ErrProductNotFound) {
				logger.Debug(ctx, "source miss", zap.String("source", string(name)))
			} else {
				logger.Warn(ctx, "source failed, falling through",
					zap.String("source", string(name)),
					zap.Error(err),
				)
			}
			continue
		}

		result := &domain.ResolutionResult{Found: true, Record: record, Source: name}
		if stage.Persist {
			result.PersistErr = s.persist(ctx, record)
		}

		s.metrics.ObserveResolution(string(name))
		logger.Info(ctx, "product resolved", zap.String("source", string(name)))

		return result, nil
	}

	s.metrics.ObserveResolution(metrics.OutcomeNotFound)
	logger.Warn(ctx, "product not found in any source",
		zap.Any("attempted", attempted),
		zap.Errors("causes", causes),
	)

	return nil, &domain.ResolutionFailedError{Barcode: barcode, Attempted: attempted, Causes: causes}
}

// lookup runs one stage with its timeout and normalizes its outcome
func (s *ResolutionService) lookup(ctx context.Context, stage Stage, barcode string) (record *domain.ProductRecord, err error) {
	name := stage.Source.Name()

	if stage.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, stage.Timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		s.metrics.ObserveStage(string(name), time.Since(start))

		// A misbehaving source degrades to a miss instead of taking the request down
		if p := recover(); p != nil {
			record, err = nil, fmt.Errorf("source panicked: %v", p)
		}

		if err != nil && name == domain.SourceRemoteService &&
			!errors.Is(err, domain.ErrProductNotFound) && !errors.Is(err, domain.ErrRemoteUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrRemoteUnavailable, err)
		}
	}()

	record, err = stage.Source.Lookup(ctx, barcode)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrProductNotFound
	}

	record.Barcode = barcode
	return record, nil
}

// persist upserts a remote hit; failures are soft
func (s *ResolutionService) persist(ctx context.Context, record *domain.ProductRecord) error {
	if err := s.store.Upsert(ctx, record); err != nil {
		s.metrics.IncPersistFailure()
		logger.Error(ctx, "failed to persist remote product", zap.Error(err))
		return fmt.Errorf("%w: %v", domain.ErrPersistenceWriteFailed, err)
	}
	return nil
}

// StoreSource adapts the internal store to a chain stage
func StoreSource(store domain.ProductStore) domain.ProductSource {
	return storeSource{store: store}
}

type storeSource struct {
	store domain.ProductStore
}

func (s storeSource) Name() domain.Source {
	return domain.SourceInternalStore
}

func (s storeSource) Lookup(ctx context.Context, barcode string) (*domain.ProductRecord, error) {
	return s.store.Get(ctx, barcode)
}
