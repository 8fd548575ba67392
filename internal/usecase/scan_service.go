package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unpackeat/backend/internal/domain"
	"github.com/unpackeat/backend/internal/infrastructure/metrics"
	"github.com/unpackeat/backend/internal/logger"
)

const defaultSessionTTL = 5 * time.Minute

// ScanServiceConfig holds configuration for the scan service
type ScanServiceConfig struct {
	Threshold  int
	SessionTTL time.Duration
	// StrictCandidates limits tallied codes to EAN-8, UPC-A and EAN-13 shapes
	StrictCandidates bool
	Metrics          *metrics.Metrics
}

type scanSession struct {
	debouncer *Debouncer
	lastSeen  time.Time
}

// ScanService keeps armed scan sessions for clients that stream detections
// over HTTP. Each session owns a debouncer; observations for all sessions are
// serialized by the service.
type ScanService struct {
	mu        sync.Mutex
	sessions  map[string]*scanSession
	threshold int
	ttl       time.Duration
	opts      []DebouncerOption
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewScanService creates a scan service
func NewScanService(config ScanServiceConfig) *ScanService {
	ttl := config.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}

	var opts []DebouncerOption
	if config.StrictCandidates {
		opts = append(opts, WithCandidateFilter(IsScanCandidate))
	}

	return &ScanService{
		sessions:  make(map[string]*scanSession),
		threshold: config.Threshold,
		ttl:       ttl,
		opts:      opts,
		metrics:   config.Metrics,
		now:       time.Now,
	}
}

// Arm opens a new scan session and returns its ID
func (s *ScanService) Arm(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeExpired()

	id := uuid.NewString()
	s.sessions[id] = &scanSession{
		debouncer: NewDebouncer(s.threshold, s.opts...),
		lastSeen:  s.now(),
	}

	logger.Debug(ctx, "scan session armed", zap.String("session_id", id))

	return id
}

// Observe feeds one detection into a session. On confirmation the session is
// disarmed in the same critical section, so later observations get
// domain.ErrScanSessionClosed and the event fires exactly once.
func (s *ScanService) Observe(ctx context.Context, sessionID, code string) (domain.ConfirmationEvent, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.ConfirmationEvent{}, false, domain.ErrScanSessionClosed
	}

	now := s.now()
	if now.Sub(session.lastSeen) > s.ttl {
		delete(s.sessions, sessionID)
		return domain.ConfirmationEvent{}, false, domain.ErrScanSessionClosed
	}
	session.lastSeen = now

	event, confirmed := session.debouncer.Observe(code)
	if !confirmed {
		return domain.ConfirmationEvent{}, false, nil
	}

	delete(s.sessions, sessionID)
	s.metrics.IncScanConfirmation()
	logger.Info(ctx, "barcode confirmed",
		zap.String("session_id", sessionID),
		zap.String("barcode", event.Barcode),
	)

	return event, true, nil
}

// Disarm closes a session and discards its tally. It reports whether the session existed.
func (s *ScanService) Disarm(ctx context.Context, sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return false
	}

	session.debouncer.Reset()
	delete(s.sessions, sessionID)
	logger.Debug(ctx, "scan session disarmed", zap.String("session_id", sessionID))

	return true
}

// Active returns the number of armed sessions
func (s *ScanService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// removeExpired drops idle sessions; caller holds s.mu
func (s *ScanService) removeExpired() {
	now := s.now()
	for id, session := range s.sessions {
		if now.Sub(session.lastSeen) > s.ttl {
			delete(s.sessions, id)
		}
	}
}
