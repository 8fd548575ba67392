package usecase

import (
	"strings"

	"github.com/unpackeat/backend/internal/domain"
)

// DefaultConfirmThreshold is the number of observations needed to confirm a barcode
const DefaultConfirmThreshold = 3

// DebouncerOption configures a Debouncer
type DebouncerOption func(*Debouncer)

// WithCandidateFilter replaces the check deciding whether a trimmed candidate
// is well formed. Rejected candidates are dropped without touching the tally.
func WithCandidateFilter(accept func(code string) bool) DebouncerOption {
	return func(d *Debouncer) {
		if accept != nil {
			d.accept = accept
		}
	}
}

// Debouncer turns a noisy stream of detections into single confirmations.
// Counts are cumulative for the session, so a candidate interleaved with
// misreads still wins once it reaches the threshold.
//
// A Debouncer is not safe for concurrent use; callers serialize Observe.
type Debouncer struct {
	threshold int
	tally     map[string]int
	accept    func(code string) bool
}

// NewDebouncer creates a debouncer; threshold <= 0 uses DefaultConfirmThreshold
func NewDebouncer(threshold int, opts ...DebouncerOption) *Debouncer {
	if threshold <= 0 {
		threshold = DefaultConfirmThreshold
	}

	d := &Debouncer{
		threshold: threshold,
		tally:     make(map[string]int),
		accept:    isDigits,
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Observe tallies one candidate. When the candidate reaches the threshold the
// whole tally is cleared and a confirmation is returned with ok set.
func (d *Debouncer) Observe(candidate string) (event domain.ConfirmationEvent, ok bool) {
	code := strings.TrimSpace(candidate)
	if !d.accept(code) {
		return domain.ConfirmationEvent{}, false
	}

	d.tally[code]++
	if d.tally[code] < d.threshold {
		return domain.ConfirmationEvent{}, false
	}

	clear(d.tally)
	return domain.ConfirmationEvent{Barcode: code}, true
}

// Reset discards all counts
func (d *Debouncer) Reset() {
	clear(d.tally)
}

// Pending returns the number of distinct candidates currently tallied
func (d *Debouncer) Pending() int {
	return len(d.tally)
}

// Threshold returns the effective confirmation threshold
func (d *Debouncer) Threshold() int {
	return d.threshold
}
