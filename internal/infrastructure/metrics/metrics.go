// Package metrics holds the Prometheus collectors for product resolution and
// barcode scanning.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultBuckets are latency buckets in seconds
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10} //nolint: gochecknoglobals

// OutcomeNotFound labels resolutions where every source missed
const OutcomeNotFound = "not-found"

// Metrics groups the application collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	resolutions       *prometheus.CounterVec
	stageDuration     *prometheus.HistogramVec
	persistFailures   prometheus.Counter
	scanConfirmations prometheus.Counter
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "unpackeat",
			Name:      "resolutions_total",
			Help:      "Barcode resolutions by the source that answered.",
		}, []string{"source"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "unpackeat",
			Name:      "stage_duration_seconds",
			Help:      "Latency of each resolution stage lookup.",
			Buckets:   DefaultBuckets,
		}, []string{"source"}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "unpackeat",
			Name:      "persist_failures_total",
			Help:      "Upserts into the internal store that failed after a remote hit.",
		}),
		scanConfirmations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "unpackeat",
			Name:      "scan_confirmations_total",
			Help:      "Barcodes confirmed by scan sessions.",
		}),
	}

	reg.MustRegister(m.resolutions, m.stageDuration, m.persistFailures, m.scanConfirmations)

	return m
}

// ObserveResolution counts a finished resolution; source is a domain source or OutcomeNotFound
func (m *Metrics) ObserveResolution(source string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(source).Inc()
}

// ObserveStage records how long one stage lookup took
func (m *Metrics) ObserveStage(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Metrics) IncPersistFailure() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

func (m *Metrics) IncScanConfirmation() {
	if m == nil {
		return
	}
	m.scanConfirmations.Inc()
}
