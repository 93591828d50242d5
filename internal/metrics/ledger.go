package metrics

import (
	"time"

	"github.com/goodnatureofminers/starregistry/internal/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ledgerAppendTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "append_total",
		Help:      "Count of append attempts.",
	}, []string{"status"})

	ledgerAppendDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "append_duration_seconds",
		Help:      "Duration of an append including its chain validation.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"status"})

	ledgerHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "height",
		Help:      "Height of the latest committed block.",
	})

	ledgerValidationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "validation_duration_seconds",
		Help:      "Duration of a full chain validation.",
		Buckets:   prometheus.DefBuckets,
	})

	ledgerValidationIssuesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "validation_issues_total",
		Help:      "Count of integrity issues reported by chain validation.",
	}, []string{"kind"})

	ledgerDecodeFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "decode_failures_total",
		Help:      "Count of block bodies that could not be decoded.",
	})
)

// Ledger tracks metrics for the block store.
type Ledger struct{}

// NewLedger creates a Ledger metrics collector.
func NewLedger() *Ledger {
	return &Ledger{}
}

// ObserveAppend records the outcome and duration of an append.
func (m Ledger) ObserveAppend(err error, started time.Time) {
	s := status(err)
	ledgerAppendTotal.WithLabelValues(s).Inc()
	ledgerAppendDuration.WithLabelValues(s).Observe(time.Since(started).Seconds())
}

// ObserveHeight records the latest committed height.
func (m Ledger) ObserveHeight(height uint64) {
	ledgerHeight.Set(float64(height))
}

// ObserveValidation records a validation pass and the issues it found.
func (m Ledger) ObserveValidation(issues []ledger.Issue, started time.Time) {
	ledgerValidationDuration.Observe(time.Since(started).Seconds())
	for _, issue := range issues {
		ledgerValidationIssuesTotal.WithLabelValues(string(issue.Kind)).Inc()
	}
}

// ObserveDecodeFailure counts a body that failed to decode.
func (m Ledger) ObserveDecodeFailure() {
	ledgerDecodeFailuresTotal.Inc()
}
