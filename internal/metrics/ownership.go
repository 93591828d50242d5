package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ownershipSubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ownership",
		Name:      "submissions_total",
		Help:      "Count of star claim submissions by outcome.",
	}, []string{"network", "outcome"})

	ownershipSubmissionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ownership",
		Name:      "submission_duration_seconds",
		Help:      "Duration of handling a star claim submission.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"network", "outcome"})

	ownershipVerificationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ownership",
		Name:      "verification_duration_seconds",
		Help:      "Duration of signature verification.",
		Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05},
	}, []string{"network", "status"})
)

// Ownership tracks metrics for challenge admission.
type Ownership struct {
	network string
}

// NewOwnership constructs an Ownership collector labelled with network.
func NewOwnership(network string) *Ownership {
	if network == "" {
		network = "unknown"
	}
	return &Ownership{network: network}
}

// ObserveSubmission records a submission outcome and its duration.
func (m Ownership) ObserveSubmission(outcome string, started time.Time) {
	ownershipSubmissionsTotal.WithLabelValues(m.network, outcome).Inc()
	ownershipSubmissionDuration.WithLabelValues(m.network, outcome).Observe(time.Since(started).Seconds())
}

// ObserveVerification records a signature check.
func (m Ownership) ObserveVerification(err error, started time.Time) {
	ownershipVerificationDuration.WithLabelValues(m.network, status(err)).Observe(time.Since(started).Seconds())
}
