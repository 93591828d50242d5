package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	snapshotFlushTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "snapshot",
		Name:      "flush_total",
		Help:      "Count of snapshot flush attempts.",
	}, []string{"status"})

	snapshotFlushDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "snapshot",
		Name:      "flush_duration_seconds",
		Help:      "Duration of a snapshot flush including retries.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"status"})

	snapshotFlushSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "snapshot",
		Name:      "flush_size",
		Help:      "Number of blocks written per flush.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})

	snapshotDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "snapshot",
		Name:      "dropped_blocks_total",
		Help:      "Count of committed blocks that could not be persisted.",
	})

	snapshotRestoredBlocks = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "snapshot",
		Name:      "restored_blocks",
		Help:      "Number of blocks loaded at the last restore.",
	})
)

// Snapshot tracks metrics for chain persistence.
type Snapshot struct{}

// NewSnapshot creates a Snapshot metrics collector.
func NewSnapshot() *Snapshot {
	return &Snapshot{}
}

// ObserveFlush records a flush of blocks to the repository.
func (m Snapshot) ObserveFlush(err error, blocks int, started time.Time) {
	s := status(err)
	snapshotFlushTotal.WithLabelValues(s).Inc()
	snapshotFlushDuration.WithLabelValues(s).Observe(time.Since(started).Seconds())
	snapshotFlushSize.Observe(float64(blocks))
}

// ObserveDropped counts blocks given up after retries.
func (m Snapshot) ObserveDropped(blocks int) {
	snapshotDroppedTotal.Add(float64(blocks))
}

// ObserveRestore records how many blocks a restore loaded.
func (m Snapshot) ObserveRestore(blocks int) {
	snapshotRestoredBlocks.Set(float64(blocks))
}
