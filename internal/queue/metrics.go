package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	// dispatched counts commands sent to the authority
	dispatched prometheus.Counter
	confirmed  prometheus.Counter
	rejected   prometheus.Counter
	// discarded counts queued commands dropped by a rollback without being sent
	discarded prometheus.Counter
	mapped    *prometheus.CounterVec
	depth     prometheus.Gauge
	duration  prometheus.Histogram
}

// newMetrics creates the queue collectors. A nil registerer leaves them unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		dispatched: f.NewCounter(prometheus.CounterOpts{
			Name: "schemasync_commands_dispatched_total",
			Help: "Commands sent to the authority",
		}),
		confirmed: f.NewCounter(prometheus.CounterOpts{
			Name: "schemasync_commands_confirmed_total",
			Help: "Commands accepted by the authority",
		}),
		rejected: f.NewCounter(prometheus.CounterOpts{
			Name: "schemasync_commands_rejected_total",
			Help: "Commands that failed and caused a rollback",
		}),
		discarded: f.NewCounter(prometheus.CounterOpts{
			Name: "schemasync_commands_discarded_total",
			Help: "Queued commands dropped by a rollback",
		}),
		mapped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "schemasync_identifiers_mapped_total",
			Help: "Provisional identifiers resolved, by entity type",
		}, []string{"entity_type"}),
		depth: f.NewGauge(prometheus.GaugeOpts{
			Name: "schemasync_queue_depth",
			Help: "Commands waiting or in flight",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "schemasync_remote_duration_seconds",
			Help:    "Authority round trip duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
		}),
	}
}
