package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records delivery pipeline activity.
type SyncMetrics struct {
	ticks      *prometheus.CounterVec
	deliveries *prometheus.CounterVec
	duration   prometheus.Histogram
	queueDepth prometheus.Gauge
}

// NewSyncMetrics registers the sync worker metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	ticks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "erpsync_ticks_total",
		Help: "Worker ticks by outcome (run, skipped, empty, error).",
	}, []string{"outcome"})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "erpsync_deliveries_total",
		Help: "Delivery attempts by outcome (sent, transient_failure, permanent_failure).",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "erpsync_delivery_duration_seconds",
		Help:    "Duration of individual delivery attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "erpsync_due_events",
		Help: "Number of due events observed at the start of the last tick.",
	})
	reg.MustRegister(ticks, deliveries, duration, queueDepth)
	return &SyncMetrics{
		ticks:      ticks,
		deliveries: deliveries,
		duration:   duration,
		queueDepth: queueDepth,
	}
}

// IncTick increments the tick counter for the given outcome.
func (s *SyncMetrics) IncTick(outcome string) {
	if s == nil || s.ticks == nil {
		return
	}
	s.ticks.WithLabelValues(outcome).Inc()
}

// IncDelivery increments the delivery counter for the given outcome.
func (s *SyncMetrics) IncDelivery(outcome string) {
	if s == nil || s.deliveries == nil {
		return
	}
	s.deliveries.WithLabelValues(outcome).Inc()
}

// ObserveDelivery records the duration of one delivery attempt.
func (s *SyncMetrics) ObserveDelivery(duration time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	s.duration.Observe(duration.Seconds())
}

// SetQueueDepth records how many events were due at tick start.
func (s *SyncMetrics) SetQueueDepth(n int) {
	if s == nil || s.queueDepth == nil {
		return
	}
	s.queueDepth.Set(float64(n))
}
