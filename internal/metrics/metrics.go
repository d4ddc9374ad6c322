package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	ScheduledTotal  prometheus.Counter
	CancelledTotal  prometheus.Counter
	DeliveriesTotal *prometheus.CounterVec
	DeliveryLatency prometheus.Histogram
	TimersPending   prometheus.Gauge
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScheduledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_scheduled_total",
			Help: "Total number of schedule operations (including replacements).",
		}),

		CancelledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobs_cancelled_total",
			Help: "Total number of successfully cancelled jobs.",
		}),

		DeliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deliveries_total",
			Help: "Delivery attempts by terminal outcome.",
		}, []string{"outcome"}),

		DeliveryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "delivery_seconds",
			Help:    "Delivery action latency from timer fire to terminal outcome.",
			Buckets: prometheus.DefBuckets,
		}),

		TimersPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timers_pending",
			Help: "Current number of pending one-shot timers in the store.",
		}),
	}

	reg.MustRegister(
		m.ScheduledTotal,
		m.CancelledTotal,
		m.DeliveriesTotal,
		m.DeliveryLatency,
		m.TimersPending,
	)

	return m
}

// DispatchHooks returns the metric callback functions expected by the
// dispatch engine. Centralises the prometheus observation calls so the
// worker package stays free of metric imports.
func (m *Metrics) DispatchHooks() (
	onDelivery func(outcome string, latency time.Duration),
	onPending func(count int),
) {
	onDelivery = func(outcome string, latency time.Duration) {
		m.DeliveriesTotal.WithLabelValues(outcome).Inc()
		m.DeliveryLatency.Observe(latency.Seconds())
	}
	onPending = func(count int) {
		m.TimersPending.Set(float64(count))
	}
	return
}
