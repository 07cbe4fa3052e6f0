package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	Ticks             prometheus.Counter
	DueMessages       prometheus.Counter
	DeliverySuccesses prometheus.Counter
	DeliveryFailures  prometheus.Counter
	MissingOnMark     prometheus.Counter
	TickDuration      prometheus.Histogram
	StoredMessages    prometheus.Gauge
	PendingMessages   prometheus.Gauge
	DispatcherRunning prometheus.Gauge
}

// NewMetrics creates new Prometheus metrics registered with reg.
// A nil reg registers with the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Ticks: factory.NewCounter(prometheus.CounterOpts{
			Name: "message_scheduler_ticks_total",
			Help: "Total number of dispatcher ticks",
		}),
		DueMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "message_scheduler_due_messages_total",
			Help: "Total number of due messages found across ticks",
		}),
		DeliverySuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "message_scheduler_delivery_successes_total",
			Help: "Total number of successfully delivered messages",
		}),
		DeliveryFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "message_scheduler_delivery_failures_total",
			Help: "Total number of failed delivery attempts",
		}),
		MissingOnMark: factory.NewCounter(prometheus.CounterOpts{
			Name: "message_scheduler_missing_on_mark_total",
			Help: "Delivered messages that were deleted before they could be marked sent",
		}),
		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "message_scheduler_tick_duration_seconds",
			Help:    "Time spent in a dispatcher tick",
			Buckets: prometheus.DefBuckets,
		}),
		StoredMessages: factory.NewGauge(prometheus.GaugeOpts{
			Name: "message_scheduler_stored_messages",
			Help: "Number of messages in the store at the last tick",
		}),
		PendingMessages: factory.NewGauge(prometheus.GaugeOpts{
			Name: "message_scheduler_pending_messages",
			Help: "Number of scheduled, unsent messages at the last tick",
		}),
		DispatcherRunning: factory.NewGauge(prometheus.GaugeOpts{
			Name: "message_scheduler_dispatcher_running",
			Help: "1 while the dispatcher schedule is active",
		}),
	}
}
