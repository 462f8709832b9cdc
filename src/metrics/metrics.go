package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the streamer's Prometheus collectors.
type Metrics struct {
	Connections      prometheus.Gauge
	TicksGenerated   prometheus.Counter
	MessagesSent     *prometheus.CounterVec
	ValidationErrors prometheus.Counter
	SlowConsumers    prometheus.Counter
	ArchiveDropped   prometheus.Counter
	EvictedStates    prometheus.Counter
	TickCycle        prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "streamer_connections",
			Help: "Currently open client connections.",
		}),
		TicksGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamer_ticks_generated_total",
			Help: "Simulated ticks produced by the engine.",
		}),
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streamer_messages_sent_total",
			Help: "Outbound messages queued to clients, by message type.",
		}, []string{"type"}),
		ValidationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamer_validation_errors_total",
			Help: "Rejected subscribe/unsubscribe payloads.",
		}),
		SlowConsumers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamer_slow_consumers_total",
			Help: "Connections dropped because their send buffer was full.",
		}),
		ArchiveDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamer_archive_dropped_batches_total",
			Help: "Tick batches not archived because the writer queue was full.",
		}),
		EvictedStates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamer_evicted_states_total",
			Help: "Idle symbol states removed from the engine.",
		}),
		TickCycle: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "streamer_tick_cycle_seconds",
			Help:    "Duration of one generate-and-fan-out cycle.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}

	reg.MustRegister(
		m.Connections,
		m.TicksGenerated,
		m.MessagesSent,
		m.ValidationErrors,
		m.SlowConsumers,
		m.ArchiveDropped,
		m.EvictedStates,
		m.TickCycle,
	)
	return m
}

// NewUnregistered is used by tests that do not scrape.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
