package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the bridge's Prometheus instruments.
type Metrics struct {
	MessagesSent     prometheus.Counter
	MessagesReceived prometheus.Counter
	MessagesDropped  prometheus.Counter
	Reconnects       prometheus.Counter
	ChannelErrors    prometheus.Counter

	ConnectionState prometheus.Gauge
	QueueDepth      prometheus.Gauge
	Healthy         prometheus.Gauge
	LatencyMillis   prometheus.Gauge
}

// Config tunes metric registration.
type Config struct {
	// Namespace is the metrics namespace (default: "bridge").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// New registers the bridge instruments on the configured registry.
func New(cfg Config) *Metrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "bridge"
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(cfg.Registry)

	return &Metrics{
		MessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "messages_sent_total",
			Help:        "Total envelopes sent over the channel",
			ConstLabels: cfg.ConstLabels,
		}),
		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "messages_received_total",
			Help:        "Total envelopes received over the channel",
			ConstLabels: cfg.ConstLabels,
		}),
		MessagesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "messages_dropped_total",
			Help:        "Total envelopes dropped by the outbound queue",
			ConstLabels: cfg.ConstLabels,
		}),
		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "reconnects_total",
			Help:        "Total reconnection attempts",
			ConstLabels: cfg.ConstLabels,
		}),
		ChannelErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "channel_errors_total",
			Help:        "Total channel errors reported",
			ConstLabels: cfg.ConstLabels,
		}),
		ConnectionState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "connection_state",
			Help:        "Channel state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting, 4=error)",
			ConstLabels: cfg.ConstLabels,
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "queue_depth",
			Help:        "Envelopes waiting in the outbound queue",
			ConstLabels: cfg.ConstLabels,
		}),
		Healthy: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "healthy",
			Help:        "Heartbeat health (1=healthy, 0=unhealthy)",
			ConstLabels: cfg.ConstLabels,
		}),
		LatencyMillis: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "heartbeat_latency_ms",
			Help:        "Last observed heartbeat round-trip latency in milliseconds",
			ConstLabels: cfg.ConstLabels,
		}),
	}
}

// StateValue maps a channel state name to its gauge value.
func StateValue(state string) float64 {
	switch state {
	case "connecting":
		return 1
	case "connected":
		return 2
	case "reconnecting":
		return 3
	case "error":
		return 4
	default:
		return 0
	}
}
