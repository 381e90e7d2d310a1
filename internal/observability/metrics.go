// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Feed metrics
	TokensIndexed      *prometheus.CounterVec
	FeedEventsMalformed *prometheus.CounterVec
	FeedReconnects     *prometheus.CounterVec
	IndexSize          prometheus.Gauge
	IndexEvictions     prometheus.Counter
	IndexRepairs       prometheus.Counter
	MirrorFlushErrors  prometheus.Counter

	// Chat metrics
	MessagesReceived  *prometheus.CounterVec
	MessagesDropped   prometheus.Counter
	SessionsFailed    *prometheus.CounterVec
	SessionReconnects *prometheus.CounterVec

	// Extraction metrics
	ExtractionLatency prometheus.Histogram
	TokensExtracted   *prometheus.CounterVec
	LookupFallbacks   prometheus.Counter
	LookupErrors      prometheus.Counter

	// Dispatch metrics
	Dispatches     *prometheus.CounterVec
	DedupRecords   prometheus.Gauge
	GatewayLatency prometheus.Histogram
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "mintsniper"
	}

	return &Metrics{
		TokensIndexed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "tokens_indexed_total",
			Help:      "Total number of token addresses inserted into the index",
		}, []string{"venue"}),
		FeedEventsMalformed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "events_malformed_total",
			Help:      "Total number of feed events dropped as malformed",
		}, []string{"venue"}),
		FeedReconnects: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Total number of feed stream reconnect attempts",
		}, []string{"venue"}),
		IndexSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "addresses",
			Help:      "Number of addresses currently held in the shard index",
		}),
		IndexEvictions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "evictions_total",
			Help:      "Total number of addresses evicted by the age policy",
		}),
		IndexRepairs: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "repairs_total",
			Help:      "Total number of shard entry rebuilds after invariant violations",
		}),
		MirrorFlushErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "mirror_flush_errors_total",
			Help:      "Total number of failed mirror flushes",
		}),

		MessagesReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "messages_received_total",
			Help:      "Total number of chat messages received",
		}, []string{"platform"}),
		MessagesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "messages_dropped_total",
			Help:      "Total number of messages dropped by the bounded queue",
		}),
		SessionsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "sessions_failed_total",
			Help:      "Total number of sessions terminated by permanent auth failure",
		}, []string{"platform"}),
		SessionReconnects: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "session_reconnects_total",
			Help:      "Total number of chat session reconnect attempts",
		}, []string{"platform"}),

		ExtractionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "latency_seconds",
			Help:      "Latency of message extraction",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		TokensExtracted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "tokens_total",
			Help:      "Total number of confirmed token extractions",
		}, []string{"method"}),
		LookupFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "lookup_fallbacks_total",
			Help:      "Total number of external lookup fallback calls",
		}),
		LookupErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "lookup_errors_total",
			Help:      "Total number of failed external lookup calls",
		}),

		Dispatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "decisions_total",
			Help:      "Total number of dispatch decisions by outcome",
		}, []string{"outcome"}),
		DedupRecords: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "dedup_records",
			Help:      "Number of live dedup records",
		}),
		GatewayLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "gateway_latency_seconds",
			Help:      "Latency of buy gateway calls",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
}

// Handler returns the HTTP handler serving the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
