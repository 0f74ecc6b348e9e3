// Package observability exposes Prometheus metrics for the ingest pipeline
// and the HTTP boundary.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the counters fed by the ingest workers and the HTTP
// middleware. One instance per process, registered on a caller-supplied
// registry so tests stay isolated.
type Metrics struct {
	MessagesIngested     prometheus.Counter
	ConversationsCreated prometheus.Counter
	CreateRaceFallbacks  prometheus.Counter
	StaleResolveRetries  prometheus.Counter
	DuplicateDeliveries  prometheus.Counter
	IngestFailures       prometheus.Counter
	RequestDuration      *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "duochat_messages_ingested_total",
			Help: "Messages durably appended to a conversation.",
		}),
		ConversationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "duochat_conversations_created_total",
			Help: "Conversations created lazily on first message.",
		}),
		CreateRaceFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "duochat_create_race_fallbacks_total",
			Help: "Creations lost to a concurrent winner and degraded to append.",
		}),
		StaleResolveRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "duochat_stale_resolve_retries_total",
			Help: "Appends that hit a stale resolve and fell through to create.",
		}),
		DuplicateDeliveries: factory.NewCounter(prometheus.CounterOpts{
			Name: "duochat_duplicate_deliveries_total",
			Help: "Transport redeliveries dropped by the dedup key.",
		}),
		IngestFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "duochat_ingest_failures_total",
			Help: "Ingest attempts that surfaced a fatal store error.",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "duochat_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}
