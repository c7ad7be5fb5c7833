package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DataChannelQueriesTotal counts provider queries by provider, query name and outcome.
	DataChannelQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "data_channel_queries_total",
			Help: "Total number of data provider queries run by the data channel",
		},
		[]string{"provider", "query", "outcome"},
	)

	DataChannelQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "data_channel_query_duration_seconds",
			Help:    "Duration of data provider queries in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15},
		},
		[]string{"provider", "query"},
	)

	DataChannelSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "data_channel_subscriptions",
			Help: "Number of live data channel subscriptions",
		},
	)

	DataChannelBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "data_channel_breaker_state",
			Help: "Circuit breaker state per provider (0=closed, 1=half-open, 2=open)",
		},
		[]string{"provider"},
	)

	WidgetInstances = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "widget_instances",
			Help: "Number of mounted widget instances",
		},
	)

	// IngestEventsTotal counts request events by pipeline stage (parsed, skipped, produced, stored, failed).
	IngestEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_events_total",
			Help: "Total number of request events handled by the ingestion pipeline",
		},
		[]string{"stage"},
	)

	IngestPlatformEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_platform_events_total",
			Help: "Total number of parsed request events by client platform",
		},
		[]string{"platform"},
	)
)

// RecordQuery records one provider query.
func RecordQuery(provider, query string, err error, elapsed time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	DataChannelQueriesTotal.WithLabelValues(provider, query, outcome).Inc()
	DataChannelQueryDuration.WithLabelValues(provider, query).Observe(elapsed.Seconds())
}
