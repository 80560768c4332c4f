package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	fetchRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sync_layer",
			Subsystem: "fetch",
			Name:      "requests_total",
			Help:      "Total number of snapshot fetches against the backend.",
		},
		[]string{"resource", "status"},
	)

	fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sync_layer",
			Subsystem: "fetch",
			Name:      "duration_seconds",
			Help:      "Duration of snapshot fetches.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"resource"},
	)

	feedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sync_layer",
			Subsystem: "feed",
			Name:      "events_total",
			Help:      "Total number of change feed events received.",
		},
		[]string{"resource", "type"},
	)

	feedDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sync_layer",
			Subsystem: "feed",
			Name:      "dropped_events_total",
			Help:      "Change feed events dropped because the queue was full.",
		},
		[]string{"resource"},
	)

	refreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sync_layer",
			Subsystem: "refresh",
			Name:      "runs_total",
			Help:      "Total number of coalesced refresh runs.",
		},
		[]string{"resource"},
	)

	staleRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sync_layer",
			Subsystem: "refresh",
			Name:      "stale_results_total",
			Help:      "Fetch results discarded because a newer fetch superseded them.",
		},
		[]string{"resource"},
	)

	cacheReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sync_layer",
			Subsystem: "cache",
			Name:      "reads_total",
			Help:      "Snapshot cache reads by outcome.",
		},
		[]string{"resource", "outcome"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sync_layer",
			Subsystem: "notify",
			Name:      "presented_total",
			Help:      "Transition notifications handed to the presenter.",
		},
		[]string{"resource", "status"},
	)
)

func init() {
	Registry.MustRegister(
		fetchRequests,
		fetchDuration,
		feedEvents,
		feedDropped,
		refreshes,
		staleRefreshes,
		cacheReads,
		notifications,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordFetch records one backend fetch.
func RecordFetch(resource, status string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	fetchRequests.WithLabelValues(resource, status).Inc()
	fetchDuration.WithLabelValues(resource).Observe(duration.Seconds())
}

// RecordFeedEvent records one received change feed event.
func RecordFeedEvent(resource, eventType string) {
	feedEvents.WithLabelValues(resource, eventType).Inc()
}

// RecordDroppedEvent records a change feed event lost to a full queue.
func RecordDroppedEvent(resource string) {
	feedDropped.WithLabelValues(resource).Inc()
}

// RecordRefresh records one coalesced refresh run.
func RecordRefresh(resource string) {
	refreshes.WithLabelValues(resource).Inc()
}

// RecordStaleRefresh records a fetch result that arrived after a newer one.
func RecordStaleRefresh(resource string) {
	staleRefreshes.WithLabelValues(resource).Inc()
}

// RecordCacheRead records a snapshot cache read. Outcome is hit, miss or
// corrupt.
func RecordCacheRead(resource, outcome string) {
	cacheReads.WithLabelValues(resource, outcome).Inc()
}

// RecordNotification records a transition notification shown to the user.
func RecordNotification(resource, status string) {
	notifications.WithLabelValues(resource, status).Inc()
}
