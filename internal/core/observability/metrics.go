// Package observability holds the prometheus collectors shared by the
// drawing engine, the storage layer and the HTTP surface.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"upstream", "status"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)

	sessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_transitions_total",
			Help: "Drawing session transitions by operation.",
		},
		[]string{"op"},
	)

	sessionRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_rejections_total",
			Help: "Rejected vertices, probes and edits by kind.",
		},
		[]string{"kind"},
	)

	containmentChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "containment_checks_total",
			Help: "Restriction lookups by result.",
		},
		[]string{"result"},
	)

	indexLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restriction_index_lookups_total",
			Help: "H3 candidate lookups by memo outcome.",
		},
		[]string{"memo"},
	)

	catalogueFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogue_fetch_total",
			Help: "Restriction catalogue loads by outcome.",
		},
		[]string{"outcome"},
	)

	refreshEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogue_refresh_events_total",
			Help: "Catalogue refresh events consumed by outcome.",
		},
		[]string{"outcome"},
	)

	drawnArea = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "drawn_area_hectares",
			Help:    "Total drawn area after each committed change.",
			Buckets: prometheus.ExponentialBuckets(0.1, 4, 12),
		},
	)

	storageOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_op_total",
			Help: "Storage operations by op and result.",
		},
		[]string{"op", "result"},
	)

	storageOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storage_operation_duration_seconds",
			Help:    "Duration of storage operations.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)
)

// Collectors lists the drawing collectors for a dedicated registry.
// Build info is left out; metrics.Provider registers its own.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDurationSeconds,
		upstreamLatencySeconds,
		sessionTransitions,
		sessionRejections,
		containmentChecks,
		indexLookups,
		catalogueFetches,
		refreshEvents,
		drawnArea,
		storageOps,
		storageOpDuration,
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstreamLatency(upstream string, status int, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(upstream, strconv.Itoa(status)).Observe(durationSeconds)
}

func ObserveTransition(op string) {
	sessionTransitions.WithLabelValues(op).Inc()
}

func ObserveRejection(kind string) {
	sessionRejections.WithLabelValues(kind).Inc()
}

func ObserveContainment(hit bool) {
	if hit {
		containmentChecks.WithLabelValues("inside").Inc()
		return
	}
	containmentChecks.WithLabelValues("outside").Inc()
}

func ObserveIndexLookup(memoHit bool) {
	if memoHit {
		indexLookups.WithLabelValues("hit").Inc()
		return
	}
	indexLookups.WithLabelValues("miss").Inc()
}

func ObserveCatalogueFetch(outcome string) {
	catalogueFetches.WithLabelValues(outcome).Inc()
}

func ObserveRefreshEvent(outcome string) {
	refreshEvents.WithLabelValues(outcome).Inc()
}

func ObserveDrawnArea(hectares float64) {
	drawnArea.Observe(hectares)
}

func ObserveStorageOp(op string, err error, durationSeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	storageOps.WithLabelValues(op, result).Inc()
	storageOpDuration.WithLabelValues(op).Observe(durationSeconds)
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
