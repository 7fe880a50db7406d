// Package metrics exposes prometheus instrumentation for probe traffic,
// resolution passes, and the sharing cache.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SharingProbesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "civquest_sharing_probes_total",
		Help: "Total number of sharing batch probes against the platform",
	})
	SharingProbeItemsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "civquest_sharing_probe_items_total",
		Help: "Total number of item lookups issued by the sharing prober",
	})
	SharingProbeFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "civquest_sharing_probe_failures_total",
		Help: "Total item lookups that failed and degraded to non-public",
	})
	SharingProbeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "civquest_sharing_probe_duration_ms",
		Help:    "Sharing batch probe duration in milliseconds",
		Buckets: []float64{5, 10, 20, 50, 100, 200, 500, 1000, 2500, 5000},
	})
	DelegatedProbesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "civquest_delegated_probes_total",
		Help: "Total number of delegated-access batch probes",
	})
	DelegatedProbeFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "civquest_delegated_probe_failures_total",
		Help: "Total delegated-access lookups that failed closed",
	})
	ResolutionPassesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "civquest_resolution_passes_total",
		Help: "Total visibility resolution passes started",
	})
	ResolutionDiscardedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "civquest_resolution_discarded_total",
		Help: "Resolution passes discarded because a newer snapshot superseded them",
	})
	ResolutionDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "civquest_resolution_duration_ms",
		Help:    "Visibility resolution pass duration in milliseconds",
		Buckets: []float64{5, 10, 20, 50, 100, 200, 500, 1000, 2500, 5000},
	})
	SharingCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "civquest_sharing_cache_hits_total",
		Help: "Total sharing cache hits",
	})
	SharingCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "civquest_sharing_cache_misses_total",
		Help: "Total sharing cache misses",
	})
	StreamClientsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "civquest_stream_clients",
		Help: "Currently connected visibility stream clients",
	})
)

// Register installs all collectors on the default registry.
func Register() {
	prometheus.MustRegister(
		SharingProbesTotal,
		SharingProbeItemsTotal,
		SharingProbeFailuresTotal,
		SharingProbeDurationMs,
		DelegatedProbesTotal,
		DelegatedProbeFailuresTotal,
		ResolutionPassesTotal,
		ResolutionDiscardedTotal,
		ResolutionDurationMs,
		SharingCacheHitsTotal,
		SharingCacheMissesTotal,
		StreamClientsGauge,
	)
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
