package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ResourceWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clindocs_resource_writes_total",
			Help: "Total number of resource versions written",
		},
		[]string{"action"},
	)

	ImportEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clindocs_import_entries_total",
			Help: "Total number of bundle import entries processed",
		},
		[]string{"status"},
	)

	BundleParseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clindocs_bundle_parse_failures_total",
			Help: "Total number of bundles rejected as unparseable",
		},
	)

	ImportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clindocs_import_duration_seconds",
			Help:    "Time taken to import a bundle",
			Buckets: prometheus.DefBuckets,
		},
	)

	ExportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clindocs_export_duration_seconds",
			Help:    "Time taken to export a bundle",
			Buckets: prometheus.DefBuckets,
		},
	)
)
