// Package metrics provides the Prometheus collectors used across notedeck.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics counts config cache traffic.
type CacheMetrics struct {
	Hits          prometheus.Counter
	Misses        prometheus.Counter
	Invalidations prometheus.Counter
}

// ListingMetrics tracks note list rendering.
type ListingMetrics struct {
	Duration    prometheus.Histogram
	ResultCount prometheus.Gauge
	Clamped     prometheus.Counter
}

// CleanupMetrics tracks orphan attachment collection.
type CleanupMetrics struct {
	Deleted prometheus.Counter
	Errors  prometheus.Counter
}

// Metrics groups every collector so they can be registered at once.
type Metrics struct {
	Cache   *CacheMetrics
	Listing *ListingMetrics
	Cleanup *CleanupMetrics
}

// New creates all collectors and registers them on registry.
func New(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Cache: &CacheMetrics{
			Hits: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "notedeck_config_cache_hits_total",
				Help: "Config reads served from the in-process cache",
			}),
			Misses: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "notedeck_config_cache_misses_total",
				Help: "Config reads that went to the profile row",
			}),
			Invalidations: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "notedeck_config_cache_invalidations_total",
				Help: "Config cache entries dropped after a persisted write",
			}),
		},
		Listing: &ListingMetrics{
			Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "notedeck_listing_duration_seconds",
				Help:    "Time spent counting and fetching one page of notes",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
			}),
			ResultCount: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "notedeck_listing_result_count",
				Help: "Number of notes matching the last rendered filter",
			}),
			Clamped: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "notedeck_listing_clamped_total",
				Help: "Requests whose page fell outside the result set and were reset to page 1",
			}),
		},
		Cleanup: &CleanupMetrics{
			Deleted: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "notedeck_cleanup_deleted_attachments_total",
				Help: "Orphaned attachments removed by the cleanup worker",
			}),
			Errors: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "notedeck_cleanup_errors_total",
				Help: "Failed cleanup runs",
			}),
		},
	}

	collectors := []prometheus.Collector{
		m.Cache.Hits, m.Cache.Misses, m.Cache.Invalidations,
		m.Listing.Duration, m.Listing.ResultCount, m.Listing.Clamped,
		m.Cleanup.Deleted, m.Cleanup.Errors,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return m, nil
}
