// Package metrics registers the Prometheus collectors for the viewer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	GeocodeRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aoiviewer_geocode_requests_total",
		Help: "Total geocode lookups issued",
	})
	GeocodeFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aoiviewer_geocode_fail_total",
		Help: "Total geocode lookups that failed",
	})
	GeocodeStaleTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aoiviewer_geocode_stale_total",
		Help: "Geocode responses dropped because a newer query was issued",
	})
	GeocodeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "aoiviewer_geocode_duration_ms",
		Help:    "Geocode request duration in milliseconds",
		Buckets: []float64{10, 25, 50, 100, 200, 500, 1000, 2500, 5000},
	})
	AOIsSavedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aoiviewer_aois_saved_total",
		Help: "Total AOIs saved",
	})
	AOIsRemovedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aoiviewer_aois_removed_total",
		Help: "Total AOIs removed",
	})
	StorageFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aoiviewer_storage_fail_total",
		Help: "Storage operations that failed and were swallowed",
	}, []string{"op"})
	OverlayFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aoiviewer_overlay_fail_total",
		Help: "Imagery overlay installs that failed",
	})
	ViewerSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "aoiviewer_sessions",
		Help: "Live viewer sessions",
	})
)

func init() {
	prometheus.MustRegister(
		GeocodeRequestsTotal,
		GeocodeFailTotal,
		GeocodeStaleTotal,
		GeocodeDurationMs,
		AOIsSavedTotal,
		AOIsRemovedTotal,
		StorageFailTotal,
		OverlayFailTotal,
		ViewerSessions,
	)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
