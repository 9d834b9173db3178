// Package metrics exposes the process's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FilesIngestedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoview_files_ingested_total",
		Help: "Uploaded files by detected format and outcome",
	}, []string{"format", "outcome"})
	IngestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geoview_ingest_duration_ms",
		Help:    "Time to decode one uploaded file in milliseconds",
		Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
	}, []string{"format"})
	LayersActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geoview_layers",
		Help: "Layers currently held by the registry",
	})
	LayerOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoview_layer_operations_total",
		Help: "Registry mutations by action",
	}, []string{"action"})
	SessionOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoview_session_operations_total",
		Help: "Session store operations by kind and outcome",
	}, []string{"op", "outcome"})
	TilesRenderedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoview_tiles_rendered_total",
		Help: "Vector tiles encoded for render handles",
	})
)

func init() {
	prometheus.MustRegister(FilesIngestedTotal)
	prometheus.MustRegister(IngestDurationMs)
	prometheus.MustRegister(LayersActive)
	prometheus.MustRegister(LayerOpsTotal)
	prometheus.MustRegister(SessionOpsTotal)
	prometheus.MustRegister(TilesRenderedTotal)
}

// Outcome labels a result as "ok" or "error".
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler serves the registered metrics for scraping.
func Handler() http.Handler { return promhttp.Handler() }
