package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InferenceLatency measures one single-row model prediction
	InferenceLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "odorscope_inference_latency_seconds",
			Help:    "Inference latency in seconds",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		},
		[]string{"model_kind"},
	)

	// Analyses counts analysis requests by transport and outcome
	Analyses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "odorscope_analyses_total",
			Help: "Total number of analysis requests",
		},
		[]string{"transport", "outcome"},
	)

	// BestLabel counts how often each odor came out on top
	BestLabel = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "odorscope_best_label_total",
			Help: "Total number of analyses per most likely odor",
		},
		[]string{"label"},
	)

	// AssetsLoaded exposes the loaded model (1 = loaded, 0 = failed)
	AssetsLoaded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "odorscope_assets_loaded",
			Help: "Asset load state (1 = loaded, 0 = not loaded)",
		},
		[]string{"model_kind", "model_version"},
	)

	// CatalogSize exposes feature and label catalog lengths
	CatalogSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "odorscope_catalog_size",
			Help: "Number of entries in the feature and label catalogs",
		},
		[]string{"catalog"},
	)
)
