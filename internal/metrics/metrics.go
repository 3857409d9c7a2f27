package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RowsNormalized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agrimet_rows_normalized_total",
			Help: "Total raw rows accepted by the normalizer",
		},
	)

	NormalizationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrimet_normalization_failures_total",
			Help: "Batches rejected by the normalizer",
		},
		[]string{"reason"},
	)

	CoercionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrimet_coercion_failures_total",
			Help: "Numeric cells that could not be parsed and were treated as missing",
		},
		[]string{"field"},
	)

	SentinelsReplaced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrimet_sentinels_replaced_total",
			Help: "Sentinel error codes (8888/9999) replaced with missing",
		},
		[]string{"field"},
	)

	CellsFilled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrimet_cells_filled_total",
			Help: "Missing cells filled by the fill policy",
		},
		[]string{"field", "policy"},
	)

	ForecastRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrimet_forecast_runs_total",
			Help: "Recursive forecast runs by outcome",
		},
		[]string{"outcome"},
	)

	PredictorLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agrimet_predictor_latency_seconds",
			Help:    "Latency of a single predictor call",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	DatasetCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrimet_dataset_cache_lookups_total",
			Help: "Dataset cache lookups by result (memory, redis, miss)",
		},
		[]string{"result"},
	)
)
