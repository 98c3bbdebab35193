package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PredictionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intent_api_prediction_duration_seconds",
			Help:    "End-to-end prediction pipeline duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"source"},
	)

	InferenceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "intent_api_inference_duration_seconds",
			Help:    "Model scoring duration in seconds",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
	)

	PredictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_api_predictions_total",
			Help: "Total number of predictions by outcome",
		},
		[]string{"status"},
	)

	PredictedIntents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_api_predicted_intents_total",
			Help: "Predictions per intent label",
		},
		[]string{"intent"},
	)

	ConfidenceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "intent_api_confidence_score",
			Help:    "Confidence of returned predictions",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	UnknownTokenRatio = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "intent_api_unknown_token_ratio",
			Help:    "Share of lemmas per request that fell back to <UNK>",
			Buckets: []float64{0, 0.1, 0.25, 0.5, 0.75, 1.0},
		},
	)

	FeedbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_api_feedback_total",
			Help: "Total feedback submissions by verdict",
		},
		[]string{"is_correct"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_api_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_api_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	PersistenceErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_api_persistence_errors_total",
			Help: "Failed writes to the query store",
		},
		[]string{"table"},
	)

	WebSocketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "intent_api_websocket_connections",
			Help: "Open websocket prediction streams",
		},
	)
)

var initOnce sync.Once

// Init registers the collectors with the default registry. Safe to call
// more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			PredictionDuration,
			InferenceDuration,
			PredictionsTotal,
			PredictedIntents,
			ConfidenceScore,
			UnknownTokenRatio,
			FeedbackTotal,
			CacheHits,
			CacheMisses,
			PersistenceErrors,
			WebSocketConnections,
		)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
