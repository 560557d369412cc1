// Package metrics provides Prometheus metrics for the income prediction
// service: prediction counts, failures by reason, latency, score
// distribution, model age and HTTP responses.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors exposed on /metrics.
type Metrics struct {
	Predictions        prometheus.Counter       // Successful predictions
	PredictionFailures *prometheus.CounterVec   // Failed predictions by reason
	PredictionLatency  prometheus.Histogram     // End-to-end inference latency in seconds
	PredictionScores   prometheus.Histogram     // Distribution of class-1 probabilities
	ModelAge           prometheus.Gauge         // Seconds since the served bundle was trained
	ModelInfo          *prometheus.GaugeVec     // Constant 1 labelled with the served version
	HTTPRequests       *prometheus.CounterVec   // Responses by route and status code
	HTTPDuration       *prometheus.HistogramVec // Handler duration by route
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registerer (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		Predictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of successful income predictions",
		}),
		PredictionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Total number of failed prediction requests",
		}, []string{"reason"}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "Prediction latency in seconds",
			Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
		PredictionScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_scores",
			Help:    "Distribution of predicted probabilities for the >50K class",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_age_seconds",
			Help: "Age of the served model bundle in seconds",
		}),
		ModelInfo: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "model_info",
			Help: "Served model version",
		}, []string{"version"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP responses by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP handler duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}
