package metrics

import (
	"strconv"
	"time"
)

// MetricsWrapper adapts Metrics to the narrow interface the HTTP layer uses.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) PredictionsInc() {
	w.m.Predictions.Inc()
}

func (w *MetricsWrapper) FailuresInc(reason string) {
	w.m.PredictionFailures.WithLabelValues(reason).Inc()
}

func (w *MetricsWrapper) LatencyObserve(d time.Duration) {
	w.m.PredictionLatency.Observe(d.Seconds())
}

func (w *MetricsWrapper) ScoreObserve(p float64) {
	w.m.PredictionScores.Observe(p)
}

func (w *MetricsWrapper) RequestObserve(route string, code int, d time.Duration) {
	w.m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	w.m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

// SetModel records the served version and its training time.
func (w *MetricsWrapper) SetModel(version string, trainedAt time.Time) {
	w.m.ModelInfo.Reset()
	w.m.ModelInfo.WithLabelValues(version).Set(1)
	w.m.ModelAge.Set(time.Since(trainedAt).Seconds())
}

// RefreshModelAge updates model_age_seconds from trainedAt.
func (w *MetricsWrapper) RefreshModelAge(trainedAt time.Time) {
	w.m.ModelAge.Set(time.Since(trainedAt).Seconds())
}
