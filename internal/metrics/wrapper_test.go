package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWrapper(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	wrapper := NewWrapper(metrics)

	if wrapper == nil {
		t.Fatal("NewWrapper returned nil")
	}
	if wrapper.m != metrics {
		t.Error("Wrapper does not contain correct metrics instance")
	}
}

func TestMetricsWrapper_Predictions(t *testing.T) {
	metrics := NewWithRegistry(prometheus.NewRegistry())
	wrapper := NewWrapper(metrics)

	if v := testutil.ToFloat64(metrics.Predictions); v != 0 {
		t.Errorf("Expected initial counter value 0, got %f", v)
	}

	wrapper.PredictionsInc()
	wrapper.PredictionsInc()
	if v := testutil.ToFloat64(metrics.Predictions); v != 2 {
		t.Errorf("Expected counter value 2, got %f", v)
	}
}

func TestMetricsWrapper_Failures(t *testing.T) {
	metrics := NewWithRegistry(prometheus.NewRegistry())
	wrapper := NewWrapper(metrics)

	wrapper.FailuresInc("unknown_category")
	wrapper.FailuresInc("unknown_category")
	wrapper.FailuresInc("bad_request")

	if v := testutil.ToFloat64(metrics.PredictionFailures.WithLabelValues("unknown_category")); v != 2 {
		t.Errorf("Expected 2 unknown_category failures, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.PredictionFailures.WithLabelValues("bad_request")); v != 1 {
		t.Errorf("Expected 1 bad_request failure, got %f", v)
	}
}

func TestMetricsWrapper_Histograms(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	wrapper := NewWrapper(metrics)

	wrapper.LatencyObserve(2 * time.Millisecond)
	wrapper.ScoreObserve(0.73)
	wrapper.RequestObserve("/predict", 200, time.Millisecond)

	if n := testutil.CollectAndCount(metrics.PredictionLatency); n != 1 {
		t.Errorf("Expected 1 latency series, got %d", n)
	}
	if v := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("/predict", "200")); v != 1 {
		t.Errorf("Expected 1 request, got %f", v)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "prediction_scores" {
			found = true
			if c := mf.GetMetric()[0].GetHistogram().GetSampleCount(); c != 1 {
				t.Errorf("Expected 1 score sample, got %d", c)
			}
		}
	}
	if !found {
		t.Error("prediction_scores not registered")
	}
}

func TestMetricsWrapper_SetModel(t *testing.T) {
	metrics := NewWithRegistry(prometheus.NewRegistry())
	wrapper := NewWrapper(metrics)

	wrapper.SetModel("v1", time.Now().Add(-time.Hour))
	if age := testutil.ToFloat64(metrics.ModelAge); age < 3599 {
		t.Errorf("Expected model age of about an hour, got %f", age)
	}
	if v := testutil.ToFloat64(metrics.ModelInfo.WithLabelValues("v1")); v != 1 {
		t.Errorf("Expected model_info{version=v1} 1, got %f", v)
	}

	wrapper.SetModel("v2", time.Now())
	if n := testutil.CollectAndCount(metrics.ModelInfo); n != 1 {
		t.Errorf("Expected a single model_info series, got %d", n)
	}
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewWithRegistry(registry)

	defer func() {
		if recover() == nil {
			t.Error("Expected panic on duplicate registration")
		}
	}()
	NewWithRegistry(registry)
}
