package api

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"income-predictor/internal/dataset"
	"income-predictor/internal/features"
	"income-predictor/internal/ml"
	"income-predictor/internal/storage"
)

// MockMetrics records calls made through MetricsInterface.
type MockMetrics struct {
	mu          sync.Mutex
	predictions int
	failures    map[string]int
	latencies   int
	scores      []float64
	requests    map[string]int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{failures: map[string]int{}, requests: map[string]int{}}
}

func (m *MockMetrics) PredictionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
}

func (m *MockMetrics) FailuresInc(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[reason]++
}

func (m *MockMetrics) LatencyObserve(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies++
}

func (m *MockMetrics) ScoreObserve(p float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores = append(m.scores, p)
}

func (m *MockMetrics) RequestObserve(route string, _ int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[route]++
}

func (m *MockMetrics) Failures(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[reason]
}

func (m *MockMetrics) Predictions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.predictions
}

func (m *MockMetrics) Requests(route string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[route]
}

// exampleBody is the request from the service documentation.
const exampleBody = `{"age":39,"workclass":"State-gov","education":"Bachelors","marital-status":"Never-married",` +
	`"occupation":"Adm-clerical","relationship":"Not-in-family","race":"White","gender":"Male",` +
	`"capital-gain":2174,"capital-loss":0,"hours-per-week":40}`

func pick(rnd *rand.Rand, values []string) string {
	return values[rnd.Intn(len(values))]
}

// testBundle fits a small forest on synthetic records where income depends
// on education, hours and capital gain.
func testBundle(t *testing.T, vocab features.Vocabulary) *storage.Bundle {
	t.Helper()

	enc := features.NewEncoder(vocab)
	rnd := rand.New(rand.NewSource(7))
	fixed := features.FixedVocabulary()

	var X [][]float64
	var y []int
	for i := 0; i < 300; i++ {
		in := features.Input{
			Age:           float64(18 + rnd.Intn(50)),
			Workclass:     pick(rnd, fixed[dataset.FieldWorkclass]),
			Education:     pick(rnd, fixed[dataset.FieldEducation]),
			MaritalStatus: pick(rnd, fixed[dataset.FieldMaritalStatus]),
			Occupation:    pick(rnd, fixed[dataset.FieldOccupation]),
			Relationship:  pick(rnd, fixed[dataset.FieldRelationship]),
			Race:          pick(rnd, fixed[dataset.FieldRace]),
			Gender:        pick(rnd, fixed[dataset.FieldGender]),
			CapitalGain:   float64(rnd.Intn(3) * 5000),
			HoursPerWeek:  float64(20 + rnd.Intn(40)),
		}
		vec, err := features.ServingVector(enc, in, features.EducationReject)
		require.NoError(t, err)

		label := 0
		if vec[features.IdxEducationalNum] >= 13 && in.HoursPerWeek >= 40 || in.CapitalGain >= 10000 {
			label = 1
		}
		X = append(X, vec)
		y = append(y, label)
	}

	var scaler features.Scaler
	require.NoError(t, scaler.Fit(features.NumericColumns(X)))
	require.NoError(t, scaler.ScaleVectors(X))

	forest := ml.NewRandomForest(ml.WithNEstimators(10))
	require.NoError(t, forest.Fit(context.Background(), X, y))
	importances, err := forest.FeatureImportances()
	require.NoError(t, err)
	ranked, err := ml.RankFeatures(features.FeatureNames, importances)
	require.NoError(t, err)

	return &storage.Bundle{
		Version:      "test-version",
		CreatedAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Features:     features.FeatureNames,
		Classes:      []string{"<=50K", ">50K"},
		Vocabulary:   vocab,
		Scaler:       scaler,
		Forest:       forest,
		Evaluation:   ml.Evaluation{Accuracy: 0.9},
		Importances:  ranked,
		TrainingRows: len(X),
	}
}

func newTestServer(t *testing.T, opts ServiceOptions) (*Server, *MockMetrics) {
	t.Helper()

	svc, err := NewService(testBundle(t, features.FixedVocabulary()), opts)
	require.NoError(t, err)

	m := NewMockMetrics()
	srv, err := NewServer(svc, m, nil, ServerConfig{Addr: ":0", ReadTimeout: time.Second, WriteTimeout: time.Second})
	require.NoError(t, err)
	return srv, m
}
