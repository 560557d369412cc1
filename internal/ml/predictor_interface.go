// Package ml provides the income classifier: a random forest of CART trees
// with soft voting, the evaluation report produced after training, and the
// feature importance export.
package ml

import "context"

// Classifier is the fit / predict / predict-probability contract the
// training pipeline and the inference service depend on.
type Classifier interface {
	// Fit trains on rows of X with binary labels y.
	Fit(ctx context.Context, X [][]float64, y []int) error

	// Predict returns the class label (0 or 1) for one feature vector.
	Predict(x []float64) (int, error)

	// PredictProba returns the probability of class 1 for one feature vector.
	PredictProba(x []float64) (float64, error)
}

var _ Classifier = (*RandomForest)(nil)
