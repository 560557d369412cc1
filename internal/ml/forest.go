package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"income-predictor/internal/common"
)

// RandomForest is a bagged ensemble of CART trees using gini impurity.
// After Fit it is read-only and safe for concurrent prediction.
type RandomForest struct {
	NEstimators     int     `json:"n_estimators"`
	MaxDepth        int     `json:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split"`
	MinSamplesLeaf  int     `json:"min_samples_leaf"`
	MaxFeatures     int     `json:"max_features"`
	Bootstrap       bool    `json:"bootstrap"`
	RandomState     int64   `json:"random_state"`
	NFeatures       int     `json:"n_features"`
	Trees           []*Tree `json:"trees"`

	Importances []float64 `json:"feature_importances"`

	workers int
}

// RandomForestOption configures a RandomForest.
type RandomForestOption func(*RandomForest)

func WithNEstimators(n int) RandomForestOption { return func(rf *RandomForest) { rf.NEstimators = n } }
func WithMaxDepth(d int) RandomForestOption    { return func(rf *RandomForest) { rf.MaxDepth = d } }
func WithRandomState(s int64) RandomForestOption {
	return func(rf *RandomForest) { rf.RandomState = s }
}
func WithMinSamplesSplit(n int) RandomForestOption {
	return func(rf *RandomForest) { rf.MinSamplesSplit = n }
}
func WithMinSamplesLeaf(n int) RandomForestOption {
	return func(rf *RandomForest) { rf.MinSamplesLeaf = n }
}

// WithMaxFeatures sets the number of features considered per split.
// Zero selects sqrt(n_features).
func WithMaxFeatures(n int) RandomForestOption { return func(rf *RandomForest) { rf.MaxFeatures = n } }
func WithBootstrap(b bool) RandomForestOption  { return func(rf *RandomForest) { rf.Bootstrap = b } }

// WithWorkers limits how many trees are fitted concurrently.
func WithWorkers(n int) RandomForestOption { return func(rf *RandomForest) { rf.workers = n } }

// NewRandomForest returns an unfitted forest with 100 trees, bootstrap
// sampling, sqrt feature sampling, unlimited depth and seed 42.
func NewRandomForest(opts ...RandomForestOption) *RandomForest {
	rf := &RandomForest{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
		RandomState:     42,
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

// Fit trains every tree in parallel. Tree i is seeded with RandomState+i so
// the result does not depend on scheduling.
func (rf *RandomForest) Fit(ctx context.Context, X [][]float64, y []int) error {
	if len(X) == 0 {
		return errors.New("randomforest: empty X")
	}
	if len(y) != len(X) {
		return fmt.Errorf("randomforest: X has %d rows, y has %d", len(X), len(y))
	}
	if rf.NEstimators <= 0 {
		return fmt.Errorf("randomforest: n_estimators must be positive, got %d", rf.NEstimators)
	}
	nFeatures := len(X[0])
	for i, row := range X {
		if len(row) != nFeatures {
			return fmt.Errorf("randomforest: row %d has %d features, want %d", i, len(row), nFeatures)
		}
	}
	for i, label := range y {
		if label < 0 || label >= numClasses {
			return fmt.Errorf("randomforest: label %d at row %d is not binary", label, i)
		}
	}

	maxFeatures := rf.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Sqrt(float64(nFeatures)))
	}
	if maxFeatures < 1 {
		maxFeatures = 1
	}
	if maxFeatures > nFeatures {
		maxFeatures = nFeatures
	}
	params := treeParams{
		maxDepth:        rf.MaxDepth,
		minSamplesSplit: max(rf.MinSamplesSplit, 2),
		minSamplesLeaf:  max(rf.MinSamplesLeaf, 1),
		maxFeatures:     maxFeatures,
	}

	workers := rf.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	trees := make([]*Tree, rf.NEstimators)
	importances := make([][]float64, rf.NEstimators)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	n := len(X)
	for i := 0; i < rf.NEstimators; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rnd := rand.New(rand.NewSource(rf.RandomState + int64(i)))
			samples := make([]int, n)
			for j := range samples {
				if rf.Bootstrap {
					samples[j] = rnd.Intn(n)
				} else {
					samples[j] = j
				}
			}
			trees[i], importances[i] = buildTree(X, y, samples, params, rnd)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("randomforest: %w", err)
	}

	total := make([]float64, nFeatures)
	for _, imp := range importances {
		for j, v := range imp {
			total[j] += v
		}
	}
	var sum float64
	for _, v := range total {
		sum += v
	}
	if sum > 0 {
		for j := range total {
			total[j] /= sum
		}
	}

	rf.MaxFeatures = maxFeatures
	rf.NFeatures = nFeatures
	rf.Trees = trees
	rf.Importances = total
	return nil
}

// Fitted reports whether the forest can predict.
func (rf *RandomForest) Fitted() bool {
	return rf != nil && len(rf.Trees) > 0 && rf.NFeatures > 0
}

// Validate checks a loaded forest before it serves predictions.
func (rf *RandomForest) Validate() error {
	if !rf.Fitted() {
		return fmt.Errorf("randomforest: %w", common.ErrNotFitted)
	}
	for i, t := range rf.Trees {
		if err := t.validate(rf.NFeatures); err != nil {
			return fmt.Errorf("randomforest: tree %d: %w", i, err)
		}
	}
	return nil
}

// PredictProba averages the class-1 leaf fraction across trees.
func (rf *RandomForest) PredictProba(x []float64) (float64, error) {
	if !rf.Fitted() {
		return 0, fmt.Errorf("randomforest: %w", common.ErrNotFitted)
	}
	if len(x) != rf.NFeatures {
		return 0, fmt.Errorf("randomforest: got %d features, want %d", len(x), rf.NFeatures)
	}
	var sum float64
	for _, t := range rf.Trees {
		sum += t.proba(x)
	}
	return sum / float64(len(rf.Trees)), nil
}

// Predict returns 1 when the class-1 probability is strictly greater than
// the class-0 probability.
func (rf *RandomForest) Predict(x []float64) (int, error) {
	p, err := rf.PredictProba(x)
	if err != nil {
		return 0, err
	}
	return Label(p), nil
}

// Label converts a class-1 probability into a class label.
func Label(p float64) int {
	if p > 0.5 {
		return 1
	}
	return 0
}

// PredictBatch predicts every row of X.
func (rf *RandomForest) PredictBatch(X [][]float64) ([]int, error) {
	out := make([]int, len(X))
	for i, x := range X {
		label, err := rf.Predict(x)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = label
	}
	return out, nil
}

// FeatureImportances returns the normalized mean decrease in impurity per
// feature.
func (rf *RandomForest) FeatureImportances() ([]float64, error) {
	if !rf.Fitted() {
		return nil, fmt.Errorf("randomforest: %w", common.ErrNotFitted)
	}
	return append([]float64(nil), rf.Importances...), nil
}
