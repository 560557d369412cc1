// Package train runs the offline pipeline that turns the census CSV into a
// persisted model bundle and evaluation reports.
package train

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"income-predictor/internal/dataset"
	"income-predictor/internal/features"
	"income-predictor/internal/ml"
	"income-predictor/internal/storage"
)

// Report file names written under Config.ReportPath.
const (
	ClassificationReportFile = "classification_report.txt"
	FeatureImportanceFile    = "feature_importance.json"
)

// Config controls one training run.
type Config struct {
	DataPath   string
	ModelPath  string
	ReportPath string // empty disables report files

	TestRatio       float64
	RandomState     int64
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int  // 0 selects sqrt(n_features)
	NoBootstrap     bool // fit every tree on the full training split
	Workers         int  // 0 uses GOMAXPROCS
}

// Prepared is a cleaned, encoded dataset ready for splitting.
type Prepared struct {
	X          [][]float64
	y          []int
	Classes    []string
	Vocabulary features.Vocabulary
}

// Prepare cleans ds in place, fits the vocabulary and encodes every row.
func Prepare(ds *dataset.Dataset) (*Prepared, error) {
	if ds.Len() == 0 {
		return nil, fmt.Errorf("dataset is empty")
	}
	if err := dataset.Clean(ds); err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}

	vocab, err := features.FitVocabulary(ds)
	if err != nil {
		return nil, fmt.Errorf("fit vocabulary: %w", err)
	}
	enc := features.NewEncoder(vocab)

	X := make([][]float64, ds.Len())
	for i, rec := range ds.Records {
		vec, err := features.TrainingVector(enc, rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		X[i] = vec
	}

	y, classes, err := dataset.EncodeLabels(ds.Labels())
	if err != nil {
		return nil, fmt.Errorf("encode labels: %w", err)
	}

	return &Prepared{X: X, y: y, Classes: classes, Vocabulary: vocab}, nil
}

// Fit splits, scales, trains and evaluates. The scaler only sees the
// training split.
func Fit(ctx context.Context, p *Prepared, cfg Config) (*storage.Bundle, error) {
	trainIdx, testIdx, err := ml.TrainTestSplit(len(p.X), cfg.TestRatio, cfg.RandomState)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	Xtrain, ytrain := ml.Take(p.X, p.y, trainIdx)
	Xtest, ytest := ml.Take(p.X, p.y, testIdx)
	Xtrain, Xtest = cloneRows(Xtrain), cloneRows(Xtest)

	var scaler features.Scaler
	if err := scaler.Fit(features.NumericColumns(Xtrain)); err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	if err := scaler.ScaleVectors(Xtrain); err != nil {
		return nil, fmt.Errorf("scale train split: %w", err)
	}
	if err := scaler.ScaleVectors(Xtest); err != nil {
		return nil, fmt.Errorf("scale test split: %w", err)
	}

	log.Info().
		Int("train_rows", len(Xtrain)).
		Int("test_rows", len(Xtest)).
		Int("trees", cfg.NEstimators).
		Msg("Fitting random forest")

	start := time.Now()
	forest := ml.NewRandomForest(
		ml.WithNEstimators(cfg.NEstimators),
		ml.WithMaxDepth(cfg.MaxDepth),
		ml.WithMinSamplesSplit(cfg.MinSamplesSplit),
		ml.WithMinSamplesLeaf(cfg.MinSamplesLeaf),
		ml.WithRandomState(cfg.RandomState),
		ml.WithMaxFeatures(cfg.MaxFeatures),
		ml.WithBootstrap(!cfg.NoBootstrap),
		ml.WithWorkers(cfg.Workers),
	)
	if err := forest.Fit(ctx, Xtrain, ytrain); err != nil {
		return nil, fmt.Errorf("fit forest: %w", err)
	}
	log.Info().Dur("elapsed", time.Since(start)).Msg("Random forest fitted")

	pred, err := forest.PredictBatch(Xtest)
	if err != nil {
		return nil, fmt.Errorf("predict test split: %w", err)
	}
	eval, err := ml.Evaluate(ytest, pred, p.Classes)
	if err != nil {
		return nil, err
	}

	importances, err := forest.FeatureImportances()
	if err != nil {
		return nil, err
	}
	ranked, err := ml.RankFeatures(features.FeatureNames, importances)
	if err != nil {
		return nil, err
	}

	return &storage.Bundle{
		CreatedAt:    time.Now().UTC(),
		Features:     features.FeatureNames,
		Classes:      p.Classes,
		Vocabulary:   p.Vocabulary,
		Scaler:       scaler,
		Forest:       forest,
		Evaluation:   eval,
		Importances:  ranked,
		TrainingRows: len(Xtrain),
	}, nil
}

// Run executes the whole pipeline and persists the bundle as the active
// version.
func Run(ctx context.Context, cfg Config) (*storage.Bundle, error) {
	ds, err := dataset.LoadFile(cfg.DataPath)
	if err != nil {
		return nil, err
	}

	prepared, err := Prepare(ds)
	if err != nil {
		return nil, err
	}

	bundle, err := Fit(ctx, prepared, cfg)
	if err != nil {
		return nil, err
	}

	log.Info().
		Float64("accuracy", bundle.Evaluation.Accuracy).
		Msg("Model evaluated")
	log.Info().Msg("Classification report:\n" + bundle.Evaluation.Report())

	store, err := storage.New(cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if err := store.SaveBundle(bundle); err != nil {
		return nil, fmt.Errorf("save bundle: %w", err)
	}
	log.Info().
		Str("version", bundle.Version).
		Str("path", cfg.ModelPath).
		Msg("Model bundle saved")

	if cfg.ReportPath != "" {
		if err := WriteReports(cfg.ReportPath, bundle); err != nil {
			return nil, err
		}
	}
	return bundle, nil
}

// WriteReports writes the classification report and ranked importances.
func WriteReports(dir string, b *storage.Bundle) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	report := fmt.Sprintf("model version: %s\naccuracy: %.4f\n\n%s",
		b.Version, b.Evaluation.Accuracy, b.Evaluation.Report())
	if err := os.WriteFile(filepath.Join(dir, ClassificationReportFile), []byte(report), 0o644); err != nil {
		return fmt.Errorf("failed to write classification report: %w", err)
	}

	if err := ml.SaveFeatureImportance(filepath.Join(dir, FeatureImportanceFile), b.Importances); err != nil {
		return err
	}

	log.Info().Str("dir", dir).Msg("Reports written")
	return nil
}

func cloneRows(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
