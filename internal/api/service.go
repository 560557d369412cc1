// Package api serves income predictions over HTTP. The inference context is
// built once from a model bundle and shared read-only by every request.
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"income-predictor/internal/common"
	"income-predictor/internal/features"
	"income-predictor/internal/ml"
	"income-predictor/internal/storage"
)

// Vocabulary sources for the serving encoder.
const (
	VocabularyArtifact = "artifact"
	VocabularyFixed    = "fixed"
)

// ServiceOptions selects how requests are encoded.
type ServiceOptions struct {
	Vocabulary      string
	EducationPolicy features.EducationPolicy
}

// Prediction is the body of a successful /predict response.
type Prediction struct {
	Prediction  int     `json:"prediction"`
	Probability float64 `json:"probability"`
}

// ModelInfo describes the served bundle.
type ModelInfo struct {
	Version      string            `json:"version"`
	TrainedAt    time.Time         `json:"trained_at"`
	Features     []string          `json:"features"`
	Classes      []string          `json:"classes"`
	Accuracy     float64           `json:"accuracy"`
	TrainingRows int               `json:"training_rows"`
	Vocabulary   string            `json:"vocabulary"`
	Policy       string            `json:"education_policy"`
	Importances  []ml.FeatureScore `json:"feature_importances"`
}

// Service holds the immutable inference context.
type Service struct {
	encoder    *features.Encoder
	scaler     features.Scaler
	classifier ml.Classifier
	policy     features.EducationPolicy
	info       ModelInfo
}

// NewService builds the inference context from a validated bundle. It logs
// a warning for every category whose code differs between the fitted and
// fixed vocabularies.
func NewService(b *storage.Bundle, opts ServiceOptions) (*Service, error) {
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bundle: %w", err)
	}
	if len(b.Features) != features.NumFeatures {
		return nil, fmt.Errorf("bundle has %d features, want %d", len(b.Features), features.NumFeatures)
	}

	policy := opts.EducationPolicy
	if policy == "" {
		policy = features.EducationReject
	}

	fixed := features.FixedVocabulary()
	for _, d := range b.Vocabulary.Diff(fixed, features.EncodedFields) {
		log.Warn().
			Str("field", d.Field).
			Str("value", d.Value).
			Int("artifact_code", d.Left).
			Int("fixed_code", d.Right).
			Msg("Vocabulary divergence between trained model and fixed enumeration")
	}

	var vocab features.Vocabulary
	switch opts.Vocabulary {
	case "", VocabularyArtifact:
		vocab = b.Vocabulary
	case VocabularyFixed:
		vocab = fixed
	default:
		return nil, fmt.Errorf("unknown vocabulary source %q", opts.Vocabulary)
	}

	source := opts.Vocabulary
	if source == "" {
		source = VocabularyArtifact
	}

	return &Service{
		encoder:    features.NewEncoder(vocab),
		scaler:     b.Scaler,
		classifier: b.Forest,
		policy:     policy,
		info: ModelInfo{
			Version:      b.Version,
			TrainedAt:    b.CreatedAt,
			Features:     b.Features,
			Classes:      b.Classes,
			Accuracy:     b.Evaluation.Accuracy,
			TrainingRows: b.TrainingRows,
			Vocabulary:   source,
			Policy:       string(policy),
			Importances:  b.Importances,
		},
	}, nil
}

// Info returns metadata about the served model.
func (s *Service) Info() ModelInfo { return s.info }

// Vocabulary returns the values accepted for each categorical field.
func (s *Service) Vocabulary() features.Vocabulary { return s.encoder.Vocabulary() }

// Predict encodes, scales and classifies one input. A panic inside the
// pipeline is reported as ErrInternal.
func (s *Service) Predict(ctx context.Context, in features.Input) (pred Prediction, err error) {
	reqID := RequestIDFromContext(ctx)
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("request_id", reqID).Interface("panic", r).Msg("Prediction panicked")
			err = fmt.Errorf("%v: %w", r, common.ErrInternal)
		}
	}()

	vec, err := features.ServingVector(s.encoder, in, s.policy)
	if err != nil {
		return Prediction{}, err
	}
	log.Debug().Str("request_id", reqID).Floats64("vector", vec).Msg("Assembled feature vector")

	if err := s.scaler.ScaleVector(vec); err != nil {
		return Prediction{}, err
	}
	log.Debug().Str("request_id", reqID).Floats64("scaled", vec).Msg("Scaled numeric features")

	proba, err := s.classifier.PredictProba(vec)
	if err != nil {
		return Prediction{}, err
	}
	label := ml.Label(proba)
	log.Debug().
		Str("request_id", reqID).
		Int("prediction", label).
		Float64("probability", proba).
		Msg("Classified")

	return Prediction{Prediction: label, Probability: proba}, nil
}
