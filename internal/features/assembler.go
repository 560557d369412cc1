package features

import (
	"fmt"

	"income-predictor/internal/dataset"
)

// FeatureNames is the column order of every vector the classifier sees.
var FeatureNames = []string{
	dataset.FieldAge,
	dataset.FieldWorkclass,
	dataset.FieldEducation,
	dataset.FieldEducationalNum,
	dataset.FieldMaritalStatus,
	dataset.FieldOccupation,
	dataset.FieldRelationship,
	dataset.FieldRace,
	dataset.FieldGender,
	dataset.FieldCapitalGain,
	dataset.FieldCapitalLoss,
	dataset.FieldHoursPerWeek,
}

// NumFeatures is the vector dimension.
const NumFeatures = 12

// Positions of the numeric slots in a feature vector.
const (
	IdxAge            = 0
	IdxEducationalNum = 3
	IdxCapitalGain    = 9
	IdxCapitalLoss    = 10
	IdxHoursPerWeek   = 11
)

// NumericIndices lists the slots the scaler touches, in scaler column order.
var NumericIndices = []int{IdxAge, IdxEducationalNum, IdxCapitalGain, IdxCapitalLoss, IdxHoursPerWeek}

// Input is one inference request. educational-num is not part of it; the
// service derives it from Education.
type Input struct {
	Age           float64 `json:"age"`
	Workclass     string  `json:"workclass"`
	Education     string  `json:"education"`
	MaritalStatus string  `json:"marital-status"`
	Occupation    string  `json:"occupation"`
	Relationship  string  `json:"relationship"`
	Race          string  `json:"race"`
	Gender        string  `json:"gender"`
	CapitalGain   float64 `json:"capital-gain"`
	CapitalLoss   float64 `json:"capital-loss"`
	HoursPerWeek  float64 `json:"hours-per-week"`
}

// Categorical returns the categorical values of in keyed by field.
func (in Input) Categorical() map[string]string {
	return map[string]string{
		dataset.FieldWorkclass:     in.Workclass,
		dataset.FieldEducation:     in.Education,
		dataset.FieldMaritalStatus: in.MaritalStatus,
		dataset.FieldOccupation:    in.Occupation,
		dataset.FieldRelationship:  in.Relationship,
		dataset.FieldRace:          in.Race,
		dataset.FieldGender:        in.Gender,
	}
}

// TrainingVector assembles the unscaled vector for a cleaned record,
// taking educational-num from the record itself.
func TrainingVector(enc *Encoder, rec dataset.Record) ([]float64, error) {
	return assemble(enc, rec.Categorical, [5]float64{
		rec.Numeric[dataset.FieldAge],
		rec.Numeric[dataset.FieldEducationalNum],
		rec.Numeric[dataset.FieldCapitalGain],
		rec.Numeric[dataset.FieldCapitalLoss],
		rec.Numeric[dataset.FieldHoursPerWeek],
	})
}

// ServingVector assembles the unscaled vector for a request. educational-num
// is derived from the education label under policy.
func ServingVector(enc *Encoder, in Input, policy EducationPolicy) ([]float64, error) {
	years, err := EducationYears(in.Education, policy)
	if err != nil {
		return nil, err
	}
	return assemble(enc, in.Categorical(), [5]float64{
		in.Age,
		float64(years),
		in.CapitalGain,
		in.CapitalLoss,
		in.HoursPerWeek,
	})
}

func assemble(enc *Encoder, cats map[string]string, numeric [5]float64) ([]float64, error) {
	vec := make([]float64, NumFeatures)
	for i, idx := range NumericIndices {
		vec[idx] = numeric[i]
	}
	for i, name := range FeatureNames {
		if isNumericSlot(i) {
			continue
		}
		code, err := enc.Encode(name, cats[name])
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		vec[i] = float64(code)
	}
	return vec, nil
}

func isNumericSlot(i int) bool {
	for _, idx := range NumericIndices {
		if idx == i {
			return true
		}
	}
	return false
}
