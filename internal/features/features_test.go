package features

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"income-predictor/internal/common"
	"income-predictor/internal/dataset"
)

func exampleInput() Input {
	return Input{
		Age:           39,
		Workclass:     "State-gov",
		Education:     "Bachelors",
		MaritalStatus: "Never-married",
		Occupation:    "Adm-clerical",
		Relationship:  "Not-in-family",
		Race:          "White",
		Gender:        "Male",
		CapitalGain:   2174,
		CapitalLoss:   0,
		HoursPerWeek:  40,
	}
}

func TestFixedVocabularyIsSorted(t *testing.T) {
	v := FixedVocabulary()
	assert.Equal(t, []string{"Female", "Male"}, v[dataset.FieldGender])
	assert.Equal(t, []string{
		"Federal-gov", "Local-gov", "Private", "Self-emp-inc", "Self-emp-not-inc", "State-gov",
	}, v[dataset.FieldWorkclass])
	// ordinal ordering puts digits before letters
	assert.Equal(t, "10th", v[dataset.FieldEducation][0])
	assert.Len(t, v[dataset.FieldEducation], 16)
	for _, f := range EncodedFields {
		assert.NotEmpty(t, v[f], f)
	}
}

func TestFitVocabulary(t *testing.T) {
	ds := &dataset.Dataset{}
	for _, race := range []string{"White", "Black", "White", "Asian-Pac-Islander"} {
		cats := map[string]string{}
		for _, f := range dataset.CategoricalFields {
			cats[f] = "x"
		}
		cats[dataset.FieldRace] = race
		ds.Records = append(ds.Records, dataset.Record{Categorical: cats})
	}

	v, err := FitVocabulary(ds)
	require.NoError(t, err)
	assert.Equal(t, []string{"Asian-Pac-Islander", "Black", "White"}, v[dataset.FieldRace])
	assert.Equal(t, []string{"x"}, v[dataset.FieldNativeCountry])

	ds.Records[0].Categorical[dataset.FieldGender] = ""
	_, err = FitVocabulary(ds)
	assert.Error(t, err)
}

func TestEncoder(t *testing.T) {
	enc := NewEncoder(FixedVocabulary())

	code, err := enc.Encode(dataset.FieldGender, "Male")
	require.NoError(t, err)
	assert.Equal(t, 1, code)

	code, err = enc.Encode(dataset.FieldRace, "White")
	require.NoError(t, err)
	assert.Equal(t, 4, code)

	_, err = enc.Encode(dataset.FieldWorkclass, "Martian")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUnknownCategory))
	assert.Contains(t, err.Error(), "Martian")

	_, err = enc.Encode("native-language", "en")
	assert.ErrorIs(t, err, common.ErrUnknownCategory)

	// the encoder keeps its own copy
	vocab := enc.Vocabulary()
	vocab[dataset.FieldGender][0] = "changed"
	code, err = enc.Encode(dataset.FieldGender, "Female")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}

func TestVocabularyDiff(t *testing.T) {
	fixed := FixedVocabulary()
	fitted := FixedVocabulary()
	fitted[dataset.FieldWorkclass] = append(fitted[dataset.FieldWorkclass], "Without-pay")
	fitted = fitted.Sorted()

	diffs := fixed.Diff(fitted, EncodedFields)
	require.NotEmpty(t, diffs)
	found := false
	for _, d := range diffs {
		assert.Equal(t, dataset.FieldWorkclass, d.Field)
		if d.Value == "Without-pay" {
			found = true
			assert.Equal(t, -1, d.Left)
			assert.Equal(t, 6, d.Right)
		}
	}
	assert.True(t, found)

	assert.Empty(t, fixed.Diff(FixedVocabulary(), EncodedFields))
}

func TestEducationYears(t *testing.T) {
	years, err := EducationYears("Bachelors", EducationReject)
	require.NoError(t, err)
	assert.Equal(t, 13, years)

	years, err = EducationYears("Preschool", EducationReject)
	require.NoError(t, err)
	assert.Equal(t, 1, years)

	_, err = EducationYears("Kindergarten", EducationReject)
	assert.ErrorIs(t, err, common.ErrUnknownCategory)

	years, err = EducationYears("Kindergarten", EducationDefault)
	require.NoError(t, err)
	assert.Equal(t, DefaultEducationYears, years)
}

func TestParseEducationPolicy(t *testing.T) {
	p, err := ParseEducationPolicy("")
	require.NoError(t, err)
	assert.Equal(t, EducationReject, p)

	p, err = ParseEducationPolicy("default")
	require.NoError(t, err)
	assert.Equal(t, EducationDefault, p)

	_, err = ParseEducationPolicy("guess")
	assert.Error(t, err)
}

func TestServingVector(t *testing.T) {
	enc := NewEncoder(FixedVocabulary())
	vec, err := ServingVector(enc, exampleInput(), EducationReject)
	require.NoError(t, err)
	require.Len(t, vec, NumFeatures)

	assert.Equal(t, 39.0, vec[IdxAge])
	assert.Equal(t, 13.0, vec[IdxEducationalNum])
	assert.Equal(t, 2174.0, vec[IdxCapitalGain])
	assert.Equal(t, 40.0, vec[IdxHoursPerWeek])
	assert.Equal(t, 5.0, vec[1], "State-gov")
	assert.Equal(t, 1.0, vec[8], "Male")

	in := exampleInput()
	in.Occupation = "Astronaut"
	_, err = ServingVector(enc, in, EducationReject)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Astronaut")
}

func TestTrainingVectorUsesRecordEducationNum(t *testing.T) {
	enc := NewEncoder(FixedVocabulary())
	in := exampleInput()
	rec := dataset.Record{
		Numeric: map[string]float64{
			dataset.FieldAge:            in.Age,
			dataset.FieldEducationalNum: 12,
			dataset.FieldCapitalGain:    in.CapitalGain,
			dataset.FieldCapitalLoss:    in.CapitalLoss,
			dataset.FieldHoursPerWeek:   in.HoursPerWeek,
		},
		Categorical: in.Categorical(),
	}
	vec, err := TrainingVector(enc, rec)
	require.NoError(t, err)
	assert.Equal(t, 12.0, vec[IdxEducationalNum])
}

func TestScaler(t *testing.T) {
	rows := [][]float64{
		{1, 10, 5},
		{2, 20, 5},
		{3, 30, 5},
		{4, 40, 5},
	}
	var s Scaler
	require.NoError(t, s.Fit(rows))
	out, err := s.Transform(rows)
	require.NoError(t, err)

	for j := 0; j < 3; j++ {
		var sum, sq float64
		for i := range out {
			sum += out[i][j]
		}
		mean := sum / float64(len(out))
		for i := range out {
			sq += (out[i][j] - mean) * (out[i][j] - mean)
		}
		assert.InDelta(t, 0, mean, 1e-9)
		if j < 2 {
			assert.InDelta(t, 1, math.Sqrt(sq/float64(len(out))), 1e-9)
		}
	}
	assert.Equal(t, 1.0, s.Std[2], "constant column keeps unit std")
	assert.InDelta(t, math.Sqrt(1.25), s.Std[0], 1e-12)
}

func TestScalerErrors(t *testing.T) {
	var s Scaler
	_, err := s.Transform([][]float64{{1}})
	assert.ErrorIs(t, err, common.ErrNotFitted)
	assert.ErrorIs(t, s.ScaleVector(make([]float64, NumFeatures)), common.ErrNotFitted)

	require.NoError(t, s.Fit([][]float64{{1, 2}, {3, 4}}))
	_, err = s.Transform([][]float64{{1, 2, 3}})
	assert.Error(t, err)

	assert.Error(t, s.Fit(nil))
	assert.Error(t, s.Fit([][]float64{{1, 2}, {3}}))
}

func TestScalerValidate(t *testing.T) {
	var s Scaler
	assert.ErrorIs(t, s.Validate(), common.ErrNotFitted)

	require.NoError(t, s.Fit([][]float64{{1, 5}, {3, 5}}))
	require.NoError(t, s.Validate())

	for _, std := range []float64{0, -1, math.Inf(1), math.NaN()} {
		bad := Scaler{Mean: []float64{0, 0}, Std: []float64{1, std}}
		assert.Error(t, bad.Validate(), "std %v", std)
	}
	bad := Scaler{Mean: []float64{math.NaN(), 0}, Std: []float64{1, 1}}
	assert.Error(t, bad.Validate())
}

func TestVocabularyValidate(t *testing.T) {
	require.NoError(t, FixedVocabulary().Validate(EncodedFields))

	missing := FixedVocabulary()
	delete(missing, EncodedFields[1])
	assert.Error(t, missing.Validate(EncodedFields))

	dup := FixedVocabulary()
	dup[EncodedFields[0]] = append(dup[EncodedFields[0]], dup[EncodedFields[0]][0])
	assert.Error(t, dup.Validate(EncodedFields))
}

func TestScaleVectorIsDeterministic(t *testing.T) {
	enc := NewEncoder(FixedVocabulary())
	s := Scaler{Mean: []float64{38, 10, 1000, 80, 40}, Std: []float64{13, 2.5, 7000, 400, 12}}

	first, err := ServingVector(enc, exampleInput(), EducationReject)
	require.NoError(t, err)
	require.NoError(t, s.ScaleVector(first))

	second, err := ServingVector(enc, exampleInput(), EducationReject)
	require.NoError(t, err)
	require.NoError(t, s.ScaleVector(second))

	assert.Equal(t, first, second)
	assert.InDelta(t, 1.0/13, first[IdxAge], 1e-12)
	assert.InDelta(t, 1.2, first[IdxEducationalNum], 1e-12)
}

func TestScaleVectorsMatchesScaleVector(t *testing.T) {
	s := Scaler{Mean: []float64{38, 10, 1000, 80, 40}, Std: []float64{13, 2.5, 7000, 400, 12}}
	a := []float64{50, 1, 2, 14, 3, 4, 5, 6, 7, 5000, 0, 45}
	b := append([]float64(nil), a...)

	require.NoError(t, s.ScaleVectors([][]float64{a}))
	require.NoError(t, s.ScaleVector(b))
	assert.Equal(t, b, a)
	assert.Equal(t, 1.0, a[1], "categorical slots are untouched")

	assert.Error(t, s.ScaleVectors([][]float64{{1, 2, 3}}))
	var unfitted Scaler
	assert.ErrorIs(t, unfitted.ScaleVectors([][]float64{b}), common.ErrNotFitted)
}

func TestNumericColumns(t *testing.T) {
	vec := []float64{1, 0, 0, 2, 0, 0, 0, 0, 0, 3, 4, 5}
	assert.Equal(t, [][]float64{{1, 2, 3, 4, 5}}, NumericColumns([][]float64{vec}))
}
