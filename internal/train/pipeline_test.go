package train

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"income-predictor/internal/api"
	"income-predictor/internal/dataset"
	"income-predictor/internal/features"
	"income-predictor/internal/storage"
)

var educations = []struct {
	label string
	years int
}{
	{"HS-grad", 9}, {"Some-college", 10}, {"Bachelors", 13}, {"Masters", 14}, {"11th", 7}, {"Doctorate", 16},
}

// writeCSV generates a census-like file where high education and long hours
// mean >50K. Some cells carry the "?" sentinel.
func writeCSV(t *testing.T, rows int) string {
	t.Helper()
	rnd := rand.New(rand.NewSource(1))
	fixed := features.FixedVocabulary()
	pick := func(field string) string {
		values := fixed[field]
		return values[rnd.Intn(len(values))]
	}

	var sb strings.Builder
	sb.WriteString("age,workclass,fnlwgt,education,educational-num,marital-status,occupation,relationship,race,gender,capital-gain,capital-loss,hours-per-week,native-country,income\n")
	for i := 0; i < rows; i++ {
		edu := educations[rnd.Intn(len(educations))]
		hours := 20 + rnd.Intn(45)
		income := "<=50K"
		if edu.years >= 13 && hours >= 40 {
			income = ">50K"
		}
		workclass := pick(dataset.FieldWorkclass)
		occupation := pick(dataset.FieldOccupation)
		if i%17 == 0 {
			workclass = "?"
			occupation = "?"
		}
		country := "United-States"
		if i%5 == 0 {
			country = "Mexico"
		}
		if i%23 == 0 {
			country = "?"
		}
		fmt.Fprintf(&sb, "%d,%s,%d,%s,%d,%s,%s,%s,%s,%s,%d,%d,%d,%s,%s\n",
			18+rnd.Intn(50), workclass, 100000+rnd.Intn(200000), edu.label, edu.years,
			pick(dataset.FieldMaritalStatus), occupation, pick(dataset.FieldRelationship),
			pick(dataset.FieldRace), pick(dataset.FieldGender), rnd.Intn(2)*1000, 0, hours, country, income)
	}

	path := filepath.Join(t.TempDir(), "adult.csv")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o600))
	return path
}

func testConfig(t *testing.T, dataPath string) Config {
	dir := t.TempDir()
	return Config{
		DataPath:        dataPath,
		ModelPath:       filepath.Join(dir, "models", "model.db"),
		ReportPath:      filepath.Join(dir, "reports"),
		TestRatio:       0.2,
		RandomState:     42,
		NEstimators:     15,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testConfig(t, writeCSV(t, 400))

	bundle, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, bundle.Version)
	assert.Equal(t, 320, bundle.TrainingRows)
	assert.Equal(t, []string{"<=50K", ">50K"}, bundle.Classes)
	assert.Greater(t, bundle.Evaluation.Accuracy, 0.8)
	assert.Equal(t, 80, bundle.Evaluation.Samples)
	assert.Contains(t, bundle.Vocabulary[dataset.FieldNativeCountry], "Mexico")
	assert.NotContains(t, bundle.Vocabulary[dataset.FieldWorkclass], "?")
	assert.Len(t, bundle.Importances, features.NumFeatures)

	report, err := os.ReadFile(filepath.Join(cfg.ReportPath, ClassificationReportFile))
	require.NoError(t, err)
	assert.Contains(t, string(report), bundle.Version)
	assert.Contains(t, string(report), "precision")

	imp, err := os.ReadFile(filepath.Join(cfg.ReportPath, FeatureImportanceFile))
	require.NoError(t, err)
	var scores []map[string]any
	require.NoError(t, json.Unmarshal(imp, &scores))
	assert.Len(t, scores, features.NumFeatures)

	store, err := storage.NewReadOnly(cfg.ModelPath)
	require.NoError(t, err)
	defer store.Close()
	loaded, err := store.LoadActive()
	require.NoError(t, err)
	assert.Equal(t, bundle.Version, loaded.Version)
	assert.Equal(t, bundle.Vocabulary, loaded.Vocabulary)
	assert.Equal(t, bundle.Scaler, loaded.Scaler)

	svc, err := api.NewService(loaded, api.ServiceOptions{})
	require.NoError(t, err)
	in := features.Input{
		Age: 45, Workclass: "Private", Education: "Masters", MaritalStatus: "Married-civ-spouse",
		Occupation: "Exec-managerial", Relationship: "Husband", Race: "White", Gender: "Male",
		HoursPerWeek: 55,
	}
	pred, err := svc.Predict(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 1, pred.Prediction)

	in.Education = "11th"
	in.HoursPerWeek = 25
	pred, err = svc.Predict(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 0, pred.Prediction)
}

func TestFitIsDeterministic(t *testing.T) {
	cfg := testConfig(t, writeCSV(t, 250))

	fit := func() []byte {
		ds, err := dataset.LoadFile(cfg.DataPath)
		require.NoError(t, err)
		p, err := Prepare(ds)
		require.NoError(t, err)
		b, err := Fit(context.Background(), p, cfg)
		require.NoError(t, err)
		out, err := json.Marshal(b.Forest)
		require.NoError(t, err)
		return out
	}
	assert.JSONEq(t, string(fit()), string(fit()))
}

func TestFitHonorsForestSettings(t *testing.T) {
	cfg := testConfig(t, writeCSV(t, 150))
	cfg.NEstimators = 3
	cfg.MaxFeatures = features.NumFeatures
	cfg.NoBootstrap = true
	cfg.Workers = 1

	ds, err := dataset.LoadFile(cfg.DataPath)
	require.NoError(t, err)
	p, err := Prepare(ds)
	require.NoError(t, err)
	b, err := Fit(context.Background(), p, cfg)
	require.NoError(t, err)

	assert.Equal(t, features.NumFeatures, b.Forest.MaxFeatures)
	assert.False(t, b.Forest.Bootstrap)

	cfg.MaxFeatures = 0
	cfg.NoBootstrap = false
	b, err = Fit(context.Background(), p, cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Forest.MaxFeatures)
	assert.True(t, b.Forest.Bootstrap)
}

func TestScalerSeesOnlyTrainingSplit(t *testing.T) {
	cfg := testConfig(t, writeCSV(t, 200))
	ds, err := dataset.LoadFile(cfg.DataPath)
	require.NoError(t, err)
	p, err := Prepare(ds)
	require.NoError(t, err)

	b, err := Fit(context.Background(), p, cfg)
	require.NoError(t, err)

	var full features.Scaler
	require.NoError(t, full.Fit(features.NumericColumns(p.X)))
	assert.NotEqual(t, full.Mean, b.Scaler.Mean)

	// Prepare's matrix is not mutated by scaling
	for _, row := range p.X {
		assert.GreaterOrEqual(t, row[features.IdxAge], 18.0)
	}
}

func TestPrepareErrors(t *testing.T) {
	_, err := Prepare(&dataset.Dataset{})
	assert.Error(t, err)

	ds, err := dataset.Load(strings.NewReader(
		"age,workclass,education,educational-num,marital-status,occupation,relationship,race,gender,capital-gain,capital-loss,hours-per-week,native-country,income\n" +
			"30,Private,HS-grad,9,Divorced,Sales,Unmarried,White,Female,0,0,40,United-States,<=50K\n"))
	require.NoError(t, err)
	_, err = Prepare(ds)
	assert.ErrorContains(t, err, "income classes")
}

func TestRunMissingData(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "missing.csv"))
	_, err := Run(context.Background(), cfg)
	assert.Error(t, err)
	_, statErr := os.Stat(cfg.ModelPath)
	assert.True(t, os.IsNotExist(statErr))
}
