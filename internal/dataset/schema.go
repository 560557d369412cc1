// Package dataset loads and cleans the census income CSV used for training.
package dataset

// Column names as they appear in the CSV header.
const (
	FieldAge            = "age"
	FieldWorkclass      = "workclass"
	FieldEducation      = "education"
	FieldEducationalNum = "educational-num"
	FieldMaritalStatus  = "marital-status"
	FieldOccupation     = "occupation"
	FieldRelationship   = "relationship"
	FieldRace           = "race"
	FieldGender         = "gender"
	FieldCapitalGain    = "capital-gain"
	FieldCapitalLoss    = "capital-loss"
	FieldHoursPerWeek   = "hours-per-week"
	FieldNativeCountry  = "native-country"
	FieldIncome         = "income"
)

// MissingSentinel marks an unknown categorical value in the raw data.
const MissingSentinel = "?"

// NumericFields lists the numeric columns in file order.
var NumericFields = []string{
	FieldAge,
	FieldEducationalNum,
	FieldCapitalGain,
	FieldCapitalLoss,
	FieldHoursPerWeek,
}

// CategoricalFields lists the categorical input columns. native-country is
// cleaned and encoded but is not fed to the classifier.
var CategoricalFields = []string{
	FieldWorkclass,
	FieldEducation,
	FieldMaritalStatus,
	FieldOccupation,
	FieldRelationship,
	FieldRace,
	FieldGender,
	FieldNativeCountry,
}

// Record is one cleaned or raw row. A missing categorical value is stored
// as the empty string.
type Record struct {
	Numeric     map[string]float64
	Categorical map[string]string
	Income      string
}

// Dataset is an ordered collection of records.
type Dataset struct {
	Records []Record
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Records) }

// Column returns the values of a categorical column in row order.
func (d *Dataset) Column(field string) []string {
	out := make([]string, len(d.Records))
	for i, r := range d.Records {
		out[i] = r.Categorical[field]
	}
	return out
}

// Labels returns the income column in row order.
func (d *Dataset) Labels() []string {
	out := make([]string, len(d.Records))
	for i, r := range d.Records {
		out[i] = r.Income
	}
	return out
}
