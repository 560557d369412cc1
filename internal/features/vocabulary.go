// Package features holds the encoding contract shared by training and
// inference: category vocabularies, the education mapping, vector assembly
// and numeric scaling.
package features

import (
	"fmt"
	"sort"

	"income-predictor/internal/dataset"
)

// EncodedFields are the categorical fields that take part in the feature
// vector, in assembly order.
var EncodedFields = []string{
	dataset.FieldWorkclass,
	dataset.FieldEducation,
	dataset.FieldMaritalStatus,
	dataset.FieldOccupation,
	dataset.FieldRelationship,
	dataset.FieldRace,
	dataset.FieldGender,
}

// Vocabulary maps a categorical field to its ordered list of values. The
// position of a value in its list is its integer code.
type Vocabulary map[string][]string

// FixedVocabulary returns the enumeration the inference service accepted
// before vocabularies were persisted with the model. Values are sorted.
func FixedVocabulary() Vocabulary {
	v := Vocabulary{
		dataset.FieldWorkclass: {
			"Private", "Self-emp-not-inc", "Self-emp-inc", "Federal-gov", "Local-gov", "State-gov",
		},
		dataset.FieldEducation: {
			"Bachelors", "Some-college", "11th", "HS-grad", "Prof-school", "Assoc-acdm",
			"Assoc-voc", "9th", "7th-8th", "12th", "Masters", "1st-4th", "10th",
			"Doctorate", "5th-6th", "Preschool",
		},
		dataset.FieldMaritalStatus: {
			"Married-civ-spouse", "Divorced", "Never-married", "Separated", "Widowed",
			"Married-spouse-absent", "Married-AF-spouse",
		},
		dataset.FieldOccupation: {
			"Tech-support", "Craft-repair", "Other-service", "Sales", "Exec-managerial",
			"Prof-specialty", "Handlers-cleaners", "Machine-op-inspct", "Adm-clerical",
			"Farming-fishing", "Transport-moving", "Priv-house-serv", "Protective-serv",
			"Armed-Forces",
		},
		dataset.FieldRelationship: {
			"Wife", "Own-child", "Husband", "Not-in-family", "Other-relative", "Unmarried",
		},
		dataset.FieldRace: {
			"White", "Asian-Pac-Islander", "Amer-Indian-Eskimo", "Other", "Black",
		},
		dataset.FieldGender: {"Male", "Female"},
	}
	return v.Sorted()
}

// FitVocabulary collects the sorted distinct values of every categorical
// column of a cleaned dataset, native-country included.
func FitVocabulary(ds *dataset.Dataset) (Vocabulary, error) {
	v := make(Vocabulary, len(dataset.CategoricalFields))
	for _, field := range dataset.CategoricalFields {
		col := ds.Column(field)
		for i, val := range col {
			if val == "" {
				return nil, fmt.Errorf("field %s row %d: missing value, clean the dataset first", field, i+1)
			}
		}
		v[field] = col
	}
	return v.Sorted(), nil
}

// Validate checks that every listed field has at least one value and no
// duplicates.
func (v Vocabulary) Validate(fields []string) error {
	for _, field := range fields {
		values := v[field]
		if len(values) == 0 {
			return fmt.Errorf("vocabulary: field %s has no values", field)
		}
		if len(indexOf(values)) != len(values) {
			return fmt.Errorf("vocabulary: field %s has duplicate values", field)
		}
	}
	return nil
}

// Sorted returns a copy with every list deduplicated and ordered byte-wise.
func (v Vocabulary) Sorted() Vocabulary {
	out := make(Vocabulary, len(v))
	for field, values := range v {
		seen := make(map[string]struct{}, len(values))
		uniq := make([]string, 0, len(values))
		for _, val := range values {
			if _, ok := seen[val]; ok {
				continue
			}
			seen[val] = struct{}{}
			uniq = append(uniq, val)
		}
		sort.Strings(uniq)
		out[field] = uniq
	}
	return out
}

// Divergence describes a value whose code differs between two vocabularies.
// A code of -1 means the value is absent from that side.
type Divergence struct {
	Field string
	Value string
	Left  int
	Right int
}

// Diff compares the codes of every value in the given fields.
func (v Vocabulary) Diff(other Vocabulary, fields []string) []Divergence {
	var out []Divergence
	for _, field := range fields {
		left := indexOf(v[field])
		right := indexOf(other[field])

		values := make([]string, 0, len(left)+len(right))
		for val := range left {
			values = append(values, val)
		}
		for val := range right {
			if _, ok := left[val]; !ok {
				values = append(values, val)
			}
		}
		sort.Strings(values)

		for _, val := range values {
			l, lok := left[val]
			r, rok := right[val]
			if !lok {
				l = -1
			}
			if !rok {
				r = -1
			}
			if l != r {
				out = append(out, Divergence{Field: field, Value: val, Left: l, Right: r})
			}
		}
	}
	return out
}

func indexOf(values []string) map[string]int {
	m := make(map[string]int, len(values))
	for i, v := range values {
		m[v] = i
	}
	return m
}
