package features

import (
	"fmt"

	"income-predictor/internal/common"
	"income-predictor/internal/dataset"
)

// EducationPolicy decides what happens to an education label without a rank.
type EducationPolicy string

const (
	// EducationReject fails the request.
	EducationReject EducationPolicy = "reject"
	// EducationDefault falls back to DefaultEducationYears.
	EducationDefault EducationPolicy = "default"
)

// DefaultEducationYears is the HS-grad rank.
const DefaultEducationYears = 9

var educationYears = map[string]int{
	"Preschool":    1,
	"1st-4th":      2,
	"5th-6th":      3,
	"7th-8th":      4,
	"9th":          5,
	"10th":         6,
	"11th":         7,
	"12th":         8,
	"HS-grad":      9,
	"Some-college": 10,
	"Assoc-voc":    11,
	"Assoc-acdm":   12,
	"Bachelors":    13,
	"Masters":      14,
	"Prof-school":  15,
	"Doctorate":    16,
}

// ParseEducationPolicy validates a policy name.
func ParseEducationPolicy(s string) (EducationPolicy, error) {
	switch p := EducationPolicy(s); p {
	case EducationReject, EducationDefault:
		return p, nil
	case "":
		return EducationReject, nil
	default:
		return "", fmt.Errorf("unknown education policy %q (want reject or default)", s)
	}
}

// EducationYears returns the ordinal rank of an education label.
func EducationYears(label string, policy EducationPolicy) (int, error) {
	if years, ok := educationYears[label]; ok {
		return years, nil
	}
	if policy == EducationDefault {
		return DefaultEducationYears, nil
	}
	return 0, &common.CategoryError{Field: dataset.FieldEducation, Value: label}
}
