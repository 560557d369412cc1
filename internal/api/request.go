package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"income-predictor/internal/common"
	"income-predictor/internal/dataset"
	"income-predictor/internal/features"
)

var numericKeys = []string{
	dataset.FieldAge,
	dataset.FieldCapitalGain,
	dataset.FieldCapitalLoss,
	dataset.FieldHoursPerWeek,
}

// RequiredKeys lists the keys a /predict body must carry, in the order
// they are checked.
var RequiredKeys = []string{
	dataset.FieldAge,
	dataset.FieldWorkclass,
	dataset.FieldEducation,
	dataset.FieldMaritalStatus,
	dataset.FieldOccupation,
	dataset.FieldRelationship,
	dataset.FieldRace,
	dataset.FieldGender,
	dataset.FieldCapitalGain,
	dataset.FieldCapitalLoss,
	dataset.FieldHoursPerWeek,
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), common.ErrBadRequest)
}

// DecodeInput parses a /predict body. Unknown keys, including a
// caller-supplied educational-num, are ignored.
func DecodeInput(body []byte) (features.Input, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return features.Input{}, badRequest(common.ErrMsgNoData)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return features.Input{}, badRequest("malformed JSON body: %v", err)
	}
	if len(raw) == 0 {
		return features.Input{}, badRequest(common.ErrMsgNoData)
	}

	for _, key := range RequiredKeys {
		v, ok := raw[key]
		if !ok || string(v) == "null" {
			return features.Input{}, badRequest("missing required field '%s'", key)
		}
	}

	nums := make(map[string]float64, len(numericKeys))
	for _, key := range numericKeys {
		var f float64
		if err := json.Unmarshal(raw[key], &f); err != nil {
			return features.Input{}, badRequest("field '%s' must be a number", key)
		}
		nums[key] = f
	}

	cats := make(map[string]string, len(features.EncodedFields))
	for _, key := range features.EncodedFields {
		var s string
		if err := json.Unmarshal(raw[key], &s); err != nil {
			return features.Input{}, badRequest("field '%s' must be a string", key)
		}
		cats[key] = s
	}

	return features.Input{
		Age:           nums[dataset.FieldAge],
		Workclass:     cats[dataset.FieldWorkclass],
		Education:     cats[dataset.FieldEducation],
		MaritalStatus: cats[dataset.FieldMaritalStatus],
		Occupation:    cats[dataset.FieldOccupation],
		Relationship:  cats[dataset.FieldRelationship],
		Race:          cats[dataset.FieldRace],
		Gender:        cats[dataset.FieldGender],
		CapitalGain:   nums[dataset.FieldCapitalGain],
		CapitalLoss:   nums[dataset.FieldCapitalLoss],
		HoursPerWeek:  nums[dataset.FieldHoursPerWeek],
	}, nil
}
