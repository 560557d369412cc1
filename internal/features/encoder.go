package features

import (
	"fmt"

	"income-predictor/internal/common"
)

// Encoder maps categorical values to integer codes. It is immutable once
// built and safe for concurrent use.
type Encoder struct {
	vocab Vocabulary
	codes map[string]map[string]int
}

// NewEncoder builds an encoder over v. The lists are used in the order
// given, so a fitted vocabulary loaded from an artifact keeps its codes.
func NewEncoder(v Vocabulary) *Encoder {
	e := &Encoder{
		vocab: make(Vocabulary, len(v)),
		codes: make(map[string]map[string]int, len(v)),
	}
	for field, values := range v {
		e.vocab[field] = append([]string(nil), values...)
		e.codes[field] = indexOf(values)
	}
	return e
}

// Encode returns the code of value within field.
func (e *Encoder) Encode(field, value string) (int, error) {
	codes, ok := e.codes[field]
	if !ok {
		return 0, fmt.Errorf("no vocabulary for field %s: %w", field, common.ErrUnknownCategory)
	}
	code, ok := codes[value]
	if !ok {
		return 0, &common.CategoryError{Field: field, Value: value}
	}
	return code, nil
}

// Vocabulary returns a copy of the vocabulary backing the encoder.
func (e *Encoder) Vocabulary() Vocabulary {
	out := make(Vocabulary, len(e.vocab))
	for field, values := range e.vocab {
		out[field] = append([]string(nil), values...)
	}
	return out
}
