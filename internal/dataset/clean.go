package dataset

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
)

// ErrEmptyColumn is returned when a categorical column has no observed value
// to impute from.
var ErrEmptyColumn = errors.New("column has no non-missing values")

// Clean fills every missing categorical cell with the column mode, in place.
// It also rejects rows without an income label.
func Clean(ds *Dataset) error {
	for _, col := range CategoricalFields {
		mode, err := Mode(ds.Column(col))
		if err != nil {
			return fmt.Errorf("column %s: %w", col, err)
		}

		filled := 0
		for i := range ds.Records {
			if ds.Records[i].Categorical[col] == "" {
				ds.Records[i].Categorical[col] = mode
				filled++
			}
		}

		if filled > 0 {
			log.Debug().
				Str("column", col).
				Str("mode", mode).
				Int("filled", filled).
				Msg("Imputed missing values")
		}
	}

	for i, r := range ds.Records {
		if r.Income == "" {
			return fmt.Errorf("row %d: missing income label", i+1)
		}
	}

	return nil
}

// Mode returns the most frequent non-empty value. Ties resolve to the
// lexicographically smallest value.
func Mode(values []string) (string, error) {
	counts := make(map[string]int)
	for _, v := range values {
		if v == "" || v == MissingSentinel {
			continue
		}
		counts[v]++
	}
	if len(counts) == 0 {
		return "", ErrEmptyColumn
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best, nil
}

// EncodeLabels maps income classes to 0..k-1 by sorted order. Exactly two
// classes are required, so "<=50K" becomes 0 and ">50K" becomes 1.
func EncodeLabels(labels []string) ([]int, []string, error) {
	seen := make(map[string]struct{})
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	classes := make([]string, 0, len(seen))
	for l := range seen {
		classes = append(classes, l)
	}
	sort.Strings(classes)

	if len(classes) != 2 {
		return nil, nil, fmt.Errorf("expected 2 income classes, found %d: %v", len(classes), classes)
	}

	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	y := make([]int, len(labels))
	for i, l := range labels {
		y[i] = index[l]
	}
	return y, classes, nil
}
