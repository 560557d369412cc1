package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// LoadFile opens path and parses it with Load.
func LoadFile(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	ds, err := Load(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	log.Info().
		Str("path", path).
		Int("rows", ds.Len()).
		Msg("Dataset loaded")

	return ds, nil
}

// Load parses a census CSV with a header row. Columns are located by header
// name so their order does not matter.
func Load(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty CSV: missing header")
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[strings.TrimSpace(col)] = i
	}

	required := append(append([]string{}, NumericFields...), CategoricalFields...)
	required = append(required, FieldIncome)
	for _, col := range required {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("required column %q not found in header", col)
		}
	}

	ds := &Dataset{}
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}

		rec := Record{
			Numeric:     make(map[string]float64, len(NumericFields)),
			Categorical: make(map[string]string, len(CategoricalFields)),
		}

		for _, col := range NumericFields {
			cell := strings.TrimSpace(row[colIndex[col]])
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: column %s: invalid number %q", line, col, cell)
			}
			rec.Numeric[col] = v
		}

		for _, col := range CategoricalFields {
			cell := strings.TrimSpace(row[colIndex[col]])
			if cell == MissingSentinel {
				cell = ""
			}
			rec.Categorical[col] = cell
		}

		rec.Income = NormalizeIncome(row[colIndex[FieldIncome]])
		ds.Records = append(ds.Records, rec)
	}

	return ds, nil
}

// NormalizeIncome trims whitespace and the trailing period used by the
// adult.test file.
func NormalizeIncome(s string) string {
	return strings.TrimSuffix(strings.TrimSpace(s), ".")
}
