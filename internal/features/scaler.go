package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"income-predictor/internal/common"
)

// Scaler standardizes numeric columns to zero mean and unit variance using
// the population standard deviation. The zero value is unfitted.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// Fitted reports whether Fit has run or parameters were loaded.
func (s *Scaler) Fitted() bool {
	return s != nil && len(s.Mean) > 0 && len(s.Mean) == len(s.Std)
}

// Validate checks that loaded parameters are usable: every mean finite and
// every std finite and positive.
func (s *Scaler) Validate() error {
	if !s.Fitted() {
		return fmt.Errorf("scaler: %w", common.ErrNotFitted)
	}
	for j := range s.Mean {
		if math.IsNaN(s.Mean[j]) || math.IsInf(s.Mean[j], 0) {
			return fmt.Errorf("scaler: column %d mean is %v", j, s.Mean[j])
		}
		if !(s.Std[j] > 0) || math.IsInf(s.Std[j], 0) {
			return fmt.Errorf("scaler: column %d std is %v", j, s.Std[j])
		}
	}
	return nil
}

// Fit computes per-column mean and std over rows. A column with zero
// spread gets a std of 1 so Transform leaves it centered.
func (s *Scaler) Fit(rows [][]float64) error {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return fmt.Errorf("scaler fit: empty matrix")
	}
	m, err := dense(rows)
	if err != nil {
		return fmt.Errorf("scaler fit: %w", err)
	}

	_, cols := m.Dims()
	s.Mean = make([]float64, cols)
	s.Std = make([]float64, cols)
	for j := 0; j < cols; j++ {
		col := mat.Col(nil, j, m)
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j] = mean
		s.Std[j] = std
	}
	return nil
}

// Transform returns a scaled copy of rows.
func (s *Scaler) Transform(rows [][]float64) ([][]float64, error) {
	if !s.Fitted() {
		return nil, fmt.Errorf("scaler transform: %w", common.ErrNotFitted)
	}
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(s.Mean) {
			return nil, fmt.Errorf("scaler transform: row %d has %d columns, want %d", i, len(row), len(s.Mean))
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Mean[j]) / s.Std[j]
		}
		out[i] = scaled
	}
	return out, nil
}

// ScaleVector scales the numeric slots of a full feature vector in place.
func (s *Scaler) ScaleVector(vec []float64) error {
	if !s.Fitted() {
		return fmt.Errorf("scale vector: %w", common.ErrNotFitted)
	}
	if len(s.Mean) != len(NumericIndices) {
		return fmt.Errorf("scale vector: scaler has %d columns, want %d", len(s.Mean), len(NumericIndices))
	}
	if len(vec) != NumFeatures {
		return fmt.Errorf("scale vector: got %d features, want %d", len(vec), NumFeatures)
	}
	for j, idx := range NumericIndices {
		vec[idx] = (vec[idx] - s.Mean[j]) / s.Std[j]
	}
	return nil
}

// NumericColumns extracts the numeric slots of full feature vectors.
func NumericColumns(vectors [][]float64) [][]float64 {
	out := make([][]float64, len(vectors))
	for i, v := range vectors {
		row := make([]float64, len(NumericIndices))
		for j, idx := range NumericIndices {
			row[j] = v[idx]
		}
		out[i] = row
	}
	return out
}

// ScaleVectors scales the numeric slots of every vector in place.
func (s *Scaler) ScaleVectors(vectors [][]float64) error {
	for i, v := range vectors {
		if len(v) != NumFeatures {
			return fmt.Errorf("scale vectors: row %d has %d features, want %d", i, len(v), NumFeatures)
		}
	}
	scaled, err := s.Transform(NumericColumns(vectors))
	if err != nil {
		return err
	}
	for i, v := range vectors {
		for j, idx := range NumericIndices {
			v[idx] = scaled[i][j]
		}
	}
	return nil
}

func dense(rows [][]float64) (*mat.Dense, error) {
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}
