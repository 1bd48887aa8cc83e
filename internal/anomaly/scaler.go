package anomaly

import (
	"fmt"
	"math"
)

// StandardScaler standardizes each feature column to zero mean and unit
// variance. Fitted parameters persist with the model artifact so scoring
// always applies the training-time transform.
type StandardScaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// Fit computes per-column mean and (population) standard deviation
func (s *StandardScaler) Fit(matrix [][]float64) error {
	if len(matrix) == 0 {
		return ErrNoTrainingData
	}
	cols := len(matrix[0])
	s.Mean = make([]float64, cols)
	s.Std = make([]float64, cols)

	for _, row := range matrix {
		for j, v := range row {
			s.Mean[j] += v
		}
	}
	n := float64(len(matrix))
	for j := range s.Mean {
		s.Mean[j] /= n
	}
	for _, row := range matrix {
		for j, v := range row {
			d := v - s.Mean[j]
			s.Std[j] += d * d
		}
	}
	for j := range s.Std {
		s.Std[j] = math.Sqrt(s.Std[j] / n)
	}
	return nil
}

// Transform returns a standardized copy of the matrix. Constant columns
// (zero variance) pass through centered only.
func (s *StandardScaler) Transform(matrix [][]float64) ([][]float64, error) {
	if len(s.Mean) == 0 {
		return nil, ErrModelNotFitted
	}
	out := make([][]float64, len(matrix))
	for i, row := range matrix {
		if len(row) != len(s.Mean) {
			return nil, fmt.Errorf("row %d has %d columns, scaler fitted on %d", i, len(row), len(s.Mean))
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = v - s.Mean[j]
			if s.Std[j] != 0 {
				scaled[j] /= s.Std[j]
			}
		}
		out[i] = scaled
	}
	return out, nil
}
