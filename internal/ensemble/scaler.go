package ensemble

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes features to zero mean and unit variance. The fitted
// transform is stored inside the artifact and reapplied identically at
// prediction time.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitScaler computes per-column mean and population standard deviation.
// Zero-variance columns keep a std of 1 so they pass through unchanged.
func FitScaler(X [][]float64) *Scaler {
	n := len(X)
	d := len(X[0])
	s := &Scaler{
		Mean: make([]float64, d),
		Std:  make([]float64, d),
	}

	col := make([]float64, n)
	for j := 0; j < d; j++ {
		for i := 0; i < n; i++ {
			col[i] = X[i][j]
		}
		s.Mean[j] = stat.Mean(col, nil)
		std := popStdDev(col, s.Mean[j])
		if std == 0 {
			std = 1
		}
		s.Std[j] = std
	}
	return s
}

// Transform returns the standardized copy of one sample.
func (s *Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out
}

// TransformMatrix standardizes every row.
func (s *Scaler) TransformMatrix(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.Transform(row)
	}
	return out
}

func popStdDev(xs []float64, mean float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sq float64
	for _, v := range xs {
		diff := v - mean
		sq += diff * diff
	}
	return math.Sqrt(sq / float64(len(xs)))
}
