package ensemble

import (
	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Ridge is an L2-penalized linear regressor fit by the closed-form normal
// equations. The intercept is left unpenalized: features and target are
// centered before solving and the intercept recovered from the means.
type Ridge struct {
	Alpha     float64   `json:"alpha"`
	Intercept float64   `json:"intercept"`
	Coef      []float64 `json:"coef"`
}

// FitRidge solves (Xc'Xc + alpha*I) w = Xc'yc over centered data.
func FitRidge(X [][]float64, y []float64, alpha float64) (*Ridge, error) {
	n := len(X)
	if n == 0 {
		return nil, eris.New("ridge: empty design matrix")
	}
	d := len(X[0])

	colMeans := make([]float64, d)
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		for i := 0; i < n; i++ {
			col[i] = X[i][j]
		}
		colMeans[j] = stat.Mean(col, nil)
	}
	yMean := stat.Mean(y, nil)

	// Gram matrix and moment vector over centered columns.
	gram := mat.NewSymDense(d, nil)
	for j := 0; j < d; j++ {
		for k := j; k < d; k++ {
			var s float64
			for i := 0; i < n; i++ {
				s += (X[i][j] - colMeans[j]) * (X[i][k] - colMeans[k])
			}
			gram.SetSym(j, k, s)
		}
	}
	for j := 0; j < d; j++ {
		gram.SetSym(j, j, gram.At(j, j)+alpha)
	}

	moment := make([]float64, d)
	for j := 0; j < d; j++ {
		var s float64
		for i := 0; i < n; i++ {
			s += (X[i][j] - colMeans[j]) * (y[i] - yMean)
		}
		moment[j] = s
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(gram); !ok {
		return nil, eris.New("ridge: normal equations not positive definite")
	}
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, mat.NewVecDense(d, moment)); err != nil {
		return nil, eris.Wrap(err, "ridge: solve")
	}

	coef := make([]float64, d)
	intercept := yMean
	for j := 0; j < d; j++ {
		coef[j] = w.AtVec(j)
		intercept -= coef[j] * colMeans[j]
	}

	return &Ridge{Alpha: alpha, Intercept: intercept, Coef: coef}, nil
}

// Predict returns the linear prediction for one sample.
func (r *Ridge) Predict(x []float64) float64 {
	out := r.Intercept
	for j, c := range r.Coef {
		out += c * x[j]
	}
	return out
}
