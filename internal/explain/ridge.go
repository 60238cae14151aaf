package explain

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

var errSingular = errors.New("ridge system is not positive definite")

// ridgeFit is a weighted ridge regression solution over a subset of columns
type ridgeFit struct {
	Coef      []float64 // One per selected column, in selection order
	Intercept float64
	Score     float64 // Weighted R^2 on the fitted rows
}

// weightedRidge minimizes sum_i w_i (y_i - b - x_i.beta)^2 + alpha*|beta|^2 over the given
// columns of X. The intercept is not penalized: inputs are centered by their weighted means.
func weightedRidge(X *mat.Dense, y, w []float64, cols []int, alpha float64) (*ridgeFit, error) {
	n, _ := X.Dims()
	p := len(cols)

	var wsum, ybar float64
	for i := 0; i < n; i++ {
		wsum += w[i]
		ybar += w[i] * y[i]
	}
	if wsum <= 0 {
		return nil, errors.New("sample weights sum to zero")
	}
	ybar /= wsum

	xbar := make([]float64, p)
	for j, col := range cols {
		for i := 0; i < n; i++ {
			xbar[j] += w[i] * X.At(i, col)
		}
		xbar[j] /= wsum
	}

	fit := &ridgeFit{Coef: make([]float64, p), Intercept: ybar}
	if p > 0 {
		xc := mat.NewDense(n, p, nil)
		yc := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			sw := math.Sqrt(w[i])
			for j, col := range cols {
				xc.Set(i, j, sw*(X.At(i, col)-xbar[j]))
			}
			yc.SetVec(i, sw*(y[i]-ybar))
		}

		gram := mat.NewSymDense(p, nil)
		gram.SymOuterK(1, xc.T())
		for j := 0; j < p; j++ {
			gram.SetSym(j, j, gram.At(j, j)+alpha)
		}

		rhs := mat.NewVecDense(p, nil)
		rhs.MulVec(xc.T(), yc)

		var chol mat.Cholesky
		if ok := chol.Factorize(gram); !ok {
			return nil, errSingular
		}
		beta := mat.NewVecDense(p, nil)
		if err := chol.SolveVecTo(beta, rhs); err != nil {
			return nil, err
		}
		for j := 0; j < p; j++ {
			fit.Coef[j] = beta.AtVec(j)
			fit.Intercept -= xbar[j] * fit.Coef[j]
		}
	}

	fit.Score = weightedR2(X, y, w, cols, fit, ybar)
	return fit, nil
}

// weightedR2 returns 1 - SSres/SStot; a constant target scores 1 when fitted exactly, else 0
func weightedR2(X *mat.Dense, y, w []float64, cols []int, fit *ridgeFit, ybar float64) float64 {
	n, _ := X.Dims()
	var ssRes, ssTot float64
	for i := 0; i < n; i++ {
		pred := fit.Intercept
		for j, col := range cols {
			pred += fit.Coef[j] * X.At(i, col)
		}
		r := y[i] - pred
		ssRes += w[i] * r * r
		t := y[i] - ybar
		ssTot += w[i] * t * t
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}
