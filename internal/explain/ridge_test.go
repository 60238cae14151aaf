package explain

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestWeightedRidge_ExactLinear(t *testing.T) {
	req := require.New(t)
	// y = 1 + 2*x0 - 3*x1
	X := mat.NewDense(6, 2, []float64{
		0, 0,
		1, 0,
		0, 1,
		1, 1,
		2, 1,
		1, 2,
	})
	y := make([]float64, 6)
	for i := range y {
		y[i] = 1 + 2*X.At(i, 0) - 3*X.At(i, 1)
	}
	w := []float64{1, 2, 1, 0.5, 1, 3}

	fit, err := weightedRidge(X, y, w, []int{0, 1}, 1e-9)
	req.NoError(err)
	req.InDelta(2.0, fit.Coef[0], 1e-6)
	req.InDelta(-3.0, fit.Coef[1], 1e-6)
	req.InDelta(1.0, fit.Intercept, 1e-6)
	req.InDelta(1.0, fit.Score, 1e-9)
}

func TestWeightedRidge_PenaltyShrinks(t *testing.T) {
	req := require.New(t)
	X := mat.NewDense(4, 1, []float64{0, 1, 0, 1})
	y := []float64{0, 1, 0, 1}
	w := []float64{1, 1, 1, 1}

	fit, err := weightedRidge(X, y, w, []int{0}, 1)
	req.NoError(err)
	// centered sxx = 1, sxy = 1: beta = 1 / (1 + 1)
	req.InDelta(0.5, fit.Coef[0], 1e-12)
	req.InDelta(0.25, fit.Intercept, 1e-12)
	req.Less(fit.Score, 1.0)
}

func TestWeightedRidge_NoColumns(t *testing.T) {
	req := require.New(t)
	X := mat.NewDense(3, 1, []float64{1, 0, 1})
	fit, err := weightedRidge(X, []float64{0.2, 0.4, 0.6}, []float64{1, 1, 2}, nil, 1)
	req.NoError(err)
	req.Empty(fit.Coef)
	req.InDelta((0.2+0.4+1.2)/4, fit.Intercept, 1e-12)
	req.InDelta(0.0, fit.Score, 1e-12)

	_, err = weightedRidge(X, []float64{1, 1, 1}, []float64{0, 0, 0}, nil, 1)
	req.Error(err)
}
